package cache_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/antonio-alexander/go-employee-facade/internal"
	"github.com/antonio-alexander/go-employee-facade/internal/cache"
	"github.com/antonio-alexander/go-employee-facade/internal/data"

	"github.com/antonio-alexander/go-stash/memory"
	"github.com/stretchr/testify/assert"
)

var envs = map[string]string{
	"REDIS_ADDRESS": "localhost",
	"REDIS_PORT":    "6379",
	"REDIS_TIMEOUT": "10",
}

func init() {
	for _, env := range os.Environ() {
		if s := strings.Split(env, "="); len(s) > 1 {
			envs[s[0]] = strings.Join(s[1:], "=")
		}
	}
}

type cacheTest struct {
	cache interface {
		internal.Configurer
		internal.Opener
		internal.Clearer
		cache.Cache
	}
}

func newCacheTest(cacheType string) *cacheTest {
	c := &cacheTest{}
	switch cacheType {
	case "memory":
		c.cache = cache.NewMemory()
	case "redis":
		c.cache = cache.NewRedis()
	case "stash-memory":
		c.cache = cache.NewStash(memory.New())
	}
	return c
}

func newEmployees() []*data.Employee {
	employees := make([]*data.Employee, 0, 5)
	for i := 0; i < 5; i++ {
		employees = append(employees, &data.Employee{
			Id:     internal.GenerateId(),
			Name:   internal.GenerateId(),
			Salary: 1000 * (i + 1),
			Age:    20 + i,
			Title:  "Engineer",
		})
	}
	return employees
}

func (c *cacheTest) TestEmployees(t *testing.T) {
	ctx := context.TODO()
	employees := newEmployees()

	err := c.cache.Clear(ctx)
	assert.Nil(t, err)

	//nothing cached yet
	_, err = c.cache.EmployeesRead(ctx)
	assert.ErrorIs(t, err, cache.ErrEmployeesNotCached)
	_, err = c.cache.EmployeeRead(ctx, employees[0].Id)
	assert.ErrorIs(t, err, cache.ErrEmployeeNotCached)

	//write the snapshot, order is preserved
	err = c.cache.EmployeesWrite(ctx, employees...)
	assert.Nil(t, err)
	employeesRead, err := c.cache.EmployeesRead(ctx)
	assert.Nil(t, err)
	assert.Equal(t, employees, employeesRead)

	//members are individually readable
	employeeRead, err := c.cache.EmployeeRead(ctx, employees[1].Id)
	assert.Nil(t, err)
	assert.Equal(t, employees[1], employeeRead)

	//evicting a member evicts the snapshot
	err = c.cache.EmployeesDelete(ctx, employees[1].Id)
	assert.Nil(t, err)
	employeeRead, err = c.cache.EmployeeRead(ctx, employees[1].Id)
	assert.ErrorIs(t, err, cache.ErrEmployeeNotCached)
	assert.Nil(t, employeeRead)
	_, err = c.cache.EmployeesRead(ctx)
	assert.ErrorIs(t, err, cache.ErrEmployeesNotCached)

	//other members survive
	employeeRead, err = c.cache.EmployeeRead(ctx, employees[0].Id)
	assert.Nil(t, err)
	assert.Equal(t, employees[0], employeeRead)

	//an empty collection is a valid snapshot
	err = c.cache.EmployeesWrite(ctx)
	assert.Nil(t, err)
	employeesRead, err = c.cache.EmployeesRead(ctx)
	assert.Nil(t, err)
	assert.Empty(t, employeesRead)

	//ids are opaque, separators included
	separated := []*data.Employee{
		{Id: internal.GenerateId() + ",1", Name: "Lloyd Graham", Salary: 116571, Age: 58},
		{Id: "1", Name: "Tiger Nixon", Salary: 320800, Age: 61},
	}
	err = c.cache.EmployeesWrite(ctx, separated...)
	assert.Nil(t, err)
	employeesRead, err = c.cache.EmployeesRead(ctx)
	assert.Nil(t, err)
	assert.Equal(t, separated, employeesRead)

	//single write then clear
	err = c.cache.EmployeeWrite(ctx, employees[2])
	assert.Nil(t, err)
	employeeRead, err = c.cache.EmployeeRead(ctx, employees[2].Id)
	assert.Nil(t, err)
	assert.Equal(t, employees[2], employeeRead)
	err = c.cache.Clear(ctx)
	assert.Nil(t, err)
	_, err = c.cache.EmployeeRead(ctx, employees[2].Id)
	assert.ErrorIs(t, err, cache.ErrEmployeeNotCached)
}

func testCache(t *testing.T, cacheType string) {
	c := newCacheTest(cacheType)

	err := c.cache.Configure(envs)
	if !assert.Nil(t, err) {
		assert.FailNow(t, "unable to configure cache")
	}
	if err := c.cache.Open(context.TODO()); err != nil {
		t.Skipf("unable to open %s cache: %s", cacheType, err)
	}
	defer func() {
		if err := c.cache.Close(context.TODO()); err != nil {
			t.Logf("error while closing cache: %s", err)
		}
	}()
	t.Run("Employees", c.TestEmployees)
}

func TestCacheMemory(t *testing.T) {
	testCache(t, "memory")
}

func TestCacheRedis(t *testing.T) {
	testCache(t, "redis")
}

func TestCacheStashMemory(t *testing.T) {
	testCache(t, "stash-memory")
}

func TestCacheStashMissingMember(t *testing.T) {
	ctx := context.TODO()
	stash := memory.New()
	c := cache.NewStash(stash)
	err := c.Configure(envs)
	assert.Nil(t, err)
	err = c.Open(ctx)
	assert.Nil(t, err)
	defer func() {
		_ = c.Close(ctx)
	}()

	employees := newEmployees()
	err = c.EmployeesWrite(ctx, employees...)
	assert.Nil(t, err)

	//a member evicted behind the cache's back drops the whole snapshot
	err = stash.Delete("employee_" + employees[3].Id)
	assert.Nil(t, err)
	_, err = c.EmployeesRead(ctx)
	assert.ErrorIs(t, err, cache.ErrEmployeesNotCached)
	err = c.EmployeeWrite(ctx, employees[3])
	assert.Nil(t, err)
	_, err = c.EmployeesRead(ctx)
	assert.ErrorIs(t, err, cache.ErrEmployeesNotCached)

	//the remaining members are still readable
	employeeRead, err := c.EmployeeRead(ctx, employees[0].Id)
	assert.Nil(t, err)
	assert.Equal(t, employees[0], employeeRead)
}

func TestCacheMemoryTTL(t *testing.T) {
	ctx := context.TODO()
	c := cache.NewMemory()
	err := c.Configure(map[string]string{
		"CACHE_TTL":            "1",
		"CACHE_PRUNE_INTERVAL": "1",
	})
	assert.Nil(t, err)
	err = c.Open(ctx)
	assert.Nil(t, err)
	defer func() {
		_ = c.Close(ctx)
	}()

	employees := newEmployees()
	err = c.EmployeesWrite(ctx, employees...)
	assert.Nil(t, err)
	_, err = c.EmployeesRead(ctx)
	assert.Nil(t, err)
	time.Sleep(1500 * time.Millisecond)
	_, err = c.EmployeesRead(ctx)
	assert.ErrorIs(t, err, cache.ErrEmployeesNotCached)
	_, err = c.EmployeeRead(ctx, employees[0].Id)
	assert.ErrorIs(t, err, cache.ErrEmployeeNotCached)
}

func TestCacheStashNotProvided(t *testing.T) {
	c := cache.NewStash()
	err := c.Configure(envs)
	assert.Nil(t, err)
	err = c.Open(context.TODO())
	assert.ErrorIs(t, err, cache.ErrStashNotProvided)
}
