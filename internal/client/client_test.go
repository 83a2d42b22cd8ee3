package client_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/antonio-alexander/go-employee-facade/internal"
	"github.com/antonio-alexander/go-employee-facade/internal/cache"
	"github.com/antonio-alexander/go-employee-facade/internal/client"
	"github.com/antonio-alexander/go-employee-facade/internal/data"
	"github.com/antonio-alexander/go-employee-facade/internal/logic"
	"github.com/antonio-alexander/go-employee-facade/internal/mock"
	"github.com/antonio-alexander/go-employee-facade/internal/service"
	"github.com/antonio-alexander/go-employee-facade/internal/upstream"
	"github.com/antonio-alexander/go-employee-facade/internal/utilities"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

var employees = []*data.Employee{
	{Id: "1", Name: "Lloyd Graham", Salary: 116571, Age: 58, Title: "Engineer", Email: "lloyd@company.com"},
	{Id: "2", Name: "Tiger Nixon", Salary: 320800, Age: 61, Title: "System Architect"},
	{Id: "3", Name: "Garrett Winters", Salary: 170750, Age: 63, Title: "Accountant"},
}

type clientTest struct {
	mock  *mock.Mock
	cache interface {
		internal.Configurer
		internal.Opener
		internal.Clearer
		cache.Cache
	}
	client interface {
		internal.Configurer
		internal.Opener
		client.Client
	}
}

func newClientTest(t *testing.T, envs map[string]string) *clientTest {
	m := mock.New("", employees...)
	server := httptest.NewServer(m)
	uri, err := url.Parse(server.URL)
	if !assert.Nil(t, err) {
		assert.FailNow(t, "unable to parse mock url")
	}
	listener, err := net.Listen("tcp", "localhost:0")
	if !assert.Nil(t, err) {
		assert.FailNow(t, "unable to find free port")
	}
	_, port, _ := net.SplitHostPort(listener.Addr().String())
	listener.Close()
	configuration := map[string]string{
		"UPSTREAM_ADDRESS":       uri.Hostname(),
		"UPSTREAM_PORT":          uri.Port(),
		"SERVICE_ADDRESS":        "localhost",
		"SERVICE_PORT":           port,
		"SERVICE_TIMERS_ENABLED": "true",
		"LOGIC_CACHE_ENABLED":    "true",
		"CLIENT_ADDRESS":         "localhost",
		"CLIENT_PORT":            port,
		"CLIENT_PROTOCOL":        "http",
		"CLIENT_TIMEOUT":         "10",
		"CLIENT_CACHE_DISABLED":  "true",
	}
	for key, value := range envs {
		configuration[key] = value
	}
	u := upstream.NewUpstream()
	serviceCache := cache.NewMemory()
	l := logic.NewLogic(u, serviceCache, utilities.NewCounter())
	s := service.NewService(l, serviceCache)
	clientCache := cache.NewMemory()
	c := client.NewClient(clientCache)
	components := []internal.Component{u, serviceCache, l, s, clientCache, c}
	ctx := context.TODO()
	for _, component := range components {
		err := component.Configure(configuration)
		if !assert.Nil(t, err) {
			assert.FailNow(t, "unable to configure")
		}
	}
	for _, component := range components {
		err := component.Open(ctx)
		if !assert.Nil(t, err) {
			assert.FailNow(t, "unable to open")
		}
	}
	t.Cleanup(func() {
		for i := len(components) - 1; i >= 0; i-- {
			_ = components[i].Close(ctx)
		}
		server.Close()
	})
	return &clientTest{
		mock:   m,
		cache:  clientCache,
		client: c,
	}
}

func TestClient(t *testing.T) {
	c := newClientTest(t, nil)
	ctx := internal.CtxWithCorrelationId(context.TODO(), internal.GenerateId())

	employeesRead, err := c.client.EmployeesList(ctx)
	assert.Nil(t, err)
	assert.Equal(t, employees, employeesRead)

	employeesRead, err = c.client.EmployeesSearch(ctx, "WIN")
	assert.Nil(t, err)
	assert.Equal(t, []*data.Employee{employees[2]}, employeesRead)

	employee, err := c.client.EmployeeRead(ctx, "1")
	assert.Nil(t, err)
	assert.Equal(t, employees[0], employee)

	_, err = c.client.EmployeeRead(ctx, "42")
	assert.True(t, errors.Is(err, data.ErrNotFound))

	salary, err := c.client.EmployeesHighestSalary(ctx)
	assert.Nil(t, err)
	assert.Equal(t, 320800, salary)

	names, err := c.client.EmployeesTopEarners(ctx)
	assert.Nil(t, err)
	assert.Equal(t, []string{"Tiger Nixon", "Garrett Winters", "Lloyd Graham"}, names)

	employee, err = c.client.EmployeeCreate(ctx, &data.EmployeeInput{
		Name:   "Jill Jenkins",
		Salary: 139082,
		Age:    48,
		Title:  "Financial Advisor",
		Email:  "jill@company.com",
	})
	assert.Nil(t, err)
	if assert.NotNil(t, employee) {
		assert.NotEmpty(t, employee.Id)
		assert.Equal(t, "jill@company.com", employee.Email)

		message, err := c.client.EmployeeDelete(ctx, employee.Id)
		assert.Nil(t, err)
		assert.Contains(t, message, "Jill Jenkins")
	}

	_, err = c.client.EmployeeCreate(ctx, &data.EmployeeInput{Name: "Nobody", Age: 12})
	assert.True(t, errors.Is(err, data.ErrInvalidInput))

	_, err = c.client.EmployeeDelete(ctx, "42")
	assert.True(t, errors.Is(err, data.ErrNotFound))

	c.mock.Fail(http.StatusBadGateway)
	err = c.client.CacheClear(ctx)
	assert.Nil(t, err)
	_, err = c.client.EmployeesList(ctx)
	assert.True(t, errors.Is(err, data.ErrUpstreamUnavailable))
}

func TestClientAdmin(t *testing.T) {
	c := newClientTest(t, nil)
	ctx := context.TODO()

	for i := 0; i < 2; i++ {
		_, err := c.client.EmployeesList(ctx)
		assert.Nil(t, err)
	}
	counters, err := c.client.CacheCountersRead(ctx)
	assert.Nil(t, err)
	assert.Equal(t, 1, counters.CounterHits["employees"])
	assert.Equal(t, 1, counters.CounterMisses["employees"])
	err = c.client.CacheCountersClear(ctx)
	assert.Nil(t, err)
	counters, err = c.client.CacheCountersRead(ctx)
	assert.Nil(t, err)
	assert.Empty(t, counters.CounterHits)

	timers, err := c.client.TimersRead(ctx)
	assert.Nil(t, err)
	assert.Contains(t, timers.Totals, "employees_list")
	err = c.client.TimersClear(ctx)
	assert.Nil(t, err)
	timers, err = c.client.TimersRead(ctx)
	assert.Nil(t, err)
	assert.Empty(t, timers.Totals)
}

func TestClientCache(t *testing.T) {
	c := newClientTest(t, map[string]string{
		"CLIENT_CACHE_DISABLED": "false",
		"LOGIC_CACHE_ENABLED":   "false",
	})
	ctx := context.TODO()

	_, err := c.client.EmployeesList(ctx)
	assert.Nil(t, err)
	_, err = c.client.EmployeesList(ctx)
	assert.Nil(t, err)
	assert.Equal(t, 1, c.mock.Requests())

	//the list populates single reads too
	employee, err := c.client.EmployeeRead(ctx, "2")
	assert.Nil(t, err)
	assert.Equal(t, employees[1], employee)
	assert.Equal(t, 1, c.mock.Requests())

	//deleting through the client evicts its cache
	_, err = c.client.EmployeeDelete(ctx, "2")
	assert.Nil(t, err)
	_, err = c.cache.EmployeeRead(ctx, "2")
	assert.ErrorIs(t, err, cache.ErrEmployeeNotCached)
	employeesRead, err := c.client.EmployeesList(ctx)
	assert.Nil(t, err)
	assert.Len(t, employeesRead, len(employees)-1)
}
