package logic_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/antonio-alexander/go-employee-facade/internal"
	"github.com/antonio-alexander/go-employee-facade/internal/cache"
	"github.com/antonio-alexander/go-employee-facade/internal/data"
	"github.com/antonio-alexander/go-employee-facade/internal/logic"
	"github.com/antonio-alexander/go-employee-facade/internal/mock"
	"github.com/antonio-alexander/go-employee-facade/internal/upstream"
	"github.com/antonio-alexander/go-employee-facade/internal/utilities"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

var employees = []*data.Employee{
	{Id: "1", Name: "Lloyd Graham", Salary: 116571, Age: 58, Title: "Engineer", Email: "lloyd@company.com"},
	{Id: "2", Name: "Tiger Nixon", Salary: 320800, Age: 61, Title: "System Architect"},
	{Id: "3", Name: "Garrett Winters", Salary: 170750, Age: 63, Title: "Accountant"},
	{Id: "4", Name: "Ashton Cox", Salary: 86000, Age: 66, Title: "Technical Author"},
	{Id: "5", Name: "Cedric Kelly", Salary: 170750, Age: 22, Title: "Developer"},
}

type logicTest struct {
	mock     *mock.Mock
	server   *httptest.Server
	upstream interface {
		internal.Configurer
		internal.Opener
		upstream.Upstream
	}
	cache interface {
		internal.Configurer
		internal.Opener
		internal.Clearer
		cache.Cache
	}
	counter utilities.Counter
	logic   interface {
		internal.Configurer
		internal.Opener
		logic.Logic
	}
}

func newLogicTest(t *testing.T, envs map[string]string, employees ...*data.Employee) *logicTest {
	m := mock.New("", employees...)
	server := httptest.NewServer(m)
	uri, err := url.Parse(server.URL)
	if !assert.Nil(t, err) {
		assert.FailNow(t, "unable to parse mock url")
	}
	configuration := map[string]string{
		"UPSTREAM_ADDRESS": uri.Hostname(),
		"UPSTREAM_PORT":    uri.Port(),
	}
	for key, value := range envs {
		configuration[key] = value
	}
	u := upstream.NewUpstream()
	c := cache.NewMemory()
	counter := utilities.NewCounter()
	l := logic.NewLogic(u, c, counter)
	ctx := context.TODO()
	for _, configurer := range []internal.Configurer{u, c, l} {
		err := configurer.Configure(configuration)
		if !assert.Nil(t, err) {
			assert.FailNow(t, "unable to configure")
		}
	}
	for _, opener := range []internal.Opener{u, c, l} {
		err := opener.Open(ctx)
		if !assert.Nil(t, err) {
			assert.FailNow(t, "unable to open")
		}
	}
	t.Cleanup(func() {
		_ = l.Close(ctx)
		_ = c.Close(ctx)
		_ = u.Close(ctx)
		server.Close()
	})
	return &logicTest{
		mock:     m,
		server:   server,
		upstream: u,
		cache:    c,
		counter:  counter,
		logic:    l,
	}
}

func TestEmployeesList(t *testing.T) {
	l := newLogicTest(t, nil, employees...)

	employeesRead, err := l.logic.EmployeesList(context.TODO())
	assert.Nil(t, err)
	assert.Equal(t, employees, employeesRead)

	//without the cache, every read goes upstream
	_, err = l.logic.EmployeesList(context.TODO())
	assert.Nil(t, err)
	assert.Equal(t, 2, l.mock.Requests())

	l.mock.Fail(http.StatusInternalServerError)
	_, err = l.logic.EmployeesList(context.TODO())
	assert.True(t, errors.Is(err, data.ErrUpstreamUnavailable))
}

func TestEmployeesSearch(t *testing.T) {
	l := newLogicTest(t, nil, employees...)

	all, err := l.logic.EmployeesList(context.TODO())
	assert.Nil(t, err)
	matches, err := l.logic.EmployeesSearch(context.TODO(), "")
	assert.Nil(t, err)
	assert.Equal(t, all, matches)

	matches, err = l.logic.EmployeesSearch(context.TODO(), "GRAHAM")
	assert.Nil(t, err)
	assert.Equal(t, []*data.Employee{employees[0]}, matches)

	matches, err = l.logic.EmployeesSearch(context.TODO(), "er")
	assert.Nil(t, err)
	//Tiger Nixon, Garrett Winters
	assert.Len(t, matches, 2)

	matches, err = l.logic.EmployeesSearch(context.TODO(), "nobody")
	assert.Nil(t, err)
	assert.Empty(t, matches)
}

func TestEmployeeRead(t *testing.T) {
	l := newLogicTest(t, nil, employees...)

	employee, err := l.logic.EmployeeRead(context.TODO(), "3")
	assert.Nil(t, err)
	if assert.NotNil(t, employee) {
		assert.Equal(t, "3", employee.Id)
	}

	employee, err = l.logic.EmployeeRead(context.TODO(), "42")
	assert.Nil(t, employee)
	assert.True(t, errors.Is(err, data.ErrNotFound))
}

func TestEmployeesHighestSalary(t *testing.T) {
	l := newLogicTest(t, nil, employees...)

	salary, err := l.logic.EmployeesHighestSalary(context.TODO())
	assert.Nil(t, err)
	assert.Equal(t, 320800, salary)

	l = newLogicTest(t, nil)
	_, err = l.logic.EmployeesHighestSalary(context.TODO())
	assert.True(t, errors.Is(err, data.ErrEmptyCollection))
}

func TestEmployeesTopEarners(t *testing.T) {
	l := newLogicTest(t, nil, employees...)

	//fewer than ten returns everyone, ties keep their original order
	names, err := l.logic.EmployeesTopEarners(context.TODO(), 0)
	assert.Nil(t, err)
	assert.Equal(t, []string{"Tiger Nixon", "Garrett Winters", "Cedric Kelly",
		"Lloyd Graham", "Ashton Cox"}, names)

	names, err = l.logic.EmployeesTopEarners(context.TODO(), 2)
	assert.Nil(t, err)
	assert.Equal(t, []string{"Tiger Nixon", "Garrett Winters"}, names)

	var many []*data.Employee
	for i := 0; i < 15; i++ {
		many = append(many, &data.Employee{
			Id:     internal.GenerateId(),
			Name:   internal.GenerateId(),
			Salary: 1000 + i,
			Age:    30,
			Title:  "Engineer",
		})
	}
	l = newLogicTest(t, nil, many...)
	names, err = l.logic.EmployeesTopEarners(context.TODO(), 0)
	assert.Nil(t, err)
	assert.Len(t, names, data.DefaultTopEarners)
	assert.Equal(t, many[14].Name, names[0])

	l = newLogicTest(t, map[string]string{"LOGIC_TOP_EARNERS": "3"}, many...)
	names, err = l.logic.EmployeesTopEarners(context.TODO(), 0)
	assert.Nil(t, err)
	assert.Len(t, names, 3)
}

func TestEmployeeCreate(t *testing.T) {
	l := newLogicTest(t, nil)

	employee, err := l.logic.EmployeeCreate(context.TODO(), &data.EmployeeInput{
		Name:   "Jill Jenkins",
		Salary: 139082,
		Age:    48,
		Title:  "Financial Advisor",
	})
	assert.Nil(t, err)
	if assert.NotNil(t, employee) {
		assert.NotEmpty(t, employee.Id)
		assert.Equal(t, "Jill Jenkins", employee.Name)
	}

	//invalid input never reaches the upstream
	requests := l.mock.Requests()
	_, err = l.logic.EmployeeCreate(context.TODO(), &data.EmployeeInput{Name: "Jill Jenkins"})
	assert.True(t, errors.Is(err, data.ErrInvalidInput))
	assert.Equal(t, requests, l.mock.Requests())
}

func TestEmployeeDelete(t *testing.T) {
	l := newLogicTest(t, nil, employees...)

	name, err := l.logic.EmployeeDelete(context.TODO(), "4")
	assert.Nil(t, err)
	assert.Equal(t, "Ashton Cox", name)
	assert.Len(t, l.mock.Employees(), len(employees)-1)

	name, err = l.logic.EmployeeDelete(context.TODO(), "4")
	assert.Empty(t, name)
	assert.True(t, errors.Is(err, data.ErrNotFound))
}

func TestMutateDisabled(t *testing.T) {
	l := newLogicTest(t, map[string]string{"MUTATE_DISABLED": "true"}, employees...)

	_, err := l.logic.EmployeeCreate(context.TODO(), &data.EmployeeInput{
		Name:   "Jill Jenkins",
		Salary: 139082,
		Age:    48,
		Title:  "Financial Advisor",
	})
	assert.True(t, errors.Is(err, data.ErrMutationDisabled))
	_, err = l.logic.EmployeeDelete(context.TODO(), "1")
	assert.True(t, errors.Is(err, data.ErrMutationDisabled))
	assert.Len(t, l.mock.Employees(), len(employees))
}

func TestLogicCache(t *testing.T) {
	l := newLogicTest(t, map[string]string{"LOGIC_CACHE_ENABLED": "true"}, employees...)
	ctx := context.TODO()

	//first read misses, second hits and doesn't go upstream
	_, err := l.logic.EmployeesList(ctx)
	assert.Nil(t, err)
	employeesRead, err := l.logic.EmployeesList(ctx)
	assert.Nil(t, err)
	assert.Equal(t, employees, employeesRead)
	assert.Equal(t, 1, l.mock.Requests())
	hits, misses := l.counter.Read("employees")
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	//derived views are served from the snapshot
	_, err = l.logic.EmployeesTopEarners(ctx, 0)
	assert.Nil(t, err)
	assert.Equal(t, 1, l.mock.Requests())

	//members of the snapshot are readable individually
	_, err = l.logic.EmployeeRead(ctx, "2")
	assert.Nil(t, err)
	hits, misses = l.counter.Read("employee_2")
	assert.Equal(t, 1, hits)
	assert.Equal(t, 0, misses)
	assert.Equal(t, 1, l.mock.Requests())

	//single reads are written through
	err = l.cache.Clear(ctx)
	assert.Nil(t, err)
	_, err = l.logic.EmployeeRead(ctx, "3")
	assert.Nil(t, err)
	_, err = l.logic.EmployeeRead(ctx, "3")
	assert.Nil(t, err)
	hits, misses = l.counter.Read("employee_3")
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	//delete evicts the record and the snapshot
	_, err = l.logic.EmployeeDelete(ctx, "2")
	assert.Nil(t, err)
	_, err = l.cache.EmployeeRead(ctx, "2")
	assert.ErrorIs(t, err, cache.ErrEmployeeNotCached)
	employeesRead, err = l.logic.EmployeesList(ctx)
	assert.Nil(t, err)
	assert.Len(t, employeesRead, len(employees)-1)

	//create invalidates the snapshot
	_, err = l.logic.EmployeeCreate(ctx, &data.EmployeeInput{
		Name:   "Jill Jenkins",
		Salary: 139082,
		Age:    48,
		Title:  "Financial Advisor",
	})
	assert.Nil(t, err)
	employeesRead, err = l.logic.EmployeesList(ctx)
	assert.Nil(t, err)
	assert.Len(t, employeesRead, len(employees))
}

type fakeUpstream struct {
	sync.Mutex
	employee *data.Employee
	result   *data.DeleteResult
	err      error
}

func (f *fakeUpstream) EmployeesRead(ctx context.Context) ([]*data.Employee, error) {
	return []*data.Employee{f.employee}, nil
}

func (f *fakeUpstream) EmployeeRead(ctx context.Context, id string) (*data.Employee, error) {
	return f.employee, nil
}

func (f *fakeUpstream) EmployeeCreate(ctx context.Context, input *data.EmployeeInput) (*data.Employee, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeUpstream) EmployeeDelete(ctx context.Context, name string) (*data.DeleteResult, error) {
	f.Lock()
	defer f.Unlock()

	return f.result, f.err
}

func TestEmployeeDeleteOutcome(t *testing.T) {
	yes, no := true, false
	cases := map[string]struct {
		employee *data.Employee
		missing  bool
		result   *data.DeleteResult
		err      error
		kind     error
		message  string
	}{
		"deleted": {
			result: &data.DeleteResult{StatusCode: http.StatusOK, Deleted: &yes,
				Status: "Successfully processed request."},
		},
		"not_deleted_with_status": {
			result: &data.DeleteResult{StatusCode: http.StatusOK, Deleted: &no,
				Status: "Successfully processed request."},
			kind:    data.ErrDeleteFailed,
			message: "Successfully processed request.",
		},
		"flag_missing_with_status": {
			result:  &data.DeleteResult{StatusCode: http.StatusOK, Status: "Too many requests"},
			kind:    data.ErrDeleteFailed,
			message: "Too many requests",
		},
		"flag_true_on_error": {
			result:  &data.DeleteResult{StatusCode: http.StatusInternalServerError, Deleted: &yes},
			kind:    data.ErrDeleteFailed,
			message: "500",
		},
		"non_2xx_without_status": {
			result:  &data.DeleteResult{StatusCode: http.StatusBadGateway},
			kind:    data.ErrDeleteFailed,
			message: "502",
		},
		"nothing": {
			result:  &data.DeleteResult{StatusCode: http.StatusOK},
			kind:    data.ErrDeleteFailed,
			message: "unexpected response",
		},
		"no_name": {
			employee: &data.Employee{Id: "1"},
			kind:     data.ErrNotFound,
		},
		"no_employee": {
			missing: true,
			kind:    data.ErrNotFound,
		},
		"upstream_unavailable": {
			err:  errors.Wrap(data.ErrUpstreamUnavailable, "connection refused"),
			kind: data.ErrUpstreamUnavailable,
		},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			employee := c.employee
			if employee == nil && !c.missing {
				employee = &data.Employee{Id: "1", Name: "Lloyd Graham"}
			}
			l := logic.NewLogic(&fakeUpstream{
				employee: employee,
				result:   c.result,
				err:      c.err,
			})
			err := l.Configure(map[string]string{})
			assert.Nil(t, err)
			err = l.Open(context.TODO())
			assert.Nil(t, err)

			name, err := l.EmployeeDelete(context.TODO(), "1")
			if c.kind == nil {
				assert.Nil(t, err)
				assert.Equal(t, "Lloyd Graham", name)
				return
			}
			assert.Empty(t, name)
			assert.True(t, errors.Is(err, c.kind), "%v", err)
			if c.message != "" {
				assert.Contains(t, err.Error(), c.message)
			}
		})
	}
}

func TestLogicConcurrentReads(t *testing.T) {
	const nGoRoutines int = 5

	var wg sync.WaitGroup

	l := newLogicTest(t, map[string]string{"LOGIC_CACHE_ENABLED": "true"}, employees...)
	start := make(chan struct{})
	for i := 0; i < nGoRoutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			<-start
			for j := 0; j < 10; j++ {
				_, err := l.logic.EmployeesTopEarners(context.TODO(), 0)
				assert.Nil(t, err)
				_, err = l.logic.EmployeeRead(context.TODO(), "1")
				assert.Nil(t, err)
			}
		}()
	}
	close(start)
	wg.Wait()
	hits, misses := l.counter.Read("employees")
	assert.Equal(t, nGoRoutines*10, hits+misses)
}
