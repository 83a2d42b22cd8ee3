package logic

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/antonio-alexander/go-employee-facade/internal"
	"github.com/antonio-alexander/go-employee-facade/internal/cache"
	"github.com/antonio-alexander/go-employee-facade/internal/data"
	"github.com/antonio-alexander/go-employee-facade/internal/upstream"
	"github.com/antonio-alexander/go-employee-facade/internal/utilities"

	"github.com/pkg/errors"
)

const keyEmployees string = "employees"

type Logic interface {
	EmployeesList(ctx context.Context) ([]*data.Employee, error)
	EmployeesSearch(ctx context.Context, fragment string) ([]*data.Employee, error)
	EmployeeRead(ctx context.Context, id string) (*data.Employee, error)
	EmployeesHighestSalary(ctx context.Context) (int, error)
	EmployeesTopEarners(ctx context.Context, n int) ([]string, error)
	EmployeeCreate(ctx context.Context, input *data.EmployeeInput) (*data.Employee, error)
	EmployeeDelete(ctx context.Context, id string) (string, error)
}

type logic struct {
	sync.RWMutex
	utilities.Logger
	upstream upstream.Upstream
	cache    cache.Cache
	counter  utilities.Counter
	config   struct {
		cacheEnabled   bool
		mutateDisabled bool
		topEarners     int
	}
}

func NewLogic(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	Logic
} {
	l := &logic{Logger: utilities.NewNopLogger()}
	for _, parameter := range parameters {
		switch v := parameter.(type) {
		case upstream.Upstream:
			l.upstream = v
		case cache.Cache:
			l.cache = v
		case utilities.Counter:
			l.counter = v
		case utilities.Logger:
			l.Logger = v
		}
	}
	return l
}

func employeeKey(id string) string {
	return "employee_" + id
}

func (l *logic) hit(key string) {
	if l.counter != nil {
		l.counter.IncrementHit(key)
	}
}

func (l *logic) miss(key string) {
	if l.counter != nil {
		l.counter.IncrementMiss(key)
	}
}

func (l *logic) cacheEnabled() bool {
	l.RLock()
	defer l.RUnlock()

	return l.config.cacheEnabled && l.cache != nil
}

func (l *logic) mutateDisabled() bool {
	l.RLock()
	defer l.RUnlock()

	return l.config.mutateDisabled
}

func (l *logic) Configure(envs map[string]string) error {
	l.Lock()
	defer l.Unlock()

	l.config.topEarners = data.DefaultTopEarners
	if cacheEnabled, ok := envs["LOGIC_CACHE_ENABLED"]; ok {
		l.config.cacheEnabled, _ = strconv.ParseBool(cacheEnabled)
	}
	if mutateDisabled, ok := envs["MUTATE_DISABLED"]; ok {
		l.config.mutateDisabled, _ = strconv.ParseBool(mutateDisabled)
	}
	if topEarners, ok := envs["LOGIC_TOP_EARNERS"]; ok {
		i, err := strconv.Atoi(topEarners)
		if err != nil {
			return errors.Wrapf(err, "invalid top earners (%s)", topEarners)
		}
		if i > 0 {
			l.config.topEarners = i
		}
	}
	return nil
}

func (l *logic) Open(ctx context.Context) error {
	l.RLock()
	defer l.RUnlock()

	if l.upstream == nil {
		return errors.New("upstream not provided")
	}
	if l.config.cacheEnabled {
		if l.cache == nil {
			return errors.New("cache enabled, but not provided")
		}
		l.Info(ctx, "cache enabled")
	}
	if l.config.mutateDisabled {
		l.Info(ctx, "mutation disabled")
	}
	return nil
}

func (l *logic) Close(ctx context.Context) error {
	return nil
}

func (l *logic) EmployeesList(ctx context.Context) ([]*data.Employee, error) {
	cacheEnabled := l.cacheEnabled()
	if cacheEnabled {
		employees, err := l.cache.EmployeesRead(ctx)
		if err == nil {
			l.hit(keyEmployees)
			return employees, nil
		}
		l.miss(keyEmployees)
		l.Trace(ctx, "error while reading employees from cache: %s", err)
	}
	employees, err := l.upstream.EmployeesRead(ctx)
	if err != nil {
		l.Error(ctx, "error while reading employees: %s", err)
		return nil, err
	}
	if cacheEnabled {
		if err := l.cache.EmployeesWrite(ctx, employees...); err != nil {
			l.Error(ctx, "error while writing employees to cache: %s", err)
		}
	}
	return employees, nil
}

func (l *logic) EmployeesSearch(ctx context.Context, fragment string) ([]*data.Employee, error) {
	employees, err := l.EmployeesList(ctx)
	if err != nil {
		return nil, err
	}
	fragment = strings.ToLower(fragment)
	matches := make([]*data.Employee, 0, len(employees))
	for _, employee := range employees {
		if strings.Contains(strings.ToLower(employee.Name), fragment) {
			matches = append(matches, employee)
		}
	}
	return matches, nil
}

func (l *logic) EmployeeRead(ctx context.Context, id string) (*data.Employee, error) {
	cacheEnabled := l.cacheEnabled()
	if cacheEnabled {
		employee, err := l.cache.EmployeeRead(ctx, id)
		if err == nil {
			l.hit(employeeKey(id))
			return employee, nil
		}
		l.miss(employeeKey(id))
		l.Trace(ctx, "error while reading employee (%s) from cache: %s", id, err)
	}
	employee, err := l.upstream.EmployeeRead(ctx, id)
	if err != nil {
		l.Debug(ctx, "error while reading employee (%s): %s", id, err)
		return nil, err
	}
	if cacheEnabled {
		if err := l.cache.EmployeeWrite(ctx, employee); err != nil {
			l.Error(ctx, "error while writing employee (%s) to cache: %s", id, err)
		}
	}
	return employee, nil
}

func (l *logic) EmployeesHighestSalary(ctx context.Context) (int, error) {
	employees, err := l.EmployeesList(ctx)
	if err != nil {
		return 0, err
	}
	if len(employees) == 0 {
		return 0, data.ErrEmptyCollection
	}
	highest := employees[0].Salary
	for _, employee := range employees[1:] {
		if employee.Salary > highest {
			highest = employee.Salary
		}
	}
	return highest, nil
}

func (l *logic) EmployeesTopEarners(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		l.RLock()
		n = l.config.topEarners
		l.RUnlock()
		if n <= 0 {
			n = data.DefaultTopEarners
		}
	}
	employees, err := l.EmployeesList(ctx)
	if err != nil {
		return nil, err
	}
	//KIM: sort a copy, the list may be shared with the cache
	sorted := make([]*data.Employee, len(employees))
	copy(sorted, employees)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Salary > sorted[j].Salary
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	names := make([]string, 0, len(sorted))
	for _, employee := range sorted {
		names = append(names, employee.Name)
	}
	return names, nil
}

func (l *logic) EmployeeCreate(ctx context.Context, input *data.EmployeeInput) (*data.Employee, error) {
	if l.mutateDisabled() {
		return nil, data.ErrMutationDisabled
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	employee, err := l.upstream.EmployeeCreate(ctx, input)
	if err != nil {
		l.Error(ctx, "error while creating employee: %s", err)
		return nil, err
	}
	if l.cacheEnabled() {
		if err := l.cache.EmployeesDelete(ctx); err != nil {
			l.Error(ctx, "error while invalidating employees in cache: %s", err)
		}
	}
	return employee, nil
}

func (l *logic) EmployeeDelete(ctx context.Context, id string) (string, error) {
	if l.mutateDisabled() {
		return "", data.ErrMutationDisabled
	}
	employee, err := l.EmployeeRead(ctx, id)
	if err != nil {
		return "", err
	}
	if employee == nil || employee.Name == "" {
		return "", errors.Wrapf(data.ErrNotFound, "employee (%s) has no name", id)
	}
	result, err := l.upstream.EmployeeDelete(ctx, employee.Name)
	if err != nil {
		l.Error(ctx, "error while deleting employee (%s): %s", id, err)
		return "", err
	}
	if l.cacheEnabled() {
		//KIM: the outcome of a failed delete is unknown, so evict either way
		if err := l.cache.EmployeesDelete(ctx, id); err != nil {
			l.Error(ctx, "error while evicting employee (%s) from cache: %s", id, err)
		}
	}
	if err := deleteOutcome(result); err != nil {
		l.Error(ctx, "error while deleting employee (%s): %s", id, err)
		return "", err
	}
	return employee.Name, nil
}

// deleteOutcome interprets an upstream delete: a true flag on a 2xx wins,
// then any status text, then a non-2xx code
func deleteOutcome(result *data.DeleteResult) error {
	success := result.StatusCode >= http.StatusOK &&
		result.StatusCode < http.StatusMultipleChoices
	switch {
	case success && result.Deleted != nil && *result.Deleted:
		return nil
	case result.Status != "":
		return errors.Wrap(data.ErrDeleteFailed, result.Status)
	case !success:
		return errors.Wrap(data.ErrDeleteFailed, fmt.Sprintf("status code %d", result.StatusCode))
	default:
		return errors.Wrap(data.ErrDeleteFailed, "unexpected response")
	}
}
