package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/antonio-alexander/go-employee-facade/internal/data"
)

var (
	ErrEmployeeNotCached  = errors.New("employee not cached")
	ErrEmployeesNotCached = errors.New("employees not cached")
	ErrStashNotProvided   = errors.New("stash not provided")
)

// Cache holds the last collection fetched from the upstream and the
// individual records it's made of
type Cache interface {
	EmployeeRead(ctx context.Context, id string) (*data.Employee, error)
	EmployeeWrite(ctx context.Context, employee *data.Employee) error
	EmployeesRead(ctx context.Context) ([]*data.Employee, error)
	EmployeesWrite(ctx context.Context, employees ...*data.Employee) error
	EmployeesDelete(ctx context.Context, ids ...string) error
}

func employeeIds(employees []*data.Employee) []string {
	ids := make([]string, 0, len(employees))
	for _, employee := range employees {
		ids = append(ids, employee.Id)
	}
	return ids
}

func secondsFromEnv(envs map[string]string, key string) time.Duration {
	s, ok := envs[key]
	if !ok {
		return 0
	}
	i, _ := strconv.Atoi(s)
	return time.Second * time.Duration(i)
}
