package cache

import (
	"context"

	"github.com/antonio-alexander/go-employee-facade/internal"
	"github.com/antonio-alexander/go-employee-facade/internal/data"
	"github.com/antonio-alexander/go-employee-facade/internal/utilities"

	"github.com/antonio-alexander/go-stash"
)

const keyEmployees string = "employees"

type stashCache struct {
	utilities.Logger
	stash interface {
		stash.Configurer
		stash.Parameterizer
		stash.Initializer
		stash.Shutdowner
	}
	stash.Stasher
}

// NewStash wraps a go-stash implementation (memory or redis), it must be
// provided as a parameter
func NewStash(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	Cache
} {
	c := &stashCache{Logger: utilities.NewNopLogger()}
	for _, p := range parameters {
		switch p := p.(type) {
		case utilities.Logger:
			c.Logger = p
		case interface {
			stash.Configurer
			stash.Parameterizer
			stash.Initializer
			stash.Shutdowner
			stash.Stasher
		}:
			c.stash = p
			c.Stasher = p
		}
	}
	if c.stash != nil {
		c.stash.SetParameters(parameters...)
	}
	return c
}

func employeeKey(id string) string {
	return "employee_" + id
}

func (c *stashCache) Configure(envs map[string]string) error {
	if c.stash != nil {
		if err := c.stash.Configure(envs); err != nil {
			return err
		}
	}
	return nil
}

func (c *stashCache) Open(ctx context.Context) error {
	if c.stash == nil {
		return ErrStashNotProvided
	}
	return c.stash.Initialize()
}

func (c *stashCache) Close(ctx context.Context) error {
	if c.stash != nil {
		return c.stash.Shutdown()
	}
	return nil
}

func (c *stashCache) Clear(ctx context.Context) error {
	if c.Stasher == nil {
		return ErrStashNotProvided
	}
	return c.Stasher.Clear()
}

func (c *stashCache) EmployeeRead(ctx context.Context, id string) (*data.Employee, error) {
	employee := &data.Employee{}
	if err := c.Stasher.Read(employeeKey(id), employee); err != nil {
		c.Trace(ctx, "cache miss for employee (%s): %s", id, err)
		return nil, ErrEmployeeNotCached
	}
	return employee, nil
}

func (c *stashCache) EmployeeWrite(ctx context.Context, employee *data.Employee) error {
	if _, err := c.Stasher.Write(employeeKey(employee.Id), employee); err != nil {
		c.Error(ctx, "error while writing employee (%s): %s", employee.Id, err)
		return err
	}
	return nil
}

func (c *stashCache) EmployeesRead(ctx context.Context) ([]*data.Employee, error) {
	employeeIds := &data.EmployeeIds{}
	if err := c.Stasher.Read(keyEmployees, employeeIds); err != nil {
		c.Trace(ctx, "cache miss for employees: %s", err)
		return nil, ErrEmployeesNotCached
	}
	employees := make([]*data.Employee, 0, len(employeeIds.Ids))
	for _, id := range employeeIds.Ids {
		employee := &data.Employee{}
		if err := c.Stasher.Read(employeeKey(id), employee); err != nil {
			//KIM: we don't want to return half a collection, so a missing
			// member invalidates the snapshot
			if err := c.Stasher.Delete(keyEmployees); err != nil {
				c.Error(ctx, "error while deleting employees snapshot: %s", err)
			}
			return nil, ErrEmployeesNotCached
		}
		employees = append(employees, employee)
	}
	return employees, nil
}

func (c *stashCache) EmployeesWrite(ctx context.Context, employees ...*data.Employee) error {
	for _, employee := range employees {
		if _, err := c.Stasher.Write(employeeKey(employee.Id), employee); err != nil {
			c.Error(ctx, "error while writing employee (%s): %s", employee.Id, err)
			return err
		}
	}
	if _, err := c.Stasher.Write(keyEmployees, &data.EmployeeIds{
		Ids: employeeIds(employees),
	}); err != nil {
		c.Error(ctx, "error while writing employees snapshot: %s", err)
		return err
	}
	return nil
}

func (c *stashCache) EmployeesDelete(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if err := c.Stasher.Delete(employeeKey(id)); err != nil {
			c.Trace(ctx, "unable to evict employee (%s): %s", id, err)
		}
	}
	if err := c.Stasher.Delete(keyEmployees); err != nil {
		c.Trace(ctx, "unable to evict employees snapshot: %s", err)
	}
	return nil
}
