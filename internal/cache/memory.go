package cache

import (
	"context"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-facade/internal"
	"github.com/antonio-alexander/go-employee-facade/internal/data"
	"github.com/antonio-alexander/go-employee-facade/internal/utilities"
)

type memoryEntry struct {
	employee *data.Employee
	written  time.Time
}

type memoryCache struct {
	sync.RWMutex
	sync.WaitGroup
	employees map[string]*memoryEntry //map[id]employee
	snapshot  struct {
		ids     []string
		written time.Time
		valid   bool
	}
	config struct {
		ttl           time.Duration
		pruneInterval time.Duration
	}
	ctx       context.Context
	ctxCancel context.CancelFunc
	utilities.Logger
}

func NewMemory(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	Cache
} {
	c := &memoryCache{
		employees: make(map[string]*memoryEntry),
		Logger:    utilities.NewNopLogger(),
	}
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case utilities.Logger:
			c.Logger = p
		}
	}
	return c
}

func (c *memoryCache) expired(written time.Time) bool {
	return c.config.ttl > 0 && time.Since(written) > c.config.ttl
}

func (c *memoryCache) launchPrune() {
	started := make(chan struct{})
	c.Add(1)
	go func() {
		defer c.Done()

		pruneFx := func() {
			c.Lock()
			defer c.Unlock()

			for id, entry := range c.employees {
				if c.expired(entry.written) {
					delete(c.employees, id)
				}
			}
			if c.snapshot.valid && c.expired(c.snapshot.written) {
				c.snapshot.valid, c.snapshot.ids = false, nil
			}
		}
		tPrune := time.NewTicker(c.config.pruneInterval)
		defer tPrune.Stop()
		close(started)
		for {
			select {
			case <-c.ctx.Done():
				return
			case <-tPrune.C:
				pruneFx()
			}
		}
	}()
	<-started
}

func (c *memoryCache) Configure(envs map[string]string) error {
	c.config.ttl = secondsFromEnv(envs, "CACHE_TTL")
	c.config.pruneInterval = secondsFromEnv(envs, "CACHE_PRUNE_INTERVAL")
	if c.config.pruneInterval <= 0 {
		c.config.pruneInterval = 10 * time.Second
	}
	return nil
}

func (c *memoryCache) Open(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	c.employees = make(map[string]*memoryEntry)
	c.snapshot.valid, c.snapshot.ids = false, nil
	if c.config.ttl > 0 {
		c.ctx, c.ctxCancel = context.WithCancel(context.Background())
		c.launchPrune()
	}
	return nil
}

func (c *memoryCache) Close(ctx context.Context) error {
	c.Lock()
	cancel := c.ctxCancel
	c.ctxCancel = nil
	c.Unlock()

	if cancel != nil {
		cancel()
		c.Wait()
	}
	return nil
}

func (c *memoryCache) Clear(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	c.employees = make(map[string]*memoryEntry)
	c.snapshot.valid, c.snapshot.ids = false, nil
	return nil
}

func (c *memoryCache) EmployeeRead(ctx context.Context, id string) (*data.Employee, error) {
	c.RLock()
	defer c.RUnlock()

	entry, ok := c.employees[id]
	if !ok || c.expired(entry.written) {
		return nil, ErrEmployeeNotCached
	}
	return data.CopyEmployee(entry.employee), nil
}

func (c *memoryCache) EmployeeWrite(ctx context.Context, employee *data.Employee) error {
	c.Lock()
	defer c.Unlock()

	c.employees[employee.Id] = &memoryEntry{
		employee: data.CopyEmployee(employee),
		written:  time.Now(),
	}
	return nil
}

func (c *memoryCache) EmployeesRead(ctx context.Context) ([]*data.Employee, error) {
	c.RLock()
	defer c.RUnlock()

	if !c.snapshot.valid || c.expired(c.snapshot.written) {
		return nil, ErrEmployeesNotCached
	}
	employees := make([]*data.Employee, 0, len(c.snapshot.ids))
	for _, id := range c.snapshot.ids {
		entry, ok := c.employees[id]
		if !ok {
			//KIM: an evicted member makes the whole snapshot unusable
			return nil, ErrEmployeesNotCached
		}
		employees = append(employees, data.CopyEmployee(entry.employee))
	}
	return employees, nil
}

func (c *memoryCache) EmployeesWrite(ctx context.Context, employees ...*data.Employee) error {
	c.Lock()
	defer c.Unlock()

	tNow := time.Now()
	for _, employee := range employees {
		c.employees[employee.Id] = &memoryEntry{
			employee: data.CopyEmployee(employee),
			written:  tNow,
		}
	}
	c.snapshot.ids = employeeIds(employees)
	c.snapshot.written, c.snapshot.valid = tNow, true
	return nil
}

func (c *memoryCache) EmployeesDelete(ctx context.Context, ids ...string) error {
	c.Lock()
	defer c.Unlock()

	for _, id := range ids {
		delete(c.employees, id)
	}
	c.snapshot.valid, c.snapshot.ids = false, nil
	return nil
}
