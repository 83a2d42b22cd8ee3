package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/antonio-alexander/go-employee-facade/internal"
	"github.com/antonio-alexander/go-employee-facade/internal/data"
	"github.com/antonio-alexander/go-employee-facade/internal/utilities"

	"github.com/redis/go-redis/v9"
)

const (
	hashKeyEmployees string = "employees"
	keyEmployeeIds   string = "employee_ids"
)

type redisCache struct {
	redisClient *redis.Client
	config      struct {
		address  string
		port     string
		password string
		database int
		timeout  time.Duration
		ttl      time.Duration
	}
	utilities.Logger
}

func NewRedis(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	Cache
} {
	c := &redisCache{Logger: utilities.NewNopLogger()}
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case utilities.Logger:
			c.Logger = p
		}
	}
	return c
}

func (c *redisCache) Configure(envs map[string]string) error {
	c.config.address = "localhost"
	c.config.port = "6379"
	c.config.timeout = 10 * time.Second
	if redisAddress, ok := envs["REDIS_ADDRESS"]; ok {
		c.config.address = redisAddress
	}
	if redisPort, ok := envs["REDIS_PORT"]; ok {
		c.config.port = redisPort
	}
	if redisPassword, ok := envs["REDIS_PASSWORD"]; ok {
		c.config.password = redisPassword
	}
	if redisDatabase, ok := envs["REDIS_DATABASE"]; ok {
		i, err := strconv.Atoi(redisDatabase)
		if err != nil {
			return fmt.Errorf("invalid redis database (%s): %w", redisDatabase, err)
		}
		c.config.database = i
	}
	if redisTimeout, ok := envs["REDIS_TIMEOUT"]; ok {
		i, _ := strconv.ParseInt(redisTimeout, 10, 64)
		if i > 0 {
			c.config.timeout = time.Duration(i) * time.Second
		}
	}
	c.config.ttl = secondsFromEnv(envs, "CACHE_TTL")
	return nil
}

func (c *redisCache) Open(ctx context.Context) error {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(c.config.address, c.config.port),
		Password: c.config.password,
		DB:       c.config.database,
	})
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return err
	}
	c.redisClient = redisClient
	return nil
}

func (c *redisCache) Close(ctx context.Context) error {
	if c.redisClient == nil {
		return nil
	}
	if err := c.redisClient.Close(); err != nil {
		c.Error(ctx, "error while shutting down redis client: %s", err)
	}
	c.redisClient = nil
	return nil
}

func (c *redisCache) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout)
	defer cancel()
	if _, err := c.redisClient.Del(ctx, hashKeyEmployees, keyEmployeeIds).Result(); err != nil {
		return err
	}
	return nil
}

func (c *redisCache) EmployeeRead(ctx context.Context, id string) (*data.Employee, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout)
	defer cancel()
	value, err := c.redisClient.HGet(ctx, hashKeyEmployees, id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmployeeNotCached
		}
		return nil, err
	}
	employee := &data.Employee{}
	if err := employee.UnmarshalBinary([]byte(value)); err != nil {
		return nil, err
	}
	return employee, nil
}

func (c *redisCache) EmployeeWrite(ctx context.Context, employee *data.Employee) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout)
	defer cancel()
	bytes, err := employee.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = c.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, hashKeyEmployees, employee.Id, string(bytes))
		if c.config.ttl > 0 {
			pipe.Expire(ctx, hashKeyEmployees, c.config.ttl)
		}
		return nil
	})
	return err
}

func (c *redisCache) EmployeesRead(ctx context.Context) ([]*data.Employee, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout)
	defer cancel()
	bytes, err := c.redisClient.Get(ctx, keyEmployeeIds).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmployeesNotCached
		}
		return nil, err
	}
	snapshot := &data.EmployeeIds{}
	if err := snapshot.UnmarshalBinary(bytes); err != nil {
		return nil, err
	}
	ids := snapshot.Ids
	if len(ids) == 0 {
		return []*data.Employee{}, nil
	}
	values, err := c.redisClient.HMGet(ctx, hashKeyEmployees, ids...).Result()
	if err != nil {
		return nil, err
	}
	employees := make([]*data.Employee, 0, len(ids))
	for i, value := range values {
		s, ok := value.(string)
		if !ok {
			//KIM: a member was evicted, the snapshot is no longer whole
			c.Trace(ctx, "cached employee (%s) missing from snapshot", ids[i])
			_, _ = c.redisClient.Del(ctx, keyEmployeeIds).Result()
			return nil, ErrEmployeesNotCached
		}
		employee := &data.Employee{}
		if err := employee.UnmarshalBinary([]byte(s)); err != nil {
			return nil, err
		}
		employees = append(employees, employee)
	}
	return employees, nil
}

func (c *redisCache) EmployeesWrite(ctx context.Context, employees ...*data.Employee) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout)
	defer cancel()
	values := make([]any, 0, 2*len(employees))
	for _, employee := range employees {
		bytes, err := employee.MarshalBinary()
		if err != nil {
			return err
		}
		values = append(values, employee.Id, string(bytes))
	}
	ids := &data.EmployeeIds{Ids: employeeIds(employees)}
	_, err := c.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(values) > 0 {
			pipe.HSet(ctx, hashKeyEmployees, values...)
			if c.config.ttl > 0 {
				pipe.Expire(ctx, hashKeyEmployees, c.config.ttl)
			}
		}
		pipe.Set(ctx, keyEmployeeIds, ids, c.config.ttl)
		return nil
	})
	return err
}

func (c *redisCache) EmployeesDelete(ctx context.Context, ids ...string) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout)
	defer cancel()
	_, err := c.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(ids) > 0 {
			pipe.HDel(ctx, hashKeyEmployees, ids...)
		}
		pipe.Del(ctx, keyEmployeeIds)
		return nil
	})
	return err
}
