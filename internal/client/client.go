package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-facade/internal"
	"github.com/antonio-alexander/go-employee-facade/internal/cache"
	"github.com/antonio-alexander/go-employee-facade/internal/data"
	"github.com/antonio-alexander/go-employee-facade/internal/utilities"

	"github.com/pkg/errors"
)

// Client speaks to the facade's http api
type Client interface {
	EmployeesList(ctx context.Context) ([]*data.Employee, error)
	EmployeesSearch(ctx context.Context, searchString string) ([]*data.Employee, error)
	EmployeeRead(ctx context.Context, id string) (*data.Employee, error)
	EmployeesHighestSalary(ctx context.Context) (int, error)
	EmployeesTopEarners(ctx context.Context) ([]string, error)
	EmployeeCreate(ctx context.Context, input *data.EmployeeInput) (*data.Employee, error)
	EmployeeDelete(ctx context.Context, id string) (string, error)
	CacheClear(ctx context.Context) error
	CacheCountersRead(ctx context.Context) (*data.CacheCounters, error)
	CacheCountersClear(ctx context.Context) error
	TimersRead(ctx context.Context) (*data.Timers, error)
	TimersClear(ctx context.Context) error
}

type client struct {
	sync.RWMutex
	config struct {
		protocol      string
		address       string
		port          string
		timeout       int64
		sslCaFile     string
		sslCrtFile    string
		sslKeyFile    string
		cacheDisabled bool
	}
	address string
	cache   cache.Cache
	utilities.Logger
	*http.Client
}

// NewClient creates a facade client, if a cache is provided single reads and
// the list are cached client side
func NewClient(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	Client
} {
	c := &client{
		Client: &http.Client{},
		Logger: utilities.NewNopLogger(),
	}
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case cache.Cache:
			c.cache = p
		case utilities.Logger:
			c.Logger = p
		}
	}
	return c
}

func (c *client) cacheEnabled() bool {
	return c.cache != nil && !c.config.cacheDisabled
}

// doRequest executes the request, errors returned by the service are mapped
// back onto the domain error kinds by status code
func (c *client) doRequest(ctx context.Context, uri, method string, item any) ([]byte, error) {
	var body io.Reader

	switch d := item.(type) {
	case []byte:
		body = bytes.NewBuffer(d)
	case url.Values:
		uri = uri + "?" + d.Encode()
	}
	request, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if correlationId := internal.CorrelationIdFromCtx(ctx); correlationId != "" {
		request.Header.Set(data.HeaderCorrelationId, correlationId)
	}
	response, err := c.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	bytes, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}
	switch response.StatusCode {
	default:
		var e data.ErrorResponse

		message := string(bytes)
		if err := json.Unmarshal(bytes, &e); err == nil && e.Error != "" {
			message = e.Error
		}
		switch response.StatusCode {
		default:
			return nil, errors.Errorf("status code: %d; %s", response.StatusCode, message)
		case http.StatusNotFound:
			return nil, errors.Wrap(data.ErrNotFound, message)
		case http.StatusBadRequest:
			return nil, errors.Wrap(data.ErrInvalidInput, message)
		case http.StatusServiceUnavailable:
			return nil, errors.Wrap(data.ErrUpstreamUnavailable, message)
		}
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return bytes, nil
	}
}

func (c *client) Configure(envs map[string]string) error {
	c.Lock()
	defer c.Unlock()

	c.config.protocol = "http"
	c.config.address = "localhost"
	c.config.port = "8080"
	if address, ok := envs["CLIENT_ADDRESS"]; ok && address != "" {
		c.config.address = address
	}
	if port, ok := envs["CLIENT_PORT"]; ok && port != "" {
		c.config.port = port
	}
	if protocol, ok := envs["CLIENT_PROTOCOL"]; ok && protocol != "" {
		c.config.protocol = protocol
	}
	if timeout, ok := envs["CLIENT_TIMEOUT"]; ok && timeout != "" {
		i, err := strconv.ParseInt(timeout, 10, 64)
		if err != nil {
			return err
		}
		c.config.timeout = i
	}
	if sslCaFile, ok := envs["SSL_CA_FILE"]; ok {
		c.config.sslCaFile = sslCaFile
	}
	if sslKeyFile, ok := envs["SSL_KEY_FILE"]; ok {
		c.config.sslKeyFile = sslKeyFile
	}
	if sslCrtFile, ok := envs["SSL_CRT_FILE"]; ok {
		c.config.sslCrtFile = sslCrtFile
	}
	if cacheDisabled, ok := envs["CLIENT_CACHE_DISABLED"]; ok {
		c.config.cacheDisabled, _ = strconv.ParseBool(cacheDisabled)
	}
	return nil
}

func (c *client) Open(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	switch c.config.protocol {
	default:
		return errors.Errorf("unsupported protocol: %s", c.config.protocol)
	case "http", "https":
		c.address = fmt.Sprintf("%s://%s", c.config.protocol,
			net.JoinHostPort(c.config.address, c.config.port))
	}
	if c.cacheEnabled() {
		c.Info(ctx, "client: cache enabled")
	}
	c.Client.Timeout = time.Duration(c.config.timeout) * time.Second
	transport, err := internal.GetTransport(c.config.sslCaFile, c.config.sslCrtFile,
		c.config.sslKeyFile)
	if err != nil {
		return err
	}
	c.Client.Transport = transport
	return nil
}

func (c *client) Close(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	c.Client.CloseIdleConnections()
	return nil
}

func (c *client) EmployeesList(ctx context.Context) ([]*data.Employee, error) {
	var employees []*data.Employee

	if c.cacheEnabled() {
		employees, err := c.cache.EmployeesRead(ctx)
		if err == nil {
			return employees, nil
		}
		c.Trace(ctx, "error while reading employees from cache: %s", err)
	}
	bytes, err := c.doRequest(ctx, c.address+data.RouteEmployees, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(bytes, &employees); err != nil {
		return nil, err
	}
	if c.cacheEnabled() {
		if err := c.cache.EmployeesWrite(ctx, employees...); err != nil {
			c.Error(ctx, "error while writing employees to cache: %s", err)
		}
	}
	return employees, nil
}

func (c *client) EmployeesSearch(ctx context.Context, searchString string) ([]*data.Employee, error) {
	var employees []*data.Employee

	params := url.Values{data.ParameterSearchString: []string{searchString}}
	uri := c.address + data.RouteEmployeesSearch
	bytes, err := c.doRequest(ctx, uri, http.MethodGet, params)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(bytes, &employees); err != nil {
		return nil, err
	}
	return employees, nil
}

func (c *client) EmployeeRead(ctx context.Context, id string) (*data.Employee, error) {
	if c.cacheEnabled() {
		employee, err := c.cache.EmployeeRead(ctx, id)
		if err == nil {
			return employee, nil
		}
		c.Trace(ctx, "error while reading employee (%s) from cache: %s", id, err)
	}
	uri := c.address + fmt.Sprintf(data.RouteEmployeesIdf, url.PathEscape(id))
	bytes, err := c.doRequest(ctx, uri, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	employee := &data.Employee{}
	if err := json.Unmarshal(bytes, employee); err != nil {
		return nil, err
	}
	if c.cacheEnabled() {
		if err := c.cache.EmployeeWrite(ctx, employee); err != nil {
			c.Error(ctx, "error while writing employee (%s) to cache: %s", id, err)
		}
	}
	return employee, nil
}

func (c *client) EmployeesHighestSalary(ctx context.Context) (int, error) {
	var salary int

	uri := c.address + data.RouteEmployeesHighestSalary
	bytes, err := c.doRequest(ctx, uri, http.MethodGet, nil)
	if err != nil {
		return 0, err
	}
	if err := json.Unmarshal(bytes, &salary); err != nil {
		return 0, err
	}
	return salary, nil
}

func (c *client) EmployeesTopEarners(ctx context.Context) ([]string, error) {
	var names []string

	uri := c.address + data.RouteEmployeesTopEarnerNames
	bytes, err := c.doRequest(ctx, uri, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(bytes, &names); err != nil {
		return nil, err
	}
	return names, nil
}

func (c *client) EmployeeCreate(ctx context.Context, input *data.EmployeeInput) (*data.Employee, error) {
	bytes, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	bytes, err = c.doRequest(ctx, c.address+data.RouteEmployees, http.MethodPost, bytes)
	if err != nil {
		return nil, err
	}
	employee := &data.Employee{}
	if err := json.Unmarshal(bytes, employee); err != nil {
		return nil, err
	}
	if c.cacheEnabled() {
		if err := c.cache.EmployeesDelete(ctx); err != nil {
			c.Error(ctx, "error while invalidating employees in cache: %s", err)
		}
	}
	return employee, nil
}

func (c *client) EmployeeDelete(ctx context.Context, id string) (string, error) {
	var message string

	uri := c.address + fmt.Sprintf(data.RouteEmployeesIdf, url.PathEscape(id))
	bytes, err := c.doRequest(ctx, uri, http.MethodDelete, nil)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(bytes, &message); err != nil {
		return "", err
	}
	if c.cacheEnabled() {
		if err := c.cache.EmployeesDelete(ctx, id); err != nil {
			c.Error(ctx, "error while deleting employee (%s) from cache: %s", id, err)
		}
	}
	return message, nil
}

func (c *client) CacheClear(ctx context.Context) error {
	if _, err := c.doRequest(ctx, c.address+data.RouteCache, http.MethodDelete, nil); err != nil {
		return err
	}
	return nil
}

func (c *client) CacheCountersRead(ctx context.Context) (*data.CacheCounters, error) {
	bytes, err := c.doRequest(ctx, c.address+data.RouteCacheCounters, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	response := &data.CacheCounters{}
	if err := json.Unmarshal(bytes, response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *client) CacheCountersClear(ctx context.Context) error {
	if _, err := c.doRequest(ctx, c.address+data.RouteCacheCounters, http.MethodDelete, nil); err != nil {
		return err
	}
	return nil
}

func (c *client) TimersRead(ctx context.Context) (*data.Timers, error) {
	bytes, err := c.doRequest(ctx, c.address+data.RouteTimers, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	response := &data.Timers{}
	if err := json.Unmarshal(bytes, response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *client) TimersClear(ctx context.Context) error {
	if _, err := c.doRequest(ctx, c.address+data.RouteTimers, http.MethodDelete, nil); err != nil {
		return err
	}
	return nil
}
