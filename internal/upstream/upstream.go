package upstream

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
	"strings"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-facade/internal"
	"github.com/antonio-alexander/go-employee-facade/internal/data"
	"github.com/antonio-alexander/go-employee-facade/internal/utilities"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
)

const defaultPath string = "/api/v1/employee"

// Upstream speaks the remote employee service's contract
type Upstream interface {
	EmployeesRead(ctx context.Context) ([]*data.Employee, error)
	EmployeeRead(ctx context.Context, id string) (*data.Employee, error)
	EmployeeCreate(ctx context.Context, input *data.EmployeeInput) (*data.Employee, error)
	EmployeeDelete(ctx context.Context, name string) (*data.DeleteResult, error)
}

type upstream struct {
	sync.RWMutex
	config struct {
		protocol      string
		address       string
		port          string
		path          string
		timeout       time.Duration
		maxRetries    int
		retryInterval time.Duration
		sslCaFile     string
		sslCrtFile    string
		sslKeyFile    string
	}
	address string
	utilities.Logger
	*http.Client
}

type response struct {
	statusCode int
	retryAfter int
	envelope   data.UpstreamResponse
}

// NewUpstream creates the upstream client, an *http.Client parameter is used
// as-is instead of building one from configuration
func NewUpstream(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	Upstream
} {
	u := &upstream{Logger: utilities.NewNopLogger()}
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case *http.Client:
			u.Client = p
		case utilities.Logger:
			u.Logger = p
		}
	}
	return u
}

func (u *upstream) Configure(envs map[string]string) error {
	u.Lock()
	defer u.Unlock()

	u.config.protocol = "http"
	u.config.path = defaultPath
	u.config.retryInterval = time.Second
	if protocol, ok := envs["UPSTREAM_PROTOCOL"]; ok && protocol != "" {
		u.config.protocol = protocol
	}
	if address, ok := envs["UPSTREAM_ADDRESS"]; ok {
		u.config.address = address
	}
	if port, ok := envs["UPSTREAM_PORT"]; ok {
		u.config.port = port
	}
	if path, ok := envs["UPSTREAM_PATH"]; ok {
		u.config.path = path
	}
	if timeout, ok := envs["UPSTREAM_TIMEOUT"]; ok && timeout != "" {
		i, err := strconv.ParseInt(timeout, 10, 64)
		if err != nil {
			return errors.Wrap(err, "UPSTREAM_TIMEOUT")
		}
		u.config.timeout = time.Duration(i) * time.Second
	}
	if maxRetries, ok := envs["UPSTREAM_MAX_RETRIES"]; ok && maxRetries != "" {
		i, err := strconv.Atoi(maxRetries)
		if err != nil {
			return errors.Wrap(err, "UPSTREAM_MAX_RETRIES")
		}
		u.config.maxRetries = i
	}
	if retryInterval, ok := envs["UPSTREAM_RETRY_INTERVAL"]; ok && retryInterval != "" {
		i, err := strconv.ParseInt(retryInterval, 10, 64)
		if err != nil {
			return errors.Wrap(err, "UPSTREAM_RETRY_INTERVAL")
		}
		if i >= 0 {
			u.config.retryInterval = time.Duration(i) * time.Second
		}
	}
	if sslCaFile, ok := envs["SSL_CA_FILE"]; ok {
		u.config.sslCaFile = sslCaFile
	}
	if sslKeyFile, ok := envs["SSL_KEY_FILE"]; ok {
		u.config.sslKeyFile = sslKeyFile
	}
	if sslCrtFile, ok := envs["SSL_CRT_FILE"]; ok {
		u.config.sslCrtFile = sslCrtFile
	}
	return nil
}

func (u *upstream) Open(ctx context.Context) error {
	u.Lock()
	defer u.Unlock()

	switch u.config.protocol {
	default:
		return errors.Errorf("unsupported protocol: %s", u.config.protocol)
	case "http", "https":
		host := u.config.address
		if u.config.port != "" {
			host = net.JoinHostPort(u.config.address, u.config.port)
		}
		u.address = fmt.Sprintf("%s://%s%s", u.config.protocol, host,
			strings.TrimSuffix(u.config.path, "/"))
	}
	if u.Client == nil {
		transport, err := internal.GetTransport(u.config.sslCaFile,
			u.config.sslCrtFile, u.config.sslKeyFile)
		if err != nil {
			return err
		}
		u.Client = &http.Client{
			Transport: transport,
			Timeout:   u.config.timeout,
		}
	}
	u.Debug(ctx, "upstream: %s (max retries: %d)", u.address, u.config.maxRetries)
	return nil
}

func (u *upstream) Close(ctx context.Context) error {
	u.Lock()
	defer u.Unlock()

	if u.Client != nil {
		u.Client.CloseIdleConnections()
	}
	return nil
}

func (u *upstream) do(ctx context.Context, uri, method string, body []byte) (*response, error) {
	var reader io.Reader

	if body != nil {
		reader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, uri, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Accept", "application/json")
	if correlationId := internal.CorrelationIdFromCtx(ctx); correlationId != "" {
		request.Header.Set(data.HeaderCorrelationId, correlationId)
	}
	resp, err := u.Do(request)
	if err != nil {
		return nil, errors.Wrap(data.ErrUpstreamUnavailable, err.Error())
	}
	defer resp.Body.Close()
	byts, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(data.ErrUpstreamUnavailable, err.Error())
	}
	r := &response{statusCode: resp.StatusCode}
	if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds > 0 {
		r.retryAfter = seconds
	}
	if len(byts) > 0 {
		//KIM: an undecodable body is only a problem if we need the payload,
		// the caller decides
		_ = json.Unmarshal(byts, &r.envelope)
	}
	return r, nil
}

// doRequest executes the request; only rate limited (429) attempts are
// retried and only when UPSTREAM_MAX_RETRIES is greater than zero
func (u *upstream) doRequest(ctx context.Context, uri, method string, body []byte) (*response, error) {
	u.RLock()
	maxRetries, retryInterval := u.config.maxRetries, u.config.retryInterval
	u.RUnlock()

	operation := func() (*response, error) {
		r, err := u.do(ctx, uri, method, body)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if r.statusCode != http.StatusTooManyRequests {
			return r, nil
		}
		err = errors.Wrap(data.ErrUpstreamUnavailable, "rate limited")
		if r.retryAfter > 0 {
			return nil, fmt.Errorf("%w (%w)", err, backoff.RetryAfter(r.retryAfter))
		}
		return nil, err
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	exponentialBackOff := backoff.NewExponentialBackOff()
	exponentialBackOff.InitialInterval = retryInterval
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(exponentialBackOff),
		backoff.WithMaxTries(uint(maxRetries)+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			u.Debug(ctx, "retrying %s %s in %v: %s", method, uri, next, err)
		}))
}

func unavailable(r *response) error {
	message := r.envelope.Error
	if message == "" {
		message = r.envelope.Status
	}
	if message == "" {
		message = http.StatusText(r.statusCode)
	}
	return errors.Wrapf(data.ErrUpstreamUnavailable, "status code %d: %s", r.statusCode, message)
}

func decode(r *response, v any) error {
	if len(r.envelope.Data) == 0 || string(r.envelope.Data) == "null" {
		return errors.Wrap(data.ErrUnexpected, "response carried no data")
	}
	if err := json.Unmarshal(r.envelope.Data, v); err != nil {
		return errors.Wrap(data.ErrUnexpected, err.Error())
	}
	return nil
}

func (u *upstream) EmployeesRead(ctx context.Context) ([]*data.Employee, error) {
	var employees []*data.Employee

	r, err := u.doRequest(ctx, u.address, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	if r.statusCode != http.StatusOK {
		return nil, unavailable(r)
	}
	if string(r.envelope.Data) == "null" {
		return []*data.Employee{}, nil
	}
	if err := decode(r, &employees); err != nil {
		return nil, err
	}
	return employees, nil
}

func (u *upstream) EmployeeRead(ctx context.Context, id string) (*data.Employee, error) {
	uri := u.address + "/" + url.PathEscape(id)
	r, err := u.doRequest(ctx, uri, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	switch r.statusCode {
	default:
		return nil, unavailable(r)
	case http.StatusNotFound:
		return nil, errors.Wrapf(data.ErrNotFound, "employee with id %q", id)
	case http.StatusOK:
	}
	//KIM: the upstream answers a missing record with 200 and no data
	if len(r.envelope.Data) == 0 || string(r.envelope.Data) == "null" {
		return nil, errors.Wrapf(data.ErrNotFound, "employee with id %q", id)
	}
	employee := &data.Employee{}
	if err := decode(r, employee); err != nil {
		return nil, err
	}
	return employee, nil
}

func (u *upstream) EmployeeCreate(ctx context.Context, input *data.EmployeeInput) (*data.Employee, error) {
	byts, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	r, err := u.doRequest(ctx, u.address, http.MethodPost, byts)
	if err != nil {
		return nil, err
	}
	switch r.statusCode {
	default:
		return nil, unavailable(r)
	case http.StatusBadRequest:
		message := r.envelope.Error
		if message == "" {
			message = r.envelope.Status
		}
		return nil, errors.Wrapf(data.ErrInvalidInput, "rejected by employee service: %s", message)
	case http.StatusOK, http.StatusCreated:
	}
	employee := &data.Employee{}
	if err := decode(r, employee); err != nil {
		return nil, err
	}
	return employee, nil
}

func (u *upstream) EmployeeDelete(ctx context.Context, name string) (*data.DeleteResult, error) {
	byts, err := json.Marshal(&data.UpstreamDelete{Name: name})
	if err != nil {
		return nil, err
	}
	r, err := u.doRequest(ctx, u.address, http.MethodDelete, byts)
	if err != nil {
		return nil, err
	}
	result := &data.DeleteResult{
		StatusCode: r.statusCode,
		Status:     r.envelope.Status,
	}
	var deleted bool
	if len(r.envelope.Data) > 0 {
		if err := json.Unmarshal(r.envelope.Data, &deleted); err == nil {
			result.Deleted = &deleted
		}
	}
	return result, nil
}
