package service

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-facade/internal"
	"github.com/antonio-alexander/go-employee-facade/internal/cache"
	"github.com/antonio-alexander/go-employee-facade/internal/data"
	"github.com/antonio-alexander/go-employee-facade/internal/logic"
	"github.com/antonio-alexander/go-employee-facade/internal/utilities"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

var (
	Version   string
	GitCommit string
	GitBranch string
)

func init() {
	if Version = data.Version; Version == "" {
		Version = "<no_version_provided>"
	}
	if GitCommit = data.GitCommit; GitCommit == "" {
		GitCommit = "<no_git_commit>"
	}
	if GitBranch = data.GitBranch; GitBranch == "" {
		GitBranch = "<no_git_branch>"
	}
}

type service struct {
	sync.RWMutex
	sync.WaitGroup
	config struct {
		address          string
		port             string
		shutdownTimeout  time.Duration
		allowedOrigins   []string
		allowedMethods   []string
		allowedHeaders   []string
		allowCredentials bool
		corsDisabled     bool
		corsDebug        bool
		timersEnabled    bool
	}
	ctx    context.Context
	cancel context.CancelFunc
	*mux.Router
	*http.Server
	cache internal.Clearer
	utilities.Logger
	utilities.Counter
	utilities.Timers
	logic.Logic
}

func NewService(parameters ...any) interface {
	internal.Configurer
	internal.Opener
} {
	router := mux.NewRouter()
	s := &service{
		Router: router,
		Server: &http.Server{
			Handler: router,
		},
		Logger:  utilities.NewNopLogger(),
		Counter: utilities.NewCounter(),
		Timers:  utilities.NewTimers(),
	}
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case interface {
			cache.Cache
			internal.Clearer
		}:
			s.cache = p
		case logic.Logic:
			s.Logic = p
		case utilities.Counter:
			s.Counter = p
		case utilities.Timers:
			s.Timers = p
		case utilities.Logger:
			s.Logger = p
		}
	}
	return s
}

func (s *service) launchServer() error {
	started := make(chan struct{})
	chErr := make(chan error, 1)
	s.Add(1)
	go func() {
		defer s.WaitGroup.Done()
		defer close(chErr)

		if !s.config.corsDisabled {
			s.Server.Handler = cors.New(cors.Options{
				AllowedOrigins:   s.config.allowedOrigins,
				AllowCredentials: s.config.allowCredentials,
				AllowedMethods:   s.config.allowedMethods,
				AllowedHeaders:   s.config.allowedHeaders,
				Debug:            s.config.corsDebug,
			}).Handler(s.Router)
		}
		close(started)
		if err := s.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			chErr <- err
		}
	}()
	<-started
	select {
	case err := <-chErr:
		//KIM: here we're accounting for a situation where the server closes unexpectedly
		// but quickly (within a second of starting); this allows us to respond to errors such as
		// the port being already used
		return err
	case <-time.After(time.Second):
		address := net.JoinHostPort(s.config.address, s.config.port)
		s.Info(s.ctx, "started server: %s", address)
		return nil
	}
}

// startTimer starts a timer for group if timers are enabled, the returned
// function stops it
func (s *service) startTimer(ctx context.Context, group string) func() {
	if !s.config.timersEnabled || s.Timers == nil {
		return func() {}
	}
	timerIndex := s.Timers.Start(group)
	return func() {
		elapsedTime := s.Timers.Stop(group, timerIndex)
		s.Trace(ctx, "%s took %v", group, time.Duration(elapsedTime)*time.Nanosecond)
	}
}

func (s *service) middlewareCorrelationId(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		correlationId := getCorrelationId(request)
		writer.Header().Set(data.HeaderCorrelationId, correlationId)
		ctx := internal.CtxWithCorrelationId(request.Context(), correlationId)
		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

func (s *service) endpointDefault() func(http.ResponseWriter, *http.Request) {
	return func(writer http.ResponseWriter, request *http.Request) {
		fmt.Fprintf(writer,
			"go-employee-facade\n"+
				"Version: \"%s\"\n"+
				"Git Commit: \"%s\"\n"+
				"Git Branch: \"%s\"\n",
			Version, GitCommit, GitBranch)
	}
}

func (s *service) endpointEmployeesList(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	defer s.startTimer(ctx, "employees_list")()
	employees, err := s.EmployeesList(ctx)
	if err != nil {
		s.handleError(ctx, writer, err)
		return
	}
	handleResponse(writer, http.StatusOK, employees)
	s.Trace(ctx, "executed employees_list: %d", len(employees))
}

func (s *service) endpointEmployeesSearch(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	defer s.startTimer(ctx, "employees_search")()
	searchString := request.URL.Query().Get(data.ParameterSearchString)
	employees, err := s.EmployeesSearch(ctx, searchString)
	if err != nil {
		s.handleError(ctx, writer, err)
		return
	}
	handleResponse(writer, http.StatusOK, employees)
	s.Trace(ctx, "executed employees_search (%s): %d", searchString, len(employees))
}

func (s *service) endpointEmployeesHighestSalary(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	defer s.startTimer(ctx, "employees_highest_salary")()
	salary, err := s.EmployeesHighestSalary(ctx)
	if err != nil {
		s.handleError(ctx, writer, err)
		return
	}
	handleResponse(writer, http.StatusOK, salary)
	s.Trace(ctx, "executed employees_highest_salary")
}

func (s *service) endpointEmployeesTopEarners(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	defer s.startTimer(ctx, "employees_top_earners")()
	names, err := s.EmployeesTopEarners(ctx, 0)
	if err != nil {
		s.handleError(ctx, writer, err)
		return
	}
	handleResponse(writer, http.StatusOK, names)
	s.Trace(ctx, "executed employees_top_earners")
}

func (s *service) endpointEmployeeRead(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	defer s.startTimer(ctx, "employee_read")()
	id := idFromPath(mux.Vars(request))
	employee, err := s.EmployeeRead(ctx, id)
	if err != nil {
		s.handleError(ctx, writer, err)
		return
	}
	handleResponse(writer, http.StatusOK, employee)
	s.Trace(ctx, "executed employee_read: %s", id)
}

func (s *service) endpointEmployeeCreate(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	defer s.startTimer(ctx, "employee_create")()
	fields, err := fieldsFromBody(request)
	if err != nil {
		s.handleError(ctx, writer, err)
		return
	}
	input, err := data.NewEmployeeInput(fields)
	if err != nil {
		s.handleError(ctx, writer, err)
		return
	}
	employee, err := s.EmployeeCreate(ctx, input)
	if err != nil {
		s.handleError(ctx, writer, err)
		return
	}
	handleResponse(writer, http.StatusCreated, employee)
	s.Trace(ctx, "executed employee_create: %s", employee.Id)
}

func (s *service) endpointEmployeeDelete(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	defer s.startTimer(ctx, "employee_delete")()
	id := idFromPath(mux.Vars(request))
	name, err := s.EmployeeDelete(ctx, id)
	if err != nil {
		s.handleError(ctx, writer, err)
		return
	}
	handleResponse(writer, http.StatusOK,
		fmt.Sprintf(data.MessageEmployeeDeletedf, id, name))
	s.Trace(ctx, "executed employee_delete: %s", id)
}

func (s *service) endpointCacheClear(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	if s.cache != nil {
		if err := s.cache.Clear(ctx); err != nil {
			s.handleError(ctx, writer, err)
			return
		}
		s.Trace(ctx, "executed cache_clear")
	}
	handleResponse(writer, http.StatusNoContent, nil)
}

func (s *service) endpointCacheCountersRead(writer http.ResponseWriter, _ *http.Request) {
	handleResponse(writer, http.StatusOK, s.Counter.ReadAll())
}

func (s *service) endpointCacheCountersClear(writer http.ResponseWriter, request *http.Request) {
	s.Counter.Reset()
	handleResponse(writer, http.StatusNoContent, nil)
	s.Trace(request.Context(), "executed cache_counters_clear")
}

func (s *service) endpointTimersRead(writer http.ResponseWriter, _ *http.Request) {
	handleResponse(writer, http.StatusOK, s.Timers.ReadAll())
}

func (s *service) endpointTimersClear(writer http.ResponseWriter, request *http.Request) {
	s.Timers.Clear()
	handleResponse(writer, http.StatusNoContent, nil)
	s.Trace(request.Context(), "executed timers_clear")
}

func (s *service) buildRoutes() {
	s.Router.Use(s.middlewareCorrelationId)
	s.Router.HandleFunc("/", s.endpointDefault())
	//KIM: mux matches in the order routes are registered, the fixed paths
	// must come before the {id} route or they'd be read as ids
	s.Router.HandleFunc(data.RouteEmployees, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			s.endpointEmployeesList(w, r)
		case http.MethodPost:
			s.endpointEmployeeCreate(w, r)
		}
	})
	s.Router.HandleFunc(data.RouteEmployeesSearch, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			s.endpointEmployeesSearch(w, r)
		}
	})
	s.Router.HandleFunc(data.RouteEmployeesHighestSalary, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			s.endpointEmployeesHighestSalary(w, r)
		}
	})
	s.Router.HandleFunc(data.RouteEmployeesTopEarnerNames, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			s.endpointEmployeesTopEarners(w, r)
		}
	})
	s.Router.HandleFunc(data.RouteEmployeesId, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			s.endpointEmployeeRead(w, r)
		case http.MethodDelete:
			s.endpointEmployeeDelete(w, r)
		}
	})
	s.Router.HandleFunc(data.RouteCacheCounters, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			s.endpointCacheCountersRead(w, r)
		case http.MethodDelete:
			s.endpointCacheCountersClear(w, r)
		}
	})
	s.Router.HandleFunc(data.RouteCache, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodDelete:
			s.endpointCacheClear(w, r)
		}
	})
	s.Router.HandleFunc(data.RouteTimers, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			s.endpointTimersRead(w, r)
		case http.MethodDelete:
			s.endpointTimersClear(w, r)
		}
	})
}

func (s *service) handleError(ctx context.Context, writer http.ResponseWriter, err error) {
	statusCode := errorToStatusCode(err)
	if statusCode >= http.StatusInternalServerError {
		s.Error(ctx, "error while handling request: %s", err)
	} else {
		s.Debug(ctx, "error while handling request: %s", err)
	}
	handleResponse(writer, statusCode, &data.ErrorResponse{Error: err.Error()})
}

func (s *service) Configure(envs map[string]string) error {
	s.Lock()
	defer s.Unlock()

	s.config.port = "8080"
	s.config.shutdownTimeout = 10 * time.Second
	if address, ok := envs["SERVICE_ADDRESS"]; ok {
		s.config.address = address
	}
	if port, ok := envs["SERVICE_PORT"]; ok && port != "" {
		s.config.port = port
	}
	if shutdownTimeoutString, ok := envs["SERVICE_SHUTDOWN_TIMEOUT"]; ok {
		if shutdownTimeoutInt, err := strconv.Atoi(shutdownTimeoutString); err == nil {
			if timeout := time.Duration(shutdownTimeoutInt) * time.Second; timeout > 0 {
				s.config.shutdownTimeout = timeout
			}
		}
	}
	if allowCredentialsString, ok := envs["SERVICE_CORS_ALLOW_CREDENTIALS"]; ok {
		if allowCredentials, err := strconv.ParseBool(allowCredentialsString); err == nil {
			s.config.allowCredentials = allowCredentials
		}
	}
	if allowedOrigins, ok := envs["SERVICE_CORS_ALLOWED_ORIGINS"]; ok && allowedOrigins != "" {
		s.config.allowedOrigins = strings.Split(allowedOrigins, ",")
	}
	if allowedMethods, ok := envs["SERVICE_CORS_ALLOWED_METHODS"]; ok && allowedMethods != "" {
		s.config.allowedMethods = strings.Split(allowedMethods, ",")
	}
	if allowedHeaders, ok := envs["SERVICE_CORS_ALLOWED_HEADERS"]; ok && allowedHeaders != "" {
		s.config.allowedHeaders = strings.Split(allowedHeaders, ",")
	}
	if corsDisabledString, ok := envs["SERVICE_CORS_DISABLED"]; ok {
		if corsDisabled, err := strconv.ParseBool(corsDisabledString); err == nil {
			s.config.corsDisabled = corsDisabled
		}
	}
	if corsDebug, ok := envs["SERVICE_CORS_DEBUG"]; ok {
		if corsDebug, err := strconv.ParseBool(corsDebug); err == nil {
			s.config.corsDebug = corsDebug
		}
	}
	if timersEnabled := envs["SERVICE_TIMERS_ENABLED"]; timersEnabled != "" {
		s.config.timersEnabled, _ = strconv.ParseBool(timersEnabled)
	}
	return nil
}

func (s *service) Open(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	if s.Logic == nil {
		return errLogicNotProvided
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.Server.Addr = net.JoinHostPort(s.config.address, s.config.port)
	s.buildRoutes()
	if err := s.launchServer(); err != nil {
		s.cancel()
		return err
	}
	return nil
}

func (s *service) Close(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	if s.cancel == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.shutdownTimeout)
	defer cancel()
	if err := s.Server.Shutdown(ctx); err != nil {
		s.Error(ctx, "error while shutting down the server: %s", err)
	}
	s.cancel()
	s.cancel = nil
	s.Wait()
	return nil
}
