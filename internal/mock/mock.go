package mock

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/antonio-alexander/go-employee-facade/internal"
	"github.com/antonio-alexander/go-employee-facade/internal/data"

	"github.com/gorilla/mux"
)

const (
	DefaultPath string = "/api/v1/employee"

	statusSuccess string = "Successfully processed request."
	statusFailed  string = "Failed to process request."
)

// Mock is an in-memory stand in for the upstream employee service, it serves
// the same wrapped {data, status} contract
type Mock struct {
	sync.RWMutex
	employees   []*data.Employee
	failure     int
	rateLimited int
	retryAfter  int
	requests    int
	keepDeleted bool
	*mux.Router
}

func New(path string, employees ...*data.Employee) *Mock {
	if path == "" {
		path = DefaultPath
	}
	path = strings.TrimSuffix(path, "/")
	m := &Mock{Router: mux.NewRouter()}
	for _, employee := range employees {
		m.employees = append(m.employees, data.CopyEmployee(employee))
	}
	m.Router.Use(m.middleware)
	m.Router.HandleFunc(path, m.endpointEmployees)
	m.Router.HandleFunc(path+"/", m.endpointEmployees)
	m.Router.HandleFunc(path+"/{id}", m.endpointEmployee)
	return m
}

// Fail forces every request to respond with statusCode, zero restores normal
// behavior
func (m *Mock) Fail(statusCode int) {
	m.Lock()
	defer m.Unlock()

	m.failure = statusCode
}

// KeepDeleted makes deletes answer 200 with false data and leave the record
// in place, like the upstream does when it declines a delete
func (m *Mock) KeepDeleted(keep bool) {
	m.Lock()
	defer m.Unlock()

	m.keepDeleted = keep
}

// RateLimit responds 429 to the next n requests, with a Retry-After header when
// retryAfter is positive
func (m *Mock) RateLimit(n, retryAfter int) {
	m.Lock()
	defer m.Unlock()

	m.rateLimited, m.retryAfter = n, retryAfter
}

// Requests returns the number of requests served
func (m *Mock) Requests() int {
	m.RLock()
	defer m.RUnlock()

	return m.requests
}

func (m *Mock) Employees() []*data.Employee {
	m.RLock()
	defer m.RUnlock()

	employees := make([]*data.Employee, 0, len(m.employees))
	for _, employee := range m.employees {
		employees = append(employees, data.CopyEmployee(employee))
	}
	return employees
}

func (m *Mock) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		m.Lock()
		m.requests++
		failure, rateLimited, retryAfter := m.failure, m.rateLimited > 0, m.retryAfter
		if rateLimited {
			m.rateLimited--
		}
		m.Unlock()

		switch {
		case rateLimited:
			if retryAfter > 0 {
				writer.Header().Set("Retry-After", fmt.Sprint(retryAfter))
			}
			writeResponse(writer, http.StatusTooManyRequests, nil, statusFailed)
		case failure != 0:
			writeResponse(writer, failure, nil, statusFailed)
		default:
			next.ServeHTTP(writer, request)
		}
	})
}

func writeResponse(writer http.ResponseWriter, statusCode int, item any, status string) {
	var response data.UpstreamResponse

	if item != nil {
		bytes, err := json.Marshal(item)
		if err != nil {
			statusCode, status = http.StatusInternalServerError, err.Error()
		}
		response.Data = bytes
	}
	response.Status = status
	bytes, _ := json.Marshal(&response)
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(statusCode)
	_, _ = writer.Write(bytes)
}

func (m *Mock) endpointEmployees(writer http.ResponseWriter, request *http.Request) {
	switch request.Method {
	default:
		writer.WriteHeader(http.StatusMethodNotAllowed)
	case http.MethodGet:
		writeResponse(writer, http.StatusOK, m.Employees(), statusSuccess)
	case http.MethodPost:
		m.employeeCreate(writer, request)
	case http.MethodDelete:
		m.employeeDelete(writer, request)
	}
}

func (m *Mock) endpointEmployee(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := mux.Vars(request)["id"]
	m.RLock()
	defer m.RUnlock()
	for _, employee := range m.employees {
		if employee.Id == id {
			writeResponse(writer, http.StatusOK, employee, statusSuccess)
			return
		}
	}
	writeResponse(writer, http.StatusNotFound, nil, statusFailed)
}

func (m *Mock) employeeCreate(writer http.ResponseWriter, request *http.Request) {
	var input data.EmployeeInput

	bytes, err := io.ReadAll(request.Body)
	defer request.Body.Close()
	if err != nil {
		writeResponse(writer, http.StatusBadRequest, nil, err.Error())
		return
	}
	if err := json.Unmarshal(bytes, &input); err != nil {
		writeResponse(writer, http.StatusBadRequest, nil, err.Error())
		return
	}
	if err := input.Validate(); err != nil {
		writeResponse(writer, http.StatusBadRequest, nil, err.Error())
		return
	}
	employee := &data.Employee{
		Id:     internal.GenerateId(),
		Name:   input.Name,
		Salary: input.Salary,
		Age:    input.Age,
		Title:  input.Title,
		Email:  input.Email,
	}
	if employee.Email == "" {
		employee.Email = strings.ToLower(strings.ReplaceAll(input.Name, " ", ".")) + "@company.com"
	}
	m.Lock()
	m.employees = append(m.employees, employee)
	m.Unlock()
	writeResponse(writer, http.StatusOK, employee, statusSuccess)
}

func (m *Mock) employeeDelete(writer http.ResponseWriter, request *http.Request) {
	var input data.UpstreamDelete

	bytes, err := io.ReadAll(request.Body)
	defer request.Body.Close()
	if err != nil {
		writeResponse(writer, http.StatusBadRequest, nil, err.Error())
		return
	}
	if err := json.Unmarshal(bytes, &input); err != nil || input.Name == "" {
		writeResponse(writer, http.StatusBadRequest, nil, statusFailed)
		return
	}
	m.Lock()
	defer m.Unlock()
	if m.keepDeleted {
		writeResponse(writer, http.StatusOK, false, statusSuccess)
		return
	}
	for i, employee := range m.employees {
		if employee.Name == input.Name {
			m.employees = append(m.employees[:i], m.employees[i+1:]...)
			writeResponse(writer, http.StatusOK, true, statusSuccess)
			return
		}
	}
	writeResponse(writer, http.StatusOK, false, statusSuccess)
}
