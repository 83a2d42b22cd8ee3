package swagger

import "github.com/antonio-alexander/go-employee-facade/internal/data"

// swagger:route GET /employees Employee ListEmployees
// Lists every employee held by the upstream.
//
// responses:
//   200: EmployeesResponseOk
//   503: ErrorResponse

// swagger:route GET /employees/search Employee SearchEmployees
// Lists employees whose name contains the search string, ignoring case.
//
// responses:
//   200: EmployeesResponseOk
//   503: ErrorResponse

// swagger:route GET /employees/highestSalary Employee HighestSalary
// Returns the highest salary of all employees.
//
// responses:
//   200: HighestSalaryResponseOk
//   500: ErrorResponse
//   503: ErrorResponse

// swagger:route GET /employees/topTenHighestEarningEmployeeNames Employee TopEarners
// Returns the names of the ten highest earners, highest first.
//
// responses:
//   200: TopEarnersResponseOk
//   503: ErrorResponse

// swagger:route GET /employees/{id} Employee ReadEmployee
// Reads an employee using its id.
//
// responses:
//   200: EmployeeResponseOk
//   404: ErrorResponse
//   503: ErrorResponse

// swagger:route POST /employees Employee CreateEmployee
// Creates an employee.
//
// responses:
//   201: EmployeeResponseOk
//   400: ErrorResponse
//   503: ErrorResponse

// swagger:route DELETE /employees/{id} Employee DeleteEmployee
// Deletes an employee using its id.
//
// responses:
//   200: EmployeeDeleteResponseOk
//   404: ErrorResponse
//   500: ErrorResponse

// swagger:response EmployeesResponseOk
type EmployeesResponseOk struct {
	// in:body
	Employees []data.Employee
}

// swagger:response EmployeeResponseOk
type EmployeeResponseOk struct {
	// in:body
	Employee data.Employee
}

// swagger:response HighestSalaryResponseOk
type HighestSalaryResponseOk struct {
	// in:body
	Salary int
}

// swagger:response TopEarnersResponseOk
type TopEarnersResponseOk struct {
	// in:body
	Names []string
}

// swagger:response EmployeeDeleteResponseOk
type EmployeeDeleteResponseOk struct {
	// in:body
	Message string
}

// swagger:response ErrorResponse
type ErrorResponse struct {
	// in:body
	Error data.ErrorResponse
}

// swagger:parameters SearchEmployees
type SearchEmployeesParams struct {
	// in:query
	SearchString string `json:"searchString"`

	// in:header
	CorrelationId string `json:"Correlation-Id"`
}

// swagger:parameters ReadEmployee DeleteEmployee
type EmployeeIdParams struct {
	// in:path
	Id string `json:"id"`

	// in:header
	CorrelationId string `json:"Correlation-Id"`
}

// swagger:parameters CreateEmployee
type CreateEmployeeParams struct {
	// in:body
	Employee data.EmployeeInput

	// in:header
	CorrelationId string `json:"Correlation-Id"`
}
