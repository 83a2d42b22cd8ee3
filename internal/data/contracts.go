package data

const (
	RouteEmployees               string = "/employees"
	RouteEmployeesSearch         string = RouteEmployees + "/search"
	RouteEmployeesHighestSalary  string = RouteEmployees + "/highestSalary"
	RouteEmployeesTopEarnerNames string = RouteEmployees + "/topTenHighestEarningEmployeeNames"
	RouteEmployeesId             string = RouteEmployees + "/{" + PathId + "}"
	RouteEmployeesIdf            string = RouteEmployees + "/%s"
	RouteCache                   string = "/cache"
	RouteCacheCounters           string = RouteCache + "/counters"
	RouteTimers                  string = "/timers"
)

const PathId string = "id"

const ParameterSearchString string = "searchString"

const HeaderCorrelationId string = "Correlation-Id"

// DefaultTopEarners is the number of names returned by the top earners view
const DefaultTopEarners int = 10

// ErrorResponse is the body written for any failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageEmployeeDeletedf is the body of a successful delete, formatted with
// the id and the name
const MessageEmployeeDeletedf string = "Employee with ID %s (name: %s) deleted successfully."
