package data

import "encoding/json"

// Employee is the record shape shared by the upstream and the facade's own
// callers
type Employee struct {
	Id     string `json:"id"`
	Name   string `json:"employee_name"`
	Salary int    `json:"employee_salary"`
	Age    int    `json:"employee_age"`
	Title  string `json:"employee_title"`
	Email  string `json:"employee_email,omitempty"`
}

func (e *Employee) MarshalBinary() ([]byte, error) {
	return json.Marshal(e)
}

func (e *Employee) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, e)
}

// EmployeeIds is the ordered list of ids making up a cached collection
type EmployeeIds struct {
	Ids []string `json:"ids"`
}

func (e *EmployeeIds) MarshalBinary() ([]byte, error) {
	return json.Marshal(e)
}

func (e *EmployeeIds) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, e)
}

func CopyEmployee(e *Employee) *Employee {
	employee := &Employee{}
	*employee = *e
	return employee
}
