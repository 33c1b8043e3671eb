package core

const (
	EmployeeStatusActive     = "active"
	EmployeeStatusTerminated = "terminated"
)

// Employee is the slice of the employee record workflow decisions need.
type Employee struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	ManagerID string `json:"managerId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Status    string `json:"status"`
}

func (e Employee) DisplayName() string {
	switch {
	case e.FirstName != "" && e.LastName != "":
		return e.FirstName + " " + e.LastName
	case e.FirstName != "":
		return e.FirstName
	}
	return e.Email
}
