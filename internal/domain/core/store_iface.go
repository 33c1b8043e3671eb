package core

import "context"

// Directory resolves accounts and employees. Both lookups return ErrNotFound
// when no record exists.
type Directory interface {
	EmployeeByUserID(ctx context.Context, tenantID, userID string) (Employee, error)
	Employee(ctx context.Context, tenantID, employeeID string) (Employee, error)
}
