package core

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/workflow"
)

// Cache is a byte store with expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedDirectory serves repeated identity lookups from a short-lived cache.
// Cache failures fall through to the underlying directory.
type CachedDirectory struct {
	next   Directory
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedDirectory(next Directory, cache Cache, ttl time.Duration, logger *zap.Logger) *CachedDirectory {
	return &CachedDirectory{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (d *CachedDirectory) EmployeeByUserID(ctx context.Context, tenantID, userID string) (Employee, error) {
	return d.cached(ctx, "identity:user:"+tenantID+":"+userID, func() (Employee, error) {
		return d.next.EmployeeByUserID(ctx, tenantID, userID)
	})
}

func (d *CachedDirectory) Employee(ctx context.Context, tenantID, employeeID string) (Employee, error) {
	return d.cached(ctx, "identity:employee:"+tenantID+":"+employeeID, func() (Employee, error) {
		return d.next.Employee(ctx, tenantID, employeeID)
	})
}

func (d *CachedDirectory) cached(ctx context.Context, key string, load func() (Employee, error)) (Employee, error) {
	raw, ok, err := d.cache.Get(ctx, key)
	if err != nil {
		d.logger.Warn("identity cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		var emp Employee
		if err := json.Unmarshal(raw, &emp); err == nil {
			return emp, nil
		}
	}

	emp, err := load()
	if err != nil {
		return Employee{}, err
	}
	payload, err := json.Marshal(emp)
	if err == nil {
		if err := d.cache.Set(ctx, key, payload, d.ttl); err != nil {
			d.logger.Warn("identity cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return emp, nil
}

// ResolveCaller links an authenticated account to its employee record.
// A missing record is not an error: the caller comes back unlinked and the
// authorizer denies it with its own reason.
func ResolveCaller(ctx context.Context, dir Directory, user auth.UserContext) (workflow.Caller, error) {
	caller := workflow.Caller{TenantID: user.TenantID, UserID: user.UserID, Role: user.RoleName}
	emp, err := dir.EmployeeByUserID(ctx, user.TenantID, user.UserID)
	if errors.Is(err, ErrNotFound) {
		return caller, nil
	}
	if err != nil {
		return caller, workflow.Persistence(err)
	}
	caller.EmployeeID = emp.ID
	return caller, nil
}
