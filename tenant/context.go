package tenant

import "context"

type contextKey struct{}

// LocalsKey is the per-request key/value bag entry the resolved tenant id is
// published under. Context and Locals always carry the same value.
const LocalsKey = "tenant_id"

// WithTenantID stores the resolved tenant id on the context.
func WithTenantID(ctx context.Context, tenantID int64) context.Context {
	return context.WithValue(ctx, contextKey{}, tenantID)
}

// TenantID reads the resolved tenant id from the context. ok is false when
// resolution never ran.
func TenantID(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	tenantID, ok := ctx.Value(contextKey{}).(int64)
	return tenantID, ok
}
