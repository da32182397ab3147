package domain

// Identity is the authenticated caller. It is passed explicitly into every
// version and render operation.
type Identity struct {
	UserID   int64
	TenantID int64
	Role     string
}

// Owns reports whether a row belonging to tenantID is visible to the caller.
func (i Identity) Owns(tenantID int64) bool {
	return i.TenantID != 0 && i.TenantID == tenantID
}
