package models

// Session is the precomputed per-request identity of the caller. It is
// resolved by the hosting platform before a request reaches this service;
// the core never performs identity lookups of its own.
type Session struct {
	Email          string   `json:"email"`
	Name           string   `json:"name"`
	OrganizationID string   `json:"organizationId"`
	CostCenterID   string   `json:"costCenterId"`
	RoleSlug       string   `json:"roleSlug"`
	Permissions    []string `json:"permissions"`
	SalesChannel   string   `json:"salesChannel"`
	Admin          bool     `json:"admin"`
}
