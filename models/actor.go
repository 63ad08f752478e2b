package models

// Roles carried in the identity token.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// Actor is the authenticated principal supplied by the identity provider.
// The core trusts it beyond role gating; seller actions are additionally
// scoped to orders whose pharmacy_id matches the actor id.
type Actor struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
