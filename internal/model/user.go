package model

type Role string

const (
	RoleAdmin         Role = "admin"
	RoleRetailManager Role = "retail_manager"
	RoleCustomer      Role = "customer"
)

// CurrentUser is what the auth layer resolves a request to.
type CurrentUser struct {
	ID   string
	Role Role
}

func (u CurrentUser) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleRetailManager
}
