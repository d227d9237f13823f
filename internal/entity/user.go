package entity

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// User is the client-side projection of a backend account.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
