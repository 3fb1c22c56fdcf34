package domain

// Role is the privilege level of a dashboard user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is a dashboard account as stored under users/{id}.
// Password is only present on legacy documents written by the old dashboard.
type User struct {
	ID           string `json:"-"`
	Username     string `json:"username"`
	Password     string `json:"password,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Privileges   Role   `json:"privileges"`
}

// Session is an authenticated principal extracted from a validated token.
type Session struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}
