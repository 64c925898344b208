package models

const (
	RoleManager = "manager"
	RoleMember  = "member"
)

// User is the read-only view of an account owned by the users service.
type User struct {
	ID          string `json:"id" bson:"-"`
	Username    string `json:"username" bson:"username"`
	DisplayName string `json:"displayName" bson:"displayName"`
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsPrivileged() bool {
	return a.Role == RoleManager
}
