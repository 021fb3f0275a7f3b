package model

// Permission names checked through Auth.HasPermission.
const (
	PermManageUsers = "manage_users"
	PermManagePOs   = "manage_pos"
	PermViewAll     = "view_all"
)

// User is the identity attached to outbound action envelopes.
type User struct {
	ID   string `json:"id" mapstructure:"id" yaml:"id"`
	Name string `json:"name" mapstructure:"name" yaml:"name"`
	Role string `json:"role" mapstructure:"role" yaml:"role"`
}

// Auth is the authentication collaborator. CurrentUser returns nil when no
// one is signed in.
type Auth interface {
	CurrentUser() *User
	HasPermission(name string) bool
}

// Notifier surfaces outcomes to whoever is watching (a toast, a terminal).
type Notifier interface {
	ShowSuccess(title, message string)
	ShowError(title, message string)
}

// StaticAuth is an Auth backed by a fixed user. Admins hold every
// permission; other roles hold none of the admin ones.
type StaticAuth struct {
	User *User
}

// CurrentUser implements Auth.
func (a StaticAuth) CurrentUser() *User {
	return a.User
}

// HasPermission implements Auth.
func (a StaticAuth) HasPermission(name string) bool {
	if a.User == nil {
		return false
	}
	if a.User.Role == "admin" {
		return true
	}
	return name == PermManagePOs
}
