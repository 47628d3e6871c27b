package models

// Role classifies an account.
type Role string

const (
	RoleCareerChanger    Role = "career_changer"
	RoleTrainingProvider Role = "training_provider"
	RoleAdministrator    Role = "administrator"
)

// User is the slice of an account the chat service needs.
type User struct {
	ID       int64  `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	FullName string `db:"full_name" json:"full_name"`
	Role     Role   `db:"role" json:"role"`
}

// Organization is the registered profile of a training provider.
type Organization struct {
	UserID int64  `db:"user_id" json:"user_id"`
	Name   string `db:"name" json:"name"`
}

// Profile bundles a user with its optional organization.
type Profile struct {
	User         User
	Organization *Organization
}

// DisplayName resolves the label a user is shown under. Providers are shown
// under their organization name when one is registered.
func DisplayName(user User, org *Organization) string {
	if user.Role == RoleTrainingProvider && org != nil && org.Name != "" {
		return org.Name
	}
	return user.Username
}
