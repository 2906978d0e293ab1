package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table             string
	ID                string
	Email             string
	Password          string
	DisplayName       string
	IsActive          string
	FailedAccessCount string
	LockoutUntil      string
	CreatedAt         string
	UpdatedAt         string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:             "users.account",
	ID:                "id",
	Email:             "email",
	Password:          "passwordhash",
	DisplayName:       "displayname",
	IsActive:          "isactive",
	FailedAccessCount: "failedaccesscount",
	LockoutUntil:      "lockoutuntil",
	CreatedAt:         "createdat",
	UpdatedAt:         "updatedat",
}

// Columns returns all standard column names
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Email, t.Password, t.DisplayName, t.IsActive,
		t.FailedAccessCount, t.LockoutUntil, t.CreatedAt, t.UpdatedAt,
	}
}

// ProfileColumns returns the columns safe to expose outside the credential store
func (t UserAccountTable) ProfileColumns() []string {
	return []string{
		t.ID, t.Email, t.DisplayName, t.IsActive, t.LockoutUntil, t.CreatedAt, t.UpdatedAt,
	}
}
