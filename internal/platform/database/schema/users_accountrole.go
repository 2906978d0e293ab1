package schema

// UserAccountRoleTable represents the 'users.accountrole' table
type UserAccountRoleTable struct {
	Table     string
	AccountID string
	RoleID    string
}

// UserAccountRole is the schema definition for users.accountrole
var UserAccountRole = UserAccountRoleTable{
	Table:     "users.accountrole",
	AccountID: "accountid",
	RoleID:    "roleid",
}

// Columns returns all standard column names
func (t UserAccountRoleTable) Columns() []string {
	return []string{t.AccountID, t.RoleID}
}
