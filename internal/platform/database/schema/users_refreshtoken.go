package schema

// UserRefreshTokenTable represents the 'users.refreshtoken' table
type UserRefreshTokenTable struct {
	Table     string
	ID        string
	TokenHash string
	UserID    string
	ExpiresAt string
	IsUsed    string
	IsRevoked string
	CreatedAt string
}

// UserRefreshToken is the schema definition for users.refreshtoken
var UserRefreshToken = UserRefreshTokenTable{
	Table:     "users.refreshtoken",
	ID:        "id",
	TokenHash: "tokenhash",
	UserID:    "userid",
	ExpiresAt: "expiresat",
	IsUsed:    "isused",
	IsRevoked: "isrevoked",
	CreatedAt: "createdat",
}

// Columns returns all standard column names
func (t UserRefreshTokenTable) Columns() []string {
	return []string{
		t.ID, t.TokenHash, t.UserID, t.ExpiresAt, t.IsUsed, t.IsRevoked, t.CreatedAt,
	}
}
