package schema

// AuthAccountTable represents the 'auth.account' table
type AuthAccountTable struct {
	Table              string
	ID                 string
	Email              string
	Password           string
	Role               string
	RefreshToken       string
	RefreshTokenExpiry string
	CreatedAt          string
	UpdatedAt          string
}

// AuthAccount is the schema definition for auth.account
var AuthAccount = AuthAccountTable{
	Table:              "auth.account",
	ID:                 "id",
	Email:              "email",
	Password:           "passwordhash",
	Role:               "role",
	RefreshToken:       "refreshtoken",
	RefreshTokenExpiry: "refreshtokenexpiry",
	CreatedAt:          "createdat",
	UpdatedAt:          "updatedat",
}

// Columns returns all standard column names
func (t AuthAccountTable) Columns() []string {
	return []string{
		t.ID, t.Email, t.Password, t.Role, t.RefreshToken,
		t.RefreshTokenExpiry, t.CreatedAt, t.UpdatedAt,
	}
}
