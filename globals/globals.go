package globals

// JwtSecret signs and verifies bearer tokens. Set from config at startup.
var JwtSecret []byte

// Context keys
type ContextKey string

const (
	RoleKey      ContextKey = "role"
	UserIDKey    ContextKey = "userId"
	CompanyIDKey ContextKey = "companyId"
	CompanyKey   ContextKey = "company"
)

// Roles carried in tokens.
const (
	RoleClient = "client"
	RoleStaff  = "staff"
)
