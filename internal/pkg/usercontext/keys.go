package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	AuthKey          = "authenticated"
	KeyUserID        = "user_id"
	KeyEmail         = "email"
	KeyName          = "name"
	KeyFromProtected = "from_protected"
	KeyUserContext   = "USER_CONTEXT"
)
