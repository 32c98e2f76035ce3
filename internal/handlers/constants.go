package handlers

const (
	MsgInternalServerError = "Internal server error"
	MsgServerError         = "Server error"
	MsgInvalidJSON         = "Invalid JSON body"
	MsgBodyTooLarge        = "Request body too large"
	MsgTokenRequired       = "Access token required"
	MsgTokenInvalid        = "Invalid or expired token"
	MsgInvalidCredentials  = "Invalid credentials"
	MsgForbidden           = "Forbidden"
	MsgUsernameTaken       = "Username already exists"
	MsgEmailTaken          = "Email already exists"
	MsgUserNotFound        = "User not found"
	MsgCourseNotFound      = "Course not found"
	MsgSchoolNotFound      = "School not found"
	MsgNotFound            = "Not found"
	MsgTooManyRequests     = "Too many requests, please try again later."
	MsgOriginNotAllowed    = "CORS blocked for origin"
	MsgRegisterRequired    = "username, email, password are required"
	MsgLoginRequired       = "login (email/username) and password are required"

	MsgRegistered     = "User registered"
	MsgLoggedIn       = "Login successful"
	MsgProgressSaved  = "Progress saved"
	MsgStatsUpdated   = "Stats updated"
	MsgSchoolDeleted  = "School deleted"
	RequestIDHeader   = "X-Request-ID"
	bearerPrefix      = "Bearer "
)
