package handlers

const (
	ParentSessionCookieName = "parent_session"

	ErrMsgInvalidJSON         = "Invalid JSON body"
	ErrMsgUnauthorized        = "Parent verification required"
	ErrMsgInternalServerError = "Internal server error"
)
