package core

// Error codes for domain errors.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeUsernameTaken = "username_taken"
	ErrCodeBanned        = "banned"
	ErrCodeNotAdmin      = "not_admin"
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

func errBadRequest(msg string) *CoreError    { return coreError(ErrCodeBadRequest, msg) }
func errUnauthorized(msg string) *CoreError  { return coreError(ErrCodeUnauthorized, msg) }
func errUsernameTaken(msg string) *CoreError { return coreError(ErrCodeUsernameTaken, msg) }
func errBanned(msg string) *CoreError        { return coreError(ErrCodeBanned, msg) }
func errNotAdmin(msg string) *CoreError      { return coreError(ErrCodeNotAdmin, msg) }
