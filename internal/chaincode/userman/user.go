// Package userman is the user-management chaincode the ledger gateway reads
// permission codes from.
package userman

import "fmt"

// User is stored as JSON under its UserID.
type User struct {
	UserID      string `json:"userID"`
	Name        string `json:"name"`
	Permission  string `json:"permission"`
	Position    string `json:"position"`
	Description string `json:"description"`
}

type ErrorCode string

const (
	CodeUserNotFound      ErrorCode = "USER_NOT_FOUND"
	CodeUserAlreadyExists ErrorCode = "USER_ALREADY_EXISTS"
	CodePermissionDenied  ErrorCode = "PERMISSION_DENIED"
)

// Error carries a stable code next to the message so gateway clients can
// branch on it.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Is matches on code alone, so errors.Is(err, ErrUserNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrUserNotFound      = &Error{Code: CodeUserNotFound}
	ErrUserAlreadyExists = &Error{Code: CodeUserAlreadyExists}
	ErrPermissionDenied  = &Error{Code: CodePermissionDenied}
)

func newError(code ErrorCode, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
