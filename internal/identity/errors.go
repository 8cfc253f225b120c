package identity

import "errors"

// Provider error codes.
const (
	CodeEmailInUse    = "auth/email-already-in-use"
	CodeWrongPassword = "auth/wrong-password"
	CodeUserNotFound  = "auth/user-not-found"
	CodeWeakPassword  = "auth/weak-password"
	CodeInvalidEmail  = "auth/invalid-email"
	CodeInvalidToken  = "auth/invalid-token"
	CodeInternal      = "auth/internal-error"
)

const msgFallback = "Something went wrong. Please try again."

var messages = map[string]string{
	CodeEmailInUse:    "User already exists. Please sign in.",
	CodeWrongPassword: "Incorrect password.",
	CodeUserNotFound:  "No account found with this email.",
	CodeWeakPassword:  "Password must be at least 6 characters.",
	CodeInvalidEmail:  "Invalid email address.",
}

// Error is a provider failure tagged with one of the Code constants.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code string, err error) *Error { return &Error{Code: code, Err: err} }

// Code returns the provider code carried by err, or "" when err is not
// an identity error.
func Code(err error) string {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ""
}

// Describe maps err to the message shown on the sign-in form.
func Describe(err error) string {
	if msg, ok := messages[Code(err)]; ok {
		return msg
	}
	return msgFallback
}

// SwitchToSignIn reports whether the form should flip to sign-in mode.
func SwitchToSignIn(err error) bool {
	return Code(err) == CodeEmailInUse
}
