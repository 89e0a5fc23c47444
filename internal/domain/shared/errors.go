package shared

// Error codes carried by DomainError. The HTTP layer maps them to statuses.
const (
	CodeInvalidInput = "INVALID_INPUT"
	CodeNoSelection  = "NO_SELECTION"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError with the same code, so a wrapped
// NewDomainError(CodeInvalidInput, ...) satisfies errors.Is(err, ErrInvalidInput).
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// ErrInvalidInput matches every invalid input error
var ErrInvalidInput = NewDomainError(CodeInvalidInput, "Invalid input provided")
