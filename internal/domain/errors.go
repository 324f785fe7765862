package domain

// Domain errors
var (
	ErrItemNotFound     = &DomainError{Message: "item not found"}
	ErrUserNotFound     = &DomainError{Message: "user not found"}
	ErrEmailTaken       = &DomainError{Message: "email already registered"}
	ErrForbidden        = &DomainError{Message: "user not authorized to modify this item"}
	ErrStoreUnavailable = &DomainError{Message: "store unavailable"}
	ErrImagesRequired   = &ValidationError{Field: "images", Message: "at least one image is required"}
)

// DomainError represents a domain-level error
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// ValidationError reports a missing or invalid client-supplied field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
