package blood

import "fmt"

// ValidationError reports a missing or malformed required input field.
// Prediction inputs are never silently defaulted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: field %q %s", e.Field, e.Reason)
}

// UnseenCategoryError reports an inference-time categorical value that was not
// present in the fitted vocabulary. It is surfaced, never coerced to a
// default index.
type UnseenCategoryError struct {
	Column string
	Value  string
}

func (e *UnseenCategoryError) Error() string {
	return fmt.Sprintf("unseen category %q for %s", e.Value, e.Column)
}

// InsufficientDataError means the training set was empty after feature
// preparation. The run is aborted before any artifact is written.
type InsufficientDataError struct {
	Rows   int
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient training data (%d rows): %s", e.Rows, e.Reason)
}

// NoDonorsFoundError means a ranking query matched zero donors. Callers must
// distinguish this from a successful query with an empty top-N.
type NoDonorsFoundError struct {
	BloodGroup string
}

func (e *NoDonorsFoundError) Error() string {
	return fmt.Sprintf("no donors found for blood group %q", e.BloodGroup)
}

// UpstreamServiceError wraps a failure of an external collaborator such as
// the hosted language model. Non-fatal to the rest of the system.
type UpstreamServiceError struct {
	Service string
	Err     error
}

func (e *UpstreamServiceError) Error() string {
	return fmt.Sprintf("upstream service %s failed: %v", e.Service, e.Err)
}

func (e *UpstreamServiceError) Unwrap() error { return e.Err }
