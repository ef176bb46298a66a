package postgrest

// Status is the outcome of a mutating call.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
)

func (s Status) String() string {
	if s == StatusSuccess {
		return "success"
	}
	return "failure"
}

// MutationResult is the uniform envelope every mutating call returns,
// independent of the transport status code behind it. On failure Err is a
// *Error and Payload is the zero value.
type MutationResult[T any] struct {
	Status  Status
	Payload T
	Err     error
}

func succeed[T any](v T) MutationResult[T] {
	return MutationResult[T]{Status: StatusSuccess, Payload: v}
}

func fail[T any](err error) MutationResult[T] {
	return MutationResult[T]{Status: StatusFailure, Err: err}
}

func (r MutationResult[T]) OK() bool { return r.Status == StatusSuccess }

// Unwrap converts the envelope back into the usual (value, error) pair.
func (r MutationResult[T]) Unwrap() (T, error) {
	return r.Payload, r.Err
}
