package cli

import (
	"fmt"

	"rsd-cli/internal/postgrest"
)

type positionError struct {
	arg   string
	count int
}

func (e positionError) Error() string {
	if e.count == 0 {
		return fmt.Sprintf("invalid position %q: the list is empty", e.arg)
	}
	return fmt.Sprintf("invalid position %q: want 1..%d", e.arg, e.count)
}

func (e positionError) Unwrap() error { return postgrest.ErrValidation }

func errPosition(arg string, count int) error {
	return positionError{arg: arg, count: count}
}

type fieldArgError struct {
	arg string
}

func (e fieldArgError) Error() string {
	return fmt.Sprintf("invalid field %q: want key=value", e.arg)
}

func (e fieldArgError) Unwrap() error { return postgrest.ErrValidation }
