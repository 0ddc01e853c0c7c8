package object

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHash is returned when a digest is not 40 lowercase hex characters.
	ErrInvalidHash = errors.New("invalid object hash")

	// ErrObjectNotFound is returned when the store has no object for a hash.
	ErrObjectNotFound = errors.New("object not found")

	// ErrMalformedObject is returned when stored bytes cannot be decoded as
	// the requested object type.
	ErrMalformedObject = errors.New("malformed object")
)

// ObjectError provides structured information about a failed object
// operation. It supports errors.Is/As for the wrapped sentinel.
type ObjectError struct {
	Op   string
	Hash Hash
	Err  error
}

func (e *ObjectError) Error() string {
	if e.Hash == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Hash, e.Err)
}

func (e *ObjectError) Unwrap() error {
	return e.Err
}

// malformed builds a decode error wrapping ErrMalformedObject.
func malformed(kind string, format string, args ...any) error {
	return fmt.Errorf("unmarshal %s: %s: %w", kind, fmt.Sprintf(format, args...), ErrMalformedObject)
}

// IsNotFound reports whether err means an object is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}
