package encoding

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped when a source reports the document does not exist.
var ErrNotFound = errors.New("document not found")

// EncodingError reports a document that could not be turned into a payload.
type EncodingError struct {
	Document string
	Err      error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding %s: %v", e.Document, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}
