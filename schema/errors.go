package schema

import "fmt"

// ValidationError reports a parsed value that does not satisfy a response
// model. Message is the validator's structured text and is what gets sent
// back to the model in a repair message.
type ValidationError struct {
	Model   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate %s: %s", e.Model, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
