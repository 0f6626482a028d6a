package steps

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrMissingClientSettings = errors.New("missing client settings")

var ErrMissingClientAPIKey = errors.New("missing client settings api key")

// RemoteRequestError is returned when the chat endpoint fails, either before the first
// fragment or in the middle of a stream.
type RemoteRequestError struct {
	Model string
	Cause error
}

func NewRemoteRequestError(model string, cause error) *RemoteRequestError {
	return &RemoteRequestError{Model: model, Cause: cause}
}

func (e *RemoteRequestError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("remote request failed: %v", e.Cause)
	}
	return fmt.Sprintf("remote request to %s failed: %v", e.Model, e.Cause)
}

func (e *RemoteRequestError) Unwrap() error {
	return e.Cause
}

// IsRemoteRequestError reports whether err wraps a *RemoteRequestError.
func IsRemoteRequestError(err error) bool {
	var rre *RemoteRequestError
	return errors.As(err, &rre)
}
