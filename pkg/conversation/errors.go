package conversation

import "github.com/pkg/errors"

var (
	ErrDuplicateName  = errors.New("conversation already exists")
	ErrNotFound       = errors.New("conversation not found")
	ErrInvalidContent = errors.New("invalid message content")
)
