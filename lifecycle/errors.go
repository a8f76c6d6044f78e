package lifecycle

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownStatus     = errors.New("unknown status")
	ErrNotEditable       = errors.New("order not editable")
	ErrWindowClosed      = errors.New("receiver edit window closed")
)
