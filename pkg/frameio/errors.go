package frameio

import "errors"

var (
	ErrEmptyFrame    = errors.New("frame has no usable pixels")
	ErrUnknownFormat = errors.New("unknown frame format")
)
