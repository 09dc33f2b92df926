package gc

import "errors"

var (
	errNotLive   = errors.New("gc: cell is not live")
	errWrongType = errors.New("gc: cell does not hold the requested type")
)
