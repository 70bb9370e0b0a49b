package form

import "errors"

var (
	ErrRowFull         = errors.New("row already holds the maximum number of fields")
	ErrRowNotFound     = errors.New("row not found")
	ErrFieldNotFound   = errors.New("field not found")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrNoSelection     = errors.New("no field selected")
	ErrGroupTemplate   = errors.New("field group templates are expanded by the canvas")
	ErrNotGroup        = errors.New("template has no group layout")
	ErrSaving          = errors.New("form is being saved")
	ErrLoading         = errors.New("form is not loaded yet")
	ErrInvalidForm     = errors.New("form has blocking issues")
	ErrUnknownIntent   = errors.New("unknown move intent")
)
