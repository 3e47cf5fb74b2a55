package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrDuplicateFeeding = errors.New("duplicate feeding")
	ErrInternal         = errors.New("internal error")
)
