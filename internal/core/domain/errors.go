package domain

import "errors"

var (
	ErrNotFound         = errors.New("domain: not found")
	ErrUnauthenticated  = errors.New("domain: not authenticated")
	ErrInvalidArgument  = errors.New("domain: invalid argument")
	ErrGenerationFailed = errors.New("domain: garden generation failed")
)
