package apperr

import (
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
)

// Error kinds shared by all pipeline stages. Match with errors.Is.
var (
	ErrUpstreamLookup = errors.New("upstream lookup failed")
	ErrObjectNotFound = errors.New("object not found")
	ErrRowProcessing  = errors.New("row processing failed")
	ErrPublish        = errors.New("publish failed")
	ErrParse          = errors.New("parse failed")
)

// Wrap tags cause with kind and attaches msg and values. The result matches
// both kind and cause with errors.Is.
func Wrap(kind, cause error, msg string, opts ...goerr.Option) error {
	if cause == nil {
		return goerr.Wrap(kind, msg, opts...)
	}
	return goerr.Wrap(fmt.Errorf("%w: %w", kind, cause), msg, opts...)
}

// New returns an error of the given kind with no underlying cause.
func New(kind error, msg string, opts ...goerr.Option) error {
	return goerr.Wrap(kind, msg, opts...)
}
