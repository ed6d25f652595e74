package ics

import "errors"

var (
	errUndecodableDate = errors.New("value is not a DATE or DATE-TIME")

	// ErrInvalidURL is returned by the fetcher for sources that are not
	// absolute http(s) or webcal URLs.
	ErrInvalidURL = errors.New("invalid calendar URL")
	// ErrNotModifiedWithoutBody is returned when the server answers 304 but
	// no cached body is available.
	ErrNotModifiedWithoutBody = errors.New("received 304 Not Modified but no cached body available")
)
