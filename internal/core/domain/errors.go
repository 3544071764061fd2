package domain

import "errors"

var (
	// ErrNoStops means no stop network is loaded, so no journey can be planned.
	ErrNoStops = errors.New("no stops loaded")

	// ErrDestinationUnresolved means the destination could not be geocoded.
	ErrDestinationUnresolved = errors.New("could not calculate route: destination not found")

	// ErrNotFound is returned by repositories for unknown ids.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput marks caller mistakes such as empty queries.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstream wraps failures of third-party services (geocoding, routing, LLM).
	ErrUpstream = errors.New("upstream service unavailable")
)
