package router

import "errors"

var (
	// ErrNoCoordinators means no coordinator is currently ready.
	ErrNoCoordinators = errors.New("no coordinators are ready")

	// ErrAllAttemptsFailed means every routing attempt hit a transport
	// failure.
	ErrAllAttemptsFailed = errors.New("all routing attempts failed")
)
