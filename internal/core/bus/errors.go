package bus

import "errors"

// Sentinel errors returned over a hub request's reply channel. Callers branch
// on these with errors.Is; sessions translate them into RTMP onStatus codes
// or HTTP statuses at the protocol boundary.
var (
	ErrDuplicatePublish           = errors.New("bus: stream already has a publisher")
	ErrStreamNotFound             = errors.New("bus: no such stream")
	ErrHubClosed                  = errors.New("bus: hub is shutting down")
	ErrSubscribeCountLimitReached = errors.New("bus: stream has reached its subscriber limit")
)
