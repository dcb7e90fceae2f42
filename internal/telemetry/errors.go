package telemetry

import "errors"

var (
	// ErrInvalidAddress is returned when a kind name or device id cannot form an Address.
	ErrInvalidAddress = errors.New("telemetry: invalid address")

	// ErrInvalidPayload is returned when a payload is malformed or does not match the address kind.
	// It is always returned before storage is touched.
	ErrInvalidPayload = errors.New("telemetry: invalid payload")

	// ErrUnavailable wraps any failure of the underlying storage.
	ErrUnavailable = errors.New("telemetry: storage unavailable")
)
