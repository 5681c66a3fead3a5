package deriv

import (
	"errors"
	"fmt"
)

// ErrNotConnected is wrapped by TransportError when no session is open.
var ErrNotConnected = errors.New("deriv: not connected")

// ConnectionError means the venue could not be reached. Fatal to the session.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("deriv connect %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TransportError is a failed read or write on an established session.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("deriv %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is an inbound frame that is not a JSON object. The frame is dropped.
type ProtocolError struct {
	Payload []byte
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("deriv decode frame (%d bytes): %v", len(e.Payload), e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// VenueError is an explicit error object returned by the venue.
type VenueError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	MsgType string `json:"-"`
	ReqID   int64  `json:"-"`
}

func (e *VenueError) Error() string {
	if e.MsgType != "" {
		return fmt.Sprintf("deriv %s error %s: %s", e.MsgType, e.Code, e.Message)
	}
	return fmt.Sprintf("deriv error %s: %s", e.Code, e.Message)
}

// IsVenueError reports whether err carries a VenueError.
func IsVenueError(err error) bool {
	var ve *VenueError
	return errors.As(err, &ve)
}
