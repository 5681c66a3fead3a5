package deriv

import (
	"encoding/json"
	"fmt"
)

// Frame is one decoded inbound message.
type Frame struct {
	MsgType string
	ReqID   int64
	Raw     json.RawMessage
}

type envelope struct {
	MsgType string          `json:"msg_type"`
	ReqID   int64           `json:"req_id"`
	Error   json.RawMessage `json:"error"`
}

// decodeFrame splits a raw payload into a Frame or a VenueError.
func decodeFrame(data []byte) (*Frame, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ProtocolError{Payload: data, Err: err}
	}
	if len(env.Error) > 0 && string(env.Error) != "null" {
		ve := &VenueError{MsgType: env.MsgType, ReqID: env.ReqID}
		if err := json.Unmarshal(env.Error, ve); err != nil {
			ve.Message = string(env.Error)
		}
		return nil, ve
	}
	return &Frame{MsgType: env.MsgType, ReqID: env.ReqID, Raw: json.RawMessage(data)}, nil
}

// Decode unmarshals the whole frame into dest.
func (f *Frame) Decode(dest any) error {
	if err := json.Unmarshal(f.Raw, dest); err != nil {
		return fmt.Errorf("deriv decode %s: %w", f.MsgType, err)
	}
	return nil
}

// Has reports whether the top-level field is present and not null.
func (f *Frame) Has(field string) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(f.Raw, &fields); err != nil {
		return false
	}
	v, ok := fields[field]
	return ok && string(v) != "null"
}

// Predicate selects the frame a waiter is interested in.
type Predicate func(*Frame) bool

// ReplyTo matches the response to reqID carrying one of msgTypes.
func ReplyTo(reqID int64, msgTypes ...string) Predicate {
	return func(f *Frame) bool {
		if f.ReqID != reqID {
			return false
		}
		if len(msgTypes) == 0 {
			return true
		}
		for _, t := range msgTypes {
			if f.MsgType == t {
				return true
			}
		}
		return false
	}
}
