package websocket

import (
	"bytes"
	"encoding/json"
	"errors"
)

var errEmptyPayload = errors.New("empty payload")

// MatchRef accepts either a bare id (`7`, `"7"`) or `{"matchId": 7}`.
type MatchRef struct {
	MatchID int64 `json:"matchId" binding:"required,gt=0"`
}

func (r *MatchRef) UnmarshalJSON(b []byte) error {
	if id, ok, err := scalarID(b); ok || err != nil {
		r.MatchID = id
		return err
	}
	type plain MatchRef
	return json.Unmarshal(b, (*plain)(r))
}

// EventRef accepts either a bare id or `{"eventId": 3}`.
type EventRef struct {
	EventID int64 `json:"eventId" binding:"required,gt=0"`
}

func (r *EventRef) UnmarshalJSON(b []byte) error {
	if id, ok, err := scalarID(b); ok || err != nil {
		r.EventID = id
		return err
	}
	type plain EventRef
	return json.Unmarshal(b, (*plain)(r))
}

type TypingRequest struct {
	MatchID  int64 `json:"matchId" binding:"required,gt=0"`
	IsTyping bool  `json:"isTyping"`
}

type MarkReadRequest struct {
	MatchID   int64 `json:"matchId" binding:"required,gt=0"`
	MessageID int64 `json:"messageId" binding:"required,gt=0"`
}

// scalarID reports ok when b is a JSON number or a quoted number.
func scalarID(b []byte) (int64, bool, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] == '{' {
		return 0, false, nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return 0, true, err
	}
	id, err := n.Int64()
	return id, true, err
}
