package websocket

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrMalformedFrame = errors.New("malformed frame")

// Inbound is the envelope every client frame arrives in. Data is decoded
// later into the typed request of the named event.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound is the envelope every server frame is written in.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func DecodeInbound(raw []byte) (Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Inbound{}, errors.Join(ErrMalformedFrame, err)
	}
	if msg.Event == "" {
		return Inbound{}, ErrMalformedFrame
	}
	return msg, nil
}

func Encode(event string, payload any) ([]byte, error) {
	return json.Marshal(Outbound{Event: event, Data: payload})
}

// Outbound payloads.

type NewMessagePayload struct {
	MatchID  int64 `json:"matchId"`
	Message  any   `json:"message"`
	SenderID int64 `json:"senderId"`
}

type TypingPayload struct {
	MatchID  int64 `json:"matchId"`
	UserID   int64 `json:"userId"`
	IsTyping bool  `json:"isTyping"`
}

type MessageReadPayload struct {
	MatchID   int64     `json:"matchId"`
	MessageID int64     `json:"messageId"`
	UserID    int64     `json:"userId"`
	ReadAt    time.Time `json:"readAt"`
}

type UserJoinedEventPayload struct {
	EventID     int64 `json:"eventId"`
	Participant any   `json:"participant"`
}

func NewTyping(matchID, userID int64, isTyping bool) TypingPayload {
	return TypingPayload{MatchID: matchID, UserID: userID, IsTyping: isTyping}
}

func NewMessageRead(matchID, messageID, userID int64) MessageReadPayload {
	return MessageReadPayload{
		MatchID:   matchID,
		MessageID: messageID,
		UserID:    userID,
		ReadAt:    time.Now().UTC(),
	}
}
