package pushclient

import (
	"context"
	"fmt"
	"net/http"
	"slices"
)

type IdentityService struct {
	Options []RequestOption
}

// Emit sends an arbitrary named event to every connection of the identity.
func (s *IdentityService) Emit(ctx context.Context, identityID int64, event string, payload any, opts ...RequestOption) error {
	if err := checkID(identityID); err != nil {
		return err
	}
	if event == "" {
		return ErrMissingEvent
	}

	body := struct {
		Event   string `json:"event"`
		Payload any    `json:"payload"`
	}{event, payload}
	return execute(ctx, http.MethodPost, fmt.Sprintf("/identities/%d/events", identityID), body, slices.Concat(s.Options, opts)...)
}

func (s *IdentityService) UpdateConversation(ctx context.Context, identityID int64, conversation any, opts ...RequestOption) error {
	if err := checkID(identityID); err != nil {
		return err
	}

	body := struct {
		Conversation any `json:"conversation"`
	}{conversation}
	return execute(ctx, http.MethodPost, fmt.Sprintf("/identities/%d/conversations", identityID), body, slices.Concat(s.Options, opts)...)
}

// Disconnect terminates every live connection of the identity. An identity
// without connections is not an error.
func (s *IdentityService) Disconnect(ctx context.Context, identityID int64, opts ...RequestOption) error {
	if err := checkID(identityID); err != nil {
		return err
	}
	return execute(ctx, http.MethodPost, fmt.Sprintf("/identities/%d/disconnect", identityID), nil, slices.Concat(s.Options, opts)...)
}

type MatchService struct {
	Options []RequestOption
}

// Created announces a new match to both participants.
func (s *MatchService) Created(ctx context.Context, userA, userB int64, match any, opts ...RequestOption) error {
	if err := checkID(userA, userB); err != nil {
		return err
	}

	body := struct {
		UserIDs []int64 `json:"userIds"`
		Match   any     `json:"match"`
	}{[]int64{userA, userB}, match}
	return execute(ctx, http.MethodPost, "/matches", body, slices.Concat(s.Options, opts)...)
}

func (s *MatchService) NewMessage(ctx context.Context, matchID, senderID int64, message any, opts ...RequestOption) error {
	if err := checkID(matchID, senderID); err != nil {
		return err
	}

	body := struct {
		SenderID int64 `json:"senderId"`
		Message  any   `json:"message"`
	}{senderID, message}
	return execute(ctx, http.MethodPost, fmt.Sprintf("/matches/%d/messages", matchID), body, slices.Concat(s.Options, opts)...)
}

type EventService struct {
	Options []RequestOption
}

func (s *EventService) ParticipantJoined(ctx context.Context, eventID int64, participant any, opts ...RequestOption) error {
	if err := checkID(eventID); err != nil {
		return err
	}

	body := struct {
		Participant any `json:"participant"`
	}{participant}
	return execute(ctx, http.MethodPost, fmt.Sprintf("/events/%d/participants", eventID), body, slices.Concat(s.Options, opts)...)
}
