package repository

import "context"

// MatchRepository answers whether a user takes part in a match.
type MatchRepository interface {
	IsMatchParticipant(ctx context.Context, matchID, userID int64) (bool, error)
}

// RegistrationRepository answers whether a user is registered for an event.
type RegistrationRepository interface {
	IsRegisteredForEvent(ctx context.Context, eventID, userID int64) (bool, error)
}

type AuthorizationRepository interface {
	MatchRepository
	RegistrationRepository
}
