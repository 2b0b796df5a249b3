package repository

import (
	"context"

	"github.com/hilthontt/kindred/domain/model"
	"github.com/hilthontt/kindred/domain/repository"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type PostgresAuthorizationRepository struct {
	database *gorm.DB
}

func NewAuthorizationRepository(database *gorm.DB) repository.AuthorizationRepository {
	return &PostgresAuthorizationRepository{database: database}
}

func (r *PostgresAuthorizationRepository) IsMatchParticipant(ctx context.Context, matchID, userID int64) (bool, error) {
	var count int64
	err := r.database.WithContext(ctx).
		Model(&model.Match{}).
		Where("id = ? AND (user1_id = ? OR user2_id = ?)", matchID, userID, userID).
		Count(&count).
		Error
	if err != nil {
		return false, errors.Wrapf(err, "lookup match %d participant %d", matchID, userID)
	}
	return count > 0, nil
}

func (r *PostgresAuthorizationRepository) IsRegisteredForEvent(ctx context.Context, eventID, userID int64) (bool, error) {
	var count int64
	err := r.database.WithContext(ctx).
		Model(&model.EventRegistration{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&count).
		Error
	if err != nil {
		return false, errors.Wrapf(err, "lookup registration of user %d for event %d", userID, eventID)
	}
	return count > 0, nil
}
