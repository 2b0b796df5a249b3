package repository_test

import (
	"context"
	"testing"

	"github.com/hilthontt/kindred/infrastructure/persistence/dbtest"
	"github.com/hilthontt/kindred/infrastructure/persistence/repository"
)

func TestIsMatchParticipant(t *testing.T) {
	db := dbtest.Open(t)
	dbtest.InsertMatch(t, db, 7, 5, 9)
	repo := repository.NewAuthorizationRepository(db)
	ctx := context.Background()

	tests := []struct {
		name    string
		matchID int64
		userID  int64
		want    bool
	}{
		{"first participant", 7, 5, true},
		{"second participant", 7, 9, true},
		{"outsider", 7, 3, false},
		{"unknown match", 8, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.IsMatchParticipant(ctx, tt.matchID, tt.userID)
			if err != nil {
				t.Fatalf("IsMatchParticipant: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsMatchParticipant(%d, %d) = %v, want %v", tt.matchID, tt.userID, got, tt.want)
			}
		})
	}
}

func TestIsMatchParticipantAfterUnmatch(t *testing.T) {
	db := dbtest.Open(t)
	dbtest.InsertMatch(t, db, 7, 5, 9)
	repo := repository.NewAuthorizationRepository(db)

	dbtest.DeleteMatch(t, db, 7)

	got, err := repo.IsMatchParticipant(context.Background(), 7, 5)
	if err != nil {
		t.Fatalf("IsMatchParticipant: %v", err)
	}
	if got {
		t.Error("deleted match still reports participant")
	}
}

func TestIsRegisteredForEvent(t *testing.T) {
	db := dbtest.Open(t)
	dbtest.InsertRegistration(t, db, 42, 5)
	repo := repository.NewAuthorizationRepository(db)
	ctx := context.Background()

	if ok, err := repo.IsRegisteredForEvent(ctx, 42, 5); err != nil || !ok {
		t.Errorf("registered user: got (%v, %v), want (true, nil)", ok, err)
	}
	if ok, err := repo.IsRegisteredForEvent(ctx, 42, 6); err != nil || ok {
		t.Errorf("unregistered user: got (%v, %v), want (false, nil)", ok, err)
	}

	dbtest.DeleteRegistration(t, db, 42, 5)
	if ok, err := repo.IsRegisteredForEvent(ctx, 42, 5); err != nil || ok {
		t.Errorf("withdrawn user: got (%v, %v), want (false, nil)", ok, err)
	}
}

func TestClosedDatabaseReturnsError(t *testing.T) {
	db := dbtest.Open(t)
	repo := repository.NewAuthorizationRepository(db)

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	_ = sqlDB.Close()

	if _, err := repo.IsMatchParticipant(context.Background(), 1, 1); err == nil {
		t.Error("expected an error from a closed database")
	}
}
