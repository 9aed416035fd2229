package testutil

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"recall/internal/database"
	"recall/internal/recall"
)

// NewTestDatabase returns a migrated in-memory database that is closed when
// the test completes.
func NewTestDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()

	db, err := database.OpenMigrated(database.MemoryPath, 1)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// Env is a service over a fresh test database with a controllable clock and
// deterministic ids.
type Env struct {
	DB      *database.SQLiteDatabase
	Clock   *StubClock
	IDs     recall.IDGenerator
	Service *recall.Service
}

// NewEnv builds an Env. ids may be nil for a SequenceIDGenerator.
func NewEnv(t *testing.T, ids recall.IDGenerator) *Env {
	t.Helper()

	if ids == nil {
		ids = NewSequenceIDGenerator("T")
	}
	db := NewTestDatabase(t)
	clock := FixedClock()
	svc := recall.NewService(recall.Options{
		DB:     db,
		Clock:  clock,
		IDs:    ids,
		Tokens: NewSequenceIDGenerator("TOKEN"),
		Hasher: recall.BcryptHasher{Cost: bcrypt.MinCost},
	})
	return &Env{DB: db, Clock: clock, IDs: ids, Service: svc}
}

// SignUp creates an account and returns its user id and a fresh session token.
func (e *Env) SignUp(t *testing.T, email string) (string, string) {
	t.Helper()

	ctx := t.Context()
	user, err := e.Service.Identity.CreateAccount(ctx, email, "Test User", "secret-password")
	if err != nil {
		t.Fatalf("CreateAccount(%s) error = %v", email, err)
	}
	token, err := e.Service.Identity.IssueSession(ctx, user.ID)
	if err != nil {
		t.Fatalf("IssueSession() error = %v", err)
	}
	return user.ID, token
}
