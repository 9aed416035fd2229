package recall

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recall/internal/model"
)

// DefaultSessionTTL is how long an issued token stays valid.
const DefaultSessionTTL = 30 * 24 * time.Hour

// IdentityStore owns users and their sessions.
type IdentityStore struct {
	db         Database
	clock      Clock
	ids        IDGenerator
	tokens     IDGenerator
	hasher     PasswordHasher
	logger     Logger
	sessionTTL time.Duration
}

// NewIdentityStore creates an IdentityStore. A zero sessionTTL means DefaultSessionTTL.
func NewIdentityStore(db Database, clock Clock, ids, tokens IDGenerator, hasher PasswordHasher, logger Logger, sessionTTL time.Duration) *IdentityStore {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &IdentityStore{
		db:         db,
		clock:      clock,
		ids:        ids,
		tokens:     tokens,
		hasher:     hasher,
		logger:     logger,
		sessionTTL: sessionTTL,
	}
}

// CreateAccount registers a user. Emails are compared byte for byte, so
// addresses differing only in case are separate accounts.
func (s *IdentityStore) CreateAccount(ctx context.Context, email, name, password string) (*model.User, error) {
	email, err := validateEmail(email)
	if err != nil {
		return nil, err
	}
	name, err = requiredText("name", name)
	if err != nil {
		return nil, err
	}
	if err := validatePassword("password", password); err != nil {
		return nil, err
	}

	existing, err := s.db.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("looking up email: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := s.clock.Now().Unix()
	user := &model.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := InsertWithRetry(ctx, s.ids, s.logger, user, s.db.InsertUser); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	s.logger.Info("user created", "user_id", user.ID)
	return user, nil
}

// Authenticate returns the user for a matching email and password. The email
// is trimmed as on sign up. Unknown emails and wrong passwords both yield
// ErrInvalidCredentials.
func (s *IdentityStore) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.db.FindUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("looking up email: %w", err)
	}
	if user == nil || !s.hasher.Verify(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// IssueSession creates a new session for userID and returns its token.
// Earlier sessions of the same user stay valid.
func (s *IdentityStore) IssueSession(ctx context.Context, userID string) (string, error) {
	now := s.clock.Now()
	session := &model.Session{
		UserID:    userID,
		Token:     s.tokens.New(),
		ExpiresAt: now.Add(s.sessionTTL).Unix(),
		CreatedAt: now.Unix(),
	}
	if _, err := InsertWithRetry(ctx, s.ids, s.logger, session, s.db.InsertSession); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	s.logger.Debug("session issued", "user_id", userID, "expires_at", session.ExpiresAt)
	return session.Token, nil
}

// ResolveSession returns the user id a live token belongs to.
func (s *IdentityStore) ResolveSession(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	userID, err := s.db.FindSessionUserID(ctx, token, s.clock.Now().Unix())
	if err != nil {
		return "", fmt.Errorf("resolving session: %w", err)
	}
	if userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// RevokeSession deletes the session for token. Unknown tokens are not an error.
func (s *IdentityStore) RevokeSession(ctx context.Context, token string) error {
	if err := s.db.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}

// CurrentUser returns the user behind token, or nil when the token does not resolve.
func (s *IdentityStore) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.ResolveSession(ctx, token)
	if errors.Is(err, ErrInvalidToken) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user, err := s.db.FindUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return user, nil
}

// UpdateProfile changes a user's name and email.
func (s *IdentityStore) UpdateProfile(ctx context.Context, userID, name, email string) (*model.User, error) {
	name, err := requiredText("name", name)
	if err != nil {
		return nil, err
	}
	email, err = validateEmail(email)
	if err != nil {
		return nil, err
	}

	taken, err := s.db.EmailTakenByOther(ctx, email, userID)
	if err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if taken {
		return nil, ErrDuplicateEmail
	}

	if err := s.db.UpdateUserProfile(ctx, userID, name, email, s.clock.Now().Unix()); err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	return s.User(ctx, userID)
}

// ChangePassword replaces the password after re-checking the current one.
func (s *IdentityStore) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.User(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(user.PasswordHash, current) {
		return ErrIncorrectPassword
	}
	if err := validatePassword("new_password", next); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.db.UpdateUserPassword(ctx, userID, hash, s.clock.Now().Unix()); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	s.logger.Info("password changed", "user_id", userID)
	return nil
}

// User loads an account by id. A missing account is ErrNotFound.
func (s *IdentityStore) User(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.db.FindUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}
