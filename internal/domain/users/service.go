package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/floroz/commerce/pkg/auth"
)

const maxUsernameLength = 150

var (
	ErrInvalidCredentials = errors.New("invalid username and/or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrPasswordMismatch   = errors.New("passwords must match")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

type Service struct {
	userRepo    UserRepository
	revocations RevocationStore
	signer      *auth.Signer
	sessionTTL  time.Duration
}

// NewService creates the users service. revocations may be nil, in which
// case sessions stay valid until they expire.
func NewService(
	userRepo UserRepository,
	revocations RevocationStore,
	signer *auth.Signer,
	sessionTTL time.Duration,
) *Service {
	return &Service{
		userRepo:    userRepo,
		revocations: revocations,
		signer:      signer,
		sessionTTL:  sessionTTL,
	}
}

func validateRegistration(cmd RegisterCommand) error {
	if cmd.Username == "" {
		return errors.New("username is required")
	}
	if utf8.RuneCountInString(cmd.Username) > maxUsernameLength {
		return fmt.Errorf("username must be at most %d characters", maxUsernameLength)
	}
	if cmd.Password == "" {
		return errors.New("password is required")
	}
	if cmd.Email != "" {
		if _, err := mail.ParseAddress(cmd.Email); err != nil {
			return errors.New("email address is invalid")
		}
	}
	return nil
}

// Register creates a user account. Nothing is stored when the password and
// its confirmation differ.
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*User, error) {
	cmd.Username = strings.TrimSpace(cmd.Username)
	cmd.Email = strings.TrimSpace(cmd.Email)

	if cmd.Password != cmd.Confirmation {
		return nil, ErrPasswordMismatch
	}
	if err := validateRegistration(cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	hash, err := auth.HashPassword(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Username:     cmd.Username,
		Email:        cmd.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Authenticate checks the credentials and returns the matching user.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// StartSession signs a new session for an already authenticated user.
func (s *Service) StartSession(user *User) (*auth.Session, error) {
	session, err := s.signer.IssueSession(user.ID, user.Username, s.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	return session, nil
}

// Login authenticates and starts a session.
func (s *Service) Login(ctx context.Context, username, password string) (*auth.Session, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.StartSession(user)
}

// Logout revokes the session. Tokens that no longer validate are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.signer.ValidateToken(token)
	if err != nil {
		return nil
	}
	if s.revocations == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// ValidateSession resolves a session token into its claims, rejecting
// forged, expired and revoked sessions.
func (s *Service) ValidateSession(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.signer.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if s.revocations == nil {
		return claims, nil
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check session revocation: %w", err)
	}
	if revoked {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// GetUser returns the user or nil when it does not exist.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
