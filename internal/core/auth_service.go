package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gwi.com/prompt-relay/internal/auth"
	"gwi.com/prompt-relay/internal/common"
	"gwi.com/prompt-relay/internal/logging"
	"gwi.com/prompt-relay/internal/mail"
	"gwi.com/prompt-relay/internal/store"
)

type UserStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*store.User, error)
	GetUserByUsername(ctx context.Context, username string) (*store.User, error)
	UserExists(ctx context.Context, username, email string) (bool, error)
}

// AuthService runs registration with emailed codes and password login.
// Pending registrations are held per session and never touch the database
// until the code is confirmed.
type AuthService struct {
	users   UserStore
	pending *auth.PendingStore
	mailer  mail.Sender
	logger  logging.Logger

	// generateOTP is replaced in tests.
	generateOTP func() (int, error)
}

func NewAuthService(users UserStore, pending *auth.PendingStore, mailer mail.Sender, logger logging.Logger) *AuthService {
	return &AuthService{
		users:       users,
		pending:     pending,
		mailer:      mailer,
		logger:      logger,
		generateOTP: auth.GenerateOTP,
	}
}

// Register checks that username and email are free, mails a fresh code and
// holds the submission under sessionID until VerifyOTP. A new submission
// replaces the previous one.
func (s *AuthService) Register(ctx context.Context, sessionID, username, email, password string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return common.ErrMissingFields
	}

	exists, err := s.users.UserExists(ctx, username, email)
	if err != nil {
		return err
	}
	if exists {
		return common.ErrUserExists
	}

	code, err := s.generateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}
	if err := s.mailer.SendOTP(ctx, email, code); err != nil {
		s.logger.Error(ctx, "failed to send verification code", "email", email, "error", err)
		return err
	}

	s.pending.Put(sessionID, auth.PendingRegistration{
		Username: username,
		Email:    email,
		Password: password,
		Code:     code,
	})
	s.logger.Info(ctx, "verification code sent", "username", username)
	return nil
}

// VerifyOTP creates the pending user when code matches. A wrong code keeps
// the registration pending; there is no attempt limit.
func (s *AuthService) VerifyOTP(ctx context.Context, sessionID string, code int) (*store.User, error) {
	reg, ok := s.pending.Get(sessionID)
	if !ok {
		return nil, common.ErrNoPendingRegistration
	}
	if code != reg.Code {
		return nil, common.ErrInvalidOTP
	}

	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	// the registration is spent either way
	s.pending.Delete(sessionID)

	user, err := s.users.CreateUser(ctx, reg.Username, reg.Email, hash)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login never tells an unknown username apart from a wrong password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*store.User, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}
	return user, nil
}

// HasPending reports whether sessionID has a registration waiting for its
// code.
func (s *AuthService) HasPending(sessionID string) bool {
	_, ok := s.pending.Get(sessionID)
	return ok
}
