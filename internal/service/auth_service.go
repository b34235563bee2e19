package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"task-manager/internal/auth"
	"task-manager/internal/model"
	"task-manager/internal/repository"
)

// invalidCredentials is shared by the unknown-email and wrong-password paths.
const invalidCredentials = "invalid email or password"

// Session is the result of a successful login.
type Session struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// ProfileUpdate holds the optional fields of a profile edit.
type ProfileUpdate struct {
	Username *string
	Email    *string
}

// AuthService owns registration, login and token verification.
type AuthService struct {
	users    *repository.UserRepository
	tokens   *auth.TokenIssuer
	denylist auth.Denylist
	log      *slog.Logger
}

func NewAuthService(users *repository.UserRepository, tokens *auth.TokenIssuer, denylist auth.Denylist, log *slog.Logger) *AuthService {
	if denylist == nil {
		denylist = auth.NewMemoryDenylist()
	}
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{users: users, tokens: tokens, denylist: denylist, log: log}
}

// Register creates a user with a hashed password and its default category.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if err := validateDoc(registerValidator, map[string]interface{}{
		"username": username,
		"email":    email,
		"password": password,
	}); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	user := &model.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.users.CreateWithDefaultCategory(ctx, user, model.DefaultCategoryName); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("email already registered: %w", ErrConflict)
		}
		return nil, err
	}
	s.log.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Authenticate checks credentials and issues a bearer token.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", invalidCredentials, ErrAuth)
		}
		return nil, err
	}
	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", invalidCredentials, ErrAuth)
	}

	token, _, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

// VerifyToken validates the token and rejects revoked ones.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (auth.Identity, error) {
	id, err := s.tokens.Verify(token)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("invalid or expired token: %w", ErrAuth)
	}
	revoked, err := s.denylist.IsRevoked(ctx, id.TokenID)
	if err != nil {
		return auth.Identity{}, err
	}
	if revoked {
		return auth.Identity{}, fmt.Errorf("token has been revoked: %w", ErrAuth)
	}
	cutoff, err := s.denylist.RevokedBefore(ctx, id.UserID)
	if err != nil {
		return auth.Identity{}, err
	}
	if !cutoff.IsZero() && id.IssuedAt.Before(cutoff) {
		return auth.Identity{}, fmt.Errorf("token has been revoked: %w", ErrAuth)
	}
	return id, nil
}

// Logout revokes the caller's token until it expires.
func (s *AuthService) Logout(ctx context.Context, id auth.Identity) error {
	return s.denylist.Revoke(ctx, id.TokenID, id.ExpiresAt)
}

func (s *AuthService) Profile(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err, "user not found")
	}
	return user, nil
}

// UpdateProfile changes username and/or email. Omitted fields stay as they are.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, in ProfileUpdate) (*model.User, error) {
	doc := map[string]interface{}{}
	if in.Username != nil {
		v := strings.TrimSpace(*in.Username)
		in.Username = &v
		doc["username"] = v
	}
	if in.Email != nil {
		v := normalizeEmail(*in.Email)
		in.Email = &v
		doc["email"] = v
	}
	if err := validateDoc(profileValidator, doc); err != nil {
		return nil, err
	}

	user, err := s.users.UpdateProfile(ctx, userID, in.Username, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("email already registered: %w", ErrConflict)
		}
		return nil, mapStoreError(err, "user not found")
	}
	return user, nil
}

// ChangePassword replaces the caller's password after checking the current one.
// Every token issued to the user before the change stops working; the returned
// session carries a fresh token.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) (*Session, error) {
	if err := validateDoc(passwordValidator, map[string]interface{}{"password": newPassword}); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err, "user not found")
	}
	ok, err := auth.CheckPassword(user.PasswordHash, currentPassword)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalid("current_password: is incorrect.")
	}
	hash, err := s.hash(newPassword)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, mapStoreError(err, "user not found")
	}
	if err := s.revokeAll(ctx, user.ID); err != nil {
		return nil, err
	}

	token, _, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	s.log.Info("password changed", "user_id", user.ID)
	return &Session{Token: token, User: user}, nil
}

// DeleteAccount removes the user together with its tasks and categories.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uint) error {
	removed, err := s.users.Delete(ctx, userID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("user not found: %w", ErrNotFound)
	}
	// Ids may be reused by the store; tokens of the deleted account must not
	// carry over to a later one.
	if err := s.revokeAll(ctx, userID); err != nil {
		return err
	}
	s.log.Info("user deleted", "user_id", userID)
	return nil
}

// revokeAll invalidates every token the user holds. The cutoff is millisecond
// precise to match token issue times.
func (s *AuthService) revokeAll(ctx context.Context, userID uint) error {
	cutoff := time.Now().Truncate(time.Millisecond)
	return s.denylist.RevokeUser(ctx, userID, cutoff, s.tokens.TTL())
}

func (s *AuthService) hash(password string) (string, error) {
	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", invalid("password: must be at most 72 bytes.")
	}
	return hash, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// mapStoreError converts repository sentinels into service errors.
func mapStoreError(err error, notFound string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s: %w", notFound, ErrNotFound)
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("resource already exists: %w", ErrConflict)
	case errors.Is(err, repository.ErrInvalidReference):
		return badReference("Category or priority does not exist.")
	case errors.Is(err, repository.ErrConstraint):
		return invalid("A required field is missing.")
	}
	return err
}
