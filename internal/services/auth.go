package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/localnerve/retroboard/internal/models"
	"github.com/localnerve/retroboard/internal/store"
	"github.com/localnerve/retroboard/internal/types"
)

// Session is returned by sign in and sign up
type Session struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Claims are the session token claims
type Claims struct {
	Role           string `json:"role"`
	SessionVersion int64  `json:"sv"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer builds an issuer; ttl defaults to a day
func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: secret, ttl: ttl}
}

// Issue signs a token for user
func (t *TokenIssuer) Issue(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:           user.Role,
		SessionVersion: user.SessionVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse verifies signature and expiry of a token
func (t *TokenIssuer) Parse(tokenValue string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenValue, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

func (s *Service) newSession(user *models.User) (*Session, error) {
	token, err := s.Tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{User: user, Token: token}, nil
}

// SignIn starts a session for an existing email
func (s *Service) SignIn(ctx context.Context, email string) (*Session, error) {
	email, err := types.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	user, err := s.Store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	ts := s.now()
	user.LastLoginAt = &ts
	if err := s.Store.UpdateUser(ctx, user); err != nil {
		return nil, storeError(err)
	}
	return s.newSession(user)
}

// SignUp creates a user and starts a session. The very first user becomes admin.
func (s *Service) SignUp(ctx context.Context, email, name string) (*Session, error) {
	email, err := types.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	n, err := s.Store.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	role := models.RoleUser
	if n == 0 {
		role = models.RoleAdmin
	}

	ts := s.now()
	user := &models.User{
		ID:          uuid.NewString(),
		Email:       email,
		Name:        name,
		Role:        role,
		LastLoginAt: &ts,
	}
	if err := s.Store.CreateUser(ctx, user); err != nil {
		return nil, storeError(err)
	}
	if role == models.RoleAdmin {
		log.Printf("First user %s created with the admin role", user.Email)
	}
	return s.newSession(user)
}

// SignOut records the logout and bumps the session version, so every token
// issued before it stops working regardless of clock precision.
func (s *Service) SignOut(ctx context.Context, actor *models.User, userID string) error {
	user, err := s.actingAs(ctx, actor, userID)
	if err != nil {
		return err
	}
	ts := s.now()
	user.LastLogoutAt = &ts
	user.SessionVersion++
	return storeError(s.Store.UpdateUser(ctx, user))
}

// Authenticate resolves a session token to its user
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return nil, ErrUnauthorized
	}
	user, err := s.Store.GetUser(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnauthorized
	}
	if claims.SessionVersion != user.SessionVersion {
		return nil, ErrUnauthorized
	}
	return user, nil
}

// CurrentUser is Authenticate without the error: nil when the token is not valid
func (s *Service) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	user, err := s.Authenticate(ctx, token)
	if errors.Is(err, ErrUnauthorized) {
		return nil, nil
	}
	return user, err
}

// ListUsers returns every user
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.Store.ListUsers(ctx)
}

// GetUser returns a user or nil
func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.Store.GetUser(ctx, id)
}

// CreateUser adds a user from the admin panel
func (s *Service) CreateUser(ctx context.Context, req types.UserRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Email == nil {
		return nil, types.BadRequest("email is required")
	}
	email, err := types.NormalizeEmail(*req.Email)
	if err != nil {
		return nil, err
	}
	user := &models.User{ID: uuid.NewString(), Email: email, Role: models.RoleUser}
	applyUserRequest(user, req)
	if err := s.Store.CreateUser(ctx, user); err != nil {
		return nil, storeError(err)
	}
	return user, nil
}

// UpdateUser edits profile fields and role
func (s *Service) UpdateUser(ctx context.Context, id string, req types.UserRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	user, err := s.Store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	if req.Email != nil {
		email, err := types.NormalizeEmail(*req.Email)
		if err != nil {
			return nil, err
		}
		user.Email = email
	}
	applyUserRequest(user, req)
	if err := s.Store.UpdateUser(ctx, user); err != nil {
		return nil, storeError(err)
	}
	return user, nil
}

func applyUserRequest(user *models.User, req types.UserRequest) {
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}
}

// DeleteUser removes a user; their cards keep the author snapshot
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	err := s.Store.DeleteUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
