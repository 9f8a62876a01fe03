package services

import (
	"context"
	"fmt"
	"time"

	"smooth/internal/validation"

	"github.com/dgrijalva/jwt-go"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Session is what a successful sign in or sign up hands back.
type Session struct {
	UID   string `json:"uid"`
	Token string `json:"token"`
}

// AuthService checks credentials, delegates to an IdentityProvider and
// issues the JWT that guards the record screens.
type AuthService struct {
	provider      IdentityProvider
	jwtSecret     []byte
	tokenDuration time.Duration
	logger        *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(provider IdentityProvider, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		provider:      provider,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: tokenTTL,
		logger:        logger,
	}
}

// SignIn validates the credentials locally, then asks the provider. Malformed
// input returns validation.Errors without contacting the provider.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (Session, error) {
	if errs := validation.CheckCredentials(email, password); !errs.Valid() {
		return Session{}, errs
	}
	uid, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		s.logger.Info("sign in rejected", zap.String("email", email), zap.Error(err))
		return Session{}, err
	}
	return s.session(uid)
}

// SignUp registers an account and signs it in.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (Session, error) {
	if errs := validation.CheckCredentials(email, password); !errs.Valid() {
		return Session{}, errs
	}
	uid, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		s.logger.Info("sign up rejected", zap.String("email", email), zap.Error(err))
		return Session{}, err
	}
	s.logger.Info("account created", zap.String("uid", uid))
	return s.session(uid)
}

func (s *AuthService) session(uid string) (Session, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid": uid,
		"exp": now.Add(s.tokenDuration).Unix(),
		"iat": now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return Session{}, fmt.Errorf("failed to generate token: %w", err)
	}
	return Session{UID: uid, Token: tokenString}, nil
}

// Authorize validates a session token and returns its uid. Providers that
// implement AccountChecker also confirm the account still exists.
func (s *AuthService) Authorize(ctx context.Context, tokenString string) (string, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	uid := cast.ToString(claims["uid"])
	if uid == "" {
		return "", fmt.Errorf("invalid token: no uid")
	}
	if checker, ok := s.provider.(AccountChecker); ok {
		if err := checker.CheckAccount(ctx, uid); err != nil {
			return "", fmt.Errorf("account %s: %w", uid, err)
		}
	}
	return uid, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		s.logger.Debug("token validation failed", zap.Error(err))
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
