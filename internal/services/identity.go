package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"smooth/internal/models"
	"smooth/internal/repositories"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUserNotFound is returned when no account exists for an email.
	ErrUserNotFound       = repositories.ErrUserNotFound
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
)

// IdentityProvider authenticates accounts by email and password and returns
// the account's user id.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (string, error)
	SignUp(ctx context.Context, email, password string) (string, error)
}

// AccountChecker is implemented by providers that can confirm an account
// still exists.
type AccountChecker interface {
	CheckAccount(ctx context.Context, uid string) error
}

// LocalIdentityProvider keeps accounts in a UserRepository with bcrypt
// password hashes.
type LocalIdentityProvider struct {
	users repositories.UserRepository
}

// NewLocalIdentityProvider creates a LocalIdentityProvider.
func NewLocalIdentityProvider(users repositories.UserRepository) *LocalIdentityProvider {
	return &LocalIdentityProvider{users: users}
}

func (p *LocalIdentityProvider) SignIn(_ context.Context, email, password string) (string, error) {
	user, err := p.users.GetByEmail(email)
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return user.ID, nil
}

// CheckAccount returns ErrUserNotFound once the account was removed.
func (p *LocalIdentityProvider) CheckAccount(_ context.Context, uid string) error {
	_, err := p.users.GetByID(uid)
	return err
}

func (p *LocalIdentityProvider) SignUp(_ context.Context, email, password string) (string, error) {
	existing, err := p.users.GetByEmail(email)
	if err == nil && existing != nil {
		return "", fmt.Errorf("%s: %w", email, ErrEmailTaken)
	}
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{Email: email, PasswordHash: string(hash)}
	if err := p.users.Create(user); err != nil {
		return "", err
	}
	return user.ID, nil
}

// FirebaseIdentityProvider signs accounts in against the Identity Toolkit
// REST API.
type FirebaseIdentityProvider struct {
	baseURL string
	apiKey  string
	timeout time.Duration
}

// NewFirebaseIdentityProvider creates a provider for the given endpoint,
// usually https://identitytoolkit.googleapis.com/v1.
func NewFirebaseIdentityProvider(baseURL, apiKey string, timeout time.Duration) (*FirebaseIdentityProvider, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid identity url %q: %w", baseURL, err)
	}
	if apiKey == "" {
		return nil, errors.New("firebase api key is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FirebaseIdentityProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
	}, nil
}

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type identityResponse struct {
	LocalID string `json:"localId"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *FirebaseIdentityProvider) SignIn(ctx context.Context, email, password string) (string, error) {
	return p.call(ctx, "accounts:signInWithPassword", email, password)
}

func (p *FirebaseIdentityProvider) SignUp(ctx context.Context, email, password string) (string, error) {
	return p.call(ctx, "accounts:signUp", email, password)
}

func (p *FirebaseIdentityProvider) call(ctx context.Context, method, email, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	endpoint := fmt.Sprintf("%s/%s?key=%s", p.baseURL, method, url.QueryEscape(p.apiKey))

	a := fiber.Post(endpoint)
	a.JSON(passwordRequest{Email: email, Password: password, ReturnSecureToken: true})
	a.Timeout(p.timeout)
	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return "", fmt.Errorf("identity request failed: %w", errors.Join(errs...))
	}

	var resp identityResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode identity response (status %d): %w", code, err)
	}
	if resp.Error != nil {
		return "", identityError(resp.Error.Message)
	}
	if code != fiber.StatusOK || resp.LocalID == "" {
		return "", fmt.Errorf("identity request failed: status %d", code)
	}
	return resp.LocalID, nil
}

// identityError maps Identity Toolkit error codes such as
// "INVALID_PASSWORD" or "TOO_MANY_ATTEMPTS_TRY_LATER : ..." onto our errors.
func identityError(message string) error {
	code := strings.TrimSpace(strings.SplitN(message, ":", 2)[0])
	switch code {
	case "EMAIL_NOT_FOUND":
		return ErrUserNotFound
	case "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED":
		return fmt.Errorf("%s: %w", code, ErrInvalidCredentials)
	case "EMAIL_EXISTS":
		return ErrEmailTaken
	default:
		return fmt.Errorf("identity provider: %s", message)
	}
}
