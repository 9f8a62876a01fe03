package handlers

import (
	"smooth/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/signup", h.HandleSignUp)
	authRoutes.Post("/login", h.HandleLogin)
}

// CredentialsRequest is the body of sign up and login.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleSignUp registers an account and returns its session.
func (h *AuthHandler) HandleSignUp(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}

	session, err := h.authService.SignUp(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, h.logger, "Registration failed", err)
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}

// HandleLogin signs an account in and returns its session.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}

	session, err := h.authService.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, h.logger, "Authentication failed", err)
	}
	return c.JSON(session)
}
