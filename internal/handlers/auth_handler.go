package handlers

import (
	"errors"
	"fmt"

	"etalase/internal/auth"
	"etalase/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *auth.Service
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)

	required := middleware.TokenRequired(h.authService)
	authRoutes.Post("/logout", required, h.HandleLogout)
	authRoutes.Get("/me", required, h.HandleMe)
}

// CredentialsRequest represents the request body for register and login.
type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (h *AuthHandler) parseCredentials(c *fiber.Ctx) (*CredentialsRequest, error) {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		log.Debug().Err(err).Msg("error parsing credentials body")
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		errorMessages := make(map[string]string)
		if errors.As(err, &validationErrors) {
			for _, e := range validationErrors {
				errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
			}
		}
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}
	return &req, nil
}

// HandleRegister creates a credential and returns a session for it.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	req, err := h.parseCredentials(c)
	if req == nil {
		return err
	}

	sess, err := h.authService.Register(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateIdentity) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Registration failed",
				"error":   err.Error(),
			})
		}
		log.Error().Err(err).Str("email", req.Email).Msg("error registering credential")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not register user",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"uid":   sess.UID,
		"email": sess.Email,
		"token": sess.Token,
	})
}

// HandleLogin checks credentials and issues a token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	req, err := h.parseCredentials(c)
	if req == nil {
		return err
	}

	sess, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		log.Info().Str("email", req.Email).Msg("login rejected")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authentication failed",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"uid":   sess.UID,
		"email": sess.Email,
		"token": sess.Token,
	})
}

// HandleLogout revokes the presented token.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	if token, ok := c.Locals(middleware.LocalToken).(string); ok {
		h.authService.Revoke(token)
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// HandleMe returns the identity behind the presented token.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"uid":   c.Locals(middleware.LocalUID),
		"email": c.Locals(middleware.LocalEmail),
	})
}
