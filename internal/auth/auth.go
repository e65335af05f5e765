package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/promptdeck/promptdeck/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
)

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest represents a signup request
type RegisterRequest struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required,min=8"`
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"display_name"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Authenticator resolves a Principal for each request.
type Authenticator interface {
	// Login authenticates a user and returns a JWT token
	Login(username, password string) (*LoginResponse, error)

	// Register creates a new user account and returns a token for it
	Register(req RegisterRequest) (*LoginResponse, error)

	// Middleware returns a Gin middleware that rejects unauthenticated requests
	Middleware() gin.HandlerFunc

	// OptionalMiddleware resolves the principal when a token is present but
	// lets anonymous requests through
	OptionalMiddleware() gin.HandlerFunc
}

// CurrentUser extracts the authenticated user from the Gin context.
// Returns nil for anonymous requests.
func CurrentUser(c *gin.Context) *models.User {
	v, exists := c.Get(UserContextKey)
	if !exists {
		return nil
	}
	user, ok := v.(*models.User)
	if !ok {
		return nil
	}
	return user
}
