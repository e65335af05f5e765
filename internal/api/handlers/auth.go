package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/promptdeck/promptdeck/internal/auth"
)

// Login godoc
// @Summary Authenticate and receive a JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body auth.LoginRequest true "Credentials"
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Router /auth/login [post]
func Login(authenticator auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req auth.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, CodeValidationError, err.Error())
			return
		}

		resp, err := authenticator.Login(req.Username, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				fail(c, http.StatusUnauthorized, CodeUnauthorized, "Invalid username or password")
				return
			}
			slog.Error("login failed", "error", err)
			fail(c, http.StatusInternalServerError, "LOGIN_FAILED", "Internal server error")
			return
		}

		respond(c, http.StatusOK, resp)
	}
}

// Register godoc
// @Summary Create a new account and receive a JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param details body auth.RegisterRequest true "Account details"
// @Success 201 {object} Response
// @Failure 400 {object} Response
// @Router /auth/register [post]
func Register(authenticator auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req auth.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, CodeValidationError, err.Error())
			return
		}

		resp, err := authenticator.Register(req)
		if err != nil {
			slog.Error("registration failed", "username", req.Username, "error", err)
			fail(c, http.StatusBadRequest, "REGISTER_FAILED", "Could not create account")
			return
		}

		respond(c, http.StatusCreated, resp)
	}
}
