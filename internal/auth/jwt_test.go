package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/promptdeck/promptdeck/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAuth(t *testing.T) *JWTAuthenticator {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewJWTAuthenticator(db, "test-secret")
}

func TestRegisterAndLogin(t *testing.T) {
	a := setupAuth(t)

	resp, err := a.Register(RegisterRequest{
		Username: "alice",
		Password: "correct horse battery",
		Email:    "alice@example.com",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if resp.Token == "" {
		t.Error("Register should return a token")
	}
	if resp.User.PasswordHash == "correct horse battery" {
		t.Error("password must not be stored in plaintext")
	}

	login, err := a.Login("alice", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if login.User.Username != "alice" {
		t.Errorf("unexpected user %q", login.User.Username)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	a := setupAuth(t)

	if _, err := a.Register(RegisterRequest{Username: "bob", Password: "hunter2hunter2", Email: "bob@example.com"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := a.Login("bob", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := a.Login("nobody", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestMiddlewareResolvesPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := setupAuth(t)

	resp, err := a.Register(RegisterRequest{Username: "carol", Password: "s3cret-s3cret", Email: "carol@example.com"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	router := gin.New()
	router.GET("/whoami", a.Middleware(), func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, user.Username)
	})

	// Bearer header.
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "carol" {
		t.Errorf("bearer auth: status %d body %q", w.Code, w.Body.String())
	}

	// Query fallback used by EventSource clients.
	req = httptest.NewRequest(http.MethodGet, "/whoami?token="+resp.Token, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("query token auth: status %d", w.Code)
	}

	// No token at all: rejected with the structured error envelope.
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing token: expected 401, got %d", w.Code)
	}
	var envelope struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("401 body is not a valid envelope: %v (%s)", err, w.Body.String())
	}
	if envelope.Success || envelope.Error.Code != "UNAUTHORIZED" || envelope.Error.Message == "" {
		t.Errorf("unexpected 401 envelope: %s", w.Body.String())
	}

	// Garbage token.
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("invalid token: expected 401, got %d", w.Code)
	}
}

func TestOptionalMiddlewareAllowsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := setupAuth(t)

	router := gin.New()
	router.GET("/maybe", a.OptionalMiddleware(), func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, "identified")
	})

	req := httptest.NewRequest(http.MethodGet, "/maybe", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "anonymous" {
		t.Errorf("anonymous request: status %d body %q", w.Code, w.Body.String())
	}

	// A broken token degrades to anonymous instead of failing the request.
	req = httptest.NewRequest(http.MethodGet, "/maybe", nil)
	req.Header.Set("Authorization", "Bearer junk")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "anonymous" {
		t.Errorf("broken token: status %d body %q", w.Code, w.Body.String())
	}
}
