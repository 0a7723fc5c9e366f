package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/davitm/taskboard/internal/config"
	"github.com/davitm/taskboard/internal/repository"
	"github.com/davitm/taskboard/internal/utils"
	"github.com/davitm/taskboard/internal/validation"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Users UserStore
}

func NewAuthHandler(cfg config.Config, users UserStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users}
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	Token string `json:"token"`
	Msg   string `json:"msg"`
}

// Register creates an account and returns a bearer token immediately.
// Email is normalized to lowercase; the password is bcrypt-hashed and
// the plaintext never persisted or logged. Duplicate emails are checked
// before the insert, with the store's UNIQUE constraint closing the
// race between concurrent registrations.
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"msg": "Invalid request body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"msg": "Email and password are required"})
	}
	email, err := validation.Email(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"msg": "Please provide a valid email address"})
	}
	if err := validation.Password(req.Password); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"msg": "Password must be at least 6 characters long"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.GetByEmail(ctx, email); err == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"msg": "User already exists with this email"})
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		log.Printf("register: email lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"msg": "Server error during registration"})
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		log.Printf("register: hash failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"msg": "Server error during registration"})
	}

	uid, err := h.Users.Create(ctx, email, hash)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"msg": "User already exists with this email"})
		}
		log.Printf("register: create user failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"msg": "Server error during registration"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, uid, h.Cfg.TokenTTLDays)
	if err != nil {
		log.Printf("register: issue token failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"msg": "Server error during registration"})
	}

	return c.JSON(http.StatusCreated, tokenResp{Token: access.Token, Msg: "Registration successful"})
}

// Login verifies credentials and returns a fresh token. Failures are
// reported with one generic message whether the email is unknown or the
// password wrong, so accounts cannot be enumerated.
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"msg": "Invalid request body"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"msg": "Email and password are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"msg": "Invalid email or password"})
		}
		log.Printf("login: email lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"msg": "Server error during login"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"msg": "Invalid email or password"})
	}

	// Best effort: a failed timestamp write must not fail the login.
	if err := h.Users.TouchLastLogin(ctx, u.ID); err != nil {
		log.Printf("login: touch last_login failed: %v", err)
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, h.Cfg.TokenTTLDays)
	if err != nil {
		log.Printf("login: issue token failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"msg": "Server error during login"})
	}

	return c.JSON(http.StatusOK, tokenResp{Token: access.Token, Msg: "Login successful"})
}
