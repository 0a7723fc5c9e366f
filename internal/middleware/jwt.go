// Package middleware provides shared request processing for handlers.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/davitm/taskboard/internal/utils"
)

// TokenHeader is the header the web client sends the bearer credential in.
const TokenHeader = "x-auth-token"

// UserIDKey is the context key the guard stores the resolved user id
// under. Handlers read it via c.Get.
const UserIDKey = "user_id"

// JWTAuth returns an Echo middleware that verifies the bearer token on
// every request and injects the embedded user id into the context.
// Requests with an absent, malformed, expired or badly signed token are
// rejected with 401 before any handler runs; handlers never trust a
// caller-supplied identity from the body or params.
//
// The token is read from the x-auth-token header; a standard
// "Authorization: Bearer" header is accepted as a fallback.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := strings.TrimSpace(c.Request().Header.Get(TokenHeader))
			if raw == "" {
				if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					raw = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
				}
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"msg": "no token, authorization denied"})
			}

			uid, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				if errors.Is(err, utils.ErrTokenExpired) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"msg": "token expired"})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"msg": "token is not valid"})
			}

			c.Set(UserIDKey, uid)
			return next(c)
		}
	}
}
