// Package router defines how HTTP routes are registered for the API.
package router

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/davitm/taskboard/internal/handler"
	"github.com/davitm/taskboard/internal/middleware"
)

// Register wires every route on the provided Echo instance.
//
//	POST /api/auth/register        – create account, returns token
//	POST /api/auth/login           – verify credentials, returns token
//	GET  /api/tasks                – list (optional status/search/sort projection)
//	POST /api/tasks                – create
//	GET  /api/tasks/:id            – fetch one
//	PUT  /api/tasks/:id            – partial update
//	DELETE /api/tasks/:id          – delete
//	GET  /api/tasks/stats/summary  – derived stats
//	GET  /api/health               – liveness
//
// Everything under /api/tasks runs behind the JWT guard; the cache
// middleware (when configured) runs after it so keys are user-scoped.
func Register(e *echo.Echo, a *handler.AuthHandler, t *handler.TaskHandler, jwtSecret string, cache *middleware.TaskCache) {
	e.GET("/api/health", handler.Health)

	auth := e.Group("/api/auth")
	auth.POST("/register", a.Register)
	auth.POST("/login", a.Login)

	tasks := e.Group("/api/tasks")
	tasks.Use(middleware.JWTAuth(jwtSecret))
	if cache != nil {
		tasks.Use(cache.Middleware())
	}
	tasks.GET("", t.List)
	tasks.POST("", t.Create)
	tasks.GET("/stats/summary", t.Stats)
	tasks.GET("/:id", t.Get)
	tasks.PUT("/:id", t.Update)
	tasks.DELETE("/:id", t.Delete)
}

// NewErrorHandler returns an echo.HTTPErrorHandler producing the generic
// bodies the API promises: unmatched routes get a plain 404, anything
// unexpected a plain 500 with the detail logged server-side. The detail
// is echoed back only outside production.
func NewErrorHandler(isProd bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}
		switch {
		case code == http.StatusNotFound:
			_ = c.JSON(code, echo.Map{"msg": "Route not found"})
		case code >= http.StatusInternalServerError:
			log.Printf("internal error on %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
			body := echo.Map{"msg": "Internal Server Error"}
			if !isProd {
				body["error"] = err.Error()
			}
			_ = c.JSON(code, body)
		default:
			_ = c.JSON(code, echo.Map{"msg": http.StatusText(code)})
		}
	}
}
