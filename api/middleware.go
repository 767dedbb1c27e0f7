package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const (
	metricsContextKey = "kanban.metrics"
	userContextKey    = "kanban.user"
	anonymousUser     = "anonymous"
)

// RequestMetrics opens a span for every request and logs one observability
// event when the handler returns.
func RequestMetrics(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()
			m, ctx := newRequestMetrics(req.Context(), logger, req.Method, c.Path())
			c.SetRequest(req.WithContext(ctx))
			c.Set(metricsContextKey, m)
			defer func() {
				status := c.Response().Status
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
				m.Log(status, err)
			}()
			return next(c)
		}
	}
}

// RequireAuth rejects requests without a valid bearer token. A nil
// Authenticator lets every request through as the anonymous user.
func RequireAuth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if auth == nil {
				c.Set(userContextKey, anonymousUser)
				return next(c)
			}
			m := metricsFor(c)
			start := time.Now()
			userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
			m.ObserveAuth(time.Since(start))
			if err != nil {
				m.SetErrorStage("auth")
				return c.JSON(http.StatusUnauthorized, envelope{Success: false, Message: err.Error()})
			}
			c.Set(userContextKey, userID)
			return next(c)
		}
	}
}

func metricsFor(c echo.Context) *requestMetrics {
	m, _ := c.Get(metricsContextKey).(*requestMetrics)
	return m
}

func userFor(c echo.Context) string {
	if u, ok := c.Get(userContextKey).(string); ok && u != "" {
		return u
	}
	return anonymousUser
}
