package http

import (
	"net/http"
	"strconv"

	"batch-runner/internal/batch/dto"
	"batch-runner/internal/entity"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"

	contextKeyUserID  = "caller_user_id"
	contextKeyIsAdmin = "caller_is_admin"
)

// Identity resolves the caller from the headers set by the authenticating
// reverse proxy in front of this service. Requests without a user id are
// rejected; the engine itself performs no authentication.
func Identity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := strconv.ParseUint(c.Request().Header.Get(headerUserID), 10, 32)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "missing or invalid user identity"})
			}
			c.Set(contextKeyUserID, uint(userID))
			c.Set(contextKeyIsAdmin, c.Request().Header.Get(headerUserRole) == string(entity.RoleAdmin))
			return next(c)
		}
	}
}

// RateLimit applies a token-bucket limit, used on the execute endpoint to
// keep a misbehaving client from fork-bombing the host.
func RateLimit(rps float64, burst int) echo.MiddlewareFunc {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiter.Allow() {
				return c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{Error: "too many execution requests"})
			}
			return next(c)
		}
	}
}

func caller(c echo.Context) (uint, bool) {
	userID, _ := c.Get(contextKeyUserID).(uint)
	isAdmin, _ := c.Get(contextKeyIsAdmin).(bool)
	return userID, isAdmin
}
