package handler

import (
	"context"
	"net/http"

	"github.com/oxhollow/ferrite/internal/store"
	"github.com/labstack/echo/v4"
)

type SessionUserServicer interface {
	GetUserBySessionID(ctx context.Context, sessionID string) (*store.User, error)
}

type SessionCookieServicer interface {
	GetSessionID(c echo.Context) (string, error)
}

// SessionMiddleware resolves the session cookie into a user and stores it
// on the request context. Requests without a valid session pass through
// with no user set.
func SessionMiddleware(
	userService SessionUserServicer,
	cookieService SessionCookieServicer,
) func(next echo.HandlerFunc) echo.HandlerFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sessionID, err := cookieService.GetSessionID(c)
			if err != nil {
				return next(c)
			}
			u, err := userService.GetUserBySessionID(c.Request().Context(), sessionID)
			if err != nil {
				return next(c)
			}
			c.Set("user", u)
			return next(c)
		}
	}
}

func IsAuthenticated(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := getCtxUser(c)
		if user == nil {
			return newError(c, nil, http.StatusUnauthorized, "not logged in")
		}
		if user.PasswordChangedOn == nil || user.PasswordChangedOn.IsZero() {
			return newError(c, nil, http.StatusForbidden, "password must be set before use")
		}
		return next(c)
	}
}

func RoleMiddleware(requiredRole store.Role) func(next echo.HandlerFunc) echo.HandlerFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := getCtxUser(c)
			if u == nil || int64(u.UserRoleID) < int64(requiredRole) {
				return newError(c, nil,
					http.StatusForbidden,
					"invalid permissions",
				)
			}
			return next(c)
		}
	}
}
