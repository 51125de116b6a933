package middleware

import (
	"net/http"
	"strings"

	"viptips-platform/internal/model"
	"viptips-platform/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const userContextKey = "user"

// SessionMiddleware resolves the session's user from a bearer JWT. Requests
// without a valid token proceed as a guest session; route-level guards
// decide what guests may do.
func SessionMiddleware(jwtSecret string, userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := resolveUser(c, jwtSecret, userRepo)
			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

func resolveUser(c echo.Context, jwtSecret string, userRepo repository.UserRepository) *model.User {
	guest := &model.User{Guest: true}

	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return guest
	}
	tokenString := strings.TrimPrefix(auth, "Bearer ")

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return guest
	}

	userID, err := claims.GetSubject()
	if err != nil || userID == "" {
		return guest
	}

	user, err := userRepo.FindByID(c.Request().Context(), userID)
	if err != nil {
		return guest
	}

	return user
}

// UserFromContext returns the session user set by SessionMiddleware.
func UserFromContext(c echo.Context) *model.User {
	user, ok := c.Get(userContextKey).(*model.User)
	if !ok || user == nil {
		return &model.User{Guest: true}
	}
	return user
}

// RequireUser rejects guest sessions.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if UserFromContext(c).Guest {
				return echo.NewHTTPError(http.StatusForbidden, "VIP features require an account")
			}
			return next(c)
		}
	}
}

// RequireAdmin rejects anyone without the admin role.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := UserFromContext(c)
			if user.Guest || user.Role != "admin" {
				return echo.NewHTTPError(http.StatusForbidden, "admin access required")
			}
			return next(c)
		}
	}
}

// IssueSessionToken signs a session JWT for a user.
func IssueSessionToken(jwtSecret, userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
	})
	return token.SignedString([]byte(jwtSecret))
}
