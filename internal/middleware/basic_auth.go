package middleware

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

const basicAuthRealm = "iron-shelf"

// BasicAuth protects the UI and the JSON API with one static account.
// Liveness and metrics stay public for health checks and scrapers.
func BasicAuth(username, password string) echo.MiddlewareFunc {
	return echoMiddleware.BasicAuthWithConfig(echoMiddleware.BasicAuthConfig{
		Realm: basicAuthRealm,
		Skipper: func(c echo.Context) bool {
			switch c.Request().URL.Path {
			case "/health", "/metrics":
				return true
			}
			return false
		},
		Validator: func(user, pass string, c echo.Context) (bool, error) {
			userOK := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
			passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
			return userOK && passOK, nil
		},
	})
}
