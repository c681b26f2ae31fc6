package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/damacus/iron-shelf/internal/middleware"
)

const noticeTarget = "#notice"

// IsHTMX reports whether the request was issued by htmx
func IsHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

// HTMXRetarget redirects the swap of this response to selector.
func HTMXRetarget(c echo.Context, selector string) {
	c.Response().Header().Set("HX-Retarget", selector)
	c.Response().Header().Set("HX-Reswap", "innerHTML")
}

// HTMXTrigger fires a client-side event once the response is swapped
func HTMXTrigger(c echo.Context, event string) {
	c.Response().Header().Set("HX-Trigger", event)
}

func csrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.CSRFContextKey).(string)
	return token
}
