package middlewares

import (
	"crypto/subtle"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/outreach-sequencer/pkg/response"
)

const (
	APIKeyHeader = "x-api-key"
)

// secureCompare compares two strings in a way that is safer against timing attacks.
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// APIKeyAuth accepts a request carrying any of the configured keys. Empty
// keys are ignored; a group with no key at all is a server misconfiguration.
func APIKeyAuth(keys ...string) echo.MiddlewareFunc {
	accepted := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			accepted = append(accepted, k)
		}
	}

	if len(accepted) == 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return response.InternalServerError(
					c,
					fmt.Errorf("API key is not configured for this endpoint group"),
				)
			}
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get(APIKeyHeader)
			if token == "" {
				return response.Unauthorized(c)
			}

			matched := false
			for _, k := range accepted {
				// no early exit, every key is compared
				if secureCompare(token, k) {
					matched = true
				}
			}
			if !matched {
				return response.Unauthorized(c)
			}

			return next(c)
		}
	}
}
