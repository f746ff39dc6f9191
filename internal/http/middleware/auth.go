package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/mnavarrete/customers-api/internal/model"
	"github.com/mnavarrete/customers-api/internal/repository"
)

const (
	ctxAccount        = "account"
	ctxTrustedService = "trusted_service"
)

// AccountFromCtx extracts the authenticated account set by AuthMiddleware, if
// any.
func AccountFromCtx(c echo.Context) (*model.Account, bool) {
	a, ok := c.Get(ctxAccount).(*model.Account)
	return a, ok && a != nil
}

// IsTrustedService reports whether the request presented a configured service
// token.
func IsTrustedService(c echo.Context) bool {
	v, _ := c.Get(ctxTrustedService).(bool)
	return v
}

// AuthMiddleware resolves the optional X-API-Key header into an account and
// checks X-Service-Token against the configured capability list. Requests
// without credentials continue as anonymous: reads are public, and the access
// policies decide what anonymous callers may do.
func AuthMiddleware(accounts repository.AccountsRepository, serviceTokens []string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if tok := strings.TrimSpace(c.Request().Header.Get("X-Service-Token")); tok != "" {
				c.Set(ctxTrustedService, matchToken(tok, serviceTokens))
			}

			key := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if key == "" {
				return next(c)
			}
			acc, err := accounts.GetByAPIKey(c.Request().Context(), key)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
			}
			if acc == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			}
			c.Set(ctxAccount, acc)
			return next(c)
		}
	}
}

func matchToken(tok string, configured []string) bool {
	for _, t := range configured {
		if len(t) == len(tok) && subtle.ConstantTimeCompare([]byte(t), []byte(tok)) == 1 {
			return true
		}
	}
	return false
}
