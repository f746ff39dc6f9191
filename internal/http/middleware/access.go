package middleware

import (
	"net/http"

	echo "github.com/labstack/echo/v4"

	"github.com/mnavarrete/customers-api/internal/model"
)

func isReadMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

// ReadOpenWriteAdmin is the base endpoint policy: read verbs always pass,
// write verbs require a staff account. A trusted-service caller writes
// unconditionally; this capability replaces the old origin-header allow-list,
// which was client-supplied and spoofable.
func ReadOpenWriteAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isReadMethod(c.Request().Method) {
				return next(c)
			}
			if IsTrustedService(c) {
				return next(c)
			}
			acc, ok := AccountFromCtx(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			}
			if !acc.Staff {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "operation not permitted"})
			}
			return next(c)
		}
	}
}

// StaffOnlyCreate restricts POST to staff accounts when enabled. Used as an
// endpoint-specific variant on top of the base policy.
func StaffOnlyCreate(enabled bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !enabled || c.Request().Method != http.MethodPost {
				return next(c)
			}
			if IsTrustedService(c) {
				return next(c)
			}
			acc, ok := AccountFromCtx(c)
			if !ok || !acc.Staff {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "only staff may create customers"})
			}
			return next(c)
		}
	}
}

// CanModify implements the owner-or-admin object rule: staff and trusted
// services may modify anything, an authenticated caller may modify records it
// owns.
func CanModify(c echo.Context, customer *model.Customer) bool {
	if isReadMethod(c.Request().Method) {
		return true
	}
	if IsTrustedService(c) {
		return true
	}
	acc, ok := AccountFromCtx(c)
	if !ok {
		return false
	}
	if acc.Staff {
		return true
	}
	return customer.OwnerID != nil && *customer.OwnerID == acc.ID
}
