package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/darasahq/darasa/core/user"
)

// operationMiddleware gates a route on the role capability table; handlers
// never compare role strings.
func operationMiddleware(op user.Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if user.RoleCan(claims.Role, op) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return operationMiddleware(user.OpUserManage)
}
