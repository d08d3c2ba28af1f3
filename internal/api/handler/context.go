package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tradedesk/auth-service/internal/api/middleware"
	"github.com/tradedesk/auth-service/internal/core/domain"
)

// errorResponse documents the error envelope rendered by the API error handler.
type errorResponse struct {
	Msg string `json:"msg"`
}

var errInvalidBody = echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")

// ctxUser returns the user attached by the auth middleware. A missing user
// means the route was mounted without the middleware; treat it as
// unauthenticated rather than panic.
func ctxUser(c echo.Context) (*domain.User, error) {
	user := middleware.CurrentUser(c)
	if user == nil {
		return nil, domain.ErrMissingToken
	}
	return user, nil
}
