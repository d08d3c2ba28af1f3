package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tradedesk/auth-service/internal/core/domain"
)

type DashboardHandler struct{}

func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

type dashboardResponse struct {
	Message string          `json:"message"`
	User    domain.SafeUser `json:"user"`
}

// Show greets the authenticated user.
//
// @Summary      Dashboard
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dashboardResponse
// @Failure      401  {object}  errorResponse
// @Router       /dashboard [get]
func (h *DashboardHandler) Show(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dashboardResponse{Message: "Welcome to dashboard", User: user.Safe()})
}
