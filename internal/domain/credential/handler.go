package credential

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carelog/carelog/internal/platform/auth"
	"github.com/carelog/carelog/internal/platform/clock"
	"github.com/carelog/carelog/pkg/pagination"
)

// Handler exposes the externally-triggered credential sweep. The endpoint
// sits outside the authenticated API group and is guarded by a shared cron
// secret instead of a user token.
type Handler struct {
	svc        *Service
	clk        clock.Clock
	cronSecret string
}

func NewHandler(svc *Service, clk clock.Clock, cronSecret string) *Handler {
	return &Handler{svc: svc, clk: clk, cronSecret: cronSecret}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/cron/check-credentials", h.CheckCredentials)
}

// RegisterAPIRoutes adds the authenticated ops surface.
func (h *Handler) RegisterAPIRoutes(api *echo.Group) {
	api.GET("/credentials/:id/alerts",
		h.ListAlerts, auth.RequireRole("admin", "ops_manager"))
}

func (h *Handler) CheckCredentials(c echo.Context) error {
	header := c.Request().Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || h.cronSecret == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) != 1 {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid cron secret")
	}

	res := h.svc.CheckAllCredentials(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]any{
		"success":   len(res.Errors) == 0,
		"timestamp": h.clk.Now(),
		"results":   res,
	})
}

func (h *Handler) ListAlerts(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	alerts, total, err := h.svc.ListAlerts(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(alerts, total, pg.Limit, pg.Offset))
}
