package scheduling

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carelog/carelog/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/scheduling", auth.RequireRole("admin", "ops_manager", "supervisor"))
	g.GET("/bulk", h.PreviewBulk)
	g.POST("/bulk", h.CommitBulk)
}

// PreviewBulk is the read-only projection: same parameters as the commit,
// passed as query parameters.
func (h *Handler) PreviewBulk(c echo.Context) error {
	req, err := bulkRequestFromQuery(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	preview, err := h.svc.PreviewBulk(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, preview)
}

func (h *Handler) CommitBulk(c echo.Context) error {
	var req BulkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	companyID, err := uuid.Parse(auth.CompanyIDFromContext(ctx))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing company context")
	}

	res, err := h.svc.CommitBulk(ctx, req, auth.UserIDFromContext(ctx), companyID)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, res)
}

func bulkRequestFromQuery(c echo.Context) (BulkRequest, error) {
	var req BulkRequest
	var err error

	if req.ClientID, err = uuid.Parse(c.QueryParam("clientId")); err != nil {
		return req, errors.New("invalid clientId")
	}
	if req.CaregiverID, err = uuid.Parse(c.QueryParam("carerId")); err != nil {
		return req, errors.New("invalid carerId")
	}
	req.StartDate = c.QueryParam("startDate")
	req.StartTime = c.QueryParam("startTime")
	req.EndTime = c.QueryParam("endTime")

	if req.NumberOfWeeks, err = strconv.Atoi(c.QueryParam("numberOfWeeks")); err != nil {
		return req, errors.New("invalid numberOfWeeks")
	}
	for _, part := range strings.Split(c.QueryParam("selectedDays"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil {
			return req, errors.New("invalid selectedDays, want comma-separated weekday numbers")
		}
		req.SelectedDays = append(req.SelectedDays, d)
	}
	return req, nil
}
