package shift

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carelog/carelog/internal/domain/evv"
	"github.com/carelog/carelog/internal/platform/auth"
	"github.com/carelog/carelog/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/shifts")

	manage := g.Group("", auth.RequireRole("admin", "ops_manager", "supervisor"))
	manage.POST("", h.Create)
	manage.DELETE("/:id", h.Cancel)

	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/attendance", h.Attendance)
	g.POST("/:id/check-in", h.CheckIn)
	g.POST("/:id/check-out", h.CheckOut)
}

type checkRequest struct {
	Location *evv.Reading `json:"location,omitempty"`
	Final    *bool        `json:"final,omitempty"`
}

type checkResponse struct {
	Shift               *Shift      `json:"shift"`
	Attendance          *Attendance `json:"attendance"`
	EVVStatus           string      `json:"evvStatus"`
	EVVIsWithinGeofence bool        `json:"evvIsWithinGeofence"`
	DistanceFromClient  float64     `json:"distanceFromClient"`
	EVVMessage          string      `json:"evvMessage,omitempty"`
}

func newCheckResponse(res *CheckInResult) checkResponse {
	out := checkResponse{
		Shift:      res.Shift,
		Attendance: res.Attendance,
		EVVStatus:  evv.StatusLocationUnavailable,
	}
	if res.EVV != nil {
		out.EVVStatus = res.EVV.Status
		out.EVVIsWithinGeofence = res.EVV.IsWithinGeofence
		out.DistanceFromClient = res.EVV.DistanceFromClient
		out.EVVMessage = res.EVV.Message
	}
	return out
}

func (h *Handler) CheckIn(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid shift id")
	}
	var req checkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	callerID := auth.UserIDFromContext(c.Request().Context())
	source := evv.SourceFromUserAgent(c.Request().UserAgent())

	res, err := h.svc.CheckIn(c.Request().Context(), id, callerID, req.Location, source)
	if err != nil {
		return mapAttendanceError(err)
	}
	return c.JSON(http.StatusOK, newCheckResponse(res))
}

func (h *Handler) CheckOut(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid shift id")
	}
	var req checkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// A check-out completes the shift unless the caller marks it as an
	// intermediate day of a multi-day shift.
	final := true
	if req.Final != nil {
		final = *req.Final
	}

	callerID := auth.UserIDFromContext(c.Request().Context())
	source := evv.SourceFromUserAgent(c.Request().UserAgent())

	res, err := h.svc.CheckOut(c.Request().Context(), id, callerID, req.Location, source, final)
	if err != nil {
		return mapAttendanceError(err)
	}
	return c.JSON(http.StatusOK, newCheckResponse(res))
}

func (h *Handler) Create(c echo.Context) error {
	var sh Shift
	if err := c.Bind(&sh); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &sh); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, sh)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid shift id")
	}
	sh, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return mapAttendanceError(err)
	}
	return c.JSON(http.StatusOK, sh)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid shift id")
	}
	actorID := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.Cancel(c.Request().Context(), id, actorID); err != nil {
		return mapAttendanceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Attendance(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid shift id")
	}
	items, err := h.svc.Attendance(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) List(c echo.Context) error {
	caregiverID, err := uuid.Parse(c.QueryParam("caregiver_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "caregiver_id is required")
	}
	from, to, err := parseWindow(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByCaregiver(c.Request().Context(), caregiverID, from, to, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func parseWindow(fromStr, toStr string) (time.Time, time.Time, error) {
	from := time.Time{}
	to := time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	var err error
	if fromStr != "" {
		if from, err = time.Parse("2006-01-02", fromStr); err != nil {
			return from, to, errors.New("invalid from date, want YYYY-MM-DD")
		}
	}
	if toStr != "" {
		if to, err = time.Parse("2006-01-02", toStr); err != nil {
			return from, to, errors.New("invalid to date, want YYYY-MM-DD")
		}
	}
	return from, to, nil
}

func mapAttendanceError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotAssigned):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrAlreadyCheckedIn):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrShiftClosed), errors.Is(err, ErrNotCheckedIn), errors.Is(err, ErrAlreadyCheckedOut):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
