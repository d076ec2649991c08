package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func requestWithRoles(e *echo.Echo, roles []string) echo.Context {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(req.Context(), UserRolesKey, roles)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestRequireRole_Allows(t *testing.T) {
	e := echo.New()
	called := false
	h := RequireRole("supervisor")(func(c echo.Context) error {
		called = true
		return nil
	})

	if err := h(requestWithRoles(e, []string{"supervisor"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
}

func TestRequireRole_AdminBypass(t *testing.T) {
	e := echo.New()
	h := RequireRole("ops_manager")(func(c echo.Context) error { return nil })
	if err := h(requestWithRoles(e, []string{"admin"})); err != nil {
		t.Errorf("admin should pass any role check, got %v", err)
	}
}

func TestRequireRole_Forbidden(t *testing.T) {
	e := echo.New()
	h := RequireRole("supervisor")(func(c echo.Context) error { return nil })
	err := h(requestWithRoles(e, []string{"caregiver"}))
	if err == nil {
		t.Fatal("expected forbidden error")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %v", err)
	}
}
