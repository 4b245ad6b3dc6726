package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/storehub/admin-identity/internal/core/domain"
)

func TestRoleHandler_List(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/roles", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := NewRoleHandler().List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var roles []roleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &roles); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	want := []string{"Administrator", "AdminStore", "AdminEmployee"}
	if len(roles) != len(want) {
		t.Fatalf("expected %d roles, got %d", len(want), len(roles))
	}
	for i, name := range want {
		if roles[i].Name != name {
			t.Fatalf("role %d: expected %s, got %s", i, name, roles[i].Name)
		}
	}
}

func TestRoleHandler_Get(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/roles/AdminStore", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("name")
	c.SetParamValues("AdminStore")

	if err := NewRoleHandler().Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var role roleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &role); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if role.Name != "AdminStore" {
		t.Fatalf("unexpected role: %+v", role)
	}
}

// Lookup is exact and case-sensitive.
func TestRoleHandler_Get_Unknown(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/roles/adminstore", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("name")
	c.SetParamValues("adminstore")

	if err := NewRoleHandler().Get(c); err != domain.ErrRoleNotFound {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}
