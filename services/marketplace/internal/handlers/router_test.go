package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/nawar-b-tek/booking-app/pkg/auth"
	"github.com/nawar-b-tek/booking-app/pkg/feed"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/repository"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/service"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/testenv"
)

type api struct {
	t     *testing.T
	r     *gin.Engine
	admin *service.AdminSvc
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gdb := testenv.DB(t)
	rdb, _ := testenv.Redis(t)
	f := feed.NewMemory()
	pub := &testenv.Publisher{}

	accounts := repository.NewAccountRepo(gdb)
	sessions := repository.NewSessionRepo(rdb)
	listings := repository.NewListingRepo(gdb)
	reservations := repository.NewReservationRepo(gdb)
	notifications := repository.NewNotificationRepo(gdb)

	s := Services{
		Identity:      service.NewIdentitySvc(accounts, sessions, auth.NewIssuer("test-secret"), pub, f, service.IdentityConfig{}),
		Listings:      service.NewListingSvc(listings, nil, f, "TND"),
		Reservations:  service.NewReservationSvc(listings, reservations, pub, f, "TND"),
		Notifications: service.NewNotificationSvc(notifications, f),
		Admin:         service.NewAdminSvc(accounts, listings, sessions, f),
	}
	return &api{t: t, r: NewRouter(gin.New(), s), admin: s.Admin}
}

func (a *api) do(method, path, token string, body any) (int, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	out := map[string]any{}
	if w.Body.Len() > 0 && strings.HasPrefix(strings.TrimSpace(w.Body.String()), "{") {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			a.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code, out
}

// signup registers email, optionally promotes it, and returns an access token.
func (a *api) signup(email string, role domain.Role) string {
	a.t.Helper()
	code, u := a.do(http.MethodPost, "/v1/auth/register", "", map[string]any{"email": email, "password": "secret1"})
	if code != http.StatusCreated {
		a.t.Fatalf("register %s = %d %v", email, code, u)
	}
	if role != domain.RoleUser {
		if _, err := a.admin.SetRole(context.Background(), u["id"].(string), role); err != nil {
			a.t.Fatal(err)
		}
	}
	code, toks := a.do(http.MethodPost, "/v1/auth/login", "", map[string]any{"email": email, "password": "secret1"})
	if code != http.StatusOK {
		a.t.Fatalf("login %s = %d %v", email, code, toks)
	}
	return toks["access_token"].(string)
}

func TestRegisterIgnoresRequestedRole(t *testing.T) {
	a := newAPI(t)
	code, u := a.do(http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email": "sneaky@example.com", "password": "secret1", "role": "admin",
	})
	if code != http.StatusCreated || u["role"] != "user" {
		t.Fatalf("register = %d %v", code, u)
	}
}

func TestGuardedRoutes(t *testing.T) {
	a := newAPI(t)
	userTok := a.signup("u@example.com", domain.RoleUser)
	adminTok := a.signup("admin@example.com", domain.RoleAdmin)

	code, body := a.do(http.MethodGet, "/v1/admin/stats", "", nil)
	if code != http.StatusUnauthorized || body["redirect"] != "/login?returnUrl=%2Fv1%2Fadmin%2Fstats" {
		t.Fatalf("anonymous = %d %v", code, body)
	}
	code, body = a.do(http.MethodGet, "/v1/admin/stats", userTok, nil)
	if code != http.StatusForbidden || body["redirect"] != "/not-authorized" {
		t.Fatalf("user = %d %v", code, body)
	}
	code, body = a.do(http.MethodPost, "/v1/listings", userTok, map[string]any{"title": "x", "pricePerDay": 10})
	if code != http.StatusForbidden {
		t.Fatalf("user posting listing = %d %v", code, body)
	}
	code, body = a.do(http.MethodPost, "/v1/listings", adminTok, map[string]any{"title": "x", "pricePerDay": 10})
	if code != http.StatusForbidden {
		t.Fatalf("admin on owner route = %d %v", code, body)
	}
	code, body = a.do(http.MethodGet, "/v1/admin/stats", adminTok, nil)
	if code != http.StatusOK || body["totalUsers"] != float64(2) {
		t.Fatalf("admin stats = %d %v", code, body)
	}
}

func TestSessionEndpoint(t *testing.T) {
	a := newAPI(t)
	code, body := a.do(http.MethodGet, "/v1/auth/session", "", nil)
	if code != http.StatusOK || body["session"] != nil {
		t.Fatalf("anonymous session = %d %v", code, body)
	}
	code, body = a.do(http.MethodGet, "/v1/auth/session", "garbage", nil)
	if code != http.StatusOK || body["session"] != nil {
		t.Fatalf("garbage session = %d %v", code, body)
	}

	tok := a.signup("o@example.com", domain.RoleOwner)
	code, body = a.do(http.MethodGet, "/v1/auth/session", tok, nil)
	sess, _ := body["session"].(map[string]any)
	if code != http.StatusOK || sess["role"] != "owner" {
		t.Fatalf("session = %d %v", code, body)
	}

	if code, _ := a.do(http.MethodPost, "/v1/auth/logout", tok, nil); code != http.StatusNoContent {
		t.Fatalf("logout = %d", code)
	}
	if _, body = a.do(http.MethodGet, "/v1/auth/session", tok, nil); body["session"] != nil {
		t.Fatalf("session after logout = %v", body)
	}
}

func TestReservationFlow(t *testing.T) {
	a := newAPI(t)
	ownerTok := a.signup("owner@example.com", domain.RoleOwner)
	renterTok := a.signup("renter@example.com", domain.RoleUser)

	code, l := a.do(http.MethodPost, "/v1/listings", ownerTok, map[string]any{
		"title": "Beach house", "pricePerDay": 100, "bedrooms": 3,
		"address": map[string]any{"city": "Hammamet"},
	})
	if code != http.StatusCreated {
		t.Fatalf("create listing = %d %v", code, l)
	}
	listingID := l["id"].(string)

	code, list := a.do(http.MethodGet, "/v1/listings?q=hammamet&min_rooms=2", "", nil)
	if code != http.StatusOK || len(list["items"].([]any)) != 1 {
		t.Fatalf("search = %d %v", code, list)
	}

	code, res := a.do(http.MethodPost, "/v1/reservations", renterTok, map[string]any{
		"listingId": listingID, "startDate": "2024-07-01", "endDate": "2024-07-04",
	})
	if code != http.StatusCreated || res["totalPrice"] != float64(300) || res["status"] != "pending" {
		t.Fatalf("request = %d %v", code, res)
	}
	resID := res["id"].(string)

	code, n := a.do(http.MethodGet, "/v1/notifications/unread/count", ownerTok, nil)
	if code != http.StatusOK || n["count"] != float64(1) {
		t.Fatalf("owner unread = %d %v", code, n)
	}

	if code, body := a.do(http.MethodPost, "/v1/reservations/"+resID+"/deny", ownerTok, nil); code != http.StatusBadRequest {
		t.Fatalf("unconfirmed deny = %d %v", code, body)
	}
	if code, body := a.do(http.MethodPost, "/v1/reservations/"+resID+"/approve", ownerTok, nil); code != http.StatusOK || body["status"] != "approved" {
		t.Fatalf("approve = %d %v", code, body)
	}
	if code, body := a.do(http.MethodPost, "/v1/reservations/"+resID+"/approve", ownerTok, nil); code != http.StatusConflict {
		t.Fatalf("second approve = %d %v", code, body)
	}
	if code, body := a.do(http.MethodPost, "/v1/reservations/"+resID+"/deny", ownerTok, map[string]any{"confirm": true}); code != http.StatusConflict {
		t.Fatalf("deny after approve = %d %v", code, body)
	}

	code, l = a.do(http.MethodGet, "/v1/listings/"+listingID, "", nil)
	if code != http.StatusOK || l["isBooked"] != true {
		t.Fatalf("listing after approve = %d %v", code, l)
	}

	code, n = a.do(http.MethodGet, "/v1/notifications/unread/count", renterTok, nil)
	if code != http.StatusOK || n["count"] != float64(1) {
		t.Fatalf("renter unread = %d %v", code, n)
	}
	code, n = a.do(http.MethodPost, "/v1/notifications/read-all", renterTok, nil)
	if code != http.StatusOK || n["updated"] != float64(1) {
		t.Fatalf("read-all = %d %v", code, n)
	}
}

func TestReservationRequiresSignIn(t *testing.T) {
	a := newAPI(t)
	code, body := a.do(http.MethodPost, "/v1/reservations", "", map[string]any{
		"listingId": "x", "startDate": "2024-07-01", "endDate": "2024-07-04",
	})
	if code != http.StatusUnauthorized || !strings.HasPrefix(body["redirect"].(string), "/login") {
		t.Fatalf("anonymous reservation = %d %v", code, body)
	}
}
