package httpapi

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/Hadesalive/Remvin-Ent-sub000/internal/domain"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/report"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/service"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/store"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/store/memory"
)

var fixedNow = time.Date(2026, time.October, 19, 15, 0, 0, 0, time.UTC)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()
	return newTestAPIWithRepo(t, memory.New(testSeed(t)))
}

func newTestAPIWithRepo(t *testing.T, repo store.Repository) *API {
	t.Helper()

	log, _ := test.NewNullLogger()
	agg := report.NewAggregator(report.Options{Location: time.UTC, Now: func() time.Time { return fixedNow }})
	svc := service.New(repo, agg, service.Options{Logger: log, StoreID: "test-store"})
	t.Cleanup(svc.Close)
	auth := NewAuthManager(context.Background(), "test-secret-key-0123456789abcdef", time.Hour, repo)

	return New(svc, auth, Options{AllowedOrigin: "*", Logger: log})
}

func testSeed(t *testing.T) memory.Seed {
	t.Helper()
	return memory.Seed{
		Sales: []domain.Sale{
			{ID: "s1", CreatedAt: "2026-10-19T09:00:00Z", Total: 240, CustomerID: "c1",
				Items: domain.EncodeLineItems([]domain.LineItem{{ProductID: "p1", Quantity: 2, Price: 120}})},
			{ID: "s2", CreatedAt: "2026-10-18T12:00:00Z", Total: 45, CustomerID: "c2",
				Items: domain.EncodeLineItems([]domain.LineItem{{ProductID: "p2", Quantity: 1, Price: 45}})},
			{ID: "s3", CreatedAt: "garbage", Total: 1000},
		},
		Products: []domain.Product{
			{ID: "p1", Name: "USB-C Charger", Price: 120, Stock: 10},
			{ID: "p2", Name: "Tempered Glass", Price: 45, Stock: 2},
		},
		Customers: []domain.Customer{{ID: "c1", Name: "Aminata"}, {ID: "c2", Name: "Ibrahim"}},
		Users: []domain.UserAccount{
			{Username: "admin", Password: mustHashPassword(t, "admin123"), Role: domain.RoleAdmin, Active: true},
			{Username: "viewer", Password: mustHashPassword(t, "viewer123"), Role: domain.RoleViewer, Active: true},
			{Username: "retired", Password: mustHashPassword(t, "retired123"), Role: domain.RoleViewer, Active: false},
		},
	}
}

// mustHashPassword generates a bcrypt hash of the given password or fails the test.
func mustHashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func login(t *testing.T, api *API, username, password string) string {
	t.Helper()

	body, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("%s login failed, status %d (body: %s)", username, res.Code, res.Body.String())
	}

	var payload domain.LoginResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response failed: %v", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		t.Fatalf("expected access token in login response")
	}
	return payload.AccessToken
}

func authedRequest(t *testing.T, api *API, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)

	payload, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrongpassword"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleLogin_InactiveAccount(t *testing.T) {
	api := newTestAPI(t)

	payload, _ := json.Marshal(map[string]string{"username": "retired", "password": "retired123"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for inactive account, got %d", rec.Code)
	}
}

func TestHandleReport_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleReport_JSON(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "viewer", "viewer123")

	rec := authedRequest(t, api, http.MethodGet, "/api/v1/reports?range=week", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var rep domain.Report
	if err := json.NewDecoder(rec.Body).Decode(&rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Range.Kind != domain.RangeWeek {
		t.Fatalf("expected week range, got %s", rep.Range.Kind)
	}
	if rep.TotalRevenue.String() != "285" {
		t.Fatalf("expected revenue 285, got %s", rep.TotalRevenue)
	}
	if rep.Metrics.TotalOrders != 2 {
		t.Fatalf("expected 2 orders, got %d", rep.Metrics.TotalOrders)
	}
	if len(rep.DailyRevenue) != 8 {
		t.Fatalf("expected 8 daily points, got %d", len(rep.DailyRevenue))
	}
	if len(rep.TopProductsByRevenue) != 2 || rep.TopProductsByRevenue[0].ProductID != "p1" {
		t.Fatalf("unexpected product ranking %+v", rep.TopProductsByRevenue)
	}
}

func TestHandleReport_UnknownRangeFallsBackToMonth(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "viewer", "viewer123")

	rec := authedRequest(t, api, http.MethodGet, "/api/v1/reports?range=decade&limit=1", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var rep domain.Report
	if err := json.NewDecoder(rec.Body).Decode(&rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Range.Kind != domain.RangeMonth {
		t.Fatalf("expected month fallback, got %s", rep.Range.Kind)
	}
	if len(rep.TopCustomers) != 1 {
		t.Fatalf("expected limit to apply, got %d customers", len(rep.TopCustomers))
	}
}

func TestHandleReport_CSV(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "viewer", "viewer123")

	rec := authedRequest(t, api, http.MethodGet, "/api/v1/reports?range=today&format=csv", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "sales-report-today-2026-10-19.csv") {
		t.Fatalf("unexpected content disposition %q", got)
	}
	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	found := false
	for _, row := range rows {
		if row[0] == "summary" && row[1] == "total_revenue" && row[2] == "240.00" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected total_revenue row in %v", rows)
	}
}

func TestHandleReport_HTMLAndXLSX(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "viewer", "viewer123")

	page := authedRequest(t, api, http.MethodGet, "/api/v1/reports?format=html", token)
	if page.Code != http.StatusOK || !strings.Contains(page.Body.String(), "This Month") {
		t.Fatalf("expected printable html, got %d", page.Code)
	}

	book := authedRequest(t, api, http.MethodGet, "/api/v1/reports?format=xlsx", token)
	if book.Code != http.StatusOK {
		t.Fatalf("expected 200 for xlsx, got %d", book.Code)
	}
	f, err := excelize.OpenReader(bytes.NewReader(book.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	if len(f.GetSheetList()) != 4 {
		t.Fatalf("expected 4 sheets, got %v", f.GetSheetList())
	}

	for _, format := range []string{"docx", "pdf"} {
		bad := authedRequest(t, api, http.MethodGet, "/api/v1/reports?format="+format, token)
		if bad.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for format %s, got %d", format, bad.Code)
		}
	}
}

type failingRepo struct {
	*memory.Store
}

func (failingRepo) ListSales(context.Context) ([]domain.Sale, error) {
	return nil, errors.New("dial tcp 10.0.0.5:5432: connection refused")
}

func TestHandleReport_FetchFailureIs502(t *testing.T) {
	api := newTestAPIWithRepo(t, failingRepo{Store: memory.New(testSeed(t))})
	token := login(t, api, "viewer", "viewer123")

	rec := authedRequest(t, api, http.MethodGet, "/api/v1/reports", token)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.5") {
		t.Fatalf("expected fetch cause to stay out of the response, got %s", rec.Body.String())
	}
}

func TestCurrentReportSurfacesFetchFailure(t *testing.T) {
	api := newTestAPIWithRepo(t, failingRepo{Store: memory.New(testSeed(t))})
	token := login(t, api, "viewer", "viewer123")

	rec := authedRequest(t, api, http.MethodPost, "/api/v1/reports/current?range=today", token)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	api.service.WaitCurrent()

	rec = authedRequest(t, api, http.MethodGet, "/api/v1/reports/current", token)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 after failed recompute, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "10.0.0.5") {
		t.Fatalf("expected fetch cause to stay out of the response, got %s", rec.Body.String())
	}
}

// flakyRepo fails sales reads once broken is set.
type flakyRepo struct {
	*memory.Store
	broken *atomic.Bool
}

func (r flakyRepo) ListSales(ctx context.Context) ([]domain.Sale, error) {
	if r.broken.Load() {
		return nil, errors.New("connection reset by peer")
	}
	return r.Store.ListSales(ctx)
}

func TestCurrentReportDoesNotServeOlderReportAfterFailure(t *testing.T) {
	broken := &atomic.Bool{}
	api := newTestAPIWithRepo(t, flakyRepo{Store: memory.New(testSeed(t)), broken: broken})
	token := login(t, api, "viewer", "viewer123")

	authedRequest(t, api, http.MethodPost, "/api/v1/reports/current?range=today", token)
	api.service.WaitCurrent()
	if rec := authedRequest(t, api, http.MethodGet, "/api/v1/reports/current", token); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after first recompute, got %d", rec.Code)
	}

	broken.Store(true)
	authedRequest(t, api, http.MethodPost, "/api/v1/reports/current?range=week", token)
	api.service.WaitCurrent()
	if rec := authedRequest(t, api, http.MethodGet, "/api/v1/reports/current", token); rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 once the newest recompute failed, got %d", rec.Code)
	}

	broken.Store(false)
	authedRequest(t, api, http.MethodPost, "/api/v1/reports/current?range=week", token)
	api.service.WaitCurrent()
	rec := authedRequest(t, api, http.MethodGet, "/api/v1/reports/current", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after recovery, got %d", rec.Code)
	}
	var body struct {
		Generation uint64 `json:"generation"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode current report: %v", err)
	}
	if body.Generation != 3 {
		t.Fatalf("expected generation 3, got %d", body.Generation)
	}
}

func TestHandleRanges(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "viewer", "viewer123")

	rec := authedRequest(t, api, http.MethodGet, "/api/v1/reports/ranges", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Ranges []domain.RangeInfo `json:"ranges"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode ranges: %v", err)
	}
	if len(body.Ranges) != 5 || body.Ranges[1].Label != "Last 7 Days" {
		t.Fatalf("unexpected ranges %+v", body.Ranges)
	}
}

func TestHandleRefresh_RequiresAdmin(t *testing.T) {
	api := newTestAPI(t)

	viewer := login(t, api, "viewer", "viewer123")
	if rec := authedRequest(t, api, http.MethodPost, "/api/v1/reports/refresh", viewer); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer, got %d", rec.Code)
	}

	admin := login(t, api, "admin", "admin123")
	if rec := authedRequest(t, api, http.MethodPost, "/api/v1/reports/refresh", admin); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
}

func TestCurrentReportLifecycle(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "viewer", "viewer123")

	if rec := authedRequest(t, api, http.MethodGet, "/api/v1/reports/current", token); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any submission, got %d", rec.Code)
	}

	rec := authedRequest(t, api, http.MethodPost, "/api/v1/reports/current?range=today", token)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	api.service.WaitCurrent()

	rec = authedRequest(t, api, http.MethodGet, "/api/v1/reports/current", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after submission, got %d", rec.Code)
	}
	var body struct {
		Generation uint64        `json:"generation"`
		Report     domain.Report `json:"report"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode current report: %v", err)
	}
	if body.Generation != 1 || body.Report.Range.Kind != domain.RangeToday {
		t.Fatalf("unexpected current report generation=%d range=%s", body.Generation, body.Report.Range.Kind)
	}
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("expected JSON error body")
	}
}
