package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"moneta/internal/core"
	"moneta/internal/log"
	"moneta/internal/middleware/security"
	"moneta/internal/services"
	"moneta/internal/store/memory"
)

const testSecret = "cron-secret"

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type busySweeper struct{}

func (busySweeper) ProcessDue(context.Context, time.Time) (services.ProcessResult, error) {
	return services.ProcessResult{}, services.ErrSweepInProgress
}

func newTestServer(t *testing.T, mutate func(*Dependencies)) (*Server, *memory.Store) {
	t.Helper()
	st := memory.New()
	deps := Dependencies{
		Dashboard: services.NewDashboardService(st, st, st, 2),
		Rules:     services.NewRuleService(st, nil),
		Ledger:    services.NewLedgerService(st, st, nil),
		Sweeper:   services.NewRecurringProcessor(st, st, nil),
		Store:     st,
	}
	if mutate != nil {
		mutate(&deps)
	}
	srv, err := NewServer(Options{
		Addr:       ":0",
		CronSecret: testSecret,
		Now:        func() time.Time { return testNow },
	}, deps)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return srv, st
}

func do(t *testing.T, srv *Server, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set(security.HeaderUserID, user)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func seedRule(t *testing.T, st *memory.Store, id, user string, next core.Date) {
	t.Helper()
	err := st.SaveRule(context.Background(), core.RecurringRule{
		ID:             id,
		UserID:         user,
		Kind:           core.Expense,
		Description:    "rent",
		Amount:         core.Money{Cents: 50000},
		CategoryID:     "home",
		Frequency:      core.Monthly,
		StartDate:      core.NewDate(2024, 1, 1),
		NextOccurrence: next,
	})
	if err != nil {
		t.Fatalf("SaveRule() error = %v", err)
	}
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rr.Code)
		}
	}

	down, _ := newTestServer(t, func(d *Dependencies) { d.Store = fakePinger{err: errors.New("db down")} })
	rr := do(t, down, http.MethodGet, "/readyz", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status = %d, want 503", rr.Code)
	}
	if got := decode[readiness](t, rr); got.Status != "unavailable" {
		t.Errorf("readyz status field = %q, want unavailable", got.Status)
	}
}

func TestUserRoutesRequireIdentity(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	routes := []struct{ method, path string }{
		{http.MethodGet, "/dashboard/summary/2024/3"},
		{http.MethodGet, "/dashboard/forecast/2024/3"},
		{http.MethodPost, "/dashboard/category-breakdown"},
		{http.MethodGet, "/recurring-transactions"},
		{http.MethodGet, "/transactions"},
		{http.MethodGet, "/categories"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			if rr := do(t, srv, rt.method, rt.path, "", ""); rr.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rr.Code)
			}
		})
	}
}

func TestRecurringRuleLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	body := `{"type":"expense","description":"Gym","amount":"29,90","category":"sport","frequency":"monthly","startDate":"2024-01-10"}`
	rr := do(t, srv, http.MethodPost, "/recurring-transactions", "u1", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rr.Code, rr.Body.String())
	}
	created := decode[map[string]any](t, rr)
	id, _ := created["id"].(string)
	if id == "" || created["amount"] != 29.9 {
		t.Fatalf("created = %v", created)
	}
	if next, _ := created["nextOccurrenceDate"].(string); next < "2024-01-10" {
		t.Errorf("nextOccurrenceDate = %q, want on or after start", next)
	}

	list := decode[[]map[string]any](t, do(t, srv, http.MethodGet, "/recurring-transactions", "u1", ""))
	if len(list) != 1 {
		t.Errorf("list len = %d, want 1", len(list))
	}
	if other := decode[[]map[string]any](t, do(t, srv, http.MethodGet, "/recurring-transactions", "u2", "")); len(other) != 0 {
		t.Errorf("other user sees %d rules, want 0", len(other))
	}

	update := `{"type":"expense","description":"Gym plus","amount":35,"category":"sport","frequency":"weekly","startDate":"2024-01-10"}`
	if rr := do(t, srv, http.MethodPut, "/recurring-transactions/"+id, "u2", update); rr.Code != http.StatusNotFound {
		t.Errorf("update by other user status = %d, want 404", rr.Code)
	}
	rr = do(t, srv, http.MethodPut, "/recurring-transactions/"+id, "u1", update)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if got := decode[map[string]any](t, rr); got["frequency"] != "weekly" || got["id"] != id {
		t.Errorf("updated = %v", got)
	}

	if rr := do(t, srv, http.MethodDelete, "/recurring-transactions/"+id, "u2", ""); rr.Code != http.StatusNotFound {
		t.Errorf("delete by other user status = %d, want 404", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/recurring-transactions/"+id, "u1", ""); rr.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/recurring-transactions/"+id, "u1", ""); rr.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rr.Code)
	}
}

func TestCreateRuleRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"type":`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
		{"zero amount", `{"type":"expense","description":"x","amount":0,"category":"c","frequency":"monthly","startDate":"2024-01-01"}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"type":"expense","description":"x","amount":"-5","category":"c","frequency":"monthly","startDate":"2024-01-01"}`, http.StatusUnprocessableEntity},
		{"expense without category", `{"type":"expense","description":"x","amount":5,"frequency":"monthly","startDate":"2024-01-01"}`, http.StatusUnprocessableEntity},
		{"unknown frequency", `{"type":"income","description":"x","amount":5,"frequency":"hourly","startDate":"2024-01-01"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"type":"income","description":"x","amount":5,"frequency":"daily","startDate":"2024-13-01"}`, http.StatusUnprocessableEntity},
		{"end before start", `{"type":"income","description":"x","amount":5,"frequency":"daily","startDate":"2024-02-01","endDate":"2024-01-01"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/recurring-transactions", "u1", tt.body)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
			if !strings.Contains(rr.Header().Get("Content-Type"), "application/json") {
				t.Errorf("Content-Type = %q, want JSON", rr.Header().Get("Content-Type"))
			}
		})
	}
}

func TestTransactionsAndSummary(t *testing.T) {
	srv, st := newTestServer(t, nil)
	seedRule(t, st, "rent", "u1", core.NewDate(2024, 3, 1))

	for _, body := range []string{
		`{"type":"expense","description":"Lunch","amount":"12.50","date":"2024-03-02","category":"food"}`,
		`{"type":"income","description":"Salary","amount":1000,"date":"2024-03-05"}`,
	} {
		if rr := do(t, srv, http.MethodPost, "/transactions", "u1", body); rr.Code != http.StatusCreated {
			t.Fatalf("create entry status = %d, body = %s", rr.Code, rr.Body.String())
		}
	}

	entries := decode[[]map[string]any](t, do(t, srv, http.MethodGet, "/transactions?year=2024&month=3", "u1", ""))
	if len(entries) != 2 || entries[0]["date"] != "2024-03-05" {
		t.Errorf("entries = %v", entries)
	}
	if rr := do(t, srv, http.MethodGet, "/transactions?year=2024&month=13", "u1", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad month status = %d, want 422", rr.Code)
	}

	rr := do(t, srv, http.MethodGet, "/dashboard/summary/2024/3?compareYear=2024&compareMonth=2", "u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status = %d, body = %s", rr.Code, rr.Body.String())
	}
	summary := decode[map[string]any](t, rr)
	if summary["totalIncome"] != 1000.0 || summary["totalExpenses"] != 512.5 || summary["recurringExpenses"] != 500.0 {
		t.Errorf("summary totals = %v", summary)
	}
	if daily, _ := summary["dailyExpenses"].([]any); len(daily) != 31 || daily[0] != 500.0 || daily[1] != 12.5 {
		t.Errorf("dailyExpenses = %v", summary["dailyExpenses"])
	}
	if cmp, _ := summary["comparisonDailyExpenses"].([]any); len(cmp) != 29 {
		t.Errorf("comparisonDailyExpenses len = %d, want 29", len(cmp))
	}

	tests := []struct {
		path string
		want int
	}{
		{"/dashboard/summary/2024/13", http.StatusUnprocessableEntity},
		{"/dashboard/summary/abcd/3", http.StatusBadRequest},
		{"/dashboard/forecast/2024/0", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		if rr := do(t, srv, http.MethodGet, tt.path, "u1", ""); rr.Code != tt.want {
			t.Errorf("GET %s status = %d, want %d", tt.path, rr.Code, tt.want)
		}
	}
}

func TestTransactionEditLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := do(t, srv, http.MethodPost, "/transactions", "u1",
		`{"type":"expense","description":"Lunch","amount":"12.50","date":"2024-03-02","category":"food"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rr.Code, rr.Body.String())
	}
	id, _ := decode[map[string]any](t, rr)["id"].(string)

	if rr := do(t, srv, http.MethodGet, "/transactions/"+id, "u2", ""); rr.Code != http.StatusNotFound {
		t.Errorf("GET other user status = %d, want 404", rr.Code)
	}
	if got := decode[map[string]any](t, do(t, srv, http.MethodGet, "/transactions/"+id, "u1", "")); got["description"] != "Lunch" {
		t.Errorf("GET entry = %v", got)
	}

	update := `{"type":"expense","description":"Dinner","amount":30,"date":"2024-03-04","category":"food"}`
	if rr := do(t, srv, http.MethodPut, "/transactions/"+id, "u2", update); rr.Code != http.StatusNotFound {
		t.Errorf("PUT other user status = %d, want 404", rr.Code)
	}
	if rr := do(t, srv, http.MethodPut, "/transactions/missing", "u1", update); rr.Code != http.StatusNotFound {
		t.Errorf("PUT missing status = %d, want 404", rr.Code)
	}
	noCategory := `{"type":"expense","description":"Dinner","amount":30,"date":"2024-03-04"}`
	if rr := do(t, srv, http.MethodPut, "/transactions/"+id, "u1", noCategory); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("PUT expense without category status = %d, want 422", rr.Code)
	}

	rr = do(t, srv, http.MethodPut, "/transactions/"+id, "u1", update)
	if rr.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if got := decode[map[string]any](t, rr); got["id"] != id || got["amount"] != 30.0 || got["date"] != "2024-03-04" {
		t.Errorf("PUT entry = %v", got)
	}

	summary := decode[map[string]any](t, do(t, srv, http.MethodGet, "/dashboard/summary/2024/3", "u1", ""))
	if summary["totalExpenses"] != 30.0 {
		t.Errorf("totalExpenses after edit = %v, want 30", summary["totalExpenses"])
	}
}

func TestCreateEntriesInBulk(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		want  int
		count int
	}{
		{
			name: "all valid",
			body: `[{"type":"expense","description":"Bus","amount":2,"date":"2024-03-01","category":"transport"},
				{"type":"income","description":"Refund","amount":"5,50","date":"2024-03-03"}]`,
			want:  http.StatusCreated,
			count: 2,
		},
		{
			name: "one invalid stores nothing",
			body: `[{"type":"expense","description":"Bus","amount":2,"date":"2024-03-01","category":"transport"},
				{"type":"expense","description":"Taxi","amount":9,"date":"2024-03-02"}]`,
			want: http.StatusUnprocessableEntity,
		},
		{name: "empty list", body: `[]`, want: http.StatusUnprocessableEntity},
		{name: "not a list", body: `{"type":"expense"}`, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, st := newTestServer(t, nil)
			rr := do(t, srv, http.MethodPost, "/transactions/bulk", "u1", tt.body)
			if rr.Code != tt.want {
				t.Fatalf("POST /transactions/bulk status = %d, want %d, body = %s", rr.Code, tt.want, rr.Body.String())
			}
			if n := len(st.Entries()); n != tt.count {
				t.Errorf("stored entries = %d, want %d", n, tt.count)
			}
		})
	}
}

func TestForecastIgnoresLedger(t *testing.T) {
	srv, st := newTestServer(t, nil)
	seedRule(t, st, "rent", "u1", core.NewDate(2024, 1, 1))
	do(t, srv, http.MethodPost, "/transactions", "u1", `{"type":"expense","description":"Lunch","amount":5,"date":"2024-06-02","category":"food"}`)

	rr := do(t, srv, http.MethodGet, "/dashboard/forecast/2024/6", "u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("forecast status = %d", rr.Code)
	}
	forecast := decode[map[string]any](t, rr)
	if forecast["totalExpenses"] != 500.0 {
		t.Errorf("forecast totalExpenses = %v, want 500", forecast["totalExpenses"])
	}
	if forecast["comparisonDailyExpenses"] != nil {
		t.Errorf("forecast comparison = %v, want null", forecast["comparisonDailyExpenses"])
	}
}

func TestCategoryBreakdown(t *testing.T) {
	srv, st := newTestServer(t, nil)
	seedRule(t, st, "rent", "u1", core.NewDate(2024, 1, 1))

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty list", `{"months":[]}`, http.StatusUnprocessableEntity},
		{"missing list", `{}`, http.StatusUnprocessableEntity},
		{"bad month", `{"months":["2024-3x"]}`, http.StatusUnprocessableEntity},
		{"not json", `months=2024-03`, http.StatusBadRequest},
		{"ok", `{"months":["2024-03","2024-04","2024-03"]}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/dashboard/category-breakdown", "u1", tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
			if tt.want != http.StatusOK {
				return
			}
			out := decode[map[string]core.MonthBreakdown](t, rr)
			if len(out) != 2 {
				t.Errorf("months = %d, want 2", len(out))
			}
			if b := out["2024-03"]; len(b.Expenses) != 1 || b.Expenses[0].Name != core.RecurringBucket {
				t.Errorf("2024-03 expenses = %+v", b.Expenses)
			}
		})
	}
}

func TestCategories(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	if rr := do(t, srv, http.MethodPost, "/categories", "u1", `{"name":" "}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("blank name status = %d, want 422", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/categories", "u1", `{"name":"Food","color":"#00ff00"}`); rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rr.Code)
	}
	list := decode[[]core.Category](t, do(t, srv, http.MethodGet, "/categories", "u1", ""))
	if len(list) != 1 || list[0].Name != "Food" || list[0].Color != "#00ff00" {
		t.Errorf("categories = %+v", list)
	}
}

func TestJobTrigger(t *testing.T) {
	srv, st := newTestServer(t, nil)
	seedRule(t, st, "rent", "u1", core.NewDate(2024, 3, 1))

	for _, secret := range []string{"", "wrong"} {
		req := httptest.NewRequest(http.MethodPost, "/jobs/trigger", nil)
		req.Header.Set(security.HeaderCronSecret, secret)
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("secret %q status = %d, want 401", secret, rr.Code)
		}
	}
	if len(st.Entries()) != 0 {
		t.Fatal("rejected trigger must not run the job")
	}

	req := httptest.NewRequest(http.MethodPost, "/jobs/trigger", nil)
	req.Header.Set(security.HeaderCronSecret, testSecret)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("trigger status = %d, body = %s", rr.Code, rr.Body.String())
	}
	got := decode[jobResponse](t, rr)
	if !got.Success || got.Processed != 1 || got.Retired != 0 || got.Failed != 0 {
		t.Errorf("trigger response = %+v", got)
	}
	if len(st.Entries()) != 1 {
		t.Errorf("ledger entries = %d, want 1", len(st.Entries()))
	}
}

func TestJobTriggerConflict(t *testing.T) {
	srv, _ := newTestServer(t, func(d *Dependencies) { d.Sweeper = busySweeper{} })
	req := httptest.NewRequest(http.MethodPost, "/jobs/trigger", nil)
	req.Header.Set(security.HeaderCronSecret, testSecret)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rr.Code)
	}
}

func TestAdminLogs(t *testing.T) {
	ring := log.NewRing(5)
	logger := slog.New(ring.Handler(slog.NewTextHandler(io.Discard, nil)))
	logger.Warn("disk almost full")
	logger.Info("ignored")

	srv, _ := newTestServer(t, func(d *Dependencies) { d.Ring = ring })

	if rr := do(t, srv, http.MethodGet, "/admin/logs", "", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("no secret status = %d, want 401", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/logs", nil)
	req.Header.Set(security.HeaderCronSecret, testSecret)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	got := decode[logsResponse](t, rr)
	if len(got.Entries) != 1 || got.Entries[0].Message != "disk almost full" {
		t.Errorf("entries = %+v", got.Entries)
	}
}

func TestResponsesCarryTraceAndSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req_from_proxy_1")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != "req_from_proxy_1" {
		t.Errorf("X-Request-ID = %q, want echoed id", got)
	}
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
}
