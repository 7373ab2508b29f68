package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"kegelkladde/internal/core"
	"kegelkladde/internal/editlock"
	applog "kegelkladde/internal/log"
	"kegelkladde/internal/middleware/ratelimit"
	"kegelkladde/internal/services"
	"kegelkladde/internal/settlement"
	"kegelkladde/internal/storage"
)

type testEnv struct {
	srv     *Server
	repo    *storage.SQLiteRepository
	members []core.Member
}

func newTestEnv(t *testing.T, limit ratelimit.Config) testEnv {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "kladde.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	var members []core.Member
	for _, n := range []string{"Anna", "Bernd"} {
		m, err := repo.CreateMember(context.Background(), n)
		if err != nil {
			t.Fatalf("create member: %v", err)
		}
		members = append(members, m)
	}

	logger := applog.New(applog.Config{
		Component: applog.ComponentHTTP,
		Handler:   slog.NewTextHandler(io.Discard, nil),
	})
	srv := NewServer(":0", Deps{
		DB:        repo,
		Gamedays:  services.NewGamedayService(repo, nil, core.Money{}),
		Cash:      services.NewCashService(repo),
		Rankings:  services.NewRankingService(repo, nil),
		Locks:     editlock.New(editlock.DefaultTTL, nil),
		Logger:    logger,
		RateLimit: limit,
	})
	t.Cleanup(func() { srv.limiter.Stop() })
	return testEnv{srv: srv, repo: repo, members: members}
}

// do sends body (marshalled unless already a string) and returns the recorder.
func (e testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
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

func (e testEnv) createGameday(t *testing.T, date string) core.Gameday {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/gamedays", fmt.Sprintf(`{"date":%q}`, date))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create gameday status=%d body=%s", rr.Code, rr.Body.String())
	}
	return decode[core.Gameday](t, rr)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("disk gone") }

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(t, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	env.srv.db = failingPinger{}
	if rr := env.do(t, http.MethodGet, "/readyz", nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing db status=%d", rr.Code)
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})

	rr := env.do(t, http.MethodGet, "/api/gamedays", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("security headers missing")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("request id missing")
	}
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("empty list body = %q, want []", rr.Body.String())
	}

	if rr := env.do(t, http.MethodGet, "/.env", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("scanner status=%d, want 400", rr.Code)
	}
	if rr := env.do(t, http.MethodPut, "/api/gamedays", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("wrong method status=%d, want 405", rr.Code)
	}
}

func TestGamedayLifecycle(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	anna := env.members[0]

	g := env.createGameday(t, "2026-02-20")
	if g.Status != core.StatusNotStarted {
		t.Fatalf("new gameday status=%v", g.Status)
	}

	rr := env.do(t, http.MethodGet, "/api/gamedays/next-date", nil)
	if got := decode[nextDateResponse](t, rr).Date.String(); got != "2026-03-06" {
		t.Fatalf("next date = %s, want 2026-03-06", got)
	}

	base := fmt.Sprintf("/api/gamedays/%d", g.ID)
	rr = env.do(t, http.MethodPatch, fmt.Sprintf("%s/attendance/%d", base, anna.ID), `{"kranz":2,"paid":"4,00"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("patch attendance status=%d body=%s", rr.Code, rr.Body.String())
	}
	line := decode[settlement.Line](t, rr)
	if line.MemberID != anna.ID || line.Paid.Cents != 400 {
		t.Fatalf("unexpected line %+v", line)
	}

	rr = env.do(t, http.MethodGet, base, nil)
	sheet := decode[services.Sheet](t, rr)
	if len(sheet.Members) != 2 || len(sheet.Records) != 2 || len(sheet.Lines) != 2 {
		t.Fatalf("unexpected sheet %+v", sheet)
	}

	for want := core.StatusInProgress; want <= core.StatusArchived; want++ {
		rr = env.do(t, http.MethodPost, base+"/advance", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("advance status=%d body=%s", rr.Code, rr.Body.String())
		}
		if got := decode[core.Gameday](t, rr).Status; got != want {
			t.Fatalf("status after advance = %v, want %v", got, want)
		}
	}

	rr = env.do(t, http.MethodPost, base+"/advance", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("advance from archived status=%d, want 409", rr.Code)
	}

	rr = env.do(t, http.MethodPatch, fmt.Sprintf("%s/attendance/%d", base, anna.ID), `{"paid":5}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("paid in archive status=%d, want 409", rr.Code)
	}
	if body := decode[ErrorBody](t, rr); body.Code != applog.ErrorTypeLocked || body.Field != "paid" {
		t.Fatalf("unexpected error body %+v", body)
	}

	if rr = env.do(t, http.MethodPost, base+"/revert", nil); rr.Code != http.StatusOK {
		t.Fatalf("revert status=%d", rr.Code)
	}
	if rr = env.do(t, http.MethodDelete, base, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr = env.do(t, http.MethodGet, base, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("get deleted status=%d, want 404", rr.Code)
	}
}

func TestRequestErrors(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	g := env.createGameday(t, "2026-02-20")
	member := fmt.Sprintf("/api/gamedays/%d/attendance/%d", g.ID, env.members[0].ID)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
		wantKey  string
	}{
		{"bad date", http.MethodPost, "/api/gamedays", `{"date":"20.02.2026"}`, http.StatusBadRequest, "date"},
		{"note too long", http.MethodPost, "/api/gamedays", `{"date":"2026-03-06","note":"` + strings.Repeat("x", 121) + `"}`, http.StatusBadRequest, "note"},
		{"empty body", http.MethodPost, "/api/gamedays", ``, http.StatusBadRequest, ""},
		{"unknown field", http.MethodPatch, member, `{"kranzz":1}`, http.StatusBadRequest, ""},
		{"empty patch", http.MethodPatch, member, `{}`, http.StatusBadRequest, ""},
		{"negative count", http.MethodPatch, member, `{"kranz":-1}`, http.StatusUnprocessableEntity, ""},
		{"bad amount", http.MethodPatch, member, `{"paid":"vier"}`, http.StatusBadRequest, ""},
		{"bad id", http.MethodGet, "/api/gamedays/abc", ``, http.StatusBadRequest, ""},
		{"missing gameday", http.MethodGet, "/api/gamedays/999", ``, http.StatusNotFound, ""},
		{"missing member", http.MethodPatch, fmt.Sprintf("/api/gamedays/%d/attendance/999", g.ID), `{"kranz":1}`, http.StatusNotFound, ""},
		{"invalid side game", http.MethodPost, member + "/struck", `{"game":"kegeln"}`, http.StatusBadRequest, "game"},
		{"revert not started", http.MethodPost, fmt.Sprintf("/api/gamedays/%d/revert", g.ID), ``, http.StatusConflict, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, tt.method, tt.path, tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("status=%d, want %d (body=%s)", rr.Code, tt.wantCode, rr.Body.String())
			}
			if tt.wantKey != "" {
				body := decode[ErrorBody](t, rr)
				if _, ok := body.Details[tt.wantKey]; !ok {
					t.Fatalf("details %v missing %q", body.Details, tt.wantKey)
				}
			}
		})
	}
}

func TestSideGamesAndCustomGames(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	g := env.createGameday(t, "2026-02-20")
	base := fmt.Sprintf("/api/gamedays/%d", g.ID)
	anna, bernd := env.members[0], env.members[1]

	rr := env.do(t, http.MethodPost, fmt.Sprintf("%s/attendance/%d/struck", base, anna.ID), `{"game":"monte"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("struck status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rec := decode[core.AttendanceRecord](t, rr); !rec.Struck.Has(core.SideGameMonte) {
		t.Fatalf("monte not struck: %+v", rec.Struck)
	}

	rr = env.do(t, http.MethodPost, base+"/monte-extra", fmt.Sprintf(`{"member_id":%d}`, bernd.ID))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("monte extra status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodPost, base+"/custom-games", `{"name":"Tannenbaum"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add custom game status=%d body=%s", rr.Code, rr.Body.String())
	}
	cg := decode[core.CustomGame](t, rr)
	games := fmt.Sprintf("%s/custom-games/%d", base, cg.ID)

	rr = env.do(t, http.MethodPut, fmt.Sprintf("%s/values/%d", games, anna.ID), `{"amount":"0.80"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("set value status=%d body=%s", rr.Code, rr.Body.String())
	}
	if line := decode[settlement.Line](t, rr); line.CustomGameTotal.Cents != 80 {
		t.Fatalf("custom total = %v, want 0.80", line.CustomGameTotal)
	}

	if rr = env.do(t, http.MethodPatch, games, `{"name":"Fuchsjagd"}`); rr.Code != http.StatusNoContent {
		t.Fatalf("rename status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr = env.do(t, http.MethodDelete, games, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr = env.do(t, http.MethodDelete, games, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d, want 404", rr.Code)
	}
}

func TestLedgerAndCash(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	g := env.createGameday(t, "2026-02-20")
	base := fmt.Sprintf("/api/gamedays/%d", g.ID)

	if rr := env.do(t, http.MethodPut, "/api/cash/start", `{"amount":"100.00"}`); rr.Code != http.StatusNoContent {
		t.Fatalf("start balance status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr := env.do(t, http.MethodPost, base+"/entries", `{"kind":"income","name":"Spende","amount":20}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add entry status=%d body=%s", rr.Code, rr.Body.String())
	}
	entry := decode[core.LedgerEntry](t, rr)

	rr = env.do(t, http.MethodPost, "/api/expenses", `{"date":"2026-03-01","description":"Kugeln","amount":25}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add expense status=%d body=%s", rr.Code, rr.Body.String())
	}
	expense := decode[core.Expense](t, rr)

	rr = env.do(t, http.MethodGet, "/api/cash", nil)
	if b := decode[services.CashBalance](t, rr); b.Balance.Cents != 9500 {
		t.Fatalf("balance = %v, want 95.00", b.Balance)
	}

	rr = env.do(t, http.MethodGet, base+"/cash", nil)
	gc := decode[settlement.GamedayCash](t, rr)
	if gc.Income.Cents != 2000 || len(gc.Entries) != 1 {
		t.Fatalf("unexpected gameday cash %+v", gc)
	}

	rr = env.do(t, http.MethodGet, "/api/expenses", nil)
	if es := decode[[]core.Expense](t, rr); len(es) != 1 {
		t.Fatalf("expenses = %d, want 1", len(es))
	}

	if rr = env.do(t, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", expense.ID), nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete expense status=%d", rr.Code)
	}
	if rr = env.do(t, http.MethodDelete, fmt.Sprintf("%s/entries/%d", base, entry.ID), nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete entry status=%d", rr.Code)
	}
	rr = env.do(t, http.MethodGet, "/api/cash", nil)
	if b := decode[services.CashBalance](t, rr); b.Balance.Cents != 10000 {
		t.Fatalf("balance after deletes = %v, want 100.00", b.Balance)
	}
}

func TestUpdateExpense(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})

	rr := env.do(t, http.MethodPost, "/api/expenses", `{"date":"2026-03-01","description":"Kugeln","amount":25}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add expense status=%d body=%s", rr.Code, rr.Body.String())
	}
	expense := decode[core.Expense](t, rr)
	path := fmt.Sprintf("/api/expenses/%d", expense.ID)

	rr = env.do(t, http.MethodPut, path, `{"date":"2026-03-02","description":" Kugeln und Pins ","amount":"27,50"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	got := decode[core.Expense](t, rr)
	if got.ID != expense.ID || got.Amount.Cents != 2750 || got.Description != "Kugeln und Pins" || got.Date.String() != "2026-03-02" {
		t.Fatalf("updated expense = %+v", got)
	}

	rr = env.do(t, http.MethodGet, "/api/cash", nil)
	if b := decode[services.CashBalance](t, rr); b.Totals.Expenses.Cents != 2750 {
		t.Fatalf("expense total = %v, want 27.50", b.Totals.Expenses)
	}

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown id", "/api/expenses/4711", `{"date":"2026-03-02","description":"x","amount":1}`, http.StatusNotFound},
		{"zero amount", path, `{"date":"2026-03-02","description":"x","amount":0}`, http.StatusUnprocessableEntity},
		{"bad date", path, `{"date":"02.03.2026","description":"x","amount":1}`, http.StatusBadRequest},
		{"bad id", "/api/expenses/abc", `{"date":"2026-03-02","description":"x","amount":1}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := env.do(t, http.MethodPut, tt.path, tt.body); rr.Code != tt.want {
				t.Fatalf("status=%d, want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestEditLocks(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	g := env.createGameday(t, "2026-02-20")
	lockPath := fmt.Sprintf("/api/gamedays/%d/locks/%d", g.ID, env.members[0].ID)

	rr := env.do(t, http.MethodPost, lockPath, nil, HeaderHolderID, "tab-a")
	if rr.Code != http.StatusOK || !decode[lockResponse](t, rr).Acquired {
		t.Fatalf("acquire status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodPost, lockPath, nil, HeaderHolderID, "tab-b")
	if rr.Code != http.StatusLocked {
		t.Fatalf("contended acquire status=%d, want 423", rr.Code)
	}
	if lr := decode[lockResponse](t, rr); lr.Acquired || lr.Lock.Holder != "tab-a" {
		t.Fatalf("unexpected lock response %+v", lr)
	}

	if rr = env.do(t, http.MethodPost, lockPath, nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("missing holder status=%d, want 400", rr.Code)
	}

	if rr = env.do(t, http.MethodPut, lockPath, nil, HeaderHolderID, "tab-a"); rr.Code != http.StatusNoContent {
		t.Fatalf("renew status=%d", rr.Code)
	}
	if rr = env.do(t, http.MethodPut, lockPath, nil, HeaderHolderID, "tab-b"); rr.Code != http.StatusConflict {
		t.Fatalf("foreign renew status=%d, want 409", rr.Code)
	}

	rr = env.do(t, http.MethodGet, fmt.Sprintf("/api/gamedays/%d/locks", g.ID), nil)
	if locks := decode[[]editlock.Lock](t, rr); len(locks) != 1 {
		t.Fatalf("active locks = %d, want 1", len(locks))
	}

	if rr = env.do(t, http.MethodDelete, lockPath, nil, HeaderHolderID, "tab-a"); rr.Code != http.StatusNoContent {
		t.Fatalf("release status=%d", rr.Code)
	}
	if rr = env.do(t, http.MethodPost, lockPath, nil, HeaderHolderID, "tab-b"); rr.Code != http.StatusOK {
		t.Fatalf("acquire after release status=%d", rr.Code)
	}
}

func TestRankingsAndInitialValues(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	anna := env.members[0]

	rr := env.do(t, http.MethodPut, fmt.Sprintf("/api/members/%d/initial-values", anna.ID),
		`{"initial_monte_points":42,"initial_monte_wins":1}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("initial values status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodGet, "/api/rankings/monte", nil)
	table := decode[services.Table](t, rr)
	if table.Type != core.RankingMonte || len(table.Standings) != 1 {
		t.Fatalf("unexpected monte table %+v", table)
	}
	if s := table.Standings[0]; s.MemberID != anna.ID || s.Total != 42 || s.Wins != 1 {
		t.Fatalf("seeded standing = %+v, want Anna with 42 points and 1 win", s)
	}

	rr = env.do(t, http.MethodGet, "/api/rankings/medaillen", nil)
	if table := decode[services.Table](t, rr); table.Type != core.RankingMedaillen {
		t.Fatalf("unexpected medaillen table %+v", table)
	}

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"negative points", fmt.Sprintf("/api/members/%d/initial-values", anna.ID), `{"initial_monte_points":-1}`, http.StatusBadRequest},
		{"unknown member", "/api/members/999/initial-values", `{}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := env.do(t, http.MethodPut, tt.path, tt.body); rr.Code != tt.want {
				t.Fatalf("status=%d, want %d (body=%s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestStatistics(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	env.createGameday(t, "2026-02-20")

	rr := env.do(t, http.MethodGet, "/api/statistics?year=2026", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("statistics status=%d body=%s", rr.Code, rr.Body.String())
	}
	st := decode[settlement.Statistics](t, rr)
	if st.Gamedays != 1 || st.Year != 2026 || len(st.Monthly) != 1 || st.Monthly[0].Name != "Feb" {
		t.Fatalf("unexpected statistics %+v", st)
	}
	if len(st.TopAttendance) != 2 {
		t.Fatalf("top attendance = %+v, want both members", st.TopAttendance)
	}

	for _, year := range []string{"abc", "12"} {
		if rr := env.do(t, http.MethodGet, "/api/statistics?year="+year, nil); rr.Code != http.StatusBadRequest {
			t.Fatalf("year %q status=%d, want 400", year, rr.Code)
		}
	}
}

func TestWriteRateLimit(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{RequestsPerMinute: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, env.do(t, http.MethodPut, "/api/cash/start", `{"amount":1}`).Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
	if rr := env.do(t, http.MethodGet, "/api/cash", nil); rr.Code != http.StatusOK {
		t.Fatalf("reads must not be limited, status=%d", rr.Code)
	}
}
