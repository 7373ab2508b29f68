package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kegelkladde/internal/core"
	ports "kegelkladde/internal/sheets"
	"kegelkladde/internal/settlement"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentialsFile(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Options{
		SpreadsheetID:   "sheet",
		CredentialsFile: "/does/not/exist.json",
	})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected file error, got %v", err)
	}
}

func TestClient_ExportSettlement(t *testing.T) {
	var (
		gotPath  string
		gotQuery string
		gotBody  gsheet.ValueRange
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"spreadsheetId":"sheet-1","updates":{"updatedRange":"Abrechnung!A2:M3","updatedRows":2}}`))
	}))
	defer srv.Close()

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	c := NewWithService(svc, "sheet-1", "")

	ref, err := c.ExportSettlement(context.Background(), ports.Report{
		Gameday: core.Gameday{ID: 7, Date: core.NewDate(2026, 3, 6)},
		Names:   map[int64]string{1: "Anna", 2: "Bernd"},
		Lines: []settlement.Line{
			{MemberID: 1, Present: true, AmountOwed: core.Cents(420), Remaining: core.Cents(420)},
			{MemberID: 2, AmountOwed: core.Cents(500), Paid: core.Cents(500)},
		},
	})
	if err != nil {
		t.Fatalf("ExportSettlement() error = %v", err)
	}
	if ref != "Abrechnung!A2:M3" {
		t.Errorf("ref = %q", ref)
	}
	if !strings.HasSuffix(gotPath, ":append") || !strings.Contains(gotPath, "sheet-1") {
		t.Errorf("unexpected path %q", gotPath)
	}
	if !strings.Contains(gotQuery, "valueInputOption=USER_ENTERED") {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if len(gotBody.Values) != 2 || gotBody.Values[0][1] != "Anna" {
		t.Errorf("unexpected body %+v", gotBody.Values)
	}
}

func TestClient_ExportSettlement_Empty(t *testing.T) {
	c := &Client{}
	if _, err := c.ExportSettlement(context.Background(), ports.Report{}); err == nil {
		t.Fatal("expected error without service")
	}
}
