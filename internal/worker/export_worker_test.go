package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"kegelkladde/internal/amqp"
	"kegelkladde/internal/core"
	"kegelkladde/internal/services"
	"kegelkladde/internal/sheets"
	"kegelkladde/internal/sheets/memory"
	"kegelkladde/internal/storage"
)

type failingExporter struct{ calls int }

func (f *failingExporter) ExportSettlement(context.Context, sheets.Report) (string, error) {
	f.calls++
	return "", errors.New("quota exceeded")
}

type fixture struct {
	repo     *storage.SQLiteRepository
	gamedays *services.GamedayService
	gameday  core.Gameday
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "kladde.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	for _, n := range []string{"Anna", "Bernd"} {
		if _, err := repo.CreateMember(ctx, n); err != nil {
			t.Fatalf("create member: %v", err)
		}
	}
	svc := services.NewGamedayService(repo, nil, core.Money{})
	g, err := svc.CreateGameday(ctx, core.NewDate(2026, 2, 20), "")
	if err != nil {
		t.Fatalf("create gameday: %v", err)
	}
	return fixture{repo: repo, gamedays: svc, gameday: g}
}

func (f fixture) archive(t *testing.T) {
	t.Helper()
	for i := 0; i < 3; i++ {
		if _, err := f.gamedays.AdvanceStatus(context.Background(), f.gameday.ID); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
}

func TestHandleEvent_ExportsArchivedOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.archive(t)

	exp := memory.New()
	w := NewExportWorker(f.repo, f.gamedays, exp, 0)
	ev := amqp.NewStatusChangedEvent(f.gameday.ID, core.StatusSettlement, core.StatusArchived)

	if err := w.HandleEvent(ctx, ev); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if err := w.HandleEvent(ctx, ev); err != nil {
		t.Fatalf("redelivered HandleEvent() error = %v", err)
	}

	reports := exp.Reports()
	if len(reports) != 1 {
		t.Fatalf("exported %d reports, want 1", len(reports))
	}
	if len(reports[0].Lines) != 2 || reports[0].Names[reports[0].Lines[0].MemberID] != "Anna" {
		t.Fatalf("unexpected report %+v", reports[0])
	}
}

func TestHandleEvent_IgnoresOtherTransitions(t *testing.T) {
	f := newFixture(t)
	exp := memory.New()
	w := NewExportWorker(f.repo, f.gamedays, exp, 0)

	events := []*amqp.Event{
		amqp.NewStatusChangedEvent(f.gameday.ID, core.StatusNotStarted, core.StatusInProgress),
		amqp.NewGamedayCreatedEvent(f.gameday),
		amqp.NewRoundWonEvent(core.RoundWin{Type: core.RankingMonte, RoundNumber: 1}),
	}
	for _, ev := range events {
		if err := w.HandleEvent(context.Background(), ev); err != nil {
			t.Fatalf("HandleEvent(%s) error = %v", ev.Type, err)
		}
	}
	if len(exp.Reports()) != 0 {
		t.Fatalf("nothing should be exported, got %d", len(exp.Reports()))
	}
}

func TestExportGameday_SkipsRevertedGameday(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.archive(t)
	if _, err := f.gamedays.RevertStatus(ctx, f.gameday.ID); err != nil {
		t.Fatalf("revert: %v", err)
	}

	exp := memory.New()
	w := NewExportWorker(f.repo, f.gamedays, exp, 0)
	if err := w.ExportGameday(ctx, f.gameday.ID); err != nil {
		t.Fatalf("ExportGameday() error = %v", err)
	}
	if len(exp.Reports()) != 0 {
		t.Fatal("reverted gameday must not be exported")
	}
}

func TestProcessPendingExports_RetriesFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.archive(t)

	failing := &failingExporter{}
	w := NewExportWorker(f.repo, f.gamedays, failing, 5)
	if err := w.ProcessPendingExports(ctx); err != nil {
		t.Fatalf("ProcessPendingExports() error = %v", err)
	}
	if failing.calls != 1 {
		t.Fatalf("exporter calls = %d, want 1", failing.calls)
	}
	st, ok, _ := f.repo.ExportState(ctx, f.gameday.ID)
	if !ok || st.Status != storage.ExportError {
		t.Fatalf("export state = %+v, %v", st, ok)
	}

	exp := memory.New()
	w = NewExportWorker(f.repo, f.gamedays, exp, 5)
	if err := w.ProcessPendingExports(ctx); err != nil {
		t.Fatalf("second ProcessPendingExports() error = %v", err)
	}
	if len(exp.Reports()) != 1 {
		t.Fatalf("retry exported %d reports, want 1", len(exp.Reports()))
	}
	if pending, _ := f.repo.PendingExports(ctx, 5); len(pending) != 0 {
		t.Fatalf("still pending: %+v", pending)
	}
}
