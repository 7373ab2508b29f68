package worker

import (
	"context"
	"fmt"
	"log/slog"

	"kegelkladde/internal/amqp"
	"kegelkladde/internal/core"
	"kegelkladde/internal/services"
	"kegelkladde/internal/sheets"
	"kegelkladde/internal/storage"
)

// ExportWorker writes the settlement of archived gamedays to the configured
// exporter and reacts to the events published by the web process.
type ExportWorker struct {
	storage   *storage.SQLiteRepository
	gamedays  *services.GamedayService
	exporter  sheets.SettlementExporter
	batchSize int
}

func NewExportWorker(storage *storage.SQLiteRepository, gamedays *services.GamedayService, exporter sheets.SettlementExporter, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &ExportWorker{
		storage:   storage,
		gamedays:  gamedays,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleEvent processes a single event from AMQP. Returning an error
// requeues the message.
func (w *ExportWorker) HandleEvent(ctx context.Context, e *amqp.Event) error {
	switch e.Type {
	case amqp.EventStatusChanged:
		if e.ToStatus != core.StatusArchived {
			slog.DebugContext(ctx, "Status change does not require export",
				"gameday_id", e.GamedayID,
				"to", e.ToStatus.String())
			return nil
		}
		return w.ExportGameday(ctx, e.GamedayID)
	case amqp.EventRoundWon:
		slog.InfoContext(ctx, "Round won event received",
			"ranking_type", e.RankingType,
			"round_number", e.RoundNumber,
			"winner_member_id", e.WinnerMemberID)
	case amqp.EventGamedayCreated:
		slog.InfoContext(ctx, "Gameday created event received",
			"gameday_id", e.GamedayID,
			"date", e.GamedayDate)
	}
	return nil
}

// ExportGameday exports one archived gameday. Gamedays already exported
// successfully are skipped, so redelivered events are harmless.
func (w *ExportWorker) ExportGameday(ctx context.Context, gamedayID int64) error {
	state, ok, err := w.storage.ExportState(ctx, gamedayID)
	if err != nil {
		return err
	}
	if ok && state.Status == storage.ExportSynced {
		slog.InfoContext(ctx, "Gameday already exported, skipping",
			"gameday_id", gamedayID,
			"sheets_ref", state.RowRef)
		return nil
	}

	sheet, err := w.gamedays.GetGameday(ctx, gamedayID)
	if err != nil {
		return fmt.Errorf("load gameday: %w", err)
	}
	if sheet.Gameday.Status != core.StatusArchived {
		// Reverted before the event was consumed.
		slog.WarnContext(ctx, "Gameday no longer archived, skipping export",
			"gameday_id", gamedayID,
			"status", sheet.Gameday.Status.String())
		return nil
	}

	names := make(map[int64]string, len(sheet.Members))
	for _, m := range sheet.Members {
		names[m.ID] = m.DisplayName
	}
	ref, err := w.exporter.ExportSettlement(ctx, sheets.Report{
		Gameday: sheet.Gameday,
		Names:   names,
		Lines:   sheet.Lines,
	})
	if err != nil {
		if markErr := w.storage.MarkExportError(ctx, gamedayID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "gameday_id", gamedayID, "error", markErr)
		}
		return fmt.Errorf("export settlement: %w", err)
	}

	if err := w.storage.MarkExported(ctx, gamedayID, ref); err != nil {
		// Rows are already written, do not fail the message.
		slog.ErrorContext(ctx, "Failed to mark as exported", "gameday_id", gamedayID, "error", err)
	}

	slog.InfoContext(ctx, "Successfully exported settlement",
		"gameday_id", gamedayID,
		"sheets_ref", ref,
		"members", len(sheet.Lines))
	return nil
}

// ProcessPendingExports exports archived gamedays that have no successful
// export yet. This is the backup path for lost AMQP messages and runs at
// startup and on a schedule.
func (w *ExportWorker) ProcessPendingExports(ctx context.Context) error {
	pending, err := w.storage.PendingExports(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending exports: %w", err)
	}
	if len(pending) == 0 {
		slog.DebugContext(ctx, "No pending exports")
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	synced, failed := 0, 0
	for _, g := range pending {
		if err := w.ExportGameday(ctx, g.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export gameday", "gameday_id", g.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Pending exports processed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}
