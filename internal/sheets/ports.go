package sheets

import (
	"context"

	"kegelkladde/internal/core"
	"kegelkladde/internal/settlement"
)

// Ports for outbound adapters.
type (
	// SettlementExporter writes the final settlement of an archived gameday
	// to an external ledger.
	SettlementExporter interface {
		ExportSettlement(ctx context.Context, r Report) (rowRef string, err error)
	}
)

// Report is the settlement of one gameday as handed to an exporter.
type Report struct {
	Gameday core.Gameday
	// Names maps member IDs to display names.
	Names map[int64]string
	Lines []settlement.Line
}

// Header is the column layout used by Rows.
var Header = []any{
	"Datum", "Mitglied", "Anwesend", "Beitrag", "Strafen", "Marker",
	"Pudel", "Spiele", "Eigene Spiele", "Übertrag", "Soll", "Bezahlt", "Rest",
}

// Rows flattens a report into one spreadsheet row per member. Amounts are
// written as euros so the sheet can format them as currency.
func Rows(r Report) [][]any {
	out := make([][]any, 0, len(r.Lines))
	date := r.Gameday.Date.String()
	for _, l := range r.Lines {
		present := "nein"
		if l.Present {
			present = "ja"
		}
		out = append(out, []any{
			date,
			r.Names[l.MemberID],
			present,
			l.Contribution.Euros(),
			l.Penalties.Euros(),
			l.MarkerCost.Euros(),
			l.PudelCost.Euros(),
			l.GameCost.Euros(),
			l.CustomGameTotal.Euros(),
			l.Carryover.Euros(),
			l.AmountOwed.Euros(),
			l.Paid.Euros(),
			l.Remaining.Euros(),
		})
	}
	return out
}
