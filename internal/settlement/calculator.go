// Package settlement computes what each member owes for a gameday, seeds
// carryover into the next gameday and aggregates the club cash balance.
//
// Everything here is pure computation over core types; persistence and
// status gating live in the services layer.
package settlement

import "kegelkladde/internal/core"

// MarkerPrice is the charge per marker unit.
var MarkerPrice = core.Cents(10)

// DefaultContribution is the fixed per-gameday fee.
var DefaultContribution = core.Cents(400)

// Line is the settlement of one attendance record.
type Line struct {
	MemberID        int64      `json:"member_id"`
	Present         bool       `json:"present"`
	Contribution    core.Money `json:"contribution"`
	Penalties       core.Money `json:"penalties"`
	MarkerCost      core.Money `json:"marker_cost"`
	PudelCost       core.Money `json:"pudel_cost"`
	GameCost        core.Money `json:"game_cost"`
	CustomGameTotal core.Money `json:"custom_game_total"`
	Carryover       core.Money `json:"carryover"`
	AmountOwed      core.Money `json:"amount_owed"`
	Paid            core.Money `json:"paid"`
	Remaining       core.Money `json:"remaining"`
}

// Totals of the three shared marker types across present members.
type markerTotals struct {
	alle9, kranz, triclops int
}

// Compute returns one Line per record, in input order. Custom values for
// members without a record are ignored.
func Compute(records []core.AttendanceRecord, values []core.CustomGameValue) []Line {
	var totals markerTotals
	for _, r := range records {
		if !r.Present {
			continue
		}
		totals.alle9 += r.Alle9
		totals.kranz += r.Kranz
		totals.triclops += r.Triclops
	}

	custom := make(map[int64]core.Money, len(records))
	for _, v := range values {
		custom[v.MemberID] = custom[v.MemberID].Add(v.Amount)
	}

	lines := make([]Line, 0, len(records))
	for _, r := range records {
		lines = append(lines, computeLine(r, totals, custom[r.MemberID]))
	}
	return lines
}

func computeLine(r core.AttendanceRecord, totals markerTotals, customTotal core.Money) Line {
	l := Line{
		MemberID:     r.MemberID,
		Present:      r.Present,
		Contribution: r.Contribution,
		Penalties:    r.Penalties,
		Carryover:    r.Carryover,
		Paid:         r.Paid,
	}

	owed := r.Contribution.Add(r.Penalties).Add(r.Carryover)
	if r.Present {
		others := (totals.alle9 - r.Alle9) + (totals.kranz - r.Kranz) + (totals.triclops - r.Triclops)
		l.MarkerCost = MarkerPrice.Mul(others)
		l.PudelCost = MarkerPrice.Mul(r.Pudel)
		l.GameCost = r.VA.OrZero().
			Add(r.Monte.OrZero()).
			Add(r.Aussteigen.OrZero()).
			Add(r.SechsTage.OrZero())
		l.CustomGameTotal = customTotal
		owed = owed.Add(l.MarkerCost).Add(l.PudelCost).Add(l.GameCost).Add(l.CustomGameTotal)
	}

	l.AmountOwed = owed
	l.Remaining = owed.Sub(r.Paid)
	return l
}

// ByMember indexes lines by member id.
func ByMember(lines []Line) map[int64]Line {
	out := make(map[int64]Line, len(lines))
	for _, l := range lines {
		out[l.MemberID] = l
	}
	return out
}
