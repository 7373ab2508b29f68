package settlement

import "kegelkladde/internal/core"

// CashTotals are the raw sums the balance is derived from.
type CashTotals struct {
	Start    core.Money `json:"start"`
	Paid     core.Money `json:"paid"`
	Income   core.Money `json:"income"`
	Cost     core.Money `json:"cost"`
	Expenses core.Money `json:"expenses"`
}

// Balance is start + paid + income - cost - expenses.
func (t CashTotals) Balance() core.Money {
	return t.Start.Add(t.Paid).Add(t.Income).Sub(t.Cost).Sub(t.Expenses)
}

// GamedayCash is the cash view of one gameday.
type GamedayCash struct {
	GamedayID int64              `json:"gameday_id"`
	Before    core.Money         `json:"before"`
	Paid      core.Money         `json:"paid"`
	Income    core.Money         `json:"income"`
	Cost      core.Money         `json:"cost"`
	After     core.Money         `json:"after"`
	Entries   []core.LedgerEntry `json:"entries"`
}

// ForGameday derives the balance before a gameday by removing that
// gameday's own paid, income and cost contributions from the global total.
func ForGameday(total core.Money, gamedayID int64, paid core.Money, entries []core.LedgerEntry) GamedayCash {
	var income, cost core.Money
	for _, e := range entries {
		switch e.Kind {
		case core.LedgerIncome:
			income = income.Add(e.Amount)
		case core.LedgerCost:
			cost = cost.Add(e.Amount)
		}
	}
	if entries == nil {
		entries = []core.LedgerEntry{}
	}
	return GamedayCash{
		GamedayID: gamedayID,
		Before:    total.Sub(paid).Sub(income).Add(cost),
		Paid:      paid,
		Income:    income,
		Cost:      cost,
		After:     total,
		Entries:   entries,
	}
}

// SumPaid adds up the paid column of a set of records.
func SumPaid(records []core.AttendanceRecord) core.Money {
	var sum core.Money
	for _, r := range records {
		sum = sum.Add(r.Paid)
	}
	return sum
}
