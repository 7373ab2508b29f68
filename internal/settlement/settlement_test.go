package settlement

import (
	"testing"

	"kegelkladde/internal/core"
)

func present(memberID int64) core.AttendanceRecord {
	return core.NewAttendance(1, memberID, DefaultContribution, core.Money{})
}

func TestComputeMarkerCostFixture(t *testing.T) {
	records := []core.AttendanceRecord{present(1), present(2), present(3)}
	records[0].Alle9 = 2
	records[2].Alle9 = 3

	lines := Compute(records, nil)
	want := []int64{30, 50, 20}
	for i, l := range lines {
		if l.MarkerCost.Cents != want[i] {
			t.Fatalf("member %d marker cost = %s, want %d cents", l.MemberID, l.MarkerCost, want[i])
		}
	}

	// Sum of (total - own) over N present members equals (N-1) * total.
	var sum int64
	for _, l := range lines {
		sum += l.MarkerCost.Cents
	}
	if closed := int64(len(records)-1) * 5 * MarkerPrice.Cents; sum != closed {
		t.Fatalf("closed form mismatch: sum=%d closed=%d", sum, closed)
	}
}

func TestComputeAllMarkerTypesAndGames(t *testing.T) {
	a, b := present(1), present(2)
	a.Kranz, a.Triclops, a.Pudel = 1, 1, 3
	b.Alle9 = 4
	a.VA = core.SomeMoney(core.Cents(50))
	a.Monte = core.SomeMoney(core.Cents(120))
	a.Aussteigen = core.SomeMoney(core.Cents(30))
	a.SechsTage = core.SomeMoney(core.Cents(100))
	a.Penalties = core.Cents(200)
	a.Carryover = core.Cents(-150)
	a.Paid = core.Cents(1000)

	values := []core.CustomGameValue{
		{MemberID: 1, CustomGameID: 7, Amount: core.Cents(40)},
		{MemberID: 1, CustomGameID: 8, Amount: core.Cents(60)},
		{MemberID: 99, CustomGameID: 7, Amount: core.Cents(500)},
	}
	lines := Compute([]core.AttendanceRecord{a, b}, values)
	la := lines[0]

	checks := []struct {
		name string
		got  core.Money
		want int64
	}{
		{"marker", la.MarkerCost, 40},
		{"pudel", la.PudelCost, 30},
		{"games", la.GameCost, 300},
		{"custom", la.CustomGameTotal, 100},
		// 400 + 200 + 30 + 40 + 300 + 100 - 150
		{"owed", la.AmountOwed, 920},
		{"remaining", la.Remaining, -80},
	}
	for _, c := range checks {
		if c.got.Cents != c.want {
			t.Fatalf("%s = %s, want %d cents", c.name, c.got, c.want)
		}
	}
	if lines[1].MarkerCost.Cents != 20 {
		t.Fatalf("member 2 marker cost = %s", lines[1].MarkerCost)
	}
}

func TestComputeAbsentMemberPaysOnlyFixedParts(t *testing.T) {
	a, b := present(1), present(2)
	b.Present = false
	b.Alle9 = 5
	b.Pudel = 2
	b.Monte = core.SomeMoney(core.Cents(90))
	b.Penalties = core.Cents(100)
	b.Carryover = core.Cents(130)
	a.Alle9 = 1

	lines := Compute([]core.AttendanceRecord{a, b}, []core.CustomGameValue{{MemberID: 2, Amount: core.Cents(300)}})
	if lines[0].MarkerCost.Cents != 0 {
		t.Fatalf("absent markers must not count toward totals, got %s", lines[0].MarkerCost)
	}
	lb := lines[1]
	if lb.AmountOwed.Cents != 630 {
		t.Fatalf("absent owed = %s, want 6.30", lb.AmountOwed)
	}
	if lb.GameCost.Cents != 0 || lb.CustomGameTotal.Cents != 0 || lb.MarkerCost.Cents != 0 {
		t.Fatalf("absent member charged game costs: %+v", lb)
	}
}

func TestComputeLegacyNullSideGame(t *testing.T) {
	a := present(1)
	a.Monte = core.NullMoney{}
	a.VA = core.SomeMoney(core.Cents(10))
	l := Compute([]core.AttendanceRecord{a}, nil)[0]
	if l.GameCost.Cents != 10 {
		t.Fatalf("NULL side game should count as zero, got %s", l.GameCost)
	}
}

func TestSeedCarryover(t *testing.T) {
	prevA, prevB := present(1), present(2)
	prevA.Contribution = core.Cents(130)
	prevB.Contribution = core.Money{}
	prevB.Paid = core.Cents(50)
	prev := &Session{
		Gameday: core.Gameday{ID: 1},
		Records: []core.AttendanceRecord{prevA, prevB},
	}
	members := []core.Member{
		{ID: 1, Active: true},
		{ID: 2, Active: true},
		{ID: 3, Active: true},
		{ID: 4, Active: false},
	}

	seeded := Seed(2, members, prev, DefaultContribution)
	if len(seeded) != 3 {
		t.Fatalf("expected 3 records, got %d", len(seeded))
	}
	want := map[int64]int64{1: 130, 2: -50, 3: 0}
	for _, r := range seeded {
		if r.GamedayID != 2 {
			t.Fatalf("wrong gameday id %d", r.GamedayID)
		}
		if r.Carryover.Cents != want[r.MemberID] {
			t.Fatalf("member %d carryover = %s, want %d cents", r.MemberID, r.Carryover, want[r.MemberID])
		}
		if r.Contribution != DefaultContribution || r.Paid.Cents != 0 || !r.Present {
			t.Fatalf("member %d not seeded with defaults: %+v", r.MemberID, r)
		}
	}

	none := Seed(3, members[:1], nil, DefaultContribution)
	if none[0].Carryover.Cents != 0 {
		t.Fatalf("no previous session should give zero carryover")
	}
}

func TestCashBalance(t *testing.T) {
	totals := CashTotals{
		Start:    core.Cents(10000),
		Paid:     core.Cents(4000),
		Income:   core.Cents(1000),
		Cost:     core.Cents(1500),
		Expenses: core.Cents(500),
	}
	if got := totals.Balance(); got.Cents != 13000 {
		t.Fatalf("balance = %s, want 130.00", got)
	}
}

func TestForGameday(t *testing.T) {
	entries := []core.LedgerEntry{
		{Kind: core.LedgerIncome, Amount: core.Cents(1000)},
		{Kind: core.LedgerCost, Amount: core.Cents(1500)},
	}
	gc := ForGameday(core.Cents(13000), 4, core.Cents(4000), entries)
	// 130 - 40 - 10 + 15
	if gc.Before.Cents != 9500 {
		t.Fatalf("before = %s, want 95.00", gc.Before)
	}
	if gc.Income.Cents != 1000 || gc.Cost.Cents != 1500 || gc.After.Cents != 13000 {
		t.Fatalf("unexpected breakdown %+v", gc)
	}
	if empty := ForGameday(core.Money{}, 1, core.Money{}, nil); empty.Entries == nil {
		t.Fatalf("entries should be an empty slice")
	}
}
