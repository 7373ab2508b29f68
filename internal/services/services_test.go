package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"kegelkladde/internal/amqp"
	"kegelkladde/internal/core"
	"kegelkladde/internal/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e *amqp.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count(t amqp.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "kladde.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func addMembers(t *testing.T, repo *storage.SQLiteRepository, names ...string) []core.Member {
	t.Helper()
	out := make([]core.Member, 0, len(names))
	for _, n := range names {
		m, err := repo.CreateMember(context.Background(), n)
		if err != nil {
			t.Fatalf("create member %s: %v", n, err)
		}
		out = append(out, m)
	}
	return out
}

func TestCreateGamedayCarriesOverRemaining(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	pub := &recordingPublisher{}
	svc := NewGamedayService(repo, pub, core.Money{})
	ms := addMembers(t, repo, "Anna", "Bernd", "Carla")

	g1, err := svc.CreateGameday(ctx, core.NewDate(2026, 1, 9), "Saisonstart")
	if err != nil {
		t.Fatalf("create g1: %v", err)
	}
	if _, err := svc.UpdateAttendance(ctx, g1.ID, ms[0].ID, AttendancePatch{Alle9: ptr(2), Paid: ptr(core.Cents(500))}); err != nil {
		t.Fatalf("update anna: %v", err)
	}
	line, err := svc.UpdateAttendance(ctx, g1.ID, ms[1].ID, AttendancePatch{Present: ptr(false)})
	if err != nil {
		t.Fatalf("update bernd: %v", err)
	}
	if line.Penalties != PresencePenalty || line.AmountOwed.Cents != 500 {
		t.Fatalf("absent line = %+v", line)
	}

	g2, err := svc.CreateGameday(ctx, core.NewDate(2026, 1, 23), "")
	if err != nil {
		t.Fatalf("create g2: %v", err)
	}
	sheet, err := svc.GetGameday(ctx, g2.ID)
	if err != nil {
		t.Fatalf("get g2: %v", err)
	}

	want := map[int64]int64{ms[0].ID: -100, ms[1].ID: 500, ms[2].ID: 420}
	if len(sheet.Records) != 3 {
		t.Fatalf("records = %+v", sheet.Records)
	}
	for _, r := range sheet.Records {
		if r.Carryover.Cents != want[r.MemberID] {
			t.Errorf("member %d carryover = %d, want %d", r.MemberID, r.Carryover.Cents, want[r.MemberID])
		}
		if r.Contribution.Cents != 400 || !r.Present || !r.Monte.Valid {
			t.Errorf("unexpected seeded record %+v", r)
		}
	}
	if got := pub.count(amqp.EventGamedayCreated); got != 2 {
		t.Fatalf("created events = %d, want 2", got)
	}
}

func TestCreateGamedayValidation(t *testing.T) {
	svc := NewGamedayService(newTestRepo(t), nil, core.Money{})
	long := make([]rune, core.MaxNoteLength+1)
	for i := range long {
		long[i] = 'x'
	}

	if _, err := svc.CreateGameday(context.Background(), core.Date{}, ""); !core.IsValidation(err) {
		t.Fatalf("zero date: got %v", err)
	}
	if _, err := svc.CreateGameday(context.Background(), core.NewDate(2026, 3, 6), string(long)); !errors.Is(err, core.ErrTooLong) {
		t.Fatalf("long note: got %v", err)
	}
}

func TestStatusGating(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	pub := &recordingPublisher{}
	svc := NewGamedayService(repo, pub, core.Money{})
	ms := addMembers(t, repo, "Anna")
	g, _ := svc.CreateGameday(ctx, core.NewDate(2026, 2, 6), "")

	if _, err := svc.RevertStatus(ctx, g.ID); !errors.Is(err, core.ErrInvalidTransition) {
		t.Fatalf("revert from not started: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := svc.AdvanceStatus(ctx, g.ID); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}

	// Settlement: only paid may change.
	if _, err := svc.UpdateAttendance(ctx, g.ID, ms[0].ID, AttendancePatch{Alle9: ptr(1), Paid: ptr(core.Cents(400))}); !errors.Is(err, core.ErrFieldLocked) {
		t.Fatalf("mixed patch in settlement should be locked, got %v", err)
	}
	line, err := svc.UpdateAttendance(ctx, g.ID, ms[0].ID, AttendancePatch{Paid: ptr(core.Cents(400))})
	if err != nil || !line.Remaining.IsZero() {
		t.Fatalf("paid in settlement: line=%+v err=%v", line, err)
	}
	if _, err := svc.AddCustomGame(ctx, g.ID, "Fuchsjagd"); !errors.Is(err, core.ErrFieldLocked) {
		t.Fatalf("custom game in settlement: %v", err)
	}
	if _, err := svc.AddLedgerEntry(ctx, core.LedgerEntry{GamedayID: g.ID, Kind: core.LedgerCost, Name: "Bahn", Amount: core.Cents(3000)}); err != nil {
		t.Fatalf("ledger in settlement: %v", err)
	}

	archived, err := svc.AdvanceStatus(ctx, g.ID)
	if err != nil || archived.Status != core.StatusArchived {
		t.Fatalf("archive: %+v %v", archived, err)
	}
	if _, err := svc.UpdateAttendance(ctx, g.ID, ms[0].ID, AttendancePatch{Paid: ptr(core.Cents(0))}); !errors.Is(err, core.ErrFieldLocked) {
		t.Fatalf("paid while archived: %v", err)
	}
	if _, err := svc.UpdateGameday(ctx, g.ID, "zu spät", core.Money{}); !errors.Is(err, core.ErrFieldLocked) {
		t.Fatalf("details while archived: %v", err)
	}
	if _, err := svc.AdvanceStatus(ctx, g.ID); !errors.Is(err, core.ErrInvalidTransition) {
		t.Fatalf("advance from archived: %v", err)
	}
	if got := pub.count(amqp.EventStatusChanged); got != 3 {
		t.Fatalf("status events = %d, want 3", got)
	}
}

func TestMonteExtraAndStruck(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewGamedayService(repo, nil, core.Money{})
	ms := addMembers(t, repo, "Anna", "Bernd")
	g, _ := svc.CreateGameday(ctx, core.NewDate(2026, 2, 6), "")

	if err := svc.SetMonteExtra(ctx, g.ID, ms[0].ID); err != nil {
		t.Fatalf("extra anna: %v", err)
	}
	if err := svc.SetMonteExtra(ctx, g.ID, ms[1].ID); err != nil {
		t.Fatalf("extra bernd: %v", err)
	}
	sheet, _ := svc.GetGameday(ctx, g.ID)
	if sheet.Records[0].MonteExtra || !sheet.Records[1].MonteExtra {
		t.Fatalf("extra should move to bernd: %+v", sheet.Records)
	}
	if err := svc.SetMonteExtra(ctx, g.ID, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("extra for unknown member: %v", err)
	}

	rec, err := svc.ToggleStruck(ctx, g.ID, ms[0].ID, core.SideGameMonte)
	if err != nil || !rec.Struck.Has(core.SideGameMonte) {
		t.Fatalf("strike monte: %+v %v", rec.Struck, err)
	}
	rec, _ = svc.ToggleStruck(ctx, g.ID, ms[0].ID, core.SideGameMonte)
	if rec.Struck.Has(core.SideGameMonte) {
		t.Fatalf("second toggle should clear: %+v", rec.Struck)
	}
	if _, err := svc.ToggleStruck(ctx, g.ID, ms[0].ID, core.SideGame("kegelbillard")); !errors.Is(err, core.ErrInvalidSideGame) {
		t.Fatalf("unknown side game: %v", err)
	}
}

func TestCustomGames(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewGamedayService(repo, nil, core.Money{})
	ms := addMembers(t, repo, "Anna", "Bernd")
	g, _ := svc.CreateGameday(ctx, core.NewDate(2026, 2, 6), "")

	cg, err := svc.AddCustomGame(ctx, g.ID, "  Fuchsjagd ")
	if err != nil || cg.Name != "Fuchsjagd" {
		t.Fatalf("add: %+v %v", cg, err)
	}
	if _, err := svc.AddCustomGame(ctx, g.ID, "   "); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("empty name: %v", err)
	}

	line, err := svc.SetCustomGameValue(ctx, g.ID, cg.ID, ms[1].ID, core.Cents(80))
	if err != nil {
		t.Fatalf("set value: %v", err)
	}
	if line.CustomGameTotal.Cents != 80 || line.AmountOwed.Cents != 480 {
		t.Fatalf("line = %+v", line)
	}

	if err := svc.RenameCustomGame(ctx, g.ID, cg.ID, "Hasenjagd"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := svc.DeleteCustomGame(ctx, g.ID, cg.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	lines, _ := svc.ComputeSettlement(ctx, g.ID)
	for _, l := range lines {
		if !l.CustomGameTotal.IsZero() {
			t.Fatalf("values should be gone with the game: %+v", l)
		}
	}
}

func TestNextSuggestedDate(t *testing.T) {
	ctx := context.Background()
	svc := NewGamedayService(newTestRepo(t), nil, core.Money{})

	d, err := svc.NextSuggestedDate(ctx)
	if err != nil || d.String() != "2026-02-20" {
		t.Fatalf("default = %s, %v", d, err)
	}
	svc.CreateGameday(ctx, core.NewDate(2026, 3, 6), "")
	d, _ = svc.NextSuggestedDate(ctx)
	if d.String() != "2026-03-20" {
		t.Fatalf("next = %s, want 2026-03-20", d)
	}
}

func TestCashBalanceForGameday(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	games := NewGamedayService(repo, nil, core.Money{})
	cash := NewCashService(repo)
	ms := addMembers(t, repo, "Anna")

	if err := cash.SetStartingBalance(ctx, core.Cents(10000)); err != nil {
		t.Fatalf("set start: %v", err)
	}
	g, _ := games.CreateGameday(ctx, core.NewDate(2026, 2, 6), "")
	games.UpdateAttendance(ctx, g.ID, ms[0].ID, AttendancePatch{Paid: ptr(core.Cents(2500))})
	games.AddLedgerEntry(ctx, core.LedgerEntry{GamedayID: g.ID, Kind: core.LedgerIncome, Name: "Spende", Amount: core.Cents(1000)})
	games.AddLedgerEntry(ctx, core.LedgerEntry{GamedayID: g.ID, Kind: core.LedgerCost, Name: "Bahnmiete", Amount: core.Cents(500)})

	overall, err := cash.CashBalance(ctx)
	if err != nil || overall.Balance.Cents != 13000 {
		t.Fatalf("balance = %+v, %v", overall, err)
	}
	gc, err := cash.CashBalanceForGameday(ctx, g.ID)
	if err != nil {
		t.Fatalf("gameday cash: %v", err)
	}
	if gc.Before.Cents != 10000 || gc.After.Cents != 13000 || len(gc.Entries) != 2 {
		t.Fatalf("gameday cash = %+v", gc)
	}

	if _, err := cash.AddExpense(ctx, core.Expense{Date: core.NewDate(2026, 2, 7), Description: "Pokal", Amount: core.Cents(3000)}); err != nil {
		t.Fatalf("expense: %v", err)
	}
	overall, _ = cash.CashBalance(ctx)
	if overall.Balance.Cents != 10000 {
		t.Fatalf("balance after expense = %d", overall.Balance.Cents)
	}
	if _, err := cash.CashBalanceForGameday(ctx, 4242); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown gameday: %v", err)
	}
}

func TestRankingServicePersistsRounds(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	pub := &recordingPublisher{}
	games := NewGamedayService(repo, nil, core.Money{})
	rankings := NewRankingService(repo, pub)
	ms := addMembers(t, repo, "Anna", "Bernd")

	if err := rankings.SetInitialValues(ctx, core.MemberInitialValue{MemberID: ms[0].ID, InitialMontePoints: 95, InitialMonteWins: 2}); err != nil {
		t.Fatalf("initial values: %v", err)
	}
	if err := rankings.SetInitialValues(ctx, core.MemberInitialValue{MemberID: 777}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown member: %v", err)
	}

	g, _ := games.CreateGameday(ctx, core.NewDate(2026, 1, 9), "")
	games.UpdateAttendance(ctx, g.ID, ms[0].ID, AttendancePatch{Monte: ptr(core.Cents(50))})
	games.UpdateAttendance(ctx, g.ID, ms[1].ID, AttendancePatch{Monte: ptr(core.Cents(60))})

	monte, medaillen, err := rankings.Both(ctx)
	if err != nil {
		t.Fatalf("both: %v", err)
	}
	if len(monte.History) != 1 {
		t.Fatalf("monte history = %+v", monte.History)
	}
	rw := monte.History[0]
	if rw.RoundNumber != 3 || rw.WinnerMemberID != ms[0].ID || rw.WinnerName != "Anna" || rw.WinningScore != 105 {
		t.Fatalf("round win = %+v", rw)
	}
	if rw.GamedayDate.String() != "2026-01-09" {
		t.Fatalf("round date = %s", rw.GamedayDate)
	}
	if monte.Threshold != 100 || medaillen.Type != core.RankingMedaillen {
		t.Fatalf("unexpected tables %+v / %+v", monte, medaillen)
	}

	if _, err := rankings.MonteStandings(ctx); err != nil {
		t.Fatalf("second replay: %v", err)
	}
	if got := pub.count(amqp.EventRoundWon); got != 1 {
		t.Fatalf("round.won events = %d, want 1", got)
	}
}

func TestRankingReplaySurvivesCallerCancellation(t *testing.T) {
	repo := newTestRepo(t)
	rankings := NewRankingService(repo, nil)
	ms := addMembers(t, repo, "Anna")
	if err := rankings.SetInitialValues(context.Background(), core.MemberInitialValue{MemberID: ms[0].ID, InitialMontePoints: 12}); err != nil {
		t.Fatalf("initial values: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	table, err := rankings.MonteStandings(ctx)
	if err != nil {
		t.Fatalf("replay with cancelled caller: %v", err)
	}
	if len(table.Standings) != 1 || table.Standings[0].Total != 12 {
		t.Fatalf("standings = %+v", table.Standings)
	}
}

func TestGetGamedaySheet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewGamedayService(repo, nil, core.Money{})
	ms := addMembers(t, repo, "Anna", "Bernd")

	g, _ := svc.CreateGameday(ctx, core.NewDate(2026, 3, 6), "")
	if _, err := svc.UpdateAttendance(ctx, g.ID, ms[0].ID, AttendancePatch{Kranz: ptr(1), Paid: ptr(core.Cents(300))}); err != nil {
		t.Fatalf("update anna: %v", err)
	}
	if _, err := svc.AddLedgerEntry(ctx, core.LedgerEntry{GamedayID: g.ID, Kind: core.LedgerCost, Name: "Bahn", Amount: core.Cents(2000)}); err != nil {
		t.Fatalf("add entry: %v", err)
	}

	sheet, err := svc.GetGameday(ctx, g.ID)
	if err != nil {
		t.Fatalf("get sheet: %v", err)
	}
	if len(sheet.Members) != 2 || len(sheet.Lines) != 2 || len(sheet.Entries) != 1 {
		t.Fatalf("sheet = %+v", sheet)
	}
	var owed, remaining core.Money
	for _, l := range sheet.Lines {
		owed = owed.Add(l.AmountOwed)
		remaining = remaining.Add(l.Remaining)
	}
	// Anna owes 4.00, Bernd 4.00 plus 0.10 for Anna's Kranz.
	if owed.Cents != 810 || sheet.Totals.Owed != owed {
		t.Fatalf("owed = %s, totals = %+v", owed, sheet.Totals)
	}
	if sheet.Totals.Paid.Cents != 300 || sheet.Totals.Remaining != remaining {
		t.Fatalf("totals = %+v", sheet.Totals)
	}

	if _, err := svc.GetGameday(ctx, 4711); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown gameday: %v", err)
	}
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewGamedayService(repo, nil, core.Money{})
	ms := addMembers(t, repo, "Anna", "Bernd")
	anna, bernd := ms[0], ms[1]

	g, _ := svc.CreateGameday(ctx, core.NewDate(2026, 3, 6), "")
	if _, err := svc.UpdateAttendance(ctx, g.ID, anna.ID, AttendancePatch{Alle9: ptr(2), Pudel: ptr(1)}); err != nil {
		t.Fatalf("update anna: %v", err)
	}
	if err := repo.SaveInitialValue(ctx, core.MemberInitialValue{MemberID: bernd.ID, InitialAlle9: 5}); err != nil {
		t.Fatalf("initial values: %v", err)
	}

	st, err := svc.Statistics(ctx, 2026)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if st.Gamedays != 1 || st.Members != 2 || st.Contributions.Cents != 800 {
		t.Fatalf("statistics = %+v", st)
	}
	if len(st.TopAlle9) != 2 || st.TopAlle9[0].MemberID != bernd.ID || st.TopAlle9[0].Alle9 != 5 {
		t.Fatalf("top alle9 = %+v, want Bernd first with 5", st.TopAlle9)
	}
	if a := st.TopAlle9[1]; a.MemberID != anna.ID || a.AvgAlle9 != 2 {
		t.Fatalf("anna = %+v, want average 2", a)
	}
	if len(st.MostPudel) != 1 || st.MostPudel[0].MemberID != anna.ID {
		t.Fatalf("most pudel = %+v", st.MostPudel)
	}
	if len(st.Monthly) != 1 || st.Monthly[0].Name != "Mär" || st.Monthly[0].Gamedays != 1 {
		t.Fatalf("monthly = %+v", st.Monthly)
	}

	st, err = svc.Statistics(ctx, 2025)
	if err != nil || len(st.Monthly) != 0 || st.Gamedays != 1 {
		t.Fatalf("2025 statistics = %+v, err = %v", st, err)
	}
}
