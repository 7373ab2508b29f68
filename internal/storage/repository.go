package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"kegelkladde/internal/core"
	"kegelkladde/internal/settlement"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// StartingBalanceKey is the settings key holding the opening cash balance in cents.
const StartingBalanceKey = "kassenstand_start"

// SQLiteRepository owns the database handle. Reads go through the embedded
// Store directly; multi-step writes go through InTx.
type SQLiteRepository struct {
	*Store
	db *sql.DB
}

// Store holds the domain-level queries. It is bound either to the database
// or to a single transaction.
type Store struct {
	q *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		Store: &Store{q: New(db)},
		db:    db,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness check.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// InTx runs fn inside one write transaction. The transaction is committed
// when fn returns nil and rolled back otherwise.
func (r *SQLiteRepository) InTx(ctx context.Context, fn func(*Store) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", mapError(err))
	}
	defer tx.Rollback()

	if err := fn(&Store{q: r.Store.q.WithTx(tx)}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", mapError(err))
	}
	return nil
}

// mapError turns SQLite lock contention into core.ErrConflict.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %v", core.ErrConflict, err)
		}
	}
	return err
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// parseTimestamp accepts RFC3339 and the CURRENT_TIMESTAMP default format.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}

func parseStoredDate(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}
	}
	return d
}

func nullMoney(v sql.NullInt64) core.NullMoney {
	if !v.Valid {
		return core.NullMoney{}
	}
	return core.SomeMoney(core.Cents(v.Int64))
}

func nullCents(m core.NullMoney) sql.NullInt64 {
	return sql.NullInt64{Int64: m.Money.Cents, Valid: m.Valid}
}

// ---- members ----

func toMember(m Member) core.Member {
	return core.Member{
		ID:          m.ID,
		DisplayName: m.DisplayName,
		Active:      m.Active != 0,
		SortOrder:   int(m.SortOrder),
	}
}

func (s *Store) ListMembers(ctx context.Context) ([]core.Member, error) {
	rows, err := s.q.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", mapError(err))
	}
	members := make([]core.Member, len(rows))
	for i, m := range rows {
		members[i] = toMember(m)
	}
	return members, nil
}

func (s *Store) ListActiveMembers(ctx context.Context) ([]core.Member, error) {
	all, err := s.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]core.Member, 0, len(all))
	for _, m := range all {
		if m.Active {
			active = append(active, m)
		}
	}
	return active, nil
}

func (s *Store) CreateMember(ctx context.Context, name string) (core.Member, error) {
	m, err := s.q.CreateMember(ctx, name)
	if err != nil {
		return core.Member{}, fmt.Errorf("create member: %w", mapError(err))
	}
	slog.InfoContext(ctx, "Member created", "member_id", m.ID, "name", m.DisplayName)
	return toMember(m), nil
}

func (s *Store) SetMemberActive(ctx context.Context, id int64, active bool) error {
	n, err := s.q.SetMemberActive(ctx, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("set member active: %w", mapError(err))
	}
	if n == 0 {
		return &core.NotFoundError{Kind: "member", ID: id}
	}
	return nil
}

// ---- gamedays ----

func toGameday(g Gameday) core.Gameday {
	return core.Gameday{
		ID:        g.ID,
		Date:      parseStoredDate(g.MatchDate),
		Note:      g.Note,
		Status:    core.Status(g.Status),
		LaneCost:  core.Cents(g.LaneCostCents),
		CreatedAt: parseTimestamp(g.CreatedAt),
	}
}

// ListGamedays returns all gamedays in chronological order.
func (s *Store) ListGamedays(ctx context.Context) ([]core.Gameday, error) {
	rows, err := s.q.ListGamedays(ctx)
	if err != nil {
		return nil, fmt.Errorf("list gamedays: %w", mapError(err))
	}
	out := make([]core.Gameday, len(rows))
	for i, g := range rows {
		out[i] = toGameday(g)
	}
	return out, nil
}

func (s *Store) GetGameday(ctx context.Context, id int64) (core.Gameday, error) {
	g, err := s.q.GetGameday(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Gameday{}, &core.NotFoundError{Kind: "gameday", ID: id}
	}
	if err != nil {
		return core.Gameday{}, fmt.Errorf("get gameday: %w", mapError(err))
	}
	return toGameday(g), nil
}

// PreviousGameday returns the gameday immediately before date.
func (s *Store) PreviousGameday(ctx context.Context, date core.Date) (core.Gameday, bool, error) {
	g, err := s.q.PreviousGameday(ctx, date.String())
	if errors.Is(err, sql.ErrNoRows) {
		return core.Gameday{}, false, nil
	}
	if err != nil {
		return core.Gameday{}, false, fmt.Errorf("previous gameday: %w", mapError(err))
	}
	return toGameday(g), true, nil
}

// LastGameday returns the most recent gameday.
func (s *Store) LastGameday(ctx context.Context) (core.Gameday, bool, error) {
	g, err := s.q.LastGameday(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Gameday{}, false, nil
	}
	if err != nil {
		return core.Gameday{}, false, fmt.Errorf("last gameday: %w", mapError(err))
	}
	return toGameday(g), true, nil
}

func (s *Store) CreateGameday(ctx context.Context, g core.Gameday) (core.Gameday, error) {
	row, err := s.q.CreateGameday(ctx, CreateGamedayParams{
		MatchDate:     g.Date.String(),
		Note:          g.Note,
		Status:        int64(g.Status),
		LaneCostCents: g.LaneCost.Cents,
		CreatedAt:     nowString(),
	})
	if err != nil {
		return core.Gameday{}, fmt.Errorf("create gameday: %w", mapError(err))
	}
	return toGameday(row), nil
}

// UpdateGamedayStatus moves id from one status to another. It fails with
// core.ErrConflict when the stored status no longer equals from.
func (s *Store) UpdateGamedayStatus(ctx context.Context, id int64, from, to core.Status) error {
	n, err := s.q.UpdateGamedayStatus(ctx, UpdateGamedayStatusParams{
		Status:     int64(to),
		ID:         id,
		FromStatus: int64(from),
	})
	if err != nil {
		return fmt.Errorf("update gameday status: %w", mapError(err))
	}
	if n == 0 {
		return fmt.Errorf("update gameday %d status: %w", id, core.ErrConflict)
	}
	return nil
}

func (s *Store) UpdateGamedayDetails(ctx context.Context, id int64, note string, laneCost core.Money) error {
	err := s.q.UpdateGamedayDetails(ctx, UpdateGamedayDetailsParams{
		Note:          note,
		LaneCostCents: laneCost.Cents,
		ID:            id,
	})
	if err != nil {
		return fmt.Errorf("update gameday details: %w", mapError(err))
	}
	return nil
}

// DeleteGameday removes a gameday and, by cascade, all rows attached to it.
func (s *Store) DeleteGameday(ctx context.Context, id int64) error {
	n, err := s.q.DeleteGameday(ctx, id)
	if err != nil {
		return fmt.Errorf("delete gameday: %w", mapError(err))
	}
	if n == 0 {
		return &core.NotFoundError{Kind: "gameday", ID: id}
	}
	return nil
}

// ---- attendance ----

func toAttendance(a Attendance) core.AttendanceRecord {
	return core.AttendanceRecord{
		GamedayID:          a.GamedayID,
		MemberID:           a.MemberID,
		Present:            a.Present != 0,
		Triclops:           int(a.Triclops),
		Alle9:              int(a.Alle9),
		Kranz:              int(a.Kranz),
		Pudel:              int(a.Pudel),
		Penalties:          core.Cents(a.PenaltiesCents),
		Contribution:       core.Cents(a.ContributionCents),
		VA:                 nullMoney(a.VaCents),
		Monte:              nullMoney(a.MonteCents),
		Aussteigen:         nullMoney(a.AussteigenCents),
		SechsTage:          nullMoney(a.SechsTageCents),
		MonteTiebreak:      int(a.MonteTiebreak),
		AussteigenTiebreak: int(a.AussteigenTiebreak),
		MonteExtra:         a.MonteExtra != 0,
		Struck:             core.ParseStruckSet(a.StruckGames),
		Carryover:          core.Cents(a.CarryoverCents),
		Paid:               core.Cents(a.PaidCents),
	}
}

func fromAttendance(r core.AttendanceRecord) Attendance {
	return Attendance{
		GamedayID:          r.GamedayID,
		MemberID:           r.MemberID,
		Present:            boolToInt(r.Present),
		Triclops:           int64(r.Triclops),
		Alle9:              int64(r.Alle9),
		Kranz:              int64(r.Kranz),
		Pudel:              int64(r.Pudel),
		PenaltiesCents:     r.Penalties.Cents,
		ContributionCents:  r.Contribution.Cents,
		VaCents:            nullCents(r.VA),
		MonteCents:         nullCents(r.Monte),
		AussteigenCents:    nullCents(r.Aussteigen),
		SechsTageCents:     nullCents(r.SechsTage),
		MonteTiebreak:      int64(r.MonteTiebreak),
		AussteigenTiebreak: int64(r.AussteigenTiebreak),
		MonteExtra:         boolToInt(r.MonteExtra),
		StruckGames:        r.Struck.Encode(),
		CarryoverCents:     r.Carryover.Cents,
		PaidCents:          r.Paid.Cents,
		UpdatedAt:          nowString(),
	}
}

func toAttendanceList(rows []Attendance) []core.AttendanceRecord {
	out := make([]core.AttendanceRecord, len(rows))
	for i, a := range rows {
		out[i] = toAttendance(a)
	}
	return out
}

// ListAttendance returns a gameday's rows in member order.
func (s *Store) ListAttendance(ctx context.Context, gamedayID int64) ([]core.AttendanceRecord, error) {
	rows, err := s.q.ListAttendanceByGameday(ctx, gamedayID)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", mapError(err))
	}
	return toAttendanceList(rows), nil
}

// ListAllAttendance returns every attendance row grouped by gameday id.
func (s *Store) ListAllAttendance(ctx context.Context) (map[int64][]core.AttendanceRecord, error) {
	rows, err := s.q.ListAllAttendance(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all attendance: %w", mapError(err))
	}
	out := make(map[int64][]core.AttendanceRecord)
	for _, a := range rows {
		out[a.GamedayID] = append(out[a.GamedayID], toAttendance(a))
	}
	return out, nil
}

func (s *Store) GetAttendance(ctx context.Context, gamedayID, memberID int64) (core.AttendanceRecord, error) {
	a, err := s.q.GetAttendance(ctx, gamedayID, memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.AttendanceRecord{}, &core.NotFoundError{Kind: "attendance", ID: memberID}
	}
	if err != nil {
		return core.AttendanceRecord{}, fmt.Errorf("get attendance: %w", mapError(err))
	}
	return toAttendance(a), nil
}

// SaveAttendance inserts or fully replaces one attendance row.
func (s *Store) SaveAttendance(ctx context.Context, r core.AttendanceRecord) error {
	if err := s.q.UpsertAttendance(ctx, fromAttendance(r)); err != nil {
		return fmt.Errorf("save attendance: %w", mapError(err))
	}
	return nil
}

// SetMonteExtra marks memberID as the only Monte extra holder of the gameday.
// A memberID of zero clears the flag for everyone.
func (s *Store) SetMonteExtra(ctx context.Context, gamedayID, memberID int64) error {
	if err := s.q.SetMonteExtra(ctx, gamedayID, memberID, nowString()); err != nil {
		return fmt.Errorf("set monte extra: %w", mapError(err))
	}
	return nil
}

// GamedayPaid sums the paid column for one gameday.
func (s *Store) GamedayPaid(ctx context.Context, gamedayID int64) (core.Money, error) {
	v, err := s.q.SumPaidByGameday(ctx, gamedayID)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum gameday paid: %w", mapError(err))
	}
	return core.Cents(v), nil
}

// ---- custom games ----

func toCustomGame(c CustomGame) core.CustomGame {
	return core.CustomGame{ID: c.ID, GamedayID: c.GamedayID, Name: c.Name, SortOrder: int(c.SortOrder)}
}

func (s *Store) ListCustomGames(ctx context.Context, gamedayID int64) ([]core.CustomGame, error) {
	rows, err := s.q.ListCustomGames(ctx, gamedayID)
	if err != nil {
		return nil, fmt.Errorf("list custom games: %w", mapError(err))
	}
	out := make([]core.CustomGame, len(rows))
	for i, c := range rows {
		out[i] = toCustomGame(c)
	}
	return out, nil
}

// CreateCustomGame appends a game to the gameday and seeds a zero value for
// every attendance row.
func (s *Store) CreateCustomGame(ctx context.Context, gamedayID int64, name string) (core.CustomGame, error) {
	c, err := s.q.CreateCustomGame(ctx, gamedayID, name)
	if err != nil {
		return core.CustomGame{}, fmt.Errorf("create custom game: %w", mapError(err))
	}
	if err := s.q.InitCustomGameValues(ctx, c.ID, gamedayID); err != nil {
		return core.CustomGame{}, fmt.Errorf("init custom game values: %w", mapError(err))
	}
	return toCustomGame(c), nil
}

func (s *Store) GetCustomGame(ctx context.Context, gamedayID, id int64) (core.CustomGame, error) {
	c, err := s.q.GetCustomGame(ctx, id, gamedayID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CustomGame{}, &core.NotFoundError{Kind: "custom game", ID: id}
	}
	if err != nil {
		return core.CustomGame{}, fmt.Errorf("get custom game: %w", mapError(err))
	}
	return toCustomGame(c), nil
}

func (s *Store) RenameCustomGame(ctx context.Context, gamedayID, id int64, name string) error {
	n, err := s.q.RenameCustomGame(ctx, name, id, gamedayID)
	if err != nil {
		return fmt.Errorf("rename custom game: %w", mapError(err))
	}
	if n == 0 {
		return &core.NotFoundError{Kind: "custom game", ID: id}
	}
	return nil
}

func (s *Store) DeleteCustomGame(ctx context.Context, gamedayID, id int64) error {
	n, err := s.q.DeleteCustomGame(ctx, id, gamedayID)
	if err != nil {
		return fmt.Errorf("delete custom game: %w", mapError(err))
	}
	if n == 0 {
		return &core.NotFoundError{Kind: "custom game", ID: id}
	}
	return nil
}

func (s *Store) ListCustomGameValues(ctx context.Context, gamedayID int64) ([]core.CustomGameValue, error) {
	rows, err := s.q.ListCustomGameValues(ctx, gamedayID)
	if err != nil {
		return nil, fmt.Errorf("list custom game values: %w", mapError(err))
	}
	out := make([]core.CustomGameValue, len(rows))
	for i, v := range rows {
		out[i] = core.CustomGameValue{
			GamedayID:    v.GamedayID,
			MemberID:     v.MemberID,
			CustomGameID: v.CustomGameID,
			Amount:       core.Cents(v.AmountCents),
		}
	}
	return out, nil
}

func (s *Store) SaveCustomGameValue(ctx context.Context, v core.CustomGameValue) error {
	err := s.q.UpsertCustomGameValue(ctx, CustomGameValue{
		GamedayID:    v.GamedayID,
		MemberID:     v.MemberID,
		CustomGameID: v.CustomGameID,
		AmountCents:  v.Amount.Cents,
	})
	if err != nil {
		return fmt.Errorf("save custom game value: %w", mapError(err))
	}
	return nil
}

// ---- ledger entries ----

func toLedgerEntry(e GamedayEntry) core.LedgerEntry {
	return core.LedgerEntry{
		ID:        e.ID,
		GamedayID: e.GamedayID,
		Kind:      core.LedgerKind(e.Type),
		Name:      e.Name,
		Amount:    core.Cents(e.AmountCents),
		SortOrder: int(e.SortOrder),
	}
}

func (s *Store) ListLedgerEntries(ctx context.Context, gamedayID int64) ([]core.LedgerEntry, error) {
	rows, err := s.q.ListGamedayEntries(ctx, gamedayID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", mapError(err))
	}
	out := make([]core.LedgerEntry, len(rows))
	for i, e := range rows {
		out[i] = toLedgerEntry(e)
	}
	return out, nil
}

func (s *Store) CreateLedgerEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	row, err := s.q.CreateGamedayEntry(ctx, CreateGamedayEntryParams{
		GamedayID:   e.GamedayID,
		Type:        string(e.Kind),
		Name:        e.Name,
		AmountCents: e.Amount.Cents,
	})
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("create ledger entry: %w", mapError(err))
	}
	return toLedgerEntry(row), nil
}

func (s *Store) DeleteLedgerEntry(ctx context.Context, gamedayID, id int64) error {
	n, err := s.q.DeleteGamedayEntry(ctx, id, gamedayID)
	if err != nil {
		return fmt.Errorf("delete ledger entry: %w", mapError(err))
	}
	if n == 0 {
		return &core.NotFoundError{Kind: "ledger entry", ID: id}
	}
	return nil
}

// ---- expenses ----

func toExpense(e Expense) core.Expense {
	return core.Expense{
		ID:          e.ID,
		Date:        parseStoredDate(e.ExpenseDate),
		Description: e.Description,
		Amount:      core.Cents(e.AmountCents),
	}
}

// ListExpenses returns club expenses, newest first.
func (s *Store) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := s.q.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", mapError(err))
	}
	out := make([]core.Expense, len(rows))
	for i, e := range rows {
		out[i] = toExpense(e)
	}
	return out, nil
}

func (s *Store) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	row, err := s.q.CreateExpense(ctx, CreateExpenseParams{
		AmountCents: e.Amount.Cents,
		Description: e.Description,
		ExpenseDate: e.Date.String(),
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", mapError(err))
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", row.ID,
		"description", row.Description,
		"amount_cents", row.AmountCents,
		"date", row.ExpenseDate)

	return toExpense(row), nil
}

// UpdateExpense replaces date, description and amount of an existing expense.
func (s *Store) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	row, err := s.q.UpdateExpense(ctx, UpdateExpenseParams{
		ID:          e.ID,
		AmountCents: e.Amount.Cents,
		Description: e.Description,
		ExpenseDate: e.Date.String(),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, &core.NotFoundError{Kind: "expense", ID: e.ID}
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", mapError(err))
	}

	slog.InfoContext(ctx, "Expense updated in SQLite",
		"id", row.ID,
		"amount_cents", row.AmountCents,
		"date", row.ExpenseDate)

	return toExpense(row), nil
}

func (s *Store) DeleteExpense(ctx context.Context, id int64) error {
	n, err := s.q.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", mapError(err))
	}
	if n == 0 {
		return &core.NotFoundError{Kind: "expense", ID: id}
	}
	return nil
}

// ---- cash ----

// StartingBalance returns the opening balance, zero when it was never set.
func (s *Store) StartingBalance(ctx context.Context) (core.Money, error) {
	v, err := s.q.GetSetting(ctx, StartingBalanceKey)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Money{}, nil
	}
	if err != nil {
		return core.Money{}, fmt.Errorf("get starting balance: %w", mapError(err))
	}
	cents, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.WarnContext(ctx, "Unparseable starting balance, using zero", "value", v)
		return core.Money{}, nil
	}
	return core.Cents(cents), nil
}

func (s *Store) SetStartingBalance(ctx context.Context, m core.Money) error {
	if err := s.q.UpsertSetting(ctx, StartingBalanceKey, strconv.FormatInt(m.Cents, 10)); err != nil {
		return fmt.Errorf("set starting balance: %w", mapError(err))
	}
	return nil
}

// CashTotals collects the sums the club balance is derived from.
func (s *Store) CashTotals(ctx context.Context) (settlement.CashTotals, error) {
	var t settlement.CashTotals
	start, err := s.StartingBalance(ctx)
	if err != nil {
		return t, err
	}
	t.Start = start

	paid, err := s.q.SumPaid(ctx)
	if err != nil {
		return t, fmt.Errorf("sum paid: %w", mapError(err))
	}
	income, err := s.q.SumEntriesByType(ctx, string(core.LedgerIncome))
	if err != nil {
		return t, fmt.Errorf("sum income: %w", mapError(err))
	}
	cost, err := s.q.SumEntriesByType(ctx, string(core.LedgerCost))
	if err != nil {
		return t, fmt.Errorf("sum cost: %w", mapError(err))
	}
	expenses, err := s.q.SumExpenses(ctx)
	if err != nil {
		return t, fmt.Errorf("sum expenses: %w", mapError(err))
	}

	t.Paid = core.Cents(paid)
	t.Income = core.Cents(income)
	t.Cost = core.Cents(cost)
	t.Expenses = core.Cents(expenses)
	return t, nil
}

// ---- initial values ----

func (s *Store) ListInitialValues(ctx context.Context) ([]core.MemberInitialValue, error) {
	rows, err := s.q.ListInitialValues(ctx)
	if err != nil {
		return nil, fmt.Errorf("list initial values: %w", mapError(err))
	}
	out := make([]core.MemberInitialValue, len(rows))
	for i, v := range rows {
		out[i] = core.MemberInitialValue{
			MemberID:               v.MemberID,
			InitialAlle9:           int(v.InitialAlle9),
			InitialKranz:           int(v.InitialKranz),
			InitialCarryover:       core.Cents(v.InitialCarryoverCents),
			InitialMontePoints:     int(v.InitialMontePoints),
			InitialMonteWins:       int(v.InitialMonteSiege),
			InitialMedaillenPoints: int(v.InitialMedaillenPoints),
			InitialMedaillenWins:   int(v.InitialMedaillenSiege),
		}
	}
	return out, nil
}

func (s *Store) SaveInitialValue(ctx context.Context, v core.MemberInitialValue) error {
	err := s.q.UpsertInitialValue(ctx, MemberInitialValue{
		MemberID:               v.MemberID,
		InitialAlle9:           int64(v.InitialAlle9),
		InitialKranz:           int64(v.InitialKranz),
		InitialCarryoverCents:  v.InitialCarryover.Cents,
		InitialMontePoints:     int64(v.InitialMontePoints),
		InitialMonteSiege:      int64(v.InitialMonteWins),
		InitialMedaillenPoints: int64(v.InitialMedaillenPoints),
		InitialMedaillenSiege:  int64(v.InitialMedaillenWins),
	})
	if err != nil {
		return fmt.Errorf("save initial value: %w", mapError(err))
	}
	return nil
}

// ---- round wins ----

// SaveRoundWin upserts by (type, round number). The first detection
// time is kept on update. It reports whether the round was new.
func (s *Store) SaveRoundWin(ctx context.Context, rw core.RoundWin) (bool, error) {
	n, err := s.q.CountRoundWin(ctx, string(rw.Type), int64(rw.RoundNumber))
	if err != nil {
		return false, fmt.Errorf("check round win: %w", mapError(err))
	}

	standings := rw.Standings
	if standings == nil {
		standings = []core.StandingSnapshot{}
	}
	raw, err := json.Marshal(standings)
	if err != nil {
		return false, fmt.Errorf("encode standings: %w", err)
	}

	detected := rw.DetectedAt
	if detected.IsZero() {
		detected = time.Now().UTC()
	}

	err = s.q.UpsertRoundWin(ctx, RoundWin{
		Type:             string(rw.Type),
		RoundNumber:      int64(rw.RoundNumber),
		WinnerMemberID:   rw.WinnerMemberID,
		WinningGamedayID: rw.GamedayID,
		WinningScore:     int64(rw.WinningScore),
		StandingsJson:    string(raw),
		DetectedAt:       detected.Format(time.RFC3339),
	})
	if err != nil {
		return false, fmt.Errorf("upsert round win: %w", mapError(err))
	}
	return n == 0, nil
}

// ListRoundWins returns stored rounds of one type, latest round first.
// Winner names and gameday dates are left for the caller to resolve.
func (s *Store) ListRoundWins(ctx context.Context, t core.RankingType) ([]core.RoundWin, error) {
	rows, err := s.q.ListRoundWins(ctx, string(t))
	if err != nil {
		return nil, fmt.Errorf("list round wins: %w", mapError(err))
	}
	out := make([]core.RoundWin, 0, len(rows))
	for _, r := range rows {
		var standings []core.StandingSnapshot
		if err := json.Unmarshal([]byte(r.StandingsJson), &standings); err != nil {
			slog.WarnContext(ctx, "Corrupt round standings, skipping snapshot",
				"ranking_type", r.Type, "round_number", r.RoundNumber, "error", err)
			standings = []core.StandingSnapshot{}
		}
		out = append(out, core.RoundWin{
			Type:           core.RankingType(r.Type),
			RoundNumber:    int(r.RoundNumber),
			WinnerMemberID: r.WinnerMemberID,
			GamedayID:      r.WinningGamedayID,
			WinningScore:   int(r.WinningScore),
			Standings:      standings,
			DetectedAt:     parseTimestamp(r.DetectedAt),
		})
	}
	return out, nil
}

const (
	ExportSynced = "synced"
	ExportError  = "error"
)

// ExportState records whether a gameday's settlement reached the exporter.
type ExportState struct {
	GamedayID  int64
	RowRef     string
	Status     string
	Attempts   int
	ExportedAt time.Time
}

// PendingExports returns archived gamedays that were never exported or
// whose last export failed, oldest first.
func (s *Store) PendingExports(ctx context.Context, limit int) ([]core.Gameday, error) {
	rows, err := s.q.ListPendingExports(ctx, int64(core.StatusArchived), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending exports: %w", mapError(err))
	}
	out := make([]core.Gameday, len(rows))
	for i, g := range rows {
		out[i] = toGameday(g)
	}
	return out, nil
}

func (s *Store) ExportState(ctx context.Context, gamedayID int64) (ExportState, bool, error) {
	e, err := s.q.GetSettlementExport(ctx, gamedayID)
	if errors.Is(err, sql.ErrNoRows) {
		return ExportState{}, false, nil
	}
	if err != nil {
		return ExportState{}, false, fmt.Errorf("get export state: %w", mapError(err))
	}
	return ExportState{
		GamedayID:  e.GamedayID,
		RowRef:     e.RowRef,
		Status:     e.SyncStatus,
		Attempts:   int(e.Attempts),
		ExportedAt: parseTimestamp(e.ExportedAt),
	}, true, nil
}

func (s *Store) MarkExported(ctx context.Context, gamedayID int64, rowRef string) error {
	if err := s.q.UpsertSettlementExport(ctx, gamedayID, rowRef, ExportSynced, nowString()); err != nil {
		return fmt.Errorf("mark exported: %w", mapError(err))
	}
	return nil
}

func (s *Store) MarkExportError(ctx context.Context, gamedayID int64) error {
	if err := s.q.UpsertSettlementExport(ctx, gamedayID, "", ExportError, nowString()); err != nil {
		return fmt.Errorf("mark export error: %w", mapError(err))
	}
	return nil
}
