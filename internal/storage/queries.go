package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// ---- members ----

const memberColumns = `id, display_name, active, sort_order, created_at`

func scanMember(s rowScanner) (Member, error) {
	var m Member
	err := s.Scan(&m.ID, &m.DisplayName, &m.Active, &m.SortOrder, &m.CreatedAt)
	return m, err
}

const listMembers = `SELECT ` + memberColumns + ` FROM members ORDER BY sort_order, id`

func (q *Queries) ListMembers(ctx context.Context) ([]Member, error) {
	rows, err := q.db.QueryContext(ctx, listMembers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const getMember = `SELECT ` + memberColumns + ` FROM members WHERE id = ?`

func (q *Queries) GetMember(ctx context.Context, id int64) (Member, error) {
	return scanMember(q.db.QueryRowContext(ctx, getMember, id))
}

const createMember = `INSERT INTO members (display_name, active, sort_order)
VALUES (?, 1, COALESCE((SELECT MAX(sort_order) + 1 FROM members), 0))
RETURNING ` + memberColumns

func (q *Queries) CreateMember(ctx context.Context, displayName string) (Member, error) {
	return scanMember(q.db.QueryRowContext(ctx, createMember, displayName))
}

const setMemberActive = `UPDATE members SET active = ? WHERE id = ?`

func (q *Queries) SetMemberActive(ctx context.Context, active int64, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, setMemberActive, active, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---- gamedays ----

const gamedayColumns = `id, match_date, note, status, lane_cost_cents, created_at`

func scanGameday(s rowScanner) (Gameday, error) {
	var g Gameday
	err := s.Scan(&g.ID, &g.MatchDate, &g.Note, &g.Status, &g.LaneCostCents, &g.CreatedAt)
	return g, err
}

func (q *Queries) queryGamedays(ctx context.Context, query string, args ...interface{}) ([]Gameday, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Gameday
	for rows.Next() {
		g, err := scanGameday(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, rows.Err()
}

const listGamedays = `SELECT ` + gamedayColumns + ` FROM gamedays ORDER BY match_date ASC, id ASC`

func (q *Queries) ListGamedays(ctx context.Context) ([]Gameday, error) {
	return q.queryGamedays(ctx, listGamedays)
}

const getGameday = `SELECT ` + gamedayColumns + ` FROM gamedays WHERE id = ?`

func (q *Queries) GetGameday(ctx context.Context, id int64) (Gameday, error) {
	return scanGameday(q.db.QueryRowContext(ctx, getGameday, id))
}

const previousGameday = `SELECT ` + gamedayColumns + ` FROM gamedays
WHERE match_date < ?
ORDER BY match_date DESC, id DESC
LIMIT 1`

func (q *Queries) PreviousGameday(ctx context.Context, matchDate string) (Gameday, error) {
	return scanGameday(q.db.QueryRowContext(ctx, previousGameday, matchDate))
}

const lastGameday = `SELECT ` + gamedayColumns + ` FROM gamedays ORDER BY match_date DESC, id DESC LIMIT 1`

func (q *Queries) LastGameday(ctx context.Context) (Gameday, error) {
	return scanGameday(q.db.QueryRowContext(ctx, lastGameday))
}

const createGameday = `INSERT INTO gamedays (match_date, note, status, lane_cost_cents, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + gamedayColumns

type CreateGamedayParams struct {
	MatchDate     string
	Note          string
	Status        int64
	LaneCostCents int64
	CreatedAt     string
}

func (q *Queries) CreateGameday(ctx context.Context, arg CreateGamedayParams) (Gameday, error) {
	return scanGameday(q.db.QueryRowContext(ctx, createGameday,
		arg.MatchDate, arg.Note, arg.Status, arg.LaneCostCents, arg.CreatedAt))
}

const updateGamedayStatus = `UPDATE gamedays SET status = ? WHERE id = ? AND status = ?`

type UpdateGamedayStatusParams struct {
	Status     int64
	ID         int64
	FromStatus int64
}

func (q *Queries) UpdateGamedayStatus(ctx context.Context, arg UpdateGamedayStatusParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateGamedayStatus, arg.Status, arg.ID, arg.FromStatus)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateGamedayDetails = `UPDATE gamedays SET note = ?, lane_cost_cents = ? WHERE id = ?`

type UpdateGamedayDetailsParams struct {
	Note          string
	LaneCostCents int64
	ID            int64
}

func (q *Queries) UpdateGamedayDetails(ctx context.Context, arg UpdateGamedayDetailsParams) error {
	_, err := q.db.ExecContext(ctx, updateGamedayDetails, arg.Note, arg.LaneCostCents, arg.ID)
	return err
}

const deleteGameday = `DELETE FROM gamedays WHERE id = ?`

func (q *Queries) DeleteGameday(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteGameday, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---- attendance ----

const attendanceColumns = `a.gameday_id, a.member_id, a.present, a.triclops, a.alle9, a.kranz, a.pudel,
a.penalties_cents, a.contribution_cents, a.va_cents, a.monte_cents, a.aussteigen_cents, a.sechs_tage_cents,
a.monte_tiebreak, a.aussteigen_tiebreak, a.monte_extra, a.struck_games, a.carryover_cents, a.paid_cents, a.updated_at`

func scanAttendance(s rowScanner) (Attendance, error) {
	var a Attendance
	err := s.Scan(
		&a.GamedayID, &a.MemberID, &a.Present, &a.Triclops, &a.Alle9, &a.Kranz, &a.Pudel,
		&a.PenaltiesCents, &a.ContributionCents, &a.VaCents, &a.MonteCents, &a.AussteigenCents, &a.SechsTageCents,
		&a.MonteTiebreak, &a.AussteigenTiebreak, &a.MonteExtra, &a.StruckGames, &a.CarryoverCents, &a.PaidCents, &a.UpdatedAt,
	)
	return a, err
}

func (q *Queries) queryAttendance(ctx context.Context, query string, args ...interface{}) ([]Attendance, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const listAttendanceByGameday = `SELECT ` + attendanceColumns + `
FROM attendance a
JOIN members m ON m.id = a.member_id
WHERE a.gameday_id = ?
ORDER BY m.sort_order, m.id`

func (q *Queries) ListAttendanceByGameday(ctx context.Context, gamedayID int64) ([]Attendance, error) {
	return q.queryAttendance(ctx, listAttendanceByGameday, gamedayID)
}

const listAllAttendance = `SELECT ` + attendanceColumns + `
FROM attendance a
ORDER BY a.gameday_id, a.member_id`

func (q *Queries) ListAllAttendance(ctx context.Context) ([]Attendance, error) {
	return q.queryAttendance(ctx, listAllAttendance)
}

const getAttendance = `SELECT ` + attendanceColumns + `
FROM attendance a
WHERE a.gameday_id = ? AND a.member_id = ?`

func (q *Queries) GetAttendance(ctx context.Context, gamedayID, memberID int64) (Attendance, error) {
	return scanAttendance(q.db.QueryRowContext(ctx, getAttendance, gamedayID, memberID))
}

const upsertAttendance = `INSERT INTO attendance (
    gameday_id, member_id, present, triclops, alle9, kranz, pudel,
    penalties_cents, contribution_cents, va_cents, monte_cents, aussteigen_cents, sechs_tage_cents,
    monte_tiebreak, aussteigen_tiebreak, monte_extra, struck_games, carryover_cents, paid_cents, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (gameday_id, member_id) DO UPDATE SET
    present = excluded.present,
    triclops = excluded.triclops,
    alle9 = excluded.alle9,
    kranz = excluded.kranz,
    pudel = excluded.pudel,
    penalties_cents = excluded.penalties_cents,
    contribution_cents = excluded.contribution_cents,
    va_cents = excluded.va_cents,
    monte_cents = excluded.monte_cents,
    aussteigen_cents = excluded.aussteigen_cents,
    sechs_tage_cents = excluded.sechs_tage_cents,
    monte_tiebreak = excluded.monte_tiebreak,
    aussteigen_tiebreak = excluded.aussteigen_tiebreak,
    monte_extra = excluded.monte_extra,
    struck_games = excluded.struck_games,
    carryover_cents = excluded.carryover_cents,
    paid_cents = excluded.paid_cents,
    updated_at = excluded.updated_at`

func (q *Queries) UpsertAttendance(ctx context.Context, a Attendance) error {
	_, err := q.db.ExecContext(ctx, upsertAttendance,
		a.GamedayID, a.MemberID, a.Present, a.Triclops, a.Alle9, a.Kranz, a.Pudel,
		a.PenaltiesCents, a.ContributionCents, a.VaCents, a.MonteCents, a.AussteigenCents, a.SechsTageCents,
		a.MonteTiebreak, a.AussteigenTiebreak, a.MonteExtra, a.StruckGames, a.CarryoverCents, a.PaidCents, a.UpdatedAt,
	)
	return err
}

const setMonteExtra = `UPDATE attendance SET monte_extra = CASE WHEN member_id = ? THEN 1 ELSE 0 END, updated_at = ?
WHERE gameday_id = ?`

func (q *Queries) SetMonteExtra(ctx context.Context, gamedayID, memberID int64, updatedAt string) error {
	_, err := q.db.ExecContext(ctx, setMonteExtra, memberID, updatedAt, gamedayID)
	return err
}

const sumPaid = `SELECT COALESCE(SUM(paid_cents), 0) FROM attendance`

func (q *Queries) SumPaid(ctx context.Context) (int64, error) {
	var v int64
	err := q.db.QueryRowContext(ctx, sumPaid).Scan(&v)
	return v, err
}

const sumPaidByGameday = `SELECT COALESCE(SUM(paid_cents), 0) FROM attendance WHERE gameday_id = ?`

func (q *Queries) SumPaidByGameday(ctx context.Context, gamedayID int64) (int64, error) {
	var v int64
	err := q.db.QueryRowContext(ctx, sumPaidByGameday, gamedayID).Scan(&v)
	return v, err
}

// ---- custom games ----

const customGameColumns = `id, gameday_id, name, sort_order`

func scanCustomGame(s rowScanner) (CustomGame, error) {
	var c CustomGame
	err := s.Scan(&c.ID, &c.GamedayID, &c.Name, &c.SortOrder)
	return c, err
}

const listCustomGames = `SELECT ` + customGameColumns + ` FROM custom_games WHERE gameday_id = ? ORDER BY sort_order, id`

func (q *Queries) ListCustomGames(ctx context.Context, gamedayID int64) ([]CustomGame, error) {
	rows, err := q.db.QueryContext(ctx, listCustomGames, gamedayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CustomGame
	for rows.Next() {
		c, err := scanCustomGame(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const getCustomGame = `SELECT ` + customGameColumns + ` FROM custom_games WHERE id = ? AND gameday_id = ?`

func (q *Queries) GetCustomGame(ctx context.Context, id, gamedayID int64) (CustomGame, error) {
	return scanCustomGame(q.db.QueryRowContext(ctx, getCustomGame, id, gamedayID))
}

const createCustomGame = `INSERT INTO custom_games (gameday_id, name, sort_order)
VALUES (?, ?, COALESCE((SELECT MAX(sort_order) + 1 FROM custom_games WHERE gameday_id = ?), 0))
RETURNING ` + customGameColumns

func (q *Queries) CreateCustomGame(ctx context.Context, gamedayID int64, name string) (CustomGame, error) {
	return scanCustomGame(q.db.QueryRowContext(ctx, createCustomGame, gamedayID, name, gamedayID))
}

const renameCustomGame = `UPDATE custom_games SET name = ? WHERE id = ? AND gameday_id = ?`

func (q *Queries) RenameCustomGame(ctx context.Context, name string, id, gamedayID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, renameCustomGame, name, id, gamedayID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteCustomGame = `DELETE FROM custom_games WHERE id = ? AND gameday_id = ?`

func (q *Queries) DeleteCustomGame(ctx context.Context, id, gamedayID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteCustomGame, id, gamedayID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const initCustomGameValues = `INSERT INTO custom_game_values (gameday_id, member_id, custom_game_id, amount_cents)
SELECT gameday_id, member_id, ?, 0 FROM attendance WHERE gameday_id = ?
ON CONFLICT DO NOTHING`

func (q *Queries) InitCustomGameValues(ctx context.Context, customGameID, gamedayID int64) error {
	_, err := q.db.ExecContext(ctx, initCustomGameValues, customGameID, gamedayID)
	return err
}

const listCustomGameValues = `SELECT gameday_id, member_id, custom_game_id, amount_cents
FROM custom_game_values WHERE gameday_id = ?
ORDER BY custom_game_id, member_id`

func (q *Queries) ListCustomGameValues(ctx context.Context, gamedayID int64) ([]CustomGameValue, error) {
	rows, err := q.db.QueryContext(ctx, listCustomGameValues, gamedayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CustomGameValue
	for rows.Next() {
		var v CustomGameValue
		if err := rows.Scan(&v.GamedayID, &v.MemberID, &v.CustomGameID, &v.AmountCents); err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

const upsertCustomGameValue = `INSERT INTO custom_game_values (gameday_id, member_id, custom_game_id, amount_cents)
VALUES (?, ?, ?, ?)
ON CONFLICT (gameday_id, member_id, custom_game_id) DO UPDATE SET amount_cents = excluded.amount_cents`

func (q *Queries) UpsertCustomGameValue(ctx context.Context, v CustomGameValue) error {
	_, err := q.db.ExecContext(ctx, upsertCustomGameValue, v.GamedayID, v.MemberID, v.CustomGameID, v.AmountCents)
	return err
}

// ---- gameday entries ----

const entryColumns = `id, gameday_id, type, name, amount_cents, sort_order`

func scanEntry(s rowScanner) (GamedayEntry, error) {
	var e GamedayEntry
	err := s.Scan(&e.ID, &e.GamedayID, &e.Type, &e.Name, &e.AmountCents, &e.SortOrder)
	return e, err
}

const listGamedayEntries = `SELECT ` + entryColumns + ` FROM gameday_entries WHERE gameday_id = ? ORDER BY sort_order, id`

func (q *Queries) ListGamedayEntries(ctx context.Context, gamedayID int64) ([]GamedayEntry, error) {
	rows, err := q.db.QueryContext(ctx, listGamedayEntries, gamedayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GamedayEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const createGamedayEntry = `INSERT INTO gameday_entries (gameday_id, type, name, amount_cents, sort_order)
VALUES (?, ?, ?, ?, COALESCE((SELECT MAX(sort_order) + 1 FROM gameday_entries WHERE gameday_id = ?), 0))
RETURNING ` + entryColumns

type CreateGamedayEntryParams struct {
	GamedayID   int64
	Type        string
	Name        string
	AmountCents int64
}

func (q *Queries) CreateGamedayEntry(ctx context.Context, arg CreateGamedayEntryParams) (GamedayEntry, error) {
	return scanEntry(q.db.QueryRowContext(ctx, createGamedayEntry,
		arg.GamedayID, arg.Type, arg.Name, arg.AmountCents, arg.GamedayID))
}

const deleteGamedayEntry = `DELETE FROM gameday_entries WHERE id = ? AND gameday_id = ?`

func (q *Queries) DeleteGamedayEntry(ctx context.Context, id, gamedayID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteGamedayEntry, id, gamedayID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const sumEntriesByType = `SELECT COALESCE(SUM(amount_cents), 0) FROM gameday_entries WHERE type = ?`

func (q *Queries) SumEntriesByType(ctx context.Context, entryType string) (int64, error) {
	var v int64
	err := q.db.QueryRowContext(ctx, sumEntriesByType, entryType).Scan(&v)
	return v, err
}

// ---- expenses ----

const expenseColumns = `id, amount_cents, description, expense_date, created_at`

func scanExpense(s rowScanner) (Expense, error) {
	var e Expense
	err := s.Scan(&e.ID, &e.AmountCents, &e.Description, &e.ExpenseDate, &e.CreatedAt)
	return e, err
}

const listExpenses = `SELECT ` + expenseColumns + ` FROM expenses ORDER BY expense_date DESC, id DESC`

func (q *Queries) ListExpenses(ctx context.Context) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const createExpense = `INSERT INTO expenses (amount_cents, description, expense_date)
VALUES (?, ?, ?)
RETURNING ` + expenseColumns

type CreateExpenseParams struct {
	AmountCents int64
	Description string
	ExpenseDate string
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, createExpense, arg.AmountCents, arg.Description, arg.ExpenseDate))
}

const updateExpense = `UPDATE expenses
SET amount_cents = ?, description = ?, expense_date = ?
WHERE id = ?
RETURNING ` + expenseColumns

type UpdateExpenseParams struct {
	ID          int64
	AmountCents int64
	Description string
	ExpenseDate string
}

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, updateExpense, arg.AmountCents, arg.Description, arg.ExpenseDate, arg.ID))
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const sumExpenses = `SELECT COALESCE(SUM(amount_cents), 0) FROM expenses`

func (q *Queries) SumExpenses(ctx context.Context) (int64, error) {
	var v int64
	err := q.db.QueryRowContext(ctx, sumExpenses).Scan(&v)
	return v, err
}

// ---- settings ----

const getSetting = `SELECT value FROM settings WHERE key = ?`

func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var v string
	err := q.db.QueryRowContext(ctx, getSetting, key).Scan(&v)
	return v, err
}

const upsertSetting = `INSERT INTO settings (key, value) VALUES (?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value`

func (q *Queries) UpsertSetting(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, upsertSetting, key, value)
	return err
}

// ---- member initial values ----

const listInitialValues = `SELECT member_id, initial_alle9, initial_kranz, initial_carryover_cents,
    initial_monte_points, initial_monte_siege, initial_medaillen_points, initial_medaillen_siege
FROM member_initial_values ORDER BY member_id`

func (q *Queries) ListInitialValues(ctx context.Context) ([]MemberInitialValue, error) {
	rows, err := q.db.QueryContext(ctx, listInitialValues)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MemberInitialValue
	for rows.Next() {
		var v MemberInitialValue
		if err := rows.Scan(&v.MemberID, &v.InitialAlle9, &v.InitialKranz, &v.InitialCarryoverCents,
			&v.InitialMontePoints, &v.InitialMonteSiege, &v.InitialMedaillenPoints, &v.InitialMedaillenSiege); err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

const upsertInitialValue = `INSERT INTO member_initial_values (
    member_id, initial_alle9, initial_kranz, initial_carryover_cents,
    initial_monte_points, initial_monte_siege, initial_medaillen_points, initial_medaillen_siege
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (member_id) DO UPDATE SET
    initial_alle9 = excluded.initial_alle9,
    initial_kranz = excluded.initial_kranz,
    initial_carryover_cents = excluded.initial_carryover_cents,
    initial_monte_points = excluded.initial_monte_points,
    initial_monte_siege = excluded.initial_monte_siege,
    initial_medaillen_points = excluded.initial_medaillen_points,
    initial_medaillen_siege = excluded.initial_medaillen_siege`

func (q *Queries) UpsertInitialValue(ctx context.Context, v MemberInitialValue) error {
	_, err := q.db.ExecContext(ctx, upsertInitialValue,
		v.MemberID, v.InitialAlle9, v.InitialKranz, v.InitialCarryoverCents,
		v.InitialMontePoints, v.InitialMonteSiege, v.InitialMedaillenPoints, v.InitialMedaillenSiege)
	return err
}

// ---- round wins ----

const roundWinColumns = `id, type, round_number, winner_member_id, winning_gameday_id, winning_score, standings_json, detected_at`

const countRoundWin = `SELECT COUNT(*) FROM round_wins WHERE type = ? AND round_number = ?`

func (q *Queries) CountRoundWin(ctx context.Context, rankingType string, roundNumber int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countRoundWin, rankingType, roundNumber).Scan(&n)
	return n, err
}

const upsertRoundWin = `INSERT INTO round_wins (type, round_number, winner_member_id, winning_gameday_id, winning_score, standings_json, detected_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (type, round_number) DO UPDATE SET
    winner_member_id = excluded.winner_member_id,
    winning_gameday_id = excluded.winning_gameday_id,
    winning_score = excluded.winning_score,
    standings_json = excluded.standings_json`

func (q *Queries) UpsertRoundWin(ctx context.Context, r RoundWin) error {
	_, err := q.db.ExecContext(ctx, upsertRoundWin,
		r.Type, r.RoundNumber, r.WinnerMemberID, r.WinningGamedayID, r.WinningScore, r.StandingsJson, r.DetectedAt)
	return err
}

const listRoundWins = `SELECT ` + roundWinColumns + ` FROM round_wins WHERE type = ? ORDER BY round_number DESC`

func (q *Queries) ListRoundWins(ctx context.Context, rankingType string) ([]RoundWin, error) {
	rows, err := q.db.QueryContext(ctx, listRoundWins, rankingType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RoundWin
	for rows.Next() {
		var r RoundWin
		if err := rows.Scan(&r.ID, &r.Type, &r.RoundNumber, &r.WinnerMemberID, &r.WinningGamedayID,
			&r.WinningScore, &r.StandingsJson, &r.DetectedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// ---- settlement exports ----

const listPendingExports = `SELECT g.id, g.match_date, g.note, g.status, g.lane_cost_cents, g.created_at
FROM gamedays g
LEFT JOIN settlement_exports e ON e.gameday_id = g.id
WHERE g.status = ? AND (e.gameday_id IS NULL OR e.sync_status = 'error')
ORDER BY g.match_date ASC, g.id ASC
LIMIT ?`

func (q *Queries) ListPendingExports(ctx context.Context, status int64, limit int64) ([]Gameday, error) {
	rows, err := q.db.QueryContext(ctx, listPendingExports, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Gameday
	for rows.Next() {
		g, err := scanGameday(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, rows.Err()
}

const getSettlementExport = `SELECT gameday_id, row_ref, sync_status, attempts, exported_at
FROM settlement_exports WHERE gameday_id = ?`

func (q *Queries) GetSettlementExport(ctx context.Context, gamedayID int64) (SettlementExport, error) {
	var e SettlementExport
	err := q.db.QueryRowContext(ctx, getSettlementExport, gamedayID).
		Scan(&e.GamedayID, &e.RowRef, &e.SyncStatus, &e.Attempts, &e.ExportedAt)
	return e, err
}

const upsertSettlementExport = `INSERT INTO settlement_exports (gameday_id, row_ref, sync_status, attempts, exported_at)
VALUES (?, ?, ?, 1, ?)
ON CONFLICT (gameday_id) DO UPDATE SET
    row_ref = excluded.row_ref,
    sync_status = excluded.sync_status,
    attempts = settlement_exports.attempts + 1,
    exported_at = excluded.exported_at`

func (q *Queries) UpsertSettlementExport(ctx context.Context, gamedayID int64, rowRef, syncStatus, exportedAt string) error {
	_, err := q.db.ExecContext(ctx, upsertSettlementExport, gamedayID, rowRef, syncStatus, exportedAt)
	return err
}
