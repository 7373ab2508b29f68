package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"kegelkladde/internal/amqp"
	"kegelkladde/internal/core"
	"kegelkladde/internal/settlement"
	"kegelkladde/internal/storage"
)

// DefaultFirstGameday is suggested when no gameday exists yet.
var DefaultFirstGameday = core.NewDate(2026, 2, 20)

// GamedayInterval is the usual gap between two gamedays.
const GamedayInterval = 14

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	Publish(ctx context.Context, e *amqp.Event) error
}

// Sheet is everything shown on one gameday page.
type Sheet struct {
	Gameday      core.Gameday            `json:"gameday"`
	Members      []core.Member           `json:"members"`
	Records      []core.AttendanceRecord `json:"records"`
	CustomGames  []core.CustomGame       `json:"custom_games"`
	CustomValues []core.CustomGameValue  `json:"custom_values"`
	Lines        []settlement.Line       `json:"settlement"`
	Entries      []core.LedgerEntry      `json:"entries"`
	Totals       SheetTotals             `json:"totals"`
}

// SheetTotals sums the settlement lines of a sheet.
type SheetTotals struct {
	Owed      core.Money `json:"owed"`
	Paid      core.Money `json:"paid"`
	Remaining core.Money `json:"remaining"`
}

// GamedayService orchestrates gameday edits across SQLite and AMQP.
type GamedayService struct {
	repo         *storage.SQLiteRepository
	events       EventPublisher
	contribution core.Money
}

func NewGamedayService(repo *storage.SQLiteRepository, events EventPublisher, contribution core.Money) *GamedayService {
	if contribution.IsZero() {
		contribution = settlement.DefaultContribution
	}
	return &GamedayService{
		repo:         repo,
		events:       events,
		contribution: contribution,
	}
}

func lockedError(what string, s core.Status) error {
	return &core.ValidationError{Field: what, Reason: "status " + s.String(), Err: core.ErrFieldLocked}
}

func validateNote(note string) (string, error) {
	note = strings.TrimSpace(note)
	if len([]rune(note)) > core.MaxNoteLength {
		return "", &core.ValidationError{Field: "note", Err: core.ErrTooLong}
	}
	return note, nil
}

func validateName(field, name string, max int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &core.ValidationError{Field: field, Err: core.ErrEmptyName}
	}
	if len([]rune(name)) > max {
		return "", &core.ValidationError{Field: field, Err: core.ErrTooLong}
	}
	return name, nil
}

// loadSession reads the rows needed to settle one gameday.
func loadSession(ctx context.Context, st *storage.Store, g core.Gameday) (settlement.Session, error) {
	records, err := st.ListAttendance(ctx, g.ID)
	if err != nil {
		return settlement.Session{}, err
	}
	values, err := st.ListCustomGameValues(ctx, g.ID)
	if err != nil {
		return settlement.Session{}, err
	}
	return settlement.Session{Gameday: g, Records: records, CustomValues: values}, nil
}

// CreateGameday creates a gameday and seeds one attendance row per active
// member, carrying over each member's remaining balance from the previous
// gameday.
func (s *GamedayService) CreateGameday(ctx context.Context, date core.Date, note string) (core.Gameday, error) {
	if err := date.Validate(); err != nil {
		return core.Gameday{}, &core.ValidationError{Field: "date", Err: err}
	}
	note, err := validateNote(note)
	if err != nil {
		return core.Gameday{}, err
	}

	var created core.Gameday
	err = s.repo.InTx(ctx, func(st *storage.Store) error {
		var previous *settlement.Session
		prev, ok, err := st.PreviousGameday(ctx, date)
		if err != nil {
			return err
		}
		if ok {
			sess, err := loadSession(ctx, st, prev)
			if err != nil {
				return fmt.Errorf("load previous gameday: %w", err)
			}
			previous = &sess
		}

		members, err := st.ListActiveMembers(ctx)
		if err != nil {
			return err
		}

		created, err = st.CreateGameday(ctx, core.Gameday{Date: date, Note: note, Status: core.StatusNotStarted})
		if err != nil {
			return err
		}

		for _, r := range settlement.Seed(created.ID, members, previous, s.contribution) {
			if err := st.SaveAttendance(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.Gameday{}, fmt.Errorf("create gameday: %w", err)
	}

	slog.InfoContext(ctx, "Gameday created",
		"gameday_id", created.ID,
		"date", created.Date.String())

	s.publish(ctx, amqp.NewGamedayCreatedEvent(created))
	return created, nil
}

// AdvanceStatus moves the gameday one step forward.
func (s *GamedayService) AdvanceStatus(ctx context.Context, id int64) (core.Gameday, error) {
	return s.changeStatus(ctx, id, core.Status.Advance)
}

// RevertStatus moves the gameday one step back.
func (s *GamedayService) RevertStatus(ctx context.Context, id int64) (core.Gameday, error) {
	return s.changeStatus(ctx, id, core.Status.Revert)
}

func (s *GamedayService) changeStatus(ctx context.Context, id int64, step func(core.Status) (core.Status, error)) (core.Gameday, error) {
	var g core.Gameday
	var from core.Status
	err := s.repo.InTx(ctx, func(st *storage.Store) error {
		var err error
		g, err = st.GetGameday(ctx, id)
		if err != nil {
			return err
		}
		from = g.Status
		next, err := step(g.Status)
		if err != nil {
			return err
		}
		if err := st.UpdateGamedayStatus(ctx, id, from, next); err != nil {
			return err
		}
		g.Status = next
		return nil
	})
	if err != nil {
		return core.Gameday{}, err
	}

	slog.InfoContext(ctx, "Gameday status changed",
		"gameday_id", id,
		"from", from.String(),
		"to", g.Status.String())

	s.publish(ctx, amqp.NewStatusChangedEvent(id, from, g.Status))
	return g, nil
}

// UpdateGameday edits the note and lane cost.
func (s *GamedayService) UpdateGameday(ctx context.Context, id int64, note string, laneCost core.Money) (core.Gameday, error) {
	note, err := validateNote(note)
	if err != nil {
		return core.Gameday{}, err
	}
	laneCost, err = clampAmount("lane_cost", laneCost)
	if err != nil {
		return core.Gameday{}, err
	}

	var g core.Gameday
	err = s.repo.InTx(ctx, func(st *storage.Store) error {
		var err error
		g, err = st.GetGameday(ctx, id)
		if err != nil {
			return err
		}
		if !g.Status.AllowsDetails() {
			return lockedError("gameday", g.Status)
		}
		g.Note, g.LaneCost = note, laneCost
		return st.UpdateGamedayDetails(ctx, id, note, laneCost)
	})
	if err != nil {
		return core.Gameday{}, err
	}
	return g, nil
}

// UpdateAttendance validates and applies a partial update to one member's
// row and returns that member's recomputed settlement line. The whole patch
// is rejected if any field it touches is locked by the gameday status.
func (s *GamedayService) UpdateAttendance(ctx context.Context, gamedayID, memberID int64, patch AttendancePatch) (settlement.Line, error) {
	p, err := patch.Normalize()
	if err != nil {
		return settlement.Line{}, err
	}

	var line settlement.Line
	err = s.repo.InTx(ctx, func(st *storage.Store) error {
		g, err := st.GetGameday(ctx, gamedayID)
		if err != nil {
			return err
		}
		for _, f := range p.Fields() {
			if err := g.Status.CheckWrite(f); err != nil {
				return err
			}
		}

		rec, err := st.GetAttendance(ctx, gamedayID, memberID)
		if err != nil {
			return err
		}
		if !p.IsEmpty() {
			if err := st.SaveAttendance(ctx, p.Apply(rec)); err != nil {
				return err
			}
		}

		line, err = memberLine(ctx, st, g, memberID)
		return err
	})
	if err != nil {
		return settlement.Line{}, err
	}

	slog.DebugContext(ctx, "Attendance updated",
		"gameday_id", gamedayID,
		"member_id", memberID,
		"fields", len(p.Fields()))
	return line, nil
}

func memberLine(ctx context.Context, st *storage.Store, g core.Gameday, memberID int64) (settlement.Line, error) {
	sess, err := loadSession(ctx, st, g)
	if err != nil {
		return settlement.Line{}, err
	}
	line, ok := settlement.ByMember(settlement.Compute(sess.Records, sess.CustomValues))[memberID]
	if !ok {
		return settlement.Line{}, &core.NotFoundError{Kind: "attendance", ID: memberID}
	}
	return line, nil
}

// ToggleStruck flips game in the member's struck set.
func (s *GamedayService) ToggleStruck(ctx context.Context, gamedayID, memberID int64, game core.SideGame) (core.AttendanceRecord, error) {
	if !game.Valid() {
		return core.AttendanceRecord{}, &core.ValidationError{Field: "game", Err: core.ErrInvalidSideGame}
	}

	var rec core.AttendanceRecord
	err := s.repo.InTx(ctx, func(st *storage.Store) error {
		g, err := st.GetGameday(ctx, gamedayID)
		if err != nil {
			return err
		}
		if err := g.Status.CheckWrite(core.FieldStruckGames); err != nil {
			return err
		}
		rec, err = st.GetAttendance(ctx, gamedayID, memberID)
		if err != nil {
			return err
		}
		rec.Struck = rec.Struck.Toggle(game)
		return st.SaveAttendance(ctx, rec)
	})
	if err != nil {
		return core.AttendanceRecord{}, err
	}
	return rec, nil
}

// SetMonteExtra gives the single Monte extra flag of the gameday to memberID.
// A memberID of zero clears it.
func (s *GamedayService) SetMonteExtra(ctx context.Context, gamedayID, memberID int64) error {
	return s.repo.InTx(ctx, func(st *storage.Store) error {
		g, err := st.GetGameday(ctx, gamedayID)
		if err != nil {
			return err
		}
		if err := g.Status.CheckWrite(core.FieldMonteExtra); err != nil {
			return err
		}
		if memberID != 0 {
			if _, err := st.GetAttendance(ctx, gamedayID, memberID); err != nil {
				return err
			}
		}
		return st.SetMonteExtra(ctx, gamedayID, memberID)
	})
}

// customGameTx loads the gameday and rejects changes outside the open statuses.
func (s *GamedayService) customGameTx(ctx context.Context, gamedayID int64, fn func(*storage.Store) error) error {
	return s.repo.InTx(ctx, func(st *storage.Store) error {
		g, err := st.GetGameday(ctx, gamedayID)
		if err != nil {
			return err
		}
		if !g.Status.AllowsCustomGames() {
			return lockedError("custom_game", g.Status)
		}
		return fn(st)
	})
}

// AddCustomGame appends a custom game with a zero value for every member.
func (s *GamedayService) AddCustomGame(ctx context.Context, gamedayID int64, name string) (core.CustomGame, error) {
	name, err := validateName("name", name, core.MaxCustomGameName)
	if err != nil {
		return core.CustomGame{}, err
	}
	var cg core.CustomGame
	err = s.customGameTx(ctx, gamedayID, func(st *storage.Store) error {
		var err error
		cg, err = st.CreateCustomGame(ctx, gamedayID, name)
		return err
	})
	if err != nil {
		return core.CustomGame{}, err
	}
	return cg, nil
}

func (s *GamedayService) RenameCustomGame(ctx context.Context, gamedayID, gameID int64, name string) error {
	name, err := validateName("name", name, core.MaxCustomGameName)
	if err != nil {
		return err
	}
	return s.customGameTx(ctx, gamedayID, func(st *storage.Store) error {
		return st.RenameCustomGame(ctx, gamedayID, gameID, name)
	})
}

func (s *GamedayService) DeleteCustomGame(ctx context.Context, gamedayID, gameID int64) error {
	return s.customGameTx(ctx, gamedayID, func(st *storage.Store) error {
		return st.DeleteCustomGame(ctx, gamedayID, gameID)
	})
}

// SetCustomGameValue stores one member's amount for a custom game and returns
// the member's recomputed settlement line.
func (s *GamedayService) SetCustomGameValue(ctx context.Context, gamedayID, gameID, memberID int64, amount core.Money) (settlement.Line, error) {
	amount, err := clampAmount("amount", amount)
	if err != nil {
		return settlement.Line{}, err
	}

	var line settlement.Line
	err = s.repo.InTx(ctx, func(st *storage.Store) error {
		g, err := st.GetGameday(ctx, gamedayID)
		if err != nil {
			return err
		}
		if err := g.Status.CheckWrite(core.FieldCustomGameValue); err != nil {
			return err
		}
		if _, err := st.GetCustomGame(ctx, gamedayID, gameID); err != nil {
			return err
		}
		if _, err := st.GetAttendance(ctx, gamedayID, memberID); err != nil {
			return err
		}
		err = st.SaveCustomGameValue(ctx, core.CustomGameValue{
			GamedayID:    gamedayID,
			MemberID:     memberID,
			CustomGameID: gameID,
			Amount:       amount,
		})
		if err != nil {
			return err
		}
		line, err = memberLine(ctx, st, g, memberID)
		return err
	})
	if err != nil {
		return settlement.Line{}, err
	}
	return line, nil
}

// AddLedgerEntry attaches a manual income or cost line to a gameday.
func (s *GamedayService) AddLedgerEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	e.Name = strings.TrimSpace(e.Name)
	if err := e.Validate(); err != nil {
		return core.LedgerEntry{}, err
	}
	e.Amount = e.Amount.Clamp(core.Money{}, core.Cents(core.MaxAmountCents))

	var created core.LedgerEntry
	err := s.repo.InTx(ctx, func(st *storage.Store) error {
		g, err := st.GetGameday(ctx, e.GamedayID)
		if err != nil {
			return err
		}
		if !g.Status.AllowsLedger() {
			return lockedError("entry", g.Status)
		}
		created, err = st.CreateLedgerEntry(ctx, e)
		return err
	})
	if err != nil {
		return core.LedgerEntry{}, err
	}
	return created, nil
}

func (s *GamedayService) DeleteLedgerEntry(ctx context.Context, gamedayID, entryID int64) error {
	return s.repo.InTx(ctx, func(st *storage.Store) error {
		g, err := st.GetGameday(ctx, gamedayID)
		if err != nil {
			return err
		}
		if !g.Status.AllowsLedger() {
			return lockedError("entry", g.Status)
		}
		return st.DeleteLedgerEntry(ctx, gamedayID, entryID)
	})
}

// GetGameday assembles the full sheet of one gameday.
func (s *GamedayService) GetGameday(ctx context.Context, id int64) (Sheet, error) {
	var (
		g       core.Gameday
		sess    settlement.Session
		games   []core.CustomGame
		entries []core.LedgerEntry
		all     []core.Member
	)
	// One snapshot, so lines and totals never mix two versions of a row.
	err := s.repo.InTx(ctx, func(st *storage.Store) error {
		var err error
		if g, err = st.GetGameday(ctx, id); err != nil {
			return err
		}
		if sess, err = loadSession(ctx, st, g); err != nil {
			return fmt.Errorf("load gameday %d: %w", id, err)
		}
		if games, err = st.ListCustomGames(ctx, id); err != nil {
			return err
		}
		if entries, err = st.ListLedgerEntries(ctx, id); err != nil {
			return err
		}
		all, err = st.ListMembers(ctx)
		return err
	})
	if err != nil {
		return Sheet{}, err
	}

	members := make([]core.Member, 0, len(sess.Records))
	for _, m := range all {
		if slices.ContainsFunc(sess.Records, func(r core.AttendanceRecord) bool { return r.MemberID == m.ID }) {
			members = append(members, m)
		}
	}

	lines := settlement.Compute(sess.Records, sess.CustomValues)
	var totals SheetTotals
	for _, l := range lines {
		totals.Owed = totals.Owed.Add(l.AmountOwed)
		totals.Paid = totals.Paid.Add(l.Paid)
		totals.Remaining = totals.Remaining.Add(l.Remaining)
	}

	return Sheet{
		Gameday:      g,
		Members:      members,
		Records:      nonNil(sess.Records),
		CustomGames:  nonNil(games),
		CustomValues: nonNil(sess.CustomValues),
		Lines:        lines,
		Entries:      nonNil(entries),
		Totals:       totals,
	}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ListGamedays returns all gamedays, newest first.
func (s *GamedayService) ListGamedays(ctx context.Context) ([]core.Gameday, error) {
	gs, err := s.repo.ListGamedays(ctx)
	if err != nil {
		return nil, err
	}
	slices.Reverse(gs)
	return nonNil(gs), nil
}

// NextSuggestedDate proposes the date for a new gameday: two weeks after
// the latest one.
func (s *GamedayService) NextSuggestedDate(ctx context.Context) (core.Date, error) {
	last, ok, err := s.repo.LastGameday(ctx)
	if err != nil {
		return core.Date{}, err
	}
	if !ok || last.Date.IsZero() {
		return DefaultFirstGameday, nil
	}
	return last.Date.AddDays(GamedayInterval), nil
}

// ComputeSettlement returns the settlement lines of one gameday.
func (s *GamedayService) ComputeSettlement(ctx context.Context, id int64) ([]settlement.Line, error) {
	g, err := s.repo.GetGameday(ctx, id)
	if err != nil {
		return nil, err
	}
	sess, err := loadSession(ctx, s.repo.Store, g)
	if err != nil {
		return nil, err
	}
	return settlement.Compute(sess.Records, sess.CustomValues), nil
}

// DeleteGameday removes a gameday with all of its rows.
func (s *GamedayService) DeleteGameday(ctx context.Context, id int64) error {
	if err := s.repo.DeleteGameday(ctx, id); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Gameday deleted", "gameday_id", id)
	return nil
}

func (s *GamedayService) publish(ctx context.Context, e *amqp.Event) {
	publishEvent(ctx, s.events, e)
}

// publishEvent never fails the caller; the database write already succeeded.
func publishEvent(ctx context.Context, events EventPublisher, e *amqp.Event) {
	if events == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping event", "event_type", e.Type)
		return
	}
	if err := events.Publish(ctx, e); err != nil {
		level := slog.LevelError
		if errors.Is(err, amqp.ErrCircuitOpen) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "Failed to publish event",
			"event_type", e.Type,
			"gameday_id", e.GamedayID,
			"error", err)
	}
}
