package core

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"
)

// DateLayout is the calendar format used for gameday dates.
const DateLayout = "2006-01-02"

// Field length limits.
const (
	MaxNoteLength       = 120
	MaxCustomGameName   = 30
	MaxLedgerNameLength = 60
	MaxExpenseDesc      = 200
)

// SideGame identifies one of the fixed per-session mini-games.
type SideGame string

const (
	SideGameVA         SideGame = "va"
	SideGameMonte      SideGame = "monte"
	SideGameAussteigen SideGame = "aussteigen"
	SideGameSechsTage  SideGame = "sechs_tage"
)

// SideGames lists the fixed side games in display order.
var SideGames = []SideGame{SideGameVA, SideGameMonte, SideGameAussteigen, SideGameSechsTage}

// Valid reports whether g is one of the fixed side games.
func (g SideGame) Valid() bool {
	return slices.Contains(SideGames, g)
}

// LedgerKind separates manual income from manual cost line items.
type LedgerKind string

const (
	LedgerIncome LedgerKind = "income"
	LedgerCost   LedgerKind = "cost"
)

func (k LedgerKind) Valid() bool {
	return k == LedgerIncome || k == LedgerCost
}

// RankingType names one of the two tournament scores.
type RankingType string

const (
	RankingMonte     RankingType = "monte"
	RankingMedaillen RankingType = "medaillen"
)

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Member is read from the external member directory.
	Member struct {
		ID          int64  `json:"id"`
		DisplayName string `json:"display_name"`
		Active      bool   `json:"active"`
		SortOrder   int    `json:"sort_order"`
	}

	Gameday struct {
		ID        int64     `json:"id"`
		Date      Date      `json:"date"`
		Note      string    `json:"note"`
		Status    Status    `json:"status"`
		LaneCost  Money     `json:"lane_cost"`
		CreatedAt time.Time `json:"created_at"`
	}

	// AttendanceRecord holds one member's row for one gameday.
	AttendanceRecord struct {
		GamedayID          int64     `json:"gameday_id"`
		MemberID           int64     `json:"member_id"`
		Present            bool      `json:"present"`
		Triclops           int       `json:"triclops"`
		Alle9              int       `json:"alle9"`
		Kranz              int       `json:"kranz"`
		Pudel              int       `json:"pudel"`
		Penalties          Money     `json:"penalties"`
		Contribution       Money     `json:"contribution"`
		VA                 NullMoney `json:"va"`
		Monte              NullMoney `json:"monte"`
		Aussteigen         NullMoney `json:"aussteigen"`
		SechsTage          NullMoney `json:"sechs_tage"`
		MonteTiebreak      int       `json:"monte_tiebreak"`
		AussteigenTiebreak int       `json:"aussteigen_tiebreak"`
		MonteExtra         bool      `json:"monte_extra"`
		Struck             StruckSet `json:"struck_games"`
		Carryover          Money     `json:"carryover"`
		Paid               Money     `json:"paid"`
	}

	CustomGame struct {
		ID        int64  `json:"id"`
		GamedayID int64  `json:"gameday_id"`
		Name      string `json:"name"`
		SortOrder int    `json:"sort_order"`
	}

	CustomGameValue struct {
		GamedayID    int64 `json:"gameday_id"`
		MemberID     int64 `json:"member_id"`
		CustomGameID int64 `json:"custom_game_id"`
		Amount       Money `json:"amount"`
	}

	// LedgerEntry is a manual income or cost line attached to a gameday.
	LedgerEntry struct {
		ID        int64      `json:"id"`
		GamedayID int64      `json:"gameday_id"`
		Kind      LedgerKind `json:"kind"`
		Name      string     `json:"name"`
		Amount    Money      `json:"amount"`
		SortOrder int        `json:"sort_order"`
	}

	// Expense is a club-level outflow not tied to a gameday.
	Expense struct {
		ID          int64  `json:"id"`
		Date        Date   `json:"date"`
		Description string `json:"description"`
		Amount      Money  `json:"amount"`
	}

	MemberInitialValue struct {
		MemberID               int64 `json:"member_id"`
		InitialAlle9           int   `json:"initial_alle9"`
		InitialKranz           int   `json:"initial_kranz"`
		InitialCarryover       Money `json:"initial_carryover"`
		InitialMontePoints     int   `json:"initial_monte_points"`
		InitialMonteWins       int   `json:"initial_monte_wins"`
		InitialMedaillenPoints int   `json:"initial_medaillen_points"`
		InitialMedaillenWins   int   `json:"initial_medaillen_wins"`
	}

	// StandingSnapshot is one row of the standings frozen at a round win.
	StandingSnapshot struct {
		MemberID int64  `json:"member_id"`
		Name     string `json:"name"`
		Points   int    `json:"points"`
	}

	RoundWin struct {
		Type           RankingType        `json:"type"`
		RoundNumber    int                `json:"round_number"`
		WinnerMemberID int64              `json:"winner_member_id"`
		WinnerName     string             `json:"winner_name"`
		GamedayID      int64              `json:"gameday_id"`
		GamedayDate    Date               `json:"gameday_date"`
		WinningScore   int                `json:"winning_score"`
		Standings      []StandingSnapshot `json:"standings"`
		DetectedAt     time.Time          `json:"detected_at"`
	}
)

var (
	ErrInvalidDay      = errors.New("invalid day")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrNegativeCount   = errors.New("negative count")
	ErrInvalidSideGame = errors.New("invalid side game")
	ErrEmptyName       = errors.New("empty name")
	ErrTooLong         = errors.New("value too long")
)

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Err: ErrInvalidDate}
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	// Check basic ranges
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// String returns the date as YYYY-MM-DD
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(DateLayout)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// SideGame returns the stored amount of the given side game.
func (r AttendanceRecord) SideGame(g SideGame) NullMoney {
	switch g {
	case SideGameVA:
		return r.VA
	case SideGameMonte:
		return r.Monte
	case SideGameAussteigen:
		return r.Aussteigen
	case SideGameSechsTage:
		return r.SechsTage
	}
	return NullMoney{}
}

// NewAttendance returns a zeroed record as created for a new gameday.
func NewAttendance(gamedayID, memberID int64, contribution, carryover Money) AttendanceRecord {
	zero := SomeMoney(Money{})
	return AttendanceRecord{
		GamedayID:    gamedayID,
		MemberID:     memberID,
		Present:      true,
		Contribution: contribution,
		VA:           zero,
		Monte:        zero,
		Aussteigen:   zero,
		SechsTage:    zero,
		Carryover:    carryover,
		Struck:       StruckSet{},
	}
}

func (e LedgerEntry) Validate() error {
	if !e.Kind.Valid() {
		return &ValidationError{Field: "kind", Reason: "must be income or cost"}
	}
	if strings.TrimSpace(e.Name) == "" {
		return &ValidationError{Field: "name", Err: ErrEmptyName}
	}
	if len([]rune(e.Name)) > MaxLedgerNameLength {
		return &ValidationError{Field: "name", Err: ErrTooLong}
	}
	if e.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Err: err}
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return &ValidationError{Field: "description", Err: ErrEmptyName}
	}
	if len(e.Description) > MaxExpenseDesc {
		return &ValidationError{Field: "description", Reason: "too long (max 200 characters)"}
	}
	if e.Amount.Cents <= 0 {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	return nil
}

// StruckSet holds the side games excluded for one member on one gameday.
type StruckSet []SideGame

// Has reports whether g is struck.
func (s StruckSet) Has(g SideGame) bool {
	return slices.Contains(s, g)
}

// Toggle returns a copy of s with g flipped, kept in canonical order.
func (s StruckSet) Toggle(g SideGame) StruckSet {
	out := make(StruckSet, 0, len(s)+1)
	found := false
	for _, v := range s {
		if v == g {
			found = true
			continue
		}
		out = append(out, v)
	}
	if !found {
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b SideGame) int {
		return slices.Index(SideGames, a) - slices.Index(SideGames, b)
	})
	return out
}

// ParseStruckSet decodes the stored JSON array, dropping unknown keys.
func ParseStruckSet(raw string) StruckSet {
	out := StruckSet{}
	if strings.TrimSpace(raw) == "" {
		return out
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return out
	}
	for _, k := range keys {
		g := SideGame(k)
		if g.Valid() && !out.Has(g) {
			out = append(out, g)
		}
	}
	return out
}

// Encode returns the JSON array stored in the database.
func (s StruckSet) Encode() string {
	if len(s) == 0 {
		return "[]"
	}
	b, _ := json.Marshal([]SideGame(s))
	return string(b)
}
