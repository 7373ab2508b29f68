package storage

import (
	"database/sql"
)

// Row types in this file map the tables in migrations/ one to one.

type Attendance struct {
	GamedayID          int64
	MemberID           int64
	Present            int64
	Triclops           int64
	Alle9              int64
	Kranz              int64
	Pudel              int64
	PenaltiesCents     int64
	ContributionCents  int64
	VaCents            sql.NullInt64
	MonteCents         sql.NullInt64
	AussteigenCents    sql.NullInt64
	SechsTageCents     sql.NullInt64
	MonteTiebreak      int64
	AussteigenTiebreak int64
	MonteExtra         int64
	StruckGames        string
	CarryoverCents     int64
	PaidCents          int64
	UpdatedAt          string
}

type CustomGame struct {
	ID        int64
	GamedayID int64
	Name      string
	SortOrder int64
}

type CustomGameValue struct {
	GamedayID    int64
	MemberID     int64
	CustomGameID int64
	AmountCents  int64
}

type Expense struct {
	ID          int64
	AmountCents int64
	Description string
	ExpenseDate string
	CreatedAt   string
}

type Gameday struct {
	ID            int64
	MatchDate     string
	Note          string
	Status        int64
	LaneCostCents int64
	CreatedAt     string
}

type GamedayEntry struct {
	ID          int64
	GamedayID   int64
	Type        string
	Name        string
	AmountCents int64
	SortOrder   int64
}

type Member struct {
	ID          int64
	DisplayName string
	Active      int64
	SortOrder   int64
	CreatedAt   string
}

type MemberInitialValue struct {
	MemberID               int64
	InitialAlle9           int64
	InitialKranz           int64
	InitialCarryoverCents  int64
	InitialMontePoints     int64
	InitialMonteSiege      int64
	InitialMedaillenPoints int64
	InitialMedaillenSiege  int64
}

type RoundWin struct {
	ID               int64
	Type             string
	RoundNumber      int64
	WinnerMemberID   int64
	WinningGamedayID int64
	WinningScore     int64
	StandingsJson    string
	DetectedAt       string
}

type Setting struct {
	Key   string
	Value string
}

type SettlementExport struct {
	GamedayID  int64
	RowRef     string
	SyncStatus string
	Attempts   int64
	ExportedAt string
}
