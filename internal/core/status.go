package core

import "strconv"

// Status is the gameday lifecycle state.
type Status int

const (
	StatusNotStarted Status = iota
	StatusInProgress
	StatusSettlement
	StatusArchived
)

var statusLabels = map[Status]string{
	StatusNotStarted: "Noch nicht begonnen",
	StatusInProgress: "Gut Holz!",
	StatusSettlement: "Abrechnung",
	StatusArchived:   "Archiv",
}

func (s Status) Valid() bool {
	return s >= StatusNotStarted && s <= StatusArchived
}

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusInProgress:
		return "in_progress"
	case StatusSettlement:
		return "settlement"
	case StatusArchived:
		return "archived"
	}
	return "status(" + strconv.Itoa(int(s)) + ")"
}

// Label is the German caption shown in the club's UI.
func (s Status) Label() string {
	return statusLabels[s]
}

// Advance returns the next status, or an error at Archived.
func (s Status) Advance() (Status, error) {
	if !s.Valid() || s == StatusArchived {
		return s, &InvalidTransitionError{From: s, Direction: "advance"}
	}
	return s + 1, nil
}

// Revert returns the previous status, or an error at NotStarted.
func (s Status) Revert() (Status, error) {
	if !s.Valid() || s == StatusNotStarted {
		return s, &InvalidTransitionError{From: s, Direction: "revert"}
	}
	return s - 1, nil
}

// Field names an attendance column for write gating.
type Field string

const (
	FieldPresent            Field = "present"
	FieldTriclops           Field = "triclops"
	FieldAlle9              Field = "alle9"
	FieldKranz              Field = "kranz"
	FieldPudel              Field = "pudel"
	FieldPenalties          Field = "penalties"
	FieldVA                 Field = "va"
	FieldMonte              Field = "monte"
	FieldAussteigen         Field = "aussteigen"
	FieldSechsTage          Field = "sechs_tage"
	FieldMonteTiebreak      Field = "monte_tiebreak"
	FieldAussteigenTiebreak Field = "aussteigen_tiebreak"
	FieldMonteExtra         Field = "monte_extra"
	FieldStruckGames        Field = "struck_games"
	FieldCustomGameValue    Field = "custom_game_value"
	FieldPaid               Field = "paid"
	FieldCarryover          Field = "carryover"
	FieldContribution       Field = "contribution"
)

// Allows reports whether field may be written while the gameday is in s.
func (s Status) Allows(f Field) bool {
	switch f {
	case FieldCarryover, FieldContribution:
		return false
	case FieldPaid:
		return s == StatusNotStarted || s == StatusInProgress || s == StatusSettlement
	}
	return s.open()
}

// AllowsCustomGames reports whether custom games may be added, renamed or deleted.
func (s Status) AllowsCustomGames() bool {
	return s.open()
}

// AllowsLedger reports whether income and cost entries may change.
func (s Status) AllowsLedger() bool {
	return s != StatusArchived
}

// AllowsDetails reports whether the note and lane cost may change.
func (s Status) AllowsDetails() bool {
	return s != StatusArchived
}

func (s Status) open() bool {
	return s == StatusNotStarted || s == StatusInProgress
}

// CheckWrite returns a ValidationError wrapping ErrFieldLocked when f is not writable.
func (s Status) CheckWrite(f Field) error {
	if s.Allows(f) {
		return nil
	}
	return &ValidationError{Field: string(f), Reason: "status " + s.String(), Err: ErrFieldLocked}
}
