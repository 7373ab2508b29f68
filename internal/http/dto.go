package http

import (
	"kegelkladde/internal/core"
	"kegelkladde/internal/editlock"
	"kegelkladde/internal/services"
)

type createGamedayRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Note string `json:"note" validate:"max=120"`
}

type updateGamedayRequest struct {
	Note     string     `json:"note" validate:"max=120"`
	LaneCost core.Money `json:"lane_cost"`
}

type struckRequest struct {
	Game string `json:"game" validate:"required,oneof=va monte aussteigen sechs_tage"`
}

// monteExtraRequest with member_id 0 clears the flag for everyone.
type monteExtraRequest struct {
	MemberID int64 `json:"member_id" validate:"gte=0"`
}

type customGameRequest struct {
	Name string `json:"name" validate:"required,max=30"`
}

type customValueRequest struct {
	Amount core.Money `json:"amount"`
}

type ledgerEntryRequest struct {
	Kind   string     `json:"kind" validate:"required,oneof=income cost"`
	Name   string     `json:"name" validate:"required,max=60"`
	Amount core.Money `json:"amount"`
}

type startingBalanceRequest struct {
	Amount core.Money `json:"amount"`
}

type expenseRequest struct {
	Date        string     `json:"date" validate:"required,datetime=2006-01-02"`
	Description string     `json:"description" validate:"required,max=200"`
	Amount      core.Money `json:"amount"`
}

type initialValuesRequest struct {
	InitialAlle9           int        `json:"initial_alle9" validate:"gte=0"`
	InitialKranz           int        `json:"initial_kranz" validate:"gte=0"`
	InitialCarryover       core.Money `json:"initial_carryover"`
	InitialMontePoints     int        `json:"initial_monte_points" validate:"gte=0"`
	InitialMonteWins       int        `json:"initial_monte_wins" validate:"gte=0"`
	InitialMedaillenPoints int        `json:"initial_medaillen_points" validate:"gte=0"`
	InitialMedaillenWins   int        `json:"initial_medaillen_wins" validate:"gte=0"`
}

func (r initialValuesRequest) toDomain(memberID int64) core.MemberInitialValue {
	return core.MemberInitialValue{
		MemberID:               memberID,
		InitialAlle9:           r.InitialAlle9,
		InitialKranz:           r.InitialKranz,
		InitialCarryover:       r.InitialCarryover,
		InitialMontePoints:     r.InitialMontePoints,
		InitialMonteWins:       r.InitialMonteWins,
		InitialMedaillenPoints: r.InitialMedaillenPoints,
		InitialMedaillenWins:   r.InitialMedaillenWins,
	}
}

type nextDateResponse struct {
	Date core.Date `json:"date"`
}

type lockResponse struct {
	Acquired bool          `json:"acquired"`
	Lock     editlock.Lock `json:"lock"`
}

// attendanceRequest is the PATCH body for one attendance row. It is the
// service patch itself; the alias keeps the handler signature readable.
type attendanceRequest = services.AttendancePatch
