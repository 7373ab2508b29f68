package http

import (
	"net/http"

	"kegelkladde/internal/core"
	applog "kegelkladde/internal/log"
)

func (s *Server) handleCash(w http.ResponseWriter, r *http.Request) {
	b, err := s.cash.CashBalance(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, b)
}

func (s *Server) handleGamedayCash(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	gc, err := s.cash.CashBalanceForGameday(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, gc)
}

func (s *Server) handleSetStartingBalance(w http.ResponseWriter, r *http.Request) {
	var req startingBalanceRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.cash.SetStartingBalance(r.Context(), req.Amount); err != nil {
		s.fail(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	es, err := s.cash.ListExpenses(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, es)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	e, err := s.cash.AddExpense(r.Context(), core.Expense{
		Date:        date,
		Description: req.Description,
		Amount:      req.Amount,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Expense recorded",
		applog.FieldAmountCents, e.Amount.Cents, applog.FieldOperation, applog.OpCreate)
	s.created(w, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req expenseRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	e, err := s.cash.UpdateExpense(r.Context(), core.Expense{
		ID:          id,
		Date:        date,
		Description: req.Description,
		Amount:      req.Amount,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Expense corrected",
		applog.FieldAmountCents, e.Amount.Cents, applog.FieldOperation, applog.OpUpdate)
	s.ok(w, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.cash.DeleteExpense(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	noContent(w)
}
