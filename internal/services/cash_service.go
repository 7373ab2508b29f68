package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"kegelkladde/internal/core"
	"kegelkladde/internal/settlement"
	"kegelkladde/internal/storage"
)

// CashBalance is the club cash overview.
type CashBalance struct {
	Totals  settlement.CashTotals `json:"totals"`
	Balance core.Money            `json:"balance"`
}

// CashService reports the club balance and manages club-level expenses.
type CashService struct {
	repo *storage.SQLiteRepository
}

func NewCashService(repo *storage.SQLiteRepository) *CashService {
	return &CashService{repo: repo}
}

// CashBalance returns start + paid + income - cost - expenses over all gamedays.
func (s *CashService) CashBalance(ctx context.Context) (CashBalance, error) {
	t, err := s.repo.CashTotals(ctx)
	if err != nil {
		return CashBalance{}, fmt.Errorf("cash balance: %w", err)
	}
	return CashBalance{Totals: t, Balance: t.Balance()}, nil
}

// CashBalanceForGameday shows the balance before and after one gameday.
func (s *CashService) CashBalanceForGameday(ctx context.Context, gamedayID int64) (settlement.GamedayCash, error) {
	var out settlement.GamedayCash
	err := s.repo.InTx(ctx, func(st *storage.Store) error {
		if _, err := st.GetGameday(ctx, gamedayID); err != nil {
			return err
		}
		t, err := st.CashTotals(ctx)
		if err != nil {
			return err
		}
		paid, err := st.GamedayPaid(ctx, gamedayID)
		if err != nil {
			return err
		}
		entries, err := st.ListLedgerEntries(ctx, gamedayID)
		if err != nil {
			return err
		}
		out = settlement.ForGameday(t.Balance(), gamedayID, paid, entries)
		return nil
	})
	if err != nil {
		return settlement.GamedayCash{}, err
	}
	return out, nil
}

// SetStartingBalance stores the opening balance. It may be negative.
func (s *CashService) SetStartingBalance(ctx context.Context, m core.Money) error {
	if err := s.repo.SetStartingBalance(ctx, m); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Starting balance set", "amount", m.String())
	return nil
}

func (s *CashService) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Description = strings.TrimSpace(e.Description)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.Amount = e.Amount.Clamp(core.Money{}, core.Cents(core.MaxAmountCents))
	return s.repo.CreateExpense(ctx, e)
}

// UpdateExpense corrects an existing expense under the same rules as
// AddExpense.
func (s *CashService) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Description = strings.TrimSpace(e.Description)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.Amount = e.Amount.Clamp(core.Money{}, core.Cents(core.MaxAmountCents))
	return s.repo.UpdateExpense(ctx, e)
}

// ListExpenses returns club expenses, newest first.
func (s *CashService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	es, err := s.repo.ListExpenses(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(es), nil
}

func (s *CashService) DeleteExpense(ctx context.Context, id int64) error {
	return s.repo.DeleteExpense(ctx, id)
}
