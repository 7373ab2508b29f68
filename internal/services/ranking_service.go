package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"kegelkladde/internal/amqp"
	"kegelkladde/internal/core"
	"kegelkladde/internal/ranking"
	"kegelkladde/internal/storage"
)

// Table is one ranking as shown to the club: live standings plus the
// history of completed rounds, latest first.
type Table struct {
	Type      core.RankingType   `json:"type"`
	Threshold int                `json:"threshold"`
	Standings []ranking.Standing `json:"standings"`
	History   []core.RoundWin    `json:"history"`
}

// RankingService replays the gameday history on demand and keeps the
// round-win table in sync with what the replay finds.
type RankingService struct {
	repo   *storage.SQLiteRepository
	events EventPublisher
	group  singleflight.Group
}

func NewRankingService(repo *storage.SQLiteRepository, events EventPublisher) *RankingService {
	return &RankingService{repo: repo, events: events}
}

func (s *RankingService) MonteStandings(ctx context.Context) (Table, error) {
	return s.table(ctx, ranking.Monte{})
}

func (s *RankingService) MedaillenStandings(ctx context.Context) (Table, error) {
	return s.table(ctx, ranking.Medaillen{})
}

// Both computes the Monte and Medaillen tables concurrently.
func (s *RankingService) Both(ctx context.Context) (monte, medaillen Table, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		monte, err = s.MonteStandings(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		medaillen, err = s.MedaillenStandings(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Table{}, Table{}, err
	}
	return monte, medaillen, nil
}

// Reconcile replays both rankings so that newly completed rounds get
// persisted even when nobody opens the standings page.
func (s *RankingService) Reconcile(ctx context.Context) error {
	monte, medaillen, err := s.Both(ctx)
	if err != nil {
		return fmt.Errorf("reconcile rankings: %w", err)
	}
	slog.InfoContext(ctx, "Rankings reconciled",
		"monte_rounds", len(monte.History),
		"medaillen_rounds", len(medaillen.History))
	return nil
}

// table collapses concurrent requests for the same ranking into one replay.
// The replay ignores the caller's cancellation because other callers may be
// waiting on the same result.
func (s *RankingService) table(ctx context.Context, rules ranking.Rules) (Table, error) {
	replayCtx := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do(string(rules.Type()), func() (interface{}, error) {
		return s.compute(replayCtx, rules)
	})
	if err != nil {
		return Table{}, err
	}
	if shared {
		slog.DebugContext(ctx, "Ranking replay shared", "ranking_type", rules.Type())
	}
	return v.(Table), nil
}

func (s *RankingService) compute(ctx context.Context, rules ranking.Rules) (Table, error) {
	var (
		table    Table
		newRound []core.RoundWin
	)

	err := s.repo.InTx(ctx, func(st *storage.Store) error {
		members, err := st.ListMembers(ctx)
		if err != nil {
			return err
		}
		initial, err := st.ListInitialValues(ctx)
		if err != nil {
			return err
		}
		gamedays, err := st.ListGamedays(ctx)
		if err != nil {
			return err
		}
		attendance, err := st.ListAllAttendance(ctx)
		if err != nil {
			return err
		}

		sessions := make([]ranking.Session, 0, len(gamedays))
		for _, g := range gamedays {
			sessions = append(sessions, ranking.Session{Gameday: g, Records: attendance[g.ID]})
		}

		res := ranking.Replay(ctx, rules, ranking.Input{
			Members:  members,
			Initial:  initial,
			Sessions: sessions,
		})

		for _, rw := range res.Rounds {
			inserted, err := st.SaveRoundWin(ctx, rw)
			if err != nil {
				return err
			}
			if inserted {
				newRound = append(newRound, rw)
			}
		}

		history, err := st.ListRoundWins(ctx, rules.Type())
		if err != nil {
			return err
		}
		resolveRoundWins(history, members, gamedays)

		table = Table{
			Type:      rules.Type(),
			Threshold: rules.Threshold(),
			Standings: res.Standings,
			History:   history,
		}
		return nil
	})
	if err != nil {
		return Table{}, fmt.Errorf("compute %s ranking: %w", rules.Type(), err)
	}

	for _, rw := range newRound {
		slog.InfoContext(ctx, "Round won",
			"ranking_type", rw.Type,
			"round_number", rw.RoundNumber,
			"winner_member_id", rw.WinnerMemberID,
			"winning_score", rw.WinningScore)
		publishEvent(ctx, s.events, amqp.NewRoundWonEvent(rw))
	}
	return table, nil
}

// resolveRoundWins fills in winner names and gameday dates.
func resolveRoundWins(wins []core.RoundWin, members []core.Member, gamedays []core.Gameday) {
	names := make(map[int64]string, len(members))
	for _, m := range members {
		names[m.ID] = m.DisplayName
	}
	dates := make(map[int64]core.Date, len(gamedays))
	for _, g := range gamedays {
		dates[g.ID] = g.Date
	}
	for i := range wins {
		wins[i].WinnerName = names[wins[i].WinnerMemberID]
		wins[i].GamedayDate = dates[wins[i].GamedayID]
	}
}

// SetInitialValues stores a member's pre-app starting values.
func (s *RankingService) SetInitialValues(ctx context.Context, iv core.MemberInitialValue) error {
	counts := map[string]int{
		"initial_alle9":            iv.InitialAlle9,
		"initial_kranz":            iv.InitialKranz,
		"initial_monte_points":     iv.InitialMontePoints,
		"initial_monte_wins":       iv.InitialMonteWins,
		"initial_medaillen_points": iv.InitialMedaillenPoints,
		"initial_medaillen_wins":   iv.InitialMedaillenWins,
	}
	for field, n := range counts {
		if n < 0 {
			return &core.ValidationError{Field: field, Err: core.ErrNegativeCount}
		}
	}

	return s.repo.InTx(ctx, func(st *storage.Store) error {
		members, err := st.ListMembers(ctx)
		if err != nil {
			return err
		}
		known := false
		for _, m := range members {
			if m.ID == iv.MemberID {
				known = true
				break
			}
		}
		if !known {
			return &core.NotFoundError{Kind: "member", ID: iv.MemberID}
		}
		return st.SaveInitialValue(ctx, iv)
	})
}
