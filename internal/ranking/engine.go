// Package ranking replays the full gameday history to produce the Monte and
// Medaillen tournament standings.
//
// State is never stored between calls: every request folds over all
// sessions in chronological order, seeded from the members' initial values.
// Rounds detected along the way are returned so the caller can persist them
// as an audit trail.
package ranking

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"kegelkladde/internal/core"
)

// Medal marks a Medaillen placement within a session.
type Medal string

const (
	MedalNone   Medal = ""
	MedalGold   Medal = "gold"
	MedalSilver Medal = "silver"
)

// Session is one gameday as seen by the replay.
type Session struct {
	Gameday core.Gameday
	Records []core.AttendanceRecord
}

// Award is the points one member earns in one session.
type Award struct {
	MemberID int64
	Points   int
	Medal    Medal
}

// Rules is the part that differs between ranking types.
type Rules interface {
	Type() core.RankingType
	Threshold() int
	// Seed returns the starting points and prior round wins for a member.
	Seed(iv core.MemberInitialValue) (points, wins int)
	// Award computes one session's awards. order maps member id to directory position.
	Award(ctx context.Context, s Session, order map[int64]int) []Award
	// Secondary breaks ties on equal totals; negative means a ranks first.
	Secondary(a, b *Standing) int
}

// Point is one history entry in a member's current round.
type Point struct {
	GamedayID int64     `json:"gameday_id"`
	Date      core.Date `json:"date"`
	Points    int       `json:"points"`
	Medal     Medal     `json:"medal,omitempty"`
}

type Standing struct {
	MemberID int64   `json:"member_id"`
	Name     string  `json:"name"`
	Total    int     `json:"total"`
	Wins     int     `json:"wins"`
	Gold     int     `json:"gold,omitempty"`
	Silver   int     `json:"silver,omitempty"`
	History  []Point `json:"history"`
	order    int
}

// Input is everything the replay needs.
type Input struct {
	// Members in directory order. Records of members not listed are ignored.
	Members  []core.Member
	Initial  []core.MemberInitialValue
	Sessions []Session
}

type Result struct {
	Type      core.RankingType `json:"type"`
	Standings []Standing       `json:"standings"`
	Rounds    []core.RoundWin  `json:"rounds"`
}

// Replay folds all sessions chronologically and returns the live standings
// plus every round completed during the replay.
func Replay(ctx context.Context, rules Rules, in Input) Result {
	order := make(map[int64]int, len(in.Members))
	standings := make([]*Standing, 0, len(in.Members))
	byID := make(map[int64]*Standing, len(in.Members))
	for i, m := range in.Members {
		st := &Standing{MemberID: m.ID, Name: m.DisplayName, History: []Point{}, order: i}
		order[m.ID] = i
		standings = append(standings, st)
		byID[m.ID] = st
	}

	seedRounds := 0
	for _, iv := range in.Initial {
		points, wins := rules.Seed(iv)
		seedRounds += wins
		if st, ok := byID[iv.MemberID]; ok {
			st.Total += points
			st.Wins += wins
		}
	}

	sessions := slices.Clone(in.Sessions)
	slices.SortStableFunc(sessions, func(a, b Session) int {
		if c := a.Gameday.Date.Compare(b.Gameday.Date.Time); c != 0 {
			return c
		}
		return cmpInt64(a.Gameday.ID, b.Gameday.ID)
	})

	var rounds []core.RoundWin
	for _, s := range sessions {
		sessionPoints := make(map[int64]int)
		for _, a := range rules.Award(ctx, s, order) {
			st, ok := byID[a.MemberID]
			if !ok || a.Points == 0 {
				continue
			}
			st.Total += a.Points
			switch a.Medal {
			case MedalGold:
				st.Gold++
			case MedalSilver:
				st.Silver++
			}
			st.History = append(st.History, Point{
				GamedayID: s.Gameday.ID,
				Date:      s.Gameday.Date,
				Points:    a.Points,
				Medal:     a.Medal,
			})
			sessionPoints[a.MemberID] += a.Points
		}

		winner := roundWinner(standings, rules.Threshold(), sessionPoints)
		if winner == nil {
			continue
		}

		rw := core.RoundWin{
			Type:           rules.Type(),
			RoundNumber:    seedRounds + len(rounds) + 1,
			WinnerMemberID: winner.MemberID,
			WinnerName:     winner.Name,
			GamedayID:      s.Gameday.ID,
			GamedayDate:    s.Gameday.Date,
			WinningScore:   winner.Total,
			Standings:      snapshot(standings, rules),
			DetectedAt:     time.Now().UTC(),
		}
		rounds = append(rounds, rw)
		slog.DebugContext(ctx, "Round completed during replay",
			"ranking_type", rw.Type,
			"round_number", rw.RoundNumber,
			"winner_member_id", rw.WinnerMemberID,
			"gameday_id", rw.GamedayID,
			"winning_score", rw.WinningScore)

		winner.Wins++
		for _, st := range standings {
			st.Total = 0
			st.Gold = 0
			st.Silver = 0
			st.History = []Point{}
		}
	}

	out := make([]Standing, 0, len(standings))
	for _, st := range standings {
		if st.Total > 0 || st.Wins > 0 {
			out = append(out, *st)
		}
	}
	sortStandings(out, rules)
	if rounds == nil {
		rounds = []core.RoundWin{}
	}
	return Result{Type: rules.Type(), Standings: out, Rounds: rounds}
}

// roundWinner returns the member with the highest total if anyone reached
// the threshold. Equal totals go to the larger award in this session, then
// to directory order.
func roundWinner(standings []*Standing, threshold int, sessionPoints map[int64]int) *Standing {
	var best *Standing
	for _, st := range standings {
		if st.Total < threshold {
			continue
		}
		if best == nil || st.Total > best.Total ||
			(st.Total == best.Total && sessionPoints[st.MemberID] > sessionPoints[best.MemberID]) {
			best = st
		}
	}
	return best
}

func snapshot(standings []*Standing, rules Rules) []core.StandingSnapshot {
	rows := make([]Standing, 0, len(standings))
	for _, st := range standings {
		if st.Total > 0 {
			rows = append(rows, *st)
		}
	}
	sortStandings(rows, rules)
	out := make([]core.StandingSnapshot, len(rows))
	for i, r := range rows {
		out[i] = core.StandingSnapshot{MemberID: r.MemberID, Name: r.Name, Points: r.Total}
	}
	return out
}

func sortStandings(rows []Standing, rules Rules) {
	slices.SortStableFunc(rows, func(a, b Standing) int {
		if a.Total != b.Total {
			return b.Total - a.Total
		}
		if c := rules.Secondary(&a, &b); c != 0 {
			return c
		}
		return a.order - b.order
	})
}

// participant is one eligible row of a session for a given side game.
type participant struct {
	memberID int64
	amount   core.Money
	tiebreak int
	extra    bool
	order    int
}

// participants returns present, non-struck rows with a stored amount for game.
// Rows with a missing amount are logged and skipped.
func participants(ctx context.Context, s Session, game core.SideGame, order map[int64]int) []participant {
	var out []participant
	for _, r := range s.Records {
		if !r.Present || r.Struck.Has(game) {
			continue
		}
		idx, known := order[r.MemberID]
		if !known {
			continue
		}
		amount := r.SideGame(game)
		if !amount.Valid {
			slog.WarnContext(ctx, "Skipping attendance row without side-game amount",
				"gameday_id", s.Gameday.ID,
				"member_id", r.MemberID,
				"side_game", game)
			continue
		}
		tb := r.MonteTiebreak
		if game == core.SideGameAussteigen {
			tb = r.AussteigenTiebreak
		}
		out = append(out, participant{
			memberID: r.MemberID,
			amount:   amount.Money,
			tiebreak: tb,
			extra:    r.MonteExtra,
			order:    idx,
		})
	}
	slices.SortStableFunc(out, func(a, b participant) int {
		if c := cmpInt64(a.amount.Cents, b.amount.Cents); c != 0 {
			return c
		}
		if a.tiebreak != b.tiebreak {
			return a.tiebreak - b.tiebreak
		}
		return a.order - b.order
	})
	return out
}

// played reports whether any participant has a non-zero amount.
func played(ps []participant) bool {
	for _, p := range ps {
		if p.amount.Cents > 0 {
			return true
		}
	}
	return false
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
