package ranking

import (
	"context"

	"kegelkladde/internal/core"
)

const (
	MonteThreshold = 100
	// Amounts at or above the cutoff earn no placement points.
	MonteCutoffCents = 200
)

// MontePointScale is the placement scale; places beyond it earn nothing.
var MontePointScale = []int{10, 6, 4, 3, 2, 1}

// Monte scores the Monte side game.
type Monte struct{}

func (Monte) Type() core.RankingType { return core.RankingMonte }
func (Monte) Threshold() int         { return MonteThreshold }

func (Monte) Seed(iv core.MemberInitialValue) (int, int) {
	return iv.InitialMontePoints, iv.InitialMonteWins
}

func (Monte) Award(ctx context.Context, s Session, order map[int64]int) []Award {
	ps := participants(ctx, s, core.SideGameMonte, order)
	if !played(ps) {
		return nil
	}

	var awards []Award
	place := 0
	for _, p := range ps {
		pts := 0
		if p.amount.Cents < MonteCutoffCents {
			if place < len(MontePointScale) {
				pts = MontePointScale[place]
			}
			place++
		}
		if p.extra {
			pts++
		}
		if pts > 0 {
			awards = append(awards, Award{MemberID: p.memberID, Points: pts})
		}
	}
	return awards
}

// Secondary ranks more round wins first.
func (Monte) Secondary(a, b *Standing) int {
	return b.Wins - a.Wins
}
