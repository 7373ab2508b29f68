package ranking

import (
	"context"

	"kegelkladde/internal/core"
)

const (
	MedaillenThreshold = 41
	GoldPoints         = 2
	SilverPoints       = 1
)

// Medaillen scores the Aussteigen side game: the two lowest amounts win
// gold and silver.
type Medaillen struct{}

func (Medaillen) Type() core.RankingType { return core.RankingMedaillen }
func (Medaillen) Threshold() int         { return MedaillenThreshold }

func (Medaillen) Seed(iv core.MemberInitialValue) (int, int) {
	return iv.InitialMedaillenPoints, iv.InitialMedaillenWins
}

func (Medaillen) Award(ctx context.Context, s Session, order map[int64]int) []Award {
	ps := participants(ctx, s, core.SideGameAussteigen, order)
	if len(ps) < 2 || !played(ps) {
		return nil
	}
	return []Award{
		{MemberID: ps[0].memberID, Points: GoldPoints, Medal: MedalGold},
		{MemberID: ps[1].memberID, Points: SilverPoints, Medal: MedalSilver},
	}
}

// Secondary ranks more gold, then more silver first.
func (Medaillen) Secondary(a, b *Standing) int {
	if a.Gold != b.Gold {
		return b.Gold - a.Gold
	}
	return b.Silver - a.Silver
}
