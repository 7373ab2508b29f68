package services

import (
	"context"
	"fmt"

	"kegelkladde/internal/settlement"
	"kegelkladde/internal/storage"
)

// Statistics returns the club overview with the monthly summary for year.
func (s *GamedayService) Statistics(ctx context.Context, year int) (settlement.Statistics, error) {
	in := settlement.StatisticsInput{Year: year}
	err := s.repo.InTx(ctx, func(st *storage.Store) error {
		var err error
		if in.Gamedays, err = st.ListGamedays(ctx); err != nil {
			return err
		}
		if in.Attendance, err = st.ListAllAttendance(ctx); err != nil {
			return err
		}
		if in.Members, err = st.ListMembers(ctx); err != nil {
			return err
		}
		in.Initial, err = st.ListInitialValues(ctx)
		return err
	})
	if err != nil {
		return settlement.Statistics{}, fmt.Errorf("statistics: %w", err)
	}
	return settlement.ComputeStatistics(in), nil
}
