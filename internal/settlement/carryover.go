package settlement

import "kegelkladde/internal/core"

// Session bundles a gameday with the rows needed to settle it.
type Session struct {
	Gameday      core.Gameday
	Records      []core.AttendanceRecord
	CustomValues []core.CustomGameValue
}

// Seed builds the attendance rows for a new gameday. Every active member gets
// the remaining balance of the previous session as carryover, or zero when
// there is no previous session or no prior row for that member.
func Seed(gamedayID int64, members []core.Member, previous *Session, contribution core.Money) []core.AttendanceRecord {
	var remaining map[int64]Line
	if previous != nil {
		remaining = ByMember(Compute(previous.Records, previous.CustomValues))
	}

	records := make([]core.AttendanceRecord, 0, len(members))
	for _, m := range members {
		if !m.Active {
			continue
		}
		var carry core.Money
		if l, ok := remaining[m.ID]; ok {
			carry = l.Remaining
		}
		records = append(records, core.NewAttendance(gamedayID, m.ID, contribution, carry))
	}
	return records
}
