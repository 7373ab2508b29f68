package settlement

import (
	"cmp"
	"slices"

	"kegelkladde/internal/core"
)

// LeaderboardSize is the number of members shown per leaderboard.
const LeaderboardSize = 5

// RecentGamedays is the number of gamedays listed under Recent.
const RecentGamedays = 5

var monthNames = [12]string{"Jan", "Feb", "Mär", "Apr", "Mai", "Jun", "Jul", "Aug", "Sep", "Okt", "Nov", "Dez"}

// MemberStatistics aggregates one member over all gamedays.
//
// Alle9 and Kranz include the member's initial values. The averages are
// taken over recorded gamedays only, so the initial values never enter them.
type MemberStatistics struct {
	MemberID      int64      `json:"member_id"`
	Name          string     `json:"name"`
	Games         int        `json:"games"`
	Alle9         int        `json:"alle9"`
	Kranz         int        `json:"kranz"`
	Pudel         int        `json:"pudel"`
	AvgAlle9      float64    `json:"avg_alle9"`
	AvgKranz      float64    `json:"avg_kranz"`
	AvgPudel      float64    `json:"avg_pudel"`
	Contributions core.Money `json:"contributions"`
	Penalties     core.Money `json:"penalties"`

	recordedAlle9, recordedKranz int
}

// MonthStatistics sums the gamedays of one calendar month.
type MonthStatistics struct {
	Month         int        `json:"month"`
	Name          string     `json:"name"`
	Gamedays      int        `json:"gamedays"`
	Contributions core.Money `json:"contributions"`
	Penalties     core.Money `json:"penalties"`
}

// Statistics is the club overview.
type Statistics struct {
	Gamedays        int                `json:"gamedays"`
	SettledGamedays int                `json:"settled_gamedays"`
	Members         int                `json:"members"`
	ActiveMembers   int                `json:"active_members"`
	Contributions   core.Money         `json:"contributions"`
	Penalties       core.Money         `json:"penalties"`
	TopAttendance   []MemberStatistics `json:"top_attendance"`
	TopContributors []MemberStatistics `json:"top_contributors"`
	TopAlle9        []MemberStatistics `json:"top_alle9"`
	TopKranz        []MemberStatistics `json:"top_kranz"`
	MostPudel       []MemberStatistics `json:"most_pudel"`
	Recent          []core.Gameday     `json:"recent"`
	Year            int                `json:"year"`
	Monthly         []MonthStatistics  `json:"monthly"`
	PerMember       []MemberStatistics `json:"per_member"`
}

// StatisticsInput is everything the overview is computed from.
// Attendance is keyed by gameday id. Rows of gamedays missing from
// Gamedays are ignored.
type StatisticsInput struct {
	Year       int
	Gamedays   []core.Gameday
	Attendance map[int64][]core.AttendanceRecord
	Members    []core.Member
	Initial    []core.MemberInitialValue
}

// ComputeStatistics builds the overview. A gameday counts as settled once it
// is archived. Club totals cover every row, present or not; the monthly
// summary and the averages only count present members.
func ComputeStatistics(in StatisticsInput) Statistics {
	st := Statistics{
		Gamedays: len(in.Gamedays),
		Members:  len(in.Members),
		Year:     in.Year,
	}

	byMember := make(map[int64]*MemberStatistics, len(in.Members))
	order := make([]int64, 0, len(in.Members))
	member := func(id int64) *MemberStatistics {
		m, ok := byMember[id]
		if !ok {
			m = &MemberStatistics{MemberID: id}
			byMember[id] = m
			order = append(order, id)
		}
		return m
	}
	for _, m := range in.Members {
		member(m.ID).Name = m.DisplayName
		if m.Active {
			st.ActiveMembers++
		}
	}
	for _, iv := range in.Initial {
		m := member(iv.MemberID)
		m.Alle9 += iv.InitialAlle9
		m.Kranz += iv.InitialKranz
	}

	months := make(map[int]*MonthStatistics)
	for _, g := range in.Gamedays {
		if g.Status == core.StatusArchived {
			st.SettledGamedays++
		}
		var month *MonthStatistics
		if g.Date.Year() == in.Year {
			n := int(g.Date.Month())
			month = months[n]
			if month == nil {
				month = &MonthStatistics{Month: n, Name: monthNames[n-1]}
				months[n] = month
			}
			month.Gamedays++
		}

		for _, r := range in.Attendance[g.ID] {
			st.Contributions = st.Contributions.Add(r.Contribution)
			st.Penalties = st.Penalties.Add(r.Penalties)

			m := member(r.MemberID)
			m.Contributions = m.Contributions.Add(r.Contribution)
			m.Penalties = m.Penalties.Add(r.Penalties)
			m.Alle9 += r.Alle9
			m.Kranz += r.Kranz
			m.Pudel += r.Pudel
			if !r.Present {
				continue
			}
			m.Games++
			m.recordedAlle9 += r.Alle9
			m.recordedKranz += r.Kranz
			if month != nil {
				month.Contributions = month.Contributions.Add(r.Contribution)
				month.Penalties = month.Penalties.Add(r.Penalties)
			}
		}
	}

	all := make([]MemberStatistics, 0, len(order))
	for _, id := range order {
		m := byMember[id]
		if m.Games > 0 {
			m.AvgAlle9 = perGame(m.recordedAlle9, m.Games)
			m.AvgKranz = perGame(m.recordedKranz, m.Games)
			m.AvgPudel = perGame(m.Pudel, m.Games)
		}
		all = append(all, *m)
	}

	st.TopAttendance = leaders(all, func(m MemberStatistics) int64 { return int64(m.Games) })
	st.TopContributors = leaders(all, func(m MemberStatistics) int64 { return m.Contributions.Cents })
	st.TopAlle9 = leaders(all, func(m MemberStatistics) int64 { return int64(m.Alle9) })
	st.TopKranz = leaders(all, func(m MemberStatistics) int64 { return int64(m.Kranz) })
	st.MostPudel = leaders(all, func(m MemberStatistics) int64 { return int64(m.Pudel) })

	st.PerMember = make([]MemberStatistics, 0, len(all))
	for _, m := range all {
		if m.Games > 0 {
			st.PerMember = append(st.PerMember, m)
		}
	}
	sortBy(st.PerMember, func(m MemberStatistics) int64 { return int64(m.Alle9 + m.Kranz) })

	st.Recent = append([]core.Gameday{}, in.Gamedays...)
	slices.SortFunc(st.Recent, func(a, b core.Gameday) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if len(st.Recent) > RecentGamedays {
		st.Recent = st.Recent[:RecentGamedays]
	}

	st.Monthly = make([]MonthStatistics, 0, len(months))
	for n := 1; n <= 12; n++ {
		if m, ok := months[n]; ok {
			st.Monthly = append(st.Monthly, *m)
		}
	}
	return st
}

// leaders returns the members with a positive key, highest first, capped
// at LeaderboardSize.
func leaders(all []MemberStatistics, key func(MemberStatistics) int64) []MemberStatistics {
	out := make([]MemberStatistics, 0, LeaderboardSize)
	for _, m := range all {
		if key(m) > 0 {
			out = append(out, m)
		}
	}
	sortBy(out, key)
	if len(out) > LeaderboardSize {
		out = out[:LeaderboardSize]
	}
	return out
}

// sortBy orders by key descending, then by name and id.
func sortBy(ms []MemberStatistics, key func(MemberStatistics) int64) {
	slices.SortStableFunc(ms, func(a, b MemberStatistics) int {
		if c := cmp.Compare(key(b), key(a)); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.MemberID, b.MemberID)
	})
}

func perGame(total, games int) float64 {
	return core.Round2(float64(total) / float64(games))
}
