package main

import (
	"strconv"

	"github.com/pterm/pterm"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"kegelkladde/internal/core"
	"kegelkladde/internal/services"
	"kegelkladde/internal/settlement"
)

var german = message.NewPrinter(language.German)

// euro formats an amount the way the club writes it, e.g. "1.234,50 €".
func euro(m core.Money) string {
	return german.Sprintf("%.2f €", float64(m.Cents)/100)
}

func yesNo(b bool) string {
	if b {
		return "ja"
	}
	return "nein"
}

func tableTitle(t core.RankingType) string {
	if t == core.RankingMedaillen {
		return "Medaillen"
	}
	return "Monte"
}

// standingsData renders one ranking: rank, name, points, wins and, for
// Medaillen, the gold and silver counts.
func standingsData(t services.Table) pterm.TableData {
	medals := t.Type == core.RankingMedaillen
	header := []string{"#", "Name", "Punkte", "Siege"}
	if medals {
		header = append(header, "Gold", "Silber")
	}
	data := pterm.TableData{header}
	for i, s := range t.Standings {
		row := []string{strconv.Itoa(i + 1), s.Name, strconv.Itoa(s.Total), strconv.Itoa(s.Wins)}
		if medals {
			row = append(row, strconv.Itoa(s.Gold), strconv.Itoa(s.Silver))
		}
		data = append(data, row)
	}
	return data
}

func historyData(t services.Table) pterm.TableData {
	data := pterm.TableData{{"Runde", "Sieger", "Punkte", "Spieltag"}}
	for _, rw := range t.History {
		data = append(data, []string{
			strconv.Itoa(rw.RoundNumber),
			rw.WinnerName,
			strconv.Itoa(rw.WinningScore),
			rw.GamedayDate.String(),
		})
	}
	return data
}

func cashData(b services.CashBalance) pterm.TableData {
	t := b.Totals
	return pterm.TableData{
		{"Posten", "Betrag"},
		{"Anfangsbestand", euro(t.Start)},
		{"Eingezahlt", euro(t.Paid)},
		{"Einnahmen", euro(t.Income)},
		{"Ausgaben Spieltage", euro(t.Cost)},
		{"Vereinsausgaben", euro(t.Expenses)},
		{"Kassenstand", euro(b.Balance)},
	}
}

// memberStatisticsData lists 9er and Kränze per member with per-game averages.
func memberStatisticsData(ms []settlement.MemberStatistics) pterm.TableData {
	data := pterm.TableData{{"Name", "Spiele", "9er", "Ø 9er", "Kränze", "Ø Kränze", "Pudel"}}
	for _, m := range ms {
		data = append(data, []string{
			m.Name,
			strconv.Itoa(m.Games),
			strconv.Itoa(m.Alle9),
			german.Sprintf("%.2f", m.AvgAlle9),
			strconv.Itoa(m.Kranz),
			german.Sprintf("%.2f", m.AvgKranz),
			strconv.Itoa(m.Pudel),
		})
	}
	return data
}

func monthlyData(months []settlement.MonthStatistics) pterm.TableData {
	data := pterm.TableData{{"Monat", "Spieltage", "Beiträge", "Strafen"}}
	for _, m := range months {
		data = append(data, []string{m.Name, strconv.Itoa(m.Gamedays), euro(m.Contributions), euro(m.Penalties)})
	}
	return data
}

func membersData(ms []core.Member) pterm.TableData {
	data := pterm.TableData{{"ID", "Name", "Aktiv"}}
	for _, m := range ms {
		data = append(data, []string{strconv.FormatInt(m.ID, 10), m.DisplayName, yesNo(m.Active)})
	}
	return data
}

func render(data pterm.TableData) error {
	return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render()
}
