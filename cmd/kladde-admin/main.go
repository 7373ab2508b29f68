// Command kladde-admin inspects and maintains the kladde database from a
// terminal: standings, cash and the member directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"kegelkladde/internal/cli"
	"kegelkladde/internal/core"
	"kegelkladde/internal/services"
	"kegelkladde/internal/storage"
)

const usage = `Usage: kladde-admin [-db path] <command> [args]

Commands:
  standings                 Monte and Medaillen standings with round history
  cash                      club cash balance
  statistics [year]         club statistics, monthly summary for year
  members                   list the member directory
  member-add <name>         add a member
  member-active <id> <bool> activate or deactivate a member
  start-balance <amount>    set the opening cash balance, e.g. 250,00
`

type app struct {
	repo     *storage.SQLiteRepository
	gamedays *services.GamedayService
	cash     *services.CashService
	rankings *services.RankingService
}

func main() {
	cli.LoadEnvFile()
	slog.SetDefault(slog.New(pterm.NewSlogHandler(&pterm.DefaultLogger)))

	dbPath := flag.String("db", "", "SQLite database path (default SQLITE_DB_PATH or ./data/kegelkladde.db)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	path := *dbPath
	if path == "" {
		path = os.Getenv("SQLITE_DB_PATH")
	}
	if path == "" {
		path = "./data/kegelkladde.db"
	}

	repo, err := storage.NewSQLiteRepository(path)
	if err != nil {
		pterm.Error.Printfln("Cannot open database %s: %v", path, err)
		os.Exit(1)
	}
	defer repo.Close()

	a := &app{
		repo:     repo,
		gamedays: services.NewGamedayService(repo, nil, core.Money{}),
		cash:     services.NewCashService(repo),
		rankings: services.NewRankingService(repo, nil),
	}
	if err := a.run(context.Background(), flag.Args()); err != nil {
		pterm.Error.Println(err.Error())
		repo.Close()
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "standings":
		return a.standings(ctx)
	case "cash":
		return a.showCash(ctx)
	case "statistics":
		return a.statistics(ctx, rest)
	case "members":
		return a.members(ctx)
	case "member-add":
		return a.memberAdd(ctx, rest)
	case "member-active":
		return a.memberActive(ctx, rest)
	case "start-balance":
		return a.startBalance(ctx, rest)
	}
	return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
}

func (a *app) standings(ctx context.Context) error {
	monte, medaillen, err := a.rankings.Both(ctx)
	if err != nil {
		return err
	}
	for _, t := range []services.Table{monte, medaillen} {
		pterm.DefaultSection.Printfln("%s (Ziel %d Punkte)", tableTitle(t.Type), t.Threshold)
		if err := render(standingsData(t)); err != nil {
			return err
		}
		if len(t.History) > 0 {
			pterm.Info.Println("Gewonnene Runden")
			if err := render(historyData(t)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *app) showCash(ctx context.Context) error {
	b, err := a.cash.CashBalance(ctx)
	if err != nil {
		return err
	}
	pterm.DefaultSection.Println("Kasse")
	return render(cashData(b))
}

func (a *app) statistics(ctx context.Context, args []string) error {
	year := time.Now().Year()
	if len(args) > 0 {
		y, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid year %q", args[0])
		}
		year = y
	}
	st, err := a.gamedays.Statistics(ctx, year)
	if err != nil {
		return err
	}
	pterm.DefaultSection.Printfln("Statistik (%d Spieltage, %d abgerechnet)", st.Gamedays, st.SettledGamedays)
	if err := render(memberStatisticsData(st.PerMember)); err != nil {
		return err
	}
	pterm.DefaultSection.Printfln("Monate %d", st.Year)
	return render(monthlyData(st.Monthly))
}

func (a *app) members(ctx context.Context) error {
	ms, err := a.repo.ListMembers(ctx)
	if err != nil {
		return err
	}
	return render(membersData(ms))
}

func (a *app) memberAdd(ctx context.Context, args []string) error {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		return fmt.Errorf("member-add needs a name")
	}
	m, err := a.repo.CreateMember(ctx, name)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Added %s with id %d", m.DisplayName, m.ID)
	return nil
}

func (a *app) memberActive(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("member-active needs <id> <true|false>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid member id %q", args[0])
	}
	active, err := strconv.ParseBool(args[1])
	if err != nil {
		return fmt.Errorf("invalid active flag %q", args[1])
	}
	if err := a.repo.SetMemberActive(ctx, id, active); err != nil {
		return err
	}
	pterm.Success.Printfln("Member %d active: %s", id, yesNo(active))
	return nil
}

func (a *app) startBalance(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("start-balance needs an amount")
	}
	m, err := core.ParseAmount(args[0])
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[0], err)
	}
	if err := a.cash.SetStartingBalance(ctx, m); err != nil {
		return err
	}
	pterm.Success.Printfln("Starting balance set to %s", m)
	return nil
}
