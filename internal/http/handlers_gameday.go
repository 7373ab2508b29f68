package http

import (
	"net/http"

	"kegelkladde/internal/core"
	applog "kegelkladde/internal/log"
)

func (s *Server) handleListGamedays(w http.ResponseWriter, r *http.Request) {
	gs, err := s.gamedays.ListGamedays(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, gs)
}

func (s *Server) handleCreateGameday(w http.ResponseWriter, r *http.Request) {
	var req createGamedayRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	g, err := s.gamedays.CreateGameday(r.Context(), date, req.Note)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Gameday created",
		applog.NewFields().WithGameday(g.ID, g.Status.Label()).WithOperation(applog.OpCreate).ToSlice()...)
	s.created(w, g)
}

func (s *Server) handleNextDate(w http.ResponseWriter, r *http.Request) {
	d, err := s.gamedays.NextSuggestedDate(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, nextDateResponse{Date: d})
}

func (s *Server) handleGetGameday(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sheet, err := s.gamedays.GetGameday(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, sheet)
}

func (s *Server) handleUpdateGameday(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req updateGamedayRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	g, err := s.gamedays.UpdateGameday(r.Context(), id, req.Note, req.LaneCost)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, g)
}

func (s *Server) handleDeleteGameday(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.gamedays.DeleteGameday(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Gameday deleted",
		applog.FieldGamedayID, id, applog.FieldOperation, applog.OpDelete)
	noContent(w)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	s.changeStatus(w, r, applog.OpAdvance)
}

func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	s.changeStatus(w, r, applog.OpRevert)
}

func (s *Server) changeStatus(w http.ResponseWriter, r *http.Request, op string) {
	id, err := PathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	step := s.gamedays.AdvanceStatus
	if op == applog.OpRevert {
		step = s.gamedays.RevertStatus
	}
	g, err := step(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogStatusChange(r.Context(), id, previousLabel(g.Status, op), g.Status.Label(), op)
	s.ok(w, g)
}

// previousLabel names the status a successful transition came from.
func previousLabel(now core.Status, op string) string {
	if op == applog.OpRevert {
		return (now + 1).Label()
	}
	return (now - 1).Label()
}

func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	lines, err := s.gamedays.ComputeSettlement(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, lines)
}

func (s *Server) handleUpdateAttendance(w http.ResponseWriter, r *http.Request) {
	gamedayID, memberID, err := gamedayAndMember(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var patch attendanceRequest
	if err := s.decodeJSON(r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}
	if patch.IsEmpty() {
		s.fail(w, r, &requestError{msg: "patch changes nothing"})
		return
	}
	line, err := s.gamedays.UpdateAttendance(r.Context(), gamedayID, memberID, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, line)
}

func (s *Server) handleToggleStruck(w http.ResponseWriter, r *http.Request) {
	gamedayID, memberID, err := gamedayAndMember(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req struckRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := s.gamedays.ToggleStruck(r.Context(), gamedayID, memberID, core.SideGame(req.Game))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, rec)
}

func (s *Server) handleMonteExtra(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req monteExtraRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.gamedays.SetMonteExtra(r.Context(), id, req.MemberID); err != nil {
		s.fail(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) handleAddCustomGame(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req customGameRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	cg, err := s.gamedays.AddCustomGame(r.Context(), id, req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.created(w, cg)
}

func (s *Server) handleRenameCustomGame(w http.ResponseWriter, r *http.Request) {
	gamedayID, gameID, err := gamedayAnd(r, "gameID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req customGameRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.gamedays.RenameCustomGame(r.Context(), gamedayID, gameID, req.Name); err != nil {
		s.fail(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) handleDeleteCustomGame(w http.ResponseWriter, r *http.Request) {
	gamedayID, gameID, err := gamedayAnd(r, "gameID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.gamedays.DeleteCustomGame(r.Context(), gamedayID, gameID); err != nil {
		s.fail(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) handleSetCustomValue(w http.ResponseWriter, r *http.Request) {
	gamedayID, gameID, err := gamedayAnd(r, "gameID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	memberID, err := PathID(r, "memberID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req customValueRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	line, err := s.gamedays.SetCustomGameValue(r.Context(), gamedayID, gameID, memberID, req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, line)
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req ledgerEntryRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	e, err := s.gamedays.AddLedgerEntry(r.Context(), core.LedgerEntry{
		GamedayID: id,
		Kind:      core.LedgerKind(req.Kind),
		Name:      req.Name,
		Amount:    req.Amount,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.created(w, e)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	gamedayID, entryID, err := gamedayAnd(r, "entryID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.gamedays.DeleteLedgerEntry(r.Context(), gamedayID, entryID); err != nil {
		s.fail(w, r, err)
		return
	}
	noContent(w)
}

func gamedayAndMember(r *http.Request) (int64, int64, error) {
	return gamedayAnd(r, "memberID")
}

func gamedayAnd(r *http.Request, name string) (int64, int64, error) {
	gamedayID, err := PathID(r, "id")
	if err != nil {
		return 0, 0, err
	}
	other, err := PathID(r, name)
	if err != nil {
		return 0, 0, err
	}
	return gamedayID, other, nil
}
