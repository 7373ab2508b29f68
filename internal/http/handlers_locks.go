package http

import (
	"net/http"

	"kegelkladde/internal/editlock"
	applog "kegelkladde/internal/log"
)

// Edit locks are advisory: they tell other tabs that a row is being typed
// into. Acquiring renews a lock the holder already owns.

func (s *Server) handleListLocks(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, s.locks.ListActive(editlock.GamedayPrefix(id)))
}

func (s *Server) handleAcquireLock(w http.ResponseWriter, r *http.Request) {
	gamedayID, memberID, err := gamedayAndMember(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	holder, err := holderID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	lock, ok := s.locks.TryLock(editlock.Key(gamedayID, memberID), holder)
	if !ok {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Edit lock busy",
			applog.FieldGamedayID, gamedayID,
			applog.FieldMemberID, memberID,
			applog.FieldHolder, lock.Holder)
		NewJSONResponse().Status(http.StatusLocked).Data(lockResponse{Lock: lock}).Write(w)
		return
	}
	s.ok(w, lockResponse{Acquired: true, Lock: lock})
}

// handleRenewLock is the heartbeat of an open editor. A lock that expired or
// moved to another holder answers 409 so the client can re-acquire.
func (s *Server) handleRenewLock(w http.ResponseWriter, r *http.Request) {
	gamedayID, memberID, err := gamedayAndMember(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	holder, err := holderID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !s.locks.Renew(editlock.Key(gamedayID, memberID), holder) {
		ErrorResponse(http.StatusConflict, ErrorBody{
			Error: "lock is not held by this holder",
			Code:  "lock_not_held",
		}).Write(w)
		return
	}
	noContent(w)
}

func (s *Server) handleReleaseLock(w http.ResponseWriter, r *http.Request) {
	gamedayID, memberID, err := gamedayAndMember(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	holder, err := holderID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.locks.Release(editlock.Key(gamedayID, memberID), holder)
	noContent(w)
}
