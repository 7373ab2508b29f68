package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"kegelkladde/internal/editlock"
	applog "kegelkladde/internal/log"
	"kegelkladde/internal/middleware/ratelimit"
	"kegelkladde/internal/middleware/security"
	"kegelkladde/internal/middleware/trace"
	"kegelkladde/internal/services"
)

// Pinger is used by the readiness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the API delegates to.
type Deps struct {
	DB        Pinger
	Gamedays  *services.GamedayService
	Cash      *services.CashService
	Rankings  *services.RankingService
	Locks     *editlock.Locker
	Logger    *applog.Logger
	RateLimit ratelimit.Config
}

// Server wraps http.Server with the kladde routes and middleware.
type Server struct {
	http.Server

	gamedays *services.GamedayService
	cash     *services.CashService
	rankings *services.RankingService
	locks    *editlock.Locker
	db       Pinger
	logger   *applog.Logger

	validator    *validator.Validate
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	locks := deps.Locks
	if locks == nil {
		locks = editlock.New(editlock.DefaultTTL, nil)
	}

	s := &Server{
		gamedays:  deps.Gamedays,
		cash:      deps.Cash,
		rankings:  deps.Rankings,
		locks:     locks,
		db:        deps.DB,
		logger:    logger,
		validator: newValidator(),
		limiter:   ratelimit.NewLimiter(deps.RateLimit),
		detector:  security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/gamedays", s.handleListGamedays)
	mux.HandleFunc("POST /api/gamedays", s.handleCreateGameday)
	mux.HandleFunc("GET /api/gamedays/next-date", s.handleNextDate)
	mux.HandleFunc("GET /api/gamedays/{id}", s.handleGetGameday)
	mux.HandleFunc("PATCH /api/gamedays/{id}", s.handleUpdateGameday)
	mux.HandleFunc("DELETE /api/gamedays/{id}", s.handleDeleteGameday)
	mux.HandleFunc("POST /api/gamedays/{id}/advance", s.handleAdvance)
	mux.HandleFunc("POST /api/gamedays/{id}/revert", s.handleRevert)
	mux.HandleFunc("GET /api/gamedays/{id}/settlement", s.handleSettlement)
	mux.HandleFunc("GET /api/gamedays/{id}/cash", s.handleGamedayCash)

	mux.HandleFunc("PATCH /api/gamedays/{id}/attendance/{memberID}", s.handleUpdateAttendance)
	mux.HandleFunc("POST /api/gamedays/{id}/attendance/{memberID}/struck", s.handleToggleStruck)
	mux.HandleFunc("POST /api/gamedays/{id}/monte-extra", s.handleMonteExtra)

	mux.HandleFunc("POST /api/gamedays/{id}/custom-games", s.handleAddCustomGame)
	mux.HandleFunc("PATCH /api/gamedays/{id}/custom-games/{gameID}", s.handleRenameCustomGame)
	mux.HandleFunc("DELETE /api/gamedays/{id}/custom-games/{gameID}", s.handleDeleteCustomGame)
	mux.HandleFunc("PUT /api/gamedays/{id}/custom-games/{gameID}/values/{memberID}", s.handleSetCustomValue)

	mux.HandleFunc("POST /api/gamedays/{id}/entries", s.handleAddEntry)
	mux.HandleFunc("DELETE /api/gamedays/{id}/entries/{entryID}", s.handleDeleteEntry)

	mux.HandleFunc("GET /api/gamedays/{id}/locks", s.handleListLocks)
	mux.HandleFunc("POST /api/gamedays/{id}/locks/{memberID}", s.handleAcquireLock)
	mux.HandleFunc("PUT /api/gamedays/{id}/locks/{memberID}", s.handleRenewLock)
	mux.HandleFunc("DELETE /api/gamedays/{id}/locks/{memberID}", s.handleReleaseLock)

	mux.HandleFunc("GET /api/cash", s.handleCash)
	mux.HandleFunc("PUT /api/cash/start", s.handleSetStartingBalance)
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleAddExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /api/rankings/monte", s.handleMonte)
	mux.HandleFunc("GET /api/rankings/medaillen", s.handleMedaillen)
	mux.HandleFunc("GET /api/statistics", s.handleStatistics)
	mux.HandleFunc("PUT /api/members/{id}/initial-values", s.handleSetInitialValues)
}

// middleware wraps the mux, outermost first: security headers, tracing,
// request logger, scanner rejection, write rate limit.
func (s *Server) middleware(next http.Handler) http.Handler {
	limited := s.limiter.WritesMiddleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, ErrorBody{
			Error: "rate limit exceeded, please try again later",
			Code:  "rate_limited",
		}).Write(w)
	})(next)

	h := s.detector.Middleware(limited)
	h = applog.ContextMiddleware(s.logger, trace.RequestIDFromRequest)(h)
	h = s.tracer.Middleware(h)
	return security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// fail writes err as a JSON error. Unexpected errors are logged with the
// request-scoped logger; the client only sees a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var re *requestError
	if errors.As(err, &re) {
		re.response().Write(w)
		return
	}
	resp := FromError(err)
	if resp.statusCode >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err.Error(),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
	}
	resp.Write(w)
}

func (s *Server) ok(w http.ResponseWriter, v any) {
	NewJSONResponse().Data(v).Write(w)
}

func (s *Server) created(w http.ResponseWriter, v any) {
	NewJSONResponse().Status(http.StatusCreated).Data(v).Write(w)
}

func noContent(w http.ResponseWriter) {
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err.Error())
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
