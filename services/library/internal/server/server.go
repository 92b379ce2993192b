// Package server exposes the game library and quiz-bridge operations to
// the academy dashboard.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"chessacademy/internal/ratelimit"
	"chessacademy/internal/util"
	"chessacademy/pkg/domain"
	"chessacademy/services/library/internal/app"
	"chessacademy/services/library/internal/session"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	Sessions       *session.Manager
	ViewLimiter    *ratelimit.FixedWindowLimiter
	TrustedProxies *util.TrustedProxies
}

// Server exposes HTTP endpoints for the library service.
type Server struct {
	sessions    *session.Manager
	viewLimiter *ratelimit.FixedWindowLimiter
	trusted     *util.TrustedProxies
	mux         *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		sessions:    cfg.Sessions,
		viewLimiter: cfg.ViewLimiter,
		trusted:     cfg.TrustedProxies,
		mux:         http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.Handle("/api/library/games", s.withSession(s.handleGames))
	s.mux.Handle("/api/library/games/", s.withSession(s.handleGameByID))
	s.mux.Handle("/api/quizzes/drafts", s.withSession(s.handleDraftQuizzes))
	s.mux.Handle("/api/bridge/question", s.withSession(s.handleBridgeQuestion))
	s.mux.Handle("/api/bridge/batch", s.withSession(s.handleBridgeBatch))
	s.mux.Handle("/api/bridge/pgn", s.withSession(s.handleBridgePGN))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sessionHandler func(http.ResponseWriter, *http.Request, *session.Session)

// withSession resolves the caller's browsing session from the bearer
// token. The token itself is opaque here; the academy backend is the
// authority and rejects bad tokens on the forwarded calls.
func (s *Server) withSession(next sessionHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		next(w, r, s.sessions.Get(token))
	})
}

// gameView decorates a record with the display formatting the dashboard
// renders directly.
type gameView struct {
	domain.GameRecord
	FormattedSize string `json:"formatted_size"`
	FormattedDate string `json:"formatted_date"`
}

func toGameView(g domain.GameRecord) gameView {
	return gameView{
		GameRecord:    g,
		FormattedSize: util.FormatFileSize(g.ContentSize),
		FormattedDate: util.FormatDate(g.CreatedAt),
	}
}

type gamesPageResponse struct {
	Games      []gameView `json:"games"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
	Total      int        `json:"total"`
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	filters := app.Filters{
		Search:   strings.TrimSpace(q.Get("search")),
		Category: domain.GameCategory(strings.TrimSpace(q.Get("category"))),
	}
	switch strings.TrimSpace(q.Get("visibility")) {
	case "public":
		filters.Visibility = app.VisibilityPublic
	case "mine":
		filters.Visibility = app.VisibilityMine
	default:
		filters.Visibility = app.VisibilityAll
	}

	sess.Browser.ApplyFilters(r.Context(), filters)
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		sess.Browser.SetPage(page)
	}

	snap := sess.Browser.Snapshot()
	if snap.State == app.StateError {
		writeError(w, http.StatusBadGateway, snap.Error)
		return
	}
	views := make([]gameView, 0, len(snap.PageItems))
	for _, g := range snap.PageItems {
		views = append(views, toGameView(g))
	}
	writeJSON(w, http.StatusOK, gamesPageResponse{
		Games:      views,
		Page:       snap.Page,
		TotalPages: snap.TotalPages,
		Total:      snap.Total,
	})
}

func (s *Server) handleGameByID(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/library/games/")
	if suffix, ok := strings.CutSuffix(rest, "/view"); ok {
		s.handleRecordView(w, r, sess, suffix)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, err := strconv.Atoi(rest)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	rec, err := sess.Browser.OpenDetail(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]gameView{"game": toGameView(rec)})
}

// handleRecordView is the manual record override. The timer path covers
// normal viewing; this endpoint exists for the dashboard's explicit
// "mark viewed" action and is rate limited per caller.
func (s *Server) handleRecordView(w http.ResponseWriter, r *http.Request, sess *session.Session, rawID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, err := strconv.Atoi(rawID)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	if s.viewLimiter != nil && !s.viewLimiter.Allow(util.ClientIP(r, s.trusted)) {
		writeError(w, http.StatusTooManyRequests, "too many view reports")
		return
	}
	if rec := sess.Browser.Recorder(); rec != nil {
		rec.RecordGame(id)
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleDraftQuizzes(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	drafts, errMsg := sess.Bridge.FetchDraftQuizzes(r.Context())
	if drafts == nil {
		drafts = []domain.QuizDraft{}
	}
	resp := map[string]any{"quizzes": drafts}
	if errMsg != "" {
		resp["error"] = errMsg
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBridgeQuestion(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		Game     domain.GameRecord `json:"game"`
		Question string            `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	payload, err := sess.Bridge.CreatePGNQuestion(r.Context(), body.Game, body.Question)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.ChessQuestionPayload{"question": payload})
}

func (s *Server) handleBridgeBatch(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		Games        []domain.GameRecord `json:"games"`
		BaseQuestion string              `json:"base_question"`
		QuizTitle    string              `json:"quiz_title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.Games) == 0 {
		writeError(w, http.StatusBadRequest, "no games selected")
		return
	}
	payloads, err := sess.Bridge.AddMultiplePGNsToQuiz(r.Context(), body.Games, body.BaseQuestion)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if body.QuizTitle != "" {
		if err := sess.Bridge.StoreBatchQuizTitle(r.Context(), body.QuizTitle); err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"questions": payloads,
		"total":     len(payloads),
	})
}

func (s *Server) handleBridgePGN(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"data": sess.Bridge.StoredPGNData(r.Context())})
	case http.MethodPost:
		var body struct {
			Game domain.GameRecord `json:"game"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := sess.Bridge.StorePGNForQuiz(r.Context(), body.Game); err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "stored"})
	case http.MethodDelete:
		if err := sess.Bridge.ClearStoredPGNData(r.Context()); err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, prefix))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}
