// Package api exposes the read-only admin HTTP surface: health, pending
// pipeline state, and leaderboards in JSON, PNG, and XLSX forms.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	guilddb "github.com/pugscord/pugbot/app/modules/guild/infrastructure/repositories"
	ratingservice "github.com/pugscord/pugbot/app/modules/rating/application"
	reconciledb "github.com/pugscord/pugbot/app/modules/reconcile/infrastructure/repositories"
	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
	"github.com/pugscord/pugbot/config"
	"github.com/pugscord/pugbot/internal/observability/attr"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
)

// Server is the admin HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds the admin server around the rating service, the reconcile
// repository, and the guild config.
func NewServer(
	cfg config.AdminConfig,
	ratings ratingservice.Service,
	pending reconciledb.Repository,
	guilds guilddb.Repository,
	logger *slog.Logger,
) *Server {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	h := &handlers{ratings: ratings, pending: pending, guilds: guilds, logger: logger}

	r.Get("/healthz", h.healthz)

	r.Route("/api", func(r chi.Router) {
		if cfg.JWTSecret != "" {
			r.Use(bearerAuth([]byte(cfg.JWTSecret), logger))
		}
		r.Get("/pending", h.listPending)
		r.Put("/guilds/{guildID}/config", h.upsertGuildConfig)
		r.Get("/guilds/{guildID}/leaderboard", h.leaderboardJSON)
		r.Get("/guilds/{guildID}/leaderboard.png", h.leaderboardPNG)
		r.Get("/guilds/{guildID}/leaderboard.xlsx", h.leaderboardXLSX)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Address,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start serves until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("admin API listening", attr.String("address", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// bearerAuth rejects requests without a valid HS256 bearer token.
func bearerAuth(secret []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				logger.Warn("rejected admin API request", attr.Error(err))
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type handlers struct {
	ratings ratingservice.Service
	pending reconciledb.Repository
	guilds  guilddb.Repository
	logger  *slog.Logger
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *handlers) listPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	searching, err := h.pending.ListByState(ctx, reconciledb.StateSearching)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	queued, err := h.pending.ListByState(ctx, reconciledb.StateQueued)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	h.writeJSON(w, r, map[string][]reconciledb.PendingMatch{
		"searching": searching,
		"queued":    queued,
	})
}

// upsertGuildConfig writes a guild's reconciliation and announcement
// settings. The whole config is replaced; absent fields take their zero
// values.
func (h *handlers) upsertGuildConfig(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled          bool   `json:"enabled"`
		RatingMode       string `json:"rating_mode"`
		ResultsChannelID string `json:"results_channel_id"`
		Visible          bool   `json:"visible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	mode := sharedtypes.RatingMode(body.RatingMode)
	switch mode {
	case "":
		mode = sharedtypes.RatingModeGlobal
	case sharedtypes.RatingModeGlobal, sharedtypes.RatingModeGameMode,
		sharedtypes.RatingModeGuild, sharedtypes.RatingModeCategory:
	default:
		http.Error(w, fmt.Sprintf("unknown rating mode %q", body.RatingMode), http.StatusBadRequest)
		return
	}

	cfg := &guilddb.GuildConfig{
		GuildID:          sharedtypes.GuildID(chi.URLParam(r, "guildID")),
		Enabled:          body.Enabled,
		RatingMode:       mode,
		ResultsChannelID: body.ResultsChannelID,
		Visible:          body.Visible,
	}
	if err := h.guilds.UpsertConfig(r.Context(), cfg); err != nil {
		h.serverError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// leaderboardQuery maps URL parameters onto a scope query. The scope defaults
// to the guild scope; "category" narrows to guild+category, "global" and
// "gamemode" ignore the guild in the path.
func leaderboardQuery(r *http.Request) ratingservice.LeaderboardQuery {
	query := ratingservice.LeaderboardQuery{
		Scope:    ratingservice.ScopeGuild,
		GuildID:  sharedtypes.GuildID(chi.URLParam(r, "guildID")),
		Mode:     sharedtypes.GameMode(r.URL.Query().Get("mode")),
		Category: sharedtypes.Category(r.URL.Query().Get("category")),
	}
	if s := r.URL.Query().Get("scope"); s != "" {
		query.Scope = s
	} else if query.Category != "" {
		query.Scope = ratingservice.ScopeGuildCategory
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		query.Limit = n
	}
	return query
}

// guildVisible reports whether the guild in the path serves leaderboards.
// Guilds marked invisible answer 404 on every leaderboard form.
func (h *handlers) guildVisible(w http.ResponseWriter, r *http.Request) bool {
	guildID := sharedtypes.GuildID(chi.URLParam(r, "guildID"))
	cfg, err := h.guilds.GetConfig(r.Context(), guildID)
	if err != nil {
		h.serverError(w, r, err)
		return false
	}
	if !cfg.Visible {
		http.NotFound(w, r)
		return false
	}
	return true
}

func (h *handlers) leaderboardJSON(w http.ResponseWriter, r *http.Request) {
	if !h.guildVisible(w, r) {
		return
	}
	entries, err := h.ratings.Leaderboard(r.Context(), leaderboardQuery(r))
	if err != nil {
		h.queryError(w, r, err)
		return
	}
	h.writeJSON(w, r, entries)
}

func (h *handlers) leaderboardPNG(w http.ResponseWriter, r *http.Request) {
	if !h.guildVisible(w, r) {
		return
	}
	png, err := h.ratings.LeaderboardChartPNG(r.Context(), leaderboardQuery(r))
	if err != nil {
		h.queryError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (h *handlers) leaderboardXLSX(w http.ResponseWriter, r *http.Request) {
	if !h.guildVisible(w, r) {
		return
	}
	book, err := h.ratings.LeaderboardWorkbook(r.Context(), leaderboardQuery(r))
	if err != nil {
		h.queryError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="leaderboard.xlsx"`)
	_, _ = w.Write(book)
}

func (h *handlers) writeJSON(w http.ResponseWriter, r *http.Request, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode response", attr.Error(err))
	}
}

func (h *handlers) queryError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ratingservice.ErrUnknownScope) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.serverError(w, r, err)
}

func (h *handlers) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "admin API request failed",
		attr.String("path", r.URL.Path),
		attr.Error(err),
	)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
