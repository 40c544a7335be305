package statusserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/internal/storage"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Sessions exposes read-only playback state.
type Sessions interface {
	Snapshot(guildID string) (player.Snapshot, bool)
	Snapshots() []player.Snapshot
}

// History exposes recently started tracks.
type History interface {
	TracksHistory(guildID string) ([]storage.TrackHistoryRecord, error)
}

type Server struct {
	sessions Sessions
	history  History
	router   *mux.Router
	log      *zap.Logger
}

func New(sessions Sessions, history History, log *zap.Logger) *Server {
	s := &Server{
		sessions: sessions,
		history:  history,
		router:   mux.NewRouter(),
		log:      log,
	}
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/guilds", s.handleGuilds).Methods(http.MethodGet)
	s.router.HandleFunc("/guilds/{guildID}", s.handleGuild).Methods(http.MethodGet)
	s.router.HandleFunc("/guilds/{guildID}/history", s.handleHistory).Methods(http.MethodGet)
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.log.Info("shutting down status server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	s.log.Info("status server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": len(s.sessions.Snapshots()),
	})
}

func (s *Server) handleGuilds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Snapshots())
}

func (s *Server) handleGuild(w http.ResponseWriter, r *http.Request) {
	guildID := mux.Vars(r)["guildID"]
	snap, ok := s.sessions.Snapshot(guildID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no session for guild"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	guildID := mux.Vars(r)["guildID"]
	if s.history == nil {
		writeJSON(w, http.StatusOK, []storage.TrackHistoryRecord{})
		return
	}
	list, err := s.history.TracksHistory(guildID)
	if err != nil {
		s.log.Warn("failed to read history", zap.String("guild_id", guildID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
