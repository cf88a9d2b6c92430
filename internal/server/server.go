package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dukerupert/ekklesia/internal/auth"
	"github.com/dukerupert/ekklesia/internal/backup"
	"github.com/dukerupert/ekklesia/internal/bible"
	"github.com/dukerupert/ekklesia/internal/config"
	"github.com/dukerupert/ekklesia/internal/database"
	"github.com/dukerupert/ekklesia/internal/handler"
	"github.com/dukerupert/ekklesia/internal/hymnal"
	"github.com/dukerupert/ekklesia/internal/live"
	"github.com/dukerupert/ekklesia/internal/metrics"
	"github.com/dukerupert/ekklesia/internal/middleware"
	"github.com/dukerupert/ekklesia/internal/model"
	"github.com/dukerupert/ekklesia/internal/objectstore"
	"github.com/dukerupert/ekklesia/internal/store"
	ws "github.com/dukerupert/ekklesia/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	metrics       *metrics.Metrics
	live          *live.Service
	displayTokens *auth.DisplayTokens
	staticDir     string

	memberH       *handler.MemberHandler
	ledgerH       *handler.LedgerHandler
	eventH        *handler.EventHandler
	congregationH *handler.CongregationHandler
	settingsH     *handler.SettingsHandler
	userH         *handler.UserHandler
	authH         *handler.AuthHandler
	catalogH      *handler.CatalogHandler
	liveH         *handler.LiveHandler
	backupH       *handler.BackupHandler
	publicH       *handler.PublicHandler

	userStore      *store.UserStore
	sessionStore   *store.SessionStore
	resetCodeStore *store.ResetCodeStore
	rateLimiter    *middleware.RateLimiter
	backupManager  *backup.Manager
	logger         *slog.Logger
}

func New(cfg *config.Config, db *sql.DB, hymns *hymnal.Hymnal, b *bible.Bible, mailer handler.Mailer, objects *objectstore.Store, logger *slog.Logger) (*Server, error) {
	hub := ws.NewHub(logger.With("component", "websocket"))
	m := metrics.New(hub.ClientCount)

	memberStore := store.NewMemberStore(db)
	ledgerStore := store.NewLedgerStore(db)
	eventStore := store.NewEventStore(db)
	congregationStore := store.NewCongregationStore(db)
	settingsStore := store.NewSettingsStore(db)
	slideStore := store.NewSlideStore(db)

	// Auth stores
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db, cfg.SessionTTL)
	resetCodeStore := store.NewResetCodeStore(db)

	liveSvc, err := live.NewService(slideStore, hymns, b, hub, logger.With("component", "live"))
	if err != nil {
		return nil, err
	}
	liveSvc.SetRecorder(m)

	backupStore := store.NewBackupStore(db)
	backupMgr := backup.NewManager(backup.Config{
		Passphrase:    cfg.Backup.Passphrase,
		ScheduleHour:  cfg.Backup.ScheduleHour,
		RetentionDays: cfg.Backup.RetentionDays,
	}, db, backupStore, objects, logger.With("component", "backup"), func(s backup.Status) {
		hub.Broadcast(ws.NewMessage("backup", "status", 0, map[string]any{
			"state":       s.State,
			"in_progress": s.InProgress,
			"error":       s.Error,
		}))
	})

	tokens := auth.NewDisplayTokens(cfg.DisplaySecret)

	return &Server{
		db:            db,
		hub:           hub,
		metrics:       m,
		live:          liveSvc,
		displayTokens: tokens,
		staticDir:     cfg.StaticDir,

		memberH:       handler.NewMemberHandler(memberStore, settingsStore, objects, hub, logger.With("component", "member")),
		ledgerH:       handler.NewLedgerHandler(ledgerStore, memberStore, settingsStore, hub, logger.With("component", "ledger")),
		eventH:        handler.NewEventHandler(eventStore, hub, logger.With("component", "event")),
		congregationH: handler.NewCongregationHandler(congregationStore, hub, logger.With("component", "congregation")),
		settingsH:     handler.NewSettingsHandler(settingsStore, hub, logger.With("component", "settings")),
		userH:         handler.NewUserHandler(userStore, mailer, hub, logger.With("component", "user")),
		authH:         handler.NewAuthHandler(userStore, sessionStore, resetCodeStore, mailer, cfg.SessionTTL, logger.With("component", "auth")),
		catalogH:      handler.NewCatalogHandler(hymns, b, logger.With("component", "catalog")),
		liveH:         handler.NewLiveHandler(liveSvc, tokens, cfg.DisplayTokenTTL, logger.With("component", "live")),
		backupH:       handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup")),
		publicH:       handler.NewPublicHandler(eventStore, settingsStore, congregationStore, logger.With("component", "public")),

		userStore:      userStore,
		sessionStore:   sessionStore,
		resetCodeStore: resetCodeStore,
		rateLimiter:    middleware.NewRateLimiter(),
		backupManager:  backupMgr,
		logger:         logger,
	}, nil
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// ResetCodeStore returns the reset code store for cleanup tasks.
func (s *Server) ResetCodeStore() *store.ResetCodeStore {
	return s.resetCodeStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes (no auth required)
	mux.Handle("POST /api/auth/login", s.rateLimited(loginPolicy, s.authH.Login))
	mux.Handle("POST /api/auth/reset", s.rateLimited(resetRequestPolicy, s.authH.RequestReset))
	mux.Handle("POST /api/auth/reset/confirm", s.rateLimited(resetConfirmPolicy, s.authH.ConfirmReset))
	mux.HandleFunc("GET /api/public/events", s.publicH.UpcomingEvents)
	mux.HandleFunc("GET /api/public/profile", s.publicH.Profile)
	mux.HandleFunc("GET /api/public/congregations", s.publicH.Congregations)
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.staticDir))))
	mux.HandleFunc("GET /display", s.page("display.html"))
	mux.HandleFunc("GET /{$}", s.page("index.html"))

	s.registerProtectedRoutes(mux)

	return middleware.Metrics(s.metrics)(middleware.RequestLogger(s.logger.With("component", "http"))(mux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{"status": "unavailable"})
		return
	}
	version, err := database.SchemaVersion(s.db)
	if err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"status": "ok", "schema_version": version})
}

func (s *Server) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(s.staticDir, name))
	}
}

var (
	loginPolicy        = middleware.Policy{Name: "login", Limit: 10, Window: time.Minute}
	resetRequestPolicy = middleware.Policy{Name: "reset", Limit: 5, Window: 15 * time.Minute}
	resetConfirmPolicy = middleware.Policy{Name: "reset-confirm", Limit: 10, Window: 15 * time.Minute}
)

// rateLimited limits h per client IP.
func (s *Server) rateLimited(p middleware.Policy, h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, p, nil)(h)
}

// authed requires a session.
func (s *Server) authed(h http.HandlerFunc) http.Handler {
	return middleware.RequireAuth(s.sessionStore, s.userStore)(h)
}

// role requires a session whose user holds one of roles.
func (s *Server) role(h http.HandlerFunc, roles ...string) http.Handler {
	return s.authed(middleware.RequireRole(roles...)(h).ServeHTTP)
}

// displayAuth accepts either a ?token= display token or a session.
func (s *Server) displayAuth(h http.HandlerFunc) http.Handler {
	withSession := s.authed(h)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := r.URL.Query().Get("token")
		if tok == "" {
			withSession.ServeHTTP(w, r)
			return
		}
		if err := s.displayTokens.Verify(tok); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid display token"})
			return
		}
		h(w, r)
	})
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	const (
		admin     = model.RoleAdmin
		secretary = model.RoleSecretary
		treasurer = model.RoleTreasurer
	)

	// Auth routes that require authentication
	mux.Handle("POST /api/auth/logout", s.authed(s.authH.Logout))
	mux.Handle("GET /api/auth/me", s.authed(s.authH.Me))
	mux.Handle("PUT /api/auth/password", s.authed(s.authH.ChangePassword))

	// Members
	mux.Handle("GET /api/members", s.authed(s.memberH.List))
	mux.Handle("GET /api/members/stats", s.authed(s.memberH.Stats))
	mux.Handle("GET /api/members/congregations", s.authed(s.memberH.Congregations))
	mux.Handle("GET /api/members/{id}", s.authed(s.memberH.Get))
	mux.Handle("GET /api/members/{id}/photo", s.authed(s.memberH.Photo))
	mux.Handle("GET /api/members/{id}/sheet.pdf", s.authed(s.memberH.PDF))
	mux.Handle("POST /api/members", s.role(s.memberH.Create, admin, secretary))
	mux.Handle("PUT /api/members/{id}", s.role(s.memberH.Update, admin, secretary))
	mux.Handle("DELETE /api/members/{id}", s.role(s.memberH.Delete, admin, secretary))
	mux.Handle("PUT /api/members/{id}/photo", s.role(s.memberH.UploadPhoto, admin, secretary))

	// Ledger
	mux.Handle("GET /api/ledger", s.role(s.ledgerH.List, admin, treasurer))
	mux.Handle("GET /api/ledger/summary", s.role(s.ledgerH.Summary, admin, treasurer))
	mux.Handle("GET /api/ledger/categories", s.role(s.ledgerH.Categories, admin, treasurer))
	mux.Handle("GET /api/ledger/report.pdf", s.role(s.ledgerH.PDF, admin, treasurer))
	mux.Handle("GET /api/ledger/export.csv", s.role(s.ledgerH.CSV, admin, treasurer))
	mux.Handle("GET /api/ledger/{id}", s.role(s.ledgerH.Get, admin, treasurer))
	mux.Handle("POST /api/ledger", s.role(s.ledgerH.Create, admin, treasurer))
	mux.Handle("PUT /api/ledger/{id}", s.role(s.ledgerH.Update, admin, treasurer))
	mux.Handle("DELETE /api/ledger/{id}", s.role(s.ledgerH.Delete, admin, treasurer))

	// Events
	mux.Handle("GET /api/events", s.authed(s.eventH.List))
	mux.Handle("GET /api/events/{id}", s.authed(s.eventH.Get))
	mux.Handle("POST /api/events", s.role(s.eventH.Create, admin, secretary))
	mux.Handle("PUT /api/events/{id}", s.role(s.eventH.Update, admin, secretary))
	mux.Handle("DELETE /api/events/{id}", s.role(s.eventH.Delete, admin, secretary))

	// Congregations
	mux.Handle("GET /api/congregations", s.authed(s.congregationH.List))
	mux.Handle("POST /api/congregations", s.role(s.congregationH.Create, admin, secretary))
	mux.Handle("PUT /api/congregations/sort", s.role(s.congregationH.UpdateSortOrder, admin, secretary))
	mux.Handle("PUT /api/congregations/{id}", s.role(s.congregationH.Update, admin, secretary))
	mux.Handle("DELETE /api/congregations/{id}", s.role(s.congregationH.Delete, admin, secretary))

	// Settings
	mux.Handle("GET /api/settings/profile", s.authed(s.settingsH.GetProfile))
	mux.Handle("PUT /api/settings/profile", s.role(s.settingsH.UpdateProfile, admin, secretary))

	// Users
	mux.Handle("GET /api/users", s.role(s.userH.List, admin))
	mux.Handle("POST /api/users", s.role(s.userH.Create, admin))
	mux.Handle("PUT /api/users/{id}", s.role(s.userH.Update, admin))
	mux.Handle("DELETE /api/users/{id}", s.role(s.userH.Delete, admin))

	// Hymnal and Bible
	mux.Handle("GET /api/hymns", s.authed(s.catalogH.ListHymns))
	mux.Handle("GET /api/hymns/{number}", s.authed(s.catalogH.GetHymn))
	mux.Handle("GET /api/bible", s.authed(s.catalogH.BibleIndex))
	mux.Handle("GET /api/bible/{book}", s.authed(s.catalogH.Book))
	mux.Handle("GET /api/bible/{book}/{chapter}", s.authed(s.catalogH.Chapter))
	mux.Handle("GET /api/bible/{book}/{chapter}/{verse}", s.authed(s.catalogH.Verse))

	// Live presentation controller
	mux.Handle("GET /api/live", s.authed(s.liveH.Current))
	mux.Handle("POST /api/live/hymn", s.authed(s.liveH.ShowHymn))
	mux.Handle("POST /api/live/verse", s.authed(s.liveH.ShowVerse))
	mux.Handle("POST /api/live/text", s.authed(s.liveH.ShowText))
	mux.Handle("POST /api/live/next", s.authed(s.liveH.Next))
	mux.Handle("POST /api/live/prev", s.authed(s.liveH.Prev))
	mux.Handle("POST /api/live/blank", s.authed(s.liveH.Blank))
	mux.Handle("POST /api/live/display-token", s.authed(s.liveH.DisplayToken))

	// Backups
	mux.Handle("GET /api/backups", s.role(s.backupH.List, admin))
	mux.Handle("GET /api/backups/status", s.role(s.backupH.Status, admin))
	mux.Handle("POST /api/backups", s.role(s.backupH.Run, admin))
	mux.Handle("GET /api/backups/{id}/download", s.role(s.backupH.Download, admin))

	// WebSocket
	mux.Handle("GET /ws", s.authed(ws.HandleWebSocket(s.hub, nil, nil)))
	mux.Handle("GET /ws/display", s.displayAuth(ws.HandleWebSocket(s.hub, s.live.Greeting, ws.EntityFilter("slide"))))
}
