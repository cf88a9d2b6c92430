package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dukerupert/ekklesia/internal/auth"
	"github.com/dukerupert/ekklesia/internal/backup"
	"github.com/dukerupert/ekklesia/internal/bible"
	"github.com/dukerupert/ekklesia/internal/config"
	"github.com/dukerupert/ekklesia/internal/database"
	"github.com/dukerupert/ekklesia/internal/email"
	"github.com/dukerupert/ekklesia/internal/hymnal"
	"github.com/dukerupert/ekklesia/internal/logging"
	"github.com/dukerupert/ekklesia/internal/model"
	"github.com/dukerupert/ekklesia/internal/objectstore"
	"github.com/dukerupert/ekklesia/internal/server"
	"github.com/dukerupert/ekklesia/internal/store"
)

func main() {
	cfg, cfgPath, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if cfgPath != "" {
		logger.Info("loaded config", "path", cfgPath)
	}

	if len(os.Args) > 1 && os.Args[1] == "restore" {
		if err := restore(cfg, logger, os.Args[2:]); err != nil {
			logger.Error("restore failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedAdmin(store.NewUserStore(db), cfg.Admin, logger); err != nil {
		return err
	}

	hymns, b, err := loadCatalogs(cfg, logger)
	if err != nil {
		return err
	}

	objects := objectstore.New(cfg.S3)
	if !objects.Configured() {
		logger.Warn("object storage not configured; photos and backups are disabled")
	}

	mailer := newMailer(cfg, store.NewSettingsStore(db), logger)

	srv, err := server.New(cfg, db, hymns, b, mailer, objects, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()

	// Background cleanup goroutine
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					logger.Info("cleaned up expired sessions", "count", n)
				}
				if n, err := srv.ResetCodeStore().DeleteExpired(); err != nil {
					logger.Error("cleanup expired reset codes", "error", err)
				} else if n > 0 {
					logger.Info("cleaned up expired reset codes", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ekklesia starting", "addr", httpServer.Addr, "base_url", cfg.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	logger.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

// newMailer builds the Postmark client. The church name in subjects is read
// from the profile on each send.
func newMailer(cfg *config.Config, settings *store.SettingsStore, logger *slog.Logger, opts ...email.Option) *email.Client {
	opts = append(opts, email.WithChurchNameFunc(func() string {
		p, err := settings.GetProfile()
		if err != nil {
			logger.Warn("read church name for email", "error", err)
			return ""
		}
		return p.Name
	}))
	return email.NewClient(cfg.Postmark.ServerToken, cfg.Postmark.From, cfg.BaseURL, opts...)
}

// seedAdmin creates the bootstrap admin when the database has no users.
func seedAdmin(us *store.UserStore, admin config.AdminConfig, logger *slog.Logger) error {
	n, err := us.Count()
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return nil
	}
	if admin.Email == "" {
		logger.Warn("no users exist and no bootstrap admin is configured")
		return nil
	}

	hash, err := auth.HashPassword(admin.Password)
	if err != nil {
		return fmt.Errorf("bootstrap admin password: %w", err)
	}
	u, err := us.Create(admin.Email, "Administrator", model.RoleAdmin, hash)
	if err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	logger.Info("created bootstrap admin", "user_id", u.ID, "email", u.Email)
	return nil
}

// loadCatalogs reads the hymnal and Bible. An unset path gives an empty
// catalog so the rest of the app still works.
func loadCatalogs(cfg *config.Config, logger *slog.Logger) (*hymnal.Hymnal, *bible.Bible, error) {
	hymns := hymnal.Empty()
	if cfg.HymnalPath != "" {
		h, err := hymnal.LoadFile(cfg.HymnalPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load hymnal: %w", err)
		}
		hymns = h
	} else {
		logger.Warn("hymnal path not set; hymnal is empty")
	}

	b := bible.Empty()
	if cfg.BiblePath != "" {
		loaded, err := bible.LoadFile(cfg.BiblePath)
		if err != nil {
			return nil, nil, fmt.Errorf("load bible: %w", err)
		}
		b = loaded
	} else {
		logger.Warn("bible path not set; bible is empty")
	}

	logger.Info("catalogs loaded", "hymns", hymns.Len(), "books", b.Len())
	return hymns, b, nil
}

// restore downloads a backup into a new database file. The live database is
// left alone; swap the file in while the server is stopped.
func restore(cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	out := fs.String("out", "", "path for the restored database (default: <db path>.restored)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: ekklesia restore [-out path] <backup id>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("backup id required")
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid backup id %q", fs.Arg(0))
	}
	dst := *out
	if dst == "" {
		dst = cfg.DBPath + ".restored"
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%s already exists", dst)
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	mgr := backup.NewManager(backup.Config{
		Passphrase:    cfg.Backup.Passphrase,
		RetentionDays: cfg.Backup.RetentionDays,
		ScheduleHour:  cfg.Backup.ScheduleHour,
	}, db, store.NewBackupStore(db), objectstore.New(cfg.S3), logger, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := mgr.Fetch(ctx, id, dst); err != nil {
		return err
	}
	logger.Info("backup restored", "id", id, "path", dst)
	return nil
}
