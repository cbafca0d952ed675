// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command ocmskit extracts form data from HTML and manages the collection
// tree and audit log stored in the ocms-kit database.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/olegiv/ocms-kit/internal/auditlog"
	"github.com/olegiv/ocms-kit/internal/collection"
	"github.com/olegiv/ocms-kit/internal/config"
	"github.com/olegiv/ocms-kit/internal/formdata"
	"github.com/olegiv/ocms-kit/internal/logging"
	"github.com/olegiv/ocms-kit/internal/scheduler"
	"github.com/olegiv/ocms-kit/internal/store"
	"github.com/olegiv/ocms-kit/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// errUsage is returned for malformed command lines. The bare sentinel means
// usage has already been printed; wrapped forms carry a message for stderr.
var errUsage = errors.New("invalid usage")

func main() {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	a := &app{
		cfg:    cfg,
		logger: logger,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		version: version.Info{
			Version:   appVersion,
			GitCommit: appGitCommit,
			BuildTime: appBuildTime,
		},
	}

	if err := a.run(context.Background(), os.Args[1:]); err != nil {
		if !errors.Is(err, errUsage) {
			slog.Error("command failed", "error", err)
		}
		os.Exit(1)
	}
}

type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	version version.Info
}

func (a *app) usage() {
	_, _ = fmt.Fprintf(a.stderr, "ocmskit - form data, collections and audit log tools\n\n")
	_, _ = fmt.Fprintf(a.stderr, "Usage:\n")
	_, _ = fmt.Fprintf(a.stderr, "  ocmskit formdata [-id ID] [-index N] [-include-csrf] [-format json|query] [file]\n")
	_, _ = fmt.Fprintf(a.stderr, "  ocmskit collections tree\n")
	_, _ = fmt.Fprintf(a.stderr, "  ocmskit collections add [-parent ID] NAME\n")
	_, _ = fmt.Fprintf(a.stderr, "  ocmskit audit list [-type TYPE] [-user ID] [-limit N]\n")
	_, _ = fmt.Fprintf(a.stderr, "  ocmskit audit prune [-days N] [-every SCHEDULE]\n")
	_, _ = fmt.Fprintf(a.stderr, "  ocmskit version\n")
	_, _ = fmt.Fprintf(a.stderr, "\nEnvironment Variables:\n")
	_, _ = fmt.Fprintf(a.stderr, "  OCMS_DB_PATH               SQLite database path (default: ./data/ocms.db)\n")
	_, _ = fmt.Fprintf(a.stderr, "  OCMS_LOG_LEVEL             debug|info|warn|error (default: info)\n")
	_, _ = fmt.Fprintf(a.stderr, "  OCMS_CSRF_FIELD_NAME       Field dropped from form data (default: csrfmiddlewaretoken)\n")
	_, _ = fmt.Fprintf(a.stderr, "  OCMS_AUDIT_RETENTION_DAYS  Default age for audit prune (default: 90)\n")
	_, _ = fmt.Fprintf(a.stderr, "  OCMS_DO_SEED               Seed default collection permissions (default: false)\n")
}

func (a *app) run(ctx context.Context, args []string) error {
	err := a.dispatch(ctx, args)
	if err != nil && err != errUsage && errors.Is(err, errUsage) {
		_, _ = fmt.Fprintf(a.stderr, "ocmskit: %v\n", err)
	}
	return err
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return errUsage
	}

	switch args[0] {
	case "formdata":
		return a.formData(args[1:])
	case "collections":
		return a.collections(ctx, args[1:])
	case "audit":
		return a.audit(ctx, args[1:])
	case "version", "-version", "-v":
		_, err := fmt.Fprintln(a.stdout, a.version.String())
		return err
	case "help", "-help", "-h":
		a.usage()
		return nil
	default:
		_, _ = fmt.Fprintf(a.stderr, "unknown command %q\n\n", args[0])
		a.usage()
		return errUsage
	}
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	// The flag package has already reported the error and its usage.
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

func (a *app) formData(args []string) error {
	fs := a.flagSet("formdata")
	formID := fs.String("id", "", "select the form with this id attribute")
	formIndex := fs.Int("index", 0, "select the form at this zero-based position")
	includeCSRF := fs.Bool("include-csrf", false, "keep the CSRF token field")
	format := fs.String("format", "json", "output format: json or query")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *format != "json" && *format != "query" {
		return fmt.Errorf("%w: unknown format %q", errUsage, *format)
	}

	var src []byte
	var err error
	switch fs.NArg() {
	case 0:
		src, err = io.ReadAll(a.stdin)
	case 1:
		src, err = os.ReadFile(fs.Arg(0))
	default:
		return fmt.Errorf("%w: formdata takes at most one file", errUsage)
	}
	if err != nil {
		return fmt.Errorf("reading html: %w", err)
	}

	opts := []formdata.Option{formdata.WithFormIndex(*formIndex)}
	if *formID != "" {
		opts = append(opts, formdata.WithFormID(*formID))
	}
	if *includeCSRF {
		opts = append(opts, formdata.IncludeCSRF())
	}

	ex := formdata.Extractor{CSRFFieldName: a.cfg.CSRFFieldName}
	values, err := ex.Extract(string(src), opts...)
	if err != nil {
		return err
	}

	if *format == "query" {
		_, err = fmt.Fprintln(a.stdout, values.Encode())
		return err
	}
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(values)
}

type services struct {
	db          *sql.DB
	audit       *auditlog.Service
	collections *collection.Service
	logger      *slog.Logger
}

// open opens the database and builds the audit and collection services.
// WARN and ERROR records logged through the returned logger also go to the
// audit log.
func (a *app) open(ctx context.Context) (*services, error) {
	if dir := filepath.Dir(a.cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	a.logger.Debug("opening database", "path", a.cfg.DBPath)
	db, err := store.Open(ctx, a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if a.cfg.DoSeed {
		if err := store.Seed(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seeding database: %w", err)
		}
	}

	audit := auditlog.NewService(db, auditlog.WithLogger(a.logger))
	logger := slog.New(logging.NewAuditHandler(a.logger.Handler(), audit))

	return &services{
		db:          db,
		audit:       audit,
		collections: collection.NewService(db, collection.WithAudit(audit), collection.WithLogger(logger)),
		logger:      logger,
	}, nil
}

func (s *services) close() {
	if err := s.db.Close(); err != nil {
		slog.Error("error closing database connection", "error", err)
	}
}

func (a *app) collections(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return errUsage
	}

	svc, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer svc.close()

	switch args[0] {
	case "tree":
		all, err := svc.collections.All(ctx)
		if err != nil {
			return err
		}
		for _, c := range all {
			if _, err := fmt.Fprintf(a.stdout, "%d\t%s\n", c.ID, c.IndentedName()); err != nil {
				return err
			}
		}
		return nil

	case "add":
		fs := a.flagSet("collections add")
		parentID := fs.Int64("parent", 0, "parent collection id (default: root)")
		if err := parseFlags(fs, args[1:]); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return fmt.Errorf("%w: collections add takes one NAME", errUsage)
		}

		var parent collection.Collection
		if *parentID == 0 {
			parent, err = svc.collections.Root(ctx)
		} else {
			parent, err = svc.collections.Get(ctx, *parentID)
		}
		if err != nil {
			return err
		}

		child, err := svc.collections.AddChild(ctx, parent, fs.Arg(0))
		if err != nil {
			return err
		}
		svc.logger.Info("collection added", "id", child.ID, "path", child.Path, "parent", parent.Name)
		_, err = fmt.Fprintf(a.stdout, "%d\t%s\n", child.ID, child.Path)
		return err

	default:
		return fmt.Errorf("%w: unknown collections command %q", errUsage, args[0])
	}
}

func (a *app) audit(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return errUsage
	}

	svc, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer svc.close()

	switch args[0] {
	case "list":
		fs := a.flagSet("audit list")
		contentType := fs.String("type", "", "only entries for this content type")
		userID := fs.Int64("user", 0, "only entries by this user id")
		limit := fs.Int("limit", 50, "maximum number of entries without filters")
		if err := parseFlags(fs, args[1:]); err != nil {
			return err
		}

		var entries []auditlog.Entry
		switch {
		case *contentType != "":
			entries, err = svc.audit.ForModel(ctx, *contentType)
		case *userID != 0:
			entries, err = svc.audit.ForUser(ctx, *userID)
		default:
			entries, err = svc.audit.Recent(ctx, *limit)
		}
		if err != nil {
			return err
		}
		for _, e := range entries {
			if _, err := fmt.Fprintln(a.stdout, formatEntry(svc.audit, e)); err != nil {
				return err
			}
		}
		return nil

	case "prune":
		fs := a.flagSet("audit prune")
		days := fs.Int("days", a.cfg.AuditRetentionDays, "delete entries older than this many days")
		every := fs.String("every", "", "keep running and prune on this cron schedule (e.g. "+scheduler.DefaultSchedule+")")
		if err := parseFlags(fs, args[1:]); err != nil {
			return err
		}
		if *days <= 0 {
			return fmt.Errorf("%w: -days must be positive", errUsage)
		}

		sched := scheduler.New(svc.audit, time.Duration(*days)*24*time.Hour, svc.logger)
		if *every != "" {
			return runScheduler(ctx, sched, *every)
		}

		n, err := sched.RunOnce(ctx)
		if err != nil {
			return err
		}
		svc.logger.Info("audit log pruned", "deleted", n, "days", *days)
		_, err = fmt.Fprintf(a.stdout, "deleted %d entries\n", n)
		return err

	default:
		return fmt.Errorf("%w: unknown audit command %q", errUsage, args[0])
	}
}

// runScheduler prunes on spec until ctx is done or the process is interrupted.
func runScheduler(ctx context.Context, sched *scheduler.Scheduler, spec string) error {
	if err := scheduler.ValidateSchedule(spec); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(spec); err != nil {
		return err
	}
	<-ctx.Done()
	sched.Stop()
	return nil
}

func formatEntry(audit *auditlog.Service, e auditlog.Entry) string {
	user := "-"
	if e.UserID != nil {
		user = strconv.FormatInt(*e.UserID, 10)
	}
	line := fmt.Sprintf("%s\t%s\t%s\t%s:%s\t%s\tuser=%s",
		e.Timestamp.Format(time.RFC3339), e.Action, audit.Message(e),
		e.Object.Type, e.Object.ID, e.Object.Label, user)
	if e.Related != nil {
		line += fmt.Sprintf("\trelated=%s:%s", e.Related.Type, e.Related.ID)
	}
	return line
}
