package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goto/salt/log"
	"github.com/spf13/cobra"

	"scoutadmin/internal/api"
	"scoutadmin/internal/auth"
	"scoutadmin/internal/backend"
	"scoutadmin/internal/catalog"
	"scoutadmin/internal/config"
	"scoutadmin/internal/i18n"
	"scoutadmin/internal/pg"
)

const janitorEvery = time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scoutadmin",
		Short:         "Admin console for scout event registration",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	flags := config.BindFlags(root.PersistentFlags(), "config.json")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the console HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.Load(cmd.Flags())
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	// без подкоманды: сервер
	root.RunE = serve.RunE

	root.AddCommand(serve, templatesCmd(flags), migrateCmd(flags))
	return root
}

func initLogger(level string) log.Logger {
	return log.NewLogrus(
		log.LogrusWithLevel(level),
		log.LogrusWithWriter(os.Stdout),
	)
}

func loadCatalog(dir string) (*catalog.Catalog, error) {
	if dir == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(dir)
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger := initLogger(cfg.LogLevel)

	loc, err := i18n.New(cfg.DefaultLang)
	if err != nil {
		return fmt.Errorf("messages: %w", err)
	}
	client, err := backend.New(cfg.BackendURL, cfg.BackendTimeout.Duration, logger)
	if err != nil {
		return fmt.Errorf("backend client: %w", err)
	}

	cat, err := loadCatalog(cfg.TemplatesDir)
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}
	if issues := cat.Lint(); len(issues) > 0 {
		for _, is := range issues {
			logger.Error("template issue", "template", is.Template, "field", is.Field, "code", is.Code, "message", is.Message)
		}
		return fmt.Errorf("templates: %d issue(s)", len(issues))
	}
	logger.Info("templates loaded", "catalog", cat.Name, "templates", len(cat.Templates()))

	var sessions auth.SessionStore
	if cfg.DBURL != "" {
		db, err := pg.Open(ctx, cfg.DBURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if cfg.AutoMigrate {
			if err := pg.ApplyDDL(ctx, db, pg.SessionDDL(""), logger); err != nil {
				return err
			}
		}
		sessions = pg.NewSessionStore(db, "", cfg.SessionTTL.Duration)
		logger.Info("sessions stored in postgres")
	}

	var blob api.BlobStore
	if cfg.FilesRoot != "" {
		blob = &api.LocalBlobStore{Root: cfg.FilesRoot}
	}

	ws, err := api.NewWorkspace(api.Options{
		Catalog:      cat,
		TemplatesDir: cfg.TemplatesDir,
		Backend:      client,
		Sessions:     sessions,
		Blob:         blob,
		I18n:         loc,
		Logger:       logger,
		SessionTTL:   cfg.SessionTTL.Duration,
		CookieSecure: cfg.CookieSecure,
	})
	if err != nil {
		return err
	}
	go ws.RunJanitor(ctx, janitorEvery)

	logger.Info("scoutadmin starting", "port", cfg.Port, "backend", cfg.BackendURL, "lang", loc.Default().String())
	return api.RunServer(ctx, ":"+cfg.Port, ws)
}

func templatesCmd(flags *config.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Inspect the field template catalog",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "lint",
		Short: "Check templates and exit non-zero on problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.Load(cmd.Flags())
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg.TemplatesDir)
			if err != nil {
				return err
			}
			issues := cat.Lint()
			for _, is := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", is.Template, is.Field, is.Code, is.Message)
			}
			if len(issues) > 0 {
				return fmt.Errorf("%d issue(s)", len(issues))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d templates\n", len(cat.Templates()))
			return nil
		},
	}, &cobra.Command{
		Use:   "list",
		Short: "Print template keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.Load(cmd.Flags())
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg.TemplatesDir)
			if err != nil {
				return err
			}
			for _, t := range cat.Templates() {
				d := t.Describe()
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", d.Key, d.Kind, d.Label)
			}
			return nil
		},
	})
	return cmd
}

func migrateCmd(flags *config.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the session tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.DBURL == "" {
				return fmt.Errorf("migrate: --db is required")
			}
			db, err := pg.Open(cmd.Context(), cfg.DBURL)
			if err != nil {
				return err
			}
			defer db.Close()
			return pg.ApplyDDL(cmd.Context(), db, pg.SessionDDL(""), initLogger(cfg.LogLevel))
		},
	}
}
