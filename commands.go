package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"startpage/api"
	"startpage/icon"
	"startpage/kvcache"
	"startpage/session"
	"startpage/shortcut"
	"startpage/store"
	"startpage/wallpaper"
)

// openStore opens the configured backend and loads the state from it.
func openStore(log zerolog.Logger) (*store.Store, store.Backend, error) {
	backend, err := store.Open(cfg.StorageBackend, cfg.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s backend: %w", cfg.StorageBackend, err)
	}
	return store.New(backend, log, store.WithKey(cfg.StorageKey)), backend, nil
}

func newResolver(st *store.Store, log zerolog.Logger) *icon.Resolver {
	return icon.NewResolver(icon.NewHTTPFetcher(0), st, icon.Config{
		Sources: cfg.IconSources,
		Timeout: cfg.IconTimeout,
	}, log)
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the start page server",
		Example: `
startpage serve
startpage serve --addr :9000 --storage-backend sqlite --storage-path ./state.db
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().Bool("ephemeral", false, "keep state in memory only")
	return cmd
}

func serve(parent context.Context) error {
	log := newLogger(cfg)
	st, backend, err := openStore(log)
	if err != nil {
		return err
	}
	defer backend.Close()

	icons := newResolver(st, log)
	defer icons.Close()
	manager := session.NewManager(st, icons)
	pusher := api.NewPusher(st, icons, manager)

	wp := wallpaper.NewService(kvcache.Open(cfg.CachePath), log)
	wp.FeedURL = cfg.WallpaperFeed
	wp.FallbackURL = cfg.WallpaperFallback

	router := api.RegisterRoutes(api.Deps{
		Store:     st,
		Icons:     icons,
		Sessions:  manager,
		Wallpaper: wp,
		Log:       log,
	}, staticFiles)
	srv := &http.Server{Addr: cfg.Addr, Handler: router}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		icons.Watch(ctx, st)
		return nil
	})
	g.Go(func() error {
		pusher.Run(ctx)
		return nil
	})
	g.Go(func() error {
		manager.RunReaper(ctx, cfg.SessionReapInterval, cfg.SessionTTL)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Str("backend", cfg.StorageBackend).Msg("startpage listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write shortcuts and settings as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, backend, err := openStore(newLogger(cfg))
			if err != nil {
				return err
			}
			defer backend.Close()

			if len(args) == 0 {
				return st.Export(cmd.OutOrStdout())
			}
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := st.Export(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace shortcuts and settings from a YAML export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, backend, err := openStore(newLogger(cfg))
			if err != nil {
				return err
			}
			defer backend.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			n, err := st.Import(f)
			if err != nil {
				return err
			}
			if err := st.LastPersistError(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d shortcuts\n", n)
			return nil
		},
	}
}

func newIconsCmd() *cobra.Command {
	icons := &cobra.Command{
		Use:   "icons",
		Short: "Manage cached shortcut icons",
	}
	var force bool
	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Resolve icons for every shortcut without one",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cfg)
			st, backend, err := openStore(log)
			if err != nil {
				return err
			}
			defer backend.Close()

			r := newResolver(st, log)
			defer r.Close()

			list := st.State().Shortcuts
			if force {
				for i := range list {
					st.UpdateShortcut(list[i].ID, shortcut.ClearIcon())
					list[i].CachedIcon = ""
				}
			}
			res, err := r.Sync(cmd.Context(), list, cfg.IconWorkers)
			fmt.Fprintf(cmd.OutOrStdout(), "resolved %d, fell back to glyph %d, already cached %d\n",
				res.Resolved, res.Exhausted, res.Skipped)
			return err
		},
	}
	refresh.Flags().BoolVar(&force, "force", false, "drop cached icons first")
	icons.AddCommand(refresh)
	return icons
}
