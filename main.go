package main

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"startpage/config"
)

var (
	cfgFile string
	v       *viper.Viper
	cfg     config.Config
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "startpage",
		Short: "Serve a personal start page with a reorderable shortcut grid",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v = config.New(cfgFile)
			flags := cmd.Flags()
			for key, name := range map[string]string{
				config.KeyAddr:           "addr",
				config.KeyStorageBackend: "storage-backend",
				config.KeyStoragePath:    "storage-path",
				config.KeyLogPretty:      "log-pretty",
				config.KeyLogLevel:       "log-level",
			} {
				if f := flags.Lookup(name); f != nil {
					if err := v.BindPFlag(key, f); err != nil {
						return err
					}
				}
			}
			if ephemeral, _ := flags.GetBool("ephemeral"); ephemeral {
				v.Set(config.KeyStorageBackend, "memory")
			}
			var err error
			cfg, err = config.Load(v)
			return err
		},
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./startpage.yaml)")
	pf.String("storage-backend", "", "state backend: file, diskv, sqlite or memory")
	pf.String("storage-path", "", "directory (file, diskv) or database file (sqlite)")
	pf.Bool("log-pretty", false, "human-readable console logs")
	pf.String("log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newServeCmd(), newExportCmd(), newImportCmd(), newIconsCmd())
	return root
}

func newLogger(c config.Config) zerolog.Logger {
	var w io.Writer = os.Stderr
	if c.LogPretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
