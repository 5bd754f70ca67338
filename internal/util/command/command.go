package command

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-sweeper/internal/api"
	"github/chapool/go-sweeper/internal/api/router"
	"github/chapool/go-sweeper/internal/config"
	"github/chapool/go-sweeper/internal/wallet/scan"
)

const (
	shutdownTimeout = 10 * time.Second
	dialTimeout     = 30 * time.Second
)

// NewSubcommandGroup returns a command that only groups cmds and prints its
// help when run on its own.
func NewSubcommandGroup(name string, cmds ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: name + " related subcommands",
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	cmd.AddCommand(cmds...)

	return cmd
}

func ConfigureLogger(cfg config.Logger) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(cfg.Level)

	if cfg.PrettyPrintConsole {
		log.Logger = log.Output(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.TimeFormat = "15:04:05"
		}))
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// WithServer initializes every server component, runs f and shuts the server
// down afterwards. The error of f is returned unchanged.
func WithServer(ctx context.Context, cfg config.Sweep, f func(ctx context.Context, s *api.Server) error) error {
	ConfigureLogger(cfg.Logger)

	s := api.NewServer(cfg)
	s.InitMetrics()

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if err := s.InitClient(dialCtx); err != nil {
		return errors.Wrap(err, "failed to initialize RPC client")
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if errs := s.Shutdown(shutdownCtx); len(errs) > 0 {
			log.Error().Errs("shutdownErrors", errs).Msg("Failed to gracefully shut down server")
		}
	}()

	if err := s.InitSweep(dialCtx); err != nil {
		return errors.Wrap(err, "failed to initialize sweeper")
	}

	router.Init(s)

	return f(ctx, s)
}

// WithClient dials the configured RPC endpoints, runs f and closes the client.
func WithClient(ctx context.Context, cfg config.Sweep, f func(ctx context.Context, client *scan.RPCClient) error) error {
	ConfigureLogger(cfg.Logger)

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	client, err := scan.NewRPCClient(dialCtx, cfg.RPCURLs)
	if err != nil {
		return errors.Wrap(err, "failed to create RPC client")
	}
	defer client.Close()

	return f(ctx, client)
}
