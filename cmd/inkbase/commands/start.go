package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/inkbase/inkbase/internal/logger"
	"github.com/inkbase/inkbase/pkg/api"
	"github.com/inkbase/inkbase/pkg/chat"
	"github.com/inkbase/inkbase/pkg/config"
	"github.com/inkbase/inkbase/pkg/relay"
	"github.com/inkbase/inkbase/pkg/store"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the inkbase server",
	Long: `Start the HTTP/WebSocket server.

The server connects to PostgreSQL, optionally applies pending migrations
(database.auto_migrate), and serves health probes, metrics, and the
signaling relay until interrupted.

Examples:
  # Start with default config location
  inkbase start

  # Start with custom config
  inkbase start --config /etc/inkbase/config.yaml`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	messages := chat.NewMessageStore(st.Pool(), cfg.Admin.PublicKey)
	blocklist := chat.NewBlocklist(st.Pool())
	rl := relay.New(messages, blocklist)

	router := api.NewRouter(api.RouterConfig{
		Store:          st,
		Relay:          rl,
		MetricsEnabled: cfg.Metrics.Enabled,
	})
	server := api.NewServer(cfg.Server.Host, cfg.Server.Port, router, cfg.Server.ShutdownTimeout)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received")
	if err := server.Shutdown(context.Background()); err != nil {
		return err
	}
	return <-errCh
}
