package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/sitetree/internal/api"
	"github.com/jmylchreest/sitetree/internal/logger"
	"github.com/jmylchreest/sitetree/internal/metrics"
	"github.com/jmylchreest/sitetree/internal/service"
	"github.com/jmylchreest/sitetree/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the link tree API",
	Long: `Run the HTTP API that crawl workers use to build and merge link trees.
Trees are kept in memory, Redis or PostgreSQL depending on store.backend.

Examples:
  sitetree serve
  sitetree serve --addr :9090 --store redis
  SITETREE_STORE_POSTGRES_DSN=postgres://... sitetree serve --store postgres`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("addr", ":8080", "listen address")
	flags.String("store", "memory", "tree store: memory, redis, postgres")

	_ = viper.BindPFlag("server.addr", flags.Lookup("addr"))
	_ = viper.BindPFlag("store.backend", flags.Lookup("store"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if viper.GetBool("debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		logger.Error("failed to open store", "backend", cfg.Store.Backend, "error", err)
		return err
	}
	defer func() { _ = st.Close() }()
	logger.Info("store ready", "backend", cfg.Store.Backend)

	svcOpts := []service.Option{service.WithTreeConfig(cfg.Tree)}
	var apiOpts []api.Option
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := metrics.New(reg)
		svcOpts = append(svcOpts, service.WithMetrics(m))
		apiOpts = append(apiOpts, api.WithMetrics(m, reg))
	}

	srv, err := api.New(service.New(st, svcOpts...), cfg.Server, apiOpts...)
	if err != nil {
		return err
	}

	logInfo("Serving link tree API on %s (store: %s)", cfg.Server.Addr, cfg.Store.Backend)
	return srv.Run(ctx)
}
