package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dse-bonds/internal/config"
	"github.com/sells-group/dse-bonds/internal/monitoring"
	"github.com/sells-group/dse-bonds/internal/pipeline"
	"github.com/sells-group/dse-bonds/internal/server"
)

var servePort int

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the report upload server",
	Long:  "Serves the upload form. Each uploaded report is extracted, new trading days are stored and the rows come back as DSE_bond_data.xlsx.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(config.ModeServe); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		collector := monitoring.NewCollector(st)
		p := pipeline.New(st, monitoring.NewMetrics(reg), cfg.Export)

		handler, err := buildHandler(p, st, collector, reg)
		if err != nil {
			return err
		}

		port := resolvePort(servePort, cfg.Server.Port)
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		checker := monitoring.NewChecker(collector, monitoring.NewAlerter(cfg.Monitor), cfg.Monitor)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			checker.Run(gctx)
			return nil
		})
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port), zap.String("store", cfg.Store.Driver))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return eris.Wrap(err, "server shutdown")
			}
			return nil
		})

		return g.Wait()
	},
}

// buildHandler wires the HTTP routes from the loaded configuration.
func buildHandler(p server.Processor, st server.Pinger, c server.StatusCollector, g prometheus.Gatherer) (http.Handler, error) {
	srv, err := server.New(p, st, c, server.Options{
		SecretKey:        cfg.Server.SecretKey,
		MaxUploadMB:      cfg.Server.MaxUploadMB,
		UploadRatePerMin: cfg.Server.UploadRatePerMin,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		LookbackHours:    cfg.Monitor.LookbackHours,
		Gatherer:         g,
	})
	if err != nil {
		return nil, eris.Wrap(err, "build server")
	}
	return srv.Routes(), nil
}

// resolvePort prefers the --port flag over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort > 0 {
		return flagPort
	}
	return cfgPort
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
