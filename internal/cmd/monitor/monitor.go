// Package monitor implements the airtouch3 monitor command: it polls the
// AirTouch 3 unit, exports its state as Prometheus metrics, serves a health
// endpoint and runs the smart control policy on a schedule.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tbyrne/airtouch3-controller/internal/airtouchtools"
	"github.com/tbyrne/airtouch3-controller/internal/cmd/config"
	"github.com/tbyrne/airtouch3-controller/internal/collector"
	"github.com/tbyrne/airtouch3-controller/internal/health"
	"github.com/tbyrne/airtouch3-controller/internal/poller"
	"github.com/tbyrne/airtouch3-controller/internal/smartcontrol"
	"github.com/tbyrne/airtouch3-controller/internal/smartcontrol/notifier"
	"golang.org/x/sync/errgroup"
)

var Cmd = cobra.Command{
	Use:   "monitor",
	Short: "Monitor and control an AirTouch 3 unit",
	RunE:  Main,
}

func Main(cmd *cobra.Command, _ []string) error {
	v := viper.GetViper()
	logger := config.Logger(v)
	logger.Info("airtouch3 monitor starting", "version", cmd.Root().Version)
	defer logger.Info("airtouch3 monitor stopped")

	host := v.GetString("airtouch.host")
	if host == "" {
		return errors.New("no airtouch host configured")
	}

	callMetrics := airtouchtools.NewCallMetrics("airtouch", "monitor", prometheus.Labels{"application": "airtouch3"})
	device := airtouchtools.NewInstrumentedClient(host, v.GetInt("airtouch.port"), callMetrics)

	registry := prometheus.NewRegistry()
	registry.MustRegister(callMetrics)

	p := poller.New(device, v.GetDuration("poller.interval"), logger.With("component", "poller"))

	coll := collector.Collector{Poller: p, Logger: logger.With("component", "collector")}
	registry.MustRegister(&coll)

	h := health.New(p, logger.With("component", "health"))

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.Run(ctx) })
	g.Go(func() error { return coll.Run(ctx) })
	g.Go(func() error { return h.Run(ctx) })

	promMux := http.NewServeMux()
	promMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	g.Go(func() error { return runServer(ctx, v.GetString("exporter.addr"), promMux) })

	healthMux := http.NewServeMux()
	healthMux.Handle("/health", h)
	g.Go(func() error { return runServer(ctx, v.GetString("health.addr"), healthMux) })

	cfg, found, err := config.SmartControl(v, logger)
	if err != nil {
		return err
	}
	if found {
		var sender notifier.SlackSender
		if token := v.GetString("slack.token"); token != "" {
			sender = slack.New(token)
		}
		m := smartcontrol.NewMetrics()
		registry.MustRegister(m)
		c := smartcontrol.New(device, cfg, sender, v.GetString("slack.channel"), m, logger.With("component", "smartcontrol"))
		g.Go(func() error { return runSchedule(ctx, v.GetString("smartcontrol.schedule"), c, p, logger) })
	} else {
		logger.Warn("no smart control configuration found. smart control will not run")
	}

	return g.Wait()
}

// runSchedule runs the smart control policy on a cron schedule. After a
// successful cycle it refreshes the poller, so the exported metrics reflect
// the actions taken.
func runSchedule(ctx context.Context, schedule string, c *smartcontrol.Controller, p poller.Poller, logger *slog.Logger) error {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(schedule, func() {
		if _, err := c.RunCycle(ctx, smartcontrol.Options{}); err != nil {
			logger.Error("control cycle failed", slog.Any("err", err))
			return
		}
		p.Refresh()
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()
	return nil
}

func runServer(ctx context.Context, addr string, handler http.Handler) error {
	server := http.Server{Addr: addr, Handler: handler}
	errCh := make(chan error)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	<-errCh
	return nil
}
