package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/tbyrne/airtouch3-controller/pkg/airtouch"
	"github.com/tbyrne/airtouch3-controller/pkg/pubsub"
)

// A Poller publishes the state of the AirTouch 3 unit at regular intervals.
// Use Refresh to request an immediate update.
type Poller interface {
	Subscribe() chan Update
	Unsubscribe(ch chan Update)
	Refresh()
}

// DeviceGetter reads the current state of the AirTouch 3 unit
type DeviceGetter interface {
	Update(ctx context.Context, force bool) (airtouch.Aircon, error)
}

var _ Poller = &AirconPoller{}

type AirconPoller struct {
	DeviceClient DeviceGetter
	*pubsub.Publisher[Update]
	interval time.Duration
	logger   *slog.Logger
	refresh  chan struct{}
}

func New(deviceClient DeviceGetter, interval time.Duration, logger *slog.Logger) *AirconPoller {
	return &AirconPoller{
		DeviceClient: deviceClient,
		Publisher:    pubsub.NewPublisher[Update](logger.With(slog.String("component", "pubsub"))),
		interval:     interval,
		logger:       logger,
		refresh:      make(chan struct{}, 1),
	}
}

func (p *AirconPoller) Run(ctx context.Context) error {
	p.logger.Debug("started", slog.Duration("interval", p.interval))
	defer p.logger.Debug("stopped")

	timer := time.NewTicker(p.interval)
	defer timer.Stop()

	for {
		force := false
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		case <-p.refresh:
			// a manual refresh bypasses the device client's read throttle
			force = true
		}

		if err := p.poll(ctx, force); err != nil {
			p.logger.Error("failed to get airtouch state", slog.Any("err", err))
		}
	}
}

// Refresh requests an immediate poll. Refresh never blocks, even when the
// poller is not running: if a refresh is already pending, the request is
// dropped.
func (p *AirconPoller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

func (p *AirconPoller) poll(ctx context.Context, force bool) error {
	start := time.Now()
	aircon, err := p.DeviceClient.Update(ctx, force)
	if err == nil {
		p.Publisher.Publish(Update{Aircon: aircon, Timestamp: time.Now()})
		p.logger.Debug("poll completed", slog.Duration("duration", time.Since(start)))
	}
	return err
}
