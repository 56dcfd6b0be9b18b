// Package smartcontrol implements the smart control policy for an AirTouch 3
// unit: a periodic decision loop that opens/closes zones (or modulates their
// dampers) and toggles the AC's compressor, based on each zone's temperature
// relative to its set-point.
package smartcontrol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clambin/go-common/set"
	"github.com/tbyrne/airtouch3-controller/internal/smartcontrol/notifier"
	"github.com/tbyrne/airtouch3-controller/pkg/airtouch"
)

// DeviceClient is the part of the airtouch client used by the controller. All
// state changes go through these commands; the controller never mutates
// device state directly.
type DeviceClient interface {
	Update(ctx context.Context, force bool) (airtouch.Aircon, error)
	SetPower(ctx context.Context, on bool) error
	SetZoneState(ctx context.Context, zoneID int, on bool) error
	SetZoneDamper(ctx context.Context, zoneID int, percent int) error
}

// Controller runs the smart control policy against one AirTouch 3 unit.
// Cycles are triggered externally (scheduler or manual call); overlapping
// triggers are skipped, not queued.
type Controller struct {
	device  DeviceClient
	cfg     Configuration
	slack   notifier.SlackSender
	channel string
	metrics *Metrics
	logger  *slog.Logger
	enabled atomic.Bool
	running sync.Mutex
}

// New creates a Controller. slack may be nil, in which case notifications
// only go to the log. metrics may be nil.
func New(device DeviceClient, cfg Configuration, slack notifier.SlackSender, channel string, metrics *Metrics, logger *slog.Logger) *Controller {
	c := Controller{
		device:  device,
		cfg:     cfg,
		slack:   slack,
		channel: channel,
		metrics: metrics,
		logger:  logger,
	}
	c.enabled.Store(cfg.Enabled)
	return &c
}

// Enable enables the automation
func (c *Controller) Enable() { c.enabled.Store(true) }

// Disable disables the automation: subsequent cycles end immediately
func (c *Controller) Disable() { c.enabled.Store(false) }

// Enabled returns whether the automation is active
func (c *Controller) Enabled() bool { return c.enabled.Load() }

// Options for one control cycle
type Options struct {
	// NotifyChannel overrides the configured notification channel
	NotifyChannel string
}

// RunCycle runs one full control cycle: refresh device state, evaluate the
// per-zone rules, issue zone commands, re-read and evaluate the aggregate
// power rule. The returned Decision records every action taken. Precondition
// failures (automation disabled, cycle already in flight) end the cycle
// early without error.
func (c *Controller) RunCycle(ctx context.Context, opts Options) (Decision, error) {
	if !c.enabled.Load() {
		c.logger.Debug("smart control is not active")
		return Decision{}, nil
	}
	if c.device == nil {
		return Decision{}, errors.New("no device client")
	}
	if !c.running.TryLock() {
		c.logger.Warn("previous control cycle still in flight; skipping")
		return Decision{}, nil
	}
	defer c.running.Unlock()

	start := time.Now()
	if c.metrics != nil {
		c.metrics.cycles.Inc()
	}

	aircon, err := c.device.Update(ctx, true)
	if err != nil {
		return Decision{}, fmt.Errorf("device refresh: %w", err)
	}

	notifiers := c.notifiers(opts)

	var decision Decision
	switch c.cfg.Mode {
	case ModeDamper:
		decision, err = c.runDamper(ctx, aircon, notifiers)
	default:
		decision, err = c.runThreshold(ctx, aircon, notifiers)
	}
	if err != nil {
		return decision, err
	}

	c.logger.Info("control cycle completed",
		slog.Duration("duration", time.Since(start)),
		slog.Any("decision", decision),
	)
	return decision, nil
}

func (c *Controller) notifiers(opts Options) notifier.Notifiers {
	notifiers := notifier.Notifiers{notifier.SLogNotifier{Logger: c.logger}}
	if c.slack != nil {
		channel := c.channel
		if opts.NotifyChannel != "" {
			channel = opts.NotifyChannel
		}
		notifiers = append(notifiers, &notifier.SlackNotifier{Slack: c.slack, Channel: channel, Logger: c.logger})
	}
	return notifiers
}

// controlledZones resolves the configured allow-list against the device's
// zone list. Any configured name without a matching zone aborts the cycle.
func (c *Controller) controlledZones(aircon airtouch.Aircon) (set.Set[int], error) {
	controlled := set.New[int]()
	for _, name := range c.cfg.Zones {
		zone, ok := aircon.GetZoneByName(name)
		if !ok {
			return nil, fmt.Errorf("controlled zone %q not found on device", name)
		}
		controlled.Add(zone.ID)
	}
	return controlled, nil
}

func (c *Controller) runThreshold(ctx context.Context, aircon airtouch.Aircon, notifiers notifier.Notifiers) (Decision, error) {
	var decision Decision

	controlled, err := c.controlledZones(aircon)
	if err != nil {
		return decision, err
	}

	// safety: zones outside the controlled set must not be left open
	for _, zone := range aircon.Zones {
		if controlled.Contains(zone.ID) || !zone.IsOn() {
			continue
		}
		c.logger.Info("turning off non-controlled zone", slog.String("zone", zone.Name))
		if err = c.device.SetZoneState(ctx, zone.ID, false); err != nil {
			c.logger.Error("failed to turn off zone", slog.String("zone", zone.Name), slog.Any("err", err))
			continue
		}
		c.count(ZoneActionOff)
		decision.Zones = append(decision.Zones, ZoneDecision{
			ZoneID:   zone.ID,
			ZoneName: zone.Name,
			Action:   ZoneActionOff,
			Reason:   "zone is not controlled",
		})
	}

	if aircon, err = c.device.Update(ctx, true); err != nil {
		return decision, fmt.Errorf("device refresh: %w", err)
	}

	active := countActive(aircon, controlled)
	var anyBelow bool

	for _, zone := range aircon.Zones {
		if !controlled.Contains(zone.ID) {
			continue
		}
		zd := ZoneDecision{ZoneID: zone.ID, ZoneName: zone.Name}
		temperature, ok := zone.Temperature()
		switch {
		case !zone.TemperatureControlled():
			zd.Reason = "zone is not temperature controlled"
		case !ok:
			zd.Reason = "no temperature reading"
		default:
			zd.Action, zd.Reason = zoneThresholdAction(zone, temperature, c.cfg.Thresholds, active == 1)
			if belowLowThreshold(temperature, zone.DesiredTemperature, c.cfg.Thresholds) {
				anyBelow = true
			}
		}

		switch zd.Action {
		case ZoneActionOff:
			if err = c.device.SetZoneState(ctx, zone.ID, false); err != nil {
				c.logger.Error("failed to turn off zone", slog.String("zone", zone.Name), slog.Any("err", err))
				break
			}
			active--
			c.count(zd.Action)
			notifiers.Notify(notifier.Notification{
				Title:   "Zone Turned Off",
				Message: fmt.Sprintf("Zone %s turned off: %s.", zone.Name, zd.Reason),
			})
		case ZoneActionOn:
			if err = c.device.SetZoneState(ctx, zone.ID, true); err != nil {
				c.logger.Error("failed to turn on zone", slog.String("zone", zone.Name), slog.Any("err", err))
				break
			}
			active++
			c.count(zd.Action)
			notifiers.Notify(notifier.Notification{
				Title:   "Zone Turned On",
				Message: fmt.Sprintf("Zone %s turned on: %s.", zone.Name, zd.Reason),
			})
		default:
			c.logger.Debug("no zone action", slog.String("zone", zone.Name), slog.String("reason", zd.Reason))
		}
		decision.Zones = append(decision.Zones, zd)
	}

	// the aggregate rule runs on fresh state, so our own zone commands are
	// the new ground truth
	if aircon, err = c.device.Update(ctx, true); err != nil {
		return decision, fmt.Errorf("device refresh: %w", err)
	}

	active = 0
	var readings int
	allAbove := true
	for _, zone := range aircon.Zones {
		if !controlled.Contains(zone.ID) || !zone.IsOn() {
			continue
		}
		active++
		temperature, ok := zone.Temperature()
		if !ok || !zone.TemperatureControlled() {
			continue
		}
		readings++
		if temperature < float64(zone.DesiredTemperature+c.cfg.Thresholds.High) {
			allAbove = false
		}
	}

	// without any readings "all above threshold" is vacuously true; never
	// power off on that basis
	decision.Power, decision.PowerReason = aggregatePowerAction(aircon.IsOn(), active, allAbove && readings > 0, anyBelow)
	switch decision.Power {
	case PowerActionOff:
		if err = c.device.SetPower(ctx, false); err != nil {
			c.logger.Error("failed to turn off AC", slog.Any("err", err))
			break
		}
		c.countPower(decision.Power)
		notifiers.Notify(notifier.Notification{
			Title:   "AC Turned Off",
			Message: "AC turned off: " + decision.PowerReason + ".",
		})
	case PowerActionOn:
		if err = c.device.SetPower(ctx, true); err != nil {
			c.logger.Error("failed to turn on AC", slog.Any("err", err))
			break
		}
		c.countPower(decision.Power)
		notifiers.Notify(notifier.Notification{
			Title:   "AC Turned On",
			Message: "AC turned on: " + decision.PowerReason + ".",
		})
	case PowerActionNone:
		if !aircon.IsOn() {
			// pre-activate controlled zones so they're ready when the AC resumes
			decision.Zones = append(decision.Zones, c.activateControlledZones(ctx, aircon, controlled)...)
		}
	}

	return decision, nil
}

func (c *Controller) activateControlledZones(ctx context.Context, aircon airtouch.Aircon, controlled set.Set[int]) []ZoneDecision {
	var decisions []ZoneDecision
	for _, zone := range aircon.Zones {
		if !controlled.Contains(zone.ID) || zone.IsOn() {
			continue
		}
		c.logger.Info("AC is off; activating controlled zone", slog.String("zone", zone.Name))
		if err := c.device.SetZoneState(ctx, zone.ID, true); err != nil {
			c.logger.Error("failed to turn on zone", slog.String("zone", zone.Name), slog.Any("err", err))
			continue
		}
		c.count(ZoneActionOn)
		decisions = append(decisions, ZoneDecision{
			ZoneID:   zone.ID,
			ZoneName: zone.Name,
			Action:   ZoneActionOn,
			Reason:   "AC is off, zone opened in advance",
		})
	}
	return decisions
}

func (c *Controller) runDamper(ctx context.Context, aircon airtouch.Aircon, notifiers notifier.Notifiers) (Decision, error) {
	var decision Decision
	var anyBelowMinimum bool

	for _, zone := range aircon.Zones {
		if !zone.IsOn() {
			continue
		}
		zd := ZoneDecision{ZoneID: zone.ID, ZoneName: zone.Name, Damper: zone.FanValue}
		temperature, ok := zone.Temperature()
		switch {
		case !zone.TemperatureControlled():
			zd.Reason = "zone is not temperature controlled"
		case !ok:
			zd.Reason = "no temperature reading"
		default:
			target := damperTarget(temperature, zone.DesiredTemperature, c.cfg.Thresholds, c.cfg.Damper)
			if belowLowThreshold(temperature, zone.DesiredTemperature, c.cfg.Thresholds) {
				anyBelowMinimum = true
			}
			if target == zone.FanValue {
				zd.Reason = "damper already at target"
				break
			}
			zd.Action = ZoneActionSetDamper
			zd.Damper = target
			zd.Reason = fmt.Sprintf("temperature %.1f°, target %d°", temperature, zone.DesiredTemperature)
			if err := c.device.SetZoneDamper(ctx, zone.ID, target); err != nil {
				c.logger.Error("failed to set zone damper", slog.String("zone", zone.Name), slog.Any("err", err))
				break
			}
			c.count(zd.Action)
			notifiers.Notify(notifier.Notification{
				Title:   "Zone Damper Adjusted",
				Message: fmt.Sprintf("Zone %s damper set to %d%%: %s.", zone.Name, target, zd.Reason),
			})
		}
		decision.Zones = append(decision.Zones, zd)
	}

	aircon, err := c.device.Update(ctx, true)
	if err != nil {
		return decision, fmt.Errorf("device refresh: %w", err)
	}

	var active, totalOpen, readings int
	allAtTemperature := true
	for _, zone := range aircon.Zones {
		if !zone.IsOn() {
			continue
		}
		active++
		totalOpen += zone.FanValue
		temperature, ok := zone.Temperature()
		if !ok || !zone.TemperatureControlled() {
			continue
		}
		readings++
		if temperature < float64(zone.DesiredTemperature+c.cfg.Thresholds.High) {
			allAtTemperature = false
		}
	}

	decision.Power, decision.PowerReason = damperPowerAction(aircon.IsOn(), active, allAtTemperature && readings > 0, totalOpen, c.cfg.Damper.MinOpenRatio, anyBelowMinimum)
	switch decision.Power {
	case PowerActionOff:
		if err = c.device.SetPower(ctx, false); err != nil {
			c.logger.Error("failed to turn off AC", slog.Any("err", err))
			break
		}
		c.countPower(decision.Power)
		notifiers.Notify(notifier.Notification{
			Title:   "AC Turned Off",
			Message: "AC turned off: " + decision.PowerReason + ".",
		})
	case PowerActionOn:
		if err = c.device.SetPower(ctx, true); err != nil {
			c.logger.Error("failed to turn on AC", slog.Any("err", err))
			break
		}
		c.countPower(decision.Power)
		notifiers.Notify(notifier.Notification{
			Title:   "AC Turned On",
			Message: "AC turned on: " + decision.PowerReason + ".",
		})
	}

	return decision, nil
}

func (c *Controller) count(action ZoneAction) {
	if c.metrics != nil {
		c.metrics.actions.WithLabelValues(action.String()).Inc()
	}
}

func (c *Controller) countPower(action PowerAction) {
	if c.metrics != nil {
		c.metrics.actions.WithLabelValues(action.String()).Inc()
	}
}

func countActive(aircon airtouch.Aircon, controlled set.Set[int]) int {
	var active int
	for _, zone := range aircon.Zones {
		if controlled.Contains(zone.ID) && zone.IsOn() {
			active++
		}
	}
	return active
}
