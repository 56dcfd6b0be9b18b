// Package collector exports the state of an AirTouch 3 unit as Prometheus
// metrics. It subscribes to the poller and serves the last received update.
package collector

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tbyrne/airtouch3-controller/internal/poller"
	"github.com/tbyrne/airtouch3-controller/pkg/airtouch"
)

var (
	airtouchACPower = prometheus.NewDesc(
		prometheus.BuildFQName("airtouch", "ac", "power"),
		"Power state of the AC unit. 1 if the unit is on",
		[]string{"name"},
		nil,
	)
	airtouchACMode = prometheus.NewDesc(
		prometheus.BuildFQName("airtouch", "ac", "mode"),
		"Operating mode of the AC unit. Always 1. See label 'mode'",
		[]string{"name", "mode"},
		nil,
	)
	airtouchACFanMode = prometheus.NewDesc(
		prometheus.BuildFQName("airtouch", "ac", "fan_mode"),
		"Fan mode of the AC unit. Always 1. See label 'fan_mode'",
		[]string{"name", "fan_mode"},
		nil,
	)
	airtouchACTemperature = prometheus.NewDesc(
		prometheus.BuildFQName("airtouch", "ac", "temperature_celsius"),
		"Temperature measured at the AC unit in degrees celsius",
		[]string{"name"},
		nil,
	)
	airtouchACTargetTemperature = prometheus.NewDesc(
		prometheus.BuildFQName("airtouch", "ac", "target_temp_celsius"),
		"Target temperature of the AC unit in degrees celsius",
		[]string{"name"},
		nil,
	)
	airtouchZonePowerState = prometheus.NewDesc(
		prometheus.BuildFQName("airtouch", "zone", "power_state"),
		"Power status of this zone",
		[]string{"zone_name"},
		nil,
	)
	airtouchZoneDamperPercentage = prometheus.NewDesc(
		prometheus.BuildFQName("airtouch", "zone", "damper_percentage"),
		"Damper opening of this zone in percentage (0-100)",
		[]string{"zone_name"},
		nil,
	)
	airtouchZoneTargetTemperature = prometheus.NewDesc(
		prometheus.BuildFQName("airtouch", "zone", "target_temp_celsius"),
		"Target temperature of this zone in degrees celsius",
		[]string{"zone_name"},
		nil,
	)
	airtouchZoneTemperature = prometheus.NewDesc(
		prometheus.BuildFQName("airtouch", "zone", "temperature_celsius"),
		"Current temperature of this zone in degrees celsius",
		[]string{"zone_name"},
		nil,
	)
	airtouchSensorBatteryStatus = prometheus.NewDesc(
		prometheus.BuildFQName("airtouch", "sensor", "battery_status"),
		"Battery status of this temperature sensor. 0 if the battery is low",
		[]string{"zone_name", "id"},
		nil,
	)
)

type Collector struct {
	Poller     poller.Poller
	Logger     *slog.Logger
	lock       sync.RWMutex
	lastUpdate *poller.Update
}

func (c *Collector) Run(ctx context.Context) error {
	c.Logger.Debug("started")
	defer c.Logger.Debug("stopped")

	ch := c.Poller.Subscribe()
	defer c.Poller.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-ch:
			c.lock.Lock()
			c.lastUpdate = &update
			c.lock.Unlock()
		}
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- airtouchACPower
	ch <- airtouchACMode
	ch <- airtouchACFanMode
	ch <- airtouchACTemperature
	ch <- airtouchACTargetTemperature
	ch <- airtouchZonePowerState
	ch <- airtouchZoneDamperPercentage
	ch <- airtouchZoneTargetTemperature
	ch <- airtouchZoneTemperature
	ch <- airtouchSensorBatteryStatus
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.lastUpdate != nil {
		c.collectAircon(ch)
		c.collectZones(ch)
	}
}

func (c *Collector) collectAircon(ch chan<- prometheus.Metric) {
	aircon := c.lastUpdate.Aircon
	var value float64
	if aircon.IsOn() {
		value = 1.0
	}
	ch <- prometheus.MustNewConstMetric(airtouchACPower, prometheus.GaugeValue, value, aircon.Name)
	ch <- prometheus.MustNewConstMetric(airtouchACMode, prometheus.GaugeValue, 1, aircon.Name, aircon.Mode.String())
	ch <- prometheus.MustNewConstMetric(airtouchACFanMode, prometheus.GaugeValue, 1, aircon.Name, aircon.FanMode.String())
	ch <- prometheus.MustNewConstMetric(airtouchACTemperature, prometheus.GaugeValue, aircon.RoomTemperature, aircon.Name)
	ch <- prometheus.MustNewConstMetric(airtouchACTargetTemperature, prometheus.GaugeValue, float64(aircon.DesiredTemperature), aircon.Name)
}

func (c *Collector) collectZones(ch chan<- prometheus.Metric) {
	var value float64
	for _, zone := range c.lastUpdate.Aircon.Zones {
		value = 0.0
		if zone.IsOn() {
			value = 1.0
		}
		ch <- prometheus.MustNewConstMetric(airtouchZonePowerState, prometheus.GaugeValue, value, zone.Name)
		ch <- prometheus.MustNewConstMetric(airtouchZoneDamperPercentage, prometheus.GaugeValue, float64(zone.FanValue), zone.Name)

		if zone.TemperatureControlled() {
			ch <- prometheus.MustNewConstMetric(airtouchZoneTargetTemperature, prometheus.GaugeValue, float64(zone.DesiredTemperature), zone.Name)
		}
		if temperature, ok := zone.Temperature(); ok {
			ch <- prometheus.MustNewConstMetric(airtouchZoneTemperature, prometheus.GaugeValue, temperature, zone.Name)
		}
		c.collectSensors(ch, zone)
	}
}

func (c *Collector) collectSensors(ch chan<- prometheus.Metric, zone airtouch.Zone) {
	var value float64
	for _, sensor := range zone.Sensors {
		value = 1.0
		if sensor.LowBattery {
			value = 0.0
		}
		ch <- prometheus.MustNewConstMetric(airtouchSensorBatteryStatus, prometheus.GaugeValue, value, zone.Name, strconv.Itoa(sensor.ID))
	}
}
