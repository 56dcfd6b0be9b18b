package smartcontrol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbyrne/airtouch3-controller/pkg/airtouch"
)

// fakeDevice serves an in-memory Aircon and applies commands to it, so a
// re-read during the cycle observes the controller's own actions.
type fakeDevice struct {
	lock     sync.Mutex
	aircon   airtouch.Aircon
	commands []string
	fail     bool
}

func (f *fakeDevice) Update(_ context.Context, _ bool) (airtouch.Aircon, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.fail {
		return airtouch.Aircon{}, errors.New("device unreachable")
	}
	return f.aircon, nil
}

func (f *fakeDevice) SetPower(_ context.Context, on bool) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.aircon.Power = airtouch.PowerOff
	if on {
		f.aircon.Power = airtouch.PowerOn
	}
	f.commands = append(f.commands, fmt.Sprintf("power=%v", on))
	return nil
}

func (f *fakeDevice) SetZoneState(_ context.Context, zoneID int, on bool) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	for i := range f.aircon.Zones {
		if f.aircon.Zones[i].ID == zoneID {
			f.aircon.Zones[i].Status = airtouch.ZoneOff
			if on {
				f.aircon.Zones[i].Status = airtouch.ZoneOn
			}
		}
	}
	f.commands = append(f.commands, fmt.Sprintf("zone %d=%v", zoneID, on))
	return nil
}

func (f *fakeDevice) SetZoneDamper(_ context.Context, zoneID int, percent int) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	for i := range f.aircon.Zones {
		if f.aircon.Zones[i].ID == zoneID {
			f.aircon.Zones[i].FanValue = percent
		}
	}
	f.commands = append(f.commands, fmt.Sprintf("zone %d damper=%d", zoneID, percent))
	return nil
}

func makeZone(id int, name string, status, desired int, temperature float64) airtouch.Zone {
	return airtouch.Zone{
		ID:                 id,
		Name:               name,
		Status:             status,
		DesiredTemperature: desired,
		FanValue:           100,
		Sensors:            []airtouch.Sensor{{ID: id, Temperature: &temperature}},
	}
}

func testConfiguration(zones ...string) Configuration {
	cfg := DefaultConfiguration()
	cfg.Zones = zones
	return cfg
}

func TestController_RunCycle_Threshold(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("sole active zone at temperature: zone stays on, AC turns off", func(t *testing.T) {
		device := fakeDevice{aircon: airtouch.Aircon{
			Power: airtouch.PowerOn,
			Zones: []airtouch.Zone{makeZone(1, "living", airtouch.ZoneOn, 22, 24)},
		}}
		c := New(&device, testConfiguration("living"), nil, "", nil, logger)

		decision, err := c.RunCycle(context.Background(), Options{})
		require.NoError(t, err)
		require.Len(t, decision.Zones, 1)
		assert.Equal(t, ZoneActionNone, decision.Zones[0].Action)
		assert.Equal(t, PowerActionOff, decision.Power)
		assert.Equal(t, []string{"power=false"}, device.commands)
	})

	t.Run("cold inactive zone: zone turns on, then AC turns on", func(t *testing.T) {
		device := fakeDevice{aircon: airtouch.Aircon{
			Power: airtouch.PowerOff,
			Zones: []airtouch.Zone{makeZone(2, "bedroom", airtouch.ZoneOff, 20, 17)},
		}}
		c := New(&device, testConfiguration("bedroom"), nil, "", nil, logger)

		decision, err := c.RunCycle(context.Background(), Options{})
		require.NoError(t, err)
		require.Len(t, decision.Zones, 1)
		assert.Equal(t, ZoneActionOn, decision.Zones[0].Action)
		assert.Equal(t, PowerActionOn, decision.Power)
		assert.Equal(t, []string{"zone 2=true", "power=true"}, device.commands)

		// second cycle with unchanged sensor data takes no further action
		_, err = c.RunCycle(context.Background(), Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{"zone 2=true", "power=true"}, device.commands)
	})

	t.Run("one of two zones at temperature turns off, AC stays on", func(t *testing.T) {
		device := fakeDevice{aircon: airtouch.Aircon{
			Power: airtouch.PowerOn,
			Zones: []airtouch.Zone{
				makeZone(1, "living", airtouch.ZoneOn, 22, 24),
				makeZone(2, "bedroom", airtouch.ZoneOn, 20, 19.5),
			},
		}}
		c := New(&device, testConfiguration("living", "bedroom"), nil, "", nil, logger)

		decision, err := c.RunCycle(context.Background(), Options{})
		require.NoError(t, err)
		assert.Equal(t, ZoneActionOff, decision.Zones[0].Action)
		assert.Equal(t, ZoneActionNone, decision.Zones[1].Action)
		assert.Equal(t, PowerActionNone, decision.Power)
		assert.Equal(t, []string{"zone 1=false"}, device.commands)

		// second cycle with unchanged sensor data takes no further action
		_, err = c.RunCycle(context.Background(), Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{"zone 1=false"}, device.commands)
	})

	t.Run("non-controlled active zone is turned off", func(t *testing.T) {
		device := fakeDevice{aircon: airtouch.Aircon{
			Power: airtouch.PowerOn,
			Zones: []airtouch.Zone{
				makeZone(1, "living", airtouch.ZoneOn, 22, 22),
				makeZone(3, "garage", airtouch.ZoneOn, 0, 25),
			},
		}}
		c := New(&device, testConfiguration("living"), nil, "", nil, logger)

		decision, err := c.RunCycle(context.Background(), Options{})
		require.NoError(t, err)
		require.Len(t, decision.Zones, 2)
		assert.Equal(t, ZoneDecision{ZoneID: 3, ZoneName: "garage", Action: ZoneActionOff, Reason: "zone is not controlled"}, decision.Zones[0])
		assert.Equal(t, ZoneActionNone, decision.Zones[1].Action)
		assert.Equal(t, []string{"zone 3=false"}, device.commands)
	})

	t.Run("AC off and nothing to do: controlled zones are pre-activated", func(t *testing.T) {
		device := fakeDevice{aircon: airtouch.Aircon{
			Power: airtouch.PowerOff,
			Zones: []airtouch.Zone{makeZone(1, "living", airtouch.ZoneOff, 22, 21.5)},
		}}
		c := New(&device, testConfiguration("living"), nil, "", nil, logger)

		decision, err := c.RunCycle(context.Background(), Options{})
		require.NoError(t, err)
		assert.Equal(t, PowerActionNone, decision.Power)
		require.Len(t, decision.Zones, 2)
		assert.Equal(t, ZoneDecision{ZoneID: 1, ZoneName: "living", Action: ZoneActionOn, Reason: "AC is off, zone opened in advance"}, decision.Zones[1])
		assert.Equal(t, []string{"zone 1=true"}, device.commands)

		// second cycle: the zone is already open, nothing left to do
		decision, err = c.RunCycle(context.Background(), Options{})
		require.NoError(t, err)
		require.Len(t, decision.Zones, 1)
		assert.Equal(t, []string{"zone 1=true"}, device.commands)
	})

	t.Run("zone without temperature reading is skipped", func(t *testing.T) {
		device := fakeDevice{aircon: airtouch.Aircon{
			Power: airtouch.PowerOn,
			Zones: []airtouch.Zone{
				{ID: 1, Name: "living", Status: airtouch.ZoneOn, DesiredTemperature: 22, FanValue: 100},
			},
		}}
		c := New(&device, testConfiguration("living"), nil, "", nil, logger)

		decision, err := c.RunCycle(context.Background(), Options{})
		require.NoError(t, err)
		require.Len(t, decision.Zones, 1)
		assert.Equal(t, ZoneActionNone, decision.Zones[0].Action)
		assert.Equal(t, "no temperature reading", decision.Zones[0].Reason)
		assert.Empty(t, device.commands)
	})

	t.Run("unmapped controlled zone aborts the cycle", func(t *testing.T) {
		device := fakeDevice{aircon: airtouch.Aircon{
			Power: airtouch.PowerOn,
			Zones: []airtouch.Zone{makeZone(1, "living", airtouch.ZoneOn, 22, 22)},
		}}
		c := New(&device, testConfiguration("living", "attic"), nil, "", nil, logger)

		_, err := c.RunCycle(context.Background(), Options{})
		assert.ErrorContains(t, err, `controlled zone "attic" not found`)
		assert.Empty(t, device.commands)
	})

	t.Run("device failure propagates", func(t *testing.T) {
		device := fakeDevice{fail: true}
		c := New(&device, testConfiguration("living"), nil, "", nil, logger)

		_, err := c.RunCycle(context.Background(), Options{})
		assert.ErrorContains(t, err, "device refresh")
	})

	t.Run("disabled controller takes no action", func(t *testing.T) {
		device := fakeDevice{aircon: airtouch.Aircon{
			Power: airtouch.PowerOn,
			Zones: []airtouch.Zone{makeZone(1, "living", airtouch.ZoneOn, 22, 24)},
		}}
		c := New(&device, testConfiguration("living"), nil, "", nil, logger)
		c.Disable()
		assert.False(t, c.Enabled())

		decision, err := c.RunCycle(context.Background(), Options{})
		require.NoError(t, err)
		assert.Empty(t, decision.Zones)
		assert.Empty(t, device.commands)

		c.Enable()
		assert.True(t, c.Enabled())
	})
}

func TestController_RunCycle_Damper(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := DefaultConfiguration()
	cfg.Mode = ModeDamper
	cfg.Thresholds = Thresholds{High: 2, Low: 2}

	t.Run("zone at upper threshold closes its damper", func(t *testing.T) {
		device := fakeDevice{aircon: airtouch.Aircon{
			Power: airtouch.PowerOn,
			Zones: []airtouch.Zone{
				makeZone(1, "living", airtouch.ZoneOn, 20, 23),
				makeZone(2, "bedroom", airtouch.ZoneOn, 20, 19),
			},
		}}
		c := New(&device, cfg, nil, "", nil, logger)

		decision, err := c.RunCycle(context.Background(), Options{})
		require.NoError(t, err)
		require.Len(t, decision.Zones, 2)
		assert.Equal(t, ZoneActionSetDamper, decision.Zones[0].Action)
		assert.Equal(t, 0, decision.Zones[0].Damper)
		assert.Equal(t, ZoneActionNone, decision.Zones[1].Action)
		assert.Equal(t, PowerActionNone, decision.Power)
		assert.Equal(t, []string{"zone 1 damper=0"}, device.commands)

		// second cycle with unchanged sensor data takes no further action
		_, err = c.RunCycle(context.Background(), Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{"zone 1 damper=0"}, device.commands)
	})

	t.Run("combined damper opening below minimum turns off the AC", func(t *testing.T) {
		device := fakeDevice{aircon: airtouch.Aircon{
			Power: airtouch.PowerOn,
			Zones: []airtouch.Zone{
				makeZone(1, "living", airtouch.ZoneOn, 20, 23),
				makeZone(2, "bedroom", airtouch.ZoneOn, 20, 21),
			},
		}}
		c := New(&device, cfg, nil, "", nil, logger)

		decision, err := c.RunCycle(context.Background(), Options{})
		require.NoError(t, err)
		assert.Equal(t, PowerActionOff, decision.Power)
		assert.Equal(t, []string{"zone 1 damper=0", "zone 2 damper=5", "power=false"}, device.commands)
	})

	t.Run("cold zone turns on the AC", func(t *testing.T) {
		device := fakeDevice{aircon: airtouch.Aircon{
			Power: airtouch.PowerOff,
			Zones: []airtouch.Zone{makeZone(1, "living", airtouch.ZoneOn, 20, 17)},
		}}
		c := New(&device, cfg, nil, "", nil, logger)

		decision, err := c.RunCycle(context.Background(), Options{})
		require.NoError(t, err)
		assert.Equal(t, ZoneActionNone, decision.Zones[0].Action)
		assert.Equal(t, PowerActionOn, decision.Power)
		assert.Equal(t, []string{"power=true"}, device.commands)
	})
}

func TestController_RunCycle_Notifications(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("actions are posted to slack", func(t *testing.T) {
		device := fakeDevice{aircon: airtouch.Aircon{
			Power: airtouch.PowerOff,
			Zones: []airtouch.Zone{makeZone(2, "bedroom", airtouch.ZoneOff, 20, 17)},
		}}
		sender := fakeSlackSender{}
		c := New(&device, testConfiguration("bedroom"), &sender, "notifications", nil, logger)

		_, err := c.RunCycle(context.Background(), Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{"notifications", "notifications"}, sender.channels)
	})

	t.Run("channel override", func(t *testing.T) {
		device := fakeDevice{aircon: airtouch.Aircon{
			Power: airtouch.PowerOff,
			Zones: []airtouch.Zone{makeZone(2, "bedroom", airtouch.ZoneOff, 20, 17)},
		}}
		sender := fakeSlackSender{}
		c := New(&device, testConfiguration("bedroom"), &sender, "notifications", nil, logger)

		_, err := c.RunCycle(context.Background(), Options{NotifyChannel: "alerts"})
		require.NoError(t, err)
		assert.Equal(t, []string{"alerts", "alerts"}, sender.channels)
	})

	t.Run("slack failure does not abort the cycle", func(t *testing.T) {
		device := fakeDevice{aircon: airtouch.Aircon{
			Power: airtouch.PowerOff,
			Zones: []airtouch.Zone{makeZone(2, "bedroom", airtouch.ZoneOff, 20, 17)},
		}}
		sender := fakeSlackSender{err: errors.New("rate limited")}
		c := New(&device, testConfiguration("bedroom"), &sender, "notifications", nil, logger)

		decision, err := c.RunCycle(context.Background(), Options{})
		require.NoError(t, err)
		assert.Equal(t, PowerActionOn, decision.Power)
		assert.Equal(t, []string{"zone 2=true", "power=true"}, device.commands)
	})
}

type fakeSlackSender struct {
	lock     sync.Mutex
	channels []string
	err      error
}

func (f *fakeSlackSender) PostMessage(channelID string, _ ...slack.MsgOption) (string, string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.err != nil {
		return "", "", f.err
	}
	f.channels = append(f.channels, channelID)
	return channelID, "", nil
}

func TestController_RunCycle_Metrics(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	device := fakeDevice{aircon: airtouch.Aircon{
		Power: airtouch.PowerOff,
		Zones: []airtouch.Zone{makeZone(2, "bedroom", airtouch.ZoneOff, 20, 17)},
	}}
	metrics := NewMetrics()
	c := New(&device, testConfiguration("bedroom"), nil, "", metrics, logger)

	_, err := c.RunCycle(context.Background(), Options{})
	require.NoError(t, err)

	ch := make(chan prometheus.Metric, 16)
	metrics.Collect(ch)
	close(ch)
	var count int
	for range ch {
		count++
	}
	assert.Equal(t, 3, count)
}
