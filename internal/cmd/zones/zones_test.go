package zones

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbyrne/airtouch3-controller/pkg/airtouch"
)

type fakeDevice struct {
	aircon airtouch.Aircon
	err    error
}

func (f fakeDevice) Update(_ context.Context, _ bool) (airtouch.Aircon, error) {
	return f.aircon, f.err
}

func TestShowZones(t *testing.T) {
	livingTemp := 23.5
	device := fakeDevice{aircon: airtouch.Aircon{
		Name:    "AC",
		Power:   airtouch.PowerOn,
		Mode:    airtouch.ModeCool,
		FanMode: airtouch.FanAuto,
		Zones: []airtouch.Zone{
			{
				ID:                 0,
				Name:               "living",
				Status:             airtouch.ZoneOn,
				DesiredTemperature: 22,
				FanValue:           80,
				Sensors:            []airtouch.Sensor{{ID: 0, Temperature: &livingTemp}},
			},
			{ID: 1, Name: "garage", Status: airtouch.ZoneOff, FanValue: 100},
		},
	}}

	var out bytes.Buffer
	require.NoError(t, ShowZones(context.Background(), device, &out))

	want := `AC: on (mode: cool, fan: auto)
ID  ZONE                 STATE  DAMPER TARGET   TEMP BATTERY
0   living               on        80%    22°  23.5° ok
1   garage               off      100%      -      - -
`
	assert.Equal(t, want, out.String())
}

func TestShowZones_Error(t *testing.T) {
	device := fakeDevice{err: errors.New("device unreachable")}
	var out bytes.Buffer
	assert.Error(t, ShowZones(context.Background(), device, &out))
}
