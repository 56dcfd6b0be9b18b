package poller

import (
	"log/slog"
	"time"

	"github.com/tbyrne/airtouch3-controller/pkg/airtouch"
)

// Update is a point-in-time snapshot of the AirTouch 3 unit's state
type Update struct {
	Aircon    airtouch.Aircon
	Timestamp time.Time
}

// GetZoneID returns the ID of the zone with the given name
func (update Update) GetZoneID(name string) (int, bool) {
	zone, ok := update.Aircon.GetZoneByName(name)
	return zone.ID, ok
}

var _ slog.LogValuer = Update{}

func (update Update) LogValue() slog.Value {
	zones := make([]slog.Attr, 0, len(update.Aircon.Zones))
	for _, zone := range update.Aircon.Zones {
		attribs := []any{
			slog.Int("id", zone.ID),
			slog.Bool("on", zone.IsOn()),
			slog.Int("damper", zone.FanValue),
		}
		if temperature, ok := zone.Temperature(); ok {
			attribs = append(attribs, slog.Float64("temperature", temperature))
		}
		zones = append(zones, slog.Group(zone.Name, attribs...))
	}
	power := "off"
	if update.Aircon.IsOn() {
		power = "on"
	}
	return slog.GroupValue(
		slog.String("power", power),
		slog.String("mode", update.Aircon.Mode.String()),
		slog.Attr{Key: "zones", Value: slog.GroupValue(zones...)},
	)
}
