package smartcontrol

import (
	"log/slog"
)

// ZoneAction is the action taken on one zone during a control cycle
type ZoneAction int

const (
	ZoneActionNone ZoneAction = iota
	ZoneActionOff
	ZoneActionOn
	ZoneActionSetDamper
)

var zoneActionNames = []string{"none", "zone off", "zone on", "set damper"}

func (a ZoneAction) String() string {
	if a >= 0 && int(a) < len(zoneActionNames) {
		return zoneActionNames[a]
	}
	return "unknown"
}

// PowerAction is the action taken on the AC unit during a control cycle
type PowerAction int

const (
	PowerActionNone PowerAction = iota
	PowerActionOff
	PowerActionOn
)

var powerActionNames = []string{"none", "power off", "power on"}

func (a PowerAction) String() string {
	if a >= 0 && int(a) < len(powerActionNames) {
		return powerActionNames[a]
	}
	return "unknown"
}

// ZoneDecision records the action taken on one zone and why
type ZoneDecision struct {
	ZoneID   int
	ZoneName string
	Action   ZoneAction
	Damper   int
	Reason   string
}

// Decision records all actions taken during one control cycle. It is rebuilt
// from scratch every cycle from fresh device state and not persisted.
type Decision struct {
	Zones       []ZoneDecision
	Power       PowerAction
	PowerReason string
}

var _ slog.LogValuer = Decision{}

func (d Decision) LogValue() slog.Value {
	zones := make([]slog.Attr, 0, len(d.Zones))
	for _, zone := range d.Zones {
		if zone.Action == ZoneActionNone {
			continue
		}
		zones = append(zones, slog.Group(zone.ZoneName,
			slog.String("action", zone.Action.String()),
			slog.String("reason", zone.Reason),
		))
	}
	return slog.GroupValue(
		slog.Attr{Key: "zones", Value: slog.GroupValue(zones...)},
		slog.String("power", d.Power.String()),
		slog.String("reason", d.PowerReason),
	)
}
