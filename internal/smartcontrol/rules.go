package smartcontrol

import (
	"fmt"

	"github.com/tbyrne/airtouch3-controller/pkg/airtouch"
)

// zoneThresholdAction determines the on/off action for one controlled zone.
// soleActiveZone protects the last open zone: it stays on and the aggregate
// power rule shuts the unit down instead, so the system is never left running
// with zero airflow.
func zoneThresholdAction(zone airtouch.Zone, temperature float64, thresholds Thresholds, soleActiveZone bool) (ZoneAction, string) {
	desired := float64(zone.DesiredTemperature)
	switch {
	case temperature >= desired+float64(thresholds.High) && zone.IsOn():
		if soleActiveZone {
			return ZoneActionNone, "sole active zone at temperature; leaving on"
		}
		return ZoneActionOff, fmt.Sprintf("temperature (%.1f°) is %d° or more above target (%d°)", temperature, thresholds.High, zone.DesiredTemperature)
	case temperature <= desired-float64(thresholds.Low) && !zone.IsOn():
		return ZoneActionOn, fmt.Sprintf("temperature (%.1f°) is %d° or more below target (%d°)", temperature, thresholds.Low, zone.DesiredTemperature)
	}
	return ZoneActionNone, "within temperature band"
}

// damperTarget determines the damper percentage for one active zone.
// Boundaries are inclusive: at the set-point the damper moves to the low
// position, at set-point + High it closes fully.
func damperTarget(temperature float64, desired int, thresholds Thresholds, settings DamperSettings) int {
	switch {
	case temperature >= float64(desired+thresholds.High):
		return 0
	case temperature >= float64(desired):
		return settings.Low
	}
	return settings.High
}

// belowLowThreshold reports whether a zone is cold enough to trigger the
// aggregate power-on rule
func belowLowThreshold(temperature float64, desired int, thresholds Thresholds) bool {
	return temperature <= float64(desired-thresholds.Low)
}

// aggregatePowerAction determines the power action for the AC unit
// (threshold strategy). "off" strictly precedes "on": if both conditions hold
// in one cycle, the unit is switched off.
func aggregatePowerAction(acOn bool, activeCount int, allAboveThreshold, anyBelowThreshold bool) (PowerAction, string) {
	switch {
	case acOn && activeCount > 0 && allAboveThreshold:
		return PowerActionOff, "all active zones at or above temperature threshold"
	case !acOn && anyBelowThreshold:
		return PowerActionOn, "at least one controlled zone below temperature threshold"
	}
	return PowerActionNone, "no power change required"
}

// damperPowerAction determines the power action for the AC unit (damper
// strategy). In addition to the all-at-temperature trigger, the unit is
// switched off when the combined damper opening drops below minOpenRatio of
// the active zones' maximum. "off" strictly precedes "on".
func damperPowerAction(acOn bool, activeCount int, allAtTemperature bool, totalOpen int, minOpenRatio float64, anyBelowMinimum bool) (PowerAction, string) {
	switch {
	case acOn && activeCount > 0 && allAtTemperature:
		return PowerActionOff, "all active zones at or above temperature threshold"
	case acOn && activeCount > 0 && float64(totalOpen) < minOpenRatio*float64(activeCount*100):
		return PowerActionOff, "combined damper opening below minimum"
	case !acOn && anyBelowMinimum:
		return PowerActionOn, "at least one zone below temperature threshold"
	}
	return PowerActionNone, "no power change required"
}
