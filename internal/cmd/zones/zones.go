// Package zones implements the airtouch3 zones command: it lists the zones
// and temperature sensors reported by the AirTouch 3 unit.
package zones

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tbyrne/airtouch3-controller/internal/cmd/config"
	"github.com/tbyrne/airtouch3-controller/pkg/airtouch"
)

var Cmd = cobra.Command{
	Use:   "zones",
	Short: "List the zones reported by the AirTouch 3 unit",
	RunE:  showZones,
}

type DeviceGetter interface {
	Update(ctx context.Context, force bool) (airtouch.Aircon, error)
}

func showZones(cmd *cobra.Command, _ []string) error {
	v := viper.GetViper()
	device, err := config.Device(v)
	if err != nil {
		return err
	}
	return ShowZones(cmd.Context(), device, cmd.OutOrStdout())
}

func ShowZones(ctx context.Context, device DeviceGetter, w io.Writer) error {
	aircon, err := device.Update(ctx, true)
	if err != nil {
		return fmt.Errorf("airtouch: %w", err)
	}
	writeZones(aircon, w)
	return nil
}

const formatString = "%-3s %-20s %-6s %6s %6s %6s %s\n"

func writeZones(aircon airtouch.Aircon, w io.Writer) {
	power := "off"
	if aircon.IsOn() {
		power = "on"
	}
	_, _ = fmt.Fprintf(w, "%s: %s (mode: %s, fan: %s)\n", aircon.Name, power, aircon.Mode, aircon.FanMode)
	_, _ = fmt.Fprintf(w, formatString, "ID", "ZONE", "STATE", "DAMPER", "TARGET", "TEMP", "BATTERY")
	for _, zone := range aircon.Zones {
		state := "off"
		if zone.IsOn() {
			state = "on"
		}
		target := "-"
		if zone.TemperatureControlled() {
			target = strconv.Itoa(zone.DesiredTemperature) + "°"
		}
		temperature := "-"
		if t, ok := zone.Temperature(); ok {
			temperature = fmt.Sprintf("%.1f°", t)
		}
		battery := "ok"
		for _, sensor := range zone.Sensors {
			if sensor.LowBattery {
				battery = "low"
			}
		}
		if len(zone.Sensors) == 0 {
			battery = "-"
		}
		_, _ = fmt.Fprintf(w, formatString, strconv.Itoa(zone.ID), zone.Name, state, strconv.Itoa(zone.FanValue)+"%", target, temperature, battery)
	}
}
