// Package run implements the airtouch3 run command: a single smart control
// cycle, for use from scripts or a crontab.
package run

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/clambin/go-common/charmer"
	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tbyrne/airtouch3-controller/internal/cmd/config"
	"github.com/tbyrne/airtouch3-controller/internal/smartcontrol"
	"github.com/tbyrne/airtouch3-controller/internal/smartcontrol/notifier"
)

var (
	Cmd = cobra.Command{
		Use:   "run",
		Short: "Run one smart control cycle",
		RunE:  runCycle,
	}

	args = charmer.Arguments{
		"channel": {Default: "", Help: "Override the notification channel"},
		"host":    {Default: "", Help: "Override the AirTouch host"},
	}
)

func init() {
	_ = charmer.SetPersistentFlags(&Cmd, viper.GetViper(), args)
}

func runCycle(cmd *cobra.Command, _ []string) error {
	v := viper.GetViper()
	logger := config.Logger(v)

	if host := v.GetString("host"); host != "" {
		v.Set("airtouch.host", host)
	}
	device, err := config.Device(v)
	if err != nil {
		return err
	}
	cfg, found, err := config.SmartControl(v, logger)
	if err != nil {
		return err
	}
	if !found {
		return errors.New("no smart control configuration found")
	}

	var sender notifier.SlackSender
	if token := v.GetString("slack.token"); token != "" {
		sender = slack.New(token)
	}

	c := smartcontrol.New(device, cfg, sender, v.GetString("slack.channel"), nil, logger)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	decision, err := c.RunCycle(ctx, smartcontrol.Options{NotifyChannel: v.GetString("channel")})
	if err != nil {
		return err
	}
	writeDecision(decision, cmd.OutOrStdout())
	return nil
}

func writeDecision(decision smartcontrol.Decision, w io.Writer) {
	for _, zone := range decision.Zones {
		if zone.Action == smartcontrol.ZoneActionNone {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s: %s (%s)\n", zone.ZoneName, zone.Action, zone.Reason)
	}
	_, _ = fmt.Fprintf(w, "ac: %s (%s)\n", decision.Power, decision.PowerReason)
}
