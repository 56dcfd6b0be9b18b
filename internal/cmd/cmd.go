// Package cmd implements the airtouch3 command line interface
package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tbyrne/airtouch3-controller/internal/cmd/monitor"
	"github.com/tbyrne/airtouch3-controller/internal/cmd/run"
	"github.com/tbyrne/airtouch3-controller/internal/cmd/zones"
)

var (
	configFilename string
	RootCmd        = cobra.Command{
		Use:   "airtouch3",
		Short: "Smart controller for AirTouch 3 ducted air conditioning",
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&configFilename, "config", "", "Configuration file")
	RootCmd.PersistentFlags().Bool("debug", false, "Log debug messages")
	_ = viper.BindPFlag("debug", RootCmd.PersistentFlags().Lookup("debug"))

	RootCmd.AddCommand(&monitor.Cmd, &run.Cmd, &zones.Cmd)
}

func initConfig() {
	if configFilename != "" {
		viper.SetConfigFile(configFilename)
	} else {
		viper.AddConfigPath("/etc/airtouch3/")
		viper.AddConfigPath("$HOME/.airtouch3")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
	}

	viper.SetDefault("debug", false)
	viper.SetDefault("airtouch.host", "")
	viper.SetDefault("airtouch.port", 8899)
	viper.SetDefault("exporter.addr", ":9090")
	viper.SetDefault("health.addr", ":8080")
	viper.SetDefault("poller.interval", 30*time.Second)
	viper.SetDefault("smartcontrol.schedule", "*/5 * * * *")
	viper.SetDefault("slack.token", "")
	viper.SetDefault("slack.channel", "")

	viper.SetEnvPrefix("AIRTOUCH3")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		slog.Error("failed to read config file", "err", err)
		os.Exit(1)
	}
}
