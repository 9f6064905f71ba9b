// Copyright 2021 Converter Systems LLC. All rights reserved.

// Command uascan scans, reads, writes and monitors the nodes of a server.
package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "uascan",
	Short: "Scanner for OPC UA servers",
	Long: `Scans, reads, writes and monitors the nodes of an OPC UA server.

Examples:
  uascan scan -o scan_results.json
  uascan browse -n "ns=2;s=PLC_System"
  uascan read -n "ns=2;s=PLC_System.System_Status.Error_Count"
  uascan write -n "ns=2;s=PLC_System.Setpoints.Setpoint_00" --value 250
  uascan call -o "ns=2;s=PLC_System" -m RestartPLC -a Boolean:true
  uascan subscribe --nats nats://localhost:4222`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringP("endpoint", "e", "opc.tcp://localhost:4840/freeopcua/server/", "endpoint url")
	flags.Uint32P("timeout", "t", 5000, "request timeout in milliseconds")
	flags.Duration("keep-alive", 0, "keep-alive interval (0 uses the default)")
	flags.StringP("user", "u", "", "user name (empty for an anonymous session)")
	flags.StringP("password", "p", "", "password")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	for _, name := range []string{"endpoint", "timeout", "keep-alive", "user", "password", "log-level"} {
		viper.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(subscribeCmd)
}

func initConfig() {
	viper.SetEnvPrefix("UASCAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
