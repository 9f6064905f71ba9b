// Copyright 2021 Converter Systems LLC. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/awcullen/uacore/client"
	"github.com/awcullen/uacore/ua"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// defaultMonitoredNodes are watched by subscribe when no node is given.
var defaultMonitoredNodes = []string{
	"ns=2;s=PLC_System.Temperature_Sensors.Temperature_Sensor_00",
	"ns=2;s=PLC_System.Temperature_Sensors.Temperature_Sensor_01",
	"ns=2;s=PLC_System.Pressure_Sensors.Pressure_Sensor_00",
	"ns=2;s=PLC_System.Flow_Meters.Flow_Meter_00",
	"ns=2;s=PLC_System.Motor_Controls.Motor_00_Running",
	"ns=2;s=PLC_System.System_Status.PLC_Running",
	"ns=2;s=PLC_System.System_Status.Communication_OK",
	"ns=2;s=PLC_System.System_Status.Error_Count",
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		level = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(level).With().Timestamp().Logger()
}

// signalContext returns a context that is done on Ctrl-C.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// dial opens a session with the options from flags, env and config.
func dial(ctx context.Context, logger zerolog.Logger) (*client.Client, error) {
	opts := []client.Option{
		client.WithApplicationName("uascan"),
		client.WithTimeoutHint(viper.GetUint32("timeout")),
		client.WithConnectTimeout(int64(viper.GetUint32("timeout"))),
		client.WithLogger(logger),
	}
	if d := viper.GetDuration("keep-alive"); d > 0 {
		opts = append(opts, client.WithKeepAliveInterval(d))
	}
	if user := viper.GetString("user"); user != "" {
		opts = append(opts, client.WithUserNameIdentity(user, viper.GetString("password")))
	}
	endpoint := viper.GetString("endpoint")
	c, err := client.Dial(ctx, endpoint, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "error connecting to %s", endpoint)
	}
	return c, nil
}

// closeTimeout bounds closing the session after the command context is done.
const closeTimeout = 5 * time.Second

// closeClient closes the session, even when the command context is done.
func closeClient(c *client.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	c.Close(ctx)
}

// parseNodeID returns the node id or an error for malformed text.
func parseNodeID(s string) (ua.NodeID, error) {
	id := ua.ParseNodeID(s)
	if id.IsNil() {
		return ua.NilNodeID, errors.Wrapf(ua.BadNodeIDInvalid, "node id '%s'", s)
	}
	return id, nil
}

func parseNodeIDs(ss []string) ([]ua.NodeID, error) {
	ids := make([]ua.NodeID, len(ss))
	for i, s := range ss {
		id, err := parseNodeID(s)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// parseArgument parses a method argument of the form Type:value, e.g. Boolean:true.
func parseArgument(s string) (ua.Variant, error) {
	pos := strings.Index(s, ":")
	if pos < 0 {
		return ua.NilVariant, errors.Errorf("argument '%s' is not of the form Type:value", s)
	}
	t, err := ua.ParseVariantType(s[:pos])
	if err != nil {
		return ua.NilVariant, errors.Wrapf(err, "argument '%s'", s)
	}
	return ua.ParseVariant(t, s[pos+1:])
}

// formatValue returns the value, or the status when it is not good.
func formatValue(dv ua.DataValue) string {
	if !dv.StatusCode.IsGood() {
		return dv.StatusCode.Error()
	}
	return dv.Value.String()
}
