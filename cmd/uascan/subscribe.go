// Copyright 2021 Converter Systems LLC. All rights reserved.

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/awcullen/uacore/internal/forward"
	"github.com/awcullen/uacore/ua"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var subscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Print changes of the value of variables until Ctrl-C",
	Long: `Print changes of the value of variables until Ctrl-C. Without --node the status and a
few sensors of the simulated PLC are watched. With --nats every change is also published
to <prefix>.data.<node id>.

Examples:
  uascan subscribe
  uascan subscribe -n "ns=2;s=PLC_System.Setpoints.Setpoint_00" -i 500
  uascan subscribe --nats nats://localhost:4222 --prefix plant1`,
	RunE: runSubscribe,
}

func init() {
	subscribeCmd.Flags().StringArrayP("node", "n", nil, "node id of a variable (repeatable)")
	subscribeCmd.Flags().Float64P("interval", "i", 1000, "publishing interval in milliseconds")
	subscribeCmd.Flags().String("nats", "", "url of a NATS server to forward the changes to")
	subscribeCmd.Flags().String("prefix", forward.DefaultPrefix, "first token of the NATS subjects")
	viper.BindPFlag("subscribe.nats", subscribeCmd.Flags().Lookup("nats"))
	viper.BindPFlag("subscribe.prefix", subscribeCmd.Flags().Lookup("prefix"))
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx, stop := signalContext()
	defer stop()

	ss, _ := cmd.Flags().GetStringArray("node")
	if len(ss) == 0 {
		ss = defaultMonitoredNodes
	}
	ids, err := parseNodeIDs(ss)
	if err != nil {
		return err
	}
	interval, _ := cmd.Flags().GetFloat64("interval")

	var fwd *forward.Forwarder
	if url := viper.GetString("subscribe.nats"); url != "" {
		nc, err := forward.Connect(url, logger)
		if err != nil {
			return err
		}
		defer nc.Drain()
		fwd = forward.New(nc, viper.GetString("subscribe.prefix"), logger)
	}

	c, err := dial(ctx, logger)
	if err != nil {
		return err
	}
	defer closeClient(c)

	out := cmd.OutOrStdout()
	var mu sync.Mutex
	sub, err := c.Subscribe(ctx, ids, interval, func(n ua.MonitoredItemNotification) {
		mu.Lock()
		fmt.Fprintf(out, "%s %s: %s\n", n.Value.SourceTimestamp.Local().Format(time.DateTime), n.NodeID, formatValue(n.Value))
		mu.Unlock()
		if fwd != nil {
			fwd.Forward(n)
		}
	})
	if err != nil {
		return errors.Wrap(err, "error subscribing")
	}
	logger.Info().Int("items", len(ids)).Float64("interval", sub.PublishingInterval()).Msg("Monitoring. Press Ctrl-C to exit...")

	select {
	case <-ctx.Done():
		if fwd != nil {
			logger.Info().Uint64("published", fwd.Published()).Uint64("failed", fwd.Failed()).Msg("Forwarded notifications.")
		}
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		return sub.Delete(ctx)
	case <-sub.Done():
		return errors.Wrap(sub.Err(), "subscription ended")
	case <-c.Done():
		return errors.Wrap(c.Err(), "session ended")
	}
}
