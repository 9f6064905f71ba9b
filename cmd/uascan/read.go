// Copyright 2021 Converter Systems LLC. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read the value of variables",
	Long: `Read the value of variables. Each value is printed with its type and source timestamp.

Examples:
  uascan read -n "ns=2;s=PLC_System.System_Status.Error_Count"
  uascan read -n "ns=2;s=PLC_System.Setpoints.Setpoint_00" -n "ns=2;s=PLC_System.Setpoints.Setpoint_01"`,
	RunE: runRead,
}

func init() {
	readCmd.Flags().StringArrayP("node", "n", nil, "node id of a variable (repeatable)")
	readCmd.MarkFlagRequired("node")
}

func runRead(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx, stop := signalContext()
	defer stop()

	ss, _ := cmd.Flags().GetStringArray("node")
	ids, err := parseNodeIDs(ss)
	if err != nil {
		return err
	}

	c, err := dial(ctx, logger)
	if err != nil {
		return err
	}
	defer closeClient(c)

	out := cmd.OutOrStdout()
	for _, id := range ids {
		dv, err := c.ReadValue(ctx, id)
		if err != nil {
			fmt.Fprintf(out, "%s: %s\n", id, err)
			continue
		}
		fmt.Fprintf(out, "%s: %s [%s] %s\n", id, formatValue(dv), dv.Value.Type(), dv.SourceTimestamp.Format(time.RFC3339))
	}
	return nil
}
