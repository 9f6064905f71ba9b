// Copyright 2021 Converter Systems LLC. All rights reserved.

package main

import (
	"fmt"

	"github.com/awcullen/uacore/ua"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Write the value of a variable",
	Long: `Write the value of a variable. Without --type the value is parsed as the type of
the current value of the variable.

Examples:
  uascan write -n "ns=2;s=PLC_System.Setpoints.Setpoint_00" --value 250
  uascan write -n "ns=2;s=PLC_System.Motor_Controls.Motor_00_Running" --value true -T Boolean`,
	RunE: runWrite,
}

func init() {
	writeCmd.Flags().StringP("node", "n", "", "node id of the variable")
	writeCmd.Flags().String("value", "", "value to write")
	writeCmd.Flags().StringP("type", "T", "", "type of the value: Boolean, Int32, UInt32, Double, String, DateTime, ...")
	writeCmd.MarkFlagRequired("node")
	writeCmd.MarkFlagRequired("value")
}

func runWrite(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx, stop := signalContext()
	defer stop()

	s, _ := cmd.Flags().GetString("node")
	id, err := parseNodeID(s)
	if err != nil {
		return err
	}
	text, _ := cmd.Flags().GetString("value")
	typeName, _ := cmd.Flags().GetString("type")

	c, err := dial(ctx, logger)
	if err != nil {
		return err
	}
	defer closeClient(c)

	var t ua.VariantType
	if typeName != "" {
		if t, err = ua.ParseVariantType(typeName); err != nil {
			return errors.Wrapf(err, "type '%s'", typeName)
		}
	} else {
		dv, err := c.ReadValue(ctx, id)
		if err != nil {
			return errors.Wrap(err, "error reading type of value")
		}
		t = dv.Value.Type()
	}
	v, err := ua.ParseVariant(t, text)
	if err != nil {
		return err
	}
	if err := c.WriteValue(ctx, id, v); err != nil {
		return errors.Wrapf(err, "error writing %s", id)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s [%s]\n", id, v, t)
	return nil
}
