// Copyright 2021 Converter Systems LLC. All rights reserved.

package main

import (
	"fmt"

	"github.com/awcullen/uacore/ua"
	"github.com/spf13/cobra"
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Call a method of an object",
	Long: `Call a method of an object. The method is found by browse name among the children
of the object. Arguments are given as Type:value.

Examples:
  uascan call -o "ns=2;s=PLC_System" -m RestartPLC -a Boolean:true`,
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringP("object", "o", "ns=2;s=PLC_System", "node id of the object")
	callCmd.Flags().StringP("method", "m", "RestartPLC", "browse name of the method")
	callCmd.Flags().StringArrayP("arg", "a", nil, "input argument as Type:value (repeatable)")
}

func runCall(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx, stop := signalContext()
	defer stop()

	s, _ := cmd.Flags().GetString("object")
	objectID, err := parseNodeID(s)
	if err != nil {
		return err
	}
	method, _ := cmd.Flags().GetString("method")
	ss, _ := cmd.Flags().GetStringArray("arg")
	inputs := make([]ua.Variant, len(ss))
	for i, s := range ss {
		if inputs[i], err = parseArgument(s); err != nil {
			return err
		}
	}

	c, err := dial(ctx, logger)
	if err != nil {
		return err
	}
	defer closeClient(c)

	outputs, err := c.CallMethod(ctx, objectID, method, inputs...)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for i, v := range outputs {
		fmt.Fprintf(out, "output %d: %s [%s]\n", i, v, v.Type())
	}
	return nil
}
