// Copyright 2021 Converter Systems LLC. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/awcullen/uacore/client"
	"github.com/awcullen/uacore/ua"
	"github.com/spf13/cobra"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Print the tree of nodes below a node",
	Long: `Print the tree of nodes below a node.

Examples:
  uascan browse
  uascan browse -n "ns=2;s=PLC_System.System_Status"`,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringP("node", "n", "i=85", "node id of the root")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx, stop := signalContext()
	defer stop()

	s, _ := cmd.Flags().GetString("node")
	root, err := parseNodeID(s)
	if err != nil {
		return err
	}

	c, err := dial(ctx, logger)
	if err != nil {
		return err
	}
	defer closeClient(c)

	tree, err := c.BrowseAll(ctx, root)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	depth := strings.Count(tree.Path, "/")
	tree.Walk(func(d *client.NodeDescriptor) {
		indent := strings.Repeat("  ", strings.Count(d.Path, "/")-depth)
		switch {
		case d.IsFolder || len(d.Children) > 0:
			fmt.Fprintf(out, "%s%s/ (%s)\n", indent, d.DisplayName, d.NodeID)
		case d.NodeClass == ua.NodeClassVariable:
			access := "r"
			if d.IsWritable() {
				access = "rw"
			}
			fmt.Fprintf(out, "%s%s [%s, %s] (%s)\n", indent, d.DisplayName, d.DataType, access, d.NodeID)
		default:
			fmt.Fprintf(out, "%s%s <%s> (%s)\n", indent, d.DisplayName, d.NodeClass, d.NodeID)
		}
	})
	return nil
}
