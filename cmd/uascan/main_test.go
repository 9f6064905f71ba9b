// Copyright 2021 Converter Systems LLC. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/awcullen/uacore/internal/plc"
	"github.com/awcullen/uacore/internal/report"
	"github.com/awcullen/uacore/server"
	"github.com/awcullen/uacore/ua"
	"gotest.tools/assert"
)

var endpointURL string

func TestMain(m *testing.M) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	endpointURL = "opc.tcp://" + l.Addr().String()
	srv, err := server.New(endpointURL)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	p, err := plc.New(srv.NamespaceManager(), plc.WithGenerator(plc.NewRandomGenerator(1)))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := p.Update(time.Now()); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	go srv.Serve(l)
	res := m.Run()
	srv.Close()
	os.Exit(res)
}

// execute runs the command line against the test server and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(append(args, "--endpoint", endpointURL))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestScanCommand(t *testing.T) {
	name := filepath.Join(t.TempDir(), "scan_results.json")
	out, err := execute(t, "scan", "--output", name)
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(out, "OPC UA SERVER SCAN RESULTS"), out)
	assert.Assert(t, strings.Contains(out, "RestartPLC (ns=2;s=PLC_System.RestartPLC)"), out)

	b, err := os.ReadFile(name)
	assert.NilError(t, err)
	var r report.Report
	assert.NilError(t, json.Unmarshal(b, &r))
	// 10 of each sensor and setpoint, 10 motors, 20 switches, 4 status variables
	assert.Equal(t, plcVariables(r), 74)
	assert.Equal(t, len(r.Methods), 1)
}

// plcVariables counts the variables below PLC_System. The variables of the Server object are scanned too.
func plcVariables(r report.Report) int {
	n := 0
	for _, v := range r.Variables {
		if strings.HasPrefix(v.Path, "/Objects/PLC_System/") {
			n++
		}
	}
	return n
}

func TestCallCommand(t *testing.T) {
	out, err := execute(t, "call", "--object", "ns=2;s=PLC_System", "--method", "RestartPLC", "--arg", "Boolean:false")
	assert.NilError(t, err)
	assert.Equal(t, out, "output 0: PLC restart cancelled [String]\n")
}

func TestWriteCommand(t *testing.T) {
	out, err := execute(t, "write", "--node", "ns=2;s=PLC_System.Setpoints.Setpoint_09", "--value", "321")
	assert.NilError(t, err)
	assert.Equal(t, out, "ns=2;s=PLC_System.Setpoints.Setpoint_09: 321 [Double]\n")

	_, err = execute(t, "write", "--node", "ns=2;s=PLC_System.System_Status.Error_Count", "--value", "1")
	assert.Equal(t, ua.KindOf(err), ua.KindNotWritable)
}

func TestBrowseCommand(t *testing.T) {
	out, err := execute(t, "browse", "--node", "ns=2;s=PLC_System.System_Status")
	assert.NilError(t, err)
	assert.Assert(t, strings.HasPrefix(out, "System_Status/ (ns=2;s=PLC_System.System_Status)\n"), out)
	assert.Assert(t, strings.Contains(out, "  Error_Count [UInt32, r] (ns=2;s=PLC_System.System_Status.Error_Count)\n"), out)
}

func TestParseArgument(t *testing.T) {
	v, err := parseArgument("Boolean:true")
	assert.NilError(t, err)
	assert.Equal(t, v.Value(), true)

	v, err = parseArgument("String:a:b")
	assert.NilError(t, err)
	assert.Equal(t, v.Value(), "a:b")

	_, err = parseArgument("true")
	assert.ErrorContains(t, err, "not of the form Type:value")

	_, err = parseArgument("Decimal:1")
	assert.Equal(t, ua.KindOf(err), ua.KindTypeMismatch)
}

func TestParseNodeIDs(t *testing.T) {
	ids, err := parseNodeIDs(defaultMonitoredNodes)
	assert.NilError(t, err)
	assert.Equal(t, len(ids), 8)
	assert.Equal(t, ids[7].String(), "ns=2;s=PLC_System.System_Status.Error_Count")

	_, err = parseNodeIDs([]string{"ns=x;s=A"})
	assert.Equal(t, ua.KindOf(err), ua.KindNodeNotFound)
}
