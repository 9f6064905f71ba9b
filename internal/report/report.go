// Copyright 2021 Converter Systems LLC. All rights reserved.

// Package report renders the result of a scan of the address space.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/awcullen/uacore/client"
	"github.com/awcullen/uacore/ua"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Report is the scan of one server.
type Report struct {
	Endpoint  string     `json:"endpoint" yaml:"endpoint"`
	Timestamp time.Time  `json:"scan_timestamp" yaml:"scan_timestamp"`
	Server    ServerInfo `json:"server_info" yaml:"server_info"`
	Objects   []Node     `json:"objects" yaml:"objects"`
	Variables []Node     `json:"variables" yaml:"variables"`
	Methods   []Node     `json:"methods" yaml:"methods"`
}

// ServerInfo is the status of the server at the time of the scan.
type ServerInfo struct {
	State     string       `json:"server_state" yaml:"server_state"`
	StartTime time.Time    `json:"start_time" yaml:"start_time"`
	BuildInfo ua.BuildInfo `json:"build_info" yaml:"build_info"`
}

// Node is one node of the scan. Level is the depth below the root of the scan.
type Node struct {
	NodeID      string `json:"node_id" yaml:"node_id"`
	BrowseName  string `json:"browse_name" yaml:"browse_name"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	NodeClass   string `json:"node_class" yaml:"node_class"`
	Path        string `json:"path" yaml:"path"`
	Level       int    `json:"level" yaml:"level"`
	Folder      bool   `json:"folder,omitempty" yaml:"folder,omitempty"`
	Value       string `json:"value,omitempty" yaml:"value,omitempty"`
	DataType    string `json:"data_type,omitempty" yaml:"data_type,omitempty"`
	Writable    bool   `json:"writable,omitempty" yaml:"writable,omitempty"`
}

// New returns the report of the scan.
func New(endpoint string, res *client.ScanResult, timestamp time.Time) *Report {
	r := &Report{
		Endpoint:  endpoint,
		Timestamp: timestamp,
		Objects:   convert(res.Objects),
		Variables: convert(res.Variables),
		Methods:   convert(res.Methods),
	}
	if res.Server != nil {
		r.Server = ServerInfo{
			State:     res.Server.State.String(),
			StartTime: res.Server.StartTime,
			BuildInfo: res.Server.BuildInfo,
		}
	}
	return r
}

func convert(ds []*client.NodeDescriptor) []Node {
	nodes := make([]Node, 0, len(ds))
	for _, d := range ds {
		n := Node{
			NodeID:      d.NodeID.String(),
			BrowseName:  d.BrowseName.String(),
			DisplayName: d.DisplayName,
			NodeClass:   d.NodeClass.String(),
			Path:        d.Path,
			Level:       strings.Count(d.Path, "/") - 1,
			Folder:      d.IsFolder,
		}
		if d.NodeClass == ua.NodeClassVariable {
			n.DataType = d.DataType.String()
			n.Writable = d.IsWritable()
			if d.Value.StatusCode.IsGood() {
				n.Value = d.Value.Value.String()
			} else {
				n.Value = d.Value.StatusCode.Error()
			}
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// Format is an encoding of a report.
type Format string

// Formats of a report.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf returns the format for the extension of the file name.
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".txt":
		return FormatText, nil
	default:
		return "", errors.Errorf("unsupported report format '%s'", filepath.Ext(name))
	}
}

// Encode writes the report to w in the format.
func (r *Report) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case FormatText:
		return r.writeText(w)
	default:
		return errors.Errorf("unsupported report format '%s'", format)
	}
}

// Save writes the report to the file, in the format given by the extension of the name.
func (r *Report) Save(name string) error {
	format, err := FormatOf(name)
	if err != nil {
		return err
	}
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrap(err, "error creating report")
	}
	if err := r.Encode(f, format); err != nil {
		f.Close()
		return errors.Wrap(err, "error writing report")
	}
	return f.Close()
}

func (r *Report) writeText(w io.Writer) error {
	rule := strings.Repeat("=", 80)
	sep := strings.Repeat("-", 40)
	b := &strings.Builder{}
	fmt.Fprintf(b, "%s\nOPC UA SERVER SCAN RESULTS\n%s\n", rule, rule)
	fmt.Fprintf(b, "\nSERVER: %s %s (%s)\n", r.Server.BuildInfo.ProductName, r.Server.BuildInfo.SoftwareVersion, r.Server.State)

	fmt.Fprintf(b, "\nOBJECTS (%d):\n%s\n", len(r.Objects), sep)
	for _, n := range r.Objects {
		fmt.Fprintf(b, "%s%s (%s)\n", indent(n.Level), n.DisplayName, n.NodeID)
	}
	fmt.Fprintf(b, "\nVARIABLES (%d):\n%s\n", len(r.Variables), sep)
	for _, n := range r.Variables {
		fmt.Fprintf(b, "%s%s: %s [%s]\n", indent(n.Level), n.DisplayName, n.Value, n.DataType)
	}
	fmt.Fprintf(b, "\nMETHODS (%d):\n%s\n", len(r.Methods), sep)
	for _, n := range r.Methods {
		fmt.Fprintf(b, "%s%s (%s)\n", indent(n.Level), n.DisplayName, n.NodeID)
	}
	fmt.Fprintf(b, "\n%s\n", rule)
	_, err := io.WriteString(w, b.String())
	return err
}

func indent(level int) string {
	if level < 0 {
		level = 0
	}
	return strings.Repeat("  ", level)
}
