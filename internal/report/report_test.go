// Copyright 2021 Converter Systems LLC. All rights reserved.

package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/awcullen/uacore/client"
	"github.com/awcullen/uacore/ua"
	"gopkg.in/yaml.v3"
	"gotest.tools/assert"
)

var scanTime = time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

func testScanResult() *client.ScanResult {
	objects := &client.NodeDescriptor{
		NodeID:      ua.ObjectIDObjectsFolder,
		BrowseName:  ua.NewQualifiedName(0, "Objects"),
		DisplayName: "Objects",
		NodeClass:   ua.NodeClassObject,
		IsFolder:    true,
		Path:        "/Objects",
	}
	plc := &client.NodeDescriptor{
		NodeID:      ua.NewNodeIDString(2, "PLC_System"),
		BrowseName:  ua.NewQualifiedName(2, "PLC_System"),
		DisplayName: "PLC_System",
		NodeClass:   ua.NodeClassObject,
		Path:        "/Objects/PLC_System",
	}
	temp := &client.NodeDescriptor{
		NodeID:      ua.NewNodeIDString(2, "PLC_System.Temperature_Sensors.Temperature_Sensor_00"),
		BrowseName:  ua.NewQualifiedName(2, "Temperature_Sensor_00"),
		DisplayName: "Temperature_Sensor_00",
		NodeClass:   ua.NodeClassVariable,
		DataType:    ua.VariantTypeDouble,
		AccessLevel: ua.AccessLevelsCurrentRead | ua.AccessLevelsCurrentWrite,
		Path:        "/Objects/PLC_System/Temperature_Sensors/Temperature_Sensor_00",
		Value:       ua.NewDataValue(ua.NewVariantDouble(21.5), ua.Good, scanTime, scanTime),
	}
	errs := &client.NodeDescriptor{
		NodeID:      ua.NewNodeIDString(2, "PLC_System.System_Status.Error_Count"),
		BrowseName:  ua.NewQualifiedName(2, "Error_Count"),
		DisplayName: "Error_Count",
		NodeClass:   ua.NodeClassVariable,
		DataType:    ua.VariantTypeUInt32,
		AccessLevel: ua.AccessLevelsCurrentRead,
		Path:        "/Objects/PLC_System/System_Status/Error_Count",
		Value:       ua.NewDataValueStatus(ua.BadNotReadable, scanTime),
	}
	restart := &client.NodeDescriptor{
		NodeID:      ua.NewNodeIDString(2, "PLC_System.RestartPLC"),
		BrowseName:  ua.NewQualifiedName(2, "RestartPLC"),
		DisplayName: "RestartPLC",
		NodeClass:   ua.NodeClassMethod,
		Path:        "/Objects/PLC_System/RestartPLC",
	}
	return &client.ScanResult{
		Server: &client.ServerInfo{
			BuildInfo: ua.BuildInfo{ProductName: "plcsim", SoftwareVersion: "0.9.0"},
			State:     ua.ServerStateRunning,
			StartTime: scanTime.Add(-time.Hour),
		},
		Root:      objects,
		Objects:   []*client.NodeDescriptor{objects, plc},
		Variables: []*client.NodeDescriptor{temp, errs},
		Methods:   []*client.NodeDescriptor{restart},
	}
}

func TestNew(t *testing.T) {
	r := New("opc.tcp://localhost:4840", testScanResult(), scanTime)
	assert.Equal(t, r.Server.State, "Running")
	assert.Equal(t, len(r.Objects), 2)
	assert.Equal(t, len(r.Variables), 2)
	assert.Equal(t, len(r.Methods), 1)

	assert.Equal(t, r.Objects[0].Level, 0)
	assert.Equal(t, r.Objects[0].Folder, true)
	assert.Equal(t, r.Objects[1].Level, 1)
	assert.Equal(t, r.Methods[0].BrowseName, "2:RestartPLC")

	temp := r.Variables[0]
	assert.Equal(t, temp.Level, 3)
	assert.Equal(t, temp.Value, "21.5")
	assert.Equal(t, temp.DataType, "Double")
	assert.Equal(t, temp.Writable, true)
	assert.Equal(t, temp.NodeID, "ns=2;s=PLC_System.Temperature_Sensors.Temperature_Sensor_00")

	assert.Equal(t, r.Variables[1].Value, ua.BadNotReadable.Error())
	assert.Equal(t, r.Variables[1].Writable, false)
}

func TestEncodeJSON(t *testing.T) {
	r := New("opc.tcp://localhost:4840", testScanResult(), scanTime)
	b := &bytes.Buffer{}
	assert.NilError(t, r.Encode(b, FormatJSON))

	var m map[string]interface{}
	assert.NilError(t, json.Unmarshal(b.Bytes(), &m))
	assert.Equal(t, m["endpoint"], "opc.tcp://localhost:4840")
	assert.Equal(t, len(m["variables"].([]interface{})), 2)
	v := m["variables"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, v["display_name"], "Temperature_Sensor_00")
	assert.Equal(t, v["data_type"], "Double")
	info := m["server_info"].(map[string]interface{})
	assert.Equal(t, info["build_info"].(map[string]interface{})["productName"], "plcsim")
}

func TestEncodeYAML(t *testing.T) {
	r := New("opc.tcp://localhost:4840", testScanResult(), scanTime)
	b := &bytes.Buffer{}
	assert.NilError(t, r.Encode(b, FormatYAML))

	var got Report
	assert.NilError(t, yaml.Unmarshal(b.Bytes(), &got))
	assert.DeepEqual(t, got.Variables, r.Variables)
	assert.DeepEqual(t, got.Methods, r.Methods)
	assert.Equal(t, got.Server.BuildInfo.ProductName, "plcsim")
	assert.Assert(t, got.Timestamp.Equal(scanTime))
}

func TestEncodeText(t *testing.T) {
	r := New("opc.tcp://localhost:4840", testScanResult(), scanTime)
	b := &strings.Builder{}
	assert.NilError(t, r.Encode(b, FormatText))
	out := b.String()
	assert.Assert(t, strings.Contains(out, "OBJECTS (2):"), out)
	assert.Assert(t, strings.Contains(out, "\n  PLC_System (ns=2;s=PLC_System)\n"), out)
	assert.Assert(t, strings.Contains(out, "\n      Temperature_Sensor_00: 21.5 [Double]\n"), out)
	assert.Assert(t, strings.Contains(out, "METHODS (1):"), out)
}

func TestFormatOf(t *testing.T) {
	cases := map[string]Format{
		"scan.json":    FormatJSON,
		"scan.YAML":    FormatYAML,
		"out/scan.yml": FormatYAML,
		"scan.txt":     FormatText,
	}
	for name, want := range cases {
		got, err := FormatOf(name)
		assert.NilError(t, err, name)
		assert.Equal(t, got, want, name)
	}
	_, err := FormatOf("scan.xml")
	assert.ErrorContains(t, err, "unsupported report format")
}

func TestSave(t *testing.T) {
	r := New("opc.tcp://localhost:4840", testScanResult(), scanTime)
	name := filepath.Join(t.TempDir(), "scan_results.json")
	assert.NilError(t, r.Save(name))

	b, err := os.ReadFile(name)
	assert.NilError(t, err)
	var got Report
	assert.NilError(t, json.Unmarshal(b, &got))
	assert.DeepEqual(t, got.Objects, r.Objects)

	err = r.Save(filepath.Join(t.TempDir(), "scan_results.csv"))
	assert.ErrorContains(t, err, "unsupported report format")
}
