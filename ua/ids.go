// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua

// Well-known node ids of namespace 0.
var (
	ObjectIDRootFolder                                    = NewNodeIDNumeric(0, 84)
	ObjectIDObjectsFolder                                 = NewNodeIDNumeric(0, 85)
	ObjectTypeIDBaseObjectType                            = NewNodeIDNumeric(0, 58)
	ObjectTypeIDFolderType                                = NewNodeIDNumeric(0, 61)
	VariableTypeIDBaseDataVariableType                    = NewNodeIDNumeric(0, 63)
	ObjectIDServer                                        = NewNodeIDNumeric(0, 2253)
	VariableIDServerServerStatus                          = NewNodeIDNumeric(0, 2256)
	VariableIDServerServerStatusStartTime                 = NewNodeIDNumeric(0, 2257)
	VariableIDServerServerStatusCurrentTime               = NewNodeIDNumeric(0, 2258)
	VariableIDServerServerStatusState                     = NewNodeIDNumeric(0, 2259)
	VariableIDServerServerStatusBuildInfo                 = NewNodeIDNumeric(0, 2260)
	VariableIDServerServerStatusBuildInfoProductName      = NewNodeIDNumeric(0, 2261)
	VariableIDServerServerStatusBuildInfoProductURI       = NewNodeIDNumeric(0, 2262)
	VariableIDServerServerStatusBuildInfoManufacturerName = NewNodeIDNumeric(0, 2263)
	VariableIDServerServerStatusBuildInfoSoftwareVersion  = NewNodeIDNumeric(0, 2264)
)

// ServerState enumeration.
type ServerState int32

// ServerState enumeration.
const (
	ServerStateRunning  ServerState = 0
	ServerStateFailed   ServerState = 1
	ServerStateShutdown ServerState = 4
	ServerStateUnknown  ServerState = 7
)

// String returns enumeration value as string.
func (e ServerState) String() string {
	switch e {
	case ServerStateRunning:
		return "Running"
	case ServerStateFailed:
		return "Failed"
	case ServerStateShutdown:
		return "Shutdown"
	case ServerStateUnknown:
		return "Unknown"
	default:
		return "Unknown"
	}
}

// BuildInfo describes the software running the server.
type BuildInfo struct {
	ProductURI       string `json:"productUri,omitempty" yaml:"productUri,omitempty"`
	ManufacturerName string `json:"manufacturerName,omitempty" yaml:"manufacturerName,omitempty"`
	ProductName      string `json:"productName,omitempty" yaml:"productName,omitempty"`
	SoftwareVersion  string `json:"softwareVersion,omitempty" yaml:"softwareVersion,omitempty"`
}
