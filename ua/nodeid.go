// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua

import (
	"fmt"
	"strconv"
	"strings"
)

// IDType is the kind of identifier held by a NodeID.
type IDType byte

// IDTypes
const (
	IDTypeNumeric IDType = iota
	IDTypeString
)

// NodeID identifies a Node. NodeIDs are comparable and may be used as map keys.
type NodeID struct {
	namespaceIndex uint16
	idType         IDType
	nid            uint32
	sid            string
}

// NewNodeIDNumeric constructs a new NodeID of numeric type.
func NewNodeIDNumeric(namespaceIndex uint16, identifier uint32) NodeID {
	return NodeID{namespaceIndex, IDTypeNumeric, identifier, ""}
}

// NewNodeIDString constructs a new NodeID of string type.
func NewNodeIDString(namespaceIndex uint16, identifier string) NodeID {
	return NodeID{namespaceIndex, IDTypeString, 0, identifier}
}

// NamespaceIndex returns the namespace index.
func (n NodeID) NamespaceIndex() uint16 {
	return n.namespaceIndex
}

// IDType returns the identifier type.
func (n NodeID) IDType() IDType {
	return n.idType
}

// Identifier returns the identifier, either uint32 or string.
func (n NodeID) Identifier() interface{} {
	if n.idType == IDTypeString {
		return n.sid
	}
	return n.nid
}

// NilNodeID is the nil value.
var NilNodeID = NodeID{}

// IsNil returns true if the nodeId is nil
func (n NodeID) IsNil() bool {
	if n.namespaceIndex > 0 {
		return false
	}
	switch n.idType {
	case IDTypeNumeric:
		return n.nid == 0
	case IDTypeString:
		return len(n.sid) == 0
	}
	return false
}

// ParseNodeID returns a NodeID from a string representation.
//   - ParseNodeID("i=85") // integer, assumes ns=0
//   - ParseNodeID("ns=2;s=Temp0") // string
//
// Malformed text returns NilNodeID.
func ParseNodeID(s string) NodeID {
	var ns uint64
	var err error
	if strings.HasPrefix(s, "ns=") {
		var pos = strings.Index(s, ";")
		if pos == -1 {
			return NilNodeID
		}
		ns, err = strconv.ParseUint(s[3:pos], 10, 16)
		if err != nil {
			return NilNodeID
		}
		s = s[pos+1:]
	}
	switch {
	case strings.HasPrefix(s, "i="):
		var id, err = strconv.ParseUint(s[2:], 10, 32)
		if err != nil {
			return NilNodeID
		}
		return NewNodeIDNumeric(uint16(ns), uint32(id))
	case strings.HasPrefix(s, "s="):
		if len(s) == 2 {
			return NilNodeID
		}
		return NewNodeIDString(uint16(ns), s[2:])
	}
	return NilNodeID
}

// String returns a string representation of the NodeID, e.g. "ns=2;s=Temp0"
func (n NodeID) String() string {
	var id string
	switch n.idType {
	case IDTypeNumeric:
		id = fmt.Sprintf("i=%d", n.nid)
	case IDTypeString:
		id = fmt.Sprintf("s=%s", n.sid)
	default:
		return ""
	}
	if n.namespaceIndex > 0 {
		return fmt.Sprintf("ns=%d;%s", n.namespaceIndex, id)
	}
	return id
}

// MarshalText returns the string representation of the NodeID.
func (n NodeID) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText parses the string representation of a NodeID.
func (n *NodeID) UnmarshalText(text []byte) error {
	id := ParseNodeID(string(text))
	if id.IsNil() && len(text) > 0 && string(text) != "i=0" {
		return BadNodeIDInvalid
	}
	*n = id
	return nil
}
