// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"context"
	"sync"
	"time"

	"github.com/awcullen/uacore/ua"
)

// VariableNode is a Node class that holds a value. The value slot is guarded by the node's own lock.
type VariableNode struct {
	sync.RWMutex
	nodeID           ua.NodeID
	browseName       ua.QualifiedName
	displayName      ua.LocalizedText
	description      ua.LocalizedText
	value            ua.DataValue
	dataType         ua.VariantType
	accessLevel      byte
	readValueHandler func(context.Context) ua.DataValue
}

var _ Node = (*VariableNode)(nil)

// NewVariableNode constructs a new VariableNode. A dataType of VariantTypeNull accepts values of any type.
func NewVariableNode(nodeID ua.NodeID, browseName ua.QualifiedName, displayName ua.LocalizedText, description ua.LocalizedText, value ua.DataValue, dataType ua.VariantType, accessLevel byte) *VariableNode {
	return &VariableNode{
		nodeID:      nodeID,
		browseName:  browseName,
		displayName: displayName,
		description: description,
		value:       value,
		dataType:    dataType,
		accessLevel: accessLevel,
	}
}

// NodeID returns the NodeID attribute of this node.
func (n *VariableNode) NodeID() ua.NodeID {
	return n.nodeID
}

// NodeClass returns the NodeClass attribute of this node.
func (n *VariableNode) NodeClass() ua.NodeClass {
	return ua.NodeClassVariable
}

// BrowseName returns the BrowseName attribute of this node.
func (n *VariableNode) BrowseName() ua.QualifiedName {
	return n.browseName
}

// DisplayName returns the DisplayName attribute of this node.
func (n *VariableNode) DisplayName() ua.LocalizedText {
	return n.displayName
}

// Description returns the Description attribute of this node.
func (n *VariableNode) Description() ua.LocalizedText {
	return n.description
}

// TypeDefinition returns the type definition of this node.
func (n *VariableNode) TypeDefinition() ua.NodeID {
	return ua.VariableTypeIDBaseDataVariableType
}

// Value returns the value of the Variable.
func (n *VariableNode) Value() ua.DataValue {
	n.RLock()
	defer n.RUnlock()
	return n.value
}

// SetValue sets the value of the Variable, after checking the type of the value against the DataType.
func (n *VariableNode) SetValue(value ua.DataValue) error {
	if err := n.checkType(value.Value); err != nil {
		return err
	}
	n.Lock()
	n.value = value
	n.Unlock()
	return nil
}

// DataType returns the DataType attribute of this node.
func (n *VariableNode) DataType() ua.VariantType {
	return n.dataType
}

// AccessLevel returns the AccessLevel attribute of this node.
func (n *VariableNode) AccessLevel() byte {
	return n.accessLevel
}

// IsWritable returns true if clients may write the value.
func (n *VariableNode) IsWritable() bool {
	return n.accessLevel&ua.AccessLevelsCurrentWrite != 0
}

// IsAttributeIDValid returns true if attributeId is supported for the node.
func (n *VariableNode) IsAttributeIDValid(attributeID uint32) bool {
	switch attributeID {
	case ua.AttributeIDValue, ua.AttributeIDDataType, ua.AttributeIDAccessLevel:
		return true
	default:
		return isBaseAttributeID(attributeID)
	}
}

// SetReadValueHandler sets the ReadValueHandler of this node.
func (n *VariableNode) SetReadValueHandler(value func(context.Context) ua.DataValue) {
	n.Lock()
	n.readValueHandler = value
	n.Unlock()
}

// readValue returns the value from the handler, if set, or else the stored value.
func (n *VariableNode) readValue(ctx context.Context) ua.DataValue {
	n.RLock()
	h := n.readValueHandler
	v := n.value
	n.RUnlock()
	if h != nil {
		return h(ctx)
	}
	return v
}

// writeValue commits the value with the current time as source timestamp, after checking the type.
func (n *VariableNode) writeValue(value ua.Variant) error {
	if err := n.checkType(value); err != nil {
		return err
	}
	now := time.Now()
	n.Lock()
	n.value = ua.NewDataValue(value, ua.Good, now, now)
	n.Unlock()
	return nil
}

func (n *VariableNode) checkType(value ua.Variant) error {
	if n.dataType == ua.VariantTypeNull {
		return nil
	}
	if value.Type() != n.dataType {
		return ua.BadTypeMismatch
	}
	return nil
}
