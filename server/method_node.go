// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"context"
	"sync"

	"github.com/awcullen/uacore/ua"
)

// CallMethodHandler is invoked with inputs that match the declared input arguments.
// It returns outputs that must match the declared output arguments.
type CallMethodHandler func(ctx context.Context, inputs []ua.Variant) ([]ua.Variant, error)

// MethodNode is a Node class that describes the syntax of a object's Method.
type MethodNode struct {
	sync.RWMutex
	nodeID            ua.NodeID
	browseName        ua.QualifiedName
	displayName       ua.LocalizedText
	description       ua.LocalizedText
	inputArguments    []ua.Argument
	outputArguments   []ua.Argument
	callMethodHandler CallMethodHandler
}

var _ Node = (*MethodNode)(nil)

// NewMethodNode constructs a new MethodNode.
func NewMethodNode(nodeID ua.NodeID, browseName ua.QualifiedName, displayName ua.LocalizedText, description ua.LocalizedText, inputArguments []ua.Argument, outputArguments []ua.Argument) *MethodNode {
	return &MethodNode{
		nodeID:          nodeID,
		browseName:      browseName,
		displayName:     displayName,
		description:     description,
		inputArguments:  inputArguments,
		outputArguments: outputArguments,
	}
}

// NodeID returns the NodeID attribute of this node.
func (n *MethodNode) NodeID() ua.NodeID {
	return n.nodeID
}

// NodeClass returns the NodeClass attribute of this node.
func (n *MethodNode) NodeClass() ua.NodeClass {
	return ua.NodeClassMethod
}

// BrowseName returns the BrowseName attribute of this node.
func (n *MethodNode) BrowseName() ua.QualifiedName {
	return n.browseName
}

// DisplayName returns the DisplayName attribute of this node.
func (n *MethodNode) DisplayName() ua.LocalizedText {
	return n.displayName
}

// Description returns the Description attribute of this node.
func (n *MethodNode) Description() ua.LocalizedText {
	return n.description
}

// TypeDefinition returns the type definition of this node.
func (n *MethodNode) TypeDefinition() ua.NodeID {
	return ua.NilNodeID
}

// InputArguments returns the declared input arguments.
func (n *MethodNode) InputArguments() []ua.Argument {
	return n.inputArguments
}

// OutputArguments returns the declared output arguments.
func (n *MethodNode) OutputArguments() []ua.Argument {
	return n.outputArguments
}

// IsAttributeIDValid returns true if attributeId is supported for the node.
func (n *MethodNode) IsAttributeIDValid(attributeID uint32) bool {
	return isBaseAttributeID(attributeID)
}

// SetCallMethodHandler sets the CallMethod of the node.
func (n *MethodNode) SetCallMethodHandler(value CallMethodHandler) {
	n.Lock()
	defer n.Unlock()
	n.callMethodHandler = value
}

// handler returns the CallMethod of the node.
func (n *MethodNode) handler() CallMethodHandler {
	n.RLock()
	defer n.RUnlock()
	return n.callMethodHandler
}
