// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"github.com/awcullen/uacore/ua"
)

// ObjectNode is a Node class that describes an Object. Folders are objects of FolderType.
type ObjectNode struct {
	nodeID         ua.NodeID
	browseName     ua.QualifiedName
	displayName    ua.LocalizedText
	description    ua.LocalizedText
	typeDefinition ua.NodeID
}

var _ Node = (*ObjectNode)(nil)

// NewObjectNode constructs a new ObjectNode.
func NewObjectNode(nodeID ua.NodeID, browseName ua.QualifiedName, displayName ua.LocalizedText, description ua.LocalizedText, typeDefinition ua.NodeID) *ObjectNode {
	if typeDefinition.IsNil() {
		typeDefinition = ua.ObjectTypeIDBaseObjectType
	}
	return &ObjectNode{
		nodeID:         nodeID,
		browseName:     browseName,
		displayName:    displayName,
		description:    description,
		typeDefinition: typeDefinition,
	}
}

// NewFolderNode constructs a new ObjectNode of FolderType.
func NewFolderNode(nodeID ua.NodeID, browseName ua.QualifiedName, displayName ua.LocalizedText, description ua.LocalizedText) *ObjectNode {
	return NewObjectNode(nodeID, browseName, displayName, description, ua.ObjectTypeIDFolderType)
}

// NodeID returns the NodeID attribute of this node.
func (n *ObjectNode) NodeID() ua.NodeID {
	return n.nodeID
}

// NodeClass returns the NodeClass attribute of this node.
func (n *ObjectNode) NodeClass() ua.NodeClass {
	return ua.NodeClassObject
}

// BrowseName returns the BrowseName attribute of this node.
func (n *ObjectNode) BrowseName() ua.QualifiedName {
	return n.browseName
}

// DisplayName returns the DisplayName attribute of this node.
func (n *ObjectNode) DisplayName() ua.LocalizedText {
	return n.displayName
}

// Description returns the Description attribute of this node.
func (n *ObjectNode) Description() ua.LocalizedText {
	return n.description
}

// TypeDefinition returns the type definition of this node.
func (n *ObjectNode) TypeDefinition() ua.NodeID {
	return n.typeDefinition
}

// IsFolder returns true if the type definition of this node is FolderType.
func (n *ObjectNode) IsFolder() bool {
	return n.typeDefinition == ua.ObjectTypeIDFolderType
}

// IsAttributeIDValid returns true if attributeId is supported for the node.
func (n *ObjectNode) IsAttributeIDValid(attributeID uint32) bool {
	return isBaseAttributeID(attributeID)
}
