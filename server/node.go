// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"github.com/awcullen/uacore/ua"
)

// Node is an entry of the address space.
type Node interface {
	NodeID() ua.NodeID
	NodeClass() ua.NodeClass
	BrowseName() ua.QualifiedName
	DisplayName() ua.LocalizedText
	Description() ua.LocalizedText
	TypeDefinition() ua.NodeID
	IsAttributeIDValid(uint32) bool
}

// isBaseAttributeID returns true for the attributes every node class carries.
func isBaseAttributeID(attributeID uint32) bool {
	switch attributeID {
	case ua.AttributeIDNodeID, ua.AttributeIDNodeClass, ua.AttributeIDBrowseName,
		ua.AttributeIDDisplayName, ua.AttributeIDDescription:
		return true
	default:
		return false
	}
}
