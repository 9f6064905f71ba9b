// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua

import (
	"fmt"
	"strconv"
	"strings"
)

// QualifiedName pairs a name and a namespace index.
type QualifiedName struct {
	NamespaceIndex uint16
	Name           string
}

// NewQualifiedName constructs a QualifiedName from a namespace index and a name.
func NewQualifiedName(ns uint16, text string) QualifiedName {
	return QualifiedName{ns, text}
}

// ParseQualifiedName returns a QualifiedName from a string, e.g. ParseQualifiedName("2:Temp0")
func ParseQualifiedName(s string) QualifiedName {
	var pos = strings.Index(s, ":")
	if pos == -1 {
		return QualifiedName{0, s}
	}
	ns, err := strconv.ParseUint(s[:pos], 10, 16)
	if err != nil {
		return QualifiedName{0, s}
	}
	return QualifiedName{uint16(ns), s[pos+1:]}
}

// String returns a string representation, e.g. "2:Temp0"
func (a QualifiedName) String() string {
	return fmt.Sprintf("%d:%s", a.NamespaceIndex, a.Name)
}

// LocalizedText pairs text and a Locale string.
type LocalizedText struct {
	Text   string
	Locale string
}

// NewLocalizedText constructs a LocalizedText from text and Locale string.
func NewLocalizedText(text, locale string) LocalizedText {
	return LocalizedText{text, locale}
}

// String returns the text.
func (a LocalizedText) String() string {
	return a.Text
}

// NodeClass enumeration.
type NodeClass int32

// NodeClass enumeration.
const (
	NodeClassUnspecified NodeClass = 0
	NodeClassObject      NodeClass = 1
	NodeClassVariable    NodeClass = 2
	NodeClassMethod      NodeClass = 4
	NodeClassView        NodeClass = 128
)

// String returns enumeration value as string.
func (e NodeClass) String() string {
	switch e {
	case NodeClassObject:
		return "Object"
	case NodeClassVariable:
		return "Variable"
	case NodeClassMethod:
		return "Method"
	case NodeClassView:
		return "View"
	default:
		return "Unspecified"
	}
}

// AccessLevel flags.
const (
	AccessLevelsNone         byte = 0
	AccessLevelsCurrentRead  byte = 1
	AccessLevelsCurrentWrite byte = 2
)
