// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua

import (
	"fmt"
	"time"
)

// DataValue holds the value, quality and timestamp
type DataValue struct {
	Value           Variant
	StatusCode      StatusCode
	SourceTimestamp time.Time
	ServerTimestamp time.Time
}

// NewDataValue returns a new DataValue.
func NewDataValue(value Variant, statusCode StatusCode, sourceTimestamp time.Time, serverTimestamp time.Time) DataValue {
	return DataValue{value, statusCode, sourceTimestamp, serverTimestamp}
}

// NewDataValueStatus returns a DataValue holding only a status code.
func NewDataValueStatus(statusCode StatusCode, serverTimestamp time.Time) DataValue {
	return DataValue{StatusCode: statusCode, ServerTimestamp: serverTimestamp}
}

// String returns the DataValue as a string, e.g. "23.5 [0x00000000] 2021-01-01T00:00:00Z"
func (a DataValue) String() string {
	return fmt.Sprintf("%s [0x%08X] %s", a.Value, uint32(a.StatusCode), a.SourceTimestamp.Format(time.RFC3339Nano))
}
