// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/awcullen/uacore/ua"
)

func benchmarkNotification() *ua.NotificationMessage {
	ts := time.Date(2021, time.January, 01, 12, 0, 0, 0, time.UTC)
	msg := &ua.NotificationMessage{
		SubscriptionID: 1296242973,
		SequenceNumber: 4,
		PublishTime:    ts,
		MonitoredItems: make([]ua.MonitoredItemNotification, 10),
	}
	for i := range msg.MonitoredItems {
		msg.MonitoredItems[i] = ua.MonitoredItemNotification{
			ClientHandle: uint32(i + 1),
			NodeID:       ua.NewNodeIDString(2, "PLC_System.Temperature_Sensors.Temperature_Sensor_00"),
			Value:        ua.NewDataValue(ua.NewVariantDouble(3.14159), ua.Good, ts, ts),
		}
	}
	return msg
}

// BenchmarkEncodeNotification encodes a typical publish cycle to a mock network connection.
func BenchmarkEncodeNotification(b *testing.B) {
	msg := benchmarkNotification()
	conn := &mockWriter{}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		enc := ua.NewBinaryEncoder(conn)
		if err := enc.Encode(msg); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDecodeNotification decodes a typical publish cycle.
func BenchmarkDecodeNotification(b *testing.B) {
	buf := &bytes.Buffer{}
	if err := ua.NewBinaryEncoder(buf).Encode(benchmarkNotification()); err != nil {
		b.Fatal(err)
	}
	data := buf.Bytes()
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		var msg ua.NotificationMessage
		if err := ua.NewBinaryDecoder(bytes.NewReader(data)).Decode(&msg); err != nil {
			b.Fatal(err)
		}
	}
}

type mockWriter struct {
}

func (w *mockWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}
