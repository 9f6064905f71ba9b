// Copyright 2021 Converter Systems LLC. All rights reserved.

package forward

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/awcullen/uacore/ua"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gotest.tools/assert"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.Lock()
	defer p.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{subject, data})
	return nil
}

func TestSubject(t *testing.T) {
	f := New(&fakePublisher{}, "", zerolog.Nop())
	assert.Equal(t, f.Subject(ua.ParseNodeID("ns=2;s=PLC_System.System_Status.Error_Count")), "uascan.data.ns_2_s_PLC_System_System_Status_Error_Count")
	assert.Equal(t, f.Subject(ua.ParseNodeID("i=2259")), "uascan.data.i_2259")

	f = New(&fakePublisher{}, "plant1", zerolog.Nop())
	assert.Equal(t, f.Subject(ua.NewNodeIDString(2, "a b>c")), "plant1.data.ns_2_s_a_b_c")
}

func TestForward(t *testing.T) {
	pub := &fakePublisher{}
	f := New(pub, "plant1", zerolog.Nop())
	ts := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	id := ua.NewNodeIDString(2, "PLC_System.Temperature_Sensors.Temperature_Sensor_00")

	err := f.Forward(ua.MonitoredItemNotification{
		ClientHandle: 1,
		NodeID:       id,
		Value:        ua.NewDataValue(ua.NewVariantDouble(21.5), ua.Good, ts, ts),
	})
	assert.NilError(t, err)
	assert.Equal(t, len(pub.msgs), 1)
	assert.Equal(t, pub.msgs[0].subject, "plant1.data.ns_2_s_PLC_System_Temperature_Sensors_Temperature_Sensor_00")

	var msg Message
	assert.NilError(t, json.Unmarshal(pub.msgs[0].data, &msg))
	assert.Equal(t, msg.NodeID, id.String())
	assert.Equal(t, msg.Value, 21.5)
	assert.Equal(t, msg.DataType, "Double")
	assert.Equal(t, msg.Status, "Good")
	assert.Equal(t, msg.SourceTimestamp, ts.UnixMilli())
	assert.Equal(t, f.Published(), uint64(1))
}

func TestForwardBadStatusAndDateTime(t *testing.T) {
	pub := &fakePublisher{}
	f := New(pub, "", zerolog.Nop())
	ts := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.NilError(t, f.Forward(ua.MonitoredItemNotification{
		NodeID: ua.NewNodeIDString(2, "Last_Update"),
		Value:  ua.NewDataValue(ua.NewVariantDateTime(ts), ua.Good, ts, ts),
	}))
	assert.NilError(t, f.Forward(ua.MonitoredItemNotification{
		NodeID: ua.NewNodeIDString(2, "Missing"),
		Value:  ua.NewDataValueStatus(ua.BadNodeIDUnknown, ts),
	}))

	var msg Message
	assert.NilError(t, json.Unmarshal(pub.msgs[0].data, &msg))
	assert.Equal(t, msg.Value, float64(ts.UnixMilli()))
	assert.Equal(t, msg.DataType, "DateTime")

	assert.NilError(t, json.Unmarshal(pub.msgs[1].data, &msg))
	assert.Equal(t, msg.Status, ua.BadNodeIDUnknown.Error())
	assert.Equal(t, msg.Value, nil)
}

func TestForwardPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats: connection closed")}
	f := New(pub, "", zerolog.Nop())

	err := f.Forward(ua.MonitoredItemNotification{
		NodeID: ua.NewNodeIDString(2, "A"),
		Value:  ua.NewDataValue(ua.NewVariantBoolean(true), ua.Good, time.Now(), time.Now()),
	})
	assert.ErrorContains(t, err, "error publishing to uascan.data.ns_2_s_A")
	assert.ErrorContains(t, err, "connection closed")
	assert.Equal(t, f.Published(), uint64(0))
	assert.Equal(t, f.Failed(), uint64(1))
}

func TestConnectUnreachable(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", zerolog.Nop())
	assert.ErrorContains(t, err, "error connecting to nats at nats://127.0.0.1:1")
}
