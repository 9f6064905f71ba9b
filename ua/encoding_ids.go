// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua

import (
	"reflect"
)

// Binary encoding ids of the service messages.
var (
	ObjectIDServiceFaultEncodingDefaultBinary                 = NewNodeIDNumeric(0, 397)
	ObjectIDCreateSessionRequestEncodingDefaultBinary         = NewNodeIDNumeric(0, 461)
	ObjectIDCreateSessionResponseEncodingDefaultBinary        = NewNodeIDNumeric(0, 464)
	ObjectIDActivateSessionRequestEncodingDefaultBinary       = NewNodeIDNumeric(0, 467)
	ObjectIDActivateSessionResponseEncodingDefaultBinary      = NewNodeIDNumeric(0, 470)
	ObjectIDCloseSessionRequestEncodingDefaultBinary          = NewNodeIDNumeric(0, 473)
	ObjectIDCloseSessionResponseEncodingDefaultBinary         = NewNodeIDNumeric(0, 476)
	ObjectIDBrowseRequestEncodingDefaultBinary                = NewNodeIDNumeric(0, 527)
	ObjectIDBrowseResponseEncodingDefaultBinary               = NewNodeIDNumeric(0, 530)
	ObjectIDReadRequestEncodingDefaultBinary                  = NewNodeIDNumeric(0, 631)
	ObjectIDReadResponseEncodingDefaultBinary                 = NewNodeIDNumeric(0, 634)
	ObjectIDWriteRequestEncodingDefaultBinary                 = NewNodeIDNumeric(0, 673)
	ObjectIDWriteResponseEncodingDefaultBinary                = NewNodeIDNumeric(0, 676)
	ObjectIDCallRequestEncodingDefaultBinary                  = NewNodeIDNumeric(0, 712)
	ObjectIDCallResponseEncodingDefaultBinary                 = NewNodeIDNumeric(0, 715)
	ObjectIDCreateMonitoredItemsRequestEncodingDefaultBinary  = NewNodeIDNumeric(0, 751)
	ObjectIDCreateMonitoredItemsResponseEncodingDefaultBinary = NewNodeIDNumeric(0, 754)
	ObjectIDDeleteMonitoredItemsRequestEncodingDefaultBinary  = NewNodeIDNumeric(0, 781)
	ObjectIDDeleteMonitoredItemsResponseEncodingDefaultBinary = NewNodeIDNumeric(0, 784)
	ObjectIDCreateSubscriptionRequestEncodingDefaultBinary    = NewNodeIDNumeric(0, 787)
	ObjectIDCreateSubscriptionResponseEncodingDefaultBinary   = NewNodeIDNumeric(0, 790)
	ObjectIDNotificationMessageEncodingDefaultBinary          = NewNodeIDNumeric(0, 805)
	ObjectIDDeleteSubscriptionsRequestEncodingDefaultBinary   = NewNodeIDNumeric(0, 847)
	ObjectIDDeleteSubscriptionsResponseEncodingDefaultBinary  = NewNodeIDNumeric(0, 850)
)

var (
	binaryEncodingIDs = map[reflect.Type]NodeID{
		reflect.TypeOf(ServiceFault{}):                 ObjectIDServiceFaultEncodingDefaultBinary,
		reflect.TypeOf(CreateSessionRequest{}):         ObjectIDCreateSessionRequestEncodingDefaultBinary,
		reflect.TypeOf(CreateSessionResponse{}):        ObjectIDCreateSessionResponseEncodingDefaultBinary,
		reflect.TypeOf(ActivateSessionRequest{}):       ObjectIDActivateSessionRequestEncodingDefaultBinary,
		reflect.TypeOf(ActivateSessionResponse{}):      ObjectIDActivateSessionResponseEncodingDefaultBinary,
		reflect.TypeOf(CloseSessionRequest{}):          ObjectIDCloseSessionRequestEncodingDefaultBinary,
		reflect.TypeOf(CloseSessionResponse{}):         ObjectIDCloseSessionResponseEncodingDefaultBinary,
		reflect.TypeOf(BrowseRequest{}):                ObjectIDBrowseRequestEncodingDefaultBinary,
		reflect.TypeOf(BrowseResponse{}):               ObjectIDBrowseResponseEncodingDefaultBinary,
		reflect.TypeOf(ReadRequest{}):                  ObjectIDReadRequestEncodingDefaultBinary,
		reflect.TypeOf(ReadResponse{}):                 ObjectIDReadResponseEncodingDefaultBinary,
		reflect.TypeOf(WriteRequest{}):                 ObjectIDWriteRequestEncodingDefaultBinary,
		reflect.TypeOf(WriteResponse{}):                ObjectIDWriteResponseEncodingDefaultBinary,
		reflect.TypeOf(CallRequest{}):                  ObjectIDCallRequestEncodingDefaultBinary,
		reflect.TypeOf(CallResponse{}):                 ObjectIDCallResponseEncodingDefaultBinary,
		reflect.TypeOf(CreateMonitoredItemsRequest{}):  ObjectIDCreateMonitoredItemsRequestEncodingDefaultBinary,
		reflect.TypeOf(CreateMonitoredItemsResponse{}): ObjectIDCreateMonitoredItemsResponseEncodingDefaultBinary,
		reflect.TypeOf(DeleteMonitoredItemsRequest{}):  ObjectIDDeleteMonitoredItemsRequestEncodingDefaultBinary,
		reflect.TypeOf(DeleteMonitoredItemsResponse{}): ObjectIDDeleteMonitoredItemsResponseEncodingDefaultBinary,
		reflect.TypeOf(CreateSubscriptionRequest{}):    ObjectIDCreateSubscriptionRequestEncodingDefaultBinary,
		reflect.TypeOf(CreateSubscriptionResponse{}):   ObjectIDCreateSubscriptionResponseEncodingDefaultBinary,
		reflect.TypeOf(NotificationMessage{}):          ObjectIDNotificationMessageEncodingDefaultBinary,
		reflect.TypeOf(DeleteSubscriptionsRequest{}):   ObjectIDDeleteSubscriptionsRequestEncodingDefaultBinary,
		reflect.TypeOf(DeleteSubscriptionsResponse{}):  ObjectIDDeleteSubscriptionsResponseEncodingDefaultBinary,
	}
	typesByBinaryEncodingID = func() map[NodeID]reflect.Type {
		m := make(map[NodeID]reflect.Type, len(binaryEncodingIDs))
		for typ, id := range binaryEncodingIDs {
			m[id] = typ
		}
		return m
	}()
)

// WriteStructure writes the binary encoding id of the structure, followed by the structure.
func (enc *BinaryEncoder) WriteStructure(value interface{}) error {
	typ := reflect.TypeOf(value)
	if typ == nil {
		return BadEncodingError
	}
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	id, ok := binaryEncodingIDs[typ]
	if !ok {
		return BadEncodingError
	}
	if err := enc.WriteNodeID(id); err != nil {
		return BadEncodingError
	}
	return enc.Encode(value)
}

// ReadStructure reads a binary encoding id, then returns a pointer to a new structure of that type.
func (dec *BinaryDecoder) ReadStructure() (interface{}, error) {
	var id NodeID
	if err := dec.ReadNodeID(&id); err != nil {
		return nil, BadDecodingError
	}
	typ, ok := typesByBinaryEncodingID[id]
	if !ok {
		return nil, BadServiceUnsupported
	}
	v := reflect.New(typ)
	if err := dec.decodeValue(v.Elem()); err != nil {
		return nil, BadDecodingError
	}
	return v.Interface(), nil
}
