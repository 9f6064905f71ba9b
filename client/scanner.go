// Copyright 2021 Converter Systems LLC. All rights reserved.

package client

import (
	"context"
	"time"

	"github.com/awcullen/uacore/ua"
	"github.com/gammazero/deque"
	"github.com/pkg/errors"
)

const (
	// maxNodesPerRequest is the number of nodes browsed or read in one request.
	maxNodesPerRequest = 1000
)

// NodeDescriptor describes a node found by browsing.
type NodeDescriptor struct {
	NodeID      ua.NodeID
	BrowseName  ua.QualifiedName
	DisplayName string
	NodeClass   ua.NodeClass
	IsFolder    bool
	DataType    ua.VariantType
	AccessLevel byte
	Path        string
	Value       ua.DataValue
	Children    []*NodeDescriptor
}

// IsWritable returns true if the value of the variable may be written.
func (d *NodeDescriptor) IsWritable() bool {
	return d.AccessLevel&ua.AccessLevelsCurrentWrite != 0
}

// Walk calls f for the node and each of its descendants, parents first.
func (d *NodeDescriptor) Walk(f func(*NodeDescriptor)) {
	f(d)
	for _, c := range d.Children {
		c.Walk(f)
	}
}

func newNodeDescriptor(parent *NodeDescriptor, r ua.ReferenceDescription) *NodeDescriptor {
	return &NodeDescriptor{
		NodeID:      r.NodeID,
		BrowseName:  r.BrowseName,
		DisplayName: r.DisplayName.Text,
		NodeClass:   r.NodeClass,
		IsFolder:    r.NodeClass == ua.NodeClassObject && r.TypeDefinition == ua.ObjectTypeIDFolderType,
		DataType:    r.DataType,
		AccessLevel: r.AccessLevel,
		Path:        parent.Path + "/" + r.BrowseName.Name,
	}
}

// BrowseAll returns the tree of nodes below root, children in the order of the server.
func (ch *Client) BrowseAll(ctx context.Context, root ua.NodeID) (*NodeDescriptor, error) {
	top, err := ch.describe(ctx, root)
	if err != nil {
		return nil, err
	}

	queue := deque.New[*NodeDescriptor]()
	queue.PushBack(top)
	for queue.Len() > 0 {
		n := queue.Len()
		if n > maxNodesPerRequest {
			n = maxNodesPerRequest
		}
		batch := make([]*NodeDescriptor, n)
		req := &ua.BrowseRequest{NodesToBrowse: make([]ua.BrowseDescription, n)}
		for i := range batch {
			batch[i] = queue.PopFront()
			req.NodesToBrowse[i] = ua.BrowseDescription{NodeID: batch[i].NodeID, BrowseDirection: ua.BrowseDirectionForward}
		}
		res, err := ch.Browse(ctx, req)
		if err != nil {
			return nil, err
		}
		if len(res.Results) != len(batch) {
			return nil, ua.BadUnexpectedError
		}
		for i, result := range res.Results {
			if result.StatusCode.IsBad() {
				// the node was deleted while browsing.
				continue
			}
			parent := batch[i]
			for _, r := range result.References {
				d := newNodeDescriptor(parent, r)
				parent.Children = append(parent.Children, d)
				if d.NodeClass != ua.NodeClassMethod {
					queue.PushBack(d)
				}
			}
		}
	}
	return top, nil
}

// describe reads the attributes of a single node.
func (ch *Client) describe(ctx context.Context, id ua.NodeID) (*NodeDescriptor, error) {
	res, err := ch.Read(ctx, &ua.ReadRequest{
		NodesToRead: []ua.ReadValueID{
			{NodeID: id, AttributeID: ua.AttributeIDNodeClass},
			{NodeID: id, AttributeID: ua.AttributeIDBrowseName},
			{NodeID: id, AttributeID: ua.AttributeIDDisplayName},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(res.Results) != 3 {
		return nil, ua.BadUnexpectedError
	}
	for _, r := range res.Results {
		if r.StatusCode.IsBad() {
			return nil, errors.Wrapf(r.StatusCode, "node %s", id)
		}
	}
	d := &NodeDescriptor{NodeID: id}
	if v, ok := res.Results[0].Value.Value().(int32); ok {
		d.NodeClass = ua.NodeClass(v)
	}
	if v, ok := res.Results[1].Value.Value().(string); ok {
		d.BrowseName = ua.ParseQualifiedName(v)
	}
	if v, ok := res.Results[2].Value.Value().(string); ok {
		d.DisplayName = v
	}
	d.IsFolder = d.NodeClass == ua.NodeClassObject && (id == ua.ObjectIDObjectsFolder || id == ua.ObjectIDRootFolder)
	d.Path = "/" + d.BrowseName.Name
	return d, nil
}

// ReadValue returns the current value of a variable. A bad status of the value is returned as the error.
func (ch *Client) ReadValue(ctx context.Context, id ua.NodeID) (ua.DataValue, error) {
	res, err := ch.Read(ctx, &ua.ReadRequest{
		NodesToRead: []ua.ReadValueID{{NodeID: id, AttributeID: ua.AttributeIDValue}},
	})
	if err != nil {
		return ua.DataValue{}, err
	}
	if len(res.Results) != 1 {
		return ua.DataValue{}, ua.BadUnexpectedError
	}
	dv := res.Results[0]
	if dv.StatusCode.IsBad() {
		return dv, dv.StatusCode
	}
	return dv, nil
}

// WriteValue sets the value of a variable.
func (ch *Client) WriteValue(ctx context.Context, id ua.NodeID, value ua.Variant) error {
	res, err := ch.Write(ctx, &ua.WriteRequest{
		NodesToWrite: []ua.WriteValue{
			{NodeID: id, AttributeID: ua.AttributeIDValue, Value: ua.DataValue{Value: value}},
		},
	})
	if err != nil {
		return err
	}
	if len(res.Results) != 1 {
		return ua.BadUnexpectedError
	}
	if code := res.Results[0]; code.IsBad() {
		return code
	}
	return nil
}

// Subscribe monitors the values of the variables. onNotify is called with each changed value,
// in the order the values were sampled. The subscription fails if any variable cannot be monitored.
func (ch *Client) Subscribe(ctx context.Context, ids []ua.NodeID, publishingInterval float64, onNotify func(ua.MonitoredItemNotification)) (*Subscription, error) {
	sub, err := ch.CreateSubscription(ctx, publishingInterval, 0, 0, func(msg *ua.NotificationMessage) {
		for _, n := range msg.MonitoredItems {
			onNotify(n)
		}
	})
	if err != nil {
		return nil, err
	}
	items := make([]ua.MonitoredItemCreateRequest, len(ids))
	for i, id := range ids {
		items[i] = ua.MonitoredItemCreateRequest{
			ItemToMonitor: ua.ReadValueID{NodeID: id, AttributeID: ua.AttributeIDValue},
			RequestedParameters: ua.MonitoringParameters{
				ClientHandle:     uint32(i + 1),
				SamplingInterval: publishingInterval,
				QueueSize:        1,
				DiscardOldest:    true,
				Filter:           ua.DataChangeFilter{Trigger: ua.DataChangeTriggerStatusValue},
			},
		}
	}
	results, err := sub.CreateMonitoredItems(ctx, items...)
	if err == nil && len(results) != len(items) {
		err = ua.BadUnexpectedError
	}
	if err != nil {
		sub.Delete(ctx)
		return nil, err
	}
	for i, r := range results {
		if r.StatusCode.IsBad() {
			sub.Delete(ctx)
			return nil, errors.Wrapf(r.StatusCode, "monitor %s", ids[i])
		}
	}
	return sub, nil
}

// CallMethod calls the method of the object that has the browse name methodName.
// Fails with BadMethodInvalid if the object has no such method.
func (ch *Client) CallMethod(ctx context.Context, objectID ua.NodeID, methodName string, args ...ua.Variant) ([]ua.Variant, error) {
	res, err := ch.Browse(ctx, &ua.BrowseRequest{
		NodesToBrowse: []ua.BrowseDescription{{NodeID: objectID, BrowseDirection: ua.BrowseDirectionForward}},
	})
	if err != nil {
		return nil, err
	}
	if len(res.Results) != 1 {
		return nil, ua.BadUnexpectedError
	}
	if code := res.Results[0].StatusCode; code.IsBad() {
		return nil, errors.Wrapf(code, "object %s", objectID)
	}
	methodID := ua.NilNodeID
	for _, r := range res.Results[0].References {
		if r.NodeClass == ua.NodeClassMethod && (r.BrowseName.Name == methodName || r.BrowseName.String() == methodName) {
			methodID = r.NodeID
			break
		}
	}
	if methodID.IsNil() {
		return nil, errors.Wrapf(ua.BadMethodInvalid, "method %q of %s", methodName, objectID)
	}

	callRes, err := ch.Call(ctx, &ua.CallRequest{
		MethodsToCall: []ua.CallMethodRequest{{ObjectID: objectID, MethodID: methodID, InputArguments: args}},
	})
	if err != nil {
		return nil, err
	}
	if len(callRes.Results) != 1 {
		return nil, ua.BadUnexpectedError
	}
	result := callRes.Results[0]
	if result.StatusCode.IsBad() {
		for i, code := range result.InputArgumentResults {
			if code.IsBad() {
				return nil, errors.Wrapf(result.StatusCode, "argument %d: %s", i, code)
			}
		}
		return nil, result.StatusCode
	}
	return result.OutputArguments, nil
}

// ServerInfo is the status of the server.
type ServerInfo struct {
	BuildInfo   ua.BuildInfo
	State       ua.ServerState
	StartTime   time.Time
	CurrentTime time.Time
}

// ServerInfo reads the build info and state of the server.
func (ch *Client) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	ids := []ua.NodeID{
		ua.VariableIDServerServerStatusBuildInfoProductURI,
		ua.VariableIDServerServerStatusBuildInfoManufacturerName,
		ua.VariableIDServerServerStatusBuildInfoProductName,
		ua.VariableIDServerServerStatusBuildInfoSoftwareVersion,
		ua.VariableIDServerServerStatusState,
		ua.VariableIDServerServerStatusStartTime,
		ua.VariableIDServerServerStatusCurrentTime,
	}
	req := &ua.ReadRequest{NodesToRead: make([]ua.ReadValueID, len(ids))}
	for i, id := range ids {
		req.NodesToRead[i] = ua.ReadValueID{NodeID: id, AttributeID: ua.AttributeIDValue}
	}
	res, err := ch.Read(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(res.Results) != len(ids) {
		return nil, ua.BadUnexpectedError
	}
	str := func(i int) string {
		s, _ := res.Results[i].Value.Value().(string)
		return s
	}
	tm := func(i int) time.Time {
		t, _ := res.Results[i].Value.Value().(time.Time)
		return t
	}
	info := &ServerInfo{
		BuildInfo: ua.BuildInfo{
			ProductURI:       str(0),
			ManufacturerName: str(1),
			ProductName:      str(2),
			SoftwareVersion:  str(3),
		},
		State:       ua.ServerStateUnknown,
		StartTime:   tm(5),
		CurrentTime: tm(6),
	}
	if v, ok := res.Results[4].Value.Value().(int32); ok {
		info.State = ua.ServerState(v)
	}
	return info, nil
}

// ScanResult is the content of the address space, organized by node class.
type ScanResult struct {
	Server    *ServerInfo
	Root      *NodeDescriptor
	Objects   []*NodeDescriptor
	Variables []*NodeDescriptor
	Methods   []*NodeDescriptor
}

// Scan browses the address space below the Objects folder and reads the value of every variable.
func (ch *Client) Scan(ctx context.Context) (*ScanResult, error) {
	info, err := ch.ServerInfo(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error reading server info")
	}
	root, err := ch.BrowseAll(ctx, ua.ObjectIDObjectsFolder)
	if err != nil {
		return nil, errors.Wrap(err, "error browsing")
	}
	result := &ScanResult{Server: info, Root: root}
	root.Walk(func(d *NodeDescriptor) {
		switch d.NodeClass {
		case ua.NodeClassObject:
			result.Objects = append(result.Objects, d)
		case ua.NodeClassVariable:
			result.Variables = append(result.Variables, d)
		case ua.NodeClassMethod:
			result.Methods = append(result.Methods, d)
		}
	})

	for start := 0; start < len(result.Variables); start += maxNodesPerRequest {
		end := start + maxNodesPerRequest
		if end > len(result.Variables) {
			end = len(result.Variables)
		}
		batch := result.Variables[start:end]
		req := &ua.ReadRequest{NodesToRead: make([]ua.ReadValueID, len(batch))}
		for i, d := range batch {
			req.NodesToRead[i] = ua.ReadValueID{NodeID: d.NodeID, AttributeID: ua.AttributeIDValue}
		}
		res, err := ch.Read(ctx, req)
		if err != nil {
			return nil, errors.Wrap(err, "error reading values")
		}
		if len(res.Results) != len(batch) {
			return nil, errors.Wrap(ua.BadUnexpectedError, "error reading values")
		}
		for i, dv := range res.Results {
			batch[i].Value = dv
		}
	}
	return result, nil
}
