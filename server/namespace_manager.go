// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"context"
	"sync"
	"time"

	"github.com/awcullen/uacore/ua"
	"github.com/gammazero/deque"
	"github.com/pkg/errors"
)

// entry is a slot of the arena. The parent is the index of the parent slot, or -1 for the root.
type entry struct {
	node     Node
	parent   int
	children []int
}

// NamespaceManager manages the namespaces and the address space of a server.
// Nodes are kept in an arena of slots. The embedded lock guards the shape of the arena only;
// the value of each VariableNode is guarded by the node's own lock.
type NamespaceManager struct {
	sync.RWMutex
	namespaces []string
	entries    []*entry
	index      map[ua.NodeID]int
	deleting   map[ua.NodeID]struct{}
	retractor  func(ids []ua.NodeID)
}

// NewNamespaceManager instantiates a new NamespaceManager, rooted at the Objects folder.
func NewNamespaceManager(applicationURI string) *NamespaceManager {
	m := &NamespaceManager{
		namespaces: []string{"http://opcfoundation.org/UA/", applicationURI},
		entries:    make([]*entry, 0, 256),
		index:      make(map[ua.NodeID]int, 256),
		deleting:   make(map[ua.NodeID]struct{}),
	}
	root := NewFolderNode(
		ua.ObjectIDObjectsFolder,
		ua.NewQualifiedName(0, "Objects"),
		ua.NewLocalizedText("Objects", ""),
		ua.NewLocalizedText("The browse entry point when looking for objects in the server address space.", ""),
	)
	m.entries = append(m.entries, &entry{node: root, parent: -1})
	m.index[root.NodeID()] = 0
	return m
}

// Add adds a namespace to the end of the table and returns the index.
// If the namespace already exists then returns the index.
func (m *NamespaceManager) Add(nsu string) uint16 {
	m.Lock()
	defer m.Unlock()
	for i, ns := range m.namespaces {
		if ns == nsu {
			return uint16(i)
		}
	}
	m.namespaces = append(m.namespaces, nsu)
	return uint16(len(m.namespaces) - 1)
}

// NamespaceUris returns the namespace table of the server.
func (m *NamespaceManager) NamespaceUris() []string {
	m.RLock()
	defer m.RUnlock()
	return append([]string(nil), m.namespaces...)
}

// Len returns the number of nodes.
func (m *NamespaceManager) Len() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.index)
}

// Root returns the Objects folder.
func (m *NamespaceManager) Root() Node {
	m.RLock()
	defer m.RUnlock()
	return m.entries[0].node
}

// SetRetractor sets the func that retracts the monitored items of nodes about to be deleted.
func (m *NamespaceManager) SetRetractor(f func(ids []ua.NodeID)) {
	m.Lock()
	m.retractor = f
	m.Unlock()
}

// AddNode adds the node to the namespace as a child of the parent.
func (m *NamespaceManager) AddNode(parent ua.NodeID, node Node) error {
	m.Lock()
	defer m.Unlock()
	return m.addNode(parent, node)
}

// AddNodes adds the nodes to the namespace as children of the parent.
// Nodes are added in order, so a node may be the parent of the nodes that follow it if added separately.
func (m *NamespaceManager) AddNodes(parent ua.NodeID, nodes ...Node) error {
	m.Lock()
	defer m.Unlock()
	for _, n := range nodes {
		if err := m.addNode(parent, n); err != nil {
			return err
		}
	}
	return nil
}

func (m *NamespaceManager) addNode(parent ua.NodeID, node Node) error {
	p, ok := m.index[parent]
	if !ok {
		return errors.Wrapf(ua.BadNodeIDUnknown, "parent %s", parent)
	}
	id := node.NodeID()
	if _, ok := m.index[id]; ok {
		return errors.Wrapf(ua.BadNodeIDExists, "node %s", id)
	}
	i := len(m.entries)
	m.entries = append(m.entries, &entry{node: node, parent: p})
	m.entries[p].children = append(m.entries[p].children, i)
	m.index[id] = i
	return nil
}

// FindNode returns the node with the given NodeID from the namespace.
func (m *NamespaceManager) FindNode(id ua.NodeID) (node Node, ok bool) {
	m.RLock()
	defer m.RUnlock()
	if i, ok1 := m.index[id]; ok1 {
		return m.entries[i].node, true
	}
	return nil, false
}

// FindObject returns the object with the given NodeID from the namespace.
func (m *NamespaceManager) FindObject(id ua.NodeID) (node *ObjectNode, ok bool) {
	if n, ok1 := m.FindNode(id); ok1 {
		node, ok = n.(*ObjectNode)
	}
	return
}

// FindVariable returns the variable with the given NodeID from the namespace.
func (m *NamespaceManager) FindVariable(id ua.NodeID) (node *VariableNode, ok bool) {
	if n, ok1 := m.FindNode(id); ok1 {
		node, ok = n.(*VariableNode)
	}
	return
}

// FindMethod returns the method with the given NodeID from the namespace.
func (m *NamespaceManager) FindMethod(id ua.NodeID) (node *MethodNode, ok bool) {
	if n, ok1 := m.FindNode(id); ok1 {
		node, ok = n.(*MethodNode)
	}
	return
}

// FindComponent returns the child of the node with the given browse name.
func (m *NamespaceManager) FindComponent(parent ua.NodeID, browseName string) (node Node, ok bool) {
	m.RLock()
	defer m.RUnlock()
	p, ok1 := m.index[parent]
	if !ok1 {
		return nil, false
	}
	for _, c := range m.entries[p].children {
		if n := m.entries[c].node; n.BrowseName().Name == browseName {
			return n, true
		}
	}
	return nil, false
}

// Browse returns the children of the node, in the order they were added.
func (m *NamespaceManager) Browse(id ua.NodeID) ([]Node, error) {
	m.RLock()
	defer m.RUnlock()
	i, ok := m.index[id]
	if !ok {
		return nil, ua.BadNodeIDUnknown
	}
	children := make([]Node, 0, len(m.entries[i].children))
	for _, c := range m.entries[i].children {
		children = append(children, m.entries[c].node)
	}
	return children, nil
}

// Parent returns the parent of the node. The root has no parent.
func (m *NamespaceManager) Parent(id ua.NodeID) (node Node, ok bool) {
	m.RLock()
	defer m.RUnlock()
	i, ok1 := m.index[id]
	if !ok1 || m.entries[i].parent < 0 {
		return nil, false
	}
	return m.entries[m.entries[i].parent].node, true
}

// IsChild returns true if the node is a child of the parent.
func (m *NamespaceManager) IsChild(parent, id ua.NodeID) bool {
	m.RLock()
	defer m.RUnlock()
	p, ok := m.index[parent]
	if !ok {
		return false
	}
	i, ok := m.index[id]
	return ok && m.entries[i].parent == p
}

// ReadValue returns the value of the variable.
func (m *NamespaceManager) ReadValue(ctx context.Context, id ua.NodeID) (ua.DataValue, error) {
	n, ok := m.FindNode(id)
	if !ok {
		return ua.DataValue{}, ua.BadNodeIDUnknown
	}
	v, ok := n.(*VariableNode)
	if !ok {
		return ua.DataValue{}, ua.BadAttributeIDInvalid
	}
	return v.readValue(ctx), nil
}

// WriteValue writes the value of the variable on behalf of a client.
// The value is checked against the DataType before it is committed; a failed write changes nothing.
func (m *NamespaceManager) WriteValue(id ua.NodeID, value ua.Variant) error {
	n, ok := m.FindNode(id)
	if !ok {
		return ua.BadNodeIDUnknown
	}
	v, ok := n.(*VariableNode)
	if !ok || !v.IsWritable() {
		return ua.BadNotWritable
	}
	return v.writeValue(value)
}

// SetValue updates the value of the variable on behalf of the server. Access level is not checked.
func (m *NamespaceManager) SetValue(id ua.NodeID, value ua.Variant, statusCode ua.StatusCode, timestamp time.Time) error {
	v, ok := m.FindVariable(id)
	if !ok {
		return ua.BadNodeIDUnknown
	}
	return v.SetValue(ua.NewDataValue(value, statusCode, timestamp, timestamp))
}

// DeleteNode removes the node and its descendants. Monitored items of the removed nodes
// are retracted first. While the delete is in progress the nodes may not be monitored.
func (m *NamespaceManager) DeleteNode(id ua.NodeID) error {
	m.Lock()
	i, ok := m.index[id]
	if !ok {
		m.Unlock()
		return ua.BadNodeIDUnknown
	}
	if i == 0 {
		m.Unlock()
		return errors.Wrap(ua.BadNotWritable, "the root may not be deleted")
	}
	subtree := m.subtree(i)
	ids := make([]ua.NodeID, len(subtree))
	for j, k := range subtree {
		ids[j] = m.entries[k].node.NodeID()
		m.deleting[ids[j]] = struct{}{}
	}
	retractor := m.retractor
	m.Unlock()

	if retractor != nil {
		retractor(ids)
	}

	m.Lock()
	defer m.Unlock()
	for _, id := range ids {
		delete(m.deleting, id)
	}
	// the node may have been removed concurrently.
	i, ok = m.index[id]
	if !ok {
		return nil
	}
	p := m.entries[i].parent
	siblings := m.entries[p].children
	for j, c := range siblings {
		if c == i {
			m.entries[p].children = append(siblings[:j:j], siblings[j+1:]...)
			break
		}
	}
	for _, k := range m.subtree(i) {
		delete(m.index, m.entries[k].node.NodeID())
		m.entries[k] = nil
	}
	return nil
}

// monitorVariable calls attach with the variable while the variable can not be deleted.
// Returns BadNodeIDUnknown if the node is missing or being deleted, BadAttributeIDInvalid if
// the node is not a variable.
func (m *NamespaceManager) monitorVariable(id ua.NodeID, attach func(v *VariableNode)) error {
	m.RLock()
	defer m.RUnlock()
	i, ok := m.index[id]
	if !ok {
		return ua.BadNodeIDUnknown
	}
	if _, ok := m.deleting[id]; ok {
		return ua.BadNodeIDUnknown
	}
	v, ok := m.entries[i].node.(*VariableNode)
	if !ok {
		return ua.BadAttributeIDInvalid
	}
	attach(v)
	return nil
}

// subtree returns the slot and the slots of all descendants, breadth first.
func (m *NamespaceManager) subtree(i int) []int {
	result := []int{}
	queue := deque.New[int]()
	queue.PushBack(i)
	for queue.Len() > 0 {
		k := queue.PopFront()
		result = append(result, k)
		for _, c := range m.entries[k].children {
			queue.PushBack(c)
		}
	}
	return result
}
