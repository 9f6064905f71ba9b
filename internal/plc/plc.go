// Copyright 2021 Converter Systems LLC. All rights reserved.

// Package plc simulates a PLC whose registers are published as variables of the address space.
package plc

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/awcullen/uacore/server"
	"github.com/awcullen/uacore/ua"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	// DefaultNamespaceURI is the namespace of the nodes of the PLC.
	DefaultNamespaceURI = "http://examples.freeopcua.github.io"
	// DefaultUpdateInterval is the time between update cycles.
	DefaultUpdateInterval = time.Second

	restartedResult = "PLC restarted successfully"
	cancelledResult = "PLC restart cancelled"
)

// Option is a functional option to be applied to a PLC during initialization.
type Option func(*PLC) error

// WithGenerator sets the generator of register values. (default: RandomGenerator seeded with the time)
func WithGenerator(value Generator) Option {
	return func(p *PLC) error {
		p.generator = value
		return nil
	}
}

// WithNamespaceURI sets the namespace of the nodes. (default: http://examples.freeopcua.github.io)
func WithNamespaceURI(value string) Option {
	return func(p *PLC) error {
		p.namespaceURI = value
		return nil
	}
}

// WithLogger sets the logger. (default: no logging)
func WithLogger(value zerolog.Logger) Option {
	return func(p *PLC) error {
		p.logger = value
		return nil
	}
}

// PLC publishes simulated registers in the address space below the PLC_System object.
type PLC struct {
	sync.Mutex
	nm           *server.NamespaceManager
	generator    Generator
	namespaceURI string
	ns           uint16
	logger       zerolog.Logger
	regs         Registers
	errorCount   uint32
	cycles       uint64

	temperatures []ua.NodeID
	pressures    []ua.NodeID
	flows        []ua.NodeID
	motors       []ua.NodeID
	switches     []ua.NodeID
	setpoints    []ua.NodeID
	plcRunning   ua.NodeID
	commOK       ua.NodeID
	lastUpdate   ua.NodeID
	errorCountID ua.NodeID
}

// New adds the nodes of the PLC to the address space.
func New(nm *server.NamespaceManager, opts ...Option) (*PLC, error) {
	p := &PLC{
		nm:           nm,
		namespaceURI: DefaultNamespaceURI,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.generator == nil {
		p.generator = NewRandomGenerator(time.Now().UnixNano())
	}
	p.ns = nm.Add(p.namespaceURI)
	p.regs.CommunicationOK = true
	if err := p.build(); err != nil {
		return nil, errors.Wrap(err, "error building address space")
	}
	return p, nil
}

// NamespaceIndex returns the namespace index of the nodes.
func (p *PLC) NamespaceIndex() uint16 {
	return p.ns
}

// NodeID returns the id of the node with the dotted browse path, e.g. "PLC_System.System_Status.Error_Count".
func (p *PLC) NodeID(path string) ua.NodeID {
	return ua.NewNodeIDString(p.ns, path)
}

// SystemID returns the id of the PLC_System object.
func (p *PLC) SystemID() ua.NodeID {
	return p.NodeID("PLC_System")
}

// DefaultMonitoredNodes returns the variables a scanner watches by default.
func (p *PLC) DefaultMonitoredNodes() []ua.NodeID {
	return []ua.NodeID{
		p.temperatures[0],
		p.temperatures[1],
		p.pressures[0],
		p.flows[0],
		p.motors[0],
		p.plcRunning,
		p.commOK,
		p.errorCountID,
	}
}

func (p *PLC) build() error {
	ns := p.ns
	id := func(path ...string) ua.NodeID {
		return p.NodeID(strings.Join(path, "."))
	}
	name := func(s string) (ua.QualifiedName, ua.LocalizedText) {
		return ua.NewQualifiedName(ns, s), ua.NewLocalizedText(s, "")
	}
	noText := ua.NewLocalizedText("", "")
	now := time.Now()
	variable := func(parent ua.NodeID, s string, value ua.Variant, accessLevel byte) (*server.VariableNode, ua.NodeID) {
		bn, dn := name(s)
		nid := ua.NewNodeIDString(ns, parent.Identifier().(string)+"."+s)
		return server.NewVariableNode(nid, bn, dn, noText, ua.NewDataValue(value, ua.Good, now, now), value.Type(), accessLevel), nid
	}
	rw := ua.AccessLevelsCurrentRead | ua.AccessLevelsCurrentWrite
	ro := ua.AccessLevelsCurrentRead

	system := id("PLC_System")
	bn, dn := name("PLC_System")
	if err := p.nm.AddNode(ua.ObjectIDObjectsFolder, server.NewObjectNode(system, bn, dn, ua.NewLocalizedText("Simulated MODBUS PLC", ""), ua.ObjectTypeIDBaseObjectType)); err != nil {
		return err
	}

	bn, dn = name("RestartPLC")
	restart := server.NewMethodNode(
		id("PLC_System", "RestartPLC"), bn, dn,
		ua.NewLocalizedText("Restarts the simulation and clears the error count.", ""),
		[]ua.Argument{ua.NewArgument("Confirm", ua.VariantTypeBoolean, "")},
		[]ua.Argument{ua.NewArgument("Result", ua.VariantTypeString, "")},
	)
	restart.SetCallMethodHandler(p.restart)
	if err := p.nm.AddNode(system, restart); err != nil {
		return err
	}

	type group struct {
		folder string
		count  int
		format string
		value  ua.Variant
		ids    *[]ua.NodeID
	}
	groups := []group{
		{"Temperature_Sensors", TemperatureCount, "Temperature_Sensor_%02d", ua.NewVariantDouble(0), &p.temperatures},
		{"Pressure_Sensors", PressureCount, "Pressure_Sensor_%02d", ua.NewVariantDouble(0), &p.pressures},
		{"Flow_Meters", FlowCount, "Flow_Meter_%02d", ua.NewVariantDouble(0), &p.flows},
		{"Motor_Controls", MotorCount, "Motor_%02d_Running", ua.NewVariantBoolean(false), &p.motors},
		{"Discrete_Inputs", SwitchCount, "Limit_Switch_%02d", ua.NewVariantBoolean(false), &p.switches},
		{"Setpoints", SetpointCount, "Setpoint_%02d", ua.NewVariantDouble(0), &p.setpoints},
	}
	for _, g := range groups {
		folder := id("PLC_System", g.folder)
		bn, dn := name(g.folder)
		if err := p.nm.AddNode(system, server.NewFolderNode(folder, bn, dn, noText)); err != nil {
			return err
		}
		nodes := make([]server.Node, g.count)
		*g.ids = make([]ua.NodeID, g.count)
		for i := range nodes {
			nodes[i], (*g.ids)[i] = variable(folder, fmt.Sprintf(g.format, i), g.value, rw)
		}
		if err := p.nm.AddNodes(folder, nodes...); err != nil {
			return err
		}
	}

	status := id("PLC_System", "System_Status")
	bn, dn = name("System_Status")
	if err := p.nm.AddNode(system, server.NewFolderNode(status, bn, dn, noText)); err != nil {
		return err
	}
	var nodes [4]server.Node
	nodes[0], p.plcRunning = variable(status, "PLC_Running", ua.NewVariantBoolean(true), ro)
	nodes[1], p.commOK = variable(status, "Communication_OK", ua.NewVariantBoolean(true), ro)
	nodes[2], p.lastUpdate = variable(status, "Last_Update", ua.NewVariantDateTime(now), ro)
	nodes[3], p.errorCountID = variable(status, "Error_Count", ua.NewVariantUInt32(0), ro)
	return p.nm.AddNodes(status, nodes[:]...)
}

// Update runs one cycle: the generator advances the registers, then the variables are set
// to the new values.
func (p *PLC) Update(now time.Time) error {
	p.Lock()
	defer p.Unlock()

	p.generator.Next(&p.regs)
	p.cycles++
	if !p.regs.CommunicationOK {
		p.errorCount++
		p.logger.Debug().Uint32("errors", p.errorCount).Msg("Simulated communication error.")
	}

	var errs []string
	set := func(id ua.NodeID, v ua.Variant) {
		if err := p.nm.SetValue(id, v, ua.Good, now); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %s", id, err))
		}
	}
	for i, id := range p.temperatures {
		set(id, ua.NewVariantDouble(p.regs.Temperature(i)))
	}
	for i, id := range p.pressures {
		set(id, ua.NewVariantDouble(p.regs.Pressure(i)))
	}
	for i, id := range p.flows {
		set(id, ua.NewVariantDouble(p.regs.Flow(i)))
	}
	for i, id := range p.motors {
		set(id, ua.NewVariantBoolean(p.regs.Coils[i]))
	}
	for i, id := range p.switches {
		set(id, ua.NewVariantBoolean(p.regs.DiscreteInputs[i]))
	}
	for i, id := range p.setpoints {
		set(id, ua.NewVariantDouble(p.regs.Setpoint(i)))
	}
	set(p.lastUpdate, ua.NewVariantDateTime(now))
	set(p.commOK, ua.NewVariantBoolean(p.regs.CommunicationOK))
	set(p.errorCountID, ua.NewVariantUInt32(p.errorCount))
	if len(errs) > 0 {
		return errors.Errorf("error updating %d variables: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// Run updates the variables every interval until the context is done.
func (p *PLC) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultUpdateInterval
	}
	p.logger.Info().Dur("interval", interval).Msg("PLC simulation started.")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("PLC simulation stopped.")
			return ctx.Err()
		case now := <-ticker.C:
			if err := p.Update(now); err != nil {
				p.logger.Error().Err(err).Msg("Error updating values.")
			}
		}
	}
}

// ErrorCount returns the number of simulated communication errors since the last restart.
func (p *PLC) ErrorCount() uint32 {
	p.Lock()
	defer p.Unlock()
	return p.errorCount
}

// Cycles returns the number of update cycles run.
func (p *PLC) Cycles() uint64 {
	p.Lock()
	defer p.Unlock()
	return p.cycles
}

// restart handles RestartPLC(Confirm Boolean) -> Result String.
func (p *PLC) restart(ctx context.Context, inputs []ua.Variant) ([]ua.Variant, error) {
	if confirm, _ := inputs[0].Value().(bool); !confirm {
		return []ua.Variant{ua.NewVariantString(cancelledResult)}, nil
	}
	p.Lock()
	p.regs = Registers{CommunicationOK: true}
	p.errorCount = 0
	p.Unlock()
	if err := p.nm.SetValue(p.errorCountID, ua.NewVariantUInt32(0), ua.Good, time.Now()); err != nil {
		return nil, err
	}
	p.logger.Info().Msg("PLC restart requested.")
	return []ua.Variant{ua.NewVariantString(restartedResult)}, nil
}
