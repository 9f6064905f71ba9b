// Copyright 2021 Converter Systems LLC. All rights reserved.

package plc

import (
	"math/rand"
	"sync"
)

// Register counts of the simulated PLC.
const (
	TemperatureCount = 10
	PressureCount    = 10
	FlowCount        = 10
	MotorCount       = 10
	SwitchCount      = 20
	SetpointCount    = 10
)

// Registers is the memory of the simulated PLC. Input registers hold temperatures
// (0-9, scaled by 100), pressures (10-19) and flows (20-29, scaled by 100). Coils hold the
// running state of the motors. Holding registers hold the setpoints.
type Registers struct {
	Coils            [100]bool
	DiscreteInputs   [100]bool
	HoldingRegisters [100]int
	InputRegisters   [100]int
	CommunicationOK  bool
}

// Temperature returns the temperature of sensor i in degrees.
func (r *Registers) Temperature(i int) float64 {
	return float64(r.InputRegisters[i]) / 100
}

// Pressure returns the pressure of sensor i.
func (r *Registers) Pressure(i int) float64 {
	return float64(r.InputRegisters[TemperatureCount+i])
}

// Flow returns the flow rate of meter i.
func (r *Registers) Flow(i int) float64 {
	return float64(r.InputRegisters[TemperatureCount+PressureCount+i]) / 100
}

// Setpoint returns setpoint i.
func (r *Registers) Setpoint(i int) float64 {
	return float64(r.HoldingRegisters[i])
}

// Generator produces the next values of the registers once per update cycle.
type Generator interface {
	Next(r *Registers)
}

// GeneratorFunc adapts a func to a Generator.
type GeneratorFunc func(r *Registers)

// Next calls f(r).
func (f GeneratorFunc) Next(r *Registers) {
	f(r)
}

// RandomGenerator moves the registers randomly around plausible process values.
type RandomGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomGenerator returns a RandomGenerator seeded with seed.
func NewRandomGenerator(seed int64) *RandomGenerator {
	return &RandomGenerator{rnd: rand.New(rand.NewSource(seed))}
}

// Next advances the registers by one cycle.
func (g *RandomGenerator) Next(r *Registers) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// temperatures, 20 + 2i ±2.5 degrees
	for i := 0; i < TemperatureCount; i++ {
		base := 20 + float64(i)*2
		variation := 5*g.rnd.Float64() - 2.5
		r.InputRegisters[i] = int((base + variation) * 100)
	}
	// pressures, 1000 + 100i ±25
	for i := 0; i < PressureCount; i++ {
		base := 1000 + float64(i)*100
		variation := 50*g.rnd.Float64() - 25
		r.InputRegisters[TemperatureCount+i] = int(base + variation)
	}
	// flows, 50 to 65
	for i := 0; i < FlowCount; i++ {
		flow := 50 + 30*abs(g.rnd.Float64()-0.5)
		r.InputRegisters[TemperatureCount+PressureCount+i] = int(flow * 100)
	}
	// motors change state with a chance of 10%
	for i := 0; i < MotorCount; i++ {
		if g.rnd.Float64() < 0.1 {
			r.Coils[i] = !r.Coils[i]
		}
	}
	// limit switches change state with a chance of 5%
	for i := 0; i < SwitchCount; i++ {
		if g.rnd.Float64() < 0.05 {
			r.DiscreteInputs[i] = !r.DiscreteInputs[i]
		}
	}
	// setpoints change with a chance of 2%
	for i := 0; i < SetpointCount; i++ {
		if g.rnd.Float64() < 0.02 {
			r.HoldingRegisters[i] = g.rnd.Intn(1001)
		}
	}
	r.CommunicationOK = g.rnd.Float64() > 0.01
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
