package transmitter

import (
	"fmt"
	"sync"

	"github.com/davecheney/gpio"
	"github.com/rs/zerolog"
)

// GPIOActuator keys the carrier through a sysfs GPIO pin
type GPIOActuator struct {
	pin       gpio.Pin
	number    int
	activeLow bool
}

// OpenGPIO exports the pin as an output and drives it low
func OpenGPIO(number int, activeLow bool) (*GPIOActuator, error) {
	pin, err := gpio.OpenPin(number, gpio.ModeOutput)
	if err != nil {
		return nil, fmt.Errorf("open gpio %d: %w", number, err)
	}

	a := &GPIOActuator{pin: pin, number: number, activeLow: activeLow}
	if err := a.Low(); err != nil {
		pin.Close()
		return nil, err
	}
	return a, nil
}

// High raises the carrier
func (a *GPIOActuator) High() error {
	return a.set(!a.activeLow)
}

// Low drops the carrier
func (a *GPIOActuator) Low() error {
	return a.set(a.activeLow)
}

func (a *GPIOActuator) set(level bool) error {
	if level {
		a.pin.Set()
	} else {
		a.pin.Clear()
	}
	if err := a.pin.Err(); err != nil {
		return fmt.Errorf("gpio %d: %w", a.number, err)
	}
	return nil
}

// Close drops the carrier and releases the pin
func (a *GPIOActuator) Close() error {
	lowErr := a.Low()
	if err := a.pin.Close(); err != nil {
		return fmt.Errorf("close gpio %d: %w", a.number, err)
	}
	return lowErr
}

// NopActuator stands in for the pin in dry-run mode and remembers the last level
type NopActuator struct {
	mu    sync.Mutex
	high  bool
	log   zerolog.Logger
	edges int
}

// NewNopActuator creates a dry-run actuator logging edges at trace level
func NewNopActuator(log zerolog.Logger) *NopActuator {
	return &NopActuator{log: log}
}

// High records a rising edge
func (n *NopActuator) High() error {
	n.setLevel(true)
	return nil
}

// Low records a falling edge
func (n *NopActuator) Low() error {
	n.setLevel(false)
	return nil
}

func (n *NopActuator) setLevel(high bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.high != high {
		n.edges++
		n.log.Trace().Bool("high", high).Msg("carrier")
	}
	n.high = high
}

// IsHigh reports the current level
func (n *NopActuator) IsHigh() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.high
}

// Edges returns the number of level changes seen
func (n *NopActuator) Edges() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.edges
}

// Close does nothing
func (n *NopActuator) Close() error { return nil }
