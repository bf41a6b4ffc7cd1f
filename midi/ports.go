// Package midi talks to the sensor controller over a MIDI port: it lists
// ports, records incoming traffic and sends commands. Register a driver
// (rtmididrv) in the main package.
package midi

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ErrTimeout is returned when the MIDI backend does not answer (CoreMIDI
// can hang; restarting coreaudiod and midiserver helps)
var ErrTimeout = errors.New("midi backend timeout")

// ErrNoPort is returned when no port matches
var ErrNoPort = errors.New("no matching midi port")

// DefaultTimeout bounds port enumeration
const DefaultTimeout = 3 * time.Second

// Ports lists input and output ports, giving up after timeout
func Ports(timeout time.Duration) ([]drivers.In, []drivers.Out, error) {
	type result struct {
		ins  []drivers.In
		outs []drivers.Out
	}

	ch := make(chan result, 1)
	go func() {
		ins := gomidi.GetInPorts()
		outs := gomidi.GetOutPorts()
		ch <- result{ins: ins, outs: outs}
	}()

	select {
	case r := <-ch:
		return r.ins, r.outs, nil
	case <-time.After(timeout):
		return nil, nil, ErrTimeout
	}
}

// PortNamer is anything with a port name
type PortNamer interface {
	String() string
}

// Match returns the index of the first port whose name contains name
// (case insensitive). An empty name matches the sensor controller, which
// announces itself as a Pico, or else the only non-"through" port.
func Match[P PortNamer](ports []P, name string) (int, error) {
	name = strings.ToLower(name)
	if name != "" {
		for i, p := range ports {
			if strings.Contains(strings.ToLower(p.String()), name) {
				return i, nil
			}
		}
		return -1, errors.Wrapf(ErrNoPort, "%q", name)
	}

	for i, p := range ports {
		if strings.Contains(strings.ToLower(p.String()), "pico") {
			return i, nil
		}
	}
	var candidates []int
	for i, p := range ports {
		if !strings.Contains(strings.ToLower(p.String()), "through") {
			candidates = append(candidates, i)
		}
	}
	switch len(candidates) {
	case 0:
		return -1, ErrNoPort
	case 1:
		return candidates[0], nil
	}
	return -1, errors.Wrap(ErrNoPort, "several candidates, pass a port name")
}

// FindIn returns the input port matching name
func FindIn(name string) (drivers.In, error) {
	ins, _, err := Ports(DefaultTimeout)
	if err != nil {
		return nil, err
	}
	i, err := Match(ins, name)
	if err != nil {
		return nil, err
	}
	return ins[i], nil
}

// FindOut returns the output port matching name
func FindOut(name string) (drivers.Out, error) {
	_, outs, err := Ports(DefaultTimeout)
	if err != nil {
		return nil, err
	}
	i, err := Match(outs, name)
	if err != nil {
		return nil, err
	}
	return outs[i], nil
}
