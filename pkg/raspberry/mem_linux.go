//go:build linux

package raspberry

import (
	"time"

	"rf433/pkg/port"

	"github.com/warthog618/gpio"
)

// Pin represents a watched pin of the /dev/gpiomem memory range.
type Pin struct {
	*events
	gpioPin *gpio.Pin
	origin  time.Time
}

// openMem maps the gpio memory and watches the pin for edges.
// The edges are timestamped in the watch handler, so they include the handler latency.
func openMem(c Config) (port.Line, error) {
	if err := gpio.Open(); err != nil {
		return nil, err
	}

	p := &Pin{events: newEvents(), gpioPin: gpio.NewPin(c.Line), origin: time.Now()}
	p.gpioPin.Input()

	switch c.Bias {
	case "pullup":
		p.gpioPin.PullUp()
	case "pulldown":
		p.gpioPin.PullDown()
	}

	err := p.gpioPin.Watch(gpio.EdgeBoth, func(g *gpio.Pin) {
		ts := time.Since(p.origin)
		if g.Read() == gpio.High {
			p.send(port.Event{Type: port.RisingEdge, Timestamp: ts})
			return
		}
		p.send(port.Event{Type: port.FallingEdge, Timestamp: ts})
	})
	if err != nil {
		_ = gpio.Close()
		return nil, err
	}

	return p, nil
}

// Close removes the interrupt handler and unmaps the gpio memory.
func (p *Pin) Close() error {
	p.gpioPin.Unwatch()
	p.close()
	return gpio.Close()
}
