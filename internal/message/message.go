// Package message the diagnostic sink shared by all drivers of one storage or retrieval pass
package message

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

type Gravity int

const (
	Trace Gravity = iota
	Info
	Warning
	Alarm
	Fail
)

func (g Gravity) String() string {
	switch g {
	case Trace:
		return "trace"
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Alarm:
		return "alarm"
	case Fail:
		return "fail"
	}
	return fmt.Sprintf("gravity(%d)", int(g))
}

// Driver accepts leveled diagnostics
type Driver interface {
	Send(text string, gravity Gravity)
}

// Sendf formats and sends
func Sendf(d Driver, gravity Gravity, format string, args ...any) {
	if d == nil {
		return
	}
	d.Send(fmt.Sprintf(format, args...), gravity)
}

// ZapDriver forwards diagnostics to a zap logger
type ZapDriver struct {
	sugar *zap.SugaredLogger
}

func NewZapDriver(logger *zap.Logger) *ZapDriver {
	return &ZapDriver{sugar: logger.Sugar()}
}

func (z *ZapDriver) Send(text string, gravity Gravity) {
	switch gravity {
	case Trace:
		z.sugar.Debugw(text, "gravity", gravity)
	case Info:
		z.sugar.Infow(text, "gravity", gravity)
	case Warning:
		z.sugar.Warnw(text, "gravity", gravity)
	default:
		z.sugar.Errorw(text, "gravity", gravity)
	}
}

// Nop drops everything
type Nop struct{}

func (Nop) Send(string, Gravity) {}

// Entry one collected diagnostic
type Entry struct {
	Text    string
	Gravity Gravity
}

// Collector keeps every diagnostic in memory, optionally forwarding them
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	next    Driver
}

// NewCollector next may be nil
func NewCollector(next Driver) *Collector {
	return &Collector{next: next}
}

func (c *Collector) Send(text string, gravity Gravity) {
	c.mu.Lock()
	c.entries = append(c.entries, Entry{Text: text, Gravity: gravity})
	c.mu.Unlock()
	if c.next != nil {
		c.next.Send(text, gravity)
	}
}

// Entries returns collected diagnostics at or above min
func (c *Collector) Entries(min Gravity) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Entry
	for _, e := range c.entries {
		if e.Gravity >= min {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of diagnostics at or above min
func (c *Collector) Count(min Gravity) int {
	return len(c.Entries(min))
}

func (c *Collector) Reset() {
	c.mu.Lock()
	c.entries = nil
	c.mu.Unlock()
}
