// Package hd44780test provides a simulated HD44780 wired in 4-bit mode to
// recording GPIO pins.
//
// Every Out call is recorded. Nibbles are latched on the falling edge of the
// enable strobe, as the controller does, and paired into transfers that are
// applied to an emulated DDRAM so tests can read back what a real display
// would show.
package hd44780test

import (
	"fmt"
	"strings"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/devices/v3/hd44780/nibble"
)

// Pin names used by NewBus.
const (
	NameRS = "RS"
	NameE  = "E"
	NameD4 = "D4"
	NameD5 = "D5"
	NameD6 = "D6"
	NameD7 = "D7"
)

var rowOffsets = [...]byte{0x00, 0x40, 0x14, 0x54}

// Event is a single recorded Out call.
type Event struct {
	Pin   string
	Level gpio.Level
}

func (e Event) String() string {
	return fmt.Sprintf("%s=%s", e.Pin, e.Level)
}

// Latch is a nibble captured on a falling enable edge.
type Latch struct {
	RS   gpio.Level
	Data nibble.Nibble
}

// Transfer is a full byte made of two consecutive latches.
type Transfer struct {
	RS    gpio.Level
	Value byte
	// RSStable is false when register select differed between the two
	// latches or was written in between them.
	RSStable bool
}

// Character reports whether the transfer wrote display data rather than a
// command.
func (t Transfer) Character() bool {
	return bool(t.RS)
}

func (t Transfer) String() string {
	if t.Character() {
		return fmt.Sprintf("chr(%q)", rune(t.Value))
	}
	return fmt.Sprintf("cmd(0x%02X)", t.Value)
}

// Pin is a gpio.PinOut that reports to its Bus.
type Pin struct {
	*gpiotest.Pin
	bus *Bus
}

// Out records the level and forwards it to the underlying test pin.
func (p *Pin) Out(l gpio.Level) error {
	p.bus.record(p, l)
	return p.Pin.Out(l)
}

// In marks the pin as released. Pull and edge are ignored.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	p.bus.mu.Lock()
	defer p.bus.mu.Unlock()
	p.bus.released[p.Name()] = true
	return nil
}

// Bus is the set of six pins of a 4-bit HD44780 hookup plus the emulated
// controller listening on them.
type Bus struct {
	RS, E          *Pin
	D4, D5, D6, D7 *Pin

	mu       sync.Mutex
	levels   map[*Pin]gpio.Level
	released map[string]bool
	events   []Event
	latches  []Latch
	// rsWrites counts RS writes since the last latch.
	rsWrites int
	pending  *Latch
	glitches int

	transfers []Transfer
	ddram     [0x80]byte
	addr      byte
}

// NewBus returns a Bus with freshly created pins, all reading Low.
func NewBus() *Bus {
	b := &Bus{
		levels:   map[*Pin]gpio.Level{},
		released: map[string]bool{},
	}
	mk := func(name string, num int) *Pin {
		return &Pin{Pin: &gpiotest.Pin{N: name, Num: num}, bus: b}
	}
	b.RS = mk(NameRS, 0)
	b.E = mk(NameE, 1)
	b.D4 = mk(NameD4, 4)
	b.D5 = mk(NameD5, 5)
	b.D6 = mk(NameD6, 6)
	b.D7 = mk(NameD7, 7)
	b.clearDDRAM()
	return b
}

func (b *Bus) data() [nibble.Lines]*Pin {
	return [nibble.Lines]*Pin{b.D4, b.D5, b.D6, b.D7}
}

func (b *Bus) record(p *Pin, l gpio.Level) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, Event{Pin: p.Name(), Level: l})
	prev := b.levels[p]
	b.levels[p] = l

	switch p {
	case b.E:
		if prev == gpio.High && l == gpio.Low {
			b.latch()
		}
	case b.RS:
		b.rsWrites++
		if b.levels[b.E] == gpio.High {
			b.glitches++
		}
	default:
		if b.levels[b.E] == gpio.High {
			b.glitches++
		}
	}
}

// latch must be called with mu held.
func (b *Bus) latch() {
	var lv [nibble.Lines]gpio.Level
	for i, d := range b.data() {
		lv[i] = b.levels[d]
	}
	l := Latch{RS: b.levels[b.RS], Data: nibble.FromLevels(lv)}
	b.latches = append(b.latches, l)

	if b.pending == nil {
		b.pending = &l
		b.rsWrites = 0
		return
	}
	hi := *b.pending
	b.pending = nil
	t := Transfer{
		RS:       hi.RS,
		Value:    nibble.Join(hi.Data, l.Data),
		RSStable: hi.RS == l.RS && b.rsWrites == 0,
	}
	b.transfers = append(b.transfers, t)
	b.apply(t)
}

// apply must be called with mu held.
func (b *Bus) apply(t Transfer) {
	if t.Character() {
		b.ddram[b.addr] = t.Value
		b.addr = (b.addr + 1) & 0x7F
		return
	}
	switch {
	case t.Value&0x80 != 0:
		b.addr = t.Value & 0x7F
	case t.Value == 0x01:
		b.clearDDRAM()
		b.addr = 0
	case t.Value&0xFE == 0x02:
		b.addr = 0
	}
}

func (b *Bus) clearDDRAM() {
	for i := range b.ddram {
		b.ddram[i] = ' '
	}
}

// Events returns every recorded Out call since the last Reset.
func (b *Bus) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.events...)
}

// Latches returns every nibble latched since the last Reset.
func (b *Bus) Latches() []Latch {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Latch(nil), b.latches...)
}

// Transfers returns every complete byte transferred since the last Reset.
func (b *Bus) Transfers() []Transfer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Transfer(nil), b.transfers...)
}

// Glitches counts data or register select writes made while enable was high.
func (b *Bus) Glitches() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.glitches
}

// Released reports whether the named pin was switched back to input.
func (b *Bus) Released(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released[name]
}

// Level returns the last level driven on p.
func (b *Bus) Level(p *Pin) gpio.Level {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.levels[p]
}

// Reset forgets recorded events, latches and transfers. The emulated display
// contents and a half-received byte are kept.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
	b.latches = nil
	b.transfers = nil
	b.glitches = 0
}

// Row returns the first cols characters of the given 0-based row as the
// emulated controller holds them.
func (b *Bus) Row(row, cols int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	off := int(rowOffsets[row])
	return string(b.ddram[off : off+cols])
}

// Screen returns rows lines of cols characters each.
func (b *Bus) Screen(rows, cols int) []string {
	out := make([]string, rows)
	for r := range out {
		out[r] = b.Row(r, cols)
	}
	return out
}

// String renders the emulated 16x2 screen, mostly useful in test failures.
func (b *Bus) String() string {
	return strings.Join(b.Screen(2, 16), "|")
}
