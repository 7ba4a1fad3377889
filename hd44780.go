// Package hd44780 controls an HD44780 compatible character LCD wired to six
// GPIO pins in 4-bit bus mode.
//
// See the examples for how to use this package.
package hd44780

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/devices/v3/hd44780/nibble"
)

// Datasheet minimums. The busy flag is never read, so EnableHold must also
// cover the 37µs execution time of an ordinary instruction and Settle the
// 1.52ms of clear and return home.
const (
	MinEnableSetup = 140 * time.Nanosecond
	MinEnablePulse = 450 * time.Nanosecond
	MinEnableHold  = 37 * time.Microsecond
	MinSettle      = 1520 * time.Microsecond
)

var (
	// ErrHalted is returned by every operation after Halt.
	ErrHalted = errors.New("hd44780: halted")
	// ErrNilPin is returned by New when a pin is missing.
	ErrNilPin = errors.New("hd44780: pin not set")
	// ErrRowOutOfRange is returned for a row outside the display.
	ErrRowOutOfRange = errors.New("hd44780: row out of range")
	// ErrColOutOfRange is returned for a column outside the display.
	ErrColOutOfRange = errors.New("hd44780: column out of range")
	// ErrLineTooLong is returned when a line does not fit in a row.
	ErrLineTooLong = errors.New("hd44780: line too long")
	// ErrTooManyLines is returned when more lines than rows are written.
	ErrTooManyLines = errors.New("hd44780: too many lines")
	// ErrUnsupportedChar is returned for characters outside printable ASCII.
	ErrUnsupportedChar = errors.New("hd44780: unsupported character")
)

// Pins binds the controller's signals to GPIO outputs. R/W must be tied to
// ground; the driver only ever writes.
type Pins struct {
	RS gpio.PinOut // Register select: low for instructions, high for data
	E  gpio.PinOut // Enable strobe

	// Data lines. D0-D3 are left unconnected in 4-bit mode.
	D4, D5, D6, D7 gpio.PinOut
}

func (p *Pins) all() []gpio.PinOut {
	return []gpio.PinOut{p.RS, p.E, p.D4, p.D5, p.D6, p.D7}
}

// validate checks every pin is present and distinct. Pins are told apart by
// name.
func (p *Pins) validate() error {
	roles := []string{"RS", "E", "D4", "D5", "D6", "D7"}
	seen := map[string]string{}
	for i, pin := range p.all() {
		if pin == nil {
			return fmt.Errorf("%w: %s", ErrNilPin, roles[i])
		}
		if other, ok := seen[pin.Name()]; ok {
			return fmt.Errorf("hd44780: pin %s assigned to both %s and %s", pin.Name(), other, roles[i])
		}
		seen[pin.Name()] = roles[i]
	}
	return nil
}

// Timing holds the delays that stand in for polling the busy flag. A zero
// field takes its value from DefaultTiming.
type Timing struct {
	EnableSetup time.Duration // Before raising enable
	EnablePulse time.Duration // Enable high time
	EnableHold  time.Duration // After lowering enable
	Settle      time.Duration // After clear and return home
}

// DefaultTiming is comfortably above the datasheet minimums so it works on
// slow modules and long wires.
var DefaultTiming = Timing{
	EnableSetup: 50 * time.Microsecond,
	EnablePulse: 50 * time.Microsecond,
	EnableHold:  50 * time.Microsecond,
	Settle:      3 * time.Millisecond,
}

func (t Timing) withDefaults() Timing {
	if t.EnableSetup == 0 {
		t.EnableSetup = DefaultTiming.EnableSetup
	}
	if t.EnablePulse == 0 {
		t.EnablePulse = DefaultTiming.EnablePulse
	}
	if t.EnableHold == 0 {
		t.EnableHold = DefaultTiming.EnableHold
	}
	if t.Settle == 0 {
		t.Settle = DefaultTiming.Settle
	}
	return t
}

func (t Timing) validate() error {
	switch {
	case t.EnableSetup < MinEnableSetup:
		return fmt.Errorf("hd44780: enable setup %v below minimum %v", t.EnableSetup, MinEnableSetup)
	case t.EnablePulse < MinEnablePulse:
		return fmt.Errorf("hd44780: enable pulse %v below minimum %v", t.EnablePulse, MinEnablePulse)
	case t.EnableHold < MinEnableHold:
		return fmt.Errorf("hd44780: enable hold %v below minimum %v", t.EnableHold, MinEnableHold)
	case t.Settle < MinSettle:
		return fmt.Errorf("hd44780: settle delay %v below minimum %v", t.Settle, MinSettle)
	}
	return nil
}

// Opts is the configuration for the display.
type Opts struct {
	// Display geometry in characters
	Cols int // Columns (default: 16, 1-40, at most 20 with 4 rows)
	Rows int // Rows (default: 2, one of 1, 2 or 4)

	Timing Timing

	// Logger receives debug output. Defaults to logrus.StandardLogger().
	Logger logrus.FieldLogger
}

// DefaultOpts describes the common 16x2 module.
var DefaultOpts = Opts{Cols: 16, Rows: 2, Timing: DefaultTiming}

func (o *Opts) validate() error {
	switch o.Rows {
	case 1, 2, 4:
	default:
		return fmt.Errorf("hd44780: rows must be 1, 2 or 4, got %d", o.Rows)
	}
	maxCols := 40
	if o.Rows == 4 {
		maxCols = 20
	}
	if o.Cols <= 0 || o.Cols > maxCols {
		return fmt.Errorf("hd44780: columns must be between 1 and %d, got %d", maxCols, o.Cols)
	}
	return nil
}

// Dev is a handle to an HD44780 display.
//
// Dev is not safe for concurrent use. A single goroutine should own it.
type Dev struct {
	rs   gpio.PinOut
	e    gpio.PinOut
	data [nibble.Lines]gpio.PinOut
	pins []gpio.PinOut

	rows, cols int
	timing     Timing
	log        logrus.FieldLogger
	sleep      func(time.Duration)

	// Mirrors of write-only controller registers
	on, cursor, blink bool
	shift             bool
	row               int

	halted bool
}

// New configures the pins as outputs, runs the controller's 4-bit
// initialization sequence and clears the display.
//
// opts can be nil to use defaults (16x2 display, DefaultTiming).
func New(pins Pins, opts *Opts) (*Dev, error) {
	return newDev(pins, opts, time.Sleep)
}

func newDev(pins Pins, opts *Opts, sleep func(time.Duration)) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if err := pins.validate(); err != nil {
		return nil, err
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	timing := opts.Timing.withDefaults()
	if err := timing.validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	d := &Dev{
		rs:     pins.RS,
		e:      pins.E,
		data:   [nibble.Lines]gpio.PinOut{pins.D4, pins.D5, pins.D6, pins.D7},
		pins:   pins.all(),
		rows:   opts.Rows,
		cols:   opts.Cols,
		timing: timing,
		log:    log,
		sleep:  sleep,
	}

	// Driving a periph pin configures it as an output.
	for _, p := range d.pins {
		if err := p.Out(gpio.Low); err != nil {
			return nil, d.abort(fmt.Errorf("hd44780: failed to configure %s as output: %w", p, err))
		}
	}

	if err := d.Initialize(); err != nil {
		return nil, d.abort(err)
	}
	return d, nil
}

// abort releases the pins of a device that failed to come up. The release
// errors are joined to err.
func (d *Dev) abort(err error) error {
	return errors.Join(err, d.Halt())
}

// Rows returns the number of rows of the display.
func (d *Dev) Rows() int {
	return d.rows
}

// Cols returns the number of columns of the display.
func (d *Dev) Cols() int {
	return d.cols
}

// MinRow returns the first row accepted by MoveTo.
func (d *Dev) MinRow() int {
	return 1
}

// MinCol returns the first column accepted by MoveTo.
func (d *Dev) MinCol() int {
	return 1
}

// Halt releases the pins. Pins that can be inputs are switched back to input
// first. The display keeps showing its last contents.
//
// After calling Halt every other operation returns ErrHalted. Calling Halt
// again does nothing.
func (d *Dev) Halt() error {
	if d.halted {
		return nil
	}
	d.halted = true

	var errs []error
	for _, p := range d.pins {
		if in, ok := p.(gpio.PinIn); ok {
			if err := in.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
				errs = append(errs, fmt.Errorf("hd44780: failed to release %s: %w", p, err))
			}
		}
		if err := p.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("hd44780: failed to halt %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("hd44780.Dev{%dx%d}", d.cols, d.rows)
}

var _ display.TextDisplay = &Dev{}
var _ conn.Resource = &Dev{}
