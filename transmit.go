package hd44780

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/devices/v3/hd44780/nibble"
)

// writeMode is the level of the register select line.
type writeMode bool

const (
	modeCommand   writeMode = false
	modeCharacter writeMode = true
)

// sendByte transfers v as two nibbles, high nibble first. Register select is
// set once and held for both.
//
// The controller never acknowledges anything, so a nibble latched at the
// wrong moment is lost without trace. Only errors from the pins themselves
// are reported.
func (d *Dev) sendByte(v byte, mode writeMode) error {
	if d.halted {
		return ErrHalted
	}
	if err := d.rs.Out(gpio.Level(mode)); err != nil {
		return fmt.Errorf("hd44780: failed to drive RS: %w", err)
	}
	hi, lo := nibble.Split(v)
	if err := d.writeNibble(hi); err != nil {
		return err
	}
	return d.writeNibble(lo)
}

// writeNibble presents n on D4-D7 and strobes enable.
func (d *Dev) writeNibble(n nibble.Nibble) error {
	for i, l := range n.Levels() {
		if err := d.data[i].Out(l); err != nil {
			return fmt.Errorf("hd44780: failed to drive D%d: %w", i+4, err)
		}
	}
	return d.toggleEnable()
}

// toggleEnable pulses enable high. The controller latches the data lines on
// the falling edge.
func (d *Dev) toggleEnable() error {
	d.sleep(d.timing.EnableSetup)
	if err := d.e.Out(gpio.High); err != nil {
		return fmt.Errorf("hd44780: failed to raise E: %w", err)
	}
	d.sleep(d.timing.EnablePulse)
	if err := d.e.Out(gpio.Low); err != nil {
		return fmt.Errorf("hd44780: failed to lower E: %w", err)
	}
	d.sleep(d.timing.EnableHold)
	return nil
}
