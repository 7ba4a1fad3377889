package hd44780

import (
	"fmt"

	"periph.io/x/conn/v3/display"
)

// Instructions
const (
	cmdClearDisplay   byte = 0x01
	cmdReturnHome     byte = 0x02
	cmdEntryModeSet   byte = 0x04
	cmdDisplayControl byte = 0x08
	cmdCursorShift    byte = 0x10
	cmdFunctionSet    byte = 0x20
	cmdSetDDRAMAddr   byte = 0x80
)

// Flags for cmdDisplayControl
const (
	displayOn byte = 0x04
	cursorOn  byte = 0x02
	blinkOn   byte = 0x01
)

// Flags for cmdCursorShift
const (
	shiftDisplay byte = 0x08
	shiftRight   byte = 0x04
)

// Flags for cmdFunctionSet. 4-bit bus and 5x8 dots are the zero values.
const (
	function2Lines byte = 0x08
)

// Flags for cmdEntryModeSet
const (
	entryIncrement byte = 0x02
	entryShift     byte = 0x01
)

// Wake-up bytes. Each is sent as two nibbles; together the four nibbles
// 3, 3, 3, 2 leave the controller in 4-bit mode whatever mode it powered up
// in.
const (
	initWake     byte = 0x33
	initFourBits byte = 0x32
)

// DDRAM offset of the first character of each row.
var rowOffsets = [...]byte{0x00, 0x40, 0x14, 0x54}

// Initialize runs the 4-bit wake-up sequence, turns the display on with the
// cursor hidden, selects left-to-right entry and clears the display.
//
// New calls it already. Call it again to recover a display that lost power.
func (d *Dev) Initialize() error {
	d.log.WithField("dev", d.String()).Debug("hd44780: initializing display in 4-bit mode")

	function := cmdFunctionSet
	if d.rows > 1 {
		function |= function2Lines
	}
	for _, c := range []byte{
		initWake,
		initFourBits,
		displayControl(true, false, false),
		function,
		entryMode(false),
	} {
		if err := d.command(c); err != nil {
			return err
		}
	}
	d.on, d.cursor, d.blink, d.shift = true, false, false, false
	return d.Clear()
}

// Clear blanks the display and moves the cursor to the first row.
func (d *Dev) Clear() error {
	return d.slowCommand(cmdClearDisplay)
}

// Home moves the cursor to the first row and undoes any display shift.
func (d *Dev) Home() error {
	return d.slowCommand(cmdReturnHome)
}

// SetLineAddress moves the cursor to the start of the 0-based row.
func (d *Dev) SetLineAddress(row int) error {
	if row < 0 || row >= d.rows {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrRowOutOfRange, row, d.rows)
	}
	if err := d.command(cmdSetDDRAMAddr | rowOffsets[row]); err != nil {
		return err
	}
	d.row = row
	return nil
}

// WriteChar writes c at the cursor, which then advances one column.
//
// Only printable ASCII is accepted; see Sanitize.
func (d *Dev) WriteChar(c rune) error {
	if !supported(c) {
		return fmt.Errorf("%w: %q", ErrUnsupportedChar, c)
	}
	return d.sendByte(byte(c), modeCharacter)
}

// Display turns the display on or off. Contents are kept while off.
func (d *Dev) Display(on bool) error {
	if err := d.command(displayControl(on, d.cursor, d.blink)); err != nil {
		return err
	}
	d.on = on
	return nil
}

// Cursor sets the cursor mode. CursorBlock and CursorBlink both select the
// controller's blinking block; it can be combined with CursorUnderline.
func (d *Dev) Cursor(modes ...display.CursorMode) error {
	cursor, blink := d.cursor, d.blink
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
			cursor, blink = false, false
		case display.CursorUnderline:
			cursor = true
		case display.CursorBlink, display.CursorBlock:
			blink = true
		default:
			return fmt.Errorf("hd44780: unexpected cursor mode: %d", mode)
		}
	}
	if err := d.command(displayControl(d.on, cursor, blink)); err != nil {
		return err
	}
	d.cursor, d.blink = cursor, blink
	return nil
}

// AutoScroll shifts the whole display left on every character written
// instead of moving the cursor.
func (d *Dev) AutoScroll(enabled bool) error {
	if err := d.command(entryMode(enabled)); err != nil {
		return err
	}
	d.shift = enabled
	return nil
}

// Move moves the cursor one position forward or backward. Up and Down are
// not supported by the controller.
func (d *Dev) Move(dir display.CursorDirection) error {
	switch dir {
	case display.Forward:
		return d.command(cmdCursorShift | shiftRight)
	case display.Backward:
		return d.command(cmdCursorShift)
	default:
		return fmt.Errorf("hd44780: %w", display.ErrNotImplemented)
	}
}

// ShiftDisplay scrolls the whole display one position without changing
// DDRAM. Positive n shifts right.
func (d *Dev) ShiftDisplay(n int) error {
	c := cmdCursorShift | shiftDisplay
	if n > 0 {
		c |= shiftRight
	} else {
		n = -n
	}
	for range n {
		if err := d.command(c); err != nil {
			return err
		}
	}
	return nil
}

// MoveTo moves the cursor to row and col, both counted from 1.
func (d *Dev) MoveTo(row, col int) error {
	if row < d.MinRow() || row > d.rows {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrRowOutOfRange, row, d.rows)
	}
	if col < d.MinCol() || col > d.cols {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrColOutOfRange, col, d.cols)
	}
	if err := d.command(cmdSetDDRAMAddr | (rowOffsets[row-1] + byte(col-1))); err != nil {
		return err
	}
	d.row = row - 1
	return nil
}

// Write writes p at the cursor. A '\n' moves to the start of the next row.
// Writing stops at the first unsupported byte.
func (d *Dev) Write(p []byte) (n int, err error) {
	for _, b := range p {
		if b == '\n' {
			err = d.SetLineAddress(d.row + 1)
		} else {
			err = d.WriteChar(rune(b))
		}
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// WriteString writes text at the cursor. See Write.
func (d *Dev) WriteString(text string) (int, error) {
	return d.Write([]byte(text))
}

func (d *Dev) command(c byte) error {
	return d.sendByte(c, modeCommand)
}

// slowCommand sends clear or return home and waits for it to finish. Both run
// far longer than other instructions.
func (d *Dev) slowCommand(c byte) error {
	if err := d.command(c); err != nil {
		return err
	}
	d.sleep(d.timing.Settle)
	d.row = 0
	return nil
}

func displayControl(on, cursor, blink bool) byte {
	c := cmdDisplayControl
	if on {
		c |= displayOn
	}
	if cursor {
		c |= cursorOn
	}
	if blink {
		c |= blinkOn
	}
	return c
}

func entryMode(shift bool) byte {
	c := cmdEntryModeSet | entryIncrement
	if shift {
		c |= entryShift
	}
	return c
}
