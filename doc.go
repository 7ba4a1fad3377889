// Package hd44780 controls an HD44780 compatible character LCD wired to six
// GPIO pins in 4-bit bus mode.
//
// The HD44780 is the controller behind most 16x2 and 20x4 character modules.
// This driver implements the display.TextDisplay interface from periph.io.
//
// # Display Characteristics
//
// - 1, 2 or 4 rows of up to 40 characters (20 with 4 rows)
// - 5x8 dot characters from the built-in ROM, printable ASCII only
// - Write-only 4-bit bus: the busy flag is never read, fixed delays are used instead
// - Cursor, blink, display shift and auto scroll
//
// # Hardware Connection
//
// Connect the module to six GPIO outputs. R/W must be tied to ground:
//
//	Display Pin → System Pin
//	VSS         → GND
//	VDD         → 5V
//	V0          → Contrast potentiometer wiper
//	RS          → GPIO (register select)
//	R/W         → GND
//	E           → GPIO (enable)
//	D0-D3       → Not connected
//	D4-D7       → GPIO (four data lines)
//	A/K         → Backlight supply
//
// # Basic Usage
//
//	package main
//
//	import (
//		"log"
//
//		"periph.io/x/conn/v3/gpio/gpioreg"
//		"periph.io/x/devices/v3/hd44780"
//		"periph.io/x/host/v3"
//	)
//
//	func main() {
//		if _, err := host.Init(); err != nil {
//			log.Fatal(err)
//		}
//
//		dev, err := hd44780.New(hd44780.Pins{
//			RS: gpioreg.ByName("GPIO27"),
//			E:  gpioreg.ByName("GPIO22"),
//			D4: gpioreg.ByName("GPIO25"),
//			D5: gpioreg.ByName("GPIO24"),
//			D6: gpioreg.ByName("GPIO23"),
//			D7: gpioreg.ByName("GPIO18"),
//		}, nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer dev.Halt()
//
//		dev.WriteLines("Hello,", "world!")
//	}
//
// # Static Lines
//
// WriteLines writes every row in full, padding with spaces, so shorter text
// never leaves stale characters behind. Lines longer than the display are
// rejected rather than truncated:
//
//	dev.WriteLines("Temp 21.5C", "Humidity 40%")
//
// Use Sanitize on text from outside sources; it folds accented letters to
// ASCII and drops anything else the ROM cannot show.
//
// # Scrolling Messages
//
// A Scroller word wraps a long message to the display width and pages
// through it one wrapped line at a time:
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	hd44780.Scroll(ctx, dev, "a message much longer than one screen", nil)
//
// Run blocks its goroutine until the context is cancelled. Use Post from
// another goroutine to replace the message while it runs.
//
// # Timing
//
// Every nibble is framed by three delays around the enable pulse and clear
// and return home are followed by a settle delay. The defaults (50µs, 50µs,
// 50µs and 3ms) are safe for slow modules. They can be lowered through
// Opts.Timing but not below the datasheet minimums, since a transfer the
// controller missed cannot be detected.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
package hd44780
