// Package nibble splits bytes into the two 4-bit halves the HD44780 expects on
// its D4-D7 data lines when wired in 4-bit bus mode.
//
// The controller takes the high nibble first, then the low nibble. Within a
// nibble bit 0 drives D4 and bit 3 drives D7.
package nibble

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// Lines is the number of data lines a nibble is spread across.
const Lines = 4

// Nibble is a 4-bit value. Only the lower 4 bits are used.
type Nibble uint8

// Split returns the high (bits 4-7) and low (bits 0-3) nibbles of b.
func Split(b byte) (hi, lo Nibble) {
	return Nibble(b >> 4), Nibble(b & 0x0F)
}

// Join packs hi and lo back into a byte.
func Join(hi, lo Nibble) byte {
	return byte(hi&0x0F)<<4 | byte(lo&0x0F)
}

// Bit returns the level of data line i (0 = D4, 3 = D7).
func (n Nibble) Bit(i int) gpio.Level {
	return gpio.Level(n>>uint(i)&1 != 0)
}

// Levels returns the four data line levels, D4 first.
func (n Nibble) Levels() [Lines]gpio.Level {
	var l [Lines]gpio.Level
	for i := range l {
		l[i] = n.Bit(i)
	}
	return l
}

// FromLevels rebuilds a nibble from data line levels, D4 first.
func FromLevels(l [Lines]gpio.Level) Nibble {
	var n Nibble
	for i, v := range l {
		if v {
			n |= 1 << uint(i)
		}
	}
	return n
}

func (n Nibble) String() string {
	return fmt.Sprintf("%04b", uint8(n&0x0F))
}
