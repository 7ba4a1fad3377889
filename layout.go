package hd44780

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"
	"periph.io/x/devices/v3/hd44780/textwrap"
)

// WriteLines shows one line per row, starting at the first row. Every row is
// written in full: lines are padded with spaces and rows without a line are
// blanked, so nothing from earlier content survives.
//
// All lines are checked before anything is sent. A line longer than the
// display is an error, not truncated.
func (d *Dev) WriteLines(lines ...string) error {
	if len(lines) > d.rows {
		return fmt.Errorf("%w: %d lines for %d rows", ErrTooManyLines, len(lines), d.rows)
	}
	for _, l := range lines {
		if err := d.checkLine(l); err != nil {
			return err
		}
	}
	for row := range d.rows {
		var l string
		if row < len(lines) {
			l = lines[row]
		}
		if err := d.writeRow(row, l); err != nil {
			return err
		}
	}
	return nil
}

// writeRow writes exactly d.cols characters at the start of row. l must have
// passed checkLine.
func (d *Dev) writeRow(row int, l string) error {
	if err := d.SetLineAddress(row); err != nil {
		return err
	}
	for i := range d.cols {
		c := byte(' ')
		if i < len(l) {
			c = l[i]
		}
		if err := d.sendByte(c, modeCharacter); err != nil {
			return err
		}
	}
	return nil
}

// ScrollOpts is the configuration for a Scroller.
type ScrollOpts struct {
	// Dwell is how long each frame stays up (default: 1.5s).
	Dwell time.Duration

	// Logger receives a debug entry per frame. Defaults to the display's.
	Logger logrus.FieldLogger
}

// DefaultScrollOpts holds the default dwell.
var DefaultScrollOpts = ScrollOpts{Dwell: 1500 * time.Millisecond}

// Scroller pages a message that is too long for the display. The message is
// word wrapped to the display width and each frame shows consecutive wrapped
// lines, one per row, starting one line further than the previous frame.
//
// Rows past the last wrapped line are left blank rather than wrapping around
// within a frame; after the frame starting at the last line the next frame
// starts at the first line again.
//
// A Scroller drives its Dev directly. Only Post may be called from other
// goroutines.
type Scroller struct {
	dev   *Dev
	dwell time.Duration
	log   logrus.FieldLogger

	lines  []string
	cursor int

	posted chan string
}

// NewScroller returns a Scroller showing text on dev. Nothing is written
// until Step or Run.
//
// opts can be nil to use DefaultScrollOpts.
func NewScroller(dev *Dev, text string, opts *ScrollOpts) (*Scroller, error) {
	if opts == nil {
		opts = &DefaultScrollOpts
	}
	if opts.Dwell < 0 {
		return nil, fmt.Errorf("hd44780: negative dwell %v", opts.Dwell)
	}
	s := &Scroller{
		dev:    dev,
		dwell:  opts.Dwell,
		log:    opts.Logger,
		posted: make(chan string, 1),
	}
	if s.dwell == 0 {
		s.dwell = DefaultScrollOpts.Dwell
	}
	if s.log == nil {
		s.log = dev.log
	}
	if err := s.SetMessage(text); err != nil {
		return nil, err
	}
	return s, nil
}

// SetMessage replaces the message and restarts from its first line. The
// current frame stays on the display until the next Step.
func (s *Scroller) SetMessage(text string) error {
	for _, c := range text {
		if !supported(c) && !unicode.IsSpace(c) {
			return fmt.Errorf("%w: %q", ErrUnsupportedChar, c)
		}
	}
	s.lines = textwrap.Wrap(text, s.dev.cols)
	s.cursor = 0
	return nil
}

// Post hands a new message to a running Run. It never blocks; when messages
// arrive faster than frames only the latest is kept.
func (s *Scroller) Post(text string) {
	for {
		select {
		case s.posted <- text:
			return
		default:
		}
		select {
		case <-s.posted:
		default:
		}
	}
}

// Lines returns the wrapped message.
func (s *Scroller) Lines() []string {
	return append([]string(nil), s.lines...)
}

// Cursor returns the index of the wrapped line the next frame starts with.
func (s *Scroller) Cursor() int {
	return s.cursor
}

// Step shows the frame at the cursor and advances the cursor.
func (s *Scroller) Step() error {
	frame := make([]string, s.dev.rows)
	for r := range frame {
		if i := s.cursor + r; i < len(s.lines) {
			frame[r] = s.lines[i]
		}
	}
	s.log.WithFields(logrus.Fields{
		"line": s.cursor,
		"text": s.lines[s.cursor],
	}).Debug("hd44780: scroll frame")

	if err := s.dev.WriteLines(frame...); err != nil {
		return err
	}
	s.cursor = (s.cursor + 1) % len(s.lines)
	return nil
}

// Run shows a frame every dwell until ctx is done, then returns ctx.Err().
// It blocks the calling goroutine throughout. A message received through
// Post is shown right away from its first line; an unusable one is logged
// and skipped.
func (s *Scroller) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(); err != nil {
			return err
		}
		if err := s.wait(ctx); err != nil {
			return err
		}
	}
}

// wait sleeps for one dwell, cut short by ctx or a posted message.
func (s *Scroller) wait(ctx context.Context) error {
	timer := time.NewTimer(s.dwell)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case text := <-s.posted:
		if err := s.SetMessage(text); err != nil {
			s.log.WithError(err).Warn("hd44780: ignoring message")
		}
	case <-timer.C:
	}
	return nil
}

// Scroll wraps text and pages through it on dev until ctx is done.
// Cancellation is the normal way to stop and returns nil.
func Scroll(ctx context.Context, dev *Dev, text string, opts *ScrollOpts) error {
	s, err := NewScroller(dev, text, opts)
	if err != nil {
		return err
	}
	err = s.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
