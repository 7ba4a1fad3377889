package hd44780

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

const demoMessage = "here's quite a long string, I wonder if this will be more than enough to fill the display"

func pad(s string, n int) string {
	return fmt.Sprintf("%-*s", n, s)
}

func TestScrollerFrames(t *testing.T) {
	r := newRig(t, &Opts{Cols: 16, Rows: 2, Logger: quietLogger()})
	s, err := NewScroller(r.dev, demoMessage, nil)
	if err != nil {
		t.Fatal(err)
	}
	lines := s.Lines()
	n := len(lines)
	if n != 6 {
		t.Fatalf("Lines() = %q, want 6 lines", lines)
	}

	// Two full cycles plus one frame.
	for frame := 0; frame <= 2*n; frame++ {
		i := frame % n
		if s.Cursor() != i {
			t.Fatalf("frame %d: Cursor() = %d, want %d", frame, s.Cursor(), i)
		}
		if err := s.Step(); err != nil {
			t.Fatal(err)
		}
		want := []string{pad(lines[i], 16), pad("", 16)}
		if i+1 < n {
			want[1] = pad(lines[i+1], 16)
		}
		got := r.bus.Screen(2, 16)
		if got[0] != want[0] || got[1] != want[1] {
			t.Errorf("frame %d: Screen() = %q, want %q", frame, got, want)
		}
	}
}

func TestScrollerSingleLine(t *testing.T) {
	r := newRig(t, &Opts{Cols: 16, Rows: 2, Logger: quietLogger()})
	s, err := NewScroller(r.dev, "hi there", nil)
	if err != nil {
		t.Fatal(err)
	}
	for frame := 0; frame < 3; frame++ {
		if err := s.Step(); err != nil {
			t.Fatal(err)
		}
		if s.Cursor() != 0 {
			t.Errorf("frame %d: Cursor() = %d, want 0", frame, s.Cursor())
		}
		got := r.bus.Screen(2, 16)
		if got[0] != pad("hi there", 16) || got[1] != pad("", 16) {
			t.Errorf("frame %d: Screen() = %q", frame, got)
		}
	}
}

func TestScrollerEmptyMessage(t *testing.T) {
	r := newRig(t, &Opts{Cols: 16, Rows: 2, Logger: quietLogger()})
	if err := r.dev.WriteLines("stale", "content"); err != nil {
		t.Fatal(err)
	}
	s, err := NewScroller(r.dev, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if lines := s.Lines(); len(lines) != 1 || lines[0] != "" {
		t.Fatalf("Lines() = %q, want one empty line", lines)
	}
	if err := s.Step(); err != nil {
		t.Fatal(err)
	}
	if got := r.bus.Screen(2, 16); got[0] != pad("", 16) || got[1] != pad("", 16) {
		t.Errorf("Screen() = %q, want blank", got)
	}
}

func TestScrollerFourRows(t *testing.T) {
	r := newRig(t, &Opts{Cols: 20, Rows: 4, Logger: quietLogger()})
	s, err := NewScroller(r.dev, demoMessage, nil)
	if err != nil {
		t.Fatal(err)
	}
	lines := s.Lines()
	n := len(lines)

	for frame := 0; frame < n+1; frame++ {
		i := frame % n
		if err := s.Step(); err != nil {
			t.Fatal(err)
		}
		got := r.bus.Screen(4, 20)
		for row := range 4 {
			want := pad("", 20)
			if i+row < n {
				want = pad(lines[i+row], 20)
			}
			if got[row] != want {
				t.Errorf("frame %d row %d = %q, want %q", frame, row, got[row], want)
			}
		}
	}
}

func TestScrollerSetMessage(t *testing.T) {
	r := newRig(t, &Opts{Cols: 16, Rows: 2, Logger: quietLogger()})
	s, err := NewScroller(r.dev, demoMessage, nil)
	if err != nil {
		t.Fatal(err)
	}
	for range 3 {
		if err := s.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SetMessage("fresh news"); err != nil {
		t.Fatal(err)
	}
	if s.Cursor() != 0 {
		t.Errorf("Cursor() after SetMessage = %d, want 0", s.Cursor())
	}
	if err := s.SetMessage("naïve"); !errors.Is(err, ErrUnsupportedChar) {
		t.Errorf("SetMessage(naïve) error = %v, want ErrUnsupportedChar", err)
	}
	if lines := s.Lines(); len(lines) != 1 || lines[0] != "fresh news" {
		t.Errorf("Lines() after rejected message = %q, want previous message kept", lines)
	}
	if err := s.SetMessage("tabs\tand\nnewlines are fine"); err != nil {
		t.Errorf("SetMessage with whitespace error = %v", err)
	}
}

func TestNewScrollerValidation(t *testing.T) {
	r := newRig(t, &Opts{Cols: 16, Rows: 2, Logger: quietLogger()})
	if _, err := NewScroller(r.dev, "x", &ScrollOpts{Dwell: -time.Second}); err == nil {
		t.Error("negative dwell should fail")
	}
	if _, err := NewScroller(r.dev, "¡hola!", nil); !errors.Is(err, ErrUnsupportedChar) {
		t.Errorf("NewScroller(¡hola!) error = %v, want ErrUnsupportedChar", err)
	}
	s, err := NewScroller(r.dev, "x", &ScrollOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if s.dwell != 1500*time.Millisecond {
		t.Errorf("default dwell = %v, want 1.5s", s.dwell)
	}
}

func TestScrollerLogsFrames(t *testing.T) {
	r := newRig(t, &Opts{Cols: 16, Rows: 2, Logger: quietLogger()})
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	s, err := NewScroller(r.dev, demoMessage, &ScrollOpts{Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if err := s.Step(); err != nil {
			t.Fatal(err)
		}
	}
	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	if entries[1].Data["line"] != 1 || entries[1].Data["text"] != "long string, I" {
		t.Errorf("second entry fields = %v", entries[1].Data)
	}
}

func TestScrollerRunStopsOnCancel(t *testing.T) {
	r := newRig(t, &Opts{Cols: 16, Rows: 2, Logger: quietLogger()})
	s, err := NewScroller(r.dev, demoMessage, &ScrollOpts{Dwell: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = s.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() error = %v, want DeadlineExceeded", err)
	}
	frames := 0
	for _, tr := range r.bus.Transfers() {
		if !tr.Character() && tr.Value == 0x80 {
			frames++
		}
	}
	if frames < 2 {
		t.Errorf("Run() showed %d frames, want several", frames)
	}
}

func TestScrollerRunCancelledBeforeStart(t *testing.T) {
	r := newRig(t, &Opts{Cols: 16, Rows: 2, Logger: quietLogger()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Scroll(ctx, r.dev, demoMessage, nil); err != nil {
		t.Errorf("Scroll() error = %v, want nil on cancellation", err)
	}
	if n := len(r.bus.Events()); n != 0 {
		t.Errorf("cancelled Scroll touched pins %d times", n)
	}
}

func TestScrollerRunReturnsDeviceErrors(t *testing.T) {
	r := newRig(t, &Opts{Cols: 16, Rows: 2, Logger: quietLogger()})
	s, err := NewScroller(r.dev, demoMessage, &ScrollOpts{Dwell: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.dev.Halt(); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(context.Background()); !errors.Is(err, ErrHalted) {
		t.Errorf("Run() error = %v, want ErrHalted", err)
	}
}

func TestScrollerPost(t *testing.T) {
	r := newRig(t, &Opts{Cols: 16, Rows: 2, Logger: quietLogger()})
	s, err := NewScroller(r.dev, demoMessage, &ScrollOpts{Dwell: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitFor := func(want string) {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for r.bus.Row(0, 16) != want {
			if time.Now().After(deadline) {
				t.Fatalf("row 0 = %q, want %q", r.bus.Row(0, 16), want)
			}
			time.Sleep(time.Millisecond)
		}
	}
	waitFor(pad("here's quite a", 16))

	// Later posts replace earlier ones; the last ends up on screen.
	s.Post("first")
	s.Post("second")
	s.Post("third message")
	waitFor(pad("third message", 16))
	if got := r.bus.Row(1, 16); got != pad("", 16) {
		t.Errorf("row 1 = %q, want blank", got)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want Canceled", err)
	}
}

func TestScrollerPostRejectedMessage(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	r := newRig(t, &Opts{Cols: 16, Rows: 2, Logger: quietLogger()})
	s, err := NewScroller(r.dev, "kept", &ScrollOpts{Dwell: time.Hour, Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	s.Post("bad \x01 message")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(fmt.Sprint(entryMessages(hook)), "ignoring message") {
		if time.Now().After(deadline) {
			t.Fatal("rejected message was not logged")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
	if got := r.bus.Row(0, 16); got != pad("kept", 16) {
		t.Errorf("row 0 = %q, want previous message", got)
	}
}

func entryMessages(hook *logtest.Hook) []string {
	var out []string
	for _, e := range hook.AllEntries() {
		out = append(out, e.Message)
	}
	return out
}
