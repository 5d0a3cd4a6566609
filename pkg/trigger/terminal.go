package trigger

import (
	"context"
	"io"
	"os"

	"github.com/tauraamui/dragondoorbell/pkg/log"
	"github.com/tauraamui/xerror"
	"golang.org/x/term"
)

const keyCtrlC = 3

var (
	isTerminal = term.IsTerminal
	makeRaw    = term.MakeRaw
	restore    = term.Restore
)

// TerminalSource reads single key presses from a terminal in raw
// mode. Raw mode swallows SIGINT so Ctrl-C is handed to onInterrupt.
type TerminalSource struct {
	in          io.Reader
	fd          int
	onInterrupt func()
}

func NewTerminalSource(in *os.File, onInterrupt func()) *TerminalSource {
	return &TerminalSource{in: in, fd: int(in.Fd()), onInterrupt: onInterrupt}
}

func (s *TerminalSource) Name() string { return "terminal" }

func (s *TerminalSource) Run(ctx context.Context, events chan<- Event) error {
	if isTerminal(s.fd) {
		state, err := makeRaw(s.fd)
		if err != nil {
			return xerror.Errorf("unable to put terminal into raw mode: %w", err)
		}
		defer func() {
			if err := restore(s.fd, state); err != nil {
				log.Error("Unable to restore terminal: %v", err)
			}
		}()
	}

	keys := make(chan byte)
	readErr := make(chan error, 1)
	// a blocked read cannot be interrupted, this goroutine exits on
	// the next key or EOF after ctx is done
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := s.in.Read(buf)
			if err != nil {
				readErr <- err
				return
			}
			if n == 0 {
				continue
			}
			select {
			case keys <- buf[0]:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err == io.EOF {
				return nil
			}
			return xerror.Errorf("unable to read from terminal: %w", err)
		case key := <-keys:
			if key == keyCtrlC {
				if s.onInterrupt != nil {
					s.onInterrupt()
				}
				continue
			}
			if !emit(ctx, events, KeyEvent(int(key), s.Name())) {
				return nil
			}
		}
	}
}
