// internal/input/sources.go
package input

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hpcloud/tail"
	"go.uber.org/zap"
)

// Producer emits commands until its input ends or ctx is cancelled.
type Producer interface {
	Produce(ctx context.Context, emit func(Command)) error
}

// resolveLine turns one line of text into a command: first as a bound key
// name, then as a command name. Blank lines and '#' comments yield false.
func resolveLine(keys KeyMap, line string) (Command, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Command{}, false, nil
	}
	if cmd, ok := keys.Lookup(line); ok {
		return cmd, true, nil
	}
	cmd, err := ParseCommand(line)
	if err != nil {
		return Command{}, false, err
	}
	return cmd, true, nil
}

// -- Line stream --

// LineSource reads one command per line from a stream, typically stdin.
type LineSource struct {
	r      io.Reader
	keys   KeyMap
	logger *zap.Logger
}

// NewLineSource creates a line source. A nil KeyMap uses the defaults.
func NewLineSource(r io.Reader, keys KeyMap, logger *zap.Logger) *LineSource {
	if keys == nil {
		keys = DefaultKeyMap()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LineSource{r: r, keys: keys, logger: logger.Named("line-source")}
}

// Produce scans the stream until EOF or cancellation. Reads run on their own
// goroutine so that cancellation is not held up by a blocking reader; that
// goroutine exits as soon as the pending read returns.
func (s *LineSource) Produce(ctx context.Context, emit func(Command)) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("input: failed to read commands: %w", err)
					}
				default:
				}
				s.logger.Debug("Command stream ended.")
				return nil
			}
			cmd, ok, err := resolveLine(s.keys, line)
			if err != nil {
				s.logger.Warn("Ignoring unknown command.", zap.String("line", line), zap.Error(err))
				continue
			}
			if ok {
				emit(cmd)
			}
		}
	}
}

// -- Tailed file --

// TailOptions configures a TailSource.
type TailOptions struct {
	// FromStart replays the commands already in the file. By default only
	// lines appended after the source starts are read.
	FromStart bool
	// Poll uses stat polling instead of inotify.
	Poll bool
}

// TailSource follows a command file, emitting every appended line. The file
// may be rotated or created later.
type TailSource struct {
	path   string
	opts   TailOptions
	keys   KeyMap
	logger *zap.Logger
}

// NewTailSource creates a source following path.
func NewTailSource(path string, opts TailOptions, keys KeyMap, logger *zap.Logger) *TailSource {
	if keys == nil {
		keys = DefaultKeyMap()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TailSource{
		path:   path,
		opts:   opts,
		keys:   keys,
		logger: logger.Named("tail-source").With(zap.String("path", path)),
	}
}

// Produce follows the file until ctx is cancelled.
func (s *TailSource) Produce(ctx context.Context, emit func(Command)) error {
	cfg := tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Poll:      s.opts.Poll,
		Logger:    tail.DiscardingLogger,
	}
	if !s.opts.FromStart {
		cfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}
	t, err := tail.TailFile(s.path, cfg)
	if err != nil {
		return fmt.Errorf("input: failed to tail command file: %w", err)
	}
	defer func() {
		_ = t.Stop()
		t.Cleanup()
	}()

	s.logger.Info("Following command file.")
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Stopping command file tail.")
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				s.logger.Warn("Error reading from command file.", zap.Error(line.Err))
				continue
			}
			cmd, ok, err := resolveLine(s.keys, line.Text)
			if err != nil {
				s.logger.Warn("Ignoring unknown command.", zap.String("line", line.Text), zap.Error(err))
				continue
			}
			if ok {
				emit(cmd)
			}
		}
	}
}

// -- Channel --

// ChanSource emits the commands sent on a channel. It is how in-process
// front ends (a terminal UI, a test) feed the shell.
type ChanSource struct {
	C <-chan Command
}

// Produce forwards commands until the channel closes or ctx is cancelled.
func (s ChanSource) Produce(ctx context.Context, emit func(Command)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd, ok := <-s.C:
			if !ok {
				return nil
			}
			emit(cmd)
		}
	}
}
