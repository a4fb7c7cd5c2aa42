// internal/input/input_test.go
package input

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/scalpel-nav/internal/geometry"
)

// -- Test doubles --

type fakeController struct {
	mu     sync.Mutex
	moves  []geometry.Direction
	clicks int
	err    error
}

func (f *fakeController) Move(dir geometry.Direction) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	f.moves = append(f.moves, dir)
	return true, nil
}

func (f *fakeController) Click() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.clicks++
	return nil
}

// syncPoster runs posted functions immediately, one at a time.
type syncPoster struct {
	mu sync.Mutex
}

func (p *syncPoster) Post(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fn()
	return nil
}

func collect(t *testing.T, p Producer) []Command {
	t.Helper()
	var got []Command
	err := p.Produce(context.Background(), func(c Command) { got = append(got, c) })
	require.NoError(t, err)
	return got
}

// -- Commands and key maps --

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in      string
		want    Command
		wantErr bool
	}{
		{in: "left", want: MoveCommand(geometry.Left)},
		{in: " UP ", want: MoveCommand(geometry.Up)},
		{in: "move right", want: MoveCommand(geometry.Right)},
		{in: "down", want: MoveCommand(geometry.Down)},
		{in: "click", want: ClickCommand},
		{in: "Enter", want: ClickCommand},
		{in: "activate", want: ClickCommand},
		{in: "", wantErr: true},
		{in: "none", wantErr: true},
		{in: "sideways", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCommand(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "click", ClickCommand.String())
	assert.Equal(t, "up", MoveCommand(geometry.Up).String())
}

func TestParseKeyMap(t *testing.T) {
	km, err := ParseKeyMap(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultKeyMap(), km)
	assert.Equal(t, []string{"down", "enter", "left", "right", "up"}, km.Keys())

	km, err = ParseKeyMap(map[string]string{"H": "left", "space": "click"})
	require.NoError(t, err)
	cmd, ok := km.Lookup("h")
	require.True(t, ok)
	assert.Equal(t, MoveCommand(geometry.Left), cmd)
	cmd, ok = km.Lookup("SPACE")
	require.True(t, ok)
	assert.Equal(t, ClickCommand, cmd)
	_, ok = km.Lookup("left")
	assert.False(t, ok, "a custom map replaces the defaults")

	_, err = ParseKeyMap(map[string]string{"x": "jump"})
	assert.Error(t, err)
}

func TestCommandApply(t *testing.T) {
	ctrl := &fakeController{}
	changed, err := MoveCommand(geometry.Down).Apply(ctrl)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = ClickCommand.Apply(ctrl)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []geometry.Direction{geometry.Down}, ctrl.moves)
	assert.Equal(t, 1, ctrl.clicks)

	boom := errors.New("locked")
	ctrl.err = boom
	changed, err = ClickCommand.Apply(ctrl)
	assert.ErrorIs(t, err, boom)
	assert.False(t, changed)
}

// -- Producers --

func TestLineSource(t *testing.T) {
	defer goleak.VerifyNone(t)

	keys, err := ParseKeyMap(map[string]string{"h": "left", "enter": "click"})
	require.NoError(t, err)
	src := NewLineSource(strings.NewReader("h\n# comment\n\nright\nbogus\nenter\n"), keys, zaptest.NewLogger(t))

	got := collect(t, src)
	assert.Equal(t, []Command{MoveCommand(geometry.Left), MoveCommand(geometry.Right), ClickCommand}, got)
}

func TestLineSource_CancelWhileReading(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, w := io.Pipe()
	src := NewLineSource(r, nil, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- src.Produce(ctx, func(Command) {}) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Produce did not return after cancellation")
	}
	// Unblock the pending read so the reader goroutine can exit.
	require.NoError(t, w.Close())
}

func TestChanSource(t *testing.T) {
	defer goleak.VerifyNone(t)

	ch := make(chan Command, 2)
	ch <- ClickCommand
	ch <- MoveCommand(geometry.Up)
	close(ch)
	assert.Equal(t, []Command{ClickCommand, MoveCommand(geometry.Up)}, collect(t, ChanSource{C: ch}))
}

func TestTailSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.txt")
	require.NoError(t, os.WriteFile(path, []byte("up\nclick\n"), 0o600))

	src := NewTailSource(path, TailOptions{FromStart: true, Poll: true}, nil, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Command, 8)
	done := make(chan error, 1)
	go func() { done <- src.Produce(ctx, func(c Command) { got <- c }) }()

	receive := func() Command {
		select {
		case c := <-got:
			return c
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for a tailed command")
			return Command{}
		}
	}
	assert.Equal(t, MoveCommand(geometry.Up), receive())
	assert.Equal(t, ClickCommand, receive())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString("down\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, MoveCommand(geometry.Down), receive())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("tail source did not stop")
	}
}

// -- Throttle --

func TestThrottle(t *testing.T) {
	unlimited := NewThrottle(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, unlimited.Allow())
	}
	assert.Zero(t, unlimited.Dropped())

	limited := NewThrottle(1, 2)
	assert.True(t, limited.Allow())
	assert.True(t, limited.Allow())
	assert.False(t, limited.Allow(), "burst exhausted")
	assert.Equal(t, int64(1), limited.Dropped())

	var nilThrottle *Throttle
	assert.True(t, nilThrottle.Allow())
	assert.Zero(t, nilThrottle.Dropped())
}

// -- Source --

func TestSource_ForwardsCommands(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl := &fakeController{}
	ch := make(chan Command)
	results := make(chan Command, 4)
	src := NewSource[string](ctrl, SourceConfig{
		Poster:    &syncPoster{},
		Producers: []Producer{ChanSource{C: ch}},
		OnResult:  func(cmd Command, _ bool, _ error) { results <- cmd },
		Logger:    zaptest.NewLogger(t),
	})

	require.NoError(t, src.Bind("root"))
	assert.Error(t, src.Bind("root"), "binding twice is rejected")

	ch <- MoveCommand(geometry.Right)
	ch <- ClickCommand
	assert.Equal(t, MoveCommand(geometry.Right), <-results)
	assert.Equal(t, ClickCommand, <-results)

	src.Unbind()
	src.Unbind()

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	assert.Equal(t, []geometry.Direction{geometry.Right}, ctrl.moves)
	assert.Equal(t, 1, ctrl.clicks)
}

func TestSource_FinishedAfterProducersEnd(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl := &fakeController{}
	src := NewSource[string](ctrl, SourceConfig{
		Poster:    &syncPoster{},
		Producers: []Producer{NewLineSource(strings.NewReader("left\nleft\n"), nil, nil)},
	})
	require.NoError(t, src.Bind("root"))

	select {
	case <-src.Finished():
	case <-time.After(2 * time.Second):
		t.Fatal("source never finished")
	}
	src.Unbind()
	assert.Len(t, ctrl.moves, 2)
}

func TestSource_ThrottleDrops(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl := &fakeController{}
	src := NewSource[string](ctrl, SourceConfig{
		Poster:    &syncPoster{},
		Throttle:  NewThrottle(0.001, 1),
		Producers: []Producer{NewLineSource(strings.NewReader("up\nup\nup\n"), nil, nil)},
	})
	require.NoError(t, src.Bind("root"))
	<-src.Finished()
	src.Unbind()

	assert.Len(t, ctrl.moves, 1)
	assert.Equal(t, int64(2), src.Dropped())
}

func TestSource_RequiresPoster(t *testing.T) {
	src := NewSource[string](&fakeController{}, SourceConfig{})
	assert.Error(t, src.Bind("root"))
	src.Unbind()
}

func TestFactory(t *testing.T) {
	var built *Source[string]
	factory := Factory[string](SourceConfig{Poster: &syncPoster{}}, func(s *Source[string]) { built = s })
	src := factory(&fakeController{})
	require.NotNil(t, built)
	assert.Same(t, built, src)
}
