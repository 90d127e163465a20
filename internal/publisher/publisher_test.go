package publisher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/busbridge/internal/testutil"
)

type recordingEmitter struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (e *recordingEmitter) Emit(_ context.Context, n Notification) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.sent = append(e.sent, n)
	return nil
}

func (e *recordingEmitter) Sent() []Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Notification(nil), e.sent...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runPublisher starts p in the background and returns a func that stops it
// and waits for Run to return.
func runPublisher(t *testing.T, p *Publisher) (stop func() error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			t.Fatal("publisher did not stop")
			return nil
		}
	}
}

func TestPublisher_OneNotificationPerTick(t *testing.T) {
	ticker := testutil.NewManualTicker(time.Unix(0, 0), time.Second)
	em := &recordingEmitter{}
	p := New(em, WithTicks(ticker.C), WithRand(rand.New(rand.NewPCG(1, 2))), WithLogger(quietLogger()))

	stop := runPublisher(t, p)
	for i := 0; i < 5; i++ {
		ticker.Tick()
	}
	require.NoError(t, stop())

	sent := em.Sent()
	require.Len(t, sent, 5)
	for _, n := range sent {
		c, err := ParseColor(n.Color)
		require.NoError(t, err, "payload %q", n.Color)
		for _, v := range []float32{c.R, c.G, c.B} {
			assert.GreaterOrEqual(t, v, float32(0))
			assert.Less(t, v, float32(1))
		}
	}
	assert.Equal(t, Stats{Emitted: 5}, p.Stats())
}

func TestPublisher_EmitFailureDoesNotStopLoop(t *testing.T) {
	ticker := testutil.NewManualTicker(time.Unix(0, 0), time.Second)
	em := &recordingEmitter{err: errors.New("no subscribers")}
	p := New(em, WithTicks(ticker.C), WithLogger(quietLogger()))

	stop := runPublisher(t, p)
	ticker.Tick()
	ticker.Tick()
	ticker.Tick()
	require.NoError(t, stop())

	assert.Equal(t, Stats{Failed: 3}, p.Stats())
}

func TestPublisher_StopsWhenTicksClose(t *testing.T) {
	ticks := make(chan time.Time)
	close(ticks)

	p := New(&recordingEmitter{}, WithTicks(ticks), WithLogger(quietLogger()))
	assert.NoError(t, p.Run(context.Background()))
}

func TestPublisher_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(&recordingEmitter{}, WithInterval(time.Hour), WithLogger(quietLogger()))
	assert.NoError(t, p.Run(ctx))
}

func TestPublisher_SeededColorsRepeat(t *testing.T) {
	a := New(nil, WithRand(rand.New(rand.NewPCG(7, 7))))
	b := New(nil, WithRand(rand.New(rand.NewPCG(7, 7))))

	for i := 0; i < 3; i++ {
		assert.Equal(t, a.Next(), b.Next())
	}
}

func TestRGB_String(t *testing.T) {
	assert.Equal(t, "RGB(0.5, 0.25, 0)", RGB{R: 0.5, G: 0.25, B: 0}.String())
	assert.Equal(t, "RGB(0.1, 0.2, 0.3)", RGB{R: 0.1, G: 0.2, B: 0.3}.String(), "shortest float32 form")
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("RGB(0.5, 0.25, 0)")
	require.NoError(t, err)
	assert.Equal(t, RGB{R: 0.5, G: 0.25, B: 0}, c)

	tests := []struct {
		name  string
		input string
	}{
		{"missing prefix", "(0.1, 0.2, 0.3)"},
		{"too few components", "RGB(0.1, 0.2)"},
		{"too many components", "RGB(0.1, 0.2, 0.3, 0.4)"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseColor(tt.input)
			assert.Error(t, err)
		})
	}
}
