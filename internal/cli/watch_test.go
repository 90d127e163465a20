package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/busbridge/internal/publisher"
)

func notifications(colors ...string) <-chan publisher.Notification {
	ch := make(chan publisher.Notification, len(colors))
	for _, c := range colors {
		ch <- publisher.Notification{Color: c}
	}
	close(ch)
	return ch
}

func TestPrintNotifications_Text(t *testing.T) {
	var out bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &out}

	n := printNotifications(context.Background(), notifications("RGB(1, 2, 3)", "RGB(0.5, 0, 255)"), 0, "text", &out, f)

	assert.Equal(t, 2, n)
	assert.Equal(t, "RGB(1, 2, 3)\nRGB(0.5, 0, 255)\n", out.String())
}

func TestPrintNotifications_Count(t *testing.T) {
	var out bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &out}

	n := printNotifications(context.Background(), notifications("RGB(1, 1, 1)", "RGB(2, 2, 2)", "RGB(3, 3, 3)"), 2, "text", &out, f)

	assert.Equal(t, 2, n)
	assert.NotContains(t, out.String(), "RGB(3, 3, 3)")
}

func TestPrintNotifications_JSON(t *testing.T) {
	var out, errOut bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &out, ErrWriter: &errOut, Verbose: true}

	n := printNotifications(context.Background(), notifications("RGB(10, 20.5, 30)", "garbage"), 0, "json", &out, f)
	require.Equal(t, 2, n)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var first ColorLine
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, ColorLine{Color: "RGB(10, 20.5, 30)", R: 10, G: 20.5, B: 30}, first)

	var second ColorLine
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "garbage", second.Color)
	assert.Contains(t, errOut.String(), "malformed notification")
}

func TestPrintNotifications_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	stream := make(chan publisher.Notification)
	n := printNotifications(ctx, stream, 0, "text", &out, &OutputFormatter{Format: "text", Writer: &out})

	assert.Equal(t, 0, n)
	assert.Empty(t, out.String())
}
