package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/ideaboard/internal/printer"
	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/dyluth/ideaboard/pkg/geometry"
	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI against a miniredis room and captures its output.
func execute(t *testing.T, mr *miniredis.Miniredis, args ...string) (string, string, error) {
	t.Helper()

	// Flag variables outlive a single Execute.
	roomName, redisURL, logLevel = "", "", "warn"
	layersOutputFormat, layersType, layersWithin = "default", "", ""
	exportFormat, exportOutput, exportScale = "pdf", "", 1

	var out, errOut bytes.Buffer
	prev := color.NoColor
	color.NoColor = true
	printer.SetOutput(&out, &errOut)
	t.Cleanup(func() {
		color.NoColor = prev
		printer.SetOutput(nil, nil)
	})

	base := []string{
		"--config", filepath.Join(t.TempDir(), "missing.yml"),
		"--redis", "redis://" + mr.Addr(),
	}
	if !slices.Contains(args, "--room") {
		base = append(base, "--room", "workshop")
	}
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append(args, base...))
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func snapshot(t *testing.T, mr *miniredis.Miniredis) *board.Document {
	t.Helper()
	client, err := board.NewClient(&redis.Options{Addr: mr.Addr()}, "workshop")
	require.NoError(t, err)
	defer client.Close()

	doc, err := client.Snapshot(context.Background())
	require.NoError(t, err)
	return doc
}

func TestLayers_EmptyRoom(t *testing.T) {
	mr := miniredis.RunT(t)

	out, _, err := execute(t, mr, "layers")
	require.NoError(t, err)
	assert.Contains(t, out, "No layers found in room 'workshop'")
}

func TestLayers_InvalidFormat(t *testing.T) {
	mr := miniredis.RunT(t)

	_, errOut, err := execute(t, mr, "layers", "--output", "xml")
	require.EqualError(t, err, "invalid output format")
	assert.Contains(t, errOut, "Valid formats: default, jsonl")
}

func TestNavigate(t *testing.T) {
	mr := miniredis.RunT(t)

	out, _, err := execute(t, mr, "navigate", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "moved to stage 3 (Idea Spread)")

	doc := snapshot(t, mr)
	assert.Equal(t, 3, doc.Stage())
	assert.Len(t, doc.Order, 1, "navigating opens and seeds the room")

	_, _, err = execute(t, mr, "navigate", "pers")
	require.NoError(t, err)
	assert.Equal(t, 5, snapshot(t, mr).Stage())

	_, errOut, err := execute(t, mr, "navigate", "nowhere")
	require.EqualError(t, err, "unknown stage")
	assert.Contains(t, errOut, `no stage named "nowhere"`)
}

func TestNavigate_ListsStages(t *testing.T) {
	mr := miniredis.RunT(t)

	out, _, err := execute(t, mr, "navigate")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, " 0  Ice Breaking", lines[0])
}

func TestExport(t *testing.T) {
	mr := miniredis.RunT(t)
	path := filepath.Join(t.TempDir(), "board.png")

	_, _, err := execute(t, mr, "export", "-o", path)
	require.EqualError(t, err, "nothing to export")
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "a failed export leaves no file behind")

	_, _, err = execute(t, mr, "navigate", "0")
	require.NoError(t, err)

	out, _, err := execute(t, mr, "export", "--format", "png", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 layers")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestEvent(t *testing.T) {
	mr := miniredis.RunT(t)

	out, _, err := execute(t, mr, "event", "timer", "300")
	require.NoError(t, err)
	assert.Contains(t, out, "Sent START_TIMER")

	_, _, err = execute(t, mr, "event", "timer", "soon")
	require.EqualError(t, err, "invalid event")

	_, _, err = execute(t, mr, "event", "play")
	require.EqualError(t, err, "invalid event", "PLAY needs a sound")
}

func TestInvalidRoom(t *testing.T) {
	mr := miniredis.RunT(t)

	_, _, err := execute(t, mr, "layers", "--room", "Not A Room")
	require.EqualError(t, err, "invalid room name")
}

func TestParseRect(t *testing.T) {
	r, err := parseRect("0, 10,1200,800")
	require.NoError(t, err)
	assert.Equal(t, geometry.Rect{X: 0, Y: 10, Width: 1200, Height: 800}, r)

	for _, bad := range []string{"", "1,2,3", "a,b,c,d", "0,0,-1,5"} {
		_, err := parseRect(bad)
		assert.Error(t, err, bad)
	}
}
