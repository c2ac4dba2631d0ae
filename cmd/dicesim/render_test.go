package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psychodicenamic/dicesim/internal/game"
	"github.com/psychodicenamic/dicesim/internal/sim"
)

func TestParseFaces(t *testing.T) {
	faces, err := parseFaces([]string{"1,2", "6", "3,,4"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 6, 3, 4}, faces)

	for _, bad := range []string{"0", "7", "x"} {
		if _, err := parseFaces([]string{bad}); err == nil {
			t.Errorf("Expected error for face %q", bad)
		}
	}
}

func TestRenderDetection(t *testing.T) {
	out := renderDetection(game.Detect(game.RollOf(6, 6, 6, 6, 6, 6), false))
	assert.Contains(t, out, "SixOfAKind")
	assert.Contains(t, out, "echo")

	out = renderDetection(game.Detect(game.RollOf(2, 3), false))
	assert.Contains(t, out, "fumble")
}

func TestRenderStats(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.Trials = 200
	cfg.Seed = 7
	stats, err := sim.Run(context.Background(), game.TabulaRasa(), game.Dominant(), cfg)
	require.NoError(t, err)

	out := renderStats(stats)
	for _, want := range []string{"Tabula Rasa", "Dominant", "win rate", "fumble rate", "ties"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRenderArchetypes(t *testing.T) {
	archs := game.DefaultCatalog().All()
	out := renderArchetypes(archs, game.DefaultRules())
	for _, a := range archs {
		assert.Contains(t, out, a.Name)
	}
}

func TestProgressBarConcurrent(t *testing.T) {
	var buf bytes.Buffer
	progress := progressBar(&buf)

	var wg sync.WaitGroup
	for i := int64(1); i <= 50; i++ {
		wg.Add(1)
		go func(done int64) {
			defer wg.Done()
			progress(done, 100)
		}(i)
	}
	wg.Wait()
	progress(100, 100)

	out := buf.String()
	assert.Contains(t, out, "100/100")
	assert.True(t, strings.HasSuffix(out, "\n"), "Expected the bar to end its line when done")
}
