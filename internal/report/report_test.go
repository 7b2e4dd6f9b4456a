package report

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/country-pulse/internal/model"
)

func testSummary() Summary {
	refreshed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return Summary{
		TotalCountries: 250,
		Top: []model.GDPEntry{
			{Name: "Wakanda", EstimatedGDP: 900000.55},
			{Name: "Zamunda", EstimatedGDP: 450000},
			{Name: "Latveria", EstimatedGDP: 120000.1},
		},
		LastRefreshedAt: &refreshed,
	}
}

func TestRenderer_Render(t *testing.T) {
	out := filepath.Join(t.TempDir(), "cache", "summary.png")
	r := New(800, 600, out)

	require.NoError(t, r.Render(testSummary()))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy())
}

func TestRenderer_Render_OverwritesPrior(t *testing.T) {
	out := filepath.Join(t.TempDir(), "summary.png")
	r := New(800, 600, out)

	require.NoError(t, r.Render(testSummary()))
	first, err := os.Stat(out)
	require.NoError(t, err)

	s := testSummary()
	s.TotalCountries = 1
	s.Top = nil
	require.NoError(t, r.Render(s))

	second, err := os.Stat(out)
	require.NoError(t, err)
	// Replaced, not appended.
	assert.NotZero(t, second.Size())
	assert.NotEqual(t, first.ModTime().IsZero(), second.ModTime().IsZero())

	// Directory holds only the final artifact, no temp leftovers.
	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRenderer_Render_EmptyStore(t *testing.T) {
	out := filepath.Join(t.TempDir(), "summary.png")
	r := New(800, 600, out)

	require.NoError(t, r.Render(Summary{}))

	_, err := os.Stat(out)
	require.NoError(t, err)
}

func TestNew_DimensionDefaults(t *testing.T) {
	r := New(0, -1, "x.png")
	assert.Equal(t, 800, r.width)
	assert.Equal(t, 600, r.height)
}
