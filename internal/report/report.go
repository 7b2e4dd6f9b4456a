// Package report renders the refresh summary as a PNG artifact that the
// image endpoint serves. Rendering sits downstream of the persist phase: a
// failure here is logged by the caller and never unwinds stored data.
package report

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/country-pulse/internal/model"
)

// Summary is the aggregate slice the renderer consumes.
type Summary struct {
	TotalCountries  int
	Top             []model.GDPEntry
	LastRefreshedAt *time.Time
}

// Renderer draws fixed-layout summary images.
type Renderer struct {
	width      int
	height     int
	outputPath string
	printer    *message.Printer
}

// New creates a Renderer writing to outputPath with the given dimensions.
func New(width, height int, outputPath string) *Renderer {
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 600
	}
	return &Renderer{
		width:      width,
		height:     height,
		outputPath: outputPath,
		printer:    message.NewPrinter(language.English),
	}
}

// OutputPath returns where the artifact is written.
func (r *Renderer) OutputPath() string {
	return r.outputPath
}

var (
	background = color.RGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 0xff}
	foreground = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	muted      = color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}
)

// Render draws the summary and atomically replaces any prior artifact at
// the output path.
func (r *Renderer) Render(s Summary) error {
	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	r.text(img, foreground, 50, 80, "Country API Summary")
	r.text(img, foreground, 50, 150, r.printer.Sprintf("Total Countries: %d", s.TotalCountries))
	r.text(img, foreground, 50, 220, "Top Countries by Estimated GDP:")

	for i, entry := range s.Top {
		y := 270 + i*40
		if y > r.height-80 {
			break
		}
		line := r.printer.Sprintf("%d. %s: $%.2f", i+1, entry.Name, entry.EstimatedGDP)
		r.text(img, foreground, 70, y, line)
	}

	lastUpdated := "Last Updated: never"
	if s.LastRefreshedAt != nil {
		lastUpdated = "Last Updated: " + s.LastRefreshedAt.UTC().Format("2006-01-02 15:04:05 MST")
	}
	r.text(img, muted, 50, r.height-50, lastUpdated)

	if err := r.write(img); err != nil {
		return err
	}

	zap.L().Info("rendered summary image",
		zap.String("path", r.outputPath),
		zap.Int("total_countries", s.TotalCountries),
		zap.Int("top_entries", len(s.Top)),
	)
	return nil
}

func (r *Renderer) text(img *image.RGBA, col color.Color, x, y int, s string) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// write encodes to a temp file in the target directory and renames it over
// the destination, so readers never observe a half-written artifact.
func (r *Renderer) write(img image.Image) error {
	dir := filepath.Dir(r.outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "report: create output dir")
	}

	tmp, err := os.CreateTemp(dir, "summary-*.png")
	if err != nil {
		return eris.Wrap(err, "report: create temp file")
	}
	tmpName := tmp.Name()

	if err := png.Encode(tmp, img); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return eris.Wrap(err, "report: encode png")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrap(err, "report: close temp file")
	}
	if err := os.Rename(tmpName, r.outputPath); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrap(err, "report: replace artifact")
	}
	return nil
}
