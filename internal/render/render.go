// Package render rasterizes calendar layouts into 800x480 grayscale frames
// for the e-paper panel.
//
// Renderers are registered in an explicit map keyed by view type; the set
// of layouts is closed and checked at compile time.
package render

import (
	"image"
	"image/draw"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/dailypush/einkcal/internal/model"
)

// Frame dimensions, matching the panel.
const (
	Width  = 800
	Height = 480
)

// Gray shades, chosen so that quantizing to 2 bits (value >> 6) yields the
// four distinct panel levels. The bw display mode collapses grays to black.
const (
	shadeBlack = 0
	shadeDark  = 85
	shadeLight = 170
	shadeWhite = 255
)

// Func renders one frame from fetched data. Pure: same data and clock
// always produce the same pixels.
type Func func(data *model.DeviceData, now time.Time) (*image.Gray, error)

var registry = map[string]Func{
	model.ViewWeekly:        Weekly,
	model.ViewDualWeekly:    DualWeekly,
	model.ViewDualMonthly:   DualMonthly,
	model.ViewMonthlySquare: MonthlySquare,
	model.ViewMonthlyRe:     MonthlyRe,
	model.ViewDualYearly:    DualYearly,
}

// Get returns the renderer for a view type.
func Get(view string) (Func, bool) {
	fn, ok := registry[view]
	return fn, ok
}

// List returns the registered view types.
func List() []string {
	views := make([]string, 0, len(registry))
	for v := range registry {
		views = append(views, v)
	}
	return views
}

var (
	fontOnce   sync.Once
	titleFace  font.Face
	headerFace font.Face
	cellFace   font.Face
	smallFace  font.Face
)

func loadFaces() {
	fontOnce.Do(func() {
		bold, err := opentype.Parse(gobold.TTF)
		if err != nil {
			panic(err)
		}
		regular, err := opentype.Parse(goregular.TTF)
		if err != nil {
			panic(err)
		}
		face := func(f *opentype.Font, size float64) font.Face {
			ff, err := opentype.NewFace(f, &opentype.FaceOptions{
				Size:    size,
				DPI:     72,
				Hinting: font.HintingFull,
			})
			if err != nil {
				panic(err)
			}
			return ff
		}
		titleFace = face(bold, 22)
		headerFace = face(bold, 14)
		cellFace = face(regular, 13)
		smallFace = face(regular, 9)
	})
}

// newCanvas returns a white 800x480 drawing context.
func newCanvas() *gg.Context {
	loadFaces()
	dc := gg.NewContext(Width, Height)
	dc.SetRGB255(shadeWhite, shadeWhite, shadeWhite)
	dc.Clear()
	return dc
}

func setShade(dc *gg.Context, shade int) {
	dc.SetRGB255(shade, shade, shade)
}

// taskShade picks the fill for a task block: grayscale panels use gray
// fills, mono panels need solid black for legibility.
func taskShade(mode string) int {
	if mode == string(model.ModeBW) {
		return shadeBlack
	}
	return shadeLight
}

func toGray(dc *gg.Context) *image.Gray {
	gray := image.NewGray(image.Rect(0, 0, Width, Height))
	draw.Draw(gray, gray.Bounds(), dc.Image(), image.Point{}, draw.Src)
	return gray
}

// truncate shortens s so it fits within width using the context's current
// font face, appending an ellipsis when trimmed.
func truncate(dc *gg.Context, s string, width float64) string {
	if w, _ := dc.MeasureString(s); w <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 1 {
		runes = runes[:len(runes)-1]
		if w, _ := dc.MeasureString(string(runes) + "…"); w <= width {
			return string(runes) + "…"
		}
	}
	return "…"
}

// hoursByDay sums task hours per day-of-month for tasks inside the month
// containing ref.
func hoursByDay(todos []model.Task, ref time.Time) map[int]float64 {
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	last := first.AddDate(0, 1, -1)
	hours := make(map[int]float64)
	for _, t := range todos {
		d, ok := t.Date()
		if !ok {
			continue
		}
		if d.Before(first) || d.After(last) {
			continue
		}
		if h := t.Hours(); h > 0 {
			hours[d.Day()] += h
		}
	}
	return hours
}

func daysInMonth(ref time.Time) int {
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	return first.AddDate(0, 1, -1).Day()
}

// weekdayIndex maps time.Weekday onto a Monday-first 0..6 index.
func weekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

var dayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
