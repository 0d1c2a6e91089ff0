package render

import (
	"fmt"
	"image"
	"time"

	"github.com/fogleman/gg"

	"github.com/dailypush/einkcal/internal/model"
)

// DualYearly renders all 12 months as mini calendars in a 4x3 grid, shading
// each day by its scheduled workload.
func DualYearly(data *model.DeviceData, now time.Time) (*image.Gray, error) {
	dc := newCanvas()
	dc.SetFontFace(titleFace)
	setShade(dc, shadeBlack)
	dc.DrawStringAnchored(fmt.Sprintf("%d", now.Year()), Width/2, 16, 0.5, 0.5)

	hours := yearHoursByDate(data.Todos, now.Year())
	mode := data.Config.DisplayMode

	const cols = 4
	const rows = 3
	const top = 34
	cellW := float64(Width-16) / cols
	cellH := float64(Height-top-8) / rows

	for m := 0; m < 12; m++ {
		x := 8 + float64(m%cols)*cellW
		y := float64(top) + float64(m/cols)*cellH
		drawMiniMonth(dc, x, y, cellW-8, cellH-6, time.Month(m+1), now, hours, mode)
	}
	return toGray(dc), nil
}

// drawMiniMonth draws one month of the yearly grid. Days with scheduled
// hours are shaded, heavier shade for heavier days; today is boxed.
func drawMiniMonth(dc *gg.Context, x, y, w, h float64, month time.Month, now time.Time, hours map[string]float64, mode string) {
	dc.SetFontFace(headerFace)
	setShade(dc, shadeBlack)
	dc.DrawStringAnchored(month.String()[:3], x+w/2, y+8, 0.5, 0.5)

	first := time.Date(now.Year(), month, 1, 0, 0, 0, 0, now.Location())
	firstCol := weekdayIndex(first.Weekday())
	days := first.AddDate(0, 1, -1).Day()

	gridY := y + 18
	colW := w / 7
	rowH := (h - 18) / 6

	dc.SetFontFace(smallFace)
	for day := 1; day <= days; day++ {
		idx := firstCol + day - 1
		cx := x + float64(idx%7)*colW
		cy := gridY + float64(idx/7)*rowH

		key := fmt.Sprintf("%04d-%02d-%02d", now.Year(), int(month), day)
		dh := hours[key]
		textShade := shadeBlack
		if dh > 0 {
			fill := workloadShade(dh, mode)
			setShade(dc, fill)
			dc.DrawRectangle(cx, cy, colW, rowH)
			dc.Fill()
			if fill == shadeBlack {
				textShade = shadeWhite
			}
		}
		setShade(dc, textShade)
		dc.DrawStringAnchored(fmt.Sprintf("%d", day), cx+colW/2, cy+rowH/2, 0.5, 0.5)

		if month == now.Month() && day == now.Day() {
			setShade(dc, shadeBlack)
			dc.DrawRectangle(cx, cy, colW, rowH)
			dc.SetLineWidth(1)
			dc.Stroke()
		}
	}
}

// workloadShade maps daily hours to a shade: light under 3h, dark under 6h,
// black above. Mono panels only have black.
func workloadShade(hours float64, mode string) int {
	if mode == string(model.ModeBW) {
		return shadeBlack
	}
	switch {
	case hours < 3:
		return shadeLight
	case hours < 6:
		return shadeDark
	}
	return shadeBlack
}

// yearHoursByDate sums task hours per date (YYYY-MM-DD) across a year.
func yearHoursByDate(todos []model.Task, year int) map[string]float64 {
	hours := make(map[string]float64)
	for _, t := range todos {
		d, ok := t.Date()
		if !ok || d.Year() != year {
			continue
		}
		if h := t.Hours(); h > 0 {
			hours[t.StartDate] += h
		}
	}
	return hours
}
