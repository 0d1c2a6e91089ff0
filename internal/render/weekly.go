package render

import (
	"fmt"
	"image"
	"time"

	"github.com/fogleman/gg"

	"github.com/dailypush/einkcal/internal/api"
	"github.com/dailypush/einkcal/internal/model"
)

// Timetable hours shown on the weekly views.
const (
	timeStartHour = 7
	timeEndHour   = 22
)

// Weekly renders a full-width weekly timetable.
func Weekly(data *model.DeviceData, now time.Time) (*image.Gray, error) {
	dc := newCanvas()
	drawWeekTitle(dc, now)
	drawWeekGrid(dc, weekRect{x: 8, y: 40, w: Width - 16, h: Height - 48}, data, now)
	return toGray(dc), nil
}

// DualWeekly renders the weekly timetable on the left 60% of the frame and
// a TODO panel on the right.
func DualWeekly(data *model.DeviceData, now time.Time) (*image.Gray, error) {
	dc := newCanvas()
	drawWeekTitle(dc, now)

	leftWidth := Width * 60 / 100
	drawWeekGrid(dc, weekRect{x: 8, y: 40, w: leftWidth - 16, h: Height - 48}, data, now)
	drawTodoPanel(dc, float64(leftWidth+8), 40, float64(Width-leftWidth-16), Height-48, data, now)
	return toGray(dc), nil
}

type weekRect struct {
	x, y, w, h int
}

func drawWeekTitle(dc *gg.Context, now time.Time) {
	monday := api.StartOfWeek(now)
	sunday := monday.AddDate(0, 0, 6)
	title := fmt.Sprintf("%s-%s", monday.Format("Jan 02"), sunday.Format("02, 2006"))
	dc.SetFontFace(titleFace)
	setShade(dc, shadeBlack)
	dc.DrawStringAnchored(title, Width/2, 18, 0.5, 0.5)
}

// drawWeekGrid draws the 7-day half-hour timetable with task blocks.
func drawWeekGrid(dc *gg.Context, r weekRect, data *model.DeviceData, now time.Time) {
	const timeColWidth = 46
	const headerHeight = 24

	monday := api.StartOfWeek(now)
	slots := (timeEndHour - timeStartHour) * 2
	gridX := float64(r.x + timeColWidth)
	gridY := float64(r.y + headerHeight)
	colWidth := float64(r.w-timeColWidth) / 7
	rowHeight := float64(r.h-headerHeight) / float64(slots)

	// Day headers, today in bold underline.
	dc.SetFontFace(headerFace)
	todayCol := -1
	if !now.Before(monday) && now.Before(monday.AddDate(0, 0, 7)) {
		todayCol = weekdayIndex(now.Weekday())
	}
	for i, name := range dayNames {
		x := gridX + float64(i)*colWidth + colWidth/2
		setShade(dc, shadeBlack)
		dc.DrawStringAnchored(name, x, float64(r.y)+headerHeight/2, 0.5, 0.5)
		if i == todayCol {
			dc.DrawLine(x-colWidth/2+4, float64(r.y)+headerHeight-2, x+colWidth/2-4, float64(r.y)+headerHeight-2)
			dc.SetLineWidth(2)
			dc.Stroke()
		}
	}

	// Hour labels and grid lines.
	dc.SetFontFace(smallFace)
	for s := 0; s <= slots; s += 2 {
		y := gridY + float64(s)*rowHeight
		setShade(dc, shadeBlack)
		dc.DrawStringAnchored(fmt.Sprintf("%02d:00", timeStartHour+s/2), float64(r.x)+timeColWidth/2, y, 0.5, 0.5)
		setShade(dc, shadeLight)
		dc.DrawLine(gridX, y, gridX+7*colWidth, y)
		dc.SetLineWidth(1)
		dc.Stroke()
	}
	setShade(dc, shadeDark)
	for i := 0; i <= 7; i++ {
		x := gridX + float64(i)*colWidth
		dc.DrawLine(x, gridY, x, gridY+float64(slots)*rowHeight)
		dc.SetLineWidth(1)
		dc.Stroke()
	}

	// Task blocks.
	fill := taskShade(data.Config.DisplayMode)
	textShade := shadeBlack
	if fill == shadeBlack {
		textShade = shadeWhite
	}
	mondayUTC := time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
	for _, t := range data.Todos {
		d, ok := t.Date()
		if !ok {
			continue
		}
		day := int(d.Sub(mondayUTC).Hours() / 24)
		if day < 0 || day > 6 {
			continue
		}
		startMin, endMin, ok := t.Minutes()
		if !ok {
			continue
		}
		startSlot := clampSlot((startMin - timeStartHour*60) / 30)
		endSlot := clampSlot((endMin - timeStartHour*60 + 29) / 30)
		if endSlot <= startSlot {
			endSlot = startSlot + 1
		}

		bx := gridX + float64(day)*colWidth + 2
		by := gridY + float64(startSlot)*rowHeight + 1
		bw := colWidth - 4
		bh := float64(endSlot-startSlot)*rowHeight - 2

		setShade(dc, fill)
		dc.DrawRectangle(bx, by, bw, bh)
		dc.Fill()
		setShade(dc, shadeBlack)
		dc.DrawRectangle(bx, by, bw, bh)
		dc.SetLineWidth(1)
		dc.Stroke()

		if bh >= 10 {
			dc.SetFontFace(smallFace)
			setShade(dc, textShade)
			dc.DrawString(truncate(dc, t.Title, bw-4), bx+2, by+9)
		}
	}
}

func clampSlot(s int) int {
	slots := (timeEndHour - timeStartHour) * 2
	if s < 0 {
		return 0
	}
	if s > slots {
		return slots
	}
	return s
}
