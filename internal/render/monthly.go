package render

import (
	"fmt"
	"image"
	"time"

	"github.com/fogleman/gg"

	"github.com/dailypush/einkcal/internal/model"
)

// DualMonthly renders the month grid on the left 60% of the frame and a
// TODO panel on the right.
func DualMonthly(data *model.DeviceData, now time.Time) (*image.Gray, error) {
	dc := newCanvas()
	drawMonthTitle(dc, now)

	leftWidth := Width * 60 / 100
	drawMonthGrid(dc, weekRect{x: 8, y: 40, w: leftWidth - 16, h: Height - 48}, data, now, monthCellTasks)
	drawTodoPanel(dc, float64(leftWidth+8), 40, float64(Width-leftWidth-16), Height-48, data, now)
	return toGray(dc), nil
}

// MonthlySquare renders the full-width month grid with each day's workload
// shown as a row of filled squares, one per scheduled hour.
func MonthlySquare(data *model.DeviceData, now time.Time) (*image.Gray, error) {
	dc := newCanvas()
	drawMonthTitle(dc, now)
	drawMonthGrid(dc, weekRect{x: 8, y: 40, w: Width - 16, h: Height - 48}, data, now, monthCellSquares)
	return toGray(dc), nil
}

// MonthlyRe renders the full-width month grid with a horizontal hour bar
// per day plus task titles.
func MonthlyRe(data *model.DeviceData, now time.Time) (*image.Gray, error) {
	dc := newCanvas()
	drawMonthTitle(dc, now)
	drawMonthGrid(dc, weekRect{x: 8, y: 40, w: Width - 16, h: Height - 48}, data, now, monthCellBars)
	return toGray(dc), nil
}

func drawMonthTitle(dc *gg.Context, now time.Time) {
	dc.SetFontFace(titleFace)
	setShade(dc, shadeBlack)
	dc.DrawStringAnchored(now.Format("January 2006"), Width/2, 18, 0.5, 0.5)
}

// monthCell is the per-day body drawn inside a month grid cell, below the
// day number.
type monthCell func(dc *gg.Context, x, y, w, h float64, day int, ctx *monthContext)

type monthContext struct {
	data  *model.DeviceData
	now   time.Time
	hours map[int]float64
	tasks map[int][]model.Task
}

// drawMonthGrid lays out the current month as a Monday-first grid of up to
// 6 rows and calls cell for each day's body.
func drawMonthGrid(dc *gg.Context, r weekRect, data *model.DeviceData, now time.Time, cell monthCell) {
	const headerHeight = 22

	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	firstCol := weekdayIndex(first.Weekday())
	days := daysInMonth(now)
	rows := (firstCol + days + 6) / 7

	gridY := float64(r.y + headerHeight)
	colWidth := float64(r.w) / 7
	rowHeight := (float64(r.h) - headerHeight) / float64(rows)

	dc.SetFontFace(headerFace)
	setShade(dc, shadeBlack)
	for i, name := range dayNames {
		dc.DrawStringAnchored(name, float64(r.x)+float64(i)*colWidth+colWidth/2, float64(r.y)+headerHeight/2, 0.5, 0.5)
	}

	setShade(dc, shadeDark)
	dc.SetLineWidth(1)
	for i := 0; i <= 7; i++ {
		x := float64(r.x) + float64(i)*colWidth
		dc.DrawLine(x, gridY, x, gridY+float64(rows)*rowHeight)
		dc.Stroke()
	}
	for i := 0; i <= rows; i++ {
		y := gridY + float64(i)*rowHeight
		dc.DrawLine(float64(r.x), y, float64(r.x)+7*colWidth, y)
		dc.Stroke()
	}

	ctx := &monthContext{
		data:  data,
		now:   now,
		hours: hoursByDay(data.Todos, now),
		tasks: tasksByDay(data.Todos, now),
	}

	for day := 1; day <= days; day++ {
		idx := firstCol + day - 1
		cx := float64(r.x) + float64(idx%7)*colWidth
		cy := gridY + float64(idx/7)*rowHeight

		dc.SetFontFace(cellFace)
		setShade(dc, shadeBlack)
		dc.DrawString(fmt.Sprintf("%d", day), cx+4, cy+14)
		if day == now.Day() {
			// Today gets a heavier cell border.
			dc.DrawRectangle(cx+1, cy+1, colWidth-2, rowHeight-2)
			dc.SetLineWidth(2)
			dc.Stroke()
			dc.SetLineWidth(1)
		}

		cell(dc, cx, cy+18, colWidth, rowHeight-18, day, ctx)
	}
}

// monthCellTasks lists task titles inside the cell, the dual_monthly body.
func monthCellTasks(dc *gg.Context, x, y, w, h float64, day int, ctx *monthContext) {
	tasks := ctx.tasks[day]
	if len(tasks) == 0 {
		return
	}
	fill := taskShade(ctx.data.Config.DisplayMode)
	dc.SetFontFace(smallFace)
	const rowH = 12
	ty := y
	for _, t := range tasks {
		if ty+rowH > y+h {
			break
		}
		setShade(dc, fill)
		dc.DrawRectangle(x+2, ty, w-4, rowH-1)
		dc.Fill()
		if fill == shadeBlack {
			setShade(dc, shadeWhite)
		} else {
			setShade(dc, shadeBlack)
		}
		dc.DrawString(truncate(dc, t.Title, w-8), x+4, ty+rowH-3)
		ty += rowH
	}
}

// monthCellSquares draws one small filled square per scheduled hour.
func monthCellSquares(dc *gg.Context, x, y, w, h float64, day int, ctx *monthContext) {
	hours := int(ctx.hours[day] + 0.5)
	if hours == 0 {
		return
	}
	const sq = 8
	const gap = 2
	perRow := int((w - 8) / (sq + gap))
	if perRow < 1 {
		perRow = 1
	}
	setShade(dc, taskShade(ctx.data.Config.DisplayMode))
	for i := 0; i < hours; i++ {
		sx := x + 4 + float64(i%perRow)*(sq+gap)
		sy := y + float64(i/perRow)*(sq+gap)
		if sy+sq > y+h {
			break
		}
		dc.DrawRectangle(sx, sy, sq, sq)
		dc.Fill()
	}
}

// monthCellBars draws a horizontal bar scaled to the day's hours, capped at
// 8h full width, with the hour count beside it.
func monthCellBars(dc *gg.Context, x, y, w, h float64, day int, ctx *monthContext) {
	hours := ctx.hours[day]
	if hours > 0 {
		const maxHours = 8.0
		frac := hours / maxHours
		if frac > 1 {
			frac = 1
		}
		barW := (w - 34) * frac
		setShade(dc, taskShade(ctx.data.Config.DisplayMode))
		dc.DrawRectangle(x+4, y, barW, 8)
		dc.Fill()
		dc.SetFontFace(smallFace)
		setShade(dc, shadeBlack)
		dc.DrawString(fmt.Sprintf("%.1fh", hours), x+8+barW, y+7)
	}

	tasks := ctx.tasks[day]
	dc.SetFontFace(smallFace)
	setShade(dc, shadeBlack)
	const rowH = 11
	ty := y + 18
	for _, t := range tasks {
		if ty > y+h {
			break
		}
		dc.DrawString(truncate(dc, t.Title, w-8), x+4, ty)
		ty += rowH
	}
}

// tasksByDay groups dated tasks by day-of-month for the month containing ref.
func tasksByDay(todos []model.Task, ref time.Time) map[int][]model.Task {
	byDay := make(map[int][]model.Task)
	for _, t := range todos {
		d, ok := t.Date()
		if !ok {
			continue
		}
		if d.Year() != ref.Year() || d.Month() != ref.Month() {
			continue
		}
		byDay[d.Day()] = append(byDay[d.Day()], t)
	}
	return byDay
}
