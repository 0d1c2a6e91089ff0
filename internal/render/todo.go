package render

import (
	"time"

	"github.com/fogleman/gg"

	"github.com/dailypush/einkcal/internal/model"
)

// drawTodoPanel draws the right-hand TODO list of the dual views: daily
// routines first, then today's items, then upcoming ones. Completed items
// get a filled checkbox and a strike-through.
func drawTodoPanel(dc *gg.Context, x, y, w float64, h int, data *model.DeviceData, now time.Time) {
	setShade(dc, shadeBlack)
	dc.DrawLine(x-4, y, x-4, y+float64(h))
	dc.SetLineWidth(1)
	dc.Stroke()

	dc.SetFontFace(headerFace)
	dc.DrawString("TODO", x+4, y+14)

	daily, today, upcoming := splitTodos(data.Todos, now)

	const rowH = 18
	cy := y + 28
	maxY := y + float64(h) - rowH

	section := func(label string, tasks []model.Task) {
		if len(tasks) == 0 || cy > maxY {
			return
		}
		dc.SetFontFace(smallFace)
		setShade(dc, shadeDark)
		dc.DrawString(label, x+4, cy)
		cy += rowH - 4
		dc.SetFontFace(cellFace)
		for _, t := range tasks {
			if cy > maxY {
				return
			}
			drawTodoRow(dc, x+4, cy, w-12, t)
			cy += rowH
		}
		cy += 6
	}

	section("DAILY", daily)
	section("TODAY", today)
	section("UPCOMING", upcoming)
}

func drawTodoRow(dc *gg.Context, x, y, w float64, t model.Task) {
	const box = 10
	setShade(dc, shadeBlack)
	dc.DrawRectangle(x, y-box, box, box)
	dc.SetLineWidth(1)
	dc.Stroke()
	if t.IsCompleted {
		dc.DrawRectangle(x+2, y-box+2, box-4, box-4)
		dc.Fill()
	}

	title := truncate(dc, t.Title, w-box-6)
	tx := x + box + 6
	if t.IsCompleted {
		setShade(dc, shadeDark)
	}
	dc.DrawString(title, tx, y)
	if t.IsCompleted {
		tw, _ := dc.MeasureString(title)
		dc.DrawLine(tx, y-4, tx+tw, y-4)
		dc.SetLineWidth(1)
		dc.Stroke()
	}
}

// splitTodos partitions non-schedule tasks into the panel's three sections.
// Schedule entries live on the calendar grid, not in the list.
func splitTodos(todos []model.Task, now time.Time) (daily, today, upcoming []model.Task) {
	todayDate := now.Format("2006-01-02")
	for _, t := range todos {
		if t.IsSchedule || t.DeletedAt != "" {
			continue
		}
		switch {
		case t.Section == "daily" || t.IsRecurring:
			daily = append(daily, t)
		case t.StartDate == "" || t.StartDate == todayDate:
			today = append(today, t)
		case t.StartDate > todayDate:
			upcoming = append(upcoming, t)
		}
	}
	return daily, today, upcoming
}
