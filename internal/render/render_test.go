package render

import (
	"testing"
	"time"

	"github.com/dailypush/einkcal/internal/model"
)

var testNow = time.Date(2026, 8, 26, 10, 30, 0, 0, time.UTC) // Wednesday

func testData(mode string) *model.DeviceData {
	return &model.DeviceData{
		Config: model.DeviceConfig{DisplayMode: mode},
		Todos: []model.Task{
			{Title: "standup", StartDate: "2026-08-26", StartTime: "09:00", EndTime: "09:15", IsSchedule: true},
			{Title: "deep work", StartDate: "2026-08-26", StartTime: "10:00", EndTime: "13:00", IsSchedule: true},
			{Title: "review PRs", StartDate: "2026-08-28", StartTime: "14:00", EndTime: "15:30", IsSchedule: true},
			{Title: "water plants", Section: "daily", IsRecurring: true},
			{Title: "file expenses", StartDate: "2026-08-26"},
			{Title: "book flights", StartDate: "2026-09-02"},
			{Title: "old chore", StartDate: "2026-08-20", IsCompleted: true},
		},
	}
}

func TestRegistryCoversAllViews(t *testing.T) {
	for _, view := range []string{
		model.ViewWeekly, model.ViewDualWeekly, model.ViewDualMonthly,
		model.ViewMonthlySquare, model.ViewMonthlyRe, model.ViewDualYearly,
	} {
		if _, ok := Get(view); !ok {
			t.Errorf("no renderer registered for %s", view)
		}
	}
	if _, ok := Get("holographic"); ok {
		t.Error("unknown view should not resolve")
	}
	if len(List()) != 6 {
		t.Errorf("List() = %v", List())
	}
}

func TestEachViewRendersFrameWithInk(t *testing.T) {
	for view, fn := range registry {
		img, err := fn(testData("4gray"), testNow)
		if err != nil {
			t.Fatalf("%s: %v", view, err)
		}
		if b := img.Bounds(); b.Dx() != Width || b.Dy() != Height {
			t.Errorf("%s: bounds = %v", view, b)
		}
		dark := 0
		for _, p := range img.Pix {
			if p < 128 {
				dark++
			}
		}
		if dark == 0 {
			t.Errorf("%s: rendered a blank frame", view)
		}
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	a, err := Weekly(testData("4gray"), testNow)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Weekly(testData("4gray"), testNow)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("pixel %d differs between identical renders", i)
		}
	}
}

func TestBWModeFillsTasksBlack(t *testing.T) {
	gray, err := DualWeekly(testData("4gray"), testNow)
	if err != nil {
		t.Fatal(err)
	}
	bw, err := DualWeekly(testData("bw"), testNow)
	if err != nil {
		t.Fatal(err)
	}
	// The only mode-dependent ink is the task block fill: light gray in
	// 4gray, solid black in bw. So bw must carry more black and less light
	// gray than the grayscale render of the same data.
	count := func(pix []uint8, shade uint8) int {
		n := 0
		for _, p := range pix {
			if p == shade {
				n++
			}
		}
		return n
	}
	if count(bw.Pix, shadeBlack) <= count(gray.Pix, shadeBlack) {
		t.Error("bw render should have more black than the 4gray render")
	}
	if count(bw.Pix, shadeLight) >= count(gray.Pix, shadeLight) {
		t.Error("bw render should have less light gray than the 4gray render")
	}
}

func TestTruncate(t *testing.T) {
	dc := newCanvas()
	dc.SetFontFace(cellFace)

	if got := truncate(dc, "short", 200); got != "short" {
		t.Errorf("short string should pass through, got %q", got)
	}
	long := "a task title far too long for any calendar cell to display"
	got := truncate(dc, long, 80)
	if got == long {
		t.Error("long string should be trimmed")
	}
	if w, _ := dc.MeasureString(got); w > 80 {
		t.Errorf("truncated string still %vpx wide", w)
	}
}

func TestHoursByDay(t *testing.T) {
	hours := hoursByDay(testData("4gray").Todos, testNow)
	if got := hours[26]; got != 3.25 {
		t.Errorf("hours[26] = %v, want 3.25", got)
	}
	if got := hours[28]; got != 1.5 {
		t.Errorf("hours[28] = %v, want 1.5", got)
	}
	if _, ok := hours[2]; ok {
		t.Error("September task leaked into August totals")
	}
}

func TestSplitTodos(t *testing.T) {
	daily, today, upcoming := splitTodos(testData("4gray").Todos, testNow)
	if len(daily) != 1 || daily[0].Title != "water plants" {
		t.Errorf("daily = %+v", daily)
	}
	if len(today) != 1 || today[0].Title != "file expenses" {
		t.Errorf("today = %+v", today)
	}
	if len(upcoming) != 1 || upcoming[0].Title != "book flights" {
		t.Errorf("upcoming = %+v", upcoming)
	}
}

func TestWeekdayIndexMondayFirst(t *testing.T) {
	if weekdayIndex(time.Monday) != 0 || weekdayIndex(time.Sunday) != 6 {
		t.Error("week must start on Monday")
	}
}
