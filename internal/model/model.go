// Package model holds the wire types shared between the API client, the
// renderers and the refresh controller.
package model

import (
	"fmt"
	"time"
)

// DisplayMode is the panel color mode requested by the device config.
type DisplayMode string

const (
	// ModeFourGray drives the panel with 4 gray levels. Full refresh only.
	ModeFourGray DisplayMode = "4gray"
	// ModeBW drives the panel in 1-bit black/white. Supports partial refresh.
	ModeBW DisplayMode = "bw"
)

// ParseDisplayMode validates a display_mode value from the API. Unknown
// values default to four-gray; the returned error carries the warning
// context but the mode is always usable.
func ParseDisplayMode(s string) (DisplayMode, error) {
	switch DisplayMode(s) {
	case ModeFourGray, ModeBW:
		return DisplayMode(s), nil
	case "":
		return ModeFourGray, nil
	default:
		return ModeFourGray, fmt.Errorf("unknown display_mode %q, defaulting to %s", s, ModeFourGray)
	}
}

// View type tags as delivered by the API.
const (
	ViewWeekly        = "weekly"
	ViewDualWeekly    = "dual_weekly"
	ViewDualMonthly   = "dual_monthly"
	ViewMonthlySquare = "monthly_square"
	ViewMonthlyRe     = "monthly_re"
	ViewDualYearly    = "dual_yearly"
)

// Task is a single todo/schedule entry from the calendar API.
type Task struct {
	Title        string `json:"title"`
	StartDate    string `json:"start_date,omitempty"`
	StartTime    string `json:"start_time,omitempty"`
	EndTime      string `json:"end_time,omitempty"`
	Section      string `json:"section,omitempty"`
	Status       string `json:"status,omitempty"`
	IsCompleted  bool   `json:"is_completed,omitempty"`
	IsSchedule   bool   `json:"is_schedule,omitempty"`
	IsRecurring  bool   `json:"is_recurring,omitempty"`
	InstanceDate string `json:"instance_date,omitempty"`
	DeletedAt    string `json:"deleted_at,omitempty"`
}

// DeviceConfig is the per-device display configuration from the API.
type DeviceConfig struct {
	ViewType    string `json:"view_type"`
	DisplayMode string `json:"display_mode"`
}

// DeviceData is the payload of a successful poll.
type DeviceData struct {
	Config DeviceConfig `json:"config"`
	Todos  []Task       `json:"todos"`
}

// Date parses the task's start date. ok is false when the task carries no
// usable date.
func (t Task) Date() (time.Time, bool) {
	if t.StartDate == "" {
		return time.Time{}, false
	}
	d, err := time.Parse("2006-01-02", t.StartDate)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Minutes returns the task's start and end as minutes since midnight.
// An end before the start wraps past midnight, matching the API's overnight
// task convention.
func (t Task) Minutes() (start, end int, ok bool) {
	start, ok = parseHHMM(t.StartTime)
	if !ok {
		return 0, 0, false
	}
	end, ok = parseHHMM(t.EndTime)
	if !ok {
		return 0, 0, false
	}
	if end < start {
		end += 24 * 60
	}
	return start, end, true
}

// Hours returns the task duration in hours, or 0 when the task has no
// usable time range.
func (t Task) Hours() float64 {
	start, end, ok := t.Minutes()
	if !ok {
		return 0
	}
	return float64(end-start) / 60.0
}

func parseHHMM(s string) (int, bool) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, false
	}
	if h < 0 || h > 24 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
