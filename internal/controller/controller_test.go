package controller

import (
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/dailypush/einkcal/internal/model"
)

// fakeDriver records calls and can be told to fail specific operations.
type fakeDriver struct {
	calls []string

	failPartial bool
	failSleep   bool
	failDisplay bool
	failInit    bool
}

func (d *fakeDriver) record(name string) { d.calls = append(d.calls, name) }

func (d *fakeDriver) Init() error {
	d.record("Init")
	if d.failInit {
		return errors.New("init failed")
	}
	return nil
}
func (d *fakeDriver) Init4Gray() error { d.record("Init4Gray"); return nil }
func (d *fakeDriver) InitPart() error  { d.record("InitPart"); return nil }
func (d *fakeDriver) Clear() error     { d.record("Clear"); return nil }
func (d *fakeDriver) Display(buf []byte) error {
	d.record("Display")
	if d.failDisplay {
		return errors.New("display failed")
	}
	return nil
}
func (d *fakeDriver) Display4Gray(buf []byte) error { d.record("Display4Gray"); return nil }
func (d *fakeDriver) DisplayPartial(buf []byte) error {
	d.record("DisplayPartial")
	if d.failPartial {
		return errors.New("partial failed")
	}
	return nil
}
func (d *fakeDriver) Sleep() error {
	d.record("Sleep")
	if d.failSleep {
		return errors.New("sleep failed")
	}
	return nil
}

func (d *fakeDriver) reset() { d.calls = nil }

func (d *fakeDriver) count(name string) int {
	n := 0
	for _, c := range d.calls {
		if c == name {
			n++
		}
	}
	return n
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestController(drv *fakeDriver) (*Controller, *clock) {
	clk := &clock{t: time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)}
	c := New(drv)
	c.now = clk.now
	return c, clk
}

// frame returns a renderer producing a frame with a single dark column at x,
// so different x values produce different bitmaps.
func frame(x int) RenderFunc {
	return func() (*image.Gray, error) {
		img := image.NewGray(image.Rect(0, 0, 800, 480))
		for i := range img.Pix {
			img.Pix[i] = 255
		}
		for y := 0; y < 480; y++ {
			img.SetGray(x, y, color.Gray{Y: 0})
		}
		return img, nil
	}
}

func snap(view string, mode model.DisplayMode, count int) Snapshot {
	return Snapshot{View: view, Mode: mode, TaskCount: count}
}

func TestFirstTickInitializesClearsAndWrites(t *testing.T) {
	drv := &fakeDriver{}
	c, _ := newTestController(drv)

	if err := c.Tick(snap("weekly", model.ModeFourGray, 3), frame(10)); err != nil {
		t.Fatal(err)
	}

	want := []string{"Init4Gray", "Clear", "Display4Gray", "Sleep"}
	if len(drv.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", drv.calls, want)
	}
	for i, w := range want {
		if drv.calls[i] != w {
			t.Fatalf("calls = %v, want %v", drv.calls, want)
		}
	}
	if !c.Sleeping() {
		t.Error("panel should be asleep after the tick")
	}
}

func TestUnchangedFingerprintWithinIntervalSkips(t *testing.T) {
	drv := &fakeDriver{}
	c, clk := newTestController(drv)
	s := snap("weekly", model.ModeBW, 3)

	if err := c.Tick(s, frame(10)); err != nil {
		t.Fatal(err)
	}
	drv.reset()

	clk.advance(60 * time.Second)
	if err := c.Tick(s, frame(10)); err != nil {
		t.Fatal(err)
	}
	if len(drv.calls) != 0 {
		t.Errorf("expected no hardware calls on skip, got %v", drv.calls)
	}
}

func TestUnchangedFingerprintPastIntervalRefreshes(t *testing.T) {
	drv := &fakeDriver{}
	c, clk := newTestController(drv)
	s := snap("weekly", model.ModeBW, 3)

	if err := c.Tick(s, frame(10)); err != nil {
		t.Fatal(err)
	}
	drv.reset()

	clk.advance(MinRefreshInterval)
	if err := c.Tick(s, frame(10)); err != nil {
		t.Fatal(err)
	}
	if drv.count("DisplayPartial") != 1 {
		t.Errorf("expected a partial refresh past the interval, calls: %v", drv.calls)
	}
}

// Six unchanged bw ticks past the interval: the first write after boot is
// full, ticks 2-5 partial, and the write that would be the fifth consecutive
// partial is promoted to full.
func TestPartialRefreshCapForcesFull(t *testing.T) {
	drv := &fakeDriver{}
	c, clk := newTestController(drv)
	s := snap("weekly", model.ModeBW, 3)

	if err := c.Tick(s, frame(10)); err != nil { // boot, full
		t.Fatal(err)
	}
	for i := 2; i <= 5; i++ {
		drv.reset()
		clk.advance(MinRefreshInterval)
		if err := c.Tick(s, frame(10)); err != nil {
			t.Fatal(err)
		}
		if drv.count("DisplayPartial") != 1 || drv.count("Display") != 0 {
			t.Fatalf("tick %d: want partial, calls: %v", i, drv.calls)
		}
		if got := c.PartialCount(); got != i-1 {
			t.Fatalf("tick %d: partial count = %d, want %d", i, got, i-1)
		}
	}

	drv.reset()
	clk.advance(MinRefreshInterval)
	if err := c.Tick(s, frame(10)); err != nil {
		t.Fatal(err)
	}
	if drv.count("Display") != 1 || drv.count("DisplayPartial") != 0 {
		t.Errorf("tick 6: want forced full, calls: %v", drv.calls)
	}
	if c.PartialCount() != 0 {
		t.Errorf("partial count = %d after full refresh, want 0", c.PartialCount())
	}
}

func TestPartialCountStaysBelowMax(t *testing.T) {
	drv := &fakeDriver{}
	c, clk := newTestController(drv)
	s := snap("weekly", model.ModeBW, 3)

	for i := 0; i < 20; i++ {
		if err := c.Tick(s, frame(10)); err != nil {
			t.Fatal(err)
		}
		if c.PartialCount() >= MaxPartialRefreshes {
			t.Fatalf("tick %d: partial count %d reached cap", i, c.PartialCount())
		}
		clk.advance(MinRefreshInterval)
	}
}

func TestFourGrayNeverUsesPartial(t *testing.T) {
	drv := &fakeDriver{}
	c, clk := newTestController(drv)
	s := snap("weekly", model.ModeFourGray, 3)

	for i := 0; i < 4; i++ {
		if err := c.Tick(s, frame(10)); err != nil {
			t.Fatal(err)
		}
		clk.advance(MinRefreshInterval)
	}
	if drv.count("DisplayPartial") != 0 {
		t.Errorf("grayscale mode must never refresh partially, calls: %v", drv.calls)
	}
	if drv.count("Display4Gray") != 4 {
		t.Errorf("Display4Gray calls = %d, want 4", drv.count("Display4Gray"))
	}
}

func TestChangedTaskCountForcesFullRefresh(t *testing.T) {
	drv := &fakeDriver{}
	c, clk := newTestController(drv)

	if err := c.Tick(snap("weekly", model.ModeBW, 3), frame(10)); err != nil {
		t.Fatal(err)
	}
	drv.reset()
	clk.advance(10 * time.Second) // well within the interval

	if err := c.Tick(snap("weekly", model.ModeBW, 4), frame(20)); err != nil {
		t.Fatal(err)
	}
	if drv.count("Display") != 1 || drv.count("DisplayPartial") != 0 {
		t.Errorf("changed fingerprint must use full refresh, calls: %v", drv.calls)
	}
}

func TestModeChangeReinitializesWithoutClear(t *testing.T) {
	drv := &fakeDriver{}
	c, clk := newTestController(drv)

	if err := c.Tick(snap("weekly", model.ModeFourGray, 3), frame(10)); err != nil {
		t.Fatal(err)
	}
	drv.reset()
	clk.advance(time.Second)

	if err := c.Tick(snap("weekly", model.ModeBW, 3), frame(10)); err != nil {
		t.Fatal(err)
	}
	if drv.count("Init") != 1 {
		t.Errorf("mode change must reinit, calls: %v", drv.calls)
	}
	if drv.count("Clear") != 0 {
		t.Errorf("mode change must not clear, calls: %v", drv.calls)
	}
	if drv.count("Display") != 1 {
		t.Errorf("mode change must full refresh, calls: %v", drv.calls)
	}
}

func TestIdenticalBitmapSkipsWriteButAdvancesFingerprint(t *testing.T) {
	drv := &fakeDriver{}
	c, clk := newTestController(drv)

	if err := c.Tick(snap("weekly", model.ModeBW, 3), frame(10)); err != nil {
		t.Fatal(err)
	}
	drv.reset()
	clk.advance(time.Second)

	// Fingerprint changes (task count) but the frame is pixel-identical.
	if err := c.Tick(snap("weekly", model.ModeBW, 4), frame(10)); err != nil {
		t.Fatal(err)
	}
	if len(drv.calls) != 0 {
		t.Errorf("identical bitmap must not touch hardware, calls: %v", drv.calls)
	}
	if fp := c.LastFingerprint(); fp == nil || fp.TaskCount != 4 {
		t.Errorf("fingerprint not advanced: %+v", fp)
	}

	// The new fingerprint is now the baseline: repeating it skips cheaply.
	clk.advance(time.Second)
	if err := c.Tick(snap("weekly", model.ModeBW, 4), frame(10)); err != nil {
		t.Fatal(err)
	}
	if len(drv.calls) != 0 {
		t.Errorf("repeat fingerprint must skip, calls: %v", drv.calls)
	}
}

func TestSleepsAfterEveryWriteAndWakesBeforeNext(t *testing.T) {
	drv := &fakeDriver{}
	c, clk := newTestController(drv)
	s := snap("weekly", model.ModeBW, 3)

	if err := c.Tick(s, frame(10)); err != nil {
		t.Fatal(err)
	}
	if !c.Sleeping() {
		t.Fatal("panel should sleep after write")
	}
	drv.reset()

	clk.advance(MinRefreshInterval)
	if err := c.Tick(s, frame(10)); err != nil {
		t.Fatal(err)
	}
	// Wake init must precede the write.
	if drv.count("Init") != 1 {
		t.Errorf("expected wake init, calls: %v", drv.calls)
	}
	for i, call := range drv.calls {
		if call == "DisplayPartial" {
			if drv.calls[0] != "Init" || i == 0 {
				t.Errorf("write before wake: %v", drv.calls)
			}
			break
		}
	}
	if drv.count("Sleep") != 1 {
		t.Errorf("expected sleep after write, calls: %v", drv.calls)
	}
}

func TestPartialFailureFallsBackToFullInSameTick(t *testing.T) {
	drv := &fakeDriver{}
	c, clk := newTestController(drv)
	s := snap("weekly", model.ModeBW, 3)

	if err := c.Tick(s, frame(10)); err != nil {
		t.Fatal(err)
	}
	drv.failPartial = true
	drv.reset()
	clk.advance(MinRefreshInterval)

	if err := c.Tick(s, frame(10)); err != nil {
		t.Fatal(err)
	}
	if drv.count("DisplayPartial") != 1 || drv.count("Display") != 1 {
		t.Errorf("want partial attempt then full fallback, calls: %v", drv.calls)
	}
	if c.PartialCount() != 0 {
		t.Errorf("fallback full must reset partial count, got %d", c.PartialCount())
	}
}

func TestSleepFailureKeepsTickCommitted(t *testing.T) {
	drv := &fakeDriver{failSleep: true}
	c, _ := newTestController(drv)

	if err := c.Tick(snap("weekly", model.ModeBW, 3), frame(10)); err != nil {
		t.Fatal(err)
	}
	if c.Sleeping() {
		t.Error("failed sleep must not mark the panel asleep")
	}
	if c.LastFingerprint() == nil {
		t.Error("tick must still commit after sleep failure")
	}
}

func TestDisplayFailureAbandonsTick(t *testing.T) {
	drv := &fakeDriver{failDisplay: true}
	c, _ := newTestController(drv)

	err := c.Tick(snap("weekly", model.ModeBW, 3), frame(10))
	if err == nil {
		t.Fatal("expected error")
	}
	var terr *Error
	if !errors.As(err, &terr) || terr.Kind != KindHardware {
		t.Errorf("error = %v, want hardware kind", err)
	}
	if c.LastFingerprint() != nil {
		t.Error("failed tick must not commit the fingerprint")
	}

	// Next tick retries from scratch.
	drv.failDisplay = false
	drv.reset()
	if err := c.Tick(snap("weekly", model.ModeBW, 3), frame(10)); err != nil {
		t.Fatal(err)
	}
	if drv.count("Display") != 1 {
		t.Errorf("retry tick should write, calls: %v", drv.calls)
	}
}

func TestRenderFailureAbandonsTick(t *testing.T) {
	drv := &fakeDriver{}
	c, _ := newTestController(drv)

	err := c.Tick(snap("weekly", model.ModeBW, 3), func() (*image.Gray, error) {
		return nil, errors.New("font missing")
	})
	var terr *Error
	if !errors.As(err, &terr) || terr.Kind != KindRender {
		t.Errorf("error = %v, want render kind", err)
	}
	if drv.count("Display") != 0 || drv.count("DisplayPartial") != 0 {
		t.Errorf("render failure must not write, calls: %v", drv.calls)
	}
}

func TestShutdownSleepsAwakePanel(t *testing.T) {
	drv := &fakeDriver{failSleep: true}
	c, _ := newTestController(drv)

	if err := c.Tick(snap("weekly", model.ModeBW, 3), frame(10)); err != nil {
		t.Fatal(err)
	}
	// Sleep failed during the tick, panel is awake.
	drv.failSleep = false
	drv.reset()

	c.Shutdown()
	if drv.count("Sleep") != 1 {
		t.Errorf("shutdown should sleep the panel, calls: %v", drv.calls)
	}

	drv.reset()
	c.Shutdown()
	if len(drv.calls) != 0 {
		t.Errorf("shutdown on a sleeping panel is a no-op, calls: %v", drv.calls)
	}
}
