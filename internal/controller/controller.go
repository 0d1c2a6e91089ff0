// Package controller decides, once per poll tick, whether fetched data
// warrants a physical display update and which refresh mode to use, while
// tracking panel sleep state and partial-refresh wear.
package controller

import (
	"crypto/md5"
	"encoding/hex"
	"image"
	"log"
	"time"

	"github.com/dailypush/einkcal/internal/epd"
	"github.com/dailypush/einkcal/internal/model"
)

const (
	// MinRefreshInterval is the minimum time between physical writes when
	// nothing changed, to preserve panel lifespan.
	MinRefreshInterval = 300 * time.Second

	// MaxPartialRefreshes bounds consecutive partial refreshes; the write
	// that would reach it becomes a full refresh to clear ghosting.
	MaxPartialRefreshes = 5
)

// Driver is the hardware surface the controller drives. All calls are
// synchronous and may fail; none are assumed idempotent.
type Driver interface {
	Init() error
	Init4Gray() error
	InitPart() error
	Clear() error
	Display(buf []byte) error
	Display4Gray(buf []byte) error
	DisplayPartial(buf []byte) error
	Sleep() error
}

// Snapshot is the per-tick summary of fetched data.
type Snapshot struct {
	View      string
	Mode      model.DisplayMode
	TaskCount int
}

// Fingerprint is the cheap change-detection key compared across ticks.
type Fingerprint struct {
	View      string
	TaskCount int
	Mode      model.DisplayMode
}

// RenderFunc materializes the frame for the current tick. It is only
// invoked when the controller decides a redraw may be needed.
type RenderFunc func() (*image.Gray, error)

// Controller owns the refresh decision state. Not safe for concurrent use;
// the poll loop is single-threaded by design.
type Controller struct {
	drv Driver
	now func() time.Time

	last        *Fingerprint
	lastRefresh time.Time
	lastHash    string
	partials    int
	sleeping    bool
	mode        model.DisplayMode // "" until the first init
}

// New returns a controller for an uninitialized panel.
func New(drv Driver) *Controller {
	return &Controller{drv: drv, now: time.Now}
}

// Sleeping reports whether the panel is in deep sleep.
func (c *Controller) Sleeping() bool { return c.sleeping }

// PartialCount returns the consecutive partial refreshes since the last
// full refresh.
func (c *Controller) PartialCount() int { return c.partials }

// LastFingerprint returns the committed fingerprint, or nil before the
// first successful tick.
func (c *Controller) LastFingerprint() *Fingerprint { return c.last }

// Tick runs one poll cycle: reconcile panel mode, detect change, render,
// write with the appropriate refresh mode, sleep the panel, and commit
// bookkeeping. A returned error means the tick was abandoned with committed
// state unchanged; the next poll retries from a consistent baseline.
func (c *Controller) Tick(snap Snapshot, render RenderFunc) error {
	now := c.now()

	switch {
	case c.mode == "":
		// First tick: bring the panel up and clear residual ghosting.
		if err := c.initFor(snap.Mode); err != nil {
			return err
		}
		if err := c.drv.Clear(); err != nil {
			return hardwareErr("clear", err)
		}
		c.mode = snap.Mode
		c.sleeping = false
		log.Printf("panel initialized (%s mode)", snap.Mode)
	case c.mode != snap.Mode:
		if err := c.initFor(snap.Mode); err != nil {
			return err
		}
		c.mode = snap.Mode
		c.sleeping = false
		log.Printf("panel reinitialized for mode change to %s", snap.Mode)
	}

	fp := Fingerprint{View: snap.View, TaskCount: snap.TaskCount, Mode: snap.Mode}
	if c.last != nil && *c.last == fp && now.Sub(c.lastRefresh) < MinRefreshInterval {
		log.Printf("skip: unchanged fingerprint, %s since last refresh", now.Sub(c.lastRefresh).Round(time.Second))
		return nil
	}

	img, err := render()
	if err != nil {
		return renderErr(err)
	}
	var buf []byte
	if snap.Mode == model.ModeFourGray {
		buf = epd.Pack4Gray(img)
	} else {
		buf = epd.PackMono(img)
	}
	sum := md5.Sum(buf)
	hash := hex.EncodeToString(sum[:])

	changed := c.last == nil || *c.last != fp
	if changed && c.last != nil && hash == c.lastHash {
		// Pixel-identical frame despite a fingerprint change: skip the
		// write, advance the fingerprint, keep the write timestamp.
		c.last = &fp
		log.Printf("skip: rendered frame identical to displayed content")
		return nil
	}

	if c.sleeping {
		if err := c.initFor(c.mode); err != nil {
			return err
		}
		c.sleeping = false
		log.Printf("panel woken for refresh")
	}

	if err := c.write(snap.Mode, changed, buf); err != nil {
		return err
	}

	if err := c.drv.Sleep(); err != nil {
		log.Printf("panel sleep failed: %v", err)
	} else {
		c.sleeping = true
	}

	c.last = &fp
	c.lastRefresh = now
	c.lastHash = hash
	return nil
}

// Shutdown sleeps the panel if it is awake, as a best-effort safety action
// on process exit.
func (c *Controller) Shutdown() {
	if c.mode == "" || c.sleeping {
		return
	}
	if err := c.drv.Sleep(); err != nil {
		log.Printf("shutdown sleep failed: %v", err)
		return
	}
	c.sleeping = true
}

// initFor runs the init sequence for a mode. The partial-capable sub-init
// is best effort: without it, partial writes fail and fall back to full
// writes through the normal path.
func (c *Controller) initFor(mode model.DisplayMode) error {
	if mode == model.ModeFourGray {
		if err := c.drv.Init4Gray(); err != nil {
			return hardwareErr("init 4gray", err)
		}
		return nil
	}
	if err := c.drv.Init(); err != nil {
		return hardwareErr("init", err)
	}
	if err := c.drv.InitPart(); err != nil {
		log.Printf("partial-update init failed, partial refresh unavailable: %v", err)
	}
	return nil
}

// write performs the physical refresh, choosing full vs partial and
// handling in-tick fallback. The partial counter stays strictly below
// MaxPartialRefreshes.
func (c *Controller) write(mode model.DisplayMode, changed bool, buf []byte) error {
	if mode == model.ModeFourGray {
		// Grayscale hardware has no partial waveform.
		if err := c.drv.Display4Gray(buf); err != nil {
			return hardwareErr("display 4gray", err)
		}
		c.partials = 0
		log.Printf("full refresh (4gray)")
		return nil
	}

	full := changed || c.partials+1 >= MaxPartialRefreshes
	if !full {
		err := c.drv.DisplayPartial(buf)
		if err == nil {
			c.partials++
			log.Printf("partial refresh (%d/%d since full)", c.partials, MaxPartialRefreshes)
			return nil
		}
		log.Printf("partial refresh failed, falling back to full: %v", err)
	}
	if err := c.drv.Display(buf); err != nil {
		return hardwareErr("display", err)
	}
	c.partials = 0
	log.Printf("full refresh (bw)")
	return nil
}
