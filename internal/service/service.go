// Package service runs the poll loop: fetch device data, pick the renderer
// for the configured view, and hand the frame to the refresh controller.
package service

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/dailypush/einkcal/internal/api"
	"github.com/dailypush/einkcal/internal/controller"
	"github.com/dailypush/einkcal/internal/model"
	"github.com/dailypush/einkcal/internal/render"
)

// Fetcher is the API surface the service polls.
type Fetcher interface {
	FetchDeviceData(token, startDate, endDate string) (*model.DeviceData, error)
}

// Updater receives the per-tick snapshot and render callback. Satisfied by
// *controller.Controller.
type Updater interface {
	Tick(snap controller.Snapshot, render controller.RenderFunc) error
}

// Service polls the API on an interval and drives the display controller.
type Service struct {
	fetcher Fetcher
	updater Updater
	token   string
	now     func() time.Time
}

// New assembles a service. token identifies the device to the API.
func New(fetcher Fetcher, updater Updater, token string) *Service {
	return &Service{fetcher: fetcher, updater: updater, token: token, now: time.Now}
}

// RunOnce performs a single poll cycle. A fetch failure is a strict no-op:
// the error is returned but no display state changes. Other failures are
// returned tagged by the controller.
func (s *Service) RunOnce() error {
	now := s.now()

	// The view type lives server-side, so the date range to ask for is only
	// known after a first fetch. Bootstrap with the weekly range, then
	// refetch if the configured view wants a wider one.
	start, end := api.DateRangeForView(model.ViewWeekly, now)
	data, err := s.fetcher.FetchDeviceData(s.token, start, end)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	view := data.Config.ViewType
	if vs, ve := api.DateRangeForView(view, now); vs != start || ve != end {
		refetched, err := s.fetcher.FetchDeviceData(s.token, vs, ve)
		if err != nil {
			return fmt.Errorf("fetch: %w", err)
		}
		data = refetched
	}

	mode, err := model.ParseDisplayMode(data.Config.DisplayMode)
	if err != nil {
		log.Printf("config: %v", err)
	}

	fn, ok := render.Get(view)
	if !ok {
		log.Printf("config: unknown view_type %q, skipping tick (known: %v)", view, render.List())
		return nil
	}

	data.Config.DisplayMode = string(mode)
	snap := controller.Snapshot{
		View:      view,
		Mode:      mode,
		TaskCount: len(data.Todos),
	}
	return s.updater.Tick(snap, func() (*image.Gray, error) {
		return fn(data, now)
	})
}

// Run polls immediately, then on every interval tick until ctx is done.
// Per-tick errors are logged and do not stop the loop.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	if err := s.RunOnce(); err != nil {
		log.Printf("tick failed: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(); err != nil {
				log.Printf("tick failed: %v", err)
			}
		}
	}
}
