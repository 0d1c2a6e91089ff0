// Command einkcal polls a calendar API and keeps a Waveshare 7.5" e-paper
// panel updated with the configured calendar view.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dailypush/einkcal/internal/api"
	"github.com/dailypush/einkcal/internal/config"
	"github.com/dailypush/einkcal/internal/controller"
	"github.com/dailypush/einkcal/internal/epd"
	"github.com/dailypush/einkcal/internal/service"
)

func main() {
	var (
		configPath = flag.String("config", "device_config.json", "path to the device config file")
		apiBase    = flag.String("api", "", "API base URL (overrides config)")
		token      = flag.String("token", "", "device token (overrides config)")
		poll       = flag.Duration("poll", 0, "poll interval (overrides config)")
		spiDev     = flag.String("spi", "/dev/spidev0.0", "SPI device")
		dcPin      = flag.String("dc", epd.DefaultPins.DC, "data/command GPIO")
		csPin      = flag.String("cs", epd.DefaultPins.CS, "chip select GPIO")
		rstPin     = flag.String("rst", epd.DefaultPins.RST, "reset GPIO")
		busyPin    = flag.String("busy", epd.DefaultPins.BUSY, "busy GPIO")
	)
	flag.Parse()
	log.SetFlags(log.LstdFlags)

	if err := run(*configPath, *apiBase, *token, *poll, *spiDev, epd.Pins{
		DC: *dcPin, CS: *csPin, RST: *rstPin, BUSY: *busyPin,
	}); err != nil {
		log.Fatal(err)
	}
}

func run(configPath, apiBase, token string, poll time.Duration, spiDev string, pins epd.Pins) error {
	cfg, err := config.Load(configPath)
	if err != nil && !(errors.Is(err, config.ErrNoToken) && token != "") {
		if errors.Is(err, config.ErrNoToken) {
			return fmt.Errorf("no device token: set device_token in %s, EINK_DEVICE_TOKEN, or -token", configPath)
		}
		return fmt.Errorf("load config: %w", err)
	}
	if apiBase != "" {
		cfg.APIBase = apiBase
	}
	if token != "" {
		cfg.DeviceToken = token
	}
	if poll > 0 {
		cfg.PollInterval = poll
	}

	if _, err := os.Stat(spiDev); err != nil {
		return fmt.Errorf("SPI device %s not available: %w\n"+
			"enable SPI (raspi-config > Interface Options > SPI) and reboot", spiDev, err)
	}

	panel, err := epd.New(spiDev, pins)
	if err != nil {
		return fmt.Errorf("open display: %w", err)
	}
	defer panel.Close()

	ctrl := controller.New(panel)
	svc := service.New(api.NewClient(cfg.APIBase), ctrl, cfg.DeviceToken)

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sig
		log.Printf("received %s, shutting down", s)
		cancel()
	}()

	log.Printf("polling %s every %s", cfg.APIBase, cfg.PollInterval)
	err = svc.Run(ctx, cfg.PollInterval)
	ctrl.Shutdown()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
