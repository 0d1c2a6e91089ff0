// Package epd drives the Waveshare 7.5inch e-Paper V2 panel (800x480) over
// SPI, following the vendor's reference command sequences.
//
// Datasheet: https://www.waveshare.com/wiki/7.5inch_e-Paper_HAT
//
// The panel supports three operating modes: monochrome full refresh,
// monochrome partial refresh (after InitPart), and 4-level grayscale
// (after Init4Gray, full refresh only). After Sleep the panel must be
// re-initialized before the next write.
package epd

import (
	"errors"
	"fmt"
	"image"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Panel geometry.
const (
	Width  = 800
	Height = 480
)

// Panel command set (subset used here).
const (
	cmdPanelSetting      byte = 0x00
	cmdPowerSetting      byte = 0x01
	cmdPowerOff          byte = 0x02
	cmdPowerOn           byte = 0x04
	cmdBoosterSoftStart  byte = 0x06
	cmdDeepSleep         byte = 0x07
	cmdDataStartTrans1   byte = 0x10
	cmdDataStop          byte = 0x11
	cmdDisplayRefresh    byte = 0x12
	cmdDataStartTrans2   byte = 0x13
	cmdDualSPI           byte = 0x15
	cmdLUTVCOM           byte = 0x20
	cmdLUTWW             byte = 0x21
	cmdLUTBW             byte = 0x22
	cmdLUTWB             byte = 0x23
	cmdLUTBB             byte = 0x24
	cmdPLLControl        byte = 0x30
	cmdVCOMDataInterval  byte = 0x50
	cmdTCONSetting       byte = 0x60
	cmdTCONResolution    byte = 0x61
	cmdGetStatus         byte = 0x71
	cmdPartialWindow     byte = 0x90
	cmdPartialIn         byte = 0x91
	cmdPartialOut        byte = 0x92
	cmdVCMDCSetting      byte = 0x82
)

// DefaultPins is the standard Waveshare HAT wiring (BCM numbering).
var DefaultPins = Pins{DC: "GPIO25", CS: "GPIO8", RST: "GPIO17", BUSY: "GPIO24"}

// Pins names the GPIO lines the panel is wired to.
type Pins struct {
	DC   string
	CS   string
	RST  string
	BUSY string
}

// busyTimeout bounds every busy-pin wait so a wedged panel surfaces as an
// error instead of hanging the tick forever.
const busyTimeout = 40 * time.Second

// EPD is a handle to the display controller.
type EPD struct {
	c    conn.Conn
	port spi.PortCloser
	dc   gpio.PinOut
	cs   gpio.PinOut
	rst  gpio.PinOut
	busy gpio.PinIO
}

// New opens the SPI port and GPIO lines and returns a panel handle. The
// panel is left untouched; call Init, Init4Gray or InitPart before writing.
func New(spiName string, pins Pins) (*EPD, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("epd: periph host init: %w", err)
	}

	out := func(name string) (gpio.PinOut, error) {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("epd: gpio %s not found", name)
		}
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("epd: gpio %s: %w", name, err)
		}
		return p, nil
	}

	dc, err := out(pins.DC)
	if err != nil {
		return nil, err
	}
	cs, err := out(pins.CS)
	if err != nil {
		return nil, err
	}
	rst, err := out(pins.RST)
	if err != nil {
		return nil, err
	}
	busy := gpioreg.ByName(pins.BUSY)
	if busy == nil {
		return nil, fmt.Errorf("epd: gpio %s not found", pins.BUSY)
	}
	if err := busy.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("epd: gpio %s: %w", pins.BUSY, err)
	}

	port, err := spireg.Open(spiName)
	if err != nil {
		return nil, fmt.Errorf("epd: open spi %q: %w", spiName, err)
	}
	c, err := port.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("epd: connect spi: %w", err)
	}

	return &EPD{c: c, port: port, dc: dc, cs: cs, rst: rst, busy: busy}, nil
}

// Bounds returns the panel bounds.
func (e *EPD) Bounds() image.Rectangle {
	return image.Rect(0, 0, Width, Height)
}

// Reset performs a hardware reset, which also wakes the panel from deep
// sleep.
func (e *EPD) Reset() error {
	for _, step := range []struct {
		level gpio.Level
		wait  time.Duration
	}{
		{gpio.High, 20 * time.Millisecond},
		{gpio.Low, 2 * time.Millisecond},
		{gpio.High, 20 * time.Millisecond},
	} {
		if err := e.rst.Out(step.level); err != nil {
			return fmt.Errorf("epd: reset: %w", err)
		}
		time.Sleep(step.wait)
	}
	return nil
}

func (e *EPD) sendCommand(cmd byte) error {
	if err := e.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := e.cs.Out(gpio.Low); err != nil {
		return err
	}
	err := e.c.Tx([]byte{cmd}, nil)
	if cerr := e.cs.Out(gpio.High); err == nil {
		err = cerr
	}
	return err
}

// sendData writes data bytes, chunked to stay under the SPI driver's
// transfer limit.
func (e *EPD) sendData(data []byte) error {
	if err := e.dc.Out(gpio.High); err != nil {
		return err
	}
	if err := e.cs.Out(gpio.Low); err != nil {
		return err
	}
	const blockSize = 4096
	var err error
	for start := 0; start < len(data) && err == nil; start += blockSize {
		end := start + blockSize
		if end > len(data) {
			end = len(data)
		}
		err = e.c.Tx(data[start:end], nil)
	}
	if cerr := e.cs.Out(gpio.High); err == nil {
		err = cerr
	}
	return err
}

func (e *EPD) send(cmd byte, data ...byte) error {
	if err := e.sendCommand(cmd); err != nil {
		return fmt.Errorf("epd: command 0x%02X: %w", cmd, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := e.sendData(data); err != nil {
		return fmt.Errorf("epd: data for 0x%02X: %w", cmd, err)
	}
	return nil
}

// waitUntilIdle blocks until the busy pin releases. The panel holds BUSY
// low while refreshing.
func (e *EPD) waitUntilIdle() error {
	deadline := time.Now().Add(busyTimeout)
	for e.busy.Read() == gpio.Low {
		if time.Now().After(deadline) {
			return errors.New("epd: busy timeout, panel not responding")
		}
		if err := e.sendCommand(cmdGetStatus); err != nil {
			return err
		}
		time.Sleep(20 * time.Millisecond)
	}
	return nil
}

// Init brings the panel up in monochrome full-refresh mode. Also used to
// wake the panel after Sleep.
func (e *EPD) Init() error {
	if err := e.Reset(); err != nil {
		return err
	}
	steps := []struct {
		cmd  byte
		data []byte
	}{
		{cmdPowerSetting, []byte{0x07, 0x07, 0x3F, 0x3F}}, // VGH=20V VGL=-20V VDH=15V VDL=-15V
		{cmdVCMDCSetting, []byte{0x30}},
		{cmdBoosterSoftStart, []byte{0x17, 0x17, 0x28, 0x17}},
		{cmdPowerOn, nil},
	}
	for _, s := range steps {
		if err := e.send(s.cmd, s.data...); err != nil {
			return err
		}
	}
	time.Sleep(100 * time.Millisecond)
	if err := e.waitUntilIdle(); err != nil {
		return err
	}

	steps = []struct {
		cmd  byte
		data []byte
	}{
		{cmdPanelSetting, []byte{0x1F}}, // KW mode, LUT from OTP
		{cmdTCONResolution, []byte{0x03, 0x20, 0x01, 0xE0}}, // 800x480
		{cmdDualSPI, []byte{0x00}},
		{cmdVCOMDataInterval, []byte{0x10, 0x07}},
		{cmdTCONSetting, []byte{0x22}},
	}
	for _, s := range steps {
		if err := e.send(s.cmd, s.data...); err != nil {
			return err
		}
	}
	return nil
}

// InitPart prepares the panel for partial updates after a monochrome Init.
// The vendor sequence narrows the VCOM/data interval so DisplayPartial only
// drives changed pixels.
func (e *EPD) InitPart() error {
	if err := e.send(cmdVCOMDataInterval, 0xA9, 0x07); err != nil {
		return err
	}
	return nil
}

// Init4Gray brings the panel up in 4-level grayscale mode. Grayscale uses
// register LUTs instead of the OTP tables and does not support partial
// refresh.
func (e *EPD) Init4Gray() error {
	if err := e.Reset(); err != nil {
		return err
	}
	steps := []struct {
		cmd  byte
		data []byte
	}{
		{cmdPowerSetting, []byte{0x07, 0x07, 0x3F, 0x3F}},
		{cmdVCMDCSetting, []byte{0x30}},
		{cmdBoosterSoftStart, []byte{0x17, 0x17, 0x28, 0x17}},
		{cmdPowerOn, nil},
	}
	for _, s := range steps {
		if err := e.send(s.cmd, s.data...); err != nil {
			return err
		}
	}
	time.Sleep(100 * time.Millisecond)
	if err := e.waitUntilIdle(); err != nil {
		return err
	}

	steps = []struct {
		cmd  byte
		data []byte
	}{
		{cmdPanelSetting, []byte{0x3F}}, // KW mode, LUT from register
		{cmdPLLControl, []byte{0x06}},
		{cmdTCONResolution, []byte{0x03, 0x20, 0x01, 0xE0}},
		{cmdDualSPI, []byte{0x00}},
		{cmdVCOMDataInterval, []byte{0x10, 0x07}},
		{cmdTCONSetting, []byte{0x22}},
	}
	for _, s := range steps {
		if err := e.send(s.cmd, s.data...); err != nil {
			return err
		}
	}
	return e.loadGrayLUTs()
}

func (e *EPD) loadGrayLUTs() error {
	for _, lut := range []struct {
		cmd  byte
		data []byte
	}{
		{cmdLUTVCOM, lutVCOM4Gray[:]},
		{cmdLUTWW, lutWW4Gray[:]},
		{cmdLUTBW, lutBW4Gray[:]},
		{cmdLUTWB, lutWB4Gray[:]},
		{cmdLUTBB, lutBB4Gray[:]},
	} {
		if err := e.send(lut.cmd, lut.data...); err != nil {
			return err
		}
	}
	return nil
}

// Clear drives the whole panel to white with a full refresh.
func (e *EPD) Clear() error {
	n := Width / 8 * Height
	white := make([]byte, n)
	black := make([]byte, n)
	for i := range white {
		white[i] = 0xFF
	}
	if err := e.send(cmdDataStartTrans1, white...); err != nil {
		return err
	}
	if err := e.send(cmdDataStartTrans2, black...); err != nil {
		return err
	}
	return e.turnOnDisplay()
}

func (e *EPD) turnOnDisplay() error {
	if err := e.send(cmdDisplayRefresh); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	return e.waitUntilIdle()
}

// Display performs a monochrome full refresh. buf must be a PackMono
// buffer (Width*Height/8 bytes, 1 = white).
func (e *EPD) Display(buf []byte) error {
	if len(buf) != Width/8*Height {
		return fmt.Errorf("epd: invalid mono buffer size %d", len(buf))
	}
	inverted := make([]byte, len(buf))
	for i, b := range buf {
		inverted[i] = ^b
	}
	if err := e.send(cmdDataStartTrans1, buf...); err != nil {
		return err
	}
	if err := e.send(cmdDataStartTrans2, inverted...); err != nil {
		return err
	}
	return e.turnOnDisplay()
}

// DisplayPartial refreshes the full frame using the partial waveform.
// Requires a prior Init + InitPart; faster and flicker-free but accumulates
// ghosting, so callers interleave full refreshes.
func (e *EPD) DisplayPartial(buf []byte) error {
	if len(buf) != Width/8*Height {
		return fmt.Errorf("epd: invalid mono buffer size %d", len(buf))
	}
	if err := e.send(cmdPartialIn); err != nil {
		return err
	}
	// Full-screen partial window.
	window := []byte{
		0x00, 0x00, // x start
		byte((Width - 1) >> 8), byte((Width - 1) & 0xFF),
		0x00, 0x00, // y start
		byte((Height - 1) >> 8), byte((Height - 1) & 0xFF),
		0x01,
	}
	if err := e.send(cmdPartialWindow, window...); err != nil {
		return err
	}
	inverted := make([]byte, len(buf))
	for i, b := range buf {
		inverted[i] = ^b
	}
	if err := e.send(cmdDataStartTrans2, inverted...); err != nil {
		return err
	}
	if err := e.turnOnDisplay(); err != nil {
		return err
	}
	return e.send(cmdPartialOut)
}

// Display4Gray performs a grayscale full refresh. buf must be a Pack4Gray
// buffer (Width*Height/4 bytes, 2 bits per pixel, 0b11 = white). The two
// bit planes the controller expects are derived from the packed buffer.
func (e *EPD) Display4Gray(buf []byte) error {
	if len(buf) != Width/4*Height {
		return fmt.Errorf("epd: invalid 4gray buffer size %d", len(buf))
	}
	msb, lsb := grayPlanes(buf)
	if err := e.send(cmdDataStartTrans1, msb...); err != nil {
		return err
	}
	if err := e.send(cmdDataStartTrans2, lsb...); err != nil {
		return err
	}
	return e.turnOnDisplay()
}

// Sleep powers the panel down into deep sleep. Sustained drive voltage
// damages e-ink cells, so the controller sleeps the panel after every
// write. Wake with Init/Init4Gray.
func (e *EPD) Sleep() error {
	if err := e.send(cmdPowerOff); err != nil {
		return err
	}
	if err := e.waitUntilIdle(); err != nil {
		return err
	}
	if err := e.send(cmdDeepSleep, 0xA5); err != nil {
		return err
	}
	time.Sleep(2 * time.Second)
	return nil
}

// Close releases the SPI port. The panel should be asleep first.
func (e *EPD) Close() error {
	return e.port.Close()
}

// 4-gray waveform LUTs (register set, vendor reference tables).
var lutVCOM4Gray = [42]byte{
	0x00, 0x0A, 0x00, 0x00, 0x00, 0x01,
	0x60, 0x14, 0x14, 0x00, 0x00, 0x01,
	0x00, 0x14, 0x00, 0x00, 0x00, 0x01,
	0x00, 0x13, 0x0A, 0x01, 0x00, 0x01,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

var lutWW4Gray = [42]byte{
	0x40, 0x0A, 0x00, 0x00, 0x00, 0x01,
	0x90, 0x14, 0x14, 0x00, 0x00, 0x01,
	0x10, 0x14, 0x0A, 0x00, 0x00, 0x01,
	0xA0, 0x13, 0x01, 0x00, 0x00, 0x01,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

var lutBW4Gray = [42]byte{
	0x40, 0x0A, 0x00, 0x00, 0x00, 0x01,
	0x90, 0x14, 0x14, 0x00, 0x00, 0x01,
	0x00, 0x14, 0x0A, 0x00, 0x00, 0x01,
	0x99, 0x0C, 0x01, 0x03, 0x04, 0x01,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

var lutWB4Gray = [42]byte{
	0x40, 0x0A, 0x00, 0x00, 0x00, 0x01,
	0x90, 0x14, 0x14, 0x00, 0x00, 0x01,
	0x00, 0x14, 0x0A, 0x00, 0x00, 0x01,
	0x99, 0x0B, 0x04, 0x04, 0x01, 0x01,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

var lutBB4Gray = [42]byte{
	0x80, 0x0A, 0x00, 0x00, 0x00, 0x01,
	0x90, 0x14, 0x14, 0x00, 0x00, 0x01,
	0x20, 0x14, 0x0A, 0x00, 0x00, 0x01,
	0x50, 0x13, 0x01, 0x00, 0x00, 0x01,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}
