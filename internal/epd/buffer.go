package epd

import (
	"image"
	"image/color"
)

// Mono threshold: pixels at or above this luminance render white.
const monoThreshold = 128

// PackMono converts an image into the panel's 1-bit buffer format:
// 8 pixels per byte, MSB first, 1 = white. Pixels outside the image bounds
// are white. The buffer is Width*Height/8 bytes.
func PackMono(img image.Image) []byte {
	buf := make([]byte, Width/8*Height)
	bounds := img.Bounds()
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			white := true
			if x < bounds.Dx() && y < bounds.Dy() {
				white = grayAt(img, bounds.Min.X+x, bounds.Min.Y+y) >= monoThreshold
			}
			if white {
				buf[y*(Width/8)+x/8] |= 0x80 >> (x % 8)
			}
		}
	}
	return buf
}

// Pack4Gray converts an image into the panel's 2-bit grayscale format:
// 4 pixels per byte, MSB first. Levels: 0b00 black, 0b01 dark gray,
// 0b10 light gray, 0b11 white. The buffer is Width*Height/4 bytes.
func Pack4Gray(img image.Image) []byte {
	buf := make([]byte, Width/4*Height)
	bounds := img.Bounds()
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			level := byte(3)
			if x < bounds.Dx() && y < bounds.Dy() {
				level = grayAt(img, bounds.Min.X+x, bounds.Min.Y+y) >> 6
			}
			shift := uint(6 - 2*(x%4))
			buf[y*(Width/4)+x/4] |= level << shift
		}
	}
	return buf
}

// grayPlanes splits a Pack4Gray buffer into the two 1-bit planes the
// controller loads via 0x10 (MSB plane) and 0x13 (LSB plane).
func grayPlanes(buf []byte) (msb, lsb []byte) {
	n := Width / 8 * Height
	msb = make([]byte, n)
	lsb = make([]byte, n)
	for i := 0; i < Width*Height; i++ {
		level := buf[i/4] >> uint(6-2*(i%4)) & 0x03
		bit := byte(0x80) >> (i % 8)
		if level&0x02 != 0 {
			msb[i/8] |= bit
		}
		if level&0x01 != 0 {
			lsb[i/8] |= bit
		}
	}
	return msb, lsb
}

func grayAt(img image.Image, x, y int) uint8 {
	if g, ok := img.(*image.Gray); ok {
		return g.GrayAt(x, y).Y
	}
	return color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
}
