// Package zoomlink implements the Zoom Link: a VISCA-like fixed-byte
// command protocol spoken over a dedicated serial connection to the
// camera's zoom/focus motor controller. Unlike the Front-Board Link,
// commands here are fire-and-forget (the controller does not reply),
// grounded on original_source/Zoom_CBN8125.py's sendMsg/set_zoom_position/
// set_zoom_speed.
package zoomlink

import (
	"fmt"

	"github.com/soar-cam/trackerd/internal/serialport"
)

// Direction selects which way zoom speed commands drive the motor.
type Direction int

// The two zoom directions, matching the original's "tele"/"wide" strings.
const (
	Tele Direction = iota // zoom in
	Wide                  // zoom out
)

const (
	minZoomSpeed = 0
	maxZoomSpeed = 7
	minZoomValue = 1.0
	maxZoomValue = 25.0
)

// zoomPositions is the 25-entry calibration table mapping integer zoom
// steps 1..25 to raw motor position counts, carried verbatim from
// original_source/Zoom_CBN8125.py's set_zoom_position.
var zoomPositions = [25]int{
	0, 5350, 8500, 9850, 11300,
	12250, 12950, 13550, 14025, 14420,
	14640, 14840, 15010, 15155, 15320,
	15475, 15580, 15670, 15765, 15860,
	15915, 15970, 16030, 16120, 16380,
}

// send writes a fire-and-forget command frame over link.
func send(link *serialport.Link, frame []byte) error {
	return link.Transact(func(port serialport.SerialPorter) error {
		_, err := port.Write(frame)
		return err
	})
}

// SendRaw writes an arbitrary fire-and-forget frame over link, for the
// diagnostic surface's manual zoom-link send endpoint.
func SendRaw(link *serialport.Link, frame []byte) error {
	return send(link, frame)
}

// SetMinZoom drives the zoom fully wide, matching setMinZoom.
func SetMinZoom(link *serialport.Link) error {
	return send(link, []byte{0x81, 0x01, 0x04, 0x07, 0x03, 0xFF})
}

// SetMaxZoom drives the zoom fully tele, matching setMaxZoom.
func SetMaxZoom(link *serialport.Link) error {
	return send(link, []byte{0x81, 0x01, 0x04, 0x07, 0x02, 0xFF})
}

// positionForValue interpolates a raw motor position count for a zoom
// value in [1, 25], matching set_zoom_position's integer/fractional
// branches: zoomPositions[v-1] for an exact integer step, linear
// interpolation between adjacent steps otherwise.
func positionForValue(zoomValue float64) int {
	if zoomValue < minZoomValue {
		zoomValue = minZoomValue
	}
	if zoomValue > maxZoomValue {
		zoomValue = maxZoomValue
	}

	floor := int(zoomValue)
	if zoomValue == float64(floor) {
		return zoomPositions[floor-1]
	}

	y0 := zoomPositions[floor-1]
	y1 := zoomPositions[floor]
	frac := zoomValue - float64(floor)
	return y0 + int(frac*float64(y1-y0))
}

// SetZoomPosition drives the zoom to an absolute value between 1x and
// 25x, matching set_zoom_position's nibble-split position command.
func SetZoomPosition(link *serialport.Link, zoomValue float64) error {
	pos := positionForValue(zoomValue)
	p := byte(pos>>12) & 0xF
	q := byte(pos>>8) & 0xF
	r := byte(pos>>4) & 0xF
	s := byte(pos) & 0xF
	return send(link, []byte{0x81, 0x01, 0x04, 0x47, p, q, r, s, 0xFF})
}

// SetZoomSpeed drives a continuous zoom move at speed (clamped to
// [0,7]) in the given direction, matching set_zoom_speed's direction-bit
// encoding (0x20|speed for tele, 0x30|speed for wide).
func SetZoomSpeed(link *serialport.Link, speed int, direction Direction) error {
	if speed < minZoomSpeed {
		speed = minZoomSpeed
	}
	if speed > maxZoomSpeed {
		speed = maxZoomSpeed
	}

	var dirBits byte
	switch direction {
	case Tele:
		dirBits = 0x20
	case Wide:
		dirBits = 0x30
	default:
		return fmt.Errorf("zoomlink: unknown direction %v", direction)
	}
	return send(link, []byte{0x81, 0x01, 0x04, 0x07, dirBits | byte(speed), 0xFF})
}

// Init brings the zoom motor to a known state: speed to minimum in both
// directions, then position to 2x, matching the original driver's
// __init__ sequence.
func Init(link *serialport.Link) error {
	if err := SetZoomSpeed(link, 0, Tele); err != nil {
		return err
	}
	if err := SetZoomSpeed(link, 0, Wide); err != nil {
		return err
	}
	return SetZoomPosition(link, 2)
}
