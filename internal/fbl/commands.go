package fbl

import (
	"encoding/binary"
	"fmt"

	"github.com/soar-cam/trackerd/internal/geo"
	"github.com/soar-cam/trackerd/internal/serialport"
)

// GetFirmware returns the board's raw firmware identification payload,
// matching IOBoardDriver.py's getFirmware.
func GetFirmware(link *serialport.Link) ([]byte, error) {
	return Transact(link, OpFirmware, nil)
}

// SetBackPanelLEDs drives the two back-panel LEDs, matching
// IOBoardDriver.py's setBackPanelLEDs bit-packing (bit0=first, bit1=second).
func SetBackPanelLEDs(link *serialport.Link, first, second bool) error {
	var v byte
	if first {
		v |= 0x01
	}
	if second {
		v |= 0x02
	}
	_, err := Transact(link, OpSetBackPanelLEDs, []byte{v})
	return err
}

// GetShutdownState reports whether the board has started its shutdown
// sequence, matching IOBoardDriver.py's getShutdownState (the low bit of
// the response byte).
func GetShutdownState(link *serialport.Link) (bool, error) {
	resp, err := Transact(link, OpGetShutdown, nil)
	if err != nil {
		return false, err
	}
	if len(resp) == 0 {
		return false, errShortResponse("GetShutdownState", 1, 0)
	}
	return resp[0]&0x01 == 1, nil
}

// SetShutdown arms the board to power itself off after delaySeconds,
// matching IOBoardDriver.py's setShutdown (a little-endian uint16 payload).
func SetShutdown(link *serialport.Link, delaySeconds uint16) error {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, delaySeconds)
	_, err := Transact(link, OpSetShutdown, b)
	return err
}

// GetMacAddress returns the board's raw MAC address bytes, matching
// IOBoardDriver.py's getMacAddress.
func GetMacAddress(link *serialport.Link) ([]byte, error) {
	return Transact(link, OpGetMacAddress, nil)
}

// HallStatus reports both hall-effect sensor states, matching
// IOBoardDriver.py's getHallStatus response layout (response[1] is the
// right-hand sensor the calibration routine waits on).
type HallStatus struct {
	Left  byte
	Right byte
}

// GetHallStatus reads the current hall sensor states.
func GetHallStatus(link *serialport.Link) (HallStatus, error) {
	resp, err := Transact(link, OpGetHallStatus, nil)
	if err != nil {
		return HallStatus{}, err
	}
	if len(resp) < 2 {
		return HallStatus{}, errShortResponse("GetHallStatus", 2, len(resp))
	}
	return HallStatus{Left: resp[0], Right: resp[1]}, nil
}

// TrackerFix is a decoded GPS fix report from the tracker radio.
type TrackerFix struct {
	Point geo.Point
	Valid bool
}

// GetTrackerMessage polls the tracker radio and decodes any GPS fix it
// carries, matching IOBoardDriver.py's getTrackerMessage: a leading
// 0x08 marker byte signals a position report, followed by little-endian
// signed 32-bit latitude/longitude scaled by 1e7. region gates the fix
// exactly as isValidGPSData did (floor(lat)==region.LatFloor &&
// floor(lon)==region.LonFloor), rather than hardcoding Lisbon.
func GetTrackerMessage(link *serialport.Link, region geo.AcceptanceRegion) (TrackerFix, error) {
	resp, err := Transact(link, OpGetTrackerMessage, nil)
	if err != nil {
		return TrackerFix{}, err
	}
	if len(resp) == 0 || resp[0] != 0x08 {
		return TrackerFix{}, nil
	}
	if len(resp) < 9 {
		return TrackerFix{}, errShortResponse("GetTrackerMessage", 9, len(resp))
	}

	latRaw := int32(binary.LittleEndian.Uint32(resp[1:5]))
	lonRaw := int32(binary.LittleEndian.Uint32(resp[5:9]))
	p := geo.Point{
		Lat: float64(latRaw) / 10000000,
		Lon: float64(lonRaw) / 10000000,
	}

	if !region.Accepts(p) {
		return TrackerFix{}, nil
	}
	return TrackerFix{Point: p, Valid: true}, nil
}

// PairingResult reports the outcome of a pairing-related command.
type PairingResult struct {
	Paired  bool
	Pairing bool
}

// StartTrackerPairing begins pairing with a tracker radio, matching
// IOBoardDriver.py's startTrackerPairing.
func StartTrackerPairing(link *serialport.Link) (bool, error) {
	resp, err := Transact(link, OpStartTrackerPairing, nil)
	if err != nil {
		return false, err
	}
	if len(resp) < 2 {
		return false, errShortResponse("StartTrackerPairing", 2, len(resp))
	}
	return resp[0] == 0x01 && resp[1] == 0x01, nil
}

// CheckTrackerPairing reports current pairing state, matching
// IOBoardDriver.py's checkTrackerPairing (guarded by a leading 0x02
// marker byte).
func CheckTrackerPairing(link *serialport.Link) (PairingResult, error) {
	resp, err := Transact(link, OpCheckTrackerPairing, nil)
	if err != nil {
		return PairingResult{}, err
	}
	if len(resp) < 3 || resp[0] != 0x02 {
		return PairingResult{}, fmt.Errorf("fbl: unexpected CheckTrackerPairing response: % x", resp)
	}
	return PairingResult{Paired: resp[1] == 0x01, Pairing: resp[2] == 0x01}, nil
}

// CancelTrackerPairing aborts an in-progress pairing attempt, matching
// IOBoardDriver.py's cancelTrackerPairing.
func CancelTrackerPairing(link *serialport.Link) (bool, error) {
	resp, err := Transact(link, OpCancelTrackerPairing, nil)
	if err != nil {
		return false, err
	}
	if len(resp) < 2 {
		return false, errShortResponse("CancelTrackerPairing", 2, len(resp))
	}
	return resp[1] == 0x01, nil
}

// RebootDynamixel power-cycles both servos at the firmware level. The
// caller is responsible for reapplying servo configuration afterward
// (operating mode, PID gains, profile acceleration), matching
// IOBoardDriver.py's rebootDynamixel, which re-runs its init sequence
// immediately after this call returns.
func RebootDynamixel(link *serialport.Link) error {
	_, err := Transact(link, OpRebootDynamixel, nil)
	return err
}
