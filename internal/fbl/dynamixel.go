package fbl

import (
	"encoding/binary"
	"fmt"

	"github.com/soar-cam/trackerd/internal/serialport"
)

// addrBytes splits a little-endian 16-bit register address into the
// high/low byte pair the wire protocol expects, matching
// IOBoardDriver.py's `ADDR.to_bytes(2, byteorder="little")` followed by
// sending [ADDR_H, ADDR_L].
func addrBytes(addr uint16) (hi, lo byte) {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, addr)
	return b[1], b[0]
}

// dataBytesSigned splits a signed 32-bit register value into its four
// little-endian bytes in most-significant-first send order, matching
// IOBoardDriver.py's dynamixelWrite byte extraction.
func dataBytesSigned(v int32) [4]byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return [4]byte{b[3], b[2], b[1], b[0]}
}

// DynamixelWrite writes a signed 32-bit value to a servo register.
func DynamixelWrite(link *serialport.Link, id byte, addr uint16, value int32) error {
	hi, lo := addrBytes(addr)
	db := dataBytesSigned(value)
	payload := []byte{id, hi, lo, db[0], db[1], db[2], db[3]}
	_, err := Transact(link, OpDynamixelWrite, payload)
	return err
}

// DynamixelRead reads a signed 32-bit value from a servo register. The
// board's response carries the value big-endian (asymmetric with the
// little-endian write path, matching IOBoardDriver.py's dynamixelRead,
// which decodes with byteorder='big').
func DynamixelRead(link *serialport.Link, id byte, addr uint16) (int32, error) {
	hi, lo := addrBytes(addr)
	resp, err := Transact(link, OpDynamixelRead, []byte{id, hi, lo})
	if err != nil {
		return 0, err
	}
	if len(resp) < 4 {
		return 0, errShortResponse("DynamixelRead", 4, len(resp))
	}
	tail := resp[len(resp)-4:]
	return int32(binary.BigEndian.Uint32(tail)), nil
}

// GroupWrite is one (id, addr, value) tuple in a group write command.
type GroupWrite struct {
	ID    byte
	Addr  uint16
	Value int32
}

// GroupDynamixelWrite writes several registers (possibly across both
// servos) in a single transaction, matching IOBoardDriver.py's
// turnOnTorque/groupDynamixelSetPosition/setPanPID family: a leading
// command count byte followed by (id, addr_hi, addr_lo, 4 data bytes)
// per write.
func GroupDynamixelWrite(link *serialport.Link, writes []GroupWrite) error {
	if len(writes) == 0 {
		return nil
	}
	payload := make([]byte, 0, 1+7*len(writes))
	payload = append(payload, byte(len(writes)))
	for _, w := range writes {
		hi, lo := addrBytes(w.Addr)
		db := dataBytesSigned(w.Value)
		payload = append(payload, w.ID, hi, lo, db[0], db[1], db[2], db[3])
	}
	_, err := Transact(link, OpGroupDynamixelWrite, payload)
	return err
}

// GroupRead is one (id, addr) tuple in a group read command.
type GroupRead struct {
	ID   byte
	Addr uint16
}

// GroupDynamixelRead reads several registers in a single transaction,
// returning their values in request order, matching
// IOBoardDriver.py's getPanPID/getTiltPID/getPanVelocityPI (leading
// count byte, response is a count byte followed by one big-endian int32
// per requested register).
func GroupDynamixelRead(link *serialport.Link, reads []GroupRead) ([]int32, error) {
	payload := make([]byte, 0, 1+3*len(reads))
	payload = append(payload, byte(len(reads)))
	for _, r := range reads {
		hi, lo := addrBytes(r.Addr)
		payload = append(payload, r.ID, hi, lo)
	}
	resp, err := Transact(link, OpGroupDynamixelRead, payload)
	if err != nil {
		return nil, err
	}
	want := 1 + 4*len(reads)
	if len(resp) < want {
		return nil, errShortResponse("GroupDynamixelRead", want, len(resp))
	}
	values := make([]int32, len(reads))
	for i := range reads {
		off := 1 + i*4
		values[i] = int32(binary.BigEndian.Uint32(resp[off : off+4]))
	}
	return values, nil
}

// TemperatureReading is one servo's error-and-temperature report from a
// bulk temperature read.
type TemperatureReading struct {
	ID           byte
	HardwareErr  byte
	TemperatureC byte
}

// BulkReadTemperature reads both servos' hardware-error byte and
// temperature in one transaction, matching IOBoardDriver.py's
// bulkReadTemp. The response order is fixed by firmware: tilt (ID 1)
// then pan (ID 2).
func BulkReadTemperature(link *serialport.Link) (tilt, pan TemperatureReading, err error) {
	resp, terr := Transact(link, OpBulkTemperatureRead, []byte{0x00})
	if terr != nil {
		return TemperatureReading{}, TemperatureReading{}, terr
	}
	if len(resp) < 7 {
		return TemperatureReading{}, TemperatureReading{}, errShortResponse("BulkReadTemperature", 7, len(resp))
	}
	tilt = TemperatureReading{ID: resp[1], HardwareErr: resp[2], TemperatureC: resp[3]}
	pan = TemperatureReading{ID: resp[4], HardwareErr: resp[5], TemperatureC: resp[6]}
	return tilt, pan, nil
}

// PosVel is one servo's position/velocity pair from a bulk read.
type PosVel struct {
	Position uint16
	Velocity uint16
}

// BulkReadPositionVelocity reads both servos' position and velocity in
// one transaction, matching IOBoardDriver.py's bulkReadPosVel. Unlike
// the single/group register reads, the 2-byte position and velocity
// fields here are only 16 bits wide on the wire (not sign-extended
// int32), matching the original's explicit 2-byte big-endian decode.
func BulkReadPositionVelocity(link *serialport.Link) (tilt, pan PosVel, err error) {
	resp, terr := Transact(link, OpBulkDynamixelRead, []byte{0x00})
	if terr != nil {
		return PosVel{}, PosVel{}, terr
	}
	if len(resp) < 13 {
		return PosVel{}, PosVel{}, errShortResponse("BulkReadPositionVelocity", 13, len(resp))
	}
	tilt = PosVel{
		Position: binary.BigEndian.Uint16(resp[3:5]),
		Velocity: binary.BigEndian.Uint16(resp[5:7]),
	}
	pan = PosVel{
		Position: binary.BigEndian.Uint16(resp[9:11]),
		Velocity: binary.BigEndian.Uint16(resp[11:13]),
	}
	return tilt, pan, nil
}

func errShortResponse(op string, want, got int) error {
	return fmt.Errorf("fbl: %s: short response (want at least %d bytes, got %d)", op, want, got)
}
