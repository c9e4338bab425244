package fbl

import (
	"fmt"
	"io"

	"github.com/soar-cam/trackerd/internal/serialport"
)

// Transact builds a request frame for op/data, sends it over link, and
// reads + validates the response frame, returning the response's data
// payload. It mirrors IOBoardDriver.py's bsr_message (build, send, read),
// using serialport.Link.Transact to make the round trip non-preemptible.
func Transact(link *serialport.Link, op Op, data []byte) ([]byte, error) {
	frame, err := BuildFrame(op, data)
	if err != nil {
		return nil, err
	}

	var respData []byte
	err = link.Transact(func(port serialport.SerialPorter) error {
		if _, werr := port.Write(frame); werr != nil {
			return fmt.Errorf("fbl: write failed: %w", werr)
		}

		header := make([]byte, 5)
		if _, rerr := io.ReadFull(port, header); rerr != nil {
			return fmt.Errorf("fbl: reading header failed: %w", rerr)
		}

		dataLen := int(header[4])
		rest := make([]byte, dataLen+2)
		if _, rerr := io.ReadFull(port, rest); rerr != nil {
			return fmt.Errorf("fbl: reading body failed: %w", rerr)
		}

		full := append(header, rest...)
		_, parsedData, perr := ParseFrame(full)
		if perr != nil {
			return perr
		}
		respData = parsedData
		return nil
	})
	if err != nil {
		return nil, err
	}
	return respData, nil
}
