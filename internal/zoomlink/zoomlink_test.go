package zoomlink

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soar-cam/trackerd/internal/serialport"
)

func newTestLink() (*serialport.Link, *serialport.TestableSerialPort) {
	port := serialport.NewTestableSerialPort()
	return serialport.NewLink(port), port
}

func TestSetMinMaxZoom(t *testing.T) {
	link, port := newTestLink()
	require.NoError(t, SetMinZoom(link))
	require.Equal(t, []byte{0x81, 0x01, 0x04, 0x07, 0x03, 0xFF}, port.WrittenBytes())

	port.WriteBuffer.Reset()
	require.NoError(t, SetMaxZoom(link))
	require.Equal(t, []byte{0x81, 0x01, 0x04, 0x07, 0x02, 0xFF}, port.WrittenBytes())
}

func TestPositionForValueExactStep(t *testing.T) {
	require.Equal(t, 0, positionForValue(1))
	require.Equal(t, 5350, positionForValue(2))
	require.Equal(t, 16380, positionForValue(25))
}

func TestPositionForValueInterpolates(t *testing.T) {
	// Between step 1 (0) and step 2 (5350), halfway should be 2675.
	require.Equal(t, 2675, positionForValue(1.5))
}

func TestPositionForValueClampsRange(t *testing.T) {
	require.Equal(t, positionForValue(1), positionForValue(0))
	require.Equal(t, positionForValue(25), positionForValue(30))
}

func TestSetZoomPositionNibbleSplit(t *testing.T) {
	link, port := newTestLink()
	require.NoError(t, SetZoomPosition(link, 2)) // position 5350 = 0x14E6

	sent := port.WrittenBytes()
	require.Equal(t, []byte{0x81, 0x01, 0x04, 0x47, 0x1, 0x4, 0xE, 0x6, 0xFF}, sent)
}

func TestSetZoomSpeedDirectionBits(t *testing.T) {
	link, port := newTestLink()
	require.NoError(t, SetZoomSpeed(link, 3, Tele))
	require.Equal(t, []byte{0x81, 0x01, 0x04, 0x07, 0x23, 0xFF}, port.WrittenBytes())

	port.WriteBuffer.Reset()
	require.NoError(t, SetZoomSpeed(link, 3, Wide))
	require.Equal(t, []byte{0x81, 0x01, 0x04, 0x07, 0x33, 0xFF}, port.WrittenBytes())
}

func TestSetZoomSpeedClampsRange(t *testing.T) {
	link, port := newTestLink()
	require.NoError(t, SetZoomSpeed(link, 99, Tele))
	require.Equal(t, []byte{0x81, 0x01, 0x04, 0x07, 0x27, 0xFF}, port.WrittenBytes())
}

func TestInitSequence(t *testing.T) {
	link, port := newTestLink()
	require.NoError(t, Init(link))
	require.NotEmpty(t, port.WrittenBytes())
}
