package serialport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/soar-cam/trackerd/internal/timeutil"
)

func TestTestableSerialPortReadWrite(t *testing.T) {
	p := NewTestableSerialPort()
	p.QueueResponse([]byte{0xFF, 0xFF, 0x01})

	n, err := p.Write([]byte{0x02, 0x03})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []byte{0x02, 0x03}, p.WrittenBytes())

	buf := make([]byte, 3)
	n, err = p.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []byte{0xFF, 0xFF, 0x01}, buf)
}

func TestTestableSerialPortCloseRejectsIO(t *testing.T) {
	p := NewTestableSerialPort()
	require.NoError(t, p.Close())
	_, err := p.Write([]byte{0x01})
	require.Error(t, err)
}

func TestMatchNameSubstring(t *testing.T) {
	m := MatchNameSubstring("Surf Front Board")
	require.True(t, m(PortCandidate{Name: "USB Serial (Surf Front Board)"}))
	require.False(t, m(PortCandidate{Name: "USB Serial (Zoom)"}))
}

func TestMatchVIDPID(t *testing.T) {
	m := MatchVIDPID("2341", "0043")
	require.True(t, m(PortCandidate{VID: "2341", PID: "0043"}))
	require.False(t, m(PortCandidate{VID: "0000", PID: "0043"}))
}

type stubEnumerator struct {
	calls     int
	failUntil int
	result    []PortCandidate
}

func (s *stubEnumerator) List() ([]PortCandidate, error) {
	s.calls++
	if s.calls < s.failUntil {
		return nil, nil
	}
	return s.result, nil
}

func TestDiscoverRetriesUntilFound(t *testing.T) {
	clock := timeutil.NewMockClock(time.Now())
	enumr := &stubEnumerator{failUntil: 3, result: []PortCandidate{{Name: "Surf Front Board"}}}

	resultCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		name, err := Discover(context.Background(), enumr, MatchNameSubstring("Surf Front Board"), clock, 10*time.Millisecond)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- name
	}()

	// allow the first failing attempts to run and request their timers
	for i := 0; i < 5; i++ {
		clock.Advance(10 * time.Millisecond)
		time.Sleep(time.Millisecond)
	}

	select {
	case name := <-resultCh:
		require.Equal(t, "Surf Front Board", name)
	case err := <-errCh:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for discovery")
	}
}

func TestLinkTransactWritesThroughToPort(t *testing.T) {
	p := NewTestableSerialPort()
	link := NewLink(p)

	err := link.Transact(func(port SerialPorter) error {
		_, writeErr := port.Write([]byte{0x01})
		return writeErr
	})
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, p.WrittenBytes())
}
