package serialport

import (
	"context"
	"strings"
	"time"

	"go.bug.st/serial/enumerator"

	"github.com/soar-cam/trackerd/internal/monitoring"
	"github.com/soar-cam/trackerd/internal/timeutil"
)

// PortCandidate describes one OS-enumerated serial port in terms of the
// fields go.bug.st/serial/enumerator actually exposes. The original
// Python implementation matched on a free-text "description" field that
// pyserial provides and go.bug.st/serial does not (enumerator.PortDetails
// carries Name, IsUSB, VID, PID, SerialNumber only); PortMatcher is built
// against those real fields instead of a fabricated one.
type PortCandidate struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
}

// PortMatcher decides whether a candidate is the device being sought.
type PortMatcher func(PortCandidate) bool

// MatchNameSubstring returns a PortMatcher that accepts any candidate
// whose OS-reported name contains substr (case-sensitive, matching the
// original's substring match semantics). This is the closest available
// analogue to the original description-substring match.
func MatchNameSubstring(substr string) PortMatcher {
	return func(c PortCandidate) bool {
		return strings.Contains(c.Name, substr)
	}
}

// MatchVIDPID returns a PortMatcher that accepts a candidate by exact USB
// vendor/product ID, for deployments that pin specific hardware.
func MatchVIDPID(vid, pid string) PortMatcher {
	return func(c PortCandidate) bool {
		return strings.EqualFold(c.VID, vid) && strings.EqualFold(c.PID, pid)
	}
}

// Enumerator lists the available serial ports. Production code uses
// RealEnumerator; tests use a stub.
type Enumerator interface {
	List() ([]PortCandidate, error)
}

// RealEnumerator lists actual OS serial devices.
type RealEnumerator struct{}

// List implements Enumerator.
func (RealEnumerator) List() ([]PortCandidate, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	candidates := make([]PortCandidate, 0, len(details))
	for _, d := range details {
		candidates = append(candidates, PortCandidate{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
		})
	}
	return candidates, nil
}

// Discover busy-retries port enumeration until a candidate matches m,
// sleeping retryInterval between attempts, per the specification's port
// discovery failure policy (§7: "busy-retry with 100ms sleep until
// device appears"). It returns the matched candidate's Name, suitable
// for passing to Factory.Open.
func Discover(ctx context.Context, enumerate Enumerator, m PortMatcher, clock timeutil.Clock, retryInterval time.Duration) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		candidates, err := enumerate.List()
		if err != nil {
			monitoring.Logf("serialport: enumeration error: %v", err)
		} else {
			for _, c := range candidates {
				if m(c) {
					return c.Name, nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-clock.After(retryInterval):
		}
	}
}
