// Package serialcap records raw binary records from a serial device.
package serialcap

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"go.bug.st/serial"

	"keyscope/debug"
	"keyscope/packet"
)

// DefaultBaud is used when the config does not name a rate
const DefaultBaud = 115200

// readTimeout lets Record notice cancellation while the device is quiet
const readTimeout = 100 * time.Millisecond

// Ports lists the serial devices present
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "list serial ports")
	}
	return ports, nil
}

// Open opens name in 8N1 at baud
func Open(name string, baud int) (serial.Port, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, errors.Wrapf(err, "configure %s", name)
	}
	return port, nil
}

// Record copies whole records from r to w until ctx is done or r ends.
// A read returning no data (a serial timeout) is not an end. Bytes of a
// partial record still pending at the end are discarded and logged. It
// returns the number of records written.
func Record(ctx context.Context, r io.Reader, w io.Writer, logger *log.Logger) (int, error) {
	logger = debug.Or(logger)
	buf := make([]byte, 256*packet.RecordSize)
	var pending []byte
	records := 0

	for {
		select {
		case <-ctx.Done():
			if len(pending) > 0 {
				logger.Warn("dropping partial record", "bytes", len(pending))
			}
			return records, nil
		default:
		}

		n, err := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			whole := len(pending) / packet.RecordSize * packet.RecordSize
			if whole > 0 {
				if _, werr := w.Write(pending[:whole]); werr != nil {
					return records, errors.Wrap(werr, "write records")
				}
				records += whole / packet.RecordSize
				pending = append(pending[:0], pending[whole:]...)
			}
		}
		if errors.Is(err, io.EOF) {
			if len(pending) > 0 {
				logger.Warn("dropping partial record", "bytes", len(pending))
			}
			return records, nil
		}
		if err != nil {
			return records, errors.Wrap(err, "read serial")
		}
	}
}
