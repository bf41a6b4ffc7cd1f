package container

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"

	"keyscope/packet"
)

// ReadRecords splits r into raw records. A truncated last record is
// returned with its short payload so the demultiplexer reports it.
func ReadRecords(r io.Reader) ([]packet.Envelope, error) {
	br := bufio.NewReader(r)
	var out []packet.Envelope
	for {
		var rec packet.Record
		n, err := io.ReadFull(br, rec[:])
		switch {
		case err == nil:
			out = append(out, packet.FromRecord(rec))
		case errors.Is(err, io.EOF):
			return out, nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			out = append(out, packet.Envelope{Kind: packet.KindRecord, Payload: append([]byte(nil), rec[:n]...)})
			return out, nil
		default:
			return out, errors.Wrap(err, "read records")
		}
	}
}

// ReadRecordFile is ReadRecords over the file at path
func ReadRecordFile(path string) ([]packet.Envelope, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadRecords(f)
}

// WriteRecords writes records back to back
func WriteRecords(w io.Writer, records []packet.Record) error {
	bw := bufio.NewWriter(w)
	for _, r := range records {
		if _, err := bw.Write(r[:]); err != nil {
			return errors.Wrap(err, "write record")
		}
	}
	return bw.Flush()
}
