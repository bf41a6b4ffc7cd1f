// Package container reads and writes capture files: standard MIDI files
// (optionally gzip compressed) and raw binary record dumps.
package container

import (
	"compress/gzip"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"keyscope/packet"
)

// Resolution of written files
const (
	Resolution = smf.MetricTicks(960)
	tempoBPM   = 120.0
)

// Timed is a captured message with its offset from the capture start
type Timed struct {
	Msg    gomidi.Message
	Offset time.Duration
}

func compressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

// ReadSMF decodes every non-meta message of r in file order
func ReadSMF(r io.Reader) ([]packet.Envelope, error) {
	var out []packet.Envelope
	err := smf.ReadTracksFrom(r).Do(func(ev smf.TrackEvent) {
		if ev.Message.IsMeta() {
			return
		}
		out = append(out, packet.FromMessage(gomidi.Message(ev.Message)))
	}).Error()
	if err != nil {
		return out, errors.Wrap(err, "read smf")
	}
	return out, nil
}

// ReadFile is ReadSMF over the file at path; a .gz suffix selects gzip
func ReadFile(path string) ([]packet.Envelope, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed(path) {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", path)
		}
		defer zr.Close()
		r = zr
	}

	envs, err := ReadSMF(r)
	if err != nil {
		return envs, errors.Wrapf(err, "%s", path)
	}
	return envs, nil
}

// WriteSMF encodes msgs as a single track file
func WriteSMF(w io.Writer, msgs []Timed) error {
	var tr smf.Track
	var last time.Duration
	for _, m := range msgs {
		delta := m.Offset - last
		if delta < 0 {
			delta = 0
		}
		tr.Add(Resolution.Ticks(tempoBPM, delta), m.Msg)
		last += delta
	}
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = Resolution
	if err := s.Add(tr); err != nil {
		return errors.Wrap(err, "add track")
	}
	if _, err := s.WriteTo(w); err != nil {
		return errors.Wrap(err, "write smf")
	}
	return nil
}

// WriteFile is WriteSMF into path; a .gz suffix selects gzip
func WriteFile(path string, msgs []Timed) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var w io.Writer = f
	var zw *gzip.Writer
	if compressed(path) {
		zw = gzip.NewWriter(f)
		w = zw
	}

	if err := WriteSMF(w, msgs); err != nil {
		return errors.Wrapf(err, "%s", path)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return err
		}
	}
	return f.Sync()
}
