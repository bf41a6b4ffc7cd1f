package serialcap_test

import (
	"bytes"
	"context"
	"io"
	"testing"
	"testing/iotest"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "keyscope/serialcap"
)

func TestRecordKeepsWholeRecords(t *testing.T) {
	src := bytes.NewReader([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	var dst, logs bytes.Buffer

	// one byte per read exercises the pending buffer
	n, err := Record(context.Background(), iotest.OneByteReader(src), &dst, log.New(&logs))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, dst.Bytes())
	assert.Contains(t, logs.String(), "partial record")
}

func TestRecordStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := Record(ctx, quiet{}, io.Discard, log.New(io.Discard))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRecordPropagatesReadErrors(t *testing.T) {
	_, err := Record(context.Background(), iotest.ErrReader(assert.AnError), io.Discard, log.New(io.Discard))
	assert.ErrorIs(t, err, assert.AnError)
}

// quiet behaves like a serial port timing out forever
type quiet struct{}

func (quiet) Read([]byte) (int, error) { return 0, nil }
