package constants_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "keyscope/constants"
)

func TestLoadBindsHexValues(t *testing.T) {
	src := `
// header comment
#define MIDI_VENDOR   0x7D   // prototype
#define MIDI_RTC      0x20
int unrelated = 3;
#define LOWER         1f
`
	table, err := Load(strings.NewReader(src), log.New(&bytes.Buffer{}))
	require.NoError(t, err)

	v, ok := table.Value("MIDI_VENDOR")
	assert.True(t, ok)
	assert.Equal(t, 0x7D, v)
	assert.Equal(t, 0x20, table.MustValue("MIDI_RTC"))
	assert.Equal(t, 0x1F, table.MustValue("LOWER"))
	assert.Equal(t, 3, table.Len())

	name, ok := table.Name(0x20)
	assert.True(t, ok)
	assert.Equal(t, "MIDI_RTC", name)

	_, ok = table.Value("MISSING")
	assert.False(t, ok)
}

func TestLoadMalformedDefinition(t *testing.T) {
	cases := map[string]string{
		"no value":    "#define MIDI_VENDOR\n",
		"comment":     "#define MIDI_VENDOR // nothing\n",
		"not hex":     "#define MIDI_VENDOR 0xZZ\n",
		"bare define": "#define\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			table, err := Load(strings.NewReader(src), log.New(&bytes.Buffer{}))
			assert.Nil(t, table)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedDefinition))
			assert.Contains(t, err.Error(), "line 1")
		})
	}
}

func TestLoadWarnsOnDuplicateValue(t *testing.T) {
	var buf bytes.Buffer
	src := "#define FIRST 0x7F\n#define SECOND 0x7F\n"
	table, err := Load(strings.NewReader(src), log.New(&buf))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "duplicate constant value")
	assert.Contains(t, out, "FIRST")
	assert.Contains(t, out, "SECOND")

	// forward map keeps both, reverse map keeps the last writer
	assert.Equal(t, 0x7F, table.MustValue("FIRST"))
	assert.Equal(t, 0x7F, table.MustValue("SECOND"))
	name, _ := table.Name(0x7F)
	assert.Equal(t, "SECOND", name)
}

func TestFormat(t *testing.T) {
	table := Default()
	assert.Equal(t, "MIDI_RTC", table.Format(0x20))
	assert.Equal(t, "0x42", table.Format(0x42))
}

func TestDefaultHasProtocolTags(t *testing.T) {
	table := Default()
	for _, name := range []string{Vendor, RTC, IterPerMs, RoundTrip, MaxADCValue, Regulate, ContinueRegulation} {
		_, ok := table.Value(name)
		assert.True(t, ok, name)
	}
	vendor, ok := table.Byte(Vendor)
	assert.True(t, ok)
	assert.Equal(t, byte(0x7D), vendor)
	assert.Less(t, table.MustValue(MaxADCValue), table.MustValue(RTC))
}
