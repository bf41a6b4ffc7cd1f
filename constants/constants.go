// Package constants loads the tag bytes shared with the sensor firmware
// from a C header and exposes them by name and by value.
package constants

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"keyscope/debug"
)

//go:embed firmware.h
var firmwareHeader string

// ErrMalformedDefinition is returned when a #define line cannot be parsed
var ErrMalformedDefinition = errors.New("malformed definition")

// Well-known names looked up by the demultiplexer and the command builders
const (
	SysEx              = "MIDI_SYS_EX"
	EndSysEx           = "MIDI_END_SYSEX"
	Vendor             = "MIDI_VENDOR"
	DumpNoteADC        = "MIDI_DUMP_NOTE_ADC"
	StopDumpADC        = "MIDI_STOP_DUMP_ADC"
	Regulate           = "MIDI_REGULATE"
	ContinueRegulation = "MIDI_CONTINUE_REGULATION"
	DumpRegulation     = "MIDI_DUMP_REGULATION"
	RoundTrip          = "MIDI_ROUNDTRIP_TIME_uS"
	NoSuchNote         = "MIDI_NO_SUCH_NOTE"
	Error              = "MIDI_ERROR"
	IterPerMs          = "MIDI_ITER_PER_MS"
	InitPico           = "INIT_PICO"
	RTC                = "MIDI_RTC"
	MaxADCValue        = "MIDI_MAX_ADC_VALUE"
)

// Table is an immutable name <-> value mapping. Build it once and pass it
// to whoever needs to interpret tag bytes.
type Table struct {
	byName  map[string]int
	byValue map[int]string
}

// Load parses every "#define NAME HEX" line from r. Other lines are ignored.
// Value collisions are logged as warnings; the last name seen wins the
// reverse mapping.
func Load(r io.Reader, logger *log.Logger) (*Table, error) {
	logger = debug.Or(logger)
	t := &Table{
		byName:  make(map[string]int),
		byValue: make(map[int]string),
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || fields[0] != "#define" {
			continue
		}
		if len(fields) < 3 || strings.HasPrefix(fields[2], "//") {
			return nil, errors.Wrapf(ErrMalformedDefinition, "line %d: expected name and value", lineNo)
		}

		name := fields[1]
		value, err := parseHex(fields[2])
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedDefinition, "line %d: %s: %v", lineNo, name, err)
		}

		if old, ok := t.byName[name]; ok {
			logger.Warn("constant redefined", "name", name, "old", fmt.Sprintf("0x%02X", old), "new", fmt.Sprintf("0x%02X", value))
			if t.byValue[old] == name {
				delete(t.byValue, old)
			}
		}
		t.byName[name] = value

		if existing, ok := t.byValue[value]; ok && existing != name {
			logger.Warn("duplicate constant value",
				"value", fmt.Sprintf("0x%02X", value),
				"existing", existing,
				"new", name)
		}
		t.byValue[value] = name
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read definitions")
	}

	return t, nil
}

// LoadFile is Load over the file at path
func LoadFile(path string, logger *log.Logger) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Load(f, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return t, nil
}

// Default returns the table compiled into the binary
func Default() *Table {
	t, err := Load(strings.NewReader(firmwareHeader), log.New(io.Discard))
	if err != nil {
		panic(fmt.Sprintf("embedded firmware header: %v", err))
	}
	return t
}

func parseHex(s string) (int, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 31)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// Value returns the value bound to name
func (t *Table) Value(name string) (int, bool) {
	v, ok := t.byName[name]
	return v, ok
}

// MustValue is Value for names the caller cannot work without
func (t *Table) MustValue(name string) int {
	v, ok := t.byName[name]
	if !ok {
		panic(fmt.Sprintf("constant %s not defined", name))
	}
	return v
}

// Byte returns the value bound to name as a byte, or false if it is
// undefined or does not fit.
func (t *Table) Byte(name string) (byte, bool) {
	v, ok := t.byName[name]
	if !ok || v > 0xFF {
		return 0, false
	}
	return byte(v), true
}

// Name returns the symbol bound to value
func (t *Table) Name(value int) (string, bool) {
	n, ok := t.byValue[value]
	return n, ok
}

// Format pretty-prints a tag: its symbol if known, else the raw value
func (t *Table) Format(value int) string {
	if n, ok := t.byValue[value]; ok {
		return n
	}
	return fmt.Sprintf("0x%02X", value)
}

// Names returns all defined names, sorted
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.byName))
	for n := range t.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len is the number of defined names
func (t *Table) Len() int {
	return len(t.byName)
}
