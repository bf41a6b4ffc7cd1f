package packet

import "fmt"

// RecordSize is the length of a raw binary record
const RecordSize = 4

// Record is 3 bytes of samples followed by a timestamp byte
type Record [RecordSize]byte

// RecordFormat selects how the 3 sample bytes are laid out
type RecordFormat int

const (
	// Format12 packs two 12 bit samples of the same channel
	Format12 RecordFormat = 12
	// Format8 holds three 8 bit samples of channels 0, 1 and 2
	Format8 RecordFormat = 8
)

// ParseRecordFormat accepts "12" or "8"
func ParseRecordFormat(s string) (RecordFormat, error) {
	switch s {
	case "12":
		return Format12, nil
	case "8":
		return Format8, nil
	}
	return 0, fmt.Errorf("unknown record format %q (want 12 or 8)", s)
}

// BitDepth returns the sample width in bits
func (f RecordFormat) BitDepth() int {
	return int(f)
}

// Timestamp returns the wrapping 8 bit timestamp
func (r Record) Timestamp() byte {
	return r[3]
}

// Samples returns the channel/value pairs carried by the record
func (r Record) Samples(f RecordFormat) []ChannelValue {
	switch f {
	case Format12:
		d1, d2 := Unpack12(r[0], r[1], r[2])
		return []ChannelValue{{0, d1}, {0, d2}}
	case Format8:
		return []ChannelValue{{0, uint16(r[0])}, {1, uint16(r[1])}, {2, uint16(r[2])}}
	}
	return nil
}

// ChannelValue is one raw reading of one channel
type ChannelValue struct {
	Channel uint8
	Value   uint16
}

// Unpack12 extracts two 12 bit samples:
//
//	d1 = b2<<4 | b1>>4
//	d2 = b0 | (b1&0x0F)<<8
func Unpack12(b0, b1, b2 byte) (d1, d2 uint16) {
	d1 = uint16(b2)<<4 | uint16(b1)>>4
	d2 = uint16(b0) | uint16(b1&0x0F)<<8
	return d1, d2
}

// Pack12 is the inverse of Unpack12. Values above 4095 are truncated.
func Pack12(d1, d2 uint16) [3]byte {
	d1 &= 0x0FFF
	d2 &= 0x0FFF
	return [3]byte{
		byte(d2 & 0xFF),
		byte(d1&0x0F)<<4 | byte(d2>>8),
		byte(d1 >> 4),
	}
}
