package theme

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"
)

type RGB [3]uint8

// Palette is a ramp of colors, darkest first
type Palette struct {
	Name   string
	Colors []RGB
}

// Plasma is the built-in palette
func Plasma() *Palette {
	return &Palette{
		Name: "plasma",
		Colors: []RGB{
			{13, 8, 135},
			{84, 2, 163},
			{139, 10, 165},
			{185, 50, 137},
			{219, 92, 104},
			{244, 136, 73},
			{254, 188, 43},
			{240, 249, 33},
		},
	}
}

// ParseGPL reads the color lines of a GIMP palette. Header, comment and
// blank lines are skipped.
func ParseGPL(r io.Reader) (*Palette, error) {
	p := &Palette{}
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if name, ok := strings.CutPrefix(line, "Name:"); ok {
			p.Name = strings.TrimSpace(name)
			continue
		}
		if line == "" || line[0] < '0' || line[0] > '9' {
			continue
		}

		var c [3]int
		if _, err := fmt.Sscan(line, &c[0], &c[1], &c[2]); err != nil {
			return nil, errors.Wrapf(err, "line %d", n)
		}
		for _, v := range c {
			if v < 0 || v > 255 {
				return nil, errors.Errorf("line %d: component %d out of range", n, v)
			}
		}
		p.Colors = append(p.Colors, RGB{uint8(c[0]), uint8(c[1]), uint8(c[2])})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(p.Colors) == 0 {
		return nil, errors.New("no colors found in palette")
	}
	return p, nil
}

// LoadGPL reads the GIMP palette at path
func LoadGPL(path string) (*Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := ParseGPL(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return p, nil
}

// Step returns the ramp color nearest to norm, clamped to 0-1
func (p *Palette) Step(norm float64) RGB {
	norm = min(max(norm, 0), 1)
	return p.Colors[int(math.Round(norm*float64(len(p.Colors)-1)))]
}
