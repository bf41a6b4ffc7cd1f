// Package report renders analysis results for the terminal and for
// downstream tools.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"keyscope/stats"
	"keyscope/theme"
)

// Renderer draws tables with a theme
type Renderer struct {
	th *theme.Theme
}

// New returns a renderer; a nil theme selects the built-in palette
func New(th *theme.Theme) *Renderer {
	if th == nil {
		th = theme.New(nil)
	}
	return &Renderer{th: th}
}

func (r *Renderer) table(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.th.Dim()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Inherit(r.th.Header())
			}
			if col > 0 {
				s = s.Align(lipgloss.Right)
			}
			return s
		})
}

func (r *Renderer) section(w io.Writer, title string, t *table.Table) error {
	_, err := fmt.Fprintf(w, "%s\n%s\n\n", r.th.Header().Render(title), t.Render())
	return err
}

func summaryRow(name string, s stats.Summary) []string {
	return []string{
		name,
		strconv.Itoa(s.N),
		s.Mean.String(),
		s.StdDev.String(),
		s.Min.String(),
		s.Median.String(),
		s.P95.String(),
		s.Max.String(),
	}
}

var summaryHeaders = []string{"metric", "n", "mean", "stdev", "min", "median", "p95", "max"}

// Stats writes the statistics report as a sequence of tables
func (r *Renderer) Stats(w io.Writer, rep stats.Report) error {
	kinds := make([]string, 0, len(rep.Packets))
	for k := range rep.Packets {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	packets := r.table("kind", "count")
	for _, k := range kinds {
		packets.Row(k, strconv.Itoa(rep.Packets[k]))
	}
	packets.Row("total", strconv.Itoa(rep.TotalPackets()))
	if err := r.section(w, "Packets", packets); err != nil {
		return err
	}

	problems := r.table("diagnostic", "count").
		Row("vendor mismatch", strconv.Itoa(rep.VendorMismatches)).
		Row("corrupted", strconv.Itoa(rep.Corrupted)).
		Row("junk", strconv.Itoa(rep.Junk))
	for _, name := range sortedNames(rep.OtherTags) {
		problems.Row(name, strconv.Itoa(rep.OtherTags[name]))
	}
	for _, tag := range sortedTags(rep.UnknownTags) {
		problems.Row(fmt.Sprintf("unknown 0x%02X", tag), strconv.Itoa(rep.UnknownTags[tag]))
	}
	if err := r.section(w, "Diagnostics", problems); err != nil {
		return err
	}

	if len(rep.Channels) > 0 {
		channels := r.table("channel", "present", "missing")
		for _, c := range rep.Channels {
			channels.Row(strconv.Itoa(int(c.Channel)), strconv.Itoa(c.Present), strconv.Itoa(c.Missing))
		}
		if err := r.section(w, "Channels", channels); err != nil {
			return err
		}
	}

	timing := r.table(summaryHeaders...).
		Row(summaryRow("rtc interval (s)", rep.RTCInterval)...).
		Row(summaryRow("round trip (us)", rep.RoundTrip)...)
	for _, d := range rep.Devices {
		timing.Row(summaryRow(fmt.Sprintf("device %d iter/ms", d.Device), d.Rate)...)
	}
	if err := r.section(w, fmt.Sprintf("Timing (%d RTC packets)", rep.RTCCount), timing); err != nil {
		return err
	}

	for _, d := range rep.Devices {
		if d.Overflow > 0 {
			msg := fmt.Sprintf("device %d: %d iteration counter overflows", d.Device, d.Overflow)
			if _, err := fmt.Fprintln(w, lipgloss.NewStyle().Foreground(r.th.Warning()).Render(msg)); err != nil {
				return err
			}
		}
	}

	if len(rep.Notes) > 0 {
		notes := r.table("note", "on", "off", "avg on vel", "avg off vel")
		for _, n := range rep.Notes {
			notes.Row(strconv.Itoa(int(n.Note)), strconv.Itoa(n.On), strconv.Itoa(n.Off),
				n.AvgOnVelocity.Sprintf("%.1f"), n.AvgOffVelocity.Sprintf("%.1f"))
		}
		if err := r.section(w, "Notes", notes); err != nil {
			return err
		}
	}
	return nil
}

func sortedNames(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedTags(m map[byte]int) []byte {
	out := make([]byte, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
