package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"keyscope/series"
)

// WriteDump writes one row per time step and one column per channel, in
// discovery order, for plotting tools. The time of a row is taken from the
// first channel that has a sample at that step; with ignoreTime it is the
// step index. Missing samples and steps past a channel's end read N/A.
func WriteDump(w io.Writer, store *series.Store, ignoreTime bool) error {
	channels := store.Discovered()
	bw := bufio.NewWriter(w)

	header := []string{"Time_(s)"}
	if ignoreTime {
		header[0] = "Time_(packet_cnt)"
	}
	for _, ch := range channels {
		header = append(header, fmt.Sprintf("ADC_value_for_MIDI_note_%d", ch))
	}
	fmt.Fprintln(bw, strings.Join(header, "\t"))

	row := make([]string, len(channels)+1)
	for i := 0; i < store.MaxLen(); i++ {
		row[0] = ""
		if ignoreTime {
			row[0] = strconv.Itoa(i)
		}
		for j, ch := range channels {
			samples := store.Samples(ch)
			if i >= len(samples) {
				row[j+1] = "N/A"
				continue
			}
			if row[0] == "" {
				row[0] = strconv.FormatFloat(samples[i].Time, 'f', 6, 64)
			}
			row[j+1] = value(samples[i])
		}
		fmt.Fprintln(bw, strings.Join(row, "\t"))
	}
	return bw.Flush()
}

// WriteLongDump writes every channel series as tab separated channel,
// index, time and value rows. With ignoreTime the time column holds the
// sample index.
func WriteLongDump(w io.Writer, store *series.Store, ignoreTime bool) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "channel\tindex\ttime\tvalue")

	for _, ch := range store.Channels() {
		for i, s := range store.Samples(ch) {
			t := strconv.FormatFloat(s.Time, 'f', 6, 64)
			if ignoreTime {
				t = strconv.Itoa(i)
			}
			fmt.Fprintf(bw, "%d\t%d\t%s\t%s\n", ch, i, t, value(s))
		}
	}
	return bw.Flush()
}

func value(s series.Sample) string {
	if s.Missing {
		return "N/A"
	}
	return strconv.Itoa(int(s.Value))
}
