package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"keyscope/container"
	"keyscope/demux"
	"keyscope/packet"
	"keyscope/report"
	"keyscope/series"
	"keyscope/stats"
	"keyscope/velocity"
)

// input names the capture to analyse
type input struct {
	common
	format  string
	records bool
}

func (in *input) register(fs *flag.FlagSet) {
	in.common.register(fs)
	fs.StringVar(&in.format, "format", "", "raw record layout, 12 or 8 (default from config)")
	fs.BoolVar(&in.records, "records", false, "treat FILE as raw records whatever its name")
}

func (in *input) recordFormat(e *env) (packet.RecordFormat, error) {
	if in.format != "" {
		return packet.ParseRecordFormat(in.format)
	}
	return packet.ParseRecordFormat(strconv.Itoa(e.cfg.Capture.RecordFormat))
}

func isSMF(path string) bool {
	return strings.HasSuffix(path, ".mid") || strings.HasSuffix(path, ".mid.gz") ||
		strings.HasSuffix(path, ".midi") || strings.HasSuffix(path, ".smf")
}

// run is one analysis pass over a file
type run struct {
	store   *series.Store
	report  stats.Report
	records bool
	format  packet.RecordFormat
}

func (in *input) load(fs *flag.FlagSet, e *env) (*run, error) {
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("%s: expected one FILE", fs.Name())
	}
	path := fs.Arg(0)

	format, err := in.recordFormat(e)
	if err != nil {
		return nil, err
	}

	var envs []packet.Envelope
	records := in.records || !isSMF(path)
	if records {
		envs, err = container.ReadRecordFile(path)
	} else {
		envs, err = container.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	e.log.Debug("loaded", "file", path, "units", len(envs), "records", records)

	return demultiplex(e, envs, records, format)
}

func demultiplex(e *env, envs []packet.Envelope, records bool, format packet.RecordFormat) (*run, error) {
	r := &run{store: series.NewStore(), records: records, format: format}
	collector := stats.NewCollector()
	d, err := demux.New(e.table, r.store, collector,
		demux.WithLogger(e.log),
		demux.WithRecordFormat(format),
		demux.WithRecordTick(e.cfg.Capture.RecordTick),
		demux.WithLogEvery(e.cfg.LogEvery))
	if err != nil {
		return nil, err
	}
	d.Run(slices.Values(envs))
	if records {
		e.log.Debug("record clock", "wraps", d.RecordWraps())
	}
	r.report = collector.Finalize()
	return r, nil
}

func cmdStat(args []string) error {
	var in input
	fs := flag.NewFlagSet("stat", flag.ExitOnError)
	in.register(fs)
	fs.Parse(args)

	e, err := in.setup()
	if err != nil {
		return err
	}
	defer e.closer()

	r, err := in.load(fs, e)
	if err != nil {
		return err
	}
	return report.New(e.theme).Stats(os.Stdout, r.report)
}

func cmdDump(args []string) error {
	var in input
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	in.register(fs)
	ignoreTime := fs.Bool("ignore-midi-time", false, "use the sample index instead of the capture time")
	long := fs.Bool("long", false, "one channel, index, time, value row per sample")
	fs.Parse(args)

	e, err := in.setup()
	if err != nil {
		return err
	}
	defer e.closer()

	r, err := in.load(fs, e)
	if err != nil {
		return err
	}
	if *long {
		return report.WriteLongDump(os.Stdout, r.store, *ignoreTime)
	}
	return report.WriteDump(os.Stdout, r.store, *ignoreTime)
}

func cmdAnalyze(args []string) error {
	var in input
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	in.register(fs)
	estimator := fs.String("estimator", "", "velocity estimator: log, sg or sg-right (default from config)")
	channel := fs.Int("channel", -1, "only this channel")
	withStats := fs.Bool("stats", false, "also print capture statistics")
	fs.Parse(args)

	e, err := in.setup()
	if err != nil {
		return err
	}
	defer e.closer()

	r, err := in.load(fs, e)
	if err != nil {
		return err
	}

	name := *estimator
	if name == "" {
		name = e.cfg.Estimator
	}

	var all []report.ChannelEvents
	for _, ch := range r.store.Channels() {
		if *channel >= 0 && int(ch) != *channel {
			continue
		}
		p := e.cfg.ProfileFor(ch)
		if r.records {
			p.BitDepth = r.format.BitDepth()
		}
		est, err := velocity.ByName(name, p)
		if err != nil {
			return err
		}
		events, err := velocity.Extract(r.store.Samples(ch), p, est)
		var domain *velocity.DomainError
		if errors.As(err, &domain) {
			e.log.Warn("velocity domain error", "channel", ch, "time", domain.Time, "reason", domain.Reason)
		}
		all = append(all, report.ChannelEvents{Channel: ch, Events: events, Err: err})
	}

	rd := report.New(e.theme)
	if err := rd.Events(os.Stdout, all); err != nil {
		return err
	}
	if *withStats {
		return rd.Stats(os.Stdout, r.report)
	}
	return nil
}

func cmdRecords(args []string) error {
	var in input
	fs := flag.NewFlagSet("records", flag.ExitOnError)
	in.register(fs)
	limit := fs.Int("n", 0, "print at most n records")
	fs.Parse(args)

	e, err := in.setup()
	if err != nil {
		return err
	}
	defer e.closer()

	if fs.NArg() != 1 {
		return fmt.Errorf("records: expected one FILE")
	}
	format, err := in.recordFormat(e)
	if err != nil {
		return err
	}
	envs, err := container.ReadRecordFile(fs.Arg(0))
	if err != nil {
		return err
	}

	for i, env := range envs {
		if *limit > 0 && i >= *limit {
			break
		}
		rec, ok := env.Record()
		if !ok {
			fmt.Printf("%d\ttruncated % X\n", i, env.Payload)
			continue
		}
		fmt.Printf("%d\tts=%d", i, rec.Timestamp())
		for _, s := range rec.Samples(format) {
			fmt.Printf("\tch%d=%d", s.Channel, s.Value)
		}
		fmt.Println()
	}
	return nil
}
