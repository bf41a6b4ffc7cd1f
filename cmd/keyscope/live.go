package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"keyscope/container"
	"keyscope/midi"
	"keyscope/packet"
	"keyscope/report"
	"keyscope/serialcap"
	"keyscope/tui"
	"keyscope/velocity"
)

// record runs a capture on in until the user stops it, in the monitor or
// with ctrl+c
func record(e *env, in drivers.In, monitor bool, prepare func() error) ([]container.Timed, error) {
	capture, err := midi.Listen(in)
	if err != nil {
		return nil, err
	}
	if prepare != nil {
		if err := prepare(); err != nil {
			capture.Stop()
			return nil, err
		}
	}

	if monitor {
		p := tea.NewProgram(tui.NewModel(capture, e.table, e.theme, in.String()), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			capture.Stop()
			return nil, err
		}
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		e.log.Info("capturing, ctrl+c to stop", "port", in.String())
		<-ctx.Done()
		stop()
	}

	msgs := capture.Stop()
	e.log.Info("capture stopped", "messages", len(msgs))
	return msgs, nil
}

func save(e *env, path string, msgs []container.Timed) error {
	if path == "" {
		path = time.Now().Format("capture-2006-01-02_15-04-05.mid.gz")
	}
	if err := container.WriteFile(path, msgs); err != nil {
		return err
	}
	e.log.Info("saved", "file", path)
	return nil
}

func cmdCapture(args []string) error {
	var c common
	fs := flag.NewFlagSet("capture", flag.ExitOnError)
	c.register(fs)
	port := fs.String("port", "", "input port name (default from config, then the Pico)")
	out := fs.String("o", "", "output .mid or .mid.gz file")
	monitor := fs.Bool("tui", true, "show the live monitor")
	fs.Parse(args)

	e, err := c.setup()
	if err != nil {
		return err
	}
	defer e.closer()

	if *port == "" {
		*port = e.cfg.Capture.PortName
	}
	in, err := midi.FindIn(*port)
	if err != nil {
		return err
	}

	msgs, err := record(e, in, *monitor, nil)
	if err != nil {
		return err
	}
	if err := save(e, *out, msgs); err != nil {
		return err
	}

	r, err := demultiplex(e, midi.Envelopes(msgs), false, packet.Format12)
	if err != nil {
		return err
	}
	return report.New(e.theme).Stats(os.Stdout, r.report)
}

func cmdADC(args []string) error {
	var c common
	fs := flag.NewFlagSet("adc", flag.ExitOnError)
	c.register(fs)
	port := fs.String("port", "", "controller port name (default from config, then the Pico)")
	note := fs.Int("note", -1, "key to stream")
	out := fs.String("o", "", "output .mid or .mid.gz file")
	monitor := fs.Bool("tui", true, "show the live monitor")
	fs.Parse(args)

	if *note < 0 || *note > 127 {
		return fmt.Errorf("adc: -note 0-127 is required")
	}

	e, err := c.setup()
	if err != nil {
		return err
	}
	defer e.closer()

	if *port == "" {
		*port = e.cfg.Capture.PortName
	}
	in, err := midi.FindIn(*port)
	if err != nil {
		return err
	}
	outPort, err := midi.FindOut(*port)
	if err != nil {
		return err
	}
	cmds, err := midi.NewCommands(e.table)
	if err != nil {
		return err
	}

	msgs, err := record(e, in, *monitor, func() error {
		return midi.Send(outPort, cmds.DumpADC(uint8(*note)))
	})
	if err != nil {
		return err
	}
	if err := midi.Send(outPort, cmds.StopDumpADC()); err != nil {
		e.log.Warn("stop dump", "err", err)
	}
	return save(e, *out, msgs)
}

func cmdSerial(args []string) error {
	var c common
	fs := flag.NewFlagSet("serial", flag.ExitOnError)
	c.register(fs)
	port := fs.String("port", "", "serial device (default from config)")
	baud := fs.Int("baud", 0, "baud rate (default from config)")
	out := fs.String("o", "", "output record file")
	fs.Parse(args)

	e, err := c.setup()
	if err != nil {
		return err
	}
	defer e.closer()

	if *port == "" {
		*port = e.cfg.Capture.SerialPort
	}
	if *port == "" {
		return fmt.Errorf("serial: no -port given and none configured")
	}
	if *baud == 0 {
		*baud = e.cfg.Capture.Baud
	}
	if *out == "" {
		*out = time.Now().Format("records-2006-01-02_15-04-05.bin")
	}

	dev, err := serialcap.Open(*port, *baud)
	if err != nil {
		return err
	}
	defer dev.Close()

	f, err := os.Create(*out)
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	e.log.Info("recording, ctrl+c to stop", "port", *port, "baud", *baud)

	n, err := serialcap.Record(ctx, dev, f, e.log)
	e.log.Info("recorded", "records", n, "file", *out)
	return err
}

func cmdPorts(args []string) error {
	fs := flag.NewFlagSet("ports", flag.ExitOnError)
	timeout := fs.Duration("timeout", midi.DefaultTimeout, "give up on the MIDI backend after")
	fs.Parse(args)

	fmt.Println("=== MIDI Input Ports ===")
	ins, outs, err := midi.Ports(*timeout)
	if err != nil {
		fmt.Println("TIMEOUT! The MIDI backend is hung.")
		fmt.Println("Fix (macOS): sudo killall coreaudiod midiserver")
	}
	for i, p := range ins {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, p := range outs {
		fmt.Printf("  %d: %s\n", i, p.String())
	}

	fmt.Println("\n=== Serial Ports ===")
	serials, serr := serialcap.Ports()
	if serr != nil {
		return serr
	}
	for i, p := range serials {
		fmt.Printf("  %d: %s\n", i, p)
	}
	return err
}

func cmdRegulate(args []string) error {
	var c common
	fs := flag.NewFlagSet("regulate", flag.ExitOnError)
	c.register(fs)
	port := fs.String("port", "", "controller port name (default from config, then the Pico)")
	note := fs.Int("note", -1, "key to regulate")
	read := fs.Bool("read", false, "read the regulation back instead of sending it")
	store := fs.Bool("save", false, "store the regulation in the config")
	letOff := fs.Int("letoff", -1, "let-off threshold")
	strike := fs.Int("strike", -1, "strike threshold")
	drop := fs.Int("drop", -1, "drop threshold")
	velConst := fs.Float64("const", -1, "velocity law constant")
	velSlope := fs.Float64("slope", -1, "velocity law slope")
	fs.Parse(args)

	if *note < 0 || *note > 127 {
		return fmt.Errorf("regulate: -note 0-127 is required")
	}

	e, err := c.setup()
	if err != nil {
		return err
	}
	defer e.closer()

	if *port == "" {
		*port = e.cfg.Capture.PortName
	}
	outPort, err := midi.FindOut(*port)
	if err != nil {
		return err
	}
	cmds, err := midi.NewCommands(e.table)
	if err != nil {
		return err
	}

	var p velocity.Profile
	if *read {
		p, err = readRegulation(e, cmds, *port, outPort, uint8(*note))
		if err != nil {
			return err
		}
	} else {
		p = e.cfg.ProfileFor(uint8(*note))
		override(&p.LetOff, *letOff)
		override(&p.Strike, *strike)
		override(&p.Drop, *drop)
		if *velConst >= 0 {
			p.VelocityConst = *velConst
		}
		if *velSlope >= 0 {
			p.VelocitySlope = *velSlope
		}

		msgs, err := cmds.Regulate(uint8(*note), p)
		if err != nil {
			return err
		}
		if err := midi.Send(outPort, msgs...); err != nil {
			return err
		}
	}
	fmt.Printf("note %d: let-off %d, strike %d, drop %d, velocity %.2f - %.2f*log10(t)\n",
		*note, p.LetOff, p.Strike, p.Drop, p.VelocityConst, p.VelocitySlope)

	if *store {
		e.cfg.SetProfile(uint8(*note), p)
		if c.configPath != "" {
			return e.cfg.SaveTo(c.configPath)
		}
		return e.cfg.Save()
	}
	return nil
}

func override(dst *int, v int) {
	if v >= 0 {
		*dst = v
	}
}

// regulationWait is how long the controller gets to answer a dump request
const regulationWait = 500 * time.Millisecond

func readRegulation(e *env, cmds *midi.Commands, port string, out drivers.Out, note uint8) (velocity.Profile, error) {
	in, err := midi.FindIn(port)
	if err != nil {
		return velocity.Profile{}, err
	}
	capture, err := midi.Listen(in)
	if err != nil {
		return velocity.Profile{}, err
	}
	if err := midi.Send(out, cmds.DumpRegulation(note)); err != nil {
		capture.Stop()
		return velocity.Profile{}, err
	}
	time.Sleep(regulationWait)
	msgs := capture.Stop()
	e.log.Debug("regulation reply", "messages", len(msgs))
	return cmds.DecodeRegulationDump(midi.Envelopes(msgs))
}
