package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"keyscope/config"
	"keyscope/constants"
	"keyscope/debug"
	"keyscope/theme"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "stat":
		err = cmdStat(args)
	case "dump":
		err = cmdDump(args)
	case "analyze":
		err = cmdAnalyze(args)
	case "records":
		err = cmdRecords(args)
	case "capture":
		err = cmdCapture(args)
	case "serial":
		err = cmdSerial(args)
	case "ports":
		err = cmdPorts(args)
	case "regulate":
		err = cmdRegulate(args)
	case "adc":
		err = cmdADC(args)
	case "help", "-h", "--help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("keyscope: piano key sensor telemetry")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  stat FILE      - Capture quality statistics")
	fmt.Println("  dump FILE      - Channel series as TSV")
	fmt.Println("  analyze FILE   - Note events with velocity, per channel")
	fmt.Println("  records FILE   - Decode a raw record file")
	fmt.Println("  capture        - Record a MIDI port to a file")
	fmt.Println("  serial         - Record raw records from a serial port")
	fmt.Println("  ports          - List MIDI and serial ports")
	fmt.Println("  regulate       - Send or read the regulation of a key")
	fmt.Println("  adc            - Stream raw ADC readings of a key")
	fmt.Println("")
	fmt.Println("FILE is a .mid or .mid.gz capture, or a raw record file.")
	fmt.Println("Run keyscope COMMAND -h for options.")
}

// env is what every subcommand shares
type env struct {
	cfg    *config.Config
	table  *constants.Table
	log    *log.Logger
	theme  *theme.Theme
	closer func()
}

// common registers the flags every subcommand accepts
type common struct {
	configPath    string
	constantsPath string
	debugLog      bool
	logFile       string
	palette       string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "config file (default ~/.config/keyscope/config.json)")
	fs.StringVar(&c.constantsPath, "constants", "", "firmware constants header (default built in)")
	fs.BoolVar(&c.debugLog, "debug", false, "also write diagnostics to the log file")
	fs.StringVar(&c.logFile, "log", "", "diagnostics log file (default ~/.config/keyscope/debug.log)")
	fs.StringVar(&c.palette, "palette", "", "GIMP palette for colors")
}

func (c *common) setup() (*env, error) {
	var (
		cfg *config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.LoadFrom(c.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	logger := debug.New(os.Stderr)
	e := &env{cfg: cfg, log: logger, closer: func() {}}

	logFile := c.logFile
	if logFile == "" {
		logFile = cfg.LogFile
	}
	if c.debugLog || logFile != "" {
		logger.SetLevel(log.DebugLevel)
		if err := debug.Enable(logger, logFile); err != nil {
			return nil, err
		}
		e.closer = func() { debug.Disable(logger) }
	}

	constantsPath := c.constantsPath
	if constantsPath == "" {
		constantsPath = cfg.ConstantsPath
	}
	if constantsPath != "" {
		e.table, err = constants.LoadFile(constantsPath, logger)
		if err != nil {
			e.closer()
			return nil, err
		}
	} else {
		e.table = constants.Default()
	}

	var palette *theme.Palette
	if c.palette != "" {
		palette, err = theme.LoadGPL(c.palette)
		if err != nil {
			e.closer()
			return nil, err
		}
	}
	e.theme = theme.New(palette)

	return e, nil
}
