package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"touchtone/dtmf"
	"touchtone/publish"
)

const (
	ModeKeys    = "keys"
	ModeConsole = "console"
	ModeCommand = "command"
)

var errUsage = errors.New("usage")

// Options is the parsed command line.
type Options struct {
	Detector dtmf.Config

	Mode   string
	Device string
	Play   string
	List   bool
	Input  string // WAV file, empty for live capture

	Commands string
	Broker   string
	Topic    string
	Queue    int

	Gen       string
	Output    string
	Tone      time.Duration
	Gap       time.Duration
	Amplitude float64

	Logfile string
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// loadEnv reads .env into the environment, if there is one. Variables
// already set win.
func loadEnv() {
	_ = godotenv.Load()
}

// parseOptions parses args (without the program name). Defaults for the
// deployment settings come from the TOUCHTONE_* environment variables.
func parseOptions(args []string, output io.Writer) (Options, error) {
	var o Options
	def := dtmf.DefaultConfig()

	fs := flag.NewFlagSet("touchtone", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: %v [options] [file.wav]\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
	}

	fs.StringVar(&o.Mode, "mode", getEnv("TOUCHTONE_MODE", ModeKeys), "output mode: keys, console or command")
	fs.StringVar(&o.Device, "device", getEnv("TOUCHTONE_DEVICE", ""), "input audio device (name prefix or index, for live decoding)")
	fs.StringVar(&o.Play, "play", "", "output audio device (for monitoring)")
	fs.BoolVar(&o.List, "list", false, "list audio devices")

	fs.IntVar(&o.Detector.SampleRate, "rate", def.SampleRate, "capture sample rate (in Hz)")
	fs.DurationVar(&o.Detector.Window, "window", def.Window, "analysis window")
	fs.DurationVar(&o.Detector.MinSignal, "min-signal", def.MinSignal, "minimum tone duration for a key")
	fs.DurationVar(&o.Detector.Spacing, "spacing", def.Spacing, "minimum time between keys")
	fs.Float64Var(&o.Detector.MaxDeviation, "deviation", def.MaxDeviation, "maximum deviation from a keypad frequency (in Hz)")
	fs.Float64Var(&o.Detector.MinLowEnergy, "min-low-energy", def.MinLowEnergy, "minimum power of the low tone")
	fs.Float64Var(&o.Detector.MinHighEnergy, "min-high-energy", def.MinHighEnergy, "minimum power of the high tone")

	fs.StringVar(&o.Commands, "commands", getEnv("TOUCHTONE_COMMANDS", ""), "command table (INI file, built-in table if empty)")
	fs.StringVar(&o.Broker, "broker", getEnv("TOUCHTONE_BROKER", ""), "MQTT broker address (empty to disable)")
	fs.StringVar(&o.Topic, "topic", getEnv("TOUCHTONE_TOPIC", publish.DefaultTopic), "MQTT topic prefix")
	fs.IntVar(&o.Queue, "queue", 64, "keys buffered for slow consumers before dropping")

	fs.StringVar(&o.Gen, "gen", "", "generate a WAV file dialing these keys and exit")
	fs.StringVar(&o.Output, "o", "dtmf.wav", "output file for -gen")
	fs.DurationVar(&o.Tone, "tone", 100*time.Millisecond, "tone duration for -gen")
	fs.DurationVar(&o.Gap, "gap", 100*time.Millisecond, "silence after each tone for -gen")
	fs.Float64Var(&o.Amplitude, "amplitude", 0.4, "amplitude of each sine for -gen (0-0.5)")

	fs.StringVar(&o.Logfile, "logfile", "", "write the log to this file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return o, errUsage
		}
		return o, err
	}

	switch o.Mode {
	case ModeKeys, ModeConsole, ModeCommand:
	default:
		return o, fmt.Errorf("unknown mode %q", o.Mode)
	}

	if o.Queue < 1 {
		o.Queue = 1
	}

	if fs.NArg() > 1 {
		return o, fmt.Errorf("too many input files")
	}
	o.Input = fs.Arg(0)

	return o, nil
}

// Live reports whether audio comes from a device rather than a file.
func (o Options) Live() bool { return o.Input == "" }
