// Command touchtone decodes touch-tone (DTMF) keys from a sound card or a
// WAV file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/jroimartin/gocui"

	"touchtone/audio"
	"touchtone/command"
	"touchtone/dtmf"
	"touchtone/publish"
)

const banner = `
      .-----------------------.
      |  .-----------------.  |
      |  |   TOUCH  TONE   |  |
      |  '-----------------'  |
      |   [1]  [2]  [3]  [A]  |
      |   [4]  [5]  [6]  [B]  |
      |   [7]  [8]  [9]  [C]  |
      |   [*]  [0]  [#]  [D]  |
      '-----------------------'
`

func main() {
	loadEnv()

	opts, err := parseOptions(os.Args[1:], os.Stderr)
	if errors.Is(err, errUsage) {
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}

	if opts.Logfile != "" {
		f, err := os.OpenFile(opts.Logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		log.SetOutput(f)
	} else if opts.Mode == ModeConsole {
		// the terminal belongs to the UI
		log.SetOutput(io.Discard)
	}

	if opts.Gen != "" {
		if err := generate(opts); err != nil {
			log.Fatalf("fatal: %v", err)
		}
		return
	}

	if opts.Live() || opts.Play != "" || opts.List {
		// Initialize PortAudio
		err := portaudio.Initialize()
		if err != nil {
			log.Fatalf("Failed to initialize PortAudio: %v", err)
		}
		defer portaudio.Terminate()
	}

	if opts.List {
		if err := listDevices(); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func listDevices() error {
	l, err := ListAudioDevices(AudioInOut)
	if err != nil {
		return err
	}

	fmt.Println("Available audio devices")
	for i, d := range l {
		fmt.Println("", i+1, d)
	}

	din, _ := portaudio.DefaultInputDevice()
	dout, _ := portaudio.DefaultOutputDevice()

	fmt.Println()
	if din != nil {
		fmt.Println("Default input device:", din.Name)
	}
	if dout != nil {
		fmt.Println("Default output device:", dout.Name)
	}
	return nil
}

func generate(opts Options) error {
	samples, err := audio.Synthesize(opts.Gen, opts.Detector.SampleRate, opts.Tone, opts.Gap, opts.Amplitude)
	if err != nil {
		return err
	}

	f, err := os.Create(opts.Output)
	if err != nil {
		return err
	}

	if err := audio.WriteWAV(f, samples, opts.Detector.SampleRate); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	log.Printf("wrote %q to %s (%d samples at %d Hz)", opts.Gen, opts.Output, len(samples), opts.Detector.SampleRate)
	return nil
}

// pacedSource hands out samples no faster than real time, so a file
// plays back on the console at its recorded speed.
type pacedSource struct {
	src   dtmf.Source
	rate  int
	start time.Time
	read  int64
}

func (p *pacedSource) Read(n int) ([]float64, error) {
	if p.start.IsZero() {
		p.start = time.Now()
	}
	due := p.start.Add(time.Duration(p.read * int64(time.Second) / int64(p.rate)))
	time.Sleep(time.Until(due))

	b, err := p.src.Read(n)
	p.read += int64(len(b))
	return b, err
}

// input opens the capture source and returns it with the clock used to
// timestamp its windows.
func input(opts *Options, cleanup *[]func()) (dtmf.Source, func() time.Time, error) {
	cfg := &opts.Detector

	if !opts.Live() {
		f, err := os.Open(opts.Input)
		if err != nil {
			return nil, nil, err
		}
		*cleanup = append(*cleanup, func() { f.Close() })

		src, err := audio.OpenWAV(f)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", opts.Input, err)
		}

		if src.SampleRate != cfg.SampleRate {
			log.Printf("input: %s is sampled at %d Hz", opts.Input, src.SampleRate)
			cfg.SampleRate = src.SampleRate
		}

		var s dtmf.Source = src
		if opts.Mode == ModeConsole {
			s = &pacedSource{src: src, rate: src.SampleRate}
		}
		return s, dtmf.StreamClock(time.Now(), cfg.Window), nil
	}

	frames := cfg.WindowSize()

	var reader *AudioReader
	var err error

	if opts.Device == "" && opts.Mode == ModeConsole {
		reader = guiSelectAudio(cfg.SampleRate, frames)
		if reader == nil {
			return nil, nil, errors.New("no audio selected")
		}
	} else {
		reader, err = FromAudioStream(opts.Device, cfg.SampleRate, frames)
		if err != nil {
			return nil, nil, err
		}
	}
	*cleanup = append(*cleanup, reader.Close)

	log.Printf("input: %s at %d Hz", reader.Id, reader.SampleRate)
	return reader, time.Now, nil
}

func run(opts Options) error {
	var cleanup []func()
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	src, clock, err := input(&opts, &cleanup)
	if err != nil {
		return err
	}

	det, err := dtmf.NewDetector(opts.Detector)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	var player *AudioWriter
	if opts.Play != "" {
		player, err = NewAudioWriter(opts.Play, opts.Detector.SampleRate, det.WindowSize())
		if err != nil {
			return err
		}
		cleanup = append(cleanup, player.Close)
	}

	var publisher publish.Publisher
	if opts.Broker != "" {
		p, err := publish.NewRealPublisher(opts.Broker, opts.Topic)
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		log.Printf("mqtt: publishing to %s/... on %s, session %s", opts.Topic, opts.Broker, p.Session())
		publisher = p
		cleanup = append(cleanup, func() { p.Close() })
	}

	var commands *command.Decoder
	if opts.Mode == ModeCommand || (opts.Mode == ModeConsole && opts.Commands != "") {
		actions := command.DefaultActions()
		if opts.Commands != "" {
			if actions, err = command.LoadActions(opts.Commands); err != nil {
				return err
			}
		}
		commands = command.NewDecoder(actions, nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("started: mode=%s window=%v (%d samples) min-signal=%v spacing=%v",
		opts.Mode, opts.Detector.Window, det.WindowSize(), opts.Detector.MinSignal, opts.Detector.Spacing)

	if opts.Mode == ModeConsole {
		return runConsole(ctx, opts, src, clock, det, player, &consumer{publisher: publisher, commands: commands})
	}

	c := &consumer{publisher: publisher, commands: commands}

	if commands != nil {
		printCommandBanner(os.Stdout, commands.Actions())
		c.onPending = func(s string) { fmt.Printf("\rCOMMAND ~ %-24s", s) }
		c.onResult = func(r command.Result) { printResult(os.Stdout, r) }
	} else {
		fmt.Println(banner)
		fmt.Print("     (keys) → ")
	}

	if player != nil {
		det.SetObserver(func(samples []float64, _ dtmf.Observation, _ []dtmf.Bin) {
			if err := player.Write(samples); err != nil {
				log.Printf("monitor: %v", err)
			}
		})
	}

	var sink func(dtmf.Keypress)

	if publisher != nil || commands != nil {
		d := newDispatcher(opts.Queue, c.handle)
		d.Start(ctx)
		defer d.Close()

		sink = d.Send
	}

	keys := 0
	err = dtmf.Run(ctx, src, det, clock, func(k dtmf.Keypress) {
		keys++
		log.Printf("key: %v", k)

		if commands == nil {
			fmt.Print(string(k.Key))
		}
		if sink != nil {
			sink(k)
		}
	})

	fmt.Println()
	log.Printf("stopped: %d keys", keys)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runConsole(ctx context.Context, opts Options, src dtmf.Source, clock func() time.Time, det *dtmf.Detector, player *AudioWriter, c *consumer) error {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return err
	}
	defer g.Close()

	title := "Touch-tone decoder"
	if opts.Input != "" {
		title += " - " + opts.Input
	}

	app := &App{
		gui:        g,
		Title:      title,
		SampleRate: opts.Detector.SampleRate,
		Player:     player,
		startTime:  time.Now(),
	}

	g.SetManagerFunc(app.Layout)
	if err := app.SetKeyBinding(); err != nil {
		return err
	}

	det.SetObserver(func(samples []float64, obs dtmf.Observation, _ []dtmf.Bin) {
		app.observe(samples, obs, det.State().Phase)

		if player != nil {
			if err := player.Write(samples); err != nil {
				log.Printf("monitor: %v", err)
			}
		}
	})

	var sink func(dtmf.Keypress)
	if c.publisher != nil || c.commands != nil {
		c.onPending = app.setPending
		c.onResult = func(r command.Result) {
			var sb strings.Builder
			printResult(&sb, r)
			app.addText(sb.String())
		}

		d := newDispatcher(opts.Queue, c.handle)
		d.Start(ctx)
		defer d.Close()

		sink = d.Send
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		err := dtmf.Run(ctx, src, det, clock, func(k dtmf.Keypress) {
			log.Printf("key: %v", k)
			app.keypress(k)
			if sink != nil {
				sink(k)
			}
		})

		switch {
		case errors.Is(err, context.Canceled):
		case err != nil:
			app.addText(fmt.Sprintf("\n\nError: %v\n", err))
		default:
			app.addText("\n\n(end of input)\n")
		}
		done <- err
	}()

	// a signal ends the UI as well
	go func() {
		<-ctx.Done()
		g.Update(func(g *gocui.Gui) error { return gocui.ErrQuit })
	}()

	if err := g.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}

	cancel()
	err = <-done
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printCommandBanner(w io.Writer, actions []command.Action) {
	fmt.Fprintf(w, "\n TOUCH-TONE COMMANDS\n\n")
	fmt.Fprintf(w, "    CODE        COMMAND         DESCRIPTION\n")
	fmt.Fprintf(w, "    ----        -------         -----------\n\n")

	for _, a := range actions {
		desc := a.Text
		if a.URL != "" {
			desc = fmt.Sprintf("%s from %s", a.Field, a.URL)
		}
		fmt.Fprintf(w, "    %c%s%c%s%-16s%s\n", command.Prefix, a.Code, command.Suffix,
			strings.Repeat(" ", max(1, 10-len(a.Code))), a.Name, desc)
	}

	fmt.Fprintln(w)
}

func printResult(w io.Writer, r command.Result) {
	fmt.Fprintf(w, "\n\nExecuted command: %s\n", r.Code)
	if r.Err != nil {
		fmt.Fprintf(w, "    [BAD COMMAND CODE] %v\n\n", r.Err)
		return
	}
	fmt.Fprintf(w, "Command output:\n\n    %s\n\n", r.Output)
}
