package main

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/j-04/gocui-component"
	"github.com/jroimartin/gocui"

	"touchtone/dtmf"
	"touchtone/spectrum"
)

// displayed band of the spectrum line
const (
	spectrumMin = 600.0
	spectrumMax = 1700.0
)

// redraws triggered by the capture loop are limited to this rate
const refreshInterval = 100 * time.Millisecond

type snapshot struct {
	obs      dtmf.Observation
	phase    dtmf.Phase
	spectrum [spectrum.Bands]rune
	lastKey  rune
	keys     int
	pending  string
}

type App struct {
	gui     *gocui.Gui
	vinfo   *gocui.View
	vkeypad *gocui.View
	vmain   *gocui.View
	vcmd    *gocui.View

	Title      string
	SampleRate int
	Player     *AudioWriter

	startTime time.Time

	mu          sync.Mutex
	snap        snapshot
	lastRefresh time.Time
}

func (app *App) Layout(g *gocui.Gui) (err error) {
	maxX, maxY := g.Size()

	app.vinfo, err = g.SetView("info", 0, 0, maxX-1, 2)
	if err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}

		app.vinfo.Title = app.Title
	}

	app.vmain, err = g.SetView("main", 0, 3, maxX-21, maxY-5)
	if err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}

		app.vmain.Title = "Decoded"
		app.vmain.Wrap = true
		app.vmain.Autoscroll = true
	}

	app.vkeypad, err = g.SetView("keypad", maxX-20, 3, maxX-1, 9)
	if err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}

		app.vkeypad.Title = "Keypad"
	}

	app.vcmd, err = g.SetView("cmdline", 0, maxY-4, maxX-1, maxY-1)
	if err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}

		app.vcmd.Title = "Available commands"
		fmt.Fprintf(app.vcmd, "^C/^Q: quit  c: clear")

		if app.Player != nil {
			fmt.Fprintf(app.vcmd, "  m: toggle audio/mute  V: +volume  v: -volume")
		}
	}

	app.mu.Lock()
	snap := app.snap
	app.mu.Unlock()

	d := time.Since(app.startTime)

	app.vinfo.Clear()
	app.vinfo.SetOrigin(0, 0)

	p := snap.obs.Pair
	fmt.Fprintf(app.vinfo,
		"[%v] f_low=%6.1fHz e_low=%8.1f  f_high=%6.1fHz e_high=%8.1f  %-12v keys:%d",
		string(snap.spectrum[:]),
		p.Low.Frequency, p.Low.Power,
		p.High.Frequency, p.High.Power,
		snap.phase,
		snap.keys,
	)

	if snap.pending != "" {
		fmt.Fprintf(app.vinfo, "  COMMAND ~ %s", snap.pending)
	}

	fmt.Fprintf(app.vinfo, "   %8v", d.Truncate(time.Second).String())

	if app.Player != nil {
		if app.Player.Muted() {
			fmt.Fprintf(app.vinfo, "  muted")
		} else {
			fmt.Fprintf(app.vinfo, "  vol: %d", int(app.Player.GetVolume()*10))
		}
	}

	app.vkeypad.Clear()
	fmt.Fprint(app.vkeypad, renderKeypad(snap.lastKey, snap.obs.Matched))

	return nil
}

// renderKeypad draws the 4x4 keypad with the current key in brackets.
func renderKeypad(key rune, active bool) string {
	var sb strings.Builder

	for i, k := range dtmf.Keys {
		if active && k == key {
			fmt.Fprintf(&sb, "[%c]", k)
		} else {
			fmt.Fprintf(&sb, " %c ", k)
		}
		if i%4 == 3 {
			sb.WriteByte('\n')
		} else {
			sb.WriteByte(' ')
		}
	}

	return sb.String()
}

func (app *App) SetKeyBinding() error {

	//
	// quit application: CtrlC / CtrlQ
	//

	quit := func(g *gocui.Gui, v *gocui.View) error {
		return gocui.ErrQuit
	}

	if err := app.gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		return err
	}
	if err := app.gui.SetKeybinding("", gocui.KeyCtrlQ, gocui.ModNone, quit); err != nil {
		return err
	}

	//
	// clear screen: c
	//

	clearscreen := func(g *gocui.Gui, v *gocui.View) error {
		app.vmain.Clear()
		return nil
	}

	if err := app.gui.SetKeybinding("", 'c', gocui.ModNone, clearscreen); err != nil {
		return err
	}

	if app.Player != nil {

		//
		// toggle mute: m
		//

		toggleMute := func(g *gocui.Gui, v *gocui.View) error {
			app.Player.Mute(!app.Player.Muted())
			return nil
		}

		if err := app.gui.SetKeybinding("", 'm', gocui.ModNone, toggleMute); err != nil {
			return err
		}

		//
		// volume up/down: V / v
		//

		volumeUp := func(g *gocui.Gui, v *gocui.View) error {
			app.Player.SetVolume(0.1)
			return nil
		}

		volumeDown := func(g *gocui.Gui, v *gocui.View) error {
			app.Player.SetVolume(-0.1)
			return nil
		}

		if err := app.gui.SetKeybinding("", 'V', gocui.ModNone, volumeUp); err != nil {
			return err
		}

		if err := app.gui.SetKeybinding("", 'v', gocui.ModNone, volumeDown); err != nil {
			return err
		}
	}

	return nil
}

// observe records the latest window for display. It runs on the capture
// goroutine.
func (app *App) observe(samples []float64, obs dtmf.Observation, phase dtmf.Phase) {
	line := spectrum.Compute(samples, app.SampleRate).Spectrogram(spectrumMin, spectrumMax, true)

	app.mu.Lock()
	app.snap.obs = obs
	app.snap.phase = phase
	app.snap.spectrum = line
	if obs.Matched {
		app.snap.lastKey = obs.Key
	}
	refresh := time.Since(app.lastRefresh) >= refreshInterval
	if refresh {
		app.lastRefresh = time.Now()
	}
	app.mu.Unlock()

	if refresh {
		app.refresh()
	}
}

func (app *App) keypress(k dtmf.Keypress) {
	app.mu.Lock()
	app.snap.keys++
	app.mu.Unlock()

	app.addText(string(k.Key))
}

func (app *App) setPending(s string) {
	app.mu.Lock()
	app.snap.pending = s
	app.mu.Unlock()
	app.refresh()
}

func (app *App) refresh() {
	if app.gui == nil {
		return
	}

	// the layout manager redraws everything
	app.gui.Update(func(g *gocui.Gui) error { return nil })
}

func (app *App) addText(s string) {
	if app.gui == nil {
		fmt.Print(s)
		return
	}

	app.gui.Update(func(g *gocui.Gui) error {
		fmt.Fprint(app.vmain, s)
		return nil
	})
}

var (
	FormSelect = fmt.Errorf("form-selected")
	FormCancel = fmt.Errorf("form-cancel")
)

// guiSelectAudio shows a form to pick the input device. It returns nil
// when cancelled.
func guiSelectAudio(sampleRate, frames int) (reader *AudioReader) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		log.Panicln(err)
	}
	defer g.Close()

	list, err := ListAudioDevices(AudioIn)
	if err != nil {
		log.Fatal(err)
	}

	form := component.NewForm(g, "Select input device", 8, len(list), 0, 0)
	sel := form.AddSelect("Device:", 8, 40).AddOptions(list...)

	form.AddButton("Select", func(g *gocui.Gui, v *gocui.View) error {
		reader, err = FromAudioStream(sel.GetSelected(), sampleRate, frames)
		if err != nil {
			log.Fatal(err)
		}

		form.Close(g, v)
		return FormSelect
	})

	form.AddButton("Cancel", func(g *gocui.Gui, v *gocui.View) error {
		form.Close(g, v)
		return FormCancel
	})

	form.Draw()

	if err := g.MainLoop(); err != FormSelect && err != FormCancel {
		log.Panicln(err)
	}

	return
}
