package main

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-audio/audio"
	"github.com/gordonklaus/portaudio"
)

type AudioType int

const (
	AudioInOut AudioType = iota
	AudioIn
	AudioOut
)

func ListAudioDevices(t AudioType) ([]string, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	var list []string

	for _, d := range devices {
		v := d.Name

		switch t {
		case AudioInOut:
			if d.MaxInputChannels > 0 {
				v += fmt.Sprintf(" (in:%v)", d.MaxInputChannels)
			}
			if d.MaxOutputChannels > 0 {
				v += fmt.Sprintf(" (out:%v)", d.MaxOutputChannels)
			}

		case AudioIn:
			if d.MaxInputChannels == 0 { // output
				continue
			}

		case AudioOut:
			if d.MaxOutputChannels == 0 { // input
				continue
			}
		}

		list = append(list, v)
	}

	return list, nil
}

// findDevice looks up dev as a 1-based index into the device list, then
// as a name prefix. An empty dev selects the default device of type t.
func findDevice(dev string, t AudioType) (*portaudio.DeviceInfo, error) {
	if dev == "" {
		if t == AudioOut {
			return portaudio.DefaultOutputDevice()
		}
		return portaudio.DefaultInputDevice()
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	i, err := strconv.Atoi(dev)
	if err == nil && i > 0 && i <= len(devices) {
		return devices[i-1], nil
	}

	for _, d := range devices {
		if strings.HasPrefix(d.Name, dev) {
			return d, nil
		}
	}

	return nil, fmt.Errorf("device not found: %s", dev)
}

// AudioWriter plays windows on an output device, for monitoring the input.
type AudioWriter struct {
	Stream       *portaudio.Stream
	StreamBuffer audio.Float32Buffer
	Volume       float32

	mu   sync.Mutex
	mute bool
}

func NewAudioWriter(dev string, sampleRate, frames int) (*AudioWriter, error) {
	info, err := findDevice(dev, AudioOut)
	if err != nil {
		return nil, err
	}

	const numChannels = 1

	p := portaudio.HighLatencyParameters(nil, info)
	p.Input.Channels = 0
	p.Output.Channels = numChannels
	p.SampleRate = float64(sampleRate)
	p.FramesPerBuffer = frames

	buf32 := audio.Float32Buffer{Format: &audio.Format{NumChannels: numChannels, SampleRate: sampleRate}, Data: make([]float32, frames)}

	stream, err := portaudio.OpenStream(p, buf32.Data)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start output: %w", err)
	}

	return &AudioWriter{
		Stream:       stream,
		StreamBuffer: buf32,
		Volume:       1.0,
	}, nil
}

func (w *AudioWriter) Close() {
	if w.Stream != nil {
		w.Stream.Stop()
		w.Stream.Close()
	}
}

func (w *AudioWriter) Mute(m bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mute = m
}

func (w *AudioWriter) Muted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mute
}

func (w *AudioWriter) GetVolume() float32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Volume
}

// SetVolume changes the volume by delta, within 0 and 2.
func (w *AudioWriter) SetVolume(delta float32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Volume = max(0, min(2, w.Volume+delta))
}

// Write plays one window. Shorter windows are padded with silence.
func (w *AudioWriter) Write(samples []float64) error {
	w.mu.Lock()
	mute, volume := w.mute, w.Volume
	w.mu.Unlock()

	fb := audio.FloatBuffer{Format: w.StreamBuffer.Format, Data: samples}
	buf32 := fb.AsFloat32Buffer()

	for i := range w.StreamBuffer.Data {
		var v float32
		if !mute && i < len(buf32.Data) {
			v = buf32.Data[i] * volume
		}
		w.StreamBuffer.Data[i] = v
	}

	return w.Stream.Write()
}

// AudioReader captures mono audio from an input device. It implements
// dtmf.Source.
type AudioReader struct {
	Id string // device name

	Stream       *portaudio.Stream
	StreamBuffer audio.Float32Buffer

	SampleRate int

	mu      sync.Mutex
	pending []float64
}

func FromAudioStream(dev string, sampleRate, frames int) (*AudioReader, error) {
	info, err := findDevice(dev, AudioIn)
	if err != nil {
		return nil, err
	}

	const numChannels = 1

	p := portaudio.HighLatencyParameters(info, nil)
	p.Input.Channels = numChannels
	p.Output.Channels = 0
	p.SampleRate = float64(sampleRate)
	p.FramesPerBuffer = frames

	buf32 := audio.Float32Buffer{Format: &audio.Format{NumChannels: numChannels, SampleRate: sampleRate}, Data: make([]float32, frames)}

	stream, err := portaudio.OpenStream(p, buf32.Data)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start input: %w", err)
	}

	return &AudioReader{
		Id:           info.Name,
		Stream:       stream,
		StreamBuffer: buf32,
		SampleRate:   sampleRate,
	}, nil
}

// Read blocks until n samples have been captured. Samples are passed on
// unscaled so the energy thresholds keep their meaning.
func (r *AudioReader) Read(n int) ([]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Stream == nil {
		return nil, fmt.Errorf("input closed")
	}

	for len(r.pending) < n {
		if err := r.Stream.Read(); err != nil {
			return nil, err
		}

		fb := r.StreamBuffer.AsFloatBuffer()
		r.pending = append(r.pending, fb.Data...)
	}

	out := make([]float64, n)
	copy(out, r.pending)
	r.pending = r.pending[n:]
	return out, nil
}

func (r *AudioReader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Stream != nil {
		r.Stream.Stop()
		r.Stream.Close()
		r.Stream = nil
	}
}
