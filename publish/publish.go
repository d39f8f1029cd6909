// Package publish sends decoded keys and command results to MQTT.
package publish

import (
	"encoding/json"
	"time"

	"touchtone/command"
	"touchtone/dtmf"
)

// DefaultTopic is the topic prefix; events go to <prefix>/keys and
// <prefix>/commands.
const DefaultTopic = "touchtone"

// Publisher publishes decoder events.
type Publisher interface {
	// PublishKeypress sends a decoded key.
	PublishKeypress(k dtmf.Keypress) error

	// PublishCommand sends the result of an executed command.
	PublishCommand(r command.Result) error

	// Close disconnects from the broker.
	Close() error
}

func KeysTopic(prefix string) string     { return prefix + "/keys" }
func CommandsTopic(prefix string) string { return prefix + "/commands" }

// KeypressPayload is the MQTT message for a key.
type KeypressPayload struct {
	Keypress KeypressInner `json:"keypress"`
}

type KeypressInner struct {
	Timestamp  string  `json:"timestamp"`
	Session    string  `json:"session"`
	Key        string  `json:"key"`
	FLow       float64 `json:"f_low"`
	EnergyLow  float64 `json:"energy_low"`
	FHigh      float64 `json:"f_high"`
	EnergyHigh float64 `json:"energy_high"`
}

// FormatKeypress creates the JSON payload for a key.
func FormatKeypress(session string, k dtmf.Keypress) ([]byte, error) {
	return json.Marshal(KeypressPayload{
		Keypress: KeypressInner{
			Timestamp:  k.Time.UTC().Format(time.RFC3339Nano),
			Session:    session,
			Key:        string(k.Key),
			FLow:       k.Pair.Low.Frequency,
			EnergyLow:  k.Pair.Low.Power,
			FHigh:      k.Pair.High.Frequency,
			EnergyHigh: k.Pair.High.Power,
		},
	})
}

// CommandPayload is the MQTT message for a command result.
type CommandPayload struct {
	Command CommandInner `json:"command"`
}

type CommandInner struct {
	Timestamp string `json:"timestamp"`
	Session   string `json:"session"`
	Code      string `json:"code"`
	Name      string `json:"name,omitempty"`
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
}

// FormatCommand creates the JSON payload for a command result.
func FormatCommand(session string, r command.Result) ([]byte, error) {
	inner := CommandInner{
		Timestamp: r.Time.UTC().Format(time.RFC3339Nano),
		Session:   session,
		Code:      r.Code,
		Name:      r.Name,
		Output:    r.Output,
	}
	if r.Err != nil {
		inner.Error = r.Err.Error()
	}
	return json.Marshal(CommandPayload{Command: inner})
}
