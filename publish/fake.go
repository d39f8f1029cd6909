package publish

import (
	"sync"

	"touchtone/command"
	"touchtone/dtmf"
)

// FakePublisher records published events for test assertions. Unlike a
// broker connection it never blocks.
type FakePublisher struct {
	mu sync.Mutex

	Session string

	Keys     []dtmf.Keypress
	Commands []command.Result

	// Payloads by topic suffix ("keys" or "commands").
	Payloads map[string][][]byte

	// PublishError, if set, is returned by both publish calls.
	PublishError error

	Closed bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{
		Session:  "test-session",
		Payloads: make(map[string][][]byte),
	}
}

func (f *FakePublisher) PublishKeypress(k dtmf.Keypress) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatKeypress(f.Session, k)
	if err != nil {
		return err
	}
	f.Keys = append(f.Keys, k)
	f.Payloads["keys"] = append(f.Payloads["keys"], payload)
	return nil
}

func (f *FakePublisher) PublishCommand(r command.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatCommand(f.Session, r)
	if err != nil {
		return err
	}
	f.Commands = append(f.Commands, r)
	f.Payloads["commands"] = append(f.Payloads["commands"], payload)
	return nil
}

func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Count returns the number of recorded keys and commands.
func (f *FakePublisher) Count() (keys, commands int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Keys), len(f.Commands)
}
