package command

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"

	"touchtone/dtmf"
)

// LoadActions reads a command table. Each section is a code:
//
//	[1234]
//	name = hello
//	text = Hello, world!
//
//	[1111]
//	name  = joke
//	url   = https://v2.jokeapi.dev/joke/Programming?type=single
//	field = joke
//
// source is anything ini.Load accepts: a file name, []byte or io.Reader.
func LoadActions(source any) ([]Action, error) {
	cfg, err := ini.Load(source)
	if err != nil {
		return nil, fmt.Errorf("load commands: %w", err)
	}

	var actions []Action

	for _, s := range cfg.Sections() {
		if s.Name() == ini.DefaultSection {
			continue
		}

		a := Action{
			Code:  s.Name(),
			Name:  s.Key("name").String(),
			Text:  s.Key("text").String(),
			URL:   s.Key("url").String(),
			Field: s.Key("field").String(),
		}

		if a.Name == "" {
			a.Name = a.Code
		}

		if err := a.validate(); err != nil {
			return nil, fmt.Errorf("load commands: [%s]: %w", s.Name(), err)
		}

		actions = append(actions, a)
	}

	return actions, nil
}

func (a Action) validate() error {
	if a.Code == "" {
		return fmt.Errorf("empty code")
	}

	for _, k := range a.Code {
		if k == Suffix || !strings.ContainsRune(dtmf.Keys, k) {
			return fmt.Errorf("code has a key that cannot be dialed: %q", k)
		}
	}

	switch {
	case a.URL == "" && a.Text == "":
		return fmt.Errorf("needs text or url")
	case a.URL != "" && a.Field == "":
		return fmt.Errorf("url without field")
	}

	return nil
}
