package ast

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ChoiceFallback selects runtime behavior when a passage runs out of
// choices (spec §3 Settings).
type ChoiceFallback int

const (
	FallbackImplicitEnd ChoiceFallback = iota // default
	FallbackContinue
	FallbackError
	FallbackNone
)

func (f ChoiceFallback) String() string {
	switch f {
	case FallbackContinue:
		return "continue"
	case FallbackError:
		return "error"
	case FallbackNone:
		return "none"
	default:
		return "implicit_end"
	}
}

func ParseChoiceFallback(s string) (ChoiceFallback, bool) {
	switch s {
	case "implicit_end":
		return FallbackImplicitEnd, true
	case "continue":
		return FallbackContinue, true
	case "error":
		return FallbackError, true
	case "none":
		return FallbackNone, true
	default:
		return FallbackImplicitEnd, false
	}
}

// Settings holds the recognized story-level settings with their defaults
// (spec §3 Settings). It (de)serializes through gopkg.in/yaml.v3, the
// same library the teacher repo uses for Create.ParseYamlInDocstring, so
// that an editor host can persist/round-trip a story's settings as a
// plain YAML document alongside the WLS source.
type Settings struct {
	TunnelLimit     int            `yaml:"tunnel_limit"`
	ChoiceFallback  ChoiceFallback `yaml:"-"`
	RandomSeed      *int64         `yaml:"random_seed,omitempty"`
	StrictMode      bool           `yaml:"strict_mode"`
	StrictHooks     bool           `yaml:"strict_hooks"`
	Debug           bool           `yaml:"debug"`
	EndText         string         `yaml:"end_text"`
	ContinueText    string         `yaml:"continue_text"`
	MaxIncludeDepth int            `yaml:"max_include_depth"`
}

// DefaultSettings returns the schema's documented defaults.
func DefaultSettings() Settings {
	return Settings{
		TunnelLimit:     100,
		ChoiceFallback:  FallbackImplicitEnd,
		StrictMode:      false,
		StrictHooks:     false,
		Debug:           false,
		EndText:         "The End",
		ContinueText:    "Continue",
		MaxIncludeDepth: 50,
	}
}

// RecognizedSettingKeys is the closed set Settings.UnmarshalYAML checks
// keys against; any other key is rejected (spec §4.5 Settings).
var RecognizedSettingKeys = map[string]bool{
	"tunnel_limit":     true,
	"choice_fallback":  true,
	"random_seed":      true,
	"strict_mode":      true,
	"strict_hooks":     true,
	"debug":            true,
	"end_text":         true,
	"continue_text":    true,
	"max_include_depth": true,
}

// settingsYAML mirrors Settings but spells out choice_fallback as its
// string form, since yaml.v3 cannot marshal the ChoiceFallback enum
// directly without a custom (Un)MarshalYAML pair.
type settingsYAML struct {
	TunnelLimit     int     `yaml:"tunnel_limit"`
	ChoiceFallback  string  `yaml:"choice_fallback"`
	RandomSeed      *int64  `yaml:"random_seed,omitempty"`
	StrictMode      bool    `yaml:"strict_mode"`
	StrictHooks     bool    `yaml:"strict_hooks"`
	Debug           bool    `yaml:"debug"`
	EndText         string  `yaml:"end_text"`
	ContinueText    string  `yaml:"continue_text"`
	MaxIncludeDepth int     `yaml:"max_include_depth"`
}

func (s Settings) MarshalYAML() (interface{}, error) {
	return settingsYAML{
		TunnelLimit:     s.TunnelLimit,
		ChoiceFallback:  s.ChoiceFallback.String(),
		RandomSeed:      s.RandomSeed,
		StrictMode:      s.StrictMode,
		StrictHooks:     s.StrictHooks,
		Debug:           s.Debug,
		EndText:         s.EndText,
		ContinueText:    s.ContinueText,
		MaxIncludeDepth: s.MaxIncludeDepth,
	}, nil
}

func (s *Settings) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if key := node.Content[i].Value; !RecognizedSettingKeys[key] {
				return fmt.Errorf("settings: unknown key %q", key)
			}
		}
	}
	var raw settingsYAML
	if err := node.Decode(&raw); err != nil {
		return err
	}
	fallback, ok := ParseChoiceFallback(raw.ChoiceFallback)
	if !ok {
		fallback = FallbackImplicitEnd
	}
	*s = Settings{
		TunnelLimit:     raw.TunnelLimit,
		ChoiceFallback:  fallback,
		RandomSeed:      raw.RandomSeed,
		StrictMode:      raw.StrictMode,
		StrictHooks:     raw.StrictHooks,
		Debug:           raw.Debug,
		EndText:         raw.EndText,
		ContinueText:    raw.ContinueText,
		MaxIncludeDepth: raw.MaxIncludeDepth,
	}
	return nil
}
