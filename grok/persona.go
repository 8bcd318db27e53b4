// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package grok

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/danielhkuo/lumen/models"
)

// Personas maps each conversation kind to its system prompt.
type Personas struct {
	Chat      string `toml:"chat"`
	Voice     string `toml:"voice"`
	Imagine   string `toml:"imagine"`
	Grokpedia string `toml:"grokpedia"`
}

// DefaultPersonas returns the compiled-in system prompts.
func DefaultPersonas() Personas {
	return Personas{
		Chat: "You are Lumen, a helpful assistant. Be direct and concise. " +
			"Ground answers in the conversation; say so when you are unsure.",
		Voice: "You are Lumen in voice mode. Reply in short spoken-style sentences " +
			"suitable for text-to-speech. No markdown, no lists, no code blocks.",
		Imagine: "You turn short user prompts into vivid, detailed image descriptions. " +
			"Reply with the description only.",
		Grokpedia: "You write neutral encyclopedia articles. Open with a one-sentence " +
			"definition, then cover the topic in short factual paragraphs. " +
			"No first person, no opinions.",
	}
}

// LoadPersonas reads prompt overrides from a TOML file. Keys not present
// in the file keep their defaults. An empty path returns the defaults.
func LoadPersonas(path string) (Personas, error) {
	p := DefaultPersonas()
	if path == "" {
		return p, nil
	}

	if _, err := toml.DecodeFile(path, &p); err != nil {
		return Personas{}, fmt.Errorf("failed to load persona file %s: %w", path, err)
	}
	return p, nil
}

// ForKind returns the system prompt for a conversation kind.
// Unknown kinds fall back to the chat persona.
func (p Personas) ForKind(kind string) string {
	switch kind {
	case models.KindVoice:
		return p.Voice
	case models.KindImagine:
		return p.Imagine
	case models.KindGrokpedia:
		return p.Grokpedia
	default:
		return p.Chat
	}
}
