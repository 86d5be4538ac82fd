package catalog

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/sentinel/internal/flow"
)

// Definition is the uncompiled form of a catalog, as read from YAML.
type Definition struct {
	Intents map[string][]string      `yaml:"intents"`
	Fields  map[string]FieldPatterns `yaml:"fields"`
	Prompts map[string]string        `yaml:"prompts"`
}

// FieldPatterns holds the trigger and extraction patterns for one field.
type FieldPatterns struct {
	Triggers   []string `yaml:"triggers"`
	Extraction []string `yaml:"extraction"`
}

// Catalog is the compiled, read-only pattern and prompt table.
type Catalog struct {
	intents    map[flow.Intent][]*regexp.Regexp
	triggers   map[flow.Field][]*regexp.Regexp
	extraction map[flow.Field][]*regexp.Regexp
	prompts    map[flow.State]string
}

// DefaultDefinition returns a copy of the built-in tables.
func DefaultDefinition() Definition {
	def := Definition{
		Intents: make(map[string][]string, len(defaultIntents)),
		Fields:  make(map[string]FieldPatterns, len(defaultFields)),
		Prompts: make(map[string]string, len(defaultPrompts)),
	}
	for k, v := range defaultIntents {
		def.Intents[k] = append([]string(nil), v...)
	}
	for k, v := range defaultFields {
		def.Fields[k] = FieldPatterns{
			Triggers:   append([]string(nil), v.Triggers...),
			Extraction: append([]string(nil), v.Extraction...),
		}
	}
	for k, v := range defaultPrompts {
		def.Prompts[k] = v
	}
	return def
}

var defaultCatalog = mustCompile(DefaultDefinition())

// Default returns the built-in catalog.
func Default() *Catalog {
	return defaultCatalog
}

func mustCompile(def Definition) *Catalog {
	c, err := Compile(def)
	if err != nil {
		panic(fmt.Sprintf("catalog: compile default tables: %v", err))
	}
	return c
}

// Load reads a YAML override file and applies it on top of the default
// tables. Each intent, field or prompt present in the file replaces the
// default entry of the same name.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse is Load for an in-memory document.
func Parse(data []byte) (*Catalog, error) {
	var override Definition
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	def := DefaultDefinition()
	for k, v := range override.Intents {
		def.Intents[k] = v
	}
	for k, v := range override.Fields {
		def.Fields[k] = v
	}
	for k, v := range override.Prompts {
		def.Prompts[k] = v
	}
	return Compile(def)
}

// Compile validates def and compiles every pattern case-insensitively.
func Compile(def Definition) (*Catalog, error) {
	c := &Catalog{
		intents:    make(map[flow.Intent][]*regexp.Regexp),
		triggers:   make(map[flow.Field][]*regexp.Regexp),
		extraction: make(map[flow.Field][]*regexp.Regexp),
		prompts:    make(map[flow.State]string),
	}

	for label, patterns := range def.Intents {
		intent, ok := flow.ParseIntent(label)
		if !ok {
			return nil, fmt.Errorf("unknown intent %q", label)
		}
		compiled, err := compileAll(patterns)
		if err != nil {
			return nil, fmt.Errorf("intent %s: %w", label, err)
		}
		c.intents[intent] = compiled
	}

	for name, fp := range def.Fields {
		field, ok := flow.ParseField(name)
		if !ok {
			return nil, fmt.Errorf("unknown field %q", name)
		}
		triggers, err := compileAll(fp.Triggers)
		if err != nil {
			return nil, fmt.Errorf("field %s triggers: %w", name, err)
		}
		extraction, err := compileAll(fp.Extraction)
		if err != nil {
			return nil, fmt.Errorf("field %s extraction: %w", name, err)
		}
		for _, re := range extraction {
			if re.NumSubexp() != 1 {
				return nil, fmt.Errorf("field %s extraction %q: want 1 capture group, got %d", name, re.String(), re.NumSubexp())
			}
		}
		c.triggers[field] = triggers
		c.extraction[field] = extraction
	}

	for name, prompt := range def.Prompts {
		state := flow.State(name)
		if state.Normalize() != state {
			return nil, fmt.Errorf("unknown state %q", name)
		}
		c.prompts[state] = prompt
	}

	return c, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// IntentPatterns returns the ordered patterns for intent.
func (c *Catalog) IntentPatterns(intent flow.Intent) []*regexp.Regexp {
	return c.intents[intent]
}

// TriggerPatterns returns the ordered existence checks for field.
func (c *Catalog) TriggerPatterns(field flow.Field) []*regexp.Regexp {
	return c.triggers[field]
}

// ExtractionPatterns returns the ordered capture patterns for field.
func (c *Catalog) ExtractionPatterns(field flow.Field) []*regexp.Regexp {
	return c.extraction[field]
}

// SystemPrompt returns the instruction preamble for state, falling back to
// the greeting prompt.
func (c *Catalog) SystemPrompt(state flow.State) string {
	if p, ok := c.prompts[state]; ok {
		return p
	}
	return c.prompts[flow.StateGreeting]
}
