package rewrite

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

// Prompts holds the instruction text sent to the model.
type Prompts struct {
	System       string   `yaml:"system"`
	Intro        string   `yaml:"intro"`
	Instructions []string `yaml:"instructions"`
	ToneHint     string   `yaml:"tone_hint"`
	LengthHint   string   `yaml:"length_hint"`
	Closing      string   `yaml:"closing"`
}

// LoadPrompts parses the embedded prompt file.
func LoadPrompts() (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(promptsYAML, &p); err != nil {
		return nil, fmt.Errorf("parse prompts.yaml: %w", err)
	}
	if p.System == "" || p.Intro == "" || p.Closing == "" {
		return nil, fmt.Errorf("prompts.yaml: system, intro and closing are required")
	}
	return &p, nil
}

// UserPrompt embeds content pretty-printed with two-space indentation.
// Tone and length hints are appended to the instruction list when set.
func (p *Prompts) UserPrompt(content json.RawMessage, tone, length string) (string, error) {
	pretty, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return "", fmt.Errorf("format content: %w", err)
	}

	instructions := append([]string{}, p.Instructions...)
	if tone != "" {
		instructions = append(instructions, fmt.Sprintf(p.ToneHint, tone))
	}
	if length != "" {
		instructions = append(instructions, fmt.Sprintf(p.LengthHint, length))
	}

	var b strings.Builder
	b.WriteString(p.Intro)
	b.WriteString("\n\n")
	b.Write(pretty)
	b.WriteString("\n\nInstructions:\n")
	for _, line := range instructions {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(p.Closing)
	return b.String(), nil
}
