package llm

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// RetryMinTokens is the floor for the budget of the truncation retry.
	RetryMinTokens = 2000

	reasoningMinTokens = 4000
	reasoningFactor    = 4
	ReasoningEffortLow = "low"
)

// reasoning models spend budget on hidden reasoning tokens
var reasoningPrefixes = []string{"openai/gpt-5", "openai/o1", "openai/o3", "openai/o4"}

// providers that reject the json_schema response_format
var unstructuredPrefixes = []string{"anthropic/", "perplexity/"}

// Backend is the per-model request shape.
type Backend struct {
	Model            string
	MaxTokens        int
	ReasoningEffort  string
	StructuredOutput bool
}

// BackendProfile overrides the family defaults for one model id.
type BackendProfile struct {
	Model            string `yaml:"model"`
	MaxTokens        int    `yaml:"max_tokens,omitempty"`
	ReasoningEffort  string `yaml:"reasoning_effort,omitempty"`
	StructuredOutput *bool  `yaml:"structured_output,omitempty"`
}

type backendFile struct {
	Models []BackendProfile `yaml:"models"`
}

// LoadBackendProfiles reads a YAML file of the form:
//
//	models:
//	  - model: openai/gpt-5-mini
//	    max_tokens: 6000
//	  - model: mistralai/mistral-small
//	    structured_output: false
func LoadBackendProfiles(path string) ([]BackendProfile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backend profiles: %w", err)
	}
	var f backendFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse backend profiles %s: %w", path, err)
	}
	for i, p := range f.Models {
		if strings.TrimSpace(p.Model) == "" {
			return nil, fmt.Errorf("backend profile %d: model is required", i)
		}
	}
	return f.Models, nil
}

// Backends resolves request shape per model id.
type Backends struct {
	baseTokens int
	profiles   map[string]BackendProfile
	order      []string
}

func NewBackends(baseTokens int, profiles []BackendProfile) *Backends {
	if baseTokens <= 0 {
		baseTokens = 1000
	}
	b := &Backends{baseTokens: baseTokens, profiles: make(map[string]BackendProfile, len(profiles))}
	for _, p := range profiles {
		if _, dup := b.profiles[p.Model]; !dup {
			b.order = append(b.order, p.Model)
		}
		b.profiles[p.Model] = p
	}
	return b
}

// Models lists the model ids that have a profile, in file order.
func (b *Backends) Models() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Resolve applies family rules, then any profile override.
func (b *Backends) Resolve(model string) Backend {
	be := Backend{Model: model, MaxTokens: b.baseTokens, StructuredOutput: true}
	if hasAnyPrefix(model, reasoningPrefixes) {
		be.MaxTokens = max(b.baseTokens*reasoningFactor, reasoningMinTokens)
		be.ReasoningEffort = ReasoningEffortLow
	}
	if hasAnyPrefix(model, unstructuredPrefixes) {
		be.StructuredOutput = false
	}
	if p, ok := b.profiles[model]; ok {
		if p.MaxTokens > 0 {
			be.MaxTokens = p.MaxTokens
		}
		if p.ReasoningEffort != "" {
			be.ReasoningEffort = p.ReasoningEffort
		}
		if p.StructuredOutput != nil {
			be.StructuredOutput = *p.StructuredOutput
		}
	}
	return be
}

// RetryBudget is the token budget for the single truncation retry.
func RetryBudget(current int) int {
	return max(current*2, RetryMinTokens)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	s = strings.ToLower(s)
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
