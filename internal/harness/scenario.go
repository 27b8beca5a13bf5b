package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/compiler"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// DefaultNow is the frozen clock of scenarios that do not set one.
var DefaultNow = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

// Scenario is one compilation test case.
type Scenario struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Now         string      `yaml:"now,omitempty"`
	Env         EnvSpec     `yaml:"env,omitempty"`
	Request     yaml.Node   `yaml:"request"`
	Assertions  []Assertion `yaml:"assertions"`
}

// EnvSpec is the resolved context a scenario compiles under.
type EnvSpec struct {
	VisibleCustomFields []string           `yaml:"visible_custom_fields,omitempty"`
	ArrayCustomFields   []string           `yaml:"array_custom_fields,omitempty"`
	Bins                map[string]BinSpec `yaml:"bins,omitempty"`
	MaxPageSize         int                `yaml:"max_page_size,omitempty"`
	DefaultPageSize     int                `yaml:"default_page_size,omitempty"`
}

// BinSpec stands in for a manual bucket probe result.
type BinSpec struct {
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Count int     `yaml:"count"`
}

// Assertion is a single expectation about the compiled plan.
type Assertion struct {
	Type       string   `yaml:"type"`
	Stages     []string `yaml:"stages,omitempty"`
	Stage      string   `yaml:"stage,omitempty"`
	Keys       []string `yaml:"keys,omitempty"`
	Skip       *int64   `yaml:"skip,omitempty"`
	Limit      *int64   `yaml:"limit,omitempty"`
	Collection string   `yaml:"collection,omitempty"`
	Slots      []string `yaml:"slots,omitempty"`
	Code       string   `yaml:"code,omitempty"`
}

// Assertion type constants
const (
	AssertStageOrder    = "stage_order"
	AssertContainsStage = "contains_stage"
	AssertSortKeys      = "sort_keys"
	AssertPagination    = "pagination"
	AssertCollection    = "collection"
	AssertPendingProbes = "pending_probes"
	AssertErrorCode     = "error_code"
)

var knownAssertions = map[string]bool{
	AssertStageOrder:    true,
	AssertContainsStage: true,
	AssertSortKeys:      true,
	AssertPagination:    true,
	AssertCollection:    true,
	AssertPendingProbes: true,
	AssertErrorCode:     true,
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown keys are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Request.Kind == 0 {
		return fmt.Errorf("request is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.Now != "" {
		if _, err := report.ParseInstant(s.Now); err != nil {
			return fmt.Errorf("now: %w", err)
		}
	}
	for i, a := range s.Assertions {
		if !knownAssertions[a.Type] {
			return fmt.Errorf("assertions[%d]: unknown type %q", i, a.Type)
		}
	}
	return nil
}

// DecodeRequest decodes the scenario's request document with the same
// rules the CLI applies to request files.
func (s *Scenario) DecodeRequest() (*report.ReportQueryRequest, error) {
	data, err := yaml.Marshal(&s.Request)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return report.DecodeYAML(data)
}

// Clock returns the scenario's frozen instant.
func (s *Scenario) Clock() time.Time {
	if s.Now == "" {
		return DefaultNow
	}
	// Already checked by validateScenario.
	t, _ := report.ParseInstant(s.Now)
	return t
}

// CompilerEnv builds the compiler environment the scenario describes.
func (e EnvSpec) CompilerEnv(now func() time.Time) compiler.Env {
	env := compiler.Env{
		Now:                 now,
		VisibleCustomFields: e.VisibleCustomFields,
		MaxPageSize:         e.MaxPageSize,
		DefaultPageSize:     e.DefaultPageSize,
	}
	if len(e.ArrayCustomFields) > 0 {
		env.ArrayCustomFields = make(map[string]bool, len(e.ArrayCustomFields))
		for _, name := range e.ArrayCustomFields {
			env.ArrayCustomFields[name] = true
		}
	}
	if len(e.Bins) > 0 {
		env.Bins = make(map[string]compiler.Bins, len(e.Bins))
		for slot, b := range e.Bins {
			env.Bins[slot] = compiler.ManualBins(b.Min, b.Max, b.Count)
		}
	}
	return env
}
