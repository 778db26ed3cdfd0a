package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is one consistency scenario.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Dna is the directory of the CUE DNA definition, relative to the
	// scenario file.
	Dna string `yaml:"dna"`

	// Network attaches a loopback network so Publish actions are sent.
	Network bool `yaml:"network,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one scenario step. Exactly one action field is set.
type Step struct {
	Commit                  *CommitStep `yaml:"commit,omitempty"`
	Publish                 string      `yaml:"publish,omitempty"`
	Hold                    string      `yaml:"hold,omitempty"`
	UpdateEntry             *CrudStep   `yaml:"update_entry,omitempty"`
	RemoveEntry             *CrudStep   `yaml:"remove_entry,omitempty"`
	AddLink                 string      `yaml:"add_link,omitempty"`
	RemoveLink              string      `yaml:"remove_link,omitempty"`
	AddPendingValidation    string      `yaml:"add_pending_validation,omitempty"`
	RemovePendingValidation string      `yaml:"remove_pending_validation,omitempty"`
	Call                    *CallStep   `yaml:"call,omitempty"`

	// Expect lists the kinds of the signals this step emits, in order. A
	// nil Expect is not checked; an empty list asserts no signal.
	Expect []string `yaml:"expect,omitempty"`
}

// CommitStep commits an entry and names its address As.
//
// Type is an app entry type or one of the system types %deletion,
// %link_add and %link_remove. Aliases in the other fields refer to
// earlier commits.
type CommitStep struct {
	As       string `yaml:"as"`
	Type     string `yaml:"type"`
	Value    any    `yaml:"value,omitempty"`
	CrudLink string `yaml:"crud_link,omitempty"`

	// %deletion
	Deletes string `yaml:"deletes,omitempty"`

	// %link_add and %link_remove
	Base     string   `yaml:"base,omitempty"`
	Target   string   `yaml:"target,omitempty"`
	LinkType string   `yaml:"link_type,omitempty"`
	Tag      string   `yaml:"tag,omitempty"`
	Removes  []string `yaml:"removes,omitempty"`
}

// CrudStep names the entry replaced and the entry replacing it.
type CrudStep struct {
	Old string `yaml:"old"`
	New string `yaml:"new"`
}

// CallStep makes a zome call through the bridge.
type CallStep struct {
	As       string `yaml:"as"`
	Zome     string `yaml:"zome"`
	Function string `yaml:"function"`
	Params   any    `yaml:"params,omitempty"`

	// Signer is "agent" (default) or "stranger", a second key with no
	// grant.
	Signer string `yaml:"signer,omitempty"`

	// Error is the expected CallError code; empty means success.
	Error string `yaml:"error,omitempty"`
}

// Assertion checks the whole run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Kinds is the expected relative order (signal_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Kind and Count are used by signal_count.
	Kind  string `yaml:"kind,omitempty"`
	Count int    `yaml:"count"`

	// Entry is the alias checked by held.
	Entry string `yaml:"entry,omitempty"`
}

// Assertion types.
const (
	AssertSignalOrder        = "signal_order"
	AssertSignalCount        = "signal_count"
	AssertChainLength        = "chain_length"
	AssertHeld               = "held"
	AssertPendingValidations = "pending_validations"
	AssertMessagesSent       = "messages_sent"
)

// LoadScenario reads a scenario file. Unknown fields are an error, and
// the DNA path is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Dna != "" && !filepath.IsAbs(scenario.Dna) {
		scenario.Dna = filepath.Join(filepath.Dir(path), scenario.Dna)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and that every step names
// exactly one action.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if s.Dna == "" {
		return errors.New("dna is required")
	}
	if len(s.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if n := step.actionCount(); n != 1 {
			return fmt.Errorf("step %d: must name exactly one action, found %d", i, n)
		}
		if step.Commit != nil && step.Commit.As == "" {
			return fmt.Errorf("step %d: commit needs an alias (as)", i)
		}
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertSignalOrder, AssertSignalCount, AssertChainLength, AssertHeld,
			AssertPendingValidations, AssertMessagesSent:
		default:
			return fmt.Errorf("assertion %d: unknown type %q", i, a.Type)
		}
	}
	return nil
}

func (s Step) actionCount() int {
	n := 0
	for _, set := range []bool{
		s.Commit != nil,
		s.Publish != "",
		s.Hold != "",
		s.UpdateEntry != nil,
		s.RemoveEntry != nil,
		s.AddLink != "",
		s.RemoveLink != "",
		s.AddPendingValidation != "",
		s.RemovePendingValidation != "",
		s.Call != nil,
	} {
		if set {
			n++
		}
	}
	return n
}
