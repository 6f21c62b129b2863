package manifest

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/provgraph/pkg/errors"
)

// AssetType classifies an asset. Supporting types (code, models, configs)
// are laid out beside the computation they feed rather than on the timeline.
type AssetType string

const (
	TypeData       AssetType = "Data"
	TypeDataset    AssetType = "Dataset"
	TypeCode       AssetType = "Code"
	TypeModel      AssetType = "Model"
	TypeConfig     AssetType = "Config"
	TypeParameters AssetType = "Parameters"
	TypePrompt     AssetType = "Prompt"
	TypeImage      AssetType = "Image"
	TypeText       AssetType = "Text"
	TypeOther      AssetType = "Other"
)

// Relationship describes how a related workflow connects to its parent.
type Relationship string

const (
	RelMain     Relationship = "main"
	RelAncestor Relationship = "ancestor"
	RelChild    Relationship = "child"
	RelReplay   Relationship = "replay"
)

// Manifest is one provenance workflow.
type Manifest struct {
	ID           string        `json:"id" toml:"id"`
	Title        string        `json:"title,omitempty" toml:"title"`
	Steps        []Step        `json:"steps,omitempty" toml:"steps"`
	Assets       []Asset       `json:"assets,omitempty" toml:"assets"`
	Computations []Computation `json:"computations,omitempty" toml:"computations"`
	Attestations []Attestation `json:"attestations,omitempty" toml:"attestations"`
	Related      []Reference   `json:"related,omitempty" toml:"related"`
}

// Step is a named phase band of the workflow.
type Step struct {
	ID    string `json:"id" toml:"id"`
	Label string `json:"label,omitempty" toml:"label"`
	Phase string `json:"phase" toml:"phase"`
}

// Asset is a piece of data, code or model.
//
// Group optionally pins the asset to a computation's node group; when empty
// the group is derived from the computations that produce or consume it.
type Asset struct {
	ID    string    `json:"id" toml:"id"`
	Label string    `json:"label,omitempty" toml:"label"`
	Title string    `json:"title,omitempty" toml:"title"`
	Type  AssetType `json:"type,omitempty" toml:"type"`
	Group string    `json:"group,omitempty" toml:"group"`
	Step  string    `json:"step,omitempty" toml:"step"`
	URI   string    `json:"uri,omitempty" toml:"uri"`
	Icon  string    `json:"icon,omitempty" toml:"icon"`
}

// Computation transforms input assets into output assets.
type Computation struct {
	ID      string   `json:"id" toml:"id"`
	Label   string   `json:"label,omitempty" toml:"label"`
	Title   string   `json:"title,omitempty" toml:"title"`
	Group   string   `json:"group,omitempty" toml:"group"`
	Step    string   `json:"step,omitempty" toml:"step"`
	Inputs  []string `json:"inputs,omitempty" toml:"inputs"`
	Outputs []string `json:"outputs,omitempty" toml:"outputs"`
	Icon    string   `json:"icon,omitempty" toml:"icon"`
}

// Attestation verifies one or more assets or computations.
type Attestation struct {
	ID       string   `json:"id" toml:"id"`
	Label    string   `json:"label,omitempty" toml:"label"`
	Issuer   string   `json:"issuer,omitempty" toml:"issuer"`
	Verifies []string `json:"verifies" toml:"verifies"`
}

// Reference points at a related workflow manifest.
type Reference struct {
	Workflow     string       `json:"workflow" toml:"workflow"`
	Source       string       `json:"source" toml:"source"`
	Relationship Relationship `json:"relationship" toml:"relationship"`
	BranchPoint  string       `json:"branch_point,omitempty" toml:"branch_point"`
	Parent       string       `json:"parent,omitempty" toml:"parent"`
}

// GroupKey returns the node group of the computation.
func (c Computation) GroupKey() string {
	if c.Group != "" {
		return c.Group
	}
	return c.ID
}

// DisplayLabel returns Label, falling back to the id.
func (a Asset) DisplayLabel() string {
	if a.Label != "" {
		return a.Label
	}
	return a.ID
}

// DisplayLabel returns Label, falling back to the id.
func (c Computation) DisplayLabel() string {
	if c.Label != "" {
		return c.Label
	}
	return c.ID
}

// DisplayLabel returns Label, falling back to the id.
func (a Attestation) DisplayLabel() string {
	if a.Label != "" {
		return a.Label
	}
	return a.ID
}

// Format is a manifest serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatFor picks the format from a file name or URL; JSON is the default.
func FormatFor(name string) Format {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if strings.EqualFold(filepath.Ext(name), ".toml") {
		return FormatTOML
	}
	return FormatJSON
}

// Decode parses data in the given format and validates identifiers.
func Decode(data []byte, format Format) (*Manifest, error) {
	var m Manifest
	switch format {
	case FormatTOML:
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode toml manifest")
		}
	case FormatJSON, "":
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode json manifest")
		}
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported manifest format %q", format)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ReadFile reads and decodes a manifest, choosing the format by extension.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "manifest %s", path)
	}
	if err != nil {
		return nil, err
	}
	return Decode(data, FormatFor(path))
}

// Validate checks identifiers: every id must be well formed and unique
// across assets, computations and attestations. Dangling references are
// not errors here; layout skips them.
func (m *Manifest) Validate() error {
	if err := errors.ValidateID("manifest", m.ID); err != nil {
		return err
	}
	seen := make(map[string]string)
	check := func(kind, id string) error {
		if err := errors.ValidateID(kind, id); err != nil {
			return err
		}
		if prev, ok := seen[id]; ok {
			return errors.New(errors.ErrCodeInvalidManifest, "duplicate id %q (%s and %s)", id, prev, kind)
		}
		seen[id] = kind
		return nil
	}

	steps := make(map[string]bool, len(m.Steps))
	for _, s := range m.Steps {
		if err := errors.ValidateID("step", s.ID); err != nil {
			return err
		}
		if steps[s.ID] {
			return errors.New(errors.ErrCodeInvalidManifest, "duplicate step %q", s.ID)
		}
		steps[s.ID] = true
	}
	for _, a := range m.Assets {
		if err := check("asset", a.ID); err != nil {
			return err
		}
	}
	for _, c := range m.Computations {
		if err := check("computation", c.ID); err != nil {
			return err
		}
	}
	for _, a := range m.Attestations {
		if err := check("attestation", a.ID); err != nil {
			return err
		}
	}
	for _, r := range m.Related {
		if err := errors.ValidateID("workflow", r.Workflow); err != nil {
			return err
		}
		if err := errors.ValidateSource(r.Source); err != nil {
			return err
		}
		switch r.Relationship {
		case RelAncestor, RelChild, RelReplay:
		default:
			return errors.New(errors.ErrCodeInvalidManifest, "workflow %q: unknown relationship %q", r.Workflow, r.Relationship)
		}
	}
	return nil
}

// Step returns the step with the given id.
func (m *Manifest) Step(id string) (Step, bool) {
	for _, s := range m.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}
