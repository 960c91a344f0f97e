package tools

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
)

//go:embed presets.yaml
var defaultPresetsYAML []byte

// Presets maps tool name -> preset name -> settings document.
type Presets map[string]map[string]yaml.Node

// ParsePresets decodes a presets document.
func ParsePresets(data []byte) (Presets, error) {
	var p Presets
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("presets: decode: %w", err)
	}
	if p == nil {
		p = Presets{}
	}
	return p, nil
}

// DefaultPresets returns the presets shipped with the binary.
func DefaultPresets() Presets {
	p, err := ParsePresets(defaultPresetsYAML)
	if err != nil {
		panic(err)
	}
	return p
}

// LoadPresets merges the presets file at path over the embedded defaults.
// An empty path yields the defaults.
func LoadPresets(path string) (Presets, error) {
	presets := DefaultPresets()
	path = strings.TrimSpace(path)
	if path == "" {
		return presets, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("presets: read %s: %w", path, err)
	}
	extra, err := ParsePresets(data)
	if err != nil {
		return nil, err
	}
	for tool, named := range extra {
		if presets[tool] == nil {
			presets[tool] = map[string]yaml.Node{}
		}
		for name, node := range named {
			presets[tool][name] = node
		}
	}
	return presets, nil
}

// Names lists the presets of tool in lexical order.
func (p Presets) Names(tool string) []string {
	names := make([]string, 0, len(p[tool]))
	for name := range p[tool] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply decodes the named preset onto s.
func (p Presets) Apply(tool, name string, s Settings) error {
	node, ok := p[tool][name]
	if !ok {
		return fmt.Errorf("%w: %s/%s", domain.ErrUnknownPreset, tool, name)
	}
	if err := node.Decode(s); err != nil {
		return fmt.Errorf("presets: apply %s/%s: %w", tool, name, err)
	}
	return nil
}
