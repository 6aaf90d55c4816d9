package extract

import (
	"fmt"
	"os"

	"github.com/Veraticus/certcheck/internal/common"
	"gopkg.in/yaml.v3"
)

// Merge modes for combining configured rules with the built-in table.
const (
	MergePrepend = "prepend"
	MergeAppend  = "append"
	MergeReplace = "replace"
)

// RuleFile is the on-disk form of a custom rule table.
type RuleFile struct {
	Mode  string `yaml:"mode"`
	Rules []Rule `yaml:"rules"`
}

// LoadRuleFile reads a YAML rule table from path.
func LoadRuleFile(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}

	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse rule file %s: %w", path, err)
	}

	return &rf, nil
}

// MergeRules combines custom rules with the defaults. Prepended rules are
// tried before the built-in rules of the same field, appended rules after,
// and replace discards the built-in table entirely.
func MergeRules(custom []Rule, defaults []Rule, mode string) ([]Rule, error) {
	switch mode {
	case MergePrepend, "":
		return append(append([]Rule{}, custom...), defaults...), nil
	case MergeAppend:
		return append(append([]Rule{}, defaults...), custom...), nil
	case MergeReplace:
		if len(custom) == 0 {
			return nil, fmt.Errorf("%w: replace mode requires at least one rule", common.ErrInvalidConfig)
		}
		return append([]Rule{}, custom...), nil
	default:
		return nil, fmt.Errorf("%w: unknown rule merge mode %q", common.ErrInvalidConfig, mode)
	}
}
