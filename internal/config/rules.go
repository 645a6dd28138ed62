package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/raysh454/harstyle/internal/model"
)

// RuleOff is the sentinel value that disables a rule.
const RuleOff = "off"

// RuleConfig is the named, versioned rule configuration handed to the
// linter. Rules maps a rule name to its setting in stylelint shape: a
// primary option, or [primary, {severity: ..., message: ...}].
type RuleConfig struct {
	Name            string         `yaml:"name" json:"name"`
	Version         string         `yaml:"version" json:"version"`
	DefaultSeverity string         `yaml:"defaultSeverity,omitempty" json:"defaultSeverity,omitempty"`
	Rules           map[string]any `yaml:"rules" json:"rules"`
}

// RuleSetting is one enabled rule with its options resolved.
type RuleSetting struct {
	Primary  any
	Severity model.Severity
	Message  string
}

// RuleEnabled reports whether a rule value turns the rule on. "off", null
// and false disable it.
func RuleEnabled(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return !strings.EqualFold(strings.TrimSpace(t), RuleOff)
	case []any:
		if len(t) == 0 {
			return false
		}
		return RuleEnabled(t[0])
	}
	return true
}

// EnabledRules returns the names of every enabled rule, sorted.
func (rc *RuleConfig) EnabledRules() []string {
	if rc == nil {
		return nil
	}
	names := make([]string, 0, len(rc.Rules))
	for name, v := range rc.Rules {
		if RuleEnabled(v) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Setting resolves the options of an enabled rule. ok is false for unknown
// or disabled rules.
func (rc *RuleConfig) Setting(name string) (s RuleSetting, ok bool) {
	if rc == nil {
		return s, false
	}
	v, found := rc.Rules[name]
	if !found || !RuleEnabled(v) {
		return s, false
	}
	s.Severity = rc.defaultSeverity()
	s.Primary = v
	if list, isList := v.([]any); isList {
		s.Primary = list[0]
		if len(list) > 1 {
			if secondary, isMap := asStringMap(list[1]); isMap {
				if sev, _ := secondary["severity"].(string); sev != "" {
					s.Severity = model.Severity(strings.ToLower(sev))
				}
				if msg, _ := secondary["message"].(string); msg != "" {
					s.Message = msg
				}
			}
		}
	}
	return s, true
}

func (rc *RuleConfig) defaultSeverity() model.Severity {
	if rc.DefaultSeverity == string(model.SeverityWarning) {
		return model.SeverityWarning
	}
	return model.SeverityError
}

// Validate checks the ruleset header and every severity override.
func (rc *RuleConfig) Validate() error {
	if strings.TrimSpace(rc.Name) == "" {
		return fmt.Errorf("%w: ruleset.name is required", ErrInvalid)
	}
	switch rc.DefaultSeverity {
	case "", string(model.SeverityError), string(model.SeverityWarning):
	default:
		return fmt.Errorf("%w: ruleset.defaultSeverity must be error or warning, got %q", ErrInvalid, rc.DefaultSeverity)
	}
	for _, name := range rc.EnabledRules() {
		s, _ := rc.Setting(name)
		if s.Severity != model.SeverityError && s.Severity != model.SeverityWarning {
			return fmt.Errorf("%w: rule %s has severity %q", ErrInvalid, name, s.Severity)
		}
	}
	return nil
}

// asStringMap accepts both map shapes produced by yaml.v3 and encoding/json.
func asStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}
