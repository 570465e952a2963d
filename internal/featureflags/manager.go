// Package featureflags evaluates rollout flags configured through the
// FEATURE_FLAGS setting.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

type ruleKind int

const (
	ruleOff ruleKind = iota
	ruleOn
	rulePercent
)

// rule is a parsed flag value. Percent rules carry the rollout threshold.
type rule struct {
	kind    ruleKind
	raw     string
	percent int
}

// Manager holds parsed feature flags. The config format is a comma-separated
// list, for example "new_feed=25%,suggestion_boost=on,legacy_sort=off".
type Manager struct {
	rules map[string]rule
}

// NewManager parses the config string. Malformed entries are skipped, an
// unknown value disables the flag.
func NewManager(raw string) *Manager {
	rules := make(map[string]rule)
	for _, entry := range strings.Split(raw, ",") {
		name, value, found := strings.Cut(entry, "=")
		if !found {
			continue
		}
		name = normalize(name)
		value = normalize(value)
		if name == "" || value == "" {
			continue
		}
		rules[name] = parseRule(value)
	}
	return &Manager{rules: rules}
}

func parseRule(value string) rule {
	switch value {
	case "on", "true", "1":
		return rule{kind: ruleOn, raw: value}
	case "off", "false", "0":
		return rule{kind: ruleOff, raw: value}
	}
	if pctRaw, ok := strings.CutSuffix(value, "%"); ok {
		pct, err := strconv.Atoi(pctRaw)
		if err == nil && pct > 0 {
			if pct > 100 {
				pct = 100
			}
			return rule{kind: rulePercent, raw: value, percent: pct}
		}
	}
	return rule{kind: ruleOff, raw: value}
}

// Enabled reports whether the flag is on for this user. Percentage rollouts
// bucket deterministically on flag name and user ID, so a user keeps the same
// verdict across requests. Anonymous callers (userID 0) never land in a
// partial rollout.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	r, ok := m.rules[normalize(name)]
	if !ok {
		return false
	}
	switch r.kind {
	case ruleOn:
		return true
	case rulePercent:
		if r.percent >= 100 {
			return true
		}
		if userID == 0 {
			return false
		}
		return bucketOf(name, userID) < r.percent
	default:
		return false
	}
}

// Raw returns the configured flag values as parsed.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.rules))
	for name, r := range m.rules {
		out[name] = r.raw
	}
	return out
}

// Snapshot evaluates every flag for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.rules))
	for name := range m.rules {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucketOf(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", normalize(name), userID)))
	return int(h.Sum32() % 100)
}
