// Package status maps calendar events to a chat status.
//
// A rule matches an all-day event whose subject starts with the rule's
// prefix. The first matching event of the day wins, and the resulting
// status lasts until the end of the local day.
package status

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"calsync/internal/graph"
)

// Rule maps an event subject prefix to a status text and emoji.
type Rule struct {
	Prefix string `yaml:"prefix"`
	Text   string `yaml:"text"`
	Emoji  string `yaml:"emoji"`
}

// ruleFile is the YAML shape of a rules override file.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultRules returns the built-in prefix mappings.
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "WFH", Text: "Home or Other Office", Emoji: ":here:"},
		{Prefix: "GFC", Text: "GFC based today", Emoji: ":office:"},
		{Prefix: "GPH", Text: "GPH based today", Emoji: ":satellite_antenna:"},
		{Prefix: "GNW", Text: "GNW based today", Emoji: ":flag-wales:"},
		{Prefix: "GFF", Text: "GFF based today", Emoji: ":flag-wales:"},
		{Prefix: "Holiday", Text: "Not working today", Emoji: ":away:"},
	}
}

// LoadRules reads a YAML rules file. An empty path returns the defaults.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("rules file %s defines no rules", path)
	}

	for i, rule := range file.Rules {
		if rule.Prefix == "" {
			return nil, fmt.Errorf("rules file %s: rule %d has no prefix", path, i+1)
		}
	}
	return file.Rules, nil
}

// Decision is a resolved status for the day.
type Decision struct {
	// Subject is the event subject the decision came from.
	Subject string

	Text  string
	Emoji string

	// Expiration is when the status should lapse.
	Expiration time.Time
}

// Match picks the first all-day event whose subject starts with a known
// prefix and returns the resulting status decision. The second return is
// false when no event matches.
func Match(events []graph.Event, rules []Rule, now time.Time) (*Decision, bool) {
	for _, event := range events {
		if !event.IsAllDay || event.Subject == "" {
			continue
		}
		for _, rule := range rules {
			if strings.HasPrefix(event.Subject, rule.Prefix) {
				return &Decision{
					Subject:    event.Subject,
					Text:       rule.Text,
					Emoji:      rule.Emoji,
					Expiration: EndOfDay(now),
				}, true
			}
		}
	}
	return nil, false
}

// EndOfDay returns the last second of t's local day.
func EndOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 23, 59, 59, 0, t.Location())
}
