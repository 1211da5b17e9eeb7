package prompts

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesFile []byte

// RuleEntry is one row of the rules table: a block of guidance shared by
// one or more known file names.
type RuleEntry struct {
	Files []string `yaml:"files"`
	Rules string   `yaml:"rules"`
}

var (
	rulesOnce  sync.Once
	rulesTable map[string]string
	rulesErr   error
)

// ParseRules decodes a rules table. Keys are lowercased; a file name listed
// twice is an error.
func ParseRules(data []byte) (map[string]string, error) {
	var entries []RuleEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse rules table: %w", err)
	}

	table := make(map[string]string)
	for i, entry := range entries {
		if len(entry.Files) == 0 {
			return nil, fmt.Errorf("rules entry %d has no files", i)
		}
		// each block sits on its own paragraph under the rules heading
		block := "\n" + strings.TrimRight(entry.Rules, "\n") + "\n"
		for _, f := range entry.Files {
			key := strings.ToLower(strings.TrimSpace(f))
			if key == "" {
				return nil, fmt.Errorf("rules entry %d has an empty file name", i)
			}
			if _, dup := table[key]; dup {
				return nil, fmt.Errorf("file %q appears in more than one rules entry", key)
			}
			table[key] = block
		}
	}
	return table, nil
}

func loadRules() (map[string]string, error) {
	rulesOnce.Do(func() {
		rulesTable, rulesErr = ParseRules(rulesFile)
	})
	return rulesTable, rulesErr
}

func mustRules() map[string]string {
	table, err := loadRules()
	if err != nil {
		panic(fmt.Sprintf("failed to load rules table: %v", err))
	}
	return table
}

// Rules returns the specific rules for a file name. The lookup key is the
// whole file name lowercased, extension included.
func Rules(fileName string) (string, bool) {
	block, ok := mustRules()[strings.ToLower(fileName)]
	return block, ok
}

// KnownFiles lists the file names that have specific rules, sorted.
func KnownFiles() []string {
	table := mustRules()
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
