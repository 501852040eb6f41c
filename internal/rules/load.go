// Package rules provides rule-file driven mention extraction, negation/uncertainty
// classification and per-report label aggregation.
package rules

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// readRuleLines returns the non-blank, non-comment lines of path with their 1-based line numbers.
func readRuleLines(path string) ([]string, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open rules: %w", err)
	}
	defer f.Close()

	var lines []string
	var numbers []int
	sc := bufio.NewScanner(f)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
		numbers = append(numbers, n)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, numbers, nil
}

// LoadPhrases reads every <category>.txt file in dir. The category name is the
// file stem with underscores as spaces in title case ("lung_lesion" -> "Lung Lesion").
func LoadPhrases(dir string) (map[string][]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read phrase directory: %w", err)
	}
	out := make(map[string][]string)
	for _, e := range entries {
		if e.IsDir() || strings.ToLower(filepath.Ext(e.Name())) != ".txt" {
			continue
		}
		lines, _, err := readRuleLines(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		category := CategoryFromStem(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		out[category] = append(out[category], lines...)
	}
	return out, nil
}

// CategoryFromStem converts a phrase file stem to its category name.
func CategoryFromStem(stem string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(stem))
	return cases.Title(language.English).String(strings.Join(words, " "))
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
