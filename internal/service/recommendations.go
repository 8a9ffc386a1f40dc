package service

import (
	"regexp"
	"strings"
)

const (
	maxParsedRecommendations = 7
	excludedAdvicePhrase     = "consult a healthcare professional"
	// NoRecommendations is returned when parsing yields nothing usable.
	NoRecommendations = "No specific recommendations available."
)

var numberedLine = regexp.MustCompile(`^\d+\.\s*`)

// ParseRecommendations turns the numbered free text returned by the remote
// recommendation service into a list. Continuation lines are joined onto
// the item they follow, generic "consult a healthcare professional" items
// are dropped and at most seven items are kept.
func ParseRecommendations(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if loc := numberedLine.FindStringIndex(line); loc != nil {
			items = append(items, strings.TrimSpace(line[loc[1]:]))
			continue
		}
		if len(items) == 0 {
			items = append(items, line)
			continue
		}
		items[len(items)-1] += " " + line
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" || strings.Contains(strings.ToLower(item), excludedAdvicePhrase) {
			continue
		}
		out = append(out, item)
		if len(out) == maxParsedRecommendations {
			break
		}
	}

	if len(out) == 0 {
		return []string{NoRecommendations}
	}
	return out
}
