// Package analyzer decides whether a prompt should be answered with
// web references attached.
package analyzer

import (
	"strings"
)

// Decision represents whether a prompt warrants a reference lookup
type Decision struct {
	NeedsReferences bool
	Score           int
	Reason          string
}

type rule struct {
	name     string
	weight   int
	patterns []string
}

// Analyzer scores prompts against keyword rules
type Analyzer struct {
	rules     []rule
	threshold int
}

// NewAnalyzer creates a new prompt analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		threshold: 30,
		rules: []rule{
			{"time-sensitive", 40, []string{
				"latest", "current", "today", "now", "recent",
				"this year", "this month", "this week",
				"news", "updated", "new", "yesterday",
			}},
			{"factual", 30, []string{
				"what is", "what are", "who is", "who are",
				"when did", "when was", "where is", "where are",
				"how many", "how much", "which", "price of", "cost of",
			}},
			{"documentation", 30, []string{
				"documentation", "docs", "link", "website", "source",
				"reference", "where can i", "find",
			}},
			{"research", 20, []string{
				"compare", "comparison", "best", "review",
				"vs", "versus", "difference between", "alternatives", "recommend",
			}},
			{"conversational", -40, []string{
				"hello", "hi ", "thanks", "thank you", "bye",
			}},
			{"creative", -30, []string{
				"write a poem", "tell me a joke", "story",
			}},
		},
	}
}

// Analyze scores a prompt. A score above the threshold asks for references.
func (a *Analyzer) Analyze(prompt string) Decision {
	prompt = strings.ToLower(strings.TrimSpace(prompt))
	if prompt == "" {
		return Decision{Reason: "empty prompt"}
	}

	score := 0
	var reasons []string
	for _, r := range a.rules {
		if matches(prompt+" ", r.patterns) {
			score += r.weight
			reasons = append(reasons, r.name)
		}
	}

	reason := strings.Join(reasons, ", ")
	if reason == "" {
		reason = "general prompt"
	}
	return Decision{
		NeedsReferences: score >= a.threshold,
		Score:           score,
		Reason:          reason,
	}
}

func matches(prompt string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(prompt, p) {
			return true
		}
	}
	return false
}
