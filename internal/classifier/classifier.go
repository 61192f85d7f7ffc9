// Copyright 2026 The Jarvis Core Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package classifier scores registered tools against incoming queries.
// Matching is per-token, not per-query-language, so mixed-language input
// ("weather batao", "मौसम बताओ") resolves to the same tool as its English
// equivalent. Classification is pure and side-effect-free, which makes its
// results safe to cache.
package classifier

import (
	"sort"
	"strings"
	"unicode"

	"github.com/SachdevaAI/jarvis-core/internal/registry"
)

// Candidate is one scored tool for a query, confidence always in [0,1].
type Candidate struct {
	Tool       string  `json:"tool"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// translations maps Hindi/Hinglish terms to their English equivalents so a
// single keyword set matches across languages.
var translations = map[string]string{
	"खोलो":     "open",
	"बंद करो":  "close",
	"बनाओ":     "create",
	"लिखो":     "write",
	"भेजो":     "send",
	"खोजो":     "search",
	"ढूंढो":    "search",
	"चलाओ":     "play",
	"रुको":     "stop",
	"बताओ":     "tell",
	"सिस्टम":   "system",
	"फ़ाइल":    "file",
	"फोल्डर":   "folder",
	"कोड":      "code",
	"प्रोग्राम": "program",
	"मौसम":     "weather",
	"समय":      "time",
	"जानकारी":  "information",
	"संदेश":    "message",
	"सिखाओ":    "teach",
	"समझाओ":    "explain",
}

const (
	// matchBase is the confidence of a single-keyword match at default
	// priority; one clean hit clears the default dispatch threshold.
	matchBase = 0.4
	// perHit is added per matched keyword.
	perHit = 0.3
	// priorityStep shifts confidence per priority point away from the
	// default of 5, keeping priority a tiebreaker rather than a gate.
	priorityStep = 0.02
)

// Classifier scores tools by keyword matching, with an optional expression
// scorer per tool (see ExprScorer). The zero value is not usable; call New.
type Classifier struct {
	scorers *exprCache
}

// New creates a classifier.
func New() *Classifier {
	return &Classifier{scorers: newExprCache()}
}

// Normalize lowercases text and rewrites known Hindi/Hinglish terms to
// English. It doubles as the cache signature for classification results.
func (c *Classifier) Normalize(text string) string {
	out := strings.ToLower(strings.TrimSpace(text))
	for hindi, english := range translations {
		out = strings.ReplaceAll(out, hindi, english)
	}
	return out
}

// Classify scores candidates against the query and returns them ordered by
// confidence, highest first, ties broken by registration order. It returns
// an empty list, never an error, when nothing matches above zero.
func (c *Classifier) Classify(query string, candidates []*registry.ToolDescriptor) []Candidate {
	raw := strings.ToLower(strings.TrimSpace(query))
	normalized := c.Normalize(query)

	tokens := tokenSet(raw)
	for tok := range tokenSet(normalized) {
		tokens[tok] = struct{}{}
	}

	scored := make([]Candidate, 0, len(candidates))
	for _, desc := range candidates {
		hits, matched := countHits(desc.Keywords, tokens, raw, normalized)

		var confidence float64
		var rationale string
		if desc.Scorer != "" {
			v, err := c.scorers.eval(desc.Scorer, scoreEnv{
				Query:    normalized,
				Tokens:   sortedTokens(tokens),
				Hits:     hits,
				Priority: desc.Priority,
			})
			if err != nil {
				// A broken scorer disqualifies its tool, not the query.
				continue
			}
			confidence = clamp(v)
			rationale = "expr"
		} else {
			if hits == 0 {
				continue
			}
			confidence = clamp(matchBase + perHit*float64(hits) + priorityStep*float64(desc.Priority-5))
			rationale = "keyword:" + matched
		}

		if confidence <= 0 {
			continue
		}
		if desc.MinConfidence > 0 && confidence < desc.MinConfidence {
			continue
		}
		scored = append(scored, Candidate{
			Tool:       desc.Name,
			Confidence: confidence,
			Rationale:  rationale,
		})
	}

	// Stable sort preserves registration order among equal confidences,
	// so the first-registered tool wins ties.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Confidence > scored[j].Confidence
	})
	return scored
}

// countHits counts how many of the tool's keywords appear in the query.
// Single-word keywords match against the token set; multi-word phrases
// match as substrings of the raw or normalized query.
func countHits(keywords []string, tokens map[string]struct{}, raw, normalized string) (int, string) {
	hits := 0
	first := ""
	for _, kw := range keywords {
		k := strings.ToLower(strings.TrimSpace(kw))
		if k == "" {
			continue
		}
		var matched bool
		if strings.ContainsRune(k, ' ') {
			matched = strings.Contains(raw, k) || strings.Contains(normalized, k)
		} else {
			_, matched = tokens[k]
		}
		if matched {
			hits++
			if first == "" {
				first = k
			}
		}
	}
	return hits, first
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func sortedTokens(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for tok := range set {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
