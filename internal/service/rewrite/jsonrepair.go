package rewrite

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Strategy names one way of pulling a JSON value out of model output.
type Strategy string

const (
	StrategyDirect        Strategy = "direct"
	StrategyGreedyBraces  Strategy = "greedy-braces"
	StrategyBalancedLines Strategy = "balanced-lines"
)

// RepairError is returned when no strategy produced valid JSON. It maps to 502.
type RepairError struct {
	Message string
}

func (e *RepairError) Error() string   { return e.Message }
func (e *RepairError) StatusCode() int { return http.StatusBadGateway }

var (
	ErrNoJSON         = &RepairError{Message: "No JSON found in AI response"}
	ErrUnbalancedJSON = &RepairError{Message: "Could not extract valid JSON from AI response"}
)

type extractor struct {
	strategy Strategy
	extract  func(text string) (json.RawMessage, bool)
}

// strategies are tried in order; the first that yields valid JSON wins.
var strategies = []extractor{
	{StrategyDirect, extractDirect},
	{StrategyGreedyBraces, extractGreedyBraces},
	{StrategyBalancedLines, extractBalancedLines},
}

// Extract returns the JSON value contained in text and the strategy that found it.
func Extract(text string) (json.RawMessage, Strategy, error) {
	for _, s := range strategies {
		if value, ok := s.extract(text); ok {
			return value, s.strategy, nil
		}
	}

	if !strings.Contains(text, "{") {
		return nil, "", ErrNoJSON
	}
	return nil, "", ErrUnbalancedJSON
}

func extractDirect(text string) (json.RawMessage, bool) {
	return validJSON(strings.TrimSpace(text))
}

var greedyBraces = regexp.MustCompile(`(?s)\{.*\}`)

func extractGreedyBraces(text string) (json.RawMessage, bool) {
	span := greedyBraces.FindString(text)
	if span == "" {
		return nil, false
	}
	return validJSON(span)
}

// extractBalancedLines accumulates lines from the first one containing "{" until
// the running count of "{" minus "}" returns to zero. Text before the first "{"
// and after the last "}" of the span is dropped.
func extractBalancedLines(text string) (json.RawMessage, bool) {
	lines := strings.Split(text, "\n")

	start, end, depth := -1, -1, 0
	for i, line := range lines {
		if start == -1 {
			if !strings.Contains(line, "{") {
				continue
			}
			start = i
		}
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth == 0 {
			end = i
			break
		}
	}
	if start == -1 || end == -1 {
		return nil, false
	}

	span := strings.Join(lines[start:end+1], "\n")
	span = span[strings.Index(span, "{"):]
	if last := strings.LastIndex(span, "}"); last >= 0 {
		span = span[:last+1]
	}
	return validJSON(span)
}

func validJSON(s string) (json.RawMessage, bool) {
	if s == "" || !gjson.Valid(s) {
		return nil, false
	}
	return json.RawMessage(s), true
}
