/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Question Classifier
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package intent assigns a free-form analytical question to one of a
// closed set of answerable question shapes.
package intent

import (
	"fmt"
	"regexp"
	"strings"
)

// Intent is one of the question shapes the pipeline knows how to answer
type Intent int

const (
	General Intent = iota
	CategoryComparison
	RevenueTrend
	CustomerSpending
	ProductPopularity
	OrderStatus
	DataQuality
	CustomerGrowth
)

var intentNames = map[Intent]string{
	General:            "general",
	CategoryComparison: "category_comparison",
	RevenueTrend:       "revenue_trend",
	CustomerSpending:   "customer_spending",
	ProductPopularity:  "product_popularity",
	OrderStatus:        "order_status",
	DataQuality:        "data_quality",
	CustomerGrowth:     "customer_growth",
}

// All returns every intent, General last
func All() []Intent {
	return []Intent{
		CategoryComparison, RevenueTrend, CustomerSpending, ProductPopularity,
		OrderStatus, DataQuality, CustomerGrowth, General,
	}
}

// String returns the wire name used in the questionType field
func (i Intent) String() string {
	if name, ok := intentNames[i]; ok {
		return name
	}
	return fmt.Sprintf("intent(%d)", int(i))
}

// Parse converts a wire name back to an Intent
func Parse(name string) (Intent, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, n := range intentNames {
		if n == key {
			return i, nil
		}
	}
	return General, fmt.Errorf("unknown question type %q", name)
}

// MarshalText implements encoding.TextMarshaler
func (i Intent) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (i *Intent) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Rule pairs an intent with the predicate that selects it
type Rule struct {
	Intent Intent
	match  func(lower string) bool
}

// Matches reports whether the rule selects the question
func (r Rule) Matches(question string) bool {
	return r.match(strings.ToLower(question))
}

// term compiles a case-insensitive, unanchored pattern
func term(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + pattern)
}

// allOf requires every pattern to appear somewhere in the question
func allOf(patterns ...*regexp.Regexp) func(string) bool {
	return func(s string) bool {
		for _, p := range patterns {
			if !p.MatchString(s) {
				return false
			}
		}
		return true
	}
}

func either(preds ...func(string) bool) func(string) bool {
	return func(s string) bool {
		for _, p := range preds {
			if p(s) {
				return true
			}
		}
		return false
	}
}

// rules is evaluated top to bottom and the first match wins. Several
// questions satisfy more than one rule ("top customers by revenue over
// time" is both a trend and a spending question), so the order is part
// of the contract.
var rules = []Rule{
	{CategoryComparison, allOf(
		term(`compare|difference`),
		term(`sales|revenue|amount`),
		term(`electronics`),
		term(`furniture`),
	)},
	{RevenueTrend, allOf(
		term(`revenue`),
		term(`trend|over time`),
	)},
	{CustomerSpending, allOf(
		term(`top`),
		term(`customer`),
		term(`spen[dt]`),
	)},
	{ProductPopularity, allOf(
		term(`most|top`),
		term(`popular|selling`),
		term(`product`),
	)},
	{OrderStatus, allOf(
		term(`order`),
		term(`status`),
	)},
	{DataQuality, allOf(
		term(`data quality|dirty data|invalid`),
	)},
	{CustomerGrowth, either(
		allOf(
			term(`customer base|customer growth|customer acquisition`),
			term(`over time|trend`),
		),
		allOf(term(`how has our customer base grown`)),
	)},
}

// Rules returns the classification rules in priority order. General is
// not listed; it applies when no rule matches.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Classify returns the intent of the earliest matching rule, or General
func Classify(question string) Intent {
	lower := strings.ToLower(question)
	for _, r := range rules {
		if r.match(lower) {
			return r.Intent
		}
	}
	return General
}
