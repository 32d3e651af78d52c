// Package scan runs accessibility auditors against a live page and turns
// their reports into per-tool violation counts.
package scan

import (
	"regexp"
	"strings"
)

type Level string

const (
	LevelA            Level = "A"
	LevelAA           Level = "AA"
	LevelAAA          Level = "AAA"
	LevelUnclassified Level = "unclassified"
)

// LevelCounts is the number of findings per WCAG conformance level.
type LevelCounts struct {
	A            int
	AA           int
	AAA          int
	Unclassified int
}

func (c LevelCounts) Total() int {
	return c.A + c.AA + c.AAA + c.Unclassified
}

func (c *LevelCounts) add(l Level) {
	switch l {
	case LevelA:
		c.A++
	case LevelAA:
		c.AA++
	case LevelAAA:
		c.AAA++
	default:
		c.Unclassified++
	}
}

// Checked from the strictest level down, so "wcag2aaa" is never read as AA
// and "Level AA" never as A.
var levelPatterns = []struct {
	level Level
	re    *regexp.Regexp
}{
	{LevelAAA, regexp.MustCompile(`\bwcag2\d*aaa\b|\blevel aaa\b`)},
	{LevelAA, regexp.MustCompile(`\bwcag2\d*aa\b|\blevel aa\b`)},
	{LevelA, regexp.MustCompile(`\bwcag2\d*a\b|\blevel a\b`)},
}

// LevelOf classifies tag or description text such as "cat.color wcag2aa
// wcag143" or "... (WCAG Level A)". Text naming several levels gets the
// strictest one.
func LevelOf(text string) Level {
	text = strings.ToLower(text)
	for _, p := range levelPatterns {
		if p.re.MatchString(text) {
			return p.level
		}
	}
	return LevelUnclassified
}

// BucketByLevel counts items by the level of the text extract returns. The
// counts always sum to len(items).
func BucketByLevel[T any](items []T, extract func(T) string) LevelCounts {
	var c LevelCounts
	for _, it := range items {
		c.add(LevelOf(extract(it)))
	}
	return c
}
