package workshop

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// SplitTags splits a comma-joined tag string as returned by the platform.
// Segments are kept byte for byte; only empty ones are dropped.
func SplitTags(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// ParseTags parses an operator-supplied tag list. Unlike SplitTags it trims
// whitespace around each tag and removes duplicates.
func ParseTags(s string) []string {
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return dedupe(tags)
}

// MergeTags returns newTags in order followed by every tag of existingCSV
// not already present. Matching is exact and case-sensitive, and existing
// tags are carried over untrimmed.
func MergeTags(newTags []string, existingCSV string) []string {
	merged := dedupe(newTags)
	seen := make(map[string]struct{}, len(merged))
	for _, t := range merged {
		seen[t] = struct{}{}
	}
	for _, t := range SplitTags(existingCSV) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		merged = append(merged, t)
	}
	return merged
}

func dedupe(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// TagPair is a new tag that looks like a misspelling of an existing one.
type TagPair struct {
	New      string
	Existing string
}

// similarTagDistance is the largest edit distance still reported as similar.
const similarTagDistance = 2

// SimilarTags reports new tags that differ from an existing tag only by case
// or by a small edit distance. Merging keeps both; this is for warnings.
func SimilarTags(newTags, existing []string) []TagPair {
	var pairs []TagPair
	for _, n := range newTags {
		for _, e := range existing {
			if n == e {
				continue
			}
			if strings.EqualFold(n, e) {
				pairs = append(pairs, TagPair{New: n, Existing: e})
				continue
			}
			// Short tags are too close to everything.
			if len(n) <= similarTagDistance+1 || len(e) <= similarTagDistance+1 {
				continue
			}
			if levenshtein.ComputeDistance(n, e) <= similarTagDistance {
				pairs = append(pairs, TagPair{New: n, Existing: e})
			}
		}
	}
	return pairs
}
