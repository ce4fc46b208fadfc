// Package split computes page-range partition plans for a document.
//
// A plan is a contiguous, gap-free, overlap-free cover of pages 1..totalPages,
// computed once per document before any page is touched. The three strategies
// mirror the user-facing split modes: a fixed number of parts, a maximum page
// count per part, or a target output size per part.
package split

import (
	"errors"
	"fmt"
)

// Strategy selects how a document is partitioned.
type Strategy string

const (
	// StrategyParts splits into a fixed number of roughly-equal parts.
	StrategyParts Strategy = "parts"

	// StrategyMaxPages caps each part at a maximum page count.
	StrategyMaxPages Strategy = "pages"

	// StrategyTargetSize aims each part at a target byte size, estimated
	// from the source file's average bytes per page.
	StrategyTargetSize Strategy = "size"
)

// ErrInvalidStrategyValue is returned when the strategy value cannot produce
// at least one page per part.
var ErrInvalidStrategyValue = errors.New("invalid strategy value")

// PartRange is one contiguous page range destined for one output file.
// Index and page numbers are 1-based; Last is inclusive.
type PartRange struct {
	Index int `json:"index"`
	First int `json:"first"`
	Last  int `json:"last"`
}

// Pages returns the number of pages in the range.
func (r PartRange) Pages() int {
	return r.Last - r.First + 1
}

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyParts, StrategyMaxPages, StrategyTargetSize:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown split strategy: %q", s)
}

// Plan partitions a document of totalPages pages into ordered page ranges.
//
// value is interpreted per strategy: the part count for StrategyParts, the
// page cap for StrategyMaxPages, or the target byte size for
// StrategyTargetSize. totalBytes is the source file size, used only by
// StrategyTargetSize to estimate bytes per page.
//
// The function is pure: same inputs always yield the same plan.
func Plan(totalPages int, strategy Strategy, value int64, totalBytes int64) ([]PartRange, error) {
	if totalPages < 1 {
		return nil, fmt.Errorf("%w: document has no pages", ErrInvalidStrategyValue)
	}

	var sizes []int
	switch strategy {
	case StrategyParts:
		n := int(value)
		if n < 1 {
			return nil, fmt.Errorf("%w: part count must be at least 1", ErrInvalidStrategyValue)
		}
		if n > totalPages {
			return nil, fmt.Errorf("%w: part count (%d) exceeds total pages (%d)",
				ErrInvalidStrategyValue, n, totalPages)
		}
		sizes = partSizes(totalPages, n)

	case StrategyMaxPages:
		p := int(value)
		if p < 1 {
			return nil, fmt.Errorf("%w: max pages per part must be at least 1", ErrInvalidStrategyValue)
		}
		sizes = chunkSizes(totalPages, p)

	case StrategyTargetSize:
		if value < 1 {
			return nil, fmt.Errorf("%w: target size must be positive", ErrInvalidStrategyValue)
		}
		bytesPerPage := totalBytes / int64(totalPages)
		if bytesPerPage < 1 {
			bytesPerPage = 1
		}
		pagesPerPart := int(value / bytesPerPage)
		// Clamp to 1 so the plan always makes progress. This can produce
		// more parts than the target size suggests; callers rely on it for
		// very small targets relative to page size.
		if pagesPerPart < 1 {
			pagesPerPart = 1
		}
		sizes = chunkSizes(totalPages, pagesPerPart)

	default:
		return nil, fmt.Errorf("unknown split strategy: %q", strategy)
	}

	ranges := make([]PartRange, len(sizes))
	page := 1
	for i, size := range sizes {
		ranges[i] = PartRange{Index: i + 1, First: page, Last: page + size - 1}
		page += size
	}
	return ranges, nil
}

// MaxParts returns the number of parts Plan would produce, without building
// the ranges. Used to clamp the compression worker cap for a run.
func MaxParts(totalPages int, strategy Strategy, value int64, totalBytes int64) (int, error) {
	ranges, err := Plan(totalPages, strategy, value, totalBytes)
	if err != nil {
		return 0, err
	}
	return len(ranges), nil
}

// partSizes distributes total pages over parts as evenly as possible.
// The first (total mod parts) parts receive one extra page.
func partSizes(total, parts int) []int {
	base := total / parts
	remainder := total % parts

	sizes := make([]int, parts)
	for i := range sizes {
		sizes[i] = base
		if i < remainder {
			sizes[i]++
		}
	}
	return sizes
}

// chunkSizes fills parts greedily with up to perPart pages each; the last
// part receives the remainder.
func chunkSizes(total, perPart int) []int {
	numParts := (total + perPart - 1) / perPart
	sizes := make([]int, numParts)
	for i := range sizes {
		sizes[i] = perPart
	}
	if rem := total % perPart; rem != 0 {
		sizes[numParts-1] = rem
	}
	return sizes
}
