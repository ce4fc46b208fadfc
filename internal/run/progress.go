package run

import "sync"

// Aggregator folds heterogeneous progress signals from the split and
// compression phases into one monotonic per-item fraction and one overall
// fraction.
//
// When compression is enabled the two phases each weigh half of an item;
// otherwise splitting is the whole item. The overall fraction is
// (completed items + current item fraction) / total items, recomputed on
// every update. Appending items mid-run grows the denominator, so the
// overall fraction may visibly decrease; per-item fractions never do.
type Aggregator struct {
	mu sync.Mutex

	totalItems     int
	completedItems int

	// Current item.
	itemActive    bool
	totalPages    int
	totalParts    int
	compress      bool
	pagesWritten  int
	splitFinished bool
	partFractions map[int]float64
	floor         float64 // monotonic guard within the item
}

// NewAggregator creates an aggregator for a run over totalItems items.
func NewAggregator(totalItems int) *Aggregator {
	return &Aggregator{totalItems: totalItems}
}

// AddItems grows the run's item count (mid-run append).
func (a *Aggregator) AddItems(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalItems += n
}

// BeginItem resets per-item state for the next item.
func (a *Aggregator) BeginItem(totalPages, totalParts int, compress bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.itemActive = true
	a.totalPages = totalPages
	a.totalParts = totalParts
	a.compress = compress
	a.pagesWritten = 0
	a.splitFinished = false
	a.partFractions = make(map[int]float64, totalParts)
	a.floor = 0
}

// PageWritten records split progress up to page (1-based, cumulative across
// the item's parts).
func (a *Aggregator) PageWritten(page int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if page > a.pagesWritten {
		a.pagesWritten = page
	}
}

// SplitFinished marks the end of the split phase for the current item.
func (a *Aggregator) SplitFinished() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.splitFinished = true
	a.pagesWritten = a.totalPages
}

// PartFraction records a compression fraction in [0,1] for one part.
// Per-part fractions never regress.
func (a *Aggregator) PartFraction(partIndex int, fraction float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if fraction > 1 {
		fraction = 1
	}
	if fraction > a.partFractions[partIndex] {
		a.partFractions[partIndex] = fraction
	}
}

// CompleteItem marks the current item done. The item fraction becomes
// exactly 1.0 and is then folded into the completed count.
func (a *Aggregator) CompleteItem() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.completedItems++
	a.itemActive = false
	a.floor = 0
}

// AbandonItem clears per-item state for an item that failed or was skipped.
// It does not count toward completed items, so the overall fraction can only
// reach 1.0 when every item actually completed.
func (a *Aggregator) AbandonItem() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.itemActive = false
	a.floor = 0
}

// ItemFraction returns the current item's fraction in [0,1].
func (a *Aggregator) ItemFraction() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.itemFractionLocked()
}

func (a *Aggregator) itemFractionLocked() float64 {
	if !a.itemActive {
		return 0
	}

	var f float64
	switch {
	case a.totalPages == 0:
		f = 0
	case !a.compress:
		f = float64(a.pagesWritten) / float64(a.totalPages)
	case !a.splitFinished:
		f = 0.5 * float64(a.pagesWritten) / float64(a.totalPages)
	default:
		var sum float64
		for _, pf := range a.partFractions {
			sum += pf
		}
		f = 0.5 + 0.5*sum/float64(a.totalParts)
	}

	if f > 1 {
		f = 1
	}
	if f < a.floor {
		return a.floor
	}
	a.floor = f
	return f
}

// Overall returns the run-wide fraction in [0,1]. It is 1.0 exactly when all
// items have completed.
func (a *Aggregator) Overall() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.totalItems == 0 {
		return 0
	}
	f := (float64(a.completedItems) + a.itemFractionLocked()) / float64(a.totalItems)
	if f > 1 {
		f = 1
	}
	return f
}

// Counts returns completed and total item counts.
func (a *Aggregator) Counts() (completed, total int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.completedItems, a.totalItems
}
