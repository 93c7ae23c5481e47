package detector

import "sort"

// NonMaxSuppression greedily keeps the highest scoring proposal and discards
// every remaining proposal overlapping it by more than iouThreshold, until
// none remain. The result is sorted by descending score, so running it again
// on its own output returns the same set.
func NonMaxSuppression(proposals []Proposal, iouThreshold float64) []Proposal {
	if len(proposals) == 0 {
		return nil
	}

	sorted := make([]Proposal, len(proposals))
	copy(sorted, proposals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	suppressed := make([]bool, len(sorted))
	kept := make([]Proposal, 0, len(sorted))
	for i := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if !suppressed[j] && sorted[i].Box.IoU(sorted[j].Box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}
