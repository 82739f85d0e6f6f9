package images

import "fmt"

// Stats contains image memory usage statistics.
type Stats struct {
	// BudgetBytes is the memory budget in bytes; zero means unlimited.
	BudgetBytes uint64

	// UsedBytes is the estimated size of all live images in bytes.
	UsedBytes uint64

	// AvailableBytes is the remaining budget; zero when unlimited.
	AvailableBytes uint64

	// ImageCount is the number of live images.
	ImageCount int

	// ViewCount is the number of live views.
	ViewCount int

	// Utilization is the fraction of the budget in use (0.0 to 1.0);
	// zero when unlimited.
	Utilization float64
}

// String returns a human-readable summary.
func (s Stats) String() string {
	if s.BudgetBytes == 0 {
		return fmt.Sprintf("Images[%d images, %d views, %d KB]",
			s.ImageCount, s.ViewCount, s.UsedBytes/1024)
	}
	return fmt.Sprintf("Images[%.1f%% used, %d/%d KB, %d images, %d views]",
		s.Utilization*100, s.UsedBytes/1024, s.BudgetBytes/1024, s.ImageCount, s.ViewCount)
}

// Stats returns current memory usage. Sizes are estimates from image
// extents and formats; drivers may pad allocations.
func (m *Manager) Stats() Stats {
	s := Stats{
		BudgetBytes: m.opts.budget,
		UsedBytes:   m.used,
		ImageCount:  m.images.Len(),
		ViewCount:   m.views.Len(),
	}
	if s.BudgetBytes > 0 {
		if s.UsedBytes < s.BudgetBytes {
			s.AvailableBytes = s.BudgetBytes - s.UsedBytes
		}
		s.Utilization = float64(s.UsedBytes) / float64(s.BudgetBytes)
	}
	return s
}
