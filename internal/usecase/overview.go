package usecase

import (
	"context"
	"sync"
	"time"

	"OpsPulse/internal/domain/models"
	domrepo "OpsPulse/internal/domain/repository"
)

// OverviewUseCase builds the dashboard overview: one snapshot per tracked
// metric, computed concurrently.
type OverviewUseCase struct {
	builder *ReportBuilder
	targets []RefreshTarget
	timeout time.Duration
}

func NewOverviewUseCase(builder *ReportBuilder, targets []RefreshTarget) *OverviewUseCase {
	return &OverviewUseCase{builder: builder, targets: targets, timeout: 10 * time.Second}
}

// Overview returns the snapshots in tracked order. window, when set,
// overrides each metric's configured rollup. Failures of one metric do
// not fail the overview; they surface in that snapshot's Error field.
func (uc *OverviewUseCase) Overview(ctx context.Context, window string) ([]models.MetricSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	out := make([]models.MetricSnapshot, len(uc.targets))
	var wg sync.WaitGroup
	for i, t := range uc.targets {
		wg.Add(1)
		go func(i int, t RefreshTarget) {
			defer wg.Done()
			w := domrepo.NormalizeWindow(t.Window)
			if window != "" {
				w = domrepo.NormalizeWindow(window)
			}
			out[i] = uc.builder.Snapshot(ctx, t.MetricID, w, t.Limit)
		}(i, t)
	}
	wg.Wait()

	return out, nil
}
