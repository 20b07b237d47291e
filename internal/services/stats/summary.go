package stats

import (
    "math"
    "time"

    "OpsPulse/internal/domain/models"
    domrepo "OpsPulse/internal/domain/repository"
)

// Deltas computes step-over-step percent change d_t = (v_t - v_{t-1}) / v_{t-1} * 100.
// It returns a slice of length len(points)-1, or nil if insufficient data.
func Deltas(points []models.MetricPoint) []float64 {
    if len(points) < 2 {
        return nil
    }
    out := make([]float64, 0, len(points)-1)
    for i := 1; i < len(points); i++ {
        prev := points[i-1].Value
        cur := points[i].Value
        if prev == 0 || math.IsNaN(prev) || math.IsNaN(cur) {
            out = append(out, 0)
            continue
        }
        out = append(out, (cur-prev)/prev*100)
    }
    return out
}

// SeriesSummary condenses a stored series into the handful of numbers a
// dashboard card shows next to the chart.
type SeriesSummary struct {
    Min           float64 `json:"min"`
    Max           float64 `json:"max"`
    Mean          float64 `json:"mean"`
    Last          float64 `json:"last"`
    ChangePercent float64 `json:"change_percent"`
}

// Summarize computes min/max/mean/last over the points plus the percent
// change from first to last. NaN values are skipped; an all-NaN or empty
// series yields the zero summary.
func Summarize(points []models.MetricPoint) SeriesSummary {
    var s SeriesSummary
    sum := 0.0
    n := 0
    first := math.NaN()
    for _, p := range points {
        v := p.Value
        if math.IsNaN(v) {
            continue
        }
        if n == 0 {
            s.Min = v
            s.Max = v
            first = v
        } else {
            if v < s.Min {
                s.Min = v
            }
            if v > s.Max {
                s.Max = v
            }
        }
        sum += v
        n++
        s.Last = v
    }
    if n == 0 {
        return SeriesSummary{}
    }
    s.Mean = sum / float64(n)
    if first != 0 && !math.IsNaN(first) {
        s.ChangePercent = (s.Last - first) / first * 100
    }
    return s
}

// AlignRange rounds a time range to bucket boundaries for the window.
func AlignRange(from, to time.Time, w domrepo.Window) (time.Time, time.Time) {
    switch w {
    case domrepo.WindowRaw:
        from = from.Truncate(time.Second)
        to = to.Truncate(time.Second)
    case domrepo.Window1m:
        from = from.Truncate(time.Minute)
        to = to.Truncate(time.Minute)
    case domrepo.Window1h:
        from = from.Truncate(time.Hour)
        to = to.Truncate(time.Hour)
    case domrepo.Window1d:
        d := 24 * time.Hour
        from = from.Truncate(d)
        to = to.Truncate(d)
    default:
        from = from.Truncate(time.Minute)
        to = to.Truncate(time.Minute)
    }
    return from, to
}
