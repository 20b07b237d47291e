package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"OpsPulse/internal/domain/models"
	domrepo "OpsPulse/internal/domain/repository"
	pkgch "OpsPulse/pkg/clickhouse"
	applogger "OpsPulse/pkg/logger"
)

// CHHistoryStore implements HistoryStore backed by ClickHouse.
type CHHistoryStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHHistoryStore(ch *pkgch.Client) *CHHistoryStore {
	return &CHHistoryStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHHistoryStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHHistoryStore) GetRange(ctx context.Context, metricID string, from, to time.Time, w domrepo.Window) (*models.MetricHistory, error) {
	start := time.Now()
	table, bucketCol, err := tableForWindow(w)
	if err != nil {
		return nil, err
	}
	const qtpl = `
        SELECT %s AS bucket, value
        FROM %s
        WHERE metric = ? AND %s >= ? AND %s <= ?
        ORDER BY bucket ASC
    `
	q := fmt.Sprintf(qtpl, bucketCol, table, bucketCol, bucketCol)
	rows, err := s.db.QueryContext(ctx, q, metricID, from, to)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_range query error",
				applogger.String("table", table),
				applogger.String("metric", metricID),
				applogger.String("window", string(w)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get range: %w", err)
	}
	defer rows.Close()

	points := make([]models.MetricPoint, 0, 1024)
	for rows.Next() {
		var p models.MetricPoint
		if err := rows.Scan(&p.Bucket, &p.Value); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse get_range scan error",
					applogger.String("table", table),
					applogger.String("metric", metricID),
					applogger.String("window", string(w)),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("scan point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_range rows error",
				applogger.String("table", table),
				applogger.String("metric", metricID),
				applogger.String("window", string(w)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse get_range ok",
			applogger.String("table", table),
			applogger.String("metric", metricID),
			applogger.String("window", string(w)),
			applogger.Int("rows", len(points)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return &models.MetricHistory{MetricID: metricID, Window: string(w), Points: points}, nil
}

func (s *CHHistoryStore) GetLatestN(ctx context.Context, metricID string, n int, w domrepo.Window) (*models.MetricHistory, error) {
	start := time.Now()
	table, bucketCol, err := tableForWindow(w)
	if err != nil {
		return nil, err
	}
	const qtpl = `
        SELECT %s AS bucket, value
        FROM %s
        WHERE metric = ?
        ORDER BY bucket DESC
        LIMIT ?
    `
	q := fmt.Sprintf(qtpl, bucketCol, table)
	rows, err := s.db.QueryContext(ctx, q, metricID, n)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest_points query error",
				applogger.String("table", table),
				applogger.String("metric", metricID),
				applogger.String("window", string(w)),
				applogger.Int("limit", n),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get latest points: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.MetricPoint, 0, n)
	for rows.Next() {
		var p models.MetricPoint
		if err := rows.Scan(&p.Bucket, &p.Value); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse latest_points scan error",
					applogger.String("table", table),
					applogger.String("metric", metricID),
					applogger.String("window", string(w)),
					applogger.Int("limit", n),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("scan point: %w", err)
		}
		tmp = append(tmp, p)
	}
	if err := rows.Err(); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest_points rows error",
				applogger.String("table", table),
				applogger.String("metric", metricID),
				applogger.String("window", string(w)),
				applogger.Int("limit", n),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Info("clickhouse latest_points ok",
			applogger.String("table", table),
			applogger.String("metric", metricID),
			applogger.String("window", string(w)),
			applogger.Int("limit", n),
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return &models.MetricHistory{MetricID: metricID, Window: string(w), Points: tmp}, nil
}

func tableForWindow(w domrepo.Window) (table, bucketCol string, err error) {
	switch w {
	case domrepo.WindowRaw:
		return "opspulse.observations", "ts", nil
	case domrepo.Window1m:
		return "opspulse.observations_1m", "bucket", nil
	case domrepo.Window1h:
		return "opspulse.observations_1h", "bucket", nil
	case domrepo.Window1d:
		return "opspulse.observations_1d", "bucket", nil
	default:
		return "", "", fmt.Errorf("unsupported window: %s", w)
	}
}
