package timing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// sampleSize is how many recent runs a prediction averages over.
const sampleSize = 50

// AddReportTime records how long a report over nodeCount nodes took.
func AddReportTime(ctx context.Context, db DB, nodeCount int, elapsed time.Duration) error {
	_, err := db.Exec(ctx, addReportTimeSQL, int32(nodeCount), elapsed.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record report time: %w", err)
	}
	return nil
}

// PredictReportTime estimates the duration of a report in milliseconds from
// recent runs, scaled per node. A nodeCount of zero or less returns the plain
// average. Without history the estimate is 0.
func PredictReportTime(ctx context.Context, db DB, nodeCount int) (int64, error) {
	var perNode, avg float64
	if err := db.QueryRow(ctx, predictReportTimeSQL, sampleSize).Scan(&perNode, &avg); err != nil {
		return 0, fmt.Errorf("failed to predict report time: %w", err)
	}
	if nodeCount <= 0 {
		return int64(math.Round(avg)), nil
	}
	return int64(math.Round(perNode * float64(nodeCount))), nil
}

const addReportTimeSQL = `
INSERT INTO report_timings (node_count, duration_ms)
VALUES ($1, $2)
`

const predictReportTimeSQL = `
SELECT COALESCE(AVG(duration_ms::float8 / GREATEST(node_count, 1)), 0),
       COALESCE(AVG(duration_ms::float8), 0)
FROM (
    SELECT node_count, duration_ms
    FROM report_timings
    ORDER BY created_at DESC
    LIMIT $1
) recent
`
