package reporting

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"call-assistant/pkg/utils"
)

// Repository aggregates a business's calls.
//
// Implementations must filter on business_id.
type Repository interface {
	CallTotals(ctx context.Context, businessID string, r TimeRange) (Totals, error)
}

type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo { return &SQLRepo{db: db} }

func (r *SQLRepo) CallTotals(ctx context.Context, businessID string, tr TimeRange) (Totals, error) {
	var (
		where = []string{"business_id = $1"}
		args  = []any{businessID}
	)
	if !tr.From.IsZero() {
		args = append(args, tr.From)
		where = append(where, fmt.Sprintf("start_time >= $%d", len(args)))
	}
	if !tr.To.IsZero() {
		args = append(args, tr.To)
		where = append(where, fmt.Sprintf("start_time < $%d", len(args)))
	}
	q := `
SELECT
  COUNT(*),
  COUNT(*) FILTER (WHERE call_type = 'human'),
  COUNT(*) FILTER (WHERE call_type = 'ai'),
  COALESCE(AVG(duration_seconds), 0)::float8,
  COALESCE(SUM(cost), 0)::float8
FROM calls
WHERE ` + strings.Join(where, " AND ")

	var t Totals
	err := utils.Conn(ctx, r.db).QueryRowContext(ctx, q, args...).
		Scan(&t.TotalCalls, &t.HumanCalls, &t.AICalls, &t.AverageDuration, &t.TotalCost)
	if err != nil {
		return Totals{}, err
	}
	return t, nil
}
