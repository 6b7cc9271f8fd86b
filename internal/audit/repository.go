package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"call-assistant/pkg/utils"
)

// SQLRepo stores events in call_events. It joins a transaction carried by ctx.
type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo { return &SQLRepo{db: db} }

func (r *SQLRepo) Append(ctx context.Context, e Event) error {
	data, err := json.Marshal(dataOrEmpty(e.Data))
	if err != nil {
		return fmt.Errorf("encode event data: %w", err)
	}
	const q = `
INSERT INTO call_events (id, call_id, event_type, event_data, timestamp)
VALUES ($1, $2, $3, $4, $5)
`
	_, err = utils.Conn(ctx, r.db).ExecContext(ctx, q, e.ID, e.CallID, string(e.Type), data, e.Timestamp)
	return err
}

func (r *SQLRepo) ListByCall(ctx context.Context, callID string) ([]Event, error) {
	if !utils.IsUUID(callID) {
		return nil, nil
	}
	const q = `
SELECT id, call_id, event_type, event_data, timestamp
FROM call_events
WHERE call_id = $1
ORDER BY timestamp ASC, id ASC
`
	rows, err := utils.Conn(ctx, r.db).QueryContext(ctx, q, callID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e    Event
			typ  string
			data []byte
		)
		if err := rows.Scan(&e.ID, &e.CallID, &typ, &data, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Type = EventType(typ)
		if len(data) > 0 {
			if err := json.Unmarshal(data, &e.Data); err != nil {
				return nil, fmt.Errorf("decode event data: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func dataOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
