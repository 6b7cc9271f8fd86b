package audit

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestService_AppendRequiresCallAndType(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if _, err := svc.Append(context.Background(), Event{Type: EventAnswered}); err == nil {
		t.Fatalf("expected error without call_id")
	}
	if _, err := svc.Append(context.Background(), Event{CallID: "c1"}); err == nil {
		t.Fatalf("expected error without type")
	}
}

func TestService_ListsInTimestampOrder(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	base := time.Unix(1700000000, 0).UTC()

	ctx := context.Background()
	_, _ = svc.Append(ctx, Event{CallID: "c1", Type: EventAITakeover, Timestamp: base.Add(2 * time.Second)})
	_, _ = svc.Append(ctx, Event{CallID: "c1", Type: EventForwarded, Timestamp: base})
	_, _ = svc.Append(ctx, Event{CallID: "c2", Type: EventAnswered, Timestamp: base})

	evs, err := svc.ListByCall(ctx, "c1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	if evs[0].Type != EventForwarded || evs[1].Type != EventAITakeover {
		t.Fatalf("unexpected order: %v, %v", evs[0].Type, evs[1].Type)
	}
}

func TestService_RecordFillsIDAndTimestamp(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	fixed := time.Unix(1700000000, 0)
	svc.clock = func() time.Time { return fixed }

	if err := svc.Record(context.Background(), "c1", EventAnswered, map[string]any{"to": "+14155550111"}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	evs := repo.Events()
	if len(evs) != 1 || evs[0].ID == "" || !evs[0].Timestamp.Equal(fixed) {
		t.Fatalf("unexpected event: %+v", evs)
	}
}

func TestSQLRepo_AppendAndList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewSQLRepo(db)
	ts := time.Unix(1700000000, 0).UTC()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO call_events")).
		WithArgs("e1", "c1", "answered", []byte(`{"by":"owner"}`), ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM call_events")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "call_id", "event_type", "event_data", "timestamp"}).
			AddRow("e1", "c1", "answered", []byte(`{"by":"owner"}`), ts))

	ctx := context.Background()
	if err := repo.Append(ctx, Event{ID: "e1", CallID: "c1", Type: EventAnswered, Data: map[string]any{"by": "owner"}, Timestamp: ts}); err != nil {
		t.Fatalf("append: %v", err)
	}
	evs, err := repo.ListByCall(ctx, "c1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(evs) != 1 || evs[0].Data["by"] != "owner" {
		t.Fatalf("unexpected events: %+v", evs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
