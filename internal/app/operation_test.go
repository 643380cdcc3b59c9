package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"cloudstore/internal/drive"
	"cloudstore/internal/testutil"
)

func TestNewOperation(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]string
		want   string
	}{
		{name: "with parameters", params: map[string]string{"path": "docs/a.txt", "to": "b.txt"}, want: `{"path":"docs/a.txt","to":"b.txt"}`},
		{name: "empty parameters", params: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := NewOperation(7, OpRename, tt.params)
			if err != nil {
				t.Fatalf("NewOperation() error = %v", err)
			}
			if op.Name != OpRename {
				t.Errorf("Name = %q, want %q", op.Name, OpRename)
			}
			if op.Parameters != tt.want {
				t.Errorf("Parameters = %q, want %q", op.Parameters, tt.want)
			}
			if op.Status != StatusRunning {
				t.Errorf("Status = %q, want %q", op.Status, StatusRunning)
			}
			if op.Persisted() {
				t.Error("new operation should not be persisted")
			}
		})
	}
}

type countingRecorder struct {
	calls map[string]int
}

func (c *countingRecorder) Operation(name string, err error) {
	key := name + ":ok"
	if err != nil {
		key = name + ":error"
	}
	c.calls[key]++
}

func newTestJournal(t *testing.T) (*journal, drive.Database, *countingRecorder) {
	t.Helper()
	db := testutil.NewTestDatabase(t)
	rec := &countingRecorder{calls: map[string]int{}}
	return &journal{db: db, logger: slog.New(slog.NewTextHandler(io.Discard, nil)), metrics: rec}, db, rec
}

func TestJournal_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("records success", func(t *testing.T) {
		j, db, rec := newTestJournal(t)
		op, _ := NewOperation(1, OpUpload, map[string]string{"path": "a.txt"})

		if err := j.run(ctx, op, func() error { return nil }); err != nil {
			t.Fatalf("run() error = %v", err)
		}
		if !op.Persisted() {
			t.Fatal("operation was not persisted")
		}

		ops, err := db.ListOperations(ctx, 1, 10)
		if err != nil {
			t.Fatalf("ListOperations() error = %v", err)
		}
		if len(ops) != 1 {
			t.Fatalf("len(ops) = %d, want 1", len(ops))
		}
		if ops[0].Status != StatusSuccess || !ops[0].FinishedAt.Valid {
			t.Errorf("operation = %+v, want finished with success", ops[0])
		}
		if ops[0].Parameters != `{"path":"a.txt"}` {
			t.Errorf("Parameters = %q", ops[0].Parameters)
		}
		if rec.calls[OpUpload+":ok"] != 1 {
			t.Errorf("metrics = %v", rec.calls)
		}
	})

	t.Run("records failure and returns it", func(t *testing.T) {
		j, db, rec := newTestJournal(t)
		op, _ := NewOperation(1, OpDelete, nil)
		boom := errors.New("boom")

		if err := j.run(ctx, op, func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("run() error = %v, want %v", err, boom)
		}

		ops, _ := db.ListOperations(ctx, 1, 10)
		if len(ops) != 1 || ops[0].Status != StatusError {
			t.Fatalf("ops = %+v, want one failed operation", ops)
		}
		if rec.calls[OpDelete+":error"] != 1 {
			t.Errorf("metrics = %v", rec.calls)
		}
	})

	t.Run("refuses to rerun a journaled operation", func(t *testing.T) {
		j, db, _ := newTestJournal(t)
		op, _ := NewOperation(1, OpRename, nil)
		if err := j.run(ctx, op, func() error { return nil }); err != nil {
			t.Fatalf("first run() error = %v", err)
		}

		calls := 0
		if err := j.run(ctx, op, func() error { calls++; return nil }); err == nil {
			t.Fatal("second run() succeeded")
		}
		if calls != 0 {
			t.Error("fn ran for an already journaled operation")
		}
		if ops, _ := db.ListOperations(ctx, 1, 10); len(ops) != 1 {
			t.Errorf("journal has %d rows, want 1", len(ops))
		}
	})

	t.Run("rejects invalid owner without journaling", func(t *testing.T) {
		j, db, _ := newTestJournal(t)
		op, _ := NewOperation(0, OpUpload, nil)
		called := false

		err := j.run(ctx, op, func() error { called = true; return nil })
		if !errors.Is(err, drive.ErrInvalidPath) {
			t.Fatalf("run() error = %v, want ErrInvalidPath", err)
		}
		if called {
			t.Error("fn ran for an invalid owner")
		}
		ops, _ := db.ListOperations(ctx, 0, 10)
		if len(ops) != 0 {
			t.Errorf("journal has %d rows, want 0", len(ops))
		}
	})
}
