package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"cloudstore/internal/drive"
)

// Journaled operation names.
const (
	OpUpload        = "Upload"
	OpImportArchive = "ImportArchive"
	OpMakeDirectory = "MakeDirectory"
	OpRename        = "Rename"
	OpDelete        = "Delete"
	OpIssueLink     = "IssueLink"
	OpRevokeLink    = "RevokeLink"
)

// Operation statuses. Rows stay "running" if the process dies mid-call.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation tracks one mutating call. It is created in memory with ID=0
// and gets its ID once the journal persists it.
type Operation struct {
	ID         int64
	OwnerID    int64
	Name       string
	Parameters string
	Status     string
}

// NewOperation creates a new in-memory operation. params are stored as a
// JSON object.
func NewOperation(ownerID int64, name string, params map[string]string) (*Operation, error) {
	encoded := ""
	if len(params) > 0 {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encoding parameters: %w", err)
		}
		encoded = string(b)
	}
	return &Operation{
		OwnerID:    ownerID,
		Name:       name,
		Parameters: encoded,
		Status:     StatusRunning,
	}, nil
}

// Persisted returns true if this operation has been saved to the database.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// operationRecorder counts journaled operations.
type operationRecorder interface {
	Operation(name string, err error)
}

// journal writes every mutating call to the operations table before it
// runs and records its outcome afterwards.
type journal struct {
	db      drive.Database
	logger  *slog.Logger
	metrics operationRecorder
}

// run persists op, calls fn, and finishes op with fn's outcome. A call
// that cannot be journaled is not attempted.
func (j *journal) run(ctx context.Context, op *Operation, fn func() error) error {
	if _, err := drive.NewPath(op.OwnerID, ""); err != nil {
		return err
	}
	if op.Persisted() {
		return fmt.Errorf("%s operation %d already journaled", op.Name, op.ID)
	}

	row, err := j.db.CreateOperation(ctx, op.OwnerID, op.Name, op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting %s operation: %w", op.Name, err)
	}
	op.ID = row.ID

	err = fn()
	op.Status = StatusSuccess
	if err != nil {
		op.Status = StatusError
	}

	if ferr := j.db.FinishOperation(context.WithoutCancel(ctx), op.ID, op.Status); ferr != nil {
		j.logger.Warn("finishing operation", "id", op.ID, "operation", op.Name, "error", ferr)
	}
	if j.metrics != nil {
		j.metrics.Operation(op.Name, err)
	}
	return err
}
