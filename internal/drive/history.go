package drive

import (
	"context"
	"fmt"

	"cloudstore/internal/database/sqlc"
)

// DefaultHistoryLimit bounds History when the caller passes no limit.
const DefaultHistoryLimit = 50

// History returns the owner's most recent journaled operations, newest first.
func (s *Service) History(ctx context.Context, ownerID int64, limit int) ([]*sqlc.Operation, error) {
	if _, err := NewPath(ownerID, ""); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	ops, err := s.database.ListOperations(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}
