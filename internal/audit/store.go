package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huddle-app/huddle/internal/platform/database"
)

// Store handles audit event persistence.
type Store struct{}

// NewStore creates an audit Store.
func NewStore() *Store {
	return &Store{}
}

// InsertBatch writes a batch of events to the database.
func (s *Store) InsertBatch(ctx context.Context, db database.Querier, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	sql, args, err := buildBatchInsert(events)
	if err != nil {
		return fmt.Errorf("building batch insert: %w", err)
	}
	if _, err := db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("inserting audit events: %w", err)
	}
	return nil
}

const insertColumns = 7

// buildBatchInsert constructs a multi-row INSERT statement.
func buildBatchInsert(events []Event) (string, []any, error) {
	placeholders := make([]string, 0, len(events))
	args := make([]any, 0, len(events)*insertColumns)

	for i, e := range events {
		base := i * insertColumns
		placeholders = append(placeholders, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7,
		))

		var metaJSON []byte
		if len(e.Metadata) > 0 {
			var err error
			metaJSON, err = json.Marshal(e.Metadata)
			if err != nil {
				return "", nil, fmt.Errorf("marshaling metadata for %s: %w", e.Action, err)
			}
		}

		source := e.Source
		if source == "" {
			source = SourceAPI
		}

		args = append(args, e.TenantID, e.UserID, e.Action, e.ResourceType, e.ResourceID, metaJSON, source)
	}

	sql := "INSERT INTO audit_events (tenant_id, user_id, action, resource_type, resource_id, metadata, source) VALUES " +
		strings.Join(placeholders, ", ")
	return sql, args, nil
}
