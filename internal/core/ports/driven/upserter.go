package driven

import (
	"context"

	"github.com/custodia-labs/stratus-sync/internal/core/domain"
)

// Upserter performs a set-based insert-or-update of one batch into its
// table. The statement is atomic at the database level: concurrent callers
// upserting the same natural key never produce duplicate rows. The result
// distinguishes rows created by the statement from rows that existed
// before it, as observed by the database engine itself.
type Upserter interface {
	Upsert(ctx context.Context, batch domain.RecordBatch) (domain.UpsertResult, error)
}
