package promotion

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-pos/internal/db"
)

// TxBeginner is the slice of the pgx pool the store needs to open
// transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PgStore implements Querier on the application's pgx pool. It embeds the
// typed queries and overrides scope replacement to run the delete and the
// inserts in one transaction, so a concurrent reader never sees a promotion
// with an empty scope set mid-swap.
type PgStore struct {
	Pool TxBeginner
	*db.Queries
}

// ReplacePromotionScopes swaps the full scope set of a promotion atomically.
func (s PgStore) ReplacePromotionScopes(ctx context.Context, promotionID pgtype.UUID, scopes []db.ScopeEntry) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.Queries.WithTx(tx).ReplacePromotionScopes(ctx, promotionID, scopes); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
