package promotion_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/db"
	"github.com/noah-isme/backend-pos/internal/promotion"
)

type fakeTx struct {
	pgx.Tx

	stmts      []string
	execErrOn  int
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	t.stmts = append(t.stmts, sql)
	if t.execErrOn > 0 && len(t.stmts) == t.execErrOn {
		return pgconn.CommandTag{}, errors.New("exec failed")
	}
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakePool struct {
	tx *fakeTx
}

func (p *fakePool) Begin(context.Context) (pgx.Tx, error) {
	return p.tx, nil
}

func TestReplacePromotionScopesCommitsDeleteAndInsertsTogether(t *testing.T) {
	tx := &fakeTx{}
	store := promotion.PgStore{Pool: &fakePool{tx: tx}, Queries: db.New(nil)}

	err := store.ReplacePromotionScopes(context.Background(), pgUUID(uuid.New()), []db.ScopeEntry{
		{Category: "DRINKS", IsIncluded: true},
		{Category: "DESSERTS", IsIncluded: false},
	})
	require.NoError(t, err)

	require.Len(t, tx.stmts, 3)
	require.Contains(t, tx.stmts[0], "DELETE FROM promotion_scopes")
	for _, stmt := range tx.stmts[1:] {
		require.Contains(t, stmt, "INSERT INTO promotion_scopes")
	}
	require.True(t, tx.committed)
	require.False(t, tx.rolledBack)
}

func TestReplacePromotionScopesRollsBackOnInsertFailure(t *testing.T) {
	tx := &fakeTx{execErrOn: 2}
	store := promotion.PgStore{Pool: &fakePool{tx: tx}, Queries: db.New(nil)}

	err := store.ReplacePromotionScopes(context.Background(), pgUUID(uuid.New()), []db.ScopeEntry{
		{Category: "DRINKS", IsIncluded: true},
	})
	require.ErrorContains(t, err, "exec failed")
	require.False(t, tx.committed)
	require.True(t, tx.rolledBack)
}
