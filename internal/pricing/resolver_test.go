package pricing

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgtype"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type countingCatalog struct {
	stubCatalog
	priceCalls int
}

func (c *countingCatalog) GetProductPrice(ctx context.Context, productID pgtype.UUID, sizeKey string) (int64, error) {
	c.priceCalls++
	return c.stubCatalog.GetProductPrice(ctx, productID, sizeKey)
}

func TestResolveCacheAside(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	catalog := &countingCatalog{stubCatalog: *defaultCatalog()}
	resolver := &Resolver{Q: catalog, Cache: NewCache(client, time.Minute)}

	ctx := context.Background()
	first, err := resolver.Resolve(ctx, coffeeID, SizeStd)
	require.NoError(t, err)
	require.EqualValues(t, 50_000, first)

	second, err := resolver.Resolve(ctx, coffeeID, SizeStd)
	require.NoError(t, err)
	require.EqualValues(t, 50_000, second)
	require.Equal(t, 1, catalog.priceCalls, "second lookup must come from the cache")
}

func TestResolveMissCachesNothing(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	catalog := &countingCatalog{stubCatalog: *defaultCatalog()}
	resolver := &Resolver{Q: catalog, Cache: NewCache(client, time.Minute)}

	ctx := context.Background()
	_, err = resolver.Resolve(ctx, cakeID, SizeLa)
	require.ErrorIs(t, err, ErrPriceNotFound)

	_, err = resolver.Resolve(ctx, cakeID, SizeLa)
	require.ErrorIs(t, err, ErrPriceNotFound)
	require.Equal(t, 2, catalog.priceCalls)
}

func TestResolveWithoutCache(t *testing.T) {
	resolver := &Resolver{Q: defaultCatalog()}
	price, err := resolver.Resolve(context.Background(), teaID, SizeLa)
	require.NoError(t, err)
	require.EqualValues(t, 40_000, price)
}
