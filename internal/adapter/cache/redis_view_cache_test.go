package cache_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WorstGen/land-marketplace/internal/adapter/cache"
	"github.com/WorstGen/land-marketplace/internal/core/domain"
)

func testView(t *testing.T) domain.LedgerView {
	t.Helper()

	l, err := domain.NewLedger(domain.DefaultLedgerConfig())
	require.NoError(t, err)

	return l.Snapshot()
}

func TestGetView_Miss(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	c := cache.NewRedisViewCache(db, "", time.Minute)

	mockRedis.ExpectGet(cache.DefaultViewKey).RedisNil()

	view, err := c.GetView(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, view)
	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

func TestGetView_Hit(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	c := cache.NewRedisViewCache(db, "views", time.Minute)

	raw, err := json.Marshal(testView(t))
	require.NoError(t, err)
	mockRedis.ExpectGet("views").SetVal(string(raw))

	view, err := c.GetView(context.Background())
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, 8, view.CurrentAreaNumber)
	require.NotNil(t, view.NextPlot)
	assert.Equal(t, "8-2", view.NextPlot.ID)
	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

func TestGetView_Error(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	c := cache.NewRedisViewCache(db, "views", time.Minute)

	mockRedis.ExpectGet("views").SetErr(errors.New("connection refused"))

	_, err := c.GetView(context.Background())
	assert.Error(t, err)
}

func TestSetViewAndInvalidate(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	c := cache.NewRedisViewCache(db, "views", time.Minute)

	view := testView(t)
	raw, err := json.Marshal(view)
	require.NoError(t, err)

	mockRedis.ExpectSet("views", raw, time.Minute).SetVal("OK")
	mockRedis.ExpectDel("views").SetVal(1)

	assert.NoError(t, c.SetView(context.Background(), view))
	assert.NoError(t, c.Invalidate(context.Background()))
	assert.NoError(t, mockRedis.ExpectationsWereMet())
}
