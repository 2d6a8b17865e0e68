package database

import (
	"context"
	"path/filepath"
	"testing"

	"sitesmith-backend/config"
	"sitesmith-backend/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConnectSQLiteAndMigrate(t *testing.T) {
	cfg := &config.Config{
		DBDriver: "sqlite",
		DBPath:   filepath.Join(t.TempDir(), "test.db"),
	}

	db, err := Connect(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []interface{}{
		&models.User{}, &models.Project{}, &models.Version{}, &models.ConversationEntry{},
		&models.Transaction{}, &models.GenerationJob{}, &models.Prompt{},
	} {
		assert.True(t, db.Migrator().HasTable(table))
	}
}

func TestConnectUnsupportedDriver(t *testing.T) {
	_, err := Connect(&config.Config{DBDriver: "oracle"}, zap.NewNop())
	assert.Error(t, err)
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := &config.Config{RedisAddr: mr.Host(), RedisPort: mr.Port()}
	client, err := ConnectRedis(context.Background(), cfg)
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
}
