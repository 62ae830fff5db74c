package database

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/essay-arena/internal/config"
	"github.com/wfunc/essay-arena/internal/models"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testConfig(driver, dsn string) *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Driver:       driver,
		DSN:          dsn,
		MaxIdleConns: 1,
		MaxOpenConns: 1,
		LogLevel:     "silent",
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(testConfig("oracle", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}

func TestOpen_PureSQLiteAndMigrate(t *testing.T) {
	db, err := Open(testConfig("sqlite-pure", "file::memory:"))
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(db))
	for _, table := range []string{"projects", "player_states", "attacks", "active_sessions"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestAutoMigrate_FileDatabaseReleasesLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arena.db")

	db, err := Open(testConfig("sqlite", path))
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	_, err = os.Stat(path + ".migration.lock")
	assert.True(t, os.IsNotExist(err))
}

func TestActivePairUniqueness(t *testing.T) {
	db, err := Open(testConfig("sqlite", ":memory:"))
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	key := "5:alice|bob"
	first := &models.Attack{ProjectCode: "P", AttackerNorm: "alice", TargetNorm: "bob", Status: models.AttackPending, ActivePairKey: &key}
	require.NoError(t, db.Create(first).Error)

	dup := &models.Attack{ProjectCode: "P", AttackerNorm: "bob", TargetNorm: "alice", Status: models.AttackPending, ActivePairKey: &key}
	err = db.Create(dup).Error
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))

	// 终态记录释放唯一键
	require.NoError(t, db.Model(first).Updates(map[string]interface{}{"status": models.AttackDefended, "active_pair_key": nil}).Error)
	for i := 0; i < 2; i++ {
		done := &models.Attack{ProjectCode: "P", AttackerNorm: "alice", TargetNorm: "bob", Status: models.AttackExpired}
		require.NoError(t, db.Create(done).Error)
	}
	require.NoError(t, db.Create(&models.Attack{ProjectCode: "P", AttackerNorm: "bob", TargetNorm: "alice", Status: models.AttackPending, ActivePairKey: &key}).Error)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.False(t, IsDuplicateKey(nil))
	assert.True(t, IsDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKey(errors.New("UNIQUE constraint failed: attacks.project_code")))
	assert.False(t, IsDuplicateKey(gorm.ErrRecordNotFound))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, parseLogLevel("silent"))
	assert.Equal(t, gormlogger.Warn, parseLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, parseLogLevel(""))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "arena.db?_txlock=immediate&_busy_timeout=5000", sqliteDSN("arena.db"))
	assert.Equal(t, "file:arena.db?cache=shared&_txlock=immediate&_busy_timeout=5000", sqliteDSN("file:arena.db?cache=shared"))
	assert.Equal(t, "arena.db?_txlock=deferred&_busy_timeout=5000", sqliteDSN("arena.db?_txlock=deferred"))
	assert.Equal(t, "arena.db?_timeout=100&_txlock=immediate", sqliteDSN("arena.db?_timeout=100"))
}

func TestOpen_SQLiteSkipsPreparedStatements(t *testing.T) {
	db, err := Open(testConfig("sqlite", filepath.Join(t.TempDir(), "arena.db")))
	require.NoError(t, err)
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()
	assert.False(t, db.Config.PrepareStmt)
	assert.True(t, isSQLite("sqlite-pure"))
	assert.False(t, isSQLite("postgres"))
}
