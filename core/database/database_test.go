package database

import (
	"testing"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
		ok      bool
	}{
		{"SQLiteMemory", Config{Driver: DriverSQLite, Name: ":memory:"}, nil, true},
		{"SQLiteDefaultName", Config{Driver: DriverSQLite}, nil, true},
		{"UnsupportedDriver", Config{Driver: "oracle"}, ErrInvalidConfig, false},
		// Nothing listens on port 1, the ping fails fast.
		{"MySQLUnreachable", Config{Driver: DriverMySQL, Host: "127.0.0.1", Port: 1, User: "root", Name: "syncstore", Timeout: time.Second}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := Connect(tt.cfg)
			if tt.ok {
				require.NoError(t, err)
				assert.NotNil(t, db)
				return
			}
			assert.Error(t, err)
			assert.Nil(t, db)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 3307, User: "sync", Password: "p@ss:word", Name: "cache", Timeout: 5 * time.Second}

	parsed, err := gomysql.ParseDSN(cfg.DSN())
	require.NoError(t, err)
	assert.Equal(t, "sync", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.Equal(t, "db:3307", parsed.Addr)
	assert.Equal(t, "cache", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, 5*time.Second, parsed.ReadTimeout)
	assert.Equal(t, "utf8mb4", parsed.Params["charset"])
}

func TestConfig_IsMemory(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"Memory", Config{Driver: DriverSQLite, Name: ":memory:"}, true},
		{"Empty", Config{Driver: DriverSQLite}, true},
		{"SharedMemory", Config{Driver: DriverSQLite, Name: "file:x?mode=memory&cache=shared"}, true},
		{"File", Config{Driver: DriverSQLite, Name: "/tmp/store.db"}, false},
		{"MySQL", Config{Driver: DriverMySQL, Name: ":memory:"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.IsMemory())
		})
	}
}
