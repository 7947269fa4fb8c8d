package database

import (
	"net"
	"strconv"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
)

// Config selects the local cache store.
type Config struct {
	Host     string `mapstructure:"host" default:"localhost"`
	Port     int    `mapstructure:"port" default:"3306"`
	User     string `mapstructure:"user" default:"root"`
	Password string `mapstructure:"password" default:""`
	// Name is the schema for mysql and the file path for sqlite, where ":memory:" or an
	// empty name keeps the store in memory.
	Name   string `mapstructure:"name" default:"syncstore"`
	Driver string `mapstructure:"driver" default:"mysql"`
	// Timeout bounds the connection setup and every mysql read and write.
	Timeout time.Duration `mapstructure:"timeout" default:"30s"`
	// SkipMigrate leaves the records table alone; CheckSchema validates it instead.
	SkipMigrate bool `mapstructure:"skip_migrate" default:"false"`
}

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// IsMemory reports whether the configuration points to an in-memory sqlite store.
func (c Config) IsMemory() bool {
	if c.Driver != DriverSQLite {
		return false
	}
	return c.Name == ":memory:" || c.Name == "" || strings.Contains(c.Name, "mode=memory")
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}

// DSN renders the mysql data source name. The driver reads the password up to the
// last @, so it needs no escaping.
func (c Config) DSN() string {
	dc := gomysql.NewConfig()
	dc.User = c.User
	dc.Passwd = c.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	dc.DBName = c.Name
	dc.ParseTime = true
	dc.Loc = time.Local
	dc.Timeout = c.timeout()
	dc.ReadTimeout = c.timeout()
	dc.WriteTimeout = c.timeout()
	dc.Params = map[string]string{"charset": "utf8mb4"}
	return dc.FormatDSN()
}
