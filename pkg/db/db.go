package db

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"github.com/doodlesbykumbi/ormbundle/pkg/config"
)

// Options holds connection settings shared by all datasources
type Options struct {
	// Logger receives the SQL log; nil discards it
	Logger *zap.Logger
	// Logging enables logging of every statement at debug level
	Logging bool
}

// Connect opens the datasource with the driver of its adapter. Replicas, if
// any, serve reads round robin.
func Connect(ds config.Datasource, opts Options) (*gorm.DB, error) {
	dialector, err := Dialector(ds.Adapter, WithCredentials(ds))
	if err != nil {
		return nil, err
	}

	logMode := logger.Silent
	if opts.Logging {
		logMode = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewQueryLogger(opts.Logger, ds.Name).LogMode(logMode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %s: %w", ds.Name, err)
	}

	if len(ds.Replicas) > 0 {
		replicas := make([]gorm.Dialector, 0, len(ds.Replicas))
		for _, dsn := range ds.Replicas {
			d, err := Dialector(ds.Adapter, WithCredentials(config.Datasource{
				Adapter:  ds.Adapter,
				DSN:      dsn,
				User:     ds.User,
				Password: ds.Password,
			}))
			if err != nil {
				return nil, err
			}
			replicas = append(replicas, d)
		}
		err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RoundRobinPolicy(),
		}))
		if err != nil {
			return nil, fmt.Errorf("failed to register replicas of %s: %w", ds.Name, err)
		}
	}

	return db, nil
}

// Dialector returns the GORM dialector for an adapter.
func Dialector(adapter, dsn string) (gorm.Dialector, error) {
	switch adapter {
	case "postgres":
		return postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true, // disables implicit prepared statement usage
		}), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite://"), "sqlite3://")), nil
	default:
		return nil, fmt.Errorf("unsupported adapter %q", adapter)
	}
}

// WithCredentials returns the DSN of ds with its user and password applied,
// unless the DSN already carries credentials. mysql:// URLs are rewritten to
// the go-sql-driver format.
func WithCredentials(ds config.Datasource) string {
	dsn := ds.DSN
	switch ds.Adapter {
	case "postgres":
		if ds.User == "" {
			return dsn
		}
		if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
			if u.User == nil {
				u.User = userInfo(ds)
			}
			return u.String()
		}
		if !strings.Contains(dsn, "user=") {
			dsn += " user=" + ds.User
			if ds.Password != "" {
				dsn += " password=" + ds.Password
			}
		}
		return strings.TrimSpace(dsn)
	case "mysql":
		if u, err := url.Parse(dsn); err == nil && u.Scheme == "mysql" {
			if u.User == nil && ds.User != "" {
				u.User = userInfo(ds)
			}
			return mysqlDSN(u)
		}
		if ds.User != "" && !strings.Contains(dsn, "@") {
			creds := ds.User
			if ds.Password != "" {
				creds += ":" + ds.Password
			}
			return creds + "@" + dsn
		}
	}
	return dsn
}

func userInfo(ds config.Datasource) *url.Userinfo {
	if ds.Password == "" {
		return url.User(ds.User)
	}
	return url.UserPassword(ds.User, ds.Password)
}

func mysqlDSN(u *url.URL) string {
	var sb strings.Builder
	if u.User != nil {
		sb.WriteString(u.User.Username())
		if p, ok := u.User.Password(); ok {
			sb.WriteString(":" + p)
		}
		sb.WriteString("@")
	}
	host := u.Host
	if u.Port() == "" {
		host += ":3306"
	}
	sb.WriteString("tcp(" + host + ")")
	sb.WriteString(u.Path)
	if u.RawQuery != "" {
		sb.WriteString("?" + u.RawQuery)
	}
	return sb.String()
}
