package rdb

import (
	"database/sql"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/elvinchan/dbfixture"
	"go.mongodb.org/mongo-driver/bson"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type rdb struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	option *dbfixture.Options
}

type DriverType int

const (
	DriverSqlite3 DriverType = iota
	DriverMySQL
	DriverPostgres
)

// slogWriter feeds gorm's logger into slog.
type slogWriter struct {
	l *slog.Logger
}

func (w slogWriter) Printf(format string, args ...interface{}) {
	w.l.Debug(fmt.Sprintf(format, args...), "component", "gorm")
}

// NewDriver opens a relational database where every table is a fixture
// collection.
func NewDriver(driver DriverType, dsn string, opts ...dbfixture.Option,
) (dbfixture.Driver, error) {
	o := dbfixture.InitOptions()
	for _, opt := range opts {
		opt(o)
	}
	logLevel := logger.Silent
	if o.Debug {
		logLevel = logger.Info
	}
	gormLogger := logger.New(
		slogWriter{o.Logger},
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
		},
	)
	var gormDialer gorm.Dialector
	switch driver {
	case DriverSqlite3:
		gormDialer = sqlite.Open(dsn)
	case DriverMySQL:
		gormDialer = mysql.Open(dsn)
	case DriverPostgres:
		gormDialer = postgres.Open(dsn)
	default:
		return nil, dbfixture.ErrUnsupportedDriver
	}
	db, err := gorm.Open(gormDialer, &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver == DriverSqlite3 {
		// sqlite allows a single writer, concurrent deletes would fail
		// with "database is locked"
		sqlDB.SetMaxOpenConns(1)
	}
	return &rdb{
		db:     db,
		sqlDB:  sqlDB,
		option: o,
	}, nil
}

func (g *rdb) Truncate(tables []string) error {
	return dbfixture.TruncateAll(tables, g.deleteAll, g.option)
}

func (g *rdb) deleteAll(table string) (dbfixture.Outcome, error) {
	res := g.db.Exec("DELETE FROM ?", clause.Table{Name: table})
	if res.Error != nil {
		return dbfixture.Outcome{}, res.Error
	}
	g.option.Logger.Debug("truncated table",
		"table", table, "deleted", res.RowsAffected)
	return dbfixture.Outcome{Acknowledged: true, Count: res.RowsAffected}, nil
}

func (g *rdb) InsertFixtures(table string, docs []interface{}) error {
	if len(docs) == 0 {
		return nil
	}
	rows, err := toRows(docs)
	if err != nil {
		return err
	}
	res := g.db.Table(table).Create(rows)
	if res.Error != nil {
		return res.Error
	}
	g.option.Logger.Debug("inserted fixtures",
		"table", table, "inserted", res.RowsAffected)
	return dbfixture.CheckInsert(table, dbfixture.Outcome{
		Acknowledged: res.RowsAffected == int64(len(rows)),
		Count:        res.RowsAffected,
	})
}

func (g *rdb) Close() error {
	return g.sqlDB.Close()
}

// toRows converts fixture documents to column maps, the only row shape
// gorm can insert without a model. Any map keyed by strings is accepted,
// bson.D keeps its last value for a repeated key.
func toRows(docs []interface{}) ([]map[string]interface{}, error) {
	rows := make([]map[string]interface{}, 0, len(docs))
	for i, doc := range docs {
		switch v := doc.(type) {
		case map[string]interface{}:
			rows = append(rows, v)
		case bson.M:
			rows = append(rows, map[string]interface{}(v))
		case bson.D:
			row := make(map[string]interface{}, len(v))
			for _, e := range v {
				row[e.Key] = e.Value
			}
			rows = append(rows, row)
		default:
			rv := reflect.ValueOf(doc)
			if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
				return nil, fmt.Errorf("%w: document %d is %T, want a map",
					dbfixture.ErrInvalidDocument, i, doc)
			}
			row := make(map[string]interface{}, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				row[iter.Key().String()] = iter.Value().Interface()
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}
