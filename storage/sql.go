// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package storage

import (
	"context"
	"database/sql"
	"strings"

	"github.com/gorse-io/cf/base/log"
	"github.com/gorse-io/cf/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type SQLDriver int

const (
	MySQL SQLDriver = iota
	Postgres
	SQLite
)

func (d SQLDriver) String() string {
	switch d {
	case MySQL:
		return "mysql"
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	}
	return "unknown"
}

// Rating is a row of the ratings table.
type Rating struct {
	UserId string  `gorm:"column:user_id;type:varchar(256) not null;primaryKey"`
	ItemId string  `gorm:"column:item_id;type:varchar(256) not null;primaryKey"`
	Rating float64 `gorm:"column:rating;not null"`
}

// SQLDatabase reads and writes the ratings table of a SQL database.
type SQLDatabase struct {
	TablePrefix
	driver SQLDriver
	client *sql.DB
	gormDB *gorm.DB
}

// Open connects to the database addressed by path. The scheme selects the
// driver: mysql://, postgres://, postgresql:// or sqlite://.
func Open(path, tablePrefix string) (*SQLDatabase, error) {
	database := &SQLDatabase{TablePrefix: TablePrefix(tablePrefix)}
	if err := database.TablePrefix.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	var (
		dialector gorm.Dialector
		err       error
	)
	if strings.HasPrefix(path, MySQLPrefix) {
		name := path[len(MySQLPrefix):]
		if name, err = AppendMySQLParams(name, map[string]string{"parseTime": "true"}); err != nil {
			return nil, errors.Trace(err)
		}
		database.driver = MySQL
		if database.client, err = sql.Open("mysql", name); err != nil {
			return nil, errors.Trace(err)
		}
		dialector = mysql.New(mysql.Config{Conn: database.client})
	} else if strings.HasPrefix(path, PostgresPrefix) || strings.HasPrefix(path, PostgreSQLPrefix) {
		database.driver = Postgres
		if database.client, err = sql.Open("postgres", path); err != nil {
			return nil, errors.Trace(err)
		}
		dialector = postgres.New(postgres.Config{Conn: database.client})
	} else if strings.HasPrefix(path, SQLitePrefix) {
		if path, err = AppendURLParams(path, []lo.Tuple2[string, string]{
			{A: "_pragma", B: "busy_timeout(10000)"},
			{A: "_pragma", B: "journal_mode(wal)"},
		}); err != nil {
			return nil, errors.Trace(err)
		}
		name := path[len(SQLitePrefix):]
		database.driver = SQLite
		if database.client, err = sql.Open("sqlite", name); err != nil {
			return nil, errors.Trace(err)
		}
		// sqlite serializes writers anyway
		database.client.SetMaxOpenConns(1)
		dialector = sqlite.Dialector{Conn: database.client}
	} else {
		return nil, errors.NotSupportedf("database %s", log.RedactDSN(path))
	}
	if database.gormDB, err = gorm.Open(dialector, NewGORMConfig(tablePrefix)); err != nil {
		_ = database.client.Close()
		return nil, errors.Trace(err)
	}
	log.Logger().Info("open rating database",
		zap.String("driver", database.driver.String()),
		zap.String("dsn", log.RedactDSN(path)))
	return database, nil
}

func (d *SQLDatabase) Driver() SQLDriver {
	return d.driver
}

func (d *SQLDatabase) Close() error {
	return d.client.Close()
}

func (d *SQLDatabase) Ping(ctx context.Context) error {
	return errors.Trace(d.client.PingContext(ctx))
}

// Init creates the ratings table if it does not exist.
func (d *SQLDatabase) Init(ctx context.Context) error {
	db := d.gormDB.WithContext(ctx)
	if d.driver == MySQL {
		db = db.Set("gorm:table_options", "ENGINE=InnoDB")
	}
	return errors.Trace(db.AutoMigrate(Rating{}))
}

// BatchInsertRatings writes ratings in one transaction. An existing
// (user, item) row is overwritten. A batch must not repeat a (user, item) pair.
func (d *SQLDatabase) BatchInsertRatings(ctx context.Context, ratings []Rating) error {
	if len(ratings) == 0 {
		return nil
	}
	return errors.Trace(d.gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "item_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating"}),
		}).Create(&ratings).Error
	}))
}

// LoadRatings reads the whole ratings table. Users and items are listed in
// ascending identifier order of first appearance. Identifiers containing the
// composite key separator are rejected.
func (d *SQLDatabase) LoadRatings(ctx context.Context) (*dataset.Table, error) {
	rows, err := d.gormDB.WithContext(ctx).
		Table(d.RatingsTable()).
		Select("user_id, item_id, rating").
		Order("user_id, item_id").
		Rows()
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	table := dataset.NewTable()
	for rows.Next() {
		var rating Rating
		if err = rows.Scan(&rating.UserId, &rating.ItemId, &rating.Rating); err != nil {
			return nil, errors.Trace(err)
		}
		if err = dataset.ValidateIdentifier(rating.UserId); err != nil {
			return nil, errors.Trace(err)
		}
		if err = dataset.ValidateIdentifier(rating.ItemId); err != nil {
			return nil, errors.Trace(err)
		}
		table.Add(rating.UserId, rating.ItemId, rating.Rating)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("load ratings from database",
		zap.Int("n_users", len(table.Users)),
		zap.Int("n_items", len(table.Items)),
		zap.Int("n_ratings", len(table.Ratings)))
	return table, nil
}
