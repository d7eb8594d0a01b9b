// Package testutil opens throwaway SQLite databases carrying the full schema.
package testutil

import (
	"fmt"
	"time"

	accountDatamodel "github.com/frahmantamala/teamspace/internal/core/datamodel/account"
	conversationDatamodel "github.com/frahmantamala/teamspace/internal/core/datamodel/conversation"
	directoryDatamodel "github.com/frahmantamala/teamspace/internal/core/datamodel/directory"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenSQLite returns an in-memory database migrated with every workspace table.
// The pool is pinned to one connection since each :memory: connection is a separate database.
func OpenSQLite() (*gorm.DB, error) {
	return open(":memory:", 1)
}

// OpenSQLiteFile opens a database file at path that several connections can
// write to at once. Transactions take the write lock at BEGIN and wait for it,
// so concurrent writers queue up instead of failing with SQLITE_BUSY.
func OpenSQLiteFile(path string, conns int) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_txlock=immediate&_journal_mode=WAL", path)
	return open(dsn, conns)
}

func open(dsn string, conns int) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(conns)

	err = db.AutoMigrate(
		&accountDatamodel.Organization{},
		&accountDatamodel.User{},
		&accountDatamodel.Membership{},
		&accountDatamodel.Session{},
		&directoryDatamodel.Department{},
		&directoryDatamodel.Group{},
		&directoryDatamodel.DepartmentMember{},
		&directoryDatamodel.GroupMember{},
		&conversationDatamodel.Thread{},
		&conversationDatamodel.Message{},
		&conversationDatamodel.ReadMark{},
	)
	if err != nil {
		return nil, err
	}
	return db, nil
}
