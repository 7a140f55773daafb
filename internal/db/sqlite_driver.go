package db

import (
	"database/sql"
	"database/sql/driver"
	"fmt"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
)

const (
	// SQLiteDriverName is the project-specific SQLCipher driver.
	SQLiteDriverName = "sqlite3_wordfeed"
)

func init() {
	sql.Register(SQLiteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			// Pages are read by offset; a temp store in memory keeps ORDER BY scans cheap.
			if _, err := conn.Exec("PRAGMA temp_store = MEMORY", []driver.Value{}); err != nil {
				return fmt.Errorf("set temp_store: %w", err)
			}
			return nil
		},
	})
}
