package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/sanosuguru/go-seat-booking/internal/config"
)

// NewConnection は設定されたドライバでデータベースへ接続する
func NewConnection(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return NewSQLite(cfg.SQLitePath)
	case config.DriverPostgres, "":
		return NewPostgres(cfg)
	default:
		return nil, fmt.Errorf("未対応のデータベースドライバです: %s", cfg.Driver)
	}
}

// NewPostgres はPostgreSQLへの接続を作成する
func NewPostgres(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
	}

	// 接続プール設定
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(5)

	return db, nil
}

// NewSQLite はSQLiteへの接続を作成しスキーマを適用する
// 書き込みを直列化するため接続は1本に固定する
func NewSQLite(path string) (*sqlx.DB, error) {
	if path == "" || path == ":memory:" {
		path = "file::memory:"
	}
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
	}
	// modernc のドライバ名は sqlx の既定表にないため明示する
	sqlx.BindDriver("sqlite", sqlx.QUESTION)

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
	}
	if err := applySQLiteSchema(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// TxOptions はドライバに応じたトランザクションオプションを返す
// SQLite は接続が1本なので分離レベルを指定しない
func TxOptions(cfg *config.DatabaseConfig) *sql.TxOptions {
	if strings.EqualFold(cfg.Driver, config.DriverSQLite) {
		return nil
	}
	return cfg.TxOptions()
}

// Ping はデータベース接続を確認する
func Ping(ctx context.Context, db *sqlx.DB) error {
	return db.PingContext(ctx)
}
