package transaction

import (
	"context"
	"errors"
	"fmt"
)

// ErrTransient はストレージ起因の一時的な失敗を表す
// (接続断、シリアライズ競合、コミット失敗など)。リトライ方針は呼び出し側が決める
var ErrTransient = errors.New("一時的なストレージエラーが発生しました")

// Tx はトランザクションを表すインターフェース
// ドメイン層がインフラ層（sqlx等）に依存しないようにするための抽象化
type Tx interface {
	// Commit はトランザクションをコミットする
	Commit() error
	// Rollback はトランザクションをロールバックする
	Rollback() error
}

// Manager はトランザクションを管理するインターフェース
type Manager interface {
	// Begin は新しいトランザクションを開始する
	Begin(ctx context.Context) (Tx, error)
}

// Transient は err を ErrTransient でラップする。nil はそのまま返す
func Transient(err error) error {
	if err == nil || errors.Is(err, ErrTransient) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// IsTransient は err が一時的な失敗かを返す
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
