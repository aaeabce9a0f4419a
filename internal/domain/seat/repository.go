package seat

import (
	"context"
	"time"

	"github.com/sanosuguru/go-seat-booking/internal/domain/transaction"
)

// Inventory はイベントごとの座席カウンタを操作するインターフェース
// 更新系はすべて条件付きの単一UPDATEとして実装すること（読み取り→書き込みの2段階にしない）
type Inventory interface {
	// TryDecrement は空席が1以上のときだけ空席数を1減らす（トランザクション必須）
	// 満席またはイベントが存在しない場合は false を返す
	TryDecrement(ctx context.Context, tx transaction.Tx, eventID string, now time.Time) (Counter, bool, error)

	// Increment は空席数を1増やす（トランザクション必須）
	// イベントが存在しない場合は event.ErrEventNotFound を返す
	Increment(ctx context.Context, tx transaction.Tx, eventID string, now time.Time) (Counter, error)

	// Lock はイベント行の排他ロックを取る（トランザクション必須）
	// 予約と取り消しはどちらもイベント行を先にロックし、予約行は後にする
	// イベントが存在しない場合は event.ErrEventNotFound を返す
	Lock(ctx context.Context, tx transaction.Tx, eventID string) error

	// Get は座席カウンタを取得する
	Get(ctx context.Context, eventID string) (Counter, error)

	// Snapshots は座席カウンタとACTIVE予約数を1文で読み出す（監査用）
	Snapshots(ctx context.Context, limit, offset int) ([]Snapshot, error)
}
