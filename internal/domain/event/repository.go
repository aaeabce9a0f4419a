package event

import "context"

// Repository はイベントカタログのリポジトリ
type Repository interface {
	// Create は新しいイベントを作成する
	Create(ctx context.Context, event *Event) error

	// GetByID はIDからイベントを取得する
	GetByID(ctx context.Context, id string) (*Event, error)

	// List は作成日時の新しい順にイベント一覧を取得する
	List(ctx context.Context, limit, offset int) ([]*Event, error)

	// Count はイベントの総数を返す
	Count(ctx context.Context) (int, error)
}
