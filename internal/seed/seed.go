package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-booking/internal/application"
	"github.com/sanosuguru/go-seat-booking/internal/domain/event"
	"github.com/sanosuguru/go-seat-booking/internal/pkg/logger"
)

// EventCreator はイベントを作成する
type EventCreator interface {
	CreateEvent(ctx context.Context, input application.CreateEventInput) (*event.Event, error)
}

// Booker は予約と取り消しを行う
type Booker interface {
	Reserve(ctx context.Context, userID, eventID string) (*application.BookingResult, error)
	Cancel(ctx context.Context, userID, eventID string) (*application.BookingResult, error)
}

// Users はサンプルデータのユーザーID
var Users = []string{"alice", "bob", "charlie", "diana"}

var baseEvents = []application.CreateEventInput{
	{
		Name:        "Tech Conference 2026",
		Description: "AI、ブロックチェーン、クラウドの最新動向を扱う年次カンファレンス",
		TotalSeats:  100,
	},
	{
		Name:        "Web Development Workshop",
		Description: "React、Node.js、TypeScript を使ったハンズオンワークショップ",
		TotalSeats:  30,
	},
	{
		Name:        "Startup Networking Event",
		Description: "起業家・投資家と交流するネットワーキングイベント",
		TotalSeats:  50,
	},
	{
		Name:        "AI & Machine Learning Seminar",
		Description: "ニューラルネットワークと LLM の実践セミナー",
		TotalSeats:  75,
	},
	{
		Name:        "Design Thinking Bootcamp",
		Description: "ユーザー中心設計とラピッドプロトタイピングを学ぶブートキャンプ",
		TotalSeats:  25,
	},
}

type booking struct {
	user      string
	event     string
	cancelled bool
}

// 予約は座席カウンタと整合するよう必ず Reserve / Cancel を通す
var bookings = []booking{
	{user: "alice", event: "Tech Conference 2026"},
	{user: "alice", event: "Startup Networking Event"},
	{user: "bob", event: "Web Development Workshop"},
	{user: "bob", event: "AI & Machine Learning Seminar"},
	{user: "bob", event: "Design Thinking Bootcamp", cancelled: true},
	{user: "charlie", event: "Tech Conference 2026"},
}

// Summary は投入結果
type Summary struct {
	Events       int
	Reservations int
	Cancelled    int
}

// Run はサンプルイベントと予約を投入する
// generated 件のページング確認用イベントを追加で作る
func Run(ctx context.Context, events EventCreator, booker Booker, generated int) (*Summary, error) {
	summary := &Summary{}
	ids := make(map[string]string, len(baseEvents))

	for _, input := range baseEvents {
		e, err := events.CreateEvent(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("イベント作成に失敗 (%s): %w", input.Name, err)
		}
		ids[e.Name] = e.ID
		summary.Events++
	}

	for i := 1; i <= generated; i++ {
		input := application.CreateEventInput{
			Name:        fmt.Sprintf("Community Event #%d", i),
			Description: fmt.Sprintf("負荷・ページング確認用の自動生成イベント #%d", i),
			TotalSeats:  40 + (i%6)*10,
		}
		if _, err := events.CreateEvent(ctx, input); err != nil {
			return nil, fmt.Errorf("イベント作成に失敗 (%s): %w", input.Name, err)
		}
		summary.Events++
	}

	for _, b := range bookings {
		eventID := ids[b.event]
		if _, err := booker.Reserve(ctx, b.user, eventID); err != nil {
			return nil, fmt.Errorf("予約に失敗 (%s -> %s): %w", b.user, b.event, err)
		}
		summary.Reservations++
		if !b.cancelled {
			continue
		}
		if _, err := booker.Cancel(ctx, b.user, eventID); err != nil {
			return nil, fmt.Errorf("取り消しに失敗 (%s -> %s): %w", b.user, b.event, err)
		}
		summary.Cancelled++
	}

	logger.Info("サンプルデータ投入完了",
		zap.Int("events", summary.Events),
		zap.Int("reservations", summary.Reservations),
		zap.Int("cancelled", summary.Cancelled),
	)
	return summary, nil
}
