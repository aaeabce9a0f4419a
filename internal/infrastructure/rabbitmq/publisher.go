package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-booking/internal/domain/reservation"
	"github.com/sanosuguru/go-seat-booking/internal/pkg/logger"
)

const (
	ExchangeName = "bookings"
	ExchangeKind = "topic"

	publishTimeout = 5 * time.Second
	drainTimeout   = 5 * time.Second

	defaultQueueSize   = 256
	maxPublishAttempts = 3
	initialBackoff     = 200 * time.Millisecond
)

var (
	// ErrQueueFull は送信待ちが上限に達したとき返す。通知は捨てられる
	ErrQueueFull = errors.New("予約通知の送信待ちが満杯です")
	// ErrPublisherClosed は Close 後の Notify で返す
	ErrPublisherClosed = errors.New("予約通知の送信は停止しています")
)

// channel は Publisher が使う amqp.Channel のメソッド
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// session は1本の接続とチャネル
// closed はブローカー側で閉じられたときに通知される
type session struct {
	ch     channel
	closed <-chan *amqp.Error
	close  func()
}

type dialFunc func() (*session, error)

type outgoing struct {
	key string
	msg amqp.Publishing
}

// Publisher は予約通知を topic exchange に送る
// ルーティングキーは通知種別（reservation.reserved / reservation.cancelled）
// Notify はキューに積むだけで、送信と再接続は1つのワーカーが行う
type Publisher struct {
	dial    dialFunc
	queue   chan outgoing
	done    chan struct{}
	backoff time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool

	// ワーカーだけが触る
	sess *session
}

// NewPublisher はブローカーに接続し exchange を宣言して送信ワーカーを起動する
// 初回接続に失敗したらエラーを返す
func NewPublisher(url string) (*Publisher, error) {
	dial := dialer(url)
	sess, err := dial()
	if err != nil {
		return nil, err
	}

	p := newPublisher(dial, defaultQueueSize, initialBackoff)
	p.sess = sess
	p.start()
	return p, nil
}

func newPublisher(dial dialFunc, queueSize int, backoff time.Duration) *Publisher {
	return &Publisher{
		dial:    dial,
		queue:   make(chan outgoing, queueSize),
		done:    make(chan struct{}),
		backoff: backoff,
		logger:  logger.Get(),
	}
}

func (p *Publisher) start() {
	go p.run()
}

func dialer(url string) dialFunc {
	return func() (*session, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, fmt.Errorf("RabbitMQ接続に失敗しました: %w", err)
		}

		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("RabbitMQチャネル作成に失敗しました: %w", err)
		}

		if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("exchange宣言に失敗しました: %w", err)
		}

		return &session{
			ch:     ch,
			closed: ch.NotifyClose(make(chan *amqp.Error, 1)),
			close: func() {
				ch.Close()
				conn.Close()
			},
		}, nil
	}
}

// Notify は reservation.Notifier を実装する
// 送信待ちに積むだけでブロックしない。満杯なら ErrQueueFull
func (p *Publisher) Notify(ctx context.Context, n reservation.Notification) error {
	msg, err := buildPublishing(n)
	if err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	select {
	case p.queue <- outgoing{key: n.Type, msg: msg}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close は新しい通知の受け付けを止め、送信待ちを流してから接続を閉じる
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	select {
	case <-p.done:
	case <-time.After(drainTimeout):
		p.logger.Warn("予約通知の送信待ちを流しきれずに終了します", zap.Int("pending", len(p.queue)))
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for out := range p.queue {
		p.publish(out)
	}
	p.dropSession()
}

// publish は失敗したら接続を張り直して数回まで再送する
func (p *Publisher) publish(out outgoing) {
	backoff := p.backoff
	var lastErr error
	for attempt := 1; attempt <= maxPublishAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(backoff)
			backoff *= 2
		}

		sess, err := p.session()
		if err != nil {
			lastErr = err
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err = sess.ch.PublishWithContext(ctx, ExchangeName, out.key, false, false, out.msg)
		cancel()
		if err == nil {
			p.logger.Debug("予約通知を送信しました",
				zap.String("routing_key", out.key),
				zap.String("message_id", out.msg.MessageId),
			)
			return
		}
		lastErr = fmt.Errorf("予約通知の送信に失敗: %w", err)
		p.dropSession()
	}

	p.logger.Error("予約通知を破棄しました",
		zap.String("routing_key", out.key),
		zap.String("message_id", out.msg.MessageId),
		zap.Error(lastErr),
	)
}

// session は使える接続を返す。ブローカーに閉じられていたら張り直す
func (p *Publisher) session() (*session, error) {
	if p.sess != nil {
		select {
		case amqpErr := <-p.sess.closed:
			p.logger.Warn("RabbitMQチャネルが閉じられたため再接続します", zap.Any("reason", amqpErr))
			p.dropSession()
		default:
			return p.sess, nil
		}
	}

	sess, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.sess = sess
	return sess, nil
}

func (p *Publisher) dropSession() {
	if p.sess != nil {
		p.sess.close()
		p.sess = nil
	}
}

func buildPublishing(n reservation.Notification) (amqp.Publishing, error) {
	if n.Type == "" {
		return amqp.Publishing{}, fmt.Errorf("通知種別が空です")
	}
	body, err := json.Marshal(n)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("通知のシリアライズに失敗: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.ReservationID + ":" + n.OccurredAt.UTC().Format(time.RFC3339Nano),
		Timestamp:    n.OccurredAt.UTC(),
		Type:         n.Type,
		Body:         body,
	}, nil
}

var _ reservation.Notifier = (*Publisher)(nil)
