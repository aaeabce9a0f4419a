package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-booking/internal/application"
	"github.com/sanosuguru/go-seat-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-seat-booking/internal/pkg/metrics"
)

const auditLockKey = "inventory-audit"

// 監査結果（メトリクスのラベル）
const (
	auditSuccess = "success"
	auditSkipped = "skipped"
	auditFailed  = "failed"
)

// Auditor は在庫監査を1回実行するインターフェース
type Auditor interface {
	Audit(ctx context.Context) (*application.AuditReport, error)
}

// Locker は複数インスタンスのうち1つだけが監査するためのロック
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}

// InventoryAuditor は定期的に座席数の保存則を確認するワーカー
type InventoryAuditor struct {
	auditor  Auditor
	locker   Locker
	interval time.Duration
	lockTTL  time.Duration
	metrics  *metrics.Metrics
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewInventoryAuditor は新しいワーカーを作成する。locker が nil なら常に監査する
func NewInventoryAuditor(a Auditor, l Locker, interval, lockTTL time.Duration, m *metrics.Metrics) *InventoryAuditor {
	return &InventoryAuditor{
		auditor:  a,
		locker:   l,
		interval: interval,
		lockTTL:  lockTTL,
		metrics:  m,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start はワーカーを開始する。Stop が呼ばれるか ctx が終わるまで戻らない
func (w *InventoryAuditor) Start(ctx context.Context) {
	logger.Info("在庫監査ワーカー開始",
		zap.Duration("interval", w.interval),
		zap.Bool("leader_lock", w.locker != nil),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("在庫監査ワーカー停止（コンテキストキャンセル）")
			return
		case <-w.stopCh:
			logger.Info("在庫監査ワーカー停止（シグナル受信）")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop はワーカーを停止し、実行中の監査の終了を待つ
func (w *InventoryAuditor) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

// runOnce は1回分の監査を実行し、結果の状態を返す
func (w *InventoryAuditor) runOnce(ctx context.Context) string {
	log := logger.Get()

	if w.locker != nil {
		release, acquired, err := w.locker.TryLock(ctx, auditLockKey, w.lockTTL)
		if err != nil {
			log.Error("監査ロックの取得に失敗", zap.Error(err))
			w.metrics.ObserveAudit(auditFailed, 0)
			return auditFailed
		}
		if !acquired {
			log.Debug("他のインスタンスが監査中のためスキップ")
			w.metrics.ObserveAudit(auditSkipped, 0)
			return auditSkipped
		}
		defer func() {
			if err := release(ctx); err != nil {
				log.Warn("監査ロックの解放に失敗", zap.Error(err))
			}
		}()
	}

	start := time.Now()
	report, err := w.auditor.Audit(ctx)
	if err != nil {
		log.Error("在庫監査に失敗", zap.Error(err))
		w.metrics.ObserveAudit(auditFailed, 0)
		return auditFailed
	}

	w.metrics.ObserveAudit(auditSuccess, len(report.Imbalanced))
	if len(report.Imbalanced) > 0 {
		log.Warn("保存則が崩れたイベントがあります",
			zap.Int("checked", report.Checked),
			zap.Int("imbalanced", len(report.Imbalanced)),
		)
	} else {
		log.Debug("在庫監査完了",
			zap.Int("checked", report.Checked),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return auditSuccess
}
