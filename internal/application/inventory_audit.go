package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-booking/internal/domain/seat"
	"github.com/sanosuguru/go-seat-booking/internal/pkg/logger"
)

const auditPageSize = 200

// AuditReport は在庫監査1回分の結果
type AuditReport struct {
	Checked    int
	Imbalanced []seat.Snapshot
}

// InventoryAuditService は 空席数 + ACTIVE予約数 = 総座席数 を全イベントについて確認する
// 読み取り専用で、ずれを見つけても修正はしない
type InventoryAuditService struct {
	inventory seat.Inventory
	pageSize  int
	logger    *zap.Logger
}

func NewInventoryAuditService(inv seat.Inventory) *InventoryAuditService {
	return &InventoryAuditService{inventory: inv, pageSize: auditPageSize, logger: logger.Get()}
}

// Audit は全イベントのスナップショットをページ単位で読み、ずれのあるものを返す
func (s *InventoryAuditService) Audit(ctx context.Context) (*AuditReport, error) {
	report := &AuditReport{}
	for offset := 0; ; offset += s.pageSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		snapshots, err := s.inventory.Snapshots(ctx, s.pageSize, offset)
		if err != nil {
			return report, fmt.Errorf("在庫スナップショット取得に失敗: %w", err)
		}

		for _, snap := range snapshots {
			report.Checked++
			if snap.Balanced() && snap.Validate() == nil {
				continue
			}
			report.Imbalanced = append(report.Imbalanced, snap)
			s.logger.Error("座席数の保存則が崩れています",
				zap.String("event_id", snap.EventID),
				zap.Int("total_seats", snap.Total),
				zap.Int("available_seats", snap.Available),
				zap.Int("active_reservations", snap.ActiveReservations),
				zap.Int("drift", snap.Drift()),
			)
		}

		if len(snapshots) < s.pageSize {
			return report, nil
		}
	}
}
