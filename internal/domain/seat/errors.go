package seat

import "errors"

// Seat ドメインのエラー定義
var (
	ErrEventFull         = errors.New("イベントは満席です")
	ErrCounterOutOfRange = errors.New("空席数が 0 から総座席数の範囲外になります")
)
