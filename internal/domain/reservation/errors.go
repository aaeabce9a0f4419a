package reservation

import "errors"

// Reservation ドメインのエラー定義
var (
	ErrReservationNotFound = errors.New("有効な予約が見つかりません")
	ErrAlreadyReserved     = errors.New("このイベントは既に予約済みです")
	ErrUserIDRequired      = errors.New("ユーザーIDは必須です")
	ErrEventIDRequired     = errors.New("イベントIDは必須です")
)
