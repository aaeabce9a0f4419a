package seat

// Counter はイベントごとの座席カウンタ (総座席数, 空席数) を表す
type Counter struct {
	EventID   string
	Total     int
	Available int
}

// Reserved は予約済み座席数を返す
func (c Counter) Reserved() int {
	return c.Total - c.Available
}

// Validate は 0 <= Available <= Total を検証する
func (c Counter) Validate() error {
	if c.Total < 0 || c.Available < 0 || c.Available > c.Total {
		return ErrCounterOutOfRange
	}
	return nil
}

// Snapshot は同一時点で読んだ座席カウンタとACTIVE予約数の組
type Snapshot struct {
	Counter
	ActiveReservations int
}

// Balanced は 空席数 + ACTIVE予約数 = 総座席数 が成り立つかを返す
func (s Snapshot) Balanced() bool {
	return s.Available+s.ActiveReservations == s.Total
}

// Drift は保存則からのずれを返す。正なら空席が多すぎる
func (s Snapshot) Drift() int {
	return s.Available + s.ActiveReservations - s.Total
}
