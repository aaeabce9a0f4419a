package clock

import "time"

// Clock は現在時刻の取得を抽象化する（テストで固定時刻を注入するため）
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem は time.Now を使う Clock を返す
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Fixed は常に同じ時刻を返す Clock。Advance で時刻を進められる
type Fixed struct {
	now time.Time
}

// NewFixed は固定時刻の Clock を返す
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t.UTC()}
}

func (f *Fixed) Now() time.Time {
	return f.now
}

// Advance は時刻を d だけ進める。並行利用は想定しない
func (f *Fixed) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}
