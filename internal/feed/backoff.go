package feed

import "time"

// backoff produces reconnect delays: initial, doubling up to max. reset
// returns it to the initial delay after a successful connection so one flaky
// stretch does not pin every later reconnect at the cap.
type backoff struct {
	initial time.Duration
	max     time.Duration
	cur     time.Duration
}

func newBackoff(initial, max time.Duration) *backoff {
	return &backoff{initial: initial, max: max}
}

// next returns the delay to wait before the upcoming attempt and grows the
// delay for the one after.
func (b *backoff) next() time.Duration {
	if b.cur == 0 {
		b.cur = b.initial
	}
	d := b.cur
	b.cur *= 2
	if b.cur > b.max {
		b.cur = b.max
	}
	return d
}

func (b *backoff) reset() {
	b.cur = 0
}
