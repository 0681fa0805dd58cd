package core

import (
	"context"
	"time"
)

// Step одна итерация опроса; done=true завершает опрос.
type Step func(ctx context.Context) (done bool, err error)

// Poll вызывает step сразу и далее с фиксированным интервалом,
// пока step не вернет done, ошибку, или контекст не будет отменен.
// Итерации не перекрываются.
func Poll(ctx context.Context, interval time.Duration, step Step) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		done, err := step(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
