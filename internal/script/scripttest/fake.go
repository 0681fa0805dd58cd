// Package scripttest содержит фейковый Invoker для тестов.
package scripttest

import (
	"context"
	"sync"

	"vmctl/internal/script"
)

// Fake отвечает заранее заданными ответами по точному тексту команды.
// Неизвестная команда завершается ошибкой транспорта, как у osascript.
type Fake struct {
	mu      sync.Mutex
	replies map[string]string
	fails   map[string]bool
	calls   []string
}

// New создает пустой фейк.
func New() *Fake {
	return &Fake{replies: make(map[string]string), fails: make(map[string]bool)}
}

// Reply задает ответ на команду.
func (f *Fake) Reply(command, reply string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[command] = reply
	delete(f.fails, command)
	return f
}

// Fail заставляет команду завершиться ошибкой транспорта.
func (f *Fake) Fail(command string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails[command] = true
	delete(f.replies, command)
	return f
}

// Invoke реализует script.Invoker.
func (f *Fake) Invoke(ctx context.Context, command string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, command)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if reply, ok := f.replies[command]; ok && !f.fails[command] {
		return reply, nil
	}
	return "", &script.ProcessError{Command: command, ExitCode: 1, Stderr: "execution error: can't get vm"}
}

// Calls возвращает копию истории вызовов.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// Count число вызовов конкретной команды.
func (f *Fake) Count(command string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == command {
			n++
		}
	}
	return n
}
