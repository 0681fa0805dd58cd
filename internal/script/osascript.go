package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const (
	defaultBinary  = "osascript"
	defaultTimeout = 30 * time.Second
	maxStderrSize  = 16 * 1024
	// waitDelay сколько ждать закрытия вывода после убийства процесса.
	waitDelay = time.Second
)

// Invoker синхронно исполняет команду и возвращает ответ приложения.
type Invoker interface {
	Invoke(ctx context.Context, command string) (string, error)
}

// OSAScript доставляет команды через `osascript -e 'tell application "<app>" to <command>'`.
// Вызовы сериализуются: приложение обслуживает один скрипт за раз.
type OSAScript struct {
	binary  string
	timeout time.Duration

	mu  sync.Mutex
	app string
}

// NewOSAScript создает транспорт; пустые значения заменяются умолчаниями.
func NewOSAScript(binary, app string, timeout time.Duration) *OSAScript {
	if binary == "" {
		binary = defaultBinary
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OSAScript{binary: binary, app: app, timeout: timeout}
}

// SetApp меняет целевое приложение.
func (o *OSAScript) SetApp(app string) {
	o.mu.Lock()
	o.app = app
	o.mu.Unlock()
}

// App возвращает имя целевого приложения.
func (o *OSAScript) App() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.app
}

// Invoke исполняет одну команду.
func (o *OSAScript) Invoke(ctx context.Context, command string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	src := fmt.Sprintf("tell application %q to %s", o.app, command)
	var stdout bytes.Buffer
	stderr := newTailBuffer(maxStderrSize)

	cmd := exec.CommandContext(runCtx, o.binary, "-e", src) // #nosec G204 -- бинарь задается конфигом оператора.
	cmd.Stdout = &stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		// Тайм-аут и отмена не являются ответом интерпретатора.
		if ctxErr := runCtx.Err(); ctxErr != nil {
			return "", fmt.Errorf("osascript %q: %w", command, ctxErr)
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", fmt.Errorf("run %s: %w", o.binary, err)
		}
		return "", &ProcessError{Command: command, ExitCode: exitErr.ExitCode(), Stderr: stderr.String(), Err: err}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// tailBuffer хранит последние limit байт вывода.
type tailBuffer struct {
	data      []byte
	limit     int
	truncated bool
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	b.data = append(b.data, p...)
	if over := len(b.data) - b.limit; over > 0 {
		b.data = b.data[over:]
		b.truncated = true
	}
	return n, nil
}

func (b *tailBuffer) String() string {
	if b.truncated {
		return "... output truncated ...\n" + string(b.data)
	}
	return string(b.data)
}
