package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"vmctl/internal/core"
	"vmctl/internal/storage"
)

var (
	errNotSucceeded    = errors.New("operation reported failure")
	errHistoryDisabled = errors.New("history is disabled: sqlite.path is empty")
)

// HistorySource источник истории команд.
type HistorySource interface {
	QueryAudit(ctx context.Context, q storage.AuditQuery) ([]storage.AuditEvent, error)
}

// Env зависимости команд, собранные по конфигу.
type Env struct {
	Registry *core.Registry
	// History может быть nil, если история отключена.
	History HistorySource
	// Progress опрашивает ход импорта/экспорта напрямую, минуя аудит.
	Progress     func(ctx context.Context, handle string) (int, error)
	PollInterval time.Duration
}

// Loader строит Env по пути к конфигу ("" = путь по умолчанию).
// Освобождение ресурсов Env остается на вызывающем.
type Loader func(ctx context.Context, configPath string) (*Env, error)

type state struct {
	load       Loader
	version    string
	configPath string
	machine    bool
	env        *Env
}

// New создает корневую CLI-команду.
func New(load Loader, version string) *cobra.Command {
	s := &state{load: load, version: version}
	root := &cobra.Command{
		Use:           "vmctl",
		Short:         "Управление виртуальными машинами Veertu",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().BoolVar(&s.machine, "machine-readable", false, "вывод в JSON")
	root.PersistentFlags().StringVar(&s.configPath, "config", "", "путь к config.yaml")

	root.AddCommand(
		newVersionCmd(s),
		newListCmd(s),
		newShowCmd(s),
		newDescribeCmd(s),
		newPowerCmd(s, "start", "Запустить ВМ"),
		newPowerCmd(s, "pause", "Приостановить ВМ"),
		newPowerCmd(s, "shutdown", "Выключить ВМ"),
		newPowerCmd(s, "reboot", "Перезагрузить ВМ"),
		newDeleteCmd(s),
		newExportCmd(s),
		newImportCmd(s),
		newCreateCmd(s),
		newModifyCmd(s),
		newHostCmd(s),
		newHistoryCmd(s),
	)
	return root
}

type envelope struct {
	Status  string `json:"status"`
	Body    any    `json:"body,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// emit печатает успешный результат: JSON-конверт или человекочитаемый вид.
func (s *state) emit(cmd *cobra.Command, body any, human func(w io.Writer) error) error {
	if s.machine {
		return writeJSON(cmd.OutOrStdout(), envelope{Status: "OK", Body: body})
	}
	return human(cmd.OutOrStdout())
}

// fail печатает конверт ошибки в машинном режиме и возвращает err для кода выхода.
func (s *state) fail(cmd *cobra.Command, code string, err error) error {
	if s.machine {
		if werr := writeJSON(cmd.OutOrStdout(), envelope{Status: "ERROR", Message: err.Error(), Code: code}); werr != nil {
			return errors.Join(err, werr)
		}
	}
	return err
}

// environment загружает Env при первом обращении; команды без приложения его не трогают.
func (s *state) environment(cmd *cobra.Command) (*Env, error) {
	if s.env != nil {
		return s.env, nil
	}
	env, err := s.load(cmd.Context(), s.configPath)
	if err != nil {
		return nil, s.fail(cmd, "config_error", fmt.Errorf("load environment: %w", err))
	}
	s.env = env
	return env, nil
}

// exec выполняет команду модуля через реестр.
func (s *state) exec(cmd *cobra.Command, module, command string, args ...string) (any, error) {
	env, err := s.environment(cmd)
	if err != nil {
		return nil, err
	}
	resp, err := env.Registry.Execute(cmd.Context(), module, command, args)
	if err != nil {
		return nil, s.fail(cmd, resp.ErrorCode, err)
	}
	if resp.Status == "error" {
		err = fmt.Errorf("%s %s: %s", module, command, resp.ErrorCode)
		return nil, s.fail(cmd, resp.ErrorCode, err)
	}
	return resp.Data, nil
}

func opt(key, value string) string {
	return key + "=" + value
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func header(keys []string) string {
	cols := make([]string, len(keys))
	for i, k := range keys {
		cols[i] = strings.ToUpper(strings.ReplaceAll(k, " ", "_"))
	}
	return strings.Join(cols, "\t")
}

func succeeded(data any) bool {
	m, ok := data.(map[string]any)
	if !ok {
		return false
	}
	v, _ := m["success"].(bool)
	return v
}

func field(data any, key string) string {
	m, ok := data.(map[string]any)
	if !ok {
		return ""
	}
	if v, ok := m[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}
