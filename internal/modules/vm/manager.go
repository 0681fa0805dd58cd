// Package vm управляет виртуальными машинами через скриптовый интерфейс приложения.
package vm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"vmctl/internal/dispatch"
	"vmctl/internal/projection"
	"vmctl/internal/script"
)

// AppSelector транспорт, которому можно сменить целевое приложение.
type AppSelector interface {
	SetApp(app string)
}

// Manager операции над ВМ поверх dispatch.Dispatcher.
type Manager struct {
	d    *dispatch.Dispatcher
	host CapacityProbe
	log  *slog.Logger
}

// NewManager создает менеджер. host может быть nil: тогда лимиты узла не проверяются.
func NewManager(d *dispatch.Dispatcher, host CapacityProbe, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{d: d, host: host, log: log}
}

// ShowOptions какие поля show запрашивать.
type ShowOptions struct {
	State          bool
	IP             bool
	PortForwarding bool
}

// ImportOptions необязательные параметры импорта и создания ВМ.
type ImportOptions struct {
	Name     string
	OSFamily string
	OSType   string
}

func (m *Manager) flag(ctx context.Context, id string, tpl script.Template, args ...any) (bool, error) {
	return dispatch.Typed[bool](ctx, m.d, dispatch.Request{Template: tpl, Args: args, Identifier: id, Decode: dispatch.Bool()})
}

// Connect выбирает приложение: явно заданное или первое из кандидатов, ответившее на version.
func (m *Manager) Connect(ctx context.Context, sel AppSelector, name string, candidates []string) (string, error) {
	options := candidates
	if name != "" {
		options = []string{name}
	}
	for _, app := range options {
		if sel != nil {
			sel.SetApp(app)
		}
		if _, err := m.Version(ctx); err == nil {
			m.log.Debug("hypervisor app selected", "app", app)
			return app, nil
		}
	}
	return "", fmt.Errorf("tried %q: %w", options, ErrAppNotFound)
}

// Version возвращает версию приложения.
func (m *Manager) Version(ctx context.Context) (string, error) {
	v, err := dispatch.Typed[string](ctx, m.d, dispatch.Request{Template: tplVersion})
	if err != nil {
		if errors.Is(err, script.ErrTransport) {
			return "", fmt.Errorf("could not get version: %w: %w", ErrAppNotFound, err)
		}
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("empty version: %w", ErrAppNotFound)
	}
	return v, nil
}

// List возвращает id и имена всех ВМ.
func (m *Manager) List(ctx context.Context) (projection.RecordSet, error) {
	return m.d.Catalog(ctx)
}

// Show возвращает сводку ВМ.
func (m *Manager) Show(ctx context.Context, id string, opts ShowOptions) (projection.Record, error) {
	p := vmInfoFields.With("status", opts.State).With("ip", opts.IP)
	rec, err := dispatch.Typed[projection.Record](ctx, m.d, dispatch.Request{
		Template:   tplGet,
		Args:       []any{projection.Encode(p), id},
		Identifier: id,
		Decode:     dispatch.One(p),
	})
	if err != nil {
		return projection.Record{}, err
	}
	if opts.PortForwarding {
		rules, err := m.PortForwarding(ctx, rec.String("id"))
		if err != nil {
			return projection.Record{}, err
		}
		rec.Set("port_forwarding", rules)
	}
	return rec, nil
}

// PortForwarding возвращает правила проброса портов с описаниями.
// id должен быть уже разрешенным идентификатором.
func (m *Manager) PortForwarding(ctx context.Context, id string) (projection.RecordSet, error) {
	rules, err := dispatch.Typed[projection.RecordSet](ctx, m.d, dispatch.Request{
		Template: tplPortForwarding,
		Args:     []any{projection.Encode(pfFields), id},
		Decode:   dispatch.List(pfFields),
	})
	if err != nil {
		return nil, fmt.Errorf("port forwarding of %s: %w", id, err)
	}
	for i := range rules {
		desc, err := dispatch.Typed[string](ctx, m.d, dispatch.Request{
			Template: tplPFDescription,
			Args:     []any{rules[i].String("name"), id},
			Decode:   dispatch.Text(),
		})
		if err != nil {
			return nil, fmt.Errorf("description of rule %s: %w", rules[i].String("name"), err)
		}
		rules[i].Set("description", desc)
	}
	return rules, nil
}

// Start запускает или возобновляет ВМ; restart перезагружает ее.
func (m *Manager) Start(ctx context.Context, id string, restart bool) (bool, error) {
	if restart {
		return m.Reboot(ctx, id, false)
	}
	return m.flag(ctx, id, tplStart, id)
}

// Pause приостанавливает ВМ.
func (m *Manager) Pause(ctx context.Context, id string) (bool, error) {
	return m.flag(ctx, id, tplSuspend, id)
}

// Shutdown выключает ВМ.
func (m *Manager) Shutdown(ctx context.Context, id string, force bool) (bool, error) {
	if force {
		return m.flag(ctx, id, tplForceShutdown, id)
	}
	return m.flag(ctx, id, tplShutdown, id)
}

// Reboot перезагружает ВМ. force = принудительное выключение и запуск.
func (m *Manager) Reboot(ctx context.Context, id string, force bool) (bool, error) {
	if force {
		if _, err := m.Shutdown(ctx, id, true); err != nil {
			return false, err
		}
		return m.Start(ctx, id, false)
	}
	return m.flag(ctx, id, tplRestart, id)
}

// Delete удаляет ВМ.
func (m *Manager) Delete(ctx context.Context, id string) (bool, error) {
	return m.flag(ctx, id, tplDelete, id)
}

// ExportPath дописывает расширение формата, если у файла его нет.
func ExportPath(file, format string) string {
	dir, name := filepath.Split(file)
	if !strings.Contains(name, ".") {
		name += "." + format
	}
	return filepath.Join(dir, name)
}

// Export запускает экспорт и возвращает handle операции ("" если приложение отказало).
func (m *Manager) Export(ctx context.Context, id, file, format string) (string, error) {
	if file == "" {
		return "", ErrNoOutputFile
	}
	if format == "" {
		format = "box"
	}
	if !oneOf(format, ExportFormats) {
		return "", fmt.Errorf("format %q: %w", format, ErrInvalidArgument)
	}
	return dispatch.Typed[string](ctx, m.d, dispatch.Request{
		Template:   tplExport,
		Args:       []any{id, ExportPath(file, format), format},
		Identifier: id,
		Decode:     dispatch.Text(),
	})
}

// Import запускает импорт и возвращает handle операции.
func (m *Manager) Import(ctx context.Context, file string, opts ImportOptions) (string, error) {
	name := opts.Name
	if name == "" {
		name = NameFromPath(file)
	}
	format := tplImportBase
	args := []any{file, name}
	if opts.OSType != "" {
		format += tplImportOS
		args = append(args, opts.OSType)
	}
	if opts.OSFamily != "" {
		format += tplImportFamily
		args = append(args, opts.OSFamily)
	}
	tpl, err := script.Parse(format)
	if err != nil {
		return "", err
	}
	return dispatch.Typed[string](ctx, m.d, dispatch.Request{Template: tpl, Args: args, Decode: dispatch.Text()})
}

// Create создает ВМ из образа и возвращает ее uuid ("" если приложение ответило false).
func (m *Manager) Create(ctx context.Context, file string, opts ImportOptions) (string, error) {
	name := opts.Name
	if name == "" {
		name = NameFromPath(file)
	}
	tokens, err := dispatch.Typed[[]string](ctx, m.d, dispatch.Request{
		Template: tplCreate,
		Args:     []any{file, name, opts.OSType, opts.OSFamily},
		Decode:   dispatch.Tokens(),
	})
	if err != nil {
		return "", err
	}
	if len(tokens) == 0 {
		return "", nil
	}
	last := tokens[len(tokens)-1]
	if last == "false" {
		return "", nil
	}
	return last, nil
}

// Progress возвращает прогресс операции в процентах (100 или 200 = завершено).
func (m *Manager) Progress(ctx context.Context, handle string) (int, error) {
	n, err := dispatch.Typed[int](ctx, m.d, dispatch.Request{
		Template: tplProgress,
		Args:     []any{handle},
		Decode:   dispatch.Progress(),
	})
	if err != nil {
		if errors.Is(err, projection.ErrNumericDecoding) {
			return 0, fmt.Errorf("%w: %w", ErrImportExportAbort, err)
		}
		return 0, err
	}
	return n, nil
}

// AddPortForwarding добавляет правило проброса порта.
func (m *Manager) AddPortForwarding(ctx context.Context, id string, rule PortForwardingRule) (bool, error) {
	protocol := rule.Protocol
	if protocol == "" {
		protocol = defaultProtocol
	}
	n, err := dispatch.Typed[int](ctx, m.d, dispatch.Request{
		Template:   tplAddPF,
		Args:       []any{rule.HostIP, protocol, rule.HostPort, id, rule.GuestPort, rule.Name},
		Identifier: id,
		Decode:     dispatch.Int(),
	})
	if err != nil {
		return false, err
	}
	return n != 0, nil
}

// RemovePortForwarding удаляет правило проброса порта.
func (m *Manager) RemovePortForwarding(ctx context.Context, id, rule string) (bool, error) {
	n, err := dispatch.Typed[int](ctx, m.d, dispatch.Request{
		Template:   tplRemovePF,
		Args:       []any{rule, id},
		Identifier: id,
		Decode:     dispatch.Int(),
	})
	if err != nil {
		return false, err
	}
	return n != 0, nil
}

// AddNetworkCard добавляет сетевую карту.
func (m *Manager) AddNetworkCard(ctx context.Context, id, connection, model string) (bool, error) {
	if connection == "" {
		connection = NetworkTypes[0]
	}
	if model == "" {
		model = NetworkModels[0]
	}
	if !oneOf(connection, NetworkTypes) || !oneOf(model, NetworkModels) {
		return false, fmt.Errorf("network card %s/%s: %w", connection, model, ErrInvalidArgument)
	}
	return m.flag(ctx, id, tplAddNetCard, id, connection, model)
}

// DeleteNetworkCard удаляет сетевую карту по индексу.
func (m *Manager) DeleteNetworkCard(ctx context.Context, id string, index int) (bool, error) {
	return m.flag(ctx, id, tplDelNetCard, id, index)
}

// Property читает одно свойство секции без резолвинга имени.
func (m *Manager) Property(ctx context.Context, id, property, section string) (string, error) {
	return dispatch.Typed[string](ctx, m.d, dispatch.Request{
		Template: tplGetProp,
		Args:     []any{property, section, id},
		Decode:   dispatch.Text(),
	})
}

// PortForwardingRule параметры нового правила.
type PortForwardingRule struct {
	Name      string
	HostIP    string
	HostPort  int
	GuestPort int
	Protocol  string
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
