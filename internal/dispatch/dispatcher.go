// Package dispatch отправляет команды приложению и при неудаче
// один раз повторяет их, заменив отображаемое имя ВМ на ее id.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"vmctl/internal/projection"
	"vmctl/internal/script"
)

var (
	catalogTemplate   = script.MustParse(`{{id, name}} of every vm`)
	catalogProjection = projection.Of("id", "name")
)

// Request описывает один вызов.
// Identifier то, чем вызывающий адресовал ВМ: id или имя. Пустой отключает резолвинг.
type Request struct {
	Template   script.Template
	Args       []any
	Identifier string
	Decode     Decoder
}

// Dispatcher исполняет запросы через Invoker.
type Dispatcher struct {
	invoker script.Invoker
	log     *slog.Logger

	// OnTransition вызывается на каждом переходе состояния.
	OnTransition func(State)
}

// New создает диспетчер.
func New(invoker script.Invoker, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{invoker: invoker, log: log}
}

// Catalog возвращает пары id/name всех ВМ.
func (d *Dispatcher) Catalog(ctx context.Context) (projection.RecordSet, error) {
	cmd, err := catalogTemplate.Format()
	if err != nil {
		return nil, err
	}
	raw, err := d.invoker.Invoke(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("list vms: %w", err)
	}
	return projection.DecodeList(raw, catalogProjection)
}

// Resolve ищет ВМ с отображаемым именем name и возвращает ее id.
func (d *Dispatcher) Resolve(ctx context.Context, name string) (string, error) {
	vms, err := d.Catalog(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", name, err)
	}
	for _, vm := range vms {
		if vm.String("name") == name {
			return vm.String("id"), nil
		}
	}
	return "", &NotFoundError{Identifier: name}
}

// Dispatch форматирует команду, отправляет ее и декодирует ответ.
// При транспортной ошибке выполняется ровно один повтор с id, найденным по имени.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (any, error) {
	dec := req.Decode
	if dec == nil {
		dec = Text()
	}
	command, err := req.Template.Format(req.Args...)
	if err != nil {
		return nil, err
	}

	lg := d.log.With("command", command)
	m := newMachine(func(s State) {
		lg.Debug("dispatch", "state", s.String())
		if d.OnTransition != nil {
			d.OnTransition(s)
		}
	})

	raw, err := d.invoker.Invoke(ctx, command)
	if err == nil {
		return d.decode(m, dec, raw)
	}
	if !errors.Is(err, script.ErrTransport) {
		return nil, d.fail(m, err)
	}
	if terr := m.to(TransportFailed); terr != nil {
		return nil, terr
	}
	if req.Identifier == "" {
		return nil, d.fail(m, err)
	}

	if terr := m.to(Resolving); terr != nil {
		return nil, terr
	}
	id, rerr := d.Resolve(ctx, req.Identifier)
	if rerr != nil {
		if terr := m.to(Unresolved); terr != nil {
			return nil, terr
		}
		return nil, rerr
	}

	retry := strings.ReplaceAll(command, req.Identifier, id)
	if terr := m.to(Retried); terr != nil {
		return nil, terr
	}
	lg.Debug("dispatch retry", "identifier", req.Identifier, "id", id)
	raw, err = d.invoker.Invoke(ctx, retry)
	if err != nil {
		return nil, d.fail(m, err)
	}
	return d.decode(m, dec, raw)
}

func (d *Dispatcher) decode(m *machine, dec Decoder, raw string) (any, error) {
	v, err := dec.Decode(raw)
	if err != nil {
		return nil, d.fail(m, err)
	}
	if terr := m.to(Decoded); terr != nil {
		return nil, terr
	}
	return v, nil
}

func (d *Dispatcher) fail(m *machine, cause error) error {
	if terr := m.to(Failed); terr != nil {
		return errors.Join(cause, terr)
	}
	return cause
}

// Typed вызывает Dispatch и приводит результат к T.
func Typed[T any](ctx context.Context, d *Dispatcher, req Request) (T, error) {
	var zero T
	v, err := d.Dispatch(ctx, req)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %T, want %T", errUnexpectedType, v, zero)
	}
	return t, nil
}
