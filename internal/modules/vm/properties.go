package vm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"vmctl/internal/dispatch"
	"vmctl/internal/modules/host"
)

// CapacityProbe источник лимитов узла.
type CapacityProbe interface {
	Capacity(ctx context.Context) (host.Capacity, error)
}

// PropertyChanges набор изменений; нулевые значения означают "не менять".
type PropertyChanges struct {
	Headless    *bool
	Name        string
	CPU         int
	RAM         string
	Network     string
	NetworkType string
}

// PropertyOutcome одно изменение и его значение.
type PropertyOutcome struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

// PropertyResult итог пакетного изменения. Создается заново на каждый вызов.
type PropertyResult struct {
	Succeeded []PropertyOutcome `json:"succeeded"`
	Failed    []PropertyOutcome `json:"failed"`
}

func (r *PropertyResult) add(ok bool, property, value string) {
	o := PropertyOutcome{Property: property, Value: value}
	if ok {
		r.Succeeded = append(r.Succeeded, o)
		return
	}
	r.Failed = append(r.Failed, o)
}

var ramPattern = regexp.MustCompile(`(?i)^(\d+)\s*(mb|gb)?$`)

// ParseRAM разбирает объем памяти ("2048", "2048MB", "4GB") в байты. Без единиц: мегабайты.
func ParseRAM(v string) (uint64, error) {
	match := ramPattern.FindStringSubmatch(strings.TrimSpace(v))
	if match == nil {
		return 0, fmt.Errorf("ram %q: %w", v, ErrInvalidArgument)
	}
	unit := "MiB"
	if strings.EqualFold(match[2], "gb") {
		unit = "GiB"
	}
	n, err := humanize.ParseBytes(match[1] + " " + unit)
	if err != nil {
		return 0, fmt.Errorf("ram %q: %w", v, ErrInvalidArgument)
	}
	return n, nil
}

func (m *Manager) checkCapacity(ctx context.Context, ch PropertyChanges) error {
	if ch.CPU < 0 {
		return fmt.Errorf("cpu %d: %w", ch.CPU, ErrInvalidArgument)
	}
	var ram uint64
	if ch.RAM != "" {
		n, err := ParseRAM(ch.RAM)
		if err != nil {
			return err
		}
		ram = n
	}
	if (ch.Network == "") != (ch.NetworkType == "") {
		return fmt.Errorf("network card index and type go together: %w", ErrInvalidArgument)
	}
	if ch.NetworkType != "" && !oneOf(ch.NetworkType, NetworkTypes) {
		return fmt.Errorf("network type %q: %w", ch.NetworkType, ErrInvalidArgument)
	}
	if m.host == nil || (ch.CPU == 0 && ram == 0) {
		return nil
	}
	c, err := m.host.Capacity(ctx)
	if err != nil {
		m.log.Warn("host capacity unavailable, limits not checked", "err", err)
		return nil
	}
	if ch.CPU > c.LogicalCPUs {
		return fmt.Errorf("cpu %d > %d logical cpus: %w", ch.CPU, c.LogicalCPUs, ErrCapacityExceeded)
	}
	if ram > c.MemTotal {
		return fmt.Errorf("ram %s > %s: %w", humanize.IBytes(ram), humanize.IBytes(c.MemTotal), ErrCapacityExceeded)
	}
	return nil
}

// SetProperties применяет изменения по одному и возвращает, какие прошли.
// Переименование выполняется последним, чтобы остальные команды адресовали ВМ по старому имени.
func (m *Manager) SetProperties(ctx context.Context, id string, ch PropertyChanges) (PropertyResult, error) {
	var res PropertyResult
	if err := m.checkCapacity(ctx, ch); err != nil {
		return res, err
	}
	if ch.Headless != nil {
		ok, err := m.SetHeadless(ctx, id, *ch.Headless)
		if err != nil {
			return res, err
		}
		res.add(ok, "headless", strconv.FormatBool(*ch.Headless))
	}
	if ch.CPU > 0 {
		ok, err := m.flag(ctx, id, tplSetProp, "cpu count", id, ch.CPU)
		if err != nil {
			return res, err
		}
		res.add(ok, "cpu", strconv.Itoa(ch.CPU))
	}
	if ch.RAM != "" {
		ok, err := m.flag(ctx, id, tplSetPropText, "ram", id, ch.RAM)
		if err != nil {
			return res, err
		}
		res.add(ok, "ram", ch.RAM)
	}
	if ch.Network != "" && ch.NetworkType != "" {
		ok, err := m.SetNetworkType(ctx, id, ch.Network, ch.NetworkType)
		if err != nil {
			return res, err
		}
		res.add(ok, "network type", ch.NetworkType)
	}
	if ch.Name != "" {
		ok, err := m.Rename(ctx, id, ch.Name)
		if err != nil {
			return res, err
		}
		res.add(ok, "name", ch.Name)
	}
	return res, nil
}

// SetHeadless включает или выключает headless режим.
func (m *Manager) SetHeadless(ctx context.Context, id string, on bool) (bool, error) {
	return m.flag(ctx, id, tplSetHeadless, id, on)
}

// SetNetworkType меняет тип подключения сетевой карты с индексом card.
func (m *Manager) SetNetworkType(ctx context.Context, id, card, connection string) (bool, error) {
	if !oneOf(connection, NetworkTypes) {
		return false, fmt.Errorf("network type %q: %w", connection, ErrInvalidArgument)
	}
	return m.flag(ctx, id, tplSetNetType, id, card, connection)
}

// Rename меняет отображаемое имя ВМ.
func (m *Manager) Rename(ctx context.Context, id, name string) (bool, error) {
	reply, err := dispatch.Typed[string](ctx, m.d, dispatch.Request{
		Template:   tplRename,
		Args:       []any{id, name},
		Identifier: id,
		Decode:     dispatch.Text(),
	})
	if err != nil {
		return false, err
	}
	return reply != "" && !strings.EqualFold(reply, "false"), nil
}
