package vm

import (
	"context"
	"fmt"
	"strings"

	"vmctl/internal/dispatch"
	"vmctl/internal/projection"
)

func (m *Manager) fetchSection(ctx context.Context, id string, sec section) (any, error) {
	p := projection.Of(sec.keys...)
	req := dispatch.Request{Identifier: id, Decode: dispatch.One(p)}
	if sec.list {
		req.Decode = dispatch.List(p)
	}
	if len(sec.path) == 0 {
		req.Template = tplGet
		req.Args = []any{projection.Encode(p), id}
	} else {
		parts := make([]string, 0, len(sec.path))
		for _, s := range sec.path {
			parts = append(parts, "of "+s)
		}
		req.Template = tplGetSection
		req.Args = []any{projection.Encode(p), strings.Join(parts, " "), id}
	}
	v, err := m.d.Dispatch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("section %v: %w", sec.path, err)
	}
	return v, nil
}

func (m *Manager) recordSection(ctx context.Context, id string, sec section) (projection.Record, error) {
	v, err := m.fetchSection(ctx, id, sec)
	if err != nil {
		return projection.Record{}, err
	}
	return v.(projection.Record), nil
}

// Describe собирает полное описание ВМ: базовые поля, расширенные и общие настройки, железо.
func (m *Manager) Describe(ctx context.Context, id string) (projection.Record, error) {
	info, err := m.recordSection(ctx, id, secBase)
	if err != nil {
		return projection.Record{}, err
	}
	rid := info.String("id")

	advanced, err := m.recordSection(ctx, rid, secAdvanced)
	if err != nil {
		return projection.Record{}, err
	}
	rules, err := m.PortForwarding(ctx, rid)
	if err != nil {
		return projection.Record{}, err
	}
	advanced.Set("port_forwarding", rules)
	guest, err := m.recordSection(ctx, rid, secGuest)
	if err != nil {
		return projection.Record{}, err
	}
	advanced.Merge(guest)
	info.Set("advanced_settings", advanced)

	general, err := m.recordSection(ctx, rid, secGeneral)
	if err != nil {
		return projection.Record{}, err
	}
	info.Set("general_settings", general)

	hardware, err := m.recordSection(ctx, rid, secHardware)
	if err != nil {
		return projection.Record{}, err
	}
	for _, hl := range hardwareLists {
		v, err := m.fetchSection(ctx, rid, hl.sec)
		if err != nil {
			return projection.Record{}, err
		}
		hardware.Set(hl.name, v)
	}
	info.Set("hardware", hardware)
	return info, nil
}
