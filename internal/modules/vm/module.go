package vm

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"vmctl/internal/core"
)

// Module адаптирует Manager к core.CommandProvider.
// Аргументы: позиционные значения и необязательные пары key=value.
type Module struct {
	mgr        *Manager
	sel        AppSelector
	app        string
	candidates []string

	mu        sync.Mutex
	connected string
}

// NewModule создает модуль. Приложение выбирается при первой команде.
func NewModule(mgr *Manager, sel AppSelector, app string, candidates []string) *Module {
	return &Module{mgr: mgr, sel: sel, app: app, candidates: candidates}
}

func (m *Module) Name() string { return "vm" }

func (m *Module) Init(ctx context.Context) error { //nolint:revive // подключение к приложению ленивое
	return nil
}

// App возвращает выбранное приложение или "" до первого подключения.
func (m *Module) App() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *Module) connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connected != "" {
		return nil
	}
	app, err := m.mgr.Connect(ctx, m.sel, m.app, m.candidates)
	if err != nil {
		return err
	}
	m.connected = app
	return nil
}

type cmdArgs struct {
	pos  []string
	opts map[string]string
}

func parseArgs(args []string) cmdArgs {
	a := cmdArgs{opts: make(map[string]string)}
	for _, arg := range args {
		if k, v, ok := strings.Cut(arg, "="); ok && k != "" && !strings.ContainsAny(k, " /") {
			a.opts[k] = v
			continue
		}
		a.pos = append(a.pos, arg)
	}
	return a
}

func (a cmdArgs) need(n int) error {
	if len(a.pos) < n {
		return fmt.Errorf("need %d positional arguments, got %d: %w", n, len(a.pos), ErrInvalidArgument)
	}
	return nil
}

func (a cmdArgs) flag(key string) (bool, error) {
	v, ok := a.opts[key]
	if !ok || v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q: %w", key, v, ErrInvalidArgument)
	}
	return b, nil
}

func (a cmdArgs) number(key, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: %w", key, v, ErrInvalidArgument)
	}
	return n, nil
}

// Execute выполняет команду модуля.
func (m *Module) Execute(ctx context.Context, cmd string, args []string) (core.Response, error) {
	if err := m.connect(ctx); err != nil {
		return core.Failed(ErrorCode(err)), err
	}
	data, err := m.run(ctx, cmd, parseArgs(args))
	if err != nil {
		return core.Failed(ErrorCode(err)), err
	}
	return core.OK(data), nil
}

func success(ok bool) map[string]any {
	return map[string]any{"success": ok}
}

func (m *Module) run(ctx context.Context, cmd string, a cmdArgs) (any, error) {
	switch cmd {
	case "version":
		v, err := m.mgr.Version(ctx)
		return map[string]any{"app": m.App(), "version": v}, err
	case "list":
		return m.mgr.List(ctx)
	case "show":
		return m.show(ctx, a)
	case "describe":
		if err := a.need(1); err != nil {
			return nil, err
		}
		return m.mgr.Describe(ctx, a.pos[0])
	case "start", "pause", "shutdown", "reboot", "delete":
		return m.power(ctx, cmd, a)
	case "export":
		if err := a.need(1); err != nil {
			return nil, err
		}
		file := ""
		if len(a.pos) > 1 {
			file = a.pos[1]
		}
		h, err := m.mgr.Export(ctx, a.pos[0], file, a.opts["format"])
		return map[string]any{"handle": h}, err
	case "import", "create":
		return m.load(ctx, cmd, a)
	case "progress":
		if err := a.need(1); err != nil {
			return nil, err
		}
		p, err := m.mgr.Progress(ctx, a.pos[0])
		return map[string]any{"progress": p}, err
	case "set":
		return m.set(ctx, a)
	case "add-pf":
		return m.addPortForwarding(ctx, a)
	case "remove-pf":
		if err := a.need(2); err != nil {
			return nil, err
		}
		ok, err := m.mgr.RemovePortForwarding(ctx, a.pos[0], a.pos[1])
		return success(ok), err
	case "add-nic":
		if err := a.need(1); err != nil {
			return nil, err
		}
		ok, err := m.mgr.AddNetworkCard(ctx, a.pos[0], a.opts["connection"], a.opts["model"])
		return success(ok), err
	case "remove-nic":
		if err := a.need(2); err != nil {
			return nil, err
		}
		idx, err := a.number("index", a.pos[1])
		if err != nil {
			return nil, err
		}
		ok, err := m.mgr.DeleteNetworkCard(ctx, a.pos[0], idx)
		return success(ok), err
	case "property":
		if err := a.need(3); err != nil {
			return nil, err
		}
		v, err := m.mgr.Property(ctx, a.pos[0], a.pos[1], a.pos[2])
		return map[string]any{"value": v}, err
	default:
		return nil, fmt.Errorf("%s: %w", cmd, errUnknownCommand)
	}
}

func (m *Module) show(ctx context.Context, a cmdArgs) (any, error) {
	if err := a.need(1); err != nil {
		return nil, err
	}
	var opts ShowOptions
	var err error
	if opts.State, err = a.flag("state"); err != nil {
		return nil, err
	}
	if opts.IP, err = a.flag("ip"); err != nil {
		return nil, err
	}
	if opts.PortForwarding, err = a.flag("port_forwarding"); err != nil {
		return nil, err
	}
	return m.mgr.Show(ctx, a.pos[0], opts)
}

func (m *Module) power(ctx context.Context, cmd string, a cmdArgs) (any, error) {
	if err := a.need(1); err != nil {
		return nil, err
	}
	id := a.pos[0]
	var (
		ok  bool
		err error
	)
	switch cmd {
	case "start":
		restart, ferr := a.flag("restart")
		if ferr != nil {
			return nil, ferr
		}
		ok, err = m.mgr.Start(ctx, id, restart)
	case "pause":
		ok, err = m.mgr.Pause(ctx, id)
	case "shutdown", "reboot":
		force, ferr := a.flag("force")
		if ferr != nil {
			return nil, ferr
		}
		if cmd == "shutdown" {
			ok, err = m.mgr.Shutdown(ctx, id, force)
		} else {
			ok, err = m.mgr.Reboot(ctx, id, force)
		}
	case "delete":
		ok, err = m.mgr.Delete(ctx, id)
	}
	return success(ok), err
}

func (m *Module) load(ctx context.Context, cmd string, a cmdArgs) (any, error) {
	if err := a.need(1); err != nil {
		return nil, err
	}
	opts := ImportOptions{Name: a.opts["name"], OSType: a.opts["os"], OSFamily: a.opts["os_family"]}
	if cmd == "create" {
		id, err := m.mgr.Create(ctx, a.pos[0], opts)
		return map[string]any{"id": id, "success": id != ""}, err
	}
	h, err := m.mgr.Import(ctx, a.pos[0], opts)
	return map[string]any{"handle": h}, err
}

func (m *Module) set(ctx context.Context, a cmdArgs) (any, error) {
	if err := a.need(1); err != nil {
		return nil, err
	}
	ch := PropertyChanges{
		Name:        a.opts["name"],
		RAM:         a.opts["ram"],
		Network:     a.opts["network"],
		NetworkType: a.opts["network_type"],
	}
	if v, ok := a.opts["headless"]; ok && v != "" {
		b, err := a.flag("headless")
		if err != nil {
			return nil, err
		}
		ch.Headless = &b
	}
	if v := a.opts["cpu"]; v != "" {
		n, err := a.number("cpu", v)
		if err != nil {
			return nil, err
		}
		ch.CPU = n
	}
	return m.mgr.SetProperties(ctx, a.pos[0], ch)
}

func (m *Module) addPortForwarding(ctx context.Context, a cmdArgs) (any, error) {
	if err := a.need(4); err != nil {
		return nil, err
	}
	hostPort, err := a.number("host_port", a.pos[2])
	if err != nil {
		return nil, err
	}
	guestPort, err := a.number("guest_port", a.pos[3])
	if err != nil {
		return nil, err
	}
	ok, err := m.mgr.AddPortForwarding(ctx, a.pos[0], PortForwardingRule{
		Name:      a.pos[1],
		HostIP:    a.opts["host_ip"],
		HostPort:  hostPort,
		GuestPort: guestPort,
		Protocol:  a.opts["protocol"],
	})
	return success(ok), err
}
