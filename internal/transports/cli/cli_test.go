package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"vmctl/internal/app"
	"vmctl/internal/config"
	"vmctl/internal/script/scripttest"
	"vmctl/internal/transports/cli"
)

const catalogCmd = `{id, name} of every vm`

type selector struct{}

func (selector) SetApp(string) {}

type harness struct {
	f   *scripttest.Fake
	cfg config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "history.db")
	cfg.App.Candidates = []string{"Veertu"}
	cfg.Progress.IntervalMS = 1
	f := scripttest.New().
		Reply("version", "2.1").
		Reply(catalogCmd, "abc, web")
	return &harness{f: f, cfg: cfg}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	load := func(ctx context.Context, path string) (*cli.Env, error) {
		a, err := app.NewApp(ctx, h.cfg, app.Options{Invoker: h.f, Selector: selector{}})
		if err != nil {
			return nil, err
		}
		t.Cleanup(func() { _ = a.Close() })
		return a.Env(), nil
	}
	root := cli.New(load, "test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

type envelope struct {
	Status  string          `json:"status"`
	Body    json.RawMessage `json:"body"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

func decode(t *testing.T, out string) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	return env
}

func TestListTable(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "ID") || !strings.Contains(out, "abc  web") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestShowMachineReadableResolvesName(t *testing.T) {
	h := newHarness(t)
	h.f.Reply(`get {id, name, status, ip} of vm id "abc"`, "abc, web, running, 10.0.0.5")

	out, err := h.run(t, "", "show", "web", "--machine-readable")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	env := decode(t, out)
	if env.Status != "OK" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if string(env.Body) == "" || !strings.HasPrefix(strings.TrimSpace(string(env.Body)), `{`) {
		t.Fatalf("unexpected body: %s", env.Body)
	}
	var body map[string]string
	if err := json.Unmarshal(env.Body, &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body["id"] != "abc" || body["ip"] != "10.0.0.5" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestShowStoppedTrimsColumns(t *testing.T) {
	h := newHarness(t)
	h.f.Reply(`get {id, name, status, ip} of vm id "abc"`, "abc, web, stopped, missing value")

	out, err := h.run(t, "", "show", "abc")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if strings.Contains(out, "IP") {
		t.Fatalf("stopped vm must not show ip:\n%s", out)
	}
}

func TestStartReportsFailure(t *testing.T) {
	h := newHarness(t)
	h.f.Reply(`start of vm id "abc"`, "false")

	out, err := h.run(t, "", "start", "abc", "--machine-readable")
	if err == nil {
		t.Fatalf("expected error")
	}
	if env := decode(t, out); env.Status != "ERROR" || env.Code != "operation_failed" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestStartUnknownVM(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "", "start", "ghost", "--machine-readable")
	if err == nil {
		t.Fatalf("expected error")
	}
	if env := decode(t, out); env.Code != "vm_not_found" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestDeleteConfirmation(t *testing.T) {
	h := newHarness(t)
	h.f.Reply(`delete vm id "abc"`, "true")

	out, err := h.run(t, "n\n", "delete", "abc")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if h.f.Count(`delete vm id "abc"`) != 0 {
		t.Fatalf("declined delete must not reach the app")
	}
	if _, err := h.run(t, "", "delete", "abc", "--machine-readable"); err == nil {
		t.Fatalf("machine mode without --yes must fail")
	}
	out, err = h.run(t, "y\n", "delete", "abc")
	if err != nil || !strings.Contains(out, "VM abc successfully deleted") {
		t.Fatalf("delete: %q %v", out, err)
	}
}

func TestDeniedAction(t *testing.T) {
	h := newHarness(t)
	h.cfg.Security.Deny = []string{"vm:delete"}
	h.f.Reply(`delete vm id "abc"`, "true")

	out, err := h.run(t, "", "delete", "abc", "--yes", "--machine-readable")
	if err == nil {
		t.Fatalf("expected denial")
	}
	if env := decode(t, out); env.Code != "access_denied" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if h.f.Count(`delete vm id "abc"`) != 0 {
		t.Fatalf("denied command reached the app")
	}
}

func TestExportDefaultsToVMZ(t *testing.T) {
	h := newHarness(t)
	h.f.Reply(`export vm id "abc" to POSIX file "/tmp/out.vmz" format "vmz"`, "op-1").
		Reply(`get progress of "op-1"`, "1.0")

	out, err := h.run(t, "", "export", "abc", "/tmp/out")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "Export finished successfully") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestExportBoxWaitsForCompletion(t *testing.T) {
	h := newHarness(t)
	h.f.Reply(`export vm id "abc" to POSIX file "/tmp/out.box" format "box"`, "op-1").
		Reply(`get progress of "op-1"`, "2.0")

	out, err := h.run(t, "", "export", "abc", "/tmp/out", "--fmt", "box")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "Export finished successfully") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestGuessNameDoesNotLoadEnvironment(t *testing.T) {
	loads := 0
	load := func(ctx context.Context, path string) (*cli.Env, error) {
		loads++
		return nil, errors.New("broken config")
	}
	root := cli.New(load, "test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"import", "-n", "/img/web.vmz"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("import -n: %v", err)
	}
	if strings.TrimSpace(out.String()) != "web" {
		t.Fatalf("unexpected name %q", out.String())
	}
	if loads != 0 {
		t.Fatalf("environment loaded %d times", loads)
	}
}

func TestBrokenConfigReported(t *testing.T) {
	load := func(ctx context.Context, path string) (*cli.Env, error) {
		return nil, errors.New("broken config")
	}
	root := cli.New(load, "test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"list", "--machine-readable"})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if env := decode(t, out.String()); env.Code != "config_error" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestImportAbortSurfaces(t *testing.T) {
	h := newHarness(t)
	h.f.Reply(`import vm POSIX file "/img/web.vmz" with name "web"`, "op-2").
		Reply(`get progress of "op-2"`, "(null)")

	out, err := h.run(t, "", "import", "/img/web.vmz", "--machine-readable")
	if err == nil {
		t.Fatalf("expected abort")
	}
	if env := decode(t, out); env.Code != "process_failed" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestModifyAddPortForwarding(t *testing.T) {
	h := newHarness(t)
	h.f.Reply(`listen on "" tcp port 8080 forward to vm id "abc" port 80 with name "web"`, "1")

	out, err := h.run(t, "", "modify", "add", "abc", "port_forwarding", "--name", "web", "--host-port", "8080", "--guest-port", "80")
	if err != nil || !strings.Contains(out, "rule added successfully") {
		t.Fatalf("add rule: %q %v", out, err)
	}
}

func TestHistoryRecordsCommands(t *testing.T) {
	h := newHarness(t)
	h.f.Reply(`suspend of vm id "abc"`, "true")

	if _, err := h.run(t, "", "pause", "abc"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	out, err := h.run(t, "", "history", "--machine-readable")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	env := decode(t, out)
	var rows []struct {
		Action string `json:"action"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(env.Body, &rows); err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) == 0 || rows[0].Action != "vm:pause" || rows[0].Status != "ok" {
		t.Fatalf("unexpected history: %+v", rows)
	}
}
