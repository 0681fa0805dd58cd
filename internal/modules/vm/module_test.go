package vm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"vmctl/internal/dispatch"
	"vmctl/internal/script/scripttest"
)

type nopSelector struct{ apps []string }

func (s *nopSelector) SetApp(app string) { s.apps = append(s.apps, app) }

func newTestModule(f *scripttest.Fake) (*Module, *nopSelector) {
	sel := &nopSelector{}
	mgr := NewManager(dispatch.New(f, nil), nil, nil)
	return NewModule(mgr, sel, "", []string{"Veertu"}), sel
}

func TestModuleConnectsOnce(t *testing.T) {
	f := scripttest.New().
		Reply("version", "2.1").
		Reply(catalogCmd, "abc, def, web, db")
	mod, sel := newTestModule(f)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		resp, err := mod.Execute(ctx, "list", nil)
		if err != nil || resp.Status != "ok" {
			t.Fatalf("list: %+v %v", resp, err)
		}
	}
	if len(sel.apps) != 1 || mod.App() != "Veertu" {
		t.Fatalf("expected single connect, got %v", sel.apps)
	}
}

func TestModuleAppNotFound(t *testing.T) {
	mod, _ := newTestModule(scripttest.New())
	resp, err := mod.Execute(context.Background(), "list", nil)
	if !errors.Is(err, ErrAppNotFound) || resp.ErrorCode != "app_not_found" {
		t.Fatalf("unexpected: %+v %v", resp, err)
	}
}

func TestModuleParsesOptions(t *testing.T) {
	f := scripttest.New().
		Reply("version", "2.1").
		Reply(`force shutdown of vm id "abc"`, "true").
		Reply(`listen on "" udp port 53 forward to vm id "abc" port 5353 with name "dns"`, "1")
	mod, _ := newTestModule(f)
	ctx := context.Background()

	resp, err := mod.Execute(ctx, "shutdown", []string{"abc", "force=true"})
	if err != nil || resp.Data.(map[string]any)["success"] != true {
		t.Fatalf("shutdown: %+v %v", resp, err)
	}
	resp, err = mod.Execute(ctx, "add-pf", []string{"abc", "dns", "53", "5353", "protocol=udp"})
	if err != nil || resp.Data.(map[string]any)["success"] != true {
		t.Fatalf("add-pf: %+v %v", resp, err)
	}
}

func TestModuleBadArguments(t *testing.T) {
	f := scripttest.New().Reply("version", "2.1")
	mod, _ := newTestModule(f)
	ctx := context.Background()

	cases := []struct {
		cmd  string
		args []string
		code string
	}{
		{"start", nil, "bad_arguments"},
		{"start", []string{"abc", "restart=maybe"}, "bad_arguments"},
		{"remove-nic", []string{"abc", "first"}, "bad_arguments"},
		{"teleport", []string{"abc"}, "unknown_command"},
	}
	for _, tc := range cases {
		resp, err := mod.Execute(ctx, tc.cmd, tc.args)
		if err == nil || resp.ErrorCode != tc.code {
			t.Fatalf("%s %v: got %+v %v", tc.cmd, tc.args, resp, err)
		}
	}
}

func TestErrorCodeContext(t *testing.T) {
	cases := map[error]string{
		fmt.Errorf("osascript: %w", context.DeadlineExceeded): "timeout",
		fmt.Errorf("osascript: %w", context.Canceled):         "canceled",
		dispatch.ErrNotFound:                                   "vm_not_found",
	}
	for err, want := range cases {
		if got := ErrorCode(err); got != want {
			t.Fatalf("ErrorCode(%v) = %q, want %q", err, got, want)
		}
	}
}
