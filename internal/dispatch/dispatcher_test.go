package dispatch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"vmctl/internal/projection"
	"vmctl/internal/script"
	"vmctl/internal/script/scripttest"
)

const catalogCmd = `{id, name} of every vm`

var showTemplate = script.MustParse(`get {{id, name}} of vm id "{}"`)

func newTestDispatcher(f *scripttest.Fake) (*Dispatcher, *[]State) {
	d := New(f, nil)
	var states []State
	d.OnTransition = func(s State) { states = append(states, s) }
	return d, &states
}

func TestDispatchDecodesFirstReply(t *testing.T) {
	f := scripttest.New().Reply(`get {id, name} of vm id "abc-123"`, "abc-123, my-vm")
	d, states := newTestDispatcher(f)

	rec, err := Typed[projection.Record](context.Background(), d, Request{
		Template:   showTemplate,
		Args:       []any{"abc-123"},
		Identifier: "abc-123",
		Decode:     One(projection.Of("id", "name")),
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if rec.String("name") != "my-vm" {
		t.Fatalf("unexpected record: %#v", rec)
	}
	if !reflect.DeepEqual(*states, []State{Sent, Decoded}) {
		t.Fatalf("unexpected states: %v", *states)
	}
}

func TestDispatchResolvesNameAndRetriesOnce(t *testing.T) {
	f := scripttest.New().
		Fail(`get {id, name} of vm id "my-vm"`).
		Reply(catalogCmd, "zzz-999, abc-123, other, my-vm").
		Reply(`get {id, name} of vm id "abc-123"`, "abc-123, my-vm")
	d, states := newTestDispatcher(f)

	rec, err := Typed[projection.Record](context.Background(), d, Request{
		Template:   showTemplate,
		Args:       []any{"my-vm"},
		Identifier: "my-vm",
		Decode:     One(projection.Of("id", "name")),
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if rec.String("id") != "abc-123" {
		t.Fatalf("unexpected record: %#v", rec)
	}
	wantCalls := []string{`get {id, name} of vm id "my-vm"`, catalogCmd, `get {id, name} of vm id "abc-123"`}
	if !reflect.DeepEqual(f.Calls(), wantCalls) {
		t.Fatalf("unexpected calls: %q", f.Calls())
	}
	wantStates := []State{Sent, TransportFailed, Resolving, Retried, Decoded}
	if !reflect.DeepEqual(*states, wantStates) {
		t.Fatalf("unexpected states: %v", *states)
	}
}

func TestDispatchReplacesEveryOccurrence(t *testing.T) {
	tpl := script.MustParse(`rename vm id "{}" to name "{}"`)
	f := scripttest.New().
		Reply(catalogCmd, "abc-123, my-vm").
		Reply(`rename vm id "abc-123" to name "abc-123-old"`, "ok")
	d, _ := newTestDispatcher(f)

	got, err := Typed[string](context.Background(), d, Request{
		Template:   tpl,
		Args:       []any{"my-vm", "my-vm-old"},
		Identifier: "my-vm",
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got != "ok" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestDispatchRetryFailurePropagates(t *testing.T) {
	f := scripttest.New().
		Fail(`start of vm id "my-vm"`).
		Reply(catalogCmd, "abc-123, my-vm").
		Fail(`start of vm id "abc-123"`)
	d, states := newTestDispatcher(f)

	_, err := d.Dispatch(context.Background(), Request{
		Template:   script.MustParse(`start of vm id "{}"`),
		Args:       []any{"my-vm"},
		Identifier: "my-vm",
		Decode:     Bool(),
	})
	if !errors.Is(err, script.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if f.Count(`start of vm id "abc-123"`) != 1 {
		t.Fatalf("retry must happen exactly once: %q", f.Calls())
	}
	if len(f.Calls()) != 3 {
		t.Fatalf("unexpected calls: %q", f.Calls())
	}
	wantStates := []State{Sent, TransportFailed, Resolving, Retried, Failed}
	if !reflect.DeepEqual(*states, wantStates) {
		t.Fatalf("unexpected states: %v", *states)
	}
}

func TestDispatchUnknownNameNoRetry(t *testing.T) {
	f := scripttest.New().
		Fail(`pause of vm id "ghost"`).
		Reply(catalogCmd, "abc-123, my-vm")
	d, states := newTestDispatcher(f)

	_, err := d.Dispatch(context.Background(), Request{
		Template:   script.MustParse(`pause of vm id "{}"`),
		Args:       []any{"ghost"},
		Identifier: "ghost",
		Decode:     Bool(),
	})
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Identifier != "ghost" {
		t.Fatalf("expected NotFoundError(ghost), got %v", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !reflect.DeepEqual(f.Calls(), []string{`pause of vm id "ghost"`, catalogCmd}) {
		t.Fatalf("unexpected calls: %q", f.Calls())
	}
	if last := (*states)[len(*states)-1]; last != Unresolved {
		t.Fatalf("expected unresolved, got %v", last)
	}
}

func TestDispatchCatalogFailure(t *testing.T) {
	f := scripttest.New().Fail(`pause of vm id "x"`)
	d, _ := newTestDispatcher(f)
	_, err := d.Dispatch(context.Background(), Request{
		Template:   script.MustParse(`pause of vm id "{}"`),
		Args:       []any{"x"},
		Identifier: "x",
	})
	if !errors.Is(err, script.ErrTransport) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("catalog failure must not look like not found")
	}
}

func TestDispatchDecodeErrorNotRetried(t *testing.T) {
	f := scripttest.New().Reply(`get {id, name} of vm id "a"`, "a, b, c")
	d, states := newTestDispatcher(f)
	_, err := d.Dispatch(context.Background(), Request{
		Template:   showTemplate,
		Args:       []any{"a"},
		Identifier: "a",
		Decode:     One(projection.Of("id", "name")),
	})
	if !errors.Is(err, projection.ErrMalformedReply) {
		t.Fatalf("expected ErrMalformedReply, got %v", err)
	}
	if len(f.Calls()) != 1 {
		t.Fatalf("decode errors must not trigger resolution: %q", f.Calls())
	}
	if !reflect.DeepEqual(*states, []State{Sent, Failed}) {
		t.Fatalf("unexpected states: %v", *states)
	}
}

// countingInvoker отвечает одной и той же ошибкой и считает вызовы.
type countingInvoker struct {
	calls int
	err   error
}

func (c *countingInvoker) Invoke(ctx context.Context, command string) (string, error) {
	c.calls++
	return "", c.err
}

func TestDispatchTimeoutNotResolved(t *testing.T) {
	inv := &countingInvoker{err: fmt.Errorf("osascript: %w", context.DeadlineExceeded)}
	d := New(inv, nil)
	var states []State
	d.OnTransition = func(s State) { states = append(states, s) }

	_, err := d.Dispatch(context.Background(), Request{
		Template:   showTemplate,
		Args:       []any{"my-vm"},
		Identifier: "my-vm",
		Decode:     One(projection.Of("id", "name")),
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("timeout must not look like a missing vm: %v", err)
	}
	if inv.calls != 1 {
		t.Fatalf("expected exactly one call, got %d", inv.calls)
	}
	if !reflect.DeepEqual(states, []State{Sent, Failed}) {
		t.Fatalf("unexpected states: %v", states)
	}
}

func TestDispatchWithoutIdentifier(t *testing.T) {
	f := scripttest.New()
	d, _ := newTestDispatcher(f)
	_, err := d.Dispatch(context.Background(), Request{Template: script.MustParse(`version`)})
	if !errors.Is(err, script.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if len(f.Calls()) != 1 {
		t.Fatalf("unexpected calls: %q", f.Calls())
	}
}

func TestDispatchTemplateErrorBeforeSend(t *testing.T) {
	f := scripttest.New()
	d, _ := newTestDispatcher(f)
	_, err := d.Dispatch(context.Background(), Request{Template: showTemplate})
	if !errors.Is(err, script.ErrArgumentCount) {
		t.Fatalf("expected ErrArgumentCount, got %v", err)
	}
	if len(f.Calls()) != 0 {
		t.Fatalf("nothing must be sent: %q", f.Calls())
	}
}

func TestTypedMismatch(t *testing.T) {
	f := scripttest.New().Reply("version", "1.2.0")
	d, _ := newTestDispatcher(f)
	_, err := Typed[int](context.Background(), d, Request{Template: script.MustParse("version")})
	if !errors.Is(err, errUnexpectedType) {
		t.Fatalf("expected errUnexpectedType, got %v", err)
	}
}

func TestMachineRejectsSecondRetry(t *testing.T) {
	m := newMachine(nil)
	for _, s := range []State{TransportFailed, Resolving, Retried} {
		if err := m.to(s); err != nil {
			t.Fatalf("to %v: %v", s, err)
		}
	}
	if err := m.to(Resolving); !errors.Is(err, errInvalidTransition) {
		t.Fatalf("expected errInvalidTransition, got %v", err)
	}
}
