package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"vmctl/internal/storage"
)

var (
	ErrDenied = errors.New("action denied")

	errProviderExists   = errors.New("provider already registered")
	errUnknownProvider  = errors.New("unknown provider")
	errInvalidArguments = errors.New("invalid arguments")
)

// AuditSink записывает аудиторные события.
type AuditSink interface {
	Write(ctx context.Context, ev storage.AuditEvent) error
}

// Option настраивает Registry.
type Option func(*Registry)

// WithAuthorizer включает проверку доступа перед выполнением.
func WithAuthorizer(a Authorizer) Option {
	return func(r *Registry) { r.authz = a }
}

// WithAudit включает запись истории команд.
func WithAudit(sink AuditSink) Option {
	return func(r *Registry) { r.audit = sink }
}

// WithSubject задает, от чьего имени выполняются команды.
func WithSubject(s Subject) Option {
	return func(r *Registry) { r.subject = s }
}

// WithLogger задает логгер.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// Registry хранит зарегистрированные модули и выполняет команды:
// authz -> module -> audit.
type Registry struct {
	providers map[string]CommandProvider
	authz     Authorizer
	audit     AuditSink
	subject   Subject
	log       *slog.Logger
}

// NewRegistry создает пустой реестр модулей.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		providers: make(map[string]CommandProvider),
		subject:   Subject{Source: "cli"},
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register добавляет модуль; имя должно быть уникальным.
func (r *Registry) Register(ctx context.Context, provider CommandProvider) error {
	if provider == nil {
		return fmt.Errorf("provider is nil: %w", errInvalidArguments)
	}
	name := provider.Name()
	if name == "" {
		return fmt.Errorf("provider name is empty: %w", errInvalidArguments)
	}
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("%s: %w", name, errProviderExists)
	}
	if err := provider.Init(ctx); err != nil {
		return fmt.Errorf("init %s: %w", name, err)
	}
	r.providers[name] = provider
	return nil
}

// Execute вызывает модуль по имени.
func (r *Registry) Execute(ctx context.Context, module, cmd string, args []string) (Response, error) {
	action := Action{Module: module, Command: cmd}
	prov, ok := r.providers[module]
	if !ok {
		return Failed("module_not_found"), fmt.Errorf("%s: %w", module, errUnknownProvider)
	}
	if r.authz != nil {
		if err := r.authz.Authorize(r.subject, action); err != nil {
			r.writeAudit(ctx, action, "denied", args)
			return Failed("access_denied"), err
		}
	}
	resp, err := prov.Execute(ctx, cmd, args)
	status := "ok"
	if err != nil || resp.Status == "error" {
		status = "error"
		r.log.Debug("command failed", "action", action.String(), "code", resp.ErrorCode, "err", err)
	}
	r.writeAudit(ctx, action, status, args)
	return resp, err
}

func (r *Registry) writeAudit(ctx context.Context, action Action, status string, args []string) {
	if r.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"module":  action.Module,
		"command": action.Command,
		"args":    args,
	})
	err := r.audit.Write(ctx, storage.AuditEvent{
		Subject:   r.subject.ID,
		Action:    action.String(),
		Source:    r.subject.Source,
		Status:    status,
		RequestID: uuid.NewString(),
		Payload:   payload,
	})
	if err != nil {
		r.log.Warn("audit write failed", "action", action.String(), "err", err)
	}
}

// Providers возвращает отсортированный список зарегистрированных модулей.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
