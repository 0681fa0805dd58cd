package core

import (
	"fmt"
	"strings"
)

// Subject описывает источник команды и его идентификатор.
type Subject struct {
	Source string
	ID     string
}

// Action описывает целевую операцию.
type Action struct {
	Module  string
	Command string
}

func (a Action) String() string { return a.Module + ":" + a.Command }

// Authorizer отвечает за решение доступа к действию.
type Authorizer interface {
	Authorize(subject Subject, action Action) error
}

// DenylistAuthorizer запрещает действия из списка `module:command` (`module:*` на весь модуль).
type DenylistAuthorizer struct {
	denied map[string]struct{}
}

// NewDenylistAuthorizer создает authorizer из записей конфига.
func NewDenylistAuthorizer(entries []string) *DenylistAuthorizer {
	denied := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		denied[e] = struct{}{}
	}
	return &DenylistAuthorizer{denied: denied}
}

// Authorize возвращает ошибку, если действие запрещено.
func (a *DenylistAuthorizer) Authorize(subject Subject, action Action) error {
	if action.Module == "" || action.Command == "" {
		return fmt.Errorf("empty action: %w", errInvalidArguments)
	}
	for _, key := range []string{action.String(), action.Module + ":*"} {
		if _, ok := a.denied[key]; ok {
			return fmt.Errorf("%s by %s/%s: %w", action, subject.Source, subject.ID, ErrDenied)
		}
	}
	return nil
}
