package storage

import (
	"context"
	"time"
)

// AuditEvent фиксирует выполненную команду.
type AuditEvent struct {
	Subject   string
	Action    string
	Source    string
	Status    string
	RequestID string
	Payload   []byte
	TS        time.Time
}

// AuditQuery задает фильтры выборки аудита.
type AuditQuery struct {
	From    time.Time
	To      time.Time
	Subject string
	Action  string
	Limit   int
}

// Store описывает операции хранилища истории.
type Store interface {
	SaveAudit(ctx context.Context, ev AuditEvent) error
	QueryAudit(ctx context.Context, q AuditQuery) ([]AuditEvent, error)
	Purge(ctx context.Context, before time.Time) (int64, error)
	Write(ctx context.Context, ev AuditEvent) error
	Close() error
}
