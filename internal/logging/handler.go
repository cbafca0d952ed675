// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that integrates with the audit log.
// It forwards logs at WARN level and above to the audit log as system entries.
package logging

import (
	"context"
	"log/slog"
	"strings"

	"github.com/olegiv/ocms-kit/internal/auditlog"
)

// DefaultCategory is the object ID used for records without a "category" attribute.
const DefaultCategory = "system"

type forwardingKey struct{}

// AuditHandler is a slog.Handler that wraps another handler and also writes
// WARN and ERROR level logs to the audit log.
type AuditHandler struct {
	inner  slog.Handler
	audit  *auditlog.Service
	level  slog.Level // Minimum level to forward to the audit log (default: WARN)
	attrs  []slog.Attr
	groups []string
}

// NewAuditHandler creates a new AuditHandler that wraps the given handler.
// Logs at WARN level and above will be written to both the wrapped handler and the audit log.
func NewAuditHandler(inner slog.Handler, audit *auditlog.Service) *AuditHandler {
	return NewAuditHandlerWithLevel(inner, audit, slog.LevelWarn)
}

// NewAuditHandlerWithLevel creates a new AuditHandler with a custom minimum level.
func NewAuditHandlerWithLevel(inner slog.Handler, audit *auditlog.Service, level slog.Level) *AuditHandler {
	return &AuditHandler{
		inner: inner,
		audit: audit,
		level: level,
	}
}

// Enabled implements slog.Handler.
func (h *AuditHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *AuditHandler) Handle(ctx context.Context, r slog.Record) error {
	// Always forward to the inner handler first
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	// Records logged while writing to the audit log are not forwarded again.
	if r.Level >= h.level && ctx.Value(forwardingKey{}) == nil {
		h.writeToAuditLog(ctx, r)
	}

	return nil
}

// WithAttrs implements slog.Handler.
func (h *AuditHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	c.inner = h.inner.WithAttrs(attrs)
	for _, a := range attrs {
		c.attrs = append(c.attrs, h.qualify(a))
	}
	return c
}

// WithGroup implements slog.Handler.
func (h *AuditHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.inner = h.inner.WithGroup(name)
	c.groups = append(c.groups, name)
	return c
}

func (h *AuditHandler) clone() *AuditHandler {
	return &AuditHandler{
		inner:  h.inner,
		audit:  h.audit,
		level:  h.level,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}

// qualify prefixes the attribute key with the open groups.
func (h *AuditHandler) qualify(a slog.Attr) slog.Attr {
	if len(h.groups) == 0 {
		return a
	}
	return slog.Attr{Key: strings.Join(h.groups, ".") + "." + a.Key, Value: a.Value}
}

// writeToAuditLog writes a log record to the audit log as a system entry.
func (h *AuditHandler) writeToAuditLog(ctx context.Context, r slog.Record) {
	category := DefaultCategory
	data := map[string]any{"level": r.Level.String()}

	add := func(a slog.Attr) {
		if a.Key == "category" {
			category = a.Value.String()
			return
		}
		flatten(data, "", a)
	}
	for _, a := range h.attrs {
		add(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		add(h.qualify(a))
		return true
	})

	obj := auditlog.ObjectRef{
		Type:  auditlog.SystemContentType,
		ID:    category,
		Label: r.Message,
	}

	// Detach from cancellation so the entry is written even if the caller's context is done.
	ctx = context.WithValue(context.WithoutCancel(ctx), forwardingKey{}, true)
	_, _ = h.audit.LogAction(ctx, obj, auditlog.ActionSystemLog, auditlog.WithData(data))
}

// flatten stores a under prefix+key, expanding groups into dotted keys.
func flatten(data map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if a.Key == "" && v.Kind() != slog.KindGroup {
		return
	}
	key := prefix + a.Key

	switch v.Kind() {
	case slog.KindGroup:
		next := prefix
		if a.Key != "" {
			next = key + "."
		}
		for _, ga := range v.Group() {
			flatten(data, next, ga)
		}
	case slog.KindString:
		data[key] = v.String()
	case slog.KindInt64:
		data[key] = v.Int64()
	case slog.KindUint64:
		data[key] = v.Uint64()
	case slog.KindFloat64:
		data[key] = v.Float64()
	case slog.KindBool:
		data[key] = v.Bool()
	default:
		data[key] = v.String()
	}
}
