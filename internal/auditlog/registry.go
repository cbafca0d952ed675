// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auditlog

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Core actions.
const (
	ActionCreate                = "ocms.create"
	ActionEdit                  = "ocms.edit"
	ActionDelete                = "ocms.delete"
	ActionPublish               = "ocms.publish"
	ActionUnpublish             = "ocms.unpublish"
	ActionMove                  = "ocms.move"
	ActionCreateRelatedObject   = "ocms.create_related_object"
	ActionEditRelatedObject     = "ocms.edit_related_object"
	ActionDeleteRelatedObject   = "ocms.delete_related_object"
	ActionChangeViewRestriction = "ocms.change_view_restriction"
	ActionChangeUser            = "ocms.change_user"
	ActionSystemLog             = "ocms.system.log"
)

// ErrDuplicateAction is returned when registering an action name twice.
var ErrDuplicateAction = errors.New("auditlog: action already registered")

// Action describes a loggable action.
type Action struct {
	Name    string
	Label   string
	Message string
}

// Registry holds the set of known actions. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action)}
}

// DefaultRegistry returns a registry with the core actions registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range []Action{
		{ActionCreate, "Create", "Created"},
		{ActionEdit, "Edit", "Edited"},
		{ActionDelete, "Delete", "Deleted"},
		{ActionPublish, "Publish", "Published"},
		{ActionUnpublish, "Unpublish", "Unpublished"},
		{ActionMove, "Move", "Moved"},
		{ActionCreateRelatedObject, "Add related object", "Added related object"},
		{ActionEditRelatedObject, "Edit related object", "Edited related object"},
		{ActionDeleteRelatedObject, "Remove related object", "Removed related object"},
		{ActionChangeViewRestriction, "Change privacy", "Changed privacy"},
		{ActionChangeUser, "Change user", "Changed user"},
		{ActionSystemLog, "System log", "System log record"},
	} {
		r.actions[a.Name] = a
	}
	return r
}

// Register adds an action.
func (r *Registry) Register(name, label, message string) error {
	if name == "" {
		return &ValidationError{Field: "action", Message: "name is required"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.actions[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateAction, name)
	}
	r.actions[name] = Action{Name: name, Label: label, Message: message}
	return nil
}

// Lookup returns the action registered under name.
func (r *Registry) Lookup(name string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.actions[name]
	return a, ok
}

// Actions returns all registered actions sorted by name.
func (r *Registry) Actions() []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Action, 0, len(r.actions))
	for _, a := range r.actions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
