// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package collection maintains the tree of named collections that media and
// documents are filed under.
//
// The tree is stored as materialized paths: every node's path is its
// parent's path followed by a fixed-width step giving its position among
// its siblings. Siblings are kept in alphabetical order of their names, so
// adding a node can shift the paths of its later siblings and their
// subtrees. Collection values loaded before such a change go stale and
// should be reloaded with Refresh.
package collection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/olegiv/ocms-kit/internal/auditlog"
	"github.com/olegiv/ocms-kit/internal/store"
)

// ContentType identifies collections in the audit log.
const ContentType = "ocms.collection"

var (
	// ErrNotFound is returned when a collection does not exist.
	ErrNotFound = errors.New("collection: not found")
	// ErrNameRequired is returned when adding a collection without a name.
	ErrNameRequired = errors.New("collection: name is required")
	// ErrRootCollection is returned when trying to delete the root collection.
	ErrRootCollection = errors.New("collection: the root collection cannot be deleted")
	// ErrNotEmpty is returned when deleting a collection with children or members.
	ErrNotEmpty = errors.New("collection: collection is not empty")
)

// Collection is a node in the collection tree.
type Collection struct {
	ID       int64
	Path     string
	Depth    int
	NumChild int
	Name     string
}

func (c Collection) ContentType() string { return ContentType }
func (c Collection) ObjectID() string    { return strconv.FormatInt(c.ID, 10) }
func (c Collection) ObjectLabel() string { return c.Name }

// IsRoot reports whether c is a root node.
func (c Collection) IsRoot() bool {
	return c.Depth == 1
}

// indentStartDepth is the first depth that is not indented: the root and
// its direct children are shown flush.
const indentStartDepth = 2

// IndentedName returns the name prefixed with one indent per level below
// the root's children, for use in plain-text choice lists.
func (c Collection) IndentedName() string {
	level := c.Depth - indentStartDepth
	if level <= 0 {
		return c.Name
	}
	return strings.Repeat("    ", level) + "↳ " + c.Name
}

// IndentedNameHTML is IndentedName for HTML output, with the name escaped.
func (c Collection) IndentedNameHTML() string {
	level := c.Depth - indentStartDepth
	if level <= 0 {
		return html.EscapeString(c.Name)
	}
	return strings.Repeat("&nbsp;&nbsp;&nbsp;&nbsp;", level) + "&#x21b3; " + html.EscapeString(c.Name)
}

// Choice is one entry of a collection selector.
type Choice struct {
	ID    int64
	Label string
}

// Service manages the collection tree.
type Service struct {
	db      *sql.DB
	queries *store.Queries
	audit   *auditlog.Service
	logger  *slog.Logger
	lang    language.Tag
}

// Option configures a Service.
type Option func(*Service)

// WithAudit records tree changes in the audit log.
func WithAudit(a *auditlog.Service) Option {
	return func(s *Service) { s.audit = a }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithLanguage sets the language whose collation orders sibling names.
func WithLanguage(tag language.Tag) Option {
	return func(s *Service) { s.lang = tag }
}

// NewService creates a Service backed by db.
func NewService(db *sql.DB, opts ...Option) *Service {
	s := &Service{
		db:      db,
		queries: store.New(db),
		logger:  slog.Default(),
		lang:    language.English,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// collator returns a new collator; collators are not safe for concurrent use.
func (s *Service) collator() *collate.Collator {
	return collate.New(s.lang)
}

func fromRow(row store.Collection) Collection {
	return Collection{
		ID:       row.ID,
		Path:     row.Path,
		Depth:    int(row.Depth),
		NumChild: int(row.Numchild),
		Name:     row.Name,
	}
}

func fromRows(rows []store.Collection) []Collection {
	out := make([]Collection, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRow(r))
	}
	return out
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("loading collection %s: %w", what, err)
}

// Root returns the first root collection.
func (s *Service) Root(ctx context.Context) (Collection, error) {
	row, err := s.queries.GetFirstRootCollection(ctx)
	if err != nil {
		return Collection{}, notFound(err, "root")
	}
	return fromRow(row), nil
}

// RootID returns the ID of the first root collection.
func (s *Service) RootID(ctx context.Context) (int64, error) {
	root, err := s.Root(ctx)
	if err != nil {
		return 0, err
	}
	return root.ID, nil
}

// Get returns the collection with the given id.
func (s *Service) Get(ctx context.Context, id int64) (Collection, error) {
	row, err := s.queries.GetCollection(ctx, id)
	if err != nil {
		return Collection{}, notFound(err, strconv.FormatInt(id, 10))
	}
	return fromRow(row), nil
}

// Refresh reloads c from the database.
func (s *Service) Refresh(ctx context.Context, c Collection) (Collection, error) {
	return s.Get(ctx, c.ID)
}

// AddChild adds a collection named name under parent, keeping siblings in
// name order.
func (s *Service) AddChild(ctx context.Context, parent Collection, name string) (Collection, error) {
	if strings.TrimSpace(name) == "" {
		return Collection{}, ErrNameRequired
	}

	var child Collection
	err := store.InTx(ctx, s.db, func(q *store.Queries) error {
		prow, err := q.GetCollection(ctx, parent.ID)
		if err != nil {
			return notFound(err, strconv.FormatInt(parent.ID, 10))
		}
		p := fromRow(prow)

		rows, err := q.ListCollectionsUnderPrefix(ctx, store.ListCollectionsUnderPrefixParams{
			Prefix:   p.Path,
			MinDepth: int64(p.Depth + 1),
			MaxDepth: int64(p.Depth + 1),
		})
		if err != nil {
			return fmt.Errorf("listing children of %q: %w", p.Path, err)
		}

		coll := s.collator()
		idx := sort.Search(len(rows), func(i int) bool {
			return coll.CompareString(name, rows[i].Name) < 0
		})

		path, err := s.makeRoom(ctx, q, p.Path, rows, idx)
		if err != nil {
			return err
		}

		row, err := q.CreateCollection(ctx, store.CreateCollectionParams{
			Path:  path,
			Depth: int64(p.Depth + 1),
			Name:  name,
		})
		if err != nil {
			return fmt.Errorf("creating collection %q: %w", name, err)
		}
		if err := q.AddCollectionNumchild(ctx, store.AddCollectionNumchildParams{Delta: 1, ID: p.ID}); err != nil {
			return fmt.Errorf("updating child count of %q: %w", p.Path, err)
		}
		child = fromRow(row)
		return nil
	})
	if err != nil {
		return Collection{}, err
	}

	s.logAction(ctx, child, auditlog.ActionCreate)
	return child, nil
}

// makeRoom shifts the siblings at positions idx and later one step right,
// last first so that no two nodes share a path mid-update, and returns the
// path freed for the new node.
func (s *Service) makeRoom(ctx context.Context, q *store.Queries, prefix string, siblings []store.Collection, idx int) (string, error) {
	if len(siblings) == 0 {
		step, err := encodeStep(1)
		return prefix + step, err
	}

	if idx == len(siblings) {
		last, err := decodeStep(siblings[len(siblings)-1].Path)
		if err != nil {
			return "", err
		}
		step, err := encodeStep(last + 1)
		return prefix + step, err
	}

	for j := len(siblings) - 1; j >= idx; j-- {
		old := siblings[j].Path
		n, err := decodeStep(old)
		if err != nil {
			return "", err
		}
		step, err := encodeStep(n + 1)
		if err != nil {
			return "", err
		}
		if _, err := q.MoveCollectionSubtree(ctx, store.MoveCollectionSubtreeParams{
			NewPrefix: prefix + step,
			OldPrefix: old,
		}); err != nil {
			return "", fmt.Errorf("moving subtree %q: %w", old, err)
		}
	}
	return siblings[idx].Path, nil
}

// Delete removes an empty, non-root collection.
func (s *Service) Delete(ctx context.Context, c Collection) error {
	var deleted Collection
	err := store.InTx(ctx, s.db, func(q *store.Queries) error {
		row, err := q.GetCollection(ctx, c.ID)
		if err != nil {
			return notFound(err, strconv.FormatInt(c.ID, 10))
		}
		cur := fromRow(row)
		if cur.IsRoot() {
			return ErrRootCollection
		}
		if cur.NumChild > 0 {
			return fmt.Errorf("%w: %q has %d children", ErrNotEmpty, cur.Name, cur.NumChild)
		}
		members, err := q.CountCollectionMembers(ctx, cur.ID)
		if err != nil {
			return fmt.Errorf("counting members of %q: %w", cur.Name, err)
		}
		if members > 0 {
			return fmt.Errorf("%w: %q has %d members", ErrNotEmpty, cur.Name, members)
		}

		parent, err := q.GetCollectionByPath(ctx, parentPath(cur.Path))
		if err != nil {
			return notFound(err, "parent of "+cur.Path)
		}
		if err := q.DeleteCollection(ctx, cur.ID); err != nil {
			return fmt.Errorf("deleting collection %q: %w", cur.Name, err)
		}
		if err := q.AddCollectionNumchild(ctx, store.AddCollectionNumchildParams{Delta: -1, ID: parent.ID}); err != nil {
			return fmt.Errorf("updating child count of %q: %w", parent.Path, err)
		}
		deleted = cur
		return nil
	})
	if err != nil {
		return err
	}

	s.logAction(ctx, deleted, auditlog.ActionDelete, auditlog.WithDeleted())
	return nil
}

// Ancestors returns the ancestors of c, root first. With inclusive, c is
// included last.
func (s *Service) Ancestors(ctx context.Context, c Collection, inclusive bool) ([]Collection, error) {
	paths := ancestorPaths(c.Path)
	if inclusive {
		paths = append(paths, c.Path)
	}

	out := make([]Collection, 0, len(paths))
	for _, p := range paths {
		row, err := s.queries.GetCollectionByPath(ctx, p)
		if err != nil {
			return nil, notFound(err, p)
		}
		out = append(out, fromRow(row))
	}
	return out, nil
}

// Descendants returns every node below c ordered by path. With inclusive, c
// comes first.
func (s *Service) Descendants(ctx context.Context, c Collection, inclusive bool) ([]Collection, error) {
	minDepth := c.Depth + 1
	if inclusive {
		minDepth = c.Depth
	}
	rows, err := s.queries.ListCollectionsUnderPrefix(ctx, store.ListCollectionsUnderPrefixParams{
		Prefix:   c.Path,
		MinDepth: int64(minDepth),
		MaxDepth: math.MaxInt32,
	})
	if err != nil {
		return nil, fmt.Errorf("listing descendants of %q: %w", c.Path, err)
	}
	return fromRows(rows), nil
}

// Siblings returns the nodes sharing c's parent, ordered by path.
func (s *Service) Siblings(ctx context.Context, c Collection, inclusive bool) ([]Collection, error) {
	return s.siblings(ctx, c, func(o Collection) bool {
		return inclusive || o.ID != c.ID
	})
}

// NextSiblings returns the siblings after c.
func (s *Service) NextSiblings(ctx context.Context, c Collection, inclusive bool) ([]Collection, error) {
	return s.siblings(ctx, c, func(o Collection) bool {
		return o.Path > c.Path || (inclusive && o.ID == c.ID)
	})
}

// PrevSiblings returns the siblings before c.
func (s *Service) PrevSiblings(ctx context.Context, c Collection, inclusive bool) ([]Collection, error) {
	return s.siblings(ctx, c, func(o Collection) bool {
		return o.Path < c.Path || (inclusive && o.ID == c.ID)
	})
}

func (s *Service) siblings(ctx context.Context, c Collection, keep func(Collection) bool) ([]Collection, error) {
	rows, err := s.queries.ListCollectionsUnderPrefix(ctx, store.ListCollectionsUnderPrefixParams{
		Prefix:   parentPath(c.Path),
		MinDepth: int64(c.Depth),
		MaxDepth: int64(c.Depth),
	})
	if err != nil {
		return nil, fmt.Errorf("listing siblings of %q: %w", c.Path, err)
	}

	out := make([]Collection, 0, len(rows))
	for _, o := range fromRows(rows) {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out, nil
}

// All returns every collection ordered by path.
func (s *Service) All(ctx context.Context) ([]Collection, error) {
	rows, err := s.queries.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	return fromRows(rows), nil
}

// ListByName returns every collection ordered by collated name.
func (s *Service) ListByName(ctx context.Context) ([]Collection, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	coll := s.collator()
	sort.SliceStable(all, func(i, j int) bool {
		return coll.CompareString(all[i].Name, all[j].Name) < 0
	})
	return all, nil
}

// IndentedChoices returns every collection in tree order labelled with its
// indented name.
func (s *Service) IndentedChoices(ctx context.Context) ([]Choice, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Choice, 0, len(all))
	for _, c := range all {
		out = append(out, Choice{ID: c.ID, Label: c.IndentedName()})
	}
	return out, nil
}

// logAction records action against obj when an audit service is attached.
// The change is already committed, so failures are only logged.
func (s *Service) logAction(ctx context.Context, obj auditlog.Object, action string, opts ...auditlog.LogOption) {
	if s.audit == nil {
		return
	}
	if _, err := s.audit.LogAction(ctx, obj, action, opts...); err != nil {
		s.logger.Warn("failed to record collection change", "action", action, "object", obj.ObjectID(), "error", err)
	}
}
