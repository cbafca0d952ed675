// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package collection

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/ocms-kit/internal/auditlog"
	"github.com/olegiv/ocms-kit/internal/auth"
	"github.com/olegiv/ocms-kit/internal/store"
)

var (
	// ErrPermissionExists is returned when granting a permission a group already holds.
	ErrPermissionExists = errors.New("collection: permission already granted")
	// ErrInvalidRestriction is returned for an incomplete view restriction.
	ErrInvalidRestriction = errors.New("collection: invalid view restriction")
)

// Group is a named set of users.
type Group struct {
	ID   int64
	Name string
}

// Permission is a named capability such as add_collection.
type Permission struct {
	ID       int64
	Codename string
	Name     string
}

// GroupCollectionPermission grants a permission to a group on a collection
// and, through the tree, on its descendants.
type GroupCollectionPermission struct {
	ID         int64
	Group      Group
	Collection Collection
	Permission Permission
}

// NaturalKey identifies a grant without database IDs.
type NaturalKey struct {
	Group      string
	Collection string
	Permission string
}

// NaturalKey returns the group name, collection path and permission codename.
func (p GroupCollectionPermission) NaturalKey() NaturalKey {
	return NaturalKey{
		Group:      p.Group.Name,
		Collection: p.Collection.Path,
		Permission: p.Permission.Codename,
	}
}

func (p GroupCollectionPermission) ContentType() string { return "ocms.groupcollectionpermission" }
func (p GroupCollectionPermission) ObjectID() string    { return strconv.FormatInt(p.ID, 10) }
func (p GroupCollectionPermission) ObjectLabel() string {
	return p.Group.Name + ": " + p.Permission.Codename
}

// CreateGroup creates a group.
func (s *Service) CreateGroup(ctx context.Context, name string) (Group, error) {
	if strings.TrimSpace(name) == "" {
		return Group{}, errors.New("collection: group name is required")
	}
	row, err := s.queries.CreateGroup(ctx, name)
	if err != nil {
		return Group{}, fmt.Errorf("creating group %q: %w", name, err)
	}
	return Group{ID: row.ID, Name: row.Name}, nil
}

// CreatePermission creates a permission.
func (s *Service) CreatePermission(ctx context.Context, codename, name string) (Permission, error) {
	if strings.TrimSpace(codename) == "" {
		return Permission{}, errors.New("collection: permission codename is required")
	}
	row, err := s.queries.CreatePermission(ctx, store.CreatePermissionParams{Codename: codename, Name: name})
	if err != nil {
		return Permission{}, fmt.Errorf("creating permission %q: %w", codename, err)
	}
	return Permission{ID: row.ID, Codename: row.Codename, Name: row.Name}, nil
}

// GrantPermission grants perm to group on c.
func (s *Service) GrantPermission(ctx context.Context, group Group, c Collection, perm Permission) (GroupCollectionPermission, error) {
	var grant GroupCollectionPermission
	err := store.InTx(ctx, s.db, func(q *store.Queries) error {
		row, err := q.GetCollection(ctx, c.ID)
		if err != nil {
			return notFound(err, strconv.FormatInt(c.ID, 10))
		}
		cur := fromRow(row)

		existing, err := q.ListGroupCollectionPermissions(ctx, cur.ID)
		if err != nil {
			return fmt.Errorf("listing permissions on %q: %w", cur.Name, err)
		}
		for _, e := range existing {
			if e.GroupID == group.ID && e.PermissionID == perm.ID {
				return fmt.Errorf("%w: %s on %q", ErrPermissionExists, perm.Codename, cur.Name)
			}
		}

		created, err := q.CreateGroupCollectionPermission(ctx, store.CreateGroupCollectionPermissionParams{
			GroupID:      group.ID,
			CollectionID: cur.ID,
			PermissionID: perm.ID,
		})
		if err != nil {
			return fmt.Errorf("granting %s on %q: %w", perm.Codename, cur.Name, err)
		}
		grant = GroupCollectionPermission{ID: created.ID, Group: group, Collection: cur, Permission: perm}
		return nil
	})
	if err != nil {
		return GroupCollectionPermission{}, err
	}

	s.logAction(ctx, grant.Collection, auditlog.ActionCreateRelatedObject, auditlog.WithRelatedObject(grant))
	return grant, nil
}

// RevokePermission deletes a grant.
func (s *Service) RevokePermission(ctx context.Context, grant GroupCollectionPermission) error {
	n, err := s.queries.DeleteGroupCollectionPermission(ctx, grant.ID)
	if err != nil {
		return fmt.Errorf("revoking permission %d: %w", grant.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: permission grant %d", ErrNotFound, grant.ID)
	}

	s.logAction(ctx, grant.Collection, auditlog.ActionDeleteRelatedObject, auditlog.WithRelatedObject(grant))
	return nil
}

// GroupPermissions returns the grants held on c, ordered by group name and codename.
func (s *Service) GroupPermissions(ctx context.Context, c Collection) ([]GroupCollectionPermission, error) {
	cur, err := s.Get(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	rows, err := s.queries.ListGroupCollectionPermissions(ctx, cur.ID)
	if err != nil {
		return nil, fmt.Errorf("listing permissions on %q: %w", cur.Name, err)
	}

	out := make([]GroupCollectionPermission, 0, len(rows))
	for _, r := range rows {
		out = append(out, GroupCollectionPermission{
			ID:         r.ID,
			Group:      Group{ID: r.GroupID, Name: r.GroupName},
			Collection: cur,
			Permission: Permission{ID: r.PermissionID, Codename: r.PermissionCodename},
		})
	}
	return out, nil
}

// CountPermissions returns the number of grants across all collections.
func (s *Service) CountPermissions(ctx context.Context) (int64, error) {
	n, err := s.queries.CountGroupCollectionPermissions(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting permissions: %w", err)
	}
	return n, nil
}

// RestrictionType selects who may view a collection.
type RestrictionType string

const (
	RestrictNone     RestrictionType = "none"
	RestrictPassword RestrictionType = "password"
	RestrictGroups   RestrictionType = "groups"
	RestrictLogin    RestrictionType = "login"
)

// ViewRestriction limits who can view the members of a collection.
type ViewRestriction struct {
	ID           int64
	CollectionID int64
	Type         RestrictionType
	PasswordHash string // argon2id, set for password restrictions
	GroupIDs     []int64
}

// CheckPassword reports whether password unlocks a password restriction.
func (r ViewRestriction) CheckPassword(password string) (bool, error) {
	if r.Type != RestrictPassword {
		return false, nil
	}
	return auth.CheckPassword(password, r.PasswordHash)
}

func (r ViewRestriction) ContentType() string { return "ocms.collectionviewrestriction" }
func (r ViewRestriction) ObjectID() string    { return strconv.FormatInt(r.ID, 10) }
func (r ViewRestriction) ObjectLabel() string { return string(r.Type) }

// AddViewRestriction restricts viewing of c. A password restriction needs a
// password, stored hashed, and a groups restriction needs at least one group.
func (s *Service) AddViewRestriction(ctx context.Context, c Collection, typ RestrictionType, password string, groupIDs []int64) (ViewRestriction, error) {
	switch typ {
	case RestrictNone, RestrictLogin:
	case RestrictPassword:
		if password == "" {
			return ViewRestriction{}, fmt.Errorf("%w: password restriction without password", ErrInvalidRestriction)
		}
	case RestrictGroups:
		if len(groupIDs) == 0 {
			return ViewRestriction{}, fmt.Errorf("%w: groups restriction without groups", ErrInvalidRestriction)
		}
	default:
		return ViewRestriction{}, fmt.Errorf("%w: unknown type %q", ErrInvalidRestriction, typ)
	}

	var hash string
	if typ == RestrictPassword {
		var err error
		if hash, err = auth.HashPassword(password); err != nil {
			return ViewRestriction{}, fmt.Errorf("hashing view restriction password: %w", err)
		}
	}

	var restriction ViewRestriction
	var cur Collection
	err := store.InTx(ctx, s.db, func(q *store.Queries) error {
		row, err := q.GetCollection(ctx, c.ID)
		if err != nil {
			return notFound(err, strconv.FormatInt(c.ID, 10))
		}
		cur = fromRow(row)

		created, err := q.CreateCollectionViewRestriction(ctx, store.CreateCollectionViewRestrictionParams{
			CollectionID:    cur.ID,
			RestrictionType: string(typ),
			Password:        hash,
		})
		if err != nil {
			return fmt.Errorf("creating view restriction on %q: %w", cur.Name, err)
		}
		for _, gid := range groupIDs {
			if err := q.AddViewRestrictionGroup(ctx, store.AddViewRestrictionGroupParams{
				RestrictionID: created.ID,
				GroupID:       gid,
			}); err != nil {
				return fmt.Errorf("adding group %d to view restriction: %w", gid, err)
			}
		}
		restriction = ViewRestriction{
			ID:           created.ID,
			CollectionID: cur.ID,
			Type:         typ,
			PasswordHash: hash,
			GroupIDs:     append([]int64(nil), groupIDs...),
		}
		return nil
	})
	if err != nil {
		return ViewRestriction{}, err
	}

	s.logAction(ctx, cur, auditlog.ActionChangeViewRestriction, auditlog.WithRelatedObject(restriction))
	return restriction, nil
}

// ViewRestrictions returns the view restrictions on c.
func (s *Service) ViewRestrictions(ctx context.Context, c Collection) ([]ViewRestriction, error) {
	rows, err := s.queries.ListCollectionViewRestrictions(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("listing view restrictions on %q: %w", c.Name, err)
	}

	out := make([]ViewRestriction, 0, len(rows))
	for _, r := range rows {
		groups, err := s.queries.ListViewRestrictionGroupIDs(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("listing groups of view restriction %d: %w", r.ID, err)
		}
		out = append(out, ViewRestriction{
			ID:           r.ID,
			CollectionID: r.CollectionID,
			Type:         RestrictionType(r.RestrictionType),
			PasswordHash: r.Password,
			GroupIDs:     groups,
		})
	}
	return out, nil
}

// Member is an object filed under a collection.
type Member struct {
	ID           int64
	CollectionID int64
	Object       auditlog.ObjectRef
	CreatedAt    time.Time
}

// AddMember files obj under c. An object belongs to at most one collection.
func (s *Service) AddMember(ctx context.Context, c Collection, obj auditlog.Object) (Member, error) {
	cur, err := s.Get(ctx, c.ID)
	if err != nil {
		return Member{}, err
	}
	row, err := s.queries.CreateCollectionMember(ctx, store.CreateCollectionMemberParams{
		CollectionID: cur.ID,
		ContentType:  obj.ContentType(),
		ObjectID:     obj.ObjectID(),
		Label:        obj.ObjectLabel(),
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return Member{}, fmt.Errorf("adding %s %s to %q: %w", obj.ContentType(), obj.ObjectID(), cur.Name, err)
	}
	return memberFromRow(row), nil
}

// Members returns the objects filed under c in insertion order.
func (s *Service) Members(ctx context.Context, c Collection) ([]Member, error) {
	rows, err := s.queries.ListCollectionMembers(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("listing members of %q: %w", c.Name, err)
	}
	out := make([]Member, 0, len(rows))
	for _, r := range rows {
		out = append(out, memberFromRow(r))
	}
	return out, nil
}

func memberFromRow(r store.CollectionMember) Member {
	return Member{
		ID:           r.ID,
		CollectionID: r.CollectionID,
		Object:       auditlog.ObjectRef{Type: r.ContentType, ID: r.ObjectID, Label: r.Label},
		CreatedAt:    r.CreatedAt,
	}
}
