// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// Default permissions on collections.
var DefaultCollectionPermissions = []CreatePermissionParams{
	{Codename: "add_collection", Name: "Can add collection"},
	{Codename: "change_collection", Name: "Can change collection"},
	{Codename: "delete_collection", Name: "Can delete collection"},
	{Codename: "choose_collection", Name: "Can choose collection"},
}

// Default groups and the permission codenames they hold on the root collection.
var DefaultGroupGrants = map[string][]string{
	"Moderators": {"add_collection", "change_collection", "delete_collection", "choose_collection"},
	"Editors":    {"choose_collection"},
}

// Seed creates the default permissions and groups and grants them on the
// root collection. Existing rows are left untouched.
func Seed(ctx context.Context, db *sql.DB) error {
	queries := New(db)

	root, err := queries.GetFirstRootCollection(ctx)
	if err != nil {
		return fmt.Errorf("loading root collection: %w", err)
	}

	perms := make(map[string]AuthPermission, len(DefaultCollectionPermissions))
	for _, p := range DefaultCollectionPermissions {
		perm, err := queries.GetPermissionByCodename(ctx, p.Codename)
		if errors.Is(err, sql.ErrNoRows) {
			perm, err = queries.CreatePermission(ctx, p)
		}
		if err != nil {
			return fmt.Errorf("seeding permission %q: %w", p.Codename, err)
		}
		perms[p.Codename] = perm
	}

	existing, err := queries.ListGroupCollectionPermissions(ctx, root.ID)
	if err != nil {
		return fmt.Errorf("listing root permissions: %w", err)
	}
	granted := make(map[[2]string]bool, len(existing))
	for _, row := range existing {
		granted[[2]string{row.GroupName, row.PermissionCodename}] = true
	}

	created := 0
	for name, codenames := range DefaultGroupGrants {
		group, err := queries.GetGroupByName(ctx, name)
		if errors.Is(err, sql.ErrNoRows) {
			group, err = queries.CreateGroup(ctx, name)
		}
		if err != nil {
			return fmt.Errorf("seeding group %q: %w", name, err)
		}

		for _, codename := range codenames {
			if granted[[2]string{name, codename}] {
				continue
			}
			_, err := queries.CreateGroupCollectionPermission(ctx, CreateGroupCollectionPermissionParams{
				GroupID:      group.ID,
				CollectionID: root.ID,
				PermissionID: perms[codename].ID,
			})
			if err != nil {
				return fmt.Errorf("granting %q to %q: %w", codename, name, err)
			}
			created++
		}
	}

	if created > 0 {
		slog.Info("seeded default collection permissions", "grants", created)
	}
	return nil
}
