package store

import (
	"context"
	"fmt"
	"slices"
)

// Role is the database role a request runs as.
type Role string

const (
	RoleAnon   Role = "anon"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// Operation is a row-level action subject to the policy.
type Operation string

const (
	OpSelect Operation = "select"
	OpInsert Operation = "insert"
	OpDelete Operation = "delete"
)

type roleKey struct{}

// WithRole returns a context that runs store calls as role.
func WithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// RoleFrom returns the role carried by ctx, RoleAnon if none.
func RoleFrom(ctx context.Context) Role {
	if r, ok := ctx.Value(roleKey{}).(Role); ok && r != "" {
		return r
	}
	return RoleAnon
}

// Policy grants operations on the posts table to roles, in the spirit of
// PostgreSQL row-level security policies.
type Policy map[Operation][]Role

// DefaultPolicy lets anyone read, editors write, and only admins delete.
func DefaultPolicy() Policy {
	return Policy{
		OpSelect: {RoleAnon, RoleEditor, RoleAdmin},
		OpInsert: {RoleEditor, RoleAdmin},
		OpDelete: {RoleAdmin},
	}
}

// Check returns an ErrPermissionDenied error when the role in ctx may not
// perform op. A nil policy allows everything.
func (p Policy) Check(ctx context.Context, op Operation) error {
	if p == nil {
		return nil
	}
	role := RoleFrom(ctx)
	if slices.Contains(p[op], role) {
		return nil
	}
	return newError(ErrPermissionDenied,
		fmt.Sprintf("%s on table %q violates row-level security policy for role %q", op, Table, role), nil)
}
