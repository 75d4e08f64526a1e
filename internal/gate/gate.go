// Package gate answers the single authorization question of the application:
// is this identity an active family member?
package gate

import (
	"context"
	"database/sql"
	"fmt"

	"familyphotos/internal/apperr"
)

// ActiveMemberPredicate is the SQL form of the gate. It takes the identity ID as
// its only argument and selects a single boolean.
const ActiveMemberPredicate = `SELECT EXISTS (
	SELECT 1 FROM family_members WHERE user_id = ? AND status = 'active'
)`

var (
	ErrUnauthorized = apperr.Unauthorized("Authentication required")
	ErrAccessDenied = apperr.AccessDenied("Access restricted to family members")
)

// Querier is the part of a database handle or transaction the gate needs
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// IsActiveMember evaluates the predicate for identity
func IsActiveMember(ctx context.Context, q Querier, identity int64) (bool, error) {
	if identity <= 0 {
		return false, nil
	}
	var ok bool
	if err := q.QueryRowContext(ctx, ActiveMemberPredicate, identity).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to evaluate membership: %w", err)
	}
	return ok, nil
}

// Check returns nil for an active member, ErrUnauthorized when there is no
// identity and ErrAccessDenied otherwise.
func Check(ctx context.Context, q Querier, identity int64) error {
	if identity <= 0 {
		return ErrUnauthorized
	}
	ok, err := IsActiveMember(ctx, q, identity)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return ErrAccessDenied
	}
	return nil
}
