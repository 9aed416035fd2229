package recall

import (
	"context"
	"fmt"

	"recall/internal/model"
)

// OwnershipGuard checks that a row and every ancestor of it belong to one user.
type OwnershipGuard struct {
	db Database
}

func NewOwnershipGuard(db Database) *OwnershipGuard {
	return &OwnershipGuard{db: db}
}

// Verify walks the ownership chain from (kind, id) up to its Area. It returns
// ErrNotFound when any link is missing or owned by someone other than userID;
// the two cases are indistinguishable to the caller.
func (g *OwnershipGuard) Verify(ctx context.Context, userID string, kind model.Kind, id string) error {
	if userID == "" || id == "" {
		return ErrNotFound
	}

	// The hierarchy is at most three levels deep.
	for depth := 0; depth < 4; depth++ {
		own, err := g.db.FindOwnership(ctx, kind, id)
		if err != nil {
			return fmt.Errorf("checking %s ownership: %w", kind, err)
		}
		if own == nil || own.UserID != userID {
			return ErrNotFound
		}
		if own.ParentKind == "" {
			return nil
		}
		kind, id = own.ParentKind, own.ParentID
	}
	return fmt.Errorf("%w: ownership chain too deep", ErrStoreUnavailable)
}
