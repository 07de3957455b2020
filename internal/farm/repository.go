package farm

import (
	"context"
	"errors"
)

var (
	ErrFarmNotFound   = errors.New("farm not found")
	ErrMemberNotFound = errors.New("member not found")
)

// Repository defines the interface for farm storage
type Repository interface {
	GetByID(ctx context.Context, id string) (*Farm, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Farm, error)
}

// MemberRepository defines the interface for farm membership storage
type MemberRepository interface {
	GetMembers(ctx context.Context, farmID string) ([]*Member, error)

	// UpsertMember adds the member or replaces an existing assignment,
	// keyed by (farm_id, user_id). Used for both add and role change.
	UpsertMember(ctx context.Context, member *Member) error
}
