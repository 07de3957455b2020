package roletemplate

import "context"

// Repository defines the interface for role template storage.
// Lookups return (nil, nil) when no template matches; errors are
// reserved for infrastructure failures.
type Repository interface {
	FindByFarm(ctx context.Context, farmID string) ([]*RoleTemplate, error)
	FindByID(ctx context.Context, farmID, id string) (*RoleTemplate, error)
	FindByName(ctx context.Context, farmID, name string) (*RoleTemplate, error)
	Create(ctx context.Context, template *RoleTemplate) error
	Update(ctx context.Context, template *RoleTemplate) error
}
