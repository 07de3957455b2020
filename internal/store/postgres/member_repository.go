package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/farmgate/farmgate/internal/farm"
)

// MemberRepository implements farm.MemberRepository
type MemberRepository struct {
	db *DB
}

// NewMemberRepository creates a new farm member repository
func NewMemberRepository(db *DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// GetMembers retrieves all members of a farm
func (r *MemberRepository) GetMembers(ctx context.Context, farmID string) ([]*farm.Member, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT farm_id, user_id, role, custom_permissions, added_at, added_by
		FROM farm_members
		WHERE farm_id = $1
	`, farmID)
	if err != nil {
		return nil, fmt.Errorf("failed to get farm members: %w", err)
	}
	defer rows.Close()

	var members []*farm.Member
	for rows.Next() {
		var m farm.Member
		var perms []string
		var addedBy sql.NullString
		if err := rows.Scan(&m.FarmID, &m.UserID, &m.Role, &perms, &m.AddedAt, &addedBy); err != nil {
			return nil, fmt.Errorf("failed to scan farm member: %w", err)
		}
		m.CustomPermissions = stringsToPermissions(perms)
		if addedBy.Valid {
			m.AddedBy = addedBy.String
		}
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read farm members: %w", err)
	}

	return members, nil
}

// UpsertMember inserts a membership record or replaces the existing one
func (r *MemberRepository) UpsertMember(ctx context.Context, member *farm.Member) error {
	var addedBy sql.NullString
	if member.AddedBy != "" {
		addedBy = sql.NullString{String: member.AddedBy, Valid: true}
	}

	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO farm_members (farm_id, user_id, role, custom_permissions, added_at, added_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (farm_id, user_id)
		DO UPDATE SET role = EXCLUDED.role,
			custom_permissions = EXCLUDED.custom_permissions,
			added_at = EXCLUDED.added_at,
			added_by = EXCLUDED.added_by
	`, member.FarmID, member.UserID, member.Role,
		permissionsToStrings(member.CustomPermissions), member.AddedAt, addedBy)

	if err != nil {
		return fmt.Errorf("failed to save farm member: %w", err)
	}

	return nil
}
