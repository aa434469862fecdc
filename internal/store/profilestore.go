package store

import (
	"context"
	"fmt"

	"github.com/vyayamzone/vyayam-api/internal/backend"
)

// FindByEmail is the exact-match lookup role resolution runs against each
// profile collection. A missing row is ErrNotFound; an unreachable database
// is backend.ErrUnavailable.
func (s *Store) FindByEmail(ctx context.Context, c backend.Collection, email string) (*backend.ProfileRow, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unknown collection %q", c)
	}
	cols := "id, email, status"
	if c == backend.UserProfiles {
		cols = "id, email"
	}

	var row backend.ProfileRow
	err := s.DB.WithContext(ctx).Table(string(c)).Select(cols).Where("email = ?", email).Take(&row).Error
	if err != nil {
		if unavailable(err) {
			return nil, fmt.Errorf("%s: %w: %v", c, backend.ErrUnavailable, err)
		}
		return nil, translate(err)
	}
	return &row, nil
}

var _ backend.ProfileLookup = (*Store)(nil)
