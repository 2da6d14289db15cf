package listservice

import (
	"context"
	"fmt"

	"github.com/sushihentaime/blogshelf/internal/common"
)

func NewListService(m Model) *ListService {
	return &ListService{m: m}
}

// Append adds blogID to the user's list of the given kind, creating the list on first use.
// Appending an id that is already present leaves the list unchanged.
func (s *ListService) Append(ctx context.Context, kind Kind, userID, blogID string) (*List, error) {
	v := common.NewValidator()
	validateKind(v, kind)
	validateID(v, userID, "user_id")
	validateID(v, blogID, "blog_id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	ids, err := s.m.append(ctx, kind, userID, blogID)
	if err != nil {
		return nil, fmt.Errorf("append to %s list: %w", kind, err)
	}

	return &List{UserID: userID, Kind: kind, BlogIDs: ids}, nil
}

// Get returns the user's list of the given kind. A user without one gets an empty list.
func (s *ListService) Get(ctx context.Context, kind Kind, userID string) (*List, error) {
	v := common.NewValidator()
	validateKind(v, kind)
	validateID(v, userID, "user_id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	ids, err := s.m.get(ctx, kind, userID)
	if err != nil {
		return nil, fmt.Errorf("get %s list: %w", kind, err)
	}

	return &List{UserID: userID, Kind: kind, BlogIDs: ids}, nil
}

func validateKind(v *common.Validator, kind Kind) {
	v.Check(kind.Valid(), "kind", "must be posted or saved")
}

func validateID(v *common.Validator, id, field string) {
	v.Check(id != "", field, "must be provided")
	v.Check(id == "" || common.ValidID(id), field, "must be a valid id")
}
