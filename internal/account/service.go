package account

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/sbsimple/backend/internal/models"
)

// ErrInvalidName is returned when a display name has fewer than two
// significant characters.
var ErrInvalidName = errors.New("display name too short")

// Store is the account persistence contract used by the service.
type Store interface {
	Create(ctx context.Context, displayName string) (*models.Account, error)
	GetByHash(ctx context.Context, accessHash string) (*models.Account, error)
	Debit(ctx context.Context, accessHash string, amount int64) (int64, error)
	Credit(ctx context.Context, accessHash string, amount int64) (int64, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Register validates the display name and creates the account. The new
// account starts at zero balance on the standard tier.
func (s *Service) Register(ctx context.Context, displayName string) (*models.Account, error) {
	name := strings.TrimSpace(displayName)
	if utf8.RuneCountInString(name) < 2 {
		return nil, ErrInvalidName
	}
	return s.store.Create(ctx, name)
}

// GetByHash returns the account for the given access hash.
func (s *Service) GetByHash(ctx context.Context, accessHash string) (*models.Account, error) {
	return s.store.GetByHash(ctx, strings.TrimSpace(accessHash))
}
