package partner

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrBadAPIKey indicates the presented API key does not match the partner's.
var ErrBadAPIKey = errors.New("invalid api key")

// Service manages partner onboarding and API-key verification.
type Service struct {
	repo Repository
}

// NewService creates a partner service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// OnboardInput captures data required to register a partner.
type OnboardInput struct {
	Name      string
	ShortName string
	APIKey    string
}

// Onboard registers an active partner and stores a hashed API key.
func (s *Service) Onboard(ctx context.Context, input OnboardInput) (Partner, error) {
	if input.Name == "" {
		return Partner{}, errors.New("name is required")
	}
	if len(input.APIKey) < 16 {
		return Partner{}, errors.New("api key must be at least 16 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.APIKey), bcrypt.DefaultCost)
	if err != nil {
		return Partner{}, err
	}

	p := Partner{
		ID:         uuid.NewString(),
		Name:       input.Name,
		ShortName:  input.ShortName,
		IsActive:   true,
		APIKeyHash: hash,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return Partner{}, err
	}
	return p, nil
}

// Get fetches a partner by id.
func (s *Service) Get(ctx context.Context, partnerID string) (Partner, error) {
	return s.repo.FindByID(ctx, partnerID)
}

// Authenticate verifies a partner id and API key pair.
func (s *Service) Authenticate(ctx context.Context, partnerID, apiKey string) (Partner, error) {
	p, err := s.repo.FindActiveByID(ctx, partnerID)
	if err != nil {
		return Partner{}, err
	}
	if err := bcrypt.CompareHashAndPassword(p.APIKeyHash, []byte(apiKey)); err != nil {
		return Partner{}, ErrBadAPIKey
	}
	return p, nil
}
