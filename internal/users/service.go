package users

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkline-labs/inkline/internal/blame"
)

// ErrInvalidProfile indicates the profile did not contain a usable identifier.
var ErrInvalidProfile = errors.New("users: invalid profile")

// ServiceConfig describes the dependencies required for profile resolution.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service manages author profiles and serves display lookups for blame views.
type Service struct {
	db    *gorm.DB
	now   func() time.Time
	cache sync.Map
}

// NewService constructs the profile service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:    cfg.Database,
		now:   clock,
		cache: sync.Map{},
	}, nil
}

// EnsureProfile records or refreshes the display identity for a user id. The
// write is an upsert keyed on the user id so repeated sign-ins converge on
// the latest email and display name.
func (s *Service) EnsureProfile(ctx context.Context, userID, email, displayName string) error {
	trimmedUserID := normalize(userID)
	if trimmedUserID == "" {
		return ErrInvalidProfile
	}

	profile := Profile{
		UserID:      trimmedUserID,
		Email:       normalize(email),
		DisplayName: normalize(displayName),
		LastSeenAt:  s.now(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_email", "user_display_name", "last_seen_at"}),
		}).
		Create(&profile).Error
	if err != nil {
		return err
	}

	s.cache.Store(trimmedUserID, blame.AuthorProfile{
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
	})
	return nil
}

// Profiles resolves author user ids to display profiles. Unknown ids are
// simply absent from the result; the blame view renders the raw id then.
func (s *Service) Profiles(ctx context.Context, userIDs []string) (map[string]blame.AuthorProfile, error) {
	resolved := make(map[string]blame.AuthorProfile, len(userIDs))
	missing := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		if cached, ok := s.cache.Load(userID); ok {
			if profile, ok := cached.(blame.AuthorProfile); ok {
				resolved[userID] = profile
				continue
			}
		}
		missing = append(missing, userID)
	}
	if len(missing) == 0 {
		return resolved, nil
	}

	var stored []Profile
	if err := s.db.WithContext(ctx).
		Where("user_id IN ?", missing).
		Find(&stored).Error; err != nil {
		return nil, err
	}
	for _, profile := range stored {
		entry := blame.AuthorProfile{
			DisplayName: profile.DisplayName,
			Email:       profile.Email,
		}
		resolved[profile.UserID] = entry
		s.cache.Store(profile.UserID, entry)
	}
	return resolved, nil
}
