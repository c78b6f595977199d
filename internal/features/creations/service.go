package creations

import (
	"context"

	log "github.com/sirupsen/logrus"

	"storyforge.app/api/internal/common"
)

type Store interface {
	Create(ctx context.Context, c *Creation) error
	Get(ctx context.Context, userID string, kind common.Kind, id int64) (*Creation, error)
	List(ctx context.Context, userID string, kind common.Kind, limit, offset int) ([]*Creation, error)
	Update(ctx context.Context, c *Creation) error
	Delete(ctx context.Context, userID string, kind common.Kind, id int64) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Create(ctx context.Context, userID string, kind common.Kind, in Input) (*Creation, error) {
	if err := normalize(kind, &in); err != nil {
		return nil, err
	}
	c := &Creation{
		UserID:   userID,
		Kind:     kind,
		Name:     in.Name,
		Summary:  in.Summary,
		Fields:   in.Fields,
		ImageURL: in.ImageURL,
		Tags:     in.Tags,
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"user_id": userID, "kind": kind, "id": c.ID}).Debug("Creation saved")
	return c, nil
}

// Get returns the creation if userID owns it, ErrNotFound otherwise.
func (s *Service) Get(ctx context.Context, userID string, kind common.Kind, id int64) (*Creation, error) {
	return s.store.Get(ctx, userID, kind, id)
}

func (s *Service) List(ctx context.Context, userID string, kind common.Kind, limit, offset int) ([]*Creation, error) {
	limit, offset = common.ClampPage(limit, offset, 50, 200)
	return s.store.List(ctx, userID, kind, limit, offset)
}

func (s *Service) Update(ctx context.Context, userID string, kind common.Kind, id int64, p *Patch) (*Creation, error) {
	c, err := s.store.Get(ctx, userID, kind, id)
	if err != nil {
		return nil, err
	}
	in := apply(c, p)
	if err := normalize(kind, &in); err != nil {
		return nil, err
	}
	c.Name, c.Summary, c.Fields, c.ImageURL, c.Tags = in.Name, in.Summary, in.Fields, in.ImageURL, in.Tags
	if err := s.store.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, userID string, kind common.Kind, id int64) error {
	return s.store.Delete(ctx, userID, kind, id)
}
