package gallery

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/features/creations"
	"storyforge.app/api/internal/notify"
)

type Store interface {
	Create(ctx context.Context, it *Item) error
	Feed(ctx context.Context, kind common.Kind, limit, offset int) ([]*Item, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Item, error)
	LikedBy(ctx context.Context, userID string, ids []int64) (map[int64]bool, error)
	Delete(ctx context.Context, userID string, id int64) error
	LockItem(ctx context.Context, id int64) (int64, error)
	InsertLike(ctx context.Context, itemID int64, userID string) (bool, error)
	DeleteLike(ctx context.Context, itemID int64, userID string) (bool, error)
	SetLikeCount(ctx context.Context, id, count int64) error
	AddView(ctx context.Context, id int64) (int64, error)
}

// Creations resolves the owner's creation being published.
type Creations interface {
	Get(ctx context.Context, userID string, kind common.Kind, id int64) (*creations.Creation, error)
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	store     Store
	creations Creations
	notifier  notify.Notifier
	tx        Transactor
}

func NewService(store Store, creations Creations, notifier notify.Notifier, tx Transactor) *Service {
	return &Service{store: store, creations: creations, notifier: notifier, tx: tx}
}

// Publish puts one of the user's creations in the public gallery.
func (s *Service) Publish(ctx context.Context, userID string, req PublishRequest) (*Item, error) {
	kind, ok := common.ParseKind(req.ItemType)
	if !ok {
		return nil, common.Invalid("unknown itemType %q", req.ItemType)
	}
	if req.ItemID <= 0 {
		return nil, common.Invalid("itemId is required")
	}

	src, err := s.creations.Get(ctx, userID, kind, req.ItemID)
	if err != nil {
		return nil, err
	}

	title := common.NormalizeSpace(req.Title)
	if title == "" {
		title = src.Name
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		desc = src.Summary
	}

	it := &Item{
		UserID:      userID,
		ItemType:    kind,
		ItemID:      src.ID,
		Title:       common.Truncate(title, maxTitleLength),
		Description: common.Truncate(desc, maxDescriptionLength),
		ImageURL:    src.ImageURL,
	}
	if err := s.store.Create(ctx, it); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"item_id": it.ID,
		"type":    kind,
	}).Info("Creation published")
	s.notifier.Published(ctx, notify.Publication{
		ItemID:   it.ID,
		ItemType: string(kind),
		Title:    it.Title,
		UserID:   userID,
		ImageURL: it.ImageURL,
	})
	return it, nil
}

// Feed lists publications newest first. kind may be empty. When viewerID is
// set, items carry the viewer's like flag.
func (s *Service) Feed(ctx context.Context, viewerID, kind string, limit, offset int) ([]*Item, error) {
	var k common.Kind
	if kind != "" {
		var ok bool
		if k, ok = common.ParseKind(kind); !ok {
			return nil, common.Invalid("unknown type %q", kind)
		}
	}
	limit, offset = common.ClampPage(limit, offset, 20, 100)
	items, err := s.store.Feed(ctx, k, limit, offset)
	if err != nil {
		return nil, err
	}
	return items, s.markLiked(ctx, viewerID, items)
}

func (s *Service) Mine(ctx context.Context, userID string, limit, offset int) ([]*Item, error) {
	limit, offset = common.ClampPage(limit, offset, 20, 100)
	items, err := s.store.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return items, s.markLiked(ctx, userID, items)
}

func (s *Service) markLiked(ctx context.Context, viewerID string, items []*Item) error {
	if viewerID == "" || len(items) == 0 {
		return nil
	}
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	liked, err := s.store.LikedBy(ctx, viewerID, ids)
	if err != nil {
		return err
	}
	for _, it := range items {
		it.LikedByMe = liked[it.ID]
	}
	return nil
}

// Unpublish removes the user's own publication.
func (s *Service) Unpublish(ctx context.Context, userID string, id int64) error {
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return err
	}
	log.WithFields(log.Fields{"user_id": userID, "item_id": id}).Info("Publication removed")
	return nil
}

// Like is idempotent: liking twice counts once.
func (s *Service) Like(ctx context.Context, userID string, id int64) (*LikeState, error) {
	return s.toggleLike(ctx, userID, id, true)
}

// Unlike is idempotent as well.
func (s *Service) Unlike(ctx context.Context, userID string, id int64) (*LikeState, error) {
	return s.toggleLike(ctx, userID, id, false)
}

func (s *Service) toggleLike(ctx context.Context, userID string, id int64, like bool) (*LikeState, error) {
	state := &LikeState{Liked: like}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		count, err := s.store.LockItem(ctx, id)
		if err != nil {
			return err
		}

		var changed bool
		if like {
			changed, err = s.store.InsertLike(ctx, id, userID)
		} else {
			changed, err = s.store.DeleteLike(ctx, id, userID)
		}
		if err != nil {
			return err
		}

		state.LikeCount = count
		if !changed {
			return nil
		}
		if like {
			state.LikeCount++
		} else if state.LikeCount > 0 {
			state.LikeCount--
		}
		return s.store.SetLikeCount(ctx, id, state.LikeCount)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// View counts one view and returns the new total.
func (s *Service) View(ctx context.Context, id int64) (int64, error) {
	return s.store.AddView(ctx, id)
}
