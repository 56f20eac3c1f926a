package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"visitordesk/internal/events"
	"visitordesk/internal/models"
	console "visitordesk/internal/utils/logger"
)

var log = console.New("SERVICES")

var ErrInvalidTransition = errors.New("visitor is not in a state that allows this")

// VisitorService writes visitor rows and publishes each committed change on the
// visitor feed, the way a database change stream would.
type VisitorService struct {
	*BaseServiceImpl[models.Visitor]
	db  *gorm.DB
	pub events.Publisher
	now func() time.Time
}

func NewVisitorService(db *gorm.DB, pub events.Publisher) *VisitorService {
	return &VisitorService{
		BaseServiceImpl: NewBaseService(db, models.Visitor{}),
		db:              db,
		pub:             pub,
		now:             time.Now,
	}
}

// Register inserts a new visitor. A guest code marks a pre-registration.
func (s *VisitorService) Register(ctx context.Context, v *models.Visitor) error {
	v.ID = ""
	v.Status = models.VisitorStatusPending
	v.CheckedInAt, v.CheckedOutAt = nil, nil
	if err := s.db.WithContext(ctx).Create(v).Error; err != nil {
		return log.Error("failed to register visitor %s", err, v.Name)
	}
	s.publish(models.ChangeInsert, v)
	return nil
}

func (s *VisitorService) CheckIn(ctx context.Context, id string) (*models.Visitor, error) {
	return s.mutate(ctx, id, func(v *models.Visitor) (map[string]interface{}, error) {
		if v.Status != models.VisitorStatusPending {
			return nil, ErrInvalidTransition
		}
		now := s.now()
		v.Status, v.CheckedInAt = models.VisitorStatusCheckedIn, &now
		return map[string]interface{}{"status": v.Status, "checked_in_at": now}, nil
	})
}

func (s *VisitorService) CheckOut(ctx context.Context, id string) (*models.Visitor, error) {
	return s.mutate(ctx, id, func(v *models.Visitor) (map[string]interface{}, error) {
		if v.Status != models.VisitorStatusCheckedIn {
			return nil, ErrInvalidTransition
		}
		now := s.now()
		v.Status, v.CheckedOutAt = models.VisitorStatusCheckedOut, &now
		return map[string]interface{}{"status": v.Status, "checked_out_at": now}, nil
	})
}

func (s *VisitorService) SetBlacklisted(ctx context.Context, id string, blacklisted bool) (*models.Visitor, error) {
	return s.mutate(ctx, id, func(v *models.Visitor) (map[string]interface{}, error) {
		v.IsBlacklisted = blacklisted
		return map[string]interface{}{"is_blacklisted": blacklisted}, nil
	})
}

// mutate loads the row under a lock, applies change and publishes the result
// once the transaction commits.
func (s *VisitorService) mutate(ctx context.Context, id string, change func(*models.Visitor) (map[string]interface{}, error)) (*models.Visitor, error) {
	v := &models.Visitor{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(v).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		updates, err := change(v)
		if err != nil {
			return err
		}
		return tx.Model(&models.Visitor{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	s.publish(models.ChangeUpdate, v)
	return v, nil
}

func (s *VisitorService) publish(kind models.ChangeType, v *models.Visitor) {
	if s.pub == nil {
		return
	}
	s.pub.Emit(events.TopicVisitorsChanged, models.VisitorEvent{Type: kind, New: v.Snapshot(), At: s.now()})
}
