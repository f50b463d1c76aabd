package campaign

import (
	"context"
	"fmt"
	"time"

	"campaign-console/pkg/errutil"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Workflow operations. Each one runs a transactional read-check-write: the
// row is loaded, the rule checked against the observed state, and the UPDATE
// guarded on that same state. Two racing writers cannot both win.

func transitionDenied(from, to State) error {
	return errutil.Conflict(fmt.Sprintf("cannot transition campaign from %s to %s", from, to))
}

func gateDenied(result GateResult) error {
	return errutil.UnprocessableEntity("campaign is not publishable",
		errutil.WithMessages("reasons", result.Reasons...))
}

// Transition moves a campaign along the state table without any gating. It
// is the low-level primitive; Schedule and Publish are the gated paths a UI
// should use.
func (s *Service) Transition(ctx context.Context, id int64, newState State) (*Campaign, error) {
	if !newState.Valid() {
		return nil, errutil.BadRequest(fmt.Sprintf("unknown state %q", newState))
	}

	var updated Campaign
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := findByID(tx, id)
		if err != nil {
			return err
		}
		if !c.State.CanTransitionTo(newState) {
			return transitionDenied(c.State, newState)
		}
		if err := guardedUpdate(tx, id, c.State, map[string]interface{}{"state": newState}); err != nil {
			return err
		}
		c.State = newState
		updated = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Schedule books a Draft for a future start. The gate must pass and the
// start must be strictly in the future.
func (s *Service) Schedule(ctx context.Context, id int64, startAt time.Time, endAt *time.Time) (*Campaign, error) {
	now := s.nowFn()

	var updated Campaign
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := findByID(tx, id)
		if err != nil {
			return err
		}
		if c.State != StateDraft {
			return errutil.Conflict("only Draft campaigns can be scheduled")
		}
		if !startAt.After(now) {
			return errutil.ValidationFailed("startDate must be in the future")
		}

		// Omitted endDate keeps whatever the draft already carries; either
		// way the start must land before it.
		end := endAt
		if end == nil {
			end = c.EndAt
		}
		if end != nil && !startAt.Before(*end) {
			return errutil.ValidationFailed("startDate must be before endDate")
		}
		if result := CheckPublishable(c); !result.Publishable {
			return gateDenied(result)
		}

		changes := map[string]interface{}{
			"state":    StateScheduled,
			"start_at": startAt,
		}
		if endAt != nil {
			changes["end_at"] = endAt
		}
		if err := guardedUpdate(tx, id, StateDraft, changes); err != nil {
			return err
		}

		c.State = StateScheduled
		c.StartAt = &startAt
		c.EndAt = end
		updated = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Publish takes a Draft live. A publish date in the past or absent means
// immediately (Live, startDate=now); a future one books it (Scheduled).
func (s *Service) Publish(ctx context.Context, id int64, publishAt, endAt *time.Time) (*Campaign, error) {
	now := s.nowFn()

	var updated Campaign
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := findByID(tx, id)
		if err != nil {
			return err
		}
		if c.State != StateDraft {
			return errutil.Conflict("only Draft campaigns can be published")
		}
		if result := CheckPublishable(c); !result.Publishable {
			return gateDenied(result)
		}

		target := StateLive
		start := now
		if publishAt != nil && publishAt.After(now) {
			target = StateScheduled
			start = *publishAt
		}

		// A draft may already carry an end date; the resolved start must
		// stay before whichever end survives this write.
		end := endAt
		if end == nil {
			end = c.EndAt
		}
		if end != nil && !start.Before(*end) {
			return errutil.ValidationFailed("endDate must be after the publish date")
		}

		changes := map[string]interface{}{
			"state":    target,
			"start_at": start,
		}
		if endAt != nil {
			changes["end_at"] = endAt
		}
		if err := guardedUpdate(tx, id, StateDraft, changes); err != nil {
			return err
		}

		c.State = target
		c.StartAt = &start
		c.EndAt = end
		updated = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Stop completes a Live campaign and stamps its end date.
func (s *Service) Stop(ctx context.Context, id int64) (*Campaign, error) {
	now := s.nowFn()

	var updated Campaign
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := findByID(tx, id)
		if err != nil {
			return err
		}
		if c.State != StateLive {
			return errutil.Conflict("only Live campaigns can be stopped")
		}

		changes := map[string]interface{}{
			"state":  StateComplete,
			"end_at": now,
		}
		if err := guardedUpdate(tx, id, StateLive, changes); err != nil {
			return err
		}

		c.State = StateComplete
		c.EndAt = &now
		updated = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Unschedule pulls a Scheduled campaign back to Draft and clears its start.
func (s *Service) Unschedule(ctx context.Context, id int64) (*Campaign, error) {
	var updated Campaign
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := findByID(tx, id)
		if err != nil {
			return err
		}
		if c.State != StateScheduled {
			return errutil.Conflict("only Scheduled campaigns can be unscheduled")
		}

		changes := map[string]interface{}{
			"state":    StateDraft,
			"start_at": nil,
		}
		if err := guardedUpdate(tx, id, StateScheduled, changes); err != nil {
			return err
		}

		c.State = StateDraft
		c.StartAt = nil
		updated = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Reschedule moves a Scheduled campaign's start. A date at or before now is
// a catch-up: the gate re-runs and the campaign goes Live immediately.
func (s *Service) Reschedule(ctx context.Context, id int64, publishAt time.Time) (*Campaign, error) {
	now := s.nowFn()

	var updated Campaign
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := findByID(tx, id)
		if err != nil {
			return err
		}
		if c.State != StateScheduled {
			return errutil.Conflict("only Scheduled campaigns can be rescheduled")
		}

		if publishAt.After(now) {
			if c.EndAt != nil && !publishAt.Before(*c.EndAt) {
				return errutil.ValidationFailed("startDate must be before endDate")
			}
			if err := guardedUpdate(tx, id, StateScheduled, map[string]interface{}{"start_at": publishAt}); err != nil {
				return err
			}
			c.StartAt = &publishAt
			updated = *c
			return nil
		}

		if c.EndAt != nil && !now.Before(*c.EndAt) {
			return errutil.ValidationFailed("campaign end date has already passed")
		}
		if result := CheckPublishable(c); !result.Publishable {
			return gateDenied(result)
		}

		changes := map[string]interface{}{
			"state":    StateLive,
			"start_at": now,
		}
		if err := guardedUpdate(tx, id, StateScheduled, changes); err != nil {
			return err
		}

		c.State = StateLive
		c.StartAt = &now
		updated = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ProcessScheduled flips every Scheduled campaign whose start has arrived to
// Live. No re-gating: the gate already passed when the campaign was booked.
// Safe to run from multiple sweepers at once; the guarded update makes each
// row transition exactly once.
func (s *Service) ProcessScheduled(ctx context.Context, now time.Time) ([]Campaign, error) {
	var due []Campaign
	if err := s.db.WithContext(ctx).
		Where("state = ?", StateScheduled).
		Where("start_at IS NOT NULL AND start_at <= ?", now).
		Find(&due).Error; err != nil {
		return nil, errutil.Internal("failed to sweep scheduled campaigns", errutil.WithErr(err))
	}

	transitioned := make([]Campaign, 0, len(due))
	for i := range due {
		c := due[i]
		res := s.db.WithContext(ctx).Model(&Campaign{}).
			Where("id = ? AND state = ?", c.ID, StateScheduled).
			Updates(map[string]interface{}{"state": StateLive})
		if res.Error != nil {
			s.logger.Error("failed to activate scheduled campaign",
				zap.Int64("id", c.ID), zap.Error(res.Error))
			continue
		}
		if res.RowsAffected == 0 {
			// another sweeper got there first
			continue
		}
		c.State = StateLive
		transitioned = append(transitioned, c)
	}

	if len(transitioned) > 0 {
		s.logger.Info("activated scheduled campaigns", zap.Int("count", len(transitioned)))
	}
	return transitioned, nil
}

// SoftDelete retires a Draft. The row stays for audit but drops out of
// default listings and can never transition again.
func (s *Service) SoftDelete(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := findByID(tx, id)
		if err != nil {
			return err
		}
		if c.State != StateDraft {
			return errutil.Conflict("Only Draft campaigns can be deleted")
		}
		return guardedUpdate(tx, id, StateDraft, map[string]interface{}{"state": StateDeleted})
	})
}
