package risk

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	accountDomain "lendflow-backend/internal/domain/account"
	auditDomain "lendflow-backend/internal/domain/audit"
	"lendflow-backend/internal/domain/errs"
	"lendflow-backend/internal/domain/uow"
)

// SetBlacklist toggles a user's blacklist record and syncs the denormalized
// flag on the user row, atomically. Admin-only.
func (e *Engine) SetBlacklist(ctx context.Context, userID, reason string, active bool, actor *accountDomain.User) error {
	if actor == nil || !actor.Privileged() {
		return errs.Permission("blacklist changes require a privileged actor")
	}
	return e.uow.WithinTx(ctx, func(r uow.Repos) error {
		u, err := r.Users.GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		before, _ := json.Marshal(map[string]bool{"is_blacklisted": u.IsBlacklisted})

		rec, err := r.Blacklists.GetActiveByUser(ctx, u.ID)
		switch {
		case err == nil:
			rec.IsActive = active
			rec.Reason = reason
			if err := r.Blacklists.Save(ctx, rec); err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if active {
				rec = &accountDomain.Blacklist{
					UserID:    u.ID,
					Reason:    reason,
					IsActive:  true,
					CreatedBy: actor.UserID,
				}
				if err := r.Blacklists.Create(ctx, rec); err != nil {
					return err
				}
			}
		default:
			return err
		}

		u.IsBlacklisted = active
		if err := r.Users.Save(ctx, u); err != nil {
			return err
		}

		after, _ := json.Marshal(map[string]bool{"is_blacklisted": active})
		return r.Audit.Append(ctx, &auditDomain.Entry{
			ActorID:       &actor.UserID,
			TargetType:    auditDomain.TargetUser,
			TargetID:      u.UserID,
			EventType:     auditDomain.EventBlacklistUpdated,
			Description:   reason,
			PayloadBefore: before,
			PayloadAfter:  after,
		})
	})
}
