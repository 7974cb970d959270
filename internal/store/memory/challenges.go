package memory

import (
	"context"
	"fmt"
	"time"

	otpdomain "taskmgr/backend/internal/otp/domain"
	otprepo "taskmgr/backend/internal/otp/repository"
)

type challengeRepo struct {
	a access
}

func (r challengeRepo) Create(ctx context.Context, c *otpdomain.Challenge) error {
	return r.a.write(func(d *data) error {
		for i := range d.challenges {
			if d.challenges[i].ID == c.ID {
				return fmt.Errorf("memory: duplicate challenge id %s", c.ID)
			}
		}
		d.challenges = append(d.challenges, copyChallenge(*c))
		return nil
	})
}

func (r challengeRepo) LatestPendingForUpdate(ctx context.Context, email string, purpose otpdomain.Purpose, now time.Time) (*otpdomain.Challenge, error) {
	var found *otpdomain.Challenge
	r.a.read(func(d *data) {
		for i := range d.challenges {
			c := &d.challenges[i]
			if c.Email != email || c.Purpose != purpose || c.IsConsumed() || c.IsExpired(now) {
				continue
			}
			// Later insertions win ties on CreatedAt.
			if found == nil || !c.CreatedAt.Before(found.CreatedAt) {
				cp := copyChallenge(*c)
				found = &cp
			}
		}
	})
	return found, nil
}

func (r challengeRepo) UpdateState(ctx context.Context, c *otpdomain.Challenge) error {
	return r.a.write(func(d *data) error {
		for i := range d.challenges {
			stored := &d.challenges[i]
			if stored.ID != c.ID {
				continue
			}
			if stored.IsConsumed() {
				return otprepo.ErrAlreadyConsumed
			}
			if c.Attempts > stored.MaxAttempts {
				return fmt.Errorf("memory: attempts %d exceed max %d", c.Attempts, stored.MaxAttempts)
			}
			stored.Attempts = c.Attempts
			stored.ConsumedAt = copyTime(c.ConsumedAt)
			return nil
		}
		return otprepo.ErrAlreadyConsumed
	})
}

func (r challengeRepo) CountByEmailPurposeSince(ctx context.Context, email string, purpose otpdomain.Purpose, since time.Time) (int, error) {
	return r.count(func(c *otpdomain.Challenge) bool {
		return c.Email == email && c.Purpose == purpose && c.CreatedAt.After(since)
	}), nil
}

func (r challengeRepo) CountByEmailSince(ctx context.Context, email string, since time.Time) (int, error) {
	return r.count(func(c *otpdomain.Challenge) bool {
		return c.Email == email && c.CreatedAt.After(since)
	}), nil
}

func (r challengeRepo) CountByOriginIPSince(ctx context.Context, ip string, since time.Time) (int, error) {
	return r.count(func(c *otpdomain.Challenge) bool {
		return c.OriginIP != "" && c.OriginIP == ip && c.CreatedAt.After(since)
	}), nil
}

func (r challengeRepo) count(match func(c *otpdomain.Challenge) bool) int {
	n := 0
	r.a.read(func(d *data) {
		for i := range d.challenges {
			if match(&d.challenges[i]) {
				n++
			}
		}
	})
	return n
}

func copyChallenge(c otpdomain.Challenge) otpdomain.Challenge {
	c.ConsumedAt = copyTime(c.ConsumedAt)
	return c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
