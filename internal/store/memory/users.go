package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	auditdomain "taskmgr/backend/internal/audit/domain"
	"taskmgr/backend/internal/db"
	identitydomain "taskmgr/backend/internal/identity/domain"
	userdomain "taskmgr/backend/internal/user/domain"
)

type userRepo struct {
	a access
}

func (r userRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	var found *userdomain.User
	r.a.read(func(d *data) {
		if u, ok := d.users[id]; ok {
			found = &u
		}
	})
	return found, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	var found *userdomain.User
	r.a.read(func(d *data) {
		for _, u := range d.users {
			if strings.EqualFold(u.Email, email) {
				found = &u
				return
			}
		}
	})
	return found, nil
}

func (r userRepo) Create(ctx context.Context, u *userdomain.User) error {
	return r.a.write(func(d *data) error {
		if _, ok := d.users[u.ID]; ok {
			return db.ErrConflict
		}
		for _, existing := range d.users {
			if strings.EqualFold(existing.Email, u.Email) || (u.RootAdmin && existing.RootAdmin) {
				return db.ErrConflict
			}
		}
		d.users[u.ID] = *u
		return nil
	})
}

func (r userRepo) HasRootAdmin(ctx context.Context) (bool, error) {
	exists := false
	r.a.read(func(d *data) {
		for _, u := range d.users {
			if u.RootAdmin {
				exists = true
				return
			}
		}
	})
	return exists, nil
}

func (r userRepo) SetEmailVerified(ctx context.Context, userID string) error {
	return r.a.write(func(d *data) error {
		u, ok := d.users[userID]
		if !ok {
			return nil
		}
		u.EmailVerified = true
		u.UpdatedAt = time.Now().UTC()
		d.users[userID] = u
		return nil
	})
}

type identityRepo struct {
	a access
}

func (r identityRepo) GetByUserAndProvider(ctx context.Context, userID string, provider identitydomain.IdentityProvider) (*identitydomain.Identity, error) {
	var found *identitydomain.Identity
	r.a.read(func(d *data) {
		for _, i := range d.identities {
			if i.UserID == userID && i.Provider == provider {
				found = &i
				return
			}
		}
	})
	return found, nil
}

func (r identityRepo) Create(ctx context.Context, i *identitydomain.Identity) error {
	return r.a.write(func(d *data) error {
		if _, ok := d.identities[i.ID]; ok {
			return db.ErrConflict
		}
		for _, existing := range d.identities {
			if existing.UserID == i.UserID && existing.Provider == i.Provider {
				return db.ErrConflict
			}
		}
		d.identities[i.ID] = *i
		return nil
	})
}

func (r identityRepo) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {
	return r.a.write(func(d *data) error {
		i, ok := d.identities[id]
		if !ok {
			return nil
		}
		i.PasswordHash = passwordHash
		d.identities[id] = i
		return nil
	})
}

type auditRepo struct {
	a access
}

func (r auditRepo) Create(ctx context.Context, a *auditdomain.AuditLog) error {
	return r.a.write(func(d *data) error {
		d.audit = append(d.audit, *a)
		return nil
	})
}

func (r auditRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*auditdomain.AuditLog, error) {
	var out []*auditdomain.AuditLog
	r.a.read(func(d *data) {
		for i := range d.audit {
			if d.audit[i].UserID == userID {
				a := d.audit[i]
				out = append(out, &a)
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
