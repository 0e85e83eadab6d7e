package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/usermanager/internal/common"
	"github.com/dmitrijs2005/usermanager/internal/server/models"
)

// MemoryRepository is an in-process Repository with the same live-row
// semantics as the Postgres one, including partial uniqueness of email
// and CPF. It is used by tests and by the server when no database is
// configured.
type MemoryRepository struct {
	mu    sync.RWMutex
	rows  map[string]*models.User
	order map[string]int
	seq   int
	now   func() time.Time
}

// NewMemoryRepository returns an empty store. A nil clock means time.Now.
func NewMemoryRepository(now func() time.Time) *MemoryRepository {
	if now == nil {
		now = time.Now
	}
	return &MemoryRepository{
		rows:  make(map[string]*models.User),
		order: make(map[string]int),
		now:   now,
	}
}

func clone(u *models.User) *models.User {
	c := *u
	c.Pronoun = clonePtr(u.Pronoun)
	c.Phone = clonePtr(u.Phone)
	c.BirthDate = clonePtr(u.BirthDate)
	c.CPF = clonePtr(u.CPF)
	c.DeletedAt = clonePtr(u.DeletedAt)
	c.DeletedBy = clonePtr(u.DeletedBy)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// live returns the non-deleted row id. Callers hold mu.
func (r *MemoryRepository) live(id string) (*models.User, bool) {
	u, ok := r.rows[id]
	if !ok || u.IsDeleted() {
		return nil, false
	}
	return u, true
}

// conflict reports the first live row other than excludeID that already
// holds email or cpf. Callers hold mu.
func (r *MemoryRepository) conflict(email string, cpf *string, excludeID string) error {
	for _, u := range r.rows {
		if u.IsDeleted() || u.ID == excludeID {
			continue
		}
		if u.Email == email {
			return &common.ConflictError{Field: models.FieldEmail}
		}
		if cpf != nil && u.CPF != nil && *u.CPF == *cpf {
			return &common.ConflictError{Field: models.FieldCPF}
		}
	}
	return nil
}

func (r *MemoryRepository) Insert(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[u.ID]; ok {
		return nil, common.ErrConflict
	}
	if err := r.conflict(u.Email, u.CPF, ""); err != nil {
		return nil, err
	}

	now := r.now()
	u.CreatedAt = now
	u.UpdatedAt = now

	r.rows[u.ID] = clone(u)
	r.seq++
	r.order[u.ID] = r.seq

	return u, nil
}

func (r *MemoryRepository) FindActiveByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.live(id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(u), nil
}

func (r *MemoryRepository) FindActiveByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.rows {
		if !u.IsDeleted() && u.Email == email {
			return clone(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) ExistsActiveByEmail(_ context.Context, email, excludeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.rows {
		if !u.IsDeleted() && u.ID != excludeID && u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) ExistsActiveByCPF(_ context.Context, cpf, excludeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.rows {
		if !u.IsDeleted() && u.ID != excludeID && u.CPF != nil && *u.CPF == cpf {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) Update(_ context.Context, id string, p models.UserPatch) (*models.User, error) {
	if p.IsEmpty() {
		return nil, common.ErrNothingToUpdate
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.live(id)
	if !ok {
		return nil, common.ErrorNotFound
	}

	next := clone(cur)
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.Pronoun != nil {
		next.Pronoun = clonePtr(p.Pronoun)
	}
	if p.Email != nil {
		next.Email = *p.Email
	}
	if p.Phone != nil {
		next.Phone = clonePtr(p.Phone)
	}
	if p.BirthDate != nil {
		next.BirthDate = clonePtr(p.BirthDate)
	}
	if p.CPF != nil {
		next.CPF = clonePtr(p.CPF)
	}
	if p.Active != nil {
		next.Active = *p.Active
	}
	if p.PasswordHash != nil {
		next.PasswordHash = *p.PasswordHash
	}

	if err := r.conflict(next.Email, next.CPF, id); err != nil {
		return nil, err
	}

	next.UpdatedAt = r.now()
	r.rows[next.ID] = next

	return clone(next), nil
}

func (r *MemoryRepository) SoftDelete(_ context.Context, id, deletedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.live(id)
	if !ok {
		return common.ErrorNotFound
	}

	now := r.now()
	u.DeletedAt = &now
	u.DeletedBy = &deletedBy
	return nil
}

func (r *MemoryRepository) TouchUpdatedAt(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.live(id)
	if !ok {
		return common.ErrorNotFound
	}
	u.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) List(_ context.Context, f models.ListFilter) ([]*models.User, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(f.Search)

	var matched []*models.User
	for _, u := range r.rows {
		if u.IsDeleted() {
			continue
		}
		if f.Active != nil && u.Active != *f.Active {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		matched = append(matched, u)
	}

	// newest first; insertion order breaks ties
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return r.order[a.ID] > r.order[b.ID]
	})

	total := len(matched)
	start := min(f.Offset(), total)
	end := min(start+f.Limit, total)

	page := make([]*models.User, 0, end-start)
	for _, u := range matched[start:end] {
		page = append(page, clone(u))
	}

	return page, total, nil
}

func (r *MemoryRepository) Stats(_ context.Context, now time.Time) (*models.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	long := now.Add(-newUsersLongWindow)
	short := now.Add(-newUsersShortWindow)

	s := &models.Stats{}
	for _, u := range r.rows {
		if u.IsDeleted() {
			continue
		}
		s.TotalUsers++
		if u.Active {
			s.ActiveUsers++
		} else {
			s.InactiveUsers++
		}
		if !u.CreatedAt.Before(long) {
			s.NewUsersLast30Days++
		}
		if !u.CreatedAt.Before(short) {
			s.NewUsersLast7Days++
		}
	}
	return s, nil
}
