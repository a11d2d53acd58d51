package memory

import (
	"context"
	"sort"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

type residentRepository struct{ s *Store }

func (r *residentRepository) Create(_ context.Context, res *models.Resident) (*models.Resident, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := models.NormalizeEmail(res.Email)
	for _, existing := range r.s.residents {
		if existing.Email == email {
			return nil, repository.ErrDuplicate
		}
	}
	c := *res
	c.ID = r.s.next("residents")
	c.Email = email
	if c.Role == "" {
		c.Role = models.RoleResident
	}
	c.FlatID = copyID(res.FlatID)
	c.Flat = nil
	c.CreatedAt = r.s.now()
	c.UpdatedAt = c.CreatedAt
	r.s.residents[c.ID] = &c
	return r.s.residentCopy(c.ID), nil
}

func (r *residentRepository) GetByID(_ context.Context, id int64) (*models.Resident, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.residentCopy(id), nil
}

func (r *residentRepository) GetByEmail(_ context.Context, email string) (*models.Resident, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = models.NormalizeEmail(email)
	for id, res := range r.s.residents {
		if res.Email == email {
			return r.s.residentCopy(id), nil
		}
	}
	return nil, nil
}

func (r *residentRepository) List(_ context.Context, filters repository.ResidentFilters) ([]*models.Resident, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var list []*models.Resident
	for _, id := range sortedIDs(r.s.residents) {
		res := r.s.residentCopy(id)
		if filters.Role != nil && res.Role != *filters.Role {
			continue
		}
		if filters.Block != nil && (res.Flat == nil || res.Flat.Block != *filters.Block) {
			continue
		}
		list = append(list, res)
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Flat != nil && b.Flat != nil && a.Flat.ID == b.Flat.ID {
			return a.Name < b.Name
		}
		return byFlat(a.Flat, b.Flat, a.ID, b.ID)
	})
	return list, nil
}

func (r *residentRepository) ListByFlat(_ context.Context, flatID int64) ([]*models.Resident, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var list []*models.Resident
	for _, id := range sortedIDs(r.s.residents) {
		res := r.s.residents[id]
		if res.Registered && res.LivesIn(flatID) {
			list = append(list, r.s.residentCopy(id))
		}
	}
	return list, nil
}

func (r *residentRepository) ListRegisteredIDs(_ context.Context) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var ids []int64
	for _, id := range sortedIDs(r.s.residents) {
		if r.s.residents[id].Registered {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *residentRepository) UpdateProfile(_ context.Context, res *models.Resident) (*models.Resident, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.residents[res.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if res.FlatID != nil {
		if _, ok := r.s.flats[*res.FlatID]; !ok {
			return nil, repository.ErrNotFound
		}
	}
	stored.Name = res.Name
	stored.Phone = res.Phone
	stored.FlatID = copyID(res.FlatID)
	stored.Registered = res.Registered
	stored.UpdatedAt = r.s.now()
	return r.s.residentCopy(res.ID), nil
}

func (r *residentRepository) UpdateRole(_ context.Context, id int64, role models.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.residents[id]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Role = role
	stored.UpdatedAt = r.s.now()
	return nil
}

type flatRepository struct{ s *Store }

func (r *flatRepository) Ensure(_ context.Context, block int, flatNumber string) (*models.Flat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if f := r.s.findFlat(block, flatNumber); f != nil {
		return f, nil
	}
	f := &models.Flat{ID: r.s.next("flats"), Block: block, FlatNumber: flatNumber}
	r.s.flats[f.ID] = f
	c := *f
	return &c, nil
}

func (r *flatRepository) GetByID(_ context.Context, id int64) (*models.Flat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.flatCopy(&id), nil
}

func (r *flatRepository) Find(_ context.Context, block int, flatNumber string) (*models.Flat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.findFlat(block, flatNumber), nil
}

func (s *Store) findFlat(block int, flatNumber string) *models.Flat {
	for _, f := range s.flats {
		if f.Block == block && f.FlatNumber == flatNumber {
			c := *f
			return &c
		}
	}
	return nil
}
