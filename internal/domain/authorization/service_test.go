package authorization

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carelog/carelog/internal/platform/clock"
)

var svcNow = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

type memAuthRepo struct {
	byID map[uuid.UUID]*Authorization
}

func newMemAuthRepo() *memAuthRepo {
	return &memAuthRepo{byID: make(map[uuid.UUID]*Authorization)}
}

func (r *memAuthRepo) Create(_ context.Context, a *Authorization) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *memAuthRepo) GetByID(_ context.Context, id uuid.UUID) (*Authorization, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *a
	return &cp, nil
}

func (r *memAuthRepo) Update(_ context.Context, a *Authorization) error {
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *memAuthRepo) ActiveForClient(_ context.Context, clientID uuid.UUID, asOf time.Time) (*Authorization, error) {
	for _, a := range r.byID {
		if a.ClientID == clientID && a.Status == StatusActive && a.Covers(asOf) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memAuthRepo) AddUsedUnits(_ context.Context, id uuid.UUID, units float64) error {
	a, ok := r.byID[id]
	if !ok {
		return errors.New("not found")
	}
	a.UsedUnits += units
	return nil
}

func (r *memAuthRepo) ListByClient(_ context.Context, clientID uuid.UUID, _, _ int) ([]*Authorization, int, error) {
	var out []*Authorization
	for _, a := range r.byID {
		if a.ClientID == clientID {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

func validAuth() *Authorization {
	return &Authorization{
		ClientID:        uuid.New(),
		CompanyID:       uuid.New(),
		StartDate:       svcNow.AddDate(0, 0, -30),
		EndDate:         svcNow.AddDate(0, 0, 30),
		AuthorizedUnits: 100,
		UnitType:        UnitHourly,
	}
}

func TestCreate_DefaultsToActive(t *testing.T) {
	repo := newMemAuthRepo()
	svc := NewService(repo, clock.Fixed{T: svcNow})

	a := validAuth()
	if err := svc.Create(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	if a.Status != StatusActive {
		t.Errorf("status = %s, want ACTIVE", a.Status)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newMemAuthRepo(), clock.Fixed{T: svcNow})

	cases := []struct {
		name   string
		mutate func(*Authorization)
	}{
		{"missing client", func(a *Authorization) { a.ClientID = uuid.Nil }},
		{"inverted dates", func(a *Authorization) { a.EndDate = a.StartDate.AddDate(0, 0, -1) }},
		{"zero units", func(a *Authorization) { a.AuthorizedUnits = 0 }},
		{"bad unit type", func(a *Authorization) { a.UnitType = "FORTNIGHTLY" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := validAuth()
			tc.mutate(a)
			if err := svc.Create(context.Background(), a); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestActiveBalance_NoneIsNil(t *testing.T) {
	svc := NewService(newMemAuthRepo(), clock.Fixed{T: svcNow})
	a, err := svc.ActiveBalance(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if a != nil {
		t.Errorf("balance = %+v, want nil", a)
	}
}

func TestExpire_OnlyPastEndDate(t *testing.T) {
	repo := newMemAuthRepo()
	svc := NewService(repo, clock.Fixed{T: svcNow})

	current := validAuth()
	current.Status = StatusActive
	if err := repo.Create(context.Background(), current); err != nil {
		t.Fatal(err)
	}
	if err := svc.Expire(context.Background(), current); err != nil {
		t.Fatal(err)
	}
	if current.Status != StatusActive {
		t.Errorf("status = %s, covering authorization must stay ACTIVE", current.Status)
	}

	past := validAuth()
	past.EndDate = svcNow.AddDate(0, 0, -1)
	if err := repo.Create(context.Background(), past); err != nil {
		t.Fatal(err)
	}
	if err := svc.Expire(context.Background(), past); err != nil {
		t.Fatal(err)
	}
	if past.Status != StatusExpired {
		t.Errorf("status = %s, want EXPIRED", past.Status)
	}
}
