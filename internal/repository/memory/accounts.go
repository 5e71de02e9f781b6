package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"coursehub/internal/model"
)

type accountTable struct{ table }

func (t accountTable) Create(_ context.Context, account *model.Account) error {
	return t.write(func(d *dataset) error {
		for _, a := range d.accounts {
			if strings.EqualFold(a.Email, account.Email) {
				return gorm.ErrDuplicatedKey
			}
		}
		account.AccountID = d.ids.Next("accounts")
		account.Touch(t.now())
		d.accounts[account.AccountID] = *account
		return nil
	})
}

func (t accountTable) GetByID(_ context.Context, id int64) (*model.Account, error) {
	var (
		out model.Account
		ok  bool
	)
	t.read(func(d *dataset) { out, ok = d.accounts[id] })
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &out, nil
}

func (t accountTable) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	var (
		out model.Account
		ok  bool
	)
	t.read(func(d *dataset) {
		for _, a := range d.accounts {
			if strings.EqualFold(a.Email, email) {
				out, ok = a, true
				return
			}
		}
	})
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &out, nil
}

func (t accountTable) ListByIDs(_ context.Context, ids []int64) ([]model.Account, error) {
	out := []model.Account{}
	t.read(func(d *dataset) {
		for _, id := range ids {
			if a, ok := d.accounts[id]; ok {
				out = append(out, a)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

type sessionTable struct{ table }

func (t sessionTable) Replace(_ context.Context, session *model.Session) error {
	return t.write(func(d *dataset) error {
		for token, s := range d.sessions {
			if s.AccountID == session.AccountID {
				delete(d.sessions, token)
			}
		}
		if _, exists := d.sessions[session.Token]; exists {
			return gorm.ErrDuplicatedKey
		}
		if session.CreatedAt.IsZero() {
			session.CreatedAt = t.now()
		}
		d.sessions[session.Token] = *session
		return nil
	})
}

func (t sessionTable) GetByToken(_ context.Context, token string) (*model.Session, error) {
	var (
		out model.Session
		ok  bool
	)
	t.read(func(d *dataset) { out, ok = d.sessions[token] })
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &out, nil
}

func (t sessionTable) DeleteByToken(_ context.Context, token string) error {
	return t.write(func(d *dataset) error {
		delete(d.sessions, token)
		return nil
	})
}

func (t sessionTable) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := t.write(func(d *dataset) error {
		for token, s := range d.sessions {
			if s.CreatedAt.Before(cutoff) {
				delete(d.sessions, token)
				n++
			}
		}
		return nil
	})
	return n, err
}
