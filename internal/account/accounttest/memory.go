// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package accounttest provides an in-memory [account.Store] for tests of the
// packages that depend on the identity store.
package accounttest

import (
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/authgate/internal/account"
	"github.com/taibuivan/authgate/internal/platform/apperr"
	"github.com/taibuivan/authgate/internal/platform/sec"
	"github.com/taibuivan/authgate/pkg/pointer"
	"github.com/taibuivan/authgate/pkg/uuid"
)

// MemoryStore is a mutex-guarded map honoring the same contract as
// [account.PostgresStore], including the compare-and-swap rotation.
//
// The exported error fields inject failures into the matching method.
type MemoryStore struct {
	mu       sync.Mutex
	byID     map[string]*account.Account
	hasher   sec.PasswordHasher
	now      func() time.Time
	findHits int

	CreateErr error
	FindErr   error
	DeleteErr error
}

// NewMemoryStore returns an empty store hashing with bcrypt's minimum cost.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*account.Account),
		hasher: sec.NewPasswordHasher(bcrypt.MinCost),
		now:    time.Now,
	}
}

func clone(a *account.Account) *account.Account {
	c := *a
	if a.RefreshToken != nil {
		c.RefreshToken = pointer.To(*a.RefreshToken)
	}
	return &c
}

func (s *MemoryStore) Create(_ context.Context, input account.NewAccount) (*account.Account, error) {
	input.Email = account.NormalizeEmail(input.Email)
	if err := account.ValidateNew(input); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	for _, existing := range s.byID {
		if existing.Email == input.Email {
			return nil, account.DuplicateEmailError(input.Email)
		}
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, account.HashError(err)
	}

	now := s.now().UTC()
	created := &account.Account{
		ID:           uuid.New(),
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byID[created.ID] = created

	return clone(created), nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.findHits++
	if s.FindErr != nil {
		return nil, s.FindErr
	}
	found, ok := s.byID[id]
	if !ok {
		return nil, apperr.NotFound("Account")
	}
	return clone(found), nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*account.Account, error) {
	email = account.NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.findHits++
	if s.FindErr != nil {
		return nil, s.FindErr
	}
	for _, a := range s.byID {
		if a.Email == email {
			return clone(a), nil
		}
	}
	return nil, apperr.NotFound("Account")
}

func (s *MemoryStore) VerifyPassword(a *account.Account, plaintext string) bool {
	if a == nil {
		return false
	}
	return s.hasher.Check(plaintext, a.PasswordHash)
}

func (s *MemoryStore) UpdateRefreshToken(_ context.Context, id, token string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found, ok := s.byID[id]
	if !ok {
		return apperr.NotFound("Account")
	}
	found.RefreshToken = pointer.To(token)
	found.RefreshTokenExpiry = expiry
	found.UpdatedAt = s.now().UTC()
	return nil
}

func (s *MemoryStore) RotateRefreshToken(_ context.Context, id, expected, next string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found, ok := s.byID[id]
	if !ok || !found.HasRefreshToken(expected, s.now()) {
		return account.ErrStaleRefreshToken
	}
	found.RefreshToken = pointer.To(next)
	found.RefreshTokenExpiry = expiry
	found.UpdatedAt = s.now().UTC()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	delete(s.byID, id)
	return nil
}

// # Inspection

// Len returns the number of stored accounts.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// FindCalls returns how many lookups reached the store.
func (s *MemoryStore) FindCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findHits
}

// StoredRefreshToken returns the persisted refresh token of id, or "".
func (s *MemoryStore) StoredRefreshToken(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.byID[id]; ok {
		return pointer.Val(a.RefreshToken)
	}
	return ""
}

// ExpireRefreshToken moves the stored refresh-token expiry of id to at.
func (s *MemoryStore) ExpireRefreshToken(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.byID[id]; ok {
		a.RefreshTokenExpiry = at
	}
}

var _ account.Store = (*MemoryStore)(nil)
