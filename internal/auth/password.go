package auth

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultBcryptCost matches the work factor used for all stored passwords.
const DefaultBcryptCost = 12

// PasswordHasher hashes and verifies passwords with bcrypt. Each operation
// runs on its own goroutine and at most GOMAXPROCS run at once, so request
// goroutines never monopolize the CPU and can abandon the wait when their
// context ends.
type PasswordHasher struct {
	cost int
	sem  *semaphore.Weighted

	// dummy is compared against for unknown usernames so response time does
	// not reveal which accounts exist.
	dummyOnce sync.Once
	dummy     []byte
}

func NewPasswordHasher(cost int) *PasswordHasher {
	switch {
	case cost == 0:
		cost = DefaultBcryptCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &PasswordHasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

func (h *PasswordHasher) Cost() int {
	return h.cost
}

// Hash returns the bcrypt encoding of plaintext.
func (h *PasswordHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("password is empty")
	}
	var hash []byte
	err := h.run(ctx, func() error {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash. A mismatch is not an error;
// a malformed hash is.
func (h *PasswordHasher) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	var match bool
	err := h.run(ctx, func() error {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
		switch {
		case err == nil:
			match = true
			return nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return false, fmt.Errorf("verify password: %w", err)
	}
	return match, nil
}

// Burn spends the same effort as a failed Verify. Used for unknown users.
func (h *PasswordHasher) Burn(ctx context.Context, plaintext string) {
	_ = h.run(ctx, func() error {
		h.dummyOnce.Do(func() {
			h.dummy, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), h.cost)
		})
		_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plaintext))
		return nil
	})
}

func (h *PasswordHasher) run(ctx context.Context, fn func() error) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer h.sem.Release(1)
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// The goroutine finishes on its own and releases its slot.
		return ctx.Err()
	}
}
