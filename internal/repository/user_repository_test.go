package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"teomarket/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"golang.org/x/crypto/bcrypt"
)

// Registration stores bcrypt hashes, never plaintext.
func TestProperty_RegistrationCreatesHashedPasswords(t *testing.T) {
	repo := NewUserRepository(testDB)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("passwords are hashed with bcrypt and not stored as plaintext", prop.ForAll(
		func(email string, password string, firstName string, lastName string) bool {
			_, _ = testDB.Exec("DELETE FROM users WHERE email = $1", email)

			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
			if err != nil {
				t.Logf("Failed to hash password: %v", err)
				return false
			}

			user := &domain.User{
				ID:           uuid.New(),
				Email:        email,
				PasswordHash: string(hashedPassword),
				FirstName:    firstName,
				LastName:     lastName,
				Role:         domain.RoleCustomer,
				CreatedAt:    time.Now(),
				UpdatedAt:    time.Now(),
			}

			if err := repo.Create(ctx, user); err != nil {
				t.Logf("Failed to create user: %v", err)
				return false
			}

			retrievedUser, err := repo.FindByEmail(ctx, email)
			if err != nil {
				t.Logf("Failed to find user: %v", err)
				return false
			}

			if retrievedUser.PasswordHash == password {
				t.Logf("Password was stored as plaintext!")
				return false
			}

			if err := bcrypt.CompareHashAndPassword([]byte(retrievedUser.PasswordHash), []byte(password)); err != nil {
				t.Logf("Stored password is not a valid bcrypt hash: %v", err)
				return false
			}

			_, _ = testDB.Exec("DELETE FROM users WHERE email = $1", email)

			return true
		},
		gen.RegexMatch(`[a-z]{5,10}@[a-z]{3,8}\.(com|org|net|ro)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestUserCustomerGroupRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testDB)

	b2b, err := NewCustomerGroupRepository(testDB).FindByCode(ctx, domain.CustomerGroupB2BStandard)
	if err != nil {
		t.Fatalf("Seeded B2B group missing: %v", err)
	}

	user := &domain.User{
		ID:              uuid.New(),
		Email:           "firma-" + uuid.NewString()[:8] + "@teomarket.ro",
		PasswordHash:    "hash",
		Role:            domain.RoleCustomer,
		CustomerGroupID: &b2b.ID,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got.CustomerGroupID == nil || *got.CustomerGroupID != b2b.ID {
		t.Errorf("expected customer group %s, got %v", b2b.ID, got.CustomerGroupID)
	}

	if err := repo.Create(ctx, user); !errors.Is(err, ErrUserAlreadyExists) {
		t.Errorf("expected ErrUserAlreadyExists, got %v", err)
	}
	if _, err := repo.FindByID(ctx, uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRefreshTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewRefreshTokenRepository(testDB)
	user := createTestCustomer(t)

	live := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(24 * time.Hour),
		CreatedAt: time.Now(),
	}
	expired := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(-24 * time.Hour),
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}
	for _, tok := range []*domain.RefreshToken{live, expired} {
		if err := repo.Create(ctx, tok); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	if _, err := repo.FindByToken(ctx, live.Token); err != nil {
		t.Fatalf("FindByToken failed: %v", err)
	}

	removed, err := repo.DeleteExpired(ctx, time.Now())
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if removed < 1 {
		t.Errorf("expected at least one expired token removed, got %d", removed)
	}
	if _, err := repo.FindByToken(ctx, expired.Token); !errors.Is(err, ErrRefreshTokenNotFound) {
		t.Errorf("expected expired token gone, got %v", err)
	}

	if err := repo.Revoke(ctx, live.Token); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := repo.FindByToken(ctx, live.Token); !errors.Is(err, ErrRefreshTokenRevoked) {
		t.Errorf("expected ErrRefreshTokenRevoked, got %v", err)
	}
}
