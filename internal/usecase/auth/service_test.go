package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	domain "github.com/savolekovic/cijene-me-backend-sub000/internal/domain/auth"
	"github.com/savolekovic/cijene-me-backend-sub000/internal/infrastructure/token"
	"github.com/savolekovic/cijene-me-backend-sub000/internal/usecase/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// memUserRepo is an in-memory UserRepository with the same atomicity contract
// as the Postgres implementation: the refresh-slot compare-and-set runs under
// a single lock, so concurrent rotations serialize.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return domain.ErrEmailExists
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *memUserRepo) List(_ context.Context, filter domain.UserFilter) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.ExcludeAdmins && u.Role == domain.RoleAdmin {
			continue
		}
		clone := *u
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) UpdateRole(_ context.Context, id string, role domain.UserRole, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Role = role
	u.UpdatedAt = updatedAt
	return nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id, passwordHash string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	return nil
}

func (r *memUserRepo) SetRefreshToken(_ context.Context, id string, tok string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.RefreshToken = &tok
	u.UpdatedAt = updatedAt
	return nil
}

func (r *memUserRepo) CompareAndSetRefreshToken(_ context.Context, id, expected, newToken string, updatedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return false, nil
	}
	if u.RefreshToken == nil || *u.RefreshToken != expected {
		return false, nil
	}
	u.RefreshToken = &newToken
	u.UpdatedAt = updatedAt
	return true, nil
}

func (r *memUserRepo) ClearRefreshToken(_ context.Context, id string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.RefreshToken = nil
	u.UpdatedAt = updatedAt
	return nil
}

func newTestService(t *testing.T) (*auth.Service, *memUserRepo) {
	t.Helper()
	repo := newMemUserRepo()
	tokens := token.NewJWTManager(
		"test-access-secret",
		"test-refresh-secret",
		30*time.Minute,
		720*time.Hour,
		"cijene-me-test",
	)
	return auth.NewService(repo, tokens), repo
}

func register(t *testing.T, svc *auth.Service, email, password string) *domain.User {
	t.Helper()
	user, err := svc.Register(context.Background(), email, password, "Test User")
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	user := register(t, svc, "a@x.com", "Secret123!")
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Empty(t, user.PasswordHash, "returned user must not expose the hash")

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "Secret123!", stored.PasswordHash)

	_, err = svc.Register(ctx, "a@x.com", "Another123!", "Dup")
	assert.ErrorIs(t, err, domain.ErrEmailExists)
}

func TestRegister_FreshSaltPerHash(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	first := register(t, svc, "a@x.com", "Secret123!")
	second := register(t, svc, "b@x.com", "Secret123!")

	storedFirst, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	storedSecond, err := repo.GetByID(ctx, second.ID)
	require.NoError(t, err)

	// Same password hashed twice: the digests differ because each hash draws a
	// fresh salt, yet both verify against the password.
	assert.NotEqual(t, storedFirst.PasswordHash, storedSecond.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(storedFirst.PasswordHash), []byte("Secret123!")))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(storedSecond.PasswordHash), []byte("Secret123!")))
}

func TestRegister_WeakPasswords(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, password := range []string{
		"short1!",     // too short
		"alllower1!",  // no uppercase
		"ALLUPPER1!",  // no lowercase
		"NoDigits!!",  // no number
		"NoSpecial11", // no special character
	} {
		_, err := svc.Register(ctx, "weak@x.com", password, "Weak")
		assert.ErrorIs(t, err, domain.ErrWeakPassword, "password %q", password)
	}
}

func TestLogin_UniformRejection(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	register(t, svc, "a@x.com", "Secret123!")

	_, _, err := svc.Login(ctx, domain.Credentials{Email: "a@x.com", Password: "Wrong123!"})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, _, err2 := svc.Login(ctx, domain.Credentials{Email: "nobody@x.com", Password: "Secret123!"})
	require.ErrorIs(t, err2, domain.ErrInvalidCredentials)

	// Wrong password and unknown email are indistinguishable to the caller.
	assert.Equal(t, err, err2)
}

func TestLogin_IssuesPairAndFillsSlot(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	user := register(t, svc, "a@x.com", "Secret123!")

	pair, loggedIn, err := svc.Login(ctx, domain.Credentials{Email: "a@x.com", Password: "Secret123!"})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Empty(t, loggedIn.PasswordHash)

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RefreshToken)
	assert.NotEqual(t, pair.RefreshToken, *stored.RefreshToken, "slot must hold a digest, not the raw token")
}

func TestLogin_SecondLoginInvalidatesFirstRefresh(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	register(t, svc, "a@x.com", "Secret123!")

	first, _, err := svc.Login(ctx, domain.Credentials{Email: "a@x.com", Password: "Secret123!"})
	require.NoError(t, err)
	second, _, err := svc.Login(ctx, domain.Credentials{Email: "a@x.com", Password: "Secret123!"})
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid, "first device's refresh token is dead after second login")

	_, err = svc.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestRefresh_Rotation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	register(t, svc, "a@x.com", "Secret123!")

	login, _, err := svc.Login(ctx, domain.Credentials{Email: "a@x.com", Password: "Secret123!"})
	require.NoError(t, err)
	r1 := login.RefreshToken

	rotated, err := svc.Refresh(ctx, r1)
	require.NoError(t, err)
	r2 := rotated.RefreshToken
	require.NotEqual(t, r1, r2)

	_, err = svc.Refresh(ctx, r1)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid, "reused token must be rejected")

	_, err = svc.Refresh(ctx, r2)
	assert.NoError(t, err, "the replacement token works exactly once more")
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	register(t, svc, "a@x.com", "Secret123!")

	pair, _, err := svc.Login(ctx, domain.Credentials{Email: "a@x.com", Password: "Secret123!"})
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRefresh_ConcurrentExactlyOneWins(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	register(t, svc, "a@x.com", "Secret123!")

	pair, _, err := svc.Login(ctx, domain.Credentials{Email: "a@x.com", Password: "Secret123!"})
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Refresh(ctx, pair.RefreshToken)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, rejections int
	for err := range results {
		switch {
		case err == nil:
			successes++
		default:
			require.ErrorIs(t, err, domain.ErrTokenInvalid)
			rejections++
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent refresh may win")
	assert.Equal(t, n-1, rejections)
}

func TestLogout_Finality(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := register(t, svc, "a@x.com", "Secret123!")

	pair, _, err := svc.Login(ctx, domain.Credentials{Email: "a@x.com", Password: "Secret123!"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, user.ID))

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestVerifyToken_RoleIsReadFresh(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	user := register(t, svc, "a@x.com", "Secret123!")
	require.NoError(t, repo.UpdateRole(ctx, user.ID, domain.RoleAdmin, time.Now()))

	pair, _, err := svc.Login(ctx, domain.Credentials{Email: "a@x.com", Password: "Secret123!"})
	require.NoError(t, err)

	resolved, err := svc.VerifyToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, resolved.Role)

	// Downgrade between requests; the same still-valid access token must now
	// resolve to the lower role.
	require.NoError(t, repo.UpdateRole(ctx, user.ID, domain.RoleUser, time.Now()))

	resolved, err = svc.VerifyToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, resolved.Role)
}

func TestVerifyToken_Rejections(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	user := register(t, svc, "a@x.com", "Secret123!")

	pair, _, err := svc.Login(ctx, domain.Credentials{Email: "a@x.com", Password: "Secret123!"})
	require.NoError(t, err)

	_, err = svc.VerifyToken(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid, "refresh token must not authenticate a request")

	_, err = svc.VerifyToken(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	// A valid token whose subject no longer exists is rejected identically.
	require.NoError(t, repo.Delete(ctx, user.ID))
	_, err = svc.VerifyToken(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := register(t, svc, "a@x.com", "Secret123!")

	err := svc.ChangePassword(ctx, user.ID, "Wrong123!", "Fresh456$")
	assert.ErrorIs(t, err, domain.ErrPasswordMismatch)

	err = svc.ChangePassword(ctx, user.ID, "Secret123!", "Secret123!")
	assert.ErrorIs(t, err, domain.ErrPasswordUnchanged)

	err = svc.ChangePassword(ctx, user.ID, "Secret123!", "weak")
	assert.ErrorIs(t, err, domain.ErrWeakPassword)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "Secret123!", "Fresh456$"))

	_, _, err = svc.Login(ctx, domain.Credentials{Email: "a@x.com", Password: "Secret123!"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, domain.Credentials{Email: "a@x.com", Password: "Fresh456$"})
	assert.NoError(t, err)
}

// TestFullSessionLifecycle walks the canonical flow: register, login, rotate,
// reject the stale token, logout, reject the survivor.
func TestFullSessionLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user := register(t, svc, "a@x.com", "Secret123!")

	login, _, err := svc.Login(ctx, domain.Credentials{Email: "a@x.com", Password: "Secret123!"})
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.AccessToken, rotated.AccessToken)

	_, err = svc.Refresh(ctx, login.RefreshToken)
	require.ErrorIs(t, err, domain.ErrTokenInvalid)

	resolved, err := svc.VerifyToken(ctx, rotated.AccessToken)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, resolved.ID))
	assert.Equal(t, user.ID, resolved.ID)

	_, err = svc.Refresh(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}
