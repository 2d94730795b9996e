package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/gatekeep/server/gatekeep/users"
	"codeberg.org/gatekeep/server/internal/token"
)

// mutex-guarded in-memory Store with the same semantics as the pgx
// repository: unique emails, conditional rotation, atomic find-or-create
type memoryStore struct {
	mu      sync.Mutex
	byID    map[string]*users.User
	byEmail map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		byID:    make(map[string]*users.User),
		byEmail: make(map[string]string),
	}
}

func clone(u *users.User) *users.User {
	c := *u
	if u.PasswordHash != nil {
		hash := *u.PasswordHash
		c.PasswordHash = &hash
	}
	if u.RefreshToken != nil {
		tok := *u.RefreshToken
		c.RefreshToken = &tok
	}
	return &c
}

func (m *memoryStore) FindByEmail(_ context.Context, email string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, users.ErrNotFound
	}
	return clone(m.byID[id]), nil
}

func (m *memoryStore) FindByID(_ context.Context, id string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return clone(u), nil
}

func (m *memoryStore) Create(_ context.Context, email, name string, passwordHash *string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[email]; exists {
		return nil, users.ErrDuplicateEmail
	}

	now := time.Now()
	u := &users.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         "user",
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.byID[u.ID] = u
	m.byEmail[email] = u.ID

	return clone(u), nil
}

func (m *memoryStore) FindOrCreateByEmail(_ context.Context, email, name string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, exists := m.byEmail[email]; exists {
		return clone(m.byID[id]), nil
	}

	now := time.Now()
	u := &users.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Role:      "user",
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.byID[u.ID] = u
	m.byEmail[email] = u.ID

	return clone(u), nil
}

func (m *memoryStore) UpdateRefreshToken(_ context.Context, id, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return users.ErrNotFound
	}
	u.RefreshToken = &refreshToken

	return nil
}

func (m *memoryStore) RotateRefreshToken(_ context.Context, id, current, next string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return false, nil
	}
	if u.RefreshToken == nil || *u.RefreshToken != current {
		return false, nil
	}
	u.RefreshToken = &next

	return true, nil
}

func (m *memoryStore) ClearRefreshToken(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.byID[id]; ok {
		u.RefreshToken = nil
	}

	return nil
}

func (m *memoryStore) setRole(id, role string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id].Role = role
}

func testCodecConfig() token.Config {
	return token.Config{
		AccessSecret:  []byte("access-secret-for-testing"),
		RefreshSecret: []byte("refresh-secret-for-testing"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}
}

func newTestService(t *testing.T) (*Service, *memoryStore, *token.Codec) {
	t.Helper()

	codec, err := token.NewCodec(testCodecConfig())
	require.NoError(t, err)

	store := newMemoryStore()
	return NewService(store, codec), store, codec
}

func TestRegister_NormalizesEmail(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, " A@B.com ", "secret123", "Ada")

	require.NoError(t, err)
	assert.Equal(t, "a@b.com", user.Email)
	assert.Equal(t, "user", user.Role)
	require.NotNil(t, user.PasswordHash)
	assert.NotEqual(t, "secret123", *user.PasswordHash)

	// the normalized form is what got stored
	_, ok := store.byEmail["a@b.com"]
	assert.True(t, ok)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "ada@example.com", "secret123", "Ada")
	require.NoError(t, err)

	// casing and whitespace variations still collide
	_, err = svc.Register(ctx, "  ADA@Example.COM", "different-pass", "Imposter")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRegister_StoreConstraintIsFinalArbiter(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	// the record appears between the pre-check and the insert, as it would
	// when two registrations race; the duplicate still surfaces cleanly
	_, err := store.Create(ctx, "ada@example.com", "Ada", nil)
	require.NoError(t, err)

	_, err = store.Create(ctx, "ada@example.com", "Imposter", nil)
	require.ErrorIs(t, err, users.ErrDuplicateEmail)

	_, err = svc.Register(ctx, "ada@example.com", "secret123", "Imposter")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestLogin_Success(t *testing.T) {
	svc, _, codec := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "ada@example.com", "secret123", "Ada")
	require.NoError(t, err)

	pair, err := svc.Login(ctx, "ada@example.com", "secret123")

	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := codec.Verify(pair.AccessToken, token.KindAccess)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "Ada", claims.Name)
	assert.Equal(t, "user", claims.Role)

	// the refresh half is immediately exchangeable
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestLogin_WrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "ada@example.com", "secret123", "Ada")
	require.NoError(t, err)

	_, wrongPass := svc.Login(ctx, "ada@example.com", "wrong-password")
	_, noUser := svc.Login(ctx, "nobody@example.com", "secret123")

	assert.ErrorIs(t, wrongPass, ErrInvalidCredentials)
	assert.ErrorIs(t, noUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPass.Error(), noUser.Error(), "responses must not reveal which emails exist")
}

func TestLogin_SocialOnlyAccountHasNoPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.SocialLogin(ctx, "ada@example.com", "Ada")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ada@example.com", "anything")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_SupersedesPreviousSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "ada@example.com", "secret123", "Ada")
	require.NoError(t, err)

	first, err := svc.Login(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)

	// the earlier session's refresh token died with the new login
	_, err = svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRefresh_SingleUseRotation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "ada@example.com", "secret123", "Ada")
	require.NoError(t, err)

	first, err := svc.Login(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// replaying the exchanged token fails even though it has not expired
	_, err = svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// the new token still works
	_, err = svc.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestRefresh_RotatesWithinSameSecond(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "ada@example.com", "secret123", "Ada")
	require.NoError(t, err)

	pair, err := svc.Login(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)

	// several back-to-back exchanges land in the same wall-clock second as
	// issuance; each must still mint a distinct token and kill its predecessor
	for range 5 {
		next, err := svc.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		require.NotEqual(t, pair.RefreshToken, next.RefreshToken,
			"rotation must never reissue the token it is replacing")

		_, err = svc.Refresh(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, ErrTokenRevoked)

		pair = next
	}
}

func TestRefresh_MissingToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestRefresh_GarbageToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Refresh(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "ada@example.com", "secret123", "Ada")
	require.NoError(t, err)

	// same secrets, negative TTL: a well-signed but expired refresh token
	cfg := testCodecConfig()
	cfg.RefreshTTL = -1 * time.Hour
	expiredCodec, err := token.NewCodec(cfg)
	require.NoError(t, err)

	expired, err := expiredCodec.Sign(token.Claims{UserID: user.ID, Email: user.Email}, token.KindRefresh)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, expired)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "ada@example.com", "secret123", "Ada")
	require.NoError(t, err)

	pair, err := svc.Login(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidOrExpired, "an access token must not pass as a refresh token")
}

func TestRefresh_ClaimsRederivedFromLiveRecord(t *testing.T) {
	svc, store, codec := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "ada@example.com", "secret123", "Ada")
	require.NoError(t, err)

	pair, err := svc.Login(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)

	// a role change after issuance must show up in the refreshed tokens
	store.setRole(user.ID, "admin")

	renewed, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	claims, err := codec.Verify(renewed.AccessToken, token.KindAccess)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)
}

func TestRefresh_ConcurrentCallsHaveOneWinner(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "ada@example.com", "secret123", "Ada")
	require.NoError(t, err)

	pair, err := svc.Login(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)

	const callers = 8

	var wg sync.WaitGroup
	results := make([]error, callers)

	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = svc.Refresh(ctx, pair.RefreshToken)
		}()
	}
	wg.Wait()

	var wins, replays int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		default:
			assert.ErrorIs(t, err, ErrTokenRevoked)
			replays++
		}
	}

	assert.Equal(t, 1, wins, "exactly one concurrent refresh may succeed")
	assert.Equal(t, callers-1, replays)
}

func TestSocialLogin_FindOrCreateIsStable(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, firstPair, err := svc.SocialLogin(ctx, " Ada@Example.com ", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", first.Email)
	assert.Nil(t, first.PasswordHash)
	assert.NotEmpty(t, firstPair.RefreshToken)

	second, _, err := svc.SocialLogin(ctx, "ada@example.com", "Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "repeat social login must reuse the record")
}

func TestSocialLogin_ReusesPasswordAccount(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "ada@example.com", "secret123", "Ada")
	require.NoError(t, err)

	resolved, pair, err := svc.SocialLogin(ctx, "ada@example.com", "Ada")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, resolved.ID)

	// and the pair it issued is live
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestLogout_RevokesSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "ada@example.com", "secret123", "Ada")
	require.NoError(t, err)

	pair, err := svc.Login(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, user.ID))

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}
