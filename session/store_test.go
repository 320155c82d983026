package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"portfolio/backend"
	"portfolio/models"
)

const (
	testWait = time.Second
	testTick = 5 * time.Millisecond
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(&models.Credential{})
	return db
}

type fakeAPI struct {
	mu          sync.Mutex
	loginRes    *backend.LoginResult
	loginErr    error
	loginFn     func(ctx context.Context, token string) (*backend.LoginResult, error)
	verifyUser  *models.User
	verifyErr   error
	logoutErr   error
	logoutFn    func(ctx context.Context) error
	verifyGate  chan struct{}
	verifyCalls int
}

func (f *fakeAPI) Login(ctx context.Context, token string) (*backend.LoginResult, error) {
	if f.loginFn != nil {
		return f.loginFn(ctx, token)
	}
	return f.loginRes, f.loginErr
}

func (f *fakeAPI) Verify(ctx context.Context) (*models.User, error) {
	f.mu.Lock()
	f.verifyCalls++
	gate := f.verifyGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.verifyUser, f.verifyErr
}

func (f *fakeAPI) Logout(ctx context.Context) error {
	if f.logoutFn != nil {
		return f.logoutFn(ctx)
	}
	return f.logoutErr
}

func testUser() models.User {
	return models.User{ID: 1, Name: "Admin", Username: "admin", Role: "admin"}
}

func TestStore_StartsLoading(t *testing.T) {
	store := NewStore(&fakeAPI{}, NewCredentials(setupTestDB()))
	assert.Equal(t, StateLoading, store.State())
	assert.True(t, store.Loading())
	assert.False(t, store.Authenticated())
}

func TestLogin_Success(t *testing.T) {
	creds := NewCredentials(setupTestDB())
	user := testUser()
	api := &fakeAPI{loginRes: &backend.LoginResult{Success: true, Token: "issued", User: user}}
	store := NewStore(api, creds)

	outcome := store.Login(context.Background(), "access")

	assert.True(t, outcome.Success)
	assert.Equal(t, "Admin", outcome.User.Name)
	assert.Equal(t, StateAuthenticated, store.State())
	assert.Equal(t, "issued", creds.Token())

	cached, ok := creds.User()
	assert.True(t, ok)
	assert.Equal(t, "admin", cached.Username)
}

func TestLogin_Failure_LeavesStateUntouched(t *testing.T) {
	creds := NewCredentials(setupTestDB())
	creds.Save("old-token", testUser())

	api := &fakeAPI{loginRes: &backend.LoginResult{Success: false, Message: "Invalid access token"}}
	store := NewStore(api, creds)

	outcome := store.Login(context.Background(), "wrong")

	assert.False(t, outcome.Success)
	assert.Equal(t, "Invalid access token", outcome.Message)
	assert.Equal(t, "old-token", creds.Token(), "failed login must not touch stored credentials")
	assert.Equal(t, StateLoading, store.State())
}

func TestLogin_TransportError(t *testing.T) {
	api := &fakeAPI{loginErr: errors.New("connection refused")}
	store := NewStore(api, NewCredentials(setupTestDB()))

	outcome := store.Login(context.Background(), "access")

	assert.False(t, outcome.Success)
	assert.Equal(t, "Login failed", outcome.Message)
}

func TestCheckStatus_ValidToken(t *testing.T) {
	creds := NewCredentials(setupTestDB())
	creds.Save("stored", testUser())

	fresh := testUser()
	fresh.Name = "Renamed Admin"
	api := &fakeAPI{verifyUser: &fresh}
	store := NewStore(api, creds)

	store.CheckStatus(context.Background())

	assert.Equal(t, StateAuthenticated, store.State())
	assert.Equal(t, "Renamed Admin", store.User().Name)

	cached, ok := creds.User()
	assert.True(t, ok)
	assert.Equal(t, "Renamed Admin", cached.Name, "verified record replaces the cached one")
}

func TestCheckStatus_InvalidToken_ClearsCredentials(t *testing.T) {
	creds := NewCredentials(setupTestDB())
	creds.Save("stored", testUser())

	api := &fakeAPI{verifyErr: backend.ErrUnauthorized}
	store := NewStore(api, creds)

	store.CheckStatus(context.Background())

	assert.Equal(t, StateUnauthenticated, store.State())
	assert.Nil(t, store.User())
	assert.Empty(t, creds.Token())
	_, ok := creds.User()
	assert.False(t, ok)
}

func TestCheckStatus_CachedUserIsDisplayOnly(t *testing.T) {
	creds := NewCredentials(setupTestDB())
	creds.Save("stored", testUser())

	gate := make(chan struct{})
	api := &fakeAPI{verifyUser: ptr(testUser()), verifyGate: gate}
	store := NewStore(api, creds)

	done := make(chan struct{})
	go func() {
		store.CheckStatus(context.Background())
		close(done)
	}()

	// While verification is in flight the cached user is visible but the
	// session is not authenticated.
	assert.Eventually(t, func() bool { return store.User() != nil }, testWait, testTick)
	assert.False(t, store.Authenticated())
	assert.Equal(t, StateLoading, store.State())

	close(gate)
	<-done
	assert.True(t, store.Authenticated())
}

func TestCheckStatus_StaleCompletionDropped(t *testing.T) {
	creds := NewCredentials(setupTestDB())
	creds.Save("stored", testUser())

	gate := make(chan struct{})
	api := &fakeAPI{verifyErr: backend.ErrUnauthorized, verifyGate: gate}
	store := NewStore(api, creds)

	done := make(chan struct{})
	go func() {
		store.CheckStatus(context.Background())
		close(done)
	}()
	assert.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return api.verifyCalls == 1
	}, testWait, testTick)

	// A login lands while the slow verification is still in flight.
	api.loginRes = &backend.LoginResult{Success: true, Token: "fresh", User: testUser()}
	outcome := store.Login(context.Background(), "access")
	assert.True(t, outcome.Success)

	close(gate)
	<-done

	// The stale failure must not clobber the newer login.
	assert.Equal(t, StateAuthenticated, store.State())
	assert.Equal(t, "fresh", creds.Token())
}

func TestLogin_StaleCompletionDropped(t *testing.T) {
	creds := NewCredentials(setupTestDB())

	firstStarted := make(chan struct{})
	firstGate := make(chan struct{})
	api := &fakeAPI{}
	api.loginFn = func(ctx context.Context, token string) (*backend.LoginResult, error) {
		if token == "first" {
			close(firstStarted)
			<-firstGate
			return &backend.LoginResult{Success: true, Token: "first-issued", User: testUser()}, nil
		}
		return &backend.LoginResult{Success: true, Token: "second-issued", User: testUser()}, nil
	}
	store := NewStore(api, creds)

	done := make(chan LoginOutcome, 1)
	go func() {
		done <- store.Login(context.Background(), "first")
	}()
	<-firstStarted

	// A second login lands while the first one is still in flight.
	outcome := store.Login(context.Background(), "second")
	assert.True(t, outcome.Success)

	close(firstGate)
	stale := <-done

	// The first-issued login finished last; its completion must be dropped.
	assert.False(t, stale.Success)
	assert.Equal(t, "second-issued", creds.Token())
	assert.Equal(t, StateAuthenticated, store.State())
}

func TestLogout_StaleCompletionDropped(t *testing.T) {
	creds := NewCredentials(setupTestDB())

	logoutStarted := make(chan struct{})
	logoutGate := make(chan struct{})
	api := &fakeAPI{
		loginRes: &backend.LoginResult{Success: true, Token: "issued", User: testUser()},
	}
	api.logoutFn = func(ctx context.Context) error {
		close(logoutStarted)
		<-logoutGate
		return nil
	}
	store := NewStore(api, creds)
	store.Login(context.Background(), "access")

	done := make(chan struct{})
	go func() {
		store.Logout(context.Background())
		close(done)
	}()
	<-logoutStarted

	// A fresh login lands while the logout is still in flight.
	api.loginRes = &backend.LoginResult{Success: true, Token: "fresh", User: testUser()}
	outcome := store.Login(context.Background(), "access-again")
	assert.True(t, outcome.Success)

	close(logoutGate)
	<-done

	// The stale logout completion must not clear the newer login.
	assert.Equal(t, StateAuthenticated, store.State())
	assert.Equal(t, "fresh", creds.Token())
	assert.NotNil(t, store.User())
}

func TestLogout_ClearsEverything(t *testing.T) {
	creds := NewCredentials(setupTestDB())
	user := testUser()
	api := &fakeAPI{loginRes: &backend.LoginResult{Success: true, Token: "issued", User: user}}
	store := NewStore(api, creds)
	store.Login(context.Background(), "access")

	store.Logout(context.Background())

	assert.Equal(t, StateUnauthenticated, store.State())
	assert.Nil(t, store.User())
	assert.Empty(t, creds.Token())
}

func TestLogout_BackendFailureStillClearsLocal(t *testing.T) {
	creds := NewCredentials(setupTestDB())
	user := testUser()
	api := &fakeAPI{
		loginRes:  &backend.LoginResult{Success: true, Token: "issued", User: user},
		logoutErr: errors.New("backend down"),
	}
	store := NewStore(api, creds)
	store.Login(context.Background(), "access")

	store.Logout(context.Background())

	assert.Equal(t, StateUnauthenticated, store.State())
	assert.Empty(t, creds.Token())
}

func ptr(u models.User) *models.User { return &u }
