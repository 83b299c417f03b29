package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"concertlog/api/internal/config"
	"concertlog/api/internal/models"
	"concertlog/api/internal/repository"
	"concertlog/api/internal/repository/memstore"
	"concertlog/api/internal/security"
	"concertlog/api/internal/validation"
)

var (
	_ UserStore    = (*repository.UserRepository)(nil)
	_ UserStore    = (*memstore.Users)(nil)
	_ ConcertStore = (*repository.ConcertRepository)(nil)
	_ ConcertStore = (*memstore.Concerts)(nil)
)

type recordingNotifier struct {
	mu            sync.Mutex
	welcomed      []string
	cancellations []string
}

func (n *recordingNotifier) Welcome(email, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomed = append(n.welcomed, email)
}

func (n *recordingNotifier) Cancellation(email, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancellations = append(n.cancellations, email)
}

type fakeLimiter struct {
	max      int
	failures map[string]int
	resets   int
}

func (l *fakeLimiter) Allowed(_ context.Context, email string) (bool, error) {
	return l.failures[email] < l.max, nil
}

func (l *fakeLimiter) RecordFailure(_ context.Context, email string) error {
	l.failures[email]++
	return nil
}

func (l *fakeLimiter) Reset(_ context.Context, email string) error {
	delete(l.failures, email)
	l.resets++
	return nil
}

type fixture struct {
	store    *memstore.Store
	notifier *recordingNotifier
	auth     *AuthService
	users    *UserService
	concerts *ConcertService
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Security: config.SecurityConfig{JWTSecret: "test-secret", BcryptCost: 4},
		Avatar:   config.AvatarConfig{MaxBytes: 1_000_000, Size: 250},
	}
}

func newFixture(t *testing.T, limiter LoginLimiter) fixture {
	t.Helper()
	store := memstore.New()
	notifier := &recordingNotifier{}
	cfg := testConfig()
	return fixture{
		store:    store,
		notifier: notifier,
		auth:     NewAuthService(store.Users(), limiter, notifier, cfg, zerolog.Nop()),
		users:    NewUserService(store.Users(), store.Concerts(), notifier, cfg, zerolog.Nop()),
		concerts: NewConcertService(store.Concerts()),
	}
}

func mike() SignupInput {
	return SignupInput{Name: "Mike", Email: "mike@example.com", Password: "56whataaaaaa!!"}
}

func ptr[T any](v T) *T { return &v }

func TestSignup_StoresHashAndToken(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	res, err := f.auth.Signup(context.Background(), SignupInput{
		Name: "  Mike ", Email: " MIKE@Example.com ", Password: "56whataaaaaa!!",
	})
	require.NoError(t, err)
	assert.Equal(t, "Mike", res.User.Name)
	assert.Equal(t, "mike@example.com", res.User.Email)
	assert.Equal(t, models.DefaultAge, res.User.Age)
	assert.NotEmpty(t, res.Token)

	stored, err := f.store.Users().GetByID(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "56whataaaaaa!!", stored.Password)
	assert.True(t, security.VerifyPassword("56whataaaaaa!!", stored.Password))
	assert.True(t, stored.HasToken(res.Token))
	assert.Equal(t, []string{"mike@example.com"}, f.notifier.welcomed)
}

func TestSignup_CollectsAllValidationErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	_, err := f.auth.Signup(context.Background(), SignupInput{
		Name: "", Email: "not-an-email", Password: "MyPassword123", Age: ptr(-1),
	})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)

	fields := map[string]bool{}
	for _, fe := range verr.Fields {
		fields[fe.Field] = true
	}
	assert.True(t, fields["name"])
	assert.True(t, fields["email"])
	assert.True(t, fields["age"])
	assert.True(t, fields["password"])
	assert.Empty(t, f.notifier.welcomed)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	_, err := f.auth.Signup(context.Background(), mike())
	require.NoError(t, err)
	_, err = f.auth.Signup(context.Background(), mike())
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
}

func TestLogin_IssuesDistinctTokens(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	signup, err := f.auth.Signup(context.Background(), mike())
	require.NoError(t, err)

	login, err := f.auth.Login(context.Background(), "Mike@Example.com", "56whataaaaaa!!")
	require.NoError(t, err)
	assert.NotEqual(t, signup.Token, login.Token)

	stored, err := f.store.Users().GetByID(context.Background(), signup.User.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Tokens, 2)
}

func TestLogin_BadCredentialsAreIndistinguishable(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	_, err := f.auth.Signup(context.Background(), mike())
	require.NoError(t, err)

	_, errWrongPass := f.auth.Login(context.Background(), "mike@example.com", "thisisnotmypass")
	_, errNoUser := f.auth.Login(context.Background(), "nobody@example.com", "56whataaaaaa!!")
	assert.ErrorIs(t, errWrongPass, ErrInvalidCredentials)
	assert.ErrorIs(t, errNoUser, ErrInvalidCredentials)
	assert.Equal(t, errWrongPass.Error(), errNoUser.Error())
}

func TestLogin_Throttled(t *testing.T) {
	t.Parallel()
	limiter := &fakeLimiter{max: 2, failures: map[string]int{}}
	f := newFixture(t, limiter)
	_, err := f.auth.Signup(context.Background(), mike())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = f.auth.Login(context.Background(), "mike@example.com", "wrongwrongwrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err = f.auth.Login(context.Background(), "mike@example.com", "56whataaaaaa!!")
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	limiter.failures = map[string]int{}
	_, err = f.auth.Login(context.Background(), "mike@example.com", "56whataaaaaa!!")
	require.NoError(t, err)
	assert.Equal(t, 1, limiter.resets)
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	res, err := f.auth.Signup(context.Background(), mike())
	require.NoError(t, err)

	user, err := f.auth.Authenticate(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, user.ID)

	_, err = f.auth.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	forged, err := security.GenerateSessionToken("other-secret", res.User.ID.Hex(), 0)
	require.NoError(t, err)
	_, err = f.auth.Authenticate(context.Background(), forged)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// Validly signed but never issued to the user.
	unissued, err := security.GenerateSessionToken("test-secret", res.User.ID.Hex(), 0)
	require.NoError(t, err)
	_, err = f.auth.Authenticate(context.Background(), unissued)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLogout_RevokesOnlyThatToken(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	first, err := f.auth.Signup(context.Background(), mike())
	require.NoError(t, err)
	second, err := f.auth.Login(context.Background(), "mike@example.com", "56whataaaaaa!!")
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(context.Background(), first.User, first.Token))

	_, err = f.auth.Authenticate(context.Background(), first.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = f.auth.Authenticate(context.Background(), second.Token)
	assert.NoError(t, err)

	require.NoError(t, f.auth.LogoutAll(context.Background(), first.User))
	_, err = f.auth.Authenticate(context.Background(), second.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	res, err := f.auth.Signup(context.Background(), mike())
	require.NoError(t, err)
	oldHash := mustUser(t, f, res.User.ID).Password

	updated, err := f.users.UpdateProfile(context.Background(), res.User, ProfileUpdate{Name: ptr("Jess"), Age: ptr(30)})
	require.NoError(t, err)
	assert.Equal(t, "Jess", updated.Name)
	assert.Equal(t, 30, updated.Age)
	assert.Equal(t, oldHash, mustUser(t, f, res.User.ID).Password)

	_, err = f.users.UpdateProfile(context.Background(), updated, ProfileUpdate{Password: ptr("newsecret99!")})
	require.NoError(t, err)
	stored := mustUser(t, f, res.User.ID)
	assert.True(t, security.VerifyPassword("newsecret99!", stored.Password))

	_, err = f.users.UpdateProfile(context.Background(), updated, ProfileUpdate{Email: ptr("nope")})
	var verr *validation.Error
	assert.ErrorAs(t, err, &verr)
}

func mustUser(t *testing.T, f fixture, id primitive.ObjectID) models.User {
	t.Helper()
	u, err := f.store.Users().GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func TestDeleteAccount_CascadesConcerts(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	a, err := f.auth.Signup(context.Background(), mike())
	require.NoError(t, err)
	b, err := f.auth.Signup(context.Background(), SignupInput{Name: "Jess", Email: "jess@example.com", Password: "myhouseaaaaa099@@"})
	require.NoError(t, err)

	for _, owner := range []primitive.ObjectID{a.User.ID, a.User.ID, b.User.ID} {
		_, err := f.concerts.Create(context.Background(), owner, ConcertInput{
			Concert: ptr("Phish"), Venue: ptr("MSG"), DateAttended: ptr("12/31/2019"),
		})
		require.NoError(t, err)
	}

	_, err = f.users.DeleteAccount(context.Background(), a.User)
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.CountConcerts())
	_, err = f.store.Users().GetByID(context.Background(), a.User.ID)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	assert.Equal(t, []string{"mike@example.com"}, f.notifier.cancellations)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAvatarLifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	res, err := f.auth.Signup(context.Background(), mike())
	require.NoError(t, err)

	_, err = f.users.Avatar(context.Background(), res.User.ID.Hex())
	assert.ErrorIs(t, err, ErrAvatarNotFound)

	require.NoError(t, f.users.UploadAvatar(context.Background(), res.User, "profile-pic.png", pngBytes(t, 400, 300)))

	data, err := f.users.Avatar(context.Background(), res.User.ID.Hex())
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Width)
	assert.Equal(t, 250, cfg.Height)

	had, err := f.users.RemoveAvatar(context.Background(), mustUser(t, f, res.User.ID))
	require.NoError(t, err)
	assert.True(t, had)

	had, err = f.users.RemoveAvatar(context.Background(), mustUser(t, f, res.User.ID))
	require.NoError(t, err)
	assert.False(t, had)

	_, err = f.users.Avatar(context.Background(), "not-an-id")
	assert.ErrorIs(t, err, ErrAvatarNotFound)
}

func TestUploadAvatar_Rejections(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	res, err := f.auth.Signup(context.Background(), mike())
	require.NoError(t, err)

	var aerr *AvatarError
	err = f.users.UploadAvatar(context.Background(), res.User, "philly.pdf", []byte("%PDF-1.4"))
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "Please upload an image", aerr.Msg)

	err = f.users.UploadAvatar(context.Background(), res.User, "big.jpg", make([]byte, 1_000_001))
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "File too large", aerr.Msg)

	err = f.users.UploadAvatar(context.Background(), res.User, "big.gif", make([]byte, 1_000_001))
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "Please upload an image", aerr.Msg)

	err = f.users.UploadAvatar(context.Background(), res.User, "fake.png", []byte("definitely not a png"))
	require.ErrorAs(t, err, &aerr)
}

func TestConcertCRUD_OwnerScoped(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	owner := primitive.NewObjectID()
	other := primitive.NewObjectID()

	c, err := f.concerts.Create(context.Background(), owner, ConcertInput{
		Concert: ptr(" Phish "), Venue: ptr("MSG"), DateAttended: ptr("2019-12-31"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Phish", c.Concert)
	assert.Equal(t, time.Date(2019, 12, 31, 0, 0, 0, 0, time.UTC), c.DateAttended)

	_, err = f.concerts.Get(context.Background(), c.ID.Hex(), other)
	assert.ErrorIs(t, err, repository.ErrConcertNotFound)
	_, err = f.concerts.Get(context.Background(), "xyz", owner)
	assert.ErrorIs(t, err, repository.ErrConcertNotFound)

	updated, err := f.concerts.Update(context.Background(), c.ID.Hex(), owner, ConcertInput{Venue: ptr("The Gorge")})
	require.NoError(t, err)
	assert.Equal(t, "The Gorge", updated.Venue)
	assert.Equal(t, "Phish", updated.Concert)

	_, err = f.concerts.Update(context.Background(), c.ID.Hex(), other, ConcertInput{Venue: ptr("x")})
	assert.ErrorIs(t, err, repository.ErrConcertNotFound)

	_, err = f.concerts.Delete(context.Background(), c.ID.Hex(), other)
	assert.ErrorIs(t, err, repository.ErrConcertNotFound)
	deleted, err := f.concerts.Delete(context.Background(), c.ID.Hex(), owner)
	require.NoError(t, err)
	assert.Equal(t, c.ID, deleted.ID)
}

func TestConcertCreate_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	_, err := f.concerts.Create(context.Background(), primitive.NewObjectID(), ConcertInput{
		Concert: ptr(""), DateAttended: ptr("someday"),
	})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)

	rules := map[string]string{}
	for _, fe := range verr.Fields {
		rules[fe.Field] = fe.Rule
	}
	assert.Equal(t, "required", rules["concert"])
	assert.Equal(t, "required", rules["venue"])
	assert.Equal(t, "date", rules["dateAttended"])
}

func TestConcertList_FilterSortPage(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	owner := primitive.NewObjectID()
	for _, in := range []struct{ band, venue, date string }{
		{"Phish", "MSG", "2019-12-31"},
		{"Wilco", "Fillmore", "2018-06-01"},
		{"Beck", "MSG", "2020-02-02"},
	} {
		_, err := f.concerts.Create(context.Background(), owner, ConcertInput{
			Concert: ptr(in.band), Venue: ptr(in.venue), DateAttended: ptr(in.date),
		})
		require.NoError(t, err)
	}
	_, err := f.concerts.Create(context.Background(), primitive.NewObjectID(), ConcertInput{
		Concert: ptr("Other"), Venue: ptr("MSG"), DateAttended: ptr("2020-01-01"),
	})
	require.NoError(t, err)

	all, err := f.concerts.List(context.Background(), owner, models.ConcertQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	msg, err := f.concerts.List(context.Background(), owner, models.ConcertQuery{Venue: "MSG"})
	require.NoError(t, err)
	assert.Len(t, msg, 2)

	q := models.ConcertQuery{Limit: 2}
	q.ParseSort("dateAttended:desc")
	page, err := f.concerts.List(context.Background(), owner, q)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Beck", page[0].Concert)
	assert.Equal(t, "Phish", page[1].Concert)

	q.Skip = 2
	page, err = f.concerts.List(context.Background(), owner, q)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Wilco", page[0].Concert)
}
