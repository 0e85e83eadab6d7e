package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/usermanager/internal/common"
	"github.com/dmitrijs2005/usermanager/internal/dbx"
	"github.com/dmitrijs2005/usermanager/internal/logging"
	"github.com/dmitrijs2005/usermanager/internal/server/auth"
	"github.com/dmitrijs2005/usermanager/internal/server/events"
	"github.com/dmitrijs2005/usermanager/internal/server/models"
	"github.com/dmitrijs2005/usermanager/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- helpers ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc    *UserService
	tokens *auth.TokenService
	pub    *recordingPublisher
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	tokens := auth.NewTokenService([]byte("service-secret"), time.Hour, clock)
	pub := &recordingPublisher{}
	rm := repomanager.NewMemoryRepositoryManager(clock)

	svc := NewUserService(nil, dbx.NoTx(nil), rm, tokens, auth.NewBcryptHasher(bcrypt.MinCost), pub, logging.NewNopLogger())
	svc.now = clock

	return &fixture{svc: svc, tokens: tokens, pub: pub, now: now}
}

func strp(s string) *string { return &s }

func (f *fixture) register(t *testing.T, name, email, password string, cpf *string) *models.User {
	t.Helper()
	res, err := f.svc.Register(context.Background(), models.UserFields{Name: name, Email: email, Password: password, CPF: cpf})
	require.NoError(t, err)
	return res.User
}

// --- register ---

func TestRegister_AnaSilva(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Register(context.Background(), models.UserFields{Name: "Ana Silva", Email: "ana@x.com", Password: "abcdef"})
	require.NoError(t, err)

	u := res.User
	assert.NotEmpty(t, u.ID)
	assert.True(t, u.Active)
	assert.NotEqual(t, "abcdef", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("abcdef")))

	b, err := json.Marshal(u.Redacted())
	require.NoError(t, err)
	assert.NotContains(t, string(b), "senha")
	assert.NotContains(t, string(b), u.PasswordHash)

	claims, err := f.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, "ana@x.com", claims.Email)
	assert.Equal(t, "Ana Silva", claims.Name)

	assert.Equal(t, []events.Type{events.UserRegistered}, f.pub.types())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ana Silva", "ana@x.com", "abcdef", nil)

	_, err := f.svc.Register(context.Background(), models.UserFields{Name: "Ana Two", Email: "ana@x.com", Password: "abcdef"})
	assert.ErrorIs(t, err, common.ErrConflict)

	var ce *common.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, models.FieldEmail, ce.Field)
}

func TestRegister_DuplicateCPF(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ana Silva", "ana@x.com", "abcdef", strp("529.982.247-25"))

	_, err := f.svc.Register(context.Background(), models.UserFields{
		Name: "Bruno", Email: "bruno@x.com", Password: "abcdef", CPF: strp("52998224725"),
	})
	var ce *common.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, models.FieldCPF, ce.Field)
}

func TestRegister_EmailFreedBySoftDelete(t *testing.T) {
	f := newFixture(t)
	ana := f.register(t, "Ana Silva", "ana@x.com", "abcdef", nil)
	admin := f.register(t, "Admin", "admin@x.com", "abcdef", nil)

	require.NoError(t, f.svc.SoftDelete(context.Background(), &auth.Identity{ID: admin.ID, IsAdmin: true}, ana.ID))

	again := f.register(t, "Ana Silva", "ana@x.com", "abcdef", nil)
	assert.NotEqual(t, ana.ID, again.ID)
}

func TestRegister_ValidationAggregates(t *testing.T) {
	f := newFixture(t)

	future := f.now.Add(24 * time.Hour)
	_, err := f.svc.Register(context.Background(), models.UserFields{
		Name: "A", Email: "nope", Password: "123", BirthDate: &future, CPF: strp("12345678900"),
	})
	require.ErrorIs(t, err, common.ErrValidation)

	var fe models.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Len(t, fe, 5)
	assert.Empty(t, f.pub.types())
}

func TestRegister_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")

	_, err := f.svc.Register(context.Background(), models.UserFields{Name: "Ana Silva", Email: "ana@x.com", Password: "abcdef"})
	assert.NoError(t, err)
}

// --- login ---

func TestNewUserService_PreparesDummyDigest(t *testing.T) {
	f := newFixture(t)

	require.NotEmpty(t, f.svc.dummyDigest)
	assert.False(t, f.svc.hasher.Verify("abcdef", f.svc.dummyDigest))
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "Ana Silva", "ana@x.com", "abcdef", nil)

	res, err := f.svc.Login(context.Background(), " ana@x.com ", "abcdef")
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)

	claims, err := f.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
}

func TestLogin_WrongPasswordEqualsUnknownEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ana Silva", "ana@x.com", "abcdef", nil)

	_, wrongPw := f.svc.Login(context.Background(), "ana@x.com", "abcdeg")
	_, unknown := f.svc.Login(context.Background(), "ghost@x.com", "abcdef")

	assert.Same(t, common.ErrInvalidCredentials, wrongPw)
	assert.Same(t, common.ErrInvalidCredentials, unknown)
	assert.Equal(t, wrongPw.Error(), unknown.Error())
}

func TestLogin_Inactive(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "Ana Silva", "ana@x.com", "abcdef", nil)
	admin := f.register(t, "Admin", "admin@x.com", "abcdef", nil)

	require.NoError(t, f.svc.Deactivate(context.Background(), &auth.Identity{ID: admin.ID}, u.ID))

	_, err := f.svc.Login(context.Background(), "ana@x.com", "abcdef")
	assert.ErrorIs(t, err, common.ErrUserInactive)

	// a wrong password on an inactive account says nothing about its state
	_, err = f.svc.Login(context.Background(), "ana@x.com", "wrong!")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestLogin_SoftDeletedIsUnknown(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "Ana Silva", "ana@x.com", "abcdef", nil)
	admin := f.register(t, "Admin", "admin@x.com", "abcdef", nil)

	require.NoError(t, f.svc.SoftDelete(context.Background(), &auth.Identity{ID: admin.ID}, u.ID))

	_, err := f.svc.Login(context.Background(), "ana@x.com", "abcdef")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestLogin_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Login(context.Background(), "not-an-email", "")
	assert.ErrorIs(t, err, common.ErrValidation)
}

// --- change password ---

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "Ana Silva", "ana@x.com", "abcdef", nil)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.ChangePassword(ctx, u.ID, "wrong!", "newpass"), common.ErrInvalidCredentials)
	assert.ErrorIs(t, f.svc.ChangePassword(ctx, u.ID, "abcdef", "123"), common.ErrValidation)
	assert.ErrorIs(t, f.svc.ChangePassword(ctx, "missing", "abcdef", "newpass"), common.ErrorNotFound)

	require.NoError(t, f.svc.ChangePassword(ctx, u.ID, "abcdef", "newpass"))

	_, err := f.svc.Login(ctx, "ana@x.com", "abcdef")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "ana@x.com", "newpass")
	assert.NoError(t, err)

	assert.Contains(t, f.pub.types(), events.UserPasswordChanged)
}

// --- profile lifecycle ---

func TestMeAndGet(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "Ana Silva", "ana@x.com", "abcdef", nil)
	ctx := context.Background()

	me, err := f.svc.Me(ctx, &auth.Identity{ID: u.ID})
	require.NoError(t, err)
	assert.Equal(t, "ana@x.com", me.Email)

	_, err = f.svc.Me(ctx, nil)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = f.svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ana := f.register(t, "Ana Silva", "ana@x.com", "abcdef", nil)
	f.register(t, "Bruno", "bruno@x.com", "abcdef", strp("52998224725"))
	ctx := context.Background()

	_, err := f.svc.Update(ctx, ana.ID, ana.ID, models.UserPatch{})
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.ErrorIs(t, err, common.ErrNothingToUpdate)

	// a client cannot smuggle a digest in
	_, err = f.svc.Update(ctx, ana.ID, ana.ID, models.UserPatch{PasswordHash: strp("x")})
	assert.ErrorIs(t, err, common.ErrNothingToUpdate)

	_, err = f.svc.Update(ctx, ana.ID, ana.ID, models.UserPatch{Email: strp("bruno@x.com")})
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = f.svc.Update(ctx, ana.ID, ana.ID, models.UserPatch{CPF: strp("529.982.247-25")})
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = f.svc.Update(ctx, ana.ID, ana.ID, models.UserPatch{Name: strp("A")})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.svc.Update(ctx, ana.ID, "missing", models.UserPatch{Name: strp("Ana")})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	got, err := f.svc.Update(ctx, ana.ID, ana.ID, models.UserPatch{
		Name:  strp("  Ana Souza "),
		Email: strp("ana@x.com"),
		CPF:   strp("111.444.777-35"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", got.Name)
	assert.Equal(t, "11144477735", *got.CPF)
	assert.Equal(t, ana.PasswordHash, got.PasswordHash)

	assert.Contains(t, f.pub.types(), events.UserUpdated)
}

func TestUpdate_CannotDeactivateSelf(t *testing.T) {
	f := newFixture(t)
	ana := f.register(t, "Ana Silva", "ana@x.com", "abcdef", nil)
	admin := f.register(t, "Admin", "admin@x.com", "abcdef", nil)
	ctx := context.Background()
	off, on := false, true

	_, err := f.svc.Update(ctx, ana.ID, ana.ID, models.UserPatch{Active: &off})
	assert.ErrorIs(t, err, common.ErrSelfAction)

	got, err := f.svc.Get(ctx, ana.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)

	// keeping oneself active is allowed
	_, err = f.svc.Update(ctx, ana.ID, ana.ID, models.UserPatch{Active: &on})
	require.NoError(t, err)

	// somebody else may still deactivate the account
	got, err = f.svc.Update(ctx, admin.ID, ana.ID, models.UserPatch{Active: &off})
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestSoftDelete(t *testing.T) {
	f := newFixture(t)
	ana := f.register(t, "Ana Silva", "ana@x.com", "abcdef", nil)
	admin := f.register(t, "Admin", "admin@x.com", "abcdef", nil)
	ctx := context.Background()
	actor := &auth.Identity{ID: admin.ID, IsAdmin: true}

	assert.ErrorIs(t, f.svc.SoftDelete(ctx, actor, "missing"), common.ErrorNotFound)
	assert.ErrorIs(t, f.svc.SoftDelete(ctx, actor, admin.ID), common.ErrSelfAction)

	require.NoError(t, f.svc.SoftDelete(ctx, actor, ana.ID))
	assert.ErrorIs(t, f.svc.SoftDelete(ctx, actor, ana.ID), common.ErrorNotFound)

	_, err := f.svc.Get(ctx, ana.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	last := f.pub.events[len(f.pub.events)-1]
	assert.Equal(t, events.Event{Type: events.UserDeleted, UserID: ana.ID, ActorID: admin.ID, At: f.now}, last)
}

func TestActivateDeactivate(t *testing.T) {
	f := newFixture(t)
	ana := f.register(t, "Ana Silva", "ana@x.com", "abcdef", nil)
	admin := f.register(t, "Admin", "admin@x.com", "abcdef", nil)
	ctx := context.Background()
	actor := &auth.Identity{ID: admin.ID}

	assert.ErrorIs(t, f.svc.Deactivate(ctx, actor, admin.ID), common.ErrSelfAction)
	assert.ErrorIs(t, f.svc.Deactivate(ctx, actor, "missing"), common.ErrorNotFound)
	assert.ErrorIs(t, f.svc.Activate(ctx, actor, "missing"), common.ErrorNotFound)

	require.NoError(t, f.svc.Deactivate(ctx, actor, ana.ID))
	got, err := f.svc.Get(ctx, ana.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	_, err = f.svc.RefreshToken(ctx, ana.ID)
	assert.ErrorIs(t, err, common.ErrUserInactive)

	require.NoError(t, f.svc.Activate(ctx, actor, ana.ID))
	got, err = f.svc.Get(ctx, ana.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)

	res, err := f.svc.RefreshToken(ctx, ana.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	assert.Equal(t, []events.Type{
		events.UserRegistered, events.UserRegistered, events.UserDeactivated, events.UserActivated,
	}, f.pub.types())
}

func TestListAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, e := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		f.register(t, "User "+e, e, "abcdef", nil)
	}

	page, err := f.svc.List(ctx, models.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Users, 2)
	assert.Equal(t, models.Pagination{
		CurrentPage: 1, TotalPages: 2, TotalItems: 3, ItemsPerPage: 2, HasNextPage: true, HasPrevPage: false,
	}, page.Pagination)

	_, err = f.svc.List(ctx, models.ListFilter{Limit: 101})
	assert.ErrorIs(t, err, common.ErrValidation)

	st, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalUsers)
	assert.Equal(t, 3, st.NewUsersLast7Days)
}
