package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/chestkeeper/chestkeeper/internal/common"
	"github.com/chestkeeper/chestkeeper/internal/dbx"
	"github.com/chestkeeper/chestkeeper/internal/logging"
	"github.com/chestkeeper/chestkeeper/internal/server/models"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/chests"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/connlog"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/directories"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/states"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/users"
)

// memRepos is an in-memory RepositoryManager; the db handle is ignored so
// only transaction begin/commit reach sqlmock.
type memRepos struct {
	users  *memUserRepo
	chests *memChestRepo
	log    *memConnlogRepo
}

func newMemRepos() *memRepos {
	return &memRepos{
		users:  &memUserRepo{byLogin: map[string]*models.User{}},
		chests: &memChestRepo{links: map[int64][]string{}},
		log:    &memConnlogRepo{},
	}
}

func (m *memRepos) Users(dbx.DBTX) users.Repository   { return m.users }
func (m *memRepos) Chests(dbx.DBTX) chests.Repository { return m.chests }
func (m *memRepos) States(dbx.DBTX) states.Repository {
	return &memStateRepo{states: []*models.State{
		{ID: 1, Name: models.StateActive},
		{ID: 2, Name: models.StateInactive},
	}}
}
func (m *memRepos) Directories(dbx.DBTX) directories.Repository { return nil }
func (m *memRepos) ConnectionLog(dbx.DBTX) connlog.Repository   { return m.log }
func (m *memRepos) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

type memUserRepo struct {
	byLogin   map[string]*models.User
	createErr error
	updated   []*models.User
}

func (r *memUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	if user.ID == "" {
		user.ID = "id-" + user.Login
	}
	user.CreatedAt = time.Now()
	r.byLogin[user.Login] = user
	return user, nil
}

func (r *memUserRepo) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	user, ok := r.byLogin[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return user, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.byLogin {
		if u.Email != nil && *u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUserRepo) Update(ctx context.Context, user *models.User) error {
	r.updated = append(r.updated, user)
	r.byLogin[user.Login] = user
	return nil
}

type memStateRepo struct {
	states []*models.State
}

func (r *memStateRepo) GetByID(ctx context.Context, id int64) (*models.State, error) {
	for _, s := range r.states {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memStateRepo) GetByName(ctx context.Context, name string) (*models.State, error) {
	for _, s := range r.states {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memStateRepo) List(ctx context.Context) ([]*models.State, error) {
	return r.states, nil
}

type memChestRepo struct {
	chests []*models.Chest
	links  map[int64][]string
}

func (r *memChestRepo) Create(ctx context.Context, chest *models.Chest) (*models.Chest, error) {
	chest.ID = int64(len(r.chests) + 1)
	r.chests = append(r.chests, chest)
	return chest, nil
}

func (r *memChestRepo) GetByLowerName(ctx context.Context, name string) (*models.Chest, error) {
	for _, c := range r.chests {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memChestRepo) AddUser(ctx context.Context, chestID int64, userID string) error {
	r.links[chestID] = append(r.links[chestID], userID)
	return nil
}

type memConnlogRepo struct {
	entries []struct {
		username, outcome string
		at                time.Time
	}
}

func (r *memConnlogRepo) Append(ctx context.Context, username, outcome string, at time.Time) error {
	r.entries = append(r.entries, struct {
		username, outcome string
		at                time.Time
	}{username, outcome, at})
	return nil
}

func (r *memConnlogRepo) CountSince(ctx context.Context, username, outcome string, since time.Time) (int, error) {
	n := 0
	for _, e := range r.entries {
		if e.username == username && e.outcome == outcome && !e.at.Before(since) {
			n++
		}
	}
	return n, nil
}

func newTestService(t *testing.T, repos *memRepos) (*UserService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewUserService(db, repos, logger), mock
}

func TestCreateUser(t *testing.T) {
	repos := newMemRepos()
	svc, mock := newTestService(t, repos)
	mock.ExpectBegin()
	mock.ExpectCommit()

	user, password, err := svc.CreateUser(context.Background(), CreateUserParams{
		Login: " Alice ",
		Email: "Alice@Example.org",
	})

	require.NoError(t, err)
	assert.Equal(t, "alice", user.Login)
	assert.Len(t, password, 24)
	require.NotNil(t, user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)))
	assert.Equal(t, int64(1), user.StateID)

	// A personal chest is created and linked in the same transaction.
	require.Len(t, repos.chests.chests, 1)
	assert.Equal(t, models.ChestTypePersonal, repos.chests.chests[0].Type)
	assert.Contains(t, repos.chests.links[1], user.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateLogin(t *testing.T) {
	repos := newMemRepos()
	repos.users.byLogin["alice"] = &models.User{Login: "alice"}
	svc, _ := newTestService(t, repos)

	_, _, err := svc.CreateUser(context.Background(), CreateUserParams{Login: "ALICE"})

	require.ErrorIs(t, err, common.ErrorLoginAlreadyUsed)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repos := newMemRepos()
	email := "alice@example.org"
	repos.users.byLogin["alice"] = &models.User{Login: "alice", Email: &email}
	svc, _ := newTestService(t, repos)

	_, _, err := svc.CreateUser(context.Background(), CreateUserParams{
		Login: "bob",
		Email: "alice@example.org",
	})

	require.ErrorIs(t, err, common.ErrorEmailAlreadyUsed)
}

func TestCreateUserRollsBackOnFault(t *testing.T) {
	repos := newMemRepos()
	repos.users.createErr = assert.AnError
	svc, mock := newTestService(t, repos)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, _, err := svc.CreateUser(context.Background(), CreateUserParams{Login: "alice"})

	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProvisionDirectoryUser(t *testing.T) {
	repos := newMemRepos()
	svc, mock := newTestService(t, repos)
	mock.ExpectBegin()
	mock.ExpectCommit()

	user, err := svc.ProvisionDirectoryUser(context.Background(), ProvisionDirectoryUserParams{
		Login:       "Bob",
		DirectoryID: 7,
		DirectoryDN: "dc=example,dc=org",
		SamAccount:  "bob",
		Company:     "Acme",
	})

	require.NoError(t, err)
	assert.Equal(t, "bob", user.Login)
	require.NotNil(t, user.DirectoryID)
	assert.Equal(t, int64(7), *user.DirectoryID)
	assert.Nil(t, user.PasswordHash)

	require.Len(t, repos.chests.chests, 1)
	assert.Equal(t, "Acme", repos.chests.chests[0].Name)
	assert.Equal(t, models.ChestTypeCompany, repos.chests.chests[0].Type)
	assert.Contains(t, repos.chests.links[1], user.ID)
}

func TestProvisionDirectoryUserNoCompany(t *testing.T) {
	repos := newMemRepos()
	svc, mock := newTestService(t, repos)
	mock.ExpectBegin()
	mock.ExpectCommit()

	user, err := svc.ProvisionDirectoryUser(context.Background(), ProvisionDirectoryUserParams{
		Login:       "bob",
		DirectoryID: 7,
		SamAccount:  "bob",
	})

	require.NoError(t, err)
	assert.NotNil(t, user)
	assert.Empty(t, repos.chests.chests)
}

func TestProvisionDirectoryUserReusesChest(t *testing.T) {
	repos := newMemRepos()
	existing, err := repos.chests.Create(context.Background(), &models.Chest{Name: "Acme", Type: models.ChestTypeCompany})
	require.NoError(t, err)
	svc, mock := newTestService(t, repos)
	mock.ExpectBegin()
	mock.ExpectCommit()

	user, err := svc.ProvisionDirectoryUser(context.Background(), ProvisionDirectoryUserParams{
		Login:       "bob",
		DirectoryID: 7,
		SamAccount:  "bob",
		Company:     "Acme",
	})

	require.NoError(t, err)
	assert.Len(t, repos.chests.chests, 1)
	assert.Contains(t, repos.chests.links[existing.ID], user.ID)
}

func TestUnblockClearsLockoutAndBooksReset(t *testing.T) {
	repos := newMemRepos()
	until := time.Now().Add(10 * time.Minute)
	repos.users.byLogin["alice"] = &models.User{Login: "alice", Blocked: true, BlockedUntil: &until}
	svc, _ := newTestService(t, repos)

	err := svc.Unblock(context.Background(), " ALICE ")

	require.NoError(t, err)
	user := repos.users.byLogin["alice"]
	assert.False(t, user.Blocked)
	assert.Nil(t, user.BlockedUntil)
	require.Len(t, repos.log.entries, 1)
	assert.Equal(t, models.OutcomeUnblocked, repos.log.entries[0].outcome)
}

func TestUnblockUnknownUser(t *testing.T) {
	svc, _ := newTestService(t, newMemRepos())

	err := svc.Unblock(context.Background(), "ghost")

	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestReactivate(t *testing.T) {
	repos := newMemRepos()
	repos.users.byLogin["alice"] = &models.User{Login: "alice", StateID: 2}
	svc, _ := newTestService(t, repos)

	err := svc.Reactivate(context.Background(), "alice")

	require.NoError(t, err)
	assert.Equal(t, int64(1), repos.users.byLogin["alice"].StateID)
}

func TestGenerateTemporaryPassword(t *testing.T) {
	password, err := generateTemporaryPassword(24, 1)
	require.NoError(t, err)
	assert.Len(t, password, 24)

	specials := 0
	for _, c := range password {
		for _, s := range passwordSpecials {
			if c == s {
				specials++
			}
		}
	}
	assert.GreaterOrEqual(t, specials, 1)

	other, err := generateTemporaryPassword(24, 1)
	require.NoError(t, err)
	assert.NotEqual(t, password, other)
}
