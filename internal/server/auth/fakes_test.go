package auth

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"time"

	"github.com/chestkeeper/chestkeeper/internal/common"
	"github.com/chestkeeper/chestkeeper/internal/dbx"
	"github.com/chestkeeper/chestkeeper/internal/logging"
	"github.com/chestkeeper/chestkeeper/internal/server/directory"
	"github.com/chestkeeper/chestkeeper/internal/server/models"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/chests"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/connlog"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/directories"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/states"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/users"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeRepos is an in-memory RepositoryManager. The db handle is ignored, so
// tests pass a nil *sql.DB.
type fakeRepos struct {
	users  *fakeUserRepo
	states *fakeStateRepo
	dirs   *fakeDirRepo
	chests *fakeChestRepo
	log    *fakeConnlogRepo
}

func newFakeRepos() *fakeRepos {
	return &fakeRepos{
		users: &fakeUserRepo{byLogin: map[string]*models.User{}},
		states: &fakeStateRepo{states: []*models.State{
			{ID: 1, Name: models.StateActive},
			{ID: 2, Name: models.StateInactive},
		}},
		dirs:   &fakeDirRepo{},
		chests: &fakeChestRepo{},
		log:    &fakeConnlogRepo{},
	}
}

func (f *fakeRepos) Users(dbx.DBTX) users.Repository             { return f.users }
func (f *fakeRepos) States(dbx.DBTX) states.Repository           { return f.states }
func (f *fakeRepos) Directories(dbx.DBTX) directories.Repository { return f.dirs }
func (f *fakeRepos) Chests(dbx.DBTX) chests.Repository           { return f.chests }
func (f *fakeRepos) ConnectionLog(dbx.DBTX) connlog.Repository   { return f.log }
func (f *fakeRepos) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

type fakeUserRepo struct {
	byLogin   map[string]*models.User
	getErr    error
	updateErr error
	updated   []*models.User
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = "generated-id"
	}
	r.byLogin[user.Login] = user
	return user, nil
}

func (r *fakeUserRepo) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	user, ok := r.byLogin[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.byLogin {
		if u.Email != nil && *u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updated = append(r.updated, user)
	r.byLogin[user.Login] = user
	return nil
}

type fakeStateRepo struct {
	states []*models.State
	err    error
}

func (r *fakeStateRepo) GetByID(ctx context.Context, id int64) (*models.State, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, s := range r.states {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeStateRepo) GetByName(ctx context.Context, name string) (*models.State, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, s := range r.states {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeStateRepo) List(ctx context.Context) ([]*models.State, error) {
	return r.states, r.err
}

type fakeDirRepo struct {
	dirs    []*models.Directory
	listErr error
	getErr  error
}

func (r *fakeDirRepo) List(ctx context.Context) ([]*models.Directory, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.dirs, nil
}

func (r *fakeDirRepo) GetByID(ctx context.Context, id int64) (*models.Directory, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, d := range r.dirs {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, common.ErrorNotFound
}

type fakeChestRepo struct {
	chests []*models.Chest
	links  map[int64][]string
}

func (r *fakeChestRepo) Create(ctx context.Context, chest *models.Chest) (*models.Chest, error) {
	chest.ID = int64(len(r.chests) + 1)
	r.chests = append(r.chests, chest)
	return chest, nil
}

func (r *fakeChestRepo) GetByLowerName(ctx context.Context, name string) (*models.Chest, error) {
	for _, c := range r.chests {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeChestRepo) AddUser(ctx context.Context, chestID int64, userID string) error {
	if r.links == nil {
		r.links = map[int64][]string{}
	}
	r.links[chestID] = append(r.links[chestID], userID)
	return nil
}

type logEntry struct {
	username string
	outcome  string
	at       time.Time
}

type fakeConnlogRepo struct {
	entries   []logEntry
	appendErr error
	countErr  error
}

func (r *fakeConnlogRepo) Append(ctx context.Context, username, outcome string, at time.Time) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	r.entries = append(r.entries, logEntry{username: username, outcome: outcome, at: at})
	return nil
}

func (r *fakeConnlogRepo) CountSince(ctx context.Context, username, outcome string, since time.Time) (int, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	n := 0
	for _, e := range r.entries {
		if e.username == username && e.outcome == outcome && !e.at.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeConnlogRepo) outcomes(username string) []string {
	var out []string
	for _, e := range r.entries {
		if e.username == username {
			out = append(out, e.outcome)
		}
	}
	return out
}

// fakeDirClient implements directory.Client against canned entries.
type fakeDirClient struct {
	bindErr error
	session *fakeSession
	binds   int
}

func (c *fakeDirClient) BindAsAdmin(ctx context.Context, dir *models.Directory) (directory.Session, error) {
	c.binds++
	if c.bindErr != nil {
		return nil, c.bindErr
	}
	return c.session, nil
}

type fakeSession struct {
	entry       *directory.Entry
	searchErr   error
	userBindErr error
	closed      bool
}

func (s *fakeSession) SearchByAccount(ctx context.Context, account, baseDN string) (*directory.Entry, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.entry, nil
}

func (s *fakeSession) BindAsUser(ctx context.Context, dn, password string) error {
	return s.userBindErr
}

func (s *fakeSession) Close() { s.closed = true }
