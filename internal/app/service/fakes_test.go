package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/BytePitApp/bytepit-api/internal/common"
	"github.com/BytePitApp/bytepit-api/internal/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// newMockTx returns a database that accepts the given number of committed transactions.
func newMockTx(t *testing.T, commits int) *sql.DB {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	for i := 0; i < commits; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
	return db
}

type fakeProblemRepo struct {
	problems map[string]*model.Problem
	byComp   map[string][]model.Problem
	deleted  []string
}

func newFakeProblemRepo(problems ...*model.Problem) *fakeProblemRepo {
	r := &fakeProblemRepo{problems: map[string]*model.Problem{}, byComp: map[string][]model.Problem{}}
	for _, p := range problems {
		r.problems[p.ID] = p
	}
	return r
}

func (r *fakeProblemRepo) CreateProblem(_ context.Context, _ *sql.Tx, p *model.Problem) error {
	r.problems[p.ID] = p
	return nil
}

func (r *fakeProblemRepo) UpdateProblem(_ context.Context, _ *sql.Tx, p *model.Problem) error {
	if _, ok := r.problems[p.ID]; !ok {
		return common.ErrNotFound
	}
	r.problems[p.ID] = p
	return nil
}

func (r *fakeProblemRepo) DeleteProblem(_ context.Context, _ *sql.Tx, id string) error {
	if _, ok := r.problems[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.problems, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeProblemRepo) FindProblemByID(_ context.Context, id string) (*model.Problem, error) {
	p, ok := r.problems[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProblemRepo) list(keep func(model.Problem) bool) []model.Problem {
	out := []model.Problem{}
	for _, p := range r.problems {
		if keep(*p) {
			out = append(out, *p)
		}
	}
	return out
}

func (r *fakeProblemRepo) ListPublicProblems(context.Context) ([]model.Problem, error) {
	return r.list(func(p model.Problem) bool { return !p.IsHidden && !p.IsPrivate }), nil
}

func (r *fakeProblemRepo) ListAllProblems(context.Context) ([]model.Problem, error) {
	return r.list(func(model.Problem) bool { return true }), nil
}

func (r *fakeProblemRepo) ListProblemsByOrganiser(_ context.Context, organiserID string) ([]model.Problem, error) {
	return r.list(func(p model.Problem) bool { return p.OrganiserID == organiserID }), nil
}

func (r *fakeProblemRepo) ListProblemsByCompetition(_ context.Context, competitionID string) ([]model.Problem, error) {
	return r.byComp[competitionID], nil
}

type fakeCompetitionRepo struct {
	competitions map[string]*model.Competition
	created      []*model.Competition
}

func newFakeCompetitionRepo(competitions ...*model.Competition) *fakeCompetitionRepo {
	r := &fakeCompetitionRepo{competitions: map[string]*model.Competition{}}
	for _, c := range competitions {
		r.competitions[c.ID] = c
	}
	return r
}

func (r *fakeCompetitionRepo) CreateCompetition(_ context.Context, _ *sql.Tx, c *model.Competition) error {
	r.competitions[c.ID] = c
	r.created = append(r.created, c)
	return nil
}

func (r *fakeCompetitionRepo) UpdateCompetition(_ context.Context, _ *sql.Tx, c *model.Competition) error {
	if _, ok := r.competitions[c.ID]; !ok {
		return common.ErrNotFound
	}
	r.competitions[c.ID] = c
	return nil
}

func (r *fakeCompetitionRepo) DeleteCompetition(_ context.Context, id string) error {
	if _, ok := r.competitions[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.competitions, id)
	return nil
}

func (r *fakeCompetitionRepo) find(id string, virtual bool) (*model.Competition, error) {
	c, ok := r.competitions[id]
	if !ok || c.IsVirtual() != virtual {
		return nil, common.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCompetitionRepo) FindCompetition(_ context.Context, id string) (*model.Competition, error) {
	return r.find(id, false)
}

func (r *fakeCompetitionRepo) FindVirtualCompetition(_ context.Context, id string) (*model.Competition, error) {
	return r.find(id, true)
}

func (r *fakeCompetitionRepo) ListCompetitions(context.Context) ([]model.Competition, error) {
	out := []model.Competition{}
	for _, c := range r.competitions {
		if !c.IsVirtual() {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeCompetitionRepo) ListActiveCompetitions(_ context.Context, now time.Time) ([]model.Competition, error) {
	out := []model.Competition{}
	for _, c := range r.competitions {
		if !c.IsVirtual() && c.IsRunning(now) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeCompetitionRepo) RandomCompetition(context.Context) (*model.Competition, error) {
	for _, c := range r.competitions {
		if !c.IsVirtual() {
			cp := *c
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeCompetitionRepo) ListCompetitionsByOrganiser(_ context.Context, organiserID string) ([]model.Competition, error) {
	out := []model.Competition{}
	for _, c := range r.competitions {
		if !c.IsVirtual() && c.OrganiserID == organiserID {
			out = append(out, *c)
		}
	}
	return out, nil
}

type fakeResultRepo struct {
	improved  bool
	err       error
	upserts   []model.ProblemResult
	stored    map[string]*model.ProblemResult
	byCompetition map[string][]model.ProblemResult
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{stored: map[string]*model.ProblemResult{}, byCompetition: map[string][]model.ProblemResult{}}
}

func resultKey(problemID, userID string, competitionID *string) string {
	key := problemID + "|" + userID
	if competitionID != nil {
		key += "|" + *competitionID
	}
	return key
}

func (r *fakeResultRepo) Upsert(_ context.Context, res *model.ProblemResult) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	r.upserts = append(r.upserts, *res)
	return r.improved, nil
}

func (r *fakeResultRepo) Find(_ context.Context, problemID, userID string, competitionID *string) (*model.ProblemResult, error) {
	res, ok := r.stored[resultKey(problemID, userID, competitionID)]
	if !ok {
		return nil, common.ErrNotFound
	}
	return res, nil
}

func (r *fakeResultRepo) ListByCompetition(_ context.Context, competitionID string) ([]model.ProblemResult, error) {
	return r.byCompetition[competitionID], nil
}

func (r *fakeResultRepo) Statistics(_ context.Context, userID string) (*model.UserStatistics, error) {
	return &model.UserStatistics{UserID: userID}, nil
}

type fakeTestStore struct {
	tests  map[string][]model.TestCase
	saved  map[string][]model.TestFile
	files  map[string][]byte
	pruned map[string][]string
	err    error
}

func newFakeTestStore() *fakeTestStore {
	return &fakeTestStore{tests: map[string][]model.TestCase{}, saved: map[string][]model.TestFile{}, files: map[string][]byte{}, pruned: map[string][]string{}}
}

func (s *fakeTestStore) ListTests(_ context.Context, problemID string) ([]model.TestCase, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tests[problemID], nil
}

func (s *fakeTestStore) SaveTests(_ context.Context, problemID string, files []model.TestFile) error {
	if s.err != nil {
		return s.err
	}
	s.saved[problemID] = files
	return nil
}

func (s *fakeTestStore) DeleteTests(_ context.Context, problemID string) error {
	delete(s.saved, problemID)
	delete(s.tests, problemID)
	return nil
}

func (s *fakeTestStore) PruneTests(_ context.Context, problemID string, keep []string) error {
	s.pruned[problemID] = keep
	return nil
}

func (s *fakeTestStore) GetFile(_ context.Context, problemID, fileName string) ([]byte, error) {
	content, ok := s.files[problemID+"/"+fileName]
	if !ok {
		return nil, common.ErrNotFound
	}
	return content, nil
}

// scriptedExecutor answers the n-th call with results[n].
type scriptedExecutor struct {
	mu      sync.Mutex
	results []model.ExecutionResult
	errAt   int
	err     error
	stdins  []string
}

func (e *scriptedExecutor) Execute(_ context.Context, _, stdin string, _ model.Language) (*model.ExecutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.stdins)
	e.stdins = append(e.stdins, stdin)
	if e.err != nil && n == e.errAt {
		return nil, e.err
	}
	res := e.results[n]
	return &res, nil
}

func (e *scriptedExecutor) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.stdins)
}

type fakeLocker struct {
	held     map[string]bool
	released []string
}

func (l *fakeLocker) Acquire(_ context.Context, key string) (func(context.Context) error, error) {
	if l.held[key] {
		return nil, common.ErrLockFailed
	}
	if l.held == nil {
		l.held = map[string]bool{}
	}
	l.held[key] = true
	return func(context.Context) error {
		delete(l.held, key)
		l.released = append(l.released, key)
		return nil
	}, nil
}

type fakeUserRepo struct {
	users      map[string]*model.User
	createErr  error
	verified   []string
	findByIDs  int
	approved   []string
	roleChange map[string]string
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[string]*model.User{}, roleChange: map[string]string{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, _ *sql.Tx, u *model.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return common.ErrConflict
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) findBy(match func(*model.User) bool) (*model.User, error) {
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return r.findBy(func(u *model.User) bool { return u.Email == email })
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	return r.findBy(func(u *model.User) bool { return u.Username == username })
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.findByIDs++
	return r.findBy(func(u *model.User) bool { return u.ID == id })
}

func (r *fakeUserRepo) List(context.Context) ([]model.User, error) {
	out := []model.User{}
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *fakeUserRepo) ListUnapprovedOrganisers(context.Context) ([]model.User, error) {
	out := []model.User{}
	for _, u := range r.users {
		if u.Role == model.RoleOrganiser && !u.ApprovedByAdmin {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) Approve(_ context.Context, username string) error {
	u, err := r.findBy(func(u *model.User) bool { return u.Username == username && u.Role == model.RoleOrganiser })
	if err != nil {
		return err
	}
	r.users[u.ID].ApprovedByAdmin = true
	r.approved = append(r.approved, username)
	return nil
}

func (r *fakeUserRepo) UpdateRole(_ context.Context, username, role string, approved bool) error {
	u, err := r.findBy(func(u *model.User) bool { return u.Username == username })
	if err != nil {
		return err
	}
	r.users[u.ID].Role = role
	r.users[u.ID].ApprovedByAdmin = approved
	r.roleChange[username] = role
	return nil
}

func (r *fakeUserRepo) MarkVerified(_ context.Context, _ *sql.Tx, userID string) error {
	u, ok := r.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.IsVerified = true
	r.verified = append(r.verified, userID)
	return nil
}

type fakeVerificationRepo struct {
	tokens map[string]model.VerificationToken
}

func newFakeVerificationRepo() *fakeVerificationRepo {
	return &fakeVerificationRepo{tokens: map[string]model.VerificationToken{}}
}

func (r *fakeVerificationRepo) Create(_ context.Context, _ *sql.Tx, t model.VerificationToken) error {
	r.tokens[t.Token] = t
	return nil
}

func (r *fakeVerificationRepo) Find(_ context.Context, token string) (*model.VerificationToken, error) {
	t, ok := r.tokens[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &t, nil
}

func (r *fakeVerificationRepo) Delete(_ context.Context, _ *sql.Tx, token string) error {
	delete(r.tokens, token)
	return nil
}

type fakeTrophyRepo struct {
	icons  map[string][][]byte
	owners map[string]map[int]string
	byUser map[string][]model.UserTrophy
}

func newFakeTrophyRepo() *fakeTrophyRepo {
	return &fakeTrophyRepo{icons: map[string][][]byte{}, owners: map[string]map[int]string{}, byUser: map[string][]model.UserTrophy{}}
}

func (r *fakeTrophyRepo) ReplaceTrophies(_ context.Context, _ *sql.Tx, competitionID string, icons [][]byte) error {
	r.icons[competitionID] = icons
	return nil
}

func (r *fakeTrophyRepo) ListByCompetition(_ context.Context, competitionID string) ([]model.Trophy, error) {
	out := []model.Trophy{}
	for i, icon := range r.icons[competitionID] {
		out = append(out, model.Trophy{CompetitionID: competitionID, Position: i + 1, Icon: icon})
	}
	return out, nil
}

func (r *fakeTrophyRepo) SetOwner(_ context.Context, competitionID string, position int, userID string) error {
	if position < 1 || position > len(r.icons[competitionID]) {
		return common.ErrNotFound
	}
	if r.owners[competitionID] == nil {
		r.owners[competitionID] = map[int]string{}
	}
	r.owners[competitionID][position] = userID
	return nil
}

func (r *fakeTrophyRepo) ListByUser(_ context.Context, userID string) ([]model.UserTrophy, error) {
	return r.byUser[userID], nil
}

type recordingMailer struct {
	jobs []model.MailJob
	err  error
}

func (m *recordingMailer) Enqueue(_ context.Context, job model.MailJob) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}

func ptr[T any](v T) *T { return &v }
