package services

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dosada05/gauntlet-system/models"
	"github.com/Dosada05/gauntlet-system/repositories"
	"github.com/stretchr/testify/require"
)

// newTxDB returns a database handle whose transactions always succeed. The
// fakes hold the actual state; the handle only backs runInTx.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 32; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}
	return db
}

type fakeTournamentRepo struct {
	tournaments map[int]*models.Tournament
	nextID      int
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament), nextID: 1}
}

func (f *fakeTournamentRepo) add(t models.Tournament) *models.Tournament {
	if t.ID == 0 {
		t.ID = f.nextID
		f.nextID++
	}
	stored := t
	f.tournaments[stored.ID] = &stored
	return &stored
}

func (f *fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	t.ID = f.nextID
	f.nextID++
	t.Version = 1
	t.CreatedAt = time.Now()
	stored := *t
	f.tournaments[t.ID] = &stored
	return nil
}

func (f *fakeTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	t, ok := f.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTournamentRepo) List(_ context.Context, _ repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	out := make([]models.Tournament, 0, len(f.tournaments))
	for _, t := range f.tournaments {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTournamentRepo) Update(_ context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	stored, ok := f.tournaments[t.ID]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if stored.Version != t.Version {
		return repositories.ErrVersionConflict
	}
	updated := *t
	updated.Version++
	f.tournaments[t.ID] = &updated
	t.Version++
	return nil
}

func (f *fakeTournamentRepo) BumpVersion(_ context.Context, _ repositories.SQLExecutor, id, version int) error {
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if t.Version != version {
		return repositories.ErrVersionConflict
	}
	t.Version++
	return nil
}

func (f *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	t.Version++
	return nil
}

func (f *fakeTournamentRepo) UpdateScoring(_ context.Context, _ repositories.SQLExecutor, id int, scoringJSON, tiebreakersJSON *string) error {
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.ScoringSystem, _ = models.DecodeScoring(scoringJSON)
	t.Tiebreakers, _ = models.DecodeTiebreakers(tiebreakersJSON)
	t.Version++
	return nil
}

func (f *fakeTournamentRepo) UpdateLogoKey(_ context.Context, id int, logoKey *string) error {
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.LogoKey = logoKey
	return nil
}

func (f *fakeTournamentRepo) IncrementParticipants(_ context.Context, _ repositories.SQLExecutor, id int) error {
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if t.CurrentParticipants >= t.MaxParticipants {
		return repositories.ErrTournamentFull
	}
	t.CurrentParticipants++
	t.Version++
	return nil
}

func (f *fakeTournamentRepo) DecrementParticipants(_ context.Context, _ repositories.SQLExecutor, id int, count int) error {
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.CurrentParticipants -= count
	if t.CurrentParticipants < 0 {
		t.CurrentParticipants = 0
	}
	t.Version++
	return nil
}

func (f *fakeTournamentRepo) Delete(_ context.Context, id int) error {
	if _, ok := f.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(f.tournaments, id)
	return nil
}

func (f *fakeTournamentRepo) GetTournamentsForAutoStatusUpdate(_ context.Context, _ repositories.SQLExecutor, _ time.Time) ([]*models.Tournament, error) {
	return nil, nil
}

type fakePhaseRepo struct {
	phases map[int]*models.Phase
	nextID int
}

func newFakePhaseRepo() *fakePhaseRepo {
	return &fakePhaseRepo{phases: make(map[int]*models.Phase), nextID: 1}
}

func (f *fakePhaseRepo) add(p models.Phase) *models.Phase {
	if p.ID == 0 {
		p.ID = f.nextID
		f.nextID++
	}
	stored := p
	f.phases[stored.ID] = &stored
	return &stored
}

func (f *fakePhaseRepo) Create(_ context.Context, _ repositories.SQLExecutor, phase *models.Phase) error {
	phase.ID = f.nextID
	f.nextID++
	stored := *phase
	f.phases[phase.ID] = &stored
	return nil
}

func (f *fakePhaseRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Phase, error) {
	p, ok := f.phases[id]
	if !ok {
		return nil, repositories.ErrPhaseNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakePhaseRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]models.Phase, error) {
	out := make([]models.Phase, 0)
	for _, p := range f.phases {
		if p.TournamentID == tournamentID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakePhaseRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.PhaseStatus) error {
	p, ok := f.phases[id]
	if !ok {
		return repositories.ErrPhaseNotFound
	}
	p.Status = status
	return nil
}

func (f *fakePhaseRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	delete(f.phases, id)
	return nil
}

type fakeParticipantRepo struct {
	participants map[int]*models.Participant
	nextID       int
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{participants: make(map[int]*models.Participant), nextID: 1}
}

func (f *fakeParticipantRepo) add(p models.Participant) *models.Participant {
	if p.ID == 0 {
		p.ID = f.nextID
		f.nextID++
	}
	stored := p
	f.participants[stored.ID] = &stored
	return &stored
}

func (f *fakeParticipantRepo) Create(_ context.Context, _ repositories.SQLExecutor, p *models.Participant) error {
	for _, existing := range f.participants {
		if existing.TournamentID == p.TournamentID && existing.PlayerID == p.PlayerID {
			return repositories.ErrDuplicateParticipant
		}
	}
	p.ID = f.nextID
	f.nextID++
	p.RegistrationTime = time.Now()
	stored := *p
	f.participants[p.ID] = &stored
	return nil
}

func (f *fakeParticipantRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Participant, error) {
	p, ok := f.participants[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeParticipantRepo) FindByPlayerID(_ context.Context, _ repositories.SQLExecutor, tournamentID int, playerID string) (*models.Participant, error) {
	for _, p := range f.participants {
		if p.TournamentID == tournamentID && p.PlayerID == playerID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (f *fakeParticipantRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]models.Participant, error) {
	out := make([]models.Participant, 0)
	for _, p := range f.participants {
		if p.TournamentID == tournamentID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeParticipantRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.ParticipantStatus) error {
	p, ok := f.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Status = status
	return nil
}

func (f *fakeParticipantRepo) AddResult(_ context.Context, _ repositories.SQLExecutor, id int, points float64) error {
	p, ok := f.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Points += points
	p.MatchesPlayed++
	return nil
}

func (f *fakeParticipantRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	if _, ok := f.participants[id]; !ok {
		return repositories.ErrParticipantNotFound
	}
	delete(f.participants, id)
	return nil
}

type fakeAuditRepo struct {
	entries []models.AuditLogEntry
}

func (f *fakeAuditRepo) Append(_ context.Context, _ repositories.SQLExecutor, entry *models.AuditLogEntry) error {
	entry.ID = len(f.entries) + 1
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int, limit int) ([]models.AuditLogEntry, error) {
	out := make([]models.AuditLogEntry, 0)
	for _, e := range f.entries {
		if e.TournamentID == tournamentID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeBracketRepo struct {
	brackets map[int]*models.TournamentBracket
}

func newFakeBracketRepo() *fakeBracketRepo {
	return &fakeBracketRepo{brackets: make(map[int]*models.TournamentBracket)}
}

// cloneBracket deep-copies the tree so the fake's stored state cannot be
// mutated through brackets previously handed out (a real repository always
// returns fresh rows).
func cloneBracket(b *models.TournamentBracket) *models.TournamentBracket {
	copied := *b
	copied.Rounds = make([]models.BracketRound, len(b.Rounds))
	for ri, round := range b.Rounds {
		copiedRound := round
		copiedRound.Matches = make([]models.BracketMatch, len(round.Matches))
		for mi, match := range round.Matches {
			copiedMatch := match
			if match.Player1ID != nil {
				v := *match.Player1ID
				copiedMatch.Player1ID = &v
			}
			if match.Player2ID != nil {
				v := *match.Player2ID
				copiedMatch.Player2ID = &v
			}
			if match.WinnerID != nil {
				v := *match.WinnerID
				copiedMatch.WinnerID = &v
			}
			if match.StartTime != nil {
				v := *match.StartTime
				copiedMatch.StartTime = &v
			}
			if match.MatchCode != nil {
				v := *match.MatchCode
				copiedMatch.MatchCode = &v
			}
			copiedRound.Matches[mi] = copiedMatch
		}
		copied.Rounds[ri] = copiedRound
	}
	return &copied
}

func (f *fakeBracketRepo) Replace(_ context.Context, _ repositories.SQLExecutor, bracket *models.TournamentBracket) error {
	f.brackets[bracket.TournamentID] = cloneBracket(bracket)
	return nil
}

func (f *fakeBracketRepo) GetByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (*models.TournamentBracket, error) {
	b, ok := f.brackets[tournamentID]
	if !ok {
		return nil, repositories.ErrBracketNotFound
	}
	return cloneBracket(b), nil
}

type fakeMatchResultRepo struct {
	results []models.MatchResult
}

func (f *fakeMatchResultRepo) Create(_ context.Context, _ repositories.SQLExecutor, m *models.MatchResult) error {
	m.ID = len(f.results) + 1
	f.results = append(f.results, *m)
	return nil
}

func (f *fakeMatchResultRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]models.MatchResult, error) {
	out := make([]models.MatchResult, 0)
	for _, m := range f.results {
		if m.TournamentID == tournamentID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMatchResultRepo) ListByParticipant(_ context.Context, _ repositories.SQLExecutor, participantID int) ([]models.MatchResult, error) {
	out := make([]models.MatchResult, 0)
	for _, m := range f.results {
		if m.ParticipantID == participantID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeDivisionRepo struct {
	divisions map[int]*models.Division
	nextID    int
}

func newFakeDivisionRepo() *fakeDivisionRepo {
	return &fakeDivisionRepo{divisions: make(map[int]*models.Division), nextID: 1}
}

func (f *fakeDivisionRepo) Create(_ context.Context, _ repositories.SQLExecutor, d *models.Division) error {
	d.ID = f.nextID
	f.nextID++
	stored := *d
	f.divisions[d.ID] = &stored
	return nil
}

func (f *fakeDivisionRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Division, error) {
	d, ok := f.divisions[id]
	if !ok {
		return nil, repositories.ErrDivisionNotFound
	}
	copied := *d
	return &copied, nil
}

func (f *fakeDivisionRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]models.Division, error) {
	out := make([]models.Division, 0)
	for _, d := range f.divisions {
		if d.TournamentID == tournamentID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EloMin < out[j].EloMin })
	return out, nil
}

func (f *fakeDivisionRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	delete(f.divisions, id)
	return nil
}

type fakeUserRepo struct {
	users  map[int]*models.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User), nextID: 1}
}

func (f *fakeUserRepo) add(u models.User) *models.User {
	if u.ID == 0 {
		u.ID = f.nextID
		f.nextID++
	}
	stored := u
	f.users[stored.ID] = &stored
	return &stored
}

func (f *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	u.ID = f.nextID
	f.nextID++
	u.CreatedAt = time.Now()
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}
