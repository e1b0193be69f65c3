package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BytePitApp/bytepit-api/internal/common"
	"github.com/BytePitApp/bytepit-api/internal/domain/model"
	"github.com/BytePitApp/bytepit-api/internal/domain/repository"
	"github.com/BytePitApp/bytepit-api/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const (
	usernameCacheTTL     = 10 * time.Minute
	usernameCacheCleanup = 20 * time.Minute
)

type CompetitionService struct {
	competitionRepo repository.CompetitionRepository
	problemRepo     repository.ProblemRepository
	resultRepo      repository.ResultRepository
	trophyRepo      repository.TrophyRepository
	userRepo        repository.UserRepository
	db              TxBeginner
	usernames       *cache.Cache
	now             func() time.Time
}

func NewCompetitionService(
	competitionRepo repository.CompetitionRepository,
	problemRepo repository.ProblemRepository,
	resultRepo repository.ResultRepository,
	trophyRepo repository.TrophyRepository,
	userRepo repository.UserRepository,
	db TxBeginner,
) *CompetitionService {
	return &CompetitionService{
		competitionRepo: competitionRepo,
		problemRepo:     problemRepo,
		resultRepo:      resultRepo,
		trophyRepo:      trophyRepo,
		userRepo:        userRepo,
		db:              db,
		usernames:       cache.New(usernameCacheTTL, usernameCacheCleanup),
		now:             time.Now,
	}
}

// TrophyIcons holds the icons for first, second and third place. A nil icon
// means no trophy for that place.
type TrophyIcons [3][]byte

// list checks that places are filled from first downwards and returns the icons in place order.
func (t TrophyIcons) list() ([][]byte, error) {
	icons := [][]byte{}
	for i, icon := range t {
		if len(icon) == 0 {
			continue
		}
		if i != len(icons) {
			return nil, fmt.Errorf("trophy for place %d needs all higher places: %w", i+1, common.ErrValidation)
		}
		icons = append(icons, icon)
	}
	return icons, nil
}

func (t TrophyIcons) empty() bool {
	return len(t[0]) == 0 && len(t[1]) == 0 && len(t[2]) == 0
}

type CreateCompetitionRequest struct {
	Name        string      `json:"name" validate:"required"`
	Description string      `json:"description"`
	StartTime   time.Time   `json:"start_time" validate:"required"`
	EndTime     time.Time   `json:"end_time" validate:"required"`
	Problems    []string    `json:"problems" validate:"required,min=1"`
	Trophies    TrophyIcons `json:"-"`
}

type UpdateCompetitionRequest struct {
	Patch    model.CompetitionPatch
	Trophies TrophyIcons // all empty keeps the stored trophies
}

func (s *CompetitionService) CreateCompetition(ctx context.Context, actor Actor, req CreateCompetitionRequest) (*model.Competition, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	icons, err := req.Trophies.list()
	if err != nil {
		return nil, err
	}

	competition := &model.Competition{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		StartTime:   req.StartTime.UTC(),
		EndTime:     req.EndTime.UTC(),
		OrganiserID: actor.UserID,
		Problems:    req.Problems,
	}
	if err := s.checkCompetition(ctx, competition); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.competitionRepo.CreateCompetition(ctx, tx, competition); err != nil {
		return nil, fmt.Errorf("failed to create competition: %w", err)
	}
	if err := s.trophyRepo.ReplaceTrophies(ctx, tx, competition.ID, icons); err != nil {
		return nil, fmt.Errorf("failed to store trophies: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return competition, nil
}

func (s *CompetitionService) checkCompetition(ctx context.Context, c *model.Competition) error {
	if !c.StartTime.Before(c.EndTime) {
		return fmt.Errorf("start_time must be before end_time: %w", common.ErrValidation)
	}
	seen := map[string]bool{}
	for _, id := range c.Problems {
		if seen[id] {
			return fmt.Errorf("problem %s listed twice: %w", id, common.ErrValidation)
		}
		seen[id] = true
		if _, err := s.problemRepo.FindProblemByID(ctx, id); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return fmt.Errorf("problem %s does not exist: %w", id, common.ErrValidation)
			}
			return err
		}
	}
	return nil
}

// CreateVirtualCompetition starts a private replay of a competition for the
// actor, lasting as long as the original.
func (s *CompetitionService) CreateVirtualCompetition(ctx context.Context, actor Actor, parentID string) (*model.Competition, error) {
	parent, err := s.competitionRepo.FindCompetition(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("competition %s: %w", parentID, err)
	}

	start := s.now().UTC()
	virtual := &model.Competition{
		ID:          uuid.NewString(),
		Name:        parent.Name,
		Description: parent.Description,
		StartTime:   start,
		EndTime:     start.Add(parent.EndTime.Sub(parent.StartTime)),
		ParentID:    &parent.ID,
		OrganiserID: actor.UserID,
		Problems:    append([]string(nil), parent.Problems...),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.competitionRepo.CreateCompetition(ctx, tx, virtual); err != nil {
		return nil, fmt.Errorf("failed to create virtual competition: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return virtual, nil
}

func (s *CompetitionService) UpdateCompetition(ctx context.Context, actor Actor, competitionID string, req UpdateCompetitionRequest) (*model.Competition, error) {
	current, err := s.competitionRepo.FindCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(current.OrganiserID) {
		return nil, fmt.Errorf("only the competition's organiser can change it: %w", common.ErrForbidden)
	}

	updated := req.Patch.Apply(*current)
	updated.StartTime = updated.StartTime.UTC()
	updated.EndTime = updated.EndTime.UTC()
	if updated.Name == "" {
		return nil, fmt.Errorf("name is required: %w", common.ErrValidation)
	}
	if err := s.checkCompetition(ctx, &updated); err != nil {
		return nil, err
	}
	icons, err := req.Trophies.list()
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.competitionRepo.UpdateCompetition(ctx, tx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update competition: %w", err)
	}
	if !req.Trophies.empty() {
		if err := s.trophyRepo.ReplaceTrophies(ctx, tx, competitionID, icons); err != nil {
			return nil, fmt.Errorf("failed to replace trophies: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &updated, nil
}

func (s *CompetitionService) DeleteCompetition(ctx context.Context, actor Actor, competitionID string) error {
	competition, err := s.competitionRepo.FindCompetition(ctx, competitionID)
	if err != nil {
		return err
	}
	if !actor.CanManage(competition.OrganiserID) {
		return fmt.Errorf("only the competition's organiser can delete it: %w", common.ErrForbidden)
	}
	return s.competitionRepo.DeleteCompetition(ctx, competitionID)
}

// GetCompetition resolves top-level and virtual competitions alike.
func (s *CompetitionService) GetCompetition(ctx context.Context, competitionID string) (*model.CompetitionDetails, error) {
	competition, err := s.competitionRepo.FindCompetition(ctx, competitionID)
	if errors.Is(err, common.ErrNotFound) {
		competition, err = s.competitionRepo.FindVirtualCompetition(ctx, competitionID)
	}
	if err != nil {
		return nil, fmt.Errorf("competition %s: %w", competitionID, err)
	}

	problems, err := s.problemRepo.ListProblemsByCompetition(ctx, competition.ID)
	if err != nil {
		return nil, err
	}
	trophyOwner := competition.ID
	if competition.IsVirtual() {
		trophyOwner = *competition.ParentID
	}
	trophies, err := s.trophyRepo.ListByCompetition(ctx, trophyOwner)
	if err != nil {
		return nil, err
	}

	return &model.CompetitionDetails{
		Competition:       *competition,
		OrganiserUsername: s.username(ctx, competition.OrganiserID),
		ProblemList:       problems,
		Trophies:          trophies,
	}, nil
}

func (s *CompetitionService) ListCompetitions(ctx context.Context) ([]model.Competition, error) {
	return s.competitionRepo.ListCompetitions(ctx)
}

func (s *CompetitionService) ListActiveCompetitions(ctx context.Context) ([]model.Competition, error) {
	return s.competitionRepo.ListActiveCompetitions(ctx, s.now().UTC())
}

func (s *CompetitionService) RandomCompetition(ctx context.Context) (*model.Competition, error) {
	return s.competitionRepo.RandomCompetition(ctx)
}

func (s *CompetitionService) ListCompetitionsByOrganiser(ctx context.Context, organiserID string) ([]model.Competition, error) {
	return s.competitionRepo.ListCompetitionsByOrganiser(ctx, organiserID)
}

// AwardTrophy hands the trophy for a place to a user.
func (s *CompetitionService) AwardTrophy(ctx context.Context, actor Actor, competitionID, userID string, position int) error {
	if position < 1 || position > 3 {
		return fmt.Errorf("position must be 1, 2 or 3: %w", common.ErrValidation)
	}
	competition, err := s.competitionRepo.FindCompetition(ctx, competitionID)
	if err != nil {
		return err
	}
	if !actor.CanManage(competition.OrganiserID) {
		return fmt.Errorf("only the competition's organiser can award trophies: %w", common.ErrForbidden)
	}
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return fmt.Errorf("user %s: %w", userID, err)
	}
	return s.trophyRepo.SetOwner(ctx, competitionID, position, userID)
}

func (s *CompetitionService) UserTrophies(ctx context.Context, userID string) ([]model.UserTrophy, error) {
	return s.trophyRepo.ListByUser(ctx, userID)
}

// Results is the ranked leaderboard of a top-level competition as seen by viewerID.
func (s *CompetitionService) Results(ctx context.Context, competitionID, viewerID string) ([]model.LeaderboardEntry, error) {
	if _, err := s.competitionRepo.FindCompetition(ctx, competitionID); err != nil {
		return nil, fmt.Errorf("competition %s: %w", competitionID, err)
	}
	results, err := s.resultRepo.ListByCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}

	entries := groupByUser(results)
	rankEntries(entries)
	hideForeignSources(entries, viewerID, solvedBy(results, viewerID))
	s.attachUsernames(ctx, entries)
	return entries, nil
}

// VirtualResults places the viewer's virtual run on the original leaderboard,
// in place of the viewer's own original entry.
func (s *CompetitionService) VirtualResults(ctx context.Context, virtualID, viewerID string) ([]model.LeaderboardEntry, error) {
	virtual, err := s.competitionRepo.FindVirtualCompetition(ctx, virtualID)
	if err != nil {
		return nil, fmt.Errorf("virtual competition %s: %w", virtualID, err)
	}

	virtualResults, err := s.resultRepo.ListByCompetition(ctx, virtual.ID)
	if err != nil {
		return nil, err
	}
	own := []model.ProblemResult{}
	for _, res := range virtualResults {
		if res.UserID == viewerID {
			own = append(own, res)
		}
	}
	if len(own) == 0 {
		return nil, fmt.Errorf("no results in virtual competition %s: %w", virtualID, common.ErrNotFound)
	}

	parentResults, err := s.resultRepo.ListByCompetition(ctx, *virtual.ParentID)
	if err != nil {
		return nil, err
	}
	entries := []model.LeaderboardEntry{}
	for _, e := range groupByUser(parentResults) {
		if e.UserID != viewerID {
			entries = append(entries, e)
		}
	}
	entries = append(entries, groupByUser(own)...)

	rankEntries(entries)
	hideForeignSources(entries, viewerID, solvedBy(own, viewerID))
	s.attachUsernames(ctx, entries)
	return entries, nil
}

func (s *CompetitionService) attachUsernames(ctx context.Context, entries []model.LeaderboardEntry) {
	for i := range entries {
		entries[i].Username = s.username(ctx, entries[i].UserID)
	}
}

// username resolves a user id through the cache. Unknown users come back empty.
func (s *CompetitionService) username(ctx context.Context, userID string) string {
	if name, ok := s.usernames.Get(userID); ok {
		return name.(string)
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		logger.FromContext(ctx).Warn("failed to resolve username", "user_id", userID, "error", err)
		return ""
	}
	s.usernames.SetDefault(userID, user.Username)
	return user.Username
}
