// Package memory implements the engine's persistence contract entirely
// in-process, for tests and for running the service without Postgres.
package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quiz-round-service/internal/domain"
)

type gamePlayerKey struct {
	gameID   int64
	playerID int64
}

// Store is a threadsafe in-memory implementation of engine.Store.
type Store struct {
	mu sync.Mutex

	rooms     map[int64]domain.Room
	questions map[int64]domain.Question
	games     map[int64]*domain.Game
	pgs       map[int64]*domain.PlayerGame
	byGP      map[gamePlayerKey]int64
	assigned  map[int64][]int64
	answers   []domain.Answer
	bots      map[int64]domain.Bot
	botPlayer map[int64]int64

	gameSeq   int64
	pgSeq     int64
	ansSeq    int64
	playerSeq int64

	rnd *rand.Rand
}

func NewStore() *Store {
	return &Store{
		rooms:     make(map[int64]domain.Room),
		questions: make(map[int64]domain.Question),
		games:     make(map[int64]*domain.Game),
		pgs:       make(map[int64]*domain.PlayerGame),
		byGP:      make(map[gamePlayerKey]int64),
		assigned:  make(map[int64][]int64),
		bots:      make(map[int64]domain.Bot),
		botPlayer: make(map[int64]int64),
		playerSeq: 1000, // keep synthetic player ids apart from fixtures
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// AddRoom registers a room fixture.
func (s *Store) AddRoom(r domain.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.ID] = r
}

// AddQuestion registers a question fixture.
func (s *Store) AddQuestion(q domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.ID] = q
}

// AddBot registers a bot profile fixture.
func (s *Store) AddBot(b domain.Bot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bots[b.ID] = b
}

func (s *Store) Room(_ context.Context, roomID int64) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return r, nil
}

func (s *Store) OpenPublicRooms(context.Context) ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		if r.Status == domain.RoomOpen && r.Visibility == domain.VisibilityPublic {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) Question(_ context.Context, id int64) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (s *Store) QuestionsByBucket(_ context.Context, bucket string, banned []string, exclude []int64, limit int) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawLocked(func(q domain.Question) bool { return q.Difficulty == bucket }, banned, exclude, limit), nil
}

func (s *Store) RandomQuestions(_ context.Context, banned []string, exclude []int64, limit int) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawLocked(func(domain.Question) bool { return true }, banned, exclude, limit), nil
}

func (s *Store) drawLocked(keep func(domain.Question) bool, banned []string, exclude []int64, limit int) []domain.Question {
	skipTheme := make(map[string]struct{}, len(banned))
	for _, t := range banned {
		skipTheme[t] = struct{}{}
	}
	skipID := make(map[int64]struct{}, len(exclude))
	for _, id := range exclude {
		skipID[id] = struct{}{}
	}

	candidates := make([]domain.Question, 0, len(s.questions))
	for _, q := range s.questions {
		if !keep(q) {
			continue
		}
		if _, banned := skipTheme[q.Theme]; banned {
			continue
		}
		if _, dup := skipID[q.ID]; dup {
			continue
		}
		candidates = append(candidates, q)
	}
	s.rnd.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func (s *Store) RunningGame(_ context.Context, roomID int64) (domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.games {
		if g.RoomID == roomID && g.Status == domain.GameRunning {
			return *g, nil
		}
	}
	return domain.Game{}, domain.ErrGameNotFound
}

func (s *Store) EndOpenGames(_ context.Context, roomID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.games {
		if g.RoomID == roomID && g.Status != domain.GameEnded {
			g.Status = domain.GameEnded
		}
	}
	return nil
}

func (s *Store) CreateGame(_ context.Context, roomID int64) (domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gameSeq++
	g := &domain.Game{ID: s.gameSeq, RoomID: roomID, Status: domain.GameLobby, CreatedAt: time.Now()}
	s.games[g.ID] = g
	return *g, nil
}

func (s *Store) SetGameStatus(_ context.Context, gameID int64, status domain.GameStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[gameID]
	if !ok {
		return domain.ErrGameNotFound
	}
	g.Status = status
	return nil
}

func (s *Store) AssignQuestions(_ context.Context, gameID int64, questionIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[gameID]; !ok {
		return domain.ErrGameNotFound
	}
	s.assigned[gameID] = append([]int64(nil), questionIDs...)
	return nil
}

// AssignedQuestions exposes the stored question order for tests.
func (s *Store) AssignedQuestions(gameID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.assigned[gameID]...)
}

func (s *Store) UpsertPlayerGame(_ context.Context, gameID, playerID int64, name string, isBot bool) (domain.PlayerGame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := gamePlayerKey{gameID, playerID}
	if id, ok := s.byGP[key]; ok {
		pg := s.pgs[id]
		pg.Name = name
		return *pg, nil
	}
	s.pgSeq++
	pg := &domain.PlayerGame{
		ID:       s.pgSeq,
		GameID:   gameID,
		PlayerID: playerID,
		Name:     name,
		IsBot:    isBot,
	}
	s.pgs[pg.ID] = pg
	s.byGP[key] = pg.ID
	return *pg, nil
}

func (s *Store) PlayerGames(_ context.Context, gameID int64) ([]domain.PlayerGame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PlayerGame, 0)
	for _, pg := range s.pgs {
		if pg.GameID == gameID {
			out = append(out, *pg)
		}
	}
	return out, nil
}

func (s *Store) PlayerGamesByID(_ context.Context, ids []int64) ([]domain.PlayerGame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PlayerGame, 0, len(ids))
	for _, id := range ids {
		if pg, ok := s.pgs[id]; ok {
			out = append(out, *pg)
		}
	}
	return out, nil
}

func (s *Store) ResetPlayerGame(_ context.Context, id int64, score, en int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pg, ok := s.pgs[id]
	if !ok {
		return domain.ErrPlayerGameNotFound
	}
	pg.Score = score
	pg.Energy = en
	return nil
}

func (s *Store) SetEnergy(_ context.Context, id int64, en int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pg, ok := s.pgs[id]
	if !ok {
		return domain.ErrPlayerGameNotFound
	}
	pg.Energy = en
	return nil
}

func (s *Store) RecordAnswer(_ context.Context, ans domain.Answer, score, en int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pg, ok := s.pgs[ans.PlayerGameID]
	if !ok {
		return domain.ErrPlayerGameNotFound
	}
	s.ansSeq++
	ans.ID = s.ansSeq
	s.answers = append(s.answers, ans)
	pg.Score = score
	pg.Energy = en
	return nil
}

// Answers exposes recorded answers for tests.
func (s *Store) Answers() []domain.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Answer(nil), s.answers...)
}

func (s *Store) Bots(context.Context) ([]domain.Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Bot, 0, len(s.bots))
	for _, b := range s.bots {
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) EnsureBotPlayer(_ context.Context, botID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bots[botID]; !ok {
		return 0, domain.ErrBotNotFound
	}
	if id, ok := s.botPlayer[botID]; ok {
		return id, nil
	}
	s.playerSeq++
	s.botPlayer[botID] = s.playerSeq
	return s.playerSeq, nil
}
