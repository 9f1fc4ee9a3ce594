package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"quiz-round-service/internal/domain"
)

// QuestionSource abstracts the question read path so a cache can sit in
// front of the pgx loader.
type QuestionSource interface {
	LoadQuestion(ctx context.Context, id int64) (domain.Question, error)
	DrawByBucket(ctx context.Context, bucket string, banned []string, exclude []int64, limit int) ([]domain.Question, error)
	DrawAny(ctx context.Context, banned []string, exclude []int64, limit int) ([]domain.Question, error)
}

// Store implements the engine's persistence contract on Postgres: bun
// for row writes and transactions, a QuestionSource for question reads.
type Store struct {
	db        *bun.DB
	questions QuestionSource
}

func NewStore(db *bun.DB, questions QuestionSource) *Store {
	return &Store{db: db, questions: questions}
}

func (s *Store) Room(ctx context.Context, roomID int64) (domain.Room, error) {
	row := new(roomRow)
	err := s.db.NewSelect().Model(row).Where("r.id = ?", roomID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, fmt.Errorf("load room %d: %w", roomID, err)
	}
	return row.toDomain(), nil
}

func (s *Store) OpenPublicRooms(ctx context.Context) ([]domain.Room, error) {
	var rows []roomRow
	err := s.db.NewSelect().Model(&rows).
		Where("r.status = ?", string(domain.RoomOpen)).
		Where("r.visibility = ?", string(domain.VisibilityPublic)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open rooms: %w", err)
	}
	out := make([]domain.Room, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) Question(ctx context.Context, id int64) (domain.Question, error) {
	return s.questions.LoadQuestion(ctx, id)
}

func (s *Store) QuestionsByBucket(ctx context.Context, bucket string, banned []string, exclude []int64, limit int) ([]domain.Question, error) {
	return s.questions.DrawByBucket(ctx, bucket, banned, exclude, limit)
}

func (s *Store) RandomQuestions(ctx context.Context, banned []string, exclude []int64, limit int) ([]domain.Question, error) {
	return s.questions.DrawAny(ctx, banned, exclude, limit)
}

func (s *Store) RunningGame(ctx context.Context, roomID int64) (domain.Game, error) {
	row := new(gameRow)
	err := s.db.NewSelect().Model(row).
		Where("g.room_id = ?", roomID).
		Where("g.status = ?", string(domain.GameRunning)).
		Order("g.id DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Game{}, domain.ErrGameNotFound
	}
	if err != nil {
		return domain.Game{}, fmt.Errorf("load running game: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) EndOpenGames(ctx context.Context, roomID int64) error {
	_, err := s.db.NewUpdate().Model((*gameRow)(nil)).
		Set("status = ?", string(domain.GameEnded)).
		Where("room_id = ?", roomID).
		Where("status != ?", string(domain.GameEnded)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("end open games: %w", err)
	}
	return nil
}

func (s *Store) CreateGame(ctx context.Context, roomID int64) (domain.Game, error) {
	row := &gameRow{RoomID: roomID, Status: string(domain.GameLobby)}
	if _, err := s.db.NewInsert().Model(row).Returning("*").Exec(ctx); err != nil {
		return domain.Game{}, fmt.Errorf("create game: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) SetGameStatus(ctx context.Context, gameID int64, status domain.GameStatus) error {
	_, err := s.db.NewUpdate().Model((*gameRow)(nil)).
		Set("status = ?", string(status)).
		Where("id = ?", gameID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set game status: %w", err)
	}
	return nil
}

func (s *Store) AssignQuestions(ctx context.Context, gameID int64, questionIDs []int64) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*gameQuestionRow)(nil)).
			Where("game_id = ?", gameID).Exec(ctx); err != nil {
			return fmt.Errorf("clear assignment: %w", err)
		}
		rows := make([]gameQuestionRow, 0, len(questionIDs))
		for i, qid := range questionIDs {
			rows = append(rows, gameQuestionRow{GameID: gameID, Position: i, QuestionID: qid})
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("assign questions: %w", err)
		}
		return nil
	})
}

func (s *Store) UpsertPlayerGame(ctx context.Context, gameID, playerID int64, name string, isBot bool) (domain.PlayerGame, error) {
	row := &playerGameRow{GameID: gameID, PlayerID: playerID, Name: name, IsBot: isBot}
	_, err := s.db.NewInsert().Model(row).
		On("CONFLICT (game_id, player_id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.PlayerGame{}, fmt.Errorf("upsert player game: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) PlayerGames(ctx context.Context, gameID int64) ([]domain.PlayerGame, error) {
	var rows []playerGameRow
	err := s.db.NewSelect().Model(&rows).
		Where("pg.game_id = ?", gameID).
		Order("pg.id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list player games: %w", err)
	}
	out := make([]domain.PlayerGame, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) PlayerGamesByID(ctx context.Context, ids []int64) ([]domain.PlayerGame, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []playerGameRow
	err := s.db.NewSelect().Model(&rows).
		Where("pg.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("read player games: %w", err)
	}
	out := make([]domain.PlayerGame, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) ResetPlayerGame(ctx context.Context, id int64, score, energy int) error {
	_, err := s.db.NewUpdate().Model((*playerGameRow)(nil)).
		Set("score = ?", score).
		Set("energy = ?", energy).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("reset player game: %w", err)
	}
	return nil
}

func (s *Store) SetEnergy(ctx context.Context, id int64, en int) error {
	_, err := s.db.NewUpdate().Model((*playerGameRow)(nil)).
		Set("energy = ?", en).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set energy: %w", err)
	}
	return nil
}

// RecordAnswer writes the answer row and the participant's new totals in
// one transaction so a crash never splits score from history.
func (s *Store) RecordAnswer(ctx context.Context, ans domain.Answer, score, en int) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := &answerRow{
			PlayerGameID: ans.PlayerGameID,
			QuestionID:   ans.QuestionID,
			Value:        ans.Value,
			Correct:      ans.Correct,
			ResponseMs:   ans.ResponseMs,
			Mode:         string(ans.Mode),
		}
		if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}
		if _, err := tx.NewUpdate().Model((*playerGameRow)(nil)).
			Set("score = ?", score).
			Set("energy = ?", en).
			Where("id = ?", ans.PlayerGameID).
			Exec(ctx); err != nil {
			return fmt.Errorf("update totals: %w", err)
		}
		return nil
	})
}

func (s *Store) Bots(ctx context.Context) ([]domain.Bot, error) {
	var rows []botRow
	if err := s.db.NewSelect().Model(&rows).Order("b.id").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list bots: %w", err)
	}
	out := make([]domain.Bot, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) EnsureBotPlayer(ctx context.Context, botID int64) (int64, error) {
	row := new(playerRow)
	err := s.db.NewSelect().Model(row).Where("p.bot_id = ?", botID).Limit(1).Scan(ctx)
	if err == nil {
		return row.ID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("find bot player: %w", err)
	}

	bot := new(botRow)
	if err := s.db.NewSelect().Model(bot).Where("b.id = ?", botID).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrBotNotFound
		}
		return 0, fmt.Errorf("load bot: %w", err)
	}
	created := &playerRow{Name: bot.Name, IsBot: true, BotID: &botID}
	if _, err := s.db.NewInsert().Model(created).Returning("*").Exec(ctx); err != nil {
		return 0, fmt.Errorf("create bot player: %w", err)
	}
	return created.ID, nil
}
