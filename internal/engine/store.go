package engine

import (
	"context"

	"quiz-round-service/internal/domain"
)

// Store is the persistence contract the engine requires. Implementations
// live under internal/infra; all methods may suspend on I/O and must be
// safe for concurrent use.
type Store interface {
	// Room reads a room row with its configuration.
	Room(ctx context.Context, roomID int64) (domain.Room, error)
	// OpenPublicRooms lists OPEN rooms with PUBLIC visibility, for the
	// traffic controller.
	OpenPublicRooms(ctx context.Context) ([]domain.Room, error)

	// Question reads one question with its choices and accepted answers.
	Question(ctx context.Context, id int64) (domain.Question, error)
	// QuestionsByBucket draws up to limit random questions from one
	// difficulty bucket, excluding banned themes and already-picked ids.
	QuestionsByBucket(ctx context.Context, bucket string, banned []string, exclude []int64, limit int) ([]domain.Question, error)
	// RandomQuestions is the unrestricted fallback draw with the same
	// exclusions.
	RandomQuestions(ctx context.Context, banned []string, exclude []int64, limit int) ([]domain.Question, error)

	// RunningGame returns the Room's game in state running, or
	// domain.ErrGameNotFound.
	RunningGame(ctx context.Context, roomID int64) (domain.Game, error)
	// EndOpenGames marks every lobby/running game of the room as ended.
	EndOpenGames(ctx context.Context, roomID int64) error
	// CreateGame inserts a fresh lobby game.
	CreateGame(ctx context.Context, roomID int64) (domain.Game, error)
	// SetGameStatus transitions a game's lifecycle state.
	SetGameStatus(ctx context.Context, gameID int64, status domain.GameStatus) error
	// AssignQuestions stores the ordered question list for a game in one
	// transaction.
	AssignQuestions(ctx context.Context, gameID int64, questionIDs []int64) error

	// UpsertPlayerGame creates or refreshes the participation record keyed
	// by (game, player).
	UpsertPlayerGame(ctx context.Context, gameID, playerID int64, name string, isBot bool) (domain.PlayerGame, error)
	// PlayerGames lists every participation record of a game.
	PlayerGames(ctx context.Context, gameID int64) ([]domain.PlayerGame, error)
	// PlayerGamesByID reads an explicit id set.
	PlayerGamesByID(ctx context.Context, ids []int64) ([]domain.PlayerGame, error)
	// ResetPlayerGame sets score and energy for a fresh game.
	ResetPlayerGame(ctx context.Context, id int64, score, energy int) error
	// SetEnergy updates energy alone (reveal spend).
	SetEnergy(ctx context.Context, id int64, en int) error
	// RecordAnswer appends the answer row and writes the new score and
	// energy in one transaction.
	RecordAnswer(ctx context.Context, ans domain.Answer, score, en int) error

	// Bots lists the synthetic player profiles.
	Bots(ctx context.Context) ([]domain.Bot, error)
	// EnsureBotPlayer lazily creates the bot's backing player row and
	// returns its id.
	EnsureBotPlayer(ctx context.Context, botID int64) (int64, error)
}
