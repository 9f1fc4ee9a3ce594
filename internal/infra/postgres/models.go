package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"quiz-round-service/internal/domain"
)

type roomRow struct {
	bun.BaseModel `bun:"table:rooms,alias:r"`

	ID            int64    `bun:"id,pk,autoincrement"`
	Code          string   `bun:"code,notnull"`
	OwnerID       int64    `bun:"owner_id"`
	Name          string   `bun:"name,notnull"`
	Difficulty    int      `bun:"difficulty,notnull"`
	BannedThemes  []string `bun:"banned_themes,array"`
	QuestionCount int      `bun:"question_count,notnull"`
	RoundSeconds  int      `bun:"round_seconds,notnull"`
	Visibility    string   `bun:"visibility,notnull"`
	Status        string   `bun:"status,notnull"`
	MaxBots       int      `bun:"max_bots"`
	TrafficWeight float64  `bun:"traffic_weight"`
}

func (r roomRow) toDomain() domain.Room {
	return domain.Room{
		ID:            r.ID,
		Code:          r.Code,
		OwnerID:       r.OwnerID,
		Name:          r.Name,
		Difficulty:    r.Difficulty,
		BannedThemes:  r.BannedThemes,
		QuestionCount: r.QuestionCount,
		RoundSeconds:  r.RoundSeconds,
		Visibility:    domain.Visibility(r.Visibility),
		Status:        domain.RoomStatus(r.Status),
		MaxBots:       r.MaxBots,
		TrafficWeight: r.TrafficWeight,
	}
}

type gameRow struct {
	bun.BaseModel `bun:"table:games,alias:g"`

	ID        int64     `bun:"id,pk,autoincrement"`
	RoomID    int64     `bun:"room_id,notnull"`
	Status    string    `bun:"status,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:now()"`
}

func (g gameRow) toDomain() domain.Game {
	return domain.Game{ID: g.ID, RoomID: g.RoomID, Status: domain.GameStatus(g.Status), CreatedAt: g.CreatedAt}
}

type playerRow struct {
	bun.BaseModel `bun:"table:players,alias:p"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Name  string `bun:"name,notnull"`
	IsBot bool   `bun:"is_bot,notnull,default:false"`
	BotID *int64 `bun:"bot_id"`
}

type playerGameRow struct {
	bun.BaseModel `bun:"table:player_games,alias:pg"`

	ID       int64  `bun:"id,pk,autoincrement"`
	GameID   int64  `bun:"game_id,notnull"`
	PlayerID int64  `bun:"player_id,notnull"`
	Name     string `bun:"name,notnull"`
	Score    int    `bun:"score,notnull,default:0"`
	Energy   int    `bun:"energy,notnull,default:0"`
	IsBot    bool   `bun:"is_bot,notnull,default:false"`
}

func (p playerGameRow) toDomain() domain.PlayerGame {
	return domain.PlayerGame{
		ID:       p.ID,
		GameID:   p.GameID,
		PlayerID: p.PlayerID,
		Name:     p.Name,
		Score:    p.Score,
		Energy:   p.Energy,
		IsBot:    p.IsBot,
	}
}

type gameQuestionRow struct {
	bun.BaseModel `bun:"table:game_questions,alias:gq"`

	GameID     int64 `bun:"game_id,pk"`
	Position   int   `bun:"position,pk"`
	QuestionID int64 `bun:"question_id,notnull"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:answers,alias:a"`

	ID           int64     `bun:"id,pk,autoincrement"`
	PlayerGameID int64     `bun:"player_game_id,notnull"`
	QuestionID   int64     `bun:"question_id,notnull"`
	Value        string    `bun:"value,notnull"`
	Correct      bool      `bun:"correct,notnull"`
	ResponseMs   int64     `bun:"response_ms,notnull"`
	Mode         string    `bun:"mode,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,default:now()"`
}

type botRow struct {
	bun.BaseModel `bun:"table:bots,alias:b"`

	ID           int64          `bun:"id,pk,autoincrement"`
	Name         string         `bun:"name,notnull"`
	Speed        int            `bun:"speed,notnull"`
	Skills       map[string]int `bun:"skills,type:jsonb"`
	Availability []float64      `bun:"availability,array"`
}

func (b botRow) toDomain() domain.Bot {
	bot := domain.Bot{ID: b.ID, Name: b.Name, Speed: b.Speed, Skills: b.Skills}
	for i := 0; i < len(b.Availability) && i < len(bot.Availability); i++ {
		bot.Availability[i] = b.Availability[i]
	}
	return bot
}
