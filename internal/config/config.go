package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Engine Engine `yaml:"engine"`
}

// Engine gathers every numeric tuning constant the round engine needs, so
// nothing reads ambient environment at runtime.
type Engine struct {
	RoundSeconds      int `yaml:"roundSeconds"`
	InterRoundSeconds int `yaml:"interRoundSeconds"`
	FinalBoardSeconds int `yaml:"finalBoardSeconds"`
	QuestionCount     int `yaml:"questionCount"`

	TextLives      int `yaml:"textLives"`
	ChoicePoints   int `yaml:"choicePoints"`
	TextBasePoints int `yaml:"textBasePoints"`
	TextBonusRanks int `yaml:"textBonusRanks"`
	TextBonusMax   int `yaml:"textBonusMax"`

	InitialEnergy      int `yaml:"initialEnergy"`
	EnergyAutoGain     int `yaml:"energyAutoGain"`
	EnergyCorrectBonus int `yaml:"energyCorrectBonus"`
	TextEnergyGain     int `yaml:"textEnergyGain"`
	RevealCost         int `yaml:"revealCost"`

	BotTarget          int       `yaml:"botTarget"`
	BotSkillSpread     float64   `yaml:"botSkillSpread"`
	BotChoiceBand      int       `yaml:"botChoiceBand"`
	BotMarginSeconds   int       `yaml:"botMarginSeconds"`
	BotMinSessionGames int       `yaml:"botMinSessionGames"`
	BotMeanExtraGames  float64   `yaml:"botMeanExtraGames"`
	TrafficMaxPopulace int       `yaml:"trafficMaxPopulace"`
	BotThresholds      [4]int    `yaml:"botThresholds"` // per difficulty bucket 1..4
	TrafficHourlyCurve []float64 `yaml:"trafficHourlyCurve"`
}

// DefaultEngine returns production defaults; Load overlays YAML on top.
func DefaultEngine() Engine {
	return Engine{
		RoundSeconds:      20,
		InterRoundSeconds: 5,
		FinalBoardSeconds: 12,
		QuestionCount:     10,

		TextLives:      3,
		ChoicePoints:   50,
		TextBasePoints: 100,
		TextBonusRanks: 3,
		TextBonusMax:   30,

		InitialEnergy:      20,
		EnergyAutoGain:     5,
		EnergyCorrectBonus: 10,
		TextEnergyGain:     15,
		RevealCost:         25,

		BotTarget:          4,
		BotSkillSpread:     18,
		BotChoiceBand:      10,
		BotMarginSeconds:   2,
		BotMinSessionGames: 1,
		BotMeanExtraGames:  3,
		TrafficMaxPopulace: 40,
		BotThresholds:      [4]int{30, 45, 60, 75},
		TrafficHourlyCurve: defaultTrafficCurve(),
	}
}

// defaultTrafficCurve is the hourly population weight, 0..1 per hour of day.
// Quiet overnight, lunch bump, evening peak.
func defaultTrafficCurve() []float64 {
	return []float64{
		0.10, 0.06, 0.04, 0.03, 0.03, 0.05, // 00-05
		0.10, 0.18, 0.25, 0.30, 0.35, 0.45, // 06-11
		0.55, 0.50, 0.40, 0.38, 0.42, 0.55, // 12-17
		0.75, 0.90, 1.00, 0.95, 0.70, 0.35, // 18-23
	}
}

// Load reads YAML config from path and fills unset engine values with
// defaults. A missing file yields pure defaults with no error.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.Engine = DefaultEngine()
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.Engine = mergeEngine(cfg.Engine)
	return cfg, nil
}

func mergeEngine(e Engine) Engine {
	d := DefaultEngine()
	if e.RoundSeconds <= 0 {
		e.RoundSeconds = d.RoundSeconds
	}
	if e.InterRoundSeconds <= 0 {
		e.InterRoundSeconds = d.InterRoundSeconds
	}
	if e.FinalBoardSeconds <= 0 {
		e.FinalBoardSeconds = d.FinalBoardSeconds
	}
	if e.QuestionCount <= 0 {
		e.QuestionCount = d.QuestionCount
	}
	if e.TextLives <= 0 {
		e.TextLives = d.TextLives
	}
	if e.ChoicePoints <= 0 {
		e.ChoicePoints = d.ChoicePoints
	}
	if e.TextBasePoints <= 0 {
		e.TextBasePoints = d.TextBasePoints
	}
	if e.TextBonusRanks <= 0 {
		e.TextBonusRanks = d.TextBonusRanks
	}
	if e.TextBonusMax <= 0 {
		e.TextBonusMax = d.TextBonusMax
	}
	if e.InitialEnergy <= 0 {
		e.InitialEnergy = d.InitialEnergy
	}
	if e.EnergyAutoGain <= 0 {
		e.EnergyAutoGain = d.EnergyAutoGain
	}
	if e.EnergyCorrectBonus <= 0 {
		e.EnergyCorrectBonus = d.EnergyCorrectBonus
	}
	if e.TextEnergyGain <= 0 {
		e.TextEnergyGain = d.TextEnergyGain
	}
	if e.RevealCost <= 0 {
		e.RevealCost = d.RevealCost
	}
	if e.BotTarget <= 0 {
		e.BotTarget = d.BotTarget
	}
	if e.BotSkillSpread <= 0 {
		e.BotSkillSpread = d.BotSkillSpread
	}
	if e.BotChoiceBand <= 0 {
		e.BotChoiceBand = d.BotChoiceBand
	}
	if e.BotMarginSeconds <= 0 {
		e.BotMarginSeconds = d.BotMarginSeconds
	}
	if e.BotMinSessionGames <= 0 {
		e.BotMinSessionGames = d.BotMinSessionGames
	}
	if e.BotMeanExtraGames <= 0 {
		e.BotMeanExtraGames = d.BotMeanExtraGames
	}
	if e.TrafficMaxPopulace <= 0 {
		e.TrafficMaxPopulace = d.TrafficMaxPopulace
	}
	if e.BotThresholds == ([4]int{}) {
		e.BotThresholds = d.BotThresholds
	}
	if len(e.TrafficHourlyCurve) != 24 {
		e.TrafficHourlyCurve = d.TrafficHourlyCurve
	}
	return e
}

// RoundDuration is the per-round deadline as a time.Duration.
func (e Engine) RoundDuration() time.Duration {
	return time.Duration(e.RoundSeconds) * time.Second
}

// InterRoundGap is the pause between consecutive rounds.
func (e Engine) InterRoundGap() time.Duration {
	return time.Duration(e.InterRoundSeconds) * time.Second
}

// FinalBoardDisplay is how long the final leaderboard stays up before the
// next game auto-starts.
func (e Engine) FinalBoardDisplay() time.Duration {
	return time.Duration(e.FinalBoardSeconds) * time.Second
}

// TTLDuration parses a duration string or returns the fallback if empty or
// invalid.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
