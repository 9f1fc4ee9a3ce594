package memory

import "quiz-round-service/internal/domain"

// SeedDemo fills a store with a small question bank, one public room and a
// few bots, so the service can run without Postgres.
func SeedDemo(s *Store) {
	s.AddRoom(domain.Room{
		ID:            1,
		Code:          "DEMO",
		Name:          "Demo Arena",
		Difficulty:    50,
		QuestionCount: 5,
		RoundSeconds:  15,
		Visibility:    domain.VisibilityPublic,
		Status:        domain.RoomOpen,
		MaxBots:       4,
		TrafficWeight: 1,
	})

	questions := []domain.Question{
		{
			ID: 1, Text: "What is the capital of France?", Theme: "geography", Difficulty: "1",
			Choices: []domain.Choice{
				{ID: 11, Label: "Paris", Correct: true},
				{ID: 12, Label: "London"},
				{ID: 13, Label: "Berlin"},
				{ID: 14, Label: "Madrid"},
			},
			Accepted: []string{"paris"},
		},
		{
			ID: 2, Text: "Which planet is known as the Red Planet?", Theme: "science", Difficulty: "1",
			Choices: []domain.Choice{
				{ID: 21, Label: "Mars", Correct: true},
				{ID: 22, Label: "Venus"},
				{ID: 23, Label: "Jupiter"},
				{ID: 24, Label: "Mercury"},
			},
			Accepted: []string{"mars"},
		},
		{
			ID: 3, Text: "Who painted the Mona Lisa?", Theme: "art", Difficulty: "2",
			Choices: []domain.Choice{
				{ID: 31, Label: "Leonardo da Vinci", Correct: true},
				{ID: 32, Label: "Michelangelo"},
				{ID: 33, Label: "Raphael"},
				{ID: 34, Label: "Donatello"},
			},
			Accepted: []string{"leonardo vinci", "vinci", "leonardo"},
		},
		{
			ID: 4, Text: "What is the longest river in the world?", Theme: "geography", Difficulty: "2",
			Choices: []domain.Choice{
				{ID: 41, Label: "The Nile", Correct: true},
				{ID: 42, Label: "The Amazon"},
				{ID: 43, Label: "The Yangtze"},
				{ID: 44, Label: "The Mississippi"},
			},
			Accepted: []string{"nile"},
		},
		{
			ID: 5, Text: "In which year did the Berlin Wall fall?", Theme: "history", Difficulty: "3",
			Choices: []domain.Choice{
				{ID: 51, Label: "1989", Correct: true},
				{ID: 52, Label: "1991"},
				{ID: 53, Label: "1985"},
				{ID: 54, Label: "1979"},
			},
			Accepted: []string{"1989"},
		},
		{
			ID: 6, Text: "What is the chemical symbol for gold?", Theme: "science", Difficulty: "2",
			Choices: []domain.Choice{
				{ID: 61, Label: "Au", Correct: true},
				{ID: 62, Label: "Ag"},
				{ID: 63, Label: "Go"},
				{ID: 64, Label: "Gd"},
			},
			Accepted: []string{"au"},
		},
		{
			ID: 7, Text: "Which composer wrote the Ninth Symphony while deaf?", Theme: "music", Difficulty: "3",
			Choices: []domain.Choice{
				{ID: 71, Label: "Beethoven", Correct: true},
				{ID: 72, Label: "Mozart"},
				{ID: 73, Label: "Bach"},
				{ID: 74, Label: "Brahms"},
			},
			Accepted: []string{"beethoven", "ludwig van beethoven"},
		},
		{
			ID: 8, Text: "What is the smallest prime number greater than 100?", Theme: "math", Difficulty: "4",
			Choices: []domain.Choice{
				{ID: 81, Label: "101", Correct: true},
				{ID: 82, Label: "103"},
				{ID: 83, Label: "107"},
				{ID: 84, Label: "109"},
			},
			Accepted: []string{"101"},
		},
	}
	for _, q := range questions {
		s.AddQuestion(q)
	}

	bots := []domain.Bot{
		{ID: 1, Name: "Maya", Speed: 80, Skills: map[string]int{"general": 70, "geography": 85}, Availability: [4]float64{0.2, 0.7, 0.8, 0.9}},
		{ID: 2, Name: "Theo", Speed: 45, Skills: map[string]int{"general": 50, "science": 75}, Availability: [4]float64{0.5, 0.4, 0.6, 0.8}},
		{ID: 3, Name: "Ivy", Speed: 60, Skills: map[string]int{"general": 35}, Availability: [4]float64{0.8, 0.3, 0.5, 0.7}},
		{ID: 4, Name: "Noah", Speed: 25, Skills: map[string]int{"general": 60, "history": 80}, Availability: [4]float64{0.3, 0.6, 0.7, 0.6}},
		{ID: 5, Name: "Lina", Speed: 90, Skills: map[string]int{"general": 45, "music": 70}, Availability: [4]float64{0.6, 0.5, 0.4, 0.9}},
	}
	for _, b := range bots {
		s.AddBot(b)
	}
}
