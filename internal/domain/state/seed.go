package state

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the pair of task lists a fresh aggregate is seeded with
type Catalog struct {
	Tasks []Task `yaml:"tasks"`
	Ads   []Task `yaml:"ads"`
}

// DefaultCatalog returns the built-in social tasks, surveys, videos and website visits
func DefaultCatalog() Catalog {
	tasks := []Task{
		{ID: "t1", Title: "Follow on Twitter", Description: "Follow our official handle to earn coins.", Reward: 50, Link: "https://twitter.com", Type: TaskKindTask, Category: "Social Media"},
		{ID: "t2", Title: "Join Telegram Channel", Description: "Get latest updates in our TG group.", Reward: 30, Link: "https://telegram.org", Type: TaskKindTask, Category: "Social Media"},
		{ID: "t3", Title: "Share on Facebook", Description: "Post about Ads Predia on your wall.", Reward: 40, Link: "https://facebook.com", Type: TaskKindTask, Category: "Social Media"},
		{ID: "t4", Title: "Write a Review", Description: "Write a 50-word review on Trustpilot.", Reward: 120, Link: "#", Type: TaskKindTask, Category: "Reviews"},

		{ID: "s1", Title: "Customer Feedback Survey", Description: "Help us improve our platform features.", Reward: 150, Link: "#", Type: TaskKindSurvey, Category: "Research"},
		{ID: "s2", Title: "Marketing Research 2024", Description: "Answer 5 simple questions about ads.", Reward: 200, Link: "#", Type: TaskKindSurvey, Category: "Marketing"},
		{ID: "s3", Title: "Quick Poll", Description: "Choose your favorite feature.", Reward: 10, Link: "#", Type: TaskKindSurvey, Category: "General"},

		{ID: "v1", Title: "Watch Promo Video", Description: "Watch the full video to earn rewards.", Reward: 20, Link: "https://youtube.com", Type: TaskKindVideo, Duration: 15, Category: "Entertainment"},
		{ID: "v2", Title: "Tech Review 2024", Description: "Watch the review of latest gadgets.", Reward: 25, Link: "https://youtube.com", Type: TaskKindVideo, Duration: 15, Category: "Technology"},
		{ID: "v3", Title: "Cooking Tutorial", Description: "Learn a new recipe in 30 seconds.", Reward: 45, Link: "https://youtube.com", Type: TaskKindVideo, Duration: 30, Category: "Education"},
	}
	ads := []Task{
		{ID: "w1", Title: "E-commerce Store", Description: "Visit and browse for 10 seconds.", Reward: 10, Link: "https://example.com", Type: TaskKindWebsite, Duration: 10, Category: "Shopping"},
		{ID: "w2", Title: "Crypto News Portal", Description: "Read the latest headlines.", Reward: 15, Link: "https://example.com", Type: TaskKindWebsite, Duration: 10, Category: "News"},
		{ID: "w3", Title: "Portfolio Showcase", Description: "View professional projects for 20 seconds.", Reward: 30, Link: "https://example.com", Type: TaskKindWebsite, Duration: 20, Category: "General"},
	}
	return Catalog{Tasks: tasks, Ads: ads}
}

// LoadCatalog reads a YAML catalog file with top-level "tasks" and "ads" lists
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}

	seen := make(map[string]bool)
	for _, list := range [][]Task{c.Tasks, c.Ads} {
		for _, t := range list {
			if err := checkTask(t); err != nil {
				return Catalog{}, fmt.Errorf("catalog %s: %w", path, err)
			}
			if seen[t.ID] {
				return Catalog{}, fmt.Errorf("catalog %s: duplicate task id %q", path, t.ID)
			}
			seen[t.ID] = true
		}
	}
	return c, nil
}

func (c Catalog) initialState() AppState {
	return AppState{
		Transactions: []Transaction{},
		Tasks:        append([]Task{}, c.Tasks...),
		AvailableAds: append([]Task{}, c.Ads...),
	}
}
