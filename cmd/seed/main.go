package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/oultic/oultic-backend/internal/app"
	"github.com/oultic/oultic-backend/internal/services"
	"github.com/oultic/oultic-backend/internal/types"
	"github.com/oultic/oultic-backend/internal/utils"
)

// Seeds the configured backend from a YAML fixture file. Intended for local
// development and demo environments.
//
//	go run ./cmd/seed -file fixtures/dev.yaml

type fixtureUser struct {
	Username    string `yaml:"username"`
	Email       string `yaml:"email"`
	Password    string `yaml:"password"`
	FullName    string `yaml:"full_name"`
	ChannelName string `yaml:"channel_name"`
}

type fixtureVideo struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Channel     string   `yaml:"channel"`
	Category    string   `yaml:"category"`
	Tags        []string `yaml:"tags"`
	AgeHours    int      `yaml:"age_hours"`
	Views       int64    `yaml:"views"`
	Likes       int64    `yaml:"likes"`
	Comments    int64    `yaml:"comments"`
	Shares      int64    `yaml:"shares"`
}

type fixtureInteraction struct {
	User  string `yaml:"user"`
	Video string `yaml:"video"`
	Type  string `yaml:"type"`
}

type fixtures struct {
	Users        []fixtureUser        `yaml:"users"`
	Videos       []fixtureVideo       `yaml:"videos"`
	Interactions []fixtureInteraction `yaml:"interactions"`
}

func main() {
	file := flag.String("file", "fixtures/dev.yaml", "fixture file to load")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()
	log := application.Log.With("cmd", "seed")

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal("read fixture file", "error", err)
	}
	var fx fixtures
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		log.Fatal("parse fixture file", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	usersByName := map[string]*types.User{}
	for _, fu := range fx.Users {
		hashed, err := utils.HashPassword(fu.Password)
		if err != nil {
			log.Fatal("hash fixture password", "error", err)
		}
		user := &types.User{
			ID:          uuid.New(),
			Username:    fu.Username,
			Email:       fu.Email,
			Password:    hashed,
			FullName:    fu.FullName,
			Role:        types.UserRoleViewer,
			Status:      types.UserStatusActive,
			Preferences: types.DefaultUserPreferences(),
		}
		if fu.ChannelName != "" {
			user.ChannelID = uuid.New()
			user.ChannelName = fu.ChannelName
			user.Role = types.UserRoleCreator
		}
		if err := application.Repos.User.Create(ctx, user); err != nil {
			log.Fatal("create fixture user", "username", fu.Username, "error", err)
		}
		usersByName[fu.Username] = user
	}
	log.Info("seeded users", "count", len(usersByName))

	now := time.Now().UTC()
	videosByTitle := map[string]*types.Video{}
	for _, fv := range fx.Videos {
		owner, ok := usersByName[fv.Channel]
		if !ok || !owner.IsChannelOwner() {
			log.Fatal("fixture video references missing channel", "title", fv.Title, "channel", fv.Channel)
		}
		video := &types.Video{
			ID:          uuid.New(),
			Title:       fv.Title,
			Description: fv.Description,
			ChannelID:   owner.ChannelID,
			ChannelName: owner.ChannelName,
			Category:    types.VideoCategory(fv.Category),
			Tags:        fv.Tags,
			Status:      types.VideoStatusPublished,
			Metrics: types.VideoMetrics{
				Views:        fv.Views,
				Likes:        fv.Likes,
				CommentCount: fv.Comments,
				Shares:       fv.Shares,
			},
		}
		if !types.ValidVideoCategory(video.Category) {
			log.Fatal("fixture video has invalid category", "title", fv.Title, "category", fv.Category)
		}
		if err := application.Repos.Video.Create(ctx, video); err != nil {
			log.Fatal("create fixture video", "title", fv.Title, "error", err)
		}
		// Backdate so age-sensitive scoring sees the fixture's age, not the
		// insert time.
		createdAt := now.Add(-time.Duration(fv.AgeHours) * time.Hour)
		video.CreatedAt = createdAt
		if err := application.Repos.Video.Update(ctx, video); err != nil {
			log.Fatal("backdate fixture video", "title", fv.Title, "error", err)
		}
		rate, score := services.ComputeTrending(video.Metrics, createdAt, now)
		if err := application.Repos.Video.PersistTrendingScore(ctx, video.ID, rate, score); err != nil {
			log.Fatal("persist fixture trending score", "title", fv.Title, "error", err)
		}
		videosByTitle[fv.Title] = video
	}
	log.Info("seeded videos", "count", len(videosByTitle))

	seededInteractions := 0
	for _, fi := range fx.Interactions {
		user, ok := usersByName[fi.User]
		if !ok {
			log.Fatal("fixture interaction references missing user", "user", fi.User)
		}
		video, ok := videosByTitle[fi.Video]
		if !ok {
			log.Fatal("fixture interaction references missing video", "video", fi.Video)
		}
		kind := types.InteractionType(fi.Type)
		if kind != types.InteractionView && kind != types.InteractionLike && kind != types.InteractionDislike {
			log.Fatal("fixture interaction has invalid type", "type", fi.Type)
		}
		if err := application.Repos.Interaction.Record(ctx, user.ID, video.ID, kind); err != nil {
			log.Fatal("record fixture interaction", "error", err)
		}
		seededInteractions++
	}
	log.Info("seeded interactions", "count", seededInteractions)
	log.Info("seed complete")
}
