package app

import (
	"github.com/oultic/oultic-backend/internal/logger"
	"github.com/oultic/oultic-backend/internal/repos"
)

type Repos struct {
	User        repos.UserRepo
	Video       repos.VideoRepo
	Interaction repos.InteractionRepo
	Comment     repos.CommentRepo
}

func wireRepos(clients Clients, log *logger.Logger, cfg Config) Repos {
	log.Info("Wiring repos...", "backend", cfg.DatabaseBackend)

	var userRepo repos.UserRepo
	var videoRepo repos.VideoRepo
	if cfg.DatabaseBackend == "postgres" && clients.Postgres != nil {
		userRepo = repos.NewPostgresUserRepo(clients.Postgres.DB(), log)
		videoRepo = repos.NewPostgresVideoRepo(clients.Postgres.DB(), log)
	} else {
		userRepo = repos.NewMongoUserRepo(clients.Mongo, log)
		videoRepo = repos.NewMongoVideoRepo(clients.Mongo, log)
	}

	return Repos{
		User:        userRepo,
		Video:       videoRepo,
		Interaction: repos.NewMongoInteractionRepo(clients.Mongo, log),
		Comment:     repos.NewMongoCommentRepo(clients.Mongo, log),
	}
}
