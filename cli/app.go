package cli

import (
	"context"
	"fmt"
	"net/http"

	"taskboard-service/clients"
	"taskboard-service/config"
	"taskboard-service/handlers"
	"taskboard-service/logging"
	"taskboard-service/repositories"
	"taskboard-service/repositories/memory"
	"taskboard-service/services"

	"go.mongodb.org/mongo-driver/mongo"
)

// app is the assembled service with the resources it must release on shutdown.
type app struct {
	handler http.Handler
	closers []func(ctx context.Context) error
}

func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logging.Logger.Warnf("Event ID: SHUTDOWN_CLOSE_FAILED, Description: %v", err)
		}
	}
}

type stores struct {
	posts    repositories.PostRepository
	notices  repositories.NoticeRepository
	requests repositories.RequestRepository
	users    repositories.UserDirectory
	tx       repositories.Transactor
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	st, err := openStores(ctx, cfg, a)
	if err != nil {
		a.Close(context.Background())
		return nil, err
	}

	clock := services.SystemClock{}
	notifier := services.NewNotificationService(st.notices, clock)
	tasks := services.NewTaskService(st.posts, st.requests, st.users, notifier, st.tx, clock)
	requests := services.NewRequestService(st.posts, st.requests, st.users, notifier, st.tx)

	a.handler = handlers.NewRouter(handlers.RouterConfig{
		Tasks:         handlers.NewTaskHandler(tasks),
		Notifications: handlers.NewNotificationHandler(notifier),
		Requests:      handlers.NewRequestHandler(requests),
		Tokens:        handlers.NewTokenValidator(cfg.JWTSecret),
		CORSOrigins:   cfg.CORSOrigins,
	})
	return a, nil
}

func openStores(ctx context.Context, cfg *config.Config, a *app) (*stores, error) {
	st := &stores{}
	var db *mongo.Database

	switch cfg.Storage {
	case config.StorageMemory:
		store := memory.NewStore()
		st.posts, st.notices, st.requests, st.tx = store.Posts(), store.Notices(), store.Requests(), store
		logging.Logger.Warn("Event ID: STORAGE_MEMORY, Description: Using in-memory storage, data is lost on exit")
	default:
		client, err := repositories.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Disconnect)
		db = client.Database(cfg.MongoDBName)
		st.posts = repositories.NewPostRepo(db)
		st.notices = repositories.NewNoticeRepo(db)
		st.requests = repositories.NewRequestRepo(db)
		st.tx = repositories.NewMongoTransactor(client, cfg.MongoTransactions)
	}

	if cfg.NoticeStore == config.NoticeStoreCassandra {
		repo, err := repositories.NewNoticeCassandraRepo(cfg.CassandraDB, cfg.CassKeyspace)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { repo.Close(); return nil })
		if err := repo.CreateTable(ctx); err != nil {
			return nil, err
		}
		st.notices = repo
	}

	switch cfg.UserDirectory {
	case config.DirectoryMongo:
		st.users = repositories.NewUserRepo(db)
	case config.DirectoryPostgres:
		sqlDB, err := repositories.ConnectPostgres(ctx, repositories.PostgresConfig(cfg.Postgres))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return sqlDB.Close() })
		st.users = repositories.NewUserPostgresRepo(sqlDB)
	case config.DirectoryHTTP:
		st.users = clients.NewUsersClient(cfg.UsersServiceURL, nil)
	case config.DirectoryMemory:
		if cfg.UsersFile == "" {
			st.users = memory.NewDirectory()
			break
		}
		dir, err := memory.LoadDirectory(cfg.UsersFile)
		if err != nil {
			return nil, err
		}
		st.users = dir
	default:
		return nil, fmt.Errorf("unknown user directory %q", cfg.UserDirectory)
	}
	return st, nil
}
