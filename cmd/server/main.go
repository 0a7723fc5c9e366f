package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/davitm/taskboard/internal/config"
	"github.com/davitm/taskboard/internal/database"
	"github.com/davitm/taskboard/internal/handler"
	"github.com/davitm/taskboard/internal/middleware"
	"github.com/davitm/taskboard/internal/queue"
	"github.com/davitm/taskboard/internal/repository"
	"github.com/davitm/taskboard/internal/router"
	queue_publisher "github.com/davitm/taskboard/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	tasks := repository.NewTaskRepo(db)

	// Redis is best-effort: a nil client disables the response cache.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, response cache disabled")
	}
	cache := middleware.NewTaskCache(config.LoadCacheConfig(), rdb)

	authH := handler.NewAuthHandler(cfg, users)
	taskH := handler.NewTaskHandler(tasks, queue_publisher.Publisher{}, cache)

	// Background consumer writes the activity log; it reconnects on its
	// own and never takes the server down.
	go func() {
		if err := queue.StartActivityConsumer(); err != nil {
			log.Printf("activity consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = router.NewErrorHandler(cfg.IsProd())
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	router.Register(e, authH, taskH, cfg.JWTSecret, cache)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
