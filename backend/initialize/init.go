package initialize

import (
	"fmt"
	"net/http"

	"growlink/backend/app/controllers"
	"growlink/backend/app/db"
	jwtutil "growlink/backend/app/jwt"
	"growlink/backend/app/middleware"
	"growlink/backend/app/models"
	"growlink/backend/app/notify"
	"growlink/backend/app/repo"
	"growlink/backend/app/services"
	"growlink/backend/config"
	"growlink/backend/global"
	"growlink/backend/router"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type App struct {
	Cfg     *config.Config
	DB      *gorm.DB
	Router  http.Handler
	Pairing *services.PairingService
	Devices *services.DeviceService
	Cmds    *services.CommandService
	Users   *services.UserService
	Sweeper *services.Sweeper
}

func Build(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	global.Config = cfg

	gdb, err := db.Connect(db.Config{
		Driver: cfg.DB.Driver, Host: cfg.DB.Host, Port: cfg.DB.Port,
		User: cfg.DB.User, Password: cfg.DB.Pass, DBName: cfg.DB.Name, Path: cfg.DB.Path,
	})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	global.Mdb = gdb

	if err := gdb.AutoMigrate(&models.User{}, &models.Device{}, &models.Command{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	// Redis is optional; without it presence falls back to the store and
	// command events are dropped.
	var notifier notify.Notifier = notify.Nop{}
	var presence *notify.Presence
	if cfg.Redis.Addr != "" {
		global.Rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		notifier = notify.NewRedisNotifier(global.Rdb, cfg.NotifyChannel)
		presence = notify.NewPresence(global.Rdb, cfg.PresenceTTL)
	}

	// Repositories and services
	userRepo := repo.NewUserRepository(gdb)
	deviceRepo := repo.NewDeviceRepository(gdb)
	commandRepo := repo.NewCommandRepository(gdb)
	userSvc := services.NewUserService(userRepo)
	pairingSvc := services.NewPairingService(deviceRepo, userRepo, cfg.Pairing.CodeTTL)
	deviceSvc := services.NewDeviceService(deviceRepo, presence)
	commandSvc := services.NewCommandService(commandRepo, deviceRepo, notifier)
	sweeper := services.NewSweeper(deviceRepo, commandRepo, notifier, cfg.Sweep)
	if err := userSvc.EnsureAdmin("admin", "admin123"); err != nil {
		global.Logger.Warn().Err(err).Msg("admin seed failed")
	}

	// Controllers
	signer := &jwtutil.Signer{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer, ExpMin: cfg.JWT.ExpMin}
	auth := &middleware.Auth{Signer: signer}
	gate := &middleware.DeviceGate{Devices: deviceRepo}
	h := router.NewRouter(
		controllers.NewHTTPController(),
		controllers.NewAuthController(userSvc, signer),
		controllers.NewBootstrapController(pairingSvc),
		controllers.NewPairingController(pairingSvc),
		controllers.NewDeviceController(deviceSvc, presence),
		controllers.NewCommandController(commandSvc),
		controllers.NewAgentController(deviceSvc, commandSvc),
		auth, gate,
	)
	h = middleware.Logging(h)

	// Runtime-tunable policy follows the config file.
	if err := config.Watch(configPath, func(next *config.Config) {
		pairingSvc.SetCodeTTL(next.Pairing.CodeTTL)
		sweeper.SetPolicy(next.Sweep)
		global.Logger.Info().Msg("config reloaded")
	}); err != nil {
		global.Logger.Warn().Err(err).Msg("config watch unavailable")
	}

	return &App{
		Cfg: cfg, DB: gdb, Router: h,
		Pairing: pairingSvc, Devices: deviceSvc, Cmds: commandSvc, Users: userSvc,
		Sweeper: sweeper,
	}, nil
}
