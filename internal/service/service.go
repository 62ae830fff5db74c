package service

import (
	"github.com/wfunc/essay-arena/internal/config"
	"github.com/wfunc/essay-arena/internal/game"
	"github.com/wfunc/essay-arena/internal/metrics"
	"github.com/wfunc/essay-arena/internal/repository"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Repos    *repository.Manager
	Ledger   *game.Ledger
	Cooldown *game.CooldownGate
	Attacks  *game.AttackCoordinator
	Presence PresenceService
	Sweeper  *game.Sweeper
	Janitor  *Janitor
}

// Options 服务依赖
type Options struct {
	Settings game.Settings
	Presence config.PresenceConfig
	Notifier game.Notifier
	Metrics  *metrics.Metrics
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, opts Options) *Services {
	repos := repository.NewManager(db)

	ledger := game.NewLedger(repos, opts.Settings, opts.Notifier, opts.Metrics)
	cooldowns := game.NewProjectCooldowns(repos.Project(), opts.Settings)
	attacks := game.NewAttackCoordinator(repos, ledger, opts.Settings, opts.Notifier, opts.Metrics)
	presence := NewPresenceService(repos.ActiveSession(), opts.Presence.StaleAfter, opts.Metrics)

	return &Services{
		Repos:    repos,
		Ledger:   ledger,
		Cooldown: game.NewCooldownGate(repos, ledger, cooldowns, opts.Metrics),
		Attacks:  attacks,
		Presence: presence,
		Sweeper:  game.NewSweeper(attacks, opts.Settings.Attack().SweepInterval),
		Janitor:  NewJanitor(presence, opts.Presence.JanitorInterval),
	}
}
