package game

import (
	"time"

	"github.com/wfunc/essay-arena/internal/config"
)

// Settings 游戏层参数来源，运行时可能随配置热更新变化
type Settings interface {
	Economy() config.EconomyConfig
	Attack() config.AttackConfig
}

// StaticSettings 固定参数
type StaticSettings struct {
	EconomyConfig config.EconomyConfig
	AttackConfig  config.AttackConfig
}

// Economy 令牌经济参数
func (s StaticSettings) Economy() config.EconomyConfig { return s.EconomyConfig }

// Attack 攻击参数
func (s StaticSettings) Attack() config.AttackConfig { return s.AttackConfig }

// DefaultSettings 默认参数
func DefaultSettings() StaticSettings {
	return StaticSettings{
		EconomyConfig: config.EconomyConfig{
			DefaultReviewTokens:    3,
			DefaultAttackTokens:    0,
			DefaultShieldTokens:    1,
			DefaultCooldownSeconds: 60,
		},
		AttackConfig: config.AttackConfig{
			OfferWindow:        15 * time.Second,
			GracePeriod:        time.Minute,
			RewardReviewTokens: 1,
			SweepInterval:      time.Second,
		},
	}
}

// liveSettings 每次读取全局配置，配合 config.Watch 生效
type liveSettings struct{}

// LiveSettings 跟随全局配置的参数
func LiveSettings() Settings {
	return liveSettings{}
}

func (liveSettings) Economy() config.EconomyConfig {
	if cfg := config.Get(); cfg != nil {
		return cfg.Game.Economy
	}
	return DefaultSettings().EconomyConfig
}

func (liveSettings) Attack() config.AttackConfig {
	if cfg := config.Get(); cfg != nil {
		return cfg.Game.Attack
	}
	return DefaultSettings().AttackConfig
}
