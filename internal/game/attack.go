package game

import (
	"context"
	"time"

	"github.com/wfunc/essay-arena/internal/errors"
	"github.com/wfunc/essay-arena/internal/logger"
	"github.com/wfunc/essay-arena/internal/metrics"
	"github.com/wfunc/essay-arena/internal/models"
	"github.com/wfunc/essay-arena/internal/repository"
	"github.com/wfunc/essay-arena/internal/utils"
	"go.uber.org/zap"
)

// 每批结算的到期邀约数量
const resolveBatchSize = 100

// attackTransitions 允许的状态迁移，终态不再迁出
var attackTransitions = map[models.AttackStatus][]models.AttackStatus{
	models.AttackPending: {models.AttackDefended, models.AttackSucceeded, models.AttackExpired},
}

// CanTransition 判断状态迁移是否合法
func CanTransition(from, to models.AttackStatus) bool {
	for _, next := range attackTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AttackCoordinator 攻击协调器
type AttackCoordinator struct {
	repos    *repository.Manager
	ledger   *Ledger
	settings Settings
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewAttackCoordinator 创建攻击协调器
func NewAttackCoordinator(repos *repository.Manager, ledger *Ledger, settings Settings, notifier Notifier, m *metrics.Metrics) *AttackCoordinator {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &AttackCoordinator{
		repos:    repos,
		ledger:   ledger,
		settings: settings,
		notifier: notifier,
		metrics:  m,
		logger:   logger.GetModuleLogger(logger.ModuleAttack),
	}
}

// Initiate 发起攻击
//
// 先检查这对玩家是否已有进行中的邀约，再扣减攻击令牌。
// 推送失败不影响邀约创建。
func (c *AttackCoordinator) Initiate(ctx context.Context, projectCode, attackerName, targetName string, now time.Time) (*models.Attack, error) {
	project, attacker, err := normalizeIdentity(projectCode, attackerName)
	if err != nil {
		return nil, err
	}
	target := utils.NormalizeUserName(targetName)
	if target == "" {
		return nil, errors.New(errors.ErrInvalidParam, "目标用户不能为空")
	}
	if attacker == target {
		return nil, errors.New(errors.ErrSelfAttack)
	}

	now = now.UTC()
	pairKey := utils.PairKey(attacker, target)
	attackCfg := c.settings.Attack()

	var (
		attack  *models.Attack
		settled *models.Attack
	)
	err = c.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		existing, err := tx.Attack().FindPendingByPair(ctx, project, pairKey)
		if err != nil {
			return err
		}
		if existing != nil {
			if now.Before(existing.ExpiresAt) {
				return errors.New(errors.ErrAttackAlreadyPending)
			}
			// 已到期但尚未被清扫，先就地结算
			won, err := c.settle(ctx, tx, existing, now)
			if err != nil {
				return err
			}
			if won {
				settled = existing
			}
		}

		if _, err := c.ledger.adjustInTx(ctx, tx, project, attacker, models.TokenDelta{Attack: -1}, errors.ErrNoAttackTokens); err != nil {
			return err
		}

		key := pairKey
		attack = &models.Attack{
			ProjectCode:   project,
			AttackerNorm:  attacker,
			TargetNorm:    target,
			Status:        models.AttackPending,
			ActivePairKey: &key,
			CreatedAt:     now,
			ExpiresAt:     now.Add(attackCfg.OfferWindow),
		}
		return tx.Attack().Create(ctx, attack)
	})
	if err != nil {
		return nil, err
	}

	if settled != nil {
		c.afterResolve(ctx, settled)
	}

	c.metrics.AttackInitiated()
	logger.LogAttackEvent("initiated", project, attack.ID,
		zap.String("attacker", attacker),
		zap.String("target", target),
		zap.Time("expires_at", attack.ExpiresAt))

	delivered := c.notifier.NotifyAttack(attack, now)
	if !delivered {
		c.logger.Debug("目标不在线，攻击邀约未推送",
			zap.Uint("attack_id", attack.ID),
			zap.String("target", target))
	}
	c.ledger.pushBalances(ctx, project, attacker)
	return attack, nil
}

// Defend 目标使用护盾防御
func (c *AttackCoordinator) Defend(ctx context.Context, projectCode, targetName string, attackID uint, now time.Time) (*models.Attack, error) {
	project, target, err := normalizeIdentity(projectCode, targetName)
	if err != nil {
		return nil, err
	}
	now = now.UTC()

	var attack *models.Attack
	err = c.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		found, err := tx.Attack().FindByID(ctx, project, attackID)
		if err != nil {
			return err
		}
		// 非目标方视为邀约不存在
		if found.TargetNorm != target {
			return errors.New(errors.ErrOfferNotFound)
		}
		if found.Status != models.AttackPending {
			return errors.New(errors.ErrOfferNotPending)
		}
		if !now.Before(found.ExpiresAt) {
			return errors.New(errors.ErrOfferExpired)
		}

		if _, err := c.ledger.adjustInTx(ctx, tx, project, target, models.TokenDelta{Shield: -1}, errors.ErrNoShieldTokens); err != nil {
			return err
		}

		won, err := tx.Attack().Transition(ctx, found.ID, repository.AttackTransition{
			To:           models.AttackDefended,
			RespondedAt:  &now,
			ShieldUsed:   true,
			NotExpiredAt: &now,
		})
		if err != nil {
			return err
		}
		if !won {
			// 回滚护盾扣减
			current, err := tx.Attack().FindByID(ctx, project, attackID)
			if err != nil {
				return err
			}
			if current.Status != models.AttackPending {
				return errors.New(errors.ErrOfferNotPending)
			}
			return errors.New(errors.ErrOfferExpired)
		}

		found.Status = models.AttackDefended
		found.ShieldUsed = true
		found.RespondedAt = &now
		found.ActivePairKey = nil
		attack = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.metrics.AttackOutcome(string(models.AttackDefended))
	logger.LogAttackEvent("defended", project, attack.ID,
		zap.String("attacker", attack.AttackerNorm),
		zap.String("target", attack.TargetNorm))

	c.notifier.NotifyAttackResult(attack)
	c.ledger.pushBalances(ctx, project, target)
	return attack, nil
}

// ResolveExpired 结算所有已到期的邀约，返回本次完成结算的数量
//
// 单个邀约结算失败只记录并跳过，返回的错误为最后一次失败。
func (c *AttackCoordinator) ResolveExpired(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	resolved := 0
	var lastErr error
	for {
		due, err := c.repos.Attack().ListDue(ctx, now, resolveBatchSize)
		if err != nil {
			return resolved, err
		}

		progressed := 0
		for _, attack := range due {
			if err := ctx.Err(); err != nil {
				return resolved, err
			}
			won, err := c.resolveOne(ctx, attack, now)
			if err != nil {
				c.logger.Error("结算攻击失败，跳过",
					zap.Uint("attack_id", attack.ID),
					zap.Error(err))
				lastErr = err
				continue
			}
			progressed++
			if won {
				resolved++
			}
		}

		// 整批都失败时不再重复拉取同一批
		if len(due) < resolveBatchSize || progressed == 0 {
			return resolved, lastErr
		}
	}
}

// Get 查询邀约，已到期仍为 pending 时就地结算
func (c *AttackCoordinator) Get(ctx context.Context, projectCode string, attackID uint, now time.Time) (*models.Attack, error) {
	project := utils.NormalizeProjectCode(projectCode)
	now = now.UTC()

	attack, err := c.repos.Attack().FindByID(ctx, project, attackID)
	if err != nil {
		return nil, err
	}
	if attack.Status != models.AttackPending || now.Before(attack.ExpiresAt) {
		return attack, nil
	}

	if _, err := c.resolveOne(ctx, attack, now); err != nil {
		return nil, err
	}
	return c.repos.Attack().FindByID(ctx, project, attackID)
}

// ListIncoming 指向玩家且仍可防御的邀约
func (c *AttackCoordinator) ListIncoming(ctx context.Context, projectCode, targetName string, now time.Time) ([]*models.Attack, error) {
	project, target, err := normalizeIdentity(projectCode, targetName)
	if err != nil {
		return nil, err
	}
	return c.repos.Attack().ListPendingForTarget(ctx, project, target, now.UTC())
}

// ListRecent 玩家最近参与的邀约
func (c *AttackCoordinator) ListRecent(ctx context.Context, projectCode, userName string, limit int) ([]*models.Attack, error) {
	project, user, err := normalizeIdentity(projectCode, userName)
	if err != nil {
		return nil, err
	}
	return c.repos.Attack().ListRecent(ctx, project, user, limit)
}

// resolveOne 在独立事务中结算一个邀约
func (c *AttackCoordinator) resolveOne(ctx context.Context, attack *models.Attack, now time.Time) (bool, error) {
	var won bool
	err := c.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		var err error
		won, err = c.settle(ctx, tx, attack, now)
		return err
	})
	if err != nil {
		return false, err
	}
	if won {
		c.afterResolve(ctx, attack)
	}
	return won, nil
}

// settle 到期结算：宽限期内判为成功并奖励攻击方，超过宽限期判为作废
func (c *AttackCoordinator) settle(ctx context.Context, tx *repository.Transaction, attack *models.Attack, now time.Time) (bool, error) {
	attackCfg := c.settings.Attack()

	to := models.AttackSucceeded
	reward := attackCfg.RewardReviewTokens
	if now.Sub(attack.ExpiresAt) > attackCfg.GracePeriod {
		to = models.AttackExpired
		reward = 0
	}
	if !CanTransition(attack.Status, to) {
		return false, nil
	}

	won, err := tx.Attack().Transition(ctx, attack.ID, repository.AttackTransition{
		To:           to,
		RewardReview: reward,
		ExpiredAt:    &now,
	})
	if err != nil || !won {
		return false, err
	}

	if reward > 0 {
		if _, err := c.ledger.adjustInTx(ctx, tx, attack.ProjectCode, attack.AttackerNorm, models.TokenDelta{Review: reward}, errors.ErrInsufficientTokens); err != nil {
			return false, err
		}
	}

	attack.Status = to
	attack.RewardReview = reward
	attack.ActivePairKey = nil
	return true, nil
}

// afterResolve 提交后的日志、指标与推送
func (c *AttackCoordinator) afterResolve(ctx context.Context, attack *models.Attack) {
	c.metrics.AttackOutcome(string(attack.Status))
	logger.LogAttackEvent(string(attack.Status), attack.ProjectCode, attack.ID,
		zap.String("attacker", attack.AttackerNorm),
		zap.String("target", attack.TargetNorm),
		zap.Int("reward_review", attack.RewardReview))

	c.notifier.NotifyAttackResult(attack)
	if attack.RewardReview > 0 {
		c.ledger.pushBalances(ctx, attack.ProjectCode, attack.AttackerNorm)
	}
}
