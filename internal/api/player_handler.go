package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/essay-arena/internal/game"
	"github.com/wfunc/essay-arena/internal/models"
	"github.com/wfunc/essay-arena/internal/repository"
)

// PlayerHandler 玩家状态处理器
type PlayerHandler struct {
	ledger   *game.Ledger
	cooldown *game.CooldownGate
	attacks  *game.AttackCoordinator
	now      func() time.Time
}

// NewPlayerHandler 创建玩家状态处理器
func NewPlayerHandler(ledger *game.Ledger, cooldown *game.CooldownGate, attacks *game.AttackCoordinator) *PlayerHandler {
	return &PlayerHandler{
		ledger:   ledger,
		cooldown: cooldown,
		attacks:  attacks,
		now:      time.Now,
	}
}

// PlayerStateResponse 玩家状态
type PlayerStateResponse struct {
	ProjectCode  string               `json:"projectCode"`
	UserName     string               `json:"userName"`
	Tokens       models.TokenBalances `json:"tokens"`
	LastReviewAt *time.Time           `json:"lastReviewAt,omitempty"`
}

func newPlayerStateResponse(state *models.PlayerState) PlayerStateResponse {
	return PlayerStateResponse{
		ProjectCode:  state.ProjectCode,
		UserName:     state.UserNameNorm,
		Tokens:       state.Balances(),
		LastReviewAt: state.LastReviewAt,
	}
}

// ReviewAdmissionResponse 评审准入结果
type ReviewAdmissionResponse struct {
	Player   PlayerStateResponse `json:"player"`
	Decision game.ReviewDecision `json:"decision"`
}

// ListPlayers 分页列出项目内玩家
func (h *PlayerHandler) ListPlayers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	p := repository.NewPagination(page, pageSize)

	states, err := h.ledger.ListPlayers(c.Request.Context(), c.Param("project"), p)
	if err != nil {
		fail(c, err)
		return
	}

	players := make([]PlayerStateResponse, 0, len(states))
	for _, state := range states {
		players = append(players, newPlayerStateResponse(state))
	}
	ok(c, http.StatusOK, gin.H{
		"players":    players,
		"pagination": p,
	})
}

// GetState 获取玩家余额，不存在时创建默认状态
func (h *PlayerHandler) GetState(c *gin.Context) {
	state, err := h.ledger.GetState(c.Request.Context(), c.Param("project"), c.Param("user"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, newPlayerStateResponse(state))
}

// GetCooldown 查询评审冷却
func (h *PlayerHandler) GetCooldown(c *gin.Context) {
	decision, err := h.cooldown.CanReview(c.Request.Context(), c.Param("project"), c.Param("user"), h.now())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, decision)
}

// AdmitReview 准入一次评审：检查冷却、扣除评审令牌并记录时间
func (h *PlayerHandler) AdmitReview(c *gin.Context) {
	state, decision, err := h.cooldown.AdmitReview(c.Request.Context(), c.Param("project"), c.Param("user"), h.now())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, ReviewAdmissionResponse{
		Player:   newPlayerStateResponse(state),
		Decision: decision,
	})
}

// ListAttacks 玩家最近参与的攻击
func (h *PlayerHandler) ListAttacks(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	attacks, err := h.attacks.ListRecent(c.Request.Context(), c.Param("project"), c.Param("user"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, attacks)
}

// ListIncoming 玩家待处理的来袭攻击
func (h *PlayerHandler) ListIncoming(c *gin.Context) {
	attacks, err := h.attacks.ListIncoming(c.Request.Context(), c.Param("project"), c.Param("user"), h.now())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, attacks)
}
