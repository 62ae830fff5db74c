package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/essay-arena/internal/errors"
	"github.com/wfunc/essay-arena/internal/game"
)

// AttackHandler 攻击处理器
type AttackHandler struct {
	attacks *game.AttackCoordinator
	now     func() time.Time
}

// NewAttackHandler 创建攻击处理器
func NewAttackHandler(attacks *game.AttackCoordinator) *AttackHandler {
	return &AttackHandler{attacks: attacks, now: time.Now}
}

// InitiateRequest 发起攻击请求
type InitiateRequest struct {
	Attacker string `json:"attacker" binding:"required"`
	Target   string `json:"target" binding:"required"`
}

// DefendRequest 防御请求
type DefendRequest struct {
	Target string `json:"target" binding:"required"`
}

// Initiate 发起攻击
func (h *AttackHandler) Initiate(c *gin.Context) {
	var req InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	attack, err := h.attacks.Initiate(c.Request.Context(), c.Param("project"), req.Attacker, req.Target, h.now())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, attack)
}

// Defend 目标使用护盾防御
func (h *AttackHandler) Defend(c *gin.Context) {
	id, valid := attackID(c)
	if !valid {
		return
	}
	var req DefendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	attack, err := h.attacks.Defend(c.Request.Context(), c.Param("project"), req.Target, id, h.now())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, attack)
}

// Get 查询攻击，到期未处理的会先结算
func (h *AttackHandler) Get(c *gin.Context) {
	id, valid := attackID(c)
	if !valid {
		return
	}

	attack, err := h.attacks.Get(c.Request.Context(), c.Param("project"), id, h.now())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, attack)
}

func attackID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		fail(c, errors.New(errors.ErrInvalidParam, "无效的攻击ID"))
		return 0, false
	}
	return uint(id), true
}
