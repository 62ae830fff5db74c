package websocket

import (
	"encoding/json"

	"github.com/wfunc/essay-arena/internal/errors"
	"github.com/wfunc/essay-arena/internal/models"
)

// 客户端消息类型
const (
	TypeRegister  = "register"
	TypeHeartbeat = "heartbeat"
)

// 服务端消息类型
const (
	TypeRegistered     = "registered"
	TypeHeartbeatAck   = "heartbeat_ack"
	TypeIncomingAttack = "incoming_attack"
	TypeAttackResult   = "attack_result"
	TypeTokenUpdate    = "token_update"
)

// 攻击结果中的角色
const (
	RoleAttacker = "attacker"
	RoleTarget   = "target"
)

// Message 服务端下发的消息
type Message interface {
	MessageType() string
}

// envelope 只解析消息类型
type envelope struct {
	Type string `json:"type"`
}

// DecodeType 解析消息类型，JSON非法或缺少类型时返回 ErrMessageFormat
func DecodeType(data []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", errors.Wrap(err, errors.ErrMessageFormat)
	}
	if env.Type == "" {
		return "", errors.New(errors.ErrMessageFormat, "缺少type字段")
	}
	return env.Type, nil
}

// Encode 编码下发消息，type 字段由 MessageType 决定
func Encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// RegisterMessage 客户端注册
type RegisterMessage struct {
	Type        string `json:"type"`
	ProjectCode string `json:"projectCode"`
	UserName    string `json:"userName"`
}

// RegisteredMessage 注册结果
type RegisteredMessage struct {
	Type      string `json:"type"`
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (RegisteredMessage) MessageType() string { return TypeRegistered }

// NewRegistered 创建注册结果
func NewRegistered(success bool, sessionID, errMsg string) RegisteredMessage {
	return RegisteredMessage{Type: TypeRegistered, Success: success, SessionID: sessionID, Error: errMsg}
}

// HeartbeatAckMessage 心跳应答
type HeartbeatAckMessage struct {
	Type string `json:"type"`
}

func (HeartbeatAckMessage) MessageType() string { return TypeHeartbeatAck }

// NewHeartbeatAck 创建心跳应答
func NewHeartbeatAck() HeartbeatAckMessage {
	return HeartbeatAckMessage{Type: TypeHeartbeatAck}
}

// IncomingAttackMessage 收到攻击
type IncomingAttackMessage struct {
	Type        string `json:"type"`
	AttackID    uint   `json:"attackId"`
	Attacker    string `json:"attacker"`
	ExpiresInMs int64  `json:"expiresInMs"`
}

func (IncomingAttackMessage) MessageType() string { return TypeIncomingAttack }

// AttackResultMessage 攻击结果
type AttackResultMessage struct {
	Type               string `json:"type"`
	AttackID           uint   `json:"attackId"`
	Outcome            string `json:"outcome"`
	Attacker           string `json:"attacker"`
	Target             string `json:"target"`
	Role               string `json:"role"`
	ShieldUsed         bool   `json:"shieldUsed"`
	RewardReviewTokens int    `json:"rewardReviewTokens"`
}

func (AttackResultMessage) MessageType() string { return TypeAttackResult }

// NewAttackResult 按接收方角色生成攻击结果
func NewAttackResult(attack *models.Attack, role string) AttackResultMessage {
	return AttackResultMessage{
		Type:               TypeAttackResult,
		AttackID:           attack.ID,
		Outcome:            string(attack.Status),
		Attacker:           attack.AttackerNorm,
		Target:             attack.TargetNorm,
		Role:               role,
		ShieldUsed:         attack.ShieldUsed,
		RewardReviewTokens: attack.RewardReview,
	}
}

// TokenUpdateMessage 令牌余额变化
type TokenUpdateMessage struct {
	Type   string               `json:"type"`
	Tokens models.TokenBalances `json:"tokens"`
}

func (TokenUpdateMessage) MessageType() string { return TypeTokenUpdate }
