package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/essay-arena/internal/config"
	"github.com/wfunc/essay-arena/internal/game"
	"github.com/wfunc/essay-arena/internal/metrics"
	"github.com/wfunc/essay-arena/internal/models"
	"github.com/wfunc/essay-arena/internal/repository"
	"github.com/wfunc/essay-arena/internal/service"
	"gorm.io/gorm"
)

// wsFixture 组装注册表、推送器与服务
type wsFixture struct {
	db         *gorm.DB
	registry   *Registry
	dispatcher *Dispatcher
	services   *service.Services
	handler    *Handler
}

func newWSFixture() *wsFixture {
	db := repository.SetupTestDB()
	m := metrics.New(prometheus.NewRegistry())
	registry := NewRegistry(m)
	dispatcher := NewDispatcher(registry, m)
	svc := service.NewServices(db, service.Options{
		Settings: game.DefaultSettings(),
		Presence: config.PresenceConfig{JanitorInterval: time.Minute, StaleAfter: 2 * time.Minute},
		Notifier: dispatcher,
		Metrics:  m,
	})
	return &wsFixture{
		db:         db,
		registry:   registry,
		dispatcher: dispatcher,
		services:   svc,
		handler:    NewHandler(registry, dispatcher, svc),
	}
}

func (f *wsFixture) close() {
	repository.CleanupTestDB(f.db)
}

// HandlerTestSuite 消息处理器测试套件
type HandlerTestSuite struct {
	suite.Suite
	f   *wsFixture
	ctx context.Context
}

func (s *HandlerTestSuite) SetupTest() {
	s.f = newWSFixture()
	s.ctx = context.Background()
}

func (s *HandlerTestSuite) TearDownTest() {
	s.f.close()
}

func (s *HandlerTestSuite) connect() *Connection {
	c := NewConnection(newFakeSocket(), DefaultConnectionOptions())
	s.f.registry.Attach(c)
	return c
}

func (s *HandlerTestSuite) register(c *Connection, project, user string) []map[string]any {
	s.f.handler.HandleMessage(c, []byte(`{"type":"register","projectCode":"`+project+`","userName":"`+user+`"}`))
	return drain(c)
}

// TestRegister_RepliesAndPushesBalances 测试注册成功后推送余额
func (s *HandlerTestSuite) TestRegister_RepliesAndPushesBalances() {
	c := s.connect()

	msgs := s.register(c, " p1 ", "Jane  Doe")
	s.Require().Len(msgs, 2)

	s.Equal(TypeRegistered, msgs[0]["type"])
	s.Equal(true, msgs[0]["success"])
	s.NotEmpty(msgs[0]["sessionId"])

	s.Equal(TypeTokenUpdate, msgs[1]["type"])
	s.Equal(map[string]any{"review": float64(3), "attack": float64(0), "shield": float64(1)}, msgs[1]["tokens"])

	s.True(s.f.registry.IsReachable("P1", "jane doe"))

	active, err := s.f.services.Presence.ListActive(s.ctx, "p1", time.Now())
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal(msgs[0]["sessionId"], active[0].SessionID)
}

// TestRegister_EmptyIdentityRejected 测试缺少身份时注册失败
func (s *HandlerTestSuite) TestRegister_EmptyIdentityRejected() {
	c := s.connect()

	msgs := s.register(c, "p1", "   ")
	s.Require().Len(msgs, 1)
	s.Equal(TypeRegistered, msgs[0]["type"])
	s.Equal(false, msgs[0]["success"])
	s.NotEmpty(msgs[0]["error"])

	s.Equal(0, s.f.registry.Count())
	s.True(c.IsOpen())
}

// TestRegister_WrongFieldTypesRejected 字段类型错误时同样回复注册失败
func (s *HandlerTestSuite) TestRegister_WrongFieldTypesRejected() {
	c := s.connect()

	s.f.handler.HandleMessage(c, []byte(`{"type":"register","projectCode":"p1","userName":5}`))
	msgs := drain(c)
	s.Require().Len(msgs, 1)
	s.Equal(TypeRegistered, msgs[0]["type"])
	s.Equal(false, msgs[0]["success"])
	s.NotEmpty(msgs[0]["error"])

	s.Equal(0, s.f.registry.Count())
	s.True(c.IsOpen())
}

// TestRegister_CatchUpPendingAttacks 测试重连后补发未处理的攻击
func (s *HandlerTestSuite) TestRegister_CatchUpPendingAttacks() {
	_, err := s.f.services.Ledger.AdjustTokens(s.ctx, "p1", "bob", models.TokenDelta{Attack: 1})
	s.Require().NoError(err)
	attack, err := s.f.services.Attacks.Initiate(s.ctx, "p1", "bob", "jane", time.Now())
	s.Require().NoError(err)

	msgs := s.register(s.connect(), "p1", "jane")

	incoming := ofType(msgs, TypeIncomingAttack)
	s.Require().Len(incoming, 1)
	s.Equal(float64(attack.ID), incoming[0]["attackId"])
	s.Equal("bob", incoming[0]["attacker"])
	expiresIn := incoming[0]["expiresInMs"].(float64)
	s.Greater(expiresIn, float64(0))
	s.LessOrEqual(expiresIn, float64(15000))

	s.Equal(TypeRegistered, msgs[0]["type"])
	s.Len(ofType(msgs, TypeTokenUpdate), 1)
}

// TestHeartbeat 测试心跳应答与在线时间刷新
func (s *HandlerTestSuite) TestHeartbeat() {
	c := s.connect()

	s.f.handler.HandleMessage(c, []byte(`{"type":"heartbeat"}`))
	msgs := drain(c)
	s.Require().Len(msgs, 1)
	s.Equal(TypeHeartbeatAck, msgs[0]["type"])

	active, err := s.f.services.Presence.ListActive(s.ctx, "p1", time.Now())
	s.Require().NoError(err)
	s.Empty(active)

	s.register(c, "p1", "jane")
	s.f.handler.HandleMessage(c, []byte(`{"type":"heartbeat"}`))
	s.Len(ofType(drain(c), TypeHeartbeatAck), 1)

	active, err = s.f.services.Presence.ListActive(s.ctx, "p1", time.Now())
	s.Require().NoError(err)
	s.Len(active, 1)
}

// TestMalformedMessagesDropped 测试非法消息被丢弃且连接保持
func (s *HandlerTestSuite) TestMalformedMessagesDropped() {
	c := s.connect()

	for _, raw := range []string{`{not json`, `{"type":"dance"}`, `{}`} {
		s.f.handler.HandleMessage(c, []byte(raw))
	}

	s.Empty(drain(c))
	s.True(c.IsOpen())
	s.Equal(0, s.f.registry.Count())
}

// TestLiveAttackFlow 测试攻击与防御结果实时推送给双方
func (s *HandlerTestSuite) TestLiveAttackFlow() {
	jane := s.connect()
	bob := s.connect()
	s.register(jane, "p1", "jane")
	s.register(bob, "p1", "bob")

	_, err := s.f.services.Ledger.AdjustTokens(s.ctx, "p1", "bob", models.TokenDelta{Attack: 1})
	s.Require().NoError(err)
	s.Len(ofType(drain(bob), TypeTokenUpdate), 1)

	attack, err := s.f.services.Attacks.Initiate(s.ctx, "p1", "bob", "jane", time.Now())
	s.Require().NoError(err)
	s.Len(ofType(drain(jane), TypeIncomingAttack), 1)
	drain(bob)

	_, err = s.f.services.Attacks.Defend(s.ctx, "p1", "jane", attack.ID, time.Now())
	s.Require().NoError(err)

	for conn, role := range map[*Connection]string{jane: RoleTarget, bob: RoleAttacker} {
		results := ofType(drain(conn), TypeAttackResult)
		s.Require().Len(results, 1, role)
		s.Equal("defended", results[0]["outcome"])
		s.Equal(role, results[0]["role"])
		s.Equal(true, results[0]["shieldUsed"])
	}
}

// TestOnClose_Detaches 测试连接关闭后注销
func (s *HandlerTestSuite) TestOnClose_Detaches() {
	c := s.connect()
	s.register(c, "p1", "jane")
	s.Equal(1, s.f.registry.Count())

	c.Terminate()
	s.f.handler.OnClose(c)
	s.Equal(0, s.f.registry.Count())
	s.False(s.f.dispatcher.NotifyTokenUpdate("p1", "jane", models.TokenBalances{}))
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
