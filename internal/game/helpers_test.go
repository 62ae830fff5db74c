package game

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wfunc/essay-arena/internal/metrics"
	"github.com/wfunc/essay-arena/internal/models"
	"github.com/wfunc/essay-arena/internal/repository"
	"gorm.io/gorm"
)

// recordingNotifier 记录推送事件
type recordingNotifier struct {
	mu        sync.Mutex
	reachable map[string]bool
	attacks   []models.Attack
	results   []models.Attack
	balances  map[string]models.TokenBalances
}

func newRecordingNotifier(reachable ...string) *recordingNotifier {
	n := &recordingNotifier{
		reachable: make(map[string]bool),
		balances:  make(map[string]models.TokenBalances),
	}
	for _, user := range reachable {
		n.reachable[user] = true
	}
	return n
}

func (n *recordingNotifier) NotifyAttack(attack *models.Attack, _ time.Time) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attacks = append(n.attacks, *attack)
	return n.reachable[attack.TargetNorm]
}

func (n *recordingNotifier) NotifyAttackResult(attack *models.Attack) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, *attack)
}

func (n *recordingNotifier) NotifyTokenUpdate(_ string, user string, balances models.TokenBalances) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.balances[user] = balances
	return n.reachable[user]
}

func (n *recordingNotifier) resultCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.results)
}

func (n *recordingNotifier) lastBalances(user string) (models.TokenBalances, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	b, ok := n.balances[user]
	return b, ok
}

// fixture 测试依赖
type fixture struct {
	db          *gorm.DB
	repos       *repository.Manager
	settings    StaticSettings
	notifier    *recordingNotifier
	ledger      *Ledger
	gate        *CooldownGate
	coordinator *AttackCoordinator
}

func newFixture() *fixture {
	return newFixtureWithDB(repository.SetupTestDB())
}

// newFileFixture 文件型数据库，多连接池与服务进程的默认部署一致
func newFileFixture(t *testing.T) *fixture {
	return newFixtureWithDB(repository.SetupFileTestDB(t.TempDir(), 8))
}

func newFixtureWithDB(db *gorm.DB) *fixture {
	repos := repository.NewManager(db)
	settings := DefaultSettings()
	notifier := newRecordingNotifier()
	m := metrics.New(prometheus.NewRegistry())

	ledger := NewLedger(repos, settings, notifier, m)
	return &fixture{
		db:          db,
		repos:       repos,
		settings:    settings,
		notifier:    notifier,
		ledger:      ledger,
		gate:        NewCooldownGate(repos, ledger, NewProjectCooldowns(repos.Project(), settings), m),
		coordinator: NewAttackCoordinator(repos, ledger, settings, notifier, m),
	}
}

func (f *fixture) close() {
	repository.CleanupTestDB(f.db)
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
