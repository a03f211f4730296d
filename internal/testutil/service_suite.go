package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/recibo/recibo/internal/cache"
	"github.com/recibo/recibo/internal/clock"
	"github.com/recibo/recibo/internal/config"
	"github.com/recibo/recibo/internal/logger"
	"github.com/recibo/recibo/internal/types"
)

// Stores bundles the in-memory repositories services are tested against
type Stores struct {
	SubscriptionRepo *InMemorySubscriptionStore
	PaymentRepo      *InMemoryPaymentStore
	NotificationRepo *InMemoryNotificationStore
}

// BaseServiceTestSuite is the common fixture for service tests. It wires the
// in-memory stores, a noop transaction client, a stub account gate and a
// mock clock frozen at a fixed date so due date arithmetic is deterministic.
type BaseServiceTestSuite struct {
	suite.Suite
	ctx         context.Context
	cfg         *config.Configuration
	logger      *logger.Logger
	db          *NoopClient
	clk         *clock.Mock
	stores      Stores
	accountGate *StubAccountGate
	cache       cache.Cache
}

// suiteEpoch is the frozen wall clock tests start from
var suiteEpoch = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

// SetupTest initializes the test environment
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = types.SetUserID(context.Background(), "user_test_admin")
	s.ctx = types.SetUserRole(s.ctx, types.RoleAdmin)

	s.cfg = config.GetDefaultConfig()
	s.logger = logger.GetLogger()
	s.db = NewNoopClient()
	s.clk = clock.NewMock(suiteEpoch)
	s.accountGate = NewStubAccountGate()
	cache.InitializeInMemoryCache()
	s.cache = cache.GetInMemoryCache()
	s.stores = Stores{
		SubscriptionRepo: NewInMemorySubscriptionStore(),
		PaymentRepo:      NewInMemoryPaymentStore(),
		NotificationRepo: NewInMemoryNotificationStore(),
	}
}

// TearDownTest cleans up the test environment
func (s *BaseServiceTestSuite) TearDownTest() {
	s.ClearStores()
}

// ClearStores resets all in-memory stores
func (s *BaseServiceTestSuite) ClearStores() {
	s.stores.SubscriptionRepo.Clear()
	s.stores.PaymentRepo.Clear()
	s.stores.NotificationRepo.Clear()
	s.accountGate.Reset()
	if s.cache != nil {
		s.cache.DeleteByPrefix(s.ctx, "")
	}
}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.cfg
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetDB() *NoopClient {
	return s.db
}

func (s *BaseServiceTestSuite) GetClock() *clock.Mock {
	return s.clk
}

func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetAccountGate() *StubAccountGate {
	return s.accountGate
}

func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}
