package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/olamide-dev/tunepurse/config"
	"github.com/olamide-dev/tunepurse/gateway"
	"github.com/olamide-dev/tunepurse/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeGateway implements gateway.Client for engine tests. Verification
// outcomes are scripted per reference.
type fakeGateway struct {
	mu          sync.Mutex
	sessions    int
	statuses    map[string]gateway.Status
	verifyCalls int
	transferErr error
	transfers   []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{statuses: make(map[string]gateway.Status)}
}

func (f *fakeGateway) CreateSession(req gateway.SessionRequest) (*gateway.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions++
	ref := fmt.Sprintf("plink_%03d", f.sessions)
	return &gateway.Session{
		Reference:   ref,
		PaymentLink: "https://rzp.io/l/" + ref,
	}, nil
}

func (f *fakeGateway) VerifyReference(reference string) (*gateway.VerifyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	status, ok := f.statuses[reference]
	if !ok {
		status = gateway.StatusNotFound
	}
	return &gateway.VerifyResult{Status: status, Reference: reference}, nil
}

func (f *fakeGateway) Transfer(account string, amount float64, currency string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transferErr != nil {
		return f.transferErr
	}
	f.transfers = append(f.transfers, account)
	return nil
}

func (f *fakeGateway) markPaid(reference string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[reference] = gateway.StatusSuccessful
}

func (f *fakeGateway) markFailed(reference string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[reference] = gateway.StatusFailed
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// In-memory SQLite gives each pooled connection its own database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.Migrate(db))
	require.NoError(t, config.SeedDefaults(db))
	return db
}

func newTestEngine(t *testing.T) (*SettlementEngine, *fakeGateway, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	gw := newFakeGateway()
	engine := NewSettlementEngine(db, gw, "https://app.test/payments/callback")
	return engine, gw, db
}

func standardPackage(t *testing.T, db *gorm.DB) *models.CoinPackage {
	t.Helper()
	var pkg models.CoinPackage
	require.NoError(t, db.Where("coins = ?", 500).First(&pkg).Error)
	return &pkg
}

func seedWallet(t *testing.T, db *gorm.DB, userID uint, creatorID *uint, mutate func(*models.Wallet)) *models.Wallet {
	t.Helper()
	wallet := &models.Wallet{UserID: userID, CreatorID: creatorID}
	if mutate != nil {
		mutate(wallet)
	}
	require.NoError(t, db.Create(wallet).Error)
	return wallet
}

func requireInsufficientFunds(t *testing.T, err error) *InsufficientFundsError {
	t.Helper()
	var insufficientErr *InsufficientFundsError
	require.True(t, errors.As(err, &insufficientErr), "expected InsufficientFundsError, got %v", err)
	return insufficientErr
}
