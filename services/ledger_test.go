package services

import (
	"fmt"
	"testing"

	"github.com/olamide-dev/tunepurse/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLockWalletCreatesLazily(t *testing.T) {
	db := setupTestDB(t)
	store := NewLedgerStore(db)
	creatorID := uint(7)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		wallet, err := store.LockWallet(tx, 3, &creatorID)
		require.NoError(t, err)
		assert.Equal(t, uint(3), wallet.UserID)
		require.NotNil(t, wallet.CreatorID)
		assert.Equal(t, creatorID, *wallet.CreatorID)
		assert.Zero(t, wallet.Coins)
		return nil
	}))

	// Second lock finds the same row instead of creating another
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := store.LockWallet(tx, 3, &creatorID)
		return err
	}))
	var count int64
	require.NoError(t, db.Model(&models.Wallet{}).Where("user_id = ?", 3).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWalletUniquePerUserCreatorPair(t *testing.T) {
	db := setupTestDB(t)
	creatorID := uint(7)

	// General wallets carry a NULL creator id, which the composite index
	// treats as distinct; the partial index must still reject a second row.
	seedWallet(t, db, 1, nil, nil)
	err := db.Create(&models.Wallet{UserID: 1}).Error
	require.Error(t, err, "second general wallet for the same user must be rejected")

	seedWallet(t, db, 1, &creatorID, nil)
	err = db.Create(&models.Wallet{UserID: 1, CreatorID: &creatorID}).Error
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Wallet{}).Where("user_id = ?", 1).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestWalletScopeSeparatesGeneralAndCreatorWallets(t *testing.T) {
	db := setupTestDB(t)
	store := NewLedgerStore(db)
	creatorID := uint(7)

	seedWallet(t, db, 3, nil, func(w *models.Wallet) { w.Coins = 10 })
	seedWallet(t, db, 3, &creatorID, func(w *models.Wallet) { w.Coins = 20 })

	general, err := store.GetWallet(nil, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(10), general.Coins)

	scoped, err := store.GetWallet(nil, 3, &creatorID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), scoped.Coins)

	wallets, err := store.WalletsByUser(3)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Nil(t, wallets[0].CreatorID, "general wallet sorts first")
}

func TestLockCreatorCoinAppliesDefaultPrice(t *testing.T) {
	db := setupTestDB(t)
	store := NewLedgerStore(db)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		coin, err := store.LockCreatorCoin(tx, 7)
		require.NoError(t, err)
		assert.Equal(t, 10.0, coin.CoinPrice)
		return nil
	}))
}

func TestRecentTransactionsPagination(t *testing.T) {
	db := setupTestDB(t)
	store := NewLedgerStore(db)

	for i := 0; i < 25; i++ {
		txn := models.Transaction{
			UserID:      3,
			Type:        models.TransactionTypeSpend,
			Coins:       int64(i + 1),
			Status:      models.TransactionStatusCompleted,
			Description: fmt.Sprintf("spend %d", i+1),
		}
		require.NoError(t, db.Create(&txn).Error)
	}

	page1, total, err := store.RecentTransactions(3, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	assert.Len(t, page1, 10)

	page3, _, err := store.RecentTransactions(3, 3, 10)
	require.NoError(t, err)
	assert.Len(t, page3, 5)

	// Out-of-range inputs fall back to the defaults
	clamped, _, err := store.RecentTransactions(3, 0, 500)
	require.NoError(t, err)
	assert.Len(t, clamped, 10)
}

func TestTierAndPackageLookupsSkipInactive(t *testing.T) {
	db := setupTestDB(t)
	store := NewLedgerStore(db)

	require.NoError(t, db.Model(&models.SubscriptionTier{}).
		Where("slug = ?", "weekly").Update("active", false).Error)
	_, err := store.TierBySlug("weekly")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var pkg models.CoinPackage
	require.NoError(t, db.Where("coins = ?", 500).First(&pkg).Error)
	require.NoError(t, db.Model(&pkg).Update("active", false).Error)
	_, err = store.PackageByID(pkg.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
