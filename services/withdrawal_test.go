package services

import (
	"errors"
	"testing"

	"github.com/olamide-dev/tunepurse/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithdrawDecrementsOnlyAfterTransferSuccess(t *testing.T) {
	engine, gw, db := newTestEngine(t)
	seedWallet(t, db, 1, nil, func(w *models.Wallet) { w.LocalBalance = 5000 })

	result, err := engine.Withdraw(1, 1200, models.CurrencyLocal, "acc_creator123")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, result.Status)
	assert.Equal(t, []string{"acc_creator123"}, gw.transfers)

	var wallet models.Wallet
	require.NoError(t, db.Where("user_id = ? AND creator_id IS NULL", 1).First(&wallet).Error)
	assert.Equal(t, 3800.0, wallet.LocalBalance)
}

func TestWithdrawFailingTransferLeavesBalanceUntouched(t *testing.T) {
	engine, gw, db := newTestEngine(t)
	seedWallet(t, db, 1, nil, func(w *models.Wallet) { w.LocalBalance = 5000 })
	gw.transferErr = errors.New("beneficiary account unavailable")

	_, err := engine.Withdraw(1, 1200, models.CurrencyLocal, "acc_creator123")
	require.Error(t, err)

	var wallet models.Wallet
	require.NoError(t, db.Where("user_id = ? AND creator_id IS NULL", 1).First(&wallet).Error)
	assert.Equal(t, 5000.0, wallet.LocalBalance)

	// The attempt is recorded as failed; no completed transaction exists
	var failedCount, completedCount int64
	require.NoError(t, db.Model(&models.Transaction{}).
		Where("type = ? AND status = ?", models.TransactionTypeWithdrawal, models.TransactionStatusFailed).
		Count(&failedCount).Error)
	require.NoError(t, db.Model(&models.Transaction{}).
		Where("type = ? AND status = ?", models.TransactionTypeWithdrawal, models.TransactionStatusCompleted).
		Count(&completedCount).Error)
	assert.Equal(t, int64(1), failedCount)
	assert.Zero(t, completedCount)
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	engine, gw, db := newTestEngine(t)
	seedWallet(t, db, 1, nil, func(w *models.Wallet) { w.LocalBalance = 100 })

	_, err := engine.Withdraw(1, 1200, models.CurrencyLocal, "acc_creator123")
	requireInsufficientFunds(t, err)
	assert.Empty(t, gw.transfers, "transfer must not be attempted")

	var wallet models.Wallet
	require.NoError(t, db.Where("user_id = ? AND creator_id IS NULL", 1).First(&wallet).Error)
	assert.Equal(t, 100.0, wallet.LocalBalance)
}

func TestWithdrawValidation(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	var validationErr *ValidationError
	_, err := engine.Withdraw(1, -5, models.CurrencyLocal, "acc_creator123")
	require.True(t, errors.As(err, &validationErr))

	_, err = engine.Withdraw(1, 100, "EUR", "acc_creator123")
	require.True(t, errors.As(err, &validationErr))

	_, err = engine.Withdraw(1, 100, models.CurrencyLocal, "")
	require.True(t, errors.As(err, &validationErr))
}

func TestWithdrawEarnings(t *testing.T) {
	engine, gw, db := newTestEngine(t)
	earnings := models.CreatorEarnings{
		CreatorID:        9,
		AvailableBalance: 900,
		PendingBalance:   400,
		Currency:         models.CurrencyLocal,
	}
	require.NoError(t, db.Create(&earnings).Error)

	result, err := engine.WithdrawEarnings(9, 500, "acc_creator9")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, result.Status)
	assert.Equal(t, []string{"acc_creator9"}, gw.transfers)

	require.NoError(t, db.Where("creator_id = ?", 9).First(&earnings).Error)
	assert.Equal(t, 400.0, earnings.AvailableBalance)
	assert.Equal(t, 500.0, earnings.LifetimeWithdrawn)
	// Held funds are untouched by withdrawal
	assert.Equal(t, 400.0, earnings.PendingBalance)
}

func TestWithdrawEarningsPendingNotWithdrawable(t *testing.T) {
	engine, _, db := newTestEngine(t)
	earnings := models.CreatorEarnings{
		CreatorID:        9,
		AvailableBalance: 100,
		PendingBalance:   2000,
		Currency:         models.CurrencyLocal,
	}
	require.NoError(t, db.Create(&earnings).Error)

	_, err := engine.WithdrawEarnings(9, 500, "acc_creator9")
	insufficientErr := requireInsufficientFunds(t, err)
	assert.Equal(t, 100.0, insufficientErr.Available)

	require.NoError(t, db.Where("creator_id = ?", 9).First(&earnings).Error)
	assert.Equal(t, 100.0, earnings.AvailableBalance)
	assert.Equal(t, 2000.0, earnings.PendingBalance)
}
