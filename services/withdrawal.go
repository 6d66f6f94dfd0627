package services

import (
	"fmt"

	"github.com/olamide-dev/tunepurse/models"
	"github.com/olamide-dev/tunepurse/utils"
	"gorm.io/gorm"
)

// Withdraw pays out fiat from the user's general wallet to an external
// account. The wallet lock is deliberately held across the outbound transfer
// call: the balance is decremented only after the transfer confirms, and a
// failing transfer commits nothing but the failed transaction record. This
// trades lock hold time for the no-partial-debit guarantee.
func (e *SettlementEngine) Withdraw(userID uint, amount float64, currency, payoutAccount string) (*SettlementResult, error) {
	if amount <= 0 {
		return nil, &ValidationError{Message: "withdrawal amount must be positive"}
	}
	if currency != models.CurrencyLocal && currency != models.CurrencyUSD {
		return nil, &ValidationError{Message: fmt.Sprintf("unsupported currency %q", currency)}
	}
	if payoutAccount == "" {
		return nil, &ValidationError{Message: "payout account is required"}
	}

	var (
		result      *SettlementResult
		transferErr error
	)
	err := e.txm.RunAtomic(func(tx *gorm.DB) error {
		wallet, err := e.store.LockWallet(tx, userID, nil)
		if err != nil {
			return err
		}

		available := fiatBalance(wallet, currency)
		if available < amount {
			return &InsufficientFundsError{
				Required:  amount,
				Available: available,
				Currency:  currency,
			}
		}

		txn := &models.Transaction{
			UserID:      userID,
			Type:        models.TransactionTypeWithdrawal,
			FiatAmount:  &amount,
			Currency:    currency,
			Status:      models.TransactionStatusPending,
			Description: fmt.Sprintf("Withdrawal of %.2f %s", amount, currency),
			Metadata:    map[string]interface{}{"payout_account": payoutAccount},
		}
		if err := e.store.CreateTransaction(tx, txn); err != nil {
			return err
		}

		if err := e.gw.Transfer(payoutAccount, amount, currency); err != nil {
			// Balance untouched; keep the failed record and surface the
			// failure after commit.
			txn.Status = models.TransactionStatusFailed
			if saveErr := e.store.SaveTransaction(tx, txn); saveErr != nil {
				return saveErr
			}
			transferErr = err
			return nil
		}

		addFiatBalance(wallet, currency, -amount)
		if err := e.store.SaveWallet(tx, wallet); err != nil {
			return err
		}

		txn.Status = models.TransactionStatusCompleted
		if err := e.store.SaveTransaction(tx, txn); err != nil {
			return err
		}

		result = &SettlementResult{
			Status:        models.TransactionStatusCompleted,
			Type:          models.TransactionTypeWithdrawal,
			FiatAmount:    amount,
			Currency:      currency,
			TransactionID: txn.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if transferErr != nil {
		utils.LogError("Withdrawal transfer failed for user %d: %v", userID, transferErr)
		return nil, transferErr
	}

	utils.LogInfo("User %d withdrew %.2f %s to %s", userID, amount, currency, payoutAccount)
	return result, nil
}

// WithdrawEarnings pays out a creator's available earnings. Pending earnings
// under the hold period cannot be withdrawn. Same lock-across-transfer
// pattern as Withdraw.
func (e *SettlementEngine) WithdrawEarnings(creatorID uint, amount float64, payoutAccount string) (*SettlementResult, error) {
	if amount <= 0 {
		return nil, &ValidationError{Message: "withdrawal amount must be positive"}
	}
	if payoutAccount == "" {
		return nil, &ValidationError{Message: "payout account is required"}
	}

	var (
		result      *SettlementResult
		transferErr error
	)
	err := e.txm.RunAtomic(func(tx *gorm.DB) error {
		earnings, err := e.store.LockEarnings(tx, creatorID)
		if err != nil {
			return err
		}
		if earnings.AvailableBalance < amount {
			return &InsufficientFundsError{
				Required:  amount,
				Available: earnings.AvailableBalance,
				Currency:  earnings.Currency,
			}
		}

		txn := &models.Transaction{
			UserID:      creatorID,
			CreatorID:   &creatorID,
			Type:        models.TransactionTypeWithdrawal,
			FiatAmount:  &amount,
			Currency:    earnings.Currency,
			Status:      models.TransactionStatusPending,
			Description: fmt.Sprintf("Earnings withdrawal of %.2f %s", amount, earnings.Currency),
			Metadata:    map[string]interface{}{"payout_account": payoutAccount},
		}
		if err := e.store.CreateTransaction(tx, txn); err != nil {
			return err
		}

		if err := e.gw.Transfer(payoutAccount, amount, earnings.Currency); err != nil {
			txn.Status = models.TransactionStatusFailed
			if saveErr := e.store.SaveTransaction(tx, txn); saveErr != nil {
				return saveErr
			}
			transferErr = err
			return nil
		}

		earnings.AvailableBalance -= amount
		earnings.LifetimeWithdrawn += amount
		if err := e.store.SaveEarnings(tx, earnings); err != nil {
			return err
		}

		txn.Status = models.TransactionStatusCompleted
		if err := e.store.SaveTransaction(tx, txn); err != nil {
			return err
		}

		result = &SettlementResult{
			Status:        models.TransactionStatusCompleted,
			Type:          models.TransactionTypeWithdrawal,
			FiatAmount:    amount,
			Currency:      earnings.Currency,
			TransactionID: txn.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if transferErr != nil {
		utils.LogError("Earnings withdrawal transfer failed for creator %d: %v", creatorID, transferErr)
		return nil, transferErr
	}

	utils.LogInfo("Creator %d withdrew %.2f earnings to %s", creatorID, amount, payoutAccount)
	return result, nil
}
