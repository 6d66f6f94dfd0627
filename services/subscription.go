package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/olamide-dev/tunepurse/gateway"
	"github.com/olamide-dev/tunepurse/models"
	"github.com/olamide-dev/tunepurse/utils"
	"gorm.io/gorm"
)

// InitializeSubscription creates a pending subscription funded through the
// gateway redirect flow and returns the hosted payment link. Activation
// happens later in settle(), exactly once per reference.
func (e *SettlementEngine) InitializeSubscription(userID uint, email, tierSlug string) (*InitResult, error) {
	tier, err := e.store.TierBySlug(tierSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Message: fmt.Sprintf("unknown subscription tier %q", tierSlug)}
		}
		return nil, err
	}

	session, err := e.gw.CreateSession(gateway.SessionRequest{
		Amount:        tier.Price,
		Currency:      tier.Currency,
		CustomerEmail: email,
		Receipt:       uuid.New().String(),
		CallbackURL:   e.callbackURL,
		Description:   fmt.Sprintf("%s subscription", tier.Name),
		Notes: map[string]interface{}{
			"kind": models.TransactionTypeSubscription,
			"tier": tier.Slug,
		},
	})
	if err != nil {
		return nil, err
	}

	sub := &models.Subscription{
		UserID:           userID,
		TierSlug:         tier.Slug,
		Status:           models.SubscriptionStatusPending,
		CoinGrants:       tier.CoinGrants,
		GatewayReference: &session.Reference,
		Amount:           tier.Price,
		Currency:         tier.Currency,
	}
	if err := e.store.CreateSubscription(nil, sub); err != nil {
		return nil, err
	}

	utils.LogInfo("Initialized subscription %d (%s) for user %d, reference %s", sub.ID, tier.Slug, userID, session.Reference)
	return &InitResult{
		Reference:      session.Reference,
		PaymentLink:    session.PaymentLink,
		SubscriptionID: sub.ID,
	}, nil
}

// SubscribeWithWallet activates a tier immediately, funded from the general
// wallet's fiat balance in the tier's currency. No gateway round-trip is
// involved; the wallet lock alone guards the balance check and debit.
func (e *SettlementEngine) SubscribeWithWallet(userID uint, tierSlug string) (*SettlementResult, error) {
	tier, err := e.store.TierBySlug(tierSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Message: fmt.Sprintf("unknown subscription tier %q", tierSlug)}
		}
		return nil, err
	}

	var result *SettlementResult
	err = e.txm.RunAtomic(func(tx *gorm.DB) error {
		wallet, err := e.store.LockWallet(tx, userID, nil)
		if err != nil {
			return err
		}

		available := fiatBalance(wallet, tier.Currency)
		if available < tier.Price {
			return &InsufficientFundsError{
				Required:  tier.Price,
				Available: available,
				Currency:  tier.Currency,
			}
		}
		addFiatBalance(wallet, tier.Currency, -tier.Price)
		if err := e.store.SaveWallet(tx, wallet); err != nil {
			return err
		}

		sub := &models.Subscription{
			UserID:     userID,
			TierSlug:   tier.Slug,
			Status:     models.SubscriptionStatusPending,
			CoinGrants: tier.CoinGrants,
			Amount:     tier.Price,
			Currency:   tier.Currency,
		}
		if err := e.store.CreateSubscription(tx, sub); err != nil {
			return err
		}
		if err := e.activateSubscription(tx, sub, tier); err != nil {
			return err
		}

		txn := &models.Transaction{
			UserID:      userID,
			Type:        models.TransactionTypeSubscription,
			FiatAmount:  &tier.Price,
			Currency:    tier.Currency,
			Status:      models.TransactionStatusCompleted,
			Description: fmt.Sprintf("%s subscription paid from wallet", tier.Name),
			Metadata:    map[string]interface{}{"subscription_id": sub.ID, "tier": tier.Slug},
		}
		if err := e.store.CreateTransaction(tx, txn); err != nil {
			return err
		}

		result = &SettlementResult{
			Status:         models.TransactionStatusCompleted,
			Type:           models.TransactionTypeSubscription,
			FiatAmount:     tier.Price,
			Currency:       tier.Currency,
			SubscriptionID: sub.ID,
			TransactionID:  txn.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.LogInfo("User %d subscribed to %s from wallet balance", userID, tier.Slug)
	return result, nil
}

func (e *SettlementEngine) settleSubscription(tx *gorm.DB, sub *models.Subscription, vr *gateway.VerifyResult) (*SettlementResult, error) {
	reference := ""
	if sub.GatewayReference != nil {
		reference = *sub.GatewayReference
	}

	// Idempotency guard: activation happens exactly once per reference.
	if sub.IsTerminal() {
		utils.LogInfo("Subscription %d already %s, returning cached result", sub.ID, sub.Status)
		return &SettlementResult{
			Reference:        reference,
			Status:           sub.Status,
			AlreadyProcessed: true,
			Type:             models.TransactionTypeSubscription,
			FiatAmount:       sub.Amount,
			Currency:         sub.Currency,
			SubscriptionID:   sub.ID,
		}, nil
	}

	if vr.Status != gateway.StatusSuccessful {
		sub.Status = models.SubscriptionStatusCancelled
		if err := e.store.SaveSubscription(tx, sub); err != nil {
			return nil, err
		}
		utils.LogError("Subscription %d failed gateway verification: %s", sub.ID, vr.Status)
		return &SettlementResult{
			Reference:      reference,
			Status:         sub.Status,
			Type:           models.TransactionTypeSubscription,
			SubscriptionID: sub.ID,
		}, &GatewayVerificationError{Reference: reference, Status: vr.Status}
	}

	tier, err := e.store.TierBySlug(sub.TierSlug)
	if err != nil {
		return nil, fmt.Errorf("subscription %d references unknown tier %q: %w", sub.ID, sub.TierSlug, err)
	}
	if err := e.activateSubscription(tx, sub, tier); err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		UserID:      sub.UserID,
		Type:        models.TransactionTypeSubscription,
		FiatAmount:  &sub.Amount,
		Currency:    sub.Currency,
		Status:      models.TransactionStatusCompleted,
		Description: fmt.Sprintf("%s subscription", tier.Name),
		Metadata:    map[string]interface{}{"subscription_id": sub.ID, "tier": tier.Slug},
	}
	if err := e.store.CreateTransaction(tx, txn); err != nil {
		return nil, err
	}

	utils.LogInfo("Settled subscription %d (%s) for user %d", sub.ID, tier.Slug, sub.UserID)
	return &SettlementResult{
		Reference:      reference,
		Status:         models.TransactionStatusCompleted,
		Type:           models.TransactionTypeSubscription,
		FiatAmount:     sub.Amount,
		Currency:       sub.Currency,
		SubscriptionID: sub.ID,
		TransactionID:  txn.ID,
	}, nil
}

// activateSubscription credits the tier's grants and flips the row to active
// with start/end computed from the tier duration. Caller holds the enclosing
// transaction.
func (e *SettlementEngine) activateSubscription(tx *gorm.DB, sub *models.Subscription, tier *models.SubscriptionTier) error {
	grant := tier.TokenGrant + tier.BonusTokens
	if grant > 0 {
		wallet, err := e.store.LockWallet(tx, sub.UserID, nil)
		if err != nil {
			return err
		}
		wallet.Coins += grant
		wallet.LifetimeEarned += grant
		if err := e.store.SaveWallet(tx, wallet); err != nil {
			return err
		}
	}

	// Legacy coin-pack tiers grant creator-scoped coins as well.
	for creatorID, coins := range sub.CoinGrants {
		if coins <= 0 {
			continue
		}
		wallet, err := e.store.LockWallet(tx, sub.UserID, &creatorID)
		if err != nil {
			return err
		}
		wallet.Coins += coins
		wallet.LifetimeEarned += coins
		if err := e.store.SaveWallet(tx, wallet); err != nil {
			return err
		}

		coin, err := e.store.LockCreatorCoin(tx, creatorID)
		if err != nil {
			return err
		}
		coin.CirculatingSupply += coins
		if err := e.store.SaveCreatorCoin(tx, coin); err != nil {
			return err
		}
	}

	now := time.Now()
	end := now.AddDate(0, 0, tier.DurationDays)
	sub.Status = models.SubscriptionStatusActive
	sub.StartDate = &now
	sub.EndDate = &end
	return e.store.SaveSubscription(tx, sub)
}

func fiatBalance(wallet *models.Wallet, currency string) float64 {
	if currency == models.CurrencyUSD {
		return wallet.USDBalance
	}
	return wallet.LocalBalance
}

func addFiatBalance(wallet *models.Wallet, currency string, delta float64) {
	if currency == models.CurrencyUSD {
		wallet.USDBalance += delta
		return
	}
	wallet.LocalBalance += delta
}
