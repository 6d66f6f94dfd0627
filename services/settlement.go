package services

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/olamide-dev/tunepurse/gateway"
	"github.com/olamide-dev/tunepurse/models"
	"github.com/olamide-dev/tunepurse/utils"
	"gorm.io/gorm"
)

// Creators keep 90% of tips and unlock revenue; the platform retains the rest
// implicitly (it is credited to no ledger row here).
const creatorShareRate = 0.90

// SettlementEngine owns every balance mutation in the ledger. All flows run
// inside TxnManager.RunAtomic and take their row locks before reading the
// state that drives a write.
type SettlementEngine struct {
	txm         *TxnManager
	store       *LedgerStore
	gw          gateway.Client
	callbackURL string
}

func NewSettlementEngine(db *gorm.DB, gw gateway.Client, callbackURL string) *SettlementEngine {
	return &SettlementEngine{
		txm:         NewTxnManager(db),
		store:       NewLedgerStore(db),
		gw:          gw,
		callbackURL: callbackURL,
	}
}

// Store exposes the ledger store for read-only surfaces.
func (e *SettlementEngine) Store() *LedgerStore {
	return e.store
}

// InitResult is returned by the initialize operations: the hosted payment
// link the caller redirects to, and the external reference both settlement
// paths later resolve.
type InitResult struct {
	Reference      string `json:"reference"`
	PaymentLink    string `json:"payment_link"`
	TransactionID  uint   `json:"transaction_id,omitempty"`
	SubscriptionID uint   `json:"subscription_id,omitempty"`
}

// SettlementResult is the outcome of settling a reference. AlreadyProcessed
// marks the idempotent no-op taken when the row was found already terminal.
type SettlementResult struct {
	Reference        string  `json:"reference"`
	Status           string  `json:"status"`
	AlreadyProcessed bool    `json:"already_processed"`
	Type             string  `json:"type"`
	Coins            int64   `json:"coins,omitempty"`
	FiatAmount       float64 `json:"fiat_amount,omitempty"`
	Currency         string  `json:"currency,omitempty"`
	WalletCoins      int64   `json:"wallet_coins,omitempty"`
	TransactionID    uint    `json:"transaction_id,omitempty"`
	SubscriptionID   uint    `json:"subscription_id,omitempty"`
}

// InitializePurchase creates a pending purchase transaction for a coin
// package targeted at a creator's coin and returns the hosted payment link.
func (e *SettlementEngine) InitializePurchase(userID uint, email string, packageID, creatorID uint) (*InitResult, error) {
	pkg, err := e.store.PackageByID(packageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Message: fmt.Sprintf("unknown coin package %d", packageID)}
		}
		return nil, err
	}

	session, err := e.gw.CreateSession(gateway.SessionRequest{
		Amount:        pkg.Price,
		Currency:      pkg.Currency,
		CustomerEmail: email,
		Receipt:       uuid.New().String(),
		CallbackURL:   e.callbackURL,
		Description:   fmt.Sprintf("%d coins for creator %d", pkg.Coins, creatorID),
		Notes: map[string]interface{}{
			"kind":       models.TransactionTypePurchase,
			"package_id": pkg.ID,
			"creator_id": creatorID,
		},
	})
	if err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		UserID:           userID,
		CreatorID:        &creatorID,
		Type:             models.TransactionTypePurchase,
		Coins:            pkg.Coins,
		FiatAmount:       &pkg.Price,
		Currency:         pkg.Currency,
		GatewayReference: &session.Reference,
		Status:           models.TransactionStatusPending,
		Description:      fmt.Sprintf("Purchase of %s pack (%d coins)", pkg.Name, pkg.Coins),
		Metadata:         map[string]interface{}{"package_id": pkg.ID},
	}
	if err := e.store.CreateTransaction(nil, txn); err != nil {
		return nil, err
	}

	utils.LogInfo("Initialized purchase transaction %d for user %d, reference %s", txn.ID, userID, session.Reference)
	return &InitResult{
		Reference:     session.Reference,
		PaymentLink:   session.PaymentLink,
		TransactionID: txn.ID,
	}, nil
}

// InitializeTip creates a pending tip transaction and returns the hosted
// payment link.
func (e *SettlementEngine) InitializeTip(userID uint, email string, creatorID uint, amount float64, currency string) (*InitResult, error) {
	if amount <= 0 {
		return nil, &ValidationError{Message: "tip amount must be positive"}
	}
	if currency != models.CurrencyLocal && currency != models.CurrencyUSD {
		return nil, &ValidationError{Message: fmt.Sprintf("unsupported currency %q", currency)}
	}

	session, err := e.gw.CreateSession(gateway.SessionRequest{
		Amount:        amount,
		Currency:      currency,
		CustomerEmail: email,
		Receipt:       uuid.New().String(),
		CallbackURL:   e.callbackURL,
		Description:   fmt.Sprintf("Tip for creator %d", creatorID),
		Notes: map[string]interface{}{
			"kind":       models.TransactionTypeTip,
			"creator_id": creatorID,
		},
	})
	if err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		UserID:           userID,
		CreatorID:        &creatorID,
		Type:             models.TransactionTypeTip,
		FiatAmount:       &amount,
		Currency:         currency,
		GatewayReference: &session.Reference,
		Status:           models.TransactionStatusPending,
		Description:      fmt.Sprintf("Tip of %.2f %s", amount, currency),
	}
	if err := e.store.CreateTransaction(nil, txn); err != nil {
		return nil, err
	}

	utils.LogInfo("Initialized tip transaction %d for user %d, reference %s", txn.ID, userID, session.Reference)
	return &InitResult{
		Reference:     session.Reference,
		PaymentLink:   session.PaymentLink,
		TransactionID: txn.ID,
	}, nil
}

// Verify resolves the reference against the gateway and settles it. This is
// the synchronous polling path; the webhook path funnels into the same
// settle() call, so whichever arrives second observes the terminal status and
// returns the cached outcome.
func (e *SettlementEngine) Verify(reference string) (*SettlementResult, error) {
	if _, err := e.resolveReference(reference); err != nil {
		return nil, err
	}

	res, err := e.gw.VerifyReference(reference)
	if err != nil {
		return nil, err
	}
	return e.settle(reference, res)
}

// resolveReference confirms a pending row owns the reference before any
// gateway round-trip is spent on it.
func (e *SettlementEngine) resolveReference(reference string) (string, error) {
	var txn models.Transaction
	err := e.store.db.Where("gateway_reference = ?", reference).First(&txn).Error
	if err == nil {
		return "transaction", nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var sub models.Subscription
	err = e.store.db.Where("gateway_reference = ?", reference).First(&sub).Error
	if err == nil {
		return "subscription", nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	return "", err
}

// settle is the single idempotent settlement core shared by the verify and
// webhook paths. It locks the owning row, short-circuits when the row is
// already terminal, and otherwise applies the balance mutation exactly once.
// A non-successful gateway result moves the row to failed; that terminal mark
// must commit, so it is surfaced as an error only after the atomic block.
func (e *SettlementEngine) settle(reference string, vr *gateway.VerifyResult) (*SettlementResult, error) {
	var (
		result    *SettlementResult
		settleErr error
	)
	err := e.txm.RunAtomic(func(tx *gorm.DB) error {
		txn, err := e.store.LockTransactionByReference(tx, reference)
		if err == nil {
			result, settleErr = e.settleTransaction(tx, txn, vr)
			return txErrOnly(settleErr)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		sub, err := e.store.LockSubscriptionByReference(tx, reference)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		result, settleErr = e.settleSubscription(tx, sub, vr)
		return txErrOnly(settleErr)
	})
	if err != nil {
		return nil, err
	}
	return result, settleErr
}

// txErrOnly keeps settlement outcomes that must still commit (the failed
// terminal mark) out of the transaction error path; infrastructure errors
// roll back as usual.
func txErrOnly(err error) error {
	var gwErr *GatewayVerificationError
	if err == nil || errors.As(err, &gwErr) {
		return nil
	}
	return err
}

func (e *SettlementEngine) settleTransaction(tx *gorm.DB, txn *models.Transaction, vr *gateway.VerifyResult) (*SettlementResult, error) {
	reference := ""
	if txn.GatewayReference != nil {
		reference = *txn.GatewayReference
	}

	// Idempotency guard: a terminal row is never reprocessed.
	if txn.IsTerminal() {
		utils.LogInfo("Transaction %d already %s, returning cached result", txn.ID, txn.Status)
		return e.cachedTransactionResult(txn), nil
	}

	if vr.Status != gateway.StatusSuccessful {
		txn.Status = models.TransactionStatusFailed
		if err := e.store.SaveTransaction(tx, txn); err != nil {
			return nil, err
		}
		utils.LogError("Transaction %d failed gateway verification: %s", txn.ID, vr.Status)
		return &SettlementResult{
			Reference:     reference,
			Status:        models.TransactionStatusFailed,
			Type:          txn.Type,
			TransactionID: txn.ID,
		}, &GatewayVerificationError{Reference: reference, Status: vr.Status}
	}

	switch txn.Type {
	case models.TransactionTypePurchase:
		return e.creditPurchase(tx, txn, reference)
	case models.TransactionTypeTip:
		return e.creditTip(tx, txn, reference)
	default:
		return nil, fmt.Errorf("unexpected settlement for %s transaction %d", txn.Type, txn.ID)
	}
}

// creditPurchase credits the purchased coins to the buyer's creator-scoped
// wallet and grows the coin's circulating supply.
func (e *SettlementEngine) creditPurchase(tx *gorm.DB, txn *models.Transaction, reference string) (*SettlementResult, error) {
	wallet, err := e.store.LockWallet(tx, txn.UserID, txn.CreatorID)
	if err != nil {
		return nil, err
	}

	wallet.Coins += txn.Coins
	wallet.LifetimeEarned += txn.Coins
	if err := e.store.SaveWallet(tx, wallet); err != nil {
		return nil, err
	}

	if txn.CreatorID != nil {
		coin, err := e.store.LockCreatorCoin(tx, *txn.CreatorID)
		if err != nil {
			return nil, err
		}
		coin.CirculatingSupply += txn.Coins
		if err := e.store.SaveCreatorCoin(tx, coin); err != nil {
			return nil, err
		}
	}

	txn.Status = models.TransactionStatusCompleted
	if err := e.store.SaveTransaction(tx, txn); err != nil {
		return nil, err
	}

	utils.LogInfo("Settled purchase %d: +%d coins for user %d", txn.ID, txn.Coins, txn.UserID)
	return &SettlementResult{
		Reference:     reference,
		Status:        models.TransactionStatusCompleted,
		Type:          txn.Type,
		Coins:         txn.Coins,
		Currency:      txn.Currency,
		WalletCoins:   wallet.Coins,
		TransactionID: txn.ID,
	}, nil
}

// creditTip credits the creator's share of the tip to their pending earnings
// balance. Tips sit under the hold period before becoming withdrawable.
func (e *SettlementEngine) creditTip(tx *gorm.DB, txn *models.Transaction, reference string) (*SettlementResult, error) {
	if txn.CreatorID == nil || txn.FiatAmount == nil {
		return nil, fmt.Errorf("tip transaction %d is missing creator or amount", txn.ID)
	}

	share := roundMoney(*txn.FiatAmount * creatorShareRate)

	earnings, err := e.store.LockEarnings(tx, *txn.CreatorID)
	if err != nil {
		return nil, err
	}
	earnings.PendingBalance += share
	earnings.LifetimeEarnings += share
	if err := e.store.SaveEarnings(tx, earnings); err != nil {
		return nil, err
	}

	txn.Status = models.TransactionStatusCompleted
	if err := e.store.SaveTransaction(tx, txn); err != nil {
		return nil, err
	}

	utils.LogInfo("Settled tip %d: +%.2f %s pending for creator %d", txn.ID, share, txn.Currency, *txn.CreatorID)
	return &SettlementResult{
		Reference:     reference,
		Status:        models.TransactionStatusCompleted,
		Type:          txn.Type,
		FiatAmount:    share,
		Currency:      txn.Currency,
		TransactionID: txn.ID,
	}, nil
}

func (e *SettlementEngine) cachedTransactionResult(txn *models.Transaction) *SettlementResult {
	reference := ""
	if txn.GatewayReference != nil {
		reference = *txn.GatewayReference
	}
	result := &SettlementResult{
		Reference:        reference,
		Status:           txn.Status,
		AlreadyProcessed: true,
		Type:             txn.Type,
		Coins:            txn.Coins,
		Currency:         txn.Currency,
		TransactionID:    txn.ID,
	}
	if txn.FiatAmount != nil {
		result.FiatAmount = *txn.FiatAmount
	}
	return result
}

// Spend debits coins from the spender's creator-scoped wallet to unlock paid
// content and credits the creator's available earnings immediately. The
// balance check happens under the wallet lock, so two concurrent spends can
// never both pass against the same balance.
func (e *SettlementEngine) Spend(userID, creatorID uint, coins int64, contentRef string) (*SettlementResult, error) {
	if coins <= 0 {
		return nil, &ValidationError{Message: "spend amount must be positive"}
	}

	var result *SettlementResult
	err := e.txm.RunAtomic(func(tx *gorm.DB) error {
		wallet, err := e.store.LockWallet(tx, userID, &creatorID)
		if err != nil {
			return err
		}
		if wallet.Coins < coins {
			return &InsufficientFundsError{
				Required:  float64(coins),
				Available: float64(wallet.Coins),
				Currency:  "coins",
			}
		}

		wallet.Coins -= coins
		wallet.LifetimeSpent += coins
		if err := e.store.SaveWallet(tx, wallet); err != nil {
			return err
		}

		coin, err := e.store.LockCreatorCoin(tx, creatorID)
		if err != nil {
			return err
		}
		fiatValue := roundMoney(float64(coins) * coin.CoinPrice)
		share := roundMoney(fiatValue * creatorShareRate)

		// Unlock revenue is available immediately, unlike tips.
		earnings, err := e.store.LockEarnings(tx, creatorID)
		if err != nil {
			return err
		}
		earnings.AvailableBalance += share
		earnings.LifetimeEarnings += share
		if err := e.store.SaveEarnings(tx, earnings); err != nil {
			return err
		}

		spendTxn := &models.Transaction{
			UserID:      userID,
			CreatorID:   &creatorID,
			Type:        models.TransactionTypeSpend,
			Coins:       coins,
			Currency:    coin.Currency,
			Status:      models.TransactionStatusCompleted,
			Description: fmt.Sprintf("Unlocked content %s", contentRef),
			Metadata:    map[string]interface{}{"content_ref": contentRef},
		}
		if err := e.store.CreateTransaction(tx, spendTxn); err != nil {
			return err
		}

		earnTxn := &models.Transaction{
			UserID:      creatorID,
			CreatorID:   &creatorID,
			Type:        models.TransactionTypeEarn,
			FiatAmount:  &share,
			Currency:    earnings.Currency,
			Status:      models.TransactionStatusCompleted,
			Description: fmt.Sprintf("Earnings from content %s", contentRef),
			Metadata:    map[string]interface{}{"content_ref": contentRef, "spender_id": userID},
		}
		if err := e.store.CreateTransaction(tx, earnTxn); err != nil {
			return err
		}

		result = &SettlementResult{
			Status:        models.TransactionStatusCompleted,
			Type:          models.TransactionTypeSpend,
			Coins:         coins,
			FiatAmount:    share,
			Currency:      earnings.Currency,
			WalletCoins:   wallet.Coins,
			TransactionID: spendTxn.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.LogInfo("User %d spent %d coins on creator %d content %s", userID, coins, creatorID, contentRef)
	return result, nil
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
