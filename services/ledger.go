package services

import (
	"errors"
	"time"

	"github.com/olamide-dev/tunepurse/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerStore is the persistence layer for wallets, transactions,
// subscriptions and creator earnings. It has no business rules of its own;
// balance decisions belong to the settlement engine. Methods take an optional
// transaction handle so they can participate in an enclosing critical
// section; a nil handle falls back to the root connection.
type LedgerStore struct {
	db *gorm.DB
}

func NewLedgerStore(db *gorm.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func walletScope(q *gorm.DB, userID uint, creatorID *uint) *gorm.DB {
	q = q.Where("user_id = ?", userID)
	if creatorID == nil {
		return q.Where("creator_id IS NULL")
	}
	return q.Where("creator_id = ?", *creatorID)
}

// GetWallet fetches the wallet for (user, creator) without creating it.
func (s *LedgerStore) GetWallet(tx *gorm.DB, userID uint, creatorID *uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := walletScope(s.handle(tx), userID, creatorID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// LockWallet returns the (user, creator) wallet with an exclusive row lock
// held until the enclosing transaction ends, creating the row lazily on first
// use. Must be called inside RunAtomic.
func (s *LedgerStore) LockWallet(tx *gorm.DB, userID uint, creatorID *uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := walletScope(LockForUpdate(s.handle(tx)), userID, creatorID).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// A concurrent first touch can win the insert; when it does, lock the
	// winner's row instead.
	wallet = models.Wallet{
		UserID:         userID,
		CreatorID:      creatorID,
		LastActivityAt: time.Now(),
	}
	res := s.handle(tx).Clauses(clause.OnConflict{DoNothing: true}).Create(&wallet)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		wallet = models.Wallet{}
		if err := walletScope(LockForUpdate(s.handle(tx)), userID, creatorID).First(&wallet).Error; err != nil {
			return nil, err
		}
	}
	return &wallet, nil
}

// SaveWallet persists balance changes and bumps the activity timestamp.
func (s *LedgerStore) SaveWallet(tx *gorm.DB, wallet *models.Wallet) error {
	wallet.LastActivityAt = time.Now()
	return s.handle(tx).Save(wallet).Error
}

// WalletsByUser lists every wallet a user holds, general wallet first.
func (s *LedgerStore) WalletsByUser(userID uint) ([]models.Wallet, error) {
	var wallets []models.Wallet
	err := s.db.Where("user_id = ?", userID).
		Order("creator_id ASC NULLS FIRST").
		Find(&wallets).Error
	return wallets, err
}

// LockEarnings returns the creator's earnings row under exclusive lock,
// creating it lazily on the first earning event.
func (s *LedgerStore) LockEarnings(tx *gorm.DB, creatorID uint) (*models.CreatorEarnings, error) {
	var earnings models.CreatorEarnings
	err := LockForUpdate(s.handle(tx)).Where("creator_id = ?", creatorID).First(&earnings).Error
	if err == nil {
		return &earnings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	earnings = models.CreatorEarnings{CreatorID: creatorID, Currency: models.CurrencyLocal}
	res := s.handle(tx).Clauses(clause.OnConflict{DoNothing: true}).Create(&earnings)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		earnings = models.CreatorEarnings{}
		if err := LockForUpdate(s.handle(tx)).Where("creator_id = ?", creatorID).First(&earnings).Error; err != nil {
			return nil, err
		}
	}
	return &earnings, nil
}

func (s *LedgerStore) SaveEarnings(tx *gorm.DB, earnings *models.CreatorEarnings) error {
	return s.handle(tx).Save(earnings).Error
}

// GetEarnings fetches a creator's earnings without creating the row.
func (s *LedgerStore) GetEarnings(creatorID uint) (*models.CreatorEarnings, error) {
	var earnings models.CreatorEarnings
	if err := s.db.Where("creator_id = ?", creatorID).First(&earnings).Error; err != nil {
		return nil, err
	}
	return &earnings, nil
}

// LockCreatorCoin returns the creator's coin record under exclusive lock,
// creating it with the default price when the creator has not configured one.
func (s *LedgerStore) LockCreatorCoin(tx *gorm.DB, creatorID uint) (*models.CreatorCoin, error) {
	var coin models.CreatorCoin
	err := LockForUpdate(s.handle(tx)).Where("creator_id = ?", creatorID).First(&coin).Error
	if err == nil {
		return &coin, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	coin = models.CreatorCoin{CreatorID: creatorID, CoinPrice: 10, Currency: models.CurrencyLocal}
	res := s.handle(tx).Clauses(clause.OnConflict{DoNothing: true}).Create(&coin)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		coin = models.CreatorCoin{}
		if err := LockForUpdate(s.handle(tx)).Where("creator_id = ?", creatorID).First(&coin).Error; err != nil {
			return nil, err
		}
	}
	return &coin, nil
}

func (s *LedgerStore) SaveCreatorCoin(tx *gorm.DB, coin *models.CreatorCoin) error {
	return s.handle(tx).Save(coin).Error
}

// CreateTransaction inserts a new ledger transaction row.
func (s *LedgerStore) CreateTransaction(tx *gorm.DB, txn *models.Transaction) error {
	return s.handle(tx).Create(txn).Error
}

func (s *LedgerStore) SaveTransaction(tx *gorm.DB, txn *models.Transaction) error {
	return s.handle(tx).Save(txn).Error
}

// LockTransactionByReference returns the transaction owning the external
// reference under exclusive lock. The lock is what serializes the racing
// verify and webhook paths for the same reference.
func (s *LedgerStore) LockTransactionByReference(tx *gorm.DB, reference string) (*models.Transaction, error) {
	var txn models.Transaction
	err := LockForUpdate(s.handle(tx)).Where("gateway_reference = ?", reference).First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// CreateSubscription inserts a new subscription row.
func (s *LedgerStore) CreateSubscription(tx *gorm.DB, sub *models.Subscription) error {
	return s.handle(tx).Create(sub).Error
}

func (s *LedgerStore) SaveSubscription(tx *gorm.DB, sub *models.Subscription) error {
	return s.handle(tx).Save(sub).Error
}

// LockSubscriptionByReference returns the subscription owning the external
// reference under exclusive lock.
func (s *LedgerStore) LockSubscriptionByReference(tx *gorm.DB, reference string) (*models.Subscription, error) {
	var sub models.Subscription
	err := LockForUpdate(s.handle(tx)).Where("gateway_reference = ?", reference).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// RecentTransactions lists a user's transactions newest first with the
// standard page/limit pagination.
func (s *LedgerStore) RecentTransactions(userID uint, page, limit int) ([]models.Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}
	offset := (page - 1) * limit

	var total int64
	if err := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var transactions []models.Transaction
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&transactions).Error
	return transactions, total, err
}

// TierBySlug resolves an active subscription tier.
func (s *LedgerStore) TierBySlug(slug string) (*models.SubscriptionTier, error) {
	var tier models.SubscriptionTier
	err := s.db.Where("slug = ? AND active = ?", slug, true).First(&tier).Error
	if err != nil {
		return nil, err
	}
	return &tier, nil
}

// PackageByID resolves an active coin package.
func (s *LedgerStore) PackageByID(id uint) (*models.CoinPackage, error) {
	var pkg models.CoinPackage
	err := s.db.Where("id = ? AND active = ?", id, true).First(&pkg).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}
