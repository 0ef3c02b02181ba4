package service

import (
	"context"
	"fmt"
	"storefront-fulfillment/internal/config"
	"storefront-fulfillment/internal/model"
	"storefront-fulfillment/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LoyaltySettingsProvider supplies the admin-owned earn and redeem rates.
type LoyaltySettingsProvider interface {
	Settings(ctx context.Context) (model.LoyaltySettings, error)
}

type staticLoyaltySettings struct {
	settings model.LoyaltySettings
}

func NewStaticLoyaltySettings(cfg config.Loyalty) LoyaltySettingsProvider {
	return &staticLoyaltySettings{
		settings: model.LoyaltySettings{
			PointsPerAmount:  cfg.PointsPerAmount,
			RedeemRate:       cfg.RedeemRate,
			MinRedeemPoints:  cfg.MinRedeemPoints,
			MaxRedeemPercent: cfg.MaxRedeemPercent,
		},
	}
}

func (p *staticLoyaltySettings) Settings(context.Context) (model.LoyaltySettings, error) {
	return p.settings, nil
}

type LoyaltyLedger interface {
	// Accrue returns a nil transaction when points is zero.
	Accrue(ctx context.Context, userID string, points int64, orderID, reason string) (*model.LoyaltyTransaction, error)
	Redeem(ctx context.Context, userID string, points int64, orderID string) (*model.LoyaltyTransaction, error)
	PointsForAmount(ctx context.Context, amount decimal.Decimal) (int64, error)
	Account(ctx context.Context, userID string, limit int) (*model.LoyaltyAccount, []*model.LoyaltyTransaction, error)
	Preview(ctx context.Context, userID string, points int64, orderTotal decimal.Decimal) (*model.LoyaltyPreview, error)
}

type loyaltyLedgerImpl struct {
	db          *gorm.DB
	loyaltyRepo repository.LoyaltyRepository
	settings    LoyaltySettingsProvider
}

func NewLoyaltyLedger(
	db *gorm.DB,
	loyaltyRepo repository.LoyaltyRepository,
	settings LoyaltySettingsProvider,
) LoyaltyLedger {
	return &loyaltyLedgerImpl{
		db:          db,
		loyaltyRepo: loyaltyRepo,
		settings:    settings,
	}
}

func (s *loyaltyLedgerImpl) Accrue(ctx context.Context, userID string, points int64, orderID, reason string) (*model.LoyaltyTransaction, error) {
	if points < 0 {
		return nil, model.ErrInvalidPoints
	}
	if points == 0 {
		return nil, nil
	}

	var txn *model.LoyaltyTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.loyaltyRepo.Accrue(ctx, tx, userID, points); err != nil {
			return fmt.Errorf("accrue points: %w", err)
		}

		account, err := s.loyaltyRepo.FindAccount(ctx, tx, userID)
		if err != nil {
			return err
		}
		if account == nil {
			return fmt.Errorf("loyalty account for %s missing after accrual", userID)
		}

		txn = &model.LoyaltyTransaction{
			UserID:       userID,
			Type:         model.LoyaltyEarn,
			Points:       points,
			BalanceAfter: account.Balance,
			OrderID:      orderID,
			Reason:       reason,
		}
		return s.loyaltyRepo.AppendTransaction(ctx, tx, txn)
	})
	if err != nil {
		return nil, err
	}

	return txn, nil
}

func (s *loyaltyLedgerImpl) Redeem(ctx context.Context, userID string, points int64, orderID string) (*model.LoyaltyTransaction, error) {
	if points <= 0 {
		return nil, model.ErrInvalidPoints
	}

	var txn *model.LoyaltyTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.loyaltyRepo.Redeem(ctx, tx, userID, points)
		if err != nil {
			return fmt.Errorf("redeem points: %w", err)
		}

		account, err := s.loyaltyRepo.FindAccount(ctx, tx, userID)
		if err != nil {
			return err
		}

		if !ok {
			var balance int64
			if account != nil {
				balance = account.Balance
			}
			return &model.InsufficientPointsError{UserID: userID, Requested: points, Balance: balance}
		}

		txn = &model.LoyaltyTransaction{
			UserID:       userID,
			Type:         model.LoyaltyRedeem,
			Points:       points,
			BalanceAfter: account.Balance,
			OrderID:      orderID,
			Reason:       "redeemed on order " + orderID,
		}
		return s.loyaltyRepo.AppendTransaction(ctx, tx, txn)
	})
	if err != nil {
		return nil, err
	}

	return txn, nil
}

func (s *loyaltyLedgerImpl) PointsForAmount(ctx context.Context, amount decimal.Decimal) (int64, error) {
	settings, err := s.settings.Settings(ctx)
	if err != nil {
		return 0, fmt.Errorf("load loyalty settings: %w", err)
	}
	return settings.PointsForAmount(amount), nil
}

// Account returns an empty account for users who never earned points.
func (s *loyaltyLedgerImpl) Account(ctx context.Context, userID string, limit int) (*model.LoyaltyAccount, []*model.LoyaltyTransaction, error) {
	account, err := s.loyaltyRepo.FindAccount(ctx, nil, userID)
	if err != nil {
		return nil, nil, err
	}
	if account == nil {
		account = &model.LoyaltyAccount{UserID: userID}
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	txns, err := s.loyaltyRepo.ListTransactions(ctx, userID, limit)
	if err != nil {
		return nil, nil, err
	}

	return account, txns, nil
}

// Preview prices a redemption without touching the ledger. The discount is capped at
// MaxRedeemPercent of the order total and the point count is reduced to match.
func (s *loyaltyLedgerImpl) Preview(ctx context.Context, userID string, points int64, orderTotal decimal.Decimal) (*model.LoyaltyPreview, error) {
	if points <= 0 {
		return nil, model.ErrInvalidPoints
	}

	settings, err := s.settings.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load loyalty settings: %w", err)
	}
	if points < settings.MinRedeemPoints {
		return nil, model.ErrBelowMinRedeemPoints
	}

	account, err := s.loyaltyRepo.FindAccount(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	var balance int64
	if account != nil {
		balance = account.Balance
	}
	if points > balance {
		return nil, &model.InsufficientPointsError{UserID: userID, Requested: points, Balance: balance}
	}

	preview := &model.LoyaltyPreview{
		RequestedPoints: points,
		Points:          points,
		Discount:        settings.DiscountForPoints(points),
		Balance:         balance,
	}

	if settings.MaxRedeemPercent.IsPositive() {
		maxDiscount := orderTotal.Mul(settings.MaxRedeemPercent).Div(decimal.NewFromInt(100)).RoundFloor(2)
		if preview.Discount.GreaterThan(maxDiscount) {
			preview.Points = maxDiscount.Mul(settings.RedeemRate).Floor().IntPart()
			preview.Discount = settings.DiscountForPoints(preview.Points)
			preview.Capped = true
		}
	}

	return preview, nil
}
