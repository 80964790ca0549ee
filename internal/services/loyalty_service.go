package services

import (
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"account-market/internal/models"
)

// Tier thresholds and earn rates.
var (
	goldThreshold   = 5000
	silverThreshold = 1000

	multiplierGold   = decimal.NewFromFloat(1.25)
	multiplierSilver = decimal.NewFromFloat(1.10)
	multiplierBronze = decimal.NewFromInt(1)

	pointsPerDollar = decimal.NewFromInt(10)
	// redeemRate converts points to store credit: 100 points = $1.
	redeemRate = decimal.NewFromInt(100)
)

// MinRedeemPoints is the smallest allowed point redemption.
const MinRedeemPoints = 500

// TierFor maps an accumulated point total to a tier.
func TierFor(points int) models.Tier {
	switch {
	case points >= goldThreshold:
		return models.TierGold
	case points >= silverThreshold:
		return models.TierSilver
	default:
		return models.TierBronze
	}
}

// PointMultiplier returns the per-order earn multiplier for a tier.
func PointMultiplier(tier models.Tier) decimal.Decimal {
	switch tier {
	case models.TierGold:
		return multiplierGold
	case models.TierSilver:
		return multiplierSilver
	default:
		return multiplierBronze
	}
}

// OrderPoints computes points earned on an order: floor(net × 10 × multiplier).
// The tier passed in is the buyer's tier at order time, before this order's
// points land, so the multiplier never references its own result.
func OrderPoints(netAmount decimal.Decimal, tier models.Tier) int {
	return int(netAmount.Mul(pointsPerDollar).Mul(PointMultiplier(tier)).Floor().IntPart())
}

// LoyaltyService handles loyalty overview and point redemption.
type LoyaltyService struct {
	db     *gorm.DB
	ledger *LedgerService
}

// NewLoyaltyService creates a new LoyaltyService
func NewLoyaltyService(db *gorm.DB, ledger *LedgerService) *LoyaltyService {
	return &LoyaltyService{db: db, ledger: ledger}
}

// LoyaltyOverview is the customer-facing loyalty summary.
type LoyaltyOverview struct {
	Points           int             `json:"points"`
	Tier             models.Tier     `json:"tier"`
	Level            int             `json:"level"`
	NextTier         models.Tier     `json:"next_tier"`
	PointsToNextTier int             `json:"points_to_next_tier"`
	TotalSpent       decimal.Decimal `json:"total_spent"`
	Orders           int             `json:"orders"`
}

// Overview returns the user's points, tier progress and spend history.
func (s *LoyaltyService) Overview(userID uint) (*LoyaltyOverview, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	next := models.TierSilver
	toNext := silverThreshold - user.Points
	switch user.Tier {
	case models.TierSilver:
		next = models.TierGold
		toNext = goldThreshold - user.Points
	case models.TierGold:
		next = models.TierGold
		toNext = 0
	}
	if toNext < 0 {
		toNext = 0
	}

	var orders []models.Order
	if err := s.db.Where("user_id = ?", userID).Find(&orders).Error; err != nil {
		return nil, err
	}
	totalSpent := decimal.Zero
	for _, o := range orders {
		totalSpent = totalSpent.Add(o.Amount)
	}

	return &LoyaltyOverview{
		Points:           user.Points,
		Tier:             user.Tier,
		Level:            user.Level,
		NextTier:         next,
		PointsToNextTier: toNext,
		TotalSpent:       totalSpent,
		Orders:           len(orders),
	}, nil
}

// Redeem converts points into store credit at 100 points per dollar. The
// point deduction and the store_credit_add sub-entry commit together.
func (s *LoyaltyService) Redeem(userID uint, points int) (decimal.Decimal, int, error) {
	var discount decimal.Decimal
	var remaining int

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrUserNotFound
			}
			return err
		}

		if points < MinRedeemPoints {
			return ErrMinRedemption
		}
		if user.Points < points {
			return ErrInsufficientPoints
		}

		discount = decimal.NewFromInt(int64(points)).Div(redeemRate)

		if _, err := s.ledger.Record(tx, userID, -points, models.ReasonRedeem,
			models.JSONMap{"discount": discount.InexactFloat64()}); err != nil {
			return err
		}
		if err := s.ledger.AddStoreCredit(tx, userID, discount, models.JSONMap{}); err != nil {
			return err
		}

		remaining = user.Points - points
		return nil
	})
	if err != nil {
		return decimal.Zero, 0, err
	}

	log.Printf("User %d redeemed %d points for $%s store credit", userID, points, discount)
	return discount, remaining, nil
}

// StoreCredit returns the user's available store credit.
func (s *LoyaltyService) StoreCredit(userID uint) (decimal.Decimal, error) {
	return s.ledger.AvailableStoreCredit(userID)
}
