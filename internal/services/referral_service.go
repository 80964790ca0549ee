package services

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"account-market/internal/models"
)

// ReferralBonusPoints is the flat point bonus a referrer earns per credited
// referral, on top of the dollar commission.
const ReferralBonusPoints = 500

// Commission rate tiers keyed on the referrer's historical referral count.
var (
	rateBase = decimal.NewFromFloat(0.25)
	rateFive = decimal.NewFromFloat(0.30)
	rateTen  = decimal.NewFromFloat(0.35)
)

// CommissionRate maps a referrer's historical successful-referral count to a
// commission rate.
func CommissionRate(priorReferrals int64) decimal.Decimal {
	switch {
	case priorReferrals >= 10:
		return rateTen
	case priorReferrals >= 5:
		return rateFive
	default:
		return rateBase
	}
}

// ReferralService handles referral relationships and commission settlement.
type ReferralService struct {
	db     *gorm.DB
	ledger *LedgerService
}

// NewReferralService creates a new ReferralService
func NewReferralService(db *gorm.DB, ledger *LedgerService) *ReferralService {
	return &ReferralService{db: db, ledger: ledger}
}

// CreditFirstOrder credits the user's referrer for the user's first completed
// order, inside the caller's transaction. The existence check on ReferredID
// is the idempotency guard: a second call for the same user is a no-op.
// Commission is computed on the gross requested amount, deliberately not the
// credit-adjusted net, so the referrer is not penalized by the buyer's store
// credit balance.
func (s *ReferralService) CreditFirstOrder(tx *gorm.DB, user *models.User, orderCode string, grossAmount decimal.Decimal) (bool, decimal.Decimal, error) {
	if user.ReferredByID == nil {
		return false, decimal.Zero, nil
	}

	var existing models.Referral
	err := tx.Where("referred_id = ?", user.ID).First(&existing).Error
	if err == nil {
		return false, decimal.Zero, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, decimal.Zero, err
	}

	var priorReferrals int64
	if err := tx.Model(&models.Referral{}).Where("referrer_id = ?", *user.ReferredByID).
		Count(&priorReferrals).Error; err != nil {
		return false, decimal.Zero, err
	}

	commission := grossAmount.Mul(CommissionRate(priorReferrals)).Round(2)

	referral := models.Referral{
		ReferrerID: *user.ReferredByID,
		ReferredID: user.ID,
		Commission: commission,
		Status:     "completed",
	}
	if err := tx.Create(&referral).Error; err != nil {
		return false, decimal.Zero, err
	}

	_, err = s.ledger.Record(tx, *user.ReferredByID, ReferralBonusPoints, models.ReasonReferralBonus,
		models.JSONMap{
			"referred_user_id": user.ID,
			"orderId":          orderCode,
			"commission":       commission.InexactFloat64(),
		})
	if err != nil {
		return false, decimal.Zero, err
	}

	log.Printf("Referral credited: referrer %d earned $%s from user %d (order %s)",
		*user.ReferredByID, commission, user.ID, orderCode)
	return true, commission, nil
}

// Manual credit statuses returned by CreditByOrder.
const (
	CreditStatusCredited        = "credited"
	CreditStatusNoReferrer      = "no_referrer"
	CreditStatusAlreadyCredited = "already_credited"
)

// CreditByOrder is the manually-triggered referral credit path. It resolves
// the order by human-readable code, falling back to numeric ID, then runs the
// same idempotent settlement as the automatic path. Both paths racing still
// pay at most once: the ReferredID unique index backs the existence check.
// The ID fallback only fires for numeric input; binding a code like ORD-…
// against the integer id column would fail typing on Postgres.
func (s *ReferralService) CreditByOrder(orderRef string) (string, decimal.Decimal, error) {
	var order models.Order
	err := s.db.Where("code = ?", orderRef).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if id, perr := strconv.ParseUint(orderRef, 10, 64); perr == nil {
			err = s.db.First(&order, uint(id)).Error
		}
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", decimal.Zero, ErrOrderNotFound
		}
		return "", decimal.Zero, err
	}

	var user models.User
	if err := s.db.First(&user, order.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", decimal.Zero, ErrUserNotFound
		}
		return "", decimal.Zero, err
	}

	if user.ReferredByID == nil {
		return CreditStatusNoReferrer, decimal.Zero, nil
	}

	status := CreditStatusAlreadyCredited
	var commission decimal.Decimal
	err = s.db.Transaction(func(tx *gorm.DB) error {
		credited, c, err := s.CreditFirstOrder(tx, &user, order.Code, order.Amount)
		if err != nil {
			return err
		}
		if credited {
			status = CreditStatusCredited
			commission = c
		}
		return nil
	})
	if err != nil {
		return "", decimal.Zero, err
	}
	return status, commission, nil
}

// ReferralRow is one referred user in the overview listing.
type ReferralRow struct {
	Username   string          `json:"username"`
	Email      string          `json:"email"`
	Commission decimal.Decimal `json:"commission"`
	Status     string          `json:"status"`
	Date       string          `json:"date"`
}

// ReferralOverview summarizes a referrer's program standing.
type ReferralOverview struct {
	ReferralCode   string          `json:"referral_code"`
	ReferralLink   string          `json:"referral_link"`
	TotalReferrals int             `json:"total_referrals"`
	TotalEarnings  decimal.Decimal `json:"total_earnings"`
	TotalPoints    int             `json:"total_points"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Referrals      []ReferralRow   `json:"referrals"`
}

// Overview returns the user's referral code, earnings and referred users.
func (s *ReferralService) Overview(userID uint, linkBase string) (*ReferralOverview, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var referrals []models.Referral
	if err := s.db.Where("referrer_id = ?", userID).Preload("Referred").
		Order("created_at DESC").Find(&referrals).Error; err != nil {
		return nil, err
	}

	totalEarnings := decimal.Zero
	rows := make([]ReferralRow, 0, len(referrals))
	for _, r := range referrals {
		totalEarnings = totalEarnings.Add(r.Commission)
		row := ReferralRow{
			Commission: r.Commission,
			Status:     r.Status,
			Date:       r.CreatedAt.Format("2006-01-02"),
		}
		if r.Referred != nil {
			row.Username = r.Referred.Username
			row.Email = r.Referred.Email
		}
		rows = append(rows, row)
	}

	return &ReferralOverview{
		ReferralCode:   user.ReferralCode,
		ReferralLink:   fmt.Sprintf("%s/?ref=%s", linkBase, user.ReferralCode),
		TotalReferrals: len(referrals),
		TotalEarnings:  totalEarnings,
		TotalPoints:    len(referrals) * ReferralBonusPoints,
		CommissionRate: CommissionRate(int64(len(referrals))),
		Referrals:      rows,
	}, nil
}

// ValidateCode reports whether a referral code belongs to an existing user.
func (s *ReferralService) ValidateCode(code string) (bool, error) {
	var count int64
	err := s.db.Model(&models.User{}).Where("referral_code = ?", code).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
