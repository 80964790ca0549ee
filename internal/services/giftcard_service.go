package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"account-market/internal/models"
)

// giftCardCodeAttempts bounds the collision retry loop during generation.
const giftCardCodeAttempts = 5

// GiftCardService handles gift card generation and single-use redemption.
type GiftCardService struct {
	db     *gorm.DB
	ledger *LedgerService
}

// NewGiftCardService creates a new GiftCardService
func NewGiftCardService(db *gorm.DB, ledger *LedgerService) *GiftCardService {
	return &GiftCardService{db: db, ledger: ledger}
}

// Generate creates a gift card with a code unique among all existing codes.
// On a collision it retries with a fresh random code and fails loudly once
// the attempt budget is exhausted.
func (s *GiftCardService) Generate(amount decimal.Decimal, createdBy uint) (*models.GiftCard, error) {
	for attempt := 0; attempt < giftCardCodeAttempts; attempt++ {
		code, err := generateGiftCardCode()
		if err != nil {
			return nil, err
		}

		var count int64
		if err := s.db.Model(&models.GiftCard{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			continue
		}

		card := models.GiftCard{
			Code:        code,
			Balance:     amount,
			IsActive:    true,
			CreatedByID: createdBy,
		}
		err = s.db.Create(&card).Error
		if err == nil {
			log.Printf("Gift card %s generated for $%s by user %d", card.Code, amount, createdBy)
			return &card, nil
		}
		// A concurrent insert can still race the existence check; treat a
		// duplicate as one more collision.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("could not generate a unique gift card code after %d attempts", giftCardCodeAttempts)
}

// Redeem flips the card inactive, records the redeemer and credits
// floor(balance × 10) points, all in one transaction. The guarded update is
// a compare-and-set: of any number of concurrent attempts on the same code,
// exactly one flips the row and every loser sees ErrInvalidOrAlreadyRedeemed.
func (s *GiftCardService) Redeem(code string, redeemerID uint) (decimal.Decimal, int, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	var amount decimal.Decimal
	var points int

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var card models.GiftCard
		if err := tx.Where("code = ?", code).First(&card).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidOrAlreadyRedeemed
			}
			return err
		}

		now := time.Now()
		res := tx.Model(&models.GiftCard{}).
			Where("code = ? AND is_active = ? AND redeemed_by_id IS NULL", code, true).
			Updates(map[string]interface{}{
				"is_active":      false,
				"redeemed_by_id": redeemerID,
				"redeemed_at":    now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidOrAlreadyRedeemed
		}

		amount = card.Balance
		points = int(card.Balance.Mul(decimal.NewFromInt(10)).Floor().IntPart())

		_, err := s.ledger.Record(tx, redeemerID, points, models.ReasonGiftCardRedeem,
			models.JSONMap{"code": code, "amount": card.Balance.InexactFloat64()})
		return err
	})
	if err != nil {
		return decimal.Zero, 0, err
	}

	log.Printf("Gift card %s redeemed by user %d for %d points", code, redeemerID, points)
	return amount, points, nil
}

// List returns recent gift cards with creator and redeemer preloaded.
func (s *GiftCardService) List(limit int) ([]models.GiftCard, error) {
	var cards []models.GiftCard
	err := s.db.Preload("Creator").Preload("Redeemer").
		Order("created_at DESC").Limit(limit).Find(&cards).Error
	if err != nil {
		return nil, err
	}
	return cards, nil
}
