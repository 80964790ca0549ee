package services

import (
	"errors"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"account-market/internal/models"
)

// referralCodeAttempts bounds the retry loop for generating a unique code.
const referralCodeAttempts = 5

// AuthService handles registration and login.
type AuthService struct {
	db     *gorm.DB
	ledger *LedgerService
	// welcomePoints is the registration bonus, bumped during the reopening promo.
	welcomePoints int
}

// NewAuthService creates a new AuthService
func NewAuthService(db *gorm.DB, ledger *LedgerService, welcomePoints int) *AuthService {
	return &AuthService{db: db, ledger: ledger, welcomePoints: welcomePoints}
}

// Register creates a customer account. The welcome bonus is written through
// the ledger path so users.points matches the ledger sum from the first row.
// A provided referral code that resolves to a user sets referred_by; an
// unknown code is ignored rather than rejected.
func (s *AuthService) Register(username, email, password, referralCode string) (*models.User, error) {
	var existing int64
	if err := s.db.Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrUserExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var referredBy *uint
	if referralCode != "" {
		var referrer models.User
		if err := s.db.Where("referral_code = ?", referralCode).First(&referrer).Error; err == nil {
			referredBy = &referrer.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	code, err := s.uniqueReferralCode(username)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:     username,
		Email:        email,
		Password:     string(hashed),
		Role:         models.RoleCustomer,
		Tier:         models.TierBronze,
		Level:        1,
		ReferralCode: code,
		ReferredByID: referredBy,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		_, err := s.ledger.Record(tx, user.ID, s.welcomePoints, models.ReasonWelcomeBonus, models.JSONMap{})
		return err
	})
	if err != nil {
		return nil, err
	}
	user.Points = s.welcomePoints

	log.Printf("New user registered: %s (ID: %d)", username, user.ID)
	return &user, nil
}

// Login verifies credentials and returns the user.
func (s *AuthService) Login(username, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// GetUserByID retrieves a user with their tickets and orders.
func (s *AuthService) GetUserByID(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) uniqueReferralCode(username string) (string, error) {
	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		code, err := generateReferralCode(username)
		if err != nil {
			return "", err
		}
		var count int64
		if err := s.db.Model(&models.User{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique referral code")
}
