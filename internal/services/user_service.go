package services

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"account-market/internal/models"
)

// UserService handles the staff-facing user management surface.
type UserService struct {
	db     *gorm.DB
	ledger *LedgerService
}

// NewUserService creates a new UserService
func NewUserService(db *gorm.DB, ledger *LedgerService) *UserService {
	return &UserService{db: db, ledger: ledger}
}

// List returns all users, newest first.
func (s *UserService) List() ([]models.User, error) {
	var users []models.User
	if err := s.db.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Detail loads a user with tickets, orders and referrals for the staff view.
func (s *UserService) Detail(userID uint) (*models.User, []models.Ticket, []models.Order, []models.Referral, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, nil, ErrUserNotFound
		}
		return nil, nil, nil, nil, err
	}

	var tickets []models.Ticket
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&tickets).Error; err != nil {
		return nil, nil, nil, nil, err
	}
	var orders []models.Order
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, nil, nil, nil, err
	}
	var referrals []models.Referral
	if err := s.db.Where("referrer_id = ?", userID).Preload("Referred").Find(&referrals).Error; err != nil {
		return nil, nil, nil, nil, err
	}

	return &user, tickets, orders, referrals, nil
}

// UpdateRole sets a user's role.
func (s *UserService) UpdateRole(userID uint, role string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if err := s.db.Model(&user).Update("role", role).Error; err != nil {
		return nil, err
	}
	user.Role = role
	return &user, nil
}

// Ban swaps the role to banned; the row and its history stay.
func (s *UserService) Ban(userID uint) (*models.User, error) {
	return s.UpdateRole(userID, models.RoleBanned)
}

// Unban restores a banned user to customer.
func (s *UserService) Unban(userID uint) (*models.User, error) {
	return s.UpdateRole(userID, models.RoleCustomer)
}

// AdjustPoints applies a manual staff point adjustment through the ledger
// write path and returns the user's updated total.
func (s *UserService) AdjustPoints(userID uint, delta int, reason string, meta models.JSONMap, actorID uint) (int, error) {
	if reason == "" {
		reason = models.ReasonManualAdjustment
	}
	if meta == nil {
		meta = models.JSONMap{}
	}
	// The acting staff ID is always recorded, even over caller-supplied meta.
	meta["by"] = actorID

	var updated int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if _, err := s.ledger.Record(tx, userID, delta, reason, meta); err != nil {
			return err
		}
		updated = user.Points + delta
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// UpdateProfileInput carries the optional staff-editable profile fields.
type UpdateProfileInput struct {
	Username *string
	Email    *string
	Discord  *string
}

// UpdateProfile updates profile fields, translating unique-index collisions
// into ErrConflict.
func (s *UserService) UpdateProfile(userID uint, in UpdateProfileInput) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Username != nil {
		updates["username"] = *in.Username
	}
	if in.Email != nil {
		updates["email"] = *in.Email
	}
	if in.Discord != nil {
		updates["discord"] = *in.Discord
	}
	if len(updates) == 0 {
		return &user, nil
	}

	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConflict
		}
		return nil, err
	}
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangePassword verifies the user's current password before setting a new
// one. The CEO path that skips verification is SetPassword.
func (s *UserService) ChangePassword(userID uint, current, next string) error {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	return s.SetPassword(userID, next)
}

// SetPassword hashes and stores a new password for the user.
func (s *UserService) SetPassword(userID uint, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	res := s.db.Model(&models.User{}).Where("id = ?", userID).Update("password", string(hashed))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
