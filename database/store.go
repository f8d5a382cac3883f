package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/komunitas/platform/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListFilter narrows admin listings. Zero values mean no status filter,
// page 1 and 10 rows.
type ListFilter struct {
	Status string
	Page   int
	Limit  int
}

func (f ListFilter) normalized() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}
	return f
}

func (f ListFilter) Offset() int {
	f = f.normalized()
	return (f.Page - 1) * f.Limit
}

// Store is the gorm backed persistence used by every service. Lookups return
// gorm.ErrRecordNotFound when nothing matches.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Users

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "phone = ?", phone).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Model(user).Select("full_name", "email", "profile_picture_url").Updates(user).Error
}

// OTP codes

func (s *Store) CreateOTP(ctx context.Context, otp *models.OTPCode) error {
	return s.db.WithContext(ctx).Create(otp).Error
}

func (s *Store) LatestOTP(ctx context.Context, phone string) (*models.OTPCode, error) {
	var otp models.OTPCode
	err := s.db.WithContext(ctx).
		Where("phone = ? AND consumed_at IS NULL", phone).
		Order("created_at desc").
		First(&otp).Error
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

func (s *Store) SaveOTP(ctx context.Context, otp *models.OTPCode) error {
	return s.db.WithContext(ctx).Model(otp).Updates(map[string]interface{}{
		"attempts":    otp.Attempts,
		"consumed_at": otp.ConsumedAt,
	}).Error
}

func (s *Store) DeleteExpiredOTPs(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", before).Delete(&models.OTPCode{})
	return res.RowsAffected, res.Error
}

// Whitelist

func (s *Store) IsWhitelisted(ctx context.Context, phone string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Whitelist{}).Where("phone = ?", phone).Count(&count).Error
	return count > 0, err
}

func (s *Store) ListWhitelist(ctx context.Context, search string) ([]models.Whitelist, error) {
	var entries []models.Whitelist
	q := s.db.WithContext(ctx).Order("created_at desc")
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("phone ILIKE ? OR name ILIKE ?", like, like)
	}
	err := q.Find(&entries).Error
	return entries, err
}

// AddWhitelist inserts entries and skips phones that are already listed.
func (s *Store) AddWhitelist(ctx context.Context, entries []models.Whitelist) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "phone"}}, DoNothing: true}).
		Create(&entries)
	return res.RowsAffected, res.Error
}

func (s *Store) DeleteWhitelist(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.Whitelist{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Activities

func (s *Store) ListActivities(ctx context.Context, status models.ActivityStatus) ([]models.Activity, error) {
	var activities []models.Activity
	q := s.db.WithContext(ctx).Order("start_date asc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&activities).Error
	return activities, err
}

func (s *Store) GetActivity(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	var activity models.Activity
	if err := s.db.WithContext(ctx).First(&activity, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

func (s *Store) GetActivityBySlug(ctx context.Context, slug string) (*models.Activity, error) {
	var activity models.Activity
	if err := s.db.WithContext(ctx).First(&activity, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

func (s *Store) ActivitySlugTaken(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Activity{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (s *Store) CreateActivity(ctx context.Context, activity *models.Activity) error {
	return s.db.WithContext(ctx).Create(activity).Error
}

func (s *Store) SaveActivity(ctx context.Context, activity *models.Activity) error {
	return s.db.WithContext(ctx).Save(activity).Error
}

func (s *Store) DeleteActivity(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.Activity{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Store) ListAutoStatusActivities(ctx context.Context) ([]models.Activity, error) {
	var activities []models.Activity
	err := s.db.WithContext(ctx).
		Where("status_manual = ? AND status <> ?", false, models.ActivityCompleted).
		Find(&activities).Error
	return activities, err
}

func (s *Store) UpdateActivityStatus(ctx context.Context, id uuid.UUID, status models.ActivityStatus) error {
	return s.db.WithContext(ctx).Model(&models.Activity{}).Where("id = ?", id).Update("status", status).Error
}

func (s *Store) CountPaidRegistrations(ctx context.Context, activityID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ActivityRegistration{}).
		Where("activity_id = ? AND status = ?", activityID, models.RegistrationPaid).
		Count(&count).Error
	return count, err
}

// Registrations

func (s *Store) CreateRegistration(ctx context.Context, reg *models.ActivityRegistration) error {
	return s.db.WithContext(ctx).Create(reg).Error
}

func (s *Store) GetRegistration(ctx context.Context, id uuid.UUID) (*models.ActivityRegistration, error) {
	var reg models.ActivityRegistration
	err := s.db.WithContext(ctx).Preload("User").Preload("Activity").First(&reg, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (s *Store) ListRegistrationsByUser(ctx context.Context, userID uuid.UUID) ([]models.ActivityRegistration, error) {
	var regs []models.ActivityRegistration
	err := s.db.WithContext(ctx).Preload("Activity").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&regs).Error
	return regs, err
}

func (s *Store) ListRegistrations(ctx context.Context, activityID *uuid.UUID, f ListFilter) ([]models.ActivityRegistration, int64, error) {
	f = f.normalized()
	q := s.db.WithContext(ctx).Model(&models.ActivityRegistration{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if activityID != nil {
		q = q.Where("activity_id = ?", *activityID)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var regs []models.ActivityRegistration
	err := q.Preload("User").Preload("Activity").
		Order("created_at desc").
		Offset(f.Offset()).Limit(f.Limit).
		Find(&regs).Error
	return regs, total, err
}

func (s *Store) SetRegistrationGateway(ctx context.Context, id uuid.UUID, token, redirectURL string) error {
	return s.db.WithContext(ctx).Model(&models.ActivityRegistration{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"snap_token": token, "redirect_url": redirectURL}).Error
}

// TransitionRegistration persists reg's new status only if the stored row
// still has status from.
func (s *Store) TransitionRegistration(ctx context.Context, reg *models.ActivityRegistration, from models.RegistrationStatus) error {
	res := s.db.WithContext(ctx).Model(&models.ActivityRegistration{}).
		Where("id = ? AND status = ?", reg.ID, from).
		Updates(map[string]interface{}{
			"status":                 reg.Status,
			"paid_at":                reg.PaidAt,
			"gateway_transaction_id": reg.GatewayTransactionID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: registration %s", models.ErrStaleStatus, reg.ID)
	}
	return nil
}

func (s *Store) SetRegistrationReceipt(ctx context.Context, id uuid.UUID, url string) error {
	return s.db.WithContext(ctx).Model(&models.ActivityRegistration{}).
		Where("id = ?", id).Update("receipt_url", url).Error
}

func (s *Store) PendingRegistrations(ctx context.Context, before time.Time, withGateway bool) ([]models.ActivityRegistration, error) {
	var regs []models.ActivityRegistration
	err := pendingQuery(s.db.WithContext(ctx), string(models.RegistrationPending), before, withGateway).
		Find(&regs).Error
	return regs, err
}

// Merchandise

func (s *Store) ListMerchandise(ctx context.Context, category string, activeOnly bool) ([]models.Merchandise, error) {
	var items []models.Merchandise
	q := s.db.WithContext(ctx).Order("created_at desc")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if category != "" {
		q = q.Where("category = ?", category)
	}
	err := q.Find(&items).Error
	return items, err
}

func (s *Store) GetMerchandise(ctx context.Context, id uuid.UUID) (*models.Merchandise, error) {
	var item models.Merchandise
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateMerchandise(ctx context.Context, item *models.Merchandise) error {
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) SaveMerchandise(ctx context.Context, item *models.Merchandise) error {
	return s.db.WithContext(ctx).Save(item).Error
}

// Orders

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	return s.db.WithContext(ctx).Create(order).Error
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("User").Preload("Merchandise").Preload("Address").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).Preload("Merchandise").Preload("Address").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&orders).Error
	return orders, err
}

func (s *Store) ListOrders(ctx context.Context, f ListFilter) ([]models.Order, int64, error) {
	f = f.normalized()
	q := s.db.WithContext(ctx).Model(&models.Order{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var orders []models.Order
	err := q.Preload("User").Preload("Merchandise").Preload("Address").
		Order("created_at desc").
		Offset(f.Offset()).Limit(f.Limit).
		Find(&orders).Error
	return orders, total, err
}

func (s *Store) SetOrderGateway(ctx context.Context, id uuid.UUID, token, redirectURL string) error {
	return s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"snap_token": token, "redirect_url": redirectURL}).Error
}

// TransitionOrder persists order's new status and the fields that travel with
// it only if the stored row still has status from.
func (s *Store) TransitionOrder(ctx context.Context, order *models.Order, from models.OrderStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, from).
		Updates(map[string]interface{}{
			"status":                 order.Status,
			"paid_at":                order.PaidAt,
			"shipped_at":             order.ShippedAt,
			"completed_at":           order.CompletedAt,
			"courier":                order.Courier,
			"tracking_number":        order.TrackingNumber,
			"gateway_transaction_id": order.GatewayTransactionID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: order %s", models.ErrStaleStatus, order.ID)
	}
	return nil
}

func (s *Store) PendingOrders(ctx context.Context, before time.Time, withGateway bool) ([]models.Order, error) {
	var orders []models.Order
	err := pendingQuery(s.db.WithContext(ctx), string(models.OrderPending), before, withGateway).
		Find(&orders).Error
	return orders, err
}

func pendingQuery(db *gorm.DB, status string, before time.Time, withGateway bool) *gorm.DB {
	q := db.Where("status = ? AND created_at < ?", status, before)
	if withGateway {
		return q.Where("snap_token IS NOT NULL")
	}
	return q.Where("snap_token IS NULL")
}

// Addresses

func (s *Store) ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var addresses []models.Address
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default desc, created_at desc").
		Find(&addresses).Error
	return addresses, err
}

func (s *Store) GetAddress(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	var address models.Address
	if err := s.db.WithContext(ctx).First(&address, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &address, nil
}

func (s *Store) CountAddresses(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Address{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (s *Store) CreateAddress(ctx context.Context, address *models.Address) error {
	return s.db.WithContext(ctx).Create(address).Error
}

func (s *Store) SaveAddress(ctx context.Context, address *models.Address) error {
	return s.db.WithContext(ctx).Save(address).Error
}

func (s *Store) DeleteAddress(ctx context.Context, userID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.Address{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetDefaultAddress marks one address as default and clears the flag on the
// user's other addresses in the same transaction.
func (s *Store) SetDefaultAddress(ctx context.Context, userID, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Address{}).
			Where("id = ? AND user_id = ?", id, userID).
			Update("is_default", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&models.Address{}).
			Where("user_id = ? AND id <> ?", userID, id).
			Update("is_default", false).Error
	})
}

// Payment notifications

func (s *Store) SavePaymentNotification(ctx context.Context, n *models.PaymentNotification) error {
	return s.db.WithContext(ctx).Create(n).Error
}
