package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	couponDomain "github.com/marrakech-reviews/service-community/internal/domain/coupon"
	"github.com/marrakech-reviews/service-community/pkg/domain"
)

// CouponModel is the GORM model for the coupons table.
type CouponModel struct {
	ID             uuid.UUID           `gorm:"type:uuid;primaryKey"`
	Code           string              `gorm:"type:varchar(50);uniqueIndex;not null"`
	Title          string              `gorm:"type:varchar(200);not null"`
	Description    string              `gorm:"type:text"`
	Kind           string              `gorm:"type:varchar(20);not null;index"`
	DiscountType   string              `gorm:"type:varchar(20);not null"`
	DiscountValue  decimal.Decimal     `gorm:"type:decimal(20,2);not null"`
	MaxDiscount    decimal.NullDecimal `gorm:"type:decimal(20,2)"`
	MinOrderAmount decimal.Decimal     `gorm:"type:decimal(20,2);not null"`
	ValidFrom      time.Time           `gorm:"not null"`
	ValidUntil     time.Time           `gorm:"not null;index"`
	UsageLimit     int                 `gorm:"not null"`
	UsageCount     int                 `gorm:"not null"`
	UserLimit      int                 `gorm:"not null"`
	IsActive       bool                `gorm:"not null;index"`
	RewardKey      *string             `gorm:"type:varchar(80);uniqueIndex"`
	CreatedBy      uuid.UUID           `gorm:"type:uuid;not null"`
	CreatedAt      time.Time           `gorm:"not null;index"`
	UpdatedAt      time.Time           `gorm:"not null"`

	Audience []CouponAudienceModel `gorm:"foreignKey:CouponID;constraint:OnDelete:CASCADE"`
}

// TableName sets the table name.
func (CouponModel) TableName() string { return "coupons" }

// CouponAudienceModel restricts a coupon to specific accounts.
type CouponAudienceModel struct {
	CouponID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	AccountID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

// TableName sets the table name.
func (CouponAudienceModel) TableName() string { return "coupon_audiences" }

// CouponUsageModel is the GORM model for the coupon_usages table.
type CouponUsageModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CouponID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_coupon_usages_coupon_account"`
	AccountID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_coupon_usages_coupon_account;index"`
	OrderAmount    decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	UsedAt         time.Time       `gorm:"not null;index"`
}

// TableName sets the table name.
func (CouponUsageModel) TableName() string { return "coupon_usages" }

const audienceMatch = "(NOT EXISTS (SELECT 1 FROM coupon_audiences ca WHERE ca.coupon_id = coupons.id)" +
	" OR EXISTS (SELECT 1 FROM coupon_audiences ca WHERE ca.coupon_id = coupons.id AND ca.account_id = ?))"

// CouponRepositoryImpl implements coupon.Repository using GORM.
type CouponRepositoryImpl struct {
	db *gorm.DB
}

// NewCouponRepository creates a new CouponRepositoryImpl.
func NewCouponRepository(db *gorm.DB) *CouponRepositoryImpl {
	return &CouponRepositoryImpl{db: db}
}

// Save persists a new coupon with its audience.
func (r *CouponRepositoryImpl) Save(ctx context.Context, c *couponDomain.Coupon) error {
	model := toCouponModel(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return domain.NewConflictError("coupon code already exists").WithCode("COUPON_EXISTS")
		}
		return err
	}
	return nil
}

// Update writes the admin-editable fields and replaces the audience. The
// usage count is never written here so concurrent redemptions are not lost.
func (r *CouponRepositoryImpl) Update(ctx context.Context, c *couponDomain.Coupon) error {
	model := toCouponModel(c)
	audience := model.Audience
	model.Audience = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&CouponModel{}).
			Where("id = ?", model.ID).
			Select("title", "description", "discount_type", "discount_value", "max_discount",
				"min_order_amount", "valid_from", "valid_until", "usage_limit", "user_limit",
				"is_active", "updated_at").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewNotFoundError("Coupon", model.ID.String())
		}

		if err := tx.Where("coupon_id = ?", model.ID).Delete(&CouponAudienceModel{}).Error; err != nil {
			return err
		}
		if len(audience) > 0 {
			if err := tx.Create(&audience).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a coupon and its audience. Usage history is kept.
func (r *CouponRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("coupon_id = ?", id).Delete(&CouponAudienceModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&CouponModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewNotFoundError("Coupon", id.String())
		}
		return nil
	})
}

// FindByID returns a coupon by ID.
func (r *CouponRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*couponDomain.Coupon, error) {
	var model CouponModel
	if err := r.db.WithContext(ctx).Preload("Audience").Where("id = ?", id).First(&model).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.NewNotFoundError("Coupon", id.String())
		}
		return nil, err
	}
	return toCouponDomain(&model), nil
}

// FindByCode returns a coupon by its normalized code.
func (r *CouponRepositoryImpl) FindByCode(ctx context.Context, code string) (*couponDomain.Coupon, error) {
	var model CouponModel
	if err := r.db.WithContext(ctx).Preload("Audience").Where("code = ?", couponDomain.NormalizeCode(code)).First(&model).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.NewNotFoundError("Coupon", code)
		}
		return nil, err
	}
	return toCouponDomain(&model), nil
}

// FindWeeklyReward returns the weekly reward addressed to accountID created in [from, to), or nil.
func (r *CouponRepositoryImpl) FindWeeklyReward(ctx context.Context, accountID uuid.UUID, from, to time.Time) (*couponDomain.Coupon, error) {
	var model CouponModel
	err := r.db.WithContext(ctx).
		Preload("Audience").
		Where("kind = ? AND created_at >= ? AND created_at < ?", string(couponDomain.KindWeeklyReward), from, to).
		Where("EXISTS (SELECT 1 FROM coupon_audiences ca WHERE ca.coupon_id = coupons.id AND ca.account_id = ?)", accountID).
		Order("created_at ASC").
		First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return toCouponDomain(&model), nil
}

// List returns coupons newest first, optionally filtered by status at filter.Now.
func (r *CouponRepositoryImpl) List(ctx context.Context, filter couponDomain.ListFilter, page, limit int) ([]*couponDomain.Coupon, int64, error) {
	query := r.db.WithContext(ctx).Model(&CouponModel{})
	switch filter.Status {
	case couponDomain.StatusActive:
		query = query.Where("is_active = ? AND valid_until > ?", true, filter.Now)
	case couponDomain.StatusInactive:
		query = query.Where("is_active = ? AND valid_until > ?", false, filter.Now)
	case couponDomain.StatusExpired:
		query = query.Where("valid_until <= ?", filter.Now)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []CouponModel
	if err := query.Preload("Audience").
		Order("created_at DESC").
		Offset(offsetFor(page, limit)).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return toCouponDomains(models), total, nil
}

// ListAvailable returns coupons accountID could redeem at now, ignoring order
// amount minimums.
func (r *CouponRepositoryImpl) ListAvailable(ctx context.Context, accountID uuid.UUID, now time.Time) ([]*couponDomain.Coupon, error) {
	var models []CouponModel
	err := r.db.WithContext(ctx).
		Preload("Audience").
		Where("is_active = ? AND valid_from <= ? AND valid_until > ?", true, now, now).
		Where("usage_limit = 0 OR usage_count < usage_limit").
		Where(audienceMatch, accountID).
		Where("(SELECT COUNT(*) FROM coupon_usages cu WHERE cu.coupon_id = coupons.id AND cu.account_id = ?) < coupons.user_limit", accountID).
		Order("valid_until ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toCouponDomains(models), nil
}

// CountUsage returns how many times accountID redeemed couponID.
func (r *CouponRepositoryImpl) CountUsage(ctx context.Context, couponID, accountID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&CouponUsageModel{}).
		Where("coupon_id = ? AND account_id = ?", couponID, accountID).
		Count(&count).Error
	return int(count), err
}

// Redeem performs the conditional usage increment and inserts the usage row
// in one transaction.
func (r *CouponRepositoryImpl) Redeem(ctx context.Context, usage couponDomain.Usage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&CouponModel{}).
			Where("id = ? AND (usage_limit = 0 OR usage_count < usage_limit)", usage.CouponID).
			Updates(map[string]any{
				"usage_count": gorm.Expr("usage_count + 1"),
				"updated_at":  usage.UsedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&CouponModel{}).Where("id = ?", usage.CouponID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return couponDomain.ErrNotFound
			}
			return couponDomain.ErrGlobalLimitExceeded
		}

		return tx.Create(&CouponUsageModel{
			ID:             usage.ID,
			CouponID:       usage.CouponID,
			AccountID:      usage.AccountID,
			OrderAmount:    usage.OrderAmount,
			DiscountAmount: usage.DiscountAmount,
			UsedAt:         usage.UsedAt,
		}).Error
	})
}

// ListUsage returns the usage ledger of one coupon, newest first.
func (r *CouponRepositoryImpl) ListUsage(ctx context.Context, couponID uuid.UUID, page, limit int) ([]couponDomain.Usage, int64, error) {
	query := r.db.WithContext(ctx).Model(&CouponUsageModel{}).Where("coupon_id = ?", couponID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []CouponUsageModel
	if err := query.Order("used_at DESC").Offset(offsetFor(page, limit)).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}

	usages := make([]couponDomain.Usage, len(models))
	for i, m := range models {
		usages[i] = couponDomain.Usage{
			ID:             m.ID,
			CouponID:       m.CouponID,
			AccountID:      m.AccountID,
			OrderAmount:    m.OrderAmount,
			DiscountAmount: m.DiscountAmount,
			UsedAt:         m.UsedAt,
		}
	}
	return usages, total, nil
}

// AccountUsageStats summarizes one account's redemptions.
func (r *CouponRepositoryImpl) AccountUsageStats(ctx context.Context, accountID uuid.UUID) (*couponDomain.AccountUsageStats, error) {
	db := r.db.WithContext(ctx)

	var agg struct {
		TotalUsed  int64
		TotalSaved decimal.Decimal
	}
	if err := db.Model(&CouponUsageModel{}).
		Select("COUNT(*) AS total_used, COALESCE(SUM(discount_amount), 0) AS total_saved").
		Where("account_id = ?", accountID).
		Scan(&agg).Error; err != nil {
		return nil, err
	}

	stats := &couponDomain.AccountUsageStats{TotalUsed: agg.TotalUsed, TotalSaved: agg.TotalSaved}
	if agg.TotalUsed == 0 {
		return stats, nil
	}

	var last CouponUsageModel
	if err := db.Where("account_id = ?", accountID).Order("used_at DESC").First(&last).Error; err != nil {
		return nil, err
	}
	stats.LastUsedAt = &last.UsedAt
	return stats, nil
}

// Stats returns coupon totals and the top coupons by usage.
func (r *CouponRepositoryImpl) Stats(ctx context.Context, now time.Time, top int) (*couponDomain.Stats, error) {
	db := r.db.WithContext(ctx)
	stats := &couponDomain.Stats{}

	if err := db.Model(&CouponModel{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&CouponModel{}).
		Where("is_active = ? AND valid_until > ?", true, now).
		Count(&stats.Active).Error; err != nil {
		return nil, err
	}

	var usage struct {
		Uses    int64
		Savings decimal.Decimal
	}
	if err := db.Model(&CouponUsageModel{}).
		Select("COUNT(*) AS uses, COALESCE(SUM(discount_amount), 0) AS savings").
		Scan(&usage).Error; err != nil {
		return nil, err
	}
	stats.TotalUsage = usage.Uses
	stats.TotalSavings = usage.Savings

	var popular []CouponModel
	if err := db.Select("id", "code", "title", "usage_count").
		Where("usage_count > 0").
		Order("usage_count DESC").
		Limit(top).
		Find(&popular).Error; err != nil {
		return nil, err
	}
	for _, m := range popular {
		stats.MostPopular = append(stats.MostPopular, couponDomain.Popular{
			ID: m.ID, Code: m.Code, Title: m.Title, UsageCount: m.UsageCount,
		})
	}
	return stats, nil
}

func toCouponModel(c *couponDomain.Coupon) *CouponModel {
	var rewardKey *string
	if k := c.RewardKey(); k != "" {
		rewardKey = &k
	}

	accounts := c.ApplicableAccounts()
	audience := make([]CouponAudienceModel, len(accounts))
	for i, id := range accounts {
		audience[i] = CouponAudienceModel{CouponID: c.ID(), AccountID: id}
	}

	return &CouponModel{
		ID:             c.ID(),
		Code:           c.Code(),
		Title:          c.Title(),
		Description:    c.Description(),
		Kind:           string(c.Kind()),
		DiscountType:   string(c.DiscountType()),
		DiscountValue:  c.DiscountValue(),
		MaxDiscount:    c.MaxDiscount(),
		MinOrderAmount: c.MinOrderAmount(),
		ValidFrom:      c.ValidFrom(),
		ValidUntil:     c.ValidUntil(),
		UsageLimit:     c.UsageLimit(),
		UsageCount:     c.UsageCount(),
		UserLimit:      c.UserLimit(),
		IsActive:       c.IsActive(),
		RewardKey:      rewardKey,
		CreatedBy:      c.CreatedBy(),
		CreatedAt:      c.CreatedAt(),
		UpdatedAt:      c.UpdatedAt(),
		Audience:       audience,
	}
}

func toCouponDomain(m *CouponModel) *couponDomain.Coupon {
	var accounts []uuid.UUID
	for _, a := range m.Audience {
		accounts = append(accounts, a.AccountID)
	}
	var rewardKey string
	if m.RewardKey != nil {
		rewardKey = *m.RewardKey
	}

	return couponDomain.Reconstruct(
		m.ID, m.Code, m.Title, m.Description, couponDomain.Kind(m.Kind),
		couponDomain.DiscountType(m.DiscountType), m.DiscountValue, m.MaxDiscount, m.MinOrderAmount,
		m.ValidFrom, m.ValidUntil, m.UsageLimit, m.UsageCount, m.UserLimit,
		accounts, m.IsActive, rewardKey,
		m.CreatedBy, m.CreatedAt, m.UpdatedAt,
	)
}

func toCouponDomains(models []CouponModel) []*couponDomain.Coupon {
	coupons := make([]*couponDomain.Coupon, len(models))
	for i := range models {
		coupons[i] = toCouponDomain(&models[i])
	}
	return coupons
}
