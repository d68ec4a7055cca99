package repository

import "gorm.io/gorm"

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&AccountModel{},
		&WalletTransactionModel{},
		&CouponModel{},
		&CouponAudienceModel{},
		&CouponUsageModel{},
		&AuditLogModel{},
		&NotificationModel{},
		&NotificationPreferenceModel{},
		&ReviewModel{},
		&ReviewHelpfulVoteModel{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
