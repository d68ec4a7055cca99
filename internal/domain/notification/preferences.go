package notification

// Preferences are an account's notification opt-ins. Accounts that never
// saved preferences get DefaultPreferences.
type Preferences struct {
	Email              bool `json:"email"`
	Push               bool `json:"push"`
	ReviewApproved     bool `json:"review_approved"`
	ArticlePublished   bool `json:"article_published"`
	WalletTransactions bool `json:"wallet_transactions"`
	SystemUpdates      bool `json:"system_updates"`
}

// DefaultPreferences opts into everything.
func DefaultPreferences() Preferences {
	return Preferences{
		Email:              true,
		Push:               true,
		ReviewApproved:     true,
		ArticlePublished:   true,
		WalletTransactions: true,
		SystemUpdates:      true,
	}
}

// Allows reports whether a notification of typ should be stored for the
// account. Admin, reward and coupon notifications are always delivered.
func (p Preferences) Allows(typ Type) bool {
	switch typ {
	case TypeWallet:
		return p.WalletTransactions
	case TypeReview:
		return p.ReviewApproved
	case TypeSystem:
		return p.SystemUpdates
	default:
		return true
	}
}
