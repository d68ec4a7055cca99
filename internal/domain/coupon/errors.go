package coupon

import "net/http"

// Reason identifies why a coupon cannot be redeemed.
type Reason string

const (
	ReasonNotFound            Reason = "COUPON_NOT_FOUND"
	ReasonInactive            Reason = "COUPON_INACTIVE"
	ReasonNotYetValid         Reason = "COUPON_NOT_YET_VALID"
	ReasonExpired             Reason = "COUPON_EXPIRED"
	ReasonGlobalLimitExceeded Reason = "COUPON_USAGE_LIMIT_REACHED"
	ReasonBelowMinimum        Reason = "ORDER_BELOW_MINIMUM"
	ReasonNotApplicableToUser Reason = "COUPON_NOT_APPLICABLE"
	ReasonUserLimitExceeded   Reason = "COUPON_ALREADY_USED"
)

// Rejection is a terminal, user-facing coupon failure. Two rejections match
// under errors.Is when their reasons are equal.
type Rejection struct {
	Reason  Reason
	Message string
}

var (
	ErrNotFound            = &Rejection{Reason: ReasonNotFound, Message: "coupon not found"}
	ErrInactive            = &Rejection{Reason: ReasonInactive, Message: "coupon is not active"}
	ErrNotYetValid         = &Rejection{Reason: ReasonNotYetValid, Message: "coupon is not yet valid"}
	ErrExpired             = &Rejection{Reason: ReasonExpired, Message: "coupon has expired"}
	ErrGlobalLimitExceeded = &Rejection{Reason: ReasonGlobalLimitExceeded, Message: "coupon usage limit exceeded"}
	ErrBelowMinimum        = &Rejection{Reason: ReasonBelowMinimum, Message: "order amount is below the coupon minimum"}
	ErrNotApplicableToUser = &Rejection{Reason: ReasonNotApplicableToUser, Message: "coupon not applicable for this user"}
	ErrUserLimitExceeded   = &Rejection{Reason: ReasonUserLimitExceeded, Message: "you have already used this coupon"}
)

func reject(base *Rejection, message string) *Rejection {
	return &Rejection{Reason: base.Reason, Message: message}
}

func (r *Rejection) Error() string { return r.Message }

// Is matches rejections by reason.
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Reason == r.Reason
}

// HTTPStatus maps the rejection to a response status.
func (r *Rejection) HTTPStatus() int {
	if r.Reason == ReasonNotFound {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

// ErrorCode returns the machine readable reason.
func (r *Rejection) ErrorCode() string { return string(r.Reason) }
