package domain

const (
	RoleCustomer = "customer"
	RoleLawyer   = "lawyer"
)

const (
	PaymentTypeChat         = "chat"
	PaymentTypeSubscription = "subscription"
)

// Payment status as exposed over the API; the ledger itself stores a success flag.
const (
	PaymentStatusPending = "PENDING"
	PaymentStatusSuccess = "SUCCESS"
)

const (
	NotifChatUnlocked          = "CHAT_UNLOCKED"
	NotifSubscriptionActivated = "SUBSCRIPTION_ACTIVATED"
	NotifQuestionAccepted      = "QUESTION_ACCEPTED"
	NotifNewChat               = "NEW_CHAT"
)

// Bounds on a customer's offered price for an open question.
const (
	MinOfferedPrice = "10.00"
	MaxOfferedPrice = "30.00"
)
