package checkoutevents

const (
	TopicName                 = "checkout"
	checkoutStartedName       = TopicName + ".started"
	paymentAttemptStartedName = TopicName + ".paymentAttemptStarted"
	checkoutCompletedName     = TopicName + ".completed"
)

// CheckoutStarted fires on every entry of the payment step.
// PaymentEntries makes each entry a distinct event.
type CheckoutStarted struct {
	CheckoutUID    string
	PaymentEntries int
	AmountInCents  int64
	Currency       string
	IdentityKind   string
	Day            string
}

func (e CheckoutStarted) GetEventTypeName() string {
	return checkoutStartedName
}

func (e CheckoutStarted) GetAggregateName() string {
	return e.CheckoutUID
}

type PaymentAttemptStarted struct {
	CheckoutUID  string
	OrderUID     string
	OrderNumber  string
	ProviderName string
	PaymentID    string
	Day          string
}

func (e PaymentAttemptStarted) GetEventTypeName() string {
	return paymentAttemptStartedName
}

func (e PaymentAttemptStarted) GetAggregateName() string {
	return e.CheckoutUID
}

type CheckoutStatus string

const (
	CheckoutStatusAwaitingPayment CheckoutStatus = "awaiting_payment"
	CheckoutStatusSuccess         CheckoutStatus = "success"
	CheckoutStatusFailed          CheckoutStatus = "failed"
)

type CheckoutCompleted struct {
	CheckoutUID    string
	OrderUID       string
	OrderNumber    string
	PaymentMethod  string
	CheckoutStatus CheckoutStatus
	Success        bool
	Day            string
}

func (e CheckoutCompleted) GetEventTypeName() string {
	return checkoutCompletedName
}

func (e CheckoutCompleted) GetAggregateName() string {
	return e.CheckoutUID
}
