package funnel

import (
	"time"
)

// DailyFunnel counts how far customers got through checkout on one shop day
type DailyFunnel struct {
	Day                  string
	PaymentStepEntries   int
	PaymentAttempts      int
	Completed            int
	AwaitingBankTransfer int
	Failed               int
	// Processed holds the keys of handled events, pubsub delivers at least once
	Processed    []string `datastore:",noindex"`
	LastModified *time.Time
}

func (f DailyFunnel) isProcessed(key string) bool {
	for _, k := range f.Processed {
		if k == key {
			return true
		}
	}
	return false
}

// ConversionRate is the share of payment-step entries that ended in a paid or awaiting order
func (f DailyFunnel) ConversionRate() float64 {
	if f.PaymentStepEntries == 0 {
		return 0
	}
	return float64(f.Completed+f.AwaitingBankTransfer) / float64(f.PaymentStepEntries)
}

type DailyFunnelView struct {
	Day                  string  `json:"day"`
	PaymentStepEntries   int     `json:"paymentStepEntries"`
	PaymentAttempts      int     `json:"paymentAttempts"`
	Completed            int     `json:"completed"`
	AwaitingBankTransfer int     `json:"awaitingBankTransfer"`
	Failed               int     `json:"failed"`
	ConversionRate       float64 `json:"conversionRate"`
}

func newView(f DailyFunnel) DailyFunnelView {
	return DailyFunnelView{
		Day:                  f.Day,
		PaymentStepEntries:   f.PaymentStepEntries,
		PaymentAttempts:      f.PaymentAttempts,
		Completed:            f.Completed,
		AwaitingBankTransfer: f.AwaitingBankTransfer,
		Failed:               f.Failed,
		ConversionRate:       f.ConversionRate(),
	}
}
