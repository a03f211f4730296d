package dto

import (
	"github.com/shopspring/decimal"
)

// MonthlyRevenue is one entry of the trailing twelve month revenue series
type MonthlyRevenue struct {
	Label        string          `json:"label"`
	Revenue      decimal.Decimal `json:"revenue"`
	PaymentCount int             `json:"payment_count"`
}

// StatisticsResponse is the aggregate dashboard view
type StatisticsResponse struct {
	TotalSubscriptions       int             `json:"total_subscriptions"`
	Active                   int             `json:"active"`
	Suspended                int             `json:"suspended"`
	Cancelled                int             `json:"cancelled"`
	PendingPayment           int             `json:"pending_payment"`
	Overdue                  int             `json:"overdue"`
	CurrentMonthRevenue      decimal.Decimal `json:"current_month_revenue"`
	CurrentMonthPaymentCount int             `json:"current_month_payment_count"`
	TotalRevenueAllTime      decimal.Decimal `json:"total_revenue_all_time"`
	// MonthlyRevenueSeries covers the trailing 12 calendar months, oldest first
	MonthlyRevenueSeries []MonthlyRevenue `json:"monthly_revenue_series"`
}
