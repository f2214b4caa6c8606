package models

// KPIs are the headline numbers of the dashboard
type KPIs struct {
	TotalConversations  int     `json:"totalConversations"`
	ConversationsTrend  float64 `json:"conversationsTrend"`
	TaxiConversionRate  float64 `json:"taxiConversionRate"`
	ConversionTrend     float64 `json:"conversionTrend"`
	AvgAnticipationTime int     `json:"avgAnticipationTime"`
	AnticipationTrend   float64 `json:"anticipationTrend"`
	ActiveUsers         int     `json:"activeUsers"`
	UsersTrend          float64 `json:"usersTrend"`
}

type DailyUsage struct {
	Date          string `json:"date"`
	Conversations int    `json:"conversations"`
	Reservations  int    `json:"reservations"`
}

type HourlyUsage struct {
	Hour  string `json:"hour"`
	Count int    `json:"count"`
}

type NamedValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// AnalyticsData is the dashboard snapshot for a period
type AnalyticsData struct {
	Period              string        `json:"period"`
	KPIs                KPIs          `json:"kpis"`
	DailyUsage          []DailyUsage  `json:"dailyUsage"`
	HourlyUsage         []HourlyUsage `json:"hourlyUsage"`
	RequestDistribution []NamedValue  `json:"requestDistribution"`
}

// AdminKPIs is the operator summary
type AdminKPIs struct {
	TotalConversations       int     `json:"total_conversations"`
	TotalConversationsChange float64 `json:"total_conversations_change"`
	TaxiConversionRate       float64 `json:"taxi_conversion_rate"`
	TaxiConversionChange     float64 `json:"taxi_conversion_change"`
	AvgResponseTime          float64 `json:"avg_response_time"`
	AvgResponseTimeChange    float64 `json:"avg_response_time_change"`
	UserSatisfaction         float64 `json:"user_satisfaction"`
	UserSatisfactionChange   float64 `json:"user_satisfaction_change"`
	ActiveUsersToday         int     `json:"active_users_today"`
	PeakUsageHour            string  `json:"peak_usage_hour"`
	MostRequestedRoute       string  `json:"most_requested_route"`
}

type UsagePoint struct {
	Date          string `json:"date"`
	Conversations int    `json:"conversations"`
	UniqueUsers   int    `json:"unique_users"`
	TaxiBookings  int    `json:"taxi_bookings"`
}

type RequestShare struct {
	Type       string  `json:"type"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type HourlyRequests struct {
	Hour     string `json:"hour"`
	Requests int    `json:"requests"`
}

// ResponseTimes are latency percentiles in seconds
type ResponseTimes struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// AdminCharts is the operator chart series
type AdminCharts struct {
	UsageOverTime       []UsagePoint     `json:"usage_over_time"`
	RequestDistribution []RequestShare   `json:"request_distribution"`
	HourlyRequests      []HourlyRequests `json:"hourly_requests"`
	ResponseTimes       ResponseTimes    `json:"response_times"`
}
