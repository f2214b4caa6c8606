package service

import (
	"fmt"
	"time"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/models"
)

func analyticsSnapshot(period string) *models.AnalyticsData {
	return &models.AnalyticsData{
		Period: period,
		KPIs: models.KPIs{
			TotalConversations:  1966,
			ConversationsTrend:  12.5,
			TaxiConversionRate:  38.2,
			ConversionTrend:     5.3,
			AvgAnticipationTime: 52,
			AnticipationTrend:   -3.2,
			ActiveUsers:         847,
			UsersTrend:          8.7,
		},
		DailyUsage: []models.DailyUsage{
			{Date: "Lun", Conversations: 245, Reservations: 89},
			{Date: "Mar", Conversations: 312, Reservations: 112},
			{Date: "Mer", Conversations: 287, Reservations: 98},
			{Date: "Jeu", Conversations: 356, Reservations: 134},
			{Date: "Ven", Conversations: 421, Reservations: 156},
			{Date: "Sam", Conversations: 189, Reservations: 67},
			{Date: "Dim", Conversations: 156, Reservations: 45},
		},
		HourlyUsage: []models.HourlyUsage{
			{Hour: "6h", Count: 23},
			{Hour: "7h", Count: 89},
			{Hour: "8h", Count: 156},
			{Hour: "9h", Count: 134},
			{Hour: "10h", Count: 98},
			{Hour: "11h", Count: 87},
			{Hour: "12h", Count: 112},
			{Hour: "13h", Count: 145},
			{Hour: "14h", Count: 123},
			{Hour: "15h", Count: 134},
			{Hour: "16h", Count: 178},
			{Hour: "17h", Count: 198},
			{Hour: "18h", Count: 167},
			{Hour: "19h", Count: 89},
			{Hour: "20h", Count: 56},
			{Hour: "21h", Count: 34},
		},
		RequestDistribution: []models.NamedValue{
			{Name: "Réservation taxi", Value: 42},
			{Name: "Info trafic", Value: 28},
			{Name: "Info train", Value: 18},
			{Name: "Info quai", Value: 8},
			{Name: "Autres", Value: 4},
		},
	}
}

func adminKPIs() *models.AdminKPIs {
	return &models.AdminKPIs{
		TotalConversations:       12847,
		TotalConversationsChange: 15.3,
		TaxiConversionRate:       23.4,
		TaxiConversionChange:     5.2,
		AvgResponseTime:          1.2,
		AvgResponseTimeChange:    -8.5,
		UserSatisfaction:         4.6,
		UserSatisfactionChange:   12.1,
		ActiveUsersToday:         3421,
		PeakUsageHour:            "18:00",
		MostRequestedRoute:       "Paris - Lyon",
	}
}

// adminCharts builds the chart series for the seven days ending at now
func adminCharts(now time.Time) *models.AdminCharts {
	usage := make([]models.UsagePoint, 0, 7)
	for i := 0; i < 7; i++ {
		date := now.AddDate(0, 0, -(6 - i))
		usage = append(usage, models.UsagePoint{
			Date:          date.Format("2006-01-02"),
			Conversations: 1500 + i*200 + (i%2)*300,
			UniqueUsers:   800 + i*100,
			TaxiBookings:  250 + i*30,
		})
	}

	hourly := make([]models.HourlyRequests, 0, 24)
	for hour := 0; hour < 24; hour++ {
		requests := 100 + (hour%3)*50
		if hour >= 6 && hour <= 22 {
			requests += 300
		}
		hourly = append(hourly, models.HourlyRequests{
			Hour:     fmt.Sprintf("%02d:00", hour),
			Requests: requests,
		})
	}

	return &models.AdminCharts{
		UsageOverTime: usage,
		RequestDistribution: []models.RequestShare{
			{Type: "Horaires de train", Count: 4521, Percentage: 35.2},
			{Type: "Réservation taxi", Count: 3012, Percentage: 23.4},
			{Type: "Retards/Incidents", Count: 2847, Percentage: 22.1},
			{Type: "Informations voyage", Count: 1562, Percentage: 12.2},
			{Type: "Autres", Count: 905, Percentage: 7.1},
		},
		HourlyRequests: hourly,
		ResponseTimes: models.ResponseTimes{
			P50: 0.8,
			P95: 2.1,
			P99: 4.5,
		},
	}
}
