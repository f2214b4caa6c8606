package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/models"
)

const menuReply = `Je suis votre assistant SNCF. Comment puis-je vous aider ?

- Réserver un taxi
- Vérifier l'état du trafic
- Informations sur votre train`

// MockResponder answers from fixed templates after a simulated delay
type MockResponder struct {
	delay time.Duration
}

// NewMockResponder creates a MockResponder. A non-positive delay replies immediately.
func NewMockResponder(delay time.Duration) *MockResponder {
	return &MockResponder{delay: delay}
}

// Reply implements Responder
func (m *MockResponder) Reply(ctx context.Context, message string, trip *models.TripContext) (string, error) {
	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return MockReply(message, trip), nil
}

// MockReply picks the canned answer for message. The first matching rule
// wins: taxi booking, next train, traffic, then the capabilities menu.
func MockReply(message string, trip *models.TripContext) string {
	lower := strings.ToLower(message)
	if trip == nil {
		trip = &models.TripContext{}
	}

	switch {
	case strings.Contains(lower, "taxi") || strings.Contains(lower, "réserver"):
		return fmt.Sprintf(`Bien sûr ! Je vois que vous avez un train %s qui part à %s de %s.

Pour organiser votre taxi, j'aurais besoin de quelques informations :
1. Quelle est votre adresse de prise en charge ?
2. Avez-vous une préférence pour le type de véhicule ?`,
			orDefault(trip.TrainNumber, "TGV"),
			orDefault(trip.DepartureTime, "bientôt"),
			orDefault(trip.DepartureStation, "la gare"))

	case strings.Contains(lower, "train") || strings.Contains(lower, "prochain"):
		return fmt.Sprintf(`Voici les informations de votre prochain voyage :

Train %s
Départ : %s à %s
Voie : K

Tout est à l'heure pour l'instant. Puis-je vous aider à préparer votre trajet ?`,
			orDefault(trip.TrainNumber, "TGV 6241"),
			orDefault(trip.DepartureStation, "Paris Gare de Lyon"),
			orDefault(trip.DepartureTime, "08:47"))

	case strings.Contains(lower, "trafic") || strings.Contains(lower, "circulation"):
		return fmt.Sprintf(`Voici l'état du trafic vers %s :

Trafic routier : Fluide
Métro : Service normal
Temps estimé depuis le centre : 20-25 minutes

Je vous recommande de partir 30 minutes avant le départ. Voulez-vous réserver un taxi ?`,
			orDefault(trip.DepartureStation, "la gare"))
	}

	return menuReply
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
