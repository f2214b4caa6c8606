package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/models"
)

func TestMockReply_Taxi(t *testing.T) {
	trip := &models.TripContext{
		TrainNumber:      "TGV 6241",
		DepartureStation: "Paris Gare de Lyon",
		DepartureTime:    "08:47",
	}

	reply := MockReply("Je veux un TAXI", trip)
	assert.Contains(t, reply, "train TGV 6241 qui part à 08:47 de Paris Gare de Lyon")
	assert.Contains(t, reply, "1. Quelle est votre adresse de prise en charge ?")
	assert.Contains(t, reply, "2. Avez-vous une préférence pour le type de véhicule ?")

	reply = MockReply("Je souhaite réserver", nil)
	assert.Contains(t, reply, "train TGV qui part à bientôt de la gare")
}

func TestMockReply_Train(t *testing.T) {
	reply := MockReply("Mon prochain départ ?", nil)
	assert.Contains(t, reply, "Train TGV 6241")
	assert.Contains(t, reply, "Départ : Paris Gare de Lyon à 08:47")
	assert.Contains(t, reply, "Voie : K")

	reply = MockReply("Infos sur mon train", &models.TripContext{TrainNumber: "TGV 6089", DepartureStation: "Lyon Part-Dieu", DepartureTime: "14:15"})
	assert.Contains(t, reply, "Train TGV 6089")
	assert.Contains(t, reply, "Départ : Lyon Part-Dieu à 14:15")
}

func TestMockReply_Traffic(t *testing.T) {
	reply := MockReply("Quel est l'état de la circulation ?", &models.TripContext{DepartureStation: "Lyon Part-Dieu"})
	assert.Contains(t, reply, "Voici l'état du trafic vers Lyon Part-Dieu :")
	assert.Contains(t, reply, "Trafic routier : Fluide")

	assert.Contains(t, MockReply("trafic", nil), "vers la gare :")
}

func TestMockReply_RulePrecedence(t *testing.T) {
	// taxi outranks train
	assert.Contains(t, MockReply("un taxi pour mon train", nil), "Pour organiser votre taxi")
	// train outranks traffic
	assert.Contains(t, MockReply("trafic et prochain train", nil), "Voie : K")
}

func TestMockReply_Menu(t *testing.T) {
	reply := MockReply("Bonjour", nil)
	assert.Equal(t, menuReply, reply)
	assert.Contains(t, reply, "- Réserver un taxi")
	assert.Contains(t, reply, "- Vérifier l'état du trafic")
	assert.Contains(t, reply, "- Informations sur votre train")
}

func TestMockResponder_HonoursCancellation(t *testing.T) {
	m := NewMockResponder(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Reply(ctx, "taxi", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockResponder_Delay(t *testing.T) {
	m := NewMockResponder(10 * time.Millisecond)

	start := time.Now()
	reply, err := m.Reply(context.Background(), "Bonjour", nil)
	require.NoError(t, err)
	assert.Equal(t, menuReply, reply)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}
