// Package agent produces assistant replies, either from a remote
// agent-serving endpoint or from canned keyword-matched answers.
package agent

import (
	"context"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/models"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/resilience"
)

// Responder modes
const (
	ModeServing = "serving"
	ModeMock    = "mock"
)

// ErrCircuitOpen is returned while the upstream breaker rejects calls
var ErrCircuitOpen = resilience.ErrCircuitOpen

// Responder turns a traveller message into an assistant reply
type Responder interface {
	Reply(ctx context.Context, message string, trip *models.TripContext) (string, error)
}

// ResponderFunc adapts a function to Responder
type ResponderFunc func(ctx context.Context, message string, trip *models.TripContext) (string, error)

// Reply implements Responder
func (f ResponderFunc) Reply(ctx context.Context, message string, trip *models.TripContext) (string, error) {
	return f(ctx, message, trip)
}

// SystemPrompt is sent ahead of every user message to the serving endpoint
const SystemPrompt = `Tu es l'assistant voyageur SNCF. Tu aides les voyageurs avant et pendant leur trajet en train.

Tes missions :
- donner les informations sur le prochain train du voyageur (numéro, gare, heure de départ, voie, retards) ;
- indiquer l'état du trafic routier et des transports en commun vers la gare ;
- organiser la réservation d'un taxi pour rejoindre la gare à temps.

Utilise le contexte du voyage fourni quand il est présent. Réponds toujours en français, de façon concise et chaleureuse. Si une information manque, pose une question courte pour l'obtenir. Ne donne jamais d'horaire que tu ne connais pas.`
