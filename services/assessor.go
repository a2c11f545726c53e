package services

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"rental-service/models"
)

// RandomAssessor is a placeholder standing in for a real damage model. Half
// the time it reports no damage; otherwise the level is drawn 60/30/10 across
// MINOR/MODERATE/SEVERE. Callers must not assume determinism from it — tests
// inject a fixed fake instead.
type RandomAssessor struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomAssessor() *RandomAssessor {
	return &RandomAssessor{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (a *RandomAssessor) Assess(ctx context.Context, beforeRef, afterRef string) (models.DamageVerdict, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.rng.Float64() < 0.5 {
		return models.DamageVerdict{
			HasDamage:  false,
			Level:      models.DamageNone,
			Confidence: 0.5 + 0.5*a.rng.Float64(),
			Assessable: true,
		}, nil
	}

	level := models.DamageMinor
	switch r := a.rng.Float64(); {
	case r >= 0.9:
		level = models.DamageSevere
	case r >= 0.6:
		level = models.DamageModerate
	}

	return models.DamageVerdict{
		HasDamage:  true,
		Level:      level,
		Confidence: 0.5 + 0.5*a.rng.Float64(),
		Assessable: true,
	}, nil
}
