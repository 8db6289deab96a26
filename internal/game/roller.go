package game

import (
	"context"
	"math/rand/v2"
)

// Die faces.
const (
	MinDie = 1
	MaxDie = 6
)

// Roller produces one six-sided die value.
type Roller interface {
	Roll(ctx context.Context) (int, error)
}

// RollerFunc adapts a function to Roller.
type RollerFunc func(ctx context.Context) (int, error)

// Roll calls f.
func (f RollerFunc) Roll(ctx context.Context) (int, error) {
	return f(ctx)
}

// RandomRoller draws uniformly from [1,6].
type RandomRoller struct{}

// Roll returns a uniform die value.
func (RandomRoller) Roll(ctx context.Context) (int, error) {
	return MinDie + rand.IntN(MaxDie-MinDie+1), nil
}

// Fixed returns a roller that always yields v.
func Fixed(v int) Roller {
	return RollerFunc(func(context.Context) (int, error) {
		return v, nil
	})
}
