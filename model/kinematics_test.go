package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeToCoverZeroDistance(t *testing.T) {
	assert.Equal(t, 0.0, TimeToCover(0, 5, 1))
}

func TestTimeToCoverConstantSpeed(t *testing.T) {
	assert.InDelta(t, 2.0, TimeToCover(10, 5, 0), 1e-9)
}

func TestTimeToCoverZeroSpeedZeroAccel(t *testing.T) {
	assert.True(t, math.IsInf(TimeToCover(10, 0, 0), 1))
}

func TestTimeToCoverNegativeConstantSpeed(t *testing.T) {
	assert.True(t, math.IsInf(TimeToCover(10, -5, 0), 1))
}

func TestTimeToCoverFromRestUnderAcceleration(t *testing.T) {
	// 0.5*2*t^2 = 10 -> t = sqrt(10)
	assert.InDelta(t, math.Sqrt(10), TimeToCover(10, 0, 2), 1e-9)
}

func TestDistanceCovered(t *testing.T) {
	assert.InDelta(t, 12.0, DistanceCovered(2, 5, 1), 1e-9)
}

func TestClip(t *testing.T) {
	assert.Equal(t, 1.0, Clip(5, -1, 1))
	assert.Equal(t, -1.0, Clip(-5, -1, 1))
	assert.Equal(t, 0.5, Clip(0.5, -1, 1))
}

func TestSignedMinAngleWrapsAroundPi(t *testing.T) {
	got := SignedMinAngle(-math.Pi+0.1, math.Pi-0.1)
	assert.InDelta(t, 0.2, got, 1e-9)
}

func TestSign(t *testing.T) {
	assert.Equal(t, 1.0, Sign(3))
	assert.Equal(t, -1.0, Sign(-3))
	assert.Equal(t, 0.0, Sign(0))
}
