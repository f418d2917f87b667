package dice

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRollerIsDeterministic(t *testing.T) {
	const seed = int64(42)
	rng := rand.New(rand.NewSource(seed))
	first := rng.Intn(6) + 1
	second := rng.Intn(6) + 1

	out, err := NewLocalRoller(seed).Roll(context.Background(), "DiceBot", "2d6+3 attack")
	require.NoError(t, err)
	require.True(t, out.OK)

	want := "(2D6+3) ＞ " + strconv.Itoa(first) + "," + strconv.Itoa(second) + " ＞ " + strconv.Itoa(first+second+3)
	assert.Equal(t, want, out.Text)
}

func TestLocalRollerNegativeModifier(t *testing.T) {
	out, err := NewLocalRoller(1).Roll(context.Background(), "DiceBot", "1D4-10")
	require.NoError(t, err)
	require.True(t, out.OK)
	assert.True(t, strings.HasPrefix(out.Text, "(1D4-10) ＞ "))
	// 1D4-10 的結果一定是負數
	assert.Contains(t, out.Text, "＞ -")
}

func TestLocalRollerIgnoresPlainChat(t *testing.T) {
	r := NewLocalRoller(1)
	for _, text := range []string{"hello", "", "d6", "0d6", "2d0", "101d6", "2d6x"} {
		out, err := r.Roll(context.Background(), "DiceBot", text)
		require.NoError(t, err)
		assert.False(t, out.OK, text)
	}
}

func TestLocalRollerRejectsOverflow(t *testing.T) {
	r := NewLocalRoller(1)
	for _, text := range []string{
		"1d6+99999999999999999999",
		"1d6-99999999999999999999",
		"1d6+1000001",
		"99999999999999999999d6",
		"1d99999999999999999999",
	} {
		out, err := r.Roll(context.Background(), "DiceBot", text)
		require.NoError(t, err)
		assert.Equal(t, Outcome{}, out, text)
	}

	out, err := r.Roll(context.Background(), "DiceBot", "1d6+1000000")
	require.NoError(t, err)
	assert.True(t, out.OK)
}

func TestLocalRollerSystems(t *testing.T) {
	systems, err := NewLocalRoller(1).Systems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []GameSystem{LocalSystem}, systems)
}

func TestNewSeed(t *testing.T) {
	_, err := NewSeed()
	require.NoError(t, err)
}
