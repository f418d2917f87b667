package dice

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

const (
	maxDiceCount = 100
	maxDiceSides = 1000
	maxModifier  = 1000000
)

// LocalSystem 是本地擲骰器唯一支援的系統
var LocalSystem = GameSystem{ID: "DiceBot", Name: "DiceBot", SortKey: "*"}

var formulaPattern = regexp.MustCompile(`(?i)^(\d+)d(\d+)(?:([+-])(\d+))?(?:\s|$)`)

// LocalRoller 處理 NdM / NdM+K / NdM-K 形式的指令
type LocalRoller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewLocalRoller(seed int64) *LocalRoller {
	return &LocalRoller{rng: rand.New(rand.NewSource(seed))}
}

// NewSeed 以 crypto/rand 產生種子
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func (r *LocalRoller) Roll(_ context.Context, _ string, command string) (Outcome, error) {
	m := formulaPattern.FindStringSubmatch(strings.TrimSpace(command))
	if m == nil {
		return Outcome{}, nil
	}
	count, err := strconv.Atoi(m[1])
	if err != nil || count < 1 || count > maxDiceCount {
		return Outcome{}, nil
	}
	sides, err := strconv.Atoi(m[2])
	if err != nil || sides < 1 || sides > maxDiceSides {
		return Outcome{}, nil
	}
	modifier := 0
	if m[4] != "" {
		// 超出範圍的修正值不視為擲骰
		modifier, err = strconv.Atoi(m[4])
		if err != nil || modifier > maxModifier {
			return Outcome{}, nil
		}
		if m[3] == "-" {
			modifier = -modifier
		}
	}

	results := make([]string, count)
	total := 0
	r.mu.Lock()
	for i := range results {
		v := r.rng.Intn(sides) + 1
		total += v
		results[i] = strconv.Itoa(v)
	}
	r.mu.Unlock()
	total += modifier

	expr := fmt.Sprintf("%dD%d", count, sides)
	if modifier > 0 {
		expr += "+" + strconv.Itoa(modifier)
	} else if modifier < 0 {
		expr += strconv.Itoa(modifier)
	}
	text := fmt.Sprintf("(%s) ＞ %s ＞ %d", expr, strings.Join(results, ","), total)
	return Outcome{OK: true, Text: text}, nil
}

func (r *LocalRoller) Systems(context.Context) ([]GameSystem, error) {
	return []GameSystem{LocalSystem}, nil
}
