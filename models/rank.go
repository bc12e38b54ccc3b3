package models

import (
	"fmt"
	"math"
	"strconv"
	"unicode/utf16"
)

var teaRanks = []struct {
	below int
	name  string
}{
	{100, "Tea Newbie"},
	{500, "Tea Freshman"},
	{1500, "Tea Sophomore"},
	{3000, "Tea Junior"},
	{5000, "Tea Senior"},
}

// TeaRankFor maps tea points to the rank title.
func TeaRankFor(points int) string {
	for _, r := range teaRanks {
		if points < r.below {
			return r.name
		}
	}
	return "Tea Legend"
}

// FormatCount renders counters compactly: 999 -> "999", 1234 -> "1.2k".
func FormatCount(n int) string {
	if n >= 1000 {
		return fmt.Sprintf("%.1fk", float64(n)/1000)
	}
	return strconv.Itoa(n)
}

// AvatarIndex picks a palette slot for an avatar seed. The running hash stays a float
// over UTF-16 code units; only the shifted term wraps to 32 bits.
func AvatarIndex(seed string, n int) int {
	if n <= 0 {
		return 0
	}
	var h float64
	for _, c := range utf16.Encode([]rune(seed)) {
		shifted := toInt32(h) << 5
		h = float64(c) + (float64(shifted) - h)
	}
	return int(int64(math.Abs(h)) % int64(n))
}

// toInt32 truncates and wraps f to a signed 32 bit integer.
func toInt32(f float64) int32 {
	return int32(int64(math.Mod(math.Trunc(f), 1<<32)))
}

var (
	nameAdjectives = []string{"Sleepy", "Sneaky", "Curious", "Spicy", "Quiet", "Chaotic", "Witty", "Mellow"}
	nameAnimals    = []string{"Panda", "Owl", "Fox", "Otter", "Koala", "Raccoon", "Falcon", "Llama"}
)

// AnonymousName derives the public handle from an avatar seed, e.g. "SpicyOtter07".
func AnonymousName(seed string) string {
	h := AvatarIndex(seed, 1<<30)
	adj := nameAdjectives[h%len(nameAdjectives)]
	animal := nameAnimals[(h/len(nameAdjectives))%len(nameAnimals)]
	return fmt.Sprintf("%s%s%02d", adj, animal, (h/64)%100)
}
