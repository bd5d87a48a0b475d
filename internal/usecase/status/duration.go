package status

import (
	"regexp"
	"strconv"
	"time"
)

// ShortFormThreshold is the longest duration still classified as short-form.
const ShortFormThreshold = 60 * time.Second

// P[nD][T[nH][nM][nS]]
var durationPattern = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseDuration decodes a compact duration token such as "PT1H2M3S".
// Every component is optional, but the token must carry at least one.
func ParseDuration(token string) (time.Duration, bool) {
	m := durationPattern.FindStringSubmatch(token)
	if m == nil || token == "P" || token == "PT" || (len(token) > 1 && token[len(token)-1] == 'T') {
		return 0, false
	}
	units := [...]time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var total time.Duration
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0, false
		}
		total += time.Duration(n) * unit
	}
	return total, true
}

// IsShortForm reports whether an item with the given duration token is
// excluded from latest-publication results. Unparseable tokens count as
// short-form.
func IsShortForm(token string) bool {
	d, ok := ParseDuration(token)
	if !ok {
		return true
	}
	return d <= ShortFormThreshold
}
