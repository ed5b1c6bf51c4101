package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/ben-ranford/why/internal/model"
)

// Fingerprint hashes everything a result reports about dependencies. Two runs
// over the same inputs produce the same fingerprint regardless of worker
// count or scheduling.
func Fingerprint(profiles []model.Profile, unmatched []model.UnmatchedRoot) string {
	h := xxhash.New()
	write := func(fields ...string) {
		_, _ = h.WriteString(strings.Join(fields, "\x1f"))
		_, _ = h.WriteString("\x1e")
	}
	for _, p := range profiles {
		write(
			p.Name(),
			strconv.Itoa(p.ReferenceCount),
			strconv.Itoa(p.ConditionalCount),
			strings.Join(p.Files, ","),
			strings.Join(p.Symbols, ","),
			strings.Join(p.Conditions, ","),
			strconv.FormatFloat(p.ImportanceScore, 'f', 4, 64),
			strconv.FormatBool(p.Removable),
			strings.Join(p.UsedFlags, ","),
		)
	}
	for _, u := range unmatched {
		write(u.Root, strconv.Itoa(u.Count), strings.Join(u.Files, ","))
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
