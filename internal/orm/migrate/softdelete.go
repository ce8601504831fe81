package migrate

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/conduit-lang/schemasync/internal/orm/slug"
)

// DeletedMarker separates the original name from the numeric suffix of a
// soft-deleted table or column
const DeletedMarker = "_deleted_"

var deletedSuffix = regexp.MustCompile(`_deleted_(\d+)$`)

// NextDeletedSuffix returns one more than the highest soft-delete suffix
// among names, or 1 when none of them is soft-deleted. Gaps left by
// artifacts that were later dropped are never reused.
func NextDeletedSuffix(names []string) int {
	highest := 0
	for _, name := range names {
		m := deletedSuffix.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest + 1
}

// DeletedName builds the soft-delete name for original with suffix n,
// truncating original so the result is a valid identifier length
func DeletedName(original string, n int) string {
	suffix := DeletedMarker + strconv.Itoa(n)
	if room := slug.MaxIdentifierLength - len(suffix); len(original) > room {
		original = original[:room]
	}
	return fmt.Sprintf("%s%s", original, suffix)
}
