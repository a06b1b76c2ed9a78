package schematic

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Warnings aggregates recoverable problems found while decoding. Unresolvable block states never
// stop a load; they are mapped to the Unknown placeholder and counted here.
type Warnings struct {
	// Unknown maps what the file stored (a legacy "id:data" pair or a palette entry) to the number
	// of cells that referenced it.
	Unknown map[string]uint64
}

func (w *Warnings) addUnknown(source string, cells uint64) {
	if w.Unknown == nil {
		w.Unknown = make(map[string]uint64)
	}
	w.Unknown[source] += cells
}

func (w *Warnings) Empty() bool {
	return w == nil || len(w.Unknown) == 0
}

// UnknownCells is the number of cells mapped to a placeholder.
func (w *Warnings) UnknownCells() uint64 {
	if w == nil {
		return 0
	}
	var n uint64
	for _, c := range w.Unknown {
		n += c
	}
	return n
}

func (w *Warnings) String() string {
	if w.Empty() {
		return "no warnings"
	}
	keys := slices.Sorted(maps.Keys(w.Unknown))
	const shown = 8
	if len(keys) > shown {
		keys = append(keys[:shown], fmt.Sprintf("... %d more", len(w.Unknown)-shown))
	}
	return fmt.Sprintf("%d unknown block states in %d cells: %s",
		len(w.Unknown), w.UnknownCells(), strings.Join(keys, ", "))
}
