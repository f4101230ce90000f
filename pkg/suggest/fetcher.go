// Package suggest fetches theme suggestions exactly once per session.
package suggest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"tourflow/pkg/model"
	"tourflow/pkg/tourapi"
)

// ThemeService is the slice of the backend client the fetcher needs.
type ThemeService interface {
	ThemeOptions(ctx context.Context, req tourapi.ThemeOptionsRequest) (*tourapi.ThemeOptionsResponse, error)
}

// Fetcher issues at most one outstanding theme-suggestion request, no matter
// how many call sites trigger it concurrently. The inFlight flag — not the
// observable state — is the authority for "already fetching": it is set and
// cleared under the mutex, before and after the network suspension point.
type Fetcher struct {
	svc ThemeService

	mu       sync.Mutex
	inFlight bool
	state    model.SuggestionState
	address  string
}

// NewFetcher creates a Fetcher.
func NewFetcher(svc ThemeService) *Fetcher {
	return &Fetcher{svc: svc}
}

// Request fetches suggestions for the given position. Calls are collapsed:
// results already present or a request already outstanding make this a no-op.
// An incomplete position is a warned no-op. Failures reset to a retryable
// baseline (empty results) and are not raised to the caller.
func (f *Fetcher) Request(ctx context.Context, pos model.UserPosition) {
	if !pos.Valid() {
		slog.Warn("Suggest: position incomplete, skipping fetch")
		return
	}

	f.mu.Lock()
	if f.inFlight || len(f.state.Items) > 0 {
		f.mu.Unlock()
		return
	}
	f.inFlight = true
	f.state.IsLoading = true
	f.mu.Unlock()

	resp, err := f.svc.ThemeOptions(ctx, tourapi.ThemeOptionsRequest{
		Latitude:       pos.Latitude,
		Longitude:      pos.Longitude,
		UseCoordinates: true,
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false
	f.state.IsLoading = false
	f.state.HasFetched = true

	if err != nil {
		slog.Warn("Suggest: fetch failed", "error", err)
		f.state.Items = nil
		return
	}

	f.state.Items = parseThemes(resp.Themes)
	f.address = resp.Address
	slog.Info("Suggest: themes fetched", "count", len(f.state.Items), "address", resp.Address)
}

// State returns a copy of the current suggestion state.
func (f *Fetcher) State() model.SuggestionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := f.state
	state.Items = append([]model.ThemeOption(nil), f.state.Items...)
	return state
}

// Address returns the resolved human-readable address captured from the last
// successful fetch. Guardrail requests need an address, not raw coordinates.
func (f *Fetcher) Address() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.address
}

// parseThemes shapes the raw label→description mapping into ordered options.
// IDs are positional and stable within one result set.
func parseThemes(themes map[string]string) []model.ThemeOption {
	labels := sortedKeys(themes)
	options := make([]model.ThemeOption, 0, len(labels))
	for i, raw := range labels {
		icon, label := SplitThemeLabel(raw)
		options = append(options, model.ThemeOption{
			ID:          fmt.Sprintf("theme-%d", i),
			Label:       label,
			Icon:        icon,
			Description: themes[raw],
		})
	}
	return options
}

// SplitThemeLabel splits a raw theme label into its leading glyph cluster and
// the remaining text. Without a detectable prefix the first character becomes
// the icon and the full string stays the label. Best-effort: multi-codepoint
// clusters outside the common emoji ranges may mis-split.
func SplitThemeLabel(raw string) (icon, label string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ""
	}

	if i := strings.IndexFunc(trimmed, unicode.IsSpace); i > 0 {
		head := trimmed[:i]
		rest := strings.TrimSpace(trimmed[i:])
		if rest != "" && isGlyphCluster(head) {
			return head, rest
		}
	}

	r, _ := utf8.DecodeRuneInString(trimmed)
	return string(r), trimmed
}

// isGlyphCluster reports whether s consists only of symbol codepoints and
// cluster joiners (variation selectors, ZWJ, skin-tone modifiers).
func isGlyphCluster(s string) bool {
	for _, r := range s {
		switch {
		case unicode.In(r, unicode.So, unicode.Sk, unicode.Mn, unicode.Me):
		case r == 0x200D || r == 0xFE0F: // ZWJ, variation selector
		case r >= 0x1F000 && r <= 0x1FAFF: // emoji blocks
		case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		default:
			return false
		}
	}
	return true
}

// sortedKeys returns the map keys in a stable order. Map iteration order is
// random and positional IDs need a deterministic assignment.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
