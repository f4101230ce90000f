// Package model defines the shared domain types of the tour session engine.
package model

import (
	"sort"

	"github.com/paulmach/orb"
)

// UserPosition is the most recent position reported by the position capability.
// Latitude/Longitude are nil until the first update arrives.
type UserPosition struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Valid reports whether both coordinates are present.
func (p UserPosition) Valid() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// Point returns the position as an orb.Point (lon, lat). Only meaningful if Valid.
func (p UserPosition) Point() orb.Point {
	if !p.Valid() {
		return orb.Point{}
	}
	return orb.Point{*p.Longitude, *p.Latitude}
}

// ThemeOption is one selectable tour theme, derived from a raw label→description pair.
type ThemeOption struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// SuggestionState is the observable state of the suggestion fetcher.
type SuggestionState struct {
	Items      []ThemeOption `json:"items"`
	IsLoading  bool          `json:"is_loading"`
	HasFetched bool          `json:"has_fetched"`
}

// TourStatus describes the generation lifecycle of a tour session.
type TourStatus string

const (
	// TourStatusPending means generation has started but the introduction is not yet available.
	TourStatusPending TourStatus = "pending"
	// TourStatusReady means the introduction is populated. The transition is irreversible.
	TourStatusReady TourStatus = "ready"
)

// POI is one stop of a generated tour.
type POI struct {
	Order         int        `json:"order"`
	Title         string     `json:"poi_title"`
	Address       string     `json:"address,omitempty"`
	GPSLocation   *orb.Point `json:"gps_location,omitempty"`
	ImageURL      string     `json:"google_place_img_url,omitempty"`
	NarrationText string     `json:"story"`
	PlaceID       string     `json:"google_place_id,omitempty"`
}

// Locatable reports whether the POI carries a resolvable location
// (an address or a place identifier).
func (p POI) Locatable() bool {
	return p.Address != "" || p.PlaceID != ""
}

// Tour is a generated tour as returned by the generation service.
type Tour struct {
	ID           string     `json:"id"`
	Status       TourStatus `json:"-"`
	Introduction string     `json:"introduction"`
	POIs         []POI      `json:"pois"`
}

// SortedPOIs returns the canonical stop sequence: POIs ascending by Order.
func (t *Tour) SortedPOIs() []POI {
	pois := make([]POI, len(t.POIs))
	copy(pois, t.POIs)
	sort.Slice(pois, func(i, j int) bool { return pois[i].Order < pois[j].Order })
	return pois
}

// CameraPose is a map viewport pose. Center is (lon, lat) per orb convention.
type CameraPose struct {
	Center  orb.Point `json:"center"`
	Zoom    float64   `json:"zoom"`
	Tilt    float64   `json:"tilt"`
	Heading float64   `json:"heading"`
}

// PlaybackState is the observable state of the narration audio controller.
type PlaybackState struct {
	Text      string `json:"text"`
	AudioPath string `json:"audio_path,omitempty"`
	IsLoading bool   `json:"is_loading"`
	IsPlaying bool   `json:"is_playing"`
}
