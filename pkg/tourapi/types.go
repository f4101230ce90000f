package tourapi

import "tourflow/pkg/model"

// ThemeOptionsRequest asks the backend for theme suggestions. Either the
// coordinates or the address form is used depending on UseCoordinates.
type ThemeOptionsRequest struct {
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	Address        string   `json:"address,omitempty"`
	UseCoordinates bool     `json:"use_coordinates"`
}

// ThemeOptionsResponse carries the raw label→description mapping plus the
// human-readable address the backend resolved for the request.
type ThemeOptionsResponse struct {
	Themes  map[string]string `json:"themes"`
	Address string            `json:"address"`
}

// Constraints describe the user's tour request for guardrail validation.
type Constraints struct {
	MaxTime     string `json:"max_time"`
	Distance    string `json:"distance"`
	CustomTheme string `json:"custom_theme"`
	Address     string `json:"address"`
}

// GuardrailRequest wraps the constraints for the validation endpoint.
type GuardrailRequest struct {
	Constraints Constraints `json:"constraints"`
}

// GuardrailResponse is the validation verdict. A valid request yields the
// transaction id the generation poller consumes.
type GuardrailResponse struct {
	Valid         bool   `json:"valid"`
	TransactionID string `json:"transaction_id"`
}

// GeneratePOIRequest asks the backend for candidate POIs (manual flow).
type GeneratePOIRequest struct {
	Latitude    float64        `json:"latitude"`
	Longitude   float64        `json:"longitude"`
	Constraints POIConstraints `json:"constraints"`
}

// POIConstraints are the free-form constraint strings of the manual flow.
type POIConstraints struct {
	Time           string `json:"time"`
	Distance       string `json:"distance"`
	UserCustomInfo string `json:"user_custom_info"`
}

// CandidatePOI is an unverified POI suggestion.
type CandidatePOI struct {
	Title   string `json:"poi_title"`
	Address string `json:"poi_address"`
}

// GeneratePOIResponse carries the resolved user address and candidate POIs.
type GeneratePOIResponse struct {
	UserAddress string         `json:"user_address"`
	POIs        []CandidatePOI `json:"pois"`
}

// FilterPOIRequest asks the backend to verify candidate POIs against reality.
type FilterPOIRequest struct {
	POIs []CandidatePOI `json:"pois"`
}

// FilterPOIResponse carries the verified subset and counts.
type FilterPOIResponse struct {
	VerifiedPOIs  []CandidatePOI `json:"verified_pois"`
	TotalInput    int            `json:"total_input"`
	TotalVerified int            `json:"total_verified"`
}

// SynthesisResponse names the audio resource produced for a narration text.
type SynthesisResponse struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// tourWire is the backend's tour representation.
type tourWire struct {
	ID           string    `json:"id"`
	Introduction string    `json:"introduction"`
	POIs         []poiWire `json:"pois"`
}

type poiWire struct {
	Order       int        `json:"order"`
	Title       string     `json:"poi_title"`
	Address     string     `json:"address"`
	GPSLocation *gpsWire   `json:"gps_location"`
	ImageURL    string     `json:"google_place_img_url"`
	Story       string     `json:"story"`
	PlaceID     string     `json:"google_place_id"`
}

type gpsWire struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (t *tourWire) toModel() *model.Tour {
	tour := &model.Tour{
		ID:           t.ID,
		Introduction: t.Introduction,
		Status:       model.TourStatusPending,
	}
	if t.Introduction != "" {
		tour.Status = model.TourStatusReady
	}
	for _, p := range t.POIs {
		poi := model.POI{
			Order:         p.Order,
			Title:         p.Title,
			Address:       p.Address,
			ImageURL:      p.ImageURL,
			NarrationText: p.Story,
			PlaceID:       p.PlaceID,
		}
		if p.GPSLocation != nil {
			pt := gpsPoint(p.GPSLocation.Lat, p.GPSLocation.Lng)
			poi.GPSLocation = &pt
		}
		tour.POIs = append(tour.POIs, poi)
	}
	return tour
}
