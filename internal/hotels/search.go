package hotels

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Per-search limits. Occupancies repeat the whole party per room, so the
// upstream body grows with rooms times children.
const (
	MaxRooms    = 9
	MaxAdults   = 30
	MaxChildren = 10
)

const (
	dateLayout = "2006-01-02"

	defaultAdults = 2
	defaultRooms  = 1
	childAge      = 8

	defaultCategory = "3"
	defaultCatName  = "Hotel"
	defaultCurrency = "EUR"
)

var (
	// ErrMissingParams is returned when destination or a stay date is empty.
	ErrMissingParams = errors.New("missing required parameters: destination, checkIn, checkOut")
	// ErrInvalidDates is returned for malformed or inverted stay dates.
	ErrInvalidDates = errors.New("checkIn and checkOut must be YYYY-MM-DD with checkOut after checkIn")
	// ErrInvalidOccupancy is returned for negative or oversized guest and
	// room counts.
	ErrInvalidOccupancy = errors.New("adults must be 0-30, children 0-10 and rooms 0-9")
)

// SearchRequest is the body of POST /api/hotels/search. Zero Adults and Rooms
// select 2 and 1.
type SearchRequest struct {
	Destination string `json:"destination"`
	CheckIn     string `json:"checkIn"`
	CheckOut    string `json:"checkOut"`
	Adults      int    `json:"adults"`
	Children    int    `json:"children"`
	Rooms       int    `json:"rooms"`
}

// Validate reports whether req can be sent upstream.
func (req SearchRequest) Validate() error {
	_, err := req.normalized()
	return err
}

func (req SearchRequest) normalized() (SearchRequest, error) {
	req.Destination = strings.TrimSpace(req.Destination)
	if req.Destination == "" || req.CheckIn == "" || req.CheckOut == "" {
		return req, ErrMissingParams
	}
	in, errIn := time.Parse(dateLayout, req.CheckIn)
	out, errOut := time.Parse(dateLayout, req.CheckOut)
	if errIn != nil || errOut != nil || !out.After(in) {
		return req, ErrInvalidDates
	}
	if req.Adults < 0 || req.Adults > MaxAdults ||
		req.Children < 0 || req.Children > MaxChildren ||
		req.Rooms < 0 || req.Rooms > MaxRooms {
		return req, ErrInvalidOccupancy
	}
	if req.Adults == 0 {
		req.Adults = defaultAdults
	}
	if req.Rooms == 0 {
		req.Rooms = defaultRooms
	}
	return req, nil
}

type availabilityRequest struct {
	Stay        stay        `json:"stay"`
	Occupancies []occupancy `json:"occupancies"`
	Destination destination `json:"destination"`
	Filter      filter      `json:"filter"`
}

type stay struct {
	CheckIn  string `json:"checkIn"`
	CheckOut string `json:"checkOut"`
}

type occupancy struct {
	Rooms    int   `json:"rooms"`
	Adults   int   `json:"adults"`
	Children int   `json:"children"`
	Paxes    []pax `json:"paxes,omitempty"`
}

type pax struct {
	Type string `json:"type"`
	Age  int    `json:"age"`
}

type destination struct {
	Code string `json:"code"`
}

type filter struct {
	MaxRates int `json:"maxRates"`
	MinRate  int `json:"minRate"`
	MaxRate  int `json:"maxRate"`
}

// upstream builds the availability body: one occupancy per room, each with
// the full party.
func (req SearchRequest) upstream() availabilityRequest {
	var paxes []pax
	for i := 0; i < req.Children; i++ {
		paxes = append(paxes, pax{Type: "CH", Age: childAge})
	}

	occupancies := make([]occupancy, 0, req.Rooms)
	for i := 0; i < req.Rooms; i++ {
		occupancies = append(occupancies, occupancy{
			Rooms:    1,
			Adults:   req.Adults,
			Children: req.Children,
			Paxes:    paxes,
		})
	}

	return availabilityRequest{
		Stay:        stay{CheckIn: req.CheckIn, CheckOut: req.CheckOut},
		Occupancies: occupancies,
		Destination: destination{Code: req.Destination},
		Filter:      filter{MaxRates: 50, MinRate: 0, MaxRate: 1000},
	}
}

// Hotel is one search result.
type Hotel struct {
	Code            string   `json:"code"`
	Name            string   `json:"name"`
	DestinationName string   `json:"destinationName"`
	CategoryCode    string   `json:"categoryCode"`
	CategoryName    string   `json:"categoryName"`
	MinRate         float64  `json:"minRate"`
	MaxRate         float64  `json:"maxRate"`
	Currency        string   `json:"currency"`
	Images          []string `json:"images"`
	Description     string   `json:"description"`
	Rating          float64  `json:"rating"`
	Amenities       []string `json:"amenities"`
}

type availabilityResponse struct {
	Hotels struct {
		Hotels []upstreamHotel `json:"hotels"`
	} `json:"hotels"`
}

type content struct {
	Content string `json:"content"`
}

type upstreamHotel struct {
	Code            flexString `json:"code"`
	Name            string     `json:"name"`
	DestinationName string     `json:"destinationName"`
	ZoneName        string     `json:"zoneName"`
	CategoryCode    string     `json:"categoryCode"`
	CategoryName    string     `json:"categoryName"`
	MinRate         flexFloat  `json:"minRate"`
	MaxRate         flexFloat  `json:"maxRate"`
	Currency        string     `json:"currency"`
	Images          []struct {
		Path string `json:"path"`
	} `json:"images"`
	Description *content `json:"description"`
	Facilities  []struct {
		Description  *content   `json:"description"`
		FacilityCode flexString `json:"facilityCode"`
	} `json:"facilities"`
}

func (r availabilityResponse) reshape() []Hotel {
	hotels := make([]Hotel, 0, len(r.Hotels.Hotels))
	for _, h := range r.Hotels.Hotels {
		out := Hotel{
			Code:            string(h.Code),
			Name:            h.Name,
			DestinationName: firstNonEmpty(h.DestinationName, h.ZoneName),
			CategoryCode:    firstNonEmpty(h.CategoryCode, defaultCategory),
			CategoryName:    firstNonEmpty(h.CategoryName, defaultCatName),
			MinRate:         float64(h.MinRate),
			MaxRate:         float64(h.MaxRate),
			Currency:        firstNonEmpty(h.Currency, defaultCurrency),
			Images:          make([]string, 0, len(h.Images)),
			Amenities:       make([]string, 0, len(h.Facilities)),
		}
		out.Rating = categoryRating(out.CategoryCode)
		if h.Description != nil {
			out.Description = h.Description.Content
		}
		for _, img := range h.Images {
			out.Images = append(out.Images, img.Path)
		}
		for _, f := range h.Facilities {
			name := string(f.FacilityCode)
			if f.Description != nil && f.Description.Content != "" {
				name = f.Description.Content
			}
			out.Amenities = append(out.Amenities, name)
		}
		hotels = append(hotels, out)
	}
	return hotels
}

// categoryRating reads the leading number of a category code such as "4EST"
// or "3.5". Codes without one rate as zero.
func categoryRating(code string) float64 {
	end := 0
	dot := false
	for end < len(code) {
		c := code[end]
		if c == '.' && !dot {
			dot = true
		} else if c < '0' || c > '9' {
			break
		}
		end++
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(code[:end], "."), 64)
	if err != nil {
		return 0
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
