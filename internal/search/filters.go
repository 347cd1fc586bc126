package search

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
)

// Bracket is a labelled numeric range. Label is the human phrase folded into
// a derived query; nil bounds are open.
type Bracket struct {
	Label string   `json:"label"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

func bound(v float64) *float64 { return &v }

// PriceBrackets are the selectable price ranges (THB), keyed by option value.
var PriceBrackets = map[string]Bracket{
	"< 1 ล้าน":  {Label: "ไม่เกิน 1 ล้าน", Max: bound(1_000_000)},
	"1-3 ล้าน":  {Label: "1-3 ล้าน", Min: bound(1_000_000), Max: bound(3_000_000)},
	"3-5 ล้าน":  {Label: "3-5 ล้าน", Min: bound(3_000_000), Max: bound(5_000_000)},
	"5-10 ล้าน": {Label: "5-10 ล้าน", Min: bound(5_000_000), Max: bound(10_000_000)},
	"> 10 ล้าน": {Label: "มากกว่า 10 ล้าน", Min: bound(10_000_000)},
}

// AreaBrackets are the selectable floor-area ranges (square metres).
var AreaBrackets = map[string]Bracket{
	"30-50 ตรม":  {Label: "30-50 ตรม", Min: bound(30), Max: bound(50)},
	"50-100 ตรม": {Label: "50-100 ตรม", Min: bound(50), Max: bound(100)},
	"100+ ตรม":   {Label: "100+ ตรม", Min: bound(100)},
}

// Filters is the structured alternative to a free-text query. The zero value
// means "no filters".
type Filters struct {
	PropertyType string   `json:"propertyType,omitempty"`
	Location     string   `json:"location,omitempty"`
	Price        *Bracket `json:"price,omitempty"`
	Area         *Bracket `json:"area,omitempty"`
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return strings.TrimSpace(f.PropertyType) == "" &&
		strings.TrimSpace(f.Location) == "" &&
		f.Price == nil && f.Area == nil
}

// Label composes the derived query string from the filter labels in a fixed
// order: type, location, price, area.
func (f Filters) Label() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{f.PropertyType, f.Location} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	for _, b := range []*Bracket{f.Price, f.Area} {
		if b != nil && strings.TrimSpace(b.Label) != "" {
			parts = append(parts, strings.TrimSpace(b.Label))
		}
	}
	return strings.Join(parts, " ")
}

// Params converts the filters into engine parameters with Label as the query.
// Filters that carry only unlabelled ranges search for DefaultQuery.
func (f Filters) Params() Params {
	p := Params{Query: f.Label()}
	if p.Query == "" {
		p.Query = DefaultQuery
	}
	if f.Price != nil {
		p.MinPrice, p.MaxPrice = f.Price.Min, f.Price.Max
	}
	if f.Area != nil {
		p.MinArea, p.MaxArea = f.Area.Min, f.Area.Max
	}
	return p
}

// ErrInvalidRange is returned when a lower bound exceeds its upper bound or a
// bound is negative.
var ErrInvalidRange = errors.New("invalid range")

// Params is the parameter set of a hybrid search.
type Params struct {
	Query    string
	MinPrice *float64
	MaxPrice *float64
	MinArea  *float64
	MaxArea  *float64
	TopK     int // 0 lets the engine decide
}

// Validate checks that ranges are non-negative and ordered.
func (p Params) Validate() error {
	for _, v := range []*float64{p.MinPrice, p.MaxPrice, p.MinArea, p.MaxArea} {
		if v != nil && *v < 0 {
			return ErrInvalidRange
		}
	}
	if p.MinPrice != nil && p.MaxPrice != nil && *p.MinPrice > *p.MaxPrice {
		return ErrInvalidRange
	}
	if p.MinArea != nil && p.MaxArea != nil && *p.MinArea > *p.MaxArea {
		return ErrInvalidRange
	}
	if p.TopK < 0 {
		return ErrInvalidRange
	}
	return nil
}

// Values encodes p as the engine's query string. The query key is sent even
// when empty so the engine can apply its own default.
func (p Params) Values() url.Values {
	v := url.Values{}
	v.Set("query", p.Query)
	setFloat(v, "min_price", p.MinPrice)
	setFloat(v, "max_price", p.MaxPrice)
	setFloat(v, "min_area", p.MinArea)
	setFloat(v, "max_area", p.MaxArea)
	if p.TopK > 0 {
		v.Set("top_k", strconv.Itoa(p.TopK))
	}
	return v
}

func setFloat(v url.Values, key string, f *float64) {
	if f != nil {
		v.Set(key, strconv.FormatFloat(*f, 'f', -1, 64))
	}
}

// ParseBound parses an optional numeric query parameter. Empty input yields
// nil.
func ParseBound(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
