package search

import (
	"errors"
	"testing"
)

func f64(v float64) *float64 { return &v }

func TestFilters_LabelAndParams(t *testing.T) {
	price := PriceBrackets["1-3 ล้าน"]
	area := AreaBrackets["100+ ตรม"]
	f := Filters{PropertyType: "คอนโด", Location: " กรุงเทพ ", Price: &price, Area: &area}

	if f.IsZero() {
		t.Fatalf("filters should not be zero")
	}
	if got, want := f.Label(), "คอนโด กรุงเทพ 1-3 ล้าน 100+ ตรม"; got != want {
		t.Fatalf("Label()=%q want %q", got, want)
	}

	p := f.Params()
	if p.Query != f.Label() {
		t.Fatalf("Params().Query=%q", p.Query)
	}
	if *p.MinPrice != 1_000_000 || *p.MaxPrice != 3_000_000 {
		t.Fatalf("price bounds unexpected: %v %v", *p.MinPrice, *p.MaxPrice)
	}
	if *p.MinArea != 100 || p.MaxArea != nil {
		t.Fatalf("area bounds unexpected: %v %v", p.MinArea, p.MaxArea)
	}
}

func TestFilters_ZeroAndPartial(t *testing.T) {
	if !(Filters{}).IsZero() {
		t.Fatalf("zero filters should be zero")
	}
	if !(Filters{PropertyType: "  "}).IsZero() {
		t.Fatalf("blank strings count as unset")
	}
	under := PriceBrackets["< 1 ล้าน"]
	f := Filters{Price: &under}
	if f.Label() != "ไม่เกิน 1 ล้าน" {
		t.Fatalf("Label()=%q", f.Label())
	}
	p := f.Params()
	if p.MinPrice != nil || *p.MaxPrice != 1_000_000 {
		t.Fatalf("unexpected bounds: %v %v", p.MinPrice, p.MaxPrice)
	}
}

func TestFilters_UnlabelledRangeSearchesDefaultQuery(t *testing.T) {
	f := Filters{Area: &Bracket{Min: f64(40)}}
	if f.IsZero() || f.Label() != "" {
		t.Fatalf("IsZero=%v Label=%q", f.IsZero(), f.Label())
	}
	p := f.Params()
	if p.Query != DefaultQuery {
		t.Fatalf("Params().Query=%q want %q", p.Query, DefaultQuery)
	}
	if p.MinArea == nil || *p.MinArea != 40 || p.MaxArea != nil {
		t.Fatalf("unexpected bounds: %v %v", p.MinArea, p.MaxArea)
	}
}

func TestParams_Validate(t *testing.T) {
	cases := []struct {
		name string
		p    Params
		ok   bool
	}{
		{"empty", Params{}, true},
		{"ordered", Params{MinPrice: f64(1), MaxPrice: f64(2)}, true},
		{"equal", Params{MinArea: f64(5), MaxArea: f64(5)}, true},
		{"inverted price", Params{MinPrice: f64(3), MaxPrice: f64(2)}, false},
		{"inverted area", Params{MinArea: f64(3), MaxArea: f64(2)}, false},
		{"negative", Params{MaxPrice: f64(-1)}, false},
		{"negative topk", Params{TopK: -1}, false},
	}
	for _, tc := range cases {
		err := tc.p.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("%s: expected ErrInvalidRange, got %v", tc.name, err)
		}
	}
}

func TestParams_Values(t *testing.T) {
	v := Params{Query: "villa", MinPrice: f64(1500000), MaxArea: f64(80.5), TopK: 5}.Values()
	if v.Get("query") != "villa" || v.Get("min_price") != "1500000" || v.Get("max_area") != "80.5" || v.Get("top_k") != "5" {
		t.Fatalf("unexpected values: %v", v)
	}
	if v.Has("max_price") || v.Has("min_area") {
		t.Fatalf("unset bounds must be omitted: %v", v)
	}
	if !(Params{}).Values().Has("query") {
		t.Fatalf("query key must always be present")
	}
}

func TestParseBound(t *testing.T) {
	if v, err := ParseBound(" "); v != nil || err != nil {
		t.Fatalf("blank should be nil,nil: %v %v", v, err)
	}
	if v, err := ParseBound("2500000"); err != nil || *v != 2500000 {
		t.Fatalf("parse: %v %v", v, err)
	}
	if _, err := ParseBound("abc"); err == nil {
		t.Fatalf("expected parse error")
	}
}
