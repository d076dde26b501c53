// Package models defines the data structures for fangnote listings and tasks.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RentOrSale is the transaction kind of a listing.
type RentOrSale string

const (
	Rent RentOrSale = "Rent"
	Sale RentOrSale = "Sale"
)

// Price is a listing price that may be a number (5000) or a free-text marker
// such as "面议". It round-trips both forms through JSON.
type Price struct {
	Amount float64
	Text   string // non-empty when the price is not numeric
}

// NumericPrice returns a numeric price value.
func NumericPrice(amount float64) Price {
	return Price{Amount: amount}
}

// TextPrice returns a non-numeric price marker, e.g. "面议".
func TextPrice(text string) Price {
	return Price{Text: text}
}

func (p Price) String() string {
	if p.Text != "" {
		return p.Text
	}
	return strconv.FormatFloat(p.Amount, 'f', -1, 64)
}

// MarshalJSON writes a number for numeric prices and a string otherwise.
func (p Price) MarshalJSON() ([]byte, error) {
	if p.Text != "" {
		return json.Marshal(p.Text)
	}
	return json.Marshal(p.Amount)
}

// UnmarshalJSON accepts either a JSON number or a string. Numeric strings
// ("5000") are normalized to numbers.
func (p *Price) UnmarshalJSON(data []byte) error {
	var amount float64
	if err := json.Unmarshal(data, &amount); err == nil {
		*p = Price{Amount: amount}
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("price must be a number or string: %w", err)
	}
	if amount, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
		*p = Price{Amount: amount}
		return nil
	}
	*p = Price{Text: text}
	return nil
}

// Listing holds the structured fields of one real-estate listing.
// Only CommunityName and RentOrSale are guaranteed by the extraction schema;
// everything else may be empty or zero.
type Listing struct {
	CommunityName   string     `json:"communityName"`
	Price           Price      `json:"price"`
	RentOrSale      RentOrSale `json:"rentOrSale"`
	Layout          string     `json:"layout"`
	Area            float64    `json:"area"`
	Floor           string     `json:"floor"`
	Orientation     string     `json:"orientation"`
	ContactName     string     `json:"contactName"`
	ContactPhone    string     `json:"contactPhone"`
	AdditionalNotes string     `json:"additionalNotes"`
}

// Summary derives the short log description of a listing,
// e.g. "天通苑 2室1厅 5000元".
func (l Listing) Summary() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s %s元", l.CommunityName, l.Layout, l.Price))
}
