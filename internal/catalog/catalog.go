// Package catalog holds the fixed pricing tiers and add-ons offered at
// checkout. Prices are KRW integers; the set never changes at runtime.
package catalog

import (
	"fmt"
	"sort"
)

type Package struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Emoji         string   `json:"emoji"`
	Price         int64    `json:"price"`
	OriginalPrice int64    `json:"originalPrice"`
	Discount      int      `json:"discount"`
	Description   string   `json:"description"`
	Includes      []string `json:"includes"`
	DeliveryHours int      `json:"deliveryHours"`
	Badge         string   `json:"badge,omitempty"`
	// MessageLimit caps the parent's message length for this tier.
	MessageLimit int `json:"messageLimit"`
}

type AddOn struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
}

var packages = map[string]Package{
	"tripwire": {
		ID:            "tripwire",
		Name:          "Santa Snapshot",
		Emoji:         "📸",
		Price:         1900,
		OriginalPrice: 5000,
		Discount:      62,
		Description:   "One photo of Santa visiting your home",
		Includes:      []string{"1 composited Santa photo", "High-res download", "Delivered within 24h"},
		DeliveryHours: 24,
		MessageLimit:  80,
	},
	"core": {
		ID:            "core",
		Name:          "Santa Gift Set",
		Emoji:         "🎁",
		Price:         9900,
		OriginalPrice: 25000,
		Discount:      60,
		Description:   "3 photos + nice-list certificate",
		Includes:      []string{"3 composited Santa photos", "Nice-list certificate with the child's name", "High-res download", "Delivered within 12h"},
		DeliveryHours: 12,
		Badge:         "Most popular ⭐",
		MessageLimit:  80,
	},
	"premium": {
		ID:            "premium",
		Name:          "Santa Magic Video",
		Emoji:         "🎬",
		Price:         24900,
		OriginalPrice: 59000,
		Discount:      58,
		Description:   "Photos + video letter + full premium package",
		Includes:      []string{"5 composited Santa photos", "Video letter calling the child by name", "Premium nice-list certificate", "Santa voice message", "Priority delivery within 6h"},
		DeliveryHours: 6,
		Badge:         "VIP 👑",
		MessageLimit:  100,
	},
}

var addOns = map[string]AddOn{
	"certificate": {
		ID:          "certificate",
		Name:        "Nice-list certificate",
		Price:       2900,
		Description: "Printable certificate signed by Santa",
	},
	"extraPhotos": {
		ID:          "extraPhotos",
		Name:        "2 extra photos",
		Price:       2900,
		Description: "Two more Santa photos from different angles",
	},
	"rush": {
		ID:          "rush",
		Name:        "Rush delivery",
		Price:       4900,
		Description: "Jump the queue, delivered first",
	},
	"letter": {
		ID:          "letter",
		Name:        "Letter from Santa",
		Price:       3900,
		Description: "Personalized letter mentioning the child by name",
	},
}

// Currency is the display currency for all catalog prices.
const Currency = "KRW"

func GetPackage(id string) (Package, bool) {
	p, ok := packages[id]
	return p, ok
}

func GetAddOn(id string) (AddOn, bool) {
	a, ok := addOns[id]
	return a, ok
}

// Packages returns all tiers sorted by price ascending.
func Packages() []Package {
	out := make([]Package, 0, len(packages))
	for _, p := range packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

// AddOns returns all add-ons sorted by id.
func AddOns() []AddOn {
	out := make([]AddOn, 0, len(addOns))
	for _, a := range addOns {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NormalizeAddOns collapses duplicates and sorts the selection so that two
// orders with the same add-ons compare equal regardless of click order.
// Unknown ids are rejected.
func NormalizeAddOns(ids []string) ([]string, error) {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := addOns[id]; !ok {
			return nil, fmt.Errorf("unknown add-on %q", id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Quote is the server-side price computation for a package plus add-ons.
type Quote struct {
	PackageID     string
	AddOns        []string
	BasePrice     int64
	TotalPrice    int64
	OriginalPrice int64
	Savings       int64
}

// ComputeQuote prices a selection. total = base + sum of add-on prices;
// savings = originalPrice - total, display only.
func ComputeQuote(packageID string, addOnIDs []string) (Quote, error) {
	pkg, ok := packages[packageID]
	if !ok {
		return Quote{}, fmt.Errorf("unknown package %q", packageID)
	}

	normalized, err := NormalizeAddOns(addOnIDs)
	if err != nil {
		return Quote{}, err
	}

	total := pkg.Price
	original := pkg.OriginalPrice
	for _, id := range normalized {
		a := addOns[id]
		total += a.Price
		original += a.Price
	}

	return Quote{
		PackageID:     packageID,
		AddOns:        normalized,
		BasePrice:     pkg.Price,
		TotalPrice:    total,
		OriginalPrice: original,
		Savings:       original - total,
	}, nil
}
