// Package catalog resolves heterogeneous sale lines (products, labor services,
// bundled packages, ad-hoc external charges) into priced snapshots, and expands
// package bundles into their stock-bearing components.
package catalog

// LineType discriminates the tagged union behind a transaction line. EXTERNAL
// lines reference nothing persisted; the others reference their own table.
type LineType string

const (
	LineProduct  LineType = "PRODUCT"
	LineService  LineType = "SERVICE"
	LinePackage  LineType = "PACKAGE"
	LineExternal LineType = "EXTERNAL"
)

// LineRequest is one requested sale line before resolution. RefID is unused for
// EXTERNAL lines; ItemName/BasePrice/VendorName are used only for EXTERNAL.
type LineRequest struct {
	Type         LineType `json:"type" validate:"required,oneof=PRODUCT SERVICE PACKAGE EXTERNAL"`
	RefID        int64    `json:"ref_id,omitempty"`
	Qty          int      `json:"qty" validate:"required,gt=0"`
	UnitDiscount float64  `json:"discount" validate:"gte=0"`
	ItemName     string   `json:"item_name,omitempty"`
	BasePrice    float64  `json:"base_price,omitempty"`
	VendorName   string   `json:"vendor_name,omitempty"`
}

// ComponentRequirement is a stock requirement produced by package expansion:
// sell this line, and Qty units of ProductID must leave stock.
type ComponentRequirement struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

// ResolvedLine is the priced, cost-snapshotted result of resolving one line.
// Prices are per unit; CostPrice is the cost basis frozen at resolution time.
// Components lists the products the line moves out of stock (empty for
// SERVICE/EXTERNAL, the product itself for PRODUCT, the expansion for PACKAGE).
type ResolvedLine struct {
	Type           LineType               `json:"type"`
	RefID          int64                  `json:"ref_id,omitempty"`
	Name           string                 `json:"name"`
	Qty            int                    `json:"qty"`
	BasePrice      float64                `json:"base_price"`
	DiscountAmount float64                `json:"discount_amount"`
	SellPrice      float64                `json:"sell_price"`
	CostPrice      float64                `json:"cost_price"`
	VendorName     string                 `json:"vendor_name,omitempty"`
	Components     []ComponentRequirement `json:"components,omitempty"`
}

// Availability reasons for package advisory checks.
const (
	ReasonInsufficientStock = "INSUFFICIENT_STOCK"
	ReasonDeletedComponent  = "DELETED_COMPONENT"
)

// Availability is the read-only advisory answer for "can this package be sold
// at this multiplier right now". The commit-time stock check remains
// authoritative.
type Availability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	ProductID int64  `json:"product_id,omitempty"`
}
