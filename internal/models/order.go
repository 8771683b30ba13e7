package models

import "time"

// LineItem is one ordered product extracted from a document. InternalPrice and
// Differential are nil until the pricing comparison stage runs; afterwards both
// are always set. Differential is per unit: UnitPrice minus InternalPrice.
type LineItem struct {
	ProductCode   string   `json:"product_code"`
	Description   string   `json:"description"`
	Quantity      int      `json:"quantity"`
	UnitPrice     float64  `json:"unit_price"`
	LineTotal     float64  `json:"line_total"`
	InternalPrice *float64 `json:"internal_price,omitempty"`
	Differential  *float64 `json:"differential,omitempty"`
}

// OrderRecord is the structured order produced by the extraction stage.
type OrderRecord struct {
	OrderNumber  string      `json:"order_number,omitempty"`
	CustomerName string      `json:"customer_name,omitempty"`
	DeliveryDate *time.Time  `json:"delivery_date,omitempty"`
	Currency     string      `json:"currency"`
	TotalAmount  float64     `json:"total_amount"`
	Items        []*LineItem `json:"items"`
}

// Clone deep-copies the record so a pipeline run can enrich items without
// mutating the extractor's canonical payload.
func (o *OrderRecord) Clone() *OrderRecord {
	if o == nil {
		return nil
	}
	cp := *o
	if o.DeliveryDate != nil {
		d := *o.DeliveryDate
		cp.DeliveryDate = &d
	}
	cp.Items = make([]*LineItem, 0, len(o.Items))
	for _, item := range o.Items {
		ic := *item
		if item.InternalPrice != nil {
			v := *item.InternalPrice
			ic.InternalPrice = &v
		}
		if item.Differential != nil {
			v := *item.Differential
			ic.Differential = &v
		}
		cp.Items = append(cp.Items, &ic)
	}
	return &cp
}

// DifferentialSummary holds the order-level totals computed by the aggregation
// stage. DifferentialPct is nil when the order value is zero: the percentage is
// undefined there, and must never surface as NaN or Inf.
type DifferentialSummary struct {
	TotalOrderValue   float64  `json:"total_order_value"`
	TotalInternalCost float64  `json:"total_internal_cost"`
	TotalDifferential float64  `json:"total_differential"`
	DifferentialPct   *float64 `json:"differential_percentage,omitempty"`
}
