package upstream

// ---------------------------------------------------------------------------
// Raw Platform Payloads
// ---------------------------------------------------------------------------
//
// These value objects mirror the platform wire format. Both ingestion paths
// (webhook push and polling sweep) deliver the same shape, so normalization
// is shared. Monetary fields stay strings here; the normalizer parses them
// into fixed-point decimals.

// RawOrder is an order as delivered by the platform.
type RawOrder struct {
	ID                int64              `json:"id"`
	OrderNumber       int64              `json:"order_number"`
	Name              string             `json:"name"`
	FinancialStatus   string             `json:"financial_status"`
	FulfillmentStatus string             `json:"fulfillment_status"`
	SubtotalPrice     string             `json:"subtotal_price"`
	TotalPrice        string             `json:"total_price"`
	Currency          string             `json:"currency"`
	CreatedAt         string             `json:"created_at"`
	UpdatedAt         string             `json:"updated_at"`
	TrackingNumbers   []string           `json:"tracking_numbers,omitempty"`
	TrackingURLs      []string           `json:"tracking_urls,omitempty"`
	LineItems         []RawLineItem      `json:"line_items"`
	Fulfillments      []RawFulfillment   `json:"fulfillments,omitempty"`
	NoteAttributes    []RawNoteAttribute `json:"note_attributes,omitempty"`
	CustomAttributes  []RawNoteAttribute `json:"custom_attributes,omitempty"`
	Customer          *RawCustomer       `json:"customer,omitempty"`
	ShippingAddress   *RawAddress        `json:"shipping_address,omitempty"`
}

// RawLineItem is a single line item on a raw order.
type RawLineItem struct {
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// RawFulfillment is a fulfillment record attached to a raw order.
type RawFulfillment struct {
	Status          string   `json:"status"`
	TrackingNumber  string   `json:"tracking_number"`
	TrackingNumbers []string `json:"tracking_numbers,omitempty"`
	TrackingURL     string   `json:"tracking_url"`
	TrackingURLs    []string `json:"tracking_urls,omitempty"`
}

// RawNoteAttribute is a name/value pair attached to a raw order.
type RawNoteAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RawCustomer is the buyer identity attached to a raw order.
type RawCustomer struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// RawAddress is the delivery address attached to a raw order.
type RawAddress struct {
	Name     string `json:"name"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Province string `json:"province"`
	Country  string `json:"country"`
	Zip      string `json:"zip"`
	Phone    string `json:"phone"`
}
