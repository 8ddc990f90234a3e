package events

// Topic constants for domain events emitted by the checkout service.
const (
	TopicOrderCreated    = "order.created"
	TopicVoucherRedeemed = "voucher.redeemed"
)

// Topics lists every topic Record accepts.
var Topics = []string{TopicOrderCreated, TopicVoucherRedeemed}

// OrderCreated is the payload of TopicOrderCreated.
type OrderCreated struct {
	OrderID     string `json:"order_id"`
	OdID        string `json:"od_id"`
	CustomerID  string `json:"customer_id,omitempty"`
	FinalTotal  int64  `json:"final_total"`
	VoucherCode string `json:"voucher_code,omitempty"`
	RankName    string `json:"rank_name,omitempty"`
}

// VoucherRedeemed is the payload of TopicVoucherRedeemed.
type VoucherRedeemed struct {
	Code     string `json:"code"`
	OrderID  string `json:"order_id"`
	Discount int64  `json:"discount"`
}
