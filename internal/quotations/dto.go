package quotations

type ProductLineRequest struct {
	Code           string  `json:"code" validate:"max=60"`
	VendorCode     string  `json:"vendor_code" validate:"max=60"`
	Description    string  `json:"description" validate:"required"`
	Specifications string  `json:"specifications"`
	PrintDetails   string  `json:"print_details"`
	DeliveryTime   string  `json:"delivery_time" validate:"max=120"`
	Quantity       int     `json:"quantity" validate:"gte=0"`
	VendorCost     float64 `json:"vendor_cost"`
	PrintCost      float64 `json:"print_cost"`
	ProfitMargin   float64 `json:"profit_margin" validate:"gte=0,lt=100"`
	ExtraProfit    bool    `json:"extra_profit"`
	LineOrder      int     `json:"line_order" validate:"gte=0"`
}

type PaymentTermsRequest struct {
	AdvancePercent     float64 `json:"advance_percent" validate:"gte=0,lte=100"`
	LiquidationPercent float64 `json:"liquidation_percent" validate:"gte=0,lte=100"`
	CreditTimeDays     int     `json:"credit_time_days" validate:"gte=0"`
	ValidityDays       int     `json:"validity_days" validate:"gte=0"`
}

type CreateQuotationRequest struct {
	CustomerID int64                `json:"customer_id" validate:"required,gt=0"`
	AdvisorID  int64                `json:"advisor_id" validate:"required,gt=0"`
	AddressID  *int64               `json:"address_id,omitempty"`
	CompanyID  int64                `json:"company_id" validate:"required,gt=0"`
	Terms      PaymentTermsRequest  `json:"terms"`
	Lines      []ProductLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type UpdateQuotationRequest struct {
	AddressID *int64                `json:"address_id,omitempty"`
	Terms     *PaymentTermsRequest  `json:"terms,omitempty"`
	Lines     *[]ProductLineRequest `json:"lines,omitempty" validate:"omitempty,min=1,dive"`
}

type ListQuotationsRequest struct {
	Status     *Status `json:"status,omitempty"`
	CustomerID *int64  `json:"customer_id,omitempty"`
	LatestOnly bool    `json:"latest_only,omitempty"`
	Limit      int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int     `json:"offset" validate:"gte=0"`
}

type ChangeStatusRequest struct {
	Status Status `json:"status" validate:"required"`
}

type CreateVersionRequest struct {
	Notes *string `json:"notes,omitempty"`
}

func (r ProductLineRequest) toLine() ProductLine {
	return ProductLine{
		Code:           r.Code,
		VendorCode:     r.VendorCode,
		Description:    r.Description,
		Specifications: r.Specifications,
		PrintDetails:   r.PrintDetails,
		DeliveryTime:   r.DeliveryTime,
		Quantity:       r.Quantity,
		VendorCost:     r.VendorCost,
		PrintCost:      r.PrintCost,
		ProfitMargin:   r.ProfitMargin,
		ExtraProfit:    r.ExtraProfit,
		LineOrder:      r.LineOrder,
	}
}

func (r PaymentTermsRequest) toTerms() PaymentTerms {
	return PaymentTerms{
		AdvancePercent:     r.AdvancePercent,
		LiquidationPercent: r.LiquidationPercent,
		CreditTimeDays:     r.CreditTimeDays,
		ValidityDays:       r.ValidityDays,
	}
}
