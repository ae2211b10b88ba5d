package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// shiprocketTokenTTL: Shiprocket tokens are valid for 10 days; refresh a day
// early.
const shiprocketTokenTTL = 9 * 24 * time.Hour

// ShiprocketProvider integrates the Shiprocket carrier API. Creation may
// already yield an AWB, so after every create the order info is re-fetched to
// extract shipment id / AWB / courier before deciding whether a separate
// assignment call is needed.
type ShiprocketProvider struct {
	baseURL    string
	email      string
	password   string
	httpClient *http.Client
	creds      credentialCache
	actions    *ActionLogger
	logger     *zap.Logger
}

func NewShiprocketProvider(baseURL, email, password string, actions *ActionLogger, logger *zap.Logger) *ShiprocketProvider {
	return &ShiprocketProvider{
		baseURL:    baseURL,
		email:      email,
		password:   password,
		httpClient: newHTTPClient(),
		actions:    actions,
		logger:     logger,
	}
}

func (p *ShiprocketProvider) Name() string { return ProviderShiprocket }

// ---- Shiprocket API request/response structs ----

type shiprocketLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type shiprocketLoginResponse struct {
	Token string `json:"token"`
}

type shiprocketOrderItem struct {
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	Units        int     `json:"units"`
	SellingPrice float64 `json:"selling_price"`
}

type shiprocketCreateOrderRequest struct {
	OrderID        string                `json:"order_id"`
	OrderDate      string                `json:"order_date"`
	BillingName    string                `json:"billing_customer_name"`
	BillingAddress string                `json:"billing_address"`
	BillingCity    string                `json:"billing_city"`
	BillingState   string                `json:"billing_state"`
	BillingPincode string                `json:"billing_pincode"`
	BillingCountry string                `json:"billing_country"`
	BillingPhone   string                `json:"billing_phone"`
	BillingEmail   string                `json:"billing_email,omitempty"`
	ShippingIsBill bool                  `json:"shipping_is_billing"`
	Items          []shiprocketOrderItem `json:"order_items"`
	PaymentMethod  string                `json:"payment_method"`
	SubTotal       float64               `json:"sub_total"`
	Length         float64               `json:"length"`
	Breadth        float64               `json:"breadth"`
	Height         float64               `json:"height"`
	Weight         float64               `json:"weight"` // kg
}

type shiprocketCreateOrderResponse struct {
	OrderID     int64  `json:"order_id"`
	ShipmentID  int64  `json:"shipment_id"`
	Status      string `json:"status"`
	AWBCode     string `json:"awb_code"`
	CourierName string `json:"courier_name"`
	Message     string `json:"message"`
}

type shiprocketOrderInfoResponse struct {
	Data struct {
		ID        int64  `json:"id"`
		Status    string `json:"status"`
		Shipments struct {
			ID      int64  `json:"id"`
			AWB     string `json:"awb"`
			Courier string `json:"courier"`
		} `json:"shipments"`
	} `json:"data"`
}

type shiprocketAssignAWBRequest struct {
	ShipmentID int64 `json:"shipment_id"`
}

type shiprocketAssignAWBResponse struct {
	AWBAssignStatus int `json:"awb_assign_status"`
	Response        struct {
		Data struct {
			AWBCode     string `json:"awb_code"`
			CourierName string `json:"courier_name"`
		} `json:"data"`
	} `json:"response"`
	Message string `json:"message"`
}

type shiprocketTrackResponse struct {
	TrackingData struct {
		ShipmentTrack []struct {
			AWBCode       string `json:"awb_code"`
			CurrentStatus string `json:"current_status"`
		} `json:"shipment_track"`
	} `json:"tracking_data"`
}

type shiprocketCancelRequest struct {
	AWBs []string `json:"awbs"`
}

// ---- ShippingProvider implementation ----

func (p *ShiprocketProvider) Authenticate(ctx context.Context) error {
	if _, ok := p.creds.get(); ok {
		return nil
	}

	var resp shiprocketLoginResponse
	if err := p.call(ctx, "login", nil, http.MethodPost, "/v1/external/auth/login",
		shiprocketLoginRequest{Email: p.email, Password: p.password}, &resp); err != nil {
		return err
	}
	if resp.Token == "" {
		return &UpstreamError{Provider: p.Name(), Status: http.StatusUnauthorized, Message: "login rejected"}
	}

	p.creds.set(resp.Token, shiprocketTokenTTL)
	return nil
}

func (p *ShiprocketProvider) CreateOrder(ctx context.Context, req *ShipmentRequest) (*ShipmentResult, error) {
	if err := p.Authenticate(ctx); err != nil {
		return nil, err
	}

	subtotal := 0.0
	items := make([]shiprocketOrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		subtotal += it.SellingPrice * float64(it.Quantity)
		items = append(items, shiprocketOrderItem{
			Name:         it.Name,
			SKU:          it.SKU,
			Units:        it.Quantity,
			SellingPrice: it.SellingPrice,
		})
	}

	payload := shiprocketCreateOrderRequest{
		OrderID:        req.OrderNumber,
		OrderDate:      time.Now().Format("2006-01-02 15:04"),
		BillingName:    req.CustomerName,
		BillingAddress: req.AddressLine,
		BillingCity:    req.City,
		BillingState:   req.State,
		BillingPincode: req.Pincode,
		BillingCountry: "India",
		BillingPhone:   req.Phone,
		BillingEmail:   req.Email,
		ShippingIsBill: true,
		Items:          items,
		PaymentMethod:  "Prepaid",
		SubTotal:       subtotal,
		Length:         req.LengthCm,
		Breadth:        req.WidthCm,
		Height:         req.HeightCm,
		Weight:         req.WeightKg,
	}

	var created shiprocketCreateOrderResponse
	_, err := p.callRaw(ctx, "create_order", &req.OrderID, http.MethodPost, "/v1/external/orders/create/adhoc", payload, &created)
	if err != nil {
		return nil, err
	}
	if created.OrderID == 0 {
		return nil, &UpstreamError{Provider: p.Name(), Status: http.StatusBadGateway, Message: created.Message}
	}

	// The create response alone is not authoritative: shipment metadata (and
	// sometimes the AWB) only appears on the order-info view.
	info, raw, err := p.orderInfo(ctx, &req.OrderID, created.OrderID)
	if err != nil {
		// Order exists upstream; return what the create call gave us.
		p.logger.Warn("Shiprocket order info fetch failed after create",
			zap.Int64("provider_order_id", created.OrderID),
			zap.Error(err),
		)
		return &ShipmentResult{
			ProviderOrderID:    strconv.FormatInt(created.OrderID, 10),
			ProviderShipmentID: formatID(created.ShipmentID),
			AWB:                created.AWBCode,
			CourierName:        created.CourierName,
		}, nil
	}

	result := &ShipmentResult{
		ProviderOrderID:    strconv.FormatInt(created.OrderID, 10),
		ProviderShipmentID: formatID(info.Data.Shipments.ID),
		AWB:                info.Data.Shipments.AWB,
		CourierName:        info.Data.Shipments.Courier,
		Raw:                raw,
	}
	if result.ProviderShipmentID == "" {
		result.ProviderShipmentID = formatID(created.ShipmentID)
	}
	return result, nil
}

func (p *ShiprocketProvider) AssignAWB(ctx context.Context, prev *ShipmentResult) (*ShipmentResult, error) {
	if err := p.Authenticate(ctx); err != nil {
		return nil, err
	}

	shipmentID, err := strconv.ParseInt(prev.ProviderShipmentID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("shiprocket: invalid shipment id %q", prev.ProviderShipmentID)
	}

	var resp shiprocketAssignAWBResponse
	raw, err := p.callRaw(ctx, "assign_awb", nil, http.MethodPost, "/v1/external/courier/assign/awb",
		shiprocketAssignAWBRequest{ShipmentID: shipmentID}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Response.Data.AWBCode == "" {
		return nil, &UpstreamError{Provider: p.Name(), Status: http.StatusBadGateway, Message: resp.Message}
	}

	out := *prev
	out.AWB = resp.Response.Data.AWBCode
	out.CourierName = resp.Response.Data.CourierName
	out.Raw = raw
	return &out, nil
}

func (p *ShiprocketProvider) Track(ctx context.Context, awb string) (*TrackResult, error) {
	if err := p.Authenticate(ctx); err != nil {
		return nil, err
	}

	var resp shiprocketTrackResponse
	raw, err := p.callRaw(ctx, "track", nil, http.MethodGet, "/v1/external/courier/track/awb/"+awb, nil, &resp)
	if err != nil {
		return nil, err
	}

	status := ""
	if len(resp.TrackingData.ShipmentTrack) > 0 {
		status = resp.TrackingData.ShipmentTrack[0].CurrentStatus
	}
	return &TrackResult{AWB: awb, CarrierStatus: status, Raw: raw}, nil
}

func (p *ShiprocketProvider) Cancel(ctx context.Context, awb string) error {
	if err := p.Authenticate(ctx); err != nil {
		return err
	}
	return p.call(ctx, "cancel", nil, http.MethodPost, "/v1/external/orders/cancel/shipment/awbs",
		shiprocketCancelRequest{AWBs: []string{awb}}, nil)
}

// orderInfo re-fetches the provider's view of an order to pick up embedded
// shipment metadata.
func (p *ShiprocketProvider) orderInfo(ctx context.Context, orderID *uuid.UUID, providerOrderID int64) (*shiprocketOrderInfoResponse, json.RawMessage, error) {
	var resp shiprocketOrderInfoResponse
	raw, err := p.callRaw(ctx, "order_info", orderID, http.MethodGet,
		"/v1/external/orders/show/"+strconv.FormatInt(providerOrderID, 10), nil, &resp)
	if err != nil {
		return nil, nil, err
	}
	return &resp, raw, nil
}

// ---- HTTP helpers ----

func (p *ShiprocketProvider) call(ctx context.Context, action string, orderID *uuid.UUID, method, path string, body, out interface{}) error {
	_, err := p.callRaw(ctx, action, orderID, method, path, body, out)
	return err
}

func (p *ShiprocketProvider) callRaw(ctx context.Context, action string, orderID *uuid.UUID, method, path string, body, out interface{}) (json.RawMessage, error) {
	headers := map[string]string{}
	if token, ok := p.creds.get(); ok {
		headers["Authorization"] = "Bearer " + token
	}

	reqBytes, respBytes, status, err := doJSON(ctx, p.httpClient, method, p.baseURL+path, headers, body)

	p.actions.Record(ctx, ActionEntry{
		Provider:   p.Name(),
		Action:     action,
		OrderID:    orderID,
		Request:    reqBytes,
		Response:   respBytes,
		HTTPStatus: status,
		Err:        err,
	})

	if err != nil {
		return nil, &UpstreamError{Provider: p.Name(), Status: status, Message: err.Error()}
	}
	if status == http.StatusUnauthorized {
		p.creds.clear()
	}
	if status < 200 || status >= 300 {
		return nil, &UpstreamError{Provider: p.Name(), Status: status, Message: string(respBytes)}
	}

	if out != nil {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return nil, fmt.Errorf("shiprocket: decode response: %w", err)
		}
	}
	return json.RawMessage(respBytes), nil
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
