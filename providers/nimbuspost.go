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

// nimbusTokenTTL is the advertised validity of a NimbusPost session token.
const nimbusTokenTTL = 12 * time.Hour

// NimbusPostProvider integrates the NimbusPost carrier API. The protocol is
// two-phase: order creation returns only a provider order id, and the AWB is
// obtained by a separate assignment call keyed by that id.
type NimbusPostProvider struct {
	baseURL    string
	email      string
	password   string
	httpClient *http.Client
	creds      credentialCache
	actions    *ActionLogger
	logger     *zap.Logger
}

func NewNimbusPostProvider(baseURL, email, password string, actions *ActionLogger, logger *zap.Logger) *NimbusPostProvider {
	return &NimbusPostProvider{
		baseURL:    baseURL,
		email:      email,
		password:   password,
		httpClient: newHTTPClient(),
		actions:    actions,
		logger:     logger,
	}
}

func (p *NimbusPostProvider) Name() string { return ProviderNimbusPost }

// ---- NimbusPost API request/response structs ----

type nimbusLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type nimbusLoginResponse struct {
	Status bool   `json:"status"`
	Data   string `json:"data"` // the session token
}

type nimbusOrderItem struct {
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	Quantity     int     `json:"qty"`
	SellingPrice float64 `json:"selling_price"`
}

type nimbusCreateOrderRequest struct {
	OrderNumber   string            `json:"order_number"`
	PaymentMethod string            `json:"payment_method"`
	Amount        float64           `json:"amount"`
	Consignee     nimbusConsignee   `json:"consignee"`
	Items         []nimbusOrderItem `json:"order_items"`
	Weight        float64           `json:"weight"` // grams
	Length        float64           `json:"length"`
	Breadth       float64           `json:"breadth"`
	Height        float64           `json:"height"`
}

type nimbusConsignee struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Phone   string `json:"phone"`
}

type nimbusCreateOrderResponse struct {
	Status bool `json:"status"`
	Data   struct {
		OrderID int64 `json:"order_id"`
	} `json:"data"`
	Message string `json:"message"`
}

type nimbusAssignAWBRequest struct {
	OrderID int64 `json:"order_id"`
}

type nimbusAssignAWBResponse struct {
	Status bool `json:"status"`
	Data   struct {
		AWBNumber   string `json:"awb_number"`
		CourierName string `json:"courier_name"`
		ShipmentID  int64  `json:"shipment_id"`
	} `json:"data"`
	Message string `json:"message"`
}

type nimbusTrackResponse struct {
	Status bool `json:"status"`
	Data   struct {
		AWBNumber string `json:"awb_number"`
		Status    string `json:"status"`
	} `json:"data"`
	Message string `json:"message"`
}

type nimbusCancelRequest struct {
	AWB string `json:"awb"`
}

type nimbusStatusResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// ---- ShippingProvider implementation ----

// Authenticate refreshes the cached session token when missing or expired.
func (p *NimbusPostProvider) Authenticate(ctx context.Context) error {
	if _, ok := p.creds.get(); ok {
		return nil
	}

	var resp nimbusLoginResponse
	if err := p.call(ctx, "login", nil, http.MethodPost, "/users/login",
		nimbusLoginRequest{Email: p.email, Password: p.password}, &resp); err != nil {
		return err
	}
	if !resp.Status || resp.Data == "" {
		return &UpstreamError{Provider: p.Name(), Status: http.StatusUnauthorized, Message: "login rejected"}
	}

	p.creds.set(resp.Data, nimbusTokenTTL)
	return nil
}

func (p *NimbusPostProvider) CreateOrder(ctx context.Context, req *ShipmentRequest) (*ShipmentResult, error) {
	if err := p.Authenticate(ctx); err != nil {
		return nil, err
	}

	amount := 0.0
	items := make([]nimbusOrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		amount += it.SellingPrice * float64(it.Quantity)
		items = append(items, nimbusOrderItem{
			Name:         it.Name,
			SKU:          it.SKU,
			Quantity:     it.Quantity,
			SellingPrice: it.SellingPrice,
		})
	}

	payload := nimbusCreateOrderRequest{
		OrderNumber:   req.OrderNumber,
		PaymentMethod: "prepaid",
		Amount:        amount,
		Consignee: nimbusConsignee{
			Name:    req.CustomerName,
			Address: req.AddressLine,
			City:    req.City,
			State:   req.State,
			Pincode: req.Pincode,
			Phone:   req.Phone,
		},
		Items:   items,
		Weight:  req.WeightKg * 1000,
		Length:  req.LengthCm,
		Breadth: req.WidthCm,
		Height:  req.HeightCm,
	}

	var resp nimbusCreateOrderResponse
	raw, err := p.callRaw(ctx, "create_order", &req.OrderID, http.MethodPost, "/shipments", payload, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Status || resp.Data.OrderID == 0 {
		return nil, &UpstreamError{Provider: p.Name(), Status: http.StatusBadGateway, Message: resp.Message}
	}

	return &ShipmentResult{
		ProviderOrderID: strconv.FormatInt(resp.Data.OrderID, 10),
		Raw:             raw,
	}, nil
}

func (p *NimbusPostProvider) AssignAWB(ctx context.Context, prev *ShipmentResult) (*ShipmentResult, error) {
	if err := p.Authenticate(ctx); err != nil {
		return nil, err
	}

	orderID, err := strconv.ParseInt(prev.ProviderOrderID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("nimbuspost: invalid provider order id %q", prev.ProviderOrderID)
	}

	var resp nimbusAssignAWBResponse
	raw, err := p.callRaw(ctx, "assign_awb", nil, http.MethodPost, "/shipments/awb",
		nimbusAssignAWBRequest{OrderID: orderID}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Status || resp.Data.AWBNumber == "" {
		return nil, &UpstreamError{Provider: p.Name(), Status: http.StatusBadGateway, Message: resp.Message}
	}

	out := *prev
	out.AWB = resp.Data.AWBNumber
	out.CourierName = resp.Data.CourierName
	if resp.Data.ShipmentID != 0 {
		out.ProviderShipmentID = strconv.FormatInt(resp.Data.ShipmentID, 10)
	}
	out.Raw = raw
	return &out, nil
}

func (p *NimbusPostProvider) Track(ctx context.Context, awb string) (*TrackResult, error) {
	if err := p.Authenticate(ctx); err != nil {
		return nil, err
	}

	var resp nimbusTrackResponse
	raw, err := p.callRaw(ctx, "track", nil, http.MethodGet, "/shipments/track/"+awb, nil, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, &UpstreamError{Provider: p.Name(), Status: http.StatusBadGateway, Message: resp.Message}
	}

	return &TrackResult{AWB: awb, CarrierStatus: resp.Data.Status, Raw: raw}, nil
}

func (p *NimbusPostProvider) Cancel(ctx context.Context, awb string) error {
	if err := p.Authenticate(ctx); err != nil {
		return err
	}

	var resp nimbusStatusResponse
	if err := p.call(ctx, "cancel", nil, http.MethodPost, "/shipments/cancel",
		nimbusCancelRequest{AWB: awb}, &resp); err != nil {
		return err
	}
	if !resp.Status {
		return &UpstreamError{Provider: p.Name(), Status: http.StatusBadGateway, Message: resp.Message}
	}
	return nil
}

// ---- HTTP helpers ----

func (p *NimbusPostProvider) call(ctx context.Context, action string, orderID *uuid.UUID, method, path string, body, out interface{}) error {
	_, err := p.callRaw(ctx, action, orderID, method, path, body, out)
	return err
}

// callRaw executes one API call, records it in the action log whatever the
// outcome, and decodes the response into out.
func (p *NimbusPostProvider) callRaw(ctx context.Context, action string, orderID *uuid.UUID, method, path string, body, out interface{}) (json.RawMessage, error) {
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
		// Stale token; next call re-authenticates.
		p.creds.clear()
	}
	if status < 200 || status >= 300 {
		return nil, &UpstreamError{Provider: p.Name(), Status: status, Message: string(respBytes)}
	}

	if out != nil {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return nil, fmt.Errorf("nimbuspost: decode response: %w", err)
		}
	}
	return json.RawMessage(respBytes), nil
}
