// Package httppresentation is the thin JSON facade over the checkout engine.
// It extracts identity from trusted headers, decodes payloads, and maps the
// engine's typed errors to status codes. No business rules live here.
package httppresentation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	appcart "github.com/ryzenix/pharmacart/internal/application/cart"
	apporder "github.com/ryzenix/pharmacart/internal/application/order"
	domaincart "github.com/ryzenix/pharmacart/internal/domain/cart"
	"github.com/ryzenix/pharmacart/internal/domain/errs"
	domainorder "github.com/ryzenix/pharmacart/internal/domain/order"
	"github.com/ryzenix/pharmacart/internal/observability"
)

const (
	headerSessionID = "X-Session-ID"
	headerUserID    = "X-User-ID"
	headerUserRole  = "X-User-Role"
)

// Roles allowed to act on other users' orders. Supplied by the external
// identity layer; trusted as-is.
var privilegedRoles = map[string]bool{
	"pharmacist": true,
	"superuser":  true,
}

type Handler struct {
	carts  *appcart.Service
	orders *apporder.Service
	log    *zap.Logger
	tel    observability.Telemetry
}

func NewHandler(carts *appcart.Service, orders *apporder.Service, log *zap.Logger, tel observability.Telemetry) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Handler{carts: carts, orders: orders, log: log, tel: tel}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.handleHealth)

	mux.HandleFunc("GET /cart", h.handleGetCart)
	mux.HandleFunc("POST /cart/items", h.handleAddCartItem)
	mux.HandleFunc("PUT /cart/items/{productID}", h.handleUpdateCartItem)
	mux.HandleFunc("DELETE /cart/items/{productID}", h.handleRemoveCartItem)
	mux.HandleFunc("DELETE /cart", h.handleClearCart)
	mux.HandleFunc("POST /cart/sync", h.handleSyncCart)

	mux.HandleFunc("POST /orders", h.handleCreateOrder)
	mux.HandleFunc("GET /orders", h.handleListOrders)
	mux.HandleFunc("GET /orders/{id}", h.handleGetOrder)
	mux.HandleFunc("POST /orders/{id}/cancel", h.handleCancelOrder)
	mux.HandleFunc("PUT /orders/{id}/status", h.handleUpdateStatus)
	mux.HandleFunc("PUT /orders/{id}/payment-status", h.handleUpdatePaymentStatus)

	return h.withObservability(mux)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- cart ---

type cartItemResponse struct {
	ProductID            string    `json:"productId"`
	Quantity             int       `json:"quantity"`
	Price                int64     `json:"price"`
	StockQuantity        int       `json:"stockQuantity"`
	RequiresPrescription bool      `json:"requiresPrescription"`
	Image                string    `json:"image,omitempty"`
	Manufacturer         string    `json:"manufacturer,omitempty"`
	Category             string    `json:"category,omitempty"`
	AddedAt              time.Time `json:"addedAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

type cartResponse struct {
	Items       []cartItemResponse `json:"items"`
	TotalAmount int64              `json:"totalAmount"`
	TotalItems  int                `json:"totalItems"`
}

func toCartResponse(c *domaincart.Cart) cartResponse {
	resp := cartResponse{
		Items:       make([]cartItemResponse, 0, len(c.Items)),
		TotalAmount: c.TotalAmount,
		TotalItems:  c.TotalItems,
	}
	for _, item := range c.Items {
		resp.Items = append(resp.Items, cartItemResponse{
			ProductID:            item.ProductID,
			Quantity:             item.Quantity,
			Price:                item.Price,
			StockQuantity:        item.StockQuantity,
			RequiresPrescription: item.RequiresPrescription,
			Image:                item.Image,
			Manufacturer:         item.Manufacturer,
			Category:             item.Category,
			AddedAt:              item.AddedAt,
			UpdatedAt:            item.UpdatedAt,
		})
	}
	return resp
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	sid := r.Header.Get(headerSessionID)
	if sid == "" {
		h.writeError(w, r, errs.MissingFields(headerSessionID))
		return "", false
	}
	return sid, true
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	c, err := h.carts.Get(r.Context(), sid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.carts.AddItem(r.Context(), sid, req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.carts.UpdateItem(r.Context(), sid, r.PathValue("productID"), req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	c, err := h.carts.RemoveItem(r.Context(), sid, r.PathValue("productID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	c, err := h.carts.Clear(r.Context(), sid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) handleSyncCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req struct {
		Items []struct {
			ProductID string    `json:"productId"`
			Quantity  int       `json:"quantity"`
			AddedAt   time.Time `json:"addedAt"`
		} `json:"items"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	external := make([]appcart.ExternalItem, 0, len(req.Items))
	for _, item := range req.Items {
		external = append(external, appcart.ExternalItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			AddedAt:   item.AddedAt,
		})
	}
	c, err := h.carts.Sync(r.Context(), sid, external)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// --- orders ---

type orderItemResponse struct {
	ID                   string `json:"id"`
	ProductID            string `json:"productId"`
	Quantity             int    `json:"quantity"`
	UnitPrice            int64  `json:"unitPrice"`
	TotalPrice           int64  `json:"totalPrice"`
	ProductTitle         string `json:"productTitle"`
	ProductSKU           string `json:"productSku,omitempty"`
	RequiresPrescription bool   `json:"requiresPrescription"`
}

type orderResponse struct {
	ID                    string              `json:"id"`
	UserID                string              `json:"userId"`
	Status                string              `json:"status"`
	Items                 []orderItemResponse `json:"items"`
	TotalAmount           int64               `json:"totalAmount"`
	PaymentMethod         string              `json:"paymentMethod"`
	PaymentStatus         string              `json:"paymentStatus"`
	ShippingMethod        string              `json:"shippingMethod"`
	ShippingCost          int64               `json:"shippingCost"`
	ShippingAddress       string              `json:"shippingAddress"`
	BillingAddress        string              `json:"billingAddress,omitempty"`
	Notes                 string              `json:"notes,omitempty"`
	PrescriptionRequired  bool                `json:"prescriptionRequired"`
	PrescriptionID        string              `json:"prescriptionId,omitempty"`
	CancellationReason    string              `json:"cancellationReasonCode,omitempty"`
	EstimatedDeliveryDate *time.Time          `json:"estimatedDeliveryDate,omitempty"`
	CreatedAt             time.Time           `json:"createdAt"`
	UpdatedAt             time.Time           `json:"updatedAt"`
}

func toOrderResponse(o *domainorder.Order) orderResponse {
	resp := orderResponse{
		ID:                   o.ID,
		UserID:               o.UserID,
		Status:               string(o.Status),
		Items:                make([]orderItemResponse, 0, len(o.Items)),
		TotalAmount:          o.TotalAmount,
		PaymentMethod:        string(o.PaymentMethod),
		PaymentStatus:        string(o.PaymentStatus),
		ShippingMethod:       string(o.ShippingMethod),
		ShippingCost:         o.ShippingCost,
		ShippingAddress:      o.ShippingAddress,
		BillingAddress:       o.BillingAddress,
		Notes:                o.Notes,
		PrescriptionRequired: o.PrescriptionRequired,
		PrescriptionID:       o.PrescriptionID,
		CancellationReason:   string(o.CancellationReason),
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
	if !o.EstimatedDeliveryDate.IsZero() {
		t := o.EstimatedDeliveryDate
		resp.EstimatedDeliveryDate = &t
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ID:                   item.ID,
			ProductID:            item.ProductID,
			Quantity:             item.Quantity,
			UnitPrice:            item.UnitPrice,
			TotalPrice:           item.TotalPrice,
			ProductTitle:         item.ProductTitle,
			ProductSKU:           item.ProductSKU,
			RequiresPrescription: item.RequiresPrescription,
		})
	}
	return resp
}

func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (userID string, privileged bool, ok bool) {
	userID = r.Header.Get(headerUserID)
	if userID == "" {
		h.writeError(w, r, errs.MissingFields(headerUserID))
		return "", false, false
	}
	return userID, privilegedRoles[r.Header.Get(headerUserRole)], true
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req struct {
		Items []struct {
			ProductID  string `json:"productId"`
			Quantity   int    `json:"quantity"`
			UnitPrice  int64  `json:"unitPrice"`
			ProductSKU string `json:"productSku"`
		} `json:"items"`
		TotalAmount           int64     `json:"totalAmount"`
		ShippingAddress       string    `json:"shippingAddress"`
		BillingAddress        string    `json:"billingAddress"`
		Status                string    `json:"status"`
		PaymentMethod         string    `json:"paymentMethod"`
		PaymentStatus         string    `json:"paymentStatus"`
		ShippingMethod        string    `json:"shippingMethod"`
		ShippingCost          int64     `json:"shippingCost"`
		Notes                 string    `json:"notes"`
		EstimatedDeliveryDate time.Time `json:"estimatedDeliveryDate"`
		PrescriptionRequired  bool      `json:"prescriptionRequired"`
		PrescriptionID        string    `json:"prescriptionId"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	in := apporder.CreateInput{
		TotalAmount:           req.TotalAmount,
		ShippingAddress:       req.ShippingAddress,
		BillingAddress:        req.BillingAddress,
		Status:                req.Status,
		PaymentMethod:         req.PaymentMethod,
		PaymentStatus:         req.PaymentStatus,
		ShippingMethod:        req.ShippingMethod,
		ShippingCost:          req.ShippingCost,
		Notes:                 req.Notes,
		EstimatedDeliveryDate: req.EstimatedDeliveryDate,
		PrescriptionRequired:  req.PrescriptionRequired,
		PrescriptionID:        req.PrescriptionID,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, apporder.CreateItem{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			ProductSKU: item.ProductSKU,
		})
	}

	o, err := h.orders.Create(r.Context(), userID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	userID, privileged, ok := h.identity(w, r)
	if !ok {
		return
	}
	scope := userID
	if privileged {
		scope = ""
	}
	o, err := h.orders.Get(r.Context(), r.PathValue("id"), scope)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	userID, privileged, ok := h.identity(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	in := apporder.ListInput{
		OwnerScope:    userID,
		Status:        q.Get("status"),
		PaymentStatus: q.Get("paymentStatus"),
	}
	if privileged {
		in.OwnerScope = q.Get("userId")
	}
	in.Page, _ = strconv.Atoi(q.Get("page"))
	in.Limit, _ = strconv.Atoi(q.Get("limit"))
	if from := q.Get("createdFrom"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			in.CreatedFrom = t
		}
	}
	if to := q.Get("createdTo"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			in.CreatedTo = t
		}
	}

	page, err := h.orders.List(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	orders := make([]orderResponse, 0, len(page.Orders))
	for _, o := range page.Orders {
		orders = append(orders, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders": orders,
		"pagination": map[string]any{
			"total":       page.Total,
			"page":        page.Page,
			"limit":       page.Limit,
			"totalPages":  page.TotalPages,
			"hasNextPage": page.HasNextPage,
			"hasPrevPage": page.HasPrevPage,
		},
	})
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, privileged, ok := h.identity(w, r)
	if !ok {
		return
	}
	// Clients send the free text under either key.
	var req struct {
		Reason     string `json:"reason"`
		ReasonText string `json:"reasonText"`
		ReasonCode string `json:"reasonCode"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	reasonText := req.ReasonText
	if reasonText == "" {
		reasonText = req.Reason
	}

	o, err := h.orders.Cancel(r.Context(), apporder.CancelInput{
		OrderID:    r.PathValue("id"),
		ActorID:    userID,
		ReasonText: reasonText,
		ReasonCode: req.ReasonCode,
		Privileged: privileged,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !h.requirePrivileged(w, r) {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), req.Status); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

func (h *Handler) handleUpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	if !h.requirePrivileged(w, r) {
		return
	}
	var req struct {
		PaymentStatus string `json:"paymentStatus"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.orders.UpdatePaymentStatus(r.Context(), r.PathValue("id"), req.PaymentStatus); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"paymentStatus": req.PaymentStatus})
}

func (h *Handler) requirePrivileged(w http.ResponseWriter, r *http.Request) bool {
	_, privileged, ok := h.identity(w, r)
	if !ok {
		return false
	}
	if !privileged {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return false
	}
	return true
}

// --- plumbing ---

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		h.writeError(w, r, errs.Invalid("body", "malformed JSON payload"))
		return false
	}
	return true
}

// writeError maps the engine's typed errors onto status codes. Anything
// unrecognized is an infrastructure failure and stays opaque to the caller.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *errs.ValidationError
		notFound   *errs.NotFoundError
		business   *errs.BusinessLogicError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  validation.Message,
			"fields": validation.Fields,
		})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":    notFound.Error(),
			"resource": string(notFound.Resource),
			"id":       notFound.ID,
		})
	case errors.As(err, &business):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   business.Message,
			"code":    business.Code,
			"details": business.Details,
		})
	default:
		h.log.Error("internal_error",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
