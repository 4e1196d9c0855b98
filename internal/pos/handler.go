// Package pos implements the host side of the voice workflow: the cart
// being assembled, partner selection, and the dispatch of pipeline results
// into cart mutations and spoken Vietnamese confirmations.
//
// The pipeline core stays ignorant of all of this — it only hands over a
// voice.Result. Everything the shopkeeper hears is phrased here.
package pos

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/quangvo/agripos/internal/pos/partnermatch"
	"github.com/quangvo/agripos/internal/voice"
	"github.com/quangvo/agripos/internal/voice/intent"
	"github.com/quangvo/agripos/pkg/catalog"
	"github.com/quangvo/agripos/pkg/speech"
)

// defaultLocale is the synthesis locale for confirmations.
const defaultLocale = "vi-VN"

// OrderSubmitter posts completed sales. *catalog.Client satisfies this
// interface.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, o catalog.Order) error
}

// Handler consumes voice.Result values and applies them to the cart,
// speaking exactly one confirmation (or apology) per result. Safe for
// concurrent use, though results arrive one at a time in practice.
type Handler struct {
	cart     *Cart
	partners func() []catalog.Partner
	matcher  *partnermatch.Matcher
	synth    speech.Synthesizer
	orders   OrderSubmitter
	locale   string

	mu       sync.Mutex
	selected *catalog.Partner
}

// HandlerOption configures a [Handler].
type HandlerOption func(*Handler)

// WithLocale overrides the synthesis locale. Default: "vi-VN".
func WithLocale(locale string) HandlerOption {
	return func(h *Handler) {
		h.locale = locale
	}
}

// NewHandler creates a Handler. partners supplies the live partner list for
// spoken customer selection; orders may be nil, in which case checkout only
// clears the cart locally.
func NewHandler(cart *Cart, partners func() []catalog.Partner, matcher *partnermatch.Matcher, synth speech.Synthesizer, orders OrderSubmitter, opts ...HandlerOption) *Handler {
	h := &Handler{
		cart:     cart,
		partners: partners,
		matcher:  matcher,
		synth:    synth,
		orders:   orders,
		locale:   defaultLocale,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// SelectedPartner returns the currently selected customer, or nil for a
// walk-in sale.
func (h *Handler) SelectedPartner() *catalog.Partner {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.selected
}

// HandleResult dispatches one pipeline result. Dispatch is by intent kind;
// the Success flag only matters for AddItem, where it distinguishes a
// resolved product from a spoken "not found".
func (h *Handler) HandleResult(ctx context.Context, r voice.Result) {
	switch r.Intent.Kind {
	case intent.KindCommand:
		h.handleCommand(ctx, r.Intent.Command)
	case intent.KindSetPartner:
		h.handleSetPartner(ctx, r.Intent.PartnerPhrase)
	case intent.KindAdjust:
		h.handleAdjust(ctx, r.Intent)
	case intent.KindAddItem:
		h.handleAddItem(ctx, r)
	}
}

func (h *Handler) handleCommand(ctx context.Context, cmd intent.Command) {
	switch cmd {
	case intent.CommandClearCart:
		h.cart.Clear()
		h.speak(ctx, "Đã xóa sạch giỏ hàng")
	case intent.CommandCheckout:
		if h.cart.Len() == 0 {
			h.speak(ctx, "Giỏ hàng đang trống, chưa có gì để thanh toán ạ")
			return
		}
		h.speak(ctx, "Đang thực hiện thanh toán")
		if err := h.checkout(ctx); err != nil {
			slog.Error("pos: checkout failed", "err", err)
		}
	case intent.CommandHoldOrder:
		h.cart.Clear()
		h.speak(ctx, "Đã lưu đơn tạm thời")
	}
}

func (h *Handler) handleSetPartner(ctx context.Context, phrase string) {
	partner, score, ok := h.matcher.Match(phrase, h.partners())
	if !ok {
		h.speak(ctx, "Dạ em không tìm thấy khách hàng nào tên là "+phrase)
		return
	}
	h.mu.Lock()
	h.selected = partner
	h.mu.Unlock()
	slog.Info("pos: partner selected", "partner", partner.Name, "score", score)
	h.speak(ctx, "Đã chọn khách hàng "+partner.Name)
}

func (h *Handler) handleAdjust(ctx context.Context, in intent.Intent) {
	line, ok := h.cart.AdjustLast(in.Quantity)
	if !ok {
		h.speak(ctx, "Giỏ hàng đang trống, em không biết bớt hàng gì ạ")
		return
	}
	action := "cộng thêm"
	if in.Quantity < 0 {
		action = "bớt đi"
	}
	unit := in.Unit
	if unit == "" {
		unit = line.Unit
	}
	h.speak(ctx, fmt.Sprintf("Đã %s %s %s cho %s",
		action, formatQty(abs(in.Quantity)), unit, line.Product.Name))
}

func (h *Handler) handleAddItem(ctx context.Context, r voice.Result) {
	if !r.Success || r.Product == nil {
		h.speak(ctx, "Dạ em không tìm thấy sản phẩm nào tên là "+r.Intent.ProductPhrase)
		return
	}
	h.cart.Add(*r.Product, r.Intent.Quantity, r.Intent.Unit)
	unit := r.Intent.Unit
	if unit == "" {
		unit = r.Product.Unit
	}
	h.speak(ctx, fmt.Sprintf("Đã thêm %s %s %s",
		formatQty(r.Intent.Quantity), unit, r.Product.Name))
}

// checkout posts the cart as an order and clears local state on success.
// Partner sales go on the ledger (Debt); walk-ins pay cash in full.
func (h *Handler) checkout(ctx context.Context) error {
	lines := h.cart.Lines()
	total := h.cart.Total()
	partner := h.SelectedPartner()

	if h.orders != nil {
		order := catalog.Order{
			Type:          "Sale",
			PaymentMethod: "Cash",
			AmountPaid:    total,
			TotalAmount:   total,
		}
		if partner != nil {
			order.PartnerID = partner.ID
			order.PaymentMethod = "Debt"
			order.AmountPaid = 0
		}
		for _, l := range lines {
			order.Details = append(order.Details, catalog.OrderLine{
				ProductID: l.Product.ID,
				Quantity:  l.Quantity,
				Price:     l.Price,
			})
		}
		if err := h.orders.SubmitOrder(ctx, order); err != nil {
			return err
		}
	}

	h.cart.Clear()
	h.mu.Lock()
	h.selected = nil
	h.mu.Unlock()
	return nil
}

// speak issues one confirmation utterance. The synthesizer cancels any
// utterance still playing, so feedback never overlaps.
func (h *Handler) speak(ctx context.Context, text string) {
	if h.synth == nil {
		return
	}
	if err := h.synth.Speak(ctx, text, h.locale); err != nil {
		slog.Warn("pos: speak failed", "err", err)
	}
}

// formatQty renders a quantity without trailing zeros ("5", "2.5").
func formatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
