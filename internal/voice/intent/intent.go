// Package intent classifies normalized Vietnamese utterances into structured
// POS intents.
//
// Classification is a flat cascade of ordered rules — the first matching rule
// wins and there is no backtracking. The rule set is small and deliberately
// order-sensitive: system commands outrank everything, partner selection
// outranks item patterns, and the specific quantity+unit patterns must run
// before the loose quantity+text pattern so that "2 bao đạm" keeps its unit
// out of the product phrase.
package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/quangvo/agripos/internal/voice/lexicon"
)

// Kind discriminates the Intent variants. Exactly one kind is assigned per
// classification pass.
type Kind string

const (
	// KindCommand is a cart-level system command (clear, checkout, hold).
	KindCommand Kind = "COMMAND"

	// KindSetPartner selects the customer for the current order by name.
	KindSetPartner Kind = "SET_PARTNER"

	// KindAdjust changes the quantity of the most recently added cart line.
	KindAdjust Kind = "ADJUST"

	// KindAddItem adds a product to the cart.
	KindAddItem Kind = "ADD_ITEM"
)

// Command identifies which system command was spoken.
type Command string

const (
	CommandClearCart Command = "CLEAR_CART"
	CommandCheckout  Command = "CHECKOUT"
	CommandHoldOrder Command = "HOLD_ORDER"
)

// Intent is the classified meaning of one finalized utterance. Values are
// constructed once by [Classify] and never mutated.
type Intent struct {
	// Kind selects which of the remaining fields are meaningful.
	Kind Kind

	// Command is set for KindCommand.
	Command Command

	// PartnerPhrase is the spoken customer name for KindSetPartner, passed
	// through untruncated for host-side lookup.
	PartnerPhrase string

	// Quantity is the item count for KindAddItem, or the signed delta for
	// KindAdjust.
	Quantity float64

	// Unit is the spoken sale unit. Empty when the utterance carried none.
	Unit string

	// ProductPhrase is the free-text product name for KindAddItem, to be
	// resolved against the catalog.
	ProductPhrase string
}

// systemCommands maps each command to its trigger keyword set. Checked by
// substring containment in this order; the first keyword hit anywhere in the
// utterance wins.
var systemCommands = []struct {
	command  Command
	keywords []string
}{
	{CommandClearCart, []string{"xóa đơn", "xóa hết", "hủy đơn", "làm mới"}},
	{CommandCheckout, []string{"thanh toán", "tính tiền", "chốt đơn"}},
	{CommandHoldOrder, []string{"lưu đơn", "tạm giữ", "đợi tí"}},
}

// negativePrefixes flip the quantity sign when they open the utterance.
// Only the first matching prefix is stripped.
var negativePrefixes = []string{"bớt", "trừ", "giảm", "xóa bớt"}

// fillers are conversational lead-ins stripped before quantity parsing.
// Each filler is checked once, in order, against the current remainder —
// so several may be stripped cumulatively but no filler is applied twice.
var fillers = []string{"bán cho em", "bán cho anh", "bán cho chú", "lấy cho", "thêm", "cho", "mình mua"}

var (
	partnerRe = regexp.MustCompile(`^(bán cho|khách là|tên là)\s+(.+)$`)

	unitAlt  = strings.Join(lexicon.Units, "|")
	fullRe   = regexp.MustCompile(`^(\d+)\s+(` + unitAlt + `)\s+(.+)$`)
	adjustRe = regexp.MustCompile(`^(\d+)\s+(` + unitAlt + `)$`)
	simpleRe = regexp.MustCompile(`^(\d+)\s+(.+)$`)
)

// Classify maps a normalized utterance to its Intent. It never fails: the
// final fallback rule turns any unmatched text into an AddItem with quantity
// one and the whole text as the product phrase.
//
// The input is expected to already be lowercased and number-normalized by
// [lexicon.Normalize]; Classify does not re-normalize.
func Classify(text string) Intent {
	clean := strings.TrimSpace(text)

	// Rule 1: system commands beat everything, including numeric patterns,
	// so "thanh toán 2 chai" still checks out.
	for _, sc := range systemCommands {
		for _, kw := range sc.keywords {
			if strings.Contains(clean, kw) {
				return Intent{Kind: KindCommand, Command: sc.command}
			}
		}
	}

	// Rule 2: partner selection.
	if m := partnerRe.FindStringSubmatch(clean); m != nil {
		return Intent{Kind: KindSetPartner, PartnerPhrase: strings.TrimSpace(m[2])}
	}

	// Rule 3: negative-adjustment prefix. Sets the sign and strips the
	// first matching keyword only.
	sign := 1.0
	for _, kw := range negativePrefixes {
		if strings.HasPrefix(clean, kw) {
			sign = -1
			clean = strings.TrimSpace(strings.TrimPrefix(clean, kw))
			break
		}
	}

	// Rule 4: filler stripping.
	for _, f := range fillers {
		if strings.HasPrefix(clean, f) {
			clean = strings.TrimSpace(strings.TrimPrefix(clean, f))
		}
	}

	// Rule 5: quantity + unit + product.
	if m := fullRe.FindStringSubmatch(clean); m != nil {
		return Intent{
			Kind:          KindAddItem,
			Quantity:      parseQty(m[1]) * sign,
			Unit:          m[2],
			ProductPhrase: strings.TrimSpace(m[3]),
		}
	}

	// Rule 6: quantity + unit with no product names an adjustment to the
	// last cart line. Checked before the loose quantity+text rule, which
	// would otherwise read the unit as a product phrase.
	if m := adjustRe.FindStringSubmatch(clean); m != nil {
		return Intent{
			Kind:     KindAdjust,
			Quantity: parseQty(m[1]) * sign,
			Unit:     m[2],
		}
	}

	// Rule 7: quantity + product.
	if m := simpleRe.FindStringSubmatch(clean); m != nil {
		return Intent{
			Kind:          KindAddItem,
			Quantity:      parseQty(m[1]) * sign,
			ProductPhrase: strings.TrimSpace(m[2]),
		}
	}

	// Rule 8: fallback — the whole text is a product phrase, quantity one.
	return Intent{Kind: KindAddItem, Quantity: 1, ProductPhrase: clean}
}

// parseQty converts the digit group of a matched rule. The regexes guarantee
// the input is all digits, so conversion cannot fail.
func parseQty(digits string) float64 {
	n, _ := strconv.Atoi(digits)
	return float64(n)
}
