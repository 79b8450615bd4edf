package service

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"frontend-proxy-go/internal/model"
)

// Reasons an intercepted cart request yields no event.
const (
	skipMalformedBody  = "malformed_body"
	skipMissingProduct = "missing_product_id"
)

const (
	formFieldProductID = "product_id"
	formFieldQuantity  = "quantity"
)

var (
	errMalformedForm    = errors.New("cart body is not a url-encoded form")
	errMissingProductID = errors.New("cart form has no product_id")
)

// emitCartEvent builds the cart event for pr and hands it to the publisher.
// Every failure is logged and dropped.
func (s *ProxyService) emitCartEvent(pr *model.ProxyRequest) {
	ev, err := cartEvent(pr, s.cfg.Intercept.SessionCookie)
	if err != nil {
		reason := skipMissingProduct
		if errors.Is(err, errMalformedForm) {
			reason = skipMalformedBody
			s.logger.Warn("could not decode cart form; skipping event", "err", err)
		} else {
			s.logger.Info("cart request without product_id; skipping event")
		}
		if s.metrics != nil {
			s.metrics.EventsSkipped.WithLabelValues(reason).Inc()
		}
		return
	}

	s.logger.Info("intercepted add-to-cart",
		"product_id", ev.Data.ProductID,
		"user_id", ev.Data.UserID,
	)
	s.publisher.Publish(ev)
}

// cartEvent decodes the cached form body of pr into an item_added_to_cart
// event. The user comes from the session cookie, or DefaultUserID without one.
func cartEvent(pr *model.ProxyRequest, sessionCookie string) (*model.CartEvent, error) {
	form, err := decodeForm(pr.Body)
	if err != nil {
		return nil, err
	}

	productID := firstValue(form, formFieldProductID)
	if productID == nil {
		return nil, errMissingProductID
	}

	userID, ok := pr.Cookie(sessionCookie)
	if !ok {
		userID = model.DefaultUserID
	}

	return model.NewCartEvent(userID, *productID, firstValue(form, formFieldQuantity)), nil
}

// decodeForm parses an application/x-www-form-urlencoded body leniently:
// pairs split on '&' only, ';' stays part of a value, pairs without '=' are
// ignored and escapes that do not decode are kept as written. Only a body
// that is not UTF-8 is rejected.
func decodeForm(body []byte) (url.Values, error) {
	if !utf8.Valid(body) {
		return nil, fmt.Errorf("%w: invalid UTF-8", errMalformedForm)
	}

	form := make(url.Values)
	for _, pair := range strings.Split(string(body), "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		form.Add(unescapeLenient(key), unescapeLenient(value))
	}
	return form, nil
}

// unescapeLenient decodes '+' and well-formed %XX sequences and copies any
// other '%' through unchanged.
func unescapeLenient(s string) string {
	if !strings.ContainsAny(s, "+%") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return strings.ToValidUTF8(b.String(), string(utf8.RuneError))
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case c >= 'a':
		return c - 'a' + 10
	case c >= 'A':
		return c - 'A' + 10
	default:
		return c - '0'
	}
}

// firstValue returns the first non-blank value of key, or nil.
func firstValue(form url.Values, key string) *string {
	for _, v := range form[key] {
		if v != "" {
			return &v
		}
	}
	return nil
}
