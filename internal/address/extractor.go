// Package address resolves the shipping destination of a supplier order into
// one of the typed address variants. Resolution happens exactly once at
// ingestion; scorers and the international detector only ever see the
// resolved form.
//
// Supplier exports represent the destination three ways: a structured object
// with per-field keys, a JSON string containing such an object, or a
// free-text blob with one component per line. The extractor accepts all
// three and never fails; an unusable input produces an empty TextAddress.
package address

import (
	"encoding/json"
	"regexp"
	"strings"

	"order-reconciliation-service/internal/models"
	"order-reconciliation-service/pkg/logger"
)

// Extractor resolves raw shipping representations into address variants.
type Extractor struct {
	logger logger.Logger
}

// NewExtractor creates an address extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		logger: logger.GetGlobalLogger().WithComponent("address"),
	}
}

// cityStateZip matches "City, ST 12345" or "City, ST 12345-6789" fragments.
var cityStateZip = regexp.MustCompile(`([^,]+),\s*([A-Z]{2})\s+(\d{5}(?:-\d{4})?)`)

// forwardingName matches freight-forwarder recipient names such as
// "eIS CO Jane Doe": a short carrier code, the literal CO marker, then the
// real recipient.
var forwardingName = regexp.MustCompile(`(?i)^\s*([A-Za-z]{2,4})\s+CO\.?\s+(.+)$`)

var nonAlpha = regexp.MustCompile(`[^A-Za-z ]+`)

// Extract resolves a raw shipping value. The input may be a
// map[string]interface{}, a JSON string, or a plain text blob.
func (e *Extractor) Extract(raw interface{}) models.ShippingAddress {
	switch v := raw.(type) {
	case nil:
		return &models.TextAddress{}
	case map[string]interface{}:
		return e.wrapForwarding(e.fromObject(v))
	case string:
		return e.wrapForwarding(e.fromString(v))
	default:
		e.logger.WithField("type", "unknown").Debug("Unrecognized shipping address representation")
		return &models.TextAddress{}
	}
}

// fromObject builds a StructuredAddress from per-field keys. A combined
// "City, ST 12345" line is split when the discrete fields are absent.
func (e *Extractor) fromObject(obj map[string]interface{}) models.ShippingAddress {
	addr := &models.StructuredAddress{
		Name:    models.FirstString(obj, "name", "recipient_name", "recipientName", "buyer_name", "buyerName", "fullName"),
		Street:  models.FirstString(obj, "addressLine1", "address_line_1", "street", "address1", "address"),
		City:    models.FirstString(obj, "city"),
		State:   models.FirstString(obj, "state", "stateOrRegion", "province"),
		Zip:     models.FirstString(obj, "zip", "zipCode", "postalCode", "postal_code"),
		Country: models.FirstString(obj, "country", "countryCode", "nation"),
	}

	if addr.City == "" || addr.State == "" || addr.Zip == "" {
		combined := models.FirstString(obj, "cityStateZip", "city_state_zip", "addressLine2", "address_line_2")
		if m := cityStateZip.FindStringSubmatch(combined); m != nil {
			if addr.City == "" {
				addr.City = strings.TrimSpace(m[1])
			}
			if addr.State == "" {
				addr.State = m[2]
			}
			if addr.Zip == "" {
				addr.Zip = m[3]
			}
		}
	}

	if addr.Blob() == "" {
		return &models.TextAddress{}
	}
	return addr
}

// fromString handles JSON-encoded objects and positional text blobs. The
// positional convention is line 1 name, line 2 street, line 3 city/state/zip,
// line 4 country.
func (e *Extractor) fromString(s string) models.ShippingAddress {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return &models.TextAddress{}
	}

	if strings.HasPrefix(trimmed, "{") {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
			return e.fromObject(obj)
		}
		e.logger.Debug("Shipping address looked like JSON but did not parse, treating as text")
	}

	lines := splitLines(trimmed)
	if len(lines) < 2 {
		return &models.TextAddress{Text: trimmed}
	}

	addr := &models.StructuredAddress{
		Name:   lines[0],
		Street: lines[1],
	}
	if len(lines) > 2 {
		if m := cityStateZip.FindStringSubmatch(lines[2]); m != nil {
			addr.City = strings.TrimSpace(m[1])
			addr.State = m[2]
			addr.Zip = m[3]
		} else {
			addr.City = lines[2]
		}
	}
	if len(lines) > 3 {
		addr.Country = lines[3]
	}
	return addr
}

// wrapForwarding promotes an address to a ForwardingAddress when the
// recipient name carries a carrier prefix.
func (e *Extractor) wrapForwarding(addr models.ShippingAddress) models.ShippingAddress {
	name := addr.NameLine()
	m := forwardingName.FindStringSubmatch(name)
	if m == nil {
		return addr
	}

	clean := CleanRecipientName(m[2])
	if clean == "" {
		return addr
	}

	e.logger.WithFields(logger.Fields{
		"carrier":    m[1],
		"clean_name": clean,
	}).Debug("Detected forwarding warehouse recipient")

	return &models.ForwardingAddress{
		Inner:       addr,
		CarrierCode: m[1],
		CleanName:   clean,
	}
}

// CleanRecipientName normalizes a forwarded recipient name: first line only,
// alphabetic characters only, at most three words.
func CleanRecipientName(name string) string {
	if idx := strings.IndexByte(name, '\n'); idx >= 0 {
		name = name[:idx]
	}
	name = nonAlpha.ReplaceAllString(name, " ")
	words := strings.Fields(name)
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, " ")
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
