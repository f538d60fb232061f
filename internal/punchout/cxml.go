// Package punchout implements the supplier side of the cXML PunchOut
// Level 1 ("Browse and Select") protocol: setup-request parsing, credential
// validation, session tracking, and order-message generation.
package punchout

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	cxmlVersion = "1.2.014"
	cxmlDoctype = `<!DOCTYPE cXML SYSTEM "http://xml.cxml.org/schemas/cXML/1.2.014/cXML.dtd">`
	xmlDecl     = `<?xml version="1.0" encoding="UTF-8"?>`

	// cXML timestamps carry an explicit +00:00 offset.
	cxmlTimeLayout = "2006-01-02T15:04:05+00:00"
)

// SetupRequest holds the fields extracted from an inbound
// PunchOutSetupRequest document.
type SetupRequest struct {
	Operation          string
	BuyerDomain        string
	BuyerIdentity      string
	SenderIdentity     string
	SharedSecret       string
	BuyerCookie        string
	BrowserFormPostURL string
	DeploymentMode     string
	ContactEmail       string
}

type cxmlCredential struct {
	Domain       string `xml:"domain,attr"`
	Identity     string `xml:"Identity"`
	SharedSecret string `xml:"SharedSecret"`
}

type cxmlExtrinsic struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type cxmlSetupEnvelope struct {
	XMLName xml.Name `xml:"cXML"`
	Header  struct {
		From   cxmlCredential `xml:"From>Credential"`
		Sender cxmlCredential `xml:"Sender>Credential"`
	} `xml:"Header"`
	Request struct {
		Setup *struct {
			Operation          string          `xml:"operation,attr"`
			BuyerCookie        string          `xml:"BuyerCookie"`
			BrowserFormPostURL string          `xml:"BrowserFormPost>URL"`
			ContactEmail       string          `xml:"Contact>Email"`
			Extrinsics         []cxmlExtrinsic `xml:"Extrinsic"`
		} `xml:"PunchOutSetupRequest"`
	} `xml:"Request"`
}

// ParseSetupRequest extracts the handshake fields from a raw cXML document.
// A document that is not well-formed XML, or that carries no
// PunchOutSetupRequest body, is a client error and is surfaced as such;
// optional elements default to the empty string.
func ParseSetupRequest(raw []byte) (SetupRequest, error) {
	var env cxmlSetupEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return SetupRequest{}, fmt.Errorf("parse cXML: %w", err)
	}
	if env.Request.Setup == nil {
		return SetupRequest{}, fmt.Errorf("parse cXML: missing PunchOutSetupRequest element")
	}
	setup := env.Request.Setup

	req := SetupRequest{
		Operation:          strings.TrimSpace(setup.Operation),
		BuyerDomain:        strings.TrimSpace(env.Header.From.Domain),
		BuyerIdentity:      strings.TrimSpace(env.Header.From.Identity),
		SenderIdentity:     strings.TrimSpace(env.Header.Sender.Identity),
		SharedSecret:       env.Header.Sender.SharedSecret,
		BuyerCookie:        strings.TrimSpace(setup.BuyerCookie),
		BrowserFormPostURL: strings.TrimSpace(setup.BrowserFormPostURL),
		ContactEmail:       strings.TrimSpace(setup.ContactEmail),
	}
	if req.Operation == "" {
		req.Operation = "create"
	}
	for _, ext := range setup.Extrinsics {
		if strings.EqualFold(strings.TrimSpace(ext.Name), "DeploymentMode") {
			req.DeploymentMode = strings.TrimSpace(ext.Value)
		}
	}
	return req, nil
}

// escaper covers the five characters that corrupt a cXML document when they
// appear unescaped in free-text fields.
var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return escaper.Replace(s)
}

// NewPayloadID produces a unique payloadID: unix timestamp, random hex, and
// a domain suffix, matching what Coupa-class systems expect to dedupe on.
func NewPayloadID(now time.Time, domain string) string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%d.%s@%s", now.Unix(), hex.EncodeToString(buf), domain)
}

func cxmlTimestamp(now time.Time) string {
	return now.UTC().Format(cxmlTimeLayout)
}

func writeEnvelopeOpen(b *strings.Builder, now time.Time, payloadDomain string) {
	b.WriteString(xmlDecl)
	b.WriteString("\n")
	b.WriteString(cxmlDoctype)
	b.WriteString("\n")
	fmt.Fprintf(b, `<cXML version=%q timestamp=%q payloadID=%q>`,
		cxmlVersion, cxmlTimestamp(now), NewPayloadID(now, payloadDomain))
	b.WriteString("\n")
}

// BuildSetupResponse renders the cXML reply to a PunchOutSetupRequest. On
// success the StartPage URL carries the session token; on failure the
// document is still valid cXML with a 401 status so the buyer system can
// parse the outcome programmatically.
func BuildSetupResponse(now time.Time, payloadDomain string, success bool, startPageURL, errorMessage string) string {
	var b strings.Builder
	writeEnvelopeOpen(&b, now, payloadDomain)
	b.WriteString("<Response>\n")
	if success {
		b.WriteString(`<Status code="200" text="OK"/>` + "\n")
		b.WriteString("<PunchOutSetupResponse>\n<StartPage>\n")
		fmt.Fprintf(&b, "<URL>%s</URL>\n", escapeXML(startPageURL))
		b.WriteString("</StartPage>\n</PunchOutSetupResponse>\n")
	} else {
		fmt.Fprintf(&b, `<Status code="401" text="Unauthorized">%s</Status>`+"\n", escapeXML(errorMessage))
	}
	b.WriteString("</Response>\n</cXML>\n")
	return b.String()
}

// BuildOrderMessage renders the PunchOutOrderMessage transferring the cart
// back to the buyer system. The buyer's original BuyerCookie is echoed
// verbatim so the order can be correlated with its originating session.
// An empty cart is rejected before any document is emitted.
func BuildOrderMessage(now time.Time, payloadDomain string, items []LineItem, buyerCookie string, total decimal.Decimal, currency string) (string, error) {
	if len(items) == 0 {
		return "", ErrEmptyCart
	}
	var b strings.Builder
	writeEnvelopeOpen(&b, now, payloadDomain)
	b.WriteString("<Message>\n<PunchOutOrderMessage>\n")
	fmt.Fprintf(&b, "<BuyerCookie>%s</BuyerCookie>\n", escapeXML(buyerCookie))
	b.WriteString(`<PunchOutOrderMessageHeader operationAllowed="create">` + "\n")
	fmt.Fprintf(&b, "<Total>\n<Money currency=%q>%s</Money>\n</Total>\n", currency, total.StringFixed(2))
	b.WriteString("</PunchOutOrderMessageHeader>\n")

	for _, item := range items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		fmt.Fprintf(&b, `<ItemIn quantity="%d">`+"\n", qty)
		b.WriteString("<ItemID>\n")
		fmt.Fprintf(&b, "<SupplierPartID>%s</SupplierPartID>\n", escapeXML(item.SupplierPartID))
		b.WriteString("</ItemID>\n<ItemDetail>\n")
		fmt.Fprintf(&b, "<UnitPrice>\n<Money currency=%q>%s</Money>\n</UnitPrice>\n", currency, item.UnitPrice.StringFixed(2))
		fmt.Fprintf(&b, `<Description xml:lang="en">%s</Description>`+"\n", escapeXML(item.Description))
		fmt.Fprintf(&b, "<UnitOfMeasure>%s</UnitOfMeasure>\n", escapeXML(item.UnitOfMeasure))
		if item.ClassificationCode != "" {
			domain := item.ClassificationDomain
			if domain == "" {
				domain = "UNSPSC"
			}
			fmt.Fprintf(&b, "<Classification domain=%q>%s</Classification>\n", domain, escapeXML(item.ClassificationCode))
		}
		if item.ManufacturerPartID != "" {
			fmt.Fprintf(&b, "<ManufacturerPartID>%s</ManufacturerPartID>\n", escapeXML(item.ManufacturerPartID))
		}
		if item.ManufacturerName != "" {
			fmt.Fprintf(&b, "<ManufacturerName>%s</ManufacturerName>\n", escapeXML(item.ManufacturerName))
		}
		b.WriteString("</ItemDetail>\n</ItemIn>\n")
	}

	b.WriteString("</PunchOutOrderMessage>\n</Message>\n</cXML>\n")
	return b.String(), nil
}
