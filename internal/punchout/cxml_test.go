package punchout

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const sampleSetupRequest = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE cXML SYSTEM "http://xml.cxml.org/schemas/cXML/1.2.014/cXML.dtd">
<cXML version="1.2.014" timestamp="2026-03-10T09:15:00+00:00" payloadID="1741598100.abc123@acme.example.com">
  <Header>
    <From>
      <Credential domain="NetworkID">
        <Identity>AN01000002779</Identity>
      </Credential>
    </From>
    <To>
      <Credential domain="DUNS">
        <Identity>omnisupply.io</Identity>
      </Credential>
    </To>
    <Sender>
      <Credential domain="NetworkID">
        <Identity>coupa.example.com</Identity>
        <SharedSecret>s3cret</SharedSecret>
      </Credential>
      <UserAgent>Coupa Procurement 1.0</UserAgent>
    </Sender>
  </Header>
  <Request>
    <PunchOutSetupRequest operation="create">
      <BuyerCookie>4FD3A9D1C7B2</BuyerCookie>
      <Extrinsic name="UserEmail">jane.doe@acme.example.com</Extrinsic>
      <Extrinsic name="DeploymentMode">test</Extrinsic>
      <BrowserFormPost>
        <URL>https://acme.coupahost.com/punchout/checkout</URL>
      </BrowserFormPost>
      <Contact>
        <Email>jane.doe@acme.example.com</Email>
      </Contact>
    </PunchOutSetupRequest>
  </Request>
</cXML>`

func TestParseSetupRequest(t *testing.T) {
	req, err := ParseSetupRequest([]byte(sampleSetupRequest))
	require.NoError(t, err)

	require.Equal(t, "create", req.Operation)
	require.Equal(t, "NetworkID", req.BuyerDomain)
	require.Equal(t, "AN01000002779", req.BuyerIdentity)
	require.Equal(t, "coupa.example.com", req.SenderIdentity)
	require.Equal(t, "s3cret", req.SharedSecret)
	require.Equal(t, "4FD3A9D1C7B2", req.BuyerCookie)
	require.Equal(t, "https://acme.coupahost.com/punchout/checkout", req.BrowserFormPostURL)
	require.Equal(t, "test", req.DeploymentMode)
	require.Equal(t, "jane.doe@acme.example.com", req.ContactEmail)
}

func TestParseSetupRequestDefaultsOperation(t *testing.T) {
	doc := `<cXML><Header><Sender><Credential><SharedSecret>x</SharedSecret></Credential></Sender></Header>
<Request><PunchOutSetupRequest><BuyerCookie>c</BuyerCookie></PunchOutSetupRequest></Request></cXML>`
	req, err := ParseSetupRequest([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, "create", req.Operation)
	require.Empty(t, req.DeploymentMode)
	require.Empty(t, req.BrowserFormPostURL)
}

func TestParseSetupRequestMalformed(t *testing.T) {
	_, err := ParseSetupRequest([]byte("this is not xml <<<"))
	require.Error(t, err)

	// Well-formed XML that is not a setup request is still an error.
	_, err = ParseSetupRequest([]byte("<cXML><Request></Request></cXML>"))
	require.Error(t, err)
}

func TestBuildSetupResponseSuccess(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)
	doc := BuildSetupResponse(now, "omnisupply.io", true, "https://shop.omnisupply.io/punchout/start?sid=tok123", "")

	require.True(t, strings.HasPrefix(doc, xmlDecl), "missing XML declaration")
	require.Contains(t, doc, cxmlDoctype)
	require.Contains(t, doc, `version="1.2.014"`)
	require.Contains(t, doc, `timestamp="2026-03-10T09:15:00+00:00"`)
	require.Contains(t, doc, `<Status code="200" text="OK"/>`)
	require.Contains(t, doc, "<URL>https://shop.omnisupply.io/punchout/start?sid=tok123</URL>")

	payloadID := regexp.MustCompile(`payloadID="([^"]+)"`).FindStringSubmatch(doc)
	require.Len(t, payloadID, 2)
	require.Regexp(t, `^\d+\.[0-9a-f]{16}@omnisupply\.io$`, payloadID[1])
}

func TestBuildSetupResponseUnauthorized(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)
	doc := BuildSetupResponse(now, "omnisupply.io", false, "", "Invalid shared secret")

	require.Contains(t, doc, `<Status code="401" text="Unauthorized">Invalid shared secret</Status>`)
	require.NotContains(t, doc, "<PunchOutSetupResponse>")
	// Failure documents are still complete cXML.
	require.True(t, strings.HasPrefix(doc, xmlDecl))
	require.Contains(t, doc, "</cXML>")
}

func TestBuildOrderMessageEscapesText(t *testing.T) {
	now := time.Now()
	items := []LineItem{{
		SupplierPartID: "OR-1",
		Description:    `6" O-Ring <Viton> & "spares"`,
		Quantity:       2,
		UnitPrice:      decimal.RequireFromString("3.25"),
		UnitOfMeasure:  "EA",
	}}
	doc, err := BuildOrderMessage(now, "omnisupply.io", items, "cookie<&>", decimal.RequireFromString("6.50"), "USD")
	require.NoError(t, err)

	require.Contains(t, doc, "6&quot; O-Ring &lt;Viton&gt; &amp; &quot;spares&quot;")
	require.Contains(t, doc, "<BuyerCookie>cookie&lt;&amp;&gt;</BuyerCookie>")
	require.NotContains(t, doc, "<Viton>")
}

func TestBuildOrderMessageShape(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	items := []LineItem{
		{
			SupplierPartID:     "GRA-HEX-0001",
			Description:        "Hex Cap Screw",
			Quantity:           3,
			UnitPrice:          decimal.RequireFromString("18.40"),
			UnitOfMeasure:      "BX",
			ClassificationCode: "31161500",
			ManufacturerName:   "Falcon Fastening",
			ManufacturerPartID: "FF-8213-200",
		},
		{
			SupplierPartID: "FAS-EYE-0518",
			Description:    "Safety Glasses",
			Quantity:       0, // defaults to 1 in the document
			UnitPrice:      decimal.RequireFromString("4.29"),
			UnitOfMeasure:  "EA",
		},
	}
	total := decimal.RequireFromString("59.49")
	doc, err := BuildOrderMessage(now, "omnisupply.io", items, "BC-77", total, "USD")
	require.NoError(t, err)

	require.Contains(t, doc, `<ItemIn quantity="3">`)
	require.Contains(t, doc, `<ItemIn quantity="1">`)
	require.Contains(t, doc, "<SupplierPartID>GRA-HEX-0001</SupplierPartID>")
	require.Contains(t, doc, `<Money currency="USD">18.40</Money>`)
	require.Contains(t, doc, `<Money currency="USD">59.49</Money>`)
	require.Contains(t, doc, `<Description xml:lang="en">Hex Cap Screw</Description>`)
	require.Contains(t, doc, `<Classification domain="UNSPSC">31161500</Classification>`)
	require.Contains(t, doc, "<ManufacturerPartID>FF-8213-200</ManufacturerPartID>")
	require.Contains(t, doc, "<ManufacturerName>Falcon Fastening</ManufacturerName>")
	require.Contains(t, doc, "<BuyerCookie>BC-77</BuyerCookie>")
	require.Contains(t, doc, `<PunchOutOrderMessageHeader operationAllowed="create">`)

	// The second line has no classification or manufacturer data, so those
	// elements must not appear for it.
	second := doc[strings.Index(doc, "FAS-EYE-0518"):]
	require.NotContains(t, second, "<Classification")
	require.NotContains(t, second, "<Manufacturer")
}

func TestBuildOrderMessageEmptyCart(t *testing.T) {
	_, err := BuildOrderMessage(time.Now(), "omnisupply.io", nil, "BC", decimal.Zero, "USD")
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestNewPayloadIDUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewPayloadID(now, "omnisupply.io")
		require.False(t, seen[id], "duplicate payloadID %s", id)
		seen[id] = true
	}
}

func TestNewTokenRandomHex(t *testing.T) {
	a, b := NewToken(), NewToken()
	require.Len(t, a, 32)
	require.Regexp(t, "^[0-9a-f]+$", a)
	require.NotEqual(t, a, b)
}
