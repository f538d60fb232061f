package punchout

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/omnisupply/procurement-api/internal/obs"
)

// Service drives the PunchOut handshake and order transfer against a
// session store. One shared secret per deployment; multi-tenant buyer
// credentials are not supported by this design.
type Service struct {
	Store         Store
	SharedSecret  string
	StartPageURL  string
	PayloadDomain string
	Currency      string
	Logger        zerolog.Logger
	Now           func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ValidateCredentials compares the supplied shared secret against the
// configured one in constant time.
func (s *Service) ValidateCredentials(sharedSecret string) bool {
	if s == nil || s.SharedSecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(sharedSecret), []byte(s.SharedSecret)) == 1
}

// SetupOutcome reports the result of processing a PunchOutSetupRequest.
// Document is always valid cXML; callers key off Authorized, never an error.
type SetupOutcome struct {
	Authorized     bool
	SessionToken   string
	DeploymentMode string
	Document       string
}

// Setup processes an inbound setup request: parse, verify the shared
// secret, create a session, and render the cXML response. A parse failure
// is the only error path; an auth failure still yields a well-formed 401
// document.
func (s *Service) Setup(ctx context.Context, raw []byte) (SetupOutcome, error) {
	req, err := ParseSetupRequest(raw)
	if err != nil {
		return SetupOutcome{}, err
	}

	mode := strings.ToLower(req.DeploymentMode)
	if mode != "test" {
		mode = "production"
	}

	if !s.ValidateCredentials(req.SharedSecret) {
		s.Logger.Warn().
			Str("buyer_identity", req.BuyerIdentity).
			Str("sender_identity", req.SenderIdentity).
			Msg("punchout setup rejected: invalid shared secret")
		doc := BuildSetupResponse(s.now(), s.PayloadDomain, false, "", "Invalid shared secret")
		return SetupOutcome{Authorized: false, DeploymentMode: mode, Document: doc}, nil
	}

	sess := Session{
		Token:              NewToken(),
		BuyerCookie:        req.BuyerCookie,
		BrowserFormPostURL: req.BrowserFormPostURL,
		BuyerIdentity:      req.BuyerIdentity,
		DeploymentMode:     mode,
		CreatedAt:          s.now().UTC(),
	}
	if err := s.Store.Create(ctx, sess); err != nil {
		return SetupOutcome{}, fmt.Errorf("create session: %w", err)
	}

	startPage := s.startPageFor(sess.Token)
	s.Logger.Info().
		Str("buyer_identity", req.BuyerIdentity).
		Str("operation", req.Operation).
		Str("deployment_mode", mode).
		Msg("punchout session created")
	doc := BuildSetupResponse(s.now(), s.PayloadDomain, true, startPage, "")
	return SetupOutcome{Authorized: true, SessionToken: sess.Token, DeploymentMode: mode, Document: doc}, nil
}

func (s *Service) startPageFor(token string) string {
	base := s.StartPageURL
	if base == "" {
		base = "/punchout/start"
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "sid=" + url.QueryEscape(token)
}

// Lookup returns the session for a token, or ErrSessionNotFound.
func (s *Service) Lookup(ctx context.Context, token string) (Session, error) {
	return s.Store.Get(ctx, token)
}

// ReplaceCart swaps the session's cart wholesale. Cart updates never
// append; each call carries the buyer's complete cart.
func (s *Service) ReplaceCart(ctx context.Context, token string, items []LineItem) error {
	return s.Store.UpdateCart(ctx, token, items)
}

// TransferResult carries the generated order document and where the buyer
// system expects it posted.
type TransferResult struct {
	Document           string
	BrowserFormPostURL string
	Total              string
}

// Transfer closes the session and renders the PunchOutOrderMessage. The
// empty-cart check runs before the session is consumed so a workflow error
// does not destroy the buyer's state; Close is the atomic gate guaranteeing
// a single successful transfer per token.
func (s *Service) Transfer(ctx context.Context, token string) (TransferResult, error) {
	sess, err := s.Store.Get(ctx, token)
	if err != nil {
		return TransferResult{}, err
	}
	if len(sess.CartItems) == 0 {
		return TransferResult{}, ErrEmptyCart
	}

	sess, err = s.Store.Close(ctx, token)
	if err != nil {
		return TransferResult{}, err
	}
	if len(sess.CartItems) == 0 {
		return TransferResult{}, ErrEmptyCart
	}

	total := sess.Total()
	doc, err := BuildOrderMessage(s.now(), s.PayloadDomain, sess.CartItems, sess.BuyerCookie, total, s.currency())
	if err != nil {
		return TransferResult{}, err
	}
	s.Logger.Info().
		Str("buyer_identity", sess.BuyerIdentity).
		Int("lines", len(sess.CartItems)).
		Str("total", total.StringFixed(2)).
		Msg("punchout order transferred")
	if obs.PunchoutOrderTotal != nil {
		obs.PunchoutOrderTotal.WithLabelValues("success").Inc()
	}
	return TransferResult{
		Document:           doc,
		BrowserFormPostURL: sess.BrowserFormPostURL,
		Total:              total.StringFixed(2),
	}, nil
}

func (s *Service) currency() string {
	if s == nil || s.Currency == "" {
		return "USD"
	}
	return s.Currency
}
