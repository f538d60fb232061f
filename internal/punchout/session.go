package punchout

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/omnisupply/procurement-api/internal/obs"
)

// ErrSessionNotFound is returned for tokens that were never issued, have
// expired, or were already closed. Transitions cannot be replayed.
var ErrSessionNotFound = errors.New("punchout: session not found")

// ErrSessionExists guards against token collisions on create.
var ErrSessionExists = errors.New("punchout: session already exists")

// ErrEmptyCart rejects order transfers with no line items.
var ErrEmptyCart = errors.New("punchout: cart is empty")

// LineItem is one cart line carried through the session and emitted as an
// ItemIn block in the order message.
type LineItem struct {
	SupplierPartID       string          `json:"supplier_part_id"`
	Description          string          `json:"description"`
	Quantity             int             `json:"quantity"`
	UnitPrice            decimal.Decimal `json:"unit_price"`
	UnitOfMeasure        string          `json:"unit_of_measure"`
	ClassificationDomain string          `json:"classification_domain"`
	ClassificationCode   string          `json:"classification_code"`
	ManufacturerPartID   string          `json:"manufacturer_part_id"`
	ManufacturerName     string          `json:"manufacturer_name"`
}

// Session is the per-buyer browse state between setup and order transfer.
type Session struct {
	Token              string     `json:"token"`
	BuyerCookie        string     `json:"buyer_cookie"`
	BrowserFormPostURL string     `json:"browser_form_post_url"`
	BuyerIdentity      string     `json:"buyer_identity"`
	DeploymentMode     string     `json:"deployment_mode"`
	CartItems          []LineItem `json:"cart_items"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Total sums quantity × unit price over the cart.
func (s Session) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.CartItems {
		if item.Quantity <= 0 {
			continue
		}
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// NewToken returns a cryptographically random session token. The token is
// the sole external handle on the session.
func NewToken() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// Store is the session state abstraction. Close must behave as an atomic
// remove-and-return so the order-message step reads final cart state exactly
// once; a second Close with the same token reports not-found.
type Store interface {
	Create(ctx context.Context, sess Session) error
	Get(ctx context.Context, token string) (Session, error)
	UpdateCart(ctx context.Context, token string, items []LineItem) error
	Close(ctx context.Context, token string) (Session, error)
}

// RedisStore keeps sessions as JSON values with native TTL expiry.
type RedisStore struct {
	R      *redis.Client
	Prefix string
	TTL    time.Duration
}

func (s RedisStore) key(token string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "punchout:sess:"
	}
	return prefix + token
}

func (s RedisStore) ttl() time.Duration {
	if s.TTL <= 0 {
		return 2 * time.Hour
	}
	return s.TTL
}

// Create stores a new session. The token must not already exist.
func (s RedisStore) Create(ctx context.Context, sess Session) error {
	if s.R == nil {
		return errors.New("punchout: redis client not configured")
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	ok, err := s.R.SetNX(ctx, s.key(sess.Token), data, s.ttl()).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionExists
	}
	if obs.PunchoutSessionsActive != nil {
		obs.PunchoutSessionsActive.Inc()
	}
	return nil
}

// Get loads a session by token.
func (s RedisStore) Get(ctx context.Context, token string) (Session, error) {
	if s.R == nil {
		return Session{}, errors.New("punchout: redis client not configured")
	}
	data, err := s.R.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// UpdateCart replaces the cart wholesale, preserving the remaining TTL.
// Last write wins when two updates race; the cart is replaced as a unit so
// state cannot be corrupted.
func (s RedisStore) UpdateCart(ctx context.Context, token string, items []LineItem) error {
	sess, err := s.Get(ctx, token)
	if err != nil {
		return err
	}
	sess.CartItems = items
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	ok, err := s.R.SetXX(ctx, s.key(token), data, redis.KeepTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

// closeScript removes and returns the session value in one step so only one
// concurrent order transfer can succeed.
const closeScript = `local v = redis.call("get", KEYS[1])
if v then
  redis.call("del", KEYS[1])
end
return v`

// Close removes the session and returns its final state.
func (s RedisStore) Close(ctx context.Context, token string) (Session, error) {
	if s.R == nil {
		return Session{}, errors.New("punchout: redis client not configured")
	}
	res, err := s.R.Eval(ctx, closeScript, []string{s.key(token)}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}
	raw, ok := res.(string)
	if !ok || raw == "" {
		return Session{}, ErrSessionNotFound
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return Session{}, err
	}
	if obs.PunchoutSessionsActive != nil {
		obs.PunchoutSessionsActive.Dec()
	}
	return sess, nil
}

// MemoryStore is an in-process Store for tests and single-node deployments.
// Expired entries are dropped lazily on access and by SweepExpired.
type MemoryStore struct {
	TTL time.Duration

	mu       sync.Mutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

type memoryEntry struct {
	sess      Session
	expiresAt time.Time
}

// NewMemoryStore constructs an empty MemoryStore with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &MemoryStore{TTL: ttl, sessions: make(map[string]memoryEntry), now: time.Now}
}

// Create stores a new session.
func (m *MemoryStore) Create(_ context.Context, sess Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.sessions[sess.Token]; ok && entry.expiresAt.After(m.now()) {
		return ErrSessionExists
	}
	m.sessions[sess.Token] = memoryEntry{sess: sess, expiresAt: m.now().Add(m.TTL)}
	if obs.PunchoutSessionsActive != nil {
		obs.PunchoutSessionsActive.Inc()
	}
	return nil
}

// Get loads a session by token.
func (m *MemoryStore) Get(_ context.Context, token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[token]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if !entry.expiresAt.After(m.now()) {
		delete(m.sessions, token)
		return Session{}, ErrSessionNotFound
	}
	return entry.sess, nil
}

// UpdateCart replaces the cart wholesale.
func (m *MemoryStore) UpdateCart(_ context.Context, token string, items []LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[token]
	if !ok || !entry.expiresAt.After(m.now()) {
		delete(m.sessions, token)
		return ErrSessionNotFound
	}
	entry.sess.CartItems = items
	m.sessions[token] = entry
	return nil
}

// Close removes the session and returns its final state.
func (m *MemoryStore) Close(_ context.Context, token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[token]
	if !ok || !entry.expiresAt.After(m.now()) {
		delete(m.sessions, token)
		return Session{}, ErrSessionNotFound
	}
	delete(m.sessions, token)
	if obs.PunchoutSessionsActive != nil {
		obs.PunchoutSessionsActive.Dec()
	}
	return entry.sess, nil
}

// SweepExpired drops expired sessions and reports how many were removed.
// The background worker calls this periodically so abandoned buyer sessions
// do not accumulate.
func (m *MemoryStore) SweepExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	now := m.now()
	for token, entry := range m.sessions {
		if !entry.expiresAt.After(now) {
			delete(m.sessions, token)
			removed++
		}
	}
	if removed > 0 && obs.PunchoutSessionEvictions != nil {
		obs.PunchoutSessionEvictions.Add(float64(removed))
	}
	return removed
}
