package middleware

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewhq/gateway/internal/routing"
)

// DecisionEntry is one audited routing decision.
type DecisionEntry struct {
	ID        string    `json:"id"`
	OrgSlug   string    `json:"org_slug,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Category  string    `json:"category"`
	Decision  string    `json:"decision"`
	Path      string    `json:"path"`
	Target    string    `json:"target,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DecisionAuditConfig holds configuration for the decision audit middleware
type DecisionAuditConfig struct {
	// DB is the PostgreSQL pool for storing entries
	DB *pgxpool.Pool
	// BufferSize is the size of the async buffer (default: 1000)
	BufferSize int
	// FlushInterval is how often to flush the buffer (default: 5 seconds)
	FlushInterval time.Duration
	// BatchSize is the maximum entries per flush (default: 100)
	BatchSize int
	// SkipPaths is a list of path prefixes to skip auditing
	SkipPaths []string
}

// DefaultDecisionAuditConfig returns default configuration
func DefaultDecisionAuditConfig(db *pgxpool.Pool) *DecisionAuditConfig {
	return &DecisionAuditConfig{
		DB:            db,
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
		BatchSize:     100,
		SkipPaths:     []string{"/health", "/ready", "/static/", "/assets/"},
	}
}

// DecisionAuditor handles async persistence of routing decisions. Auditing
// must never block or fail a request: the buffer drops on overflow and
// flush errors are swallowed.
type DecisionAuditor struct {
	config    *DecisionAuditConfig
	buffer    chan *DecisionEntry
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	// For testing: collect entries instead of writing to DB
	testMode    bool
	testEntries []*DecisionEntry
	testMu      sync.Mutex
}

// NewDecisionAuditor creates an auditor and starts its background worker.
func NewDecisionAuditor(config *DecisionAuditConfig) *DecisionAuditor {
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 5 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &DecisionAuditor{
		config: config,
		buffer: make(chan *DecisionEntry, config.BufferSize),
		ctx:    ctx,
		cancel: cancel,
	}

	a.wg.Add(1)
	go a.worker()

	return a
}

// Log adds an entry to the buffer (non-blocking).
func (a *DecisionAuditor) Log(entry *DecisionEntry) {
	select {
	case a.buffer <- entry:
	default:
		// Buffer full, drop entry.
	}
}

// Close gracefully shuts down the auditor, flushing buffered entries.
func (a *DecisionAuditor) Close() error {
	a.closeOnce.Do(func() {
		a.cancel()
		close(a.buffer)
		a.wg.Wait()
	})
	return nil
}

// SetTestMode enables test mode which collects entries instead of writing to DB
func (a *DecisionAuditor) SetTestMode(enabled bool) {
	a.testMu.Lock()
	defer a.testMu.Unlock()
	a.testMode = enabled
	if enabled {
		a.testEntries = make([]*DecisionEntry, 0)
	}
}

// TestEntries returns collected test entries (only in test mode)
func (a *DecisionAuditor) TestEntries() []*DecisionEntry {
	a.testMu.Lock()
	defer a.testMu.Unlock()
	result := make([]*DecisionEntry, len(a.testEntries))
	copy(result, a.testEntries)
	return result
}

func (a *DecisionAuditor) worker() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]*DecisionEntry, 0, a.config.BatchSize)

	for {
		select {
		case entry, ok := <-a.buffer:
			if !ok {
				if len(batch) > 0 {
					a.flush(batch)
				}
				return
			}
			batch = append(batch, entry)
			if len(batch) >= a.config.BatchSize {
				a.flush(batch)
				batch = make([]*DecisionEntry, 0, a.config.BatchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = make([]*DecisionEntry, 0, a.config.BatchSize)
			}
		case <-a.ctx.Done():
			// Drain whatever was logged before shutdown.
			for {
				select {
				case entry, ok := <-a.buffer:
					if !ok {
						if len(batch) > 0 {
							a.flush(batch)
						}
						return
					}
					batch = append(batch, entry)
				default:
					if len(batch) > 0 {
						a.flush(batch)
					}
					return
				}
			}
		}
	}
}

func (a *DecisionAuditor) flush(entries []*DecisionEntry) {
	a.testMu.Lock()
	if a.testMode {
		a.testEntries = append(a.testEntries, entries...)
		a.testMu.Unlock()
		return
	}
	a.testMu.Unlock()

	if a.config.DB == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	query := `
		INSERT INTO routing_decisions (
			id, org_slug, user_id, category, decision, path, target,
			ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for _, entry := range entries {
		_, err := a.config.DB.Exec(ctx, query,
			entry.ID, entry.OrgSlug, entry.UserID,
			entry.Category, entry.Decision, entry.Path, entry.Target,
			entry.IPAddress, entry.UserAgent, entry.CreatedAt,
		)
		if err != nil {
			// Audit writes must not block the application.
			continue
		}
	}
}

// DecisionAudit records the routing decision computed by TenantRewrite for
// each request. It reads the context keys set there and runs after the
// handler chain so aborted (redirected) requests are captured too.
func DecisionAudit(auditor *DecisionAuditor) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, p := range auditor.config.SkipPaths {
			if matchPath(c.Request.URL.Path, p) {
				c.Next()
				return
			}
		}

		start := time.Now()

		c.Next()

		kind, exists := c.Get(ContextKeyRouteDecision)
		if !exists {
			return
		}
		decisionKind, ok := kind.(routing.DecisionKind)
		if !ok {
			return
		}

		entry := &DecisionEntry{
			ID:        uuid.New().String(),
			Decision:  decisionKind.String(),
			Path:      c.Request.URL.Path,
			IPAddress: clientIP(c),
			UserAgent: c.GetHeader("User-Agent"),
			CreatedAt: start,
		}

		if cat, exists := c.Get(ContextKeyRouteCategory); exists {
			if category, ok := cat.(routing.Category); ok {
				entry.Category = category.String()
			}
		}
		if target, exists := c.Get(ContextKeyRouteTarget); exists {
			entry.Target, _ = target.(string)
		}
		if orig, exists := c.Get(ContextKeyOriginalPath); exists {
			if s, ok := orig.(string); ok && s != "" {
				entry.Path = s
			}
		}
		if slug, exists := c.Get(ContextKeyOrgSlug); exists {
			entry.OrgSlug, _ = slug.(string)
		}
		if userID, ok := GetUserID(c); ok {
			entry.UserID = userID
		}

		auditor.Log(entry)
	}
}

// matchPath reports whether path matches pattern exactly or by prefix when
// the pattern ends with a slash.
func matchPath(path, pattern string) bool {
	if strings.HasSuffix(pattern, "/") {
		return strings.HasPrefix(path, pattern)
	}
	return path == pattern
}

// clientIP extracts the client IP address
func clientIP(c *gin.Context) string {
	xff := c.GetHeader("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := c.GetHeader("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}
