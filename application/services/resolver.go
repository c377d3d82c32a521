package services

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/entities"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

// Icon identifiers stored in attachment metadata
const (
	IconTwitter     = "icon:twitter"
	IconInstagram   = "icon:instagram"
	IconGitHub      = "icon:github"
	IconLinkedIn    = "icon:linkedin"
	IconFacebook    = "icon:facebook"
	IconYouTube     = "icon:youtube"
	IconPlaceholder = "icon:placeholder"
)

var emailPattern = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)

// IconRule maps a host, and every subdomain of it, to an icon
type IconRule struct {
	Host string `json:"host" yaml:"host" validate:"required,hostname_rfc1123"`
	Icon string `json:"icon" yaml:"icon" validate:"required"`
}

// Matches reports whether host equals the rule host or is a subdomain of it
func (r IconRule) Matches(host string) bool {
	rule := strings.ToLower(strings.TrimPrefix(r.Host, "www."))
	return host == rule || strings.HasSuffix(host, "."+rule)
}

// DefaultIconRules is the built-in social host table, in match order
func DefaultIconRules() []IconRule {
	return []IconRule{
		{Host: "twitter.com", Icon: IconTwitter},
		{Host: "x.com", Icon: IconTwitter},
		{Host: "instagram.com", Icon: IconInstagram},
		{Host: "github.com", Icon: IconGitHub},
		{Host: "linkedin.com", Icon: IconLinkedIn},
		{Host: "facebook.com", Icon: IconFacebook},
		{Host: "youtube.com", Icon: IconYouTube},
	}
}

// CanonicalHost lowercases the URL host and strips "www." and any port.
// Scheme-less input such as "github.com/acme" is read as https.
func CanonicalHost(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Host == "" && !strings.Contains(raw, "://")) {
		u, err = url.Parse("https://" + raw)
		if err != nil {
			return "", false
		}
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", false
	}
	return host, true
}

// FaviconURL is the generic icon location for a host
func FaviconURL(host string) string {
	return "https://" + host + "/favicon.ico"
}

// ExtractEmails returns the lower-cased, de-duplicated email addresses found
// in the given texts, in order of first appearance
func ExtractEmails(texts ...string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, text := range texts {
		for _, m := range emailPattern.FindAllString(text, -1) {
			m = strings.ToLower(m)
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// ResolverConfig tunes the resolver
type ResolverConfig struct {
	Rules         []IconRule
	MaxConcurrent int64
	TaskTimeout   time.Duration
}

// ResolveReport summarises one resolution pass
type ResolveReport struct {
	NodeID      valueobjects.NodeID `json:"node_id"`
	Icons       map[string]string   `json:"icons"`
	EmailsFound []string            `json:"emails_found"`
	EmailsAdded []string            `json:"emails_added"`
	Stale       bool                `json:"stale,omitempty"`
}

// Resolver fills in attachment metadata: icons for links and email
// addresses mentioned anywhere on the node. Network work happens outside the
// store lock; results are written back by raw value through atomic store calls.
type Resolver struct {
	store    ports.GraphStore
	prober   ports.IconProber
	notifier *Notifier
	metrics  Metrics
	logger   *zap.Logger
	tracer   trace.Tracer

	rulesMu sync.RWMutex
	builtin []IconRule
	extra   []IconRule

	sem         *semaphore.Weighted
	taskTimeout time.Duration
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewResolver creates a resolver. A nil prober disables favicon lookups.
func NewResolver(store ports.GraphStore, prober ports.IconProber, notifier *Notifier, metrics Metrics, logger *zap.Logger, cfg ResolverConfig) *Resolver {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 8
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 15 * time.Second
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Resolver{
		store:       store,
		prober:      prober,
		notifier:    notifier,
		metrics:     metrics,
		logger:      logger,
		tracer:      otel.Tracer("osint-mindmap/resolver"),
		builtin:     DefaultIconRules(),
		extra:       append([]IconRule(nil), cfg.Rules...),
		sem:         semaphore.NewWeighted(cfg.MaxConcurrent),
		taskTimeout: cfg.TaskTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetExtraRules replaces the configured rules consulted after the built-in table
func (r *Resolver) SetExtraRules(rules []IconRule) {
	r.rulesMu.Lock()
	r.extra = append([]IconRule(nil), rules...)
	r.rulesMu.Unlock()
}

// Rules returns the active rule list in match order
func (r *Resolver) Rules() []IconRule {
	r.rulesMu.RLock()
	defer r.rulesMu.RUnlock()
	out := make([]IconRule, 0, len(r.builtin)+len(r.extra))
	out = append(out, r.builtin...)
	return append(out, r.extra...)
}

// ResolveIcon returns the icon for a link. It never fails: anything that
// cannot be resolved gets the placeholder.
func (r *Resolver) ResolveIcon(ctx context.Context, rawURL string) string {
	host, ok := CanonicalHost(rawURL)
	if !ok {
		r.metrics.RecordIconResolution(IconSourcePlaceholder)
		return IconPlaceholder
	}
	for _, rule := range r.Rules() {
		if rule.Matches(host) {
			r.metrics.RecordIconResolution(IconSourceRule)
			return rule.Icon
		}
	}
	if r.prober == nil {
		r.metrics.RecordIconResolution(IconSourcePlaceholder)
		return IconPlaceholder
	}

	favicon := FaviconURL(host)
	found, err := r.prober.Probe(ctx, favicon)
	if err != nil || !found {
		if err != nil {
			r.logger.Debug("Favicon probe failed", zap.String("host", host), zap.Error(err))
		}
		r.metrics.RecordIconResolution(IconSourcePlaceholder)
		return IconPlaceholder
	}
	r.metrics.RecordIconResolution(IconSourceFavicon)
	return favicon
}

// Resolve runs one synchronous resolution pass over a node. A node deleted
// before write-back yields a report with Stale set and no error.
func (r *Resolver) Resolve(ctx context.Context, id valueobjects.NodeID) (ResolveReport, error) {
	ctx, span := r.tracer.Start(ctx, "Resolver.Resolve", trace.WithAttributes(attribute.String("node.id", id.String())))
	defer span.End()

	report := ResolveReport{NodeID: id, Icons: map[string]string{}}
	snap, err := r.store.Snapshot(id)
	if err != nil {
		span.RecordError(err)
		return report, err
	}

	type source struct {
		kind   valueobjects.AttachmentKind
		value  string
		icon   string
		emails []string
	}
	var sources []source
	emailTexts := []string{snap.Label, snap.Notes}
	for _, a := range snap.Attachments {
		switch a.Kind {
		case valueobjects.AttachmentLink:
			s := source{kind: a.Kind, value: a.Value, emails: ExtractEmails(a.Value, a.Label)}
			s.icon = r.ResolveIcon(ctx, a.Value)
			report.Icons[a.Value] = s.icon
			sources = append(sources, s)
		case valueobjects.AttachmentFile:
			sources = append(sources, source{kind: a.Kind, value: a.Value, emails: ExtractEmails(a.Value, a.Label)})
		case valueobjects.AttachmentEmail:
			emailTexts = append(emailTexts, a.Label)
		}
	}
	for _, s := range sources {
		emailTexts = append(emailTexts, s.emails...)
	}
	report.EmailsFound = ExtractEmails(emailTexts...)
	r.metrics.RecordEmailsExtracted(len(report.EmailsFound))

	for _, s := range sources {
		md := entities.AttachmentMetadata{Icon: s.icon}
		if len(s.emails) > 0 {
			md.Emails = s.emails
		}
		if md.IsEmpty() {
			continue
		}
		if _, err := r.store.SetAttachmentMetadata(id, s.kind, s.value, md); err != nil {
			return r.staleOrError(span, report, err)
		}
	}

	for _, email := range report.EmailsFound {
		added, err := r.store.AddAttachmentIfAbsent(id, entities.Attachment{Kind: valueobjects.AttachmentEmail, Value: email})
		if err != nil {
			return r.staleOrError(span, report, err)
		}
		if added {
			report.EmailsAdded = append(report.EmailsAdded, email)
		}
	}

	span.SetAttributes(attribute.Int("emails.added", len(report.EmailsAdded)))
	return report, nil
}

func (r *Resolver) staleOrError(span trace.Span, report ResolveReport, err error) (ResolveReport, error) {
	if pkgerrors.IsNotFound(err) {
		report.Stale = true
		span.SetAttributes(attribute.Bool("stale", true))
		return report, nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return report, err
}

// ResolveAsync schedules a resolution pass. The task captures only the node
// id; a node deleted meanwhile makes the task a no-op.
func (r *Resolver) ResolveAsync(id valueobjects.NodeID) {
	r.wg.Add(1)
	r.metrics.RecordAsyncTask("resolve", 1)
	go func() {
		defer r.wg.Done()
		defer r.metrics.RecordAsyncTask("resolve", -1)

		ctx, cancel := context.WithTimeout(r.ctx, r.taskTimeout)
		defer cancel()
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer r.sem.Release(1)

		if _, err := r.Resolve(ctx, id); err != nil && !pkgerrors.IsNotFound(err) {
			r.logger.Warn("Attachment resolution failed", zap.String("nodeID", id.String()), zap.Error(err))
			if r.notifier != nil {
				r.notifier.Notify(LevelWarning, "resolver", id.String(), "attachment resolution failed: "+err.Error())
			}
		}
	}()
}

// Wait blocks until every scheduled task has finished
func (r *Resolver) Wait() {
	r.wg.Wait()
}

// Close cancels pending tasks and waits for running ones
func (r *Resolver) Close() {
	r.cancel()
	r.wg.Wait()
}
