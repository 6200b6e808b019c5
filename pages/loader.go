// Package pages fetches the data each application page shows when it opens.
package pages

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/jrsteele09/mcc-client/apiclient"
	mccerrors "github.com/jrsteele09/mcc-client/internal/errors"
	"github.com/jrsteele09/mcc-client/router"
)

const (
	engagementDays  = 30
	topContentLimit = 5
)

var _ router.Loader = (*Loader)(nil)

// API is the set of gateway reads the pages start with.
type API interface {
	AnalyticsOverview(ctx context.Context) (apiclient.Payload, error)
	Campaigns(ctx context.Context) (apiclient.Payload, error)
	ChannelBreakdown(ctx context.Context) (apiclient.Payload, error)
	Engagement(ctx context.Context, days int) (apiclient.Payload, error)
	TopContent(ctx context.Context, limit int) (apiclient.Payload, error)
	Funnel(ctx context.Context) (apiclient.Payload, error)
	Demographics(ctx context.Context) (apiclient.Payload, error)
	Content(ctx context.Context, query url.Values) (apiclient.Payload, error)
	CalendarEvents(ctx context.Context, month, year int) (apiclient.Payload, error)
	ChatHistory(ctx context.Context) (apiclient.Payload, error)
	Rules(ctx context.Context) (apiclient.Payload, error)
	FAQs(ctx context.Context) (apiclient.Payload, error)
}

// Snapshot is a page's data keyed by section.
type Snapshot map[string]apiclient.Payload

type Loader struct {
	api API
	now func() time.Time
}

// LoaderOption defines a function type to modify the Loader instance.
type LoaderOption func(*Loader)

// WithNowTime overrides the clock used to pick the calendar month.
func WithNowTime(nowFunc func() time.Time) LoaderOption {
	return func(l *Loader) {
		l.now = nowFunc
	}
}

func NewLoader(api API, options ...LoaderOption) (*Loader, error) {
	if api == nil {
		return nil, errors.New("[pages.NewLoader] API is required")
	}
	l := &Loader{api: api, now: time.Now}
	for _, opt := range options {
		opt(l)
	}
	return l, nil
}

// Load implements router.Loader and returns a Snapshot.
func (l *Loader) Load(ctx context.Context, page router.Page) (any, error) {
	return l.Snapshot(ctx, page)
}

// Snapshot reads everything page shows on open. Pages built from several
// reads fail as a whole when any one of them fails.
func (l *Loader) Snapshot(ctx context.Context, page router.Page) (Snapshot, error) {
	calls, err := l.calls(page)
	if err != nil {
		return nil, err
	}
	results, err := apiclient.FanOut(ctx, calls)
	if err != nil {
		return nil, err
	}
	return Snapshot(results), nil
}

func (l *Loader) calls(page router.Page) (map[string]apiclient.Call, error) {
	switch page {
	case router.Dashboard:
		return map[string]apiclient.Call{
			"overview":  l.api.AnalyticsOverview,
			"campaigns": l.api.Campaigns,
			"channels":  l.api.ChannelBreakdown,
		}, nil
	case router.Campaigns:
		return map[string]apiclient.Call{"campaigns": l.api.Campaigns}, nil
	case router.Content:
		return map[string]apiclient.Call{"content": l.content(nil)}, nil
	case router.Calendar:
		now := l.now()
		return map[string]apiclient.Call{
			"events": func(ctx context.Context) (apiclient.Payload, error) {
				return l.api.CalendarEvents(ctx, int(now.Month()), now.Year())
			},
		}, nil
	case router.Publishing:
		return map[string]apiclient.Call{
			"queue": l.content(url.Values{"status": {"draft", "scheduled"}}),
			"all":   l.content(nil),
		}, nil
	case router.Analytics:
		return map[string]apiclient.Call{
			"overview": l.api.AnalyticsOverview,
			"engagement": func(ctx context.Context) (apiclient.Payload, error) {
				return l.api.Engagement(ctx, engagementDays)
			},
			"channels": l.api.ChannelBreakdown,
			"top_content": func(ctx context.Context) (apiclient.Payload, error) {
				return l.api.TopContent(ctx, topContentLimit)
			},
			"funnel":       l.api.Funnel,
			"demographics": l.api.Demographics,
		}, nil
	case router.Chat:
		return map[string]apiclient.Call{"history": l.api.ChatHistory}, nil
	case router.AutoReply:
		return map[string]apiclient.Call{
			"rules": l.api.Rules,
			"faqs":  l.api.FAQs,
		}, nil
	default:
		return nil, mccerrors.Wrapf(mccerrors.ErrUnsupported, "page %q has no loader", page)
	}
}

func (l *Loader) content(query url.Values) apiclient.Call {
	return func(ctx context.Context) (apiclient.Payload, error) {
		return l.api.Content(ctx, query)
	}
}
