package apiclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Campaigns

func (c *Client) Campaigns(ctx context.Context) (Payload, error) {
	return c.Get(ctx, "/campaigns/")
}

func (c *Client) Campaign(ctx context.Context, id int64) (Payload, error) {
	return c.Get(ctx, fmt.Sprintf("/campaigns/%d", id))
}

func (c *Client) CreateCampaign(ctx context.Context, campaign any) (Payload, error) {
	return c.Post(ctx, "/campaigns/", campaign)
}

func (c *Client) UpdateCampaign(ctx context.Context, id int64, campaign any) (Payload, error) {
	return c.Put(ctx, fmt.Sprintf("/campaigns/%d", id), campaign)
}

func (c *Client) DeleteCampaign(ctx context.Context, id int64) (Payload, error) {
	return c.Delete(ctx, fmt.Sprintf("/campaigns/%d", id))
}

func (c *Client) GenerateStrategy(ctx context.Context, id int64) (Payload, error) {
	return c.Post(ctx, fmt.Sprintf("/campaigns/%d/generate-strategy", id), struct{}{})
}

func (c *Client) CampaignStats(ctx context.Context) (Payload, error) {
	return c.Get(ctx, "/campaigns/stats")
}

// Content

// Content lists saved content, optionally filtered, e.g.
// url.Values{"status": {"draft", "scheduled"}}. A nil query lists everything.
func (c *Client) Content(ctx context.Context, query url.Values) (Payload, error) {
	return c.Get(ctx, withQuery("/content/", query))
}

func (c *Client) GenerateContent(ctx context.Context, request any) (Payload, error) {
	return c.Post(ctx, "/content/generate", request)
}

func (c *Client) SaveContent(ctx context.Context, content any) (Payload, error) {
	return c.Post(ctx, "/content/", content)
}

func (c *Client) UpdateContent(ctx context.Context, id int64, content any) (Payload, error) {
	return c.Put(ctx, fmt.Sprintf("/content/%d", id), content)
}

func (c *Client) DeleteContent(ctx context.Context, id int64) (Payload, error) {
	return c.Delete(ctx, fmt.Sprintf("/content/%d", id))
}

func (c *Client) PublishContent(ctx context.Context, id int64) (Payload, error) {
	return c.Post(ctx, fmt.Sprintf("/content/%d/publish", id), struct{}{})
}

func (c *Client) GenerateVariations(ctx context.Context, request any) (Payload, error) {
	return c.Post(ctx, "/content/variations", request)
}

// Analytics

func (c *Client) AnalyticsOverview(ctx context.Context) (Payload, error) {
	return c.Get(ctx, "/analytics/overview")
}

func (c *Client) Engagement(ctx context.Context, days int) (Payload, error) {
	return c.Get(ctx, withQuery("/analytics/engagement", url.Values{"days": {strconv.Itoa(days)}}))
}

func (c *Client) ChannelBreakdown(ctx context.Context) (Payload, error) {
	return c.Get(ctx, "/analytics/channels")
}

func (c *Client) TopContent(ctx context.Context, limit int) (Payload, error) {
	return c.Get(ctx, withQuery("/analytics/top-content", url.Values{"limit": {strconv.Itoa(limit)}}))
}

func (c *Client) Funnel(ctx context.Context) (Payload, error) {
	return c.Get(ctx, "/analytics/funnel")
}

func (c *Client) Demographics(ctx context.Context) (Payload, error) {
	return c.Get(ctx, "/analytics/demographics")
}

func (c *Client) Heatmap(ctx context.Context) (Payload, error) {
	return c.Get(ctx, "/analytics/heatmap")
}

func (c *Client) OptimisationTips(ctx context.Context, channelData any) (Payload, error) {
	return c.Post(ctx, "/analytics/optimisation-tips", channelData)
}

// Chat

func (c *Client) SendMessage(ctx context.Context, message, chatContext string) (Payload, error) {
	return c.Post(ctx, "/chat/message", map[string]string{"message": message, "context": chatContext})
}

func (c *Client) ChatHistory(ctx context.Context) (Payload, error) {
	return c.Get(ctx, "/chat/history")
}

func (c *Client) ClearChat(ctx context.Context) (Payload, error) {
	return c.Delete(ctx, "/chat/clear")
}

// Calendar

func (c *Client) CalendarEvents(ctx context.Context, month, year int) (Payload, error) {
	return c.Get(ctx, withQuery("/calendar/", url.Values{
		"month": {strconv.Itoa(month)},
		"year":  {strconv.Itoa(year)},
	}))
}

func (c *Client) GenerateCalendar(ctx context.Context, month, year int) (Payload, error) {
	return c.Post(ctx, "/calendar/generate", map[string]int{"month": month, "year": year})
}

func (c *Client) CreateEvent(ctx context.Context, event any) (Payload, error) {
	return c.Post(ctx, "/calendar/", event)
}

func (c *Client) UpdateEvent(ctx context.Context, id int64, event any) (Payload, error) {
	return c.Put(ctx, fmt.Sprintf("/calendar/%d", id), event)
}

func (c *Client) DeleteEvent(ctx context.Context, id int64) (Payload, error) {
	return c.Delete(ctx, fmt.Sprintf("/calendar/%d", id))
}

// Auto-reply

func (c *Client) Rules(ctx context.Context) (Payload, error) {
	return c.Get(ctx, "/auto-reply/rules")
}

func (c *Client) CreateRule(ctx context.Context, rule any) (Payload, error) {
	return c.Post(ctx, "/auto-reply/rules", rule)
}

func (c *Client) UpdateRule(ctx context.Context, id int64, rule any) (Payload, error) {
	return c.Put(ctx, fmt.Sprintf("/auto-reply/rules/%d", id), rule)
}

func (c *Client) DeleteRule(ctx context.Context, id int64) (Payload, error) {
	return c.Delete(ctx, fmt.Sprintf("/auto-reply/rules/%d", id))
}

func (c *Client) SimulateReply(ctx context.Context, message string) (Payload, error) {
	return c.Post(ctx, "/auto-reply/simulate", map[string]string{"message": message})
}

func (c *Client) FAQs(ctx context.Context) (Payload, error) {
	return c.Get(ctx, "/auto-reply/faqs")
}

func (c *Client) CreateFAQ(ctx context.Context, faq any) (Payload, error) {
	return c.Post(ctx, "/auto-reply/faqs", faq)
}

func (c *Client) DeleteFAQ(ctx context.Context, id int64) (Payload, error) {
	return c.Delete(ctx, fmt.Sprintf("/auto-reply/faqs/%d", id))
}

func withQuery(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}
