package router

// Page names a screen of the signed in application.
type Page string

const (
	Dashboard  Page = "dashboard"
	Campaigns  Page = "campaigns"
	Content    Page = "content"
	Calendar   Page = "calendar"
	Publishing Page = "publishing"
	Analytics  Page = "analytics"
	Chat       Page = "chat"
	AutoReply  Page = "auto-reply"
)

// DefaultPage is shown when nothing was saved or the saved page is unknown.
const DefaultPage = Dashboard

type Section string

const (
	SectionMain     Section = "main"
	SectionInsights Section = "insights"
	SectionAI       Section = "ai"
)

// Title is the heading the section is listed under.
func (s Section) Title() string {
	switch s {
	case SectionMain:
		return "CORE"
	case SectionInsights:
		return "INSIGHTS"
	case SectionAI:
		return "AI TOOLS"
	default:
		return string(s)
	}
}

type PageInfo struct {
	Page    Page    `json:"page" yaml:"page"`
	Label   string  `json:"label" yaml:"label"`
	Section Section `json:"section" yaml:"section"`
}

// Navigation order.
var catalogue = []PageInfo{
	{Page: Dashboard, Label: "Dashboard", Section: SectionMain},
	{Page: Campaigns, Label: "Campaigns", Section: SectionMain},
	{Page: Content, Label: "Content Studio", Section: SectionMain},
	{Page: Calendar, Label: "Marketing Calendar", Section: SectionMain},
	{Page: Publishing, Label: "Publishing Queue", Section: SectionMain},
	{Page: Analytics, Label: "Analytics", Section: SectionInsights},
	{Page: Chat, Label: "AI Strategist", Section: SectionAI},
	{Page: AutoReply, Label: "Auto-Reply", Section: SectionAI},
}

// Pages lists every known page in navigation order.
func Pages() []PageInfo {
	return append([]PageInfo(nil), catalogue...)
}

// Lookup finds a page by name.
func Lookup(name string) (PageInfo, bool) {
	for _, info := range catalogue {
		if string(info.Page) == name {
			return info, true
		}
	}
	return PageInfo{}, false
}

// Resolve returns the named page, or the default page for unknown names.
func Resolve(name string) PageInfo {
	if info, ok := Lookup(name); ok {
		return info
	}
	info, _ := Lookup(string(DefaultPage))
	return info
}
