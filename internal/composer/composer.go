// Package composer renders the outreach message for a single opportunity.
package composer

import (
	"bytes"
	"regexp"
	"strings"
	"text/template"

	"BacklinkOutreach/internal/domain"
)

const defaultTopic = "your topic"

// OptOutNotice closes every message.
const OptOutNotice = "P.S. If you'd prefer not to hear from us, just reply and we'll remove you from our list."

// Order matters: the first matching rule names the article type.
var articleRules = []struct {
	pattern *regexp.Regexp
	kind    string
}{
	{regexp.MustCompile(`(?i)best|top|list|roundup`), "roundup"},
	{regexp.MustCompile(`(?i)guide|how`), "guide"},
	{regexp.MustCompile(`(?i)review|comparison`), "review"},
	{regexp.MustCompile(`(?i)resource`), "resource list"},
}

var (
	separators = strings.NewReplacer("-", " ", "_", " ")
	extension  = regexp.MustCompile(`\.\w+$`)
)

var bodyTemplate = template.Must(template.New("body").Parse(`Hey,

Just came across your {{.ArticleType}} — solid breakdown.

I run {{.CompanyName}}, and we might be a good addition to your {{.ArticleType}}. Happy to send more details if you're open to it.

Either way, nice work on the piece.

— {{.SenderName}}

` + OptOutNotice))

type bodyData struct {
	ArticleType string
	Topic       string
	SenderName  string
	CompanyName string
}

// Composer is stateless apart from the sender persona.
type Composer struct {
	identity domain.Identity
}

// New binds the persona rendered into every message.
func New(identity domain.Identity) *Composer {
	return &Composer{identity: identity}
}

// Compose builds the message for opp. Equal inputs always give equal output.
func (c *Composer) Compose(opp domain.Opportunity) domain.Message {
	kind := ArticleType(opp.URL)
	topic := Topic(opp.URL)

	var body bytes.Buffer
	// the template only references fields of bodyData, so Execute cannot fail
	_ = bodyTemplate.Execute(&body, bodyData{
		ArticleType: kind,
		Topic:       topic,
		SenderName:  c.identity.SenderName,
		CompanyName: c.identity.CompanyName,
	})

	return domain.Message{
		Subject: "Quick note about your " + kind + " on " + topic,
		Body:    body.String(),
		Metadata: domain.MessageMetadata{
			Domain:      opp.Domain,
			URL:         opp.URL,
			DomainRank:  opp.DomainRank,
			Competitor:  opp.Competitor,
			ArticleType: kind,
			Topic:       topic,
		},
	}
}

// ArticleType classifies the page from its URL.
func ArticleType(url string) string {
	for _, rule := range articleRules {
		if rule.pattern.MatchString(url) {
			return rule.kind
		}
	}
	return "article"
}

// Topic turns the last path segment into words: "best-seo_tools.html" becomes
// "best seo tools".
func Topic(url string) string {
	segment := url
	if i := strings.LastIndex(url, "/"); i >= 0 {
		segment = url[i+1:]
	}
	topic := extension.ReplaceAllString(separators.Replace(segment), "")
	if topic == "" {
		return defaultTopic
	}
	return topic
}
