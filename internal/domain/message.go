package domain

// Message is one composed outreach email.
type Message struct {
	Subject  string          `json:"subject"`
	Body     string          `json:"body"`
	Metadata MessageMetadata `json:"metadata"`
}

// MessageMetadata keeps the opportunity fields the message was built from.
type MessageMetadata struct {
	Domain      string `json:"domain"`
	URL         string `json:"url"`
	DomainRank  int    `json:"domainRank"`
	Competitor  string `json:"competitor"`
	ArticleType string `json:"articleType"`
	Topic       string `json:"topic"`
}

// Identity is the sender persona rendered into every message.
type Identity struct {
	SenderName  string
	CompanyName string
}
