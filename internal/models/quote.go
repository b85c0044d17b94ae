package models

// QuoteRecord is one decoded Quote event from the streaming feed.
type QuoteRecord struct {
	FeedKind       string
	EventKind      string
	StreamerSymbol string
	BidPrice       Float
	AskPrice       Float
	BidSize        Float
	AskSize        Float
}
