package webhook

// Input is the creation/update payload for webhooks.
type Input struct {
	Name string `json:"name"`

	Event string `json:"event"`

	URL string `json:"url"`

	// Secret is generated on create when empty.
	Secret string `json:"secret"`

	Headers map[string]string `json:"headers,omitempty"`

	Filter *string `json:"filter,omitempty"`

	// RateLimit is the maximum deliveries per second. 0 means unlimited;
	// negative leaves the value unchanged on update.
	RateLimit int `json:"rate_limit"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// ListOpts configures filtering and pagination for webhook listing.
type ListOpts struct {
	Offset  int
	Limit   int
	Enabled *bool
	Event   string
}
