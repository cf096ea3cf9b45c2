package api

// TrendsResponse from GET /trends/{platform}
type TrendsResponse struct {
	Data   []APITrendPoint `json:"data"`
	Cursor string          `json:"cursor"`
}

// APITrendPoint is one keyword observation for one day.
// Metrics a platform does not measure are omitted and decode as nil.
type APITrendPoint struct {
	Keyword string `json:"keyword"`
	Date    string `json:"date"` // YYYY-MM-DD or RFC 3339

	// Demand
	SearchVolume  *float64 `json:"search_volume,omitempty"` // normalized 0-100
	GrowthRate7d  *float64 `json:"growth_rate_7d,omitempty"`
	GrowthRate30d *float64 `json:"growth_rate_30d,omitempty"`
	GrowthRate90d *float64 `json:"growth_rate_90d,omitempty"`

	// Monetization
	CPC              *float64 `json:"cpc,omitempty"`
	AffiliateDensity *float64 `json:"affiliate_density,omitempty"` // 0-1
	AdsDensity       *float64 `json:"ads_density,omitempty"`       // 0-1

	// Supply
	ContentDensity     *float64 `json:"content_density,omitempty"`
	CreatorDensity     *float64 `json:"creator_density,omitempty"`
	EngagementVelocity *float64 `json:"engagement_velocity,omitempty"`
}

// StatusResponse from GET /status
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// TrendsOptions selects the observations to fetch.
type TrendsOptions struct {
	Platform string
	Keywords []string
	From     string // YYYY-MM-DD, inclusive
	To       string // YYYY-MM-DD, inclusive
	Limit    int
	Cursor   string
}
