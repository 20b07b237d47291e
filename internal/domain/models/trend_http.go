package models

// Requests for analysis HTTP endpoints. Defined in domain for consistency and reuse.

type TrendRequest struct {
	MetricID    string `param:"id" json:"metric" validate:"required"`
	Window      string `query:"window" json:"window" default:"1h" validate:"oneof=raw 1m 1h 1d"`
	Limit       int    `query:"limit" json:"limit" default:"168" validate:"gte=2,lte=5000"`
	ShortPeriod int    `query:"short_period" json:"short_period" default:"7" validate:"gte=1,lte=500"`
	LongPeriod  int    `query:"long_period" json:"long_period" default:"21" validate:"gte=2,lte=1000"`
}

type ThresholdRequest struct {
	MetricID   string  `param:"id" json:"metric" validate:"required"`
	Window     string  `query:"window" json:"window" default:"1h" validate:"oneof=raw 1m 1h 1d"`
	Limit      int     `query:"limit" json:"limit" default:"168" validate:"gte=2,lte=5000"`
	Period     int     `query:"period" json:"period" default:"14" validate:"gte=1,lte=500"`
	Multiplier float64 `query:"multiplier" json:"multiplier" default:"1.25" validate:"gt=0,lte=10"`
}

type AveragesRequest struct {
	MetricID string `param:"id" json:"metric" validate:"required"`
	Window   string `query:"window" json:"window" default:"1h" validate:"oneof=raw 1m 1h 1d"`
	Limit    int    `query:"limit" json:"limit" default:"168" validate:"gte=2,lte=5000"`
	Kind     string `query:"kind" json:"kind" default:"sma" validate:"oneof=sma ema smma wma dma"`
	Period   int    `query:"period" json:"period" default:"7" validate:"gte=1,lte=500"`
	// Times only applies to kind=smma (number of smoothing passes).
	Times int `query:"times" json:"times" default:"1" validate:"gte=1,lte=10"`
	// Alpha only applies to kind=dma: comma-separated weights in [0,1],
	// a single value is broadcast over the series.
	Alpha  string `query:"alpha" json:"alpha" default:"0.5"`
	NoHead bool   `query:"no_head" json:"no_head"`
}

type HistoryRequest struct {
	MetricID string `param:"id" json:"metric" validate:"required"`
	Window   string `query:"window" json:"window" default:"1h" validate:"oneof=raw 1m 1h 1d"`
	Limit    int    `query:"limit" json:"limit" default:"168" validate:"gte=1,lte=5000"`
	// From/To accept RFC3339 or unix seconds; defaults cover the last 7 days.
	From string `query:"from" json:"from"`
	To   string `query:"to" json:"to"`
}

type OverviewRequest struct {
	Window string `query:"window" json:"window" default:"" validate:"omitempty,oneof=raw 1m 1h 1d"`
}
