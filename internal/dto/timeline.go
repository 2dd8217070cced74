package dto

// TimelineQuery mirrors the query string of audit reads.
type TimelineQuery struct {
	OperatorID string `form:"operatorId"`
	From       string `form:"from"`
	To         string `form:"to"`
	Category   string `form:"category"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}
