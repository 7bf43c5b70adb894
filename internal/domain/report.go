package domain

// BatchReport counts the outcomes of one due-post processing run.
type BatchReport struct {
	Due       int `json:"due"`
	Published int `json:"published"`
	Retried   int `json:"retried"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Dropped   int `json:"dropped"`
	Errors    int `json:"errors"`
}
