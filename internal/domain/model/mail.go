package model

// MailJob is an outgoing email waiting in the mail queue.
type MailJob struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
}
