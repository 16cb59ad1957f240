package notifications

import (
	"os"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSSender texts notifications through Twilio.
type SMSSender struct {
	client *twilio.RestClient
	from   string
}

// NewSMSSenderFromEnv builds a sender from TWILIO_ACCOUNT_SID,
// TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER. Returns nil when any is unset so
// callers can treat SMS as optional.
func NewSMSSenderFromEnv() *SMSSender {
	sid := os.Getenv("TWILIO_ACCOUNT_SID")
	token := os.Getenv("TWILIO_AUTH_TOKEN")
	from := os.Getenv("TWILIO_FROM_NUMBER")
	if sid == "" || token == "" || from == "" {
		return nil
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: sid,
		Password: token,
	})
	return &SMSSender{client: client, from: from}
}

// Send texts body to the given number.
func (s *SMSSender) Send(to, body string) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)
	_, err := s.client.Api.CreateMessage(params)
	return err
}
