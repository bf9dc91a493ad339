package services

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

const twilioBreakerName = "twilio"

var (
	nonPhoneChars = regexp.MustCompile(`[^\d+]`)
	tenDigits     = regexp.MustCompile(`^\d{10}$`)
	e164          = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
)

// Errors mapped from Twilio responses
var (
	ErrInvalidPhoneNumber = errors.New("invalid phone number")
	ErrSMSUnavailable     = errors.New("SMS service temporarily unavailable")
)

// BreakerExecutor runs a call through a named circuit breaker
type BreakerExecutor interface {
	Execute(service string, fn func() (interface{}, error)) (interface{}, error)
}

// TwilioSMSService implements SMSService using the Twilio REST API
type TwilioSMSService struct {
	client     *twilio.RestClient
	fromNumber string
	breaker    BreakerExecutor
	logger     *logrus.Logger
}

// NewTwilioSMSService creates a Twilio sender. breaker may be nil.
func NewTwilioSMSService(accountSID, authToken, fromNumber string, breaker BreakerExecutor, logger *logrus.Logger) *TwilioSMSService {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	if logger == nil {
		logger = logrus.New()
	}
	return &TwilioSMSService{
		client:     client,
		fromNumber: fromNumber,
		breaker:    breaker,
		logger:     logger,
	}
}

// SendMessage sends an SMS message via Twilio
func (s *TwilioSMSService) SendMessage(phoneNumber, message string) error {
	to, err := normalizePhoneNumber(phoneNumber)
	if err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.fromNumber)
	params.SetBody(message)

	send := func() (interface{}, error) {
		return s.client.Api.CreateMessage(params)
	}

	var resp interface{}
	if s.breaker != nil {
		resp, err = s.breaker.Execute(twilioBreakerName, send)
	} else {
		resp, err = send()
	}
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"component": "sms",
			"provider":  "twilio",
			"to":        to,
		}).WithError(err).Warn("Twilio send failed")
		return mapTwilioError(err)
	}

	fields := logrus.Fields{"component": "sms", "provider": "twilio", "to": to}
	if msg, ok := resp.(*twilioApi.ApiV2010Message); ok && msg != nil && msg.Sid != nil {
		fields["sid"] = *msg.Sid
	}
	s.logger.WithFields(fields).Info("SMS sent")
	return nil
}

// normalizePhoneNumber converts a phone number to E.164, assuming US for bare 10-digit numbers
func normalizePhoneNumber(phone string) (string, error) {
	cleaned := nonPhoneChars.ReplaceAllString(phone, "")
	if tenDigits.MatchString(cleaned) {
		cleaned = "+1" + cleaned
	}
	if !e164.MatchString(cleaned) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhoneNumber, phone)
	}
	return cleaned, nil
}

var twilioErrorPatterns = []struct {
	pattern *regexp.Regexp
	err     error
}{
	{regexp.MustCompile(`(?i)invalid.*phone.*number`), ErrInvalidPhoneNumber},
	{regexp.MustCompile(`(?i)unverified.*number`), errors.New("phone number not verified for trial account")},
	{regexp.MustCompile(`(?i)insufficient.*funds`), ErrSMSUnavailable},
	{regexp.MustCompile(`(?i)rate.*limit`), errors.New("too many SMS requests, please try again later")},
	{regexp.MustCompile(`(?i)blocked.*number`), errors.New("unable to send SMS to this number")},
	{regexp.MustCompile(`(?i)circuit breaker is open|too many requests`), ErrSMSUnavailable},
}

// mapTwilioError maps Twilio and breaker errors to stable messages
func mapTwilioError(err error) error {
	msg := err.Error()
	for _, p := range twilioErrorPatterns {
		if p.pattern.MatchString(msg) {
			return p.err
		}
	}
	return fmt.Errorf("failed to send SMS: %w", err)
}
