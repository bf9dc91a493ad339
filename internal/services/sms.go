package services

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// SMSService sends text messages
type SMSService interface {
	SendMessage(phoneNumber, message string) error
}

// MockSMSService logs messages instead of sending them and keeps a copy for inspection
type MockSMSService struct {
	mu     sync.Mutex
	sent   []SentMessage
	logger *logrus.Logger
}

// SentMessage is one message accepted by MockSMSService
type SentMessage struct {
	To   string
	Body string
}

func NewMockSMSService(logger *logrus.Logger) *MockSMSService {
	if logger == nil {
		logger = logrus.New()
	}
	return &MockSMSService{logger: logger}
}

func (s *MockSMSService) SendMessage(phoneNumber, message string) error {
	s.mu.Lock()
	s.sent = append(s.sent, SentMessage{To: phoneNumber, Body: message})
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"component": "sms",
		"provider":  "mock",
		"to":        phoneNumber,
	}).Info(message)
	return nil
}

// Sent returns every message sent so far
func (s *MockSMSService) Sent() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentMessage(nil), s.sent...)
}
