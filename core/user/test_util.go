package user

import (
	"github.com/tahsilhub/tahsil/core"
)

// NewServiceMock returns a Service that sends emails synchronously so
// tests can assert on the outbox right after the call returns.
func NewServiceMock(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	svc := &Service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
	svc.sendMail = func(msg *core.EmailMessage) { svc.mailSvc.SendMessages(msg) }
	return svc
}
