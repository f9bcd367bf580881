package email

import (
	"errors"
	"io"
	"net/smtp"
	"strings"
	"testing"

	"github.com/Dan9191/loan-ledger/internal/config"
	"github.com/Dan9191/loan-ledger/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestAlertSkippedWithoutSMTP(t *testing.T) {
	s := NewSender(&config.Config{}, quietLogger())
	s.send = func(*email.Email, string, smtp.Auth) error {
		t.Fatal("send called without SMTP configuration")
		return nil
	}
	if err := s.LoanApplied(models.LoanRecord{ID: "NDV-1-01"}); err != nil {
		t.Errorf("LoanApplied() error = %v", err)
	}
}

func TestAlertSent(t *testing.T) {
	cfg := &config.Config{SMTPHost: "smtp.test", SMTPPort: "25", SenderEmail: "bot@test", StaffEmail: "staff@test"}
	s := NewSender(cfg, quietLogger())

	var sent *email.Email
	var gotAddr string
	s.send = func(e *email.Email, addr string, _ smtp.Auth) error {
		sent, gotAddr = e, addr
		return nil
	}
	if err := s.SettlementRequested(models.LoanRecord{ID: "NDV-1-01", UserName: "A", Amount: 1_000_000}); err != nil {
		t.Fatal(err)
	}
	if gotAddr != "smtp.test:25" || sent.To[0] != "staff@test" || !strings.Contains(sent.Subject, "NDV-1-01") {
		t.Errorf("sent %q to %v via %s", sent.Subject, sent.To, gotAddr)
	}

	s.send = func(*email.Email, string, smtp.Auth) error { return errors.New("refused") }
	if err := s.UpgradeRequested(models.User{ID: "1"}, models.RankGold); err == nil {
		t.Error("send failure not reported")
	}
}
