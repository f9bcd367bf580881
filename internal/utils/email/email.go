package email

import (
	"fmt"
	"net/smtp"

	"github.com/Dan9191/loan-ledger/internal/config"
	"github.com/Dan9191/loan-ledger/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending staff alert emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send:   (*email.Email).Send,
	}
}

// LoanApplied tells staff a new application waits for approval
func (s *Sender) LoanApplied(loan models.LoanRecord) error {
	return s.alert(
		fmt.Sprintf("New loan application %s", loan.ID),
		fmt.Sprintf("%s (%s) applied for %d VND, due %s.\nPlease review it in the staff dashboard.",
			loan.UserName, loan.UserID, loan.Amount, loan.Date),
	)
}

// SettlementRequested tells staff a borrower reported a repayment
func (s *Sender) SettlementRequested(loan models.LoanRecord) error {
	return s.alert(
		fmt.Sprintf("Settlement requested for %s", loan.ID),
		fmt.Sprintf("%s (%s) reported repaying %d VND (fine %d VND).\nPlease verify the payment proof.",
			loan.UserName, loan.UserID, loan.Amount, loan.Fine),
	)
}

// UpgradeRequested tells staff a borrower paid for a rank upgrade
func (s *Sender) UpgradeRequested(user models.User, target models.Rank) error {
	return s.alert(
		fmt.Sprintf("Rank upgrade requested by %s", user.ID),
		fmt.Sprintf("%s (%s) asked to move from %s to %s.\nPlease verify the fee payment.",
			user.FullName, user.ID, user.Rank, target),
	)
}

func (s *Sender) alert(subject, body string) error {
	if !s.cfg.SMTPEnabled() {
		s.logger.Debugf("SMTP not configured, skipping alert: %s", subject)
		return nil
	}

	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.StaffEmail}
	e.Subject = subject
	e.Text = []byte(body + "\n\nLoan Ledger")

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", s.cfg.StaffEmail, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", s.cfg.StaffEmail, subject)
	return nil
}
