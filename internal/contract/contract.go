// Package contract renders the loan agreement of a loan record as an XML document.
package contract

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/loan-ledger/internal/ledger"
	"github.com/Dan9191/loan-ledger/internal/models"
	"github.com/Dan9191/loan-ledger/internal/utils"
	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

const (
	lenderName = "NDV MONEY FINANCIAL"
	lenderCode = "NDV-CORP-V126"
)

// ServiceFeeRate is deducted from the principal at disbursement
var ServiceFeeRate = decimal.RequireFromString("0.15")

// Split returns the amount the borrower receives and the service fee kept from amount
func Split(amount int64) (net, fee int64) {
	fee = decimal.NewFromInt(amount).Mul(ServiceFeeRate).Floor().IntPart()
	return amount - fee, fee
}

// Render builds the contract document of loan signed by borrower.
// The fine is the one accrued as of now.
func Render(loan models.LoanRecord, borrower models.User, now time.Time) ([]byte, error) {
	if loan.UserID != borrower.ID {
		return nil, fmt.Errorf("loan %s does not belong to user %s", loan.ID, borrower.ID)
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("contract")
	root.CreateAttr("number", loan.ID)
	root.CreateAttr("status", string(loan.Status))

	parties := root.CreateElement("parties")
	lender := parties.CreateElement("lender")
	lender.CreateElement("name").SetText(lenderName)
	lender.CreateElement("code").SetText(lenderCode)
	b := parties.CreateElement("borrower")
	b.CreateAttr("id", borrower.ID)
	b.CreateElement("name").SetText(borrower.FullName)
	b.CreateElement("idNumber").SetText(borrower.IDNumber)
	b.CreateElement("phone").SetText(borrower.Phone)
	if borrower.HasBankInfo() && !borrower.IsAdmin {
		acc := b.CreateElement("payoutAccount")
		acc.CreateAttr("bank", borrower.BankName)
		acc.CreateAttr("holder", borrower.BankAccountHolder)
		acc.SetText(borrower.BankAccountNumber)
	}

	net, fee := Split(loan.Amount)
	terms := root.CreateElement("terms")
	terms.CreateElement("principal").SetText(strconv.FormatInt(loan.Amount, 10))
	terms.CreateElement("serviceFee").SetText(strconv.FormatInt(fee, 10))
	terms.CreateElement("netReceived").SetText(strconv.FormatInt(net, 10))
	terms.CreateElement("interestRate").SetText("0")
	if _, day, ok := strings.Cut(loan.CreatedAt, " "); ok {
		terms.CreateElement("disbursementDate").SetText(day)
	}
	terms.CreateElement("dueDate").SetText(loan.Date)

	penalty := root.CreateElement("penalty")
	penalty.CreateElement("dailyRate").SetText("0.001")
	penalty.CreateElement("cap").SetText(strconv.FormatInt(ledger.FineCap(loan.Amount), 10))
	accrued := loan.Fine
	if loan.Status.DebtBearing() {
		if due, err := utils.ParseDay(loan.Date, now.Location()); err == nil {
			accrued = max(accrued, ledger.Fine(loan.Amount, due, now))
		}
	}
	penalty.CreateElement("accrued").SetText(strconv.FormatInt(accrued, 10))

	if loan.Signature != "" {
		root.CreateElement("signature").SetText(loan.Signature)
	}
	if loan.RejectionReason != "" {
		root.CreateElement("rejectionReason").SetText(loan.RejectionReason)
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render contract: %w", err)
	}
	return out, nil
}
