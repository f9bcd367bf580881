package contract

import (
	"testing"
	"time"

	"github.com/Dan9191/loan-ledger/internal/models"
	"github.com/beevik/etree"
)

func TestSplit(t *testing.T) {
	net, fee := Split(1_000_000)
	if net != 850_000 || fee != 150_000 {
		t.Errorf("Split() = %d, %d", net, fee)
	}
}

func TestRender(t *testing.T) {
	borrower := models.User{ID: "1234", FullName: "NGUYEN VAN A", IDNumber: "079000000001", BankName: "VCB", BankAccountNumber: "0011", BankAccountHolder: "NGUYEN VAN A"}
	loan := models.LoanRecord{
		ID:        "NDV-1234-01",
		UserID:    "1234",
		Amount:    2_000_000,
		Date:      "01/04/2026",
		CreatedAt: "10:00:00 15/03/2026",
		Status:    models.LoanActiveDebt,
	}
	raw, err := Render(loan, borrower, time.Date(2026, 4, 11, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		t.Fatalf("rendered contract is not XML: %v", err)
	}
	checks := map[string]string{
		"/contract/terms/netReceived":      "1700000",
		"/contract/terms/serviceFee":       "300000",
		"/contract/terms/disbursementDate": "15/03/2026",
		"/contract/terms/dueDate":          "01/04/2026",
		"/contract/penalty/cap":            "600000",
		"/contract/penalty/accrued":        "20000",
		"/contract/parties/borrower/name":  "NGUYEN VAN A",
	}
	for path, want := range checks {
		el := doc.FindElement(path)
		if el == nil {
			t.Errorf("%s missing", path)
			continue
		}
		if el.Text() != want {
			t.Errorf("%s = %q, want %q", path, el.Text(), want)
		}
	}
	if got := doc.Root().SelectAttrValue("number", ""); got != "NDV-1234-01" {
		t.Errorf("number = %q", got)
	}

	if _, err := Render(loan, models.User{ID: "9"}, time.Now()); err == nil {
		t.Error("rendering a foreign loan succeeded")
	}
}
