package domain_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/fundstransfer/internal/transfer/domain"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}

func TestAccountDebit(t *testing.T) {
	t.Run("debits exact amount", func(t *testing.T) {
		account := domain.NewAccount("John Doe", "USD", mustDecimal(t, "1000.00"))

		if err := account.Debit(mustDecimal(t, "100.50")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if got := account.Balance.StringFixed(2); got != "899.50" {
			t.Errorf("expected balance 899.50, got %s", got)
		}
	})

	t.Run("fails without mutating when funds are insufficient", func(t *testing.T) {
		account := domain.NewAccount("John Doe", "USD", mustDecimal(t, "50.00"))

		err := account.Debit(mustDecimal(t, "100.01"))
		if !errors.Is(err, domain.ErrInsufficientFunds) {
			t.Fatalf("expected ErrInsufficientFunds, got %v", err)
		}

		if got := account.Balance.StringFixed(2); got != "50.00" {
			t.Errorf("expected balance unchanged at 50.00, got %s", got)
		}
	})

	t.Run("allows debiting the full balance", func(t *testing.T) {
		account := domain.NewAccount("John Doe", "USD", mustDecimal(t, "100.00"))

		if err := account.Debit(mustDecimal(t, "100.00")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if got := account.Balance.StringFixed(2); got != "0.00" {
			t.Errorf("expected balance 0.00, got %s", got)
		}
	})
}

func TestAccountCredit(t *testing.T) {
	account := domain.NewAccount("Jane Doe", "USD", mustDecimal(t, "500.00"))

	account.Credit(mustDecimal(t, "100.50"))

	if got := account.Balance.StringFixed(2); got != "600.50" {
		t.Errorf("expected balance 600.50, got %s", got)
	}
}

func TestAccountArithmeticHasNoDrift(t *testing.T) {
	// 浮点实现下 0.10 累加十次会产生舍入误差
	account := domain.NewAccount("John Doe", "USD", decimal.Zero)
	tenCents := mustDecimal(t, "0.10")

	for i := 0; i < 10; i++ {
		account.Credit(tenCents)
	}
	if got := account.Balance.StringFixed(2); got != "1.00" {
		t.Fatalf("expected balance 1.00 after ten credits, got %s", got)
	}

	for i := 0; i < 10; i++ {
		if err := account.Debit(tenCents); err != nil {
			t.Fatalf("debit %d failed: %v", i, err)
		}
	}
	if got := account.Balance.StringFixed(2); got != "0.00" {
		t.Fatalf("expected balance 0.00 after ten debits, got %s", got)
	}
}
