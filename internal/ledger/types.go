package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmitrijs2005/fintrack/internal/common"
)

// DateLayout is the calendar-date format used by every dated record.
const DateLayout = "2006-01-02"

// MonthLayout is the budget period format.
const MonthLayout = "2006-01"

// Domain is the typed body of a record.
type Domain interface {
	Collection() Collection
	Validate() error
}

type Expense struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty"`
	CategoryID    string          `json:"categoryId,omitempty"`
	Description   string          `json:"description,omitempty"`
	Date          string          `json:"date"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
}

func (Expense) Collection() Collection { return Expenses }

func (e Expense) Validate() error {
	return joinInvalid(
		positive("amount", e.Amount),
		date("date", e.Date, true),
	)
}

type Income struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Source      string          `json:"source,omitempty"`
	CategoryID  string          `json:"categoryId,omitempty"`
	Description string          `json:"description,omitempty"`
	Date        string          `json:"date"`
}

func (Income) Collection() Collection { return Incomes }

func (i Income) Validate() error {
	return joinInvalid(
		positive("amount", i.Amount),
		date("date", i.Date, true),
	)
}

// LoanDirection tells whether the user lent or borrowed.
type LoanDirection string

const (
	Lent     LoanDirection = "lent"
	Borrowed LoanDirection = "borrowed"
)

type Loan struct {
	ContactID   string          `json:"contactId"`
	Direction   LoanDirection   `json:"direction"`
	Principal   decimal.Decimal `json:"principal"`
	Currency    string          `json:"currency,omitempty"`
	Date        string          `json:"date"`
	DueDate     string          `json:"dueDate,omitempty"`
	Description string          `json:"description,omitempty"`
	Closed      bool            `json:"closed,omitempty"`
}

func (Loan) Collection() Collection { return Loans }

func (l Loan) Validate() error {
	var dirErr error
	if l.Direction != Lent && l.Direction != Borrowed {
		dirErr = fmt.Errorf("direction must be %q or %q", Lent, Borrowed)
	}
	return joinInvalid(
		required("contactId", l.ContactID),
		dirErr,
		positive("principal", l.Principal),
		date("date", l.Date, true),
		date("dueDate", l.DueDate, false),
	)
}

type LoanPayment struct {
	LoanID string          `json:"loanId"`
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"`
	Note   string          `json:"note,omitempty"`
}

func (LoanPayment) Collection() Collection { return LoanPayments }

func (p LoanPayment) Validate() error {
	return joinInvalid(
		required("loanId", p.LoanID),
		positive("amount", p.Amount),
		date("date", p.Date, true),
	)
}

type Contact struct {
	Name   string   `json:"name"`
	Phones []string `json:"phones,omitempty"`
	Email  string   `json:"email,omitempty"`
	Note   string   `json:"note,omitempty"`
}

func (Contact) Collection() Collection { return Contacts }

func (c Contact) Validate() error {
	var phoneErr error
	for _, p := range c.Phones {
		if strings.TrimSpace(p) == "" {
			phoneErr = errors.New("phones must not contain empty values")
			break
		}
	}
	return joinInvalid(required("name", c.Name), phoneErr)
}

// CategoryKind separates expense categories from income categories.
type CategoryKind string

const (
	ExpenseCategory CategoryKind = "expense"
	IncomeCategory  CategoryKind = "income"
)

type Category struct {
	Name  string       `json:"name"`
	Kind  CategoryKind `json:"kind"`
	Color string       `json:"color,omitempty"`
	Icon  string       `json:"icon,omitempty"`
}

func (Category) Collection() Collection { return Categories }

func (c Category) Validate() error {
	var kindErr error
	if c.Kind != ExpenseCategory && c.Kind != IncomeCategory {
		kindErr = fmt.Errorf("kind must be %q or %q", ExpenseCategory, IncomeCategory)
	}
	return joinInvalid(required("name", c.Name), kindErr)
}

type Budget struct {
	CategoryID string          `json:"categoryId,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency,omitempty"`
	Month      string          `json:"month"`
}

func (Budget) Collection() Collection { return Budgets }

func (b Budget) Validate() error {
	var monthErr error
	if _, err := time.Parse(MonthLayout, b.Month); err != nil {
		monthErr = fmt.Errorf("month must be YYYY-MM")
	}
	return joinInvalid(positive("amount", b.Amount), monthErr)
}

// New returns a pointer to an empty domain value for c.
func New(c Collection) (Domain, error) {
	switch c {
	case Expenses:
		return &Expense{}, nil
	case Incomes:
		return &Income{}, nil
	case Loans:
		return &Loan{}, nil
	case LoanPayments:
		return &LoanPayment{}, nil
	case Contacts:
		return &Contact{}, nil
	case Categories:
		return &Category{}, nil
	case Budgets:
		return &Budget{}, nil
	default:
		return nil, fmt.Errorf("unknown collection %q", c)
	}
}

func required(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func positive(field string, v decimal.Decimal) error {
	if !v.IsPositive() {
		return fmt.Errorf("%s must be positive", field)
	}
	return nil
}

func date(field, v string, mandatory bool) error {
	if v == "" {
		if mandatory {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
	if _, err := time.Parse(DateLayout, v); err != nil {
		return fmt.Errorf("%s must be YYYY-MM-DD", field)
	}
	return nil
}

// joinInvalid joins the non-nil problems under common.ErrValidation.
func joinInvalid(errs ...error) error {
	var msgs []string
	for _, err := range errs {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(msgs, "; "))
}
