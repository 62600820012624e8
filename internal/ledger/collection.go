// Package ledger holds the finance domain shared by the client and the
// server: the record collections, their typed payloads, validation, and the
// envelope fields every synced record carries.
//
// # Payload shape
//
// On the wire and in the sync queue a record is one flat JSON object: the
// envelope keys (id, userId, isArchived, createdAt, updatedAt) merged with
// the collection's domain fields. MergePayload and SplitPayload convert
// between that form and the (Envelope, domain JSON) pair stored locally.
package ledger

import (
	"fmt"
)

// Collection names a record collection. The value doubles as the REST path
// segment (/api/{collection}).
type Collection string

const (
	Expenses     Collection = "expenses"
	Incomes      Collection = "incomes"
	Loans        Collection = "loans"
	LoanPayments Collection = "loanPayments"
	Contacts     Collection = "contacts"
	Categories   Collection = "categories"
	Budgets      Collection = "budgets"
)

// All lists every collection in a stable order.
var All = []Collection{Expenses, Incomes, Loans, LoanPayments, Contacts, Categories, Budgets}

var tables = map[Collection]string{
	Expenses:     "expenses",
	Incomes:      "incomes",
	Loans:        "loans",
	LoanPayments: "loan_payments",
	Contacts:     "contacts",
	Categories:   "categories",
	Budgets:      "budgets",
}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	_, ok := tables[c]
	return ok
}

// Table is the SQL table holding c's records.
func (c Collection) Table() string {
	return tables[c]
}

func (c Collection) String() string {
	return string(c)
}

// ParseCollection accepts a collection name as used in URLs and on the
// command line. The snake_case table name is accepted too.
func ParseCollection(s string) (Collection, error) {
	c := Collection(s)
	if c.Valid() {
		return c, nil
	}
	for coll, table := range tables {
		if table == s {
			return coll, nil
		}
	}
	return "", fmt.Errorf("unknown collection %q", s)
}
