package gridquery_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	db, err := sql.Open("sqlite3", "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close db: %v", err)
		}
	}

	return db, cleanup
}

// Customer is nested in Order to exercise dotted paths.
type Customer struct {
	Name string `json:"name"`
	Tier int    `json:"tier"`
}

// Order has a key field and an optional nested object.
type Order struct {
	ID       string    `json:"id" gridquery:"key"`
	Status   string    `json:"status"`
	Total    float64   `json:"total"`
	Placed   time.Time `json:"placed"`
	Customer *Customer `json:"customer,omitempty"`
}

// Note does not have a key field.
type Note struct {
	Text string `json:"text"`
	Rank int    `json:"rank"`
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// testOrders returns a fresh set of orders; o4 has no customer.
func testOrders() []*Order {
	return []*Order{
		{ID: "o1", Status: "open", Total: 120.5, Placed: day(2023, 1, 5), Customer: &Customer{Name: "Bob Smith", Tier: 2}},
		{ID: "o2", Status: "Closed", Total: 80, Placed: day(2023, 1, 3), Customer: &Customer{Name: "Alice", Tier: 1}},
		{ID: "o3", Status: "OPEN", Total: 300, Placed: day(2023, 2, 1), Customer: &Customer{Name: "bob jones", Tier: 3}},
		{ID: "o4", Status: "open", Total: 50, Placed: day(2022, 12, 31)},
	}
}

func orderIDs(orders []Order) []string {
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return ids
}

// Invoice has leaves stored as JSON text: a decimal, a zoned time and an enum.
type Invoice struct {
	ID     string          `json:"id" gridquery:"key"`
	Amount decimal.Decimal `json:"amount"`
	At     time.Time       `json:"at"`
	Level  Level           `json:"level"`
}

// testInvoices returns invoices whose text forms sort differently from their values.
func testInvoices() []*Invoice {
	return []*Invoice{
		{
			ID:     "small",
			Amount: decimal.RequireFromString("9.99"),
			At:     time.Date(2023, 1, 5, 1, 0, 0, 0, time.FixedZone("EET", 2*3600)),
			Level:  LevelHigh,
		},
		{
			ID:     "big",
			Amount: decimal.RequireFromString("100.00"),
			At:     time.Date(2023, 1, 5, 12, 0, 0, 0, time.UTC),
			Level:  LevelLow,
		},
		{
			ID:     "mid",
			Amount: decimal.RequireFromString("50.5"),
			At:     time.Date(2023, 1, 4, 19, 0, 0, 250_000_000, time.FixedZone("EST", -5*3600)),
			Level:  LevelLow,
		},
	}
}

func invoiceIDs(invoices []Invoice) []string {
	ids := make([]string, len(invoices))
	for i, inv := range invoices {
		ids[i] = inv.ID
	}
	return ids
}
