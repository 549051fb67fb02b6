package gridquery_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/dir01/gridquery"
)

func TestStore_Find(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := t.Context()
	s, err := gridquery.NewStore[Order](ctx, db, "orders_find")
	if err != nil {
		t.Fatalf("failed to create new store: %v", err)
	}
	defer s.Close()

	var inMemory []Order
	for _, o := range testOrders() {
		if _, err := s.Save(ctx, o); err != nil {
			t.Fatalf("failed to save order: %v", err)
		}
		inMemory = append(inMemory, *o)
	}

	testCases := []struct {
		name    string
		filter  string
		sort    string
		limit   int
		want    []string
		ordered bool
	}{
		{
			name:   "contains ignores case on nested field",
			filter: `[["Customer.Name","contains","BOB"]]`,
			want:   []string{"o1", "o3"},
		},
		{
			name:   "grouped conditions are and-ed",
			filter: `[["Status","=","open"],"and",[["Total",">","100"],"or",["Total","<","10"]]]`,
			want:   []string{"o1", "o3"},
		},
		{
			name:   "not equal ignores case",
			filter: `[["status","<>","OPEN"]]`,
			want:   []string{"o2"},
		},
		{
			name:   "not contains skips absent values",
			filter: `[["Customer.Name","notcontains","bob"]]`,
			want:   []string{"o2"},
		},
		{
			name:   "timestamp filter",
			filter: `[["Placed",">=","2023-01-05"]]`,
			want:   []string{"o1", "o3"},
		},
		{
			name:   "nested integer filter",
			filter: `[["customer.tier","<=",2]]`,
			want:   []string{"o1", "o2"},
		},
		{
			name:   "unresolvable field is dropped",
			filter: `[["Nope","=","x"],["Total",">=","80"]]`,
			want:   []string{"o1", "o2", "o3"},
		},
		{
			name:    "sort descending",
			sort:    `[{"selector":"Total","desc":true}]`,
			want:    []string{"o3", "o1", "o2", "o4"},
			ordered: true,
		},
		{
			name:    "absent values sort first",
			sort:    `[{"selector":"Customer.Name"}]`,
			want:    []string{"o4", "o2", "o1", "o3"},
			ordered: true,
		},
		{
			name:    "secondary key breaks ties",
			sort:    `[{"selector":"Status"},{"selector":"Total","desc":true}]`,
			want:    []string{"o2", "o3", "o1", "o4"},
			ordered: true,
		},
		{
			name:    "filter sort and limit",
			filter:  `[["Status","=","open"]]`,
			sort:    `[{"selector":"Placed"}]`,
			limit:   2,
			want:    []string{"o4", "o1"},
			ordered: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			filters, err := gridquery.ParseFilters(tc.filter)
			if err != nil {
				t.Fatalf("failed to parse filter: %v", err)
			}
			sorts, err := gridquery.ParseSorts(tc.sort)
			if err != nil {
				t.Fatalf("failed to parse sort: %v", err)
			}

			got, err := s.Find(ctx, filters, sorts, tc.limit)
			if err != nil {
				t.Fatalf("Find failed: %v", err)
			}
			gotIDs := orderIDs(got)

			memory, err := s.Compiler().Query(inMemory, filters, sorts)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if tc.limit > 0 && len(memory) > tc.limit {
				memory = memory[:tc.limit]
			}
			memoryIDs := orderIDs(memory)

			if !tc.ordered {
				slices.Sort(gotIDs)
				slices.Sort(memoryIDs)
			}
			if !slices.Equal(gotIDs, tc.want) {
				t.Errorf("store results do not match.\ngot:  %v\nwant: %v", gotIDs, tc.want)
			}
			if !slices.Equal(memoryIDs, tc.want) {
				t.Errorf("in-memory results do not match.\ngot:  %v\nwant: %v", memoryIDs, tc.want)
			}
		})
	}

	t.Run("invalid value fails", func(t *testing.T) {
		filters := []gridquery.FilterDescriptor{{Field: "Total", Comparator: gridquery.Equals, Value: "abc"}}
		_, err := s.Find(ctx, filters, nil, 0)
		if !errors.Is(err, gridquery.ErrInvalidValue) {
			t.Fatalf("expected ErrInvalidValue, got %v", err)
		}
	})

	t.Run("contains on number fails", func(t *testing.T) {
		filters := []gridquery.FilterDescriptor{{Field: "Total", Comparator: gridquery.Contains, Value: "1"}}
		_, err := s.Find(ctx, filters, nil, 0)
		if !errors.Is(err, gridquery.ErrUnsupportedComparator) {
			t.Fatalf("expected ErrUnsupportedComparator, got %v", err)
		}
	})
}

func TestStore_FindTextStoredValues(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := t.Context()
	s, err := gridquery.NewStore[Invoice](ctx, db, "invoices_find", gridquery.WithIndex("At"))
	if err != nil {
		t.Fatalf("failed to create new store: %v", err)
	}
	defer s.Close()

	var inMemory []Invoice
	for _, inv := range testInvoices() {
		if _, err := s.Save(ctx, inv); err != nil {
			t.Fatalf("failed to save invoice: %v", err)
		}
		inMemory = append(inMemory, *inv)
	}

	// small is 2023-01-04T23:00Z, mid is 2023-01-05T00:00:00.25Z and big is 2023-01-05T12:00Z.
	testCases := []struct {
		name    string
		filter  string
		sort    string
		want    []string
		ordered bool
	}{
		{
			name:   "decimal compares as a number",
			filter: `[["Amount",">","50"]]`,
			want:   []string{"big", "mid"},
		},
		{
			name:   "decimal equality ignores trailing zeros",
			filter: `[["Amount","=","100"]]`,
			want:   []string{"big"},
		},
		{
			name:    "decimal sorts as a number",
			sort:    `[{"selector":"Amount"}]`,
			want:    []string{"small", "mid", "big"},
			ordered: true,
		},
		{
			name:   "zoned time compares as an instant",
			filter: `[["At",">=","2023-01-05T00:00:00.000Z"]]`,
			want:   []string{"big", "mid"},
		},
		{
			name:   "subsecond time bound",
			filter: `[["At",">","2023-01-05T00:00:00.1Z"],["At","<","2023-01-05T00:00:00.3Z"]]`,
			want:   []string{"mid"},
		},
		{
			name:   "zoned time equality",
			filter: `[["At","=","2023-01-05T14:00:00+02:00"]]`,
			want:   []string{"big"},
		},
		{
			name:    "zoned time sorts as an instant",
			sort:    `[{"selector":"At","desc":true}]`,
			want:    []string{"big", "mid", "small"},
			ordered: true,
		},
		{
			name:   "enum equality by name",
			filter: `[["Level","=","high"]]`,
			want:   []string{"small"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			filters, err := gridquery.ParseFilters(tc.filter)
			if err != nil {
				t.Fatalf("failed to parse filter: %v", err)
			}
			sorts, err := gridquery.ParseSorts(tc.sort)
			if err != nil {
				t.Fatalf("failed to parse sort: %v", err)
			}

			got, err := s.Find(ctx, filters, sorts, 0)
			if err != nil {
				t.Fatalf("Find failed: %v", err)
			}
			gotIDs := invoiceIDs(got)

			memory, err := s.Compiler().Query(inMemory, filters, sorts)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			memoryIDs := invoiceIDs(memory)

			want := slices.Clone(tc.want)
			if !tc.ordered {
				slices.Sort(gotIDs)
				slices.Sort(memoryIDs)
				slices.Sort(want)
			}
			if !slices.Equal(gotIDs, want) {
				t.Errorf("store results do not match.\ngot:  %v\nwant: %v", gotIDs, want)
			}
			if !slices.Equal(memoryIDs, want) {
				t.Errorf("in-memory results do not match.\ngot:  %v\nwant: %v", memoryIDs, want)
			}
		})
	}

	t.Run("enum ordering is rejected", func(t *testing.T) {
		filters := []gridquery.FilterDescriptor{{Field: "Level", Comparator: gridquery.GreaterThan, Value: "low"}}
		if _, err := s.Find(ctx, filters, nil, 0); !errors.Is(err, gridquery.ErrNotOrderable) {
			t.Fatalf("expected ErrNotOrderable for filter, got %v", err)
		}

		sorts := []gridquery.SortDescriptor{{Selector: "Level"}}
		if _, err := s.Find(ctx, nil, sorts, 0); !errors.Is(err, gridquery.ErrNotOrderable) {
			t.Fatalf("expected ErrNotOrderable for sort, got %v", err)
		}
	})
}

func TestStore_Iter(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := t.Context()
	s, err := gridquery.NewStore[Order](ctx, db, "orders_iter")
	if err != nil {
		t.Fatalf("failed to create new store: %v", err)
	}
	defer s.Close()

	for _, o := range testOrders() {
		if _, err := s.Save(ctx, o); err != nil {
			t.Fatalf("failed to save order: %v", err)
		}
	}

	t.Run("nil query iterates everything", func(t *testing.T) {
		seq, err := s.Iter(ctx, nil)
		if err != nil {
			t.Fatalf("Iter failed: %v", err)
		}
		count := 0
		for _, err := range seq {
			if err != nil {
				t.Fatalf("iteration failed: %v", err)
			}
			count++
		}
		if count != 4 {
			t.Errorf("expected 4 entities, got %d", count)
		}
	})

	t.Run("order by key", func(t *testing.T) {
		q := &gridquery.Query{OrderBy: []gridquery.OrderBy{{Key: "key", Direction: gridquery.OrderDesc}}}
		seq, err := s.Iter(ctx, q)
		if err != nil {
			t.Fatalf("Iter failed: %v", err)
		}
		var ids []string
		for o, err := range seq {
			if err != nil {
				t.Fatalf("iteration failed: %v", err)
			}
			ids = append(ids, o.ID)
		}
		want := []string{"o4", "o3", "o2", "o1"}
		if !slices.Equal(ids, want) {
			t.Errorf("got %v, want %v", ids, want)
		}
	})

	t.Run("early break", func(t *testing.T) {
		seq, err := s.Iter(ctx, nil)
		if err != nil {
			t.Fatalf("Iter failed: %v", err)
		}
		count := 0
		for range seq {
			count++
			break
		}
		if count != 1 {
			t.Errorf("expected loop to stop after 1 entity, got %d", count)
		}
	})

	t.Run("invalid order direction", func(t *testing.T) {
		q := &gridquery.Query{OrderBy: []gridquery.OrderBy{{Key: "total", Direction: "SIDEWAYS"}}}
		if _, err := s.Iter(ctx, q); err == nil {
			t.Fatal("expected an error for invalid order direction, got nil")
		}
	})
}
