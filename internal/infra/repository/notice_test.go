package repository

import (
	"strings"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/quillsocial/quill"
	"github.com/quillsocial/quill/internal/domain"
	"github.com/quillsocial/quill/internal/infra/database/models"
)

// dryRunDB opens a gorm session that builds SQL without touching a server.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=quill dbname=quill",
	}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open dry-run session: %v", err)
	}
	return db
}

func buildSQL(t *testing.T, tx *gorm.DB) string {
	t.Helper()
	var rows []models.Notice
	stmt := tx.Find(&rows).Statement
	if stmt.Error != nil {
		t.Fatalf("build statement: %v", stmt.Error)
	}
	return stmt.SQL.String()
}

func TestApplyPagingOmitsUnsetWindow(t *testing.T) {
	tx := applyPaging(dryRunDB(t).Model(&models.Notice{}), domain.StreamQuery{})
	sql := buildSQL(t, tx)

	// an unset limit must not become LIMIT 0
	if strings.Contains(sql, "LIMIT") {
		t.Fatalf("unset limit leaked into SQL: %s", sql)
	}
	if strings.Contains(sql, "OFFSET") {
		t.Fatalf("unset offset leaked into SQL: %s", sql)
	}
}

func TestApplyPagingEmitsSetWindow(t *testing.T) {
	tx := applyPaging(dryRunDB(t).Model(&models.Notice{}), domain.StreamQuery{Offset: 20, Limit: 10})
	sql := buildSQL(t, tx)

	if !strings.Contains(sql, "LIMIT") {
		t.Fatalf("expected a LIMIT clause, got: %s", sql)
	}
	if !strings.Contains(sql, "OFFSET") {
		t.Fatalf("expected an OFFSET clause, got: %s", sql)
	}
}

func TestApplyIDWindow(t *testing.T) {
	tx := applyIDWindow(dryRunDB(t).Model(&models.Notice{}), "id", domain.StreamQuery{SinceID: 5, MaxID: 10})
	sql := buildSQL(t, tx)

	if !strings.Contains(sql, "id > ") || !strings.Contains(sql, "id <= ") {
		t.Fatalf("expected both window predicates, got: %s", sql)
	}

	tx = applyIDWindow(dryRunDB(t).Model(&models.Notice{}), "id", domain.StreamQuery{})
	sql = buildSQL(t, tx)
	if strings.Contains(sql, "id > ") || strings.Contains(sql, "id <= ") {
		t.Fatalf("unwindowed query must carry no id predicates, got: %s", sql)
	}
}

func TestApplyVerbFilter(t *testing.T) {
	tx := applyVerbFilter(dryRunDB(t).Model(&models.Notice{}), "verb", quill.DefaultVerbFilter())
	sql := buildSQL(t, tx)

	if !strings.Contains(sql, "verb IN ") {
		t.Fatalf("expected an inclusion predicate, got: %s", sql)
	}
	if !strings.Contains(sql, "verb NOT IN ") {
		t.Fatalf("expected an exclusion predicate, got: %s", sql)
	}
}

func conversationRow(id int64, created time.Time) models.Notice {
	return models.Notice{ID: id, ConversationID: 10, Created: created}
}

func TestConversationPageOrdering(t *testing.T) {
	base := time.Unix(1700000000, 0)
	rows := []models.Notice{
		conversationRow(2, base.Add(2*time.Minute)),
		conversationRow(5, base.Add(time.Minute)), // same instant as 4, higher id
		conversationRow(1, base.Add(3*time.Minute)),
		conversationRow(4, base.Add(time.Minute)),
		conversationRow(3, base),
	}

	ids := conversationPage(rows, domain.StreamQuery{})

	want := []int64{1, 2, 5, 4, 3}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %v", len(want), ids)
	}
	seen := make(map[int64]struct{}, len(ids))
	for i, id := range ids {
		if id != want[i] {
			t.Fatalf("position %d: expected id %d, got %d (%v)", i, want[i], id, ids)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %d in page %v", id, ids)
		}
		seen[id] = struct{}{}
	}
}

func TestConversationPageWindowing(t *testing.T) {
	base := time.Unix(1700000000, 0)
	rows := make([]models.Notice, 0, 5)
	for i := int64(1); i <= 5; i++ {
		rows = append(rows, conversationRow(i, base.Add(time.Duration(i)*time.Minute)))
	}
	// newest first: 5 4 3 2 1

	cases := []struct {
		name string
		q    domain.StreamQuery
		want []int64
	}{
		{"no window returns all", domain.StreamQuery{}, []int64{5, 4, 3, 2, 1}},
		{"limit only", domain.StreamQuery{Limit: 2}, []int64{5, 4}},
		{"offset and limit", domain.StreamQuery{Offset: 2, Limit: 2}, []int64{3, 2}},
		{"limit past end", domain.StreamQuery{Offset: 4, Limit: 3}, []int64{1}},
		{"offset past end", domain.StreamQuery{Offset: 10, Limit: 2}, []int64{}},
		{"offset at boundary", domain.StreamQuery{Offset: 5}, []int64{}},
	}

	for _, tc := range cases {
		got := conversationPage(append([]models.Notice(nil), rows...), tc.q)
		if len(got) != len(tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
			}
		}
	}
}
