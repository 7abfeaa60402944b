package metastore

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/wikimeta/internal/apperr"
	"github.com/starford/wikimeta/internal/database"
	"github.com/starford/wikimeta/internal/models"
)

// tickingClock returns a clock advancing one second per call.
func tickingClock() func() time.Time {
	t := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func testConn(t *testing.T) *sql.DB {
	t.Helper()
	f, err := os.CreateTemp("", "wikimeta-store-test-*.db")
	require.NoError(t, err)
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	conn, err := database.Open(f.Name())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), testConn(t), WithClock(tickingClock()))
	require.NoError(t, err)
	return s
}

func planned(name string) models.MetaRecord {
	return models.MetaRecord{Name: name, Owner: "alice", State: models.StatePlanned, Author: "alice"}
}

func mustInsert(t *testing.T, s *Store, rec models.MetaRecord) models.MetaRecord {
	t.Helper()
	stored, err := s.Insert(context.Background(), rec)
	require.NoError(t, err)
	return stored
}

// ranks maps page name to priority for every current planned record.
func ranks(t *testing.T, s *Store) map[string]int {
	t.Helper()
	recs, err := s.ListCurrent(context.Background(), Query{State: string(models.StatePlanned)})
	require.NoError(t, err)
	out := make(map[string]int, len(recs))
	for _, r := range recs {
		out[r.Name] = r.Priority
	}
	return out
}

func rowCount(t *testing.T, s *Store) int {
	t.Helper()
	var n int
	require.NoError(t, s.conn.QueryRow(`SELECT COUNT(*) FROM wikimeta`).Scan(&n))
	return n
}

func TestOpen_RecordsSchemaVersion(t *testing.T) {
	conn := testConn(t)
	ctx := context.Background()
	_, err := Open(ctx, conn)
	require.NoError(t, err)

	v, err := storedVersion(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, v)

	// Reopening an up-to-date database is a no-op.
	_, err = Open(ctx, conn)
	require.NoError(t, err)
}

func TestGetCurrent_NotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.GetCurrent(context.Background(), "Nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestInsert_PlannedAppendsDenseRanks(t *testing.T) {
	s := testStore(t)
	names := []string{"A", "B", "C", "D", "E"}
	for _, n := range names {
		mustInsert(t, s, planned(n))
	}
	got := ranks(t, s)
	for i, n := range names {
		assert.Equal(t, i+1, got[n], "rank of %s", n)
	}
}

func TestInsert_NonPlannedForcesZero(t *testing.T) {
	s := testStore(t)
	rec := planned("Done")
	rec.State = models.StateCurrent
	rec.Priority = 7
	stored := mustInsert(t, s, rec)
	assert.Equal(t, 0, stored.Priority)

	cur, err := s.GetCurrent(context.Background(), "Done")
	require.NoError(t, err)
	assert.Equal(t, 0, cur.Priority)
	assert.True(t, cur.Current)
}

func TestInsert_ExplicitPriorityKept(t *testing.T) {
	s := testStore(t)
	rec := planned("Pinned")
	rec.Priority = 4
	assert.Equal(t, 4, mustInsert(t, s, rec).Priority)
}

func TestInsert_RetiresPreviousRecord(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	mustInsert(t, s, planned("Page"))
	next := planned("Page")
	next.Owner = "bob"
	mustInsert(t, s, next)

	hist, err := s.History(ctx, "Page")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.False(t, hist[0].Current)
	assert.True(t, hist[1].Current)
	assert.Equal(t, "bob", hist[1].Owner)
	assert.True(t, hist[1].Time.After(hist[0].Time))
}

func TestSave_WithoutPreviousInserts(t *testing.T) {
	s := testStore(t)
	changed, err := s.Save(context.Background(), planned("New"), nil)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, map[string]int{"New": 1}, ranks(t, s))
}

func TestSave_UnchangedIsNoop(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	mustInsert(t, s, planned("Page"))
	prev, err := s.GetCurrent(ctx, "Page")
	require.NoError(t, err)
	before := rowCount(t, s)

	rec := planned("Page")
	rec.Author = "someone-else"
	changed, err := s.Save(ctx, rec, prev)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before, rowCount(t, s))

	after, err := s.GetCurrent(ctx, "Page")
	require.NoError(t, err)
	assert.Equal(t, prev.Time, after.Time)
	assert.Equal(t, prev.Author, after.Author)
}

func TestSave_ChangedOwnerKeepsPriority(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	mustInsert(t, s, planned("A"))
	mustInsert(t, s, planned("B"))
	prev, err := s.GetCurrent(ctx, "A")
	require.NoError(t, err)
	before := rowCount(t, s)

	rec := planned("A")
	rec.Owner = "bob"
	rec.Priority = 99
	changed, err := s.Save(ctx, rec, prev)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, before+1, rowCount(t, s))

	hist, err := s.History(ctx, "A")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.False(t, hist[0].Current)
	assert.Equal(t, prev.Priority, hist[1].Priority)
	assert.Equal(t, map[string]int{"A": 1, "B": 2}, ranks(t, s))
}

func TestSave_LeavingPlannedClosesGap(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	for _, n := range []string{"A", "B", "C"} {
		mustInsert(t, s, planned(n))
	}
	prev, err := s.GetCurrent(ctx, "A")
	require.NoError(t, err)

	rec := planned("A")
	rec.State = models.StateObsolete
	changed, err := s.Save(ctx, rec, prev)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, map[string]int{"B": 1, "C": 2}, ranks(t, s))

	cur, err := s.GetCurrent(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 0, cur.Priority)

	// Coming back to planned appends at the end.
	back := planned("A")
	changed, err = s.Save(ctx, back, cur)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, map[string]int{"B": 1, "C": 2, "A": 3}, ranks(t, s))
}

func TestRename_MovesHistory(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	mustInsert(t, s, planned("Old"))
	second := planned("Old")
	second.Owner = "bob"
	mustInsert(t, s, second)

	require.NoError(t, s.Rename(ctx, "Old", "New"))

	hist, err := s.History(ctx, "New")
	require.NoError(t, err)
	assert.Len(t, hist, 2)
	old, err := s.History(ctx, "Old")
	require.NoError(t, err)
	assert.Empty(t, old)

	cur, err := s.GetCurrent(ctx, "New")
	require.NoError(t, err)
	assert.Equal(t, "bob", cur.Owner)
}

func TestRename_RetiresTargetRecord(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	mustInsert(t, s, planned("Target"))
	mustInsert(t, s, planned("Source"))

	require.NoError(t, s.Rename(ctx, "Source", "Target"))

	assert.Equal(t, map[string]int{"Target": 1}, ranks(t, s))
	hist, err := s.History(ctx, "Target")
	require.NoError(t, err)
	current := 0
	for _, h := range hist {
		if h.Current {
			current++
		}
	}
	assert.Equal(t, 1, current)
}

func TestMarkDeleted(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	for _, n := range []string{"A", "B", "C"} {
		mustInsert(t, s, planned(n))
	}
	require.NoError(t, s.MarkDeleted(ctx, "B"))

	_, err := s.GetCurrent(ctx, "B")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, map[string]int{"A": 1, "C": 2}, ranks(t, s))

	hist, err := s.History(ctx, "B")
	require.NoError(t, err)
	assert.Len(t, hist, 1)

	// Deleting a page without metadata is fine.
	require.NoError(t, s.MarkDeleted(ctx, "Unknown"))
}

func TestListCurrent_FiltersAndOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	mustInsert(t, s, planned("P1"))
	mustInsert(t, s, planned("P2"))
	nice := planned("Nice")
	nice.State = models.StateNiceToHave
	nice.Owner = "bob"
	mustInsert(t, s, nice)
	old := planned("Old")
	old.State = models.StateObsolete
	mustInsert(t, s, old)
	cur := planned("Cur")
	cur.State = models.StateCurrent
	mustInsert(t, s, cur)

	all, err := s.ListCurrent(ctx, Query{Owner: models.OwnerAll, State: models.StateAllActive})
	require.NoError(t, err)
	var names []string
	for _, r := range all {
		names = append(names, r.Name)
	}
	// priority desc, then newest first among the zero-priority records.
	assert.Equal(t, []string{"P2", "P1", "Cur", "Nice"}, names)

	bobs, err := s.ListCurrent(ctx, Query{Owner: "bob"})
	require.NoError(t, err)
	require.Len(t, bobs, 1)
	assert.Equal(t, "Nice", bobs[0].Name)

	obsolete, err := s.ListCurrent(ctx, Query{State: string(models.StateObsolete)})
	require.NoError(t, err)
	require.Len(t, obsolete, 1)
	assert.Equal(t, "Old", obsolete[0].Name)
}

func TestPeople(t *testing.T) {
	s := testStore(t)
	rec := planned("A")
	rec.Owner = "carol"
	rec.Author = "dave"
	mustInsert(t, s, rec)
	mustInsert(t, s, planned("B"))

	people, err := s.People(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol", "dave"}, people)
}
