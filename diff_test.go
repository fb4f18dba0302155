package resource

import "testing"

func TestDiffIdenticalItems(t *testing.T) {
	a := mustTestItem(t, testTaskSchema, taskProps(taskID, 100, "t"))
	b := mustTestItem(t, testTaskSchema, taskProps(taskID, 100, "t"))
	if a.IsDiff(b) {
		t.Fatalf("identical items reported different: %+v", a.Diff(b))
	}
}

func TestDiffEmptyRepresentationsCompareEqual(t *testing.T) {
	withNull := taskProps(taskID, 100, "t")
	withNull["summary"] = nil
	withEmpty := taskProps(taskID, 100, "t")
	withEmpty["summary"] = ""
	absent := taskProps(taskID, 100, "t")

	a := mustTestItem(t, testTaskSchema, withNull)
	b := mustTestItem(t, testTaskSchema, withEmpty)
	c := mustTestItem(t, testTaskSchema, absent)

	if a.IsDiff(b) || b.IsDiff(c) || a.IsDiff(c) {
		t.Fatalf("empty representations should compare equal")
	}
}

func TestDiffReportsScalarChange(t *testing.T) {
	a := mustTestItem(t, testTaskSchema, taskProps(taskID, 100, "old"))
	b := mustTestItem(t, testTaskSchema, taskProps(taskID, 100, "new"))

	report := a.Diff(b)
	if !report.IsDiff() {
		t.Fatalf("expected a difference")
	}
	if len(report.Diffs) != 1 || report.Diffs[0].Prop != "title" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestDiffArrays(t *testing.T) {
	shorter := taskProps(taskID, 100, "t")
	shorter["labels"] = []any{"a"}
	longer := taskProps(taskID, 100, "t")
	longer["labels"] = []any{"a", "b"}
	changed := taskProps(taskID, 100, "t")
	changed["labels"] = []any{"b"}

	a := mustTestItem(t, testTaskSchema, shorter)
	if report := a.Diff(mustTestItem(t, testTaskSchema, longer)); !report.IsDiff() {
		t.Fatalf("length change not reported")
	}
	if report := a.Diff(mustTestItem(t, testTaskSchema, changed)); !report.IsDiff() {
		t.Fatalf("element change not reported")
	}
}

func TestDiffNestedItems(t *testing.T) {
	withOwner := func(name string) map[string]any {
		props := taskProps(taskID, 100, "t")
		props["owner"] = map[string]any{"id": userID, "lastUpdated": 1, "name": name}
		return props
	}
	a := mustTestItem(t, testTaskSchema, withOwner("val"))
	b := mustTestItem(t, testTaskSchema, withOwner("other"))

	report := a.Diff(b)
	if !report.IsDiff() {
		t.Fatalf("nested change not reported")
	}
	if report.Diffs[0].Prop != "owner" || len(report.Diffs[0].Nested) == 0 {
		t.Fatalf("expected nested report, got %+v", report.Diffs[0])
	}
}

func TestDiffDifferentSchemas(t *testing.T) {
	task := mustTestItem(t, testTaskSchema, taskProps(taskID, 100, "t"))
	user := mustTestItem(t, testUserSchema, map[string]any{"id": userID, "lastUpdated": 1, "name": "val"})
	if !task.IsDiff(user) {
		t.Fatalf("items of different types must differ")
	}
}

func TestDiffCheckHandlesNil(t *testing.T) {
	item := mustTestItem(t, testTaskSchema, taskProps(taskID, 100, "t"))
	if DiffCheck(nil, nil) {
		t.Fatalf("nil vs nil should not differ")
	}
	if !DiffCheck(item, nil) || !DiffCheck(nil, item) {
		t.Fatalf("nil vs item should differ")
	}
}

func TestDiffCheckAll(t *testing.T) {
	a := mustTestItem(t, testTaskSchema, taskProps(taskID, 100, "t"))
	b := mustTestItem(t, testTaskSchema, taskProps(taskID2, 100, "t2"))
	if DiffCheckAll([]*Item{a, b}, []*Item{a, b}) {
		t.Fatalf("equal slices should not differ")
	}
	if !DiffCheckAll([]*Item{a}, []*Item{a, b}) {
		t.Fatalf("length change should differ")
	}
	if !DiffCheckAll([]*Item{a, b}, []*Item{b, a}) {
		t.Fatalf("order change should differ")
	}
}
