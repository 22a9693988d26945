package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/taskflow/internal/engine"
	"github.com/roach88/taskflow/internal/ir"
	"github.com/roach88/taskflow/internal/store"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Identifiers cannot be parameterized, so only this pattern is interpolated.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s %s\n", event.Seq, event.Op, event.Task, event.Outcome, event.Detail)
		}
	}
	return buf.String()
}

// assertTraceContains checks that a step with the op succeeded, on the given
// task when one is named.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if event.Op != a.Op || event.Outcome != OutcomeOK {
			continue
		}
		if a.Task == "" || event.Task == a.Task {
			return nil
		}
	}
	expected := "successful " + a.Op
	if a.Task != "" {
		expected += " on " + a.Task
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that ops first appear in the given order.
// Intervening steps are allowed.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if _, seen := positions[event.Op]; !seen {
			positions[event.Op] = i + 1
		}
	}

	for _, op := range a.Ops {
		if positions[op] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all ops present: %v", a.Ops),
				Actual:   fmt.Sprintf("missing op: %s", op),
				Trace:    trace,
			}
		}
	}
	for i := 1; i < len(a.Ops); i++ {
		prev, curr := a.Ops[i-1], a.Ops[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("ops in order: %v", a.Ops),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that the op appears exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op == a.Op {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Op),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertTaskStatus(actx *AssertionContext, a Assertion) error {
	t, err := actx.task(a.Task)
	if err != nil {
		return err
	}
	if t.Status != a.Status {
		return &AssertionError{
			Type:     AssertTaskStatus,
			Expected: fmt.Sprintf("%s in %s", a.Task, a.Status),
			Actual:   string(t.Status),
		}
	}
	return nil
}

func assertHistoryActions(actx *AssertionContext, a Assertion) error {
	h := actx.Harness
	entries, err := h.engine.GetHistory(actx.Ctx, h.actor(""), h.id(a.Task))
	if err != nil {
		return err
	}
	actions := make([]ir.Action, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	if !slices.Equal(actions, a.Actions) {
		return &AssertionError{
			Type:     AssertHistoryActions,
			Expected: fmt.Sprintf("%s history %v", a.Task, a.Actions),
			Actual:   fmt.Sprintf("%v", actions),
		}
	}
	return nil
}

func assertHistoryVerifies(actx *AssertionContext, a Assertion) error {
	h := actx.Harness
	if err := h.engine.VerifyHistory(actx.Ctx, h.actor(""), h.id(a.Task)); err != nil {
		return &AssertionError{
			Type:     AssertHistoryVerifies,
			Expected: a.Task + " history chain verifies",
			Actual:   err.Error(),
		}
	}
	return nil
}

func assertTimeSpent(actx *AssertionContext, a Assertion) error {
	t, err := actx.task(a.Task)
	if err != nil {
		return err
	}
	if t.TimeSpent != a.Hours {
		return &AssertionError{
			Type:     AssertTimeSpent,
			Expected: fmt.Sprintf("%s spent %s", a.Task, engine.FormatHours(a.Hours)),
			Actual:   engine.FormatHours(t.TimeSpent),
		}
	}
	return nil
}

// assertProjectStats compares expected fields against the JSON form of the
// project's roll-up.
func assertProjectStats(actx *AssertionContext, a Assertion) error {
	h := actx.Harness
	projectID, ok := h.projects[a.Project]
	if !ok {
		return fmt.Errorf("project_stats: unknown project %q", a.Project)
	}
	stats, err := h.engine.StatsFor(actx.Ctx, h.actor(""), projectID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	var actual map[string]any
	if err := json.Unmarshal(data, &actual); err != nil {
		return err
	}
	for _, key := range sortedKeys(a.Expect) {
		got, exists := actual[key]
		if !exists {
			return &AssertionError{
				Type:     AssertProjectStats,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   "not present",
			}
		}
		if !stateValuesEqual(a.Expect[key], got) {
			return &AssertionError{
				Type:     AssertProjectStats,
				Expected: fmt.Sprintf("%s = %v", key, a.Expect[key]),
				Actual:   fmt.Sprintf("%s = %v", key, got),
			}
		}
	}
	return nil
}

func assertTaskCount(actx *AssertionContext, a Assertion) error {
	h := actx.Harness
	tasks, err := h.engine.ListTasks(actx.Ctx, h.actor(""), store.TaskFilter{})
	if err != nil {
		return err
	}
	if len(tasks) != a.Count {
		return &AssertionError{
			Type:     AssertTaskCount,
			Expected: fmt.Sprintf("%d tasks", a.Count),
			Actual:   fmt.Sprintf("%d tasks", len(tasks)),
		}
	}
	return nil
}

// assertFinalState queries a table for exactly one row and checks the
// expected columns (subset semantics).
func assertFinalState(actx *AssertionContext, a Assertion) error {
	if !validIdentifier.MatchString(a.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", a.Table, validIdentifier.String())
	}

	where := make(map[string]any, len(a.Where))
	for k, v := range a.Where {
		if s, ok := v.(string); ok && strings.HasPrefix(s, "$") {
			v = actx.Harness.id(strings.TrimPrefix(s, "$"))
		}
		where[k] = v
	}
	whereSQL, whereArgs, err := buildWhereClause(where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s", a.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := actx.Harness.store.DB().QueryContext(actx.Ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", a.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", a.Table, formatWhereClause(a.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	if rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", a.Table, formatWhereClause(a.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]any, len(columns))
	for i, col := range columns {
		actualRow[col] = values[i]
	}

	for _, key := range sortedKeys(a.Expect) {
		expected := a.Expect[key]
		actual, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}
		if !stateValuesEqual(expected, actual) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expected, expected),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actual, actual),
			}
		}
	}
	return nil
}

// buildWhereClause constructs a parameterized WHERE clause. Keys are sorted
// for determinism.
func buildWhereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := sortedKeys(where)
	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}
	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts a YAML value to a SQL argument.
func toSQLValue(v any) any {
	switch val := v.(type) {
	case string, int, int64, float64, bool:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares an expected YAML value with a value read from
// SQLite or decoded from JSON. Numbers compare by value; SQLite booleans are
// integers.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if exp, ok := asFloat(expected); ok {
		if act, ok := asFloat(actual); ok {
			return exp == act
		}
		return false
	}

	switch exp := expected.(type) {
	case string:
		switch act := actual.(type) {
		case string:
			return exp == act
		case []byte:
			return exp == string(act)
		}
		return false
	case bool:
		if act, ok := actual.(bool); ok {
			return exp == act
		}
		if act, ok := actual.(int64); ok {
			return exp == (act != 0)
		}
		return false
	}

	return reflect.DeepEqual(expected, actual)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AssertionContext provides engine access for state assertions.
type AssertionContext struct {
	Ctx     context.Context
	Harness *Harness
}

func (actx *AssertionContext) task(key string) (*ir.Task, error) {
	h := actx.Harness
	return h.engine.GetTask(actx.Ctx, h.actor(""), h.id(key))
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a message for each failed assertion. actx may be nil when only
// trace assertions are evaluated.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		default:
			if actx == nil || actx.Harness == nil {
				err = fmt.Errorf("assertion[%d]: %s requires engine context", i, a.Type)
				break
			}
			err = evaluateStateAssertion(actx, a)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluateStateAssertion(actx *AssertionContext, a Assertion) error {
	switch a.Type {
	case AssertTaskStatus:
		return assertTaskStatus(actx, a)
	case AssertHistoryActions:
		return assertHistoryActions(actx, a)
	case AssertHistoryVerifies:
		return assertHistoryVerifies(actx, a)
	case AssertTimeSpent:
		return assertTimeSpent(actx, a)
	case AssertProjectStats:
		return assertProjectStats(actx, a)
	case AssertTaskCount:
		return assertTaskCount(actx, a)
	case AssertFinalState:
		return assertFinalState(actx, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}
