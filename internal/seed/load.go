package seed

import (
	_ "embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE []byte

// Fixture is a decoded organization fixture.
type Fixture struct {
	Organization string             `json:"organization"`
	SeededBy     string             `json:"seeded_by,omitempty"`
	Members      map[string]Member  `json:"member,omitempty"`
	Projects     map[string]Project `json:"project,omitempty"`
	Tasks        map[string]Task    `json:"task,omitempty"`
}

type Member struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Title string `json:"title,omitempty"`
}

type Project struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
}

type Task struct {
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	Status             string     `json:"status,omitempty"`
	Reason             string     `json:"reason,omitempty"`
	Priority           string     `json:"priority,omitempty"`
	Category           string     `json:"category,omitempty"`
	Visibility         string     `json:"visibility,omitempty"`
	Project            string     `json:"project,omitempty"`
	AssignedTo         string     `json:"assigned_to,omitempty"`
	Assignees          []string   `json:"assignees,omitempty"`
	Approvers          []string   `json:"approvers,omitempty"`
	Watchers           []string   `json:"watchers,omitempty"`
	Tags               []string   `json:"tags,omitempty"`
	StartDate          string     `json:"start_date,omitempty"`
	DueDate            string     `json:"due_date,omitempty"`
	EstimatedHours     float64    `json:"estimated_hours,omitempty"`
	BudgetHours        float64    `json:"budget_hours,omitempty"`
	TimeTracking       bool       `json:"time_tracking,omitempty"`
	Billable           bool       `json:"billable,omitempty"`
	ClientReference    string     `json:"client_reference,omitempty"`
	AcceptanceCriteria string     `json:"acceptance_criteria,omitempty"`
	Recurring          *Recurring `json:"recurring,omitempty"`
	Prerequisites      []string   `json:"prerequisites,omitempty"`
	Linked             []string   `json:"linked,omitempty"`
	TimeLogged         float64    `json:"time_logged,omitempty"`
}

type Recurring struct {
	Frequency string `json:"frequency"`
	EndsOn    string `json:"ends_on"`
}

// Error is a fixture load or apply failure, positioned in the CUE source
// when the position is known.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError returns the first CUE error with its source position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	e := &Error{Field: "cue", Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}

// Load reads a fixture from a .cue file, or from every .cue file under a
// directory unified together.
func Load(path string) (*Fixture, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	files := []string{path}
	if info.IsDir() {
		if files, err = FindCUEFiles(path); err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
		if len(files) == 0 {
			return nil, &Error{Field: "path", Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
	}

	ctx := cuecontext.New()
	var value cue.Value
	for i, f := range files {
		src, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		v := ctx.CompileBytes(src, cue.Filename(f))
		if err := v.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		if i == 0 {
			value = v
		} else {
			value = value.Unify(v)
		}
	}
	return decode(ctx, value)
}

// Parse reads a fixture from CUE source. name is used in error positions.
func Parse(name string, src []byte) (*Fixture, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return decode(ctx, v)
}

func decode(ctx *cue.Context, v cue.Value) (*Fixture, error) {
	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue")).
		LookupPath(cue.ParsePath("#Fixture"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("fixture schema: %w", err)
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var fx Fixture
	if err := unified.Decode(&fx); err != nil {
		return nil, formatCUEError(err)
	}
	if err := fx.checkReferences(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// checkReferences verifies that every label a task uses is declared.
// Member references may also name members that already exist in the store,
// so they are checked by the engine instead.
func (fx *Fixture) checkReferences() error {
	for _, key := range sortedKeys(fx.Tasks) {
		t := fx.Tasks[key]
		if t.Project != "" {
			if _, ok := fx.Projects[t.Project]; !ok {
				return &Error{Field: "task." + key + ".project", Message: fmt.Sprintf("unknown project %q", t.Project)}
			}
		}
		for _, ref := range t.Prerequisites {
			if _, ok := fx.Tasks[ref]; !ok {
				return &Error{Field: "task." + key + ".prerequisites", Message: fmt.Sprintf("unknown task %q", ref)}
			}
		}
		for _, ref := range t.Linked {
			if _, ok := fx.Tasks[ref]; !ok {
				return &Error{Field: "task." + key + ".linked", Message: fmt.Sprintf("unknown task %q", ref)}
			}
		}
	}
	return nil
}

// FindCUEFiles returns the .cue files under dir in lexical order.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
