// internal/form/definition.go
//
// Huelip – Forms subsystem: YAML definition loader.
//
// Context
//   Each interactive form is declared in a YAML file.  The file defines the
//   form’s identifier, title, and fields, plus optional wizard steps.  At
//   start-up the embedded defaults are parsed first, then every “*.yaml”
//   under the configured override directories, and the resulting FormDef is
//   stored in an in-memory registry.  Sessions, the CLI prompt, and the auth
//   flows fetch definitions from this registry by ID, guaranteeing a single
//   source of truth.
//
// Workflow
//   •  Structs mirror the YAML schema: FormDef → StepDef → FieldDef → RuleDef.
//   •  ParseFormDef validates structural rules for one document.
//   •  RegisterFS loads an embedded tree; RegisterForms walks override
//      directories in order, so later directories win.
//   •  GetFormDef offers safe, read-only access to a parsed form by ID.
//
// Style
//   Full sentences, two spaces after periods, Oxford commas.  Helper comments
//   use short noun phrases.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// FormDef represents one form definition loaded from YAML.
//
// The form is uniquely identified by ID which should be namespaced by flow,
// e.g. “auth/login”.  A form is defined EITHER by a flat Field list OR by a
// Steps list (multi-step wizard).
type FormDef struct {
	ID     string     `yaml:"id"`     // Flow-scoped identifier.
	Title  string     `yaml:"title"`  // Display title, optional.
	Fields []FieldDef `yaml:"fields"` // Flat list of fields (single-step).
	Steps  []StepDef  `yaml:"steps"`  // Multi-step definition.  Mutually exclusive with Fields.
}

// FieldDef describes a single input.  Validation metadata lives inline so the
// client and the server enforce the same rules.
type FieldDef struct {
	Name        string    `yaml:"name"`        // Submission key.  Required.
	Label       string    `yaml:"label"`       // Human-readable label.  Required.
	Type        string    `yaml:"type"`        // text, email, password, select, checkbox, etc.
	Placeholder string    `yaml:"placeholder"` // Optional placeholder text.
	Required    bool      `yaml:"required"`    // True if input is mandatory.
	MinLength   int       `yaml:"minlength"`   // ≥ 0, 0 means unset.
	MaxLength   int       `yaml:"maxlength"`   // ≥ 0, 0 means unset.
	Pattern     string    `yaml:"pattern"`     // Regex pattern string.
	Options     []string  `yaml:"options"`     // For select/radio.  Optional.
	ErrorMsg    string    `yaml:"error"`       // Custom error message, optional.
	Trim        bool      `yaml:"trim"`        // Trim whitespace before the rules run.
	Default     any       `yaml:"default"`     // Initial value, optional.
	Rules       []RuleDef `yaml:"rules"`       // Explicit ordered rules.  Overrides the shorthand above.
}

// RuleDef is one explicit validation rule.  Rules run top to bottom and the
// first failure wins.
type RuleDef struct {
	Rule    string `yaml:"rule"`    // required, email, min, max, pattern, oneof, equal.
	Value   any    `yaml:"value"`   // Rule argument, if any.
	Message string `yaml:"message"` // User-facing message.  Optional.
}

// StepDef groups fields into a wizard step.  The CLI prompts one step at a
// time.
type StepDef struct {
	ID     string     `yaml:"id"`    // Unique per form.  If blank, we derive one.
	Title  string     `yaml:"title"` // Display heading, optional.
	Fields []FieldDef `yaml:"fields"`
}

// AllFields returns every FieldDef regardless of step structure, in
// declaration order.
func (fd *FormDef) AllFields() []FieldDef {
	if len(fd.Steps) == 0 {
		return fd.Fields
	}
	var out []FieldDef
	for _, s := range fd.Steps {
		out = append(out, s.Fields...)
	}
	return out
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

// registry maps composite ID (“flow/form”) → *FormDef.  Guarded by mutex.
var (
	registryMu sync.RWMutex
	registry   = make(map[string]*FormDef)
)

// GetFormDef returns a parsed FormDef by composite ID (“flow/form”).
// The boolean is false when the ID is unknown.
func GetFormDef(id string) (*FormDef, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fd, ok := registry[id]
	return fd, ok
}

// register inserts or overrides the form in the global registry.  Caller
// must ensure the FormDef passed validation.
func register(fd *FormDef) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[fd.ID] = fd
}

// -----------------------------------------------------------------------------
// Loader API
// -----------------------------------------------------------------------------

// ParseFormDef parses one YAML document, validates its structure, and returns
// a populated FormDef.  src only labels errors.  It NEVER mutates the global
// registry.
func ParseFormDef(raw []byte, src string) (*FormDef, error) {
	var fd FormDef
	if err := yaml.Unmarshal(raw, &fd); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", src, err)
	}
	if err := validateFormDef(&fd, src); err != nil {
		return nil, err
	}
	return &fd, nil
}

// LoadFormDef reads and parses one YAML file from disk.
func LoadFormDef(path string) (*FormDef, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read form file %s: %w", path, err)
	}
	return ParseFormDef(raw, path)
}

// RegisterFS loads every “*.yaml” below root in fsys, typically an embed.FS
// holding a flow’s default forms.
func RegisterFS(fsys fs.FS, root string) error {
	return fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".yaml") {
			return nil
		}
		raw, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("read form file %s: %w", path, err)
		}
		fd, err := ParseFormDef(raw, path)
		if err != nil {
			return err
		}
		register(fd)
		return nil
	})
}

// RegisterForms walks one or more override directories and loads every
// “*.yaml” below them.  Directories are applied in order, so a form in a
// later directory replaces the same ID from an earlier one.  Missing
// directories are skipped.
//
// Example:
//
//	err := form.RegisterForms([]string{
//	    "/etc/huelip/forms",          // site defaults
//	    "/home/sarah/.huelip/forms",  // personal overrides
//	})
func RegisterForms(dirs []string) error {
	if len(dirs) == 0 {
		return errors.New("RegisterForms: no directories provided")
	}

	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), ".yaml") {
				return nil // skip non-YAML
			}

			fd, err := LoadFormDef(path)
			if err != nil {
				return err // fail fast so issues surface loudly.
			}
			register(fd)
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	return nil
}

// -----------------------------------------------------------------------------
// Validation helpers
// -----------------------------------------------------------------------------

var knownTypes = map[string]bool{
	"text": true, "textarea": true, "email": true, "password": true,
	"number": true, "date": true, "tel": true,
	"select": true, "radio": true, "checkbox": true,
}

var knownRules = map[string]bool{
	"required": true, "email": true, "min": true, "max": true,
	"pattern": true, "oneof": true, "equal": true,
}

// validateFormDef enforces structural rules that cannot be expressed via YAML
// tags alone.  It returns a descriptive error referencing the offending file.
func validateFormDef(fd *FormDef, src string) error {
	if fd.ID == "" {
		return fmt.Errorf("form definition %s: missing required 'id'", src)
	}

	// Either flat fields OR steps, not both.
	if len(fd.Fields) > 0 && len(fd.Steps) > 0 {
		return fmt.Errorf("form definition %s: cannot have both 'fields' and 'steps'", src)
	}
	if len(fd.Fields) == 0 && len(fd.Steps) == 0 {
		return fmt.Errorf("form definition %s: must have 'fields' or 'steps'", src)
	}

	fieldNames := make(map[string]struct{})

	for i := range fd.Fields {
		if err := validateField(&fd.Fields[i], src); err != nil {
			return err
		}
		if _, dup := fieldNames[fd.Fields[i].Name]; dup {
			return fmt.Errorf("form %s: duplicate field name '%s'", src, fd.Fields[i].Name)
		}
		fieldNames[fd.Fields[i].Name] = struct{}{}
	}

	for si := range fd.Steps {
		s := &fd.Steps[si]
		if s.ID == "" {
			s.ID = fmt.Sprintf("step%d", si+1)
		}
		for fi := range s.Fields {
			if err := validateField(&s.Fields[fi], src); err != nil {
				return err
			}
			if _, dup := fieldNames[s.Fields[fi].Name]; dup {
				return fmt.Errorf("form %s: duplicate field name '%s' across steps", src, s.Fields[fi].Name)
			}
			fieldNames[s.Fields[fi].Name] = struct{}{}
		}
	}

	return nil
}

// validateField confirms that essential attributes are present and sane.
func validateField(f *FieldDef, src string) error {
	if f.Name == "" {
		return fmt.Errorf("form %s: field missing 'name'", src)
	}
	if f.Label == "" {
		return fmt.Errorf("form %s: field '%s' missing 'label'", src, f.Name)
	}
	if f.Type == "" {
		return fmt.Errorf("form %s: field '%s' missing 'type'", src, f.Name)
	}
	if !knownTypes[f.Type] {
		return fmt.Errorf("form %s: field '%s' has unsupported type %q", src, f.Name, f.Type)
	}

	if f.Pattern != "" {
		if _, err := regexp.Compile(f.Pattern); err != nil {
			return fmt.Errorf("form %s: field '%s' invalid regex pattern: %v", src, f.Name, err)
		}
	}

	if f.MinLength < 0 || f.MaxLength < 0 {
		return fmt.Errorf("form %s: field '%s' minlength/maxlength cannot be negative", src, f.Name)
	}
	if f.MaxLength > 0 && f.MinLength > f.MaxLength {
		return fmt.Errorf("form %s: field '%s' minlength greater than maxlength", src, f.Name)
	}

	for i, r := range f.Rules {
		if !knownRules[r.Rule] {
			return fmt.Errorf("form %s: field '%s' rule %d: unknown rule %q", src, f.Name, i+1, r.Rule)
		}
		switch r.Rule {
		case "min", "max":
			if n, ok := ruleInt(r.Value); !ok || n < 0 {
				return fmt.Errorf("form %s: field '%s' rule %s needs a non-negative integer value", src, f.Name, r.Rule)
			}
		case "pattern":
			p, ok := r.Value.(string)
			if !ok {
				return fmt.Errorf("form %s: field '%s' pattern rule needs a string value", src, f.Name)
			}
			if _, err := regexp.Compile(p); err != nil {
				return fmt.Errorf("form %s: field '%s' invalid regex pattern: %v", src, f.Name, err)
			}
		case "oneof":
			if _, ok := ruleStrings(r.Value); !ok && len(f.Options) == 0 {
				return fmt.Errorf("form %s: field '%s' oneof rule needs a list value or options", src, f.Name)
			}
		}
	}

	return nil
}

// ruleInt reads a YAML integer argument.
func ruleInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

// ruleStrings reads a YAML string-list argument.
func ruleStrings(v any) ([]string, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
