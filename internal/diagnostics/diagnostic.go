package diagnostics

import (
	"errors"
	"fmt"
	"strings"
)

// Severity expresses how a diagnostic affects usability of a contract.
type Severity int

const (
	Warning Severity = iota + 1
	Error
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText renders the severity name in documents.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Location names a declaration in a contract surface. Empty fields are
// omitted when rendering.
type Location struct {
	Surface   string `json:"surface"`
	Member    string `json:"member,omitempty"`
	Parameter string `json:"parameter,omitempty"`
}

func (l Location) String() string {
	var b strings.Builder
	b.WriteString(l.Surface)
	if l.Member != "" {
		b.WriteString(".")
		b.WriteString(l.Member)
	}
	if l.Parameter != "" {
		fmt.Fprintf(&b, "(%s)", l.Parameter)
	}
	return b.String()
}

// Diagnostic is a single contract rule violation.
type Diagnostic struct {
	Code     Code       `json:"code"`
	Severity Severity   `json:"severity"`
	Location Location   `json:"location"`
	Related  []Location `json:"related,omitempty"`
	Message  string     `json:"message"`
}

// New creates a diagnostic with the code's default severity.
func New(code Code, loc Location, format string, args ...any) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: code.DefaultSeverity(),
		Location: loc,
		Message:  fmt.Sprintf(format, args...),
	}
}

// WithRelated returns a copy of d that also points at other declarations.
func (d Diagnostic) WithRelated(locs ...Location) Diagnostic {
	related := make([]Location, 0, len(d.Related)+len(locs))
	related = append(related, d.Related...)
	related = append(related, locs...)
	d.Related = related
	return d
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s %s: %s", d.Code, d.Severity, d.Location, d.Message)
}

// Diagnostics is an ordered collection of diagnostics that implements error.
type Diagnostics []Diagnostic

// Error summarizes the first few diagnostics.
func (ds Diagnostics) Error() string {
	if len(ds) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := min(len(ds), maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(b, "%s at %s", ds[i].Code, ds[i].Location)
	}
	if len(ds) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(ds))
	}
	return b.String()
}

// HasErrors reports whether any diagnostic has error severity.
func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Codes returns the codes in report order.
func (ds Diagnostics) Codes() []Code {
	codes := make([]Code, len(ds))
	for i, d := range ds {
		codes[i] = d.Code
	}
	return codes
}

// Has reports whether a diagnostic with the given code is present.
func (ds Diagnostics) Has(code Code) bool {
	for _, d := range ds {
		if d.Code == code {
			return true
		}
	}
	return false
}

// Filter returns the diagnostics of the given severity.
func (ds Diagnostics) Filter(sev Severity) Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// AsDiagnostics extracts Diagnostics from an error chain.
func AsDiagnostics(err error) (Diagnostics, bool) {
	if err == nil {
		return nil, false
	}
	var ds Diagnostics
	if errors.As(err, &ds) {
		return ds, true
	}
	return nil, false
}
