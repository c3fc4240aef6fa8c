package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/roach88/testmatrix/internal/harness"
)

// TimestampLayout formats run start times in JUnit documents.
const TimestampLayout = "2006-01-02 15:04:05 MST"

// JUnitSuites is the root element of a JUnit document.
type JUnitSuites struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Disabled int          `xml:"disabled,attr"`
	Errors   int          `xml:"errors,attr"`
	Failures int          `xml:"failures,attr"`
	Tests    int          `xml:"tests,attr"`
	Time     float64      `xml:"time,attr"`
	Suites   []JUnitSuite `xml:"testsuite"`
}

// JUnitSuite holds the runs of one test.
type JUnitSuite struct {
	Name       string           `xml:"name,attr"`
	Disabled   int              `xml:"disabled,attr"`
	Errors     int              `xml:"errors,attr"`
	Failures   int              `xml:"failures,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Tests      int              `xml:"tests,attr"`
	Time       float64          `xml:"time,attr"`
	Properties *JUnitProperties `xml:"properties,omitempty"`
	Cases      []JUnitCase      `xml:"testcase"`
}

// JUnitProperties wraps suite properties so an empty set is omitted.
type JUnitProperties struct {
	Properties []JUnitProperty `xml:"property"`
}

// JUnitProperty is a name/value pair attached to a suite.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// JUnitCase is one run. Status carries the note of a passing run.
type JUnitCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr,omitempty"`
	Time      float64       `xml:"time,attr"`
	Timestamp string        `xml:"timestamp,attr,omitempty"`
	Args      string        `xml:"args,attr,omitempty"`
	Status    string        `xml:"status,attr,omitempty"`
	Skipped   *JUnitMessage `xml:"skipped,omitempty"`
	Failure   *JUnitMessage `xml:"failure,omitempty"`
	Error     *JUnitMessage `xml:"error,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
	SystemErr string        `xml:"system-err,omitempty"`
}

// JUnitMessage is a skipped, failure or error element.
type JUnitMessage struct {
	Type    string `xml:"type,attr"`
	Message string `xml:"message,attr"`
	Output  string `xml:",chardata"`
}

// JUnitOptions adds run metadata to generated suites.
type JUnitOptions struct {
	// RunID is recorded as the "run_id" suite property when set.
	RunID string
}

// NewJUnitSuite converts a harness suite.
func NewJUnitSuite(s *harness.Suite, opts JUnitOptions) JUnitSuite {
	js := JUnitSuite{Name: s.Test, Cases: make([]JUnitCase, 0, len(s.Results))}
	if opts.RunID != "" {
		js.Properties = &JUnitProperties{Properties: []JUnitProperty{{Name: "run_id", Value: opts.RunID}}}
	}

	for _, r := range s.Results {
		c := JUnitCase{
			Name:      r.Name(),
			ClassName: r.Request.ClassName(),
			Time:      r.Outcome.Elapsed.Seconds(),
			Args:      r.Request.CommandLine(),
			SystemOut: r.Outcome.Stdout,
			SystemErr: r.Outcome.Stderr,
		}
		if !r.Outcome.Started.IsZero() {
			c.Timestamp = r.Outcome.Started.Format(TimestampLayout)
		}

		st := r.Status
		switch st.Kind {
		case harness.Passed:
			c.Status = st.Message
		case harness.Skipped:
			c.Skipped = &JUnitMessage{Type: "skipped", Message: st.Message}
			js.Skipped++
		case harness.Failed:
			c.Failure = &JUnitMessage{Type: "failure", Message: st.Message, Output: st.Detail}
			js.Failures++
		case harness.Errored:
			c.Error = &JUnitMessage{Type: "error", Message: st.Message, Output: st.Detail}
			js.Errors++
		}

		js.Tests++
		js.Time += c.Time
		js.Cases = append(js.Cases, c)
	}
	return js
}

// NewJUnit builds a document from suites, totalling their counts.
func NewJUnit(suites ...JUnitSuite) *JUnitSuites {
	doc := &JUnitSuites{}
	for _, s := range suites {
		doc.add(s)
	}
	return doc
}

func (d *JUnitSuites) add(s JUnitSuite) {
	d.Suites = append(d.Suites, s)
	d.Disabled += s.Disabled
	d.Errors += s.Errors
	d.Failures += s.Failures
	d.Tests += s.Tests
	d.Time += s.Time
}

// Write encodes the document to w.
func (d *JUnitSuites) Write(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "\t")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode junit: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteFile writes the document to path, creating parent directories.
func (d *JUnitSuites) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := d.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadJUnit decodes a JUnit document.
func ReadJUnit(r io.Reader) (*JUnitSuites, error) {
	doc := &JUnitSuites{}
	if err := xml.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("decode junit: %w", err)
	}
	return doc, nil
}

// ReadJUnitFile decodes the JUnit document at path.
func ReadJUnitFile(path string) (*JUnitSuites, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := ReadJUnit(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
