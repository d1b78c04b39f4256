package sloc

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"

	"github.com/matzehuels/debtower/pkg/errors"
)

// Language keys reported by cloc that the summary keeps.
const (
	LangC      = "C"
	LangCPP    = "C++"
	LangHeader = "C/C++ Header"
	LangGo     = "Go"
	LangSum    = "SUM"
)

// Result is one surveyed package: its name, pool directory, and the raw
// cloc JSON report.
type Result struct {
	Package string          `json:"Package"`
	Path    string          `json:"Path"`
	Lines   json.RawMessage `json:"Lines"`
}

// LanguageCount is cloc's per-language entry.
type LanguageCount struct {
	Files   int `json:"nFiles"`
	Blank   int `json:"blank"`
	Comment int `json:"comment"`
	Code    int `json:"code"`
}

// Summary holds the code line counts of the languages the survey tracks.
type Summary struct {
	Name   string `json:"name"`
	C      int    `json:"c"`
	CPP    int    `json:"cpp"`
	Header int    `json:"header"`
	Go     int    `json:"go"`
	All    int    `json:"all"`
	Raw    string `json:"raw"`
}

// Languages decodes the report into per-language counts. Entries that are
// not language counts (cloc's "header" block) are dropped.
func (r Result) Languages() (map[string]LanguageCount, error) {
	if len(r.Lines) == 0 {
		return map[string]LanguageCount{}, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(r.Lines, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode cloc report for %s", r.Package)
	}
	out := make(map[string]LanguageCount, len(raw))
	for lang, msg := range raw {
		if lang == "header" {
			continue
		}
		var lc LanguageCount
		if json.Unmarshal(msg, &lc) == nil {
			out[lang] = lc
		}
	}
	return out, nil
}

// Summary extracts the tracked code counts. Missing languages count as 0.
func (r Result) Summary() (Summary, error) {
	langs, err := r.Languages()
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Name:   r.Package,
		C:      langs[LangC].Code,
		CPP:    langs[LangCPP].Code,
		Header: langs[LangHeader].Code,
		Go:     langs[LangGo].Code,
		All:    langs[LangSum].Code,
		Raw:    string(r.Lines),
	}, nil
}

// ReadResults parses a JSON-lines result file. Blank lines are ignored.
func ReadResults(r io.Reader) ([]Result, error) {
	var out []Result
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var res Result
		if err := json.Unmarshal(b, &res); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "result line %d", line)
		}
		out = append(out, res)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read results")
	}
	return out, nil
}

// ResultWriter appends results as JSON lines. It is safe for concurrent use.
type ResultWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewResultWriter returns a writer emitting one JSON object per line to w.
func NewResultWriter(w io.Writer) *ResultWriter {
	return &ResultWriter{enc: json.NewEncoder(w)}
}

// Write encodes res followed by a newline.
func (w *ResultWriter) Write(res Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(res)
}
