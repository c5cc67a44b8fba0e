package detection

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/injectguard/injectguard/pkg/domain/attempt"
	"github.com/valyala/fastjson"
)

const (
	defaultMaxScanBytes     = 1 << 20
	defaultMaxMatchedLength = 200
)

// suspiciousChars is a fast pre-filter: a value containing none of these
// cannot match any rule, so the regex pass is skipped entirely.
var suspiciousChars = []byte{'\'', '"', ';', '|', '&', '`', '$', '%', '.', '\x00', '-', '#', '/', '*', '('}

// Detection is a single in-memory match of a payload field against a rule.
// It is consumed immediately by the guard and alert pipeline and never
// persisted verbatim.
type Detection struct {
	Field        string
	MatchedValue string
	Kind         attempt.Kind
	Severity     attempt.Severity
	Pattern      string
	Description  string
}

// Detector scans structured payloads against a catalog. It is a pure
// component: no I/O, no mutation of its input, deterministic output for a
// given payload and catalog.
type Detector struct {
	catalog          *Catalog
	maxScanBytes     int
	maxMatchedLength int
}

func NewDetector(catalog *Catalog, maxScanBytes, maxMatchedLength int) *Detector {
	if maxScanBytes <= 0 {
		maxScanBytes = defaultMaxScanBytes
	}
	if maxMatchedLength <= 0 {
		maxMatchedLength = defaultMaxMatchedLength
	}
	return &Detector{
		catalog:          catalog,
		maxScanBytes:     maxScanBytes,
		maxMatchedLength: maxMatchedLength,
	}
}

type frame struct {
	path  string
	value interface{}
}

// Detect walks a decoded payload and returns every field whose string value
// matches a rule. Only string leaves are scanned; numbers, booleans and
// nulls cannot carry injection payloads. Rules are evaluated in catalog
// order and the first match wins per field. The walk is iterative with an
// explicit stack and visits object keys in sorted order so results are
// reproducible. The returned slice is never nil.
func (d *Detector) Detect(prefix string, payload map[string]interface{}) []Detection {
	detections := make([]Detection, 0)
	budget := d.maxScanBytes

	stack := []frame{{path: prefix, value: payload}}
	for len(stack) > 0 && budget > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch v := top.value.(type) {
		case string:
			d.matchValue(top.path, v, &detections, &budget)
		case map[string]interface{}:
			keys := make([]string, 0, len(v))
			for key := range v {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			// push in reverse so pops come out sorted
			for i := len(keys) - 1; i >= 0; i-- {
				stack = append(stack, frame{path: joinPath(top.path, keys[i]), value: v[keys[i]]})
			}
		case []interface{}:
			for i := len(v) - 1; i >= 0; i-- {
				stack = append(stack, frame{path: joinPath(top.path, strconv.Itoa(i)), value: v[i]})
			}
		}
	}

	return detections
}

// DetectJSON scans a raw JSON document without decoding it into generic
// maps first. Invalid JSON is an error for the caller to decide on; the
// guard treats an unparseable body as not scannable rather than malicious.
func (d *Detector) DetectJSON(prefix string, body []byte) ([]Detection, error) {
	detections := make([]Detection, 0)
	if len(body) == 0 {
		return detections, nil
	}

	var parser fastjson.Parser
	root, err := parser.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse payload: %w", err)
	}

	budget := d.maxScanBytes
	d.walkJSON(prefix, root, &detections, &budget)
	return detections, nil
}

func (d *Detector) walkJSON(path string, value *fastjson.Value, detections *[]Detection, budget *int) {
	if *budget <= 0 {
		return
	}
	switch value.Type() {
	case fastjson.TypeString:
		raw, err := value.StringBytes()
		if err != nil {
			return
		}
		d.matchValue(path, string(raw), detections, budget)
	case fastjson.TypeObject:
		obj, err := value.Object()
		if err != nil {
			return
		}
		obj.Visit(func(key []byte, child *fastjson.Value) {
			d.walkJSON(joinPath(path, string(key)), child, detections, budget)
		})
	case fastjson.TypeArray:
		items, err := value.Array()
		if err != nil {
			return
		}
		for i, child := range items {
			d.walkJSON(joinPath(path, strconv.Itoa(i)), child, detections, budget)
		}
	}
}

func (d *Detector) matchValue(path, value string, detections *[]Detection, budget *int) {
	if *budget <= 0 {
		return
	}
	if len(value) > *budget {
		value = value[:*budget]
	}
	*budget -= len(value)

	// union_select is the one built-in not anchored on a metacharacter, so
	// the char pre-filter alone cannot clear a value. Custom rules get no
	// pre-filter at all.
	if !d.catalog.HasCustomRules() &&
		!containsSuspiciousChars(value) &&
		!strings.Contains(strings.ToLower(value), "union") {
		return
	}

	for _, rule := range d.catalog.Rules() {
		match := rule.Pattern.FindString(value)
		if match == "" {
			continue
		}
		*detections = append(*detections, Detection{
			Field:        path,
			MatchedValue: truncate(match, d.maxMatchedLength),
			Kind:         rule.Kind,
			Severity:     rule.Severity,
			Pattern:      rule.Name,
			Description:  rule.Description,
		})
		return
	}
}

// HighestSeverity returns the maximum severity across detections, or the
// zero value when the slice is empty.
func HighestSeverity(detections []Detection) attempt.Severity {
	var highest attempt.Severity
	for _, detection := range detections {
		if detection.Severity.Rank() > highest.Rank() {
			highest = detection.Severity
		}
	}
	return highest
}

func containsSuspiciousChars(value string) bool {
	for _, char := range suspiciousChars {
		if strings.IndexByte(value, char) >= 0 {
			return true
		}
	}
	return false
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
