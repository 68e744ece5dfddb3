package coilwinder

import (
	"fmt"
	"io"
	"strconv"
)

// Category prefixes every line the core sends to the host
type Category string

const (
	CategoryStatus Category = "STATUS"
	CategoryParam  Category = "PARAM"
	CategoryWarn   Category = "WARN"
	CategoryError  Category = "ERROR"
	CategoryInfo   Category = "INFO"
)

// Reporter writes categorized response lines to the transport. A nil writer discards everything.
type Reporter struct {
	w io.Writer
}

// NewReporter creates a Reporter writing to w
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Line writes a single "CATEGORY: text" line
func (r *Reporter) Line(c Category, text string) {
	if r == nil || r.w == nil {
		return
	}
	_, _ = io.WriteString(r.w, string(c)+": "+text+"\n")
}

func (r *Reporter) Status(format string, args ...any) {
	r.Line(CategoryStatus, fmt.Sprintf(format, args...))
}

func (r *Reporter) Info(format string, args ...any) {
	r.Line(CategoryInfo, fmt.Sprintf(format, args...))
}

func (r *Reporter) Warn(format string, args ...any) {
	r.Line(CategoryWarn, fmt.Sprintf(format, args...))
}

func (r *Reporter) Error(format string, args ...any) {
	r.Line(CategoryError, fmt.Sprintf(format, args...))
}

// Param reports a single named parameter value
func (r *Reporter) Param(name string, value any) {
	r.Line(CategoryParam, name+"="+formatValue(value))
}

// Progress reports the completed turn count and guide angle in the format the host GUI parses
func (r *Reporter) Progress(turns int, angle float64) {
	r.Line(CategoryStatus, " -> Turn: "+strconv.Itoa(turns)+" | Servo Pos: "+FormatFloat(angle))
}

// FormatFloat renders the shortest decimal form of f
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatValue(v any) string {
	switch v := v.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', 3, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', 3, 32)
	case int:
		return strconv.Itoa(v)
	case bool:
		if v {
			return "ON"
		}
		return "OFF"
	case fmt.Stringer:
		return v.String()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
