package logging

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/juststeveking/readycheck/internal/check"
)

const Category = "logging"

var logExtensions = map[string]bool{".log": true, ".jsonl": true, ".json": true}

var levelPaths = []string{"level", "severity", "lvl", "log.level"}

var debugWord = regexp.MustCompile(`(?i)\b(DEBUG|TRACE)\b`)

type piiPattern struct {
	name string
	re   *regexp.Regexp
	// valid filters regex hits; nil accepts every match.
	valid func(string) bool
}

var piiPatterns = []piiPattern{
	{name: "card number", re: regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`), valid: luhn},
	{name: "social security number", re: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{name: "credential", re: regexp.MustCompile(`(?i)"?(password|passwd|secret|api_key|token)"?\s*[:=]\s*["'][^"']{4,}["']`)},
	{name: "bearer token", re: regexp.MustCompile(`(?i)bearer\s+[a-z0-9._\-]{20,}`)},
}

// Checker inspects the service's log output.
type Checker struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{logger: logger}
}

func (c *Checker) Category() string { return Category }

func (c *Checker) Check(ctx context.Context, _ check.Target, opts check.Options) ([]check.Result, error) {
	dir := opts.String("log_dir", "logs")
	if root := opts.String("project_dir", ""); root != "" && !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return []check.Result{check.Warn("log-dir", "log directory %s not found", dir)}, nil
	}
	results := []check.Result{check.Pass("log-dir", "log directory %s exists", dir)}

	files, err := logFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return append(results, check.Pass("log-files", "no log files yet")), nil
	}
	results = append(results, check.Pass("log-files", "%d log files", len(files)))

	limit := opts.Int("sample_lines", 200)
	latest, err := sample(files[0], limit)
	if err != nil {
		return append(results, check.Error("json-format", "could not read %s: %v", files[0], err)), nil
	}
	c.logger.Debug("log_sample_read", zap.String("file", files[0]), zap.Int("lines", len(latest)))

	results = append(results, checkJSON(filepath.Base(files[0]), latest))
	results = append(results, checkDebugRatio(latest, opts.Float("max_debug_ratio", 0.2)))

	var findings []string
	for _, file := range files {
		lines, err := sample(file, limit)
		if err != nil {
			continue
		}
		for _, name := range ScanPII(lines) {
			findings = append(findings, name+" in "+filepath.Base(file))
		}
	}
	if len(findings) > 0 {
		results = append(results, check.Fail("pii-scan", "sensitive data logged: %s", strings.Join(findings, "; ")))
	} else {
		results = append(results, check.Pass("pii-scan", "no sensitive data patterns found"))
	}
	return results, nil
}

// logFiles returns log files in dir, most recently modified first.
func logFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type entry struct {
		path string
		mod  int64
	}
	var found []entry
	for _, e := range entries {
		if e.IsDir() || !logExtensions[filepath.Ext(e.Name())] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, entry{filepath.Join(dir, e.Name()), info.ModTime().UnixNano()})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].mod > found[j].mod })

	paths := make([]string, len(found))
	for i, e := range found {
		paths[i] = e.path
	}
	return paths, nil
}

func sample(path string, limit int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() && len(lines) < limit {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func checkJSON(file string, lines []string) check.Result {
	if len(lines) == 0 {
		return check.Warn("json-format", "%s is empty", file)
	}
	valid := 0
	for _, line := range lines {
		if gjson.Valid(line) && gjson.Parse(line).IsObject() {
			valid++
		}
	}
	ratio := float64(valid) / float64(len(lines))
	if valid == len(lines) {
		return check.Pass("json-format", "%s is structured JSON", file).WithMeasure(ratio, 1)
	}
	return check.Warn("json-format", "%d of %d lines in %s are not JSON", len(lines)-valid, len(lines), file).WithMeasure(ratio, 1)
}

// Level extracts the log level of a single line.
func Level(line string) string {
	if gjson.Valid(line) {
		for _, path := range levelPaths {
			if v := gjson.Get(line, path); v.Exists() {
				return strings.ToUpper(v.String())
			}
		}
		return ""
	}
	if m := debugWord.FindString(line); m != "" {
		return strings.ToUpper(m)
	}
	return ""
}

func checkDebugRatio(lines []string, max float64) check.Result {
	if len(lines) == 0 {
		return check.Pass("debug-ratio", "no log lines sampled")
	}
	debug := 0
	for _, line := range lines {
		switch Level(line) {
		case "DEBUG", "TRACE":
			debug++
		}
	}
	ratio := float64(debug) / float64(len(lines))
	if ratio > max {
		return check.Warn("debug-ratio", "%.0f%% of sampled lines are debug level", ratio*100).WithMeasure(ratio, max)
	}
	return check.Pass("debug-ratio", "%.0f%% of sampled lines are debug level", ratio*100).WithMeasure(ratio, max)
}

// ScanPII returns the names of sensitive data patterns found in lines.
func ScanPII(lines []string) []string {
	var found []string
	for _, p := range piiPatterns {
		if matchesAny(p, lines) {
			found = append(found, p.name)
		}
	}
	return found
}

func matchesAny(p piiPattern, lines []string) bool {
	for _, line := range lines {
		for _, m := range p.re.FindAllString(line, -1) {
			if p.valid == nil || p.valid(m) {
				return true
			}
		}
	}
	return false
}

// luhn validates a candidate card number.
func luhn(s string) bool {
	var digits []int
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, int(r-'0'))
		}
	}
	if len(digits) < 13 {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
