package repo

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreFile is the name of the per-repository ignore file.
const IgnoreFile = ".litignore"

// IgnoreChecker decides which working-tree paths lit never tracks.
//
// Rules are read from .litignore at the repository root, one glob per line.
// A rule containing a slash is anchored at the root; otherwise it matches a
// name at any depth. A trailing slash restricts a rule to directories and a
// leading "!" re-includes. The last matching rule wins, and nothing under an
// ignored directory can be re-included.
type IgnoreChecker struct {
	rules []ignoreRule
}

type ignoreRule struct {
	re       *regexp.Regexp
	negate   bool
	dirOnly  bool
	anchored bool
}

// NewIgnoreChecker loads the ignore rules for repoRoot. The metadata
// directory and .git are always ignored.
func NewIgnoreChecker(repoRoot string) *IgnoreChecker {
	ic := &IgnoreChecker{}
	for _, name := range []string{DirName, ".git"} {
		if rule, ok := compileIgnoreRule(name); ok {
			ic.rules = append(ic.rules, rule)
		}
	}

	f, err := os.Open(filepath.Join(repoRoot, IgnoreFile))
	if err != nil {
		return ic
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if rule, ok := compileIgnoreRule(scanner.Text()); ok {
			ic.rules = append(ic.rules, rule)
		}
	}
	return ic
}

// compileIgnoreRule parses one .litignore line. Blank lines and comments
// yield ok == false.
func compileIgnoreRule(line string) (ignoreRule, bool) {
	line = strings.TrimRight(line, " \t\r")
	if line == "" || strings.HasPrefix(line, "#") {
		return ignoreRule{}, false
	}

	var rule ignoreRule
	if rest, ok := strings.CutPrefix(line, "!"); ok {
		rule.negate = true
		line = rest
	}
	if strings.HasSuffix(line, "/") {
		rule.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	if rest, ok := strings.CutPrefix(line, "/"); ok {
		rule.anchored = true
		line = rest
	}
	if strings.Contains(line, "/") {
		rule.anchored = true
	}
	if line == "" {
		return ignoreRule{}, false
	}

	re, err := regexp.Compile(globRegexp(line))
	if err != nil {
		return ignoreRule{}, false
	}
	rule.re = re
	return rule, true
}

// globRegexp translates a glob into an anchored regular expression. "*"
// and "?" stay within one path segment, "**/" spans zero or more segments
// and any other "**" spans anything.
func globRegexp(glob string) string {
	var b strings.Builder
	b.WriteByte('^')
	for i := 0; i < len(glob); i++ {
		switch c := glob[i]; {
		case strings.HasPrefix(glob[i:], "**/"):
			b.WriteString("(?:.*/)?")
			i += 2
		case strings.HasPrefix(glob[i:], "**"):
			b.WriteString(".*")
			i++
		case c == '*':
			b.WriteString("[^/]*")
		case c == '?':
			b.WriteString("[^/]")
		case c == '[':
			end := strings.IndexByte(glob[i+1:], ']')
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			class := glob[i+1 : i+1+end]
			if rest, ok := strings.CutPrefix(class, "!"); ok {
				class = "^" + rest
			}
			b.WriteString("[" + class + "]")
			i += end + 1
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteByte('$')
	return b.String()
}

func (rule ignoreRule) matches(p string, isDir bool) bool {
	if rule.dirOnly && !isDir {
		return false
	}
	if rule.anchored {
		return rule.re.MatchString(p)
	}
	return rule.re.MatchString(p[strings.LastIndexByte(p, '/')+1:])
}

// decide returns the verdict of the last rule matching p.
func (ic *IgnoreChecker) decide(p string, isDir bool) bool {
	ignored := false
	for _, rule := range ic.rules {
		if rule.matches(p, isDir) {
			ignored = !rule.negate
		}
	}
	return ignored
}

// Match reports whether the slash-separated repo path p is ignored. isDir
// says whether p itself is a directory.
func (ic *IgnoreChecker) Match(p string, isDir bool) bool {
	p = strings.Trim(filepath.ToSlash(p), "/")
	if p == "" || p == "." {
		return false
	}
	for i := 0; i < len(p); i++ {
		if p[i] == '/' && ic.decide(p[:i], true) {
			return true
		}
	}
	return ic.decide(p, isDir)
}

// IsIgnored reports whether the file at p is ignored.
func (ic *IgnoreChecker) IsIgnored(p string) bool {
	return ic.Match(p, false)
}
