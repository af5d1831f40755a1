package metadata

import (
	"bufio"
	"io"
	"sort"
	"strings"
)

type rule struct {
	prefix  string
	include bool
}

// RuleFilter includes or excludes definitions by namespace or qualified type
// name. The longest matching rule decides; a definition no rule matches is
// excluded.
type RuleFilter struct {
	rules []rule
}

// NewFilter builds a RuleFilter from include and exclude rules. A rule is a
// namespace (matching it and every nested namespace) or a qualified type name.
func NewFilter(include, exclude []string) *RuleFilter {
	filter := &RuleFilter{}
	for _, prefix := range include {
		filter.add(prefix, true)
	}
	for _, prefix := range exclude {
		filter.add(prefix, false)
	}

	sort.SliceStable(filter.rules, func(i, j int) bool {
		return len(filter.rules[i].prefix) > len(filter.rules[j].prefix)
	})
	return filter
}

// ParseRules reads one rule per line. Lines starting with '!' or '-' are
// exclusions, '#' starts a comment and blank lines are skipped.
func ParseRules(r io.Reader) (include, exclude []string, err error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch line[0] {
		case '!', '-':
			exclude = append(exclude, strings.TrimSpace(line[1:]))
		default:
			include = append(include, line)
		}
	}
	return include, exclude, scanner.Err()
}

func (f *RuleFilter) add(prefix string, include bool) {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		return
	}
	f.rules = append(f.rules, rule{prefix, include})
}

// Includes implements Filter.
func (f *RuleFilter) Includes(namespace, name string) bool {
	full := TypeName{namespace, name}.String()
	for _, r := range f.rules {
		if r.prefix == full || r.prefix == namespace || strings.HasPrefix(namespace, r.prefix+".") {
			return r.include
		}
	}
	return false
}

// IsEmpty reports whether the filter has no rules and so excludes everything.
func (f *RuleFilter) IsEmpty() bool {
	return len(f.rules) == 0
}
