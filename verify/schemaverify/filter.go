package schemaverify

import (
	"regexp"

	"github.com/cockroachdb/errors"
)

const DefaultFilterString = ".*"

type FilterString = string

func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		ColumnFilter: DefaultFilterString,
	}
}

// FilterConfig restricts which columns take part in a comparison.
type FilterConfig struct {
	ColumnFilter FilterString
}

type compiledFilter struct {
	re *regexp.Regexp
}

func (cfg FilterConfig) compile() (*compiledFilter, error) {
	if cfg.ColumnFilter == "" || cfg.ColumnFilter == DefaultFilterString {
		return &compiledFilter{}, nil
	}
	re, err := regexp.CompilePOSIX(cfg.ColumnFilter)
	if err != nil {
		return nil, errors.Wrapf(err, "error compiling column filter %q", cfg.ColumnFilter)
	}
	return &compiledFilter{re: re}, nil
}

func (f *compiledFilter) matches(name string) bool {
	return f.re == nil || f.re.MatchString(name)
}
