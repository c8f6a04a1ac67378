package models

import (
	"errors"
	"fmt"
)

// Suite is a named, ordered list of cases loaded from a suite file or
// compiled into the binary.
type Suite struct {
	Name        string
	Description string
	FilePath    string // Absolute path of the file the suite came from; empty for built-ins
	Cases       []TestCase
}

// Validate checks every case and rejects duplicate case names.
func (s *Suite) Validate() error {
	if len(s.Cases) == 0 {
		return fmt.Errorf("suite %q has no cases", s.Name)
	}

	var errs []error
	seen := make(map[string]bool, len(s.Cases))
	for i := range s.Cases {
		tc := &s.Cases[i]
		if err := tc.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[tc.Name] {
			errs = append(errs, fmt.Errorf("duplicate case name %q", tc.Name))
		}
		seen[tc.Name] = true
	}
	return errors.Join(errs...)
}

// Filter returns a copy of the suite holding only the named cases, in suite order.
func (s *Suite) Filter(names []string) (*Suite, error) {
	if len(names) == 0 {
		return s, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	out := *s
	out.Cases = nil
	for _, tc := range s.Cases {
		if want[tc.Name] {
			out.Cases = append(out.Cases, tc)
			delete(want, tc.Name)
		}
	}
	for n := range want {
		return nil, fmt.Errorf("suite %q has no case named %q", s.Name, n)
	}
	return &out, nil
}
