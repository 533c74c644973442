package parser

import (
	"errors"
	"fmt"

	"github.com/andybalholm/cascadia"
)

// ErrSelectorCompile marks a selector string cascadia rejects. It is a
// configuration error and should stop the process before any I/O.
var ErrSelectorCompile = errors.New("selector compile error")

// SelectorSpec is the textual form of a selector: anchors are looked up
// inside every element matched by Container.
type SelectorSpec struct {
	Container string `mapstructure:"container"`
	Anchor    string `mapstructure:"anchor"`
}

// SelectorSet groups the selector strings used by the pipeline.
type SelectorSet struct {
	Seed         SelectorSpec `mapstructure:"seed"`         // root index snapshot -> months
	MonthIndex   SelectorSpec `mapstructure:"month_index"`  // month index -> days
	Descriptions SelectorSpec `mapstructure:"descriptions"` // listing page -> products
	Pages        SelectorSpec `mapstructure:"pages"`        // listing page -> pagination
}

// Selector is a compiled SelectorSpec.
type Selector struct {
	spec      SelectorSpec
	container cascadia.Selector
	anchor    cascadia.Selector
}

func (s *Selector) String() string {
	return s.spec.Container + " " + s.spec.Anchor
}

// Compile turns a SelectorSpec into a matcher pair.
func Compile(spec SelectorSpec) (*Selector, error) {
	container, err := cascadia.Compile(spec.Container)
	if err != nil {
		return nil, fmt.Errorf("%w: container %q: %v", ErrSelectorCompile, spec.Container, err)
	}
	anchor, err := cascadia.Compile(spec.Anchor)
	if err != nil {
		return nil, fmt.Errorf("%w: anchor %q: %v", ErrSelectorCompile, spec.Anchor, err)
	}

	return &Selector{
		spec:      spec,
		container: container,
		anchor:    anchor,
	}, nil
}

// Selectors is the compiled form of a SelectorSet.
type Selectors struct {
	Seed         *Selector
	MonthIndex   *Selector
	Descriptions *Selector
	Pages        *Selector
}

// CompileSet compiles every selector of set, failing on the first invalid one.
func CompileSet(set SelectorSet) (*Selectors, error) {
	var (
		out Selectors
		err error
	)

	targets := []struct {
		name string
		spec SelectorSpec
		dst  **Selector
	}{
		{"seed", set.Seed, &out.Seed},
		{"month_index", set.MonthIndex, &out.MonthIndex},
		{"descriptions", set.Descriptions, &out.Descriptions},
		{"pages", set.Pages, &out.Pages},
	}

	for _, t := range targets {
		if *t.dst, err = Compile(t.spec); err != nil {
			return nil, fmt.Errorf("selectors.%s: %w", t.name, err)
		}
	}

	return &out, nil
}
