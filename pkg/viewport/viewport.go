// Package viewport parses compact viewport descriptors such as
// "1024x768 mobile landscape devname".
package viewport

import (
	"fmt"
	"strconv"
	"strings"
)

// Spec is a parsed viewport descriptor.
type Spec struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	IsMobile    bool   `json:"isMobile"`
	IsLandscape bool   `json:"isLandscape"`
	PathKey     string `json:"pathKey"` // normalized descriptor, used in filenames
}

// ParseError is returned for descriptors whose leading token is not WxH.
type ParseError struct {
	Descriptor string
	Reason     string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("viewport: cannot parse %q: %s", e.Descriptor, e.Reason)
}

// Parse parses a descriptor of the form "<width>x<height>[ mobile][ landscape][ <name>]".
// Tokens are case-insensitive and separated by single spaces. Unknown tokens
// only contribute to the PathKey, which is the lower-cased descriptor with
// every space replaced by "-".
func Parse(descriptor string) (Spec, error) {
	if strings.TrimSpace(descriptor) == "" {
		return Spec{}, &ParseError{Descriptor: descriptor, Reason: "empty descriptor"}
	}
	lower := strings.ToLower(descriptor)
	terms := strings.Split(lower, " ")

	w, h, ok := strings.Cut(terms[0], "x")
	if !ok {
		return Spec{}, &ParseError{Descriptor: descriptor, Reason: "missing 'x' between width and height"}
	}

	width, err := parseDimension(w)
	if err != nil {
		return Spec{}, &ParseError{Descriptor: descriptor, Reason: "width: " + err.Error()}
	}
	height, err := parseDimension(h)
	if err != nil {
		return Spec{}, &ParseError{Descriptor: descriptor, Reason: "height: " + err.Error()}
	}

	spec := Spec{
		Width:   width,
		Height:  height,
		PathKey: strings.ReplaceAll(lower, " ", "-"),
	}
	for _, t := range terms[1:] {
		switch t {
		case "mobile":
			spec.IsMobile = true
		case "landscape":
			spec.IsLandscape = true
		}
	}

	return spec, nil
}

// ParseAll parses every descriptor in order and stops at the first error.
func ParseAll(descriptors []string) ([]Spec, error) {
	specs := make([]Spec, 0, len(descriptors))
	for _, d := range descriptors {
		spec, err := Parse(d)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (s Spec) String() string {
	return s.PathKey
}

func parseDimension(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%d is not positive", n)
	}
	return n, nil
}
