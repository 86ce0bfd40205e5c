package native

import (
	"fmt"
	"strings"
)

// Facility identifies the subsystem a change notification refers to.
type Facility uint32

const (
	FacilitySink         Facility = 0
	FacilitySource       Facility = 1
	FacilitySinkInput    Facility = 2
	FacilitySourceOutput Facility = 3
	FacilityModule       Facility = 4
	FacilityClient       Facility = 5
	FacilitySampleCache  Facility = 6
	FacilityServer       Facility = 7
	FacilityCard         Facility = 9
)

var facilityNames = map[Facility]string{
	FacilitySink:         "sink",
	FacilitySource:       "source",
	FacilitySinkInput:    "sink_input",
	FacilitySourceOutput: "source_output",
	FacilityModule:       "module",
	FacilityClient:       "client",
	FacilitySampleCache:  "sample_cache",
	FacilityServer:       "server",
	FacilityCard:         "card",
}

// Known reports whether f is one of the defined facilities.
func (f Facility) Known() bool {
	_, ok := facilityNames[f]
	return ok
}

func (f Facility) String() string {
	if n, ok := facilityNames[f]; ok {
		return n
	}
	return fmt.Sprintf("facility(%d)", uint32(f))
}

// Mask returns the interest bit for f, or zero for unknown facilities.
func (f Facility) Mask() InterestMask {
	if !f.Known() {
		return 0
	}
	return InterestMask(1) << uint32(f)
}

// ParseFacility maps a facility name ("sink", "server", ...) to its value.
func ParseFacility(name string) (Facility, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for f, s := range facilityNames {
		if s == n {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown facility %q", name)
}

// EventOperation is the kind of change a notification reports.
type EventOperation uint32

const (
	EventNew     EventOperation = 0x00
	EventChanged EventOperation = 0x10
	EventRemoved EventOperation = 0x20
)

// Known reports whether op is one of the defined operations.
func (op EventOperation) Known() bool {
	switch op {
	case EventNew, EventChanged, EventRemoved:
		return true
	}
	return false
}

func (op EventOperation) String() string {
	switch op {
	case EventNew:
		return "new"
	case EventChanged:
		return "change"
	case EventRemoved:
		return "remove"
	}
	return fmt.Sprintf("operation(%#x)", uint32(op))
}

// InterestMask selects the facilities a subscription is notified about.
type InterestMask uint32

const (
	MaskNull         InterestMask = 0
	MaskSink         InterestMask = 1 << 0
	MaskSource       InterestMask = 1 << 1
	MaskSinkInput    InterestMask = 1 << 2
	MaskSourceOutput InterestMask = 1 << 3
	MaskModule       InterestMask = 1 << 4
	MaskClient       InterestMask = 1 << 5
	MaskSampleCache  InterestMask = 1 << 6
	MaskServer       InterestMask = 1 << 7
	MaskCard         InterestMask = 1 << 9
	MaskAll          InterestMask = 0x02ff
)

// Has reports whether f is selected by m.
func (m InterestMask) Has(f Facility) bool {
	bit := f.Mask()
	return bit != 0 && m&bit != 0
}

// ParseMask builds a mask from facility names; "all" selects everything.
func ParseMask(names []string) (InterestMask, error) {
	var m InterestMask
	for _, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), "all") {
			m |= MaskAll
			continue
		}
		f, err := ParseFacility(n)
		if err != nil {
			return 0, err
		}
		m |= f.Mask()
	}
	return m, nil
}
