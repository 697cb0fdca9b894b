package behavior

import "strconv"

// ssaTable issues versioned names so assignment fragments carry distinct
// def/use labels even when one net is written several times. Counters span a
// module and reset between modules.
type ssaTable struct {
	counter map[string]int
	latestV map[string]string
}

func newSSA() *ssaTable {
	return &ssaTable{
		counter: make(map[string]int),
		latestV: make(map[string]string),
	}
}

// define allocates the next version for a variable and makes it current.
func (s *ssaTable) define(name string) string {
	s.counter[name]++
	versioned := name + "_" + strconv.Itoa(s.counter[name])
	s.latestV[name] = versioned
	return versioned
}

// latest returns the current version of a variable, or the bare name if it
// has never been assigned in this module.
func (s *ssaTable) latest(name string) string {
	if v, ok := s.latestV[name]; ok {
		return v
	}
	return name
}
