package bridge

// Condition gates a routine for the current tick.
// Conditions must be pure reads of synchronous-domain state.
type Condition func() bool

type routine struct {
	name string
	run  func()
	when []Condition
}

// Schedule is the ordered set of routines executed on every tick.
//
// Routines run to completion in declaration order and must never block.
// A routine whose conditions do not all hold is skipped for that tick;
// skipping is not an error.
//
// Not safe for concurrent use: a schedule belongs to the poll loop.
type Schedule struct {
	routines []routine
}

// Add appends a routine. It runs after every routine added before it.
func (s *Schedule) Add(name string, run func(), when ...Condition) {
	s.routines = append(s.routines, routine{name: name, run: run, when: when})
}

// Run executes one tick and returns the names of the routines that ran.
func (s *Schedule) Run() []string {
	ran := make([]string, 0, len(s.routines))
	for _, r := range s.routines {
		if !allHold(r.when) {
			continue
		}
		r.run()
		ran = append(ran, r.name)
	}
	return ran
}

// Names returns routine names in execution order.
func (s *Schedule) Names() []string {
	names := make([]string, len(s.routines))
	for i, r := range s.routines {
		names[i] = r.name
	}
	return names
}

func allHold(conds []Condition) bool {
	for _, c := range conds {
		if !c() {
			return false
		}
	}
	return true
}
