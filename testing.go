package evloop

import "sync"

// MockTask is a test double implementing Task. Steps is the list of
// Awaits to return, one per Resume call; once the steps are exhausted,
// every further Resume returns a {nil, nil} ("done") Await. DropCalls
// tracks how many times Drop ran, for tests asserting drop-on-destroy
// semantics (spec §8 scenario 2).
type MockTask struct {
	mu        sync.Mutex
	Steps     []Await
	StepErr   []error
	pos       int
	DropCalls int
	OnResume  func(step int)
}

// NewMockTask creates a MockTask that returns steps in order, then a final
// {nil, nil} ("done") Await if steps is exhausted without one.
func NewMockTask(steps ...Await) *MockTask {
	return &MockTask{Steps: steps}
}

func (m *MockTask) Resume(l *Loop) (Await, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.OnResume != nil {
		m.OnResume(m.pos)
	}

	if m.pos >= len(m.Steps) {
		return Await{}, nil
	}
	step := m.Steps[m.pos]
	var err error
	if m.pos < len(m.StepErr) {
		err = m.StepErr[m.pos]
	}
	m.pos++
	return step, err
}

func (m *MockTask) Drop(l *Loop) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DropCalls++
}

// MockAsyncTask is a test double implementing AsyncTask. Run, if set, is
// invoked synchronously inside StartAndThen before the continuation is
// submitted (tests that don't care about real async timing can use this
// instead of spawning a goroutine). FailSpawn forces StartAndThen to
// return a CodeWorkerSpawn error without submitting the continuation, for
// exercising spec §7's worker-spawn-failure path.
type MockAsyncTask struct {
	Run       func()
	FailSpawn bool
	Started   bool
}

func (m *MockAsyncTask) StartAndThen(l *Loop, continuation Task) error {
	m.Started = true
	if m.FailSpawn {
		return NewError("start_and_then", CodeWorkerSpawn, "mock spawn failure")
	}
	if m.Run != nil {
		m.Run()
	}
	return l.Submit(continuation)
}

// AlwaysTrue is a convenience predicate for RunUntil(AlwaysTrue) — drains
// the ready queue once and returns.
func AlwaysTrue() bool {
	return true
}
