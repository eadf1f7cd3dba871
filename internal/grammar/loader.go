package grammar

import (
	"fmt"
	"sync"
)

// Loader owns the one-time initialization of a backend. Callers create one
// Loader per process (or per server) and pass the backend it yields into the
// extraction and analysis calls; a failed initialization is remembered and
// every later call reports the same error without retrying.
type Loader struct {
	once    sync.Once
	init    func() (Backend, error)
	backend Backend
	err     error
}

// NewLoader returns a Loader that will run init at most once.
func NewLoader(init func() (Backend, error)) *Loader {
	return &Loader{init: init}
}

// Backend runs the initializer on first use and returns its result.
func (l *Loader) Backend() (Backend, error) {
	l.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				l.backend = nil
				l.err = fmt.Errorf("grammar: backend initialization panicked: %v", r)
			}
		}()
		if l.init == nil {
			return
		}
		l.backend, l.err = l.init()
	})
	return l.backend, l.err
}

// Get returns the backend, or nil when initialization failed or produced
// none. A nil backend selects the text strategy.
func (l *Loader) Get() Backend {
	if l == nil {
		return nil
	}
	b, err := l.Backend()
	if err != nil {
		return nil
	}
	return b
}
