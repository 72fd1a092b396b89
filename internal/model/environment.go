package model

import (
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// environment counts the servers using the process wide ONNX Runtime
// environment. It is destroyed by the last release, and only when it was
// initialized here.
type environment struct {
	mu    sync.Mutex
	refs  int
	owned bool

	isInitialized func() bool
	initialize    func(sharedLibraryPath string) error
	destroy       func() error
}

var ortEnvironment = &environment{
	isInitialized: ort.IsInitialized,
	initialize: func(sharedLibraryPath string) error {
		if sharedLibraryPath != "" {
			ort.SetSharedLibraryPath(sharedLibraryPath)
		}
		return ort.InitializeEnvironment()
	},
	destroy: ort.DestroyEnvironment,
}

func (e *environment) acquire(sharedLibraryPath string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.refs == 0 && !e.isInitialized() {
		if err := e.initialize(sharedLibraryPath); err != nil {
			return err
		}
		e.owned = true
	}
	e.refs++
	return nil
}

func (e *environment) release() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.refs == 0 {
		return nil
	}
	e.refs--
	if e.refs > 0 || !e.owned {
		return nil
	}
	e.owned = false
	return e.destroy()
}
