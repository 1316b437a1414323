// Package onnx locates the ONNX Runtime shared library and manages the
// process-wide runtime environment shared by all sessions.
package onnx

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const libPathEnv = "ONNXRUNTIME_LIB_PATH"

var (
	envMu   sync.Mutex
	envRefs int
)

// LibraryPath returns the shared library to load: $ONNXRUNTIME_LIB_PATH when
// set, else the first existing well-known location for the current OS, else
// the bare library name for the dynamic loader to resolve.
func LibraryPath() string {
	if p := os.Getenv(libPathEnv); p != "" {
		return p
	}

	candidates, fallback := searchPaths(runtime.GOOS)
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return fallback
}

func searchPaths(goos string) ([]string, string) {
	switch goos {
	case "windows":
		return []string{
			"onnxruntime.dll",
			"./lib/onnxruntime.dll",
		}, "onnxruntime.dll"
	case "darwin":
		return []string{
			"/usr/local/lib/libonnxruntime.dylib",
			"/opt/homebrew/lib/libonnxruntime.dylib",
			"./libonnxruntime.dylib",
			"./lib/libonnxruntime.dylib",
		}, "libonnxruntime.dylib"
	default:
		return []string{
			"/usr/lib/libonnxruntime.so",
			"/usr/local/lib/libonnxruntime.so",
			"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
			"./libonnxruntime.so",
			"./lib/libonnxruntime.so",
		}, "libonnxruntime.so"
	}
}

// Acquire initializes the runtime environment on first use. Each successful
// Acquire must be paired with a Release.
func Acquire() error {
	envMu.Lock()
	defer envMu.Unlock()

	if envRefs == 0 && !ort.IsInitialized() {
		ort.SetSharedLibraryPath(LibraryPath())
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}
	envRefs++
	return nil
}

// Release drops one reference and tears the environment down with the last.
func Release() error {
	envMu.Lock()
	defer envMu.Unlock()

	if envRefs == 0 {
		return nil
	}
	envRefs--
	if envRefs == 0 && ort.IsInitialized() {
		if err := ort.DestroyEnvironment(); err != nil {
			return fmt.Errorf("failed to destroy ONNX runtime: %w", err)
		}
	}
	return nil
}
