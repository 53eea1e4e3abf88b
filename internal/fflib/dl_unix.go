//go:build unix

package fflib

import "github.com/ebitengine/purego"

// The monolithic library is opened privately so its bundled av* symbols do
// not leak into the global namespace used by the runtime binding.
func openLibrary(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

func closeLibrary(handle uintptr) error {
	return purego.Dlclose(handle)
}
