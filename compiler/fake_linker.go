package compiler

import "os"

// fakeLinker concatenates object files into a pseudo shared-object file.
// The real linker (ld/lld invocation producing an actual ELF/.so) is an
// external collaborator outside this module's scope.
type fakeLinker struct{}

// NewFakeLinker returns a Linker suitable for tests.
func NewFakeLinker() Linker { return fakeLinker{} }

func (fakeLinker) Link(objPaths []string, soPath string) error {
	var out []byte
	for _, p := range objPaths {
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out = append(out, b...)
	}
	return os.WriteFile(soPath, out, 0o755)
}
