package roundtrip

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
)

func sharedLibrarySuffix() string {
	switch runtime.GOOS {
	case "darwin":
		return ".dylib"
	case "windows":
		return ".dll"
	default:
		return ".so"
	}
}

// LibraryPath returns the conventional shared-object path for a
// generated source file, alongside it in the same directory.
func LibraryPath(genDir, projectCName string) string {
	return filepath.Join(genDir, "lib"+projectCName+"_roundtrip"+sharedLibrarySuffix())
}

// CompileSharedLibrary compiles sourcePath (the generated protocol .c
// file) into a loadable shared object at outputPath, the Go analog of
// the Python harness's own _compile_shared_library: GCC/Clang get
// -shared -fPIC, with a -dynamiclib fallback on Darwin; MSVC is not
// supported here since RTLD-style dlopen has no MSVC equivalent this
// package can drive.
func CompileSharedLibrary(ctx context.Context, compiler, sourcePath, includeDir, outputPath string) error {
	common := []string{"-std=c11", "-Wall", "-Wextra", "-Werror", sourcePath, "-I" + includeDir, "-o", outputPath}

	primary := append([]string{"-shared", "-fPIC"}, common...)
	if err := runCompiler(ctx, compiler, primary); err == nil {
		return nil
	} else if runtime.GOOS != "darwin" {
		return err
	}

	fallback := append([]string{"-dynamiclib"}, common...)
	return runCompiler(ctx, compiler, fallback)
}

func runCompiler(ctx context.Context, compiler string, args []string) error {
	cmd := exec.CommandContext(ctx, compiler, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("roundtrip: compile failed: %w: %s", err, stderr.String())
	}
	return nil
}
