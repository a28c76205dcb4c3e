// Package testsuite holds the bundled end-to-end scenarios of spec.md
// section 8: each compiles a literal Panda program with both the stack
// and register backends, assembles+links the result with the host
// gcc, runs it, and compares stdout. It backs both `go test ./...` and
// `pandac -t/--runTests` (they are the same checks, not two divergent
// implementations — spec.md section 8 expansion).
package testsuite

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/smasonuk/panda/pkg/compiler"
)

// Scenario is one literal-source/expected-output pair (spec.md section
// 8's S1-S6 table).
type Scenario struct {
	Name     string
	Source   string
	Expected string
}

// NegativeScenario is one literal-source/expected-fatal-error pair
// (spec.md section 8's N1-N3 table).
type NegativeScenario struct {
	Name     string
	Source   string
	Expected string
}

var Scenarios = []Scenario{
	{Name: "S1", Source: `print(1+2*3);`, Expected: "7\n"},
	{Name: "S2", Source: `int x; x = 10; while (x > 0) { print(x); x = x - 1; }`,
		Expected: "10\n9\n8\n7\n6\n5\n4\n3\n2\n1\n"},
	{Name: "S3", Source: `int fib(int n) { if (n < 2) { return n; } else { return fib(n-1)+fib(n-2); } } print(fib(10));`,
		Expected: "55\n"},
	{Name: "S4", Source: `int x = 3; int y = 4; if (x < y) { print(x); } else { print(y); }`, Expected: "3\n"},
	{Name: "S5", Source: `for (int i = 0; i < 3; i = i + 1) { print(i*i); }`, Expected: "0\n1\n4\n"},
	{Name: "S6", Source: `int outer() { int a; a = 7; int inner() { return a + 1; } return inner(); } print(outer());`,
		Expected: "8\n"},
}

var NegativeScenarios = []NegativeScenario{
	{Name: "N1", Source: `int x; int x;`,
		Expected: "Error in phase Symbol Collection, line 1:\nRedeclaration of function 'x' in the same scope."},
	{Name: "N2", Source: `print(1.0);`,
		Expected: "Error in phase code Generation, line 1:\nFloats are not implemented, yet."},
	{Name: "N3", Source: `1 + ;`,
		Expected: "Error in phase Syntax Analysis, line 1:\nProblem detected at ';'."},
}

// HasGCC reports whether a gcc binary is reachable on $PATH.
func HasGCC() bool {
	_, err := exec.LookPath("gcc")
	return err == nil
}

// RunCompiled runs src through the given backend, then (if gcc is
// available) assembles, links, and executes the result, returning its
// stdout. If gcc is not on $PATH, ok is false and the caller should
// skip rather than fail.
func RunCompiled(src string, backend compiler.Backend, workDir string) (stdout string, ok bool, err error) {
	if !HasGCC() {
		return "", false, nil
	}

	result, err := compiler.Compile(src, backend)
	if err != nil {
		return "", true, err
	}

	asmPath := filepath.Join(workDir, "scenario.s")
	binPath := filepath.Join(workDir, "scenario.out")
	if err := os.WriteFile(asmPath, []byte(result.Assembly), 0o644); err != nil {
		return "", true, err
	}

	gcc := exec.Command("gcc", asmPath, "-o", binPath)
	var gccErr bytes.Buffer
	gcc.Stderr = &gccErr
	if err := gcc.Run(); err != nil {
		return "", true, fmt.Errorf("gcc failed: %w\n%s", err, gccErr.String())
	}

	run := exec.Command(binPath)
	var out bytes.Buffer
	run.Stdout = &out
	if err := run.Run(); err != nil {
		return "", true, fmt.Errorf("running compiled binary failed: %w", err)
	}
	return out.String(), true, nil
}

// Run executes every positive and negative scenario against both
// backends and writes a pass/fail report to w. It returns false if any
// scenario failed. Used by `pandac -t`.
func Run(w io.Writer) bool {
	ok := true
	tmp, err := os.MkdirTemp("", "panda-testsuite-*")
	if err != nil {
		fmt.Fprintf(w, "FAIL: could not create temp dir: %v\n", err)
		return false
	}
	defer os.RemoveAll(tmp)

	if !HasGCC() {
		fmt.Fprintln(w, "SKIP: gcc not found on $PATH, skipping all end-to-end scenarios")
	}

	for _, sc := range Scenarios {
		for _, backend := range []compiler.Backend{compiler.BackendRegister, compiler.BackendStack} {
			name := fmt.Sprintf("%s/%s", sc.Name, backendLabel(backend))
			stdout, ran, err := RunCompiled(sc.Source, backend, tmp)
			switch {
			case !ran:
				fmt.Fprintf(w, "SKIP %s\n", name)
			case err != nil:
				fmt.Fprintf(w, "FAIL %s: %v\n", name, err)
				ok = false
			case stdout != sc.Expected:
				fmt.Fprintf(w, "FAIL %s: got %q, want %q\n", name, stdout, sc.Expected)
				ok = false
			default:
				fmt.Fprintf(w, "PASS %s\n", name)
			}
		}
	}

	for _, nsc := range NegativeScenarios {
		_, err := compiler.Compile(nsc.Source, compiler.BackendRegister)
		if err == nil {
			fmt.Fprintf(w, "FAIL %s: expected a fatal error, compile succeeded\n", nsc.Name)
			ok = false
			continue
		}
		if err.Error() != nsc.Expected {
			fmt.Fprintf(w, "FAIL %s: got error %q, want %q\n", nsc.Name, err.Error(), nsc.Expected)
			ok = false
			continue
		}
		fmt.Fprintf(w, "PASS %s\n", nsc.Name)
	}

	return ok
}

func backendLabel(b compiler.Backend) string {
	if b == compiler.BackendStack {
		return "stack"
	}
	return "register"
}
