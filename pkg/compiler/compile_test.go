package compiler

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarios mirrors spec.md section 8's S1-S6 table. Duplicated here
// (rather than imported from internal/testsuite) to keep this
// package's tests free of a dependency on cmd-facing code.
var scenarios = []struct {
	name     string
	source   string
	expected string
}{
	{"S1", `print(1+2*3);`, "7\n"},
	{"S2", `int x; x = 10; while (x > 0) { print(x); x = x - 1; }`, "10\n9\n8\n7\n6\n5\n4\n3\n2\n1\n"},
	{"S3", `int fib(int n) { if (n < 2) { return n; } else { return fib(n-1)+fib(n-2); } } print(fib(10));`, "55\n"},
	{"S4", `int x = 3; int y = 4; if (x < y) { print(x); } else { print(y); }`, "3\n"},
	{"S5", `for (int i = 0; i < 3; i = i + 1) { print(i*i); }`, "0\n1\n4\n"},
	{"S6", `int outer() { int a; a = 7; int inner() { return a + 1; } return inner(); } print(outer());`, "8\n"},
}

func TestCompileBothBackendsProduceAssembly(t *testing.T) {
	for _, sc := range scenarios {
		for _, backend := range []Backend{BackendRegister, BackendStack} {
			res, err := Compile(sc.source, backend)
			require.NoError(t, err, "%s/%v", sc.name, backend)
			assert.Contains(t, res.Assembly, ".globl main")
			assert.Contains(t, res.Assembly, "callq printf@plt")
		}
	}
}

func TestCompileEndToEnd(t *testing.T) {
	if _, err := exec.LookPath("gcc"); err != nil {
		t.Skip("gcc not found on $PATH")
	}
	dir := t.TempDir()

	for _, sc := range scenarios {
		for _, backend := range []Backend{BackendRegister, BackendStack} {
			res, err := Compile(sc.source, backend)
			require.NoError(t, err)

			asmPath := filepath.Join(dir, sc.name+".s")
			binPath := filepath.Join(dir, sc.name+".out")
			require.NoError(t, os.WriteFile(asmPath, []byte(res.Assembly), 0o644))

			gcc := exec.Command("gcc", asmPath, "-o", binPath)
			out, err := gcc.CombinedOutput()
			require.NoError(t, err, "gcc: %s", out)

			run := exec.Command(binPath)
			stdout, err := run.Output()
			require.NoError(t, err)
			assert.Equal(t, sc.expected, string(stdout), sc.name)
		}
	}
}

func TestCompileNegativeScenarios(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{"N1", `int x; int x;`, "Error in phase Symbol Collection, line 1:\nRedeclaration of function 'x' in the same scope."},
		{"N2", `print(1.0);`, "Error in phase code Generation, line 1:\nFloats are not implemented, yet."},
		{"N3", `1 + ;`, "Error in phase Syntax Analysis, line 1:\nProblem detected at ';'."},
	}
	for _, tt := range tests {
		_, err := Compile(tt.source, BackendRegister)
		require.Error(t, err, tt.name)
		assert.Equal(t, tt.expected, err.Error(), tt.name)
	}
}

func TestCompileResetsLabelCounterPerCall(t *testing.T) {
	res1, err := Compile(scenarios[0].source, BackendRegister)
	require.NoError(t, err)
	res2, err := Compile(scenarios[0].source, BackendRegister)
	require.NoError(t, err)
	assert.Equal(t, res1.Assembly, res2.Assembly)
}
