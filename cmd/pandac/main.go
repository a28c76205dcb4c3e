// Command pandac compiles Panda source into x86-64 assembly, optionally
// assembling/linking/running it through the host gcc (spec.md section 6).
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/smasonuk/panda/internal/testsuite"
	"github.com/smasonuk/panda/pkg/compiler"
	"github.com/smasonuk/panda/pkg/utils"
)

var (
	flagOutput   string
	flagCompile  bool
	flagRun      bool
	flagDebug    bool
	flagFile     string
	flagStack    bool
	flagRunTests bool
)

func main() {
	root := &cobra.Command{
		Use:   "pandac",
		Short: "Compile Panda source to x86-64 assembly",
		RunE:  run,
	}

	root.Flags().StringVarP(&flagOutput, "output", "o", "a", "output basename")
	root.Flags().BoolVarP(&flagCompile, "compile", "c", false, "assemble/link with gcc")
	root.Flags().BoolVarP(&flagRun, "run", "r", false, "compile then run the linked binary (implies --compile)")
	root.Flags().BoolVarP(&flagDebug, "debug", "d", false, "render AST/symbol-table graphviz and dump IR")
	root.Flags().StringVarP(&flagFile, "file", "f", "", "source file path (default: read one line from stdin)")
	root.Flags().BoolVarP(&flagStack, "stack", "s", false, "use the stack code generator instead of the register one")
	root.Flags().BoolVarP(&flagRunTests, "runTests", "t", false, "run the bundled end-to-end test suite and exit")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if flagDebug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if flagRunTests {
		ok := testsuite.Run(cmd.OutOrStdout())
		if !ok {
			os.Exit(1)
		}
		return nil
	}

	src, err := readSource(flagFile)
	if err != nil {
		return fail(err)
	}

	backend := compiler.BackendRegister
	if flagStack {
		backend = compiler.BackendStack
	}

	result, err := compiler.Compile(src, backend)
	if err != nil {
		return fail(err)
	}

	outDir := "src/output"
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fail(err)
	}
	asmPath := filepath.Join(outDir, flagOutput+".s")
	if err := os.WriteFile(asmPath, []byte(result.Assembly), 0o644); err != nil {
		return fail(err)
	}

	if flagDebug {
		renderDebugArtifacts(result, flagOutput, backend)
	}

	if flagRun {
		flagCompile = true
	}

	if flagCompile {
		binPath := filepath.Join(outDir, flagOutput+".out")
		gcc := exec.Command("gcc", asmPath, "-o", binPath)
		gcc.Stdout, gcc.Stderr = os.Stdout, os.Stderr
		if err := gcc.Run(); err != nil {
			return err // a gcc failure makes pandac exit with status 1
		}

		if flagRun {
			abs, err := filepath.Abs(binPath)
			if err != nil {
				return fail(err)
			}
			runCmd := exec.Command(abs)
			runCmd.Stdout, runCmd.Stderr, runCmd.Stdin = os.Stdout, os.Stderr, os.Stdin
			return runCmd.Run()
		}
	}

	return nil
}

// fail logs the fatal CompileError at Error level with structured
// phase/line fields (spec.md section 7 expansion), then prints the
// user-visible two-line message preceded by a blank line.
func fail(err error) error {
	if ce, ok := asCompileError(err); ok {
		logrus.WithFields(logrus.Fields{"phase": ce.Phase, "line": ce.Line}).Error(ce.Msg)
	} else {
		logrus.WithError(err).Error("fatal")
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, err)
	return err
}

// asCompileError is a package-local re-implementation of the compiler
// package's unexported helper of the same name: main can't reach an
// unexported function across package boundaries, so it walks the
// github.com/pkg/errors cause chain itself.
func asCompileError(err error) (*compiler.CompileError, bool) {
	type causer interface{ Cause() error }
	for err != nil {
		if ce, ok := err.(*compiler.CompileError); ok {
			return ce, true
		}
		c, ok := err.(causer)
		if !ok {
			return nil, false
		}
		err = c.Cause()
	}
	return nil, false
}

func readSource(path string) (string, error) {
	if path != "" {
		fullPath, parentDir, err := utils.GetPathInfo(path)
		if err != nil {
			return "", err
		}
		logrus.WithFields(logrus.Fields{"path": fullPath, "dir": parentDir}).Debug("reading source file")

		data, err := os.ReadFile(fullPath)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return line, nil
}

func renderDebugArtifacts(result *compiler.Result, base string, backend compiler.Backend) {
	imgDir := "src/printer/images"
	if err := os.MkdirAll(imgDir, 0o755); err != nil {
		logrus.WithError(err).Warn("debug: could not create images dir")
		return
	}

	writeArtifact(filepath.Join(imgDir, base+".initial.dot"), compiler.DotAST(result.InitialAST, "initial"))
	writeArtifact(filepath.Join(imgDir, base+".desugared.dot"), compiler.DotAST(result.DesugaredAST, "desugared"))
	writeArtifact(filepath.Join(imgDir, base+".symbols.dot"), compiler.DotSymbolTable(result.DesugaredAST.Scope, "symbols"))

	switch backend {
	case compiler.BackendStack:
		writeArtifact(base+".stack.iloc", dumpInstructions(result.StackIR))
	case compiler.BackendRegister:
		writeArtifact(base+".register.iloc", dumpInstructions(result.Allocated))
	}
}

func dumpInstructions(instrs []compiler.Instruction) string {
	var out string
	for _, inst := range instrs {
		out += inst.String() + "\n"
	}
	return out
}

func writeArtifact(path, content string) {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		logrus.WithError(err).Warnf("debug: failed to write %s", path)
	}
}
