package testsuite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smasonuk/panda/pkg/compiler"
)

func TestScenarios(t *testing.T) {
	if !HasGCC() {
		t.Skip("gcc not found on $PATH")
	}
	tmp := t.TempDir()

	for _, sc := range Scenarios {
		sc := sc
		for _, backend := range []compiler.Backend{compiler.BackendRegister, compiler.BackendStack} {
			backend := backend
			t.Run(sc.Name, func(t *testing.T) {
				stdout, ran, err := RunCompiled(sc.Source, backend, tmp)
				require.True(t, ran)
				require.NoError(t, err)
				assert.Equal(t, sc.Expected, stdout)
			})
		}
	}
}

func TestNegativeScenarios(t *testing.T) {
	for _, nsc := range NegativeScenarios {
		nsc := nsc
		t.Run(nsc.Name, func(t *testing.T) {
			_, err := compiler.Compile(nsc.Source, compiler.BackendRegister)
			require.Error(t, err)
			assert.Equal(t, nsc.Expected, err.Error())
		})
	}
}
