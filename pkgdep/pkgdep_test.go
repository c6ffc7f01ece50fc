package pkgdep

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAdd(t *testing.T, r *Repository, name, version string, deps, conflicts []Requirement) {
	t.Helper()
	require.NoError(t, r.Add(name, version, deps, conflicts))
}

func names(selected []Selection) map[string]string {
	res := make(map[string]string, len(selected))
	for _, s := range selected {
		res[s.Name] = s.Version.String()
	}
	return res
}

func TestInstallSimple(t *testing.T) {
	r := NewRepository()
	mustAdd(t, r, "app", "1.0.0", []Requirement{{Name: "lib"}}, nil)
	mustAdd(t, r, "lib", "2.3.1", nil, nil)
	selected, err := r.Install(Requirement{Name: "app"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"app": "1.0.0", "lib": "2.3.1"}, names(selected))
}

func TestInstallPicksVersionInRange(t *testing.T) {
	r := NewRepository()
	mustAdd(t, r, "lib", "1.0.0", nil, nil)
	mustAdd(t, r, "lib", "1.5.0", nil, nil)
	mustAdd(t, r, "lib", "2.0.0", nil, nil)
	mustAdd(t, r, "app", "1.0.0", []Requirement{{Name: "lib", Range: ">=1.2.0 <2.0.0"}}, nil)
	selected, err := r.Install(Requirement{Name: "app"})
	require.NoError(t, err)
	assert.Equal(t, "1.5.0", names(selected)["lib"])
}

func TestInstallDiamond(t *testing.T) {
	// a depends on b and c, both of which need a compatible d
	r := NewRepository()
	mustAdd(t, r, "d", "1.0.0", nil, nil)
	mustAdd(t, r, "d", "2.0.0", nil, nil)
	mustAdd(t, r, "b", "1.0.0", []Requirement{{Name: "d", Range: ">=1.0.0 <2.0.0"}}, nil)
	mustAdd(t, r, "c", "1.0.0", []Requirement{{Name: "d", Range: "<2.0.0"}}, nil)
	mustAdd(t, r, "a", "1.0.0", []Requirement{{Name: "b"}, {Name: "c"}}, nil)
	selected, err := r.Install(Requirement{Name: "a"})
	require.NoError(t, err)
	got := names(selected)
	assert.Equal(t, "1.0.0", got["d"], "both b and c need d 1.x")
	assert.Len(t, selected, 4)
}

func TestInstallAtMostOneVersion(t *testing.T) {
	r := NewRepository()
	mustAdd(t, r, "lib", "1.0.0", nil, nil)
	mustAdd(t, r, "lib", "2.0.0", nil, nil)
	mustAdd(t, r, "a", "1.0.0", []Requirement{{Name: "lib", Range: "<2.0.0"}}, nil)
	mustAdd(t, r, "b", "1.0.0", []Requirement{{Name: "lib", Range: ">=2.0.0"}}, nil)
	// a and b need different versions of lib: cannot coexist
	_, err := r.Install(Requirement{Name: "a"}, Requirement{Name: "b"})
	assert.ErrorIs(t, err, ErrUnresolvable)
}

func TestInstallConflicts(t *testing.T) {
	r := NewRepository()
	mustAdd(t, r, "openssl", "1.0.0", nil, nil)
	mustAdd(t, r, "libressl", "1.0.0", nil, []Requirement{{Name: "openssl"}})
	mustAdd(t, r, "app", "1.0.0",
		[]Requirement{{Name: "openssl"}, {Name: "libressl"}}, nil)
	_, err := r.Install(Requirement{Name: "app"})
	assert.ErrorIs(t, err, ErrUnresolvable)

	// Each of them alone is fine
	selected, err := r.Install(Requirement{Name: "libressl"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"libressl": "1.0.0"}, names(selected))
}

func TestInstallMissingDependency(t *testing.T) {
	r := NewRepository()
	mustAdd(t, r, "app", "1.0.0", []Requirement{{Name: "lib", Range: ">=3.0.0"}}, nil)
	mustAdd(t, r, "lib", "2.0.0", nil, nil)
	_, err := r.Install(Requirement{Name: "app"})
	assert.ErrorIs(t, err, ErrUnresolvable)
}

func TestInstallUnknownPackage(t *testing.T) {
	r := NewRepository()
	mustAdd(t, r, "app", "1.0.0", nil, nil)
	_, err := r.Install(Requirement{Name: "ghost"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnresolvable)
}

func TestInstallIgnoresUnrelatedPackages(t *testing.T) {
	r := NewRepository()
	mustAdd(t, r, "app", "1.0.0", nil, nil)
	mustAdd(t, r, "unrelated", "1.0.0", nil, nil)
	selected, err := r.Install(Requirement{Name: "app"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"app": "1.0.0"}, names(selected))
}

func TestAddErrors(t *testing.T) {
	r := NewRepository()
	assert.Error(t, r.Add("app", "not-a-version", nil, nil))
	assert.Error(t, r.Add("app", "1.0.0", []Requirement{{Name: "lib", Range: "~garbage"}}, nil))
	assert.Error(t, r.Add("app", "1.0.0", []Requirement{{Name: ""}}, nil))
	require.NoError(t, r.Add("app", "1.0.0", nil, nil))
	assert.Error(t, r.Add("app", "1.0.0", nil, nil), "same version twice")
}

func TestInstallCancelledContext(t *testing.T) {
	r := NewRepository()
	mustAdd(t, r, "app", "1.0.0", nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.InstallContext(ctx, Requirement{Name: "app"})
	assert.Error(t, err)
}
