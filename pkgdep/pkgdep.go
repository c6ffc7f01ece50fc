// Package pkgdep resolves package dependency constraints by encoding them
// as a CNF formula. Each package version becomes a boolean variable; picking
// an installable set of versions is then a satisfiability question: at most
// one version per package, every dependency range covered, no two
// conflicting packages installed together.
//
// The resolver returns some consistent set, not an optimal one: it does not
// prefer newer versions or smaller install sets.
package pkgdep

import (
	"context"
	"sort"

	"github.com/blang/semver/v4"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/varasat/varasat/solver"
)

// ErrUnresolvable is returned when no set of versions satisfies all the
// constraints of a request.
var ErrUnresolvable = errors.New("dependency constraints are unsatisfiable")

// A Requirement names a package and an acceptable version range, using the
// semver range syntax (">=1.2.0 <2.0.0"). An empty range accepts any
// version.
type Requirement struct {
	Name  string
	Range string
}

type requirement struct {
	name string
	rng  semver.Range // nil means any version
}

func parseRequirement(r Requirement) (requirement, error) {
	req := requirement{name: r.Name}
	if r.Name == "" {
		return req, errors.New("requirement with an empty package name")
	}
	if r.Range != "" {
		rng, err := semver.ParseRange(r.Range)
		if err != nil {
			return req, errors.Wrapf(err, "invalid range %q for package %q", r.Range, r.Name)
		}
		req.rng = rng
	}
	return req, nil
}

func (r requirement) matches(version semver.Version) bool {
	return r.rng == nil || r.rng(version)
}

type pkg struct {
	name      string
	version   semver.Version
	deps      []requirement
	conflicts []requirement
	id        int // 1-based CNF variable
}

// A Repository holds the known package versions and their constraints.
type Repository struct {
	pkgs   []*pkg
	byName map[string][]*pkg
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{byName: make(map[string][]*pkg)}
}

// Add registers a package version along with its dependency and conflict
// requirements. Versions must follow semver; ranges are validated eagerly.
func (r *Repository) Add(name, version string, deps, conflicts []Requirement) error {
	v, err := semver.Parse(version)
	if err != nil {
		return errors.Wrapf(err, "invalid version %q for package %q", version, name)
	}
	for _, other := range r.byName[name] {
		if other.version.EQ(v) {
			return errors.Errorf("package %s@%s registered twice", name, version)
		}
	}
	p := &pkg{name: name, version: v, id: len(r.pkgs) + 1}
	for _, d := range deps {
		req, err := parseRequirement(d)
		if err != nil {
			return errors.Wrapf(err, "bad dependency of %s@%s", name, version)
		}
		p.deps = append(p.deps, req)
	}
	for _, c := range conflicts {
		req, err := parseRequirement(c)
		if err != nil {
			return errors.Wrapf(err, "bad conflict of %s@%s", name, version)
		}
		p.conflicts = append(p.conflicts, req)
	}
	r.pkgs = append(r.pkgs, p)
	r.byName[name] = append(r.byName[name], p)
	return nil
}

// candidates returns the known versions of req.name accepted by its range.
func (r *Repository) candidates(req requirement) []*pkg {
	return lo.Filter(r.byName[req.name], func(p *pkg, _ int) bool {
		return req.matches(p.version)
	})
}

// encode builds the CNF formula of the constraint system. The requested
// requirements become at-least-one clauses over their candidates.
func (r *Repository) encode(requests []requirement) [][]int {
	var cnf [][]int
	for _, req := range requests {
		clause := lo.Map(r.candidates(req), func(p *pkg, _ int) int { return p.id })
		cnf = append(cnf, clause)
	}
	for _, p := range r.pkgs {
		// Installing p requires one candidate of each of its dependencies
		for _, dep := range p.deps {
			clause := []int{-p.id}
			for _, cand := range r.candidates(dep) {
				clause = append(clause, cand.id)
			}
			cnf = append(cnf, clause)
		}
		// Installing p forbids everything it conflicts with
		for _, conflict := range p.conflicts {
			for _, other := range r.candidates(conflict) {
				if other != p {
					cnf = append(cnf, []int{-p.id, -other.id})
				}
			}
		}
	}
	// At most one version of each package
	for _, versions := range r.byName {
		for i := 0; i < len(versions); i++ {
			for j := i + 1; j < len(versions); j++ {
				cnf = append(cnf, []int{-versions[i].id, -versions[j].id})
			}
		}
	}
	return cnf
}

// A Selection is one package version picked by the resolver.
type Selection struct {
	Name    string
	Version semver.Version
}

func (s Selection) String() string { return s.Name + "@" + s.Version.String() }

// Install returns a consistent set of package versions covering all the
// given requirements, or ErrUnresolvable if none exists.
func (r *Repository) Install(requests ...Requirement) ([]Selection, error) {
	return r.InstallContext(context.Background(), requests...)
}

// InstallContext behaves like Install and additionally stops with an error
// when ctx expires or is cancelled.
func (r *Repository) InstallContext(ctx context.Context, requests ...Requirement) ([]Selection, error) {
	reqs := make([]requirement, len(requests))
	for i, req := range requests {
		parsed, err := parseRequirement(req)
		if err != nil {
			return nil, err
		}
		if len(r.byName[parsed.name]) == 0 {
			return nil, errors.Errorf("unknown package %q", parsed.name)
		}
		reqs[i] = parsed
	}
	s := solver.New(solver.ParseSlice(r.encode(reqs)))
	switch status := s.SolveContext(ctx); status {
	case solver.Sat:
	case solver.Timeout:
		return nil, errors.Wrap(ctx.Err(), "resolution interrupted")
	default:
		return nil, ErrUnresolvable
	}
	model := s.Model()
	installed := func(p *pkg) bool { return p.id <= len(model) && model[p.id-1] }
	// The model can set variables of packages nothing asked for: report only
	// the packages reachable from the requests through dependency edges.
	kept := make(map[*pkg]bool)
	var queue []*pkg
	for _, req := range reqs {
		for _, p := range r.candidates(req) {
			if installed(p) && !kept[p] {
				kept[p] = true
				queue = append(queue, p)
			}
		}
	}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, dep := range p.deps {
			for _, cand := range r.candidates(dep) {
				if installed(cand) && !kept[cand] {
					kept[cand] = true
					queue = append(queue, cand)
				}
			}
		}
	}
	selected := lo.Map(lo.Keys(kept), func(p *pkg, _ int) Selection {
		return Selection{Name: p.name, Version: p.version}
	})
	sort.Slice(selected, func(i, j int) bool {
		if selected[i].Name != selected[j].Name {
			return selected[i].Name < selected[j].Name
		}
		return selected[i].Version.LT(selected[j].Version)
	})
	return selected, nil
}
