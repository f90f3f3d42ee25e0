package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/chipforge/pkg/engine"
	errs "github.com/matzehuels/chipforge/pkg/errors"
	"github.com/matzehuels/chipforge/pkg/netlist"
)

func testCLI(t *testing.T) *CLI {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	var buf bytes.Buffer
	return New(&buf, log.InfoLevel)
}

func TestBuildParams(t *testing.T) {
	c := testCLI(t)
	c.cfg.Engine.Seed = 9
	c.cfg.Engine.TimeoutMS = 1000

	cmd := &cobra.Command{}
	var opts runOpts
	c.addRunFlags(cmd, &opts)
	if err := cmd.ParseFlags([]string{"-p", "iterations=500", "-p", "allow-rotation=true", "--timeout", "250ms"}); err != nil {
		t.Fatal(err)
	}

	params, err := c.buildParams(cmd, &opts)
	if err != nil {
		t.Fatalf("buildParams() error: %v", err)
	}
	if params.Iterations != 500 || !params.AllowRotation {
		t.Errorf("params = %+v", params)
	}
	if params.Seed != 9 {
		t.Errorf("seed = %d, want the config default 9", params.Seed)
	}
	if params.TimeoutMS != 250 {
		t.Errorf("timeout_ms = %d, want the flag value 250", params.TimeoutMS)
	}
}

func TestBuildParamsRejectsMalformed(t *testing.T) {
	c := testCLI(t)
	for _, kv := range []string{"iterations", "no_such_param=1", "iterations=many"} {
		cmd := &cobra.Command{}
		var opts runOpts
		c.addRunFlags(cmd, &opts)
		if err := cmd.ParseFlags([]string{"--param", kv}); err != nil {
			t.Fatal(err)
		}
		if _, err := c.buildParams(cmd, &opts); !errs.Is(err, errs.ErrCodeInvalidParameter) {
			t.Errorf("%q: error = %v, want INVALID_PARAMETER", kv, err)
		}
	}
}

func TestResolveAlgorithm(t *testing.T) {
	a, err := resolveAlgorithm(&runOpts{category: "routing", algorithm: "astar"})
	if err != nil {
		t.Fatalf("resolveAlgorithm() error: %v", err)
	}
	if a != (engine.Algorithm{Category: engine.Routing, Name: "astar"}) {
		t.Errorf("got %v", a)
	}

	if _, err := resolveAlgorithm(&runOpts{category: "routing", algorithm: "dijkstra"}); !errs.Is(err, errs.ErrCodeUnsupportedAlgorithm) {
		t.Errorf("unknown algorithm: %v", err)
	}
	if _, err := resolveAlgorithm(&runOpts{algorithm: "astar"}); !errs.Is(err, errs.ErrCodeInvalidCategory) {
		t.Errorf("missing category: %v", err)
	}
	if _, err := resolveAlgorithm(&runOpts{category: "placement"}); !errs.Is(err, errs.ErrCodeUnsupportedAlgorithm) {
		t.Errorf("missing algorithm: %v", err)
	}
}

func TestShortcutVerbs(t *testing.T) {
	want := map[engine.Category]string{
		engine.Placement:     "place",
		engine.Routing:       "route",
		engine.Partitioning:  "partition",
		engine.Floorplanning: "floorplan",
	}
	for cat, verb := range want {
		if got := shortcutVerb(cat); got != verb {
			t.Errorf("shortcutVerb(%s) = %q, want %q", cat, got, verb)
		}
	}
}

func TestRootCommandTree(t *testing.T) {
	root := testCLI(t).RootCommand()
	for _, name := range []string{"run", "place", "route", "partition", "floorplan", "algorithms", "bench", "netlist", "serve", "cache", "model", "config", "completion"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestRunCommandWritesResponse(t *testing.T) {
	c := testCLI(t)
	dir := t.TempDir()
	problem := filepath.Join(dir, "design.json")
	p, err := netlist.Generate(netlist.GenerateOptions{Cells: 6, Seed: 3})
	if err != nil {
		t.Fatal(err)
	}
	if err := netlist.WriteFile(problem, p); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "placed.json")

	root := c.RootCommand()
	root.SetArgs([]string{"place", problem, "-a", "quadratic", "-o", out, "--no-cache"})
	if err := root.Execute(); err != nil {
		t.Fatalf("place: %v", err)
	}

	resp, err := netlist.ReadResponseFile(out)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if resp.Category != engine.Placement || resp.Algorithm != "quadratic" {
		t.Errorf("response = %s/%s", resp.Category, resp.Algorithm)
	}
	if len(resp.Cells) != 6 {
		t.Errorf("placed %d cells, want 6", len(resp.Cells))
	}
}

func TestRunCommandRejectsUnknownAlgorithm(t *testing.T) {
	c := testCLI(t)
	problem := filepath.Join(t.TempDir(), "design.yaml")
	p, _ := netlist.Generate(netlist.GenerateOptions{Cells: 3, Seed: 1})
	if err := netlist.WriteFile(problem, p); err != nil {
		t.Fatal(err)
	}

	root := c.RootCommand()
	root.SetArgs([]string{"run", problem, "-c", "placement", "-a", "tetris"})
	root.SetErr(&bytes.Buffer{})
	err := root.Execute()
	if !errs.Is(err, errs.ErrCodeUnsupportedAlgorithm) {
		t.Fatalf("error = %v, want UNSUPPORTED_ALGORITHM", err)
	}
	if !strings.Contains(err.Error(), "tetris") {
		t.Errorf("error should name the algorithm: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Dir(problem))
	if len(entries) != 1 {
		t.Errorf("no output expected, directory has %d entries", len(entries))
	}
}

func TestTrainListAndDeleteModel(t *testing.T) {
	c := testCLI(t)
	var buf bytes.Buffer
	defer func(w io.Writer) { stdout = w }(stdout)
	stdout = &buf

	problem := filepath.Join(t.TempDir(), "design.json")
	p, err := netlist.Generate(netlist.GenerateOptions{Cells: 5, Seed: 2})
	if err != nil {
		t.Fatal(err)
	}
	if err := netlist.WriteFile(problem, p); err != nil {
		t.Fatal(err)
	}

	exec := func(args ...string) error {
		root := c.RootCommand()
		root.SetArgs(args)
		root.SetErr(&bytes.Buffer{})
		return root.Execute()
	}
	if err := exec("place", problem, "-a", "policy-gradient", "-p", "episodes=5", "-p", "model=tiny", "-o", filepath.Join(t.TempDir(), "out.json")); err != nil {
		t.Fatalf("train: %v", err)
	}
	if err := exec("place", problem, "-a", "policy-gradient", "-p", "episodes=0", "-p", "model=tiny", "-o", filepath.Join(t.TempDir(), "replay.json")); err != nil {
		t.Fatalf("replay: %v", err)
	}

	buf.Reset()
	if err := exec("model", "list"); err != nil {
		t.Fatalf("model list: %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "tiny") || !strings.Contains(out, "policy-gradient") {
		t.Errorf("model list output %q lacks the trained model", out)
	}

	if err := exec("model", "delete", "tiny"); err != nil {
		t.Fatalf("model delete: %v", err)
	}
	if err := exec("model", "delete", "tiny"); !errs.Is(err, errs.ErrCodeNotFound) {
		t.Errorf("second delete error = %v, want NOT_FOUND", err)
	}
}
