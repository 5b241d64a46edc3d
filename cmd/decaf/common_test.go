package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nikandfor/errors"
)

func TestReadUnit_MissingListing(t *testing.T) {
	_, _, err := readUnit(filepath.Join(t.TempDir(), "none.yaml"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "read listing: open listing") {
		t.Errorf("err = %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("cause lost: %v", err)
	}
}

func TestSetup_RequiredFlags(t *testing.T) {
	fs := flag.NewFlagSet("decompile", flag.ContinueOnError)
	c := addCommonFlags(fs)
	if err := fs.Parse([]string{"--out", "x"}); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := c.setup(fs); err == nil || err.Error() != "--in is required" {
		t.Errorf("err = %v, want --in is required", err)
	}
}

func TestSafeName(t *testing.T) {
	if got, want := safeName("p.A$B.<init>(I)V"), "p.A_B._init__I_V"; got != want {
		t.Errorf("safeName = %q, want %q", got, want)
	}
}
