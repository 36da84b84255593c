// reorg reorganizes a photo album directory based on the date
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/copy"
	"k8s.io/klog/v2"

	"github.com/tstromberg/fotovy/pkg/library"
	"github.com/tstromberg/fotovy/pkg/timeline"
)

var (
	dryRun   = flag.Bool("n", false, "dry-run mode, don't move things")
	copyFlag = flag.Bool("copy", false, "copy albums instead of moving them")
)

type move struct {
	from string
	to   string
}

// plan returns where each album of root goes: <parent>/<year>/<month>/<album>, using
// the newest day the album appears on in the timeline.
func plan(root string, snap *library.Snapshot) []move {
	inPath := map[string]string{}
	for _, a := range snap.Albums {
		inPath[a.ID] = a.InPath
	}

	var moves []move
	seen := map[string]bool{}
	for _, g := range timeline.Convert(snap.Rows) {
		for _, a := range g.Albums {
			if seen[a.ID] {
				continue
			}
			seen[a.ID] = true

			rel, ok := inPath[a.ID]
			if !ok || rel == "." {
				klog.Infof("skipping %q: not an album directory", a.ID)
				continue
			}
			base := filepath.Base(rel)
			// fix bad apostrophes
			base = strings.ReplaceAll(base, "_s ", "'s ")

			ym := fmt.Sprintf("%d/%02d", g.Date.Year(), int(g.Date.Month()))
			if strings.HasSuffix(filepath.ToSlash(filepath.Dir(rel)), ym) {
				klog.V(1).Infof("%s is already in %s", rel, ym)
				continue
			}
			to := fmt.Sprintf("%s/%s/%s", filepath.Dir(rel), ym, base)
			moves = append(moves, move{from: filepath.Join(root, rel), to: filepath.Join(root, to)})
		}
	}
	return moves
}

func apply(m move, copyOnly bool) error {
	if err := os.MkdirAll(filepath.Dir(m.to), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if copyOnly {
		if err := copy.Copy(m.from, m.to); err != nil {
			return fmt.Errorf("copy: %w", err)
		}
		return nil
	}
	if err := os.Rename(m.from, m.to); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if flag.NArg() != 1 {
		klog.Exitf("usage: reorg [-n] [-copy] <dir>")
	}
	root := flag.Arg(0)

	md, err := library.NewExifMetadata()
	if err != nil {
		klog.Exitf("metadata: %v", err)
	}
	defer md.Close()

	snap, err := library.New([]string{root}, md).Scan()
	if err != nil {
		klog.Exitf("unable to collect: %v", err)
	}

	for _, m := range plan(root, snap) {
		klog.Infof("%s -> %s", m.from, m.to)
		if *dryRun {
			continue
		}
		if err := apply(m, *copyFlag); err != nil {
			klog.Errorf("%s: %v", m.from, err)
		}
	}
}
