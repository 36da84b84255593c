// autotag adds suggested tags to JPEG images using Gemini.
package main

import (
	"context"
	"flag"
	"os"

	"k8s.io/klog/v2"

	"github.com/tstromberg/fotovy/pkg/autotag"
	"github.com/tstromberg/fotovy/pkg/library"
)

var (
	dryRun    = flag.Bool("n", false, "dry-run mode, don't tag things")
	overwrite = flag.Bool("o", false, "overwrite existing tags")
	model     = flag.String("model", autotag.DefaultModel, "Gemini model to use")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if len(flag.Args()) == 0 {
		klog.Exitf("No input directories provided. Usage: %s <input_dir1> [input_dir2 ...]", os.Args[0])
	}

	key := os.Getenv("GOOGLE_AI_API_KEY")
	if key == "" {
		klog.Exitf("GOOGLE_AI_API_KEY is not set")
	}

	ctx := context.Background()
	tagger, err := autotag.NewGemini(ctx, key, *model)
	if err != nil {
		klog.Exitf("gemini: %v", err)
	}

	md, err := library.NewExifMetadata()
	if err != nil {
		klog.Exitf("metadata: %v", err)
	}
	defer func() {
		if err := md.Close(); err != nil {
			klog.Errorf("Failed to close exiftool: %v", err)
		}
	}()

	lib := library.New(flag.Args(), md)
	snap, err := lib.Scan()
	if err != nil {
		klog.Exitf("unable to collect: %v", err)
	}
	klog.Infof("Found %d albums", len(snap.Albums))

	n, err := autotag.Run(ctx, lib, library.NewThumbnailer(lib), tagger, autotag.Options{
		Overwrite: *overwrite,
		DryRun:    *dryRun,
	})
	if err != nil {
		klog.Exitf("autotag: %v", err)
	}
	klog.Infof("autotag completed. Tagged %d of %d images across %d albums", n, len(snap.Images), len(snap.Albums))
}
